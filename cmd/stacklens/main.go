package main

import (
	"context"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/PatchLens/go-stack-lens/lens"
	"github.com/PatchLens/go-stack-lens/lens/cmd"
)

const pprofDebug = false

func main() {
	log := lens.Logger()

	if pprofDebug {
		go func() {
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Warn().Err(err).Msg("pprof server failure")
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := cmd.NewRootCommand(func(ctx context.Context, cfg *lens.Config) error {
		return lens.NewGroupingEngine(cfg).Run(ctx)
	})
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg(lens.ErrorLogPrefix + "stacklens")
		cancel()
		os.Exit(1)
	}
}
