package lens

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/go-analyze/bulk"
	"golang.org/x/sync/errgroup"
)

// FileExists reports whether the named file exists.
func FileExists(filename string) bool {
	if _, err := os.Stat(filename); err != nil {
		return !os.IsNotExist(err)
	}
	return true
}

// LoadEvents reads events from the given files and directories. Directories are walked recursively and only files
// with a supported event extension are read. Events are returned in path order.
func LoadEvents(ctx context.Context, paths []string) ([]*Event, error) {
	files, err := expandEventPaths(ctx, paths)
	if err != nil {
		return nil, err
	}

	fileEvents := make([][]*Event, len(files))
	eg, ctx := ErrGroupLimitCPU(ctx, 0)
	for i, path := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			events, err := DecodeEvents(path, data)
			if err != nil {
				return &EventFileError{Path: path, Err: err}
			}
			fileEvents[i] = events
			Logger().Debug().Str("path", path).Int("events", len(events)).Msg("loaded event file")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(fileEvents...), nil
}

// EventFileError reports the file an event decode failure originated from.
type EventFileError struct {
	Path string
	Err  error
}

func (e *EventFileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *EventFileError) Unwrap() error {
	return e.Err
}

// expandEventPaths replaces directories with the event files they contain, keeping explicit files as provided.
func expandEventPaths(ctx context.Context, paths []string) ([]string, error) {
	var result []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		} else if !info.IsDir() {
			result = append(result, path)
			continue
		}

		var mu sync.Mutex
		var dirFiles []string
		if err := concurrentWalk(ctx, path, true, func(path string, info os.FileInfo) error {
			if !info.IsDir() {
				mu.Lock()
				defer mu.Unlock()
				dirFiles = append(dirFiles, path)
			}
			return nil
		}); err != nil {
			return nil, err
		}
		dirFiles = bulk.SliceFilterInPlace(IsEventFile, dirFiles)
		slices.Sort(dirFiles) // walk handlers complete in any order
		result = append(result, dirFiles...)
	}
	return result, nil
}

func concurrentWalk(ctx context.Context, root string, skipSymlink bool, handler func(path string, info os.FileInfo) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU() * 4)
	err1 := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select { // abort walk if early failure
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		eg.Go(func() error {
			info, err := d.Info()
			if err != nil {
				return err
			} else if skipSymlink && info.Mode()&os.ModeSymlink != 0 {
				return nil // skip symlinks
			}
			return handler(path, info)
		})
		return nil
	})
	err2 := eg.Wait()
	return errors.Join(err1, err2)
}
