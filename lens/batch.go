package lens

import (
	"context"
	"fmt"
	"strings"
)

// InvertedMode selects the traversal direction used for a batch of events.
type InvertedMode string

const (
	// InvertedAuto uses the InvertedHierarchy flag of each event.
	InvertedAuto InvertedMode = "auto"
	// InvertedAlways forces inverted traversal for every event.
	InvertedAlways InvertedMode = "true"
	// InvertedNever forces crash-first traversal for every event.
	InvertedNever InvertedMode = "false"
)

// ParseInvertedMode parses the mode name, accepting the empty string as auto.
func ParseInvertedMode(s string) (InvertedMode, error) {
	switch mode := InvertedMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return InvertedAuto, nil
	case InvertedAuto, InvertedAlways, InvertedNever:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid inverted mode %q, expected auto, true or false", s)
	}
}

// resolve returns the traversal direction for the event.
func (m InvertedMode) resolve(event *Event) bool {
	switch m {
	case InvertedAlways:
		return true
	case InvertedNever:
		return false
	default:
		return event.InvertedHierarchy
	}
}

// GroupingResult holds the variants produced for one event.
type GroupingResult struct {
	EventID  string
	Inverted bool
	// Fallback is set when no sentinel layer was built and the variants came from the fallback tree.
	Fallback bool
	// Cached is set when the variants were reused from an identical stack.
	Cached   bool
	Variants Variants
}

// GroupEvent computes the grouping variants of a single event.
func GroupEvent(event *Event, inverted bool) *GroupingResult {
	components, frames := event.Components()
	variants, fallback := buildHierarchy(MainVariant(components), components, frames, inverted)
	return &GroupingResult{
		EventID:  event.ID,
		Inverted: inverted,
		Fallback: fallback,
		Variants: variants,
	}
}

// GroupOptions configures GroupEvents.
type GroupOptions struct {
	// Cache is optional, when nil every event is grouped directly.
	Cache *VariantCache
	// Inverted selects the traversal direction, the zero value behaves as InvertedAuto.
	Inverted InvertedMode
	// Concurrency limits parallel grouping, defaulting to the CPU count when not positive.
	Concurrency int
}

// GroupEvents groups the events concurrently. Results are returned in the same order as the events.
func GroupEvents(ctx context.Context, events []*Event, opts GroupOptions) ([]*GroupingResult, error) {
	results := make([]*GroupingResult, len(events))
	eg, ctx := ErrGroupLimitCPU(ctx, opts.Concurrency)
	for i, event := range events {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = opts.Cache.Group(event, opts.Inverted.resolve(event))
			Logger().Debug().Str("event", event.ID).
				Int("layers", results[i].Variants.BoundedLayers()).
				Bool("fallback", results[i].Fallback).
				Msg("grouped event")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("group events failed: %w", err)
	}
	return results, nil
}
