package lens

import (
	"iter"
)

// frameEntry pairs a component with the frame at the same index.
type frameEntry struct {
	frame     *Frame
	component *Component
}

// readIndexes yields frame indexes in traversal order. The crashing frame is the last frame of an event, so it is
// read first unless the hierarchy is inverted, in which case reading starts at the call-stack base.
func readIndexes(n int, inverted bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			idx := n - 1 - i
			if inverted {
				idx = i
			}
			if !yield(idx) {
				return
			}
		}
	}
}

// readOrder pairs components and frames in traversal order.
func readOrder(components []*Component, frames []Frame, inverted bool) []frameEntry {
	entries := make([]frameEntry, 0, len(components))
	for idx := range readIndexes(len(components), inverted) {
		entries = append(entries, frameEntry{frame: &frames[idx], component: components[idx]})
	}
	return entries
}

type scanResult int

const (
	scanExhausted scanResult = iota
	scanSentinel
	scanInApp
)

// frameCursor is the single read position shared by sentinel scans and prefix runs. Non-contributing entries are
// stepped over and never returned.
type frameCursor struct {
	entries      []frameEntry
	pos          int
	lastSentinel int // position of the last contributing sentinel, -1 if none
	sentinelSeen bool
}

func newFrameCursor(entries []frameEntry) *frameCursor {
	c := &frameCursor{entries: entries, lastSentinel: -1}
	for i := len(entries) - 1; i >= 0; i-- {
		if e := entries[i]; e.component.Contributes && e.component.IsSentinelFrame {
			c.lastSentinel = i
			break
		}
	}
	return c
}

// peek returns the next contributing entry without consuming it.
func (c *frameCursor) peek() (frameEntry, bool) {
	for c.pos < len(c.entries) {
		if e := c.entries[c.pos]; e.component.Contributes {
			return e, true
		}
		c.pos++
	}
	return frameEntry{}, false
}

// next consumes and returns the next contributing entry.
func (c *frameCursor) next() (frameEntry, bool) {
	e, ok := c.peek()
	if ok {
		c.pos++
		if e.component.IsSentinelFrame {
			c.sentinelSeen = true
		}
	}
	return e, ok
}

// scanToSentinel advances until a sentinel frame, or an in-app frame read before any sentinel was seen.
func (c *frameCursor) scanToSentinel() (frameEntry, scanResult) {
	for {
		e, ok := c.next()
		if !ok {
			return frameEntry{}, scanExhausted
		} else if e.component.IsSentinelFrame {
			return e, scanSentinel
		} else if e.frame.InApp && !c.sentinelSeen {
			return e, scanInApp
		}
	}
}

// sentinelRemaining reports if a contributing sentinel is still ahead of the cursor.
func (c *frameCursor) sentinelRemaining() bool {
	return c.pos <= c.lastSentinel
}

// takePrefixRun returns the layer started by start. A prefix frame pulls in the following contiguous prefix frames,
// the first contributing non-prefix frame is left unread.
func (c *frameCursor) takePrefixRun(start frameEntry) []*Component {
	layer := []*Component{start.component}
	if !start.component.IsPrefixFrame {
		return layer
	}
	for {
		e, ok := c.peek()
		if !ok || !e.component.IsPrefixFrame {
			return layer
		}
		c.next()
		layer = append(layer, e.component)
	}
}

// accumulateLayer merges a layer (in read order) with the previous layer values (in event order), producing values
// in event order.
func accumulateLayer(prev, layer []*Component, inverted bool) []*Component {
	values := make([]*Component, 0, len(prev)+len(layer))
	if inverted {
		values = append(values, prev...)
		return append(values, layer...)
	}
	for i := len(layer) - 1; i >= 0; i-- {
		values = append(values, layer[i])
	}
	return append(values, prev...)
}

// Hierarchy builds the grouping variants of a stacktrace. Components and frames must be index aligned and in event
// order (call-stack base first). Each sentinel frame read from the most specific end starts a new layer, up to
// MaxLayers layers, and the main variant is added as app-depth-max. Without any sentinel frame the result of
// FallbackTree is returned instead.
//
// The main variant tree label is recomputed, no other input is modified.
func Hierarchy(main *Variant, components []*Component, frames []Frame, inverted bool) Variants {
	variants, _ := buildHierarchy(main, components, frames, inverted)
	return variants
}

// buildHierarchy implements Hierarchy and also reports if the result came from FallbackTree.
func buildHierarchy(main *Variant, components []*Component, frames []Frame, inverted bool) (Variants, bool) {
	main.TreeLabel = ComputeTreeLabel(main.Components)

	cursor := newFrameCursor(readOrder(components, frames, inverted))
	variants := make(Variants, MaxLayers+1)
	var prev []*Component
	for layers := 0; layers < MaxLayers; {
		entry, result := cursor.scanToSentinel()
		if result == scanExhausted {
			break
		} else if result == scanInApp {
			// sentinels are checked across the whole stack, not per layer
			if !cursor.sentinelRemaining() {
				break
			}
			continue
		}

		prev = accumulateLayer(prev, cursor.takePrefixRun(entry), inverted)
		layers++
		variants.put(VariantDepth(layers), NewVariant(prev))
	}

	if len(variants) == 0 {
		return FallbackTree(main, components, frames, inverted), true
	}
	variants.put(VariantDepthMax, main)
	return variants, false
}
