package lens

// blamingFramePasses are tried in order, the first pass matching any frame selects the blaming frame.
var blamingFramePasses = []func(c *Component, f *Frame) bool{
	func(c *Component, f *Frame) bool { return c.Contributes && f.InApp },
	func(c *Component, f *Frame) bool { return c.Contributes && !c.IsPrefixFrame },
	func(c *Component, f *Frame) bool { return c.Contributes },
}

// blamingFrame selects the frame expansion is centered on, returning -1 only for an empty stack.
func blamingFrame(components []*Component, frames []Frame, inverted bool) int {
	if len(components) == 0 {
		return -1
	}
	for _, pass := range blamingFramePasses {
		for idx := range readIndexes(len(components), inverted) {
			if pass(components[idx], &frames[idx]) {
				return idx
			}
		}
	}
	if inverted {
		return 0
	}
	return len(components) - 1
}

// fallbackTree expands layers outward from a blaming frame.
type fallbackTree struct {
	components []*Component
	frames     []Frame
	blame      int
	needsInApp bool
}

func (t *fallbackTree) eligible(idx int) bool {
	return t.components[idx].Contributes && (!t.needsInApp || t.frames[idx].InApp)
}

// walk collects eligible components from start in the step direction. Non-prefix frames consume the budget, prefix
// frames are taken without counting so a run is never split. A negative budget is unbounded.
func (t *fallbackTree) walk(start, step, budget int) []*Component {
	var picked []*Component
	for idx := start; idx >= 0 && idx < len(t.components); idx += step {
		if !t.eligible(idx) {
			continue
		}
		if !t.components[idx].IsPrefixFrame {
			if budget == 0 {
				break
			} else if budget > 0 {
				budget--
			}
		}
		picked = append(picked, t.components[idx])
	}
	return picked
}

// layer returns the components within budget frames on each side of the blaming frame, in event order.
func (t *fallbackTree) layer(budget int) []*Component {
	if t.blame < 0 {
		return nil
	}
	before := t.walk(t.blame-1, -1, budget)
	after := t.walk(t.blame+1, 1, budget)

	values := make([]*Component, 0, len(before)+len(after)+1)
	for i := len(before) - 1; i >= 0; i-- {
		values = append(values, before[i])
	}
	if blamed := t.components[t.blame]; blamed.Contributes {
		values = append(values, blamed)
	}
	return append(values, after...)
}

// FallbackTree builds grouping variants for a stacktrace without sentinel frames. A single blaming frame is chosen,
// preferring the in-app frame nearest the crash, and each depth widens the layer around it. Expansion stops early once
// a depth adds no frame, the unbounded layer is always stored as app-depth-max.
//
// The main variant tree label is recomputed so the result matches Hierarchy for the same input.
func FallbackTree(main *Variant, components []*Component, frames []Frame, inverted bool) Variants {
	main.TreeLabel = ComputeTreeLabel(main.Components)

	tree := &fallbackTree{
		components: components,
		frames:     frames,
		blame:      blamingFrame(components, frames, inverted),
	}
	if tree.blame >= 0 {
		tree.needsInApp = frames[tree.blame].InApp
	}

	variants := make(Variants, MaxLayers+1)
	prevLen := -1
	for depth := 1; depth <= MaxLayers; depth++ {
		values := tree.layer(depth - 1)
		if len(values) == prevLen {
			break // no more eligible frames
		}
		prevLen = len(values)
		variants.put(VariantDepth(depth), NewVariant(values))
	}
	variants.put(VariantDepthMax, NewVariant(tree.layer(-1)))
	return variants
}
