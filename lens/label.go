package lens

import (
	"slices"
	"strings"
)

// ComputeTreeLabel builds the display label of the given components. Components are expected in event order, the
// returned labels are reversed so the frame closest to the crash is shown first.
func ComputeTreeLabel(components []*Component) []TreeLabel {
	labels := make([]TreeLabel, 0, len(components))
	for _, c := range components {
		if !c.Contributes {
			continue
		}
		label, ok := c.Label.Get()
		if !ok {
			continue
		}
		if c.IsSentinelFrame {
			label.IsSentinel = true
		}
		if c.IsPrefixFrame {
			label.IsPrefix = true
		}
		labels = append(labels, label)
	}
	slices.Reverse(labels)
	return labels
}

// String renders the label as a single display token.
func (l TreeLabel) String() string {
	var sb strings.Builder
	if l.Package != "" {
		sb.WriteString(l.Package)
		sb.WriteString("::")
	} else if l.Module != "" {
		sb.WriteString(l.Module)
		sb.WriteRune('.')
	}
	if l.Function != "" {
		sb.WriteString(l.Function)
	} else {
		sb.WriteString("<unknown>")
	}
	if l.IsSentinel {
		sb.WriteString(" [sentinel]")
	}
	if l.IsPrefix {
		sb.WriteString(" [prefix]")
	}
	return sb.String()
}

// TreeLabelString joins a tree label for display, most specific frame first.
func TreeLabelString(labels []TreeLabel) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.String()
	}
	return strings.Join(parts, " | ")
}
