package lens

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Output formats supported by WriteResults.
const (
	OutputText    = "text"
	OutputJson    = "json"
	OutputMsgpack = "msgpack"
)

// VariantSummary is the serializable form of one variant.
type VariantSummary struct {
	Name       VariantName `json:"name" msgpack:"n"`
	Components int         `json:"components" msgpack:"c"`
	TreeLabel  []TreeLabel `json:"tree_label" msgpack:"tl"`
}

// GroupingSummary is the serializable form of a GroupingResult.
type GroupingSummary struct {
	EventID  string           `json:"event_id" msgpack:"id"`
	Inverted bool             `json:"inverted,omitempty" msgpack:"i,omitempty"`
	Fallback bool             `json:"fallback,omitempty" msgpack:"f,omitempty"`
	Layers   int              `json:"layers" msgpack:"l"`
	Variants []VariantSummary `json:"variants" msgpack:"v"`
}

// Summary converts the result into its serializable form with variants ordered by depth.
func (r *GroupingResult) Summary() GroupingSummary {
	names := r.Variants.Names()
	summary := GroupingSummary{
		EventID:  r.EventID,
		Inverted: r.Inverted,
		Fallback: r.Fallback,
		Layers:   r.Variants.BoundedLayers(),
		Variants: make([]VariantSummary, len(names)),
	}
	for i, name := range names {
		v := r.Variants[name]
		summary.Variants[i] = VariantSummary{
			Name:       name,
			Components: v.Len(),
			TreeLabel:  v.TreeLabel,
		}
	}
	return summary
}

// RenderResult formats a result as indented text, one line per variant.
func RenderResult(r *GroupingResult) string {
	var sb strings.Builder
	sb.WriteString(r.EventID)
	sb.WriteString(" (")
	if r.Fallback {
		sb.WriteString("fallback")
	} else {
		sb.WriteString("sentinel")
	}
	if r.Inverted {
		sb.WriteString(", inverted")
	}
	sb.WriteString(", ")
	sb.WriteString(strconv.Itoa(r.Variants.BoundedLayers()))
	sb.WriteString(" layers)\n")
	for _, name := range r.Variants.Names() {
		v := r.Variants[name]
		fmt.Fprintf(&sb, "  %-14s %2d  %s\n", string(name)+":", v.Len(), TreeLabelString(v.TreeLabel))
	}
	return sb.String()
}

// WriteResults writes the results to w in the given output format. Text output optionally includes the diff between
// consecutive depths.
func WriteResults(w io.Writer, results []*GroupingResult, format string, showDiff bool) error {
	switch format {
	case OutputJson, OutputMsgpack:
		summaries := make([]GroupingSummary, len(results))
		for i, r := range results {
			summaries[i] = r.Summary()
		}
		if format == OutputMsgpack {
			return msgpack.NewEncoder(w).Encode(summaries)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	case OutputText, "":
		for _, r := range results {
			if _, err := io.WriteString(w, RenderResult(r)); err != nil {
				return err
			}
			if showDiff {
				diff, err := VariantDiff(r.Variants)
				if err != nil {
					return err
				} else if _, err := io.WriteString(w, diff); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
