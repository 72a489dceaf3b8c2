package lens

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxLayers is the maximum number of bounded depth variants produced for one stacktrace.
const MaxLayers = 5

// VariantName identifies one grouping variant of a stacktrace.
type VariantName string

// VariantDepthMax names the unbounded variant, always produced in addition to the bounded layers.
const VariantDepthMax VariantName = "app-depth-max"

// VariantDepth returns the name of the bounded variant at the given 1-based depth.
func VariantDepth(depth int) VariantName {
	return VariantName("app-depth-" + strconv.Itoa(depth))
}

// ErrDuplicateVariant indicates a depth was produced twice, this is a logic bug and never a data problem.
var ErrDuplicateVariant = errors.New("duplicate grouping variant")

// Frame is one entry of an event call stack. Only InApp is consulted for grouping.
type Frame struct {
	// File is the source file path.
	File string `json:"file,omitempty" msgpack:"fi,omitempty"`
	// Line is the line number.
	Line uint32 `json:"line,omitempty" msgpack:"li,omitempty"`
	// Function is the function identifier.
	Function string `json:"function,omitempty" msgpack:"fu,omitempty"`
	// Module is the module or package containing the function.
	Module string `json:"module,omitempty" msgpack:"mo,omitempty"`
	// InApp reports if the frame belongs to application code rather than library or runtime code.
	InApp bool `json:"in_app" msgpack:"ia"`
}

// TreeLabel is the descriptive record of a single frame shown in grouping tree labels.
type TreeLabel struct {
	// Function is the displayed function name.
	Function string `json:"function,omitempty" msgpack:"fu,omitempty"`
	// Module is the displayed module, when the platform has one.
	Module string `json:"module,omitempty" msgpack:"mo,omitempty"`
	// Package is the displayed package or binary.
	Package string `json:"package,omitempty" msgpack:"pa,omitempty"`
	// Datapath locates the label within the event payload.
	Datapath string `json:"datapath,omitempty" msgpack:"dp,omitempty"`
	// IsSentinel is set when the labeled component was a sentinel frame.
	IsSentinel bool `json:"is_sentinel,omitempty" msgpack:"se,omitempty"`
	// IsPrefix is set when the labeled component was a prefix frame.
	IsPrefix bool `json:"is_prefix,omitempty" msgpack:"px,omitempty"`
}

// OptionalTreeLabel holds a TreeLabel that may be absent.
type OptionalTreeLabel struct {
	label   TreeLabel
	present bool
}

// NoTreeLabel is the absent label.
var NoTreeLabel = OptionalTreeLabel{}

// SomeTreeLabel wraps a present label.
func SomeTreeLabel(label TreeLabel) OptionalTreeLabel {
	return OptionalTreeLabel{label: label, present: true}
}

// Get returns the label and whether it is present.
func (o OptionalTreeLabel) Get() (TreeLabel, bool) {
	return o.label, o.present
}

// Component is the grouping view of a Frame, index aligned with the frame it describes.
type Component struct {
	// Contributes reports if the frame participates in grouping.
	Contributes bool
	// IsSentinelFrame marks a frame overriding the in-app heuristics for where grouping starts.
	IsSentinelFrame bool
	// IsPrefixFrame marks a frame always grouped with its immediate chain neighbors.
	IsPrefixFrame bool
	// Label is the per-frame tree label, when upstream provided one.
	Label OptionalTreeLabel
}

// Variant is one candidate grouping of a stacktrace.
type Variant struct {
	// Components lists the grouped components in event order (call-stack base to crashing frame).
	Components []*Component
	// TreeLabel is the display label, most specific frame first.
	TreeLabel []TreeLabel
}

// NewVariant creates a variant over the given components and computes its tree label.
func NewVariant(components []*Component) *Variant {
	return &Variant{
		Components: components,
		TreeLabel:  ComputeTreeLabel(components),
	}
}

// MainVariant builds the ungrouped variant holding every contributing component in event order.
func MainVariant(components []*Component) *Variant {
	values := make([]*Component, 0, len(components))
	for _, c := range components {
		if c.Contributes {
			values = append(values, c)
		}
	}
	return &Variant{Components: values}
}

// Len returns the number of grouped components.
func (v *Variant) Len() int {
	if v == nil {
		return 0
	}
	return len(v.Components)
}

// Variants maps depth names to the produced variants.
type Variants map[VariantName]*Variant

// put stores a variant under its name, panicking if the name is already taken.
func (vs Variants) put(name VariantName, v *Variant) {
	if _, ok := vs[name]; ok {
		panic(fmt.Errorf("%w: %s", ErrDuplicateVariant, name))
	}
	vs[name] = v
}

// BoundedLayers returns the number of depth limited variants.
func (vs Variants) BoundedLayers() int {
	if _, ok := vs[VariantDepthMax]; ok {
		return len(vs) - 1
	}
	return len(vs)
}

// Names returns the variant names ordered by depth with app-depth-max last.
func (vs Variants) Names() []VariantName {
	names := make([]VariantName, 0, len(vs))
	for depth := 1; depth <= MaxLayers; depth++ {
		if _, ok := vs[VariantDepth(depth)]; ok {
			names = append(names, VariantDepth(depth))
		}
	}
	if _, ok := vs[VariantDepthMax]; ok {
		names = append(names, VariantDepthMax)
	}
	return names
}
