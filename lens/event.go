package lens

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// EventFrame is a stack frame of an event document together with the grouping flags computed for it upstream.
type EventFrame struct {
	Frame

	// Contributes reports if the frame participates in grouping, frames contribute unless set to false.
	Contributes *bool `json:"contributes,omitempty" msgpack:"co,omitempty"`
	// IsSentinelFrame marks a sentinel frame.
	IsSentinelFrame bool `json:"is_sentinel_frame,omitempty" msgpack:"sf,omitempty"`
	// IsPrefixFrame marks a prefix frame.
	IsPrefixFrame bool `json:"is_prefix_frame,omitempty" msgpack:"pf,omitempty"`
	// TreeLabel is the per-frame label, absent when nil.
	TreeLabel *TreeLabel `json:"tree_label,omitempty" msgpack:"tl,omitempty"`
}

// Event is a single error event stacktrace ready for grouping.
type Event struct {
	// ID identifies the event in output and reports.
	ID string `json:"id" msgpack:"id"`
	// Platform is the event platform, informational only.
	Platform string `json:"platform,omitempty" msgpack:"pl,omitempty"`
	// InvertedHierarchy starts grouping at the call-stack base instead of the crashing frame.
	InvertedHierarchy bool `json:"inverted_hierarchy,omitempty" msgpack:"ih,omitempty"`
	// Frames lists the stack from call-stack base to crashing frame.
	Frames []EventFrame `json:"frames" msgpack:"fr"`
}

// Components returns the index aligned components and frames of the event.
func (e *Event) Components() ([]*Component, []Frame) {
	components := make([]*Component, len(e.Frames))
	frames := make([]Frame, len(e.Frames))
	for i, ef := range e.Frames {
		frames[i] = ef.Frame
		c := &Component{
			Contributes:     ef.Contributes == nil || *ef.Contributes,
			IsSentinelFrame: ef.IsSentinelFrame,
			IsPrefixFrame:   ef.IsPrefixFrame,
		}
		if ef.TreeLabel != nil {
			c.Label = SomeTreeLabel(*ef.TreeLabel)
		}
		components[i] = c
	}
	return components, frames
}

// groupingKeyFrame holds the inputs of a single frame that grouping reads.
type groupingKeyFrame struct {
	InApp       bool       `msgpack:"a"`
	Contributes bool       `msgpack:"c"`
	Sentinel    bool       `msgpack:"s"`
	Prefix      bool       `msgpack:"p"`
	Label       *TreeLabel `msgpack:"l"`
}

// stackKey returns a compact key of everything grouping depends on. Frame identity fields are left out, the
// variants only expose components and tree labels.
func (e *Event) stackKey(inverted bool) string {
	components, frames := e.Components()
	keyFrames := make([]groupingKeyFrame, len(components))
	for i, c := range components {
		keyFrames[i] = groupingKeyFrame{
			InApp:       frames[i].InApp,
			Contributes: c.Contributes,
			Sentinel:    c.IsSentinelFrame,
			Prefix:      c.IsPrefixFrame,
		}
		if label, ok := c.Label.Get(); ok {
			keyFrames[i].Label = &label
		}
	}
	return anyKey(struct {
		Inverted bool               `msgpack:"i"`
		Frames   []groupingKeyFrame `msgpack:"f"`
	}{inverted, keyFrames})
}

const (
	formatJson       = ".json"
	formatMsgpack    = ".msgpack"
	formatMsgpackAlt = ".mpk"
)

// ErrUnsupportedFormat is returned for event files of an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported event file format")

// splitEventExt returns the serialization and compression extensions of an event file name.
func splitEventExt(name string) (string, string) {
	base, compression := splitCompressionExt(name)
	return strings.ToLower(filepath.Ext(base)), compression
}

// IsEventFile reports if the file name has a supported event extension.
func IsEventFile(name string) bool {
	ext, _ := splitEventExt(name)
	return ext == formatJson || ext == formatMsgpack || ext == formatMsgpackAlt
}

// DecodeEvents decodes a single event or a list of events. The format is selected from the name extension
// (.json, .msgpack or .mpk), optionally followed by .zst or .sz compression.
func DecodeEvents(name string, data []byte) ([]*Event, error) {
	ext, compression := splitEventExt(name)
	data, err := decompressDocument(compression, data)
	if err != nil {
		return nil, err
	}

	var unmarshal func([]byte, any) error
	switch ext {
	case formatJson:
		unmarshal = json.Unmarshal
	case formatMsgpack, formatMsgpackAlt:
		unmarshal = msgpack.Unmarshal
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	var events []*Event
	if isListDocument(ext, data) {
		if err := unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decode event list failed: %w", err)
		}
	} else {
		var event Event
		if err := unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("decode event failed: %w", err)
		}
		events = []*Event{&event}
	}

	base := strings.SplitN(filepath.Base(name), ".", 2)[0]
	for i, event := range events {
		if event == nil {
			return nil, fmt.Errorf("null event at index %d", i)
		} else if event.ID == "" {
			if len(events) == 1 {
				event.ID = base
			} else {
				event.ID = base + "#" + strconv.Itoa(i)
			}
		}
	}
	return events, nil
}

// isListDocument inspects the leading bytes to determine if the document is an array.
func isListDocument(ext string, data []byte) bool {
	if ext == formatJson {
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		return len(trimmed) > 0 && trimmed[0] == '['
	} else if len(data) == 0 {
		return false
	}
	b := data[0]
	return (b >= 0x90 && b <= 0x9f) || b == 0xdc || b == 0xdd // fixarray, array16, array32
}

// EncodeEvents encodes events in the format selected by the name extension, the inverse of DecodeEvents.
func EncodeEvents(name string, events []*Event) ([]byte, error) {
	ext, compression := splitEventExt(name)
	var data []byte
	var err error
	switch ext {
	case formatJson:
		data, err = json.Marshal(events)
	case formatMsgpack, formatMsgpackAlt:
		data, err = msgpack.Marshal(events)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("encode events failed: %w", err)
	}
	return compressDocument(compression, data)
}
