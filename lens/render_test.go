package lens

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func renderTestResults() []*GroupingResult {
	return []*GroupingResult{
		GroupEvent(sampleEvent("s", "f0", "f1", "f2:sentinel", "f3", "f4"), false),
		GroupEvent(sampleEvent("f", "f0", "f1:app", "f2"), true),
	}
}

func TestGroupingResultSummary(t *testing.T) {
	t.Parallel()

	summary := renderTestResults()[0].Summary()
	assert.Equal(t, "s", summary.EventID)
	assert.False(t, summary.Fallback)
	assert.Equal(t, 1, summary.Layers)
	require.Len(t, summary.Variants, 2)
	assert.Equal(t, VariantDepth(1), summary.Variants[0].Name)
	assert.Equal(t, 1, summary.Variants[0].Components)
	assert.Equal(t, []TreeLabel{{Function: "f2", IsSentinel: true}}, summary.Variants[0].TreeLabel)
	assert.Equal(t, VariantDepthMax, summary.Variants[1].Name)
	assert.Equal(t, 5, summary.Variants[1].Components)
}

func TestRenderResult(t *testing.T) {
	t.Parallel()

	results := renderTestResults()
	assert.Equal(t, "s (sentinel, 1 layers)\n"+
		"  app-depth-1:    1  f2 [sentinel]\n"+
		"  app-depth-max:  5  f4 | f3 | f2 [sentinel] | f1 | f0\n", RenderResult(results[0]))
	assert.Equal(t, "f (fallback, inverted, 1 layers)\n"+
		"  app-depth-1:    1  f1\n"+
		"  app-depth-max:  1  f1\n", RenderResult(results[1]))
}

func TestWriteResults(t *testing.T) {
	t.Parallel()

	results := renderTestResults()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteResults(&buf, results, OutputText, false))
		assert.Equal(t, RenderResult(results[0])+RenderResult(results[1]), buf.String())
	})

	t.Run("text_diff", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteResults(&buf, results, OutputText, true))
		assert.Contains(t, buf.String(), "--- app-depth-1\n+++ app-depth-max\n")
		assert.Contains(t, buf.String(), "+f4\n")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteResults(&buf, results, OutputJson, false))

		var summaries []GroupingSummary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &summaries))
		require.Len(t, summaries, 2)
		assert.Equal(t, results[1].Summary(), summaries[1])
	})

	t.Run("msgpack", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteResults(&buf, results, OutputMsgpack, false))

		var summaries []GroupingSummary
		require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &summaries))
		require.Len(t, summaries, 2)
		assert.Equal(t, results[0].Summary(), summaries[0])
	})

	t.Run("unknown", func(t *testing.T) {
		require.Error(t, WriteResults(&bytes.Buffer{}, results, "yaml", false))
	})
}
