package lens

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportTestResults() []*GroupingResult {
	return []*GroupingResult{
		GroupEvent(sampleEvent("b", "f0:sentinel", "f1", "f2:sentinel"), false),
		GroupEvent(sampleEvent("a", "f0", "f1:app", "f2"), false),
		GroupEvent(sampleEvent("c", "f0", "f1", "f2"), true),
	}
}

func TestBuildBatchMetrics(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(-time.Second)
	metrics := BuildBatchMetrics(start, reportTestResults(), 4, 2)

	assert.Equal(t, start, metrics.GeneratedAt)
	assert.GreaterOrEqual(t, metrics.RunDuration, int64(1000))
	assert.Equal(t, 3, metrics.EventCount)
	assert.Equal(t, 1, metrics.SentinelCount)
	assert.Equal(t, 2, metrics.FallbackCount)
	assert.Equal(t, 1, metrics.InvertedCount)
	assert.Equal(t, uint64(4), metrics.CacheHits)
	assert.Equal(t, uint64(2), metrics.CacheMisses)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, metrics.LayerHistogram)
	assert.Equal(t, map[VariantName]int{
		VariantDepth(1): 3,
		VariantDepth(2): 2,
		VariantDepth(3): 1,
		VariantDepthMax: 3,
	}, metrics.VariantCounts)

	require.Len(t, metrics.Events, 3)
	assert.Equal(t, EventMetrics{
		EventID:       "a",
		Layers:        1,
		Fallback:      true,
		MaxComponents: 1,
		TreeLabel:     "f1",
	}, metrics.Events[0])
	assert.Equal(t, "b", metrics.Events[1].EventID)
	assert.Equal(t, "f2 [sentinel] | f1 | f0 [sentinel]", metrics.Events[1].TreeLabel)
	assert.True(t, metrics.Events[2].Inverted)
}

func TestReportMapWriteToFile(t *testing.T) {
	t.Parallel()

	metrics := BuildBatchMetrics(time.Now(), reportTestResults(), 0, 3)
	reportMap, err := BuildReportMap(metrics)
	require.NoError(t, err)
	reportMap["custom"] = "extension"

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, reportMap.WriteToFile(path))
	require.NoError(t, ReportMap{}.WriteToFile("")) // no path is a no-op

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded BatchMetrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, metrics.EventCount, decoded.EventCount)
	assert.Equal(t, metrics.LayerHistogram, decoded.LayerHistogram)
	assert.Equal(t, metrics.VariantCounts, decoded.VariantCounts)
	assert.Equal(t, metrics.Events, decoded.Events)
	assert.Contains(t, string(data), `"custom": "extension"`)
}

func TestRenderBatchCharts(t *testing.T) {
	if testing.Short() {
		t.Skip("skip in short mode")
	}
	t.Parallel()

	t.Run("from_json", func(t *testing.T) {
		png, err := RenderBatchChartsFromJson(BuildBatchMetrics(time.Now(), reportTestResults(), 1, 2))
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), png[:4])
	})

	t.Run("no_events", func(t *testing.T) {
		_, err := RenderBatchChartsFromJson(BuildBatchMetrics(time.Now(), nil, 0, 0))
		require.NoError(t, err)
	})

	t.Run("write_svg", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.svg")
		require.NoError(t, writeBatchCharts(path, BuildBatchMetrics(time.Now(), reportTestResults(), 0, 0)))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "<svg")
	})

	t.Run("unknown_type", func(t *testing.T) {
		require.Error(t, writeBatchCharts(filepath.Join(t.TempDir(), "report.gif"), BatchMetrics{}))
	})
}

func TestAxisUnitForMax(t *testing.T) {
	t.Parallel()

	tests := []struct {
		val      int
		expected float64
	}{
		{0, 1},
		{10, 2},
		{50, 10},
		{100, 20},
		{500, 100},
		{1000, 200},
		{5000, 1000},
		{10000, 2000},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, axisUnitForMax(tt.val), 0)
	}
}
