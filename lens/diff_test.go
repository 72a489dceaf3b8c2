package lens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffVariants(t *testing.T) {
	t.Parallel()

	components, _ := makeStack("f0", "f1", "f2")
	shallow := NewVariant(components[2:])
	deep := NewVariant(components)

	diff, err := DiffVariants(VariantDepth(1), shallow, VariantDepth(2), deep)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(diff, "--- app-depth-1\n+++ app-depth-2\n"))
	assert.Contains(t, diff, " f2\n")
	assert.Contains(t, diff, "+f1\n")
	assert.Contains(t, diff, "+f0\n")
	assert.NotContains(t, diff, "-f")

	diff, err = DiffVariants(VariantDepth(1), shallow, VariantDepth(2), NewVariant(components[2:]))
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestVariantDiff(t *testing.T) {
	t.Parallel()

	t.Run("each_depth", func(t *testing.T) {
		components, frames := makeStack("f0:sentinel", "f1", "f2:sentinel", "f3:sentinel")
		variants := Hierarchy(MainVariant(components), components, frames, false)

		diff, err := VariantDiff(variants)
		require.NoError(t, err)
		assert.Contains(t, diff, "--- app-depth-1\n+++ app-depth-2\n")
		assert.Contains(t, diff, "--- app-depth-2\n+++ app-depth-3\n")
		assert.Contains(t, diff, "--- app-depth-3\n+++ app-depth-max\n")
		assert.Equal(t, 3, strings.Count(diff, "+++ "))
	})

	t.Run("identical_depths_skipped", func(t *testing.T) {
		components, frames := makeStack("f0", "f1:app", "f2")
		variants := FallbackTree(MainVariant(components), components, frames, false)

		diff, err := VariantDiff(variants)
		require.NoError(t, err)
		assert.Empty(t, diff)
	})
}
