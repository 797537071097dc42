package fionn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeScenario5(t *testing.T) {
	base := map[string]any{"a": map[string]any{"b": float64(1), "c": float64(2)}}
	overlay := map[string]any{"a": map[string]any{"b": nil, "d": float64(3)}}
	got := Merge(base, overlay)
	assert.Equal(t, map[string]any{"a": map[string]any{"c": float64(2), "d": float64(3)}}, got)
}

func TestMergeIdentityWithEmptyObject(t *testing.T) {
	a := map[string]any{"x": float64(1), "y": []any{float64(1), float64(2)}}
	assert.Equal(t, a, Merge(a, map[string]any{}))
}

func TestMergeDeletesWithNull(t *testing.T) {
	a := map[string]any{"k": float64(1), "keep": float64(2)}
	got := Merge(a, map[string]any{"k": nil})
	assert.Equal(t, map[string]any{"keep": float64(2)}, got)
}

func TestMergeNonObjectOverlayReplaces(t *testing.T) {
	assert.Equal(t, "new", Merge(map[string]any{"a": float64(1)}, "new"))
	assert.Equal(t, []any{float64(1), float64(2)}, Merge(map[string]any{"a": float64(1)}, []any{float64(1), float64(2)}))
}

func TestDeepMergeConcatenatesArrays(t *testing.T) {
	base := map[string]any{"a": []any{float64(1), float64(2)}}
	overlay := map[string]any{"a": []any{float64(3)}}
	got := DeepMerge(base, overlay)
	assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2), float64(3)}}, got)
}

func TestMergeTapesPreservesKeyOrderAndNumberLexeme(t *testing.T) {
	const bigLexeme = "123456789012345678901234567890123456789012"
	b := NewTapeBuilder("merge", DefaultLimits)
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.Key("z"))
	require.NoError(t, b.Number("1"))
	require.NoError(t, b.Key("a"))
	require.NoError(t, b.Number("2"))
	require.NoError(t, b.Key("big"))
	require.NoError(t, b.Number(bigLexeme))
	require.NoError(t, b.CloseObject())
	base, err := b.Build(nil)
	require.NoError(t, err)

	ob := NewTapeBuilder("merge", DefaultLimits)
	require.NoError(t, ob.OpenObject())
	require.NoError(t, ob.Key("a"))
	require.NoError(t, ob.Number("20"))
	require.NoError(t, ob.CloseObject())
	overlay, err := ob.Build(nil)
	require.NoError(t, err)

	merged, err := MergeTapes(base, overlay, false)
	require.NoError(t, err)

	var keys []string
	for _, c := range merged.Children(merged.Root()) {
		k, ok := merged.KeyAt(c)
		require.True(t, ok)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "big"}, keys, "base key order must survive, overlay-touched keys stay in place")

	bigIdx, ok := Resolve(merged, Path{}.WithField("big"))
	require.True(t, ok)
	bigNode, _ := merged.ExtractValue(bigIdx)
	assert.Equal(t, bigLexeme, bigNode.Str, "untouched number lexeme must survive verbatim")

	aIdx, ok := Resolve(merged, Path{}.WithField("a"))
	require.True(t, ok)
	aNode, _ := merged.ExtractValue(aIdx)
	assert.Equal(t, "20", aNode.Str)
}
