package fionn

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tapeFromValue(t *testing.T, v any) *Tape {
	t.Helper()
	tp, err := NewTapeFromNodes(nodesFromValue(v))
	require.NoError(t, err)
	return tp
}

func TestDiffScenario3(t *testing.T) {
	a := tapeFromValue(t, map[string]any{"a": float64(1)})
	b := tapeFromValue(t, map[string]any{"a": float64(1), "b": float64(2)})
	patch := Diff(a, b)
	require.Len(t, patch, 1)
	assert.Equal(t, "add", patch[0].Op)
	assert.Equal(t, "/b", patch[0].Path)
	assert.Equal(t, float64(2), patch[0].Value)
}

func TestSelfDiffIsEmpty(t *testing.T) {
	a := tapeFromValue(t, map[string]any{
		"a": float64(1),
		"b": []any{float64(1), float64(2), map[string]any{"c": "x"}},
	})
	assert.Empty(t, Diff(a, a))
}

func TestDiffApplyRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		a, b any
	}{
		{"add field", map[string]any{"a": float64(1)}, map[string]any{"a": float64(1), "b": float64(2)}},
		{"remove field", map[string]any{"a": float64(1), "b": float64(2)}, map[string]any{"a": float64(1)}},
		{"replace scalar", map[string]any{"a": float64(1)}, map[string]any{"a": float64(2)}},
		{"array reorder", []any{float64(1), float64(2), float64(3)}, []any{float64(3), float64(1), float64(2)}},
		{"array grow", []any{float64(1)}, []any{float64(1), float64(2), float64(3)}},
		{"array shrink", []any{float64(1), float64(2), float64(3)}, []any{float64(2)}},
		{"nested replace", map[string]any{"a": map[string]any{"b": float64(1), "c": float64(2)}},
			map[string]any{"a": map[string]any{"b": nil, "d": float64(3)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ta := tapeFromValue(t, tc.a)
			tb := tapeFromValue(t, tc.b)
			patch := Diff(ta, tb)
			got, err := Apply(tc.a, patch)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.b, got); diff != "" {
				t.Fatalf("apply(a, diff(a,b)) != b (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffFloatTolerance(t *testing.T) {
	a := tapeFromValue(t, map[string]any{"x": float64(1)})
	b := tapeFromValue(t, map[string]any{"x": 1.00000000000001}) // within 1e-14 relative tolerance
	assert.Empty(t, Diff(a, b))
}

func TestDiffDetectsMove(t *testing.T) {
	a := tapeFromValue(t, []any{map[string]any{"id": "x"}, map[string]any{"id": "y"}})
	b := tapeFromValue(t, []any{map[string]any{"id": "y"}, map[string]any{"id": "x"}})
	patch := Diff(a, b)
	require.Len(t, patch, 1)
	assert.Equal(t, "move", patch[0].Op)
}

func TestApplyScenario4(t *testing.T) {
	got, err := Apply(map[string]any{"a": float64(1)}, Patch{{Op: "replace", Path: "/a", Value: float64(2)}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(2)}, got)
}

func TestApplyTestOp(t *testing.T) {
	doc := map[string]any{"a": float64(1)}
	_, err := Apply(doc, Patch{{Op: "test", Path: "/a", Value: float64(2)}})
	require.Error(t, err)
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, TestFailed, fe.Kind)

	got, err := Apply(doc, Patch{{Op: "test", Path: "/a", Value: float64(1)}, {Op: "replace", Path: "/a", Value: float64(9)}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(9)}, got)
}

func TestApplyFailureDoesNotMutateOriginal(t *testing.T) {
	doc := map[string]any{"a": float64(1)}
	_, err := Apply(doc, Patch{{Op: "remove", Path: "/missing"}})
	require.Error(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, doc)
}

func TestApplyMoveAndCopy(t *testing.T) {
	doc := map[string]any{"a": float64(1)}
	got, err := Apply(doc, Patch{{Op: "copy", From: "/a", Path: "/b"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(1)}, got)

	got, err = Apply(doc, Patch{{Op: "move", From: "/a", Path: "/b"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": float64(1)}, got)
}

func TestApplyToTapePreservesKeyOrderAndNumberLexeme(t *testing.T) {
	const bigLexeme = "123456789012345678901234567890123456789012"
	b := NewTapeBuilder("patch", DefaultLimits)
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.Key("z"))
	require.NoError(t, b.Number("1"))
	require.NoError(t, b.Key("a"))
	require.NoError(t, b.Number("2"))
	require.NoError(t, b.Key("big"))
	require.NoError(t, b.Number(bigLexeme))
	require.NoError(t, b.Key("m"))
	require.NoError(t, b.Number("3"))
	require.NoError(t, b.CloseObject())
	tp, err := b.Build(nil)
	require.NoError(t, err)

	out, err := ApplyToTape(tp, Patch{{Op: "replace", Path: "/a", Value: float64(9)}})
	require.NoError(t, err)

	var keys []string
	for _, c := range out.Children(out.Root()) {
		k, ok := out.KeyAt(c)
		require.True(t, ok)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "big", "m"}, keys)

	bigIdx, ok := Resolve(out, Path{}.WithField("big"))
	require.True(t, ok)
	bigNode, _ := out.ExtractValue(bigIdx)
	assert.Equal(t, bigLexeme, bigNode.Str, "untouched number lexeme must survive verbatim")

	aIdx, ok := Resolve(out, Path{}.WithField("a"))
	require.True(t, ok)
	aNode, _ := out.ExtractValue(aIdx)
	assert.Equal(t, "9", aNode.Str)
}
