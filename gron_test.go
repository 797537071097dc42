package fionn

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// xyTape builds a small fixture tape for {"x": {"y": 1}}.
func xyTape(t *testing.T) *Tape {
	return buildTape(t, []Node{
		{Kind: KindObjectStart, Count: 1},
		keyNode("x"),
		{Kind: KindObjectStart, Count: 1},
		keyNode("y"),
		numberNode("1"),
		{Kind: KindObjectEnd},
		{Kind: KindObjectEnd},
	})
}

func TestGronScenario2(t *testing.T) {
	lines, err := Gron(xyTape(t), GronOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"json = {}",
		"json.x = {}",
		"json.x.y = 1",
	}, lines)
}

func TestGronCompactPathsValuesOnly(t *testing.T) {
	tp := xyTape(t)

	compact, err := Gron(tp, GronOptions{Compact: true})
	require.NoError(t, err)
	assert.Equal(t, "json.x.y=1", compact[2])

	pathsOnly, err := Gron(tp, GronOptions{PathsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "json.x.y", pathsOnly[2])

	valuesOnly, err := Gron(tp, GronOptions{ValuesOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "1", valuesOnly[2])
}

func TestGronArrayIndicesAndBareword(t *testing.T) {
	tp := buildTape(t, []Node{
		{Kind: KindObjectStart, Count: 1},
		keyNode("weird name"),
		{Kind: KindArrayStart, Count: 2},
		stringNode("a"),
		nullNode(),
		{Kind: KindArrayEnd},
		{Kind: KindObjectEnd},
	})
	lines, err := Gron(tp, GronOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`json = {}`,
		`json["weird name"] = []`,
		`json["weird name"][0] = "a"`,
		`json["weird name"][1] = null`,
	}, lines)
}

func TestGronStreamMatchesGron(t *testing.T) {
	tp := xyTape(t)
	var sb strings.Builder
	require.NoError(t, GronStream(tp, GronOptions{}, &sb))
	lines, err := Gron(tp, GronOptions{})
	require.NoError(t, err)
	assert.Equal(t, strings.Join(lines, "\n")+"\n", sb.String())
}

func TestUngronRoundTrip(t *testing.T) {
	tp := xyTape(t)
	lines, err := Gron(tp, GronOptions{})
	require.NoError(t, err)

	got, err := Ungron(lines, GronOptions{})
	require.NoError(t, err)

	assert.Equal(t, valueAt(tp, tp.Root()), valueAt(got, got.Root()))
}

func TestUngronHealsMissingContainers(t *testing.T) {
	// Children line appears before its parent's own container-introducing
	// line; the missing container must be healed on demand.
	lines := []string{
		"json.a.b = 1",
		"json.a = {}",
	}
	got, err := Ungron(lines, GronOptions{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": float64(1)}}, valueAt(got, got.Root()))
}

func TestUngronArrayHealing(t *testing.T) {
	lines := []string{
		"json[2] = 3",
		"json[0] = 1",
		"json[1] = 2",
	}
	got, err := Ungron(lines, GronOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, valueAt(got, got.Root()))
}

func TestUngronMissingEqualsIsConflict(t *testing.T) {
	_, err := Ungron([]string{"json.a 1"}, GronOptions{})
	require.Error(t, err)
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, UngronConflict, fe.Kind)
}
