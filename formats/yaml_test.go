package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darach/fionn-sub000"
)

func TestYAMLParseBasicMapping(t *testing.T) {
	src := "a: 1\nb:\n  - 2\n  - 3\n"
	tp, err := YAMLParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithField("b").WithIndex(1))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "3", n.Str)
}

func TestYAMLParseMergeKey(t *testing.T) {
	src := "defaults: &defaults\n  timeout: 30\nserver:\n  <<: *defaults\n  host: localhost\n"
	tp, err := YAMLParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithField("server").WithField("timeout"))
	require.True(t, ok, "merge-key field must be resolvable via anchor expansion")
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "30", n.Str)
}

func TestYAMLParseNonStringKeyCoerced(t *testing.T) {
	src := "1: one\n2: two\n"
	tp, err := YAMLParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithField("1"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "one", n.Str)
}

func TestYAMLParseEmptyDocument(t *testing.T) {
	tp, err := YAMLParse([]byte(""), fionn.DefaultLimits)
	require.NoError(t, err)
	assert.Equal(t, 0, tp.Len())
}

func TestYAMLEmitRoundTripsScalarsDeterministically(t *testing.T) {
	b := fionn.NewTapeBuilder("yaml", fionn.DefaultLimits)
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.Key("name"))
	require.NoError(t, b.String("Alice"))
	require.NoError(t, b.Key("age"))
	require.NoError(t, b.Number("30"))
	require.NoError(t, b.CloseObject())
	tp, err := b.Build(nil)
	require.NoError(t, err)

	out, err := YAMLEmit(tp)
	require.NoError(t, err)

	reparsed, err := YAMLParse(out, fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(reparsed, fionn.Path{}.WithField("name"))
	require.True(t, ok)
	n, _ := reparsed.ExtractValue(idx)
	assert.Equal(t, "Alice", n.Str)
}

func TestYAMLParseKeyOrderPreserved(t *testing.T) {
	src := "z: 1\na: 2\nm: 3\n"
	tp, err := YAMLParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)

	var keys []string
	for _, c := range tp.Children(tp.Root()) {
		k, ok := tp.KeyAt(c)
		require.True(t, ok)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys, "mapping key order must match source order, not be alphabetized")
}

func TestYAMLParseRejectsMalformed(t *testing.T) {
	_, err := YAMLParse([]byte("a: [1, 2\n"), fionn.DefaultLimits)
	assert.Error(t, err)
	fe, ok := fionn.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, fionn.Malformed, fe.Kind)
}
