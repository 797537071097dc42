package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darach/fionn-sub000"
)

func TestTOONParseBasicRows(t *testing.T) {
	src := "[2]{id,name,active}:\n  1,Alice,true\n  2,Bob,false\n"
	tp, err := TOONParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)

	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(1).WithField("name"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "Bob", n.Str)

	activeIdx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(0).WithField("active"))
	require.True(t, ok)
	activeNode, _ := tp.ExtractValue(activeIdx)
	assert.Equal(t, fionn.KindBool, activeNode.Kind)
	assert.True(t, activeNode.Bool)
}

func TestTOONParseQuotedCellWithComma(t *testing.T) {
	src := "[1]{id,note}:\n  1,\"a, b\"\n"
	tp, err := TOONParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(0).WithField("note"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "a, b", n.Str)
}

func TestTOONParseRejectsRowCountMismatch(t *testing.T) {
	src := "[2]{id}:\n  1\n"
	_, err := TOONParse([]byte(src), fionn.DefaultLimits)
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.Malformed, fe.Kind)
}

func TestTOONParseRejectsBadHeader(t *testing.T) {
	_, err := TOONParse([]byte("not a header\n"), fionn.DefaultLimits)
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.Malformed, fe.Kind)
}

func TestTOONEmitRoundTrip(t *testing.T) {
	src := "[2]{id,name,active}:\n  1,Alice,true\n  2,Bob,false\n"
	tp, err := TOONParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	out, err := TOONEmit(tp)
	require.NoError(t, err)

	reparsed, err := TOONParse(out, fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(reparsed, fionn.Path{}.WithIndex(1).WithField("name"))
	require.True(t, ok)
	n, _ := reparsed.ExtractValue(idx)
	assert.Equal(t, "Bob", n.Str)
}

func TestTOONEmitEmptyArray(t *testing.T) {
	b := fionn.NewTapeBuilder("toon", fionn.DefaultLimits)
	require.NoError(t, b.OpenArray())
	require.NoError(t, b.CloseArray())
	tp, err := b.Build(nil)
	require.NoError(t, err)
	out, err := TOONEmit(tp)
	require.NoError(t, err)
	assert.Equal(t, "[0]{}:\n", string(out))
}

func TestTOONEmitRejectsNonArrayRoot(t *testing.T) {
	b := fionn.NewTapeBuilder("toon", fionn.DefaultLimits)
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.CloseObject())
	tp, err := b.Build(nil)
	require.NoError(t, err)
	_, err = TOONEmit(tp)
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.NonTabular, fe.Kind)
}
