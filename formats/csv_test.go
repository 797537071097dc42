package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darach/fionn-sub000"
)

func TestCSVParseBasicRows(t *testing.T) {
	src := "id,name\n1,Alice\n2,Bob\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(1).WithField("name"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "Bob", n.Str)
}

func TestCSVParseShortRowFillsEmptyString(t *testing.T) {
	src := "a,b,c\n1,2\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(0).WithField("c"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "", n.Str)
}

func TestCSVParseEmptyInputYieldsEmptyArray(t *testing.T) {
	tp, err := CSVParse([]byte(""), fionn.DefaultLimits)
	require.NoError(t, err)
	root := tp.NodeAt(tp.Root())
	assert.Equal(t, fionn.KindArrayStart, root.Kind)
	assert.Equal(t, 0, root.Count)
}

func TestCSVParsePreservesNonAlphabeticalHeaderOrder(t *testing.T) {
	src := "name,id\nAlice,1\nBob,2\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)

	rowIdx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(0))
	require.True(t, ok)
	var keys []string
	for _, c := range tp.Children(rowIdx) {
		k, ok := tp.KeyAt(c)
		require.True(t, ok)
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"name", "id"}, keys, "column order must match the header, not be alphabetized")

	out, err := CSVEmit(tp)
	require.NoError(t, err)
	assert.Equal(t, "name,id\nAlice,1\nBob,2\n", string(out))
}

func TestCSVEmitRoundTrip(t *testing.T) {
	src := "id,name\n1,Alice\n2,Bob\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	out, err := CSVEmit(tp)
	require.NoError(t, err)

	reparsed, err := CSVParse(out, fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(reparsed, fionn.Path{}.WithIndex(1).WithField("name"))
	require.True(t, ok)
	n, _ := reparsed.ExtractValue(idx)
	assert.Equal(t, "Bob", n.Str)
}

func TestCSVEmitRejectsNonObjectRoot(t *testing.T) {
	b := fionn.NewTapeBuilder("csv", fionn.DefaultLimits)
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.CloseObject())
	tp, err := b.Build(nil)
	require.NoError(t, err)

	_, err = CSVEmit(tp)
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.NonTabular, fe.Kind)
}

func TestCSVEmitRejectsHeterogeneousRows(t *testing.T) {
	b := fionn.NewTapeBuilder("csv", fionn.DefaultLimits)
	require.NoError(t, b.OpenArray())
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.Key("a"))
	require.NoError(t, b.Number("1"))
	require.NoError(t, b.CloseObject())
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.Key("b"))
	require.NoError(t, b.Number("2"))
	require.NoError(t, b.CloseObject())
	require.NoError(t, b.CloseArray())
	tp, err := b.Build(nil)
	require.NoError(t, err)

	_, err = CSVEmit(tp)
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.NonTabular, fe.Kind)
}

func TestCSVParseDetectsSemicolonDelimiter(t *testing.T) {
	src := "id;name\n1;Alice\n2;Bob\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(1).WithField("name"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "Bob", n.Str)
}

func TestCSVParseDetectsTabDelimiter(t *testing.T) {
	src := "id\tname\n1\tAlice\n2\tBob\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(0).WithField("name"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "Alice", n.Str)
}

func TestCSVParseHeaderlessInputSynthesizesColumnKeys(t *testing.T) {
	src := "1,2,3\n4,5,6\n7,8,9\n"
	tp, err := CSVParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	root := tp.NodeAt(tp.Root())
	require.Equal(t, fionn.KindArrayStart, root.Kind)
	assert.Equal(t, 3, root.Count, "all three rows are data when no header row is detected")

	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithIndex(0).WithField("col_1"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "1", n.Str)

	idx, ok = fionn.Resolve(tp, fionn.Path{}.WithIndex(2).WithField("col_3"))
	require.True(t, ok)
	n, _ = tp.ExtractValue(idx)
	assert.Equal(t, "9", n.Str)
}

func TestCSVEmitRejectsNonScalarCell(t *testing.T) {
	b := fionn.NewTapeBuilder("csv", fionn.DefaultLimits)
	require.NoError(t, b.OpenArray())
	require.NoError(t, b.OpenObject())
	require.NoError(t, b.Key("a"))
	require.NoError(t, b.OpenArray())
	require.NoError(t, b.CloseArray())
	require.NoError(t, b.CloseObject())
	require.NoError(t, b.CloseArray())
	tp, err := b.Build(nil)
	require.NoError(t, err)

	_, err = CSVEmit(tp)
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.NonTabular, fe.Kind)
}
