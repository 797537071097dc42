package formats

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darach/fionn-sub000"
)

func parseJSON(t *testing.T, src string) *fionn.Tape {
	t.Helper()
	tp, err := JSONParse([]byte(src), fionn.DefaultLimits)
	require.NoError(t, err)
	return tp
}

func TestJSONRoundTripObjectsAndArrays(t *testing.T) {
	src := `{"a":1,"b":[2,3],"c":{"d":null,"e":true,"f":false}}`
	tp := parseJSON(t, src)
	out, err := JSONEmit(tp)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
}

func TestJSONRoundTripEscapesAndUnicode(t *testing.T) {
	src := `{"s":"line\nbreak\ttab \"quote\" back\\slash","u":"café","emoji":"😀"}`
	tp := parseJSON(t, src)
	out, err := JSONEmit(tp)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))
}

func TestJSONLoneSurrogateFallsBackToReplacement(t *testing.T) {
	src := `{"s":"\ud800x"}`
	tp := parseJSON(t, src)
	idx, ok := fionn.Resolve(tp, fionn.Path{}.WithField("s"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Contains(t, n.Str, "x")
	assert.True(t, strings.ContainsRune(n.Str, '�'))
}

func TestJSONNumberLexemesPreservedVerbatim(t *testing.T) {
	src := `[0, -0, 1.50, 1e10, -2.5E-3, 123456789012345678901234567890]`
	tp := parseJSON(t, src)
	out, err := JSONEmit(tp)
	require.NoError(t, err)
	assert.Equal(t, `[0,-0,1.50,1e10,-2.5E-3,123456789012345678901234567890]`, string(out))
}

func TestJSONStringLengthsAcrossChunkBoundaries(t *testing.T) {
	// String lengths that land exactly on or just past a 16/32/64-byte
	// SIMD lane boundary must parse identically either way.
	for _, n := range []int{15, 16, 17, 31, 32, 33, 63, 64, 65} {
		n := n
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			s := strings.Repeat("x", n)
			src := `{"v":"` + s + `"}`
			tp := parseJSON(t, src)
			idx, ok := fionn.Resolve(tp, fionn.Path{}.WithField("v"))
			require.True(t, ok)
			val, _ := tp.ExtractValue(idx)
			assert.Equal(t, s, val.Str)
			assert.Len(t, val.Str, n)
		})
	}
}

func TestJSONDeepNestingDepths(t *testing.T) {
	for _, depth := range []int{64, 128, 1024} {
		depth := depth
		t.Run(fmt.Sprintf("depth=%d", depth), func(t *testing.T) {
			src := strings.Repeat("[", depth) + "1" + strings.Repeat("]", depth)
			tp, err := JSONParse([]byte(src), fionn.DefaultLimits)
			require.NoError(t, err)
			idx := tp.Root()
			for i := 0; i < depth; i++ {
				children := tp.Children(idx)
				require.Len(t, children, 1)
				idx = children[0]
			}
			n, _ := tp.ExtractValue(idx)
			assert.Equal(t, "1", n.Str)
		})
	}
}

func TestJSONParseRejectsMalformed(t *testing.T) {
	cases := []string{
		``,
		`{`,
		`{"a":}`,
		`[1,]`,
		`{"a":1,}`,
		`tru`,
		`"unterminated`,
		`{"a":1}trailing`,
	}
	for _, src := range cases {
		_, err := JSONParse([]byte(src), fionn.DefaultLimits)
		assert.Errorf(t, err, "expected parse error for %q", src)
		_, ok := fionn.AsError(err)
		assert.True(t, ok)
	}
}

func TestJSONParseEnforcesByteLimit(t *testing.T) {
	_, err := JSONParse([]byte(`{"a":1}`), fionn.Limits{MaxInputBytes: 3})
	require.Error(t, err)
	fe, ok := fionn.AsError(err)
	require.True(t, ok)
	assert.Equal(t, fionn.CapacityExceeded, fe.Kind)
}

func TestJSONEmitRejectsInvalidNumberLexeme(t *testing.T) {
	b := fionn.NewTapeBuilder("json", fionn.DefaultLimits)
	require.NoError(t, b.Number("not-a-number"))
	tp, err := b.Build(nil)
	require.NoError(t, err)
	_, err = JSONEmit(tp)
	assert.Error(t, err)
}
