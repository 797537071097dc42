package fionn

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathStringRendering(t *testing.T) {
	p := Path{}.WithField("a").WithIndex(0).WithField("weird-name")
	assert.Equal(t, `.a[0]["weird-name"]`, p.String())
}

func TestPathPointerRendering(t *testing.T) {
	p := Path{}.WithField("a").WithIndex(0).WithField("x/y~z")
	assert.Equal(t, "/a/0/x~1y~0z", p.Pointer())
}

func TestParsePathBaselineAndSIMDAgree(t *testing.T) {
	cases := []string{
		"",
		"a",
		".a",
		".a.b.c",
		"a[0]",
		".a[0].b[12]",
		`["weird name"]`,
		`.a["b.c"][3]`,
	}
	// Pad every case out past every SIMD threshold (up to 200 bytes) so
	// both the baseline and SIMD parsers also run on long inputs: they
	// must agree on every one.
	for _, base := range cases {
		for _, width := range []int{0, 64, 96, 128, 200} {
			s := base
			for len(s) < width {
				s = s + ".pad"
			}
			t.Run(fmt.Sprintf("%q/%d", base, width), func(t *testing.T) {
				if base == "" && width > 0 {
					t.Skip("empty-path padding isn't meaningful")
				}
				baseline, errB := ParsePathBaseline(s)
				simd, errS := ParsePathSIMD(s)
				if errB != nil || errS != nil {
					require.Error(t, errB)
					require.Error(t, errS)
					return
				}
				assert.Equal(t, baseline, simd)
			})
		}
	}
}

func TestParsePathBelowAndAboveSIMDThreshold(t *testing.T) {
	short := ".a"
	long := "." + strings.Repeat("a", 200)
	pShort, err := ParsePath(short)
	require.NoError(t, err)
	pLong, err := ParsePath(long)
	require.NoError(t, err)
	assert.Equal(t, 1, len(pShort.Components))
	assert.Equal(t, 1, len(pLong.Components))
}

func TestParsePathErrors(t *testing.T) {
	_, err := ParsePath(".")
	require.Error(t, err)
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, InvalidPath, fe.Kind)

	_, err = ParsePath("[abc]")
	require.Error(t, err)

	_, err = ParsePath(`["unterminated`)
	require.Error(t, err)
}

func TestResolveAgainstTape(t *testing.T) {
	tp := abTape(t)

	idx, ok := Resolve(tp, Path{}.WithField("a"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "1", n.Str)

	_, ok = Resolve(tp, Path{}.WithField("missing"))
	assert.False(t, ok)

	_, ok = Resolve(tp, Path{}.WithField("b").WithIndex(5))
	assert.False(t, ok)

	_, ok = Resolve(tp, Path{}.WithIndex(0))
	assert.False(t, ok, "root is an object, not an array")
}

func TestResolveDuplicateKeyLastWins(t *testing.T) {
	tp := buildTape(t, []Node{
		{Kind: KindObjectStart, Count: 2},
		keyNode("a"), numberNode("1"),
		keyNode("a"), numberNode("2"),
		{Kind: KindObjectEnd},
	})
	idx, ok := Resolve(tp, Path{}.WithField("a"))
	require.True(t, ok)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "2", n.Str)
}

func TestPathCacheIdempotence(t *testing.T) {
	c := NewPathCache()
	for _, s := range []string{".a.b[0]", ".a.b[0]", ".x", ".a.b[0]"} {
		p, err := c.GetOrParse(s)
		require.NoError(t, err)
		want, err := ParsePath(s)
		require.NoError(t, err)
		assert.Equal(t, want, p)
	}
}

func TestResolveStringConvenience(t *testing.T) {
	tp := abTape(t)
	c := NewPathCache()
	idx, err := ResolveString(c, tp, ".b[0]")
	require.NoError(t, err)
	n, _ := tp.ExtractValue(idx)
	assert.Equal(t, "2", n.Str)

	_, err = ResolveString(c, tp, ".nope")
	require.Error(t, err)
	fe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, MissingTarget, fe.Kind)
}
