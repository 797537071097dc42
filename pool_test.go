package fionn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferAcquireIsReset(t *testing.T) {
	b := AcquireBuffer()
	b.WriteString("hello")
	assert.Equal(t, "hello", string(b.Bytes))
	ReleaseBuffer(b)

	b2 := AcquireBuffer()
	assert.Empty(t, b2.Bytes, "a reused buffer must come back reset")
	ReleaseBuffer(b2)
}

func TestBufferWriteHelpers(t *testing.T) {
	b := &Buffer{}
	b.WriteString("ab")
	b.WriteByte2('c')
	b.Write([]byte("de"))
	assert.Equal(t, "abcde", string(b.Bytes))
	b.Reset()
	assert.Empty(t, b.Bytes)
	assert.True(t, cap(b.Bytes) >= 5, "reset must keep the backing array")
}

func TestReleaseBufferDropsOversizedBacking(t *testing.T) {
	huge := &Buffer{Bytes: make([]byte, 0, maxPooledCap+1)}
	ReleaseBuffer(huge) // must not panic; oversized buffers are simply dropped
}

func TestAcquireBuilderResetsFields(t *testing.T) {
	b := AcquireBuilder("json", DefaultLimits)
	require := assert.New(t)
	require.Equal("json", b.format)
	require.Equal(DefaultLimits, b.limits)
	require.Empty(b.nodes)
	require.Empty(b.skip)
	require.Empty(b.stack)
	require.Equal(0, b.depth)
	ReleaseBuilder(b)
}

func TestReleaseBuilderDropsOversizedBacking(t *testing.T) {
	huge := &TapeBuilder{nodes: make([]Node, 0, 1<<17)}
	ReleaseBuilder(huge) // must not panic; oversized builders are dropped, not pooled
}
