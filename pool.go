package fionn

import "sync"

// Buffer is an append-only byte accumulator used by emitters (JSONEmit) to
// build output without per-call allocation.
type Buffer struct {
	Bytes []byte
}

// Reset clears the buffer's contents but keeps its backing array: length
// zeroed, capacity retained.
func (b *Buffer) Reset() { b.Bytes = b.Bytes[:0] }

func (b *Buffer) WriteString(s string) { b.Bytes = append(b.Bytes, s...) }
func (b *Buffer) WriteByte2(c byte)    { b.Bytes = append(b.Bytes, c) }
func (b *Buffer) Write(p []byte)       { b.Bytes = append(b.Bytes, p...) }

// bufferPool is the shared MPMC pool backing Buffer reuse. ReleaseBuffer
// drops any buffer whose capacity has grown past maxPooledCap, so one
// pathological document cannot pin a huge backing array in the pool forever.
const maxPooledCap = 4 << 20

var bufferPool = sync.Pool{
	New: func() any { return &Buffer{} },
}

// AcquireBuffer obtains a reset Buffer from the pool.
func AcquireBuffer() *Buffer {
	b := bufferPool.Get().(*Buffer)
	b.Reset()
	return b
}

// ReleaseBuffer returns a Buffer to the pool. Using b after this call is
// undefined behavior.
func ReleaseBuffer(b *Buffer) {
	if cap(b.Bytes) > maxPooledCap {
		return
	}
	bufferPool.Put(b)
}

// builderPool pools *TapeBuilder values for the stream processor, which
// constructs one short-lived sub-tape per matched container field and
// would otherwise allocate a fresh nodes/skip slice per record.
var builderPool = sync.Pool{
	New: func() any { return &TapeBuilder{} },
}

// AcquireBuilder obtains a reset TapeBuilder for the given format and limits.
func AcquireBuilder(format string, limits Limits) *TapeBuilder {
	b := builderPool.Get().(*TapeBuilder)
	b.format = format
	b.limits = limits
	b.nodes = b.nodes[:0]
	b.skip = b.skip[:0]
	b.stack = b.stack[:0]
	b.arena = b.arena[:0]
	b.depth = 0
	return b
}

// ReleaseBuilder returns a TapeBuilder to the pool once its Tape (or the
// nodes copied out of it) no longer need its backing arrays, dropping it
// instead if it has grown unreasonably large.
func ReleaseBuilder(b *TapeBuilder) {
	if cap(b.nodes) > 1<<16 {
		return
	}
	builderPool.Put(b)
}
