package fionn

// Cursor provides sequential, mark-and-rewind access over an input buffer:
// a position, a peek/advance primitive, and a mark to slice out the bytes
// consumed since it was set. Kept minimal to what format front-ends and the
// path parser actually need.
type Cursor struct {
	bytes    []byte
	position int
	mark     int
}

// NewCursor wraps b for sequential reading from position 0.
func NewCursor(b []byte) Cursor {
	return Cursor{bytes: b}
}

// AtEnd reports whether every byte has been consumed.
func (c *Cursor) AtEnd() bool { return c.position >= len(c.bytes) }

// BytesLeft returns the number of unread bytes.
func (c *Cursor) BytesLeft() int { return len(c.bytes) - c.position }

// Pos returns the current byte offset, for error reporting.
func (c *Cursor) Pos() int { return c.position }

// Peek returns the byte at the current position without advancing, and
// false if the cursor is at EOF.
func (c *Cursor) Peek() (byte, bool) {
	if c.AtEnd() {
		return 0, false
	}
	return c.bytes[c.position], true
}

// PeekAt returns the byte at offset bytes past the current position.
func (c *Cursor) PeekAt(offset int) (byte, bool) {
	p := c.position + offset
	if p < 0 || p >= len(c.bytes) {
		return 0, false
	}
	return c.bytes[p], true
}

// ReadByte returns the current byte and advances past it.
func (c *Cursor) ReadByte() byte {
	b := c.bytes[c.position]
	c.position++
	return b
}

// Advance moves the cursor forward n bytes without reading them.
func (c *Cursor) Advance(n int) { c.position += n }

// Read returns the next n bytes and advances past them.
func (c *Cursor) Read(n int) []byte {
	p := c.position
	c.position += n
	return c.bytes[p:c.position]
}

// SetMark records the current position.
func (c *Cursor) SetMark() { c.mark = c.position }

// BytesFromMark returns the bytes consumed since the last SetMark.
func (c *Cursor) BytesFromMark() []byte { return c.bytes[c.mark:c.position] }

// Remaining returns every unread byte.
func (c *Cursor) Remaining() []byte { return c.bytes[c.position:] }

// SkipWhile advances past a run of bytes for which pred is true.
func (c *Cursor) SkipWhile(pred func(byte) bool) {
	for !c.AtEnd() {
		b, _ := c.Peek()
		if !pred(b) {
			return
		}
		c.position++
	}
}
