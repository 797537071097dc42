package fionn

import "github.com/klauspost/cpuid/v2"

// ChunkBytes is the scanner's native window: 64 bytes map exactly onto one
// uint64 mask, one bit per byte, LSB-first.
const ChunkBytes = 64

// Masks holds the four per-chunk bitmasks the scanner produces. A set bit
// at position i means "byte i of this chunk is structural/string/
// comment/escape".
type Masks struct {
	Structural uint64
	String     uint64
	Comment    uint64
	Escape     uint64
}

// CommentStyle selects which line-comment openers ScanChunk honours: '#'
// (Hash) and "//" (DoubleSlash). The front-ends in formats/ do not consult
// it; each handles its own comment syntax.
type CommentStyle struct {
	Hash      bool
	DoubleSlash bool
}

// ScanState is the scanner's cross-chunk state: whether the previous chunk
// left off inside a string or comment, or mid-escape-sequence.
type ScanState struct {
	InsideString  bool
	PendingEscape bool
	InsideComment bool
}

// wideLane reports the lane width this host supports, in ChunkBytes-sized
// windows. ParsePath uses it to pick its SIMD threshold; ScanAll and
// ScanChunk do not consult it and always classify one ChunkBytes window at
// a time. cpuid is used only for this detection, not to dispatch to SIMD
// instructions.
func wideLane() int {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return 4 // 256 bytes/iteration
	case cpuid.CPU.Supports(cpuid.AVX2):
		return 2 // 128 bytes/iteration
	default:
		return 1 // 64 bytes/iteration
	}
}

// structuralByte is the JSON/TOON structural byte set.
func structuralByte(c byte) bool {
	switch c {
	case '{', '}', '[', ']', ',', ':':
		return true
	default:
		return false
	}
}

// ScanChunk classifies up to ChunkBytes bytes of chunk, carrying state
// across calls. It never fails; well-formedness is decided by the
// front-end consuming these masks.
func ScanChunk(chunk []byte, state *ScanState, style CommentStyle) Masks {
	var m Masks
	for i := 0; i < len(chunk) && i < ChunkBytes; i++ {
		c := chunk[i]
		bit := uint64(1) << uint(i)

		if state.InsideComment {
			m.Comment |= bit
			if c == '\n' {
				state.InsideComment = false
			}
			continue
		}

		if state.InsideString {
			m.String |= bit
			if state.PendingEscape {
				m.Escape |= bit
				state.PendingEscape = false
				continue
			}
			switch c {
			case '\\':
				state.PendingEscape = true
			case '"':
				state.InsideString = false
			}
			continue
		}

		switch {
		case c == '"':
			m.String |= bit
			state.InsideString = true
		case style.Hash && c == '#':
			m.Comment |= bit
			state.InsideComment = true
		case style.DoubleSlash && c == '/' && i+1 < len(chunk) && chunk[i+1] == '/':
			m.Comment |= bit
			state.InsideComment = true
		case structuralByte(c):
			m.Structural |= bit
		}
	}
	return m
}

// ScanAll classifies an entire buffer in ChunkBytes windows, returning one
// Masks value per window in order, carrying scanner state from one window
// to the next. The front-ends in formats/ do not call it.
func ScanAll(buf []byte, style CommentStyle) []Masks {
	var state ScanState
	out := make([]Masks, 0, (len(buf)+ChunkBytes-1)/ChunkBytes)
	for off := 0; off < len(buf); off += ChunkBytes {
		end := off + ChunkBytes
		if end > len(buf) {
			end = len(buf)
		}
		out = append(out, ScanChunk(buf[off:end], &state, style))
	}
	return out
}

// StructuralAt reports whether byte offset i of the buffer that produced
// masks (as returned by ScanAll) was classified structural. It reads the
// given masks and does not re-scan; an offset past the last window
// reports false.
func StructuralAt(masks []Masks, i int) bool {
	chunk := i / ChunkBytes
	if chunk >= len(masks) {
		return false
	}
	return masks[chunk].Structural&(uint64(1)<<uint(i%ChunkBytes)) != 0
}
