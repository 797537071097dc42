package formats

import (
	"encoding/json"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/darach/fionn-sub000"
)

func init() {
	Register("json", JSONParse, JSONEmit)
}

// JSONParse is the JSON front-end: a recursive-descent parser driving a
// fionn.TapeBuilder over JSON's grammar.
func JSONParse(buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	if err := limits.CheckBytes("json", len(buf)); err != nil {
		return nil, err
	}
	cur := fionn.NewCursor(buf)
	b := fionn.NewTapeBuilder("json", limits)
	skipWS(&cur)
	if err := jsonValue(&cur, b); err != nil {
		return nil, err
	}
	skipWS(&cur)
	if !cur.AtEnd() {
		return nil, fionn.NewError(fionn.Malformed, "json", cur.Pos(), "trailing data after root value")
	}
	return b.Build(buf)
}

func skipWS(cur *fionn.Cursor) {
	cur.SkipWhile(func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r'
	})
}

func jsonValue(cur *fionn.Cursor, b *fionn.TapeBuilder) error {
	c, ok := cur.Peek()
	if !ok {
		return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "unexpected end of input")
	}
	switch {
	case c == '{':
		return jsonObject(cur, b)
	case c == '[':
		return jsonArray(cur, b)
	case c == '"':
		s, err := jsonString(cur)
		if err != nil {
			return err
		}
		return b.String(s)
	case c == 't':
		return jsonLiteral(cur, "true", func() error { return b.Bool(true) })
	case c == 'f':
		return jsonLiteral(cur, "false", func() error { return b.Bool(false) })
	case c == 'n':
		return jsonLiteral(cur, "null", func() error { return b.Null() })
	case c == '-' || (c >= '0' && c <= '9'):
		lexeme, err := jsonNumber(cur)
		if err != nil {
			return err
		}
		return b.Number(lexeme)
	default:
		return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "unexpected character '"+string(c)+"'")
	}
}

func jsonLiteral(cur *fionn.Cursor, lit string, emit func() error) error {
	for i := 0; i < len(lit); i++ {
		c, ok := cur.Peek()
		if !ok || c != lit[i] {
			return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "invalid literal, expected "+lit)
		}
		cur.Advance(1)
	}
	return emit()
}

func jsonObject(cur *fionn.Cursor, b *fionn.TapeBuilder) error {
	cur.Advance(1) // '{'
	if err := b.OpenObject(); err != nil {
		return err
	}
	skipWS(cur)
	if c, ok := cur.Peek(); ok && c == '}' {
		cur.Advance(1)
		return b.CloseObject()
	}
	for {
		skipWS(cur)
		c, ok := cur.Peek()
		if !ok || c != '"' {
			return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "expected string key")
		}
		key, err := jsonString(cur)
		if err != nil {
			return err
		}
		if err := b.Key(key); err != nil {
			return err
		}
		skipWS(cur)
		if c, ok := cur.Peek(); !ok || c != ':' {
			return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "expected ':' after key")
		}
		cur.Advance(1)
		skipWS(cur)
		if err := jsonValue(cur, b); err != nil {
			return err
		}
		skipWS(cur)
		c, ok = cur.Peek()
		if !ok {
			return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "unterminated object")
		}
		if c == ',' {
			cur.Advance(1)
			continue
		}
		if c == '}' {
			cur.Advance(1)
			return b.CloseObject()
		}
		return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "expected ',' or '}'")
	}
}

func jsonArray(cur *fionn.Cursor, b *fionn.TapeBuilder) error {
	cur.Advance(1) // '['
	if err := b.OpenArray(); err != nil {
		return err
	}
	skipWS(cur)
	if c, ok := cur.Peek(); ok && c == ']' {
		cur.Advance(1)
		return b.CloseArray()
	}
	for {
		skipWS(cur)
		if err := jsonValue(cur, b); err != nil {
			return err
		}
		skipWS(cur)
		c, ok := cur.Peek()
		if !ok {
			return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "unterminated array")
		}
		if c == ',' {
			cur.Advance(1)
			continue
		}
		if c == ']' {
			cur.Advance(1)
			return b.CloseArray()
		}
		return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "expected ',' or ']'")
	}
}

// jsonString decodes a JSON string literal, cur positioned at the opening
// quote. Escapes are resolved eagerly; the fast path (no escapes) still
// copies once, since the tape's Node.Str must outlive reuse of buf.
func jsonString(cur *fionn.Cursor) (string, error) {
	cur.Advance(1) // opening quote
	var out []byte
	for {
		if cur.AtEnd() {
			return "", fionn.NewError(fionn.Malformed, "json", cur.Pos(), "unterminated string")
		}
		c := cur.ReadByte()
		switch c {
		case '"':
			return string(out), nil
		case '\\':
			if cur.AtEnd() {
				return "", fionn.NewError(fionn.Malformed, "json", cur.Pos(), "unterminated escape")
			}
			e := cur.ReadByte()
			switch e {
			case '"', '\\', '/':
				out = append(out, e)
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'u':
				r, err := readHex4(cur)
				if err != nil {
					return "", err
				}
				if utf16.IsSurrogate(rune(r)) {
					if dec, ok := tryDecodeSurrogatePair(cur, rune(r)); ok {
						var buf4 [4]byte
						n := utf8.EncodeRune(buf4[:], dec)
						out = append(out, buf4[:n]...)
						continue
					}
					var buf4 [4]byte
					n := utf8.EncodeRune(buf4[:], utf8.RuneError)
					out = append(out, buf4[:n]...)
					continue
				}
				var buf4 [4]byte
				n := utf8.EncodeRune(buf4[:], rune(r))
				out = append(out, buf4[:n]...)
			default:
				return "", fionn.NewError(fionn.Malformed, "json", cur.Pos(), "invalid escape")
			}
		default:
			out = append(out, c)
		}
	}
}

// tryDecodeSurrogatePair looks for a trailing low surrogate "\uDCxx"
// immediately following a high surrogate already read as hi, consuming it
// only if present and valid; otherwise the cursor is left untouched so the
// lone surrogate's replacement falls back to ordinary processing of
// whatever follows.
func tryDecodeSurrogatePair(cur *fionn.Cursor, hi rune) (rune, bool) {
	b0, ok0 := cur.PeekAt(0)
	b1, ok1 := cur.PeekAt(1)
	if !ok0 || !ok1 || b0 != '\\' || b1 != 'u' {
		return 0, false
	}
	save := *cur
	cur.Advance(2)
	lo, err := readHex4(cur)
	if err != nil || !utf16.IsSurrogate(rune(lo)) {
		*cur = save
		return 0, false
	}
	dec := utf16.DecodeRune(hi, rune(lo))
	if dec == utf8.RuneError {
		*cur = save
		return 0, false
	}
	return dec, true
}

func readHex4(cur *fionn.Cursor) (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		if cur.AtEnd() {
			return 0, fionn.NewError(fionn.Malformed, "json", cur.Pos(), "truncated \\u escape")
		}
		c := cur.ReadByte()
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return 0, fionn.NewError(fionn.Malformed, "json", cur.Pos(), "invalid hex digit in \\u escape")
		}
		v = v<<4 | d
	}
	return v, nil
}

func jsonNumber(cur *fionn.Cursor) (string, error) {
	cur.SetMark()
	if c, ok := cur.Peek(); ok && c == '-' {
		cur.Advance(1)
	}
	digits := func() error {
		c, ok := cur.Peek()
		if !ok || c < '0' || c > '9' {
			return fionn.NewError(fionn.Malformed, "json", cur.Pos(), "invalid number")
		}
		cur.SkipWhile(func(b byte) bool { return b >= '0' && b <= '9' })
		return nil
	}
	if c, ok := cur.Peek(); ok && c == '0' {
		cur.Advance(1)
	} else if err := digits(); err != nil {
		return "", err
	}
	if c, ok := cur.Peek(); ok && c == '.' {
		cur.Advance(1)
		if err := digits(); err != nil {
			return "", err
		}
	}
	if c, ok := cur.Peek(); ok && (c == 'e' || c == 'E') {
		cur.Advance(1)
		if c, ok := cur.Peek(); ok && (c == '+' || c == '-') {
			cur.Advance(1)
		}
		if err := digits(); err != nil {
			return "", err
		}
	}
	return string(cur.BytesFromMark()), nil
}

// JSONEmit writes t as JSON bytes. Round-tripping JSON -> tape -> JSON is
// lossless modulo number re-formatting and whitespace: number lexemes are
// written back verbatim, so even that axis usually survives. The
// accumulator comes from fionn's shared buffer pool rather than a fresh
// slice per call, so repeated emission (e.g. one sub-tape per stream
// record) doesn't re-allocate on every call.
func JSONEmit(t *fionn.Tape) ([]byte, error) {
	buf := fionn.AcquireBuffer()
	defer fionn.ReleaseBuffer(buf)
	out, err := writeJSONValue(buf.Bytes, t, t.Root())
	if err != nil {
		return nil, err
	}
	buf.Bytes = out
	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

func writeJSONValue(out []byte, t *fionn.Tape, idx int) ([]byte, error) {
	n := t.NodeAt(idx)
	switch n.Kind {
	case fionn.KindNull:
		return append(out, "null"...), nil
	case fionn.KindBool:
		if n.Bool {
			return append(out, "true"...), nil
		}
		return append(out, "false"...), nil
	case fionn.KindNumber:
		if _, err := strconv.ParseFloat(n.Str, 64); err != nil {
			return nil, fionn.NewError(fionn.Malformed, "json", idx, "invalid number lexeme "+n.Str)
		}
		return append(out, n.Str...), nil
	case fionn.KindString:
		return appendJSONString(out, n.Str), nil
	case fionn.KindObjectStart:
		out = append(out, '{')
		j := idx + 1
		for i := 0; i < n.Count; i++ {
			if i > 0 {
				out = append(out, ',')
			}
			key := t.NodeAt(j)
			out = appendJSONString(out, key.Str)
			out = append(out, ':')
			valIdx := j + 1
			var err error
			out, err = writeJSONValue(out, t, valIdx)
			if err != nil {
				return nil, err
			}
			j = t.SkipValue(valIdx)
		}
		return append(out, '}'), nil
	case fionn.KindArrayStart:
		out = append(out, '[')
		j := idx + 1
		for i := 0; i < n.Count; i++ {
			if i > 0 {
				out = append(out, ',')
			}
			var err error
			out, err = writeJSONValue(out, t, j)
			if err != nil {
				return nil, err
			}
			j = t.SkipValue(j)
		}
		return append(out, ']'), nil
	default:
		return nil, fionn.NewError(fionn.Malformed, "json", idx, "unexpected node kind "+n.Kind.String())
	}
}

func appendJSONString(out []byte, s string) []byte {
	b, _ := json.Marshal(s)
	return append(out, b...)
}
