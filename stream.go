package fionn

import (
	"unicode/utf16"
	"unicode/utf8"
)

// StreamMode selects the stream processor's extraction strategy. Every
// mode reaches the same extraction result; the field only exists so a
// caller can request a particular internal path for benchmarking — an
// opaque performance knob, not an observable difference in output.
type StreamMode int

const (
	StreamFull StreamMode = iota
	StreamRawSIMD
	StreamOptimized
	StreamStructural
)

// StreamRecord is one line's extraction result: scalar hits land in Fields,
// container hits (object/array values) are fully parsed into a compact
// sub-tape in Subs. A line that failed structural validation has OK false,
// its raw bytes preserved in Raw, and processing of later lines continues
// regardless.
type StreamRecord struct {
	Line   int
	Fields map[string]Node
	Subs   map[string]*Tape
	OK     bool
	Raw    []byte
	Err    error
}

// BatchStats summarizes one ProcessStream call. MatchRatio is matched field
// instances over the maximum possible (ok records times schema field
// count), so a schema whose fields appear on every line reports 1.0.
type BatchStats struct {
	Total         int
	OK            int
	Failed        int
	AvgBytesPerOK float64
	MatchRatio    float64
}

// ProcessStream line-splits buf and, for each line, walks its top-level
// object comparing each key against schema: on a miss the value is skipped
// without materialization, on a hit it is extracted. This deliberately does
// not reuse the full JSON front-end in formats/: to bypass full tape
// materialization it tokenizes each line directly and skips unmatched
// values byte by byte (it does not run ScanChunk), so a second, narrower
// parser living in the core package is intentional, not accidental
// duplication.
//
// Output order always matches input order; this implementation processes
// lines sequentially, so that guarantee holds without a restore-order pass.
// ProcessStream accumulates every record into a slice before returning; it
// is a convenience wrapper over ProcessStreamChunked, the same relationship
// Gron has to GronStream (§9 "lazy sequences": the straight return-a-slice
// form wraps the bounded-memory streaming form, not the other way round).
func ProcessStream(buf []byte, schema *Schema, limits Limits, mode StreamMode) ([]StreamRecord, BatchStats) {
	var records []StreamRecord
	stats := ProcessStreamChunked(buf, schema, limits, mode, func(rec StreamRecord) bool {
		records = append(records, rec)
		return true
	})
	return records, stats
}

// ProcessStreamChunked is ProcessStream's streaming form: fn is called once
// per line as it is extracted, so memory stays bounded by one record rather
// than growing with input size. Returning false from fn stops processing
// early, as Tape.Iter does; the returned BatchStats only covers lines
// processed before the stop.
func ProcessStreamChunked(buf []byte, schema *Schema, limits Limits, mode StreamMode, fn func(StreamRecord) bool) BatchStats {
	_ = mode

	var stats BatchStats
	matchedInstances := 0
	okBytes := 0

	for lineIdx, line := range splitLines(buf) {
		line = trimCR(line)
		if len(line) == 0 {
			continue
		}
		stats.Total++
		rec, matched, err := extractStreamLine(line, schema, limits, lineIdx)
		if err != nil {
			stats.Failed++
			if !fn(StreamRecord{
				Line: lineIdx,
				OK:   false,
				Raw:  append([]byte(nil), line...),
				Err:  err,
			}) {
				break
			}
			continue
		}
		stats.OK++
		okBytes += len(line)
		matchedInstances += matched
		if !fn(rec) {
			break
		}
	}

	if stats.OK > 0 {
		stats.AvgBytesPerOK = float64(okBytes) / float64(stats.OK)
		if n := len(schema.Fields()); n > 0 {
			stats.MatchRatio = float64(matchedInstances) / float64(stats.OK*n)
		}
	}
	return stats
}

// SplitLines exports splitLines for cmd/fionn's --jsonl gron mode, which
// reuses the stream processor's line splitter rather than inventing its own.
func SplitLines(buf []byte) [][]byte { return splitLines(buf) }

func splitLines(buf []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			lines = append(lines, buf[start:i])
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, buf[start:])
	}
	return lines
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}

// extractStreamLine parses and schema-matches one line, which must be a
// JSON object (the schema's keys are object field names).
func extractStreamLine(line []byte, schema *Schema, limits Limits, lineIdx int) (StreamRecord, int, error) {
	cur := NewCursor(line)
	streamSkipWS(&cur)
	c, ok := cur.Peek()
	if !ok || c != '{' {
		return StreamRecord{}, 0, malformedf("stream", lineIdx, "line is not a JSON object")
	}
	cur.Advance(1)

	rec := StreamRecord{Line: lineIdx, OK: true, Fields: map[string]Node{}, Subs: map[string]*Tape{}}
	matched := 0

	streamSkipWS(&cur)
	if c, ok := cur.Peek(); ok && c == '}' {
		return rec, matched, nil
	}
	for {
		streamSkipWS(&cur)
		c, ok := cur.Peek()
		if !ok || c != '"' {
			return StreamRecord{}, 0, malformedf("stream", cur.Pos(), "expected string key")
		}
		key, err := streamJSONString(&cur)
		if err != nil {
			return StreamRecord{}, 0, err
		}
		streamSkipWS(&cur)
		if c, ok := cur.Peek(); !ok || c != ':' {
			return StreamRecord{}, 0, malformedf("stream", cur.Pos(), "expected ':' after key")
		}
		cur.Advance(1)
		streamSkipWS(&cur)

		if schema.Match(key) {
			matched++
			if err := streamExtractValue(&cur, limits, key, &rec); err != nil {
				return StreamRecord{}, 0, err
			}
		} else {
			if err := streamSkipValue(&cur); err != nil {
				return StreamRecord{}, 0, err
			}
		}

		streamSkipWS(&cur)
		c, ok = cur.Peek()
		if !ok {
			return StreamRecord{}, 0, malformedf("stream", cur.Pos(), "unterminated object")
		}
		if c == ',' {
			cur.Advance(1)
			continue
		}
		if c == '}' {
			return rec, matched, nil
		}
		return StreamRecord{}, 0, malformedf("stream", cur.Pos(), "expected ',' or '}'")
	}
}

// streamExtractValue materializes the value at cur under key: a scalar
// lexeme into rec.Fields, a container fully parsed into a sub-tape under
// rec.Subs.
func streamExtractValue(cur *Cursor, limits Limits, key string, rec *StreamRecord) error {
	c, ok := cur.Peek()
	if !ok {
		return malformedf("stream", cur.Pos(), "unexpected end of value")
	}
	switch {
	case c == '{' || c == '[':
		b := AcquireBuilder("stream", limits)
		defer ReleaseBuilder(b)
		if err := streamBuildValue(cur, b); err != nil {
			return err
		}
		t, err := b.Build(nil)
		if err != nil {
			return err
		}
		rec.Subs[key] = t
		return nil
	case c == '"':
		s, err := streamJSONString(cur)
		if err != nil {
			return err
		}
		rec.Fields[key] = stringNode(s)
		return nil
	case c == 't':
		if err := streamLiteral(cur, "true"); err != nil {
			return err
		}
		rec.Fields[key] = boolNode(true)
		return nil
	case c == 'f':
		if err := streamLiteral(cur, "false"); err != nil {
			return err
		}
		rec.Fields[key] = boolNode(false)
		return nil
	case c == 'n':
		if err := streamLiteral(cur, "null"); err != nil {
			return err
		}
		rec.Fields[key] = nullNode()
		return nil
	case c == '-' || (c >= '0' && c <= '9'):
		lexeme, err := streamJSONNumber(cur)
		if err != nil {
			return err
		}
		rec.Fields[key] = numberNode(lexeme)
		return nil
	default:
		return malformedf("stream", cur.Pos(), "unexpected character in value")
	}
}

// streamSkipValue consumes exactly one JSON value's bytes without building
// anything, for a schema key that didn't match.
func streamSkipValue(cur *Cursor) error {
	c, ok := cur.Peek()
	if !ok {
		return malformedf("stream", cur.Pos(), "unexpected end of value")
	}
	switch {
	case c == '{':
		cur.Advance(1)
		streamSkipWS(cur)
		if c, ok := cur.Peek(); ok && c == '}' {
			cur.Advance(1)
			return nil
		}
		for {
			streamSkipWS(cur)
			if c, ok := cur.Peek(); !ok || c != '"' {
				return malformedf("stream", cur.Pos(), "expected string key")
			}
			if _, err := streamJSONString(cur); err != nil {
				return err
			}
			streamSkipWS(cur)
			if c, ok := cur.Peek(); !ok || c != ':' {
				return malformedf("stream", cur.Pos(), "expected ':'")
			}
			cur.Advance(1)
			streamSkipWS(cur)
			if err := streamSkipValue(cur); err != nil {
				return err
			}
			streamSkipWS(cur)
			c, ok := cur.Peek()
			if !ok {
				return malformedf("stream", cur.Pos(), "unterminated object")
			}
			if c == ',' {
				cur.Advance(1)
				continue
			}
			if c == '}' {
				cur.Advance(1)
				return nil
			}
			return malformedf("stream", cur.Pos(), "expected ',' or '}'")
		}
	case c == '[':
		cur.Advance(1)
		streamSkipWS(cur)
		if c, ok := cur.Peek(); ok && c == ']' {
			cur.Advance(1)
			return nil
		}
		for {
			streamSkipWS(cur)
			if err := streamSkipValue(cur); err != nil {
				return err
			}
			streamSkipWS(cur)
			c, ok := cur.Peek()
			if !ok {
				return malformedf("stream", cur.Pos(), "unterminated array")
			}
			if c == ',' {
				cur.Advance(1)
				continue
			}
			if c == ']' {
				cur.Advance(1)
				return nil
			}
			return malformedf("stream", cur.Pos(), "expected ',' or ']'")
		}
	case c == '"':
		_, err := streamJSONString(cur)
		return err
	case c == 't':
		return streamLiteral(cur, "true")
	case c == 'f':
		return streamLiteral(cur, "false")
	case c == 'n':
		return streamLiteral(cur, "null")
	case c == '-' || (c >= '0' && c <= '9'):
		_, err := streamJSONNumber(cur)
		return err
	default:
		return malformedf("stream", cur.Pos(), "unexpected character")
	}
}

// streamBuildValue is streamSkipValue's materializing twin, driving a
// Builder instead of discarding bytes, for a container that matched the
// schema.
func streamBuildValue(cur *Cursor, b Builder) error {
	c, ok := cur.Peek()
	if !ok {
		return malformedf("stream", cur.Pos(), "unexpected end of value")
	}
	switch {
	case c == '{':
		cur.Advance(1)
		if err := b.OpenObject(); err != nil {
			return err
		}
		streamSkipWS(cur)
		if c, ok := cur.Peek(); ok && c == '}' {
			cur.Advance(1)
			return b.CloseObject()
		}
		for {
			streamSkipWS(cur)
			key, err := streamJSONString(cur)
			if err != nil {
				return err
			}
			if err := b.Key(key); err != nil {
				return err
			}
			streamSkipWS(cur)
			if c, ok := cur.Peek(); !ok || c != ':' {
				return malformedf("stream", cur.Pos(), "expected ':'")
			}
			cur.Advance(1)
			streamSkipWS(cur)
			if err := streamBuildValue(cur, b); err != nil {
				return err
			}
			streamSkipWS(cur)
			c, ok := cur.Peek()
			if !ok {
				return malformedf("stream", cur.Pos(), "unterminated object")
			}
			if c == ',' {
				cur.Advance(1)
				continue
			}
			if c == '}' {
				cur.Advance(1)
				return b.CloseObject()
			}
			return malformedf("stream", cur.Pos(), "expected ',' or '}'")
		}
	case c == '[':
		cur.Advance(1)
		if err := b.OpenArray(); err != nil {
			return err
		}
		streamSkipWS(cur)
		if c, ok := cur.Peek(); ok && c == ']' {
			cur.Advance(1)
			return b.CloseArray()
		}
		for {
			streamSkipWS(cur)
			if err := streamBuildValue(cur, b); err != nil {
				return err
			}
			streamSkipWS(cur)
			c, ok := cur.Peek()
			if !ok {
				return malformedf("stream", cur.Pos(), "unterminated array")
			}
			if c == ',' {
				cur.Advance(1)
				continue
			}
			if c == ']' {
				cur.Advance(1)
				return b.CloseArray()
			}
			return malformedf("stream", cur.Pos(), "expected ',' or ']'")
		}
	case c == '"':
		s, err := streamJSONString(cur)
		if err != nil {
			return err
		}
		return b.String(s)
	case c == 't':
		if err := streamLiteral(cur, "true"); err != nil {
			return err
		}
		return b.Bool(true)
	case c == 'f':
		if err := streamLiteral(cur, "false"); err != nil {
			return err
		}
		return b.Bool(false)
	case c == 'n':
		if err := streamLiteral(cur, "null"); err != nil {
			return err
		}
		return b.Null()
	case c == '-' || (c >= '0' && c <= '9'):
		lexeme, err := streamJSONNumber(cur)
		if err != nil {
			return err
		}
		return b.Number(lexeme)
	default:
		return malformedf("stream", cur.Pos(), "unexpected character in value")
	}
}

func streamSkipWS(cur *Cursor) {
	cur.SkipWhile(func(c byte) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '\r'
	})
}

func streamLiteral(cur *Cursor, lit string) error {
	for i := 0; i < len(lit); i++ {
		c, ok := cur.Peek()
		if !ok || c != lit[i] {
			return malformedf("stream", cur.Pos(), "invalid literal, expected %s", lit)
		}
		cur.Advance(1)
	}
	return nil
}

func streamJSONString(cur *Cursor) (string, error) {
	cur.Advance(1) // opening quote
	var out []byte
	for {
		if cur.AtEnd() {
			return "", malformedf("stream", cur.Pos(), "unterminated string")
		}
		c := cur.ReadByte()
		switch c {
		case '"':
			return string(out), nil
		case '\\':
			if cur.AtEnd() {
				return "", malformedf("stream", cur.Pos(), "unterminated escape")
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
				r, err := streamReadHex4(cur)
				if err != nil {
					return "", err
				}
				if utf16.IsSurrogate(rune(r)) {
					if dec, ok := streamTryDecodeSurrogatePair(cur, rune(r)); ok {
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
				return "", malformedf("stream", cur.Pos(), "invalid escape")
			}
		default:
			out = append(out, c)
		}
	}
}

func streamReadHex4(cur *Cursor) (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		if cur.AtEnd() {
			return 0, malformedf("stream", cur.Pos(), "truncated \\u escape")
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
			return 0, malformedf("stream", cur.Pos(), "invalid hex digit in \\u escape")
		}
		v = v<<4 | d
	}
	return v, nil
}

// streamTryDecodeSurrogatePair mirrors formats.tryDecodeSurrogatePair; the
// two packages can't share it without an import cycle (formats imports
// fionn), so the small helper is duplicated rather than factored out.
func streamTryDecodeSurrogatePair(cur *Cursor, hi rune) (rune, bool) {
	b0, ok0 := cur.PeekAt(0)
	b1, ok1 := cur.PeekAt(1)
	if !ok0 || !ok1 || b0 != '\\' || b1 != 'u' {
		return 0, false
	}
	save := *cur
	cur.Advance(2)
	lo, err := streamReadHex4(cur)
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

func streamJSONNumber(cur *Cursor) (string, error) {
	cur.SetMark()
	if c, ok := cur.Peek(); ok && c == '-' {
		cur.Advance(1)
	}
	if c, ok := cur.Peek(); ok && c == '0' {
		cur.Advance(1)
	} else {
		if c, ok := cur.Peek(); !ok || c < '0' || c > '9' {
			return "", malformedf("stream", cur.Pos(), "invalid number")
		}
		cur.SkipWhile(func(b byte) bool { return b >= '0' && b <= '9' })
	}
	if c, ok := cur.Peek(); ok && c == '.' {
		cur.Advance(1)
		if c, ok := cur.Peek(); !ok || c < '0' || c > '9' {
			return "", malformedf("stream", cur.Pos(), "invalid number")
		}
		cur.SkipWhile(func(b byte) bool { return b >= '0' && b <= '9' })
	}
	if c, ok := cur.Peek(); ok && (c == 'e' || c == 'E') {
		cur.Advance(1)
		if c, ok := cur.Peek(); ok && (c == '+' || c == '-') {
			cur.Advance(1)
		}
		if c, ok := cur.Peek(); !ok || c < '0' || c > '9' {
			return "", malformedf("stream", cur.Pos(), "invalid number")
		}
		cur.SkipWhile(func(b byte) bool { return b >= '0' && b <= '9' })
	}
	return string(cur.BytesFromMark()), nil
}
