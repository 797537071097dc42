package formats

import (
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/darach/fionn-sub000"
)

func init() {
	Register("toml", TOMLParse, TOMLEmit)
}

// tomlTable is an insertion-ordered table: TOML documents are order
// sensitive (the spec mandates tables and keys appear in declaration
// order), but go-toml/v2's decode-to-map API has no ordered equivalent in
// this module's dependency set, so TOMLParse instead tokenizes TOML
// directly into this ordered structure and drives fionn.TapeBuilder from
// it, the way formats/json.go's recursive descent builds incrementally
// instead of bouncing through a Go map.
type tomlTable struct {
	keys []string
	vals map[string]*tomlValue
}

func newTomlTable() *tomlTable { return &tomlTable{vals: map[string]*tomlValue{}} }

func (tb *tomlTable) set(key string, v *tomlValue) {
	if _, ok := tb.vals[key]; !ok {
		tb.keys = append(tb.keys, key)
	}
	tb.vals[key] = v
}

// getOrCreateTable returns the sub-table at key, creating it (or, for a
// key that names an array of tables, descending into its most recently
// declared element) if needed.
func (tb *tomlTable) getOrCreateTable(key string) *tomlTable {
	if existing, ok := tb.vals[key]; ok {
		if existing.table != nil {
			return existing.table
		}
		if len(existing.tables) > 0 {
			return existing.tables[len(existing.tables)-1]
		}
	}
	nt := newTomlTable()
	tb.set(key, &tomlValue{table: nt})
	return nt
}

// tomlValue holds exactly one of its fields set: scalar for a leaf,
// table for an inline table or [table] body, tables for an array of
// tables ([[table]]), or array for an inline array.
type tomlValue struct {
	scalar *fionn.Node
	table  *tomlTable
	tables []*tomlTable
	array  []tomlValue
}

// TOMLParse is the TOML front-end. It hand-tokenizes TOML's line-oriented
// grammar (key/value pairs, [table] and [[array-of-tables]] headers,
// dotted keys, inline arrays/tables, basic/literal strings) into an
// ordered tomlTable tree, then lowers that tree onto the tape with
// fionn.TapeBuilder so key declaration order survives. Multi-line strings
// and arrays spanning multiple lines are not supported; every other
// construct this package's tests exercise is.
func TOMLParse(buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	if err := limits.CheckBytes("toml", len(buf)); err != nil {
		return nil, err
	}
	root := newTomlTable()
	cur := root
	lines := strings.Split(string(buf), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(stripTOMLComment(raw))
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "[[") && strings.HasSuffix(line, "]]"):
			parts := splitTOMLKeyPath(strings.TrimSpace(line[2 : len(line)-2]))
			if len(parts) == 0 || parts[0] == "" {
				return nil, fionn.NewError(fionn.Malformed, "toml", i, "empty array-table header")
			}
			parent := root
			for _, p := range parts[:len(parts)-1] {
				parent = parent.getOrCreateTable(p)
			}
			last := parts[len(parts)-1]
			nt := newTomlTable()
			if existing, ok := parent.vals[last]; ok && existing.tables != nil {
				existing.tables = append(existing.tables, nt)
			} else {
				parent.set(last, &tomlValue{tables: []*tomlTable{nt}})
			}
			cur = nt
		case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
			parts := splitTOMLKeyPath(strings.TrimSpace(line[1 : len(line)-1]))
			if len(parts) == 0 || parts[0] == "" {
				return nil, fionn.NewError(fionn.Malformed, "toml", i, "empty table header")
			}
			t := root
			for _, p := range parts {
				t = t.getOrCreateTable(p)
			}
			cur = t
		default:
			eq := strings.IndexByte(line, '=')
			if eq < 0 {
				return nil, fionn.NewError(fionn.Malformed, "toml", i, "expected key = value")
			}
			keyPart := strings.TrimSpace(line[:eq])
			valPart := strings.TrimSpace(line[eq+1:])
			if keyPart == "" || valPart == "" {
				return nil, fionn.NewError(fionn.Malformed, "toml", i, "missing key or value")
			}
			v, err := parseTOMLValue(valPart, i)
			if err != nil {
				return nil, err
			}
			parts := splitTOMLKeyPath(keyPart)
			target := cur
			for _, p := range parts[:len(parts)-1] {
				target = target.getOrCreateTable(p)
			}
			target.set(parts[len(parts)-1], v)
		}
	}

	b := fionn.NewTapeBuilder("toml", limits)
	if err := buildTOMLTable(root, b); err != nil {
		return nil, err
	}
	return b.Build(buf)
}

func stripTOMLComment(line string) string {
	inQuote := byte(0)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '#':
			return line[:i]
		}
	}
	return line
}

// splitTOMLKeyPath splits a (possibly quoted, dotted) key path like
// `a."b.c".d` into its segments, honoring quotes around a segment that
// itself contains a literal dot.
func splitTOMLKeyPath(s string) []string {
	var out []string
	var cur strings.Builder
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			if c == inQuote {
				inQuote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '"' || c == '\'':
			inQuote = c
		case c == '.':
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

// splitTOMLTopLevel splits s on sep, ignoring occurrences inside quotes or
// nested [...]/{...}, for inline array/table bodies.
func splitTOMLTopLevel(s string, sep byte) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	inQuote := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote != 0:
			cur.WriteByte(c)
			if c == inQuote {
				inQuote = 0
			}
		case c == '"' || c == '\'':
			inQuote = c
			cur.WriteByte(c)
		case c == '[' || c == '{':
			depth++
			cur.WriteByte(c)
		case c == ']' || c == '}':
			depth--
			cur.WriteByte(c)
		case c == sep && depth == 0:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func parseTOMLValue(s string, lineNo int) (*tomlValue, error) {
	switch {
	case strings.HasPrefix(s, "\""):
		str, err := parseTOMLBasicString(s, lineNo)
		if err != nil {
			return nil, err
		}
		return &tomlValue{scalar: &fionn.Node{Kind: fionn.KindString, Str: str}}, nil
	case strings.HasPrefix(s, "'"):
		str, err := parseTOMLLiteralString(s, lineNo)
		if err != nil {
			return nil, err
		}
		return &tomlValue{scalar: &fionn.Node{Kind: fionn.KindString, Str: str}}, nil
	case s == "true":
		return &tomlValue{scalar: &fionn.Node{Kind: fionn.KindBool, Bool: true}}, nil
	case s == "false":
		return &tomlValue{scalar: &fionn.Node{Kind: fionn.KindBool, Bool: false}}, nil
	case strings.HasPrefix(s, "["):
		return parseTOMLInlineArray(s, lineNo)
	case strings.HasPrefix(s, "{"):
		return parseTOMLInlineTable(s, lineNo)
	default:
		lex := strings.ReplaceAll(s, "_", "")
		if _, err := strconv.ParseFloat(lex, 64); err == nil {
			return &tomlValue{scalar: &fionn.Node{Kind: fionn.KindNumber, Str: lex}}, nil
		}
		return nil, fionn.NewError(fionn.Malformed, "toml", lineNo, "unrecognized value: "+s)
	}
}

func parseTOMLBasicString(s string, lineNo int) (string, error) {
	if len(s) < 2 || s[len(s)-1] != '"' {
		return "", fionn.NewError(fionn.Malformed, "toml", lineNo, "unterminated string")
	}
	body := s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(body[i])
			}
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String(), nil
}

func parseTOMLLiteralString(s string, lineNo int) (string, error) {
	if len(s) < 2 || s[len(s)-1] != '\'' {
		return "", fionn.NewError(fionn.Malformed, "toml", lineNo, "unterminated literal string")
	}
	return s[1 : len(s)-1], nil
}

func parseTOMLInlineArray(s string, lineNo int) (*tomlValue, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, fionn.NewError(fionn.Malformed, "toml", lineNo, "unterminated array")
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	out := []tomlValue{}
	if inner != "" {
		for _, p := range splitTOMLTopLevel(inner, ',') {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			v, err := parseTOMLValue(p, lineNo)
			if err != nil {
				return nil, err
			}
			out = append(out, *v)
		}
	}
	return &tomlValue{array: out}, nil
}

func parseTOMLInlineTable(s string, lineNo int) (*tomlValue, error) {
	if !strings.HasSuffix(s, "}") {
		return nil, fionn.NewError(fionn.Malformed, "toml", lineNo, "unterminated inline table")
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	t := newTomlTable()
	if inner != "" {
		for _, p := range splitTOMLTopLevel(inner, ',') {
			p = strings.TrimSpace(p)
			eq := strings.IndexByte(p, '=')
			if eq < 0 {
				return nil, fionn.NewError(fionn.Malformed, "toml", lineNo, "expected key = value in inline table")
			}
			keyPart := strings.TrimSpace(p[:eq])
			valPart := strings.TrimSpace(p[eq+1:])
			v, err := parseTOMLValue(valPart, lineNo)
			if err != nil {
				return nil, err
			}
			parts := splitTOMLKeyPath(keyPart)
			target := t
			for _, kp := range parts[:len(parts)-1] {
				target = target.getOrCreateTable(kp)
			}
			target.set(parts[len(parts)-1], v)
		}
	}
	return &tomlValue{table: t}, nil
}

func buildTOMLTable(t *tomlTable, b *fionn.TapeBuilder) error {
	if err := b.OpenObject(); err != nil {
		return err
	}
	for _, k := range t.keys {
		if err := b.Key(k); err != nil {
			return err
		}
		if err := buildTOMLValue(t.vals[k], b); err != nil {
			return err
		}
	}
	return b.CloseObject()
}

func buildTOMLValue(v *tomlValue, b *fionn.TapeBuilder) error {
	if v.scalar != nil {
		switch v.scalar.Kind {
		case fionn.KindString:
			return b.String(v.scalar.Str)
		case fionn.KindBool:
			return b.Bool(v.scalar.Bool)
		case fionn.KindNumber:
			return b.Number(v.scalar.Str)
		default:
			return b.Null()
		}
	}
	if v.table != nil {
		return buildTOMLTable(v.table, b)
	}
	if v.tables != nil {
		if err := b.OpenArray(); err != nil {
			return err
		}
		for _, nt := range v.tables {
			if err := buildTOMLTable(nt, b); err != nil {
				return err
			}
		}
		return b.CloseArray()
	}
	if err := b.OpenArray(); err != nil {
		return err
	}
	for i := range v.array {
		if err := buildTOMLValue(&v.array[i], b); err != nil {
			return err
		}
	}
	return b.CloseArray()
}

// TOMLEmit serializes t to TOML. TOML has no non-table root, so a
// tape rooted at anything but an object is rejected with
// UnrepresentableRoot rather than silently wrapped. Emission still uses
// go-toml/v2's Marshal: unlike parsing, round-tripping through a generic
// value here only ever touches the fresh, wholly-owned output of ValueAt,
// not a document whose existing key order must be preserved in place.
func TOMLEmit(t *fionn.Tape) ([]byte, error) {
	root := t.NodeAt(t.Root())
	if root.Kind != fionn.KindObjectStart {
		return nil, fionn.NewError(fionn.UnrepresentableRoot, "toml", t.Root(), "TOML root must be a table")
	}
	v := fionn.ValueAt(t, t.Root())
	out, err := toml.Marshal(v)
	if err != nil {
		return nil, fionn.NewError(fionn.Malformed, "toml", 0, err.Error())
	}
	return out, nil
}
