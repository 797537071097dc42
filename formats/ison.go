package formats

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/darach/fionn-sub000"
)

func init() {
	Register("ison", ISONParse, ISONEmit)
}

// ISON (Interchange Simple Object Notation) is a block-structured,
// space-delimited format supplemented from the original Rust
// implementation's formats/ison.rs, not present in the distilled spec:
// "table.NAME"/"object.NAME" block headers, a field-declaration row
// naming each column and optionally its type (name:int, name:float,
// name:bool; untyped columns default to string), data rows, and an
// optional "---" summary marker closing a block. The tape has no
// separate typed-number node, so a column declared int/float keeps its
// type tag folded into the Number node's lexeme suffix ("42i", "3.14f"),
// exactly the "typed lexeme" convention SPEC_FULL.md calls for.

type isonField struct {
	name string
	kind byte // 'i' int, 'f' float, 'b' bool, 's' string (default)
}

// ISONParse is the ISON front-end. The root tape is an
// object mapping each block name to an array of row-objects (table blocks)
// or a single row-object (object blocks).
func ISONParse(buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	if err := limits.CheckBytes("ison", len(buf)); err != nil {
		return nil, err
	}
	lines := strings.Split(string(buf), "\n")

	b := fionn.NewTapeBuilder("ison", limits)
	if err := b.OpenObject(); err != nil {
		return nil, err
	}

	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isISONComment(trimmed) || isISONSummary(trimmed) {
			i++
			continue
		}
		kind, name, ok := parseISONBlockHeader(trimmed)
		if !ok {
			return nil, fionn.NewError(fionn.Malformed, "ison", i, "expected block header, got: "+trimmed)
		}
		i++
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
		if i >= len(lines) {
			return nil, fionn.NewError(fionn.Malformed, "ison", i, "block "+name+" has no field declaration")
		}
		fields := parseISONFieldDecl(lines[i])
		i++

		var rows [][]string
		for i < len(lines) {
			raw := strings.TrimRight(lines[i], "\r")
			t := strings.TrimSpace(raw)
			if t == "" || isISONSummary(t) {
				i++
				break
			}
			if isISONComment(t) {
				i++
				continue
			}
			if _, _, ok := parseISONBlockHeader(t); ok {
				break
			}
			values := parseISONDataRow(raw)
			if len(values) != len(fields) {
				return nil, fionn.NewError(fionn.Malformed, "ison", i,
					fmt.Sprintf("field count mismatch: expected %d, got %d", len(fields), len(values)))
			}
			rows = append(rows, values)
			i++
		}

		if err := b.Key(name); err != nil {
			return nil, err
		}
		if kind == "object" {
			if len(rows) == 0 {
				if err := b.OpenObject(); err != nil {
					return nil, err
				}
				if err := b.CloseObject(); err != nil {
					return nil, err
				}
			} else if err := buildISONRow(b, fields, rows[0], i); err != nil {
				return nil, err
			}
		} else {
			if err := b.OpenArray(); err != nil {
				return nil, err
			}
			for _, row := range rows {
				if err := buildISONRow(b, fields, row, i); err != nil {
					return nil, err
				}
			}
			if err := b.CloseArray(); err != nil {
				return nil, err
			}
		}
	}

	if err := b.CloseObject(); err != nil {
		return nil, err
	}
	return b.Build(buf)
}

func isISONComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func isISONSummary(line string) bool {
	return strings.Trim(line, " \t") == "---"
}

func parseISONBlockHeader(line string) (kind, name string, ok bool) {
	if n, found := strings.CutPrefix(line, "table."); found {
		return "table", strings.Fields(n)[0], true
	}
	if n, found := strings.CutPrefix(line, "object."); found {
		return "object", strings.Fields(n)[0], true
	}
	return "", "", false
}

func parseISONFieldDecl(line string) []isonField {
	parts := strings.Fields(line)
	fields := make([]isonField, len(parts))
	for i, p := range parts {
		name, typ, has := strings.Cut(p, ":")
		k := byte('s')
		if has {
			switch typ {
			case "int":
				k = 'i'
			case "float":
				k = 'f'
			case "bool":
				k = 'b'
			default:
				k = 's'
			}
		}
		fields[i] = isonField{name: name, kind: k}
	}
	return fields
}

// parseISONDataRow splits a data row on spaces, keeping quoted segments
// (which may contain spaces) intact, mirroring ison.rs's parse_data_row.
func parseISONDataRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	var values []string
	var cur strings.Builder
	inQuote := false
	for _, r := range trimmed {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ' ' && !inQuote:
			if cur.Len() > 0 {
				values = append(values, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		values = append(values, cur.String())
	}
	return values
}

// buildISONRow writes one row as an object onto b, in field-declaration
// order, typing each cell per its column's declared kind.
func buildISONRow(b *fionn.TapeBuilder, fields []isonField, values []string, line int) error {
	if len(values) != len(fields) {
		return fionn.NewError(fionn.Malformed, "ison", line,
			fmt.Sprintf("field count mismatch: expected %d, got %d", len(fields), len(values)))
	}
	if err := b.OpenObject(); err != nil {
		return err
	}
	for i, f := range fields {
		v := values[i]
		if err := b.Key(f.name); err != nil {
			return err
		}
		switch f.kind {
		case 'i':
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				return fionn.NewError(fionn.Malformed, "ison", line, "invalid int in column "+f.name)
			}
			if err := b.Number(v + "i"); err != nil {
				return err
			}
		case 'f':
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fionn.NewError(fionn.Malformed, "ison", line, "invalid float in column "+f.name)
			}
			if err := b.Number(v + "f"); err != nil {
				return err
			}
		case 'b':
			bv, err := strconv.ParseBool(v)
			if err != nil {
				return fionn.NewError(fionn.Malformed, "ison", line, "invalid bool in column "+f.name)
			}
			if err := b.Bool(bv); err != nil {
				return err
			}
		default:
			if err := b.String(strings.Trim(v, `"`)); err != nil {
				return err
			}
		}
	}
	return b.CloseObject()
}

// ISONEmit serializes t back to ISON. t's root must be an object whose
// values are either arrays of uniform objects (table blocks) or plain
// objects (object blocks); anything else is UnrepresentableRoot.
func ISONEmit(t *fionn.Tape) ([]byte, error) {
	root := t.NodeAt(t.Root())
	if root.Kind != fionn.KindObjectStart {
		return nil, fionn.NewError(fionn.UnrepresentableRoot, "ison", t.Root(), "ISON root must be an object of blocks")
	}
	var sb strings.Builder
	children := t.Children(t.Root())
	for bi, ci := range children {
		name, _ := t.KeyAt(ci)
		blockNode := t.NodeAt(ci)
		switch blockNode.Kind {
		case fionn.KindArrayStart:
			rows := t.Children(ci)
			sb.WriteString("table.")
			sb.WriteString(name)
			sb.WriteByte('\n')
			if err := writeISONRows(&sb, t, rows); err != nil {
				return nil, err
			}
		case fionn.KindObjectStart:
			sb.WriteString("object.")
			sb.WriteString(name)
			sb.WriteByte('\n')
			if err := writeISONRows(&sb, t, []int{ci}); err != nil {
				return nil, err
			}
		default:
			return nil, fionn.NewError(fionn.UnrepresentableRoot, "ison", ci, "ISON block "+name+" must be an object or array of objects")
		}
		sb.WriteString("---\n")
		if bi != len(children)-1 {
			sb.WriteByte('\n')
		}
	}
	return []byte(sb.String()), nil
}

func writeISONRows(sb *strings.Builder, t *fionn.Tape, rows []int) error {
	if len(rows) == 0 {
		return nil
	}
	firstFields := t.Children(rows[0])
	names := make([]string, len(firstFields))
	kinds := make([]byte, len(firstFields))
	for i, fi := range firstFields {
		k, _ := t.KeyAt(fi)
		names[i] = k
		kinds[i] = isonColumnKind(t.NodeAt(fi))
	}
	for i, n := range names {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(n)
		switch kinds[i] {
		case 'i':
			sb.WriteString(":int")
		case 'f':
			sb.WriteString(":float")
		case 'b':
			sb.WriteString(":bool")
		}
	}
	sb.WriteByte('\n')

	for _, ri := range rows {
		fields := t.Children(ri)
		if len(fields) != len(names) {
			return fionn.NewError(fionn.NonTabular, "ison", ri, "row does not match the block's field declaration")
		}
		for i, fi := range fields {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(isonCellString(t.NodeAt(fi)))
		}
		sb.WriteByte('\n')
	}
	return nil
}

func isonColumnKind(n fionn.Node) byte {
	if n.Kind == fionn.KindBool {
		return 'b'
	}
	if n.Kind == fionn.KindNumber {
		if strings.HasSuffix(n.Str, "i") {
			return 'i'
		}
		if strings.HasSuffix(n.Str, "f") {
			return 'f'
		}
	}
	return 's'
}

func isonCellString(n fionn.Node) string {
	switch n.Kind {
	case fionn.KindBool:
		if n.Bool {
			return "true"
		}
		return "false"
	case fionn.KindNumber:
		return strings.TrimSuffix(strings.TrimSuffix(n.Str, "i"), "f")
	case fionn.KindString:
		if strings.ContainsRune(n.Str, ' ') {
			return `"` + n.Str + `"`
		}
		return n.Str
	default:
		return ""
	}
}
