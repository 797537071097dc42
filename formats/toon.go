package formats

import (
	"strconv"
	"strings"

	"github.com/darach/fionn-sub000"
)

func init() {
	Register("toon", TOONParse, TOONEmit)
}

// TOON (Token-Oriented Object Notation) is a tabular format named
// alongside ISON: an array of uniform objects is written as a
// length-and-field-list header followed by one comma-separated,
// 2-space-indented row per element, e.g.
//
//	[3]{id,name,active}:
//	  1,Alice,true
//	  2,Bob,false
//	  3,Carol,true
//
// which is CSV's "uniform rows" contract with a more token-efficient
// header, the stated design goal of the format.

// TOONParse drives fionn.TapeBuilder directly in the header's declared
// field order, rather than building a map[string]any per row: a Go map
// carries no order, so routing through one (as fionn.NodesFromValue's
// map[string]any contract requires) would silently alphabetize a header
// like "[2]{name,id}:" into "id,name".
func TOONParse(buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	if err := limits.CheckBytes("toon", len(buf)); err != nil {
		return nil, err
	}
	lines := strings.Split(string(buf), "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return fionn.NewTapeFromNodes([]fionn.Node{{Kind: fionn.KindArrayStart}, {Kind: fionn.KindArrayEnd}})
	}
	count, fields, err := parseTOONHeader(strings.TrimSpace(lines[i]), i)
	if err != nil {
		return nil, err
	}
	i++

	b := fionn.NewTapeBuilder("toon", limits)
	if err := b.OpenArray(); err != nil {
		return nil, err
	}
	rowCount := 0
	for ; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "" {
			continue
		}
		cells := splitTOONRow(t)
		if len(cells) != len(fields) {
			return nil, fionn.NewError(fionn.Malformed, "toon", i, "row has wrong cell count")
		}
		if err := b.OpenObject(); err != nil {
			return nil, err
		}
		for j, f := range fields {
			if err := b.Key(f); err != nil {
				return nil, err
			}
			if err := writeTOONCell(b, cells[j]); err != nil {
				return nil, err
			}
		}
		if err := b.CloseObject(); err != nil {
			return nil, err
		}
		rowCount++
	}
	if rowCount != count {
		return nil, fionn.NewError(fionn.Malformed, "toon", i, "declared row count does not match body")
	}
	if err := b.CloseArray(); err != nil {
		return nil, err
	}
	return b.Build(buf)
}

func writeTOONCell(b *fionn.TapeBuilder, s string) error {
	switch {
	case s == "true":
		return b.Bool(true)
	case s == "false":
		return b.Bool(false)
	case s == "":
		return b.Null()
	default:
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return b.Number(s)
		}
		return b.String(s)
	}
}

func parseTOONHeader(line string, lineNo int) (int, []string, error) {
	line = strings.TrimSuffix(line, ":")
	lb := strings.IndexByte(line, '[')
	rb := strings.IndexByte(line, ']')
	lc := strings.IndexByte(line, '{')
	rc := strings.LastIndexByte(line, '}')
	if lb != 0 || rb < 0 || lc < 0 || rc < 0 || rc < lc {
		return 0, nil, fionn.NewError(fionn.Malformed, "toon", lineNo, "expected [N]{fields}: header")
	}
	count, err := strconv.Atoi(line[lb+1 : rb])
	if err != nil {
		return 0, nil, fionn.NewError(fionn.Malformed, "toon", lineNo, "invalid row count in header")
	}
	fieldList := line[lc+1 : rc]
	var fields []string
	if fieldList != "" {
		fields = strings.Split(fieldList, ",")
	}
	return count, fields, nil
}

func splitTOONRow(line string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cur.String())
	return out
}

// TOONEmit serializes t to TOON. t's root must be an array of objects
// sharing a uniform key set, exactly like CSVEmit's contract.
func TOONEmit(t *fionn.Tape) ([]byte, error) {
	root := t.NodeAt(t.Root())
	if root.Kind != fionn.KindArrayStart {
		return nil, fionn.NewError(fionn.NonTabular, "toon", t.Root(), "TOON root must be an array of objects")
	}
	rowIdx := t.Children(t.Root())
	var sb strings.Builder
	if len(rowIdx) == 0 {
		sb.WriteString("[0]{}:\n")
		return []byte(sb.String()), nil
	}

	firstKeys, err := csvObjectKeys(t, rowIdx[0])
	if err != nil {
		return nil, fionn.NewError(fionn.NonTabular, "toon", rowIdx[0], err.Error())
	}
	sb.WriteString("[")
	sb.WriteString(strconv.Itoa(len(rowIdx)))
	sb.WriteString("]{")
	sb.WriteString(strings.Join(firstKeys, ","))
	sb.WriteString("}:\n")

	for _, ri := range rowIdx {
		keys, err := csvObjectKeys(t, ri)
		if err != nil || !stringSliceEqual(keys, firstKeys) {
			return nil, fionn.NewError(fionn.NonTabular, "toon", ri, "rows do not share a uniform key set")
		}
		cells, err := csvRowCells(t, ri, firstKeys)
		if err != nil {
			return nil, err
		}
		sb.WriteString("  ")
		sb.WriteString(strings.Join(cells, ","))
		sb.WriteByte('\n')
	}
	return []byte(sb.String()), nil
}
