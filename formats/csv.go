package formats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/darach/fionn-sub000"
)

func init() {
	Register("csv", CSVParse, CSVEmit)
}

// CSVParse is the CSV front-end: the header row supplies field names and
// their column order, every subsequent row becomes one object keyed by
// that header in that order, cell values are carried as strings (CSV has
// no native type system, so typing them here would be guessing). It
// drives fionn.TapeBuilder directly off the header and rows as read,
// rather than building a map[string]any per row: a Go map has no order,
// so routing through one (as fionn.NodesFromValue's map[string]any
// contract requires) would silently alphabetize a header like
// "name,id" into "id,name". This uses encoding/csv rather than an
// ecosystem CSV library; see DESIGN.md for why.
//
// Per spec.md §4.2, the delimiter is auto-detected by ranking candidates
// on per-line field-count variance over the leading lines
// (detectCSVDelimiter), and a header-less input falls back to synthesized
// col_1, col_2, … keys (detectCSVHeader) instead of treating the first
// data row as field names.
func CSVParse(buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	if err := limits.CheckBytes("csv", len(buf)); err != nil {
		return nil, err
	}
	delim := detectCSVDelimiter(buf)
	r := csv.NewReader(bytes.NewReader(buf))
	r.Comma = delim
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fionn.NewError(fionn.Malformed, "csv", 0, err.Error())
	}
	if len(rows) == 0 {
		return fionn.NewTapeFromNodes([]fionn.Node{{Kind: fionn.KindArrayStart}, {Kind: fionn.KindArrayEnd}})
	}

	var header []string
	var dataRows [][]string
	if detectCSVHeader(rows) {
		header = rows[0]
		dataRows = rows[1:]
	} else {
		header = syntheticCSVHeader(len(rows[0]))
		dataRows = rows
	}

	b := fionn.NewTapeBuilder("csv", limits)
	if err := b.OpenArray(); err != nil {
		return nil, err
	}
	for _, rec := range dataRows {
		if err := b.OpenObject(); err != nil {
			return nil, err
		}
		for i, col := range header {
			if err := b.Key(col); err != nil {
				return nil, err
			}
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			if err := b.String(cell); err != nil {
				return nil, err
			}
		}
		if err := b.CloseObject(); err != nil {
			return nil, err
		}
	}
	if err := b.CloseArray(); err != nil {
		return nil, err
	}
	return b.Build(buf)
}

// syntheticCSVHeader synthesizes col_1..col_n keys for a header-less input,
// per spec.md §4.2's "auto-numbered col_k if absent".
func syntheticCSVHeader(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("col_%d", i+1)
	}
	return out
}

// csvDelimiterCandidates are the delimiters detectCSVDelimiter ranks
// against each other; comma is the tie-break default when no candidate is
// present or all are equally stable.
var csvDelimiterCandidates = []rune{',', ';', '\t', '|'}

// csvSniffLines caps how many leading non-blank lines delimiter detection
// inspects, per spec.md §4.2's "over the first N lines."
const csvSniffLines = 20

// detectCSVDelimiter ranks each candidate delimiter by the variance of its
// per-line occurrence count across the leading lines of buf: a real
// delimiter shows up the same number of times on every row (one less than
// the column count), so the candidate with the lowest variance — among
// those that appear at all — wins. Ties favor the earlier candidate in
// csvDelimiterCandidates, comma first.
func detectCSVDelimiter(buf []byte) rune {
	lines := leadingNonBlankLines(buf, csvSniffLines)
	if len(lines) == 0 {
		return ','
	}
	best := csvDelimiterCandidates[0]
	bestVariance := 0.0
	found := false
	for _, d := range csvDelimiterCandidates {
		counts := make([]float64, len(lines))
		present := false
		for i, line := range lines {
			n := bytes.Count(line, []byte(string(d)))
			counts[i] = float64(n)
			if n > 0 {
				present = true
			}
		}
		if !present {
			continue
		}
		v := variance(counts)
		if !found || v < bestVariance {
			best, bestVariance, found = d, v, true
		}
	}
	return best
}

// leadingNonBlankLines returns up to n non-blank lines from the start of
// buf, splitting on '\n' without interpreting quoting (a sniff over raw
// bytes, not a full CSV parse).
func leadingNonBlankLines(buf []byte, n int) [][]byte {
	var out [][]byte
	start := 0
	for i := 0; i < len(buf) && len(out) < n; i++ {
		if buf[i] != '\n' {
			continue
		}
		line := bytes.TrimRight(buf[start:i], "\r")
		if len(bytes.TrimSpace(line)) > 0 {
			out = append(out, line)
		}
		start = i + 1
	}
	if len(out) < n && start < len(buf) {
		line := bytes.TrimRight(buf[start:], "\r")
		if len(bytes.TrimSpace(line)) > 0 {
			out = append(out, line)
		}
	}
	return out
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	sum := 0.0
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}

// detectCSVHeader reports whether rows[0] is a header row rather than a
// data row, by checking each column for a shape mismatch between rows[0]
// and the majority shape ("looks numeric" or not) of that column across
// the remaining rows — the same column-type-divergence idea behind
// Python's csv.Sniffer.has_header. With fewer than two rows there's no
// data to compare against, so the existing default (treat row 0 as a
// header) holds.
func detectCSVHeader(rows [][]string) bool {
	if len(rows) < 2 {
		return true
	}
	cols := len(rows[0])
	for c := 0; c < cols; c++ {
		numeric, dataRows := 0, 0
		for _, row := range rows[1:] {
			if c >= len(row) {
				continue
			}
			dataRows++
			if looksNumericCell(row[c]) {
				numeric++
			}
		}
		if dataRows == 0 {
			continue
		}
		headerNumeric := looksNumericCell(rows[0][c])
		dataMostlyNumeric := float64(numeric)/float64(dataRows) > 0.5
		if headerNumeric != dataMostlyNumeric {
			return true
		}
	}
	return false
}

func looksNumericCell(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// CSVEmit serializes t to CSV. t's root must be an array of objects
// that all share the same flat key set (in the first row's order); a
// heterogeneous array or any non-scalar cell fails with NonTabular rather
// than guessing a column layout.
func CSVEmit(t *fionn.Tape) ([]byte, error) {
	root := t.NodeAt(t.Root())
	if root.Kind != fionn.KindArrayStart {
		return nil, fionn.NewError(fionn.NonTabular, "csv", t.Root(), "CSV root must be an array of objects")
	}
	rowIdx := t.Children(t.Root())
	if len(rowIdx) == 0 {
		return []byte{}, nil
	}

	firstKeys, err := csvObjectKeys(t, rowIdx[0])
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(firstKeys); err != nil {
		return nil, fionn.NewError(fionn.Malformed, "csv", 0, err.Error())
	}
	for _, ri := range rowIdx {
		keys, err := csvObjectKeys(t, ri)
		if err != nil {
			return nil, err
		}
		if !stringSliceEqual(keys, firstKeys) {
			return nil, fionn.NewError(fionn.NonTabular, "csv", ri, "rows do not share a uniform key set")
		}
		cells, err := csvRowCells(t, ri, firstKeys)
		if err != nil {
			return nil, err
		}
		if err := w.Write(cells); err != nil {
			return nil, fionn.NewError(fionn.Malformed, "csv", 0, err.Error())
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fionn.NewError(fionn.Malformed, "csv", 0, err.Error())
	}
	return buf.Bytes(), nil
}

func csvObjectKeys(t *fionn.Tape, objIdx int) ([]string, error) {
	n := t.NodeAt(objIdx)
	if n.Kind != fionn.KindObjectStart {
		return nil, fionn.NewError(fionn.NonTabular, "csv", objIdx, "row is not an object")
	}
	children := t.Children(objIdx)
	keys := make([]string, len(children))
	for i, c := range children {
		k, _ := t.KeyAt(c)
		keys[i] = k
	}
	return keys, nil
}

func csvRowCells(t *fionn.Tape, objIdx int, keys []string) ([]string, error) {
	children := t.Children(objIdx)
	if len(children) != len(keys) {
		return nil, fionn.NewError(fionn.NonTabular, "csv", objIdx, "row key count mismatch")
	}
	cells := make([]string, len(children))
	for i, c := range children {
		n := t.NodeAt(c)
		if !n.Kind.IsScalar() {
			return nil, fionn.NewError(fionn.NonTabular, "csv", c, "CSV cells must be scalar")
		}
		cells[i] = csvScalarString(n)
	}
	return cells, nil
}

func csvScalarString(n fionn.Node) string {
	switch n.Kind {
	case fionn.KindNull:
		return ""
	case fionn.KindBool:
		if n.Bool {
			return "true"
		}
		return "false"
	default:
		return n.Str
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
