package fionn

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Apply applies patch to doc under RFC 6902 strict semantics: any
// operation that cannot be satisfied fails the whole patch, and doc itself
// is left untouched because every mutation runs against a deep clone
// first, so intermediate mutations from earlier ops in a failed patch are
// rolled back along with the failing one.
func Apply(doc any, patch Patch) (any, error) {
	cur := deepCloneValue(doc)
	for _, op := range patch {
		var err error
		cur, err = applyOne(cur, op)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// ApplyToTape is Apply specialized to tapes: unlike Apply, it never
// materializes the document as a generic value. Each op rebuilds only the
// node range spanning the path it touches, splicing that range into an
// otherwise verbatim copy of the rest of the tape, so every key order and
// number lexeme outside the patched subtree survives untouched — the same
// discipline Diff already follows when comparing two tapes directly.
func ApplyToTape(tapeA *Tape, patch Patch) (*Tape, error) {
	cur := tapeA
	for _, op := range patch {
		next, err := applyOneTape(cur, op)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func applyOneTape(t *Tape, op PatchOp) (*Tape, error) {
	switch op.Op {
	case "add":
		return tapeApplySet(t, op.Path, nodesFromValue(op.Value), true)
	case "replace":
		return tapeApplySet(t, op.Path, nodesFromValue(op.Value), false)
	case "remove":
		return tapeApplyRemove(t, op.Path)
	case "move":
		moved, err := tapeValueNodes(t, op.From)
		if err != nil {
			return nil, err
		}
		removed, err := tapeApplyRemove(t, op.From)
		if err != nil {
			return nil, err
		}
		return tapeApplySet(removed, op.Path, moved, true)
	case "copy":
		copied, err := tapeValueNodes(t, op.From)
		if err != nil {
			return nil, err
		}
		return tapeApplySet(t, op.Path, copied, true)
	case "test":
		idx, err := tapeResolveIndex(t, op.Path)
		if err != nil {
			return nil, err
		}
		scratch, err := NewTapeFromNodes(nodesFromValue(op.Value))
		if err != nil {
			return nil, err
		}
		if structuralHash(t, idx) != structuralHash(scratch, scratch.Root()) {
			return nil, newError(TestFailed, "", 0, "test failed at "+op.Path)
		}
		return t, nil
	default:
		return nil, newError(Malformed, "patch", 0, "unknown op "+op.Op)
	}
}

// navigateContainer walks t from the root through segs, each of which must
// resolve to an existing container, returning the index of the final one.
// It is used to find the parent container of a JSON Pointer's last segment.
func navigateContainer(t *Tape, segs []string, path string) (int, error) {
	idx := t.Root()
	for _, seg := range segs {
		n := t.NodeAt(idx)
		switch n.Kind {
		case KindObjectStart:
			next, ok := resolveField(t, idx, n, seg)
			if !ok {
				return 0, newError(MissingTarget, "", 0, "missing parent at "+path)
			}
			idx = next
		case KindArrayStart:
			k, err := strconv.Atoi(seg)
			if err != nil {
				return 0, newError(TypeMismatch, "", 0, "non-numeric array index at "+path)
			}
			next, ok := resolveIndex(t, idx, n, k)
			if !ok {
				return 0, newError(MissingTarget, "", 0, "index out of range at "+path)
			}
			idx = next
		default:
			return 0, newError(TypeMismatch, "", 0, "cannot descend into scalar at "+path)
		}
	}
	return idx, nil
}

// tapeResolveIndex returns the node index addressed by a JSON Pointer path,
// used by move/copy/test, which read a value without rebuilding the tape.
func tapeResolveIndex(t *Tape, path string) (int, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return t.Root(), nil
	}
	parentIdx, err := navigateContainer(t, segs[:len(segs)-1], path)
	if err != nil {
		return 0, err
	}
	last := segs[len(segs)-1]
	n := t.NodeAt(parentIdx)
	switch n.Kind {
	case KindObjectStart:
		v, ok := resolveField(t, parentIdx, n, last)
		if !ok {
			return 0, newError(MissingTarget, "", 0, "missing path "+path)
		}
		return v, nil
	case KindArrayStart:
		k, err := strconv.Atoi(last)
		if err != nil {
			return 0, newError(TypeMismatch, "", 0, "non-numeric array index at "+path)
		}
		v, ok := resolveIndex(t, parentIdx, n, k)
		if !ok {
			return 0, newError(MissingTarget, "", 0, "index out of range at "+path)
		}
		return v, nil
	default:
		return 0, newError(TypeMismatch, "", 0, "cannot index into scalar at "+path)
	}
}

// tapeValueNodes returns an independent copy of the node range addressed
// by path, for use as the payload of a move/copy op.
func tapeValueNodes(t *Tape, path string) ([]Node, error) {
	idx, err := tapeResolveIndex(t, path)
	if err != nil {
		return nil, err
	}
	return copyNodeRange(t, idx, t.SkipValue(idx)), nil
}

// tapeApplySet implements "add"/"replace": it rebuilds the full document
// with valueNodes spliced in at path, copying every sibling subtree the
// path doesn't touch verbatim. allowAppend selects "add" semantics (a new
// object key is appended, "-" or an in-range array index inserts) over
// "replace" semantics (the target must already exist, and an array index
// replaces in place).
func tapeApplySet(t *Tape, path string, valueNodes []Node, allowAppend bool) (*Tape, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return NewTapeFromNodes(valueNodes)
	}
	nodes, err := spliceContainerSet(t, t.Root(), segs, valueNodes, allowAppend, path)
	if err != nil {
		return nil, err
	}
	return NewTapeFromNodes(nodes)
}

func spliceContainerSet(t *Tape, idx int, segs []string, valueNodes []Node, allowAppend bool, path string) ([]Node, error) {
	n := t.NodeAt(idx)
	seg, rest := segs[0], segs[1:]
	switch n.Kind {
	case KindObjectStart:
		return spliceObjectSet(t, idx, n, seg, rest, valueNodes, allowAppend, path)
	case KindArrayStart:
		return spliceArraySet(t, idx, n, seg, rest, valueNodes, allowAppend, path)
	default:
		return nil, newError(TypeMismatch, "", 0, "cannot descend into scalar at "+path)
	}
}

func spliceObjectSet(t *Tape, idx int, n Node, seg string, rest []string, valueNodes []Node, allowAppend bool, path string) ([]Node, error) {
	j := idx + 1
	var body []Node
	matched := false
	for i := 0; i < n.Count; i++ {
		key := t.NodeAt(j)
		valIdx := j + 1
		valEnd := t.SkipValue(valIdx)
		if key.Str == seg {
			matched = true
			body = append(body, keyNode(seg))
			if len(rest) == 0 {
				body = append(body, valueNodes...)
			} else {
				childNodes, err := spliceContainerSet(t, valIdx, rest, valueNodes, allowAppend, path)
				if err != nil {
					return nil, err
				}
				body = append(body, childNodes...)
			}
		} else {
			body = append(body, copyNodeRange(t, j, valEnd)...)
		}
		j = valEnd
	}
	count := n.Count
	if !matched {
		if len(rest) != 0 {
			return nil, newError(MissingTarget, "", 0, "missing parent at "+path)
		}
		if !allowAppend {
			return nil, newError(MissingTarget, "", 0, "missing target at "+path)
		}
		body = append(body, keyNode(seg))
		body = append(body, valueNodes...)
		count++
	}
	out := make([]Node, 0, len(body)+2)
	out = append(out, Node{Kind: KindObjectStart, Count: count})
	out = append(out, body...)
	out = append(out, Node{Kind: KindObjectEnd})
	return out, nil
}

func spliceArraySet(t *Tape, idx int, n Node, seg string, rest []string, valueNodes []Node, allowAppend bool, path string) ([]Node, error) {
	children := t.Children(idx)
	var k int
	if seg == "-" {
		if len(rest) != 0 {
			return nil, newError(MissingTarget, "", 0, "'-' must be the final path segment at "+path)
		}
		if !allowAppend {
			return nil, newError(TypeMismatch, "", 0, "'-' is not valid for replace at "+path)
		}
		k = len(children)
	} else {
		n2, err := strconv.Atoi(seg)
		if err != nil {
			return nil, newError(TypeMismatch, "", 0, "non-numeric array index at "+path)
		}
		k = n2
	}

	var body []Node
	count := len(children)
	if len(rest) == 0 {
		if allowAppend {
			if k < 0 || k > len(children) {
				return nil, newError(MissingTarget, "", 0, "index out of range at "+path)
			}
			for i, c := range children {
				if i == k {
					body = append(body, valueNodes...)
				}
				body = append(body, copyNodeRange(t, c, t.SkipValue(c))...)
			}
			if k == len(children) {
				body = append(body, valueNodes...)
			}
			count = len(children) + 1
		} else {
			if k < 0 || k >= len(children) {
				return nil, newError(MissingTarget, "", 0, "index out of range at "+path)
			}
			for i, c := range children {
				if i == k {
					body = append(body, valueNodes...)
				} else {
					body = append(body, copyNodeRange(t, c, t.SkipValue(c))...)
				}
			}
		}
	} else {
		if k < 0 || k >= len(children) {
			return nil, newError(MissingTarget, "", 0, "index out of range at "+path)
		}
		for i, c := range children {
			if i == k {
				childNodes, err := spliceContainerSet(t, c, rest, valueNodes, allowAppend, path)
				if err != nil {
					return nil, err
				}
				body = append(body, childNodes...)
			} else {
				body = append(body, copyNodeRange(t, c, t.SkipValue(c))...)
			}
		}
	}

	out := make([]Node, 0, len(body)+2)
	out = append(out, Node{Kind: KindArrayStart, Count: count})
	out = append(out, body...)
	out = append(out, Node{Kind: KindArrayEnd})
	return out, nil
}

// tapeApplyRemove implements "remove": it rebuilds the full document with
// the subtree at path dropped, copying every other subtree verbatim.
func tapeApplyRemove(t *Tape, path string) (*Tape, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return nil, newError(Malformed, "patch", 0, "cannot remove root")
	}
	nodes, err := spliceContainerRemove(t, t.Root(), segs, path)
	if err != nil {
		return nil, err
	}
	return NewTapeFromNodes(nodes)
}

func spliceContainerRemove(t *Tape, idx int, segs []string, path string) ([]Node, error) {
	n := t.NodeAt(idx)
	seg, rest := segs[0], segs[1:]
	switch n.Kind {
	case KindObjectStart:
		return spliceObjectRemove(t, idx, n, seg, rest, path)
	case KindArrayStart:
		return spliceArrayRemove(t, idx, n, seg, rest, path)
	default:
		return nil, newError(TypeMismatch, "", 0, "cannot descend into scalar at "+path)
	}
}

func spliceObjectRemove(t *Tape, idx int, n Node, seg string, rest []string, path string) ([]Node, error) {
	j := idx + 1
	var body []Node
	matched := false
	count := 0
	for i := 0; i < n.Count; i++ {
		key := t.NodeAt(j)
		valIdx := j + 1
		valEnd := t.SkipValue(valIdx)
		switch {
		case key.Str == seg && len(rest) == 0:
			matched = true
		case key.Str == seg:
			matched = true
			childNodes, err := spliceContainerRemove(t, valIdx, rest, path)
			if err != nil {
				return nil, err
			}
			body = append(body, keyNode(seg))
			body = append(body, childNodes...)
			count++
		default:
			body = append(body, copyNodeRange(t, j, valEnd)...)
			count++
		}
		j = valEnd
	}
	if !matched {
		return nil, newError(MissingTarget, "", 0, "missing path "+path)
	}
	out := make([]Node, 0, len(body)+2)
	out = append(out, Node{Kind: KindObjectStart, Count: count})
	out = append(out, body...)
	out = append(out, Node{Kind: KindObjectEnd})
	return out, nil
}

func spliceArrayRemove(t *Tape, idx int, n Node, seg string, rest []string, path string) ([]Node, error) {
	children := t.Children(idx)
	k, err := strconv.Atoi(seg)
	if err != nil {
		return nil, newError(TypeMismatch, "", 0, "non-numeric array index at "+path)
	}
	if k < 0 || k >= len(children) {
		return nil, newError(MissingTarget, "", 0, "index out of range at "+path)
	}
	var body []Node
	count := 0
	for i, c := range children {
		end := t.SkipValue(c)
		if i == k {
			if len(rest) != 0 {
				childNodes, err := spliceContainerRemove(t, c, rest, path)
				if err != nil {
					return nil, err
				}
				body = append(body, childNodes...)
				count++
			}
			continue
		}
		body = append(body, copyNodeRange(t, c, end)...)
		count++
	}
	out := make([]Node, 0, len(body)+2)
	out = append(out, Node{Kind: KindArrayStart, Count: count})
	out = append(out, body...)
	out = append(out, Node{Kind: KindArrayEnd})
	return out, nil
}

func applyOne(doc any, op PatchOp) (any, error) {
	switch op.Op {
	case "add":
		return pointerSet(doc, op.Path, op.Value, true)
	case "remove":
		return pointerRemove(doc, op.Path)
	case "replace":
		return pointerSet(doc, op.Path, op.Value, false)
	case "move":
		v, err := pointerGet(doc, op.From)
		if err != nil {
			return nil, err
		}
		doc, err = pointerRemove(doc, op.From)
		if err != nil {
			return nil, err
		}
		return pointerSet(doc, op.Path, v, true)
	case "copy":
		v, err := pointerGet(doc, op.From)
		if err != nil {
			return nil, err
		}
		return pointerSet(doc, op.Path, deepCloneValue(v), true)
	case "test":
		v, err := pointerGet(doc, op.Path)
		if err != nil {
			return nil, err
		}
		if !valuesDeepEqual(v, op.Value) {
			return nil, newError(TestFailed, "", 0, "test failed at "+op.Path)
		}
		return doc, nil
	default:
		return nil, newError(Malformed, "patch", 0, "unknown op "+op.Op)
	}
}

func splitPointer(p string) []string {
	if p == "" {
		return nil
	}
	var out []string
	seg := ""
	for i := 1; i < len(p); i++ { // p[0] == '/'
		c := p[i]
		if c == '/' {
			out = append(out, unescapePointerSeg(seg))
			seg = ""
			continue
		}
		seg += string(c)
	}
	out = append(out, unescapePointerSeg(seg))
	return out
}

func unescapePointerSeg(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '~' && i+1 < len(s) {
			switch s[i+1] {
			case '0':
				out = append(out, '~')
				i++
				continue
			case '1':
				out = append(out, '/')
				i++
				continue
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

func pointerGet(doc any, path string) (any, error) {
	segs := splitPointer(path)
	cur := doc
	for _, s := range segs {
		switch v := cur.(type) {
		case map[string]any:
			nv, ok := v[s]
			if !ok {
				return nil, newError(MissingTarget, "", 0, "missing path "+path)
			}
			cur = nv
		case []any:
			idx, err := strconv.Atoi(s)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, newError(MissingTarget, "", 0, "missing path "+path)
			}
			cur = v[idx]
		default:
			return nil, newError(TypeMismatch, "", 0, "cannot index into scalar at "+path)
		}
	}
	return cur, nil
}

// pointerSet sets the value at path within doc and returns the resulting
// top-level value. Maps and existing array slots are updated in place, so
// callers pass a clone (Apply does); an array insert builds a new slice,
// which each level stores back into its parent.
// allowAppend selects "add" semantics ("-" or an index equal to the array
// length appends, a smaller index inserts; a larger one is an error) or
// "replace" semantics (the index must land exactly in range).
func pointerSet(doc any, path string, value any, allowAppend bool) (any, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return value, nil
	}
	return pointerSetRec(doc, segs, value, allowAppend, path)
}

func pointerSetRec(doc any, segs []string, value any, allowAppend bool, fullPath string) (any, error) {
	seg := segs[0]
	switch v := doc.(type) {
	case map[string]any:
		if len(segs) == 1 {
			v[seg] = value
			return v, nil
		}
		child, ok := v[seg]
		if !ok {
			return nil, newError(MissingTarget, "", 0, "missing parent at "+fullPath)
		}
		newChild, err := pointerSetRec(child, segs[1:], value, allowAppend, fullPath)
		if err != nil {
			return nil, err
		}
		v[seg] = newChild
		return v, nil
	case []any:
		idx := 0
		if seg == "-" {
			idx = len(v)
		} else {
			n, err := strconv.Atoi(seg)
			if err != nil {
				return nil, newError(TypeMismatch, "", 0, "non-numeric array index at "+fullPath)
			}
			idx = n
		}
		if len(segs) == 1 {
			if allowAppend {
				if idx < 0 || idx > len(v) {
					return nil, newError(MissingTarget, "", 0, "index out of range at "+fullPath)
				}
				out := make([]any, 0, len(v)+1)
				out = append(out, v[:idx]...)
				out = append(out, value)
				out = append(out, v[idx:]...)
				return out, nil
			}
			if idx < 0 || idx >= len(v) {
				return nil, newError(MissingTarget, "", 0, "index out of range at "+fullPath)
			}
			v[idx] = value
			return v, nil
		}
		if idx < 0 || idx >= len(v) {
			return nil, newError(MissingTarget, "", 0, "index out of range at "+fullPath)
		}
		newChild, err := pointerSetRec(v[idx], segs[1:], value, allowAppend, fullPath)
		if err != nil {
			return nil, err
		}
		v[idx] = newChild
		return v, nil
	default:
		return nil, newError(TypeMismatch, "", 0, "cannot set into scalar at "+fullPath)
	}
}

func pointerRemove(doc any, path string) (any, error) {
	segs := splitPointer(path)
	if len(segs) == 0 {
		return nil, newError(Malformed, "patch", 0, "cannot remove root")
	}
	return pointerRemoveRec(doc, segs, path)
}

func pointerRemoveRec(doc any, segs []string, fullPath string) (any, error) {
	seg := segs[0]
	switch v := doc.(type) {
	case map[string]any:
		if len(segs) == 1 {
			if _, ok := v[seg]; !ok {
				return nil, newError(MissingTarget, "", 0, "missing path "+fullPath)
			}
			delete(v, seg)
			return v, nil
		}
		child, ok := v[seg]
		if !ok {
			return nil, newError(MissingTarget, "", 0, "missing path "+fullPath)
		}
		newChild, err := pointerRemoveRec(child, segs[1:], fullPath)
		if err != nil {
			return nil, err
		}
		v[seg] = newChild
		return v, nil
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(v) {
			return nil, newError(MissingTarget, "", 0, "index out of range at "+fullPath)
		}
		if len(segs) == 1 {
			out := make([]any, 0, len(v)-1)
			out = append(out, v[:idx]...)
			out = append(out, v[idx+1:]...)
			return out, nil
		}
		newChild, err := pointerRemoveRec(v[idx], segs[1:], fullPath)
		if err != nil {
			return nil, err
		}
		v[idx] = newChild
		return v, nil
	default:
		return nil, newError(TypeMismatch, "", 0, "cannot remove from scalar at "+fullPath)
	}
}

func deepCloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = deepCloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = deepCloneValue(vv)
		}
		return out
	default:
		return v
	}
}

func valuesDeepEqual(a, b any) bool {
	return nodesFionnEqual(nodesFromValue(a), nodesFromValue(b))
}

func nodesFionnEqual(a, b []Node) bool {
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

// TypedNumber is a Number node lexeme that must be carried through
// NodesFromValue verbatim, suffix and all, instead of being reformatted or
// quoted as a string, e.g. a type-tagged lexeme such as "42i" or "3.14f".
// The format front-ends in formats/ do not use it; formats/ison.go writes
// such lexemes straight into Number nodes.
type TypedNumber string

// nodesFromValue is the inverse of valueAt: it lowers a generic Go value
// (map[string]any/[]any/scalars, as produced by valueAt or a PatchOp.Value
// decoded from JSON) into a flat Node sequence suitable for
// NewTapeFromNodes. Object key order is sorted for determinism, since a
// plain Go map carries none.
func nodesFromValue(v any) []Node {
	var nodes []Node
	appendValue(&nodes, v)
	return nodes
}

// NodesFromValue exports nodesFromValue for callers outside this package
// that hold generic Go values and want them as a node sequence. The format
// front-ends in formats/ do not use it; they drive a TapeBuilder directly.
func NodesFromValue(v any) []Node { return nodesFromValue(v) }

func appendValue(nodes *[]Node, v any) {
	switch t := v.(type) {
	case nil:
		*nodes = append(*nodes, nullNode())
	case bool:
		*nodes = append(*nodes, boolNode(t))
	case string:
		*nodes = append(*nodes, stringNode(t))
	case float64:
		*nodes = append(*nodes, numberNode(strconv.FormatFloat(t, 'g', -1, 64)))
	case int:
		*nodes = append(*nodes, numberNode(strconv.Itoa(t)))
	case int64:
		*nodes = append(*nodes, numberNode(strconv.FormatInt(t, 10)))
	case uint64:
		*nodes = append(*nodes, numberNode(strconv.FormatUint(t, 10)))
	case json.Number:
		*nodes = append(*nodes, numberNode(t.String()))
	case time.Time:
		*nodes = append(*nodes, stringNode(t.Format(time.RFC3339Nano)))
	case TypedNumber:
		*nodes = append(*nodes, numberNode(string(t)))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		*nodes = append(*nodes, Node{Kind: KindObjectStart, Count: len(keys)})
		for _, k := range keys {
			*nodes = append(*nodes, keyNode(k))
			appendValue(nodes, t[k])
		}
		*nodes = append(*nodes, Node{Kind: KindObjectEnd})
	case []any:
		*nodes = append(*nodes, Node{Kind: KindArrayStart, Count: len(t)})
		for _, e := range t {
			appendValue(nodes, e)
		}
		*nodes = append(*nodes, Node{Kind: KindArrayEnd})
	default:
		*nodes = append(*nodes, nullNode())
	}
}
