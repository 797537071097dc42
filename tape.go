package fionn

// Tape is the flat, index-addressable sequence of Nodes produced by parsing
// one input buffer through a format front-end. It is immutable once built;
// operations that look like mutation (diff, merge, modified emission)
// build a new Tape or apply an overlay instead of touching this one.
type Tape struct {
	format string
	nodes  []Node
	skip   []int // skip[i] = index one past the subtree rooted at i
	input  []byte
	arena  []string
}

// NewTapeFromNodes builds a Tape directly from an already-valid node
// sequence (used by gron/ungron, diff/merge and tests that construct tapes
// without parsing text), computing the skip index with the post-pass
// strategy. Both construction strategies must produce identical skip
// indices for the same node sequence; TapeBuilder uses the inline strategy
// and this uses the post-pass, and the two are exercised against each
// other in tape_test.go.
func NewTapeFromNodes(nodes []Node) (*Tape, error) {
	skip, err := computeSkipIndexPostPass(nodes)
	if err != nil {
		return nil, err
	}
	return &Tape{nodes: nodes, skip: skip}, nil
}

// computeSkipIndexPostPass is the single left-to-right pass with a stack of
// open containers: each container's skip entry is filled in once its close
// is reached, rather than backpatched inline as nodes are appended.
func computeSkipIndexPostPass(nodes []Node) ([]int, error) {
	skip := make([]int, len(nodes))
	type open struct{ idx int }
	var stack []open
	for i, n := range nodes {
		switch {
		case n.Kind.IsContainerStart():
			stack = append(stack, open{idx: i})
		case n.Kind.IsContainerEnd():
			if len(stack) == 0 {
				return nil, malformedf("", i, "unbalanced container end")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			skip[top.idx] = i + 1
			skip[i] = i + 1
		default:
			skip[i] = i + 1
		}
	}
	if len(stack) != 0 {
		return nil, malformedf("", len(nodes), "unclosed container")
	}
	return skip, nil
}

// Len returns the number of nodes on the tape.
func (t *Tape) Len() int { return len(t.nodes) }

// Format returns the name of the front-end that produced this tape, or ""
// for tapes built directly from nodes.
func (t *Tape) Format() string { return t.format }

// NodeAt returns the node at index i.
func (t *Tape) NodeAt(i int) Node { return t.nodes[i] }

// SkipValue returns the index one past the subtree rooted at i. It is an
// O(1) lookup because the index is precomputed at build time.
func (t *Tape) SkipValue(i int) int { return t.skip[i] }

// KeyAt returns the key string preceding the value at i, if i is a direct
// child value of an object (i.e. is immediately preceded by a Key node at
// the same nesting level). Reports ok=false otherwise.
func (t *Tape) KeyAt(i int) (string, bool) {
	if i == 0 {
		return "", false
	}
	prev := t.nodes[i-1]
	if prev.Kind != KindKey {
		return "", false
	}
	return prev.Str, true
}

// ExtractValue returns the scalar node at i, or ok=false if i holds a
// container.
func (t *Tape) ExtractValue(i int) (Node, bool) {
	n := t.nodes[i]
	if !n.Kind.IsScalar() {
		return Node{}, false
	}
	return n, true
}

// Iter walks the tape in order, calling fn for every node. Returning false
// from fn stops the walk early.
func (t *Tape) Iter(fn func(i int, n Node) bool) {
	for i, n := range t.nodes {
		if !fn(i, n) {
			return
		}
	}
}

// Root returns index 0, the tape's single root node.
func (t *Tape) Root() int { return 0 }

// copyNodeRange returns an independent copy of t's nodes spanning [i, j),
// for splicing into another node sequence (patch.go, merge.go) without
// aliasing t's backing array.
func copyNodeRange(t *Tape, i, j int) []Node {
	out := make([]Node, j-i)
	copy(out, t.nodes[i:j])
	return out
}

// Children returns the indices of the direct child values of the container
// at i (for an object: the value indices, one per key; for an array: the
// element indices). i must hold ObjectStart or ArrayStart.
func (t *Tape) Children(i int) []int {
	n := t.nodes[i]
	var out []int
	switch n.Kind {
	case KindObjectStart:
		j := i + 1
		for len(out) < n.Count {
			// j is a Key node; its value starts at j+1.
			out = append(out, j+1)
			j = t.skip[j+1]
		}
	case KindArrayStart:
		j := i + 1
		for len(out) < n.Count {
			out = append(out, j)
			j = t.skip[j]
		}
	}
	return out
}
