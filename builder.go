package fionn

// Builder is the interface format front-ends drive while consuming input
// bytes; it is the single seam between a format's grammar and the tape. One
// method per value kind, targeting a dynamic, nested tape rather than a
// fixed schema.
type Builder interface {
	OpenObject() error
	CloseObject() error
	OpenArray() error
	CloseArray() error
	Key(name string) error
	Null() error
	Bool(v bool) error
	Number(lexeme string) error
	String(s string) error
}

// frame tracks one open container while building.
type frame struct {
	idx   int // index of the ObjectStart/ArrayStart node
	kind  Kind
	count int
}

// TapeBuilder accumulates Nodes for exactly one input buffer and produces an
// immutable Tape. It backpatches container counts and skip distances as
// containers close, once each container's full extent is known.
type TapeBuilder struct {
	format string
	limits Limits
	nodes  []Node
	skip   []int
	stack  []frame
	arena  []string // owned strings, appended only, never mutated after
	depth  int
}

// NewTapeBuilder creates a builder for the given format name (used only for
// error tagging) and limits.
func NewTapeBuilder(format string, limits Limits) *TapeBuilder {
	return &TapeBuilder{format: format, limits: limits}
}

func (b *TapeBuilder) append(n Node) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, n)
	b.skip = append(b.skip, 0)
	return idx
}

// beforeValue is called immediately before any value node (scalar or
// container start) is appended; it increments the enclosing array's element
// count. Object pair counts are incremented by Key instead, since a Key
// always precedes its value 1:1.
func (b *TapeBuilder) beforeValue() {
	if n := len(b.stack); n > 0 {
		top := &b.stack[n-1]
		if top.kind == KindArrayStart {
			top.count++
		}
	}
}

func (b *TapeBuilder) top() (*frame, bool) {
	if len(b.stack) == 0 {
		return nil, false
	}
	return &b.stack[len(b.stack)-1], true
}

func (b *TapeBuilder) OpenObject() error {
	if err := b.limits.checkDepth(b.format, len(b.nodes), b.depth+1); err != nil {
		return err
	}
	b.beforeValue()
	idx := b.append(Node{Kind: KindObjectStart})
	b.stack = append(b.stack, frame{idx: idx, kind: KindObjectStart})
	b.depth++
	return nil
}

func (b *TapeBuilder) CloseObject() error {
	fr, ok := b.top()
	if !ok || fr.kind != KindObjectStart {
		return malformedf(b.format, len(b.nodes), "unbalanced object close")
	}
	b.nodes[fr.idx].Count = fr.count
	endIdx := b.append(Node{Kind: KindObjectEnd})
	b.skip[endIdx] = endIdx + 1
	b.skip[fr.idx] = endIdx + 1
	b.stack = b.stack[:len(b.stack)-1]
	b.depth--
	return nil
}

func (b *TapeBuilder) OpenArray() error {
	if err := b.limits.checkDepth(b.format, len(b.nodes), b.depth+1); err != nil {
		return err
	}
	b.beforeValue()
	idx := b.append(Node{Kind: KindArrayStart})
	b.stack = append(b.stack, frame{idx: idx, kind: KindArrayStart})
	b.depth++
	return nil
}

func (b *TapeBuilder) CloseArray() error {
	fr, ok := b.top()
	if !ok || fr.kind != KindArrayStart {
		return malformedf(b.format, len(b.nodes), "unbalanced array close")
	}
	b.nodes[fr.idx].Count = fr.count
	endIdx := b.append(Node{Kind: KindArrayEnd})
	b.skip[endIdx] = endIdx + 1
	b.skip[fr.idx] = endIdx + 1
	b.stack = b.stack[:len(b.stack)-1]
	b.depth--
	return nil
}

func (b *TapeBuilder) Key(name string) error {
	fr, ok := b.top()
	if !ok || fr.kind != KindObjectStart {
		return malformedf(b.format, len(b.nodes), "key outside object")
	}
	fr.count++
	idx := b.append(keyNode(name))
	b.skip[idx] = idx + 1
	return nil
}

func (b *TapeBuilder) Null() error {
	b.beforeValue()
	idx := b.append(nullNode())
	b.skip[idx] = idx + 1
	return nil
}

func (b *TapeBuilder) Bool(v bool) error {
	b.beforeValue()
	idx := b.append(boolNode(v))
	b.skip[idx] = idx + 1
	return nil
}

func (b *TapeBuilder) Number(lexeme string) error {
	b.beforeValue()
	idx := b.append(numberNode(lexeme))
	b.skip[idx] = idx + 1
	return nil
}

func (b *TapeBuilder) String(s string) error {
	if err := b.limits.checkStringLen(b.format, len(b.nodes), len(s)); err != nil {
		return err
	}
	b.beforeValue()
	idx := b.append(stringNode(s))
	b.skip[idx] = idx + 1
	return nil
}

// ownString copies s into the builder's arena and returns the stable
// string backed by that copy.
func (b *TapeBuilder) ownString(s string) string {
	cp := append([]byte(nil), s...)
	owned := string(cp)
	b.arena = append(b.arena, owned)
	return owned
}

// Build finalizes the tape. It fails if any container was left open.
//
// It copies nodes, skip and arena into freshly sized slices rather than
// handing out the builder's own backing arrays: AcquireBuilder/ReleaseBuilder
// recycle a *TapeBuilder by truncating and re-appending to those same
// slices, which would silently corrupt a previously issued Tape if this
// Tape aliased them.
func (b *TapeBuilder) Build(input []byte) (*Tape, error) {
	if len(b.stack) != 0 {
		return nil, malformedf(b.format, len(b.nodes), "unclosed container at EOF")
	}
	if len(b.nodes) == 0 {
		return nil, malformedf(b.format, 0, "empty document")
	}
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	skip := make([]int, len(b.skip))
	copy(skip, b.skip)
	var arena []string
	if len(b.arena) > 0 {
		arena = make([]string, len(b.arena))
		copy(arena, b.arena)
	}
	return &Tape{
		format: b.format,
		nodes:  nodes,
		skip:   skip,
		input:  input,
		arena:  arena,
	}, nil
}
