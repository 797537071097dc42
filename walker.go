package fionn

import "errors"

// ErrSkipVisit lets a Visitor decline to descend into the container it was
// just offered; Walk then jumps over the whole subtree using the skip index
// instead of visiting its children.
var ErrSkipVisit = errors.New("fionn: skip visit")

// Visitor is driven by Walk as it traverses a tape depth-first. Each
// container method receives the Path to that container (not to its
// children); Walk appends the field/index component itself before
// descending, threading a running path through the traversal instead of
// materializing a tree first.
type Visitor interface {
	VisitObjectStart(p Path, count int) error
	VisitObjectEnd(p Path) error
	VisitArrayStart(p Path, count int) error
	VisitArrayEnd(p Path) error
	VisitScalar(p Path, n Node) error
}

// Walk performs a depth-first traversal of t starting at the root, over the
// tape's self-describing node sequence: each container already carries its
// own child count, so no separate schema is needed to know when it ends.
func Walk(t *Tape, visitor Visitor) error {
	w := &walker{t: t, v: visitor}
	_, err := w.walk(t.Root(), Path{})
	return err
}

type walker struct {
	t *Tape
	v Visitor
}

func (w *walker) walk(i int, p Path) (int, error) {
	n := w.t.NodeAt(i)
	switch n.Kind {
	case KindObjectStart:
		return w.walkObject(i, n, p)
	case KindArrayStart:
		return w.walkArray(i, n, p)
	default:
		if err := w.v.VisitScalar(p, n); err != nil && err != ErrSkipVisit {
			return i, err
		}
		return w.t.SkipValue(i), nil
	}
}

func (w *walker) walkObject(i int, n Node, p Path) (int, error) {
	if err := w.v.VisitObjectStart(p, n.Count); err != nil {
		if err == ErrSkipVisit {
			return w.t.SkipValue(i), nil
		}
		return i, err
	}
	j := i + 1
	for k := 0; k < n.Count; k++ {
		key := w.t.NodeAt(j)
		childPath := p.WithField(key.Str)
		var err error
		j, err = w.walk(j+1, childPath)
		if err != nil {
			return i, err
		}
	}
	if err := w.v.VisitObjectEnd(p); err != nil {
		return i, err
	}
	return j, nil
}

func (w *walker) walkArray(i int, n Node, p Path) (int, error) {
	if err := w.v.VisitArrayStart(p, n.Count); err != nil {
		if err == ErrSkipVisit {
			return w.t.SkipValue(i), nil
		}
		return i, err
	}
	j := i + 1
	for k := 0; k < n.Count; k++ {
		childPath := p.WithIndex(k)
		var err error
		j, err = w.walk(j, childPath)
		if err != nil {
			return i, err
		}
	}
	if err := w.v.VisitArrayEnd(p); err != nil {
		return i, err
	}
	return j, nil
}
