package fionn

import (
	"math"
	"sort"
	"strconv"
)

// PatchOp is one RFC 6902 operation. Value holds a generic Go value
// suitable for json.Marshal ("add"/"replace"/"test"); From is only set
// for "move"/"copy".
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Patch is an ordered list of operations, applied left to right.
type Patch []PatchOp

// Diff computes a Patch turning tapeA into tapeB. Self-diff (diff(a, a))
// is always the empty patch, since every comparison below bottoms out in
// structural equality.
func Diff(tapeA, tapeB *Tape) Patch {
	d := &differ{a: tapeA, b: tapeB}
	d.diffValue(Path{}, tapeA.Root(), tapeB.Root())
	return d.ops
}

type differ struct {
	a, b *Tape
	ops  Patch
}

func (d *differ) diffValue(p Path, ai, bi int) {
	an, bn := d.a.NodeAt(ai), d.b.NodeAt(bi)
	switch {
	case an.Kind == KindObjectStart && bn.Kind == KindObjectStart:
		d.diffObjects(p, ai, bi)
	case an.Kind == KindArrayStart && bn.Kind == KindArrayStart:
		d.diffArrays(p, ai, bi)
	default:
		if !valuesEqual(d.a, ai, d.b, bi) {
			d.ops = append(d.ops, PatchOp{Op: "replace", Path: p.Pointer(), Value: valueAt(d.b, bi)})
		}
	}
}

func (d *differ) diffObjects(p Path, ai, bi int) {
	aChildren := objectKeyIndex(d.a, ai)
	bChildren := objectKeyIndex(d.b, bi)

	var keysInOrder []string
	seen := map[string]bool{}
	for _, k := range aChildren.order {
		if !seen[k] {
			seen[k] = true
			keysInOrder = append(keysInOrder, k)
		}
	}
	for _, k := range bChildren.order {
		if !seen[k] {
			seen[k] = true
			keysInOrder = append(keysInOrder, k)
		}
	}

	for _, k := range keysInOrder {
		av, aok := aChildren.byKey[k]
		bv, bok := bChildren.byKey[k]
		childPath := p.WithField(k)
		switch {
		case aok && !bok:
			d.ops = append(d.ops, PatchOp{Op: "remove", Path: childPath.Pointer()})
		case !aok && bok:
			d.ops = append(d.ops, PatchOp{Op: "add", Path: childPath.Pointer(), Value: valueAt(d.b, bv)})
		default:
			d.diffValue(childPath, av, bv)
		}
	}
}

// keyIndex maps each object key to the index of its value node, keeping
// keys in first-seen order. On duplicate keys the value index is that of
// the final occurrence, the same last-wins rule resolveField applies.
type keyIndex struct {
	order []string
	byKey map[string]int
}

func objectKeyIndex(t *Tape, objIdx int) keyIndex {
	obj := t.NodeAt(objIdx)
	ki := keyIndex{byKey: map[string]int{}}
	j := objIdx + 1
	for i := 0; i < obj.Count; i++ {
		key := t.NodeAt(j)
		valIdx := j + 1
		if _, ok := ki.byKey[key.Str]; !ok {
			ki.order = append(ki.order, key.Str)
		}
		ki.byKey[key.Str] = valIdx
		j = t.SkipValue(valIdx)
	}
	return ki
}

// diffArrays implements an LCS-over-element-hashes array diff: matched
// elements (equal structural hash) need no operation; everything else is
// expressed as removes (descending index, so earlier removals never shift
// a later one) followed by adds (ascending index against b), which is the
// standard correct ordering for a sequential-apply edit script.
func (d *differ) diffArrays(p Path, ai, bi int) {
	aChildren := d.a.Children(ai)
	bChildren := d.b.Children(bi)

	aHash := make([]uint64, len(aChildren))
	for i, c := range aChildren {
		aHash[i] = structuralHash(d.a, c)
	}
	bHash := make([]uint64, len(bChildren))
	for i, c := range bChildren {
		bHash[i] = structuralHash(d.b, c)
	}

	matchedA, matchedB := lcsMatch(aHash, bHash)

	var removed []int
	for i := range aChildren {
		if !matchedA[i] {
			removed = append(removed, i)
		}
	}
	var added []int
	for j := range bChildren {
		if !matchedB[j] {
			added = append(added, j)
		}
	}

	// Pair a removed element with an added one of identical structural
	// hash into a single "move", scoped to this array so the from/path
	// pair is unambiguous. Any remaining
	// removes/adds are plain ops.
	addedByHash := map[uint64][]int{}
	for _, j := range added {
		addedByHash[bHash[j]] = append(addedByHash[bHash[j]], j)
	}
	addedUsed := map[int]bool{}

	sort.Sort(sort.Reverse(sort.IntSlice(removed)))
	var pendingAdds []int
	for _, i := range removed {
		candidates := addedByHash[aHash[i]]
		paired := -1
		for _, j := range candidates {
			if !addedUsed[j] {
				paired = j
				break
			}
		}
		if paired >= 0 {
			addedUsed[paired] = true
			d.ops = append(d.ops, PatchOp{Op: "move", Path: p.WithIndex(paired).Pointer(), From: p.WithIndex(i).Pointer()})
			continue
		}
		d.ops = append(d.ops, PatchOp{Op: "remove", Path: p.WithIndex(i).Pointer()})
	}
	for _, j := range added {
		if addedUsed[j] {
			continue
		}
		pendingAdds = append(pendingAdds, j)
	}
	sort.Ints(pendingAdds)
	for _, j := range pendingAdds {
		d.ops = append(d.ops, PatchOp{Op: "add", Path: p.WithIndex(j).Pointer(), Value: valueAt(d.b, bChildren[j])})
	}
}

// lcsMatch returns, for each position in a and b, whether it participates
// in the longest common subsequence of equal hashes.
func lcsMatch(a, b []uint64) (matchedA, matchedB []bool) {
	n, m := len(a), len(b)
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}
	matchedA = make([]bool, n)
	matchedB = make([]bool, m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			matchedA[i] = true
			matchedB[j] = true
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return matchedA, matchedB
}

// valuesEqual implements scalar/container equality, including the 1e-14
// relative float tolerance (exact at zero/subnormal) and recursive
// structural equality for containers.
func valuesEqual(ta *Tape, ai int, tb *Tape, bi int) bool {
	return structuralHash(ta, ai) == structuralHash(tb, bi)
}

// structuralHash hashes the subtree at idx so that two structurally equal
// subtrees (per the number-tolerance rule below) hash identically; object
// keys are sorted before hashing so key order never affects equality.
func structuralHash(t *Tape, idx int) uint64 {
	n := t.NodeAt(idx)
	h := fnvOffset
	switch n.Kind {
	case KindNull:
		h = fnvMix(h, "null")
	case KindBool:
		if n.Bool {
			h = fnvMix(h, "bool:1")
		} else {
			h = fnvMix(h, "bool:0")
		}
	case KindNumber:
		h = fnvMix(h, "num:"+canonicalNumber(n.Str))
	case KindString:
		h = fnvMix(h, "str:"+n.Str)
	case KindObjectStart:
		ki := objectKeyIndex(t, idx)
		keys := append([]string(nil), ki.order...)
		sort.Strings(keys)
		h = fnvMix(h, "obj")
		for _, k := range keys {
			h = fnvMix(h, k)
			h ^= structuralHash(t, ki.byKey[k])
		}
	case KindArrayStart:
		h = fnvMix(h, "arr")
		for _, c := range t.Children(idx) {
			h = fnvMix(h, strconv.FormatUint(structuralHash(t, c), 16))
		}
	}
	return h
}

const fnvOffset = 1469598103934665603
const fnvPrime = 1099511628211

func fnvMix(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// canonicalNumber collapses lexemes that represent the same float64 within
// tolerance to the same string, e.g. "1.0" and "1.00" and "1e0". Values
// too large for float64 (or non-finite) fall back to the raw lexeme, so
// values outside float64 range compare by lexeme instead.
func canonicalNumber(lexeme string) string {
	f, err := strconv.ParseFloat(lexeme, 64)
	if err != nil || math.IsInf(f, 0) {
		return lexeme
	}
	if f == 0 {
		return "0"
	}
	if isSubnormal(f) {
		return strconv.FormatFloat(f, 'b', -1, 64)
	}
	// Round to ~14 significant decimal digits so values within the
	// spec's relative tolerance collapse onto one canonical string.
	return strconv.FormatFloat(f, 'e', 13, 64)
}

func isSubnormal(f float64) bool {
	a := math.Abs(f)
	return a > 0 && a < math.SmallestNonzeroFloat64*(1<<52)
}

// ValueAt exports valueAt for format emitters outside this package that
// serialize through a generic Go value (e.g. formats/yaml.go via
// yaml.v3, formats/toml.go via go-toml/v2) instead of walking the tape
// directly.
func ValueAt(t *Tape, idx int) any { return valueAt(t, idx) }

// valueAt converts the subtree at idx into a plain Go value suitable for
// json.Marshal, for use as a PatchOp.Value or a merge operand.
func valueAt(t *Tape, idx int) any {
	n := t.NodeAt(idx)
	switch n.Kind {
	case KindNull:
		return nil
	case KindBool:
		return n.Bool
	case KindNumber:
		if f, err := strconv.ParseFloat(n.Str, 64); err == nil {
			return f
		}
		return n.Str
	case KindString:
		return n.Str
	case KindObjectStart:
		out := map[string]any{}
		for _, c := range t.Children(idx) {
			k, _ := t.KeyAt(c)
			out[k] = valueAt(t, c)
		}
		return out
	case KindArrayStart:
		children := t.Children(idx)
		out := make([]any, len(children))
		for i, c := range children {
			out[i] = valueAt(t, c)
		}
		return out
	default:
		return nil
	}
}
