package fionn

// Merge implements RFC 7396 JSON Merge Patch: overlay is folded into base,
// recursing into matching objects and otherwise letting overlay win
// outright. A null in overlay deletes the corresponding key from base,
// per RFC 7396 §1.
func Merge(base, overlay any) any {
	return mergeValue(base, overlay, false)
}

// DeepMerge is Merge's non-standard extension: arrays present on both
// sides are concatenated (overlay's elements appended to base's) instead
// of overlay replacing base outright.
func DeepMerge(base, overlay any) any {
	return mergeValue(base, overlay, true)
}

func mergeValue(base, overlay any, deepArrays bool) any {
	if overlay == nil {
		return nil
	}
	ov, ok := overlay.(map[string]any)
	if !ok {
		if deepArrays {
			if oa, ok := overlay.([]any); ok {
				if ba, ok := base.([]any); ok {
					return append(append([]any(nil), ba...), oa...)
				}
			}
		}
		return overlay
	}
	bv, ok := base.(map[string]any)
	if !ok {
		bv = map[string]any{}
	}
	out := make(map[string]any, len(bv)+len(ov))
	for k, v := range bv {
		out[k] = v
	}
	for k, v := range ov {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = mergeValue(out[k], v, deepArrays)
	}
	return out
}

// MergeTapes merges overlay into base per RFC 7396 (or, when deep is true,
// the array-concatenating DeepMerge extension) directly on tape node
// ranges, the way Diff compares two tapes without materializing either as
// a generic value: base's key order and number lexemes survive untouched
// everywhere overlay doesn't touch them, and new keys overlay introduces
// are appended in overlay's own order.
func MergeTapes(base, overlay *Tape, deep bool) (*Tape, error) {
	nodes := mergeValueNodes(base, base.Root(), true, overlay, overlay.Root(), deep)
	return NewTapeFromNodes(nodes)
}

func mergeValueNodes(a *Tape, ai int, hasA bool, b *Tape, bi int, deep bool) []Node {
	bn := b.NodeAt(bi)
	if bn.Kind != KindObjectStart {
		if deep && hasA && bn.Kind == KindArrayStart && a.NodeAt(ai).Kind == KindArrayStart {
			return concatArrayNodes(a, ai, b, bi)
		}
		return copyNodeRange(b, bi, b.SkipValue(bi))
	}
	return mergeObjectNodes(a, ai, hasA, b, bi, deep)
}

func mergeObjectNodes(a *Tape, ai int, hasA bool, b *Tape, bi int, deep bool) []Node {
	if hasA && a.NodeAt(ai).Kind != KindObjectStart {
		hasA = false
	}
	var aKeys keyIndex
	if hasA {
		aKeys = objectKeyIndex(a, ai)
	}
	bKeys := objectKeyIndex(b, bi)

	var body []Node
	count := 0
	seen := make(map[string]bool, len(aKeys.order))

	for _, k := range aKeys.order {
		seen[k] = true
		aValIdx := aKeys.byKey[k]
		if bValIdx, ok := bKeys.byKey[k]; ok {
			if b.NodeAt(bValIdx).Kind == KindNull {
				continue // RFC 7396: null in overlay deletes the key
			}
			body = append(body, keyNode(k))
			body = append(body, mergeValueNodes(a, aValIdx, true, b, bValIdx, deep)...)
			count++
			continue
		}
		body = append(body, keyNode(k))
		body = append(body, copyNodeRange(a, aValIdx, a.SkipValue(aValIdx))...)
		count++
	}
	for _, k := range bKeys.order {
		if seen[k] {
			continue
		}
		bValIdx := bKeys.byKey[k]
		if b.NodeAt(bValIdx).Kind == KindNull {
			continue // deleting a key that was never present is a no-op
		}
		body = append(body, keyNode(k))
		body = append(body, mergeValueNodes(a, 0, false, b, bValIdx, deep)...)
		count++
	}

	out := make([]Node, 0, len(body)+2)
	out = append(out, Node{Kind: KindObjectStart, Count: count})
	out = append(out, body...)
	out = append(out, Node{Kind: KindObjectEnd})
	return out
}

func concatArrayNodes(a *Tape, ai int, b *Tape, bi int) []Node {
	aChildren := a.Children(ai)
	bChildren := b.Children(bi)
	var body []Node
	for _, c := range aChildren {
		body = append(body, copyNodeRange(a, c, a.SkipValue(c))...)
	}
	for _, c := range bChildren {
		body = append(body, copyNodeRange(b, c, b.SkipValue(c))...)
	}
	out := make([]Node, 0, len(body)+2)
	out = append(out, Node{Kind: KindArrayStart, Count: len(aChildren) + len(bChildren)})
	out = append(out, body...)
	out = append(out, Node{Kind: KindArrayEnd})
	return out
}
