package fionn

// Resolve walks t from the root following p's components, returning the
// node index of the value reached, or ok=false if any component mismatches
// the tape's shape. Resolve never panics; a missing path is a perfectly
// ordinary negative result, not an error.
func Resolve(t *Tape, p Path) (idx int, ok bool) {
	idx = t.Root()
	for _, c := range p.Components {
		n := t.NodeAt(idx)
		switch {
		case c.Kind == CompField && n.Kind == KindObjectStart:
			next, found := resolveField(t, idx, n, c.Field)
			if !found {
				return 0, false
			}
			idx = next
		case c.Kind == CompIndex && n.Kind == KindArrayStart:
			next, found := resolveIndex(t, idx, n, c.Index)
			if !found {
				return 0, false
			}
			idx = next
		default:
			return 0, false
		}
	}
	return idx, true
}

// resolveField scans the direct children of the object at objIdx for a key
// equal to name, jumping over non-matching values with SkipValue. On
// duplicate keys, the tape was built with "last wins", so a later match
// overwrites an earlier one here too.
func resolveField(t *Tape, objIdx int, obj Node, name string) (int, bool) {
	j := objIdx + 1
	found := -1
	for k := 0; k < obj.Count; k++ {
		key := t.NodeAt(j)
		valueIdx := j + 1
		if key.Str == name {
			found = valueIdx
		}
		j = t.SkipValue(valueIdx)
	}
	if found < 0 {
		return 0, false
	}
	return found, true
}

// resolveIndex advances k steps into the array at arrIdx using SkipValue,
// landing on the k-th element.
func resolveIndex(t *Tape, arrIdx int, arr Node, k int) (int, bool) {
	if k < 0 || k >= arr.Count {
		return 0, false
	}
	j := arrIdx + 1
	for i := 0; i < k; i++ {
		j = t.SkipValue(j)
	}
	return j, true
}

// ResolveString is a convenience combining PathCache.GetOrParse and
// Resolve for the common case of resolving a raw path string.
func ResolveString(cache *PathCache, t *Tape, pathStr string) (int, error) {
	p, err := cache.GetOrParse(pathStr)
	if err != nil {
		return 0, err
	}
	idx, ok := Resolve(t, p)
	if !ok {
		return 0, newError(MissingTarget, "", 0, "path not found: "+pathStr)
	}
	return idx, nil
}
