package fionn

import (
	"strconv"
	"strings"
)

// ComponentKind distinguishes a path component that names an object field
// from one that indexes an array.
type ComponentKind uint8

const (
	CompField ComponentKind = iota + 1
	CompIndex
)

// Component is one step of a Path: either Field(name) or Index(k).
type Component struct {
	Kind  ComponentKind
	Field string
	Index int
}

// Path is an ordered sequence of Components; the empty Path denotes the
// root.
type Path struct {
	Components []Component
}

// WithField returns a new Path with a Field component appended.
func (p Path) WithField(name string) Path {
	out := make([]Component, len(p.Components), len(p.Components)+1)
	copy(out, p.Components)
	out = append(out, Component{Kind: CompField, Field: name})
	return Path{Components: out}
}

// WithIndex returns a new Path with an Index component appended.
func (p Path) WithIndex(k int) Path {
	out := make([]Component, len(p.Components), len(p.Components)+1)
	copy(out, p.Components)
	out = append(out, Component{Kind: CompIndex, Index: k})
	return Path{Components: out}
}

// isBareword reports whether name can be rendered as `.name` instead of
// `["name"]`: it must match `/[A-Za-z_][A-Za-z0-9_]*/`.
func isBareword(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isAlpha {
				return false
			}
			continue
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}

// String renders p as gron's bracket/dot syntax, without the leading
// "json" prefix gron itself adds.
func (p Path) String() string {
	var sb strings.Builder
	for _, c := range p.Components {
		switch c.Kind {
		case CompField:
			if isBareword(c.Field) {
				sb.WriteByte('.')
				sb.WriteString(c.Field)
			} else {
				sb.WriteByte('[')
				sb.WriteString(strconv.Quote(c.Field))
				sb.WriteByte(']')
			}
		case CompIndex:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(c.Index))
			sb.WriteByte(']')
		}
	}
	return sb.String()
}

// Pointer renders p as an RFC 6901 JSON Pointer, e.g. Field("a").Index(0)
// -> "/a/0".
func (p Path) Pointer() string {
	var sb strings.Builder
	for _, c := range p.Components {
		sb.WriteByte('/')
		switch c.Kind {
		case CompField:
			sb.WriteString(pointerEscape(c.Field))
		case CompIndex:
			sb.WriteString(strconv.Itoa(c.Index))
		}
	}
	return sb.String()
}

func pointerEscape(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}
