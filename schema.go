package fionn

import "strings"

// Schema is a compiled field-name matcher for stream extraction: an
// ordered set of field-name patterns supporting O(1) "does this key
// match?" via a small-table probe (a Go map under the hood).
type Schema struct {
	fields   []string
	exact    map[string]bool
	prefixes []string // patterns ending in '*', minus the '*' (wildcard-suffix extension)
}

// NewSchema compiles fields into a Schema. Order is preserved in Fields()
// for callers that want deterministic output column ordering (e.g. a CSV
// emitter driven by a schema); match order does not depend on it.
func NewSchema(fields ...string) *Schema {
	s := &Schema{fields: append([]string(nil), fields...), exact: map[string]bool{}}
	for _, f := range fields {
		if strings.HasSuffix(f, "*") {
			s.prefixes = append(s.prefixes, strings.TrimSuffix(f, "*"))
			continue
		}
		s.exact[f] = true
	}
	return s
}

// Fields returns the schema's field patterns in declaration order.
func (s *Schema) Fields() []string { return s.fields }

// Match reports whether key satisfies the schema: an exact hit, or a
// wildcard-suffix prefix match.
func (s *Schema) Match(key string) bool {
	if s.exact[key] {
		return true
	}
	for _, p := range s.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
