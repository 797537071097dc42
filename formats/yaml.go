package formats

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/darach/fionn-sub000"
)

func init() {
	Register("yaml", YAMLParse, YAMLEmit)
}

// YAMLParse is the YAML front-end. It delegates the grammar itself to
// gopkg.in/yaml.v3, but walks the decoded *yaml.Node tree directly instead
// of decoding into a map[string]any: a Go map carries no order, so routing
// through one (as fionn.NodesFromValue's map[string]any contract requires)
// would discard a mapping's source key order. Driving fionn.TapeBuilder
// from the Node tree in document order keeps that order intact, the way
// formats/json.go's recursive descent does for JSON.
func YAMLParse(buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	if err := limits.CheckBytes("yaml", len(buf)); err != nil {
		return nil, err
	}
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return fionn.NewTapeFromNodes([]fionn.Node{})
		}
		return nil, fionn.NewError(fionn.Malformed, "yaml", 0, err.Error())
	}
	b := fionn.NewTapeBuilder("yaml", limits)
	if err := buildYAMLNode(&doc, b); err != nil {
		return nil, err
	}
	return b.Build(buf)
}

func buildYAMLNode(n *yaml.Node, b *fionn.TapeBuilder) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return b.Null()
		}
		return buildYAMLNode(n.Content[0], b)
	case yaml.AliasNode:
		resolved, err := resolveYAMLAlias(n)
		if err != nil {
			return err
		}
		return buildYAMLNode(resolved, b)
	case yaml.MappingNode:
		return buildYAMLMapping(n, b)
	case yaml.SequenceNode:
		if err := b.OpenArray(); err != nil {
			return err
		}
		for _, item := range n.Content {
			if err := buildYAMLNode(item, b); err != nil {
				return err
			}
		}
		return b.CloseArray()
	case yaml.ScalarNode:
		return buildYAMLScalar(n, b)
	default:
		return fionn.NewError(fionn.Malformed, "yaml", 0, "unsupported YAML node kind")
	}
}

// resolveYAMLAlias follows an alias chain to its anchor, rejecting
// dangling aliases and bounding the walk so a self-referential anchor
// fails as Malformed instead of looping forever.
func resolveYAMLAlias(n *yaml.Node) (*yaml.Node, error) {
	depth := 0
	for n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return nil, fionn.NewError(fionn.Malformed, "yaml", 0, "dangling alias")
		}
		n = n.Alias
		depth++
		if depth > 64 {
			return nil, fionn.NewError(fionn.Malformed, "yaml", 0, "alias recursion depth exceeded (possible cycle)")
		}
	}
	return n, nil
}

// buildYAMLMapping opens a fresh object for n's keys (including any merge
// keys it declares) and closes it.
func buildYAMLMapping(n *yaml.Node, b *fionn.TapeBuilder) error {
	if err := b.OpenObject(); err != nil {
		return err
	}
	if err := buildYAMLMappingFields(n, b); err != nil {
		return err
	}
	return b.CloseObject()
}

// buildYAMLMappingFields writes n's key/value pairs into the
// already-opened enclosing object, without opening one of its own: this
// lets a merge key ("<<") fold a referenced mapping's fields directly into
// the current object rather than nesting it.
//
// Merged-in fields are written before n's own fields, so that resolveField's
// last-match-wins scan lets a key n declares itself override the same key
// coming from a merged mapping, matching YAML merge-key semantics ("the
// current mapping wins").
func buildYAMLMappingFields(n *yaml.Node, b *fionn.TapeBuilder) error {
	var keys, vals []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i])
		vals = append(vals, n.Content[i+1])
	}
	for i, k := range keys {
		if k.Value == "<<" {
			if err := buildYAMLMergeValue(vals[i], b); err != nil {
				return err
			}
		}
	}
	for i, k := range keys {
		if k.Value == "<<" {
			continue
		}
		if err := b.Key(yamlNodeKeyString(k)); err != nil {
			return err
		}
		if err := buildYAMLNode(vals[i], b); err != nil {
			return err
		}
	}
	return nil
}

// buildYAMLMergeValue handles a "<<" key's value, which is either a single
// mapping (possibly aliased) or a sequence of mappings merged in order.
func buildYAMLMergeValue(v *yaml.Node, b *fionn.TapeBuilder) error {
	resolved, err := resolveYAMLAlias(v)
	if err != nil {
		return err
	}
	if resolved.Kind == yaml.SequenceNode {
		for _, item := range resolved.Content {
			m, err := resolveYAMLAlias(item)
			if err != nil {
				return err
			}
			if m.Kind != yaml.MappingNode {
				return fionn.NewError(fionn.Malformed, "yaml", 0, "merge key value must be a mapping or sequence of mappings")
			}
			if err := buildYAMLMappingFields(m, b); err != nil {
				return err
			}
		}
		return nil
	}
	if resolved.Kind != yaml.MappingNode {
		return fionn.NewError(fionn.Malformed, "yaml", 0, "merge key value must be a mapping or sequence of mappings")
	}
	return buildYAMLMappingFields(resolved, b)
}

// yamlNodeKeyString returns a mapping key's string form. yaml.Node.Value
// already carries the raw scalar text regardless of its resolved type, so
// a non-string key (e.g. an integer key) is coerced to its literal form
// for free; only a non-scalar key needs the yaml.Marshal fallback.
func yamlNodeKeyString(k *yaml.Node) string {
	if k.Kind == yaml.ScalarNode {
		return k.Value
	}
	out, _ := yaml.Marshal(k)
	return string(bytes.TrimSpace(out))
}

func buildYAMLScalar(n *yaml.Node, b *fionn.TapeBuilder) error {
	var v any
	if err := n.Decode(&v); err != nil {
		return fionn.NewError(fionn.Malformed, "yaml", 0, err.Error())
	}
	switch t := v.(type) {
	case nil:
		return b.Null()
	case bool:
		return b.Bool(t)
	case int:
		return b.Number(strconv.Itoa(t))
	case int64:
		return b.Number(strconv.FormatInt(t, 10))
	case uint64:
		return b.Number(strconv.FormatUint(t, 10))
	case float64:
		return b.Number(strconv.FormatFloat(t, 'g', -1, 64))
	case string:
		return b.String(t)
	case time.Time:
		return b.String(t.Format(time.RFC3339Nano))
	default:
		return b.String(n.Value)
	}
}

// YAMLEmit serializes t to YAML: lossy but deterministic, since the tape
// carries no comments/anchors/flow-style hints for yaml.v3 to restore.
func YAMLEmit(t *fionn.Tape) ([]byte, error) {
	v := fionn.ValueAt(t, t.Root())
	out, err := yaml.Marshal(v)
	if err != nil {
		return nil, fionn.NewError(fionn.Malformed, "yaml", 0, err.Error())
	}
	return out, nil
}
