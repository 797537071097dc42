// Package formats holds the C2 front-ends (bytes -> Tape) and C9 emitters
// (Tape -> bytes) for each supported encoding, plus a registry mapping a
// format name to its pair of functions.
package formats

import (
	"sync"
	"unicode/utf8"

	"github.com/darach/fionn-sub000"
)

// Frontend parses buf into a Tape under limits.
type Frontend func(buf []byte, limits fionn.Limits) (*fionn.Tape, error)

// Emitter serializes a Tape to its format's bytes.
type Emitter func(t *fionn.Tape) ([]byte, error)

type entry struct {
	parse Frontend
	emit  Emitter
}

// registry is a mutex-guarded name -> (Frontend, Emitter) table, the same
// register-once-read-many shape as cue's builtins index
// (internal/core/runtime/imports.go): registration happens from the init
// function in each format's file, lookups happen at request time from arbitrary
// goroutines.
type registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

var std = &registry{entries: make(map[string]entry)}

// Register associates name with a front-end and/or emitter. Either may be
// nil if a format is write-only or read-only.
func Register(name string, parse Frontend, emit Emitter) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.entries[name] = entry{parse: parse, emit: emit}
}

// Names returns every registered format name.
func Names() []string {
	std.mu.RLock()
	defer std.mu.RUnlock()
	out := make([]string, 0, len(std.entries))
	for n := range std.entries {
		out = append(out, n)
	}
	return out
}

// Parse parses buf as format name.
func Parse(name string, buf []byte, limits fionn.Limits) (*fionn.Tape, error) {
	std.mu.RLock()
	e, ok := std.entries[name]
	std.mu.RUnlock()
	if !ok || e.parse == nil {
		return nil, fionn.UnknownFormatError(name)
	}
	if !utf8.Valid(buf) {
		return nil, fionn.NewError(fionn.InvalidEncoding, name, 0, "input is not valid UTF-8")
	}
	return e.parse(buf, limits)
}

// Emit serializes t as format name.
func Emit(name string, t *fionn.Tape) ([]byte, error) {
	std.mu.RLock()
	e, ok := std.entries[name]
	std.mu.RUnlock()
	if !ok || e.emit == nil {
		return nil, fionn.UnknownFormatError(name)
	}
	return e.emit(t)
}
