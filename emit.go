package fionn

// FormatKind names one of the encodings the formats/ package can parse
// and/or emit. It lives here, rather than in formats/, so that core
// code (CLI dispatch, schema defaults) can name a format without importing
// formats/ — which in turn imports this package, so the dependency can
// only run one way.
type FormatKind string

const (
	FormatJSON FormatKind = "json"
	FormatYAML FormatKind = "yaml"
	FormatTOML FormatKind = "toml"
	FormatCSV  FormatKind = "csv"
	FormatISON FormatKind = "ison"
	FormatTOON FormatKind = "toon"
)

func (f FormatKind) String() string { return string(f) }

// KnownFormats lists every FormatKind the formats/ package registers a
// front-end and/or emitter for. The registry itself — the mutex-guarded
// name -> (Frontend, Emitter) table — lives in formats/registry.go
// (grounded on cue's internal/core/runtime/imports.go builtins index);
// this slice is just the closed set of names it is expected to serve.
var KnownFormats = []FormatKind{
	FormatJSON, FormatYAML, FormatTOML, FormatCSV, FormatISON, FormatTOON,
}
