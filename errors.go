package fionn

import "fmt"

// ErrorKind is the closed set of error categories the core surfaces at its
// boundary. CLI tooling maps a Kind to an exit code; library callers switch
// on it directly.
type ErrorKind int

const (
	// InvalidEncoding means the input is not valid UTF-8.
	InvalidEncoding ErrorKind = iota + 1
	// Malformed means the input violates its format's grammar.
	Malformed
	// InvalidPath means a path string could not be parsed.
	InvalidPath
	// MissingTarget means an operation referenced a path that does not exist.
	MissingTarget
	// TypeMismatch means an operation tried to index a value of the wrong kind.
	TypeMismatch
	// TestFailed means an RFC 6902 "test" operation failed.
	TestFailed
	// UnrepresentableRoot means an emitter was asked to serialize a root its
	// format cannot express.
	UnrepresentableRoot
	// NonTabular means CSV emission was asked to serialize non-uniform rows.
	NonTabular
	// CapacityExceeded means the input exceeded a configured size limit.
	CapacityExceeded
	// UngronConflict means two gron lines wrote incompatible kinds at the
	// same path.
	UngronConflict
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidEncoding:
		return "invalid_encoding"
	case Malformed:
		return "malformed"
	case InvalidPath:
		return "invalid_path"
	case MissingTarget:
		return "missing_target"
	case TypeMismatch:
		return "type_mismatch"
	case TestFailed:
		return "test_failed"
	case UnrepresentableRoot:
		return "unrepresentable_root"
	case NonTabular:
		return "non_tabular"
	case CapacityExceeded:
		return "capacity_exceeded"
	case UngronConflict:
		return "ungron_conflict"
	default:
		return "unknown"
	}
}

// Error is the single error type returned across the core's boundary.
// Format and Offset are best-effort context; Detail carries the human
// message.
type Error struct {
	Kind   ErrorKind
	Format string
	Offset int
	Detail string
}

func (e *Error) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s: offset %d: %s", e.Format, e.Offset, e.Detail)
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("offset %d: %s", e.Offset, e.Detail)
	}
	return e.Detail
}

func newError(kind ErrorKind, format string, offset int, detail string) *Error {
	return &Error{Kind: kind, Format: format, Offset: offset, Detail: detail}
}

// NewError is newError exported for format front-ends/emitters living outside
// this package (formats/*.go), which need to report typed errors without
// reaching into core internals.
func NewError(kind ErrorKind, format string, offset int, detail string) *Error {
	return newError(kind, format, offset, detail)
}

func malformedf(format string, offset int, msg string, args ...any) *Error {
	return newError(Malformed, format, offset, fmt.Sprintf(msg, args...))
}

// AsError extracts *Error from a generic error, mirroring the errors.As
// dance CLI callers use to pick an exit code.
func AsError(err error) (*Error, bool) {
	fe, ok := err.(*Error)
	return fe, ok
}

// UnknownFormatError reports that name is not a registered format.
func UnknownFormatError(name string) error {
	return newError(Malformed, name, 0, "unknown format: "+name)
}

// Limits bounds untrusted input: it guards tape construction and stream
// extraction against pathological documents.
type Limits struct {
	MaxInputBytes int // 0 = unlimited
	MaxDepth      int // 0 = unlimited
	MaxStringLen  int // 0 = unlimited
}

// DefaultLimits is generous enough for real documents, small enough to
// bound pathological input.
var DefaultLimits = Limits{
	MaxInputBytes: 512 * 1024 * 1024,
	MaxDepth:      4096,
	MaxStringLen:  64 * 1024 * 1024,
}

// CheckBytes is checkBytes exported for format front-ends outside this
// package.
func (l Limits) CheckBytes(format string, n int) error { return l.checkBytes(format, n) }

func (l Limits) checkBytes(format string, n int) error {
	if l.MaxInputBytes > 0 && n > l.MaxInputBytes {
		return newError(CapacityExceeded, format, 0, fmt.Sprintf("input %d bytes exceeds limit %d", n, l.MaxInputBytes))
	}
	return nil
}

func (l Limits) checkDepth(format string, offset, depth int) error {
	if l.MaxDepth > 0 && depth > l.MaxDepth {
		return newError(CapacityExceeded, format, offset, fmt.Sprintf("nesting depth %d exceeds limit %d", depth, l.MaxDepth))
	}
	return nil
}

func (l Limits) checkStringLen(format string, offset, n int) error {
	if l.MaxStringLen > 0 && n > l.MaxStringLen {
		return newError(CapacityExceeded, format, offset, fmt.Sprintf("string length %d exceeds limit %d", n, l.MaxStringLen))
	}
	return nil
}
