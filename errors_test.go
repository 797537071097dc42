package fionn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindString(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want string
	}{
		{InvalidEncoding, "invalid_encoding"},
		{Malformed, "malformed"},
		{InvalidPath, "invalid_path"},
		{MissingTarget, "missing_target"},
		{TypeMismatch, "type_mismatch"},
		{TestFailed, "test_failed"},
		{UnrepresentableRoot, "unrepresentable_root"},
		{NonTabular, "non_tabular"},
		{CapacityExceeded, "capacity_exceeded"},
		{UngronConflict, "ungron_conflict"},
		{ErrorKind(999), "unknown"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}

func TestErrorErrorFormatting(t *testing.T) {
	withFormat := &Error{Kind: Malformed, Format: "json", Offset: 12, Detail: "unexpected token"}
	assert.Equal(t, "json: offset 12: unexpected token", withFormat.Error())

	withoutFormat := &Error{Kind: InvalidPath, Offset: 3, Detail: "bad token"}
	assert.Equal(t, "offset 3: bad token", withoutFormat.Error())

	noOffset := &Error{Kind: TypeMismatch, Offset: -1, Detail: "not an object"}
	assert.Equal(t, "not an object", noOffset.Error())
}

func TestAsErrorExtractsTypedError(t *testing.T) {
	var err error = newError(Malformed, "json", 0, "bad")
	fe, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, Malformed, fe.Kind)

	_, ok = AsError(errors.New("plain"))
	assert.False(t, ok)
}

func TestUnknownFormatError(t *testing.T) {
	err := UnknownFormatError("xml")
	fe, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, Malformed, fe.Kind)
	assert.Contains(t, fe.Error(), "xml")
}

func TestLimitsCheckBytes(t *testing.T) {
	l := Limits{MaxInputBytes: 10}
	assert.NoError(t, l.CheckBytes("json", 10))
	err := l.CheckBytes("json", 11)
	assert.Error(t, err)
	fe, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, CapacityExceeded, fe.Kind)

	unlimited := Limits{}
	assert.NoError(t, unlimited.CheckBytes("json", 1<<30))
}

func TestLimitsCheckDepthAndStringLen(t *testing.T) {
	l := Limits{MaxDepth: 4, MaxStringLen: 8}
	assert.NoError(t, l.checkDepth("json", 0, 4))
	err := l.checkDepth("json", 0, 5)
	assert.Error(t, err)
	fe, _ := AsError(err)
	assert.Equal(t, CapacityExceeded, fe.Kind)

	assert.NoError(t, l.checkStringLen("json", 0, 8))
	err = l.checkStringLen("json", 0, 9)
	assert.Error(t, err)
	fe, _ = AsError(err)
	assert.Equal(t, CapacityExceeded, fe.Kind)
}

func TestBuilderStringLenLimitUsesError(t *testing.T) {
	limits := Limits{MaxStringLen: 4}
	b := NewTapeBuilder("test", limits)
	err := b.String("toolong")
	assert.Error(t, err)
	fe, ok := AsError(err)
	assert.True(t, ok)
	assert.Equal(t, CapacityExceeded, fe.Kind)
}
