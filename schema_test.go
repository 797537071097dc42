package fionn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaExactMatch(t *testing.T) {
	s := NewSchema("user", "age")
	assert.True(t, s.Match("user"))
	assert.True(t, s.Match("age"))
	assert.False(t, s.Match("skip"))
	assert.Equal(t, []string{"user", "age"}, s.Fields())
}

func TestSchemaWildcardSuffix(t *testing.T) {
	s := NewSchema("meta_*", "id")
	assert.True(t, s.Match("meta_source"))
	assert.True(t, s.Match("meta_"))
	assert.False(t, s.Match("metax"))
	assert.True(t, s.Match("id"))
}
