package dream_test

import (
	"testing"

	"github.com/ssyqq/dream"
	"github.com/stretchr/testify/assert"
)

func TestMessage_HasImage(t *testing.T) {
	t.Parallel()
	assert.False(t, dream.Message{Role: dream.RoleUser, Content: "hi"}.HasImage())
	assert.True(t, dream.Message{Role: dream.RoleUser, ImagePath: "/tmp/a.png"}.HasImage())
}

func TestRole_Valid(t *testing.T) {
	t.Parallel()
	for _, r := range []dream.Role{dream.RoleSystem, dream.RoleUser, dream.RoleAssistant} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, dream.Role("tool_result").Valid())
	assert.False(t, dream.Role("").Valid())
}

func TestTemperature(t *testing.T) {
	t.Parallel()
	a := dream.Temperature(0.7)
	b := dream.Temperature(0.7)
	assert.InDelta(t, 0.7, *a, 1e-9)
	assert.NotSame(t, a, b)
}
