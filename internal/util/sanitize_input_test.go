package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsSuspicious(t *testing.T) {
	assert.True(t, ContainsSuspicious("<img onerror=x>"))
	assert.True(t, ContainsSuspicious("{{.Name}}"))
	assert.False(t, ContainsSuspicious("Admin User"))
}
