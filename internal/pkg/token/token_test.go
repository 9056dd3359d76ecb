package token

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpaque(t *testing.T) {
	a, err := NewOpaque()
	require.NoError(t, err)
	b, err := NewOpaque()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestNewNumericCode(t *testing.T) {
	digitsOnly := regexp.MustCompile(`^[0-9]+$`)
	for i := 0; i < 200; i++ {
		c, err := NewNumericCode(6)
		require.NoError(t, err)
		require.Len(t, c, 6)
		require.Regexp(t, digitsOnly, c)
	}
}

func TestNewNumericCode_InvalidLength(t *testing.T) {
	_, err := NewNumericCode(0)
	assert.Error(t, err)
}

func TestHashAndEqual(t *testing.T) {
	h := Hash("123456")
	assert.Len(t, h, 64)
	assert.True(t, Equal(h, Hash("123456")))
	assert.False(t, Equal(h, Hash("654321")))
	assert.False(t, Equal(h, ""))
}
