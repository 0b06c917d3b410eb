package uid

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := uuid.Parse(New())
	assert.NoError(t, err)
	assert.NotEqual(t, New(), New())
}

func TestSecret(t *testing.T) {
	s, err := Secret("rst_", 32)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s, "rst_"))
	assert.Len(t, s, len("rst_")+64)

	other, err := Secret("rst_", 32)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)
}
