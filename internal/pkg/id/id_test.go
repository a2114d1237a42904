package id

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsParsableAndUnique(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	_, err := ulid.Parse(a)
	require.NoError(t, err)
	assert.Len(t, a, 26)
}
