package service

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeIDs(t *testing.T) {
	ids, err := NewSnowflakeIDs(7)
	require.NoError(t, err)

	seen := map[string]bool{}
	var prev int64
	for i := 0; i < 1000; i++ {
		id := ids.Next()
		require.True(t, strings.HasPrefix(id, "ORD-"), id)
		require.False(t, seen[id], "duplicate %s", id)
		seen[id] = true

		n, err := strconv.ParseInt(strings.TrimPrefix(id, "ORD-"), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}
}

func TestSnowflakeIDs_BadNode(t *testing.T) {
	_, err := NewSnowflakeIDs(5000)
	assert.Error(t, err)
}
