package order

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumber(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		n := NewNumber()
		require.Len(t, n, len(numberPrefix)+numberSuffixLen)
		require.True(t, strings.HasPrefix(n, numberPrefix))
		for _, c := range n[len(numberPrefix):] {
			assert.Contains(t, numberAlphabet, string(c))
		}
		seen[n] = true
	}
	// 36^10 candidates make collisions across 100 draws implausible.
	assert.Len(t, seen, 100)
}
