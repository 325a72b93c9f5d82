package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWorkID(t *testing.T) {
	t.Run("accepts short form", func(t *testing.T) {
		canonical, short, err := NormalizeWorkID("W2741809807")
		require.NoError(t, err)
		assert.Equal(t, "https://openalex.org/W2741809807", canonical)
		assert.Equal(t, "W2741809807", short)
	})

	t.Run("accepts canonical URL", func(t *testing.T) {
		canonical, short, err := NormalizeWorkID("https://openalex.org/W2741809807")
		require.NoError(t, err)
		assert.Equal(t, "https://openalex.org/W2741809807", canonical)
		assert.Equal(t, "W2741809807", short)
	})

	t.Run("uppercases lowercase input", func(t *testing.T) {
		canonical, short, err := NormalizeWorkID("  w123  ")
		require.NoError(t, err)
		assert.Equal(t, "https://openalex.org/W123", canonical)
		assert.Equal(t, "W123", short)
	})

	t.Run("is idempotent", func(t *testing.T) {
		canonical, short, err := NormalizeWorkID("w2741809807")
		require.NoError(t, err)

		canonical2, short2, err := NormalizeWorkID(canonical)
		require.NoError(t, err)
		assert.Equal(t, canonical, canonical2)
		assert.Equal(t, short, short2)
	})

	t.Run("rejects input without an ID pattern", func(t *testing.T) {
		_, _, err := NormalizeWorkID("not-an-id")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidIdentifier))

		var idErr *IdentifierError
		require.ErrorAs(t, err, &idErr)
		assert.Equal(t, "not-an-id", idErr.Input)
	})

	t.Run("does not mistake DOIs for work IDs", func(t *testing.T) {
		_, _, err := NormalizeWorkID("https://doi.org/10.1038/nature12373")
		assert.Error(t, err)
	})
}

func TestRescoreMutatesOnlyRelevanceFields(t *testing.T) {
	cand := &Candidate{
		ID:       "https://openalex.org/W1",
		ShortID:  "W1",
		Title:    "Graph Neural Networks",
		Abstract: "We study graphs.",
		Score:    0.1,
	}
	cand.Rescore("graph neural networks")
	assert.Greater(t, cand.Score, 0.1)
	assert.NotEmpty(t, cand.Reasons)
	assert.Equal(t, "Graph Neural Networks", cand.Title)
}
