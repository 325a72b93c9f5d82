package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Run("lowercases and splits on non-token characters", func(t *testing.T) {
		got := Tokenize("Graph Neural-Networks, for protein_function!")
		assert.Equal(t, []string{"graph", "neural-networks", "for", "protein_function"}, got)
	})

	t.Run("keeps duplicates in order", func(t *testing.T) {
		got := Tokenize("cat dog cat")
		assert.Equal(t, []string{"cat", "dog", "cat"}, got)
	})

	t.Run("empty input yields no tokens", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
		assert.Empty(t, Tokenize("!!! ???"))
	})

	t.Run("tokens must start with a letter or digit", func(t *testing.T) {
		got := Tokenize("-lead 2fast _x")
		assert.Equal(t, []string{"lead", "2fast", "x"}, got)
	})
}

func TestUniqueTokens(t *testing.T) {
	set := UniqueTokens("cat dog CAT")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "cat")
	assert.Contains(t, set, "dog")

	assert.Nil(t, UniqueTokens(""))
}

func TestRebuildAbstract(t *testing.T) {
	t.Run("reconstructs word order", func(t *testing.T) {
		got := RebuildAbstract(map[string][]int{
			"The":  {0},
			"cat":  {1},
			"sat.": {2},
		})
		assert.Equal(t, "The cat sat.", got)
	})

	t.Run("collapses space before standalone punctuation", func(t *testing.T) {
		got := RebuildAbstract(map[string][]int{
			"Go":  {0},
			",":   {1},
			"see": {2},
		})
		assert.Equal(t, "Go, see", got)
	})

	t.Run("repeated words fill every listed position", func(t *testing.T) {
		got := RebuildAbstract(map[string][]int{
			"to": {0, 2},
			"be": {1, 3},
		})
		assert.Equal(t, "to be to be", got)
	})

	t.Run("gaps are skipped", func(t *testing.T) {
		got := RebuildAbstract(map[string][]int{
			"first": {0},
			"last":  {5},
		})
		assert.Equal(t, "first last", got)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Equal(t, "", RebuildAbstract(nil))
		assert.Equal(t, "", RebuildAbstract(map[string][]int{}))
		assert.Equal(t, "", RebuildAbstract(map[string][]int{"word": nil}))
	})

	t.Run("rejects an index with an absurd position", func(t *testing.T) {
		got := RebuildAbstract(map[string][]int{"x": {10_000_000}})
		assert.Equal(t, "", got)
	})
}

func TestRelevanceScore(t *testing.T) {
	t.Run("pins exact coefficients", func(t *testing.T) {
		score, reasons := RelevanceScore(
			"graph neural network",
			"Graph Neural Networks for Protein Function",
			"",
		)
		// titleCoverage=3/3, bodyCoverage=3/3, no phrase boost (the title
		// has "networks", not "network"), no abstract boost.
		assert.InDelta(t, 0.80, score, 1e-9)
		assert.Contains(t, reasons, "title coverage 1.00")
		assert.Contains(t, reasons, "body coverage 1.00")
		assert.NotContains(t, reasons, "exact phrase in title")
		assert.NotContains(t, reasons, "abstract available")
	})

	t.Run("empty query tokens", func(t *testing.T) {
		score, reasons := RelevanceScore("!!!", "Some Title", "Some abstract")
		assert.Zero(t, score)
		assert.Equal(t, []string{"empty query tokens"}, reasons)
	})

	t.Run("phrase and abstract boosts apply", func(t *testing.T) {
		score, reasons := RelevanceScore(
			"graph neural networks",
			"Graph Neural Networks for Protein Function",
			"We study graph neural networks.",
		)
		// 0.55 + 0.25 + 0.15 + 0.05 capped at 1.
		assert.InDelta(t, 1.0, score, 1e-9)
		assert.Contains(t, reasons, "exact phrase in title")
		assert.Contains(t, reasons, "abstract available")
	})

	t.Run("abstract-only match scores body coverage", func(t *testing.T) {
		score, reasons := RelevanceScore("transformer", "Unrelated Title", "A transformer model.")
		// bodyCoverage=1, titleCoverage=0, abstract boost.
		assert.InDelta(t, 0.60, score, 1e-9)
		assert.Contains(t, reasons, "title coverage 0.00")
		assert.Contains(t, reasons, "body coverage 1.00")
	})

	t.Run("score stays within unit interval", func(t *testing.T) {
		score, _ := RelevanceScore("deep learning", "Deep Learning", "Deep learning everywhere.")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

func TestSanitizeFilename(t *testing.T) {
	t.Run("folds accents and replaces unsafe characters", func(t *testing.T) {
		got := SanitizeFilename("Déjà Vu: A Study (2023)", 120)
		assert.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got), 120)
		for _, r := range got {
			assert.Less(t, int(r), 128, "result must be ASCII only")
		}
		assert.NotContains(t, got, " ")
		assert.True(t, strings.HasPrefix(got, "Deja_Vu"), "got %q", got)
	})

	t.Run("empty result falls back to paper", func(t *testing.T) {
		assert.Equal(t, "paper", SanitizeFilename("", 120))
		assert.Equal(t, "paper", SanitizeFilename("日本語", 120))
	})

	t.Run("truncates long names", func(t *testing.T) {
		long := strings.Repeat("abc ", 100)
		got := SanitizeFilename(long, 20)
		require.LessOrEqual(t, len(got), 20)
		assert.NotEmpty(t, got)
	})
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "exact", TruncateText("exact", 5))
	assert.Equal(t, "lo...", TruncateText("longer text", 5))
	assert.Len(t, TruncateText(strings.Repeat("x", 500), 300), 300)
}
