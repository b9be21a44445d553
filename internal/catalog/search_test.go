package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevance(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		target string
		want   float64
	}{
		{"exact substring", "spring roll", "THAI SPRING ROLL", 5},
		{"punctuation ignored", "spring roll!", "THAI SPRING ROLL", 5},
		{"whole word", "crispy chicken please", "THAI SPECIAL CRISPY CHICKEN", 4},
		{"equal word", "mojito", "mojito", 5},
		{"partial long word", "noodle bowl", "THAI NOODLES SOUP", 0.5},
		{"partial short word ignored", "roll cake", "FRIED ROLLS", 0},
		{"stop words only", "show me the", "THAI HOT SOUP", 0},
		{"empty", "   ", "anything", 0},
		{"no match", "pizza", "THAI HOT SOUP", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relevance(tt.query, tt.target))
		})
	}
}

func TestSearch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	results := c.Search("spring roll", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "108", results[0].Item.Code)
	assert.LessOrEqual(t, len(results), 5)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	byCode := c.Search("351", 0)
	require.NotEmpty(t, byCode)
	assert.Equal(t, "351", byCode[0].Item.Code)

	assert.Empty(t, c.Search("", 10))
	assert.Empty(t, c.Search("zzzzzz", 10))
}
