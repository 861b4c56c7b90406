package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGenaiContents(t *testing.T) {
	contents := []Content{
		{Role: "user", Parts: []Part{{Text: "Where should I go?"}}},
		{Role: "model", Parts: []Part{{Text: "Try "}, {Text: "Kyoto."}}},
	}

	out := toGenaiContents(contents)
	require.Len(t, out, 2)

	assert.Equal(t, "user", out[0].Role)
	require.Len(t, out[0].Parts, 1)
	assert.Equal(t, "Where should I go?", out[0].Parts[0].Text)

	assert.Equal(t, "model", out[1].Role)
	require.Len(t, out[1].Parts, 2)
	assert.Equal(t, "Kyoto.", out[1].Parts[1].Text)
}

func TestToGenaiContents_Empty(t *testing.T) {
	assert.Empty(t, toGenaiContents(nil))
}
