package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Blue Harbour":             "blue-harbour",
		"  Été à Paris — n°2 ":     "ete-a-paris-n-2",
		"Œuvre":                    "uvre",
		"!!!":                      "",
		"Still-Life (with lemons)": "still-life-with-lemons",
		"2024: Untitled #7":        "2024-untitled-7",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}

	long := Make(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(long), MaxLength)
	assert.False(t, strings.HasSuffix(long, "-"))
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "blue", WithSuffix("blue", 1))
	assert.Equal(t, "blue-2", WithSuffix("blue", 2))
	assert.Equal(t, "blue-12", WithSuffix("blue", 12))

	long := strings.Repeat("a", MaxLength)
	got := WithSuffix(long, 3)
	assert.Len(t, got, MaxLength)
	assert.True(t, strings.HasSuffix(got, "-3"))
}
