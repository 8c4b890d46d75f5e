package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildContext(t *testing.T) {
	items := []Item{
		{ID: "eth-light", Name: "Ethiopian Light", Description: "floral notes", Score: 0.91},
		{ID: "kenya-aa", Name: "Kenya AA", Description: "bright\nacidity", Score: 0.8},
	}

	got := BuildContext(items, 0)
	assert.Equal(t, "- Ethiopian Light: floral notes\n- Kenya AA: bright acidity", got)
	assert.NotContains(t, got, "eth-light")
	assert.NotContains(t, got, "0.91")
}

func TestBuildContext_Bounded(t *testing.T) {
	items := []Item{
		{Name: "A", Description: strings.Repeat("x", 10)},
		{Name: "B", Description: strings.Repeat("y", 10)},
	}

	// 第一行 15 个字符，第二行放不下
	assert.Equal(t, "- A: xxxxxxxxxx", BuildContext(items, 20))
	assert.Equal(t, "", BuildContext(items, 5))

	full := BuildContext(items, 31)
	assert.Equal(t, 31, utf8.RuneCountInString(full))
}

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil, 100))
}
