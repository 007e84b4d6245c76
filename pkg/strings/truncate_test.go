package strings

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "short string unchanged", input: "HTTP 200 expected", maxLen: 40, expected: "HTTP 200 expected"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, expected: "hello"},
		{name: "long string truncated", input: "HTTP 400 expected, but HTTP 200 received.", maxLen: 15, expected: "HTTP 400 exp..."},
		{name: "notice list joined", input: "Notices:\n- first\n- second\n", maxLen: 40, expected: "Notices: - first - second"},
		{name: "carriage returns handled", input: "hello\r\nworld", maxLen: 20, expected: "hello world"},
		{name: "tabs collapsed", input: "hello\t\tworld", maxLen: 20, expected: "hello world"},
		{name: "empty string", input: "", maxLen: 10, expected: ""},
		{name: "whitespace only becomes empty", input: "   \n\t  ", maxLen: 10, expected: ""},
		{name: "maxLen clamped", input: "hello", maxLen: 0, expected: "h..."},
		{name: "negative maxLen clamped", input: "hello", maxLen: -5, expected: "h..."},
		{name: "short string with small maxLen unchanged", input: "hi", maxLen: 3, expected: "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.maxLen))
		})
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	result := Truncate("Łódź Kraków Gdańsk", 8)
	assert.Equal(t, "Łódź ...", result)
	assert.Equal(t, 8, utf8.RuneCountInString(result))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Notices:", FirstLine("Notices:\n- a"))
	assert.Equal(t, "single", FirstLine("single"))
}
