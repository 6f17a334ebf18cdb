package highlight

import (
	"strings"
	"testing"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "Go code block",
			input:    "```go\npackage main\n\nfunc main() {\n}\n```",
			contains: []string{"package", "main", "func"},
		},
		{
			name:     "Python code block",
			input:    "```python\ndef hello():\n    print('hello')\n```",
			contains: []string{"def", "hello"},
		},
		{
			name:     "no language specified",
			input:    "```\nsome code\n```",
			contains: []string{"some code"},
		},
		{
			name:     "text without code blocks",
			input:    "This is plain text",
			contains: []string{"This is plain text"},
		},
		{
			name:     "prose around blocks untouched",
			input:    "Before\n```go\nvar x int\n```\nAfter",
			contains: []string{"Before", "After", "var"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Markdown(tt.input)
			for _, expected := range tt.contains {
				if !strings.Contains(StripANSI(result), expected) {
					t.Errorf("expected output to contain %q", expected)
				}
			}
		})
	}
}

func TestBlockUnknownLanguage(t *testing.T) {
	code := "completely unknown syntax here"
	out := Block(code, "nosuchlanguage")
	if !strings.Contains(StripANSI(out), "unknown syntax") {
		t.Errorf("Block should preserve content, got %q", out)
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"color codes", "\x1b[31mred\x1b[0m", "red"},
		{"no codes", "plain", "plain"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.input); got != tt.expected {
				t.Errorf("StripANSI = %q, want %q", got, tt.expected)
			}
		})
	}
}
