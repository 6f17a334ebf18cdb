package corpus

import (
	"testing"

	"github.com/alignlab/styletrain/internal/tools"
)

func TestProcessConversationPairs(t *testing.T) {
	conv := Conversation{Messages: []Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: "second question"},
		{Role: "assistant", Content: "second answer"},
	}}

	samples := NewProcessor().ProcessConversation(conv)
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	if samples[0].Input != "first question" || samples[0].Output != "first answer" {
		t.Errorf("sample 0 = %+v", samples[0])
	}
	if samples[1].Input != "second question" || samples[1].Output != "second answer" {
		t.Errorf("sample 1 = %+v", samples[1])
	}
}

func TestProcessConversationSkipsBadPairs(t *testing.T) {
	tests := []struct {
		name string
		msgs []Message
		want int
	}{
		{
			name: "trailing user message dropped",
			msgs: []Message{
				{Role: "user", Content: "q"},
				{Role: "assistant", Content: "a"},
				{Role: "user", Content: "unanswered"},
			},
			want: 1,
		},
		{
			name: "misaligned roles skipped",
			msgs: []Message{
				{Role: "assistant", Content: "starts wrong"},
				{Role: "user", Content: "q"},
			},
			want: 0,
		},
		{
			name: "two assistant messages in a row",
			msgs: []Message{
				{Role: "user", Content: "q"},
				{Role: "assistant", Content: "a"},
				{Role: "assistant", Content: "followup"},
				{Role: "user", Content: "q2"},
			},
			want: 1,
		},
		{
			name: "empty conversation",
			msgs: nil,
			want: 0,
		},
	}

	proc := NewProcessor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := proc.ProcessConversation(Conversation{Messages: tt.msgs})
			if len(got) != tt.want {
				t.Errorf("got %d samples, want %d", len(got), tt.want)
			}
		})
	}
}

func TestProcessConversationExtractsToolCalls(t *testing.T) {
	conv := Conversation{Messages: []Message{
		{Role: "user", Content: "read the config"},
		{Role: "assistant", Content: `<tool_use><invoke name="Read"><param name="file_path">config.yaml</param></invoke></tool_use>`},
	}}

	samples := NewProcessor().ProcessConversation(conv)
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if len(samples[0].ToolCalls) != 1 || samples[0].ToolCalls[0].Tool != tools.Read {
		t.Errorf("tool calls = %+v", samples[0].ToolCalls)
	}
}

func TestContainsCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"fenced block", "Here:\n```go\nfmt.Println(1)\n```", true},
		{"python def", "Use def process_data(items): for this", true},
		{"go func", "Write func handleRequest(w, r) instead", true},
		{"import statement", "Add import json at the top", true},
		{"from import", "Start with from os import path", true},
		{"plain prose", "This change makes the loop faster.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsCode(tt.text); got != tt.want {
				t.Errorf("containsCode(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
