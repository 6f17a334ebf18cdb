package corpus

import (
	"regexp"

	"github.com/alignlab/styletrain/internal/tools"
)

// TrainingSample is one (user prompt, assistant reply) pair extracted from a
// conversation. Samples are derived fresh per conversation and never
// persisted on their own.
type TrainingSample struct {
	Input     string
	Output    string
	ToolCalls []tools.Invocation
	HasCode   bool
}

var codePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```\\w*\\n.*?```"),
	regexp.MustCompile(`def\s+\w+`),
	regexp.MustCompile(`class\s+\w+`),
	regexp.MustCompile(`func\s+\w+`),
	regexp.MustCompile(`import\s+\w+`),
	regexp.MustCompile(`from\s+\w+\s+import`),
}

// Processor extracts training samples from conversation records
type Processor struct{}

// NewProcessor creates a sample processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ProcessConversation walks the message list two at a time (user, then
// assistant) and produces one training sample per complete pair. A trailing
// user message with no assistant reply is skipped, as is any pair whose
// roles do not line up.
func (p *Processor) ProcessConversation(conv Conversation) []TrainingSample {
	var samples []TrainingSample

	msgs := conv.Messages
	for i := 0; i+1 < len(msgs); i += 2 {
		user, assistant := msgs[i], msgs[i+1]
		if user.Role != "user" || assistant.Role != "assistant" {
			continue
		}

		samples = append(samples, TrainingSample{
			Input:     user.Content,
			Output:    assistant.Content,
			ToolCalls: tools.ParseInvocations(assistant.Content),
			HasCode:   containsCode(assistant.Content),
		})
	}

	return samples
}

func containsCode(text string) bool {
	for _, pattern := range codePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
