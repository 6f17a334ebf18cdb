package tools

import "regexp"

// Tool-invocation markup grammar, as it appears inside assistant messages:
//
//	<tool_use>
//	  <invoke name="Read">
//	    <param name="file_path">/src/main.go</param>
//	  </invoke>
//	</tool_use>
//
// A <tool_use> block holds one or more <invoke> elements; each invoke names
// a tool and carries zero or more key/value parameters. Tool names outside
// the registry map to the overflow slot.

// Invocation is a single parsed tool call
type Invocation struct {
	Tool   Tool
	Name   string // raw name as written, preserved for unknown tools
	Params map[string]string
}

var (
	blockRegex  = regexp.MustCompile(`(?s)<tool_use>(.*?)</tool_use>`)
	invokeRegex = regexp.MustCompile(`(?s)<invoke\s+name="([\w-]+)"\s*>(.*?)</invoke>`)
	paramRegex  = regexp.MustCompile(`(?s)<param\s+name="([\w-]+)"\s*>(.*?)</param>`)
)

// ParseInvocations extracts all tool invocations from text, in encounter
// order. Text without markup yields an empty slice; malformed fragments
// inside a block are ignored rather than failing the message.
func ParseInvocations(text string) []Invocation {
	var out []Invocation

	for _, block := range blockRegex.FindAllStringSubmatch(text, -1) {
		for _, inv := range invokeRegex.FindAllStringSubmatch(block[1], -1) {
			name := inv[1]
			params := make(map[string]string)
			for _, p := range paramRegex.FindAllStringSubmatch(inv[2], -1) {
				params[p[1]] = p[2]
			}
			out = append(out, Invocation{
				Tool:   Index(name),
				Name:   name,
				Params: params,
			})
		}
	}

	return out
}

// HasInvocation reports whether the text contains any tool-use markup
func HasInvocation(text string) bool {
	return blockRegex.MatchString(text)
}
