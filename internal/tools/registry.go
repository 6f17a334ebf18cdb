// Package tools defines the closed registry of tool names the model is
// trained to predict, and the parser for tool-invocation markup embedded in
// assistant messages.
package tools

// Tool is a fixed index into the registry. The model's auxiliary head emits
// one logit per slot, so indices are stable across runs and checkpoints.
type Tool int

const (
	Read Tool = iota
	Write
	Edit
	MultiEdit
	Bash
	Grep
	Glob
	LS
	Task
	TodoWrite
	WebFetch
	NotebookRead
	NotebookEdit
	WebSearch
	ExitPlanMode

	// Slots 15..18 are reserved for future tools so checkpointed tool heads
	// stay compatible when the registry grows.

	// Unknown is the overflow slot: any tool name outside the registry maps
	// here instead of being rejected.
	Unknown Tool = NumTools - 1
)

// NumTools is the fixed width of the registry and of the model's tool head
const NumTools = 20

var names = map[Tool]string{
	Read:         "Read",
	Write:        "Write",
	Edit:         "Edit",
	MultiEdit:    "MultiEdit",
	Bash:         "Bash",
	Grep:         "Grep",
	Glob:         "Glob",
	LS:           "LS",
	Task:         "Task",
	TodoWrite:    "TodoWrite",
	WebFetch:     "WebFetch",
	NotebookRead: "NotebookRead",
	NotebookEdit: "NotebookEdit",
	WebSearch:    "WebSearch",
	ExitPlanMode: "exit_plan_mode",
	Unknown:      "unknown",
}

var indices map[string]Tool

func init() {
	indices = make(map[string]Tool, len(names))
	for tool, name := range names {
		indices[name] = tool
	}
}

// String returns the registry name of the tool
func (t Tool) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether the index is within the registry
func (t Tool) Valid() bool {
	return t >= 0 && t < NumTools
}

// Index maps a tool name to its registry slot. Unrecognized names map to
// the overflow slot rather than failing.
func Index(name string) Tool {
	if tool, ok := indices[name]; ok {
		return tool
	}
	return Unknown
}

// Names returns the registered tool names in index order (reserved slots
// excluded)
func Names() []string {
	out := make([]string, 0, len(names))
	for t := Tool(0); t < NumTools; t++ {
		if name, ok := names[t]; ok {
			out = append(out, name)
		}
	}
	return out
}
