// Package corpus turns recorded assistant conversations into model-ready
// training samples and padded tensor batches.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/alignlab/styletrain/internal/logging"
)

// ErrCorpusEmpty is returned when no readable conversation files exist at
// all. Training must not proceed with zero data, so callers treat this as
// fatal.
var ErrCorpusEmpty = errors.New("corpus: no readable conversation files")

// Message is a single turn in a recorded conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is one recorded conversation file. Provenance fields other
// than messages are ignored by this engine.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// Loader reads conversation records from a directory of JSON files
type Loader struct {
	dir      string
	exclude  *ignore.GitIgnore
	maxFiles int
}

// NewLoader creates a loader over the given directory. Exclude patterns use
// gitignore syntax; maxFiles of 0 means unlimited.
func NewLoader(dir string, exclude []string, maxFiles int) *Loader {
	return &Loader{
		dir:      dir,
		exclude:  ignore.CompileIgnoreLines(exclude...),
		maxFiles: maxFiles,
	}
}

// Walk calls fn for every readable conversation record under the loader's
// directory. Malformed files are logged and skipped; they never abort the
// walk. Each call re-reads the corpus from the start, which is the only way
// to rewind.
//
// Returns ErrCorpusEmpty if not a single record could be loaded.
func (l *Loader) Walk(fn func(path string, conv Conversation) error) error {
	loaded := 0
	seen := 0

	err := filepath.Walk(l.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			name := filepath.Base(path)
			if path != l.dir && (strings.HasPrefix(name, ".") || l.exclude.MatchesPath(rel(l.dir, path)+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if l.exclude.MatchesPath(rel(l.dir, path)) {
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}
		if l.maxFiles > 0 && seen >= l.maxFiles {
			return filepath.SkipAll
		}
		seen++

		conv, err := readConversation(path)
		if err != nil {
			logging.Warnf("skipping conversation file %s: %v", path, err)
			return nil
		}

		loaded++
		return fn(path, conv)
	})
	if err != nil {
		return fmt.Errorf("walking corpus %s: %w", l.dir, err)
	}

	if loaded == 0 {
		return ErrCorpusEmpty
	}
	return nil
}

// LoadSamples walks the corpus and extracts training samples from every
// conversation using the given processor
func (l *Loader) LoadSamples(proc *Processor) ([]TrainingSample, error) {
	var samples []TrainingSample

	err := l.Walk(func(path string, conv Conversation) error {
		samples = append(samples, proc.ProcessConversation(conv)...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Infof("loaded %d training samples from %s", len(samples), l.dir)
	return samples, nil
}

func readConversation(path string) (Conversation, error) {
	var conv Conversation

	data, err := os.ReadFile(path)
	if err != nil {
		return conv, fmt.Errorf("reading file: %w", err)
	}

	if err := json.Unmarshal(data, &conv); err != nil {
		return conv, fmt.Errorf("parsing JSON: %w", err)
	}

	if len(conv.Messages) == 0 {
		return conv, errors.New("no messages")
	}
	return conv, nil
}

// Stats summarizes a corpus for the inspect command
type Stats struct {
	Files         int
	Samples       int
	WithToolCalls int
	WithCode      int
	ToolCounts    map[string]int
}

// CollectStats walks the corpus and summarizes it
func (l *Loader) CollectStats(proc *Processor) (*Stats, error) {
	stats := &Stats{ToolCounts: make(map[string]int)}

	err := l.Walk(func(path string, conv Conversation) error {
		stats.Files++
		for _, s := range proc.ProcessConversation(conv) {
			stats.Samples++
			if len(s.ToolCalls) > 0 {
				stats.WithToolCalls++
			}
			if s.HasCode {
				stats.WithCode++
			}
			for _, call := range s.ToolCalls {
				stats.ToolCounts[call.Tool.String()]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// SortedTools returns tool names by descending count
func (s *Stats) SortedTools() []string {
	out := make([]string, 0, len(s.ToolCounts))
	for name := range s.ToolCounts {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.ToolCounts[out[i]] != s.ToolCounts[out[j]] {
			return s.ToolCounts[out[i]] > s.ToolCounts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func rel(base, path string) string {
	r, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return r
}
