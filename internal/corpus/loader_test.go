package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alignlab/styletrain/internal/tokenizer"
	"github.com/alignlab/styletrain/internal/tools"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

const goodConversation = `{
  "messages": [
    {"role": "user", "content": "read main.go for me"},
    {"role": "assistant", "content": "I'll read it.\n\n<tool_use>\n<invoke name=\"Read\">\n<param name=\"file_path\">main.go</param>\n</invoke>\n</tool_use>"}
  ]
}`

const plainConversation = `{
  "messages": [
    {"role": "user", "content": "thanks"},
    {"role": "assistant", "content": "You're welcome."}
  ]
}`

func TestLoadSamplesSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", goodConversation)
	writeFile(t, dir, "broken.json", `{"messages": [not json`)
	writeFile(t, dir, "empty.json", `{"messages": []}`)
	writeFile(t, dir, "notes.txt", "not a conversation")

	loader := NewLoader(dir, nil, 0)
	samples, err := loader.LoadSamples(NewProcessor())
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}

	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if len(samples[0].ToolCalls) != 1 || samples[0].ToolCalls[0].Tool != tools.Read {
		t.Errorf("tool calls = %+v", samples[0].ToolCalls)
	}
}

func TestLoadSamplesEmptyCorpus(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{"no files at all", func(t *testing.T, dir string) {}},
		{"only malformed", func(t *testing.T, dir string) {
			writeFile(t, dir, "bad.json", "{{{")
		}},
		{"only non-json", func(t *testing.T, dir string) {
			writeFile(t, dir, "readme.md", "# hello")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			_, err := NewLoader(dir, nil, 0).LoadSamples(NewProcessor())
			if !errors.Is(err, ErrCorpusEmpty) {
				t.Errorf("err = %v, want ErrCorpusEmpty", err)
			}
		})
	}
}

func TestLoaderExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.json", goodConversation)
	writeFile(t, dir, "backup/old.json", plainConversation)
	writeFile(t, dir, "draft.json", plainConversation)

	loader := NewLoader(dir, []string{"backup/", "draft.json"}, 0)

	var paths []string
	err := loader.Walk(func(path string, conv Conversation) error {
		paths = append(paths, filepath.Base(path))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(paths) != 1 || paths[0] != "keep.json" {
		t.Errorf("walked %v, want [keep.json]", paths)
	}
}

func TestLoaderSkipsDotDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "visible.json", goodConversation)
	writeFile(t, dir, ".git/hidden.json", plainConversation)

	var count int
	err := NewLoader(dir, nil, 0).Walk(func(path string, conv Conversation) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if count != 1 {
		t.Errorf("walked %d files, want 1", count)
	}
}

func TestLoaderMaxFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", goodConversation)
	writeFile(t, dir, "b.json", plainConversation)
	writeFile(t, dir, "c.json", plainConversation)

	var count int
	err := NewLoader(dir, nil, 2).Walk(func(path string, conv Conversation) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if count != 2 {
		t.Errorf("walked %d files, want 2", count)
	}
}

// Full pipeline over a two-file corpus: one good four-message conversation
// with a single Read call, one malformed file that must be skipped.
func TestCorpusToBatchScenario(t *testing.T) {
	dir := t.TempDir()

	fourMessages := `{
  "messages": [
    {"role": "user", "content": "open the config"},
    {"role": "assistant", "content": "<tool_use><invoke name=\"Read\"><param name=\"file_path\">config.yaml</param></invoke></tool_use>"},
    {"role": "user", "content": "what does it say"},
    {"role": "assistant", "content": "it sets the batch size to four"}
  ]
}`
	writeFile(t, dir, "a.json", fourMessages)
	writeFile(t, dir, "b.json", `{"messages": [{{`)

	samples, err := NewLoader(dir, nil, 0).LoadSamples(NewProcessor())
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2 from the good file only", len(samples))
	}

	vocab, err := tokenizer.BuildVocabulary([]string{fourMessages}, 100)
	if err != nil {
		t.Fatalf("BuildVocabulary failed: %v", err)
	}

	batch, err := NewBatch(tokenizer.New(vocab), samples, 2, 16)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}
	if err := batch.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	// One row carries exactly the Read bit, the other is all zero
	var withRead, allZero int
	for i := 0; i < batch.Size(); i++ {
		sum := 0
		for _, v := range batch.ToolLabels[i] {
			sum += v
		}
		switch {
		case sum == 1 && batch.ToolLabels[i][tools.Read] == 1:
			withRead++
		case sum == 0:
			allZero++
		}
	}
	if withRead != 1 || allZero != 1 {
		t.Errorf("tool label rows: %d with Read, %d all-zero, want 1 and 1", withRead, allZero)
	}
}

func TestCollectStats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tools.json", goodConversation)
	writeFile(t, dir, "plain.json", plainConversation)

	stats, err := NewLoader(dir, nil, 0).CollectStats(NewProcessor())
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if stats.Files != 2 {
		t.Errorf("Files = %d, want 2", stats.Files)
	}
	if stats.Samples != 2 {
		t.Errorf("Samples = %d, want 2", stats.Samples)
	}
	if stats.WithToolCalls != 1 {
		t.Errorf("WithToolCalls = %d, want 1", stats.WithToolCalls)
	}
	if stats.ToolCounts["Read"] != 1 {
		t.Errorf("ToolCounts = %v", stats.ToolCounts)
	}
}
