package corpus

import (
	"fmt"

	"github.com/alignlab/styletrain/internal/tokenizer"
	"github.com/alignlab/styletrain/internal/tools"
)

// Batch is a padded, model-ready group of training samples.
//
// Invariants: every row of InputIDs, Labels and AttentionMask has exactly
// SeqLen entries; AttentionMask is 1 exactly where InputIDs is non-pad;
// every ToolLabels row is a multi-hot {0,1} vector of width tools.NumTools.
type Batch struct {
	InputIDs      [][]int
	Labels        [][]int
	AttentionMask [][]int
	ToolLabels    [][]int
	SeqLen        int
}

// NewBatch assembles the first batchSize samples into a batch. Sampling and
// shuffling policy belong to the caller. Inputs and outputs are tokenized,
// truncated from the end when longer than seqLen and right-padded with the
// pad ID when shorter.
func NewBatch(tok *tokenizer.Tokenizer, samples []TrainingSample, batchSize, seqLen int) (*Batch, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to batch")
	}
	if batchSize <= 0 || seqLen <= 0 {
		return nil, fmt.Errorf("invalid batch dimensions: batch=%d seq=%d", batchSize, seqLen)
	}

	if len(samples) > batchSize {
		samples = samples[:batchSize]
	}

	b := &Batch{SeqLen: seqLen}
	for _, sample := range samples {
		inputIDs := padOrTruncate(tok.Encode(sample.Input), seqLen)
		labels := padOrTruncate(tok.Encode(sample.Output), seqLen)

		mask := make([]int, seqLen)
		for i, id := range inputIDs {
			if id != tokenizer.PadID {
				mask[i] = 1
			}
		}

		toolLabel := make([]int, tools.NumTools)
		for _, call := range sample.ToolCalls {
			if call.Tool.Valid() {
				toolLabel[call.Tool] = 1
			}
		}

		b.InputIDs = append(b.InputIDs, inputIDs)
		b.Labels = append(b.Labels, labels)
		b.AttentionMask = append(b.AttentionMask, mask)
		b.ToolLabels = append(b.ToolLabels, toolLabel)
	}

	return b, nil
}

// Size returns the number of rows in the batch
func (b *Batch) Size() int {
	return len(b.InputIDs)
}

// Validate checks the batch invariants. A violation entering the model is a
// contract error that fails the current training step only.
func (b *Batch) Validate() error {
	for i := range b.InputIDs {
		if len(b.InputIDs[i]) != b.SeqLen || len(b.Labels[i]) != b.SeqLen || len(b.AttentionMask[i]) != b.SeqLen {
			return fmt.Errorf("row %d: sequence length mismatch (want %d)", i, b.SeqLen)
		}
		if len(b.ToolLabels[i]) != tools.NumTools {
			return fmt.Errorf("row %d: tool label width %d, want %d", i, len(b.ToolLabels[i]), tools.NumTools)
		}
		for j, v := range b.ToolLabels[i] {
			if v != 0 && v != 1 {
				return fmt.Errorf("row %d: tool label %d is %d, want 0 or 1", i, j, v)
			}
		}
	}
	return nil
}

func padOrTruncate(ids []int, length int) []int {
	if len(ids) >= length {
		return ids[:length]
	}
	padded := make([]int, length)
	copy(padded, ids)
	return padded
}
