// Package train drives the supervised style-alignment loop: sample a batch,
// run the model forward and backward, take one optimizer step, and on a
// fixed cadence score greedy-decoded output against the reference style and
// snapshot progress to disk.
package train

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/alignlab/styletrain/internal/config"
	"github.com/alignlab/styletrain/internal/corpus"
	"github.com/alignlab/styletrain/internal/logging"
	"github.com/alignlab/styletrain/internal/style"
	"github.com/alignlab/styletrain/internal/tensor"
	"github.com/alignlab/styletrain/internal/tokenizer"
	"github.com/alignlab/styletrain/internal/tools"
	"github.com/alignlab/styletrain/internal/transformer"
)

// maxGenerateTokens caps evaluation decoding
const maxGenerateTokens = 200

// Fixed prompts used to probe the model's style during evaluation
var evalPrompts = []string{
	"Analyze what this Python function does and explain its behavior",
	"How can I improve the performance of this code",
	"Explain what this error message means and how to fix it",
}

// TrainingStats is the mutable, single-owner progress record. Only the
// trainer's loop writes it; checkpointing and logging read it.
type TrainingStats struct {
	Step           int     `json:"step"`
	Loss           float64 `json:"loss"`
	Similarity     float64 `json:"similarity"`
	ToolAccuracy   float64 `json:"tool_accuracy"`
	BestSimilarity float64 `json:"best_similarity"`
	SamplesSeen    int     `json:"samples_seen"`
}

// Trainer owns the model and optimizer state for the lifetime of a run.
// All state lives on this struct and is passed explicitly through the step
// functions; there are no globals.
type Trainer struct {
	cfg           config.TrainingConfig
	checkpointDir string

	model     *transformer.Model
	opt       *Adam
	tok       *tokenizer.Tokenizer
	evaluator *style.Evaluator
	generator *Generator

	samples []corpus.TrainingSample
	rng     *rand.Rand
	stats   TrainingStats
}

// New creates a trainer over an already-loaded corpus. An empty corpus is
// unrecoverable: there is nothing to train on.
func New(cfg config.TrainingConfig, checkpointDir string, model *transformer.Model, tok *tokenizer.Tokenizer, samples []corpus.TrainingSample, seed int64) (*Trainer, error) {
	if len(samples) == 0 {
		return nil, corpus.ErrCorpusEmpty
	}

	return &Trainer{
		cfg:           cfg,
		checkpointDir: checkpointDir,
		model:         model,
		opt:           NewAdam(model.Parameters(), cfg.LearningRate),
		tok:           tok,
		evaluator:     style.NewEvaluator(),
		generator:     NewGenerator(model, tok, maxGenerateTokens),
		samples:       samples,
		rng:           rand.New(rand.NewSource(seed)),
	}, nil
}

// Stats returns a copy of the current training statistics
func (t *Trainer) Stats() TrainingStats {
	return t.stats
}

// Resume restores the most recent checkpoint from the trainer's checkpoint
// directory, if one exists. Returns true when a checkpoint was loaded; the
// loop then continues from the restored step without repeating completed
// work.
func (t *Trainer) Resume() (bool, error) {
	path, _, err := LatestCheckpoint(t.checkpointDir)
	if err != nil {
		return false, err
	}
	if path == "" {
		return false, nil
	}

	header, err := LoadCheckpoint(path, t.model, t.opt)
	if err != nil {
		return false, fmt.Errorf("restoring checkpoint %s: %w", path, err)
	}

	t.stats = header.Stats
	logging.Infof("resumed from %s at step %d (similarity %.3f)", path, t.stats.Step, t.stats.Similarity)
	return true, nil
}

// Run executes the training loop until max_steps is reached, the target
// similarity is hit, or ctx is cancelled. Cancellation is honored only at
// iteration boundaries; a step in flight always completes.
func (t *Trainer) Run(ctx context.Context) error {
	logging.Infof("training on %d samples, model %s (%d parameters)",
		len(t.samples), t.model.Config(), t.model.NumParameters())
	logging.Infof("target similarity %.2f, max steps %d", t.cfg.TargetSimilarity, t.cfg.MaxSteps)

	for t.stats.Step < t.cfg.MaxSteps {
		select {
		case <-ctx.Done():
			logging.Infof("stop requested, halting at step %d", t.stats.Step)
			return ctx.Err()
		default:
		}

		if err := t.step(); err != nil {
			// A bad batch fails this step only
			logging.Warnf("step %d failed: %v", t.stats.Step+1, err)
			t.stats.Step++
			continue
		}

		if t.stats.Step%10 == 0 {
			logging.Infof("step %d: loss=%.4f similarity=%.1f%% tool_acc=%.1f%%",
				t.stats.Step, t.stats.Loss, t.stats.Similarity*100, t.stats.ToolAccuracy*100)
		}

		if t.stats.Step%t.cfg.EvalFrequency == 0 {
			t.evaluate()
		}

		if t.stats.Step%t.cfg.SaveFrequency == 0 {
			t.checkpoint()
		}

		if t.stats.Similarity >= t.cfg.TargetSimilarity {
			logging.Infof("reached target similarity %.1f%% at step %d", t.stats.Similarity*100, t.stats.Step)
			break
		}
	}

	// Final snapshot so a finished run is always resumable/inspectable
	t.checkpoint()
	return nil
}

// step samples one batch with replacement and performs a full
// forward/backward/update cycle
func (t *Trainer) step() error {
	batch, err := t.sampleBatch()
	if err != nil {
		return err
	}
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("batch contract violation: %w", err)
	}

	t.model.ZeroGrad()

	var totalLoss float64
	rows := batch.Size()
	scale := float32(1) / float32(rows)

	for i := 0; i < rows; i++ {
		logits, toolLogits, cache, err := t.model.Forward(batch.InputIDs[i], batch.AttentionMask[i])
		if err != nil {
			return fmt.Errorf("forward pass: %w", err)
		}

		lmLoss, dLogits := CrossEntropy(logits, batch.Labels[i])
		toolLoss, dTool := BinaryCrossEntropy(toolLogits, batch.ToolLabels[i])

		// The two losses are summed unweighted by design
		totalLoss += lmLoss + toolLoss

		t.model.Backward(tensor.MulScalar(dLogits, scale), tensor.MulScalar(dTool, scale), cache)
	}

	t.opt.Step(t.model.Parameters())

	t.stats.Step++
	t.stats.Loss = totalLoss / float64(rows)
	t.stats.SamplesSeen += rows
	return nil
}

// sampleBatch draws batch_size samples uniformly with replacement
func (t *Trainer) sampleBatch() (*corpus.Batch, error) {
	picked := make([]corpus.TrainingSample, t.cfg.BatchSize)
	for i := range picked {
		picked[i] = t.samples[t.rng.Intn(len(t.samples))]
	}
	return corpus.NewBatch(t.tok, picked, t.cfg.BatchSize, t.cfg.MaxSeqLength)
}

// evaluate greedily decodes the fixed prompts and scores each against the
// reference style. The evaluator's output is the sole source of truth for
// the similarity metric.
func (t *Trainer) evaluate() {
	var simSum, toolSum float64
	scored := 0

	for _, prompt := range evalPrompts {
		generated, err := t.generator.Generate(prompt)
		if err != nil {
			logging.Warnf("generation failed for eval prompt: %v", err)
			continue
		}

		simSum += t.evaluator.Score(generated)
		if tools.HasInvocation(generated) {
			toolSum++
		}
		scored++
	}

	if scored == 0 {
		return
	}

	t.stats.Similarity = simSum / float64(scored)
	t.stats.ToolAccuracy = toolSum / float64(scored)

	if t.stats.Similarity > t.stats.BestSimilarity {
		t.stats.BestSimilarity = t.stats.Similarity
		logging.Infof("new best similarity: %.1f%%", t.stats.BestSimilarity*100)
	}
}

// checkpoint snapshots the run. Write failures are logged and abandoned for
// this cycle; the next scheduled save retries.
func (t *Trainer) checkpoint() {
	path, err := SaveCheckpoint(t.checkpointDir, t.model, t.opt, t.stats, t.cfg)
	if err != nil {
		logging.Errorf("checkpoint save failed at step %d: %v", t.stats.Step, err)
		return
	}
	logging.Infof("saved checkpoint %s", path)
}

// Done reports whether the run has met a terminal condition
func (t *Trainer) Done() bool {
	return t.stats.Step >= t.cfg.MaxSteps || t.stats.Similarity >= t.cfg.TargetSimilarity
}
