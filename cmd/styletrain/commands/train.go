package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alignlab/styletrain/internal/corpus"
	"github.com/alignlab/styletrain/internal/logging"
	"github.com/alignlab/styletrain/internal/tokenizer"
	"github.com/alignlab/styletrain/internal/train"
	"github.com/alignlab/styletrain/internal/transformer"
)

const vocabFile = "vocab.json"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7B68EE"))

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D4FF"))

	doneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7FFF00"))
)

var (
	trainResume  bool
	trainSeed    int64
	dataDirFlag  string
	maxStepsFlag int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Run the training loop",
	Long: `Load the conversation corpus, build or restore the model, and train
until max_steps is reached or the target style similarity is hit.

With --resume, training continues from the latest checkpoint in the
checkpoint directory. Interrupting with Ctrl-C stops at the next step
boundary; progress up to the last checkpoint is preserved.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().BoolVar(&trainResume, "resume", false, "resume from the latest checkpoint")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 42, "random seed for init and batch sampling")
	trainCmd.Flags().StringVar(&dataDirFlag, "data-dir", "", "conversation corpus directory (overrides config)")
	trainCmd.Flags().IntVar(&maxStepsFlag, "max-steps", 0, "override training.max_steps")
}

func runTrain(cmd *cobra.Command, args []string) error {
	trainCfg := cfg.Training
	if maxStepsFlag > 0 {
		trainCfg.MaxSteps = maxStepsFlag
	}

	dataDir := cfg.Corpus.DataDir
	if dataDirFlag != "" {
		dataDir = dataDirFlag
	}

	fmt.Println(headerStyle.Render("styletrain"))
	fmt.Printf("corpus:      %s\n", dataDir)
	fmt.Printf("checkpoints: %s\n\n", cfg.Checkpoint.Dir)

	loader := corpus.NewLoader(dataDir, cfg.Corpus.Exclude, cfg.Corpus.MaxFiles)
	samples, err := loader.LoadSamples(corpus.NewProcessor())
	if err != nil {
		if errors.Is(err, corpus.ErrCorpusEmpty) {
			return fmt.Errorf("no usable conversations in %s", dataDir)
		}
		return fmt.Errorf("loading corpus: %w", err)
	}
	fmt.Println(statStyle.Render(fmt.Sprintf("loaded %d training samples", len(samples))))

	tok, err := loadOrBuildVocabulary(samples, trainCfg.VocabSize)
	if err != nil {
		return err
	}
	fmt.Println(statStyle.Render(fmt.Sprintf("vocabulary: %d tokens", tok.Vocab().Size())))

	model, err := transformer.NewModel(transformer.Config{
		ModelDim:     trainCfg.ModelDim,
		HiddenDim:    trainCfg.HiddenDim,
		NumHeads:     trainCfg.NumHeads,
		NumLayers:    trainCfg.NumLayers,
		VocabSize:    tok.Vocab().Size(),
		MaxSeqLength: trainCfg.MaxSeqLength,
	}, trainSeed)
	if err != nil {
		return fmt.Errorf("building model: %w", err)
	}
	fmt.Println(statStyle.Render(fmt.Sprintf("model: %d parameters", model.NumParameters())))
	fmt.Println()

	trainer, err := train.New(trainCfg, cfg.Checkpoint.Dir, model, tok, samples, trainSeed)
	if err != nil {
		return fmt.Errorf("creating trainer: %w", err)
	}

	if trainResume {
		resumed, err := trainer.Resume()
		if err != nil {
			return err
		}
		if resumed {
			fmt.Println(statStyle.Render(fmt.Sprintf("resumed at step %d", trainer.Stats().Step)))
		} else {
			logging.Info("no checkpoint found, starting fresh")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := trainer.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\ninterrupted, progress saved up to the last checkpoint")
			return nil
		}
		return err
	}

	stats := trainer.Stats()
	fmt.Println()
	fmt.Println(doneStyle.Render("training complete"))
	fmt.Printf("steps:           %d\n", stats.Step)
	fmt.Printf("final loss:      %.4f\n", stats.Loss)
	fmt.Printf("similarity:      %.1f%%\n", stats.Similarity*100)
	fmt.Printf("best similarity: %.1f%%\n", stats.BestSimilarity*100)
	fmt.Printf("tool accuracy:   %.1f%%\n", stats.ToolAccuracy*100)
	return nil
}

// loadOrBuildVocabulary reuses the vocabulary saved beside the checkpoints
// when it exists, so resumed runs see the same token ids. Otherwise it
// builds one from the corpus and saves it.
func loadOrBuildVocabulary(samples []corpus.TrainingSample, size int) (*tokenizer.Tokenizer, error) {
	path := filepath.Join(cfg.Checkpoint.Dir, vocabFile)

	if _, err := os.Stat(path); err == nil {
		vocab, err := tokenizer.LoadVocabulary(path)
		if err != nil {
			return nil, fmt.Errorf("loading vocabulary: %w", err)
		}
		return tokenizer.New(vocab), nil
	}

	texts := make([]string, 0, len(samples)*2)
	for _, s := range samples {
		texts = append(texts, s.Input, s.Output)
	}

	vocab, err := tokenizer.BuildVocabulary(texts, size)
	if err != nil {
		return nil, fmt.Errorf("building vocabulary: %w", err)
	}

	if err := os.MkdirAll(cfg.Checkpoint.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating checkpoint dir: %w", err)
	}
	if err := vocab.Save(path); err != nil {
		return nil, fmt.Errorf("saving vocabulary: %w", err)
	}

	return tokenizer.New(vocab), nil
}
