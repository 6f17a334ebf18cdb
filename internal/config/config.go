package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Training   TrainingConfig   `mapstructure:"training"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// TrainingConfig holds the model architecture and optimization options.
// All of these are required at trainer construction; the defaults below are
// the only implicit values.
type TrainingConfig struct {
	ModelDim         int     `mapstructure:"model_dim"`
	HiddenDim        int     `mapstructure:"hidden_dim"`
	NumHeads         int     `mapstructure:"num_heads"`
	NumLayers        int     `mapstructure:"num_layers"`
	VocabSize        int     `mapstructure:"vocab_size"`
	MaxSeqLength     int     `mapstructure:"max_seq_length"`
	LearningRate     float64 `mapstructure:"learning_rate"`
	BatchSize        int     `mapstructure:"batch_size"`
	EvalFrequency    int     `mapstructure:"eval_frequency"`
	SaveFrequency    int     `mapstructure:"save_frequency"`
	MaxSteps         int     `mapstructure:"max_steps"`
	TargetSimilarity float64 `mapstructure:"target_similarity"`
}

type CorpusConfig struct {
	DataDir  string   `mapstructure:"data_dir"`
	Exclude  []string `mapstructure:"exclude"`
	MaxFiles int      `mapstructure:"max_files"`
}

type CheckpointConfig struct {
	Dir string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	baseDir := filepath.Join(home, ".styletrain")

	return &Config{
		Training: TrainingConfig{
			ModelDim:         128,
			HiddenDim:        512,
			NumHeads:         4,
			NumLayers:        4,
			VocabSize:        8000,
			MaxSeqLength:     256,
			LearningRate:     1e-4,
			BatchSize:        4,
			EvalFrequency:    100,
			SaveFrequency:    500,
			MaxSteps:         10000,
			TargetSimilarity: 0.85,
		},
		Corpus: CorpusConfig{
			DataDir: filepath.Join(baseDir, "conversations"),
			Exclude: []string{
				"*.log", "*.tmp", ".git/", "backup/",
			},
			MaxFiles: 0,
		},
		Checkpoint: CheckpointConfig{
			Dir: filepath.Join(baseDir, "checkpoints"),
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    filepath.Join(baseDir, "styletrain.log"),
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".styletrain"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("STYLETRAIN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	t := c.Training

	if t.ModelDim <= 0 || t.HiddenDim <= 0 {
		return errors.New("training.model_dim and training.hidden_dim must be positive")
	}
	if t.NumHeads <= 0 || t.ModelDim%t.NumHeads != 0 {
		return fmt.Errorf("training.num_heads must divide model_dim (%d heads, dim %d)", t.NumHeads, t.ModelDim)
	}
	if t.NumLayers <= 0 {
		return errors.New("training.num_layers must be positive")
	}
	if t.VocabSize < 8 {
		return errors.New("training.vocab_size must be at least 8")
	}
	if t.MaxSeqLength < 8 || t.MaxSeqLength > 32768 {
		return errors.New("training.max_seq_length must be between 8 and 32768")
	}
	if t.LearningRate <= 0 {
		return errors.New("training.learning_rate must be positive")
	}
	if t.BatchSize <= 0 {
		return errors.New("training.batch_size must be positive")
	}
	if t.EvalFrequency <= 0 || t.SaveFrequency <= 0 {
		return errors.New("training.eval_frequency and training.save_frequency must be positive")
	}
	if t.MaxSteps <= 0 {
		return errors.New("training.max_steps must be positive")
	}
	if t.TargetSimilarity <= 0 || t.TargetSimilarity > 1 {
		return errors.New("training.target_similarity must be in (0, 1]")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Corpus.DataDir = expandPath(c.Corpus.DataDir)
	c.Checkpoint.Dir = expandPath(c.Checkpoint.Dir)
	c.Logging.File = expandPath(c.Logging.File)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("training.model_dim", cfg.Training.ModelDim)
	v.SetDefault("training.hidden_dim", cfg.Training.HiddenDim)
	v.SetDefault("training.num_heads", cfg.Training.NumHeads)
	v.SetDefault("training.num_layers", cfg.Training.NumLayers)
	v.SetDefault("training.vocab_size", cfg.Training.VocabSize)
	v.SetDefault("training.max_seq_length", cfg.Training.MaxSeqLength)
	v.SetDefault("training.learning_rate", cfg.Training.LearningRate)
	v.SetDefault("training.batch_size", cfg.Training.BatchSize)
	v.SetDefault("training.eval_frequency", cfg.Training.EvalFrequency)
	v.SetDefault("training.save_frequency", cfg.Training.SaveFrequency)
	v.SetDefault("training.max_steps", cfg.Training.MaxSteps)
	v.SetDefault("training.target_similarity", cfg.Training.TargetSimilarity)

	v.SetDefault("corpus.data_dir", cfg.Corpus.DataDir)
	v.SetDefault("corpus.exclude", cfg.Corpus.Exclude)
	v.SetDefault("corpus.max_files", cfg.Corpus.MaxFiles)

	v.SetDefault("checkpoint.dir", cfg.Checkpoint.Dir)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
