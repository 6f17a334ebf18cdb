package transformer

import (
	"fmt"

	"github.com/alignlab/styletrain/internal/tools"
)

// Config holds the model architecture hyperparameters
type Config struct {
	ModelDim     int `json:"model_dim"`
	HiddenDim    int `json:"hidden_dim"`
	NumHeads     int `json:"num_heads"`
	NumLayers    int `json:"num_layers"`
	VocabSize    int `json:"vocab_size"`
	MaxSeqLength int `json:"max_seq_length"`
}

// HeadDim returns the per-head dimension
func (c Config) HeadDim() int {
	return c.ModelDim / c.NumHeads
}

// ToolSlots returns the width of the tool-prediction head
func (c Config) ToolSlots() int {
	return tools.NumTools
}

// Validate checks the configuration for internal consistency
func (c Config) Validate() error {
	if c.ModelDim <= 0 || c.HiddenDim <= 0 || c.NumLayers <= 0 || c.VocabSize <= 0 || c.MaxSeqLength <= 0 {
		return fmt.Errorf("all model dimensions must be positive: %+v", c)
	}
	if c.NumHeads <= 0 || c.ModelDim%c.NumHeads != 0 {
		return fmt.Errorf("num_heads %d must divide model_dim %d", c.NumHeads, c.ModelDim)
	}
	return nil
}

// String returns a compact description of the architecture
func (c Config) String() string {
	return fmt.Sprintf("dim=%d hidden=%d heads=%d layers=%d vocab=%d seq=%d",
		c.ModelDim, c.HiddenDim, c.NumHeads, c.NumLayers, c.VocabSize, c.MaxSeqLength)
}
