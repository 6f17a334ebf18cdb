package train

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alignlab/styletrain/internal/config"
	"github.com/alignlab/styletrain/internal/transformer"
)

// Checkpoint file layout: a little-endian uint32 header length, a JSON
// header, then raw little-endian float32 dumps of the model parameters
// followed by the Adam first and second moments, all in Parameters() order.
//
// Every save event creates a new file named after the training step;
// checkpoints are immutable once written, so "latest" resolution is just a
// filename scan.

const (
	checkpointPrefix = "checkpoint_step_"
	checkpointSuffix = ".ckpt"
)

// Header is the JSON metadata stored at the front of a checkpoint
type Header struct {
	Step     int                   `json:"step"`
	Stats    TrainingStats         `json:"stats"`
	Training config.TrainingConfig `json:"training"`
	Model    transformer.Config    `json:"model"`
	AdamStep int                   `json:"adam_step"`
}

// checkpointName encodes the step so latest-checkpoint resolution is
// deterministic
func checkpointName(step int) string {
	return fmt.Sprintf("%s%08d%s", checkpointPrefix, step, checkpointSuffix)
}

// SaveCheckpoint serializes the model, optimizer state, stats and effective
// configuration to a new file in dir and returns its path
func SaveCheckpoint(dir string, model *transformer.Model, opt *Adam, stats TrainingStats, trainCfg config.TrainingConfig) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating checkpoint dir: %w", err)
	}

	m, v, t := opt.State()
	header := Header{
		Step:     stats.Step,
		Stats:    stats,
		Training: trainCfg,
		Model:    model.Config(),
		AdamStep: t,
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshaling checkpoint header: %w", err)
	}

	path := filepath.Join(dir, checkpointName(stats.Step))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating checkpoint file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(len(headerJSON))); err != nil {
		return "", fmt.Errorf("writing header length: %w", err)
	}
	if _, err := f.Write(headerJSON); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	for i, p := range model.Parameters() {
		if err := binary.Write(f, binary.LittleEndian, p.Data()); err != nil {
			return "", fmt.Errorf("writing parameter %d: %w", i, err)
		}
	}
	for i := range m {
		if err := binary.Write(f, binary.LittleEndian, m[i]); err != nil {
			return "", fmt.Errorf("writing first moment %d: %w", i, err)
		}
	}
	for i := range v {
		if err := binary.Write(f, binary.LittleEndian, v[i]); err != nil {
			return "", fmt.Errorf("writing second moment %d: %w", i, err)
		}
	}

	return path, nil
}

// LoadCheckpoint restores model parameters and optimizer state in place
// from a checkpoint file and returns its header
func LoadCheckpoint(path string, model *transformer.Model, opt *Adam) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("reading header length: %w", err)
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}

	if header.Model != model.Config() {
		return nil, fmt.Errorf("checkpoint architecture %v does not match model %v", header.Model, model.Config())
	}

	for i, p := range model.Parameters() {
		if err := binary.Read(f, binary.LittleEndian, p.Data()); err != nil {
			return nil, fmt.Errorf("reading parameter %d: %w", i, err)
		}
	}

	m, v, _ := opt.State()
	for i := range m {
		if err := binary.Read(f, binary.LittleEndian, m[i]); err != nil {
			return nil, fmt.Errorf("reading first moment %d: %w", i, err)
		}
	}
	for i := range v {
		if err := binary.Read(f, binary.LittleEndian, v[i]); err != nil {
			return nil, fmt.Errorf("reading second moment %d: %w", i, err)
		}
	}
	opt.SetStep(header.AdamStep)

	return &header, nil
}

// LatestCheckpoint returns the checkpoint path with the highest step in
// dir, or an empty path if none exist
func LatestCheckpoint(dir string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("reading checkpoint dir: %w", err)
	}

	var steps []int
	byStep := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, checkpointPrefix) || !strings.HasSuffix(name, checkpointSuffix) {
			continue
		}

		var step int
		numPart := strings.TrimSuffix(strings.TrimPrefix(name, checkpointPrefix), checkpointSuffix)
		if _, err := fmt.Sscanf(numPart, "%d", &step); err != nil {
			continue
		}
		steps = append(steps, step)
		byStep[step] = filepath.Join(dir, name)
	}

	if len(steps) == 0 {
		return "", 0, nil
	}

	sort.Ints(steps)
	latest := steps[len(steps)-1]
	return byStep[latest], latest, nil
}
