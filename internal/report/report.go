// Package report writes training run reports and NDJSON prediction output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/metrics"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
)

// TaskEpoch holds one task's metrics for one epoch.
type TaskEpoch struct {
	Epoch     int            `json:"epoch"`
	Task      string         `json:"task"`
	TrainLoss float64        `json:"train_loss"`
	ValLoss   float64        `json:"val_loss"`
	Val       metrics.Scores `json:"val"`
}

// TaskFinal holds one task's metrics after the last epoch.
type TaskFinal struct {
	Task     string                `json:"task"`
	Val      metrics.Scores        `json:"val"`
	PerClass []metrics.ClassScores `json:"per_class"`
}

// Hyperparams records the knobs that produced a run.
type Hyperparams struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	MinLR        float64 `json:"min_lr"`
	WeightDecay  float64 `json:"weight_decay"`
	ClipNorm     float64 `json:"clip_norm"`
	WarmupSteps  int     `json:"warmup_steps"`
	HiddenDim    int     `json:"hidden_dim"`
	Seed         int64   `json:"seed"`
}

// Report is the JSON document written next to a checkpoint.
type Report struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Params     Hyperparams `json:"params"`
	Epochs     []TaskEpoch `json:"epochs"`
	Final      []TaskFinal `json:"final"`
}

// Write serializes the report as indented JSON to path.
func Write(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Read loads a report back from disk.
func Read(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("report: %w", err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("report: parse %s: %w", path, err)
	}
	return r, nil
}

// PredictionWriter streams predictions as NDJSON, one object per line.
type PredictionWriter struct {
	enc *json.Encoder
}

// NewPredictionWriter wraps w, typically os.Stdout.
func NewPredictionWriter(w io.Writer) *PredictionWriter {
	return &PredictionWriter{enc: json.NewEncoder(w)}
}

// Write emits one prediction line.
func (p *PredictionWriter) Write(pred model.Prediction) error {
	if err := p.enc.Encode(pred); err != nil {
		return fmt.Errorf("report: encode prediction: %w", err)
	}
	return nil
}
