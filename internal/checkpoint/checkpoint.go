// Package checkpoint persists the trained trunk and head weights as a
// safetensors file plus a JSON manifest describing the tasks, so inference
// can rebuild the net without the training configuration.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/nn"
)

const (
	// WeightsFile is the safetensors file name inside a checkpoint dir.
	WeightsFile = "model.safetensors"
	// ManifestFile is the manifest file name inside a checkpoint dir.
	ManifestFile = "manifest.json"
)

// TaskInfo records one task's name and ordered class labels.
type TaskInfo struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// Manifest describes a checkpoint: the run that produced it and the net
// geometry needed to rebuild it.
type Manifest struct {
	RunID      string     `json:"run_id"`
	EncoderDim int        `json:"encoder_dim"`
	HiddenDim  int        `json:"hidden_dim"`
	Tasks      []TaskInfo `json:"tasks"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Save writes the net's weights and the manifest into dir, creating it if
// needed.
func Save(dir string, net *nn.MultiTaskNet, m Manifest) error {
	if len(m.Tasks) != net.NumTasks() {
		return fmt.Errorf("checkpoint: manifest has %d tasks, net has %d", len(m.Tasks), net.NumTasks())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	tensors := map[string]Tensor{
		"trunk.weight": toTensor(net.Trunk.W, net.Trunk.Out, net.Trunk.In),
		"trunk.bias":   toTensor(net.Trunk.B, net.Trunk.Out),
	}
	for i, head := range net.Heads {
		name := m.Tasks[i].Name
		tensors[name+".head.weight"] = toTensor(head.W, head.Out, head.In)
		tensors[name+".head.bias"] = toTensor(head.B, head.Out)
	}
	if err := WriteTensors(filepath.Join(dir, WeightsFile), tensors); err != nil {
		return err
	}

	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), manifestJSON, 0o644); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Load rebuilds a net from a checkpoint directory, validating every tensor
// against the manifest's geometry.
func Load(dir string) (*nn.MultiTaskNet, Manifest, error) {
	var m Manifest
	manifestJSON, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, m, fmt.Errorf("checkpoint: %w", err)
	}
	if err := json.Unmarshal(manifestJSON, &m); err != nil {
		return nil, m, fmt.Errorf("checkpoint: parse manifest: %w", err)
	}

	classes := make([]int, len(m.Tasks))
	for i, task := range m.Tasks {
		classes[i] = len(task.Labels)
	}
	net, err := nn.NewMultiTaskNet(nn.NetConfig{
		EncoderDim:  m.EncoderDim,
		HiddenDim:   m.HiddenDim,
		TaskClasses: classes,
	})
	if err != nil {
		return nil, m, fmt.Errorf("checkpoint: %w", err)
	}

	tensors, err := ReadTensors(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, m, err
	}

	if err := fillLayer(tensors, "trunk", net.Trunk); err != nil {
		return nil, m, err
	}
	for i, head := range net.Heads {
		if err := fillLayer(tensors, m.Tasks[i].Name+".head", head); err != nil {
			return nil, m, err
		}
	}
	return net, m, nil
}

// fillLayer copies <prefix>.weight and <prefix>.bias into the layer,
// rejecting shape mismatches.
func fillLayer(tensors map[string]Tensor, prefix string, layer *nn.Linear) error {
	w, ok := tensors[prefix+".weight"]
	if !ok {
		return fmt.Errorf("checkpoint: tensor %s.weight not found", prefix)
	}
	if len(w.Shape) != 2 || w.Shape[0] != layer.Out || w.Shape[1] != layer.In {
		return fmt.Errorf("checkpoint: %s.weight shape %v, want [%d %d]",
			prefix, w.Shape, layer.Out, layer.In)
	}
	b, ok := tensors[prefix+".bias"]
	if !ok {
		return fmt.Errorf("checkpoint: tensor %s.bias not found", prefix)
	}
	if len(b.Shape) != 1 || b.Shape[0] != layer.Out {
		return fmt.Errorf("checkpoint: %s.bias shape %v, want [%d]", prefix, b.Shape, layer.Out)
	}
	for i, v := range w.Data {
		layer.W[i] = float64(v)
	}
	for i, v := range b.Data {
		layer.B[i] = float64(v)
	}
	return nil
}

func toTensor(data []float64, shape ...int) Tensor {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return Tensor{Shape: shape, Data: out}
}
