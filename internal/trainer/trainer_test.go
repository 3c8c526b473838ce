package trainer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/dataset"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
)

// fakeEncoder produces deterministic pooled vectors: marker tokens map to
// fixed dimensions so labels are linearly recoverable, with small
// hash-derived noise on the remaining dimensions.
type fakeEncoder struct {
	dim    int
	failOn string
	closed bool
}

var markerDims = map[string]int{
	"t0": 0, "t1": 1, "t2": 2, "t3": 3,
	"s0": 4, "s1": 5,
}

func (f *fakeEncoder) EncodeBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if f.failOn != "" && strings.Contains(text, f.failOn) {
			return nil, errors.New("fake encoder failure")
		}
		vec := make([]float32, f.dim)
		for _, word := range strings.Fields(text) {
			if d, ok := markerDims[word]; ok {
				vec[d] += 1
				continue
			}
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[6+int(h.Sum32())%(f.dim-6)] += 0.05
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEncoder) Dim() int { return f.dim }

func (f *fakeEncoder) Close() error {
	f.closed = true
	return nil
}

func syntheticTask(t *testing.T, spec model.TaskSpec, marker string, trainN, valN int) Task {
	t.Helper()
	classes := spec.NumClasses()
	make_ := func(n, offset int) []model.Example {
		out := make([]model.Example, n)
		for i := range out {
			label := i % classes
			out[i] = model.Example{
				Text:  fmt.Sprintf("%s%d filler%d", marker, label, offset+i),
				Label: label,
			}
		}
		return out
	}
	return Task{Spec: spec, Train: make_(trainN, 0), Val: make_(valN, 10000)}
}

func testConfig() Config {
	return Config{
		Epochs:          5,
		BatchSize:       8,
		LearningRate:    0.01,
		MinLR:           1e-4,
		WeightDecay:     0.0,
		ClipNorm:        1.0,
		WarmupSteps:     5,
		HiddenDim:       16,
		Seed:            42,
		LogEvery:        1000,
		EncodeBatchSize: 16,
	}
}

func TestRunLearnsBothTasks(t *testing.T) {
	enc := &fakeEncoder{dim: 12}
	tasks := []Task{
		syntheticTask(t, model.DefaultTopicSpec(), "t", 120, 32),
		syntheticTask(t, model.DefaultSentimentSpec(), "s", 120, 32),
	}

	res, err := Run(context.Background(), enc, tasks, testConfig())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Report.Final) != 2 {
		t.Fatalf("final metrics for %d tasks, want 2", len(res.Report.Final))
	}
	for _, final := range res.Report.Final {
		if final.Val.Accuracy < 0.9 {
			t.Errorf("task %s val accuracy = %g, want >= 0.9", final.Task, final.Val.Accuracy)
		}
		if final.Val.F1 < 0.85 {
			t.Errorf("task %s macro F1 = %g, want >= 0.85", final.Task, final.Val.F1)
		}
	}

	// One epoch row per task per epoch.
	if len(res.Report.Epochs) != 5*2 {
		t.Errorf("got %d epoch rows, want 10", len(res.Report.Epochs))
	}

	// Loss should drop from the first epoch to the last for both tasks.
	for task := 0; task < 2; task++ {
		first := res.Report.Epochs[task].TrainLoss
		last := res.Report.Epochs[len(res.Report.Epochs)-2+task].TrainLoss
		if last >= first {
			t.Errorf("task %d train loss did not drop: %g -> %g", task, first, last)
		}
	}

	if res.Manifest.RunID == "" || res.Manifest.RunID != res.Report.RunID {
		t.Errorf("run ID mismatch: manifest %q, report %q", res.Manifest.RunID, res.Report.RunID)
	}
	if res.Manifest.EncoderDim != 12 || res.Manifest.HiddenDim != 16 {
		t.Errorf("manifest geometry = %+v", res.Manifest)
	}
	if len(res.Manifest.Tasks) != 2 || res.Manifest.Tasks[0].Name != "topic" {
		t.Errorf("manifest tasks = %+v", res.Manifest.Tasks)
	}
}

func TestRunDeterministicWeights(t *testing.T) {
	tasks := func() []Task {
		return []Task{
			syntheticTask(t, model.DefaultTopicSpec(), "t", 40, 8),
			syntheticTask(t, model.DefaultSentimentSpec(), "s", 40, 8),
		}
	}
	cfg := testConfig()
	cfg.Epochs = 2

	res1, err := Run(context.Background(), &fakeEncoder{dim: 12}, tasks(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	res2, err := Run(context.Background(), &fakeEncoder{dim: 12}, tasks(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, w := range res1.Net.Trunk.W {
		if res2.Net.Trunk.W[i] != w {
			t.Fatal("same seed produced different trunk weights")
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{
		syntheticTask(t, model.DefaultTopicSpec(), "t", 40, 8),
		syntheticTask(t, model.DefaultSentimentSpec(), "s", 40, 8),
	}
	_, err := Run(ctx, &fakeEncoder{dim: 12}, tasks, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunEncoderFailure(t *testing.T) {
	enc := &fakeEncoder{dim: 12, failOn: "filler3"}
	tasks := []Task{
		syntheticTask(t, model.DefaultTopicSpec(), "t", 40, 8),
		syntheticTask(t, model.DefaultSentimentSpec(), "s", 40, 8),
	}
	if _, err := Run(context.Background(), enc, tasks, testConfig()); err == nil {
		t.Fatal("expected encoder failure to propagate")
	}
}

func TestRunValidation(t *testing.T) {
	enc := &fakeEncoder{dim: 12}
	good := func() []Task {
		return []Task{
			syntheticTask(t, model.DefaultTopicSpec(), "t", 20, 4),
			syntheticTask(t, model.DefaultSentimentSpec(), "s", 20, 4),
		}
	}

	tests := []struct {
		name   string
		tasks  []Task
		mutate func(*Config)
	}{
		{"no tasks", nil, nil},
		{"empty train", func() []Task {
			ts := good()
			ts[0].Train = nil
			return ts
		}(), nil},
		{"empty val", func() []Task {
			ts := good()
			ts[1].Val = nil
			return ts
		}(), nil},
		{"out of range label", func() []Task {
			ts := good()
			ts[0].Train[0].Label = 9
			return ts
		}(), nil},
		{"zero epochs", good(), func(c *Config) { c.Epochs = 0 }},
		{"zero batch size", good(), func(c *Config) { c.BatchSize = 0 }},
		{"zero lr", good(), func(c *Config) { c.LearningRate = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			if _, err := Run(context.Background(), enc, tc.tasks, cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestInterleaveAlternatesAndDrains(t *testing.T) {
	// Task 0 has 5 batches of 2, task 1 has 2 batches of 2.
	batchers := []*dataset.Batcher{
		dataset.NewBatcher(10, 2, 1),
		dataset.NewBatcher(4, 2, 2),
	}

	steps := interleave(batchers)

	if len(steps) != 7 {
		t.Fatalf("got %d steps, want 7", len(steps))
	}
	wantTasks := []int{0, 1, 0, 1, 0, 0, 0}
	for i, st := range steps {
		if st.task != wantTasks[i] {
			t.Errorf("step %d task = %d, want %d", i, st.task, wantTasks[i])
		}
	}

	// All of task 0's indices appear exactly once.
	seen := make(map[int]bool)
	for _, st := range steps {
		if st.task != 0 {
			continue
		}
		for _, idx := range st.indices {
			if seen[idx] {
				t.Fatalf("task 0 index %d repeated", idx)
			}
			seen[idx] = true
		}
	}
	if len(seen) != 10 {
		t.Errorf("task 0 covered %d indices, want 10", len(seen))
	}
}

func TestEncodeAllChunks(t *testing.T) {
	enc := &fakeEncoder{dim: 8}
	texts := make([]string, 23)
	for i := range texts {
		texts[i] = fmt.Sprintf("word%d", i)
	}

	vecs, err := encodeAll(enc, texts, 5)
	if err != nil {
		t.Fatalf("encodeAll: %v", err)
	}
	if len(vecs) != 23 {
		t.Fatalf("got %d vectors, want 23", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Fatalf("vector %d has dim %d, want 8", i, len(v))
		}
	}

	// Chunked and unchunked encoding agree.
	whole, err := encodeAll(enc, texts, 100)
	if err != nil {
		t.Fatal(err)
	}
	for i := range vecs {
		for j := range vecs[i] {
			if vecs[i][j] != whole[i][j] {
				t.Fatal("chunked encoding differs from single batch")
			}
		}
	}
}
