// Package trainer runs the multi-task fine-tuning loop: frozen backbone
// embeddings in, trained trunk and heads out.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/checkpoint"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/dataset"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/encoder"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/metrics"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/nn"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/report"
)

// Config holds the hyperparameters of the training loop.
type Config struct {
	Epochs          int
	BatchSize       int
	LearningRate    float64
	MinLR           float64
	WeightDecay     float64
	ClipNorm        float64
	WarmupSteps     int
	HiddenDim       int
	Seed            int64
	LogEvery        int
	EncodeBatchSize int
}

// Task bundles one task's spec with its prepared splits.
type Task struct {
	Spec  model.TaskSpec
	Train []model.Example
	Val   []model.Example
}

// Result is a completed training run.
type Result struct {
	Net      *nn.MultiTaskNet
	Manifest checkpoint.Manifest
	Report   report.Report
}

type taskData struct {
	spec      model.TaskSpec
	trainVecs [][]float64
	trainY    []int
	valVecs   [][]float64
	valY      []int
}

// Run executes multi-task training: both tasks' batches are interleaved
// within each epoch, every step backpropagates through the shared trunk,
// and one Adam optimizer with one LR schedule covers all parameters.
func Run(ctx context.Context, enc encoder.Encoder, tasks []Task, cfg Config) (*Result, error) {
	if err := validate(tasks, cfg); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now().UTC()
	log := slog.With("run_id", runID)

	// Encode every split once; the backbone is frozen.
	data := make([]taskData, len(tasks))
	for i, task := range tasks {
		td := taskData{spec: task.Spec}
		var err error
		encStart := time.Now()
		td.trainVecs, td.trainY, err = encodeSplit(enc, task.Train, cfg.EncodeBatchSize)
		if err != nil {
			return nil, fmt.Errorf("trainer: %s train split: %w", task.Spec.Name, err)
		}
		td.valVecs, td.valY, err = encodeSplit(enc, task.Val, cfg.EncodeBatchSize)
		if err != nil {
			return nil, fmt.Errorf("trainer: %s val split: %w", task.Spec.Name, err)
		}
		data[i] = td
		log.Info("encoded task splits",
			"task", task.Spec.Name,
			"train", len(td.trainVecs),
			"val", len(td.valVecs),
			"took", time.Since(encStart).Round(time.Millisecond),
		)
	}

	classes := make([]int, len(tasks))
	for i, task := range tasks {
		classes[i] = task.Spec.NumClasses()
	}
	net, err := nn.NewMultiTaskNet(nn.NetConfig{
		EncoderDim:  enc.Dim(),
		HiddenDim:   cfg.HiddenDim,
		TaskClasses: classes,
		Seed:        cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	stepsPerEpoch := 0
	batchers := make([]*dataset.Batcher, len(data))
	for i, td := range data {
		n := len(td.trainVecs)
		batchers[i] = dataset.NewBatcher(n, cfg.BatchSize, cfg.Seed+int64(i))
		stepsPerEpoch += (n + cfg.BatchSize - 1) / cfg.BatchSize
	}
	totalSteps := stepsPerEpoch * cfg.Epochs

	params := net.Params()
	opt := nn.NewAdam(params, 0.9, 0.999, 1e-8, cfg.WeightDecay)
	sched := nn.Schedule{
		Base:   cfg.LearningRate,
		Min:    cfg.MinLR,
		Warmup: cfg.WarmupSteps,
		Decay:  totalSteps,
	}

	rep := report.Report{
		RunID:     runID,
		StartedAt: started,
		Params: report.Hyperparams{
			Epochs:       cfg.Epochs,
			BatchSize:    cfg.BatchSize,
			LearningRate: cfg.LearningRate,
			MinLR:        cfg.MinLR,
			WeightDecay:  cfg.WeightDecay,
			ClipNorm:     cfg.ClipNorm,
			WarmupSteps:  cfg.WarmupSteps,
			HiddenDim:    cfg.HiddenDim,
			Seed:         cfg.Seed,
		},
	}

	log.Info("starting training",
		"tasks", len(tasks),
		"encoder_dim", enc.Dim(),
		"hidden_dim", cfg.HiddenDim,
		"steps_per_epoch", stepsPerEpoch,
		"total_steps", totalSteps,
	)

	var window metrics.Window
	step := 0
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		epochLoss := make([]float64, len(data))
		epochBatches := make([]int, len(data))

		for _, st := range interleave(batchers) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("trainer: %w", err)
			}
			td := &data[st.task]

			startData := time.Now()
			inputs := make([][]float64, len(st.indices))
			targets := make([]int, len(st.indices))
			for i, idx := range st.indices {
				inputs[i] = td.trainVecs[idx]
				targets[i] = td.trainY[idx]
			}
			dataTime := time.Since(startData)

			startCompute := time.Now()
			step++
			nn.ZeroGrads(params)
			logits, cache := net.Forward(st.task, inputs)
			loss := nn.CrossEntropyBatch(logits, targets)
			net.Backward(st.task, cache, nn.CrossEntropyGrad(logits, targets))
			nn.ClipGradients(params, cfg.ClipNorm)
			opt.Step(params, sched.At(step))
			computeTime := time.Since(startCompute)

			epochLoss[st.task] += loss
			epochBatches[st.task]++
			window.Record(len(inputs), dataTime, computeTime, loss)

			if step%cfg.LogEvery == 0 {
				snap := window.Snapshot()
				log.Info("step",
					"step", step,
					"epoch", epoch,
					"task", td.spec.Name,
					"loss", round4(snap.LastLoss),
					"lr", sched.At(step),
					"samples_per_sec", round4(snap.SamplesPerSec),
					"data_ms", round4(snap.AvgDataMS),
					"compute_ms", round4(snap.AvgComputeMS),
				)
			}
		}

		for i := range data {
			td := &data[i]
			valLoss, scores, _ := evaluate(net, i, td.valVecs, td.valY, td.spec.NumClasses())
			trainLoss := 0.0
			if epochBatches[i] > 0 {
				trainLoss = epochLoss[i] / float64(epochBatches[i])
			}
			rep.Epochs = append(rep.Epochs, report.TaskEpoch{
				Epoch:     epoch,
				Task:      td.spec.Name,
				TrainLoss: trainLoss,
				ValLoss:   valLoss,
				Val:       scores,
			})
			log.Info("epoch",
				"epoch", epoch,
				"task", td.spec.Name,
				"train_loss", round4(trainLoss),
				"val_loss", round4(valLoss),
				"val_acc", round4(scores.Accuracy),
				"val_macro_f1", round4(scores.F1),
			)
		}
	}

	manifest := checkpoint.Manifest{
		RunID:      runID,
		EncoderDim: enc.Dim(),
		HiddenDim:  cfg.HiddenDim,
		CreatedAt:  time.Now().UTC(),
	}
	for i := range data {
		td := &data[i]
		manifest.Tasks = append(manifest.Tasks, checkpoint.TaskInfo{
			Name:   td.spec.Name,
			Labels: td.spec.Labels,
		})
		_, scores, perClass := evaluate(net, i, td.valVecs, td.valY, td.spec.NumClasses())
		rep.Final = append(rep.Final, report.TaskFinal{
			Task:     td.spec.Name,
			Val:      scores,
			PerClass: perClass,
		})
	}
	rep.FinishedAt = time.Now().UTC()

	return &Result{Net: net, Manifest: manifest, Report: rep}, nil
}

type trainStep struct {
	task    int
	indices []int
}

// interleave builds one epoch's step order by alternating tasks round-robin
// until every task's batches are consumed. With uneven task sizes the longer
// task drains alone at the end of the epoch.
func interleave(batchers []*dataset.Batcher) []trainStep {
	perTask := make([][][]int, len(batchers))
	total := 0
	for i, b := range batchers {
		perTask[i] = b.Batches()
		total += len(perTask[i])
	}
	steps := make([]trainStep, 0, total)
	for round := 0; len(steps) < total; round++ {
		for task := range perTask {
			if round < len(perTask[task]) {
				steps = append(steps, trainStep{task: task, indices: perTask[task][round]})
			}
		}
	}
	return steps
}

// evaluate computes loss and macro metrics for one task's validation split.
func evaluate(net *nn.MultiTaskNet, task int, vecs [][]float64, labels []int, numClasses int) (float64, metrics.Scores, []metrics.ClassScores) {
	conf := metrics.NewConfusion(numClasses)
	var totalLoss float64
	for i, vec := range vecs {
		logits := net.Infer(task, vec)
		totalLoss += nn.CrossEntropy(logits, labels[i])
		best := 0
		for c := range logits {
			if logits[c] > logits[best] {
				best = c
			}
		}
		conf.Add(labels[i], best)
	}
	loss := 0.0
	if len(vecs) > 0 {
		loss = totalLoss / float64(len(vecs))
	}
	return loss, conf.Macro(), conf.PerClass()
}

func encodeSplit(enc encoder.Encoder, examples []model.Example, chunkSize int) ([][]float64, []int, error) {
	texts := make([]string, len(examples))
	labels := make([]int, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Text
		labels[i] = ex.Label
	}
	vecs, err := encodeAll(enc, texts, chunkSize)
	if err != nil {
		return nil, nil, err
	}
	return vecs, labels, nil
}

func validate(tasks []Task, cfg Config) error {
	if len(tasks) == 0 {
		return errors.New("trainer: no tasks")
	}
	for _, task := range tasks {
		if task.Spec.NumClasses() < 2 {
			return fmt.Errorf("trainer: task %q has %d classes", task.Spec.Name, task.Spec.NumClasses())
		}
		if len(task.Train) == 0 {
			return fmt.Errorf("trainer: task %q has no training examples", task.Spec.Name)
		}
		if len(task.Val) == 0 {
			return fmt.Errorf("trainer: task %q has no validation examples", task.Spec.Name)
		}
		for _, ex := range append(append([]model.Example(nil), task.Train...), task.Val...) {
			if ex.Label < 0 || ex.Label >= task.Spec.NumClasses() {
				return fmt.Errorf("trainer: task %q has label %d outside [0,%d)",
					task.Spec.Name, ex.Label, task.Spec.NumClasses())
			}
		}
	}
	if cfg.Epochs <= 0 {
		return fmt.Errorf("trainer: epochs must be > 0 (got %d)", cfg.Epochs)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("trainer: batch size must be > 0 (got %d)", cfg.BatchSize)
	}
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("trainer: learning rate must be > 0 (got %g)", cfg.LearningRate)
	}
	if cfg.HiddenDim <= 0 {
		return fmt.Errorf("trainer: hidden dim must be > 0 (got %d)", cfg.HiddenDim)
	}
	if cfg.LogEvery <= 0 {
		return errors.New("trainer: log every must be > 0")
	}
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
