package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/checkpoint"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/config"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/dataset"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/encoder"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/logging"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/report"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/trainer"
	"github.com/drashtee-parmar/sentence-transformer-multitask/pkg/multitask"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "train":
		runTrain(os.Args[2:])
	case "predict":
		runPredict(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: multitask <command> [flags]

commands:
  train    fine-tune the shared trunk and task heads on the topic and
           sentiment datasets, writing a checkpoint and a training report
  predict  classify stdin lines (or -text) with a trained checkpoint,
           emitting NDJSON on stdout

Run 'multitask <command> -h' for command flags. Defaults come from
MTL_* environment variables.
`)
}

func runTrain(args []string) {
	cfg := config.Load()

	fs := flag.NewFlagSet("train", flag.ExitOnError)
	topicPath := fs.String("topic", cfg.Data.TopicPath, "AG News-style CSV for the topic task")
	sentimentPath := fs.String("sentiment", cfg.Data.SentimentPath, "SST-2-style TSV for the sentiment task")
	modelPath := fs.String("model", cfg.Encoder.ModelPath, "ONNX backbone path")
	vocabPath := fs.String("vocab", cfg.Encoder.VocabPath, "WordPiece vocab.txt path")
	outDir := fs.String("out", cfg.Output.CheckpointDir, "checkpoint output directory")
	epochs := fs.Int("epochs", cfg.Train.Epochs, "training epochs")
	batchSize := fs.Int("batch-size", cfg.Train.BatchSize, "minibatch size")
	lr := fs.Float64("lr", cfg.Train.LearningRate, "peak learning rate")
	hidden := fs.Int("hidden", cfg.Train.HiddenDim, "shared trunk width")
	seed := fs.Int64("seed", cfg.Train.Seed, "PRNG seed")
	valFraction := fs.Float64("val-fraction", cfg.Data.ValFraction, "validation split fraction")
	logLevel := fs.String("log-level", cfg.Output.LogLevel, "log level (debug, info, warn, error)")
	fs.Parse(args)

	logging.Init(false, logging.ParseLevel(*logLevel))

	cfg.Data.TopicPath = *topicPath
	cfg.Data.SentimentPath = *sentimentPath
	cfg.Encoder.ModelPath = *modelPath
	cfg.Encoder.VocabPath = *vocabPath
	cfg.Output.CheckpointDir = *outDir
	cfg.Train.Epochs = *epochs
	cfg.Train.BatchSize = *batchSize
	cfg.Train.LearningRate = *lr
	cfg.Train.HiddenDim = *hidden
	cfg.Train.Seed = *seed
	cfg.Data.ValFraction = *valFraction
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}

	tasks := []trainer.Task{
		prepareTask(model.DefaultTopicSpec(), cfg.Data.TopicPath, dataset.LoadAGNews, cfg),
		prepareTask(model.DefaultSentimentSpec(), cfg.Data.SentimentPath, dataset.LoadSST2, cfg),
	}

	enc, err := encoder.New(cfg.Encoder.ModelPath, cfg.Encoder.VocabPath, cfg.Encoder.MaxSeqLen)
	if err != nil {
		fatal("failed to load backbone", err)
	}
	defer enc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := trainer.Run(ctx, enc, tasks, trainer.Config{
		Epochs:       cfg.Train.Epochs,
		BatchSize:    cfg.Train.BatchSize,
		LearningRate: cfg.Train.LearningRate,
		MinLR:        cfg.Train.MinLR,
		WeightDecay:  cfg.Train.WeightDecay,
		ClipNorm:     cfg.Train.ClipNorm,
		WarmupSteps:  cfg.Train.WarmupSteps,
		HiddenDim:    cfg.Train.HiddenDim,
		Seed:         cfg.Train.Seed,
		LogEvery:     cfg.Train.LogEvery,
	})
	if err != nil {
		fatal("training failed", err)
	}

	if err := checkpoint.Save(cfg.Output.CheckpointDir, res.Net, res.Manifest); err != nil {
		fatal("failed to save checkpoint", err)
	}
	reportPath := filepath.Join(cfg.Output.CheckpointDir, "report.json")
	if err := report.Write(reportPath, res.Report); err != nil {
		fatal("failed to write report", err)
	}

	for _, final := range res.Report.Final {
		slog.Info("final validation metrics",
			"task", final.Task,
			"accuracy", final.Val.Accuracy,
			"macro_precision", final.Val.Precision,
			"macro_recall", final.Val.Recall,
			"macro_f1", final.Val.F1,
		)
	}
	slog.Info("training complete",
		"run_id", res.Report.RunID,
		"checkpoint", cfg.Output.CheckpointDir,
		"report", reportPath,
	)
}

// prepareTask loads, filters, and splits one task's dataset.
func prepareTask(spec model.TaskSpec, path string, load func(string) ([]model.Example, error), cfg config.Config) trainer.Task {
	raw, err := load(path)
	if err != nil {
		fatal("failed to load dataset", err)
	}
	kept, stats := dataset.Filter(raw, spec.NumClasses(), cfg.Data.MaxTextRunes)
	train, val := dataset.Split(kept, cfg.Data.ValFraction, cfg.Train.Seed)
	slog.Info("prepared dataset",
		"task", spec.Name,
		"path", path,
		"kept", stats.Kept,
		"dropped", stats.Dropped,
		"train", len(train),
		"val", len(val),
	)
	return trainer.Task{Spec: spec, Train: train, Val: val}
}

func runPredict(args []string) {
	cfg := config.Load()

	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	checkpointDir := fs.String("checkpoint", cfg.Output.CheckpointDir, "trained checkpoint directory")
	modelPath := fs.String("model", cfg.Encoder.ModelPath, "ONNX backbone path")
	vocabPath := fs.String("vocab", cfg.Encoder.VocabPath, "WordPiece vocab.txt path")
	text := fs.String("text", "", "classify this text instead of reading stdin")
	logLevel := fs.String("log-level", cfg.Output.LogLevel, "log level (debug, info, warn, error)")
	fs.Parse(args)

	// stdout carries NDJSON predictions; logs go to stderr as JSON.
	logging.Init(true, logging.ParseLevel(*logLevel))

	clf, err := multitask.New(
		multitask.WithModelPath(*modelPath),
		multitask.WithVocabPath(*vocabPath),
		multitask.WithCheckpointDir(*checkpointDir),
		multitask.WithMaxSeqLen(cfg.Encoder.MaxSeqLen),
	)
	if err != nil {
		fatal("failed to load classifier", err)
	}
	defer clf.Close()

	out := report.NewPredictionWriter(os.Stdout)

	if *text != "" {
		if err := predictBatch(clf, out, []string{*text}); err != nil {
			fatal("prediction failed", err)
		}
		return
	}

	const flushEvery = 32
	var pending []string
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		pending = append(pending, line)
		if len(pending) >= flushEvery {
			if err := predictBatch(clf, out, pending); err != nil {
				fatal("prediction failed", err)
			}
			pending = pending[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		fatal("failed to read stdin", err)
	}
	if len(pending) > 0 {
		if err := predictBatch(clf, out, pending); err != nil {
			fatal("prediction failed", err)
		}
	}
}

func predictBatch(clf *multitask.Classifier, out *report.PredictionWriter, texts []string) error {
	preds, err := clf.PredictBatch(texts)
	if err != nil {
		return err
	}
	for _, p := range preds {
		results := make([]model.TaskResult, len(p.Results))
		for i, r := range p.Results {
			results[i] = model.TaskResult{
				Task:       r.Task,
				Label:      r.Label,
				Class:      r.Class,
				Confidence: r.Confidence,
			}
		}
		if err := out.Write(model.Prediction{Text: p.Text, Results: results}); err != nil {
			return err
		}
	}
	return nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
