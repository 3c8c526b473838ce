package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime settings for training and inference.
type Config struct {
	Encoder EncoderConfig
	Data    DataConfig
	Train   TrainConfig
	Output  OutputConfig
}

// EncoderConfig locates the frozen backbone artifacts.
type EncoderConfig struct {
	ModelPath string
	VocabPath string
	MaxSeqLen int
}

// DataConfig locates the raw task datasets and controls preparation.
type DataConfig struct {
	TopicPath     string
	SentimentPath string
	ValFraction   float64
	MaxTextRunes  int
}

// TrainConfig holds the hyperparameters of the multi-task loop.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	MinLR        float64
	WeightDecay  float64
	ClipNorm     float64
	WarmupSteps  int
	HiddenDim    int
	Seed         int64
	LogEvery     int
}

// OutputConfig holds checkpoint and report destinations.
type OutputConfig struct {
	CheckpointDir string
	LogLevel      string
}

// Load reads configuration from environment variables with sensible defaults.
// CLI flags may override individual fields afterwards.
func Load() Config {
	return Config{
		Encoder: EncoderConfig{
			ModelPath: getenv("MTL_MODEL_PATH", "models/model.onnx"),
			VocabPath: getenv("MTL_VOCAB_PATH", "models/vocab.txt"),
			MaxSeqLen: getenvInt("MTL_MAX_SEQ_LEN", 128),
		},
		Data: DataConfig{
			TopicPath:     getenv("MTL_TOPIC_PATH", "data/ag_news.csv"),
			SentimentPath: getenv("MTL_SENTIMENT_PATH", "data/sst2.tsv"),
			ValFraction:   getenvFloat("MTL_VAL_FRACTION", 0.1),
			MaxTextRunes:  getenvInt("MTL_MAX_TEXT_RUNES", 2000),
		},
		Train: TrainConfig{
			Epochs:       getenvInt("MTL_EPOCHS", 3),
			BatchSize:    getenvInt("MTL_BATCH_SIZE", 32),
			LearningRate: getenvFloat("MTL_LEARNING_RATE", 2e-3),
			MinLR:        getenvFloat("MTL_MIN_LR", 1e-5),
			WeightDecay:  getenvFloat("MTL_WEIGHT_DECAY", 0.01),
			ClipNorm:     getenvFloat("MTL_CLIP_NORM", 1.0),
			WarmupSteps:  getenvInt("MTL_WARMUP_STEPS", 100),
			HiddenDim:    getenvInt("MTL_HIDDEN_DIM", 256),
			Seed:         getenvInt64("MTL_SEED", 42),
			LogEvery:     getenvInt("MTL_LOG_EVERY", 50),
		},
		Output: OutputConfig{
			CheckpointDir: getenv("MTL_CHECKPOINT_DIR", "checkpoints"),
			LogLevel:      getenv("MTL_LOG_LEVEL", "info"),
		},
	}
}

// Validate verifies the config is runnable for training.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Encoder.MaxSeqLen < 8 {
		return fmt.Errorf("max seq len must be >= 8 (got %d)", c.Encoder.MaxSeqLen)
	}
	if c.Data.ValFraction <= 0 || c.Data.ValFraction >= 1 {
		return fmt.Errorf("val fraction must be in (0,1) (got %g)", c.Data.ValFraction)
	}
	if c.Train.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Train.Epochs)
	}
	if c.Train.BatchSize <= 0 {
		return fmt.Errorf("batch size must be > 0 (got %d)", c.Train.BatchSize)
	}
	if c.Train.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be > 0 (got %g)", c.Train.LearningRate)
	}
	if c.Train.HiddenDim <= 0 {
		return fmt.Errorf("hidden dim must be > 0 (got %d)", c.Train.HiddenDim)
	}
	if c.Train.LogEvery <= 0 {
		c.Train.LogEvery = 50
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
