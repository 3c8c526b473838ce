package multitask

import "github.com/drashtee-parmar/sentence-transformer-multitask/internal/encoder"

type options struct {
	modelPath     string
	vocabPath     string
	checkpointDir string
	maxSeqLen     int
	encoder       encoder.Encoder
}

// Option configures a Classifier.
type Option func(*options)

func defaultOptions() options {
	return options{
		modelPath:     "models/model.onnx",
		vocabPath:     "models/vocab.txt",
		checkpointDir: "checkpoints",
		maxSeqLen:     128,
	}
}

// WithModelPath sets the ONNX backbone path.
func WithModelPath(path string) Option {
	return func(o *options) { o.modelPath = path }
}

// WithVocabPath sets the WordPiece vocab.txt path.
func WithVocabPath(path string) Option {
	return func(o *options) { o.vocabPath = path }
}

// WithCheckpointDir sets the directory holding the trained weights and
// manifest.
func WithCheckpointDir(dir string) Option {
	return func(o *options) { o.checkpointDir = dir }
}

// WithMaxSeqLen caps tokenized sequence length ([CLS] and [SEP] included).
func WithMaxSeqLen(n int) Option {
	return func(o *options) { o.maxSeqLen = n }
}

// WithEncoder substitutes a pre-built encoder, bypassing the ONNX model and
// vocab paths. The Classifier takes ownership and closes it.
func WithEncoder(enc encoder.Encoder) Option {
	return func(o *options) { o.encoder = enc }
}
