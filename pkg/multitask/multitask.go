package multitask

import (
	"fmt"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/checkpoint"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/encoder"
	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/nn"
)

// TaskResult is one head's verdict for one input text.
type TaskResult struct {
	Task       string  `json:"task"`
	Label      string  `json:"label"`
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Prediction holds every head's result for one input text, in manifest
// task order (topic first, then sentiment).
type Prediction struct {
	Text    string       `json:"text"`
	Results []TaskResult `json:"results"`
}

// Classifier runs the frozen backbone plus the trained trunk and heads.
type Classifier struct {
	enc   encoder.Encoder
	net   *nn.MultiTaskNet
	tasks []checkpoint.TaskInfo
}

// New creates a Classifier by loading the ONNX backbone, the vocabulary,
// and a trained checkpoint.
func New(opts ...Option) (*Classifier, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	enc := o.encoder
	if enc == nil {
		var err error
		enc, err = encoder.New(o.modelPath, o.vocabPath, o.maxSeqLen)
		if err != nil {
			return nil, fmt.Errorf("multitask: %w", err)
		}
	}

	net, manifest, err := checkpoint.Load(o.checkpointDir)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("multitask: %w", err)
	}
	if manifest.EncoderDim != enc.Dim() {
		enc.Close()
		return nil, fmt.Errorf("multitask: checkpoint encoder dim %d != backbone dim %d",
			manifest.EncoderDim, enc.Dim())
	}

	return &Classifier{enc: enc, net: net, tasks: manifest.Tasks}, nil
}

// Predict classifies a single text under every task.
func (c *Classifier) Predict(text string) (Prediction, error) {
	preds, err := c.PredictBatch([]string{text})
	if err != nil {
		return Prediction{}, err
	}
	return preds[0], nil
}

// PredictBatch classifies multiple texts in a single backbone call.
func (c *Classifier) PredictBatch(texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := c.enc.EncodeBatch(texts)
	if err != nil {
		return nil, fmt.Errorf("multitask: %w", err)
	}

	preds := make([]Prediction, len(texts))
	for i, vec := range vecs {
		x := make([]float64, len(vec))
		for j, f := range vec {
			x[j] = float64(f)
		}
		pred := Prediction{Text: texts[i], Results: make([]TaskResult, len(c.tasks))}
		for task, info := range c.tasks {
			probs := nn.Softmax(c.net.Infer(task, x))
			best := 0
			for cls := range probs {
				if probs[cls] > probs[best] {
					best = cls
				}
			}
			pred.Results[task] = TaskResult{
				Task:       info.Name,
				Label:      info.Labels[best],
				Class:      best,
				Confidence: probs[best],
			}
		}
		preds[i] = pred
	}
	return preds, nil
}

// Tasks returns the task names and labels the checkpoint was trained with.
func (c *Classifier) Tasks() []checkpoint.TaskInfo {
	return c.tasks
}

// Close releases the backbone resources.
func (c *Classifier) Close() error {
	return c.enc.Close()
}
