package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// NetConfig sizes a MultiTaskNet.
type NetConfig struct {
	EncoderDim  int   // dimensionality of the pooled sentence vectors
	HiddenDim   int   // width of the shared trunk
	TaskClasses []int // classes per task, one entry per head
	Seed        int64
}

// MultiTaskNet is the trainable portion of the model: a shared trunk
// (Linear + tanh) over frozen pooled embeddings, with one linear head per
// task. Both tasks backpropagate into the trunk; only the active task's
// head receives gradients.
type MultiTaskNet struct {
	Trunk *Linear
	Heads []*Linear
}

// ForwardCache stores the activations needed by Backward.
type ForwardCache struct {
	inputs [][]float64
	hidden [][]float64
}

// NewMultiTaskNet builds a net with Xavier-initialized layers.
func NewMultiTaskNet(cfg NetConfig) (*MultiTaskNet, error) {
	if cfg.EncoderDim <= 0 {
		return nil, fmt.Errorf("nn: encoder dim must be > 0 (got %d)", cfg.EncoderDim)
	}
	if cfg.HiddenDim <= 0 {
		return nil, fmt.Errorf("nn: hidden dim must be > 0 (got %d)", cfg.HiddenDim)
	}
	if len(cfg.TaskClasses) == 0 {
		return nil, fmt.Errorf("nn: at least one task required")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	net := &MultiTaskNet{
		Trunk: NewLinear("trunk", cfg.EncoderDim, cfg.HiddenDim, rng),
		Heads: make([]*Linear, len(cfg.TaskClasses)),
	}
	for i, classes := range cfg.TaskClasses {
		if classes < 2 {
			return nil, fmt.Errorf("nn: task %d needs >= 2 classes (got %d)", i, classes)
		}
		net.Heads[i] = NewLinear(fmt.Sprintf("head.%d", i), cfg.HiddenDim, classes, rng)
	}
	return net, nil
}

// Forward runs a batch of pooled embeddings through the trunk and the given
// task's head, returning logits and the cache required for Backward.
func (n *MultiTaskNet) Forward(task int, inputs [][]float64) ([][]float64, *ForwardCache) {
	head := n.head(task)
	cache := &ForwardCache{
		inputs: inputs,
		hidden: make([][]float64, len(inputs)),
	}
	logits := make([][]float64, len(inputs))
	for i, x := range inputs {
		h := n.Trunk.Forward(x)
		for j, v := range h {
			h[j] = math.Tanh(v)
		}
		cache.hidden[i] = h
		logits[i] = head.Forward(h)
	}
	return logits, cache
}

// Backward accumulates gradients in the trunk and the active head from the
// per-sample logit gradients. Inactive heads are untouched.
func (n *MultiTaskNet) Backward(task int, cache *ForwardCache, gradLogits [][]float64) {
	head := n.head(task)
	if len(gradLogits) != len(cache.inputs) {
		panic(fmt.Sprintf("nn: backward batch mismatch: %d grads vs %d inputs",
			len(gradLogits), len(cache.inputs)))
	}
	for i, g := range gradLogits {
		h := cache.hidden[i]
		gradH := head.Backward(h, g)
		// tanh': 1 - h^2, with h already the activated value.
		for j := range gradH {
			gradH[j] *= 1 - h[j]*h[j]
		}
		n.Trunk.Backward(cache.inputs[i], gradH)
	}
}

// Infer returns the logits of one task for a single pooled embedding.
func (n *MultiTaskNet) Infer(task int, vec []float64) []float64 {
	h := n.Trunk.Forward(vec)
	for j, v := range h {
		h[j] = math.Tanh(v)
	}
	return n.head(task).Forward(h)
}

// Params returns every trainable parameter: trunk first, then heads in task
// order. The ordering is stable, which the optimizer and checkpoint rely on.
func (n *MultiTaskNet) Params() []Param {
	params := n.Trunk.Params()
	for _, h := range n.Heads {
		params = append(params, h.Params()...)
	}
	return params
}

// ZeroGrad clears gradients in the trunk and all heads.
func (n *MultiTaskNet) ZeroGrad() {
	n.Trunk.ZeroGrad()
	for _, h := range n.Heads {
		h.ZeroGrad()
	}
}

// NumTasks returns the number of heads.
func (n *MultiTaskNet) NumTasks() int {
	return len(n.Heads)
}

func (n *MultiTaskNet) head(task int) *Linear {
	if task < 0 || task >= len(n.Heads) {
		panic(fmt.Sprintf("nn: task %d out of range [0,%d)", task, len(n.Heads)))
	}
	return n.Heads[task]
}
