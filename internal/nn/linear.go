package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Param pairs a parameter buffer with its gradient accumulator. The two
// slices are always the same length and alias the owning layer's storage.
type Param struct {
	Name string
	Data []float64
	Grad []float64
}

// Linear is a dense layer: y = Wx + b, with W stored row-major [Out, In].
// Gradients accumulate across Backward calls until ZeroGrad.
type Linear struct {
	In, Out int
	W       []float64
	B       []float64
	GradW   []float64
	GradB   []float64
	name    string
}

// NewLinear constructs a layer with Xavier-uniform initialized weights and
// zero bias, drawing from the provided seeded source.
func NewLinear(name string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:    in,
		Out:   out,
		W:     make([]float64, out*in),
		B:     make([]float64, out),
		GradW: make([]float64, out*in),
		GradB: make([]float64, out),
		name:  name,
	}
	limit := math.Sqrt(6.0 / float64(in+out))
	for i := range l.W {
		l.W[i] = (rng.Float64()*2 - 1) * limit
	}
	return l
}

// Forward computes Wx + b for a single input vector.
func (l *Linear) Forward(x []float64) []float64 {
	if len(x) != l.In {
		panic(fmt.Sprintf("nn: %s forward: input len %d != %d", l.name, len(x), l.In))
	}
	out := make([]float64, l.Out)
	for o := 0; o < l.Out; o++ {
		row := l.W[o*l.In : (o+1)*l.In]
		sum := l.B[o]
		for j, w := range row {
			sum += w * x[j]
		}
		out[o] = sum
	}
	return out
}

// Backward accumulates weight and bias gradients for one sample and returns
// the gradient with respect to the input. x must be the vector passed to the
// matching Forward call.
func (l *Linear) Backward(x, gradOut []float64) []float64 {
	if len(gradOut) != l.Out {
		panic(fmt.Sprintf("nn: %s backward: grad len %d != %d", l.name, len(gradOut), l.Out))
	}
	gradIn := make([]float64, l.In)
	for o := 0; o < l.Out; o++ {
		g := gradOut[o]
		if g == 0 {
			continue
		}
		l.GradB[o] += g
		rowOff := o * l.In
		for j := 0; j < l.In; j++ {
			l.GradW[rowOff+j] += g * x[j]
			gradIn[j] += g * l.W[rowOff+j]
		}
	}
	return gradIn
}

// Params exposes the layer's weight and bias buffers for the optimizer.
func (l *Linear) Params() []Param {
	return []Param{
		{Name: l.name + ".weight", Data: l.W, Grad: l.GradW},
		{Name: l.name + ".bias", Data: l.B, Grad: l.GradB},
	}
}

// ZeroGrad clears the accumulated gradients.
func (l *Linear) ZeroGrad() {
	for i := range l.GradW {
		l.GradW[i] = 0
	}
	for i := range l.GradB {
		l.GradB[i] = 0
	}
}

// ZeroGrads clears the gradients of every param in the list.
func ZeroGrads(params []Param) {
	for _, p := range params {
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}

// ClipGradients scales gradients so their global L2 norm does not exceed
// maxNorm. Returns the pre-clip norm.
func ClipGradients(params []Param, maxNorm float64) float64 {
	var sq float64
	for _, p := range params {
		for _, g := range p.Grad {
			sq += g * g
		}
	}
	norm := math.Sqrt(sq)
	if maxNorm > 0 && norm > maxNorm {
		scale := maxNorm / norm
		for _, p := range params {
			for i := range p.Grad {
				p.Grad[i] *= scale
			}
		}
	}
	return norm
}
