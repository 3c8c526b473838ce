package nn

import (
	"math"
	"testing"
)

func TestAdamFirstStep(t *testing.T) {
	params := []Param{{Data: []float64{1.0}, Grad: []float64{1.0}}}
	opt := NewAdam(params, 0.9, 0.999, 1e-8, 0)

	opt.Step(params, 0.1)

	// With bias correction, the first step moves by ~lr regardless of
	// gradient magnitude: mHat = g, vHat = g^2, delta = lr*g/(|g|+eps).
	want := 1.0 - 0.1*1.0/(1.0+1e-8)
	if math.Abs(params[0].Data[0]-want) > 1e-9 {
		t.Errorf("param = %g, want %g", params[0].Data[0], want)
	}
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	// Minimize (x-3)^2; gradient is 2(x-3).
	params := []Param{{Data: []float64{-5.0}, Grad: []float64{0}}}
	opt := NewAdam(params, 0.9, 0.999, 1e-8, 0)

	for step := 0; step < 800; step++ {
		params[0].Grad[0] = 2 * (params[0].Data[0] - 3)
		opt.Step(params, 0.05)
	}
	if math.Abs(params[0].Data[0]-3) > 0.05 {
		t.Errorf("x = %g, want ~3", params[0].Data[0])
	}
}

func TestAdamWeightDecayShrinksIdleParams(t *testing.T) {
	// A parameter with zero gradient still decays toward zero, matching a
	// single shared optimizer stepping over all heads each batch.
	params := []Param{{Data: []float64{2.0}, Grad: []float64{0}}}
	opt := NewAdam(params, 0.9, 0.999, 1e-8, 0.01)

	before := params[0].Data[0]
	for i := 0; i < 10; i++ {
		opt.Step(params, 0.1)
	}
	after := params[0].Data[0]
	if !(after < before && after > 0) {
		t.Errorf("param went %g -> %g, want gradual shrink toward 0", before, after)
	}
}

func TestAdamDeterministic(t *testing.T) {
	run := func() float64 {
		params := []Param{{Data: []float64{1, -1, 0.5}, Grad: []float64{0, 0, 0}}}
		opt := NewAdam(params, 0.9, 0.999, 1e-8, 0.01)
		for step := 0; step < 50; step++ {
			for j := range params[0].Grad {
				params[0].Grad[j] = params[0].Data[j] * 0.3
			}
			opt.Step(params, 0.02)
		}
		return params[0].Data[0] + params[0].Data[1] + params[0].Data[2]
	}
	if a, b := run(), run(); a != b {
		t.Errorf("two identical runs diverged: %g vs %g", a, b)
	}
}
