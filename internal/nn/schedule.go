package nn

import "math"

// Schedule produces the learning rate for a given optimizer step: linear
// warmup from zero to Base over Warmup steps, cosine decay from Base to Min
// over the remaining steps up to Decay, then constant Min.
type Schedule struct {
	Base   float64
	Min    float64
	Warmup int
	Decay  int
}

// At returns the learning rate for step (1-based).
func (s Schedule) At(step int) float64 {
	if s.Warmup > 0 && step < s.Warmup {
		return s.Base * float64(step) / float64(s.Warmup)
	}
	if step < s.Decay {
		progress := float64(step-s.Warmup) / float64(s.Decay-s.Warmup)
		cosine := 0.5 * (1.0 + math.Cos(math.Pi*progress))
		return s.Min + (s.Base-s.Min)*cosine
	}
	return s.Min
}
