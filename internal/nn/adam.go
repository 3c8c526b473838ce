package nn

import "math"

// Adam implements the Adam update with bias correction and decoupled weight
// decay:
//
//	m_t = beta1*m + (1-beta1)*g
//	v_t = beta2*v + (1-beta2)*g^2
//	param -= lr * (m_t/(1-beta1^t)) / (sqrt(v_t/(1-beta2^t)) + eps)
//	param -= lr * weightDecay * param
//
// Moment buffers are allocated per parameter at construction; Step must be
// called with the same parameter list in the same order.
type Adam struct {
	Beta1       float64
	Beta2       float64
	Epsilon     float64
	WeightDecay float64

	m [][]float64
	v [][]float64
	t int
}

// NewAdam creates an optimizer with moment state sized for params.
func NewAdam(params []Param, beta1, beta2, epsilon, weightDecay float64) *Adam {
	m := make([][]float64, len(params))
	v := make([][]float64, len(params))
	for i, p := range params {
		m[i] = make([]float64, len(p.Data))
		v[i] = make([]float64, len(p.Data))
	}
	return &Adam{
		Beta1:       beta1,
		Beta2:       beta2,
		Epsilon:     epsilon,
		WeightDecay: weightDecay,
		m:           m,
		v:           v,
	}
}

// Step applies one Adam update to every parameter using its accumulated
// gradient. Parameters with zero gradient still receive weight decay, which
// matches a single shared optimizer stepping after each task batch.
func (a *Adam) Step(params []Param, lr float64) {
	a.t++
	bias1 := 1.0 - math.Pow(a.Beta1, float64(a.t))
	bias2 := 1.0 - math.Pow(a.Beta2, float64(a.t))

	for i, p := range params {
		m := a.m[i]
		v := a.v[i]
		for j := range p.Data {
			g := p.Grad[j]
			m[j] = a.Beta1*m[j] + (1.0-a.Beta1)*g
			v[j] = a.Beta2*v[j] + (1.0-a.Beta2)*g*g
			mHat := m[j] / bias1
			vHat := v[j] / bias2
			p.Data[j] -= lr * mHat / (math.Sqrt(vHat) + a.Epsilon)
			if a.WeightDecay > 0 {
				p.Data[j] -= lr * a.WeightDecay * p.Data[j]
			}
		}
	}
}
