package metrics

// Confusion accumulates a confusion matrix for one task.
type Confusion struct {
	classes int
	counts  []int // [true*classes + predicted]
	total   int
	correct int
}

// NewConfusion creates an accumulator for the given number of classes.
func NewConfusion(classes int) *Confusion {
	return &Confusion{
		classes: classes,
		counts:  make([]int, classes*classes),
	}
}

// Add records one prediction. Out-of-range values are ignored rather than
// skewing the matrix; the caller's filtering should make them impossible.
func (c *Confusion) Add(label, predicted int) {
	if label < 0 || label >= c.classes || predicted < 0 || predicted >= c.classes {
		return
	}
	c.counts[label*c.classes+predicted]++
	c.total++
	if label == predicted {
		c.correct++
	}
}

// Total returns the number of recorded predictions.
func (c *Confusion) Total() int {
	return c.total
}

// Accuracy returns the fraction of correct predictions, or 0 when empty.
func (c *Confusion) Accuracy() float64 {
	if c.total == 0 {
		return 0
	}
	return float64(c.correct) / float64(c.total)
}

// ClassScores holds per-class precision, recall, and F1.
type ClassScores struct {
	Class     int     `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Scores holds macro-averaged precision, recall, and F1.
type Scores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// PerClass computes precision, recall, and F1 for every class. Classes with
// no predicted (or no true) instances score zero on the undefined ratio.
func (c *Confusion) PerClass() []ClassScores {
	scores := make([]ClassScores, c.classes)
	for k := 0; k < c.classes; k++ {
		tp := c.counts[k*c.classes+k]
		var predicted, actual int
		for j := 0; j < c.classes; j++ {
			predicted += c.counts[j*c.classes+k]
			actual += c.counts[k*c.classes+j]
		}
		s := ClassScores{Class: k, Support: actual}
		if predicted > 0 {
			s.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			s.Recall = float64(tp) / float64(actual)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		scores[k] = s
	}
	return scores
}

// Macro returns unweighted averages of the per-class scores, plus accuracy.
func (c *Confusion) Macro() Scores {
	perClass := c.PerClass()
	var out Scores
	for _, s := range perClass {
		out.Precision += s.Precision
		out.Recall += s.Recall
		out.F1 += s.F1
	}
	n := float64(len(perClass))
	if n > 0 {
		out.Precision /= n
		out.Recall /= n
		out.F1 /= n
	}
	out.Accuracy = c.Accuracy()
	return out
}
