// Package dataset loads, filters, and splits the raw task corpora, and
// yields shuffled minibatches for training.
package dataset

import (
	"math/rand"
	"unicode/utf8"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/model"
)

// FilterStats reports how many rows survived filtering.
type FilterStats struct {
	Kept    int
	Dropped int
}

// Filter removes rows with empty text, out-of-range labels, or text longer
// than maxRunes. It returns the surviving rows in their original order.
func Filter(examples []model.Example, numClasses, maxRunes int) ([]model.Example, FilterStats) {
	kept := make([]model.Example, 0, len(examples))
	var stats FilterStats
	for _, ex := range examples {
		if ex.Text == "" || ex.Label < 0 || ex.Label >= numClasses {
			stats.Dropped++
			continue
		}
		if maxRunes > 0 && utf8.RuneCountInString(ex.Text) > maxRunes {
			stats.Dropped++
			continue
		}
		kept = append(kept, ex)
	}
	stats.Kept = len(kept)
	return kept, stats
}

// Split shuffles examples with the seeded source and divides them into
// train and validation slices. valFraction is clamped so that neither side
// is empty whenever len(examples) >= 2.
func Split(examples []model.Example, valFraction float64, seed int64) (train, val []model.Example) {
	shuffled := append([]model.Example(nil), examples...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	valN := int(float64(n) * valFraction)
	if n >= 2 {
		if valN < 1 {
			valN = 1
		}
		if valN > n-1 {
			valN = n - 1
		}
	}
	return shuffled[valN:], shuffled[:valN]
}
