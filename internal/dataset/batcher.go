package dataset

import "math/rand"

// Batcher yields per-epoch minibatches of example indices. Each call to
// Batches reshuffles the index order, so consecutive epochs see the data in
// different orders while remaining reproducible from the seed.
type Batcher struct {
	n         int
	batchSize int
	rng       *rand.Rand
	order     []int
}

// NewBatcher creates a batcher over n examples.
func NewBatcher(n, batchSize int, seed int64) *Batcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return &Batcher{
		n:         n,
		batchSize: batchSize,
		rng:       rand.New(rand.NewSource(seed)),
		order:     order,
	}
}

// Batches reshuffles and returns the epoch's batches. Every index appears in
// exactly one batch; the final batch may be short.
func (b *Batcher) Batches() [][]int {
	b.rng.Shuffle(b.n, func(i, j int) {
		b.order[i], b.order[j] = b.order[j], b.order[i]
	})
	var batches [][]int
	for start := 0; start < b.n; start += b.batchSize {
		end := start + b.batchSize
		if end > b.n {
			end = b.n
		}
		batch := make([]int, end-start)
		copy(batch, b.order[start:end])
		batches = append(batches, batch)
	}
	return batches
}
