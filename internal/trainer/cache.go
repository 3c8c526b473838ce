package trainer

import (
	"fmt"

	"github.com/drashtee-parmar/sentence-transformer-multitask/internal/encoder"
)

// encodeAll runs every text through the frozen backbone once and returns the
// pooled vectors as float64 rows aligned with the input order. The backbone
// never changes during training, so each split is encoded exactly once and
// the loop iterates over cached vectors.
func encodeAll(enc encoder.Encoder, texts []string, chunkSize int) ([][]float64, error) {
	if chunkSize <= 0 {
		chunkSize = 64
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += chunkSize {
		end := start + chunkSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := enc.EncodeBatch(texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("trainer: encode rows %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("trainer: encoder returned %d vectors for %d texts", len(vecs), end-start)
		}
		for _, v := range vecs {
			row := make([]float64, len(v))
			for i, f := range v {
				row[i] = float64(f)
			}
			out = append(out, row)
		}
	}
	return out, nil
}
