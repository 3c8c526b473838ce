package encoder

import (
	"math"
	"testing"
)

func TestMeanPool(t *testing.T) {
	// batch=1, seq=3, dim=2; third position is padding.
	hidden := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	mask := []int64{1, 1, 0}

	got := meanPool(hidden, mask, 1, 3, 2)

	want := []float32{2, 3}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestMeanPoolBatch(t *testing.T) {
	// batch=2, seq=2, dim=1.
	hidden := []float32{
		2, 4, // row 0: both real -> mean 3
		6, 8, // row 1: only first real -> 6
	}
	mask := []int64{1, 1, 1, 0}

	got := meanPool(hidden, mask, 2, 2, 1)

	if got[0] != 3 {
		t.Errorf("row 0 = %g, want 3", got[0])
	}
	if got[1] != 6 {
		t.Errorf("row 1 = %g, want 6", got[1])
	}
}

func TestMeanPoolAllPadding(t *testing.T) {
	hidden := []float32{5, 5, 5, 5}
	mask := []int64{0, 0}

	got := meanPool(hidden, mask, 1, 2, 2)

	for i, v := range got {
		if v != 0 {
			t.Errorf("out[%d] = %g, want 0 for all-padding row", i, v)
		}
	}
}
