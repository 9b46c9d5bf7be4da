package classify

import "math"

// Jenks is the Fisher-Jenks natural breaks algorithm using the classic
// lower-class-limit and variance matrices. Infeasible cells (fewer values
// than classes) stay at +Inf so every class is non-empty.
type Jenks struct{}

// Partition implements Clusterer.
func (Jenks) Partition(values []float64, k int) ([][]float64, error) {
	w, err := distinct(values)
	if err != nil {
		return nil, err
	}
	if err := checkInput(w, k); err != nil {
		return nil, err
	}

	m := len(w.values)
	// 1-based matrices as in the original formulation.
	lower := make([][]int, m+1)
	variance := make([][]float64, m+1)
	for i := 0; i <= m; i++ {
		lower[i] = make([]int, k+1)
		variance[i] = make([]float64, k+1)
		for j := 1; j <= k; j++ {
			variance[i][j] = math.Inf(1)
		}
	}

	for l := 1; l <= m; l++ {
		var s1, s2, wsum, v float64
		for mm := 1; mm <= l; mm++ {
			lo := l - mm + 1
			val := w.values[lo-1]
			wt := w.weights[lo-1]
			s1 += wt * val
			s2 += wt * val * val
			wsum += wt
			v = s2 - s1*s1/wsum
			if v < 0 {
				v = 0
			}
			prev := lo - 1
			if prev == 0 {
				continue
			}
			for j := 2; j <= k; j++ {
				if cand := v + variance[prev][j-1]; cand <= variance[l][j] {
					lower[l][j] = lo
					variance[l][j] = cand
				}
			}
		}
		lower[l][1] = 1
		variance[l][1] = v
	}

	starts := make([]int, k)
	last := m
	for j := k; j >= 1; j-- {
		lo := lower[last][j]
		starts[j-1] = lo - 1
		last = lo - 1
	}
	return expand(w, starts), nil
}
