package classify

import "math"

// CKMeans is the optimal one-dimensional k-means dynamic program
// (Wang & Song). It runs in O(k·m²) for m distinct values.
type CKMeans struct{}

// Partition implements Clusterer.
func (CKMeans) Partition(values []float64, k int) ([][]float64, error) {
	w, err := distinct(values)
	if err != nil {
		return nil, err
	}
	if err := checkInput(w, k); err != nil {
		return nil, err
	}

	m := len(w.values)
	pw := make([]float64, m+1)
	p1 := make([]float64, m+1)
	p2 := make([]float64, m+1)
	for i, v := range w.values {
		wt := w.weights[i]
		pw[i+1] = pw[i] + wt
		p1[i+1] = p1[i] + wt*v
		p2[i+1] = p2[i] + wt*v*v
	}
	// cost of the segment [a, b] of distinct values, inclusive.
	cost := func(a, b int) float64 {
		n := pw[b+1] - pw[a]
		s1 := p1[b+1] - p1[a]
		s2 := p2[b+1] - p2[a]
		c := s2 - s1*s1/n
		if c < 0 {
			return 0
		}
		return c
	}

	// d[c][i]: min cost of the first i+1 values in c+1 clusters.
	// b[c][i]: start of the last cluster in that solution.
	d := make([][]float64, k)
	b := make([][]int, k)
	for c := 0; c < k; c++ {
		d[c] = make([]float64, m)
		b[c] = make([]int, m)
		for i := 0; i < m; i++ {
			d[c][i] = math.Inf(1)
		}
	}
	for i := 0; i < m; i++ {
		d[0][i] = cost(0, i)
	}
	for c := 1; c < k; c++ {
		for i := c; i < m; i++ {
			for j := c; j <= i; j++ {
				cand := d[c-1][j-1] + cost(j, i)
				if cand < d[c][i] {
					d[c][i] = cand
					b[c][i] = j
				}
			}
		}
	}

	starts := make([]int, k)
	end := m - 1
	for c := k - 1; c >= 0; c-- {
		starts[c] = b[c][end]
		end = starts[c] - 1
	}
	return expand(w, starts), nil
}
