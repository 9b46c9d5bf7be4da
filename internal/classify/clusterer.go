// Package classify builds natural-breaks color scales for choropleth classes.
//
// Clustering is injected through the Clusterer interface. Two exact
// minimal-variance implementations ship with the package: CKMeans, a dynamic
// program over prefix sums, and Jenks, the Fisher-Jenks variance matrix
// formulation. Both work on the distinct values of the input weighted by
// multiplicity, so equal values never straddle a class boundary.
package classify

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInsufficientData is returned when the input has fewer distinct finite
// values than requested clusters.
var ErrInsufficientData = eris.New("classify: insufficient data")

// Clusterer partitions values into k groups minimizing the total
// within-group sum of squared deviations. Groups are returned in ascending
// value order, are non-empty and non-overlapping, and together contain every
// input value.
type Clusterer interface {
	Partition(values []float64, k int) ([][]float64, error)
}

// Algorithm names accepted by NewClusterer.
const (
	AlgorithmCKMeans = "ckmeans"
	AlgorithmJenks   = "jenks"
)

// NewClusterer returns the clusterer registered under name.
func NewClusterer(name string) (Clusterer, error) {
	switch strings.ToLower(name) {
	case "", AlgorithmCKMeans:
		return CKMeans{}, nil
	case AlgorithmJenks:
		return Jenks{}, nil
	default:
		return nil, eris.Errorf("classify: unknown algorithm %q", name)
	}
}

// weighted is the sorted distinct-value form both algorithms operate on.
type weighted struct {
	values  []float64
	weights []float64
}

func distinct(values []float64) (weighted, error) {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return weighted{}, eris.Errorf("classify: non-finite input %v", v)
		}
		sorted = append(sorted, v)
	}
	sort.Float64s(sorted)

	var w weighted
	for _, v := range sorted {
		n := len(w.values)
		if n > 0 && w.values[n-1] == v {
			w.weights[n-1]++
			continue
		}
		w.values = append(w.values, v)
		w.weights = append(w.weights, 1)
	}
	return w, nil
}

func checkInput(w weighted, k int) error {
	if k <= 0 {
		return eris.Errorf("classify: cluster count must be positive, got %d", k)
	}
	if len(w.values) < k {
		return eris.Wrapf(ErrInsufficientData, "%d distinct values for %d clusters", len(w.values), k)
	}
	return nil
}

// expand turns cluster start offsets over distinct values back into groups
// of the original multiset.
func expand(w weighted, starts []int) [][]float64 {
	groups := make([][]float64, len(starts))
	for c, start := range starts {
		end := len(w.values)
		if c+1 < len(starts) {
			end = starts[c+1]
		}
		var g []float64
		for i := start; i < end; i++ {
			for n := 0; n < int(w.weights[i]); n++ {
				g = append(g, w.values[i])
			}
		}
		groups[c] = g
	}
	return groups
}

// SumSquaredDeviations returns the total within-group SSD of a partition.
func SumSquaredDeviations(groups [][]float64) float64 {
	var total float64
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		var mean float64
		for _, v := range g {
			mean += v
		}
		mean /= float64(len(g))
		for _, v := range g {
			d := v - mean
			total += d * d
		}
	}
	return total
}
