package cluster

import "math"

// silhouette returns the mean silhouette coefficient of a labelling using
// Euclidean distance. Fewer than two distinct labels score 0; points in
// singleton clusters contribute 0.
func silhouette(points [][]float64, labels []int, k int) float64 {
	n := len(points)
	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	distinct := 0
	for _, s := range sizes {
		if s > 0 {
			distinct++
		}
	}
	if distinct < 2 {
		return 0
	}

	var total float64
	sums := make([]float64, k)
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[labels[j]] += math.Sqrt(sqDist(points[i], points[j]))
		}

		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for c, s := range sizes {
			if c == own || s == 0 {
				continue
			}
			if mean := sums[c] / float64(s); mean < b {
				b = mean
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(n)
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
