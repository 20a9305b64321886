package cluster

import (
	"math"
	"math/rand/v2"
)

type kmeansFit struct {
	labels    []int
	centroids [][]float64
	inertia   float64
}

// fitKMeans runs nInit k-means++ initialisations and keeps the fit with the
// lowest inertia (first on ties). The generator is seeded from seed and k so
// each k is reproducible on its own.
func fitKMeans(points [][]float64, k int, seed uint64, nInit, maxIter int, tol float64) kmeansFit {
	rng := rand.New(rand.NewPCG(seed, uint64(k)))
	threshold := tol * meanVariance(points)

	var best kmeansFit
	for run := 0; run < nInit; run++ {
		fit := lloyd(points, initPlusPlus(points, k, rng), maxIter, threshold)
		if run == 0 || fit.inertia < best.inertia {
			best = fit
		}
	}
	return best
}

// initPlusPlus picks k starting centroids with D² weighting.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(n)]))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centroids[0])
	}

	for len(centroids) < k {
		var total float64
		for _, d := range dist {
			total += d
		}

		next := rng.IntN(n)
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range dist {
				acc += d
				if acc >= target && d > 0 {
					next = i
					break
				}
			}
		}

		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centroids
}

func lloyd(points [][]float64, centroids [][]float64, maxIter int, threshold float64) kmeansFit {
	k := len(centroids)
	dim := len(points[0])
	labels := make([]int, len(points))

	for iter := 0; iter < maxIter; iter++ {
		assign(points, centroids, labels)

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := labels[i]
			counts[c]++
			for j, x := range p {
				next[c][j] += x
			}
		}
		for c := range next {
			if counts[c] == 0 {
				next[c] = clone(points[farthest(points, centroids, labels)])
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}

		var shift float64
		for c := range next {
			shift += sqDist(next[c], centroids[c])
		}
		centroids = next
		if shift <= threshold {
			break
		}
	}

	inertia := assign(points, centroids, labels)
	return kmeansFit{labels: labels, centroids: centroids, inertia: inertia}
}

// assign labels each point with its nearest centroid (lowest index on ties)
// and returns the inertia.
func assign(points, centroids [][]float64, labels []int) float64 {
	var inertia float64
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
		inertia += bestDist
	}
	return inertia
}

// farthest returns the point farthest from its assigned centroid; it reseeds
// an empty cluster.
func farthest(points, centroids [][]float64, labels []int) int {
	idx, maxDist := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centroids[labels[i]]); d > maxDist {
			idx, maxDist = i, d
		}
	}
	return idx
}

func meanVariance(points [][]float64) float64 {
	n := float64(len(points))
	dim := len(points[0])
	var total float64
	for j := 0; j < dim; j++ {
		var sum, sumSq float64
		for _, p := range points {
			sum += p[j]
			sumSq += p[j] * p[j]
		}
		mean := sum / n
		total += sumSq/n - mean*mean
	}
	return total / float64(dim)
}

func sqDist(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
