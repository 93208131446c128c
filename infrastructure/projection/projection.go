// Package projection computes a deterministic 2-D layout of
// high-dimensional vectors for diagnostics visualizations. The layout is
// a PCA initialization refined by a seeded neighbor-attraction pass, so
// identical inputs and parameters always yield identical coordinates.
package projection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Default layout parameters.
const (
	DefaultNeighbors = 15
	DefaultMinDist   = 0.1
	DefaultSeed      = 42
)

// refinement schedule
const (
	epochs       = 200
	initialAlpha = 1.0
	negativeRate = 5
)

// Params controls the layout.
type Params struct {
	Neighbors int
	MinDist   float64
	Seed      int64
}

// DefaultParams returns the default layout parameters.
func DefaultParams() Params {
	return Params{Neighbors: DefaultNeighbors, MinDist: DefaultMinDist, Seed: DefaultSeed}
}

// normalized clamps the parameters into usable ranges.
func (p Params) normalized(n int) Params {
	if p.Neighbors <= 0 {
		p.Neighbors = DefaultNeighbors
	}
	if p.Neighbors >= n {
		p.Neighbors = n - 1
	}
	if p.MinDist <= 0 {
		p.MinDist = DefaultMinDist
	}
	return p
}

// Project maps each input vector to a 2-D coordinate. All vectors must
// share the same dimension.
func Project(vectors [][]float64, p Params) ([][2]float64, error) {
	n := len(vectors)
	switch n {
	case 0:
		return [][2]float64{}, nil
	case 1:
		return [][2]float64{{0, 0}}, nil
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	if dim == 0 {
		return nil, fmt.Errorf("vectors have dimension 0")
	}

	p = p.normalized(n)

	coords := pcaInit(vectors, n, dim)
	neighbors := nearestNeighbors(vectors, p.Neighbors)
	refine(coords, neighbors, p, n)
	rescale(coords)

	out := make([][2]float64, n)
	for i := range coords {
		out[i] = [2]float64{coords[i][0], coords[i][1]}
	}
	return out, nil
}

// pcaInit projects the centered data onto its first two principal
// components via SVD.
func pcaInit(vectors [][]float64, n, dim int) [][2]float64 {
	mean := make([]float64, dim)
	for _, v := range vectors {
		for j, x := range v {
			mean[j] += x
		}
	}
	for j := range mean {
		mean[j] /= float64(n)
	}

	centered := mat.NewDense(n, dim, nil)
	for i, v := range vectors {
		for j, x := range v {
			centered.Set(i, j, x-mean[j])
		}
	}

	var svd mat.SVD
	coords := make([][2]float64, n)
	if !svd.Factorize(centered, mat.SVDThinU) {
		// Degenerate input; fall back to a deterministic spread.
		for i := range coords {
			coords[i] = [2]float64{float64(i), 0}
		}
		return coords
	}

	var u mat.Dense
	svd.UTo(&u)
	sigma := svd.Values(nil)

	for i := 0; i < n; i++ {
		coords[i][0] = u.At(i, 0) * sigma[0]
		if len(sigma) > 1 && u.RawMatrix().Cols > 1 {
			coords[i][1] = u.At(i, 1) * sigma[1]
		}
	}
	return coords
}

// nearestNeighbors returns the k nearest neighbor indices of each vector
// by squared Euclidean distance, ties broken by index.
func nearestNeighbors(vectors [][]float64, k int) [][]int {
	n := len(vectors)
	type cand struct {
		idx  int
		dist float64
	}

	out := make([][]int, n)
	for i := range vectors {
		cands := make([]cand, 0, n-1)
		for j := range vectors {
			if j == i {
				continue
			}
			cands = append(cands, cand{j, sqDist(vectors[i], vectors[j])})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})
		ids := make([]int, k)
		for m := 0; m < k; m++ {
			ids[m] = cands[m].idx
		}
		out[i] = ids
	}
	return out
}

// refine pulls points toward their high-dimensional neighbors and pushes
// them away from sampled non-neighbors, with a linearly decaying step.
func refine(coords [][2]float64, neighbors [][]int, p Params, n int) {
	rng := rand.New(rand.NewSource(p.Seed))
	minDistSq := p.MinDist * p.MinDist

	for epoch := 0; epoch < epochs; epoch++ {
		alpha := initialAlpha * (1 - float64(epoch)/float64(epochs))
		for i := range coords {
			for _, j := range neighbors[i] {
				attract(coords, i, j, alpha, minDistSq)
				for s := 0; s < negativeRate; s++ {
					repel(coords, i, rng.Intn(n), alpha)
				}
			}
		}
	}
}

func attract(coords [][2]float64, i, j int, alpha, minDistSq float64) {
	dx := coords[i][0] - coords[j][0]
	dy := coords[i][1] - coords[j][1]
	d2 := dx*dx + dy*dy
	if d2 <= minDistSq {
		return
	}
	grad := -2.0 * d2 / ((1 + d2) * (d2 + minDistSq))
	coords[i][0] += clip(grad*dx) * alpha
	coords[i][1] += clip(grad*dy) * alpha
}

func repel(coords [][2]float64, i, j int, alpha float64) {
	if i == j {
		return
	}
	dx := coords[i][0] - coords[j][0]
	dy := coords[i][1] - coords[j][1]
	d2 := dx*dx + dy*dy
	grad := 2.0 / ((0.001 + d2) * (1 + d2))
	coords[i][0] += clip(grad*dx) * alpha
	coords[i][1] += clip(grad*dy) * alpha
}

func clip(v float64) float64 {
	const limit = 4.0
	return math.Max(-limit, math.Min(limit, v))
}

// rescale centers the layout and normalizes its extent to roughly
// [-10, 10] so the frontend gets a stable scale.
func rescale(coords [][2]float64) {
	var cx, cy float64
	for _, c := range coords {
		cx += c[0]
		cy += c[1]
	}
	cx /= float64(len(coords))
	cy /= float64(len(coords))

	var maxAbs float64
	for i := range coords {
		coords[i][0] -= cx
		coords[i][1] -= cy
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(coords[i][0]), math.Abs(coords[i][1])))
	}
	if maxAbs == 0 {
		return
	}
	scale := 10.0 / maxAbs
	for i := range coords {
		coords[i][0] *= scale
		coords[i][1] *= scale
	}
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
