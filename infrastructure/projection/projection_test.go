package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoClusters builds two well-separated groups of near-identical vectors.
func twoClusters(perCluster, dim int) [][]float64 {
	vectors := make([][]float64, 0, 2*perCluster)
	for i := 0; i < perCluster; i++ {
		a := make([]float64, dim)
		a[0] = 10 + 0.01*float64(i)
		b := make([]float64, dim)
		b[1] = 10 + 0.01*float64(i)
		vectors = append(vectors, a, b)
	}
	return vectors
}

func TestProject_EmptyAndSingle(t *testing.T) {
	got, err := Project(nil, DefaultParams())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Project([][]float64{{1, 2, 3}}, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, [][2]float64{{0, 0}}, got)
}

func TestProject_Deterministic(t *testing.T) {
	vectors := twoClusters(6, 8)

	a, err := Project(vectors, DefaultParams())
	require.NoError(t, err)
	b, err := Project(vectors, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestProject_SeedChangesLayout(t *testing.T) {
	vectors := twoClusters(6, 8)

	a, err := Project(vectors, Params{Neighbors: 3, MinDist: 0.1, Seed: 1})
	require.NoError(t, err)
	b, err := Project(vectors, Params{Neighbors: 3, MinDist: 0.1, Seed: 2})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestProject_SeparatesClusters(t *testing.T) {
	vectors := twoClusters(8, 16)
	coords, err := Project(vectors, Params{Neighbors: 4, MinDist: 0.1, Seed: 42})
	require.NoError(t, err)
	require.Len(t, coords, len(vectors))

	// Even-index points belong to cluster A, odd to cluster B. Mean
	// intra-cluster distance must be smaller than inter-cluster distance.
	dist := func(a, b [2]float64) float64 {
		return math.Hypot(a[0]-b[0], a[1]-b[1])
	}
	var intra, inter float64
	var nIntra, nInter int
	for i := range coords {
		for j := i + 1; j < len(coords); j++ {
			if i%2 == j%2 {
				intra += dist(coords[i], coords[j])
				nIntra++
			} else {
				inter += dist(coords[i], coords[j])
				nInter++
			}
		}
	}
	assert.Less(t, intra/float64(nIntra), inter/float64(nInter))
}

func TestProject_RejectsMixedDimensions(t *testing.T) {
	_, err := Project([][]float64{{1, 2}, {1, 2, 3}}, DefaultParams())
	assert.Error(t, err)
}

func TestProject_BoundedScale(t *testing.T) {
	coords, err := Project(twoClusters(5, 4), DefaultParams())
	require.NoError(t, err)
	for _, c := range coords {
		assert.LessOrEqual(t, math.Abs(c[0]), 10.000001)
		assert.LessOrEqual(t, math.Abs(c[1]), 10.000001)
	}
}
