// Package cluster implements the spectral clustering used to compute a two
// way partition of the network nodes whenever a branch is split.
package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
	"gonum.org/v1/gonum/mat"
)

// epsilon keeps the affinity of two nodes finite when their latency is zero.
const epsilon = 1e-6

// Range of the synthetic latency between two nodes in milliseconds.
const (
	minLatency = 10.0
	maxLatency = 100.0
)

// Clustering interface represents the behavior required to be implemented by
// any package providing support for partitioning the network nodes.
type Clustering interface {
	FiedlerVector() ([]float64, error)
	Partition(fiedler []float64) (a []uint32, b []uint32, err error)
}

// LatencyEstimator represents the behavior required to measure the latency
// between two network nodes.
type LatencyEstimator interface {
	EstimatedLatency(nodeA uint32, nodeB uint32) float64
}

// =============================================================================

// Spectral partitions a fixed set of nodes using the Fiedler vector of the
// graph Laplacian built from their pairwise latency.
type Spectral struct {
	nodes   []uint32
	latency *mat.SymDense
}

// New constructs a Spectral value over the specified number of nodes with a
// random symmetric latency matrix.
func New(nodes int) (*Spectral, error) {
	if nodes < 0 {
		return nil, fmt.Errorf("%w: negative node count %d", database.ErrClustering, nodes)
	}

	latency := make([][]float64, nodes)
	for i := range latency {
		latency[i] = make([]float64, nodes)
	}

	for i := 0; i < nodes; i++ {
		for j := i + 1; j < nodes; j++ {
			l := minLatency + rand.Float64()*(maxLatency-minLatency)
			latency[i][j] = l
			latency[j][i] = l
		}
	}

	return newSpectral(latency), nil
}

// NewWithLatency constructs a Spectral value from a supplied latency matrix.
// The matrix must be square, symmetric, have a zero diagonal and positive
// values everywhere else.
func NewWithLatency(latency [][]float64) (*Spectral, error) {
	n := len(latency)

	for i := range n {
		if len(latency[i]) != n {
			return nil, fmt.Errorf("%w: latency matrix row %d has %d columns, exp %d", database.ErrClustering, i, len(latency[i]), n)
		}
	}

	for i := range n {
		for j := range n {
			l := latency[i][j]

			switch {
			case math.IsNaN(l) || math.IsInf(l, 0):
				return nil, fmt.Errorf("%w: latency[%d][%d] is not finite", database.ErrClustering, i, j)

			case i == j && l != 0:
				return nil, fmt.Errorf("%w: latency[%d][%d] must be zero", database.ErrClustering, i, j)

			case i != j && l <= 0:
				return nil, fmt.Errorf("%w: latency[%d][%d] must be positive", database.ErrClustering, i, j)

			case l != latency[j][i]:
				return nil, fmt.Errorf("%w: latency matrix is not symmetric at [%d][%d]", database.ErrClustering, i, j)
			}
		}
	}

	return newSpectral(latency), nil
}

// LatencyFromNetwork constructs a Spectral value over the specified number of
// nodes using the latency the estimator reports between every pair. The
// average of both directions is used to keep the matrix symmetric.
func LatencyFromNetwork(nodes int, estimator LatencyEstimator) (*Spectral, error) {
	if nodes < 0 {
		return nil, fmt.Errorf("%w: negative node count %d", database.ErrClustering, nodes)
	}

	latency := make([][]float64, nodes)
	for i := range latency {
		latency[i] = make([]float64, nodes)
	}

	for i := 0; i < nodes; i++ {
		for j := i + 1; j < nodes; j++ {
			l := (estimator.EstimatedLatency(uint32(i), uint32(j)) + estimator.EstimatedLatency(uint32(j), uint32(i))) / 2
			latency[i][j] = l
			latency[j][i] = l
		}
	}

	return NewWithLatency(latency)
}

// newSpectral copies the latency values into a symmetric matrix.
func newSpectral(latency [][]float64) *Spectral {
	n := len(latency)

	nodes := make([]uint32, n)
	for i := range nodes {
		nodes[i] = uint32(i)
	}

	s := Spectral{
		nodes: nodes,
	}

	if n > 0 {
		s.latency = mat.NewSymDense(n, nil)
		for i := range n {
			for j := i; j < n; j++ {
				s.latency.SetSym(i, j, latency[i][j])
			}
		}
	}

	return &s
}

// Nodes returns the number of nodes in the graph.
func (s *Spectral) Nodes() int {
	return len(s.nodes)
}

// Laplacian returns the graph Laplacian, the degree matrix minus the
// adjacency matrix, where the adjacency of two nodes is the reciprocal of
// their latency.
func (s *Spectral) Laplacian() (*mat.SymDense, error) {
	n := len(s.nodes)
	if n == 0 {
		return nil, fmt.Errorf("%w: graph has no nodes", database.ErrClustering)
	}

	laplacian := mat.NewSymDense(n, nil)
	for i := range n {
		var degree float64
		for j := range n {
			if i == j {
				continue
			}

			affinity := 1 / (s.latency.At(i, j) + epsilon)
			degree += affinity

			if j > i {
				laplacian.SetSym(i, j, -affinity)
			}
		}
		laplacian.SetSym(i, i, degree)
	}

	return laplacian, nil
}

// FiedlerVector computes the eigenvector associated with the second smallest
// eigenvalue of the graph Laplacian.
func (s *Spectral) FiedlerVector() ([]float64, error) {
	n := len(s.nodes)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 eigenpairs, graph has %d nodes", database.ErrClustering, n)
	}

	laplacian, err := s.Laplacian()
	if err != nil {
		return nil, err
	}

	var eigen mat.EigenSym
	if ok := eigen.Factorize(laplacian, true); !ok {
		return nil, fmt.Errorf("%w: eigen decomposition did not converge", database.ErrClustering)
	}

	values := eigen.Values(nil)

	var vectors mat.Dense
	eigen.VectorsTo(&vectors)

	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	if len(order) < 2 {
		return nil, fmt.Errorf("%w: failed to compute fiedler vector", database.ErrClustering)
	}

	return mat.Col(nil, order[1], &vectors), nil
}

// Partition splits the nodes by the sign of their entry in the Fiedler
// vector. Non-negative entries, including exact zeros, go to the first
// cluster. Entries beyond the known nodes are ignored. An entry that isn't a
// finite number can't be placed and fails the partition.
func (s *Spectral) Partition(fiedler []float64) ([]uint32, []uint32, error) {
	var a, b []uint32

	for i, v := range fiedler {
		if i >= len(s.nodes) {
			break
		}

		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return nil, nil, fmt.Errorf("%w: fiedler entry %d is not finite", database.ErrClustering, i)

		case v >= 0:
			a = append(a, s.nodes[i])
		default:
			b = append(b, s.nodes[i])
		}
	}

	return a, b, nil
}
