package cluster_test

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/ardanlabs/blocktree/foundation/blocktree/cluster"
	"github.com/ardanlabs/blocktree/foundation/blocktree/database"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// twoGroups builds a latency matrix where nodes 0-2 and 3-5 are close to
// each other and far from the other group.
func twoGroups() [][]float64 {
	const n = 6

	latency := make([][]float64, n)
	for i := range latency {
		latency[i] = make([]float64, n)
		for j := range latency[i] {
			switch {
			case i == j:
			case (i < 3) == (j < 3):
				latency[i][j] = 1
			default:
				latency[i][j] = 100
			}
		}
	}

	return latency
}

type fixedLatency float64

func (f fixedLatency) EstimatedLatency(nodeA uint32, nodeB uint32) float64 {
	return float64(f) * float64(1+nodeA+nodeB)
}

// =============================================================================

func Test_FiedlerVector(t *testing.T) {
	t.Log("Given the need to compute a fiedler vector.")
	{
		t.Logf("\tTest 0:\tWhen handling a 2 node graph.")
		{
			s, err := cluster.New(2)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to build the graph: %v", failed, err)
			}

			fiedler, err := s.FiedlerVector()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to compute the vector: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to compute the vector.", success)

			if len(fiedler) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould get 2 entries, got %d.", failed, len(fiedler))
			}
			t.Logf("\t%s\tTest 0:\tShould get 2 entries.", success)

			a, b, err := s.Partition(fiedler)
			if err != nil || len(a) != 1 || len(b) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould put one node in each cluster, got %v and %v.", failed, a, b)
			}
			t.Logf("\t%s\tTest 0:\tShould put one node in each cluster.", success)
		}

		for testID, nodes := range []int{1, 0} {
			testID++
			t.Logf("\tTest %d:\tWhen handling a %d node graph.", testID, nodes)
			{
				s, err := cluster.New(nodes)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to build the graph: %v", failed, testID, err)
				}

				if _, err := s.FiedlerVector(); !errors.Is(err, database.ErrClustering) {
					t.Fatalf("\t%s\tTest %d:\tShould get a clustering failure: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get a clustering failure.", success, testID)
			}
		}

		t.Logf("\tTest 3:\tWhen handling a 10 node random graph.")
		{
			s, err := cluster.New(10)
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to build the graph: %v", failed, err)
			}

			fiedler, err := s.FiedlerVector()
			if err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould be able to compute the vector: %v", failed, err)
			}

			var norm float64
			for _, v := range fiedler {
				norm += v * v
			}
			if math.Abs(norm-1) > 1e-9 {
				t.Fatalf("\t%s\tTest 3:\tShould get a unit vector, got norm %f.", failed, norm)
			}
			t.Logf("\t%s\tTest 3:\tShould get a unit vector.", success)

			a, b, err := s.Partition(fiedler)
			if err != nil || len(a)+len(b) != 10 {
				t.Fatalf("\t%s\tTest 3:\tShould place every node, got %d.", failed, len(a)+len(b))
			}
			t.Logf("\t%s\tTest 3:\tShould place every node.", success)
		}
	}
}

func Test_PartitionGroups(t *testing.T) {
	t.Log("Given the need to separate two groups of close nodes.")
	{
		s, err := cluster.NewWithLatency(twoGroups())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the graph: %v", failed, err)
		}

		fiedler, err := s.FiedlerVector()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to compute the vector: %v", failed, err)
		}

		a, b, err := s.Partition(fiedler)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to partition the graph: %v", failed, err)
		}
		slices.Sort(a)
		slices.Sort(b)

		g1 := []uint32{0, 1, 2}
		g2 := []uint32{3, 4, 5}

		if !(slices.Equal(a, g1) && slices.Equal(b, g2)) && !(slices.Equal(a, g2) && slices.Equal(b, g1)) {
			t.Fatalf("\t%s\tShould separate the groups, got %v and %v.", failed, a, b)
		}
		t.Logf("\t%s\tShould separate the groups.", success)
	}
}

func Test_PartitionSigns(t *testing.T) {
	t.Log("Given the need to partition by sign.")
	{
		s, err := cluster.New(4)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the graph: %v", failed, err)
		}

		a, b, err := s.Partition([]float64{0.5, 0, -0.1, -0.7})
		if err != nil || !slices.Equal(a, []uint32{0, 1}) || !slices.Equal(b, []uint32{2, 3}) {
			t.Fatalf("\t%s\tShould put zero with the non-negative cluster, got %v and %v: %v", failed, a, b, err)
		}
		t.Logf("\t%s\tShould put zero with the non-negative cluster.", success)

		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			if _, _, err := s.Partition([]float64{0.5, v, -0.1, -0.7}); !errors.Is(err, database.ErrClustering) {
				t.Fatalf("\t%s\tShould fail to place a %v entry: %v", failed, v, err)
			}
			t.Logf("\t%s\tShould fail to place a %v entry.", success, v)
		}
	}
}

func Test_Laplacian(t *testing.T) {
	t.Log("Given the need to build the graph laplacian.")
	{
		s, err := cluster.NewWithLatency(twoGroups())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the graph: %v", failed, err)
		}

		l, err := s.Laplacian()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the laplacian: %v", failed, err)
		}

		n, _ := l.Dims()
		for i := range n {
			var sum float64
			for j := range n {
				sum += l.At(i, j)
			}
			if math.Abs(sum) > 1e-9 {
				t.Fatalf("\t%s\tShould get rows that sum to zero, row %d sums to %f.", failed, i, sum)
			}
		}
		t.Logf("\t%s\tShould get rows that sum to zero.", success)
	}
}

func Test_NewWithLatency(t *testing.T) {
	tt := []struct {
		name    string
		latency [][]float64
	}{
		{"not-square", [][]float64{{0, 1}, {1}}},
		{"diagonal", [][]float64{{1, 1}, {1, 0}}},
		{"negative", [][]float64{{0, -1}, {-1, 0}}},
		{"asymmetric", [][]float64{{0, 1}, {2, 0}}},
		{"nan", [][]float64{{0, math.NaN()}, {math.NaN(), 0}}},
	}

	t.Log("Given the need to reject malformed latency matrices.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %s case.", testID, tst.name)
			{
				if _, err := cluster.NewWithLatency(tst.latency); !errors.Is(err, database.ErrClustering) {
					t.Fatalf("\t%s\tTest %d:\tShould get a clustering failure: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould get a clustering failure.", success, testID)
			}
		}
	}
}

func Test_LatencyFromNetwork(t *testing.T) {
	t.Log("Given the need to build the graph from network measurements.")
	{
		s, err := cluster.LatencyFromNetwork(5, fixedLatency(10))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to build the graph: %v", failed, err)
		}

		if s.Nodes() != 5 {
			t.Fatalf("\t%s\tShould get 5 nodes, got %d.", failed, s.Nodes())
		}
		t.Logf("\t%s\tShould get 5 nodes.", success)

		if _, err := s.FiedlerVector(); err != nil {
			t.Fatalf("\t%s\tShould be able to compute the vector: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to compute the vector.", success)
	}
}

func Test_NegativeNodes(t *testing.T) {
	t.Log("Given the need to reject a negative number of nodes.")
	{
		if _, err := cluster.New(-1); !errors.Is(err, database.ErrClustering) {
			t.Fatalf("\t%s\tShould get a clustering failure from New: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a clustering failure from New.", success)

		if _, err := cluster.LatencyFromNetwork(-1, fixedLatency(10)); !errors.Is(err, database.ErrClustering) {
			t.Fatalf("\t%s\tShould get a clustering failure from LatencyFromNetwork: %v", failed, err)
		}
		t.Logf("\t%s\tShould get a clustering failure from LatencyFromNetwork.", success)
	}
}
