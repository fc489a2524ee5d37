package bvh

import (
	"fmt"
	"math"

	"github.com/achilleasa/ploc/parallel"
)

// The active window of a build: nodes in [begin, end) are candidates for the
// next merge, nodes in [end, previousEnd) have already been placed as
// children and nodes from previousEnd onwards are final.
type window struct {
	begin       int
	end         int
	previousEnd int
}

func (w window) size() int {
	return w.end - w.begin
}

// A sliding (radius+1) x radius matrix of merge costs. Row k caches the
// forward costs computed k nodes ago: rows[k][d-1] = cost(i-k, i-k+d).
type distanceMatrix struct {
	rows [][]float32
}

func newDistanceMatrix(radius int) *distanceMatrix {
	storage := make([]float32, (radius+1)*radius)
	m := &distanceMatrix{rows: make([][]float32, radius+1)}
	for k := range m.rows {
		m.rows[k] = storage[k*radius : (k+1)*radius]
	}
	return m
}

// Shift the rows down by one; the oldest row becomes row 0.
func (m *distanceMatrix) rotate() {
	last := m.rows[len(m.rows)-1]
	copy(m.rows[1:], m.rows[:len(m.rows)-1])
	m.rows[0] = last
}

// clusterer executes clustering rounds over a node arena. Its scratch
// buffers are sized for the whole arena and reused across rounds.
type clusterer[N any, V volume[V], P nodeRef[N, V]] struct {
	pool      *parallel.Pool
	radius    int
	threshold int

	neighbors   []uint32
	mergedIndex []uint32
}

func newClusterer[N any, V volume[V], P nodeRef[N, V]](pool *parallel.Pool, radius, threshold, nodeCount int) *clusterer[N, V, P] {
	return &clusterer[N, V, P]{
		pool:        pool,
		radius:      radius,
		threshold:   threshold,
		neighbors:   make([]uint32, nodeCount),
		mergedIndex: make([]uint32, nodeCount),
	}
}

func (c *clusterer[N, V, P]) searchRange(i, begin, end int) (int, int) {
	return max(begin, i-c.radius), min(end, i+c.radius+1)
}

// Run a single clustering round reading the active window from input and
// writing the compacted window, the new children and the copied-through
// nodes to output. Returns the new window and the number of merged pairs.
func (c *clusterer[N, V, P]) round(input, output []N, w window) (window, int, error) {
	workers := c.pool.Workers()
	if w.size() <= c.threshold {
		workers = 1
	}

	// Neighbor search. The barrier at the end of RunN makes every neighbor
	// visible to the merge phase.
	err := c.pool.RunN(workers, w.begin, w.end, func(r parallel.Range) error {
		return c.searchNeighbors(input, w, r)
	})
	if err != nil {
		return w, 0, err
	}

	c.pool.ForEach(workers, w.begin, w.end, func(i int) {
		j := int(c.neighbors[i])
		c.mergedIndex[i] = 0
		if j > i && int(c.neighbors[j]) == i {
			c.mergedIndex[i] = 1
		}
	})
	c.pool.InclusiveSum(workers, c.mergedIndex[w.begin:w.end])

	mergedCount := int(c.mergedIndex[w.end-1])
	unmergedBegin := w.begin - mergedCount
	childrenBegin := w.end - 2*mergedCount

	c.pool.Do(workers, w.begin, w.end, func(r parallel.Range) {
		c.compact(input, output, w.begin, unmergedBegin, childrenBegin, r)
	})

	c.pool.Do(workers, w.end, w.previousEnd, func(r parallel.Range) {
		copy(output[r.Begin:r.End], input[r.Begin:r.End])
	})

	next := window{
		begin:       unmergedBegin,
		end:         childrenBegin,
		previousEnd: w.end,
	}
	return next, mergedCount, nil
}

func (c *clusterer[N, V, P]) searchNeighbors(input []N, w window, chunk parallel.Range) error {
	m := newDistanceMatrix(c.radius)

	// Seed the matrix with the forward costs of the nodes that precede the
	// chunk but fall inside the search range of its first node.
	first, _ := c.searchRange(chunk.Begin, w.begin, w.end)
	for i := first; i < chunk.Begin; i++ {
		_, last := c.searchRange(i, w.begin, w.end)
		vi := P(&input[i]).Volume()
		for j := i + 1; j < last; j++ {
			cost := mergeCost(vi, P(&input[j]).Volume())
			if isNaN(cost) {
				return fmt.Errorf("%w: nodes %d and %d", ErrNaNCost, i, j)
			}
			m.rows[chunk.Begin-i][j-i-1] = cost
		}
	}

	for i := chunk.Begin; i < chunk.End; i++ {
		first, last := c.searchRange(i, w.begin, w.end)
		bestNeighbor := -1
		bestCost := float32(math.Inf(1))

		for j := first; j < i; j++ {
			cost := m.rows[i-j][i-j-1]
			if bestNeighbor < 0 || cost < bestCost {
				bestNeighbor, bestCost = j, cost
			}
		}

		vi := P(&input[i]).Volume()
		for j := i + 1; j < last; j++ {
			cost := mergeCost(vi, P(&input[j]).Volume())
			if isNaN(cost) {
				return fmt.Errorf("%w: nodes %d and %d", ErrNaNCost, i, j)
			}
			m.rows[0][j-i-1] = cost
			if bestNeighbor < 0 || cost < bestCost {
				bestNeighbor, bestCost = j, cost
			}
		}

		if bestNeighbor < 0 {
			return fmt.Errorf("%w: node %d in window [%d, %d)", ErrNoNeighbor, i, w.begin, w.end)
		}
		c.neighbors[i] = uint32(bestNeighbor)
		m.rotate()
	}

	return nil
}

// Move the nodes of a chunk to their post-round slots. A node that was not
// merged keeps its relative order at the start of the new window. A merged
// pair is moved to the children region and its parent takes the slot of the
// pair member with the higher index.
func (c *clusterer[N, V, P]) compact(input, output []N, begin, unmergedBegin, childrenBegin int, chunk parallel.Range) {
	for i := chunk.Begin; i < chunk.End; i++ {
		j := int(c.neighbors[i])
		if int(c.neighbors[j]) != i {
			output[unmergedBegin+i-begin-int(c.mergedIndex[i])] = input[i]
			continue
		}
		if i > j {
			continue
		}

		firstChild := childrenBegin + 2*(int(c.mergedIndex[i])-1)

		var parent N
		ref := P(&parent)
		ref.SetVolume(P(&input[i]).Volume().Union(P(&input[j]).Volume()))
		ref.SetLeaf(false)
		ref.SetFirstChild(uint32(firstChild))

		output[unmergedBegin+j-begin-int(c.mergedIndex[j])] = parent
		output[firstChild] = input[i]
		output[firstChild+1] = input[j]
	}
}

func isNaN(v float32) bool {
	return v != v
}
