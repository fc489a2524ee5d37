package bvh

import (
	"fmt"
	"slices"
	"time"

	"github.com/achilleasa/ploc/log"
	"github.com/achilleasa/ploc/parallel"
	"github.com/achilleasa/ploc/types"
	"github.com/google/uuid"
)

const (
	DefaultSearchRadius      = 10
	DefaultParallelThreshold = 256
)

// Builder constructs BVHs bottom-up by locally-ordered agglomerative
// clustering. Primitives are sorted along a space filling curve and every
// round merges the pairs of nodes that are each other's nearest neighbor
// within SearchRadius positions; the merge cost is the half area of the
// union of the two volumes.
//
// A Builder can be reused for several builds but must not be used by more
// than one build at a time.
type Builder struct {
	// Max distance (in sorted order) at which neighbors are searched.
	SearchRadius int

	// Max number of goroutines used by a build. If 0, GOMAXPROCS is used.
	Workers int

	// Rounds whose active window is at most this size run on the calling
	// goroutine.
	ParallelThreshold int

	// Orders primitives before clustering. Defaults to a MortonSorter.
	Sorter PrimitiveSorter

	// If set, invoked after every clustering round.
	OnRound func(RoundStats)

	logger log.Logger
}

// Option configures a Builder.
type Option func(*Builder)

func WithSearchRadius(radius int) Option {
	return func(b *Builder) { b.SearchRadius = radius }
}

func WithWorkers(workers int) Option {
	return func(b *Builder) { b.Workers = workers }
}

func WithParallelThreshold(threshold int) Option {
	return func(b *Builder) { b.ParallelThreshold = threshold }
}

func WithSorter(sorter PrimitiveSorter) Option {
	return func(b *Builder) { b.Sorter = sorter }
}

func WithRoundObserver(fn func(RoundStats)) Option {
	return func(b *Builder) { b.OnRound = fn }
}

// Create a new builder. Options are applied on top of the defaults.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		SearchRadius:      DefaultSearchRadius,
		ParallelThreshold: DefaultParallelThreshold,
		logger:            log.New("bvh builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build a box tree over a set of primitive boxes. The global box must
// enclose every primitive center.
func (b *Builder) BuildBoxes(global types.Box, boxes []types.Box, centers []types.Vec3) (*Tree, error) {
	start := time.Now()
	order, err := b.prepare(global, len(boxes), centers)
	if err == nil {
		err = checkVolumes(boxes)
	}
	if err != nil {
		return nil, err
	} else if order == nil {
		return &Tree{}, nil
	}

	pool := b.pool()
	nodes, w := seed[BoxNode](pool, boxes, order)
	rounds, err := runRounds[BoxNode, types.Box](b, pool, nodes, &w, PhaseBox, 0, -1, b.boxObserver())
	if err != nil {
		return nil, err
	}

	b.getLogger().Debugf("box tree build time: %d ms, primitives: %d, nodes: %d, rounds: %d", time.Since(start).Milliseconds(), len(boxes), len(nodes.nodes), rounds)
	return &Tree{
		Nodes:            nodes.nodes,
		PrimitiveIndices: order,
		NodeCount:        len(nodes.nodes),
		BuildID:          uuid.New(),
	}, nil
}

// Build a cylinder tree using a cylinder global bound for sorting.
func (b *Builder) BuildCylinders(global types.Cylinder, cylinders []types.Cylinder, centers []types.Vec3) (*Tree, error) {
	return b.BuildCylindersInBox(global.AABB(), cylinders, centers)
}

// Build a cylinder tree using a box global bound for sorting.
func (b *Builder) BuildCylindersInBox(global types.Box, cylinders []types.Cylinder, centers []types.Vec3) (*Tree, error) {
	start := time.Now()
	order, err := b.prepare(global, len(cylinders), centers)
	if err == nil {
		err = checkVolumes(cylinders)
	}
	if err != nil {
		return nil, err
	} else if order == nil {
		return &Tree{Cylinder: true}, nil
	}

	pool := b.pool()
	nodes, w := seed[CylinderNode](pool, cylinders, order)
	rounds, err := runRounds[CylinderNode, types.Cylinder](b, pool, nodes, &w, PhaseCylinder, 0, -1, b.cylinderObserver())
	if err != nil {
		return nil, err
	}

	b.getLogger().Debugf("cylinder tree build time: %d ms, primitives: %d, nodes: %d, rounds: %d", time.Since(start).Milliseconds(), len(cylinders), len(nodes.nodes), rounds)
	return &Tree{
		CylinderNodes:    nodes.nodes,
		PrimitiveIndices: order,
		Cylinder:         true,
		NodeCount:        len(nodes.nodes),
		BuildID:          uuid.New(),
	}, nil
}

// Build a hybrid tree: the first iteration rounds cluster cylinder nodes,
// then the remaining active nodes are converted to their bounding boxes and
// clustering continues with box nodes until a single root remains.
//
// An iteration of 0 skips the cylinder phase; the resulting box tree has
// the same shape as a BuildBoxes call over the primitive AABBs.
func (b *Builder) BuildHybrid(global types.Box, cylinders []types.Cylinder, centers []types.Vec3, iteration int) (*Tree, error) {
	start := time.Now()
	order, err := b.prepare(global, len(cylinders), centers)
	if err == nil {
		err = checkVolumes(cylinders)
	}
	if err != nil {
		return nil, err
	} else if order == nil {
		return &Tree{Cylinder: true, Hybrid: true}, nil
	}
	if iteration < 0 {
		iteration = 0
	}

	pool := b.pool()
	cylNodes, w := seed[CylinderNode](pool, cylinders, order)
	cylRounds, err := runRounds[CylinderNode, types.Cylinder](b, pool, cylNodes, &w, PhaseCylinder, 0, iteration, b.cylinderObserver())
	if err != nil {
		return nil, err
	}

	// Slots below the window hold nodes from earlier rounds that were moved
	// elsewhere.
	clear(cylNodes.nodes[:w.begin])

	boxNodes := &arena[BoxNode]{nodes: make([]BoxNode, len(cylNodes.nodes))}
	pool.ForEach(pool.Workers(), 0, len(boxNodes.nodes), func(i int) {
		src := &cylNodes.nodes[i]
		dst := &boxNodes.nodes[i]
		if i < w.begin {
			return
		}
		dst.SetVolume(src.Volume().AABB())
		dst.SetLeaf(src.IsLeaf() || i < w.end)
		dst.SetPrimitiveCount(src.PrimitiveCount())
		dst.SetFirstChild(src.FirstChild())
		dst.Origin = uint32(i)
	})
	boxNodes.scratch = slices.Clone(boxNodes.nodes)

	boxRounds, err := runRounds[BoxNode, types.Box](b, pool, boxNodes, &w, PhaseBox, cylRounds, -1, b.boxObserver())
	if err != nil {
		return nil, err
	}

	b.getLogger().Debugf("hybrid tree build time: %d ms, primitives: %d, nodes: %d, cylinder rounds: %d, box rounds: %d", time.Since(start).Milliseconds(), len(cylinders), len(boxNodes.nodes), cylRounds, boxRounds)
	return &Tree{
		Nodes:            boxNodes.nodes,
		CylinderNodes:    cylNodes.nodes,
		PrimitiveIndices: order,
		Cylinder:         true,
		Hybrid:           true,
		NodeCount:        len(boxNodes.nodes),
		BuildID:          uuid.New(),
	}, nil
}

// Validate the build inputs and sort the primitives. Returns a nil order
// without error when there is nothing to build.
func (b *Builder) prepare(global types.Box, count int, centers []types.Vec3) ([]uint32, error) {
	if count != len(centers) {
		return nil, fmt.Errorf("%w: %d primitives, %d centers", ErrLengthMismatch, count, len(centers))
	}
	if count > MaxPrimitiveCount {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPrimitives, count)
	}
	if count == 0 {
		return nil, nil
	}
	if count > 1 && b.SearchRadius < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSearchRadius, b.SearchRadius)
	}
	if !global.IsFinite() || global.IsEmpty() {
		return nil, ErrInvalidGlobalBound
	}

	sorter := b.Sorter
	if sorter == nil {
		sorter = &MortonSorter{Workers: b.Workers}
	}
	order := sorter.Sort(global, centers)
	if !isPermutation(order, count) {
		return nil, ErrInvalidPermutation
	}
	return order, nil
}

// Reject primitive volumes with NaN or infinite extents.
func checkVolumes[V volume[V]](volumes []V) error {
	for i, v := range volumes {
		if !v.IsFinite() {
			return fmt.Errorf("%w: primitive %d", ErrInvalidVolume, i)
		}
	}
	return nil
}

func (b *Builder) getLogger() log.Logger {
	if b.logger == nil {
		b.logger = log.New("bvh builder")
	}
	return b.logger
}

func (b *Builder) pool() *parallel.Pool {
	return parallel.NewPool(b.Workers)
}

func (b *Builder) boxObserver() func(RoundStats, []BoxNode) {
	if b.OnRound == nil {
		return nil
	}
	return func(stats RoundStats, nodes []BoxNode) {
		stats.BoxNodes = nodes
		b.OnRound(stats)
	}
}

func (b *Builder) cylinderObserver() func(RoundStats, []CylinderNode) {
	if b.OnRound == nil {
		return nil
	}
	return func(stats RoundStats, nodes []CylinderNode) {
		stats.CylinderNodes = nodes
		b.OnRound(stats)
	}
}

// A node array and the buffer the next round writes to.
type arena[N any] struct {
	nodes   []N
	scratch []N
}

func (a *arena[N]) swap() {
	a.nodes, a.scratch = a.scratch, a.nodes
}

// Allocate a 2P-1 node arena and store one leaf per primitive, in sorted
// order, in its last P slots.
func seed[N any, V volume[V], P nodeRef[N, V]](pool *parallel.Pool, volumes []V, order []uint32) (*arena[N], window) {
	primCount := len(volumes)
	nodeCount := 2*primCount - 1
	a := &arena[N]{
		nodes:   make([]N, nodeCount),
		scratch: make([]N, nodeCount),
	}

	begin := nodeCount - primCount
	pool.ForEach(pool.Workers(), 0, primCount, func(i int) {
		n := P(&a.nodes[begin+i])
		n.SetVolume(volumes[order[i]])
		n.SetLeaf(true)
		n.SetPrimitiveCount(1)
		n.SetFirstChild(uint32(i))
	})

	return a, window{begin: begin, end: nodeCount, previousEnd: nodeCount}
}

// Run clustering rounds until a single node remains in the window or
// maxRounds rounds have been executed (a negative maxRounds means no limit).
// The window is updated in place; the arena always holds the latest round
// output in its nodes slice. Returns the number of executed rounds.
func runRounds[N any, V volume[V], P nodeRef[N, V]](b *Builder, pool *parallel.Pool, a *arena[N], w *window, phase Phase, firstRound, maxRounds int, observe func(RoundStats, []N)) (int, error) {
	c := newClusterer[N, V, P](pool, b.SearchRadius, b.ParallelThreshold, len(a.nodes))

	rounds := 0
	for w.size() > 1 && (maxRounds < 0 || rounds < maxRounds) {
		next, merged, err := c.round(a.nodes, a.scratch, *w)
		if err != nil {
			return rounds, fmt.Errorf("%s round %d: %w", phase, firstRound+rounds, err)
		}
		a.swap()
		*w = next

		if observe != nil {
			var area float64
			for i := w.begin; i < w.end; i++ {
				area += float64(P(&a.nodes[i]).Volume().HalfArea())
			}
			observe(RoundStats{
				Phase:          phase,
				Round:          firstRound + rounds,
				Begin:          w.begin,
				End:            w.end,
				Merged:         merged,
				ActiveHalfArea: area,
			}, a.nodes)
		}
		rounds++
	}
	return rounds, nil
}

func isPermutation(order []uint32, count int) bool {
	if len(order) != count {
		return false
	}
	seen := make([]bool, count)
	for _, index := range order {
		if int(index) >= count || seen[index] {
			return false
		}
		seen[index] = true
	}
	return true
}
