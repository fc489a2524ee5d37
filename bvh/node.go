package bvh

import "github.com/achilleasa/ploc/types"

// Node records share a packed word that stores the leaf flag in the top bit
// and the primitive count in the remaining 31 bits.
const (
	leafFlag           uint32 = 1 << 31
	primitiveCountMask uint32 = leafFlag - 1

	// The max number of primitives a leaf (and a build call) can address.
	MaxPrimitiveCount = int(primitiveCountMask)
)

// BoxNode is a BVH node bounded by an axis-aligned box. Nodes take 36 bytes.
//
// Bounds are interleaved per axis: minX, maxX, minY, maxY, minZ, maxZ.
//
// If the node is internal, FirstChildOrPrimitive is the index of its first
// child; the second child is always stored right after it. If the node is a
// leaf, FirstChildOrPrimitive indexes the tree's primitive permutation and
// the leaf covers PrimitiveCount() consecutive entries from there.
//
// Origin is only used by hybrid trees: it links a box leaf to the
// cylinder node it was derived from.
type BoxNode struct {
	Bounds                [6]float32
	LeafAndCount          uint32
	FirstChildOrPrimitive uint32
	Origin                uint32
}

// Get the node bounding box.
func (n *BoxNode) Volume() types.Box {
	return types.Box{
		Min: types.Vec3{n.Bounds[0], n.Bounds[2], n.Bounds[4]},
		Max: types.Vec3{n.Bounds[1], n.Bounds[3], n.Bounds[5]},
	}
}

// Set the node bounding box.
func (n *BoxNode) SetVolume(b types.Box) {
	n.Bounds[0] = b.Min[0]
	n.Bounds[1] = b.Max[0]
	n.Bounds[2] = b.Min[1]
	n.Bounds[3] = b.Max[1]
	n.Bounds[4] = b.Min[2]
	n.Bounds[5] = b.Max[2]
}

func (n *BoxNode) IsLeaf() bool {
	return n.LeafAndCount&leafFlag != 0
}

func (n *BoxNode) SetLeaf(leaf bool) {
	n.LeafAndCount = packLeaf(n.LeafAndCount, leaf)
}

func (n *BoxNode) PrimitiveCount() uint32 {
	return n.LeafAndCount & primitiveCountMask
}

func (n *BoxNode) SetPrimitiveCount(count uint32) {
	n.LeafAndCount = (n.LeafAndCount & leafFlag) | (count & primitiveCountMask)
}

func (n *BoxNode) FirstChild() uint32 {
	return n.FirstChildOrPrimitive
}

func (n *BoxNode) SetFirstChild(index uint32) {
	n.FirstChildOrPrimitive = index
}

// CylinderNode is a BVH node bounded by a cylinder. Nodes take 40 bytes.
// Field semantics match BoxNode.
type CylinderNode struct {
	Center                types.Vec3
	Axis                  types.Vec3
	HalfHeight            float32
	Radius                float32
	LeafAndCount          uint32
	FirstChildOrPrimitive uint32
}

// Get the node bounding cylinder.
func (n *CylinderNode) Volume() types.Cylinder {
	return types.Cylinder{
		Center:     n.Center,
		Axis:       n.Axis,
		HalfHeight: n.HalfHeight,
		Radius:     n.Radius,
	}
}

// Set the node bounding cylinder.
func (n *CylinderNode) SetVolume(c types.Cylinder) {
	n.Center = c.Center
	n.Axis = c.Axis
	n.HalfHeight = c.HalfHeight
	n.Radius = c.Radius
}

func (n *CylinderNode) IsLeaf() bool {
	return n.LeafAndCount&leafFlag != 0
}

func (n *CylinderNode) SetLeaf(leaf bool) {
	n.LeafAndCount = packLeaf(n.LeafAndCount, leaf)
}

func (n *CylinderNode) PrimitiveCount() uint32 {
	return n.LeafAndCount & primitiveCountMask
}

func (n *CylinderNode) SetPrimitiveCount(count uint32) {
	n.LeafAndCount = (n.LeafAndCount & leafFlag) | (count & primitiveCountMask)
}

func (n *CylinderNode) FirstChild() uint32 {
	return n.FirstChildOrPrimitive
}

func (n *CylinderNode) SetFirstChild(index uint32) {
	n.FirstChildOrPrimitive = index
}

func packLeaf(word uint32, leaf bool) uint32 {
	if leaf {
		return word | leafFlag
	}
	return word &^ leafFlag
}

// volume is the operation set the builder needs from a bounding volume.
type volume[V any] interface {
	comparable
	Union(V) V
	HalfArea() float32
	IsFinite() bool
}

// nodeRef is implemented by pointers to node records and translates the
// compact node storage into full bounding volume values.
type nodeRef[N any, V volume[V]] interface {
	*N
	Volume() V
	SetVolume(V)
	IsLeaf() bool
	SetLeaf(bool)
	PrimitiveCount() uint32
	SetPrimitiveCount(uint32)
	FirstChild() uint32
	SetFirstChild(uint32)
}

// Extend grows the volume of n so that it also encloses other and returns
// the new volume.
func Extend[N any, V volume[V], P nodeRef[N, V]](n P, other V) V {
	v := n.Volume().Union(other)
	n.SetVolume(v)
	return v
}

// The cost of merging two volumes: half the surface area of their union.
func mergeCost[V volume[V]](a, b V) float32 {
	return a.Union(b).HalfArea()
}

// Given a node index, returns the index of its sibling. The root has no
// sibling.
func Sibling(index int) int {
	if index%2 == 1 {
		return index + 1
	}
	return index - 1
}

// Returns true if the given node is the first (left) child of its parent.
func IsLeftSibling(index int) bool {
	return index%2 == 1
}
