package bvh

import "github.com/google/uuid"

// Tree is the output of a build call.
//
// Box builds populate Nodes and cylinder builds populate CylinderNodes.
// Hybrid builds populate both: Nodes holds the box tree on top of the
// partially clustered cylinder tree and every box leaf links to its cylinder
// node through Origin.
//
// In both arrays the root is stored at index 0 and the children of an
// internal node are stored next to each other.
type Tree struct {
	Nodes         []BoxNode
	CylinderNodes []CylinderNode

	// Maps leaf primitive slots to input primitive indices.
	PrimitiveIndices []uint32

	Cylinder bool
	Hybrid   bool

	// 2P-1 for P > 0 primitives, 0 otherwise.
	NodeCount int

	BuildID uuid.UUID
}

// Returns the number of primitives indexed by the tree.
func (t *Tree) PrimitiveCount() int {
	return len(t.PrimitiveIndices)
}

// Returns true if the tree contains no nodes.
func (t *Tree) Empty() bool {
	return t.NodeCount == 0
}

// Returns the primitive indices covered by a leaf node.
func (t *Tree) LeafPrimitives(first, count uint32) []uint32 {
	return t.PrimitiveIndices[first : first+count]
}
