package bvh

import (
	"errors"
	"fmt"

	"github.com/achilleasa/ploc/types"
	"go.uber.org/multierr"
)

// Validate checks the structural invariants of a tree and returns an error
// that combines every violation found:
//   - a non-empty tree has 2P-1 nodes rooted at index 0;
//   - the children of every internal node occupy adjacent slots, the first
//     of them at an odd index, and are stored after their parent;
//   - every volume is finite and every internal volume is exactly the union
//     of its children volumes;
//   - every node is reachable exactly once and every primitive slot is
//     covered by exactly one leaf;
//   - for hybrid trees, every box leaf links to a cylinder node whose AABB
//     matches the leaf box.
func Validate(t *Tree) error {
	if t == nil {
		return errors.New("bvh: nil tree")
	}

	c := &checker{slots: make([]uint8, len(t.PrimitiveIndices))}
	c.checkPermutation(t.PrimitiveIndices)

	if t.Empty() {
		if len(t.Nodes) != 0 || len(t.CylinderNodes) != 0 || len(t.PrimitiveIndices) != 0 {
			c.failf("empty tree holds %d box nodes, %d cylinder nodes and %d primitives", len(t.Nodes), len(t.CylinderNodes), len(t.PrimitiveIndices))
		}
		return c.errs
	}
	if exp := 2*len(t.PrimitiveIndices) - 1; t.NodeCount != exp {
		c.failf("expected %d nodes for %d primitives; got %d", exp, len(t.PrimitiveIndices), t.NodeCount)
	}

	switch {
	case t.Hybrid:
		cylVisited := make([]bool, len(t.CylinderNodes))
		if len(t.CylinderNodes) != t.NodeCount {
			c.failf("expected %d cylinder nodes; got %d", t.NodeCount, len(t.CylinderNodes))
			break
		}
		checkTree[BoxNode, types.Box](c, "box", t.Nodes, t.NodeCount, 0, nil, func(index int, n *BoxNode) {
			origin := int(n.Origin)
			if origin >= len(t.CylinderNodes) {
				c.failf("box leaf %d links to cylinder node %d which is out of range", index, origin)
				return
			}
			if exp := t.CylinderNodes[origin].Volume().AABB(); n.Volume() != exp {
				c.failf("box leaf %d does not match the AABB of cylinder node %d", index, origin)
			}
			checkTree[CylinderNode, types.Cylinder](c, "cylinder", t.CylinderNodes, t.NodeCount, origin, cylVisited, nil)
		})
	case t.Cylinder:
		visited := checkTree[CylinderNode, types.Cylinder](c, "cylinder", t.CylinderNodes, t.NodeCount, 0, nil, nil)
		c.checkAllVisited("cylinder", visited)
	default:
		visited := checkTree[BoxNode, types.Box](c, "box", t.Nodes, t.NodeCount, 0, nil, nil)
		c.checkAllVisited("box", visited)
	}

	for slot, refs := range c.slots {
		if refs != 1 {
			c.failf("primitive slot %d is covered by %d leaves", slot, refs)
		}
	}
	return c.errs
}

type checker struct {
	errs  error
	slots []uint8
}

func (c *checker) failf(format string, args ...interface{}) {
	c.errs = multierr.Append(c.errs, fmt.Errorf(format, args...))
}

func (c *checker) checkPermutation(indices []uint32) {
	seen := make([]bool, len(indices))
	for slot, index := range indices {
		if int(index) >= len(indices) {
			c.failf("primitive slot %d maps to out of range primitive %d", slot, index)
			continue
		}
		if seen[index] {
			c.failf("primitive %d is mapped by more than one slot", index)
		}
		seen[index] = true
	}
}

func (c *checker) markSlots(kind string, index int, first, count uint32) {
	if count == 0 || int(first)+int(count) > len(c.slots) {
		c.failf("%s leaf %d covers invalid primitive range [%d, %d)", kind, index, first, uint64(first)+uint64(count))
		return
	}
	for slot := first; slot < first+count; slot++ {
		if c.slots[slot] < 255 {
			c.slots[slot]++
		}
	}
}

func (c *checker) checkAllVisited(kind string, visited []bool) {
	unreachable := 0
	for _, v := range visited {
		if !v {
			unreachable++
		}
	}
	if unreachable != 0 {
		c.failf("%d %s nodes are not reachable from the root", unreachable, kind)
	}
}

// Walk the subtree rooted at root and check its structure. Leaves are passed
// to leafFn if set, otherwise their primitive ranges are recorded.
func checkTree[N any, V volume[V], P nodeRef[N, V]](c *checker, kind string, nodes []N, nodeCount, root int, visited []bool, leafFn func(int, P)) []bool {
	if len(nodes) != nodeCount {
		c.failf("expected %d %s nodes; got %d", nodeCount, kind, len(nodes))
		return visited
	}
	if visited == nil {
		visited = make([]bool, len(nodes))
	}
	if root >= len(nodes) {
		c.failf("%s root %d is out of range", kind, root)
		return visited
	}

	stack := []int{root}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[index] {
			c.failf("%s node %d is reachable more than once", kind, index)
			continue
		}
		visited[index] = true

		n := P(&nodes[index])
		if !n.Volume().IsFinite() {
			c.failf("%s node %d has a non-finite volume", kind, index)
		}
		if n.IsLeaf() {
			if leafFn != nil {
				leafFn(index, n)
			} else {
				c.markSlots(kind, index, n.FirstChild(), n.PrimitiveCount())
			}
			continue
		}

		first := int(n.FirstChild())
		if first <= index || first+1 >= len(nodes) {
			c.failf("%s node %d has out of range children [%d, %d]", kind, index, first, first+1)
			continue
		}
		if !IsLeftSibling(first) {
			c.failf("%s node %d stores its first child at the right sibling slot %d", kind, index, first)
		}
		if exp := P(&nodes[first]).Volume().Union(P(&nodes[first+1]).Volume()); n.Volume() != exp {
			c.failf("%s node %d volume is not the union of its children", kind, index)
		}
		stack = append(stack, first+1, first)
	}
	return visited
}
