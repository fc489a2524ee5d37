package bvh

import "github.com/achilleasa/ploc/types"

// Stats summarizes the shape and quality of a tree. For hybrid trees the
// counts cover the box tree down to the box leaves and the cylinder
// subtrees those leaves link to.
type Stats struct {
	Primitives    int
	Nodes         int
	Leaves        int
	InternalNodes int
	MaxDepth      int

	// Hybrid trees only: internal cylinder nodes referenced by box leaves.
	CylinderSubtrees int

	RootHalfArea float64

	// Sum of internal node half areas relative to the root half area.
	SAHCost float64
}

// ComputeStats walks a tree and collects its statistics. The result is only
// meaningful for trees that pass Validate; out of range links are skipped.
func ComputeStats(t *Tree) Stats {
	s := Stats{Primitives: t.PrimitiveCount(), Nodes: t.NodeCount}
	if t.Empty() {
		return s
	}
	if (len(t.Nodes) == 0 && (t.Hybrid || !t.Cylinder)) || (len(t.CylinderNodes) == 0 && t.Cylinder) {
		return s
	}

	var internalArea float64
	switch {
	case t.Hybrid:
		s.RootHalfArea = float64(t.Nodes[0].Volume().HalfArea())
		walk[BoxNode, types.Box](t.Nodes, 0, 0, &s, &internalArea, func(n *BoxNode, depth int) {
			if int(n.Origin) >= len(t.CylinderNodes) {
				s.Leaves++
				return
			}
			if !t.CylinderNodes[n.Origin].IsLeaf() {
				s.CylinderSubtrees++
			}
			walk[CylinderNode, types.Cylinder](t.CylinderNodes, int(n.Origin), depth, &s, &internalArea, nil)
		})
	case t.Cylinder:
		s.RootHalfArea = float64(t.CylinderNodes[0].Volume().HalfArea())
		walk[CylinderNode, types.Cylinder](t.CylinderNodes, 0, 0, &s, &internalArea, nil)
	default:
		s.RootHalfArea = float64(t.Nodes[0].Volume().HalfArea())
		walk[BoxNode, types.Box](t.Nodes, 0, 0, &s, &internalArea, nil)
	}

	if s.RootHalfArea > 0 {
		s.SAHCost = internalArea / s.RootHalfArea
	}
	return s
}

type stackEntry struct {
	index int
	depth int
}

func walk[N any, V volume[V], P nodeRef[N, V]](nodes []N, root, rootDepth int, s *Stats, internalArea *float64, leafFn func(P, int)) {
	if root >= len(nodes) {
		return
	}

	stack := []stackEntry{{root, rootDepth}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		s.MaxDepth = max(s.MaxDepth, e.depth)
		n := P(&nodes[e.index])
		if n.IsLeaf() {
			if leafFn != nil {
				leafFn(n, e.depth)
				continue
			}
			s.Leaves++
			continue
		}

		s.InternalNodes++
		*internalArea += float64(n.Volume().HalfArea())
		// Children are always stored after their parent; links that break
		// this are skipped so the walk terminates on any node array.
		first := int(n.FirstChild())
		if first <= e.index || first+1 >= len(nodes) {
			continue
		}
		stack = append(stack, stackEntry{first + 1, e.depth + 1}, stackEntry{first, e.depth + 1})
	}
}
