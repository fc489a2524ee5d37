package bvh

import "fmt"

// Phase identifies the node type processed by a clustering round.
type Phase uint8

const (
	PhaseBox Phase = iota
	PhaseCylinder
)

func (p Phase) String() string {
	switch p {
	case PhaseBox:
		return "box"
	case PhaseCylinder:
		return "cylinder"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// RoundStats describes the state of a build after a clustering round.
//
// The node slices alias the builder arena and are only valid for the
// duration of the OnRound call. Depending on the phase only one of them is
// populated.
type RoundStats struct {
	Phase Phase

	// Zero-based round index. Hybrid builds keep counting across phases.
	Round int

	// The active window after the round.
	Begin, End int

	// Number of pairs merged by the round.
	Merged int

	// Sum of the half areas of the nodes in the active window.
	ActiveHalfArea float64

	BoxNodes      []BoxNode
	CylinderNodes []CylinderNode
}

// Active returns the number of nodes in the active window.
func (s RoundStats) Active() int {
	return s.End - s.Begin
}
