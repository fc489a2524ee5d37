package reader

import (
	"fmt"
	"path/filepath"

	"github.com/achilleasa/ploc/asset"
	"github.com/achilleasa/ploc/types"
)

// Options control how scene geometry is converted to primitives.
type Options struct {
	// Radius of the cylinders generated for polyline segments.
	StrandRadius float32
}

// DefaultOptions returns the options used when none are specified.
func DefaultOptions() Options {
	return Options{StrandRadius: 0.01}
}

// Primitives holds the bounding volumes of every parsed primitive. All
// slices are indexed by primitive.
type Primitives struct {
	Boxes     []types.Box
	Cylinders []types.Cylinder
	Centers   []types.Vec3

	// Bounds enclosing every primitive center.
	GlobalBox      types.Box
	GlobalCylinder types.Cylinder

	// Number of primitives generated from faces and from polyline segments.
	Faces    int
	Segments int
}

// Returns the number of primitives.
func (p *Primitives) Len() int {
	return len(p.Centers)
}

func (p *Primitives) add(box types.Box, cylinder types.Cylinder, center types.Vec3) {
	p.Boxes = append(p.Boxes, box)
	p.Cylinders = append(p.Cylinders, cylinder)
	p.Centers = append(p.Centers, center)
}

// Compute the global bounds. The global cylinder is fitted around the
// corners of the global box.
func (p *Primitives) computeBounds() {
	p.GlobalBox = types.EmptyBox()
	if len(p.Centers) == 0 {
		return
	}
	p.GlobalBox = types.BoxFromPoints(p.Centers...)

	lo, hi := p.GlobalBox.Min, p.GlobalBox.Max
	corners := make([]types.Vec3, 0, 8)
	for _, x := range [2]float32{lo[0], hi[0]} {
		for _, y := range [2]float32{lo[1], hi[1]} {
			for _, z := range [2]float32{lo[2], hi[2]} {
				corners = append(corners, types.XYZ(x, y, z))
			}
		}
	}
	p.GlobalCylinder = types.CylinderFromPoints(corners...)
}

// The Reader interface is implemented by all primitive readers.
type Reader interface {
	// Read primitives from a resource.
	Read(*asset.Resource) (*Primitives, error)
}

// Read primitives from a local file or http/https URL. Files ending in
// ".zst" are decompressed first.
func ReadPrimitives(pathToFile string, opts Options) (*Primitives, error) {
	res, err := asset.NewResource(pathToFile, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// Select reader based on file extension
	var reader Reader
	switch filepath.Ext(res.Name()) {
	case ".obj":
		reader = newWavefrontReader(opts)
	default:
		return nil, fmt.Errorf("readPrimitives: unsupported file format %q", filepath.Ext(res.Name()))
	}
	return reader.Read(res)
}
