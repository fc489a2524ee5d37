// Package treefile stores built trees in a compact binary format.
//
// A tree file is a zstd stream holding little-endian records: a fixed size
// header followed by the box nodes, the cylinder nodes and the primitive
// index permutation. Node records are stored exactly as they are laid out in
// memory by the bvh package.
package treefile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/achilleasa/ploc/bvh"
	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Version is the file format version written by this package.
const Version uint16 = 1

var magic = [4]byte{'P', 'L', 'O', 'C'}

const (
	flagCylinder uint16 = 1 << iota
	flagHybrid
)

var (
	ErrBadMagic           = errors.New("treefile: not a tree file")
	ErrUnsupportedVersion = errors.New("treefile: unsupported format version")
	ErrCorrupt            = errors.New("treefile: corrupt tree file")
)

type header struct {
	Magic          [4]byte
	Version        uint16
	Flags          uint16
	BuildID        [16]byte
	NodeCount      uint32
	PrimitiveCount uint32
	BoxNodes       uint32
	CylinderNodes  uint32
}

// Header describes a tree file.
type Header struct {
	Version        uint16
	BuildID        uuid.UUID
	Cylinder       bool
	Hybrid         bool
	NodeCount      int
	PrimitiveCount int
}

// Write a tree to w.
func Write(w io.Writer, tree *bvh.Tree) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("treefile: failed to create zstd writer: %v", err)
	}

	hdr := header{
		Magic:          magic,
		Version:        Version,
		BuildID:        tree.BuildID,
		NodeCount:      uint32(tree.NodeCount),
		PrimitiveCount: uint32(len(tree.PrimitiveIndices)),
		BoxNodes:       uint32(len(tree.Nodes)),
		CylinderNodes:  uint32(len(tree.CylinderNodes)),
	}
	if tree.Cylinder {
		hdr.Flags |= flagCylinder
	}
	if tree.Hybrid {
		hdr.Flags |= flagHybrid
	}

	for _, record := range []interface{}{&hdr, tree.Nodes, tree.CylinderNodes, tree.PrimitiveIndices} {
		if err := binary.Write(enc, binary.LittleEndian, record); err != nil {
			enc.Close()
			return fmt.Errorf("treefile: write failed: %v", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("treefile: failed to close encoder: %v", err)
	}
	return nil
}

// Read a tree from r.
func Read(r io.Reader) (*bvh.Tree, Header, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, Header{}, fmt.Errorf("treefile: failed to create zstd reader: %v", err)
	}
	defer dec.Close()

	var hdr header
	if err := binary.Read(dec, binary.LittleEndian, &hdr); err != nil {
		return nil, Header{}, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if hdr.Magic != magic {
		return nil, Header{}, ErrBadMagic
	}
	if hdr.Version != Version {
		return nil, Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}
	if err := checkCounts(&hdr); err != nil {
		return nil, Header{}, err
	}

	info := Header{
		Version:        hdr.Version,
		BuildID:        uuid.UUID(hdr.BuildID),
		Cylinder:       hdr.Flags&flagCylinder != 0,
		Hybrid:         hdr.Flags&flagHybrid != 0,
		NodeCount:      int(hdr.NodeCount),
		PrimitiveCount: int(hdr.PrimitiveCount),
	}
	tree := &bvh.Tree{
		Nodes:            make([]bvh.BoxNode, hdr.BoxNodes),
		CylinderNodes:    make([]bvh.CylinderNode, hdr.CylinderNodes),
		PrimitiveIndices: make([]uint32, hdr.PrimitiveCount),
		Cylinder:         info.Cylinder,
		Hybrid:           info.Hybrid,
		NodeCount:        info.NodeCount,
		BuildID:          info.BuildID,
	}

	for _, record := range []interface{}{tree.Nodes, tree.CylinderNodes, tree.PrimitiveIndices} {
		if err := binary.Read(dec, binary.LittleEndian, record); err != nil {
			return nil, Header{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return tree, info, nil
}

// Reject headers whose counts do not describe a tree. This also bounds the
// allocations performed by Read.
func checkCounts(hdr *header) error {
	if int64(hdr.PrimitiveCount) > int64(bvh.MaxPrimitiveCount) {
		return fmt.Errorf("%w: %d primitives", ErrCorrupt, hdr.PrimitiveCount)
	}

	expNodes := uint32(0)
	if hdr.PrimitiveCount > 0 {
		expNodes = 2*hdr.PrimitiveCount - 1
	}
	if hdr.NodeCount != expNodes {
		return fmt.Errorf("%w: %d nodes for %d primitives", ErrCorrupt, hdr.NodeCount, hdr.PrimitiveCount)
	}

	cylinder := hdr.Flags&flagCylinder != 0
	hybrid := hdr.Flags&flagHybrid != 0
	if hybrid && !cylinder {
		return fmt.Errorf("%w: hybrid tree without cylinder nodes", ErrCorrupt)
	}

	// Box and hybrid trees store box nodes; cylinder and hybrid trees store
	// cylinder nodes.
	var expBoxNodes, expCylinderNodes uint32
	if !cylinder || hybrid {
		expBoxNodes = hdr.NodeCount
	}
	if cylinder {
		expCylinderNodes = hdr.NodeCount
	}
	if hdr.BoxNodes != expBoxNodes {
		return fmt.Errorf("%w: box node array holds %d nodes; expected %d", ErrCorrupt, hdr.BoxNodes, expBoxNodes)
	}
	if hdr.CylinderNodes != expCylinderNodes {
		return fmt.Errorf("%w: cylinder node array holds %d nodes; expected %d", ErrCorrupt, hdr.CylinderNodes, expCylinderNodes)
	}
	return nil
}

// Write a tree to a file.
func WriteFile(path string, tree *bvh.Tree) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("treefile: failed to create file: %v", err)
	}
	defer file.Close()

	bufWriter := bufio.NewWriterSize(file, 1024*1024)
	if err := Write(bufWriter, tree); err != nil {
		return err
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("treefile: failed to flush buffer: %v", err)
	}
	return file.Close()
}

// Read a tree from a memory mapped file.
func ReadFile(path string) (*bvh.Tree, Header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("treefile: failed to open file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, Header{}, fmt.Errorf("treefile: failed to stat file: %v", err)
	}
	if info.Size() == 0 {
		return nil, Header{}, fmt.Errorf("%w: empty file", ErrCorrupt)
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, Header{}, fmt.Errorf("treefile: failed to map file: %v", err)
	}
	defer data.Unmap()

	return Read(bytes.NewReader(data))
}
