package treefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/ploc/bvh"
	"github.com/achilleasa/ploc/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/klauspost/compress/zstd"
)

func buildTrees(t *testing.T) map[string]*bvh.Tree {
	rng := rand.New(rand.NewSource(42))
	const count = 200
	cylinders := make([]types.Cylinder, count)
	boxes := make([]types.Box, count)
	centers := make([]types.Vec3, count)
	global := types.EmptyBox()
	for i := range cylinders {
		p0 := types.XYZ(rng.Float32()*10, rng.Float32()*10, rng.Float32()*10)
		p1 := p0.Add(types.XYZ(rng.Float32(), rng.Float32(), rng.Float32()))
		cylinders[i] = types.CylinderFromSegment(p0, p1, 0.05)
		boxes[i] = cylinders[i].AABB()
		centers[i] = p0.Add(p1).Mul(0.5)
		global = global.ExtendPoint(centers[i])
	}

	b := bvh.NewBuilder()
	trees := make(map[string]*bvh.Tree)
	var err error
	if trees["box"], err = b.BuildBoxes(global, boxes, centers); err != nil {
		t.Fatal(err)
	}
	if trees["cylinder"], err = b.BuildCylindersInBox(global, cylinders, centers); err != nil {
		t.Fatal(err)
	}
	if trees["hybrid"], err = b.BuildHybrid(global, cylinders, centers, 2); err != nil {
		t.Fatal(err)
	}
	if trees["empty"], err = b.BuildBoxes(types.EmptyBox(), nil, nil); err != nil {
		t.Fatal(err)
	}
	return trees
}

func TestWriteAndReadFile(t *testing.T) {
	dir := t.TempDir()
	for name, tree := range buildTrees(t) {
		path := filepath.Join(dir, name+".ploc")
		if err := WriteFile(path, tree); err != nil {
			t.Fatalf("[%s] %v", name, err)
		}

		got, hdr, err := ReadFile(path)
		if err != nil {
			t.Fatalf("[%s] %v", name, err)
		}
		if diff := cmp.Diff(tree, got, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("[%s] loaded tree differs (-built +loaded):\n%s", name, diff)
		}
		if hdr.BuildID != tree.BuildID || hdr.Hybrid != tree.Hybrid || hdr.Cylinder != tree.Cylinder || hdr.NodeCount != tree.NodeCount {
			t.Fatalf("[%s] unexpected header %+v", name, hdr)
		}
		if err := bvh.Validate(got); err != nil {
			t.Fatalf("[%s] expected loaded tree to be valid; got %v", name, err)
		}
	}
}

func TestReadRejectsBadInput(t *testing.T) {
	tree := buildTrees(t)["box"]

	var valid bytes.Buffer
	if err := Write(&valid, tree); err != nil {
		t.Fatal(err)
	}
	raw := decompress(t, valid.Bytes())

	corruptHeader := func(mutate func(*header)) []byte {
		var hdr header
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &hdr); err != nil {
			t.Fatal(err)
		}
		mutate(&hdr)
		var buf bytes.Buffer
		binary.Write(&buf, binary.LittleEndian, &hdr)
		buf.Write(raw[binary.Size(hdr):])
		return compress(t, buf.Bytes())
	}

	specs := []struct {
		name   string
		data   []byte
		expErr error
	}{
		{"bad magic", corruptHeader(func(h *header) { h.Magic[0] = 'X' }), ErrBadMagic},
		{"future version", corruptHeader(func(h *header) { h.Version = Version + 1 }), ErrUnsupportedVersion},
		{"node count", corruptHeader(func(h *header) { h.NodeCount++ }), ErrCorrupt},
		{"partial node array", corruptHeader(func(h *header) { h.BoxNodes = 3 }), ErrCorrupt},
		{"missing box nodes", corruptHeader(func(h *header) { h.BoxNodes = 0 }), ErrCorrupt},
		{"cylinder flag without cylinder nodes", corruptHeader(func(h *header) { h.Flags |= flagCylinder }), ErrCorrupt},
		{"hybrid flag without cylinder flag", corruptHeader(func(h *header) { h.Flags |= flagHybrid }), ErrCorrupt},
		{"box tree with extra cylinder nodes", corruptHeader(func(h *header) { h.CylinderNodes = h.NodeCount }), ErrCorrupt},
		{"truncated", compress(t, raw[:len(raw)-10]), ErrCorrupt},
		{"short header", compress(t, raw[:8]), ErrCorrupt},
	}

	for _, s := range specs {
		_, _, err := Read(bytes.NewReader(s.data))
		if !errors.Is(err, s.expErr) {
			t.Fatalf("[%s] expected error %v; got %v", s.name, s.expErr, err)
		}
	}
}

func TestReadRejectsTreeWithoutNodeArrays(t *testing.T) {
	// A header claiming 3 nodes with no node records behind it.
	var buf bytes.Buffer
	err := Write(&buf, &bvh.Tree{PrimitiveIndices: []uint32{0, 1}, NodeCount: 3})
	if err != nil {
		t.Fatal(err)
	}

	tree, _, err := Read(&buf)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected error %v; got %v", ErrCorrupt, err)
	}
	if tree != nil {
		t.Fatal("expected no tree to be returned")
	}
}

func TestReadFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.ploc")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadFile(path); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected error %v; got %v", ErrCorrupt, err)
	}
}

func compress(t *testing.T, data []byte) []byte {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func decompress(t *testing.T, data []byte) []byte {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		t.Fatal(err)
	}
	return out
}
