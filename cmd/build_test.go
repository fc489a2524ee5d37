package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/ploc/bvh"
	"github.com/achilleasa/ploc/treefile"
	"github.com/urfave/cli"
)

func runApp(args ...string) error {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "v"},
		cli.BoolFlag{Name: "vv"},
		cli.StringFlag{Name: "log-level"},
	}
	app.Commands = []cli.Command{
		{Name: "build", Flags: BuildFlags, Action: BuildTree},
		{Name: "inspect", Flags: InspectFlags, Action: InspectTree},
	}
	return app.Run(append([]string{"ploc"}, args...))
}

// Write a scene with a grid of hair-like polylines and a few faces.
func writeScene(t *testing.T) string {
	var sb strings.Builder
	for x := 0; x < 8; x++ {
		for z := 0; z < 8; z++ {
			for y := 0; y < 4; y++ {
				fmt.Fprintf(&sb, "v %d %d %d\n", x, y, z)
			}
			sb.WriteString("l -4 -3 -2 -1\n")
		}
	}
	sb.WriteString("v 0 0 -1\nv 1 0 -1\nv 1 1 -1\nf -3 -2 -1\n")

	path := filepath.Join(t.TempDir(), "strands.obj")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildAndInspect(t *testing.T) {
	scene := writeScene(t)

	for _, mode := range []string{ModeBox, ModeCylinder, ModeCylinderBox, ModeHybrid} {
		out := filepath.Join(filepath.Dir(scene), mode+".ploc")
		err := runApp("--log-level", "warning", "build", "--mode", mode, "--radius", "4", "--workers", "3", "--threshold", "8", "--validate", "--metrics", "-o", out, scene)
		if err != nil {
			t.Fatalf("[%s] build failed: %v", mode, err)
		}

		tree, hdr, err := treefile.ReadFile(out)
		if err != nil {
			t.Fatalf("[%s] %v", mode, err)
		}
		// 64 polylines with 3 segments each and a single face
		if exp := 64*3 + 1; hdr.PrimitiveCount != exp || tree.NodeCount != 2*exp-1 {
			t.Fatalf("[%s] expected %d primitives; got %d (%d nodes)", mode, exp, hdr.PrimitiveCount, tree.NodeCount)
		}
		if hdr.Hybrid != (mode == ModeHybrid) {
			t.Fatalf("[%s] unexpected hybrid flag %t", mode, hdr.Hybrid)
		}
		if hdr.Cylinder != (mode != ModeBox) {
			t.Fatalf("[%s] unexpected cylinder flag %t", mode, hdr.Cylinder)
		}

		if err := runApp("--log-level", "warning", "inspect", "--validate", out); err != nil {
			t.Fatalf("[%s] inspect failed: %v", mode, err)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	scene := writeScene(t)

	specs := []struct {
		args   []string
		expErr string
	}{
		{[]string{"build"}, "missing scene file argument"},
		{[]string{"build", "--mode", "sphere", scene}, `unsupported build mode "sphere"`},
		{[]string{"build", "--radius", "0", scene}, "search radius must be at least 1"},
		{[]string{"--log-level", "loud", "build", scene}, `unknown level "loud"`},
		{[]string{"inspect"}, "missing tree file argument"},
	}

	for index, s := range specs {
		err := runApp(s.args...)
		if err == nil || !strings.Contains(err.Error(), s.expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", index, s.expErr, err)
		}
	}
}

func TestInspectMalformedTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.ploc")
	if err := treefile.WriteFile(path, &bvh.Tree{PrimitiveIndices: []uint32{0, 1}, NodeCount: 3}); err != nil {
		t.Fatal(err)
	}

	err := runApp("--log-level", "warning", "inspect", path)
	if err == nil || !strings.Contains(err.Error(), "corrupt tree file") {
		t.Fatalf("expected a corrupt tree file error; got %v", err)
	}
}

func TestDefaultOutputFile(t *testing.T) {
	specs := []struct {
		in, exp string
	}{
		{"scenes/hair.obj", "scenes/hair.ploc"},
		{"scenes/hair.obj.zst", "scenes/hair.ploc"},
		{"https://example.com/assets/hair.obj", "hair.ploc"},
	}

	for _, s := range specs {
		if got := defaultOutputFile(s.in); got != s.exp {
			t.Fatalf("expected output file for %q to be %q; got %q", s.in, s.exp, got)
		}
	}
}
