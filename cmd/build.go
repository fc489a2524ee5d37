package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/achilleasa/ploc/asset"
	"github.com/achilleasa/ploc/asset/reader"
	"github.com/achilleasa/ploc/bvh"
	"github.com/achilleasa/ploc/metrics"
	"github.com/achilleasa/ploc/treefile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
)

// Supported build modes.
const (
	ModeBox         = "box"
	ModeCylinder    = "cylinder"
	ModeCylinderBox = "cylinder-box"
	ModeHybrid      = "hybrid"
)

// BuildFlags are the flags accepted by the build command.
var BuildFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "mode, m",
		Value: ModeBox,
		Usage: "tree type: box, cylinder, cylinder-box (cylinder tree sorted in a box bound) or hybrid",
	},
	cli.IntFlag{
		Name:  "radius, r",
		Value: bvh.DefaultSearchRadius,
		Usage: "nearest neighbor search radius",
	},
	cli.IntFlag{
		Name:  "iteration, i",
		Value: 2,
		Usage: "number of cylinder clustering rounds before switching to boxes (hybrid mode)",
	},
	cli.IntFlag{
		Name:  "workers, w",
		Value: 0,
		Usage: "max number of worker goroutines (0 uses all available CPUs)",
	},
	cli.IntFlag{
		Name:  "threshold",
		Value: bvh.DefaultParallelThreshold,
		Usage: "rounds with at most this many active nodes run on a single goroutine",
	},
	cli.Float64Flag{
		Name:  "strand-radius",
		Value: float64(reader.DefaultOptions().StrandRadius),
		Usage: "radius of the cylinders generated for polyline segments",
	},
	cli.StringFlag{
		Name:  "out, o",
		Usage: "tree output file (defaults to the input file name with a .ploc extension)",
	},
	cli.BoolFlag{
		Name:  "validate",
		Usage: "check the tree invariants after building",
	},
	cli.BoolFlag{
		Name:  "metrics",
		Usage: "display clustering metrics after building",
	},
}

// Build a tree over the primitives of a scene file and write it to disk.
func BuildTree(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}
	sceneFile := ctx.Args().First()

	mode := ctx.String("mode")
	switch mode {
	case ModeBox, ModeCylinder, ModeCylinderBox, ModeHybrid:
	default:
		return fmt.Errorf("unsupported build mode %q", mode)
	}

	prims, err := reader.ReadPrimitives(sceneFile, reader.Options{
		StrandRadius: float32(ctx.Float64("strand-radius")),
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	builder := bvh.NewBuilder(
		bvh.WithSearchRadius(ctx.Int("radius")),
		bvh.WithWorkers(ctx.Int("workers")),
		bvh.WithParallelThreshold(ctx.Int("threshold")),
		bvh.WithRoundObserver(collector.Observe),
	)

	logger.Noticef("building %s tree over %d primitives", mode, prims.Len())
	start := time.Now()
	tree, err := build(builder, mode, prims, ctx.Int("iteration"))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	collector.ObserveBuild(mode, elapsed)
	logger.Noticef("built tree in %d ms", elapsed.Milliseconds())

	if ctx.Bool("validate") {
		if err := bvh.Validate(tree); err != nil {
			return fmt.Errorf("tree validation failed: %v", err)
		}
		logger.Notice("tree passed validation")
	}

	displayTreeStats(tree)

	if ctx.Bool("metrics") {
		var buf bytes.Buffer
		if err := metrics.WriteTable(&buf, reg); err != nil {
			return err
		}
		logger.Noticef("clustering metrics\n%s", buf.String())
	}

	out := ctx.String("out")
	if out == "" {
		out = defaultOutputFile(sceneFile)
	}
	if err := treefile.WriteFile(out, tree); err != nil {
		return err
	}
	logger.Noticef("wrote tree %s to %s", tree.BuildID, out)
	return nil
}

func build(builder *bvh.Builder, mode string, prims *reader.Primitives, iteration int) (*bvh.Tree, error) {
	switch mode {
	case ModeCylinder:
		return builder.BuildCylinders(prims.GlobalCylinder, prims.Cylinders, prims.Centers)
	case ModeCylinderBox:
		return builder.BuildCylindersInBox(prims.GlobalBox, prims.Cylinders, prims.Centers)
	case ModeHybrid:
		return builder.BuildHybrid(prims.GlobalBox, prims.Cylinders, prims.Centers, iteration)
	}
	return builder.BuildBoxes(prims.GlobalBox, prims.Boxes, prims.Centers)
}

// Derive the tree file name from a scene file or URL.
func defaultOutputFile(sceneFile string) string {
	name := strings.TrimSuffix(sceneFile, asset.CompressedExt)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if strings.Contains(sceneFile, "://") {
		name = filepath.Base(name)
	}
	return name + ".ploc"
}
