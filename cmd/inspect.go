package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/achilleasa/ploc/bvh"
	"github.com/achilleasa/ploc/treefile"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// InspectFlags are the flags accepted by the inspect command.
var InspectFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "validate",
		Usage: "check the tree invariants",
	},
}

// Load a tree file and display its statistics.
func InspectTree(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing tree file argument")
	}

	tree, hdr, err := treefile.ReadFile(ctx.Args().First())
	if err != nil {
		return err
	}
	logger.Noticef("loaded tree %s (format version %d)", hdr.BuildID, hdr.Version)

	if ctx.Bool("validate") {
		if err := bvh.Validate(tree); err != nil {
			return fmt.Errorf("tree validation failed: %v", err)
		}
		logger.Notice("tree passed validation")
	}

	displayTreeStats(tree)
	return nil
}

func treeKind(tree *bvh.Tree) string {
	switch {
	case tree.Hybrid:
		return "hybrid"
	case tree.Cylinder:
		return "cylinder"
	}
	return "box"
}

func displayTreeStats(tree *bvh.Tree) {
	stats := bvh.ComputeStats(tree)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Type", treeKind(tree)})
	table.Append([]string{"Primitives", fmt.Sprintf("%d", stats.Primitives)})
	table.Append([]string{"Nodes", fmt.Sprintf("%d", stats.Nodes)})
	table.Append([]string{"Leaves", fmt.Sprintf("%d", stats.Leaves)})
	table.Append([]string{"Internal nodes", fmt.Sprintf("%d", stats.InternalNodes)})
	if tree.Hybrid {
		table.Append([]string{"Cylinder subtrees", fmt.Sprintf("%d", stats.CylinderSubtrees)})
	}
	table.Append([]string{"Max depth", fmt.Sprintf("%d", stats.MaxDepth)})
	table.Append([]string{"Root half area", fmt.Sprintf("%.4g", stats.RootHalfArea)})
	table.Append([]string{"SAH cost", fmt.Sprintf("%.4f", stats.SAHCost)})
	table.Render()

	logger.Noticef("tree statistics\n%s", buf.String())
}
