package main

import (
	"os"

	"github.com/achilleasa/ploc/cmd"
	"github.com/achilleasa/ploc/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "ploc"
	app.Usage = "build bounding volume hierarchies using parallel locally-ordered clustering"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set the log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build a tree over the primitives of a wavefront obj file",
			Description: `
Parse faces and polylines from a wavefront obj file (optionally zstd compressed
or fetched over http/https), cluster their bounding volumes bottom-up and
write the resulting tree to a binary tree file.

Faces become one primitive each. Every polyline segment becomes a cylinder
primitive whose radius is set by the --strand-radius flag.`,
			ArgsUsage: "scene.obj",
			Flags:     cmd.BuildFlags,
			Action:    cmd.BuildTree,
		},
		{
			Name:      "inspect",
			Usage:     "display statistics for a tree file",
			ArgsUsage: "tree.ploc",
			Flags:     cmd.InspectFlags,
			Action:    cmd.InspectTree,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("ploc").Errorf("error: %s", err.Error())
		os.Exit(1)
	}
}
