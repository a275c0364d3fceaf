// Command pcalign registers point clouds and extracts clusters from them.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/seqsense/pcalign/config"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagSource = "source"
	flagTarget = "target"
	flagInput  = "input"
	flagOutput = "output"
	flagGuess  = "guess"
)

func main() {
	app := &cli.App{
		Name:            "pcalign",
		Usage:           "align and segment PCD point clouds",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load parameters from YAML `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "align",
				Usage: "estimate the rigid transformation from source to target",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagSource, Aliases: []string{"s"}, Required: true, Usage: "source PCD `FILE`"},
					&cli.StringFlag{Name: flagTarget, Aliases: []string{"t"}, Required: true, Usage: "target PCD `FILE`"},
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "write the aligned source to `FILE`"},
					&cli.Float64SliceFlag{Name: flagGuess, Usage: "initial guess as x,y,z,roll,pitch,yaw"},
				},
				Action: alignAction,
			},
			{
				Name:  "cluster",
				Usage: "label euclidean clusters",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Required: true, Usage: "input PCD `FILE`"},
					&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Required: true, Usage: "labeled PCD `FILE`"},
				},
				Action: clusterAction,
			},
			{
				Name:  "search",
				Usage: "find the neighbors of a point",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Required: true, Usage: "input PCD `FILE`"},
					&cli.Float64SliceFlag{Name: flagPoint, Aliases: []string{"p"}, Required: true, Usage: "query point as x,y,z"},
				},
				Action: searchAction,
			},
			{
				Name:   "config",
				Usage:  "print the effective configuration",
				Action: configAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool(flagDebug) {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
