// Package cli contains the pointwalk command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	flagDataset     = "dataset"
	flagPerspective = "perspective"
	flagFrames      = "frames"
	flagFPS         = "fps"
	flagDuration    = "duration"
	flagTurn        = "turn"
	flagCollect     = "collect"
	flagSeed        = "seed"
	flagExport      = "export"
	flagBinary      = "binary"
	flagWalk        = "walk"
	flagHistogram   = "histogram"
)

var datasetFlag = &cli.StringFlag{
	Name:    flagDataset,
	Aliases: []string{"d"},
	Usage:   "dataset name from the config, or a point cloud `FILE`",
}

var perspectiveFlag = &cli.StringFlag{
	Name:    flagPerspective,
	Aliases: []string{"p"},
	Usage:   "viewpoint to use: human, bird or mouse",
}

var app = &cli.App{
	Name:            "pointwalk",
	Usage:           "walk through point cloud surveys",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "stats",
			Usage:     "print the bounds and height statistics of datasets",
			ArgsUsage: "[dataset...]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  flagHistogram,
					Usage: "also plot a height histogram with this many `BINS`",
				},
			},
			Action: StatsAction,
		},
		{
			Name:   "perspectives",
			Usage:  "list the viewpoint profiles",
			Action: PerspectivesAction,
		},
		{
			Name:  "links",
			Usage: "list the observation records linked to points of a dataset",
			Flags: []cli.Flag{
				datasetFlag,
				&cli.Int64Flag{
					Name:  flagSeed,
					Usage: "seed used to pick linked points",
				},
			},
			Action: LinksAction,
		},
		{
			Name:  "simulate",
			Usage: "walk through a dataset for a number of frames and report what happened",
			Flags: []cli.Flag{
				datasetFlag,
				perspectiveFlag,
				&cli.IntFlag{
					Name:  flagFrames,
					Value: 300,
					Usage: "number of frames to run",
				},
				&cli.Float64Flag{
					Name:  flagTurn,
					Usage: "horizontal mouse movement per frame in pixels",
				},
				&cli.BoolFlag{
					Name:  flagWalk,
					Value: true,
					Usage: "hold the forward key every frame",
				},
				&cli.BoolFlag{
					Name:  flagCollect,
					Usage: "try to collect cheese every frame",
				},
				&cli.Int64Flag{
					Name:  flagSeed,
					Usage: "seed for links and agents",
				},
				&cli.PathFlag{
					Name:  flagExport,
					Usage: "write the displaced point cloud to a .pcd or .las `FILE`",
				},
				&cli.BoolFlag{
					Name:  flagBinary,
					Usage: "write binary instead of ascii PCD",
				},
			},
			Action: SimulateAction,
		},
		{
			Name:  "watch",
			Usage: "run the frame loop in real time and reload the dataset whenever its file changes",
			Flags: []cli.Flag{
				datasetFlag,
				perspectiveFlag,
				&cli.IntFlag{
					Name:  flagFPS,
					Usage: "frames per second, defaults to the configured rate",
				},
				&cli.DurationFlag{
					Name:  flagDuration,
					Usage: "stop after this long, zero runs until interrupted",
				},
				&cli.Float64Flag{
					Name:  flagTurn,
					Usage: "horizontal mouse movement per frame in pixels",
				},
				&cli.BoolFlag{
					Name:  flagWalk,
					Value: true,
					Usage: "hold the forward key every frame",
				},
			},
			Action: WatchAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
