package main

import (
	"os"

	"github.com/scenelab/scenelab/cmd"
	"github.com/scenelab/scenelab/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	viewFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load renderer options from a YAML file; flags override its values",
		},
		cli.IntFlag{
			Name:  "width",
			Value: 512,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 512,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "spp",
			Value: 1,
			Usage: "samples per pixel and frame",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.IntFlag{
			Name:  "tracers",
			Value: 1,
			Usage: "number of cpu tracers sharing each frame",
		},
		cli.IntFlag{
			Name:  "camera",
			Usage: "id of the camera to render (defaults to the focused camera)",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve prometheus metrics on this address (e.g. :9090)",
		},
	}

	app := cli.NewApp()
	app.Name = "scenelab"
	app.Usage = "progressively render scenes using a BVH accelerated cpu path tracer"
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
			Usage: "log level (debug, info, notice, warning, error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "render",
			Usage:  "render scene",
			Action: nil,
			Subcommands: []cli.Command{
				{
					Name:  "frame",
					Usage: "render a still frame",
					Description: `
Accumulate a number of progressive frames for a camera and write the tone
mapped result to a PNG file.`,
					ArgsUsage: "scene.json|scene.yaml",
					Flags: append([]cli.Flag{
						cli.IntFlag{
							Name:  "frames, n",
							Value: 16,
							Usage: "number of progressive frames to accumulate",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					}, viewFlags...),
					Action: cmd.RenderFrame,
				},
				{
					Name:  "interactive",
					Usage: "render interactive view of the scene",
					Description: `
Open a window that displays the focused camera. Arrows (or WASD) move the
camera, Q/E move it down/up, dragging with the left mouse button rotates it
and the number keys switch cameras. Tab toggles the tracer overlay and Esc
quits.`,
					ArgsUsage: "scene.json|scene.yaml",
					Flags: append([]cli.Flag{
						cli.IntFlag{
							Name:  "max-frames",
							Usage: "stop accumulating after this many frames (0 = never)",
						},
					}, viewFlags...),
					Action: cmd.RenderInteractive,
				},
			},
		},
		{
			Name:  "bvh",
			Usage: "build and validate the BVH of a scene and display its statistics",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "leaf-size",
					Value: 4,
					Usage: "maximum primitives per leaf",
				},
				cli.IntFlag{
					Name:  "max-depth",
					Value: 32,
					Usage: "maximum tree depth",
				},
				cli.StringFlag{
					Name:  "strategy",
					Value: "sah",
					Usage: "split strategy (sah or median)",
				},
				cli.IntFlag{
					Name:  "bins",
					Value: 16,
					Usage: "candidate split planes per axis for the sah strategy",
				},
			},
			ArgsUsage: "scene.json|scene.yaml",
			Action:    cmd.InspectBVH,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("scenelab").Errorf("%v", err)
		os.Exit(1)
	}
}
