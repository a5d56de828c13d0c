package cmd

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scenelab/scenelab/renderer"
	"github.com/scenelab/scenelab/scene"
	"github.com/urfave/cli"
)

// Render a still frame by accumulating a number of progressive frames.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := loadOptions(ctx)
	if err != nil {
		return err
	}

	sc, cameras, err := loadScene(ctx, opts)
	if err != nil {
		return err
	}
	serveMetrics(ctx.String("metrics-addr"))

	cameraID, err := selectCamera(ctx, cameras)
	if err != nil {
		return err
	}

	r, err := renderer.NewDefault(sc, cameras, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.CreateView(cameraID, opts.FrameW, opts.FrameH); err != nil {
		return err
	}

	frames := ctx.Int("frames")
	if frames < 1 {
		frames = 1
	}
	logger.Noticef("rendering %d frame(s) for camera %d", frames, cameraID)
	start := time.Now()
	for frame := 0; frame < frames; frame++ {
		if err = r.Render(); err != nil {
			return err
		}
		logger.Debugf("rendered frame %d in %s", frame+1, r.Stats().RenderTime)
	}
	logger.Noticef("rendered %d frame(s) in %s", frames, time.Since(start))

	// Display stats
	displayFrameStats(r.Stats())

	img, err := r.Frame(cameraID)
	if err != nil {
		return err
	}

	imgFile := ctx.String("out")
	f, err := os.Create(imgFile)
	if err != nil {
		return errors.New("could not create output file").WithTag("path", imgFile).Wrap(err)
	}
	defer f.Close()

	if err = png.Encode(f, img); err != nil {
		return errors.New("could not encode png").WithTag("path", imgFile).Wrap(err)
	}
	logger.Noticef("wrote frame to %s", imgFile)
	return nil
}

// Use opengl to render a continuously updating view of the focused camera.
func RenderInteractive(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := loadOptions(ctx)
	if err != nil {
		return err
	}

	sc, cameras, err := loadScene(ctx, opts)
	if err != nil {
		return err
	}
	serveMetrics(ctx.String("metrics-addr"))

	if ctx.IsSet("camera") {
		if err = cameras.Focus(ctx.Int("camera")); err != nil {
			return err
		}
	}

	r, err := renderer.NewInteractive(sc, cameras, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Render()
}

// Build renderer options from the optional config file and the command flags.
// Flags that are explicitly set override config file values.
func loadOptions(ctx *cli.Context) (renderer.Options, error) {
	opts := renderer.DefaultOptions()
	if path := ctx.String("config"); path != "" {
		var err error
		if opts, err = renderer.LoadOptions(path); err != nil {
			return opts, err
		}
	}

	if ctx.IsSet("width") {
		opts.FrameW = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		opts.FrameH = ctx.Int("height")
	}
	if ctx.IsSet("spp") {
		opts.SamplesPerPixel = uint32(ctx.Int("spp"))
	}
	if ctx.IsSet("exposure") {
		opts.Exposure = float32(ctx.Float64("exposure"))
	}
	if ctx.IsSet("tracers") {
		opts.Tracers = ctx.Int("tracers")
	}
	if ctx.IsSet("max-frames") {
		opts.MaxFrames = uint32(ctx.Int("max-frames"))
	}
	return opts, opts.Validate()
}

// Load the scene description passed as the first argument.
func loadScene(ctx *cli.Context, opts renderer.Options) (*scene.Scene, *scene.Cameras, error) {
	if ctx.NArg() != 1 {
		return nil, nil, errors.New("missing scene file argument")
	}

	bvhOpts, err := opts.BVHBuildOptions()
	if err != nil {
		return nil, nil, err
	}

	desc, err := scene.ReadDescription(ctx.Args().First())
	if err != nil {
		return nil, nil, err
	}

	sc, cameras := desc.Build(bvhOpts)
	logger.Infof("loaded scene with %d primitives and %d cameras", sc.Len(), cameras.Len())
	return sc, cameras, nil
}

func selectCamera(ctx *cli.Context, cameras *scene.Cameras) (int, error) {
	if ctx.IsSet("camera") {
		cameraID := ctx.Int("camera")
		if _, ok := cameras.Get(cameraID); !ok {
			return 0, errors.New("camera not found").
				WithType(scene.ErrTypeUnknownCamera).
				WithTag("camera", cameraID)
		}
		return cameraID, nil
	}

	cameraID, _, _ := cameras.Focused()
	return cameraID, nil
}

// Expose prometheus metrics on addr. An empty addr disables the endpoint.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		logger.Noticef("serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("metrics endpoint stopped: %v", err)
		}
	}()
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Camera", "Resolution", "Frame", "Tracer", "Block height", "% of frame", "Rays", "Render time"})
	for _, view := range stats.Views {
		for _, stat := range view.Tracers {
			table.Append([]string{
				fmt.Sprintf("%d", view.CameraID),
				fmt.Sprintf("%dx%d", view.Width, view.Height),
				fmt.Sprintf("%d", view.Frame),
				stat.Id,
				fmt.Sprintf("%d", stat.BlockH),
				fmt.Sprintf("%02.1f %%", stat.FramePercent),
				fmt.Sprintf("%d", stat.Rays),
				stat.RenderTime.String(),
			})
		}
	}
	table.SetFooter([]string{"", "", "", "", "", "", "TOTAL", stats.RenderTime.String()})

	table.Render()
	logger.Noticef("frame statistics (scene version %d)\n%s", stats.SceneVersion, buf.String())
}
