package renderer

import (
	"os"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/bvh"
	"github.com/scenelab/scenelab/tracer"
	"gopkg.in/yaml.v3"
)

// BVH build settings.
type BVHOptions struct {
	LeafSize int    `yaml:"leaf_size"`
	MaxDepth int    `yaml:"max_depth"`
	Strategy string `yaml:"strategy"`
	Bins     int    `yaml:"bins"`
}

type Options struct {
	// Frame dims. Non-positive values select the default view resolution.
	FrameW int `yaml:"width"`
	FrameH int `yaml:"height"`

	// Number of primary rays per pixel and frame.
	SamplesPerPixel uint32 `yaml:"spp"`

	// Exposure for tonemapping.
	Exposure float32 `yaml:"exposure"`

	// Number of cpu tracers sharing each frame and the algorithm that
	// splits frames between them ("perfect" or "naive").
	Tracers   int    `yaml:"tracers"`
	Scheduler string `yaml:"scheduler"`

	// Interactive views stop tracing once they accumulate this many frames.
	// Zero means unlimited.
	MaxFrames uint32 `yaml:"max_frames"`

	// Upper bound for the pixels held by accumulation buffers. Zero means
	// unlimited.
	MaxBufferPixels int `yaml:"max_buffer_pixels"`

	BVH BVHOptions `yaml:"bvh"`
}

// DefaultOptions returns the options used when neither a config file nor
// flags override them.
func DefaultOptions() Options {
	bvhOpts := bvh.DefaultOptions()
	return Options{
		FrameW:          512,
		FrameH:          512,
		SamplesPerPixel: 1,
		Exposure:        1,
		Tracers:         1,
		Scheduler:       "perfect",
		BVH: BVHOptions{
			LeafSize: bvhOpts.MaxLeafItems,
			MaxDepth: bvhOpts.MaxDepth,
			Strategy: "sah",
			Bins:     bvhOpts.Bins,
		},
	}
}

// LoadOptions reads options from a YAML file on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.New("could not read renderer options").
			WithType(ErrTypeInvalidOptions).
			WithTag("path", path).
			Wrap(err)
	}

	if err = yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.New("could not parse renderer options").
			WithType(ErrTypeInvalidOptions).
			WithTag("path", path).
			Wrap(err)
	}

	return opts, opts.Validate()
}

// Validate checks for option values that cannot be rendered.
func (o Options) Validate() error {
	if o.Tracers < 1 {
		return errors.New("at least one tracer is required").
			WithType(ErrTypeInvalidOptions).
			WithTag("tracers", o.Tracers)
	}
	if o.Exposure <= 0 {
		return errors.New("exposure must be positive").
			WithType(ErrTypeInvalidOptions).
			WithTag("exposure", o.Exposure)
	}
	if _, err := o.BlockScheduler(); err != nil {
		return err
	}
	if _, err := o.BVHBuildOptions(); err != nil {
		return err
	}
	return nil
}

// BVHBuildOptions converts the BVH settings to builder options.
func (o Options) BVHBuildOptions() (bvh.Options, error) {
	strategy, err := bvh.StrategyByName(o.BVH.Strategy)
	if err != nil {
		return bvh.Options{}, errors.New("invalid bvh options").
			WithType(ErrTypeInvalidOptions).
			Wrap(err)
	}

	opts := bvh.DefaultOptions()
	opts.Strategy = strategy
	if o.BVH.LeafSize > 0 {
		opts.MaxLeafItems = o.BVH.LeafSize
	}
	if o.BVH.MaxDepth > 0 {
		opts.MaxDepth = o.BVH.MaxDepth
	}
	if o.BVH.Bins > 0 {
		opts.Bins = o.BVH.Bins
	}
	return opts, nil
}

// BlockScheduler returns the scheduler selected by name.
func (o Options) BlockScheduler() (tracer.BlockScheduler, error) {
	switch strings.ToLower(o.Scheduler) {
	case "", "perfect":
		return tracer.PerfectScheduler(), nil
	case "naive":
		return tracer.NaiveScheduler(), nil
	}
	return nil, errors.New("unknown block scheduler").
		WithType(ErrTypeInvalidOptions).
		WithTag("scheduler", o.Scheduler)
}
