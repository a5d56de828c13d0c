package renderer

import "github.com/aukilabs/go-tooling/pkg/errors"

const (
	ErrTypeInvalidOptions = "invalid_renderer_options"
	ErrTypeNoTracers      = "no_tracers"
	ErrTypeUnknownView    = "unknown_view"
	ErrTypeFrameState     = "invalid_frame_state"
	ErrTypeDisplay        = "display_error"
)

func errNoTracers() error {
	return errors.New("renderer: no tracers attached").WithType(ErrTypeNoTracers)
}

func errUnknownView(cameraID int) error {
	return errors.New("renderer: no view for camera").
		WithType(ErrTypeUnknownView).
		WithTag("camera", cameraID)
}

func errFrameState(msg string) error {
	return errors.New("renderer: " + msg).WithType(ErrTypeFrameState)
}
