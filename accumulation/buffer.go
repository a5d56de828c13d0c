package accumulation

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/scenelab/scenelab/types"
)

const (
	// Error types reported by this package.
	ErrTypeResourceExhausted = "resource_exhausted"
	ErrTypeInvalidResolution = "invalid_resolution"
	ErrTypeSampleMismatch    = "sample_size_mismatch"
)

// Buffer is a row-major radiance image.
type Buffer struct {
	Width  int
	Height int
	Pix    []types.Vec3
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]types.Vec3, width*height),
	}
}

// Clear resets every pixel to zero.
func (b *Buffer) Clear() {
	clear(b.Pix)
}

func (b *Buffer) At(x, y int) types.Vec3 {
	return b.Pix[y*b.Width+x]
}

func (b *Buffer) Set(x, y int, v types.Vec3) {
	b.Pix[y*b.Width+x] = v
}

// SameSize returns true if both buffers have identical dimensions.
func (b *Buffer) SameSize(other *Buffer) bool {
	return b.Width == other.Width && b.Height == other.Height
}

// The Allocator interface is implemented by buffer providers. Allocate may
// fail when the backing store cannot hold another buffer; such errors should
// carry the ErrTypeResourceExhausted type.
type Allocator interface {
	Allocate(width, height int) (*Buffer, error)
	Release(*Buffer)
}

// HeapAllocator allocates buffers on the Go heap within an optional pixel
// budget.
type HeapAllocator struct {
	// Maximum number of live pixels across all buffers. Zero means unlimited.
	MaxPixels int

	live int
}

// Allocate a zeroed buffer.
func (a *HeapAllocator) Allocate(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid buffer resolution").
			WithType(ErrTypeInvalidResolution).
			WithTag("width", width).
			WithTag("height", height)
	}

	pixels := width * height
	if a.MaxPixels > 0 && a.live+pixels > a.MaxPixels {
		return nil, errors.New("buffer pixel budget exhausted").
			WithType(ErrTypeResourceExhausted).
			WithTag("width", width).
			WithTag("height", height).
			WithTag("live", a.live).
			WithTag("budget", a.MaxPixels)
	}

	a.live += pixels
	return NewBuffer(width, height), nil
}

// Release returns the buffer's pixels to the budget.
func (a *HeapAllocator) Release(b *Buffer) {
	if b == nil {
		return
	}
	a.live -= b.Width * b.Height
	b.Pix = nil
}

// Live returns the number of pixels currently allocated.
func (a *HeapAllocator) Live() int {
	return a.live
}
