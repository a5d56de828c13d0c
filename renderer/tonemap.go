package renderer

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/scenelab/scenelab/accumulation"
)

const invGamma float32 = 1.0 / 2.2

// ToneMap converts an HDR radiance buffer to an 8-bit sRGB-like image using
// exponential exposure mapping followed by gamma correction.
func ToneMap(buf *accumulation.Buffer, exposure float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	ToneMapInto(img.Pix, buf, exposure)
	return img
}

// ToneMapInto writes the tone mapped RGBA8 pixels of buf into pix, which must
// hold at least 4 * width * height bytes.
func ToneMapInto(pix []uint8, buf *accumulation.Buffer, exposure float32) {
	for idx, radiance := range buf.Pix {
		off := idx * 4
		pix[off] = toneMapChannel(radiance[0], exposure)
		pix[off+1] = toneMapChannel(radiance[1], exposure)
		pix[off+2] = toneMapChannel(radiance[2], exposure)
		pix[off+3] = 0xff
	}
}

func toneMapChannel(v, exposure float32) uint8 {
	if !(v > 0) {
		return 0
	}
	mapped := math32.Pow(1-math32.Exp(-v*exposure), invGamma)
	return uint8(math32.Min(255, mapped*255+0.5))
}
