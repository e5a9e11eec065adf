package receipt

import (
	"image"
	"image/color"
)

// binarizeThreshold is the single tunable of the binarization policy.
// Thermal receipts print low-contrast gray on a light (often yellowed)
// background, so the cut is deliberately aggressive. Earlier revisions used
// a mild contrast stretch (~1.25 around mid-gray) instead of a hard cut;
// swapping the policy back only touches this stage.
const binarizeThreshold = 160

// binarize forces every pixel to pure black or white using the standard
// luminance weighting. It runs after QR detection: thresholding destroys
// the fine modules a QR decoder needs.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			lum := uint8((299*(r>>8) + 587*(g>>8) + 114*(bb>>8)) / 1000)
			var v uint8 = 255
			if lum < threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
