package receipt

import (
	"image"

	"github.com/disintegration/imaging"
)

// maxWidth bounds the working buffer for every downstream stage; OCR and QR
// cost scale with pixel count. Raised from 1024 after QR decodes started
// failing on dense NFC-e codes.
const maxWidth = 2048

// normalize applies the orientation transform and caps the buffer width,
// preserving aspect ratio. The returned buffer is upright: its dimensions
// are swapped relative to the source exactly for orientations 5-8.
func normalize(img image.Image, orientation int) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}
	var out *image.NRGBA
	switch orientation {
	case orientFlipH:
		out = imaging.FlipH(img)
	case orientRotate180:
		out = imaging.Rotate180(img)
	case orientFlipV:
		out = imaging.FlipV(img)
	case orientTranspose:
		out = imaging.Transpose(img)
	case orientRotate90CW:
		// Exif 6 means the raw buffer needs a 90° clockwise turn.
		out = imaging.Rotate270(img)
	case orientTransverse:
		out = imaging.Transverse(img)
	case orientRotate90CC:
		out = imaging.Rotate90(img)
	default:
		out = imaging.Clone(img)
	}
	if out.Bounds().Dx() > maxWidth {
		out = imaging.Resize(out, maxWidth, 0, imaging.Lanczos)
	}
	return out, nil
}
