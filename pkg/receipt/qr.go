package receipt

import (
	"image"
	"net/url"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// QRDecoder finds and decodes a QR code in a pixel buffer. "Not found" is
// reported as ok=false, never as an error.
type QRDecoder interface {
	Decode(img image.Image) (string, bool)
}

// zxingDecoder is the production decoder.
type zxingDecoder struct{}

func (zxingDecoder) Decode(img image.Image) (string, bool) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}
	res, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil || res == nil {
		return "", false
	}
	return res.GetText(), true
}

// QRResult holds a decoded payload and, when the payload follows the fiscal
// receipt convention, the receipt total it carries.
type QRResult struct {
	Payload string // decoded string verbatim
	Amount  string // dot-decimal total, "" when the payload carries none
}

// parseQRPayload interprets a decoded payload. NFC-e codes embed an access
// URL whose `p` query parameter is a pipe-delimited token list; the total is
// the first field shaped exactly like a two-decimal number.
func parseQRPayload(payload string) QRResult {
	res := QRResult{Payload: payload}
	effective := payload
	low := strings.ToLower(payload)
	if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
		if u, err := url.Parse(payload); err == nil {
			if p := u.Query().Get("p"); p != "" {
				effective = p
			}
		}
	}
	if strings.Contains(effective, "|") {
		for _, field := range strings.Split(effective, "|") {
			if qrAmountRE.MatchString(field) {
				res.Amount = field
				break
			}
		}
	}
	return res
}
