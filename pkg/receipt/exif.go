package receipt

import "encoding/binary"

// Exif orientation codes. 1 is upright; 2-8 combine horizontal/vertical
// mirroring with 90/180/270 degree rotations per the TIFF convention.
const (
	orientUpright    = 1
	orientFlipH      = 2
	orientRotate180  = 3
	orientFlipV      = 4
	orientTranspose  = 5
	orientRotate90CW = 6
	orientTransverse = 7
	orientRotate90CC = 8
)

const orientationTag = 0x0112

// exifPrefixLimit bounds how much of the file the orientation reader looks
// at; the APP1 segment sits right after SOI in every camera JPEG.
const exifPrefixLimit = 64 * 1024

// ReadOrientation extracts the Exif orientation code from the leading bytes
// of a JPEG file. It is strictly best-effort: absent, truncated or malformed
// metadata yields the upright default. It never fails.
func ReadOrientation(data []byte) int {
	if len(data) > exifPrefixLimit {
		data = data[:exifPrefixLimit]
	}
	// SOI marker
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return orientUpright
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return orientUpright
		}
		marker := data[pos+1]
		// SOS: compressed data follows, no more metadata segments.
		if marker == 0xDA || marker == 0xD9 {
			return orientUpright
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return orientUpright
		}
		if marker == 0xE1 {
			payload := data[pos+4 : pos+2+segLen]
			if o, ok := parseExifPayload(payload); ok {
				return o
			}
		}
		pos += 2 + segLen
	}
	return orientUpright
}

// parseExifPayload walks the TIFF structure inside an APP1 segment looking
// for the orientation tag in IFD0.
func parseExifPayload(p []byte) (int, bool) {
	if len(p) < 6 || string(p[:6]) != "Exif\x00\x00" {
		return 0, false
	}
	tiff := p[6:]
	if len(tiff) < 8 {
		return 0, false
	}
	var order binary.ByteOrder
	switch {
	case tiff[0] == 'I' && tiff[1] == 'I':
		order = binary.LittleEndian
	case tiff[0] == 'M' && tiff[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, false
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 0, false
	}
	ifdOff := int(order.Uint32(tiff[4:8]))
	if ifdOff < 8 || ifdOff+2 > len(tiff) {
		return 0, false
	}
	entries := int(order.Uint16(tiff[ifdOff : ifdOff+2]))
	for i := 0; i < entries; i++ {
		entry := ifdOff + 2 + i*12
		if entry+12 > len(tiff) {
			return 0, false
		}
		if order.Uint16(tiff[entry:entry+2]) != orientationTag {
			continue
		}
		// SHORT value stored inline in the first two value bytes.
		v := int(order.Uint16(tiff[entry+8 : entry+10]))
		if v >= 1 && v <= 8 {
			return v, true
		}
		return 0, false
	}
	return 0, false
}
