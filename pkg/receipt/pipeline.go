// Package receipt turns a photographed receipt into a prefilled transaction
// record: amount, date, description, category and payment method. The
// pipeline runs orientation reading, normalization, QR detection,
// binarization, OCR and field extraction in strict sequence; heuristic
// misses degrade to empty fields while decode/collaborator failures are
// reported to the caller.
package receipt

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/disintegration/imaging"
)

// MaxUploadBytes is the hard input cap, checked before any stage runs.
const MaxUploadBytes = 15 << 20

const langHint = "por"

// Scanner runs the extraction pipeline. The zero value is not usable; call
// NewScanner, then override collaborators in tests as needed. A Scanner is
// safe for concurrent use: each Scan owns its buffers.
type Scanner struct {
	Engine   Engine
	QR       QRDecoder
	Progress ProgressFunc
	// Now is stubbed in tests; nil means time.Now.
	Now func() time.Time
}

func NewScanner() *Scanner {
	return &Scanner{Engine: TesseractEngine{}, QR: zxingDecoder{}}
}

// Scan processes one image file to completion. It returns a structurally
// complete ExtractionRecord or an error describing the failing stage; there
// are no partial results and no internal retries.
func (s *Scanner) Scan(path string) (ExtractionRecord, error) {
	var rec ExtractionRecord

	fi, err := os.Stat(path)
	if err != nil {
		return rec, fmt.Errorf("stat image: %w", err)
	}
	if fi.Size() > MaxUploadBytes {
		return rec, ErrTooLarge
	}

	s.step("orientation", 5)
	orientation := orientUpright
	if prefix, err := readPrefix(path, exifPrefixLimit); err == nil {
		orientation = ReadOrientation(prefix)
	}

	s.step("decode", 10)
	img, err := imaging.Open(path)
	if err != nil {
		return rec, fmt.Errorf("decode image: %w", err)
	}

	s.step("normalize", 20)
	buf, err := normalize(img, orientation)
	if err != nil {
		return rec, err
	}

	// QR detection must see the buffer before thresholding.
	s.step("qr", 30)
	var qr *QRResult
	if payload, ok := s.QR.Decode(buf); ok {
		r := parseQRPayload(payload)
		qr = &r
		log.Printf("receipt: QR payload detected amount=%q", r.Amount)
	}

	s.step("binarize", 40)
	bw := binarize(buf, binarizeThreshold)

	tmp, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return rec, fmt.Errorf("temp file: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpName)
	if err := imaging.Save(bw, tmpName); err != nil {
		return rec, fmt.Errorf("save working image: %w", err)
	}

	s.step("ocr", 45)
	lines, err := s.Engine.Recognize(tmpName, langHint, s.Progress)
	if err != nil {
		return rec, fmt.Errorf("ocr: %w", err)
	}

	s.step("parse", 90)
	fields := ExtractFields(lines)
	rec = reconcile(fields, qr, s.now())
	s.step("done", 100)
	return rec, nil
}

func (s *Scanner) step(stage string, pct int) {
	if s.Progress != nil {
		s.Progress(stage, pct)
	}
}

func (s *Scanner) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// readPrefix reads the n leading bytes of the file; files shorter than n are
// returned whole.
func readPrefix(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}
