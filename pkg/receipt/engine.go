package receipt

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ProgressFunc receives optional telemetry: a stage tag and a monotonic
// 0-100 percentage. It is never a behavioral dependency; nil is fine.
type ProgressFunc func(stage string, pct int)

// Engine recognizes text in a prepared image file and returns it as ordered
// lines, top to bottom. A failure here fails the whole pipeline invocation.
type Engine interface {
	Recognize(path, lang string, progress ProgressFunc) ([]string, error)
}

// TesseractEngine is the production engine.
type TesseractEngine struct{}

func (TesseractEngine) Recognize(path, lang string, progress ProgressFunc) ([]string, error) {
	if lang == "" {
		lang = "por"
	}
	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage(lang)
	if err := client.SetImage(path); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if progress != nil {
		progress("recognizing text", 50)
	}
	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	if progress != nil {
		progress("recognizing text", 85)
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines, nil
}
