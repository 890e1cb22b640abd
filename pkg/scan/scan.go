// Package scan recovers statement text from scanned or photographed bank
// statements. It preprocesses the image, runs Tesseract in several passes,
// and returns the pass whose output looks most like a transaction listing.
// Row extraction stays in pkg/statement; this package only produces text.
package scan

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// ErrNoText means OCR produced nothing that resembles statement lines.
var ErrNoText = errors.New("no statement text detected")

// statement transaction lines open with a "23 May 25" style date.
var dateLineRE = regexp.MustCompile(`(?m)^\s*\d{1,2} [A-Za-z]{3} \d{2}\b`)

const whitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz.,:()/- "

// ExtractText OCRs a statement image and returns the raw multi-line text of
// the best pass. Line breaks are preserved; the statement parser needs them.
func ExtractText(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < 900 {
		gray = imaging.Resize(gray, 0, 1300, imaging.Lanczos)
	}

	passes := []image.Image{
		binarize(gray, 210),
		adaptiveThreshold(gray, 15, 7),
		gray,
	}

	bestText, bestScore := "", -1
	for i, p := range passes {
		text, err := ocrPass(p)
		if err != nil {
			log.Printf("scan: pass %d: %v", i, err)
			continue
		}
		score := len(dateLineRE.FindAllString(text, -1))
		if score > bestScore {
			bestText, bestScore = text, score
		}
	}

	if bestScore <= 0 || strings.TrimSpace(bestText) == "" {
		return "", ErrNoText
	}
	log.Printf("scan: %s recovered %d candidate lines", path, bestScore)
	return bestText, nil
}

func ocrPass(img image.Image) (string, error) {
	tmp, err := os.CreateTemp("", "scan-pass-*.png")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(name)

	if err := imaging.Save(img, name); err != nil {
		return "", fmt.Errorf("save pass image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	_ = client.SetWhitelist(whitelist)
	_ = client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	if err := client.SetImage(name); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
