package scan

import (
	"image/color"
	"os"
	"testing"

	"github.com/disintegration/imaging"
)

func TestExtractTextBlankImage(t *testing.T) {
	img := imaging.New(400, 200, color.NRGBA{255, 255, 255, 255})
	f, err := os.CreateTemp("", "blank-*.png")
	if err != nil {
		t.Skip("temp file")
	}
	_ = f.Close()
	_ = imaging.Save(img, f.Name())
	defer os.Remove(f.Name())

	if _, err := ExtractText(f.Name()); err != ErrNoText {
		t.Fatalf("expected ErrNoText got %v", err)
	}
}

func TestDateLineScoring(t *testing.T) {
	text := "STATEMENT OF ACCOUNT\n23 May 25 CAPITEC K XABA 700.00\nnoise\n24 May 25 EFT FEES 500.00\n"
	if got := len(dateLineRE.FindAllString(text, -1)); got != 2 {
		t.Fatalf("scored %d lines, want 2", got)
	}
}

func TestBinarizeProducesBlackAndWhiteOnly(t *testing.T) {
	img := imaging.New(10, 10, color.NRGBA{120, 120, 120, 255})
	out := binarize(img, 210)
	r, g, b, _ := out.At(5, 5).RGBA()
	if r != g || g != b {
		t.Fatal("not grayscale")
	}
	if v := uint8(r >> 8); v != 0 && v != 255 {
		t.Fatalf("pixel = %d, want 0 or 255", v)
	}
}
