package scan

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// grayPlane flattens an image to one luminance byte per pixel. Both
// thresholding passes work off this plane instead of re-reading pixels.
func grayPlane(img image.Image) (plane []uint8, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	plane = make([]uint8, w*h)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			plane[i] = uint8((r + g + bl) / 3 >> 8)
			i++
		}
	}
	return plane, w, h
}

func setBW(out *image.NRGBA, x, y int, black bool) {
	v := uint8(255)
	if black {
		v = 0
	}
	out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
}

// binarize applies a global threshold. Statement scans are dark text on
// white paper, so a high cutoff keeps the glyphs solid.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	plane, w, h := grayPlane(img)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			setBW(out, x, y, plane[y*w+x] <= threshold)
		}
	}
	return out
}

// adaptiveThreshold thresholds each pixel against the mean of a square
// window around it, which copes with photographed statements where the
// lighting varies across the page. An integral image keeps the window
// mean O(1) per pixel.
func adaptiveThreshold(img image.Image, window, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	plane, w, h := grayPlane(img)
	half := window / 2

	// integral[y][x] = sum of plane over the rectangle (0,0)..(x,y),
	// one guard row and column of zeros so lookups need no branching.
	integral := make([]int, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			row += int(plane[y*w+x])
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + row
		}
	}
	sumAt := func(x0, y0, x1, y1 int) int {
		return integral[(y1+1)*(w+1)+x1+1] -
			integral[y0*(w+1)+x1+1] -
			integral[(y1+1)*(w+1)+x0] +
			integral[y0*(w+1)+x0]
	}

	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half, w-1)
			mean := sumAt(x0, y0, x1, y1) / ((x1 - x0 + 1) * (y1 - y0 + 1))
			cut := max(mean-bias, 0)
			setBW(out, x, y, int(plane[y*w+x]) < cut)
		}
	}
	return out
}
