package render

import (
	"context"
	"fmt"
	"math"

	"gocv.io/x/gocv"

	"image-filter-editor/internal/core"
)

// Difference measures how far a filtered image moved from its source
type Difference struct {
	PSNR float64 // dB, capped at 100 for identical images
	MSE  float64
	// Contrast is the grey-level standard deviation before and after
	ContrastBefore float64
	ContrastAfter  float64
}

func (d Difference) String() string {
	return fmt.Sprintf("PSNR %.2f dB, MSE %.2f, contrast %.1f -> %.1f", d.PSNR, d.MSE, d.ContrastBefore, d.ContrastAfter)
}

// Compare loads t's source and measures it against t's filtered image
func (r *Renderer) Compare(ctx context.Context, t core.Target) (Difference, error) {
	sourced, ok := t.(Sourced)
	if !ok {
		return Difference{}, fmt.Errorf("image #%d has no source file", t.ID())
	}
	original, err := r.loader.LoadImage(sourced.Source())
	if err != nil {
		return Difference{}, err
	}
	defer original.Close()

	filtered, err := r.Image(ctx, t)
	if err != nil {
		return Difference{}, err
	}
	defer filtered.Close()

	return measure(original, filtered)
}

func measure(original, filtered gocv.Mat) (Difference, error) {
	if original.Empty() || filtered.Empty() {
		return Difference{}, fmt.Errorf("empty images")
	}
	if original.Rows() != filtered.Rows() || original.Cols() != filtered.Cols() {
		return Difference{}, fmt.Errorf("dimension mismatch: %dx%d vs %dx%d",
			original.Cols(), original.Rows(), filtered.Cols(), filtered.Rows())
	}

	a := toGray8(original)
	defer a.Close()
	b := toGray8(filtered)
	defer b.Close()

	d := Difference{PSNR: gocv.PSNR(a, b)}
	if math.IsInf(d.PSNR, 1) || d.PSNR > 100 {
		d.PSNR = 100
	}

	fa, fb := gocv.NewMat(), gocv.NewMat()
	defer fa.Close()
	defer fb.Close()
	a.ConvertTo(&fa, gocv.MatTypeCV32F)
	b.ConvertTo(&fb, gocv.MatTypeCV32F)
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.Subtract(fa, fb, &diff)
	gocv.Multiply(diff, diff, &diff)
	d.MSE = diff.Mean().Val1

	d.ContrastBefore = stdDev(a)
	d.ContrastAfter = stdDev(b)
	return d, nil
}

func stdDev(m gocv.Mat) float64 {
	mean, dev := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer dev.Close()
	gocv.MeanStdDev(m, &mean, &dev)
	if dev.Empty() {
		return 0
	}
	return dev.GetDoubleAt(0, 0)
}

// toGray8 returns a new single channel 8-bit copy of m
func toGray8(m gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch m.Channels() {
	case 3:
		gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(m, &gray, gocv.ColorBGRAToGray)
	default:
		m.CopyTo(&gray)
	}
	if gray.Type() != gocv.MatTypeCV8U {
		scaled := gocv.NewMat()
		gocv.Normalize(gray, &scaled, 0, 255, gocv.NormMinMax)
		scaled.ConvertTo(&gray, gocv.MatTypeCV8U)
		scaled.Close()
	}
	return gray
}
