// Raster implementations of the filter catalog
package algorithms

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"image-filter-editor/internal/filters"
)

// param reads a parameter by name; a missing name yields the zero Value
func param(f *filters.Instance, name string) filters.Value {
	v, _ := f.Value(f.Index(name))
	return v
}

// perChannel runs op on every channel separately and merges the results
func perChannel(input gocv.Mat, op func(src gocv.Mat, dst *gocv.Mat) error) (gocv.Mat, error) {
	if input.Channels() == 1 {
		output := gocv.NewMat()
		if err := op(input, &output); err != nil {
			output.Close()
			return gocv.NewMat(), err
		}
		return output, nil
	}

	channels := gocv.Split(input)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	processed := make([]gocv.Mat, 0, len(channels))
	defer func() {
		for _, ch := range processed {
			ch.Close()
		}
	}()
	for _, ch := range channels {
		out := gocv.NewMat()
		if err := op(ch, &out); err != nil {
			out.Close()
			return gocv.NewMat(), err
		}
		processed = append(processed, out)
	}

	output := gocv.NewMat()
	gocv.Merge(processed, &output)
	return output, nil
}

func oddKernel(radius float64) int {
	k := 2*int(math.Round(radius)) + 1
	if k < 1 {
		k = 1
	}
	return k
}

// applyCLAHE equalizes tiles of 2*blockRadius+1 pixels. 8-bit channels are
// first quantized to bins+1 grey levels, the histogram resolution CLAHE
// then works with.
func applyCLAHE(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	blockRadius := param(f, "blockRadius").Int()
	bins := param(f, "bins").Int()
	slope := param(f, "slope").Float()
	if blockRadius <= 0 || slope <= 0 {
		return gocv.NewMat(), fmt.Errorf("blockRadius and slope must be positive")
	}
	if bins <= 0 {
		return gocv.NewMat(), fmt.Errorf("bins must be positive")
	}

	block := int(2*blockRadius + 1)
	grid := image.Pt(max(1, input.Cols()/block), max(1, input.Rows()/block))
	clahe := gocv.NewCLAHEWithParams(slope, grid)
	defer clahe.Close()

	lut, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8U, binLevels(int(bins)))
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("build bin table: %w", err)
	}
	defer lut.Close()

	return perChannel(input, func(src gocv.Mat, dst *gocv.Mat) error {
		if bins >= 255 || src.Type() != gocv.MatTypeCV8U {
			clahe.Apply(src, dst)
			return nil
		}
		quantized := gocv.NewMat()
		defer quantized.Close()
		gocv.LUT(src, lut, &quantized)
		clahe.Apply(quantized, dst)
		return nil
	})
}

// binLevels maps every 8-bit value onto one of bins+1 evenly spaced levels
func binLevels(bins int) []byte {
	levels := min(max(bins+1, 2), 256)
	table := make([]byte, 256)
	for v := range table {
		level := v * levels / 256
		table[v] = byte(level * 255 / (levels - 1))
	}
	return table
}

func applyEqualize(input gocv.Mat, _ *filters.Instance) (gocv.Mat, error) {
	return perChannel(input, func(src gocv.Mat, dst *gocv.Mat) error {
		gocv.EqualizeHist(src, dst)
		return nil
	})
}

func applyGaussian(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	sigma := param(f, "radius").Float()
	accuracy := param(f, "accuracy").Float()
	if sigma <= 0 {
		return input.Clone(), nil
	}
	if accuracy <= 0 || accuracy >= 1 {
		return gocv.NewMat(), fmt.Errorf("accuracy must be in (0, 1)")
	}

	// kernel reaches where the gaussian falls below accuracy
	reach := int(math.Ceil(sigma * math.Sqrt(-2*math.Log(accuracy))))
	ksize := 2*reach + 1

	output := gocv.NewMat()
	gocv.GaussianBlur(input, &output, image.Pt(ksize, ksize), sigma, sigma, gocv.BorderReflect)
	return output, nil
}

func applyInvert(input gocv.Mat, _ *filters.Instance) (gocv.Mat, error) {
	output := gocv.NewMat()
	gocv.BitwiseNot(input, &output)
	return output, nil
}

func applyNormalize(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	saturated := param(f, "saturated").Float()
	if saturated < 0 || saturated >= 100 {
		return gocv.NewMat(), fmt.Errorf("saturated must be in [0, 100)")
	}

	return perChannel(input, func(src gocv.Mat, dst *gocv.Mat) error {
		lo, hi, _, _ := gocv.MinMaxLoc(src)
		span := float64(hi - lo)
		if span == 0 {
			src.CopyTo(dst)
			return nil
		}
		low := float64(lo) + span*saturated/200
		high := float64(hi) - span*saturated/200
		alpha := 255 / (high - low)
		src.ConvertToWithParams(dst, src.Type(), float32(alpha), float32(-low*alpha))
		return nil
	})
}

func applyRank(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	k := oddKernel(param(f, "radius").Float())
	output := gocv.NewMat()

	switch int8(param(f, "type").Int()) {
	case filters.RankMedian:
		gocv.MedianBlur(input, &output, k)
	case filters.RankMean:
		gocv.Blur(input, &output, image.Pt(k, k))
	case filters.RankMin, filters.RankMax:
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(k, k))
		defer kernel.Close()
		if int8(param(f, "type").Int()) == filters.RankMin {
			gocv.Erode(input, &output, kernel)
		} else {
			gocv.Dilate(input, &output, kernel)
		}
	default:
		output.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported rank filter type %d", param(f, "type").Int())
	}
	return output, nil
}

func applySubtractBackground(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	radius := param(f, "radius").Int()
	if radius <= 0 {
		return gocv.NewMat(), fmt.Errorf("radius must be positive")
	}

	var shape gocv.MorphShape
	switch param(f, "shape").Text() {
	case "rolling":
		shape = gocv.MorphEllipse
	case "sliding":
		shape = gocv.MorphRect
	default:
		return gocv.NewMat(), fmt.Errorf("unknown background shape %q", param(f, "shape").Text())
	}

	k := int(2*radius + 1)
	kernel := gocv.GetStructuringElement(shape, image.Pt(k, k))
	defer kernel.Close()

	background := gocv.NewMat()
	defer background.Close()
	gocv.MorphologyEx(input, &background, gocv.MorphOpen, kernel)

	output := gocv.NewMat()
	gocv.Subtract(input, background, &output)
	return output, nil
}

// tint maps the intensity onto the selected BGR channels
func tint(blue, green, red bool) Transform {
	return TransformFunc(func(input gocv.Mat, _ *filters.Instance) (gocv.Mat, error) {
		gray := gocv.NewMat()
		defer gray.Close()
		switch input.Channels() {
		case 1:
			input.CopyTo(&gray)
		case 3:
			gocv.CvtColor(input, &gray, gocv.ColorBGRToGray)
		case 4:
			gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)
		default:
			return gocv.NewMat(), fmt.Errorf("unsupported channel count: %d", input.Channels())
		}

		zeros := gocv.Zeros(gray.Rows(), gray.Cols(), gray.Type())
		defer zeros.Close()

		pick := func(on bool) gocv.Mat {
			if on {
				return gray
			}
			return zeros
		}
		output := gocv.NewMat()
		gocv.Merge([]gocv.Mat{pick(blue), pick(green), pick(red)}, &output)
		return output, nil
	})
}
