// Filter transform registry: one raster operation per filter type
package algorithms

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"image-filter-editor/internal/filters"
)

// Transform applies one parameterized filter to an image. Implementations
// never modify input and return a new Mat owned by the caller.
type Transform interface {
	Apply(input gocv.Mat, f *filters.Instance) (gocv.Mat, error)
}

// TransformFunc adapts a function to Transform
type TransformFunc func(input gocv.Mat, f *filters.Instance) (gocv.Mat, error)

func (fn TransformFunc) Apply(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	return fn(input, f)
}

var (
	mu         sync.RWMutex
	transforms = make(map[filters.TypeID]Transform)
)

func Register(id filters.TypeID, t Transform) {
	mu.Lock()
	defer mu.Unlock()
	transforms[id] = t
}

func Get(id filters.TypeID) (Transform, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, exists := transforms[id]
	return t, exists
}

// Apply runs the transform registered for f's type
func Apply(input gocv.Mat, f *filters.Instance) (gocv.Mat, error) {
	t, exists := Get(f.Type())
	if !exists {
		return gocv.NewMat(), fmt.Errorf("no transform for filter: %s", f.Type())
	}
	return t.Apply(input, f)
}

// ApplyChain runs every filter of chain in order on a clone of input.
// An absent or empty chain yields an unmodified clone.
func ApplyChain(input gocv.Mat, chain *filters.Chain) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	result := input.Clone()

	for pos, f := range chain.Filters() {
		next, err := Apply(result, f)
		result.Close()
		if err != nil {
			next.Close()
			return gocv.NewMat(), fmt.Errorf("filter %d (%s): %w", pos+1, f.Type(), err)
		}
		result = next
	}
	return result, nil
}

func init() {
	Register(filters.CLAHE, TransformFunc(applyCLAHE))
	Register(filters.EqualizeHistogram, TransformFunc(applyEqualize))
	Register(filters.GaussianBlur, TransformFunc(applyGaussian))
	Register(filters.Invert, TransformFunc(applyInvert))
	Register(filters.Normalize, TransformFunc(applyNormalize))
	Register(filters.RankFilter, TransformFunc(applyRank))
	Register(filters.SubtractBackground, TransformFunc(applySubtractBackground))

	Register(filters.LUTRed, tint(false, false, true))
	Register(filters.LUTGreen, tint(false, true, false))
	Register(filters.LUTBlue, tint(true, false, false))
	Register(filters.LUTMagenta, tint(true, false, true))
	Register(filters.LUTCyan, tint(true, true, false))
	Register(filters.LUTYellow, tint(false, true, true))
}
