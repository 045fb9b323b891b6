// Recomputation of filtered images into the raster cache
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"image-filter-editor/internal/algorithms"
	"image-filter-editor/internal/cache"
	"image-filter-editor/internal/core"
	"image-filter-editor/internal/io"
)

// Sourced is a target backed by an image file
type Sourced interface {
	core.Target
	Source() string
}

// Renderer implements core.Recomputer: it loads a target's original
// image, runs its chain and stores the result in the cache
type Renderer struct {
	loader *io.ImageLoader
	cache  *cache.Cache[gocv.Mat]
	logger logrus.FieldLogger
}

// NewCache creates a raster cache that closes evicted Mats
func NewCache(size int) (*cache.Cache[gocv.Mat], error) {
	return cache.New[gocv.Mat](size, func(m gocv.Mat) { m.Close() })
}

func NewRenderer(loader *io.ImageLoader, rasters *cache.Cache[gocv.Mat], logger logrus.FieldLogger) *Renderer {
	return &Renderer{loader: loader, cache: rasters, logger: logger}
}

func (r *Renderer) Recompute(ctx context.Context, t core.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sourced, ok := t.(Sourced)
	if !ok {
		return fmt.Errorf("image #%d has no source file", t.ID())
	}

	start := time.Now()
	original, err := r.loader.LoadImage(sourced.Source())
	if err != nil {
		return err
	}
	defer original.Close()

	chain := t.CurrentChain()
	processed, err := algorithms.ApplyChain(original, chain)
	if err != nil {
		return fmt.Errorf("image #%d: %w", t.ID(), err)
	}
	r.cache.Put(t.ID(), processed)

	r.logger.WithFields(logrus.Fields{
		"target":   t.ID(),
		"filters":  chain.Len(),
		"duration": time.Since(start).String(),
	}).Debug("RENDER: image recomputed")
	return nil
}

// Image returns a copy of the cached result, computing it if needed
func (r *Renderer) Image(ctx context.Context, t core.Target) (gocv.Mat, error) {
	if mat, ok := r.cloneCached(t.ID()); ok {
		return mat, nil
	}
	if err := r.Recompute(ctx, t); err != nil {
		return gocv.NewMat(), err
	}
	mat, ok := r.cloneCached(t.ID())
	if !ok {
		return gocv.NewMat(), fmt.Errorf("image #%d was evicted before use", t.ID())
	}
	return mat, nil
}

// cloneCached copies the cached raster under the cache lock so a
// concurrent recompute cannot close it mid-copy
func (r *Renderer) cloneCached(id int64) (gocv.Mat, bool) {
	var out gocv.Mat
	ok := r.cache.With(id, func(m gocv.Mat) { out = m.Clone() })
	return out, ok
}

// Export writes the filtered image of t to path
func (r *Renderer) Export(ctx context.Context, t core.Target, path string) error {
	mat, err := r.Image(ctx, t)
	if err != nil {
		return err
	}
	defer mat.Close()
	return r.loader.SaveImage(mat, path)
}
