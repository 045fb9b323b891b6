package gui

import (
	"context"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/layers"
	"image-filter-editor/internal/render"
)

// Preview shows the filtered raster of one image
type Preview struct {
	renderer *render.Renderer
	logger   logrus.FieldLogger

	image     *canvas.Image
	caption   *widget.Label
	container *fyne.Container
}

func NewPreview(renderer *render.Renderer, logger logrus.FieldLogger) *Preview {
	pv := &Preview{renderer: renderer, logger: logger}
	pv.image = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	pv.image.FillMode = canvas.ImageFillContain
	pv.image.SetMinSize(fyne.NewSize(320, 240))
	pv.caption = widget.NewLabel("No image selected")
	pv.container = container.NewBorder(nil, pv.caption, nil, nil, pv.image)
	return pv
}

func (pv *Preview) GetContainer() fyne.CanvasObject { return pv.container }

// Pause leaves the current image in place while rasters are recomputed
func (pv *Preview) Pause() {
	pv.caption.SetText("Preview paused while filters are applied")
}

// Show renders p in the background and swaps it in on the UI goroutine
func (pv *Preview) Show(p *layers.Patch) {
	if p == nil {
		return
	}
	pv.caption.SetText("Rendering " + p.Title() + "...")
	go func() {
		mat, err := pv.renderer.Image(context.Background(), p)
		if err != nil {
			pv.logger.WithError(err).WithField("image", p.ID()).Error("PREVIEW: render failed")
			fyne.Do(func() { pv.caption.SetText(err.Error()) })
			return
		}
		defer mat.Close()
		img, err := mat.ToImage()
		if err != nil {
			fyne.Do(func() { pv.caption.SetText(err.Error()) })
			return
		}
		caption := p.Title() + " - " + p.CurrentChain().String()
		if diff, err := pv.renderer.Compare(context.Background(), p); err == nil {
			caption += "\n" + diff.String()
		} else {
			pv.logger.WithError(err).Debug("PREVIEW: comparison skipped")
		}
		fyne.Do(func() {
			pv.image.Image = img
			pv.image.Refresh()
			pv.caption.SetText(caption)
		})
	}()
}
