package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"image-filter-editor/internal/core"
)

// DialogPresenter answers the engine's questions with modal dialogs. Its
// methods block until the operator answers, so they must be called off the
// fyne event goroutine.
type DialogPresenter struct {
	window fyne.Window
}

func NewDialogPresenter(window fyne.Window) *DialogPresenter {
	return &DialogPresenter{window: window}
}

func (p *DialogPresenter) ResolveDivergence(report core.Report) (core.Resolution, error) {
	type answer struct {
		ok         bool
		resolution core.Resolution
	}
	answers := make(chan answer, 1)

	fyne.Do(func() {
		options := []string{core.UseReference.String(), core.StartEmpty.String()}
		choice := widget.NewRadioGroup(options, nil)
		choice.SetSelected(options[0])
		choice.Required = true

		details := widget.NewMultiLineEntry()
		details.SetText(report.String())
		details.Wrapping = fyne.TextWrapWord
		details.Disable()
		details.SetMinRowsVisible(10)

		content := container.NewBorder(
			widget.NewLabel("Filters are not all the same for all images:"),
			container.NewVBox(widget.NewLabel("Do:"), choice),
			nil, nil,
			details,
		)
		d := dialog.NewCustomConfirm("WARNING", "OK", "Cancel", content, func(ok bool) {
			resolution := core.UseReference
			if choice.Selected == options[1] {
				resolution = core.StartEmpty
			}
			answers <- answer{ok: ok, resolution: resolution}
		}, p.window)
		d.Resize(fyne.NewSize(520, 420))
		d.Show()
	})

	a := <-answers
	if !a.ok {
		return core.UseReference, core.ErrCanceled
	}
	return a.resolution, nil
}

func (p *DialogPresenter) ConfirmSanity(warning string) bool {
	answers := make(chan bool, 1)
	fyne.Do(func() {
		dialog.ShowConfirm("WARNING", warning, func(ok bool) { answers <- ok }, p.window)
	})
	return <-answers
}
