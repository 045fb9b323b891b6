// Image list and apply-target selection
package gui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"image-filter-editor/internal/core"
	"image-filter-editor/internal/layers"
)

// TargetPanel lists the project's images and decides which of them an
// apply reaches
type TargetPanel struct {
	window  fyne.Window
	project *layers.Project

	patches []*layers.Patch
	checked map[int64]bool
	current widget.ListItemID

	container *fyne.Container
	list      *widget.List
	scope     *widget.Select
	mode      *widget.RadioGroup

	onCurrentChanged func(p *layers.Patch)
}

const (
	scopeSelected = iota
	scopeLayer
	scopeRange
)

func NewTargetPanel(window fyne.Window, project *layers.Project, mode core.Mode) *TargetPanel {
	tp := &TargetPanel{
		window:  window,
		project: project,
		patches: project.AllPatches(),
		checked: make(map[int64]bool),
		current: -1,
	}
	tp.initializeUI(mode)
	return tp
}

func (tp *TargetPanel) initializeUI(mode core.Mode) {
	tp.list = widget.NewList(
		func() int { return len(tp.patches) },
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewCheck("", nil), widget.NewLabel("image"))
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			p := tp.patches[id]
			row := item.(*fyne.Container)
			check := row.Objects[0].(*widget.Check)
			label := row.Objects[1].(*widget.Label)

			check.OnChanged = nil
			check.SetChecked(tp.checked[p.ID()])
			check.OnChanged = func(on bool) { tp.checked[p.ID()] = on }

			text := fmt.Sprintf("#%d %s / %s (%d filters)", p.ID(), p.Layer().Name(), p.Title(), p.CurrentChain().Len())
			if !p.Visible() {
				text += " [hidden]"
			}
			label.SetText(text)
		},
	)
	tp.list.OnSelected = func(id widget.ListItemID) {
		tp.current = id
		if tp.onCurrentChanged != nil {
			tp.onCurrentChanged(tp.patches[id])
		}
	}

	tp.scope = widget.NewSelect(nil, nil)
	tp.mode = widget.NewRadioGroup([]string{core.Replace.String(), core.Append.String()}, nil)
	tp.mode.Horizontal = true
	tp.mode.Required = true
	tp.mode.SetSelected(mode.String())

	tp.container = container.NewBorder(
		widget.NewLabel(fmt.Sprintf("Project %s: %d images", tp.project.Name(), len(tp.patches))),
		nil, nil, nil,
		tp.list,
	)
}

func (tp *TargetPanel) GetContainer() fyne.CanvasObject { return tp.container }

// ApplyControls returns the "Apply to" row widgets
func (tp *TargetPanel) ApplyControls() []fyne.CanvasObject {
	return []fyne.CanvasObject{widget.NewLabel("Apply to:"), tp.scope, tp.mode}
}

func (tp *TargetPanel) SetCurrentChangedCallback(fn func(p *layers.Patch)) {
	tp.onCurrentChanged = fn
}

// Current returns the highlighted image, if any
func (tp *TargetPanel) Current() *layers.Patch {
	if tp.current < 0 || tp.current >= len(tp.patches) {
		return nil
	}
	return tp.patches[tp.current]
}

// Checked returns the ticked images in list order
func (tp *TargetPanel) Checked() []*layers.Patch {
	var result []*layers.Patch
	for _, p := range tp.patches {
		if tp.checked[p.ID()] {
			result = append(result, p)
		}
	}
	return result
}

// SetCheckedLayer ticks every image of a layer
func (tp *TargetPanel) SetCheckedLayer(index int) {
	for _, p := range tp.patches {
		tp.checked[p.ID()] = p.Layer().Index() == index
	}
	tp.list.Refresh()
}

// OpenSession prepares the scope choices for a session opened on
// selected, with reference as the source of the layer choices
func (tp *TargetPanel) OpenSession(selected []*layers.Patch, reference *layers.Patch) {
	tp.scope.Options = []string{
		fmt.Sprintf("Selected images (%d)", len(selected)),
		fmt.Sprintf("All images in layer %d", reference.Layer().Index()),
		"All images in layer range...",
	}
	tp.scope.SetSelectedIndex(scopeSelected)
	tp.scope.Refresh()
}

func (tp *TargetPanel) Mode() core.Mode {
	m, _ := core.ParseMode(tp.mode.Selected)
	return m
}

// ResolveTargets turns the chosen scope into images and hands them to
// done. The layer range scope first asks for its bounds; cancelling that
// dialog never calls done.
func (tp *TargetPanel) ResolveTargets(session []*layers.Patch, reference *layers.Patch, done func([]*layers.Patch, error)) {
	switch tp.scope.SelectedIndex() {
	case scopeLayer:
		done(tp.project.ListTargets(layers.Selection{Mode: layers.SelectLayer, Layer: reference.Layer().Index()}))
	case scopeRange:
		tp.askLayerRange(reference, done)
	default:
		ids := make([]int64, len(session))
		for i, p := range session {
			ids[i] = p.ID()
		}
		done(tp.project.ListTargets(layers.Selection{Mode: layers.SelectExplicit, IDs: ids}))
	}
}

func (tp *TargetPanel) askLayerRange(reference *layers.Patch, done func([]*layers.Patch, error)) {
	var names []string
	for _, l := range tp.project.Layers() {
		names = append(names, strconv.Itoa(l.Index())+": "+l.Name())
	}
	first := widget.NewSelect(names, nil)
	last := widget.NewSelect(names, nil)
	first.SetSelectedIndex(reference.Layer().Index())
	last.SetSelectedIndex(reference.Layer().Index())
	pattern := widget.NewEntry()
	pattern.SetPlaceHolder("regular expression, empty matches all")
	visible := widget.NewCheck("", nil)
	visible.SetChecked(true)

	items := []*widget.FormItem{
		widget.NewFormItem("First layer", first),
		widget.NewFormItem("Last layer", last),
		widget.NewFormItem("Image title matches", pattern),
		widget.NewFormItem("Visible images only", visible),
	}
	d := dialog.NewForm("Apply filters", "OK", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		done(tp.project.ListTargets(layers.Selection{
			Mode:         layers.SelectLayerRange,
			First:        first.SelectedIndex(),
			Last:         last.SelectedIndex(),
			TitlePattern: pattern.Text,
			VisibleOnly:  visible.Checked,
		}))
	}, tp.window)
	d.Resize(fyne.NewSize(460, 300))
	d.Show()
}

func (tp *TargetPanel) Refresh() { tp.list.Refresh() }

func (tp *TargetPanel) SetEnabled(enabled bool) {
	if enabled {
		tp.scope.Enable()
		tp.mode.Enable()
	} else {
		tp.scope.Disable()
		tp.mode.Disable()
	}
}
