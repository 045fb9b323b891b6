// Filter editor application window
package gui

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/config"
	"image-filter-editor/internal/core"
	"image-filter-editor/internal/layers"
	"image-filter-editor/internal/metrics"
	"image-filter-editor/internal/render"
	"image-filter-editor/internal/store"
	"image-filter-editor/internal/undo"
)

// Deps are the engine pieces the window drives
type Deps struct {
	Config      *config.Config
	Project     *layers.Project
	Coordinator *core.Coordinator
	Undo        *undo.Log
	Renderer    *render.Renderer
	Store       *store.ChainStore // nil disables persistence
	Metrics     prometheus.Gatherer
	Logger      logrus.FieldLogger
}

// Application is the main window: image list, chain editor and preview
type Application struct {
	app    fyne.App
	window fyne.Window
	deps   Deps
	logger logrus.FieldLogger

	presenter *DialogPresenter
	editor    *FilterEditor
	targets   *TargetPanel
	preview   *Preview
	menu      *MenuHandler

	session          *core.Session
	sessionPatches   []*layers.Patch
	sessionReference *layers.Patch

	busy atomic.Bool

	openButton *widget.Button
	setButton  *widget.Button
	statusCard *widget.Card
}

func NewApplication(app fyne.App, deps Deps) *Application {
	window := app.NewWindow("Image filters")
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	a := &Application{
		app:    app,
		window: window,
		deps:   deps,
		logger: deps.Logger,
	}
	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()
	return a
}

func (a *Application) initializeGUI() {
	a.presenter = NewDialogPresenter(a.window)
	a.editor = NewFilterEditor(a.logger)
	a.targets = NewTargetPanel(a.window, a.deps.Project, a.deps.Config.Mode())
	a.preview = NewPreview(a.deps.Renderer, a.logger)
	a.menu = NewMenuHandler(a)

	a.openButton = widget.NewButton("Edit filters of checked images", a.openSession)
	a.setButton = widget.NewButton("Set", a.applyChain)
	a.setButton.Importance = widget.HighImportance
	a.setButton.Disable()
	a.statusCard = widget.NewCard("Status", "", widget.NewLabel("Check images and open the editor"))
}

func (a *Application) setupLayout() {
	left := container.NewBorder(nil, a.openButton, nil, nil, a.targets.GetContainer())

	applyRow := container.NewHBox(a.targets.ApplyControls()...)
	applyRow.Add(a.setButton)
	center := container.NewBorder(nil, applyRow, nil, nil, a.editor.GetContainer())

	right := container.NewVSplit(a.preview.GetContainer(), a.statusCard)
	right.SetOffset(0.8)

	centerAndRight := container.NewHSplit(center, right)
	centerAndRight.SetOffset(0.55)
	content := container.NewHSplit(left, centerAndRight)
	content.SetOffset(0.25)

	a.window.SetMainMenu(a.menu.GetMainMenu())
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	// the preview stays on its last image until the apply finished
	a.targets.SetCurrentChangedCallback(func(p *layers.Patch) {
		if a.busy.Load() {
			a.preview.Pause()
			return
		}
		a.preview.Show(p)
	})

	// Apply runs off the UI goroutine; controls follow the busy state
	a.deps.Coordinator.OnBusyChange(func(busy bool) {
		a.busy.Store(busy)
		fyne.Do(func() { a.setControlsEnabled(!busy) })
	})
}

func (a *Application) setControlsEnabled(enabled bool) {
	a.editor.SetEnabled(enabled)
	a.targets.SetEnabled(enabled)
	a.menu.SetEnabled(enabled)
	if enabled {
		a.openButton.Enable()
		if a.session != nil {
			a.setButton.Enable()
		}
	} else {
		a.openButton.Disable()
		a.setButton.Disable()
	}
}

// openSession checks the chains of the ticked images, asking how to
// proceed when they diverge, and loads the resulting chain for editing
func (a *Application) openSession() {
	patches := a.targets.Checked()
	if len(patches) == 0 {
		a.showError("No images", core.ErrNoTargets)
		return
	}
	reference := patches[0]
	if current := a.targets.Current(); current != nil {
		for _, p := range patches {
			if p == current {
				reference = current
			}
		}
	}

	a.openButton.Disable()
	go func() {
		session, err := core.NewSession(layers.Targets(patches), reference, a.presenter, a.logger)
		fyne.Do(func() {
			a.openButton.Enable()
			if errors.Is(err, core.ErrCanceled) {
				a.updateStatusMessage("Editing canceled")
				return
			}
			if err != nil {
				a.showError("Cannot edit filters", err)
				return
			}
			a.session = session
			a.sessionPatches = patches
			a.sessionReference = reference
			a.editor.SetChain(session.Chain())
			a.targets.OpenSession(patches, reference)
			a.setButton.Enable()
			s := "s"
			if len(patches) == 1 {
				s = ""
			}
			message := fmt.Sprintf("Listing filters of %d image%s", len(patches), s)
			if report := session.Report(); !report.Empty() {
				message += fmt.Sprintf(" (%d differed from image #%d)", len(report.Targets()), report.Reference)
			}
			a.updateStatusMessage(message)
		})
	}()
}

// LoadPreset replaces the editing chain with a configured preset
func (a *Application) LoadPreset(name string) {
	if a.session == nil {
		a.showError("No editing session", errors.New("open the editor on some images first"))
		return
	}
	chain, err := a.deps.Config.Preset(name)
	if err != nil {
		a.showError("Preset", err)
		return
	}
	a.editor.SetChain(chain)
	a.updateStatusMessage("Loaded preset " + name)
}

func (a *Application) applyChain() {
	if a.session == nil {
		return
	}
	a.targets.ResolveTargets(a.sessionPatches, a.sessionReference, func(patches []*layers.Patch, err error) {
		if err != nil {
			a.showError("Apply filters", err)
			return
		}
		req := core.ApplyRequest{
			Chain:   a.editor.Chain(),
			Targets: layers.Targets(patches),
			Mode:    a.targets.Mode(),
		}
		go a.runApply(req, patches)
	})
}

func (a *Application) runApply(req core.ApplyRequest, patches []*layers.Patch) {
	result, err := a.deps.Coordinator.Apply(context.Background(), req, a.presenter)
	a.logMetrics()
	if errors.Is(err, core.ErrAborted) {
		fyne.Do(func() { a.updateStatusMessage("Apply aborted") })
		return
	}
	if result != nil && result.State == core.StateCommitted {
		a.persist(patches)
	}
	fyne.Do(func() {
		a.targets.Refresh()
		a.preview.Show(a.targets.Current())
		if err != nil {
			a.showError("Apply filters", err)
			return
		}
		a.updateStatusMessage(fmt.Sprintf("Applied %d filters to %d images in %s", req.Chain.Len(), len(result.Applied), result.Duration))
	})
}

func (a *Application) persist(patches []*layers.Patch) {
	if a.deps.Store == nil {
		return
	}
	images := make([]store.Keyed, len(patches))
	for i, p := range patches {
		images[i] = p
	}
	if err := a.deps.Store.Save(context.Background(), a.deps.Project.Name(), images...); err != nil {
		a.logger.WithError(err).Error("STORE: failed to save chains")
	}
}

func (a *Application) logMetrics() {
	if a.deps.Metrics == nil {
		return
	}
	fields, err := metrics.Summary(a.deps.Metrics)
	if err != nil {
		a.logger.WithError(err).Warn("METRICS: gather failed")
		return
	}
	a.logger.WithFields(fields).Info("METRICS: apply totals")
}

// Undo reverts the last apply and recomputes the restored images
func (a *Application) Undo() {
	restored, err := a.deps.Undo.Undo()
	if err != nil {
		a.showError("Undo", err)
		return
	}
	go func() {
		var patches []*layers.Patch
		for _, t := range restored {
			if p, ok := a.deps.Project.Patch(t.ID()); ok {
				patches = append(patches, p)
			}
			if err := a.deps.Renderer.Recompute(context.Background(), t); err != nil {
				a.logger.WithError(err).WithField("image", t.ID()).Warn("UNDO: recompute failed")
			}
		}
		a.persist(patches)
		fyne.Do(func() {
			a.targets.Refresh()
			a.preview.Show(a.targets.Current())
			a.updateStatusMessage(fmt.Sprintf("Reverted filters of %d images", len(restored)))
		})
	}()
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing filter editor window")
	a.window.ShowAndRun()
}

func (a *Application) updateStatusMessage(message string) {
	a.statusCard.SetContent(widget.NewLabel(message))
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.updateStatusMessage("Error: " + err.Error())
}
