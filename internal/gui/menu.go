package gui

import (
	"context"
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// MenuHandler builds the main menu
type MenuHandler struct {
	a     *Application
	items []*fyne.MenuItem
	menu  *fyne.MainMenu
}

func NewMenuHandler(a *Application) *MenuHandler {
	return &MenuHandler{a: a}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	exportItem := fyne.NewMenuItem("Export Filtered Image...", mh.exportImage)
	undoItem := fyne.NewMenuItem("Undo Last Apply", mh.a.Undo)

	fileMenu := fyne.NewMenu("File",
		exportItem,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Exit", func() { mh.a.window.Close() }),
	)
	editMenu := fyne.NewMenu("Edit", undoItem)

	var presetItems []*fyne.MenuItem
	for _, name := range mh.a.deps.Config.PresetNames() {
		preset := name
		presetItems = append(presetItems, fyne.NewMenuItem(preset, func() { mh.a.LoadPreset(preset) }))
	}
	if len(presetItems) == 0 {
		none := fyne.NewMenuItem("No presets configured", nil)
		none.Disabled = true
		presetItems = append(presetItems, none)
	}
	presetMenu := fyne.NewMenu("Presets", presetItems...)

	mh.items = append([]*fyne.MenuItem{exportItem, undoItem}, presetItems...)
	mh.menu = fyne.NewMainMenu(fileMenu, editMenu, presetMenu)
	return mh.menu
}

// SetEnabled greys out the menu items that mutate or read image chains
func (mh *MenuHandler) SetEnabled(enabled bool) {
	for _, item := range mh.items {
		if item.Action != nil {
			item.Disabled = !enabled
		}
	}
	if mh.menu != nil {
		mh.menu.Refresh()
	}
}

func (mh *MenuHandler) exportImage() {
	current := mh.a.targets.Current()
	if current == nil {
		mh.a.showError("Export", errors.New("select an image first"))
		return
	}
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.a.showError("Export", err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		_ = writer.Close()
		go func() {
			err := mh.a.deps.Renderer.Export(context.Background(), current, path)
			fyne.Do(func() {
				if err != nil {
					mh.a.showError("Export", err)
					return
				}
				mh.a.updateStatusMessage("Exported " + path)
			})
		}()
	}, mh.a.window)
	save.SetFileName(current.Title())
	save.Show()
}
