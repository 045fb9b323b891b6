// Filter chain editing panel: available filters, chosen chain, parameters
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"image-filter-editor/internal/filters"
)

// FilterEditor edits one chain in place. It never touches image chains;
// the chain only reaches images through an apply.
type FilterEditor struct {
	logger logrus.FieldLogger

	chain     *filters.Chain
	catalog   []filters.TypeID
	selected  int
	available widget.ListItemID

	container    *fyne.Container
	availList    *widget.List
	chosenList   *widget.List
	paramForm    *widget.Form
	paramCard    *widget.Card
	status       *widget.Label
	addButton    *widget.Button
	removeButton *widget.Button
	upButton     *widget.Button
	downButton   *widget.Button

	enabled bool
}

func NewFilterEditor(logger logrus.FieldLogger) *FilterEditor {
	fe := &FilterEditor{
		logger:    logger,
		chain:     filters.NewChain(),
		catalog:   filters.Catalog(),
		selected:  -1,
		available: -1,
		enabled:   true,
	}
	fe.initializeUI()
	return fe
}

func (fe *FilterEditor) initializeUI() {
	fe.availList = widget.NewList(
		func() int { return len(fe.catalog) },
		func() fyne.CanvasObject { return widget.NewLabel("filter") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			item.(*widget.Label).SetText(string(fe.catalog[id]))
		},
	)
	fe.availList.OnSelected = func(id widget.ListItemID) { fe.available = id }

	fe.chosenList = widget.NewList(
		func() int { return fe.chain.Len() },
		func() fyne.CanvasObject { return widget.NewLabel("filter") },
		func(id widget.ListItemID, item fyne.CanvasObject) {
			if f := fe.chain.At(id); f != nil {
				item.(*widget.Label).SetText(fmt.Sprintf("%d. %s", id+1, f.Type()))
			}
		},
	)
	fe.chosenList.OnSelected = func(id widget.ListItemID) {
		fe.selected = id
		fe.showParameters()
	}

	fe.addButton = widget.NewButton("Add", fe.addSelected)
	fe.addButton.Importance = widget.HighImportance
	fe.removeButton = widget.NewButton("Remove", fe.removeSelected)
	fe.upButton = widget.NewButton("Up", func() { fe.move(fe.chain.MoveUp) })
	fe.downButton = widget.NewButton("Down", func() { fe.move(fe.chain.MoveDown) })

	fe.paramForm = widget.NewForm()
	fe.paramCard = widget.NewCard("Parameters", "", fe.paramForm)
	fe.status = widget.NewLabel("")
	fe.status.Wrapping = fyne.TextWrapWord

	left := container.NewBorder(
		widget.NewLabel("Available filters"),
		fe.addButton,
		nil, nil,
		fe.availList,
	)
	chosen := container.NewBorder(
		widget.NewLabel("Chosen filters"),
		container.NewGridWithColumns(3, fe.upButton, fe.downButton, fe.removeButton),
		nil, nil,
		fe.chosenList,
	)
	right := container.NewVSplit(chosen, container.NewVScroll(fe.paramCard))
	right.SetOffset(0.5)

	split := container.NewHSplit(left, right)
	split.SetOffset(0.4)
	fe.container = container.NewBorder(nil, fe.status, nil, nil, split)
}

func (fe *FilterEditor) GetContainer() fyne.CanvasObject { return fe.container }

func (fe *FilterEditor) Chain() *filters.Chain { return fe.chain }

// SetChain starts editing c, selecting its first filter
func (fe *FilterEditor) SetChain(c *filters.Chain) {
	if c == nil {
		c = filters.NewChain()
	}
	fe.chain = c
	fe.selected = -1
	fe.chosenList.UnselectAll()
	fe.chosenList.Refresh()
	if c.Len() > 0 {
		fe.chosenList.Select(0)
	} else {
		fe.showParameters()
	}
	fe.status.SetText("")
}

func (fe *FilterEditor) addSelected() {
	if fe.available < 0 || fe.available >= len(fe.catalog) {
		fe.status.SetText("Choose a filter to add")
		return
	}
	id := fe.catalog[fe.available]
	if _, err := fe.chain.Add(id); err != nil {
		fe.status.SetText(err.Error())
		return
	}
	fe.logger.WithField("filter", id).Debug("EDITOR: filter added")
	fe.chosenList.Refresh()
	fe.chosenList.Select(fe.chain.Len() - 1)
}

func (fe *FilterEditor) removeSelected() {
	if fe.selected < 0 {
		return
	}
	next, err := fe.chain.RemoveAt(fe.selected)
	if err != nil {
		fe.status.SetText(err.Error())
		return
	}
	fe.chosenList.UnselectAll()
	fe.chosenList.Refresh()
	fe.selected = -1
	if next >= 0 {
		fe.chosenList.Select(next)
	} else {
		fe.showParameters()
	}
}

func (fe *FilterEditor) move(step func(pos int) int) {
	if fe.selected < 0 {
		return
	}
	pos := step(fe.selected)
	fe.chosenList.Refresh()
	fe.chosenList.Select(pos)
}

// showParameters rebuilds the form for the selected filter. Invalid text
// leaves the parameter unchanged and reports the parse error.
func (fe *FilterEditor) showParameters() {
	fe.paramForm.Items = nil
	f := fe.chain.At(fe.selected)
	if f == nil {
		fe.paramCard.SetSubTitle("")
		fe.paramForm.Refresh()
		return
	}

	fe.paramCard.SetSubTitle(string(f.Type()))
	for i := 0; i < f.Len(); i++ {
		desc, err := f.Descriptor(i)
		if err != nil {
			continue
		}
		entry := widget.NewEntry()
		entry.SetText(f.Get(i))
		index := i
		entry.OnChanged = func(text string) {
			if err := f.Set(index, text); err != nil {
				fe.status.SetText(err.Error())
				return
			}
			fe.status.SetText("")
		}
		if !fe.enabled {
			entry.Disable()
		}
		fe.paramForm.Append(fmt.Sprintf("%s (%s)", desc.Name, desc.Kind), entry)
	}
	if f.Len() == 0 {
		fe.paramForm.Append("", widget.NewLabel("No parameters"))
	}
	fe.paramForm.Refresh()
}

func (fe *FilterEditor) SetEnabled(enabled bool) {
	fe.enabled = enabled
	for _, b := range []*widget.Button{fe.addButton, fe.removeButton, fe.upButton, fe.downButton} {
		if enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
	fe.showParameters()
}
