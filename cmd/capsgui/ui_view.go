package main

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/shopspring/decimal"
)

const (
	viewAll      = "All"
	viewOK       = "Submitted"
	viewFailed   = "Failed"
	viewPending  = "Pending"
	sortByLine   = "Line"
	sortByAmount = "Amount"
)

// openResultsWindow shows the recipients with their status, filterable by
// address and status and sortable by line or amount.
func openResultsWindow(a fyne.App) {
	if viewWin == nil {
		viewWin = a.NewWindow("Results")
		viewWin.SetOnClosed(func() { viewWin = nil; viewTable = nil })
	}
	if rowCount() == 0 {
		viewWin.SetContent(container.NewCenter(widget.NewLabel("No recipients loaded yet")))
		viewWin.Resize(fyne.NewSize(720, 480))
		viewWin.Show()
		return
	}

	const (
		colLine = iota
		colAddr
		colAmt
		colFeeV
		colStat
		colReason
		colN
	)
	widths := []float32{60, 420, 130, 120, 220, 420}

	if viewFilter == nil {
		viewFilter = widget.NewEntry()
	}
	viewFilter.SetPlaceHolder("Filter by address…")
	if viewStatus == nil {
		viewStatus = widget.NewSelect([]string{viewAll, viewOK, viewFailed, viewPending}, func(string) {})
		viewStatus.SetSelected(viewAll)
	}
	if viewAsc == nil {
		viewAsc = widget.NewCheck("Asc", func(bool) {})
		viewAsc.SetChecked(true)
	}
	viewSort := widget.NewSelect([]string{sortByLine, sortByAmount}, func(string) {})
	viewSort.SetSelected(sortByLine)

	makeHeadCell := func(text string, w float32, align fyne.TextAlign) fyne.CanvasObject {
		r := canvas.NewRectangle(color.NRGBA{R: 32, G: 40, B: 52, A: 255})
		r.SetMinSize(fyne.NewSize(w, 34))
		lbl := widget.NewLabelWithStyle(text, align, fyne.TextStyle{Bold: true})
		return container.NewMax(r, container.NewPadded(lbl))
	}
	headerWrap := container.NewHBox(
		makeHeadCell("Line", widths[colLine], fyne.TextAlignCenter),
		makeHeadCell("Address", widths[colAddr], fyne.TextAlignLeading),
		makeHeadCell("Amount", widths[colAmt], fyne.TextAlignTrailing),
		makeHeadCell("Est. fee", widths[colFeeV], fyne.TextAlignTrailing),
		makeHeadCell("Status", widths[colStat], fyne.TextAlignLeading),
		makeHeadCell("Details", widths[colReason], fyne.TextAlignLeading),
	)

	sortKey = func() string { return viewSort.Selected }
	rebuildViewIdx()
	onChange := func() {
		rebuildViewIdx()
		if viewTable != nil {
			viewTable.Refresh()
		}
	}
	viewFilter.OnChanged = func(string) { onChange() }
	viewStatus.OnChanged = func(string) { onChange() }
	viewSort.OnChanged = func(string) { onChange() }
	viewAsc.OnChanged = func(bool) { onChange() }

	viewTable = widget.NewTable(
		func() (int, int) { return len(viewIdx), colN },
		func() fyne.CanvasObject {
			bg := canvas.NewRectangle(color.Transparent)
			bg.SetMinSize(fyne.NewSize(0, 28))
			lbl := widget.NewLabel("")
			lbl.Truncation = fyne.TextTruncateEllipsis
			lbl.Wrapping = fyne.TextWrapOff
			return container.NewMax(bg, container.NewPadded(lbl))
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			if id.Row < 0 || id.Row >= len(viewIdx) {
				return
			}
			rs, ok := rowAt(viewIdx[id.Row])
			if !ok {
				return
			}
			c := obj.(*fyne.Container)
			bg := c.Objects[0].(*canvas.Rectangle)
			lbl := c.Objects[1].(*fyne.Container).Objects[0].(*widget.Label)
			if id.Row%2 == 0 {
				bg.FillColor = color.NRGBA{R: 22, G: 26, B: 34, A: 255}
			} else {
				bg.FillColor = color.NRGBA{R: 16, G: 20, B: 28, A: 255}
			}
			lbl.Alignment = fyne.TextAlignLeading
			switch id.Col {
			case colLine:
				lbl.Alignment = fyne.TextAlignCenter
				lbl.SetText(fmt.Sprintf("%d", rs.rec.Line))
			case colAddr:
				lbl.SetText(rs.rec.Address)
			case colAmt:
				lbl.Alignment = fyne.TextAlignTrailing
				lbl.SetText(rs.rec.Amount)
			case colFeeV:
				lbl.Alignment = fyne.TextAlignTrailing
				lbl.SetText(rs.fee)
			case colStat:
				lbl.SetText(rs.status)
			case colReason:
				lbl.SetText(strings.ReplaceAll(rs.detail, "\n", " · "))
			}
			bg.Refresh()
			c.Refresh()
		},
	)
	for i, w := range widths {
		viewTable.SetColumnWidth(i, w)
	}

	filterWrap := func(obj fyne.CanvasObject, w float32) fyne.CanvasObject {
		r := canvas.NewRectangle(color.Transparent)
		r.SetMinSize(fyne.NewSize(w, 36))
		return container.NewMax(r, container.NewPadded(obj))
	}
	controls := container.NewHBox(
		filterWrap(viewFilter, widths[colLine]+widths[colAddr]),
		filterWrap(viewSort, widths[colAmt]),
		filterWrap(viewAsc, widths[colFeeV]),
		filterWrap(viewStatus, widths[colStat]),
	)
	top := container.NewVBox(headerWrap, controls)
	bg := canvas.NewLinearGradient(color.NRGBA{12, 16, 24, 255}, color.NRGBA{20, 28, 40, 255}, 90)
	viewWin.SetContent(container.NewBorder(top, nil, nil, nil, container.NewMax(bg, viewTable)))
	viewWin.Resize(fyne.NewSize(1200, 620))
	viewWin.Show()
}

var sortKey = func() string { return sortByLine }

func statusMatches(status, want string) bool {
	switch want {
	case viewOK:
		return strings.HasPrefix(status, statusSubmitted)
	case viewFailed:
		return status == statusFailed || status == statusTimeout || status == statusCancelled
	case viewPending:
		return status == statusPending || status == statusQuoted
	}
	return true
}

// rebuildViewIdx rebuilds filtered/sorted indices.
func rebuildViewIdx() {
	q := ""
	if viewFilter != nil {
		q = strings.ToLower(strings.TrimSpace(viewFilter.Text))
	}
	want := viewAll
	if viewStatus != nil {
		want = viewStatus.Selected
	}
	asc := viewAsc == nil || viewAsc.Checked

	rowsMu.Lock()
	snapshot := append([]rowState(nil), rows...)
	rowsMu.Unlock()

	viewIdx = viewIdx[:0]
	for i, r := range snapshot {
		if q != "" && !strings.Contains(strings.ToLower(r.rec.Address), q) {
			continue
		}
		if !statusMatches(r.status, want) {
			continue
		}
		viewIdx = append(viewIdx, i)
	}
	key := sortKey()
	sort.SliceStable(viewIdx, func(i, j int) bool {
		a, b := snapshot[viewIdx[i]], snapshot[viewIdx[j]]
		var less bool
		if key == sortByAmount {
			less = amountOf(a.rec.Amount).LessThan(amountOf(b.rec.Amount))
		} else {
			less = a.rec.Line < b.rec.Line
		}
		if asc {
			return less
		}
		return !less
	})
}

// amountOf orders unparseable amounts first.
func amountOf(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NewFromInt(-1)
	}
	return d
}
