package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// pane is a titled TextView that can take focus for scrolling.
type pane struct {
	tv        *tview.TextView
	baseTitle string
}

func newPane(title string) *pane {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	tv.SetBorder(true)
	p := &pane{tv: tv, baseTitle: title}
	p.setFocused(false)
	return p
}

func (p *pane) setFocused(focused bool) {
	if focused {
		p.tv.SetTitle(" [yellow]" + p.baseTitle + "[-] ").SetTitleAlign(tview.AlignLeft)
		p.tv.SetBorderColor(tcell.ColorYellow)
		return
	}
	p.tv.SetTitle(" " + p.baseTitle + " ").SetTitleAlign(tview.AlignLeft)
	p.tv.SetBorderColor(tcell.ColorGray)
}

// scroll handles paging keys for the focused pane.
func (p *pane) scroll(ev *tcell.EventKey) bool {
	row, col := p.tv.GetScrollOffset()
	_, _, _, height := p.tv.GetInnerRect()
	if height <= 0 {
		height = 1
	}
	switch ev.Key() {
	case tcell.KeyUp:
		row--
	case tcell.KeyDown:
		row++
	case tcell.KeyPgUp:
		row -= height
	case tcell.KeyPgDn:
		row += height
	case tcell.KeyHome:
		row = 0
	case tcell.KeyEnd:
		p.tv.ScrollToEnd()
		return true
	default:
		return false
	}
	if row < 0 {
		row = 0
	}
	p.tv.ScrollTo(row, col)
	return true
}

// focusGroup cycles focus through panes with Tab.
type focusGroup struct {
	items []*pane
	index int
}

func newFocusGroup(items ...*pane) focusGroup {
	return focusGroup{items: items}
}

func (g *focusGroup) set(app *tview.Application, idx int) {
	if len(g.items) == 0 {
		return
	}
	if idx < 0 || idx >= len(g.items) {
		idx = 0
	}
	g.index = idx
	for i, item := range g.items {
		item.setFocused(i == idx)
	}
	if app != nil {
		app.SetFocus(g.items[idx].tv)
	}
}

func (g *focusGroup) cycle(app *tview.Application, delta int) {
	n := len(g.items)
	if n == 0 {
		return
	}
	g.set(app, ((g.index+delta)%n+n)%n)
}

func (g *focusGroup) focused() *pane {
	if len(g.items) == 0 {
		return nil
	}
	return g.items[g.index]
}

// lineBuffer keeps the newest max lines of a pane.
type lineBuffer struct {
	lines []string
	max   int
}

func (b *lineBuffer) add(line string) string {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
	return strings.Join(b.lines, "\n")
}
