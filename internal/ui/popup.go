package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const popupMaxWidth = 40

// wrapWords breaks text into lines of at most width runes. Words longer
// than width are split.
func wrapWords(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		var line []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(line) > 0 {
					lines = append(lines, string(line))
					line = nil
				}
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(line) == 0:
				line = w
			case len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
			default:
				lines = append(lines, string(line))
				line = w
			}
		}
		lines = append(lines, string(line))
	}
	return lines
}

// popupRect returns the top-left corner and size of the popup box for a
// pointer at (px, py). The box sits below and right of the pointer and
// flips to stay on the canvas.
func popupRect(px, py, boxW, boxH, width, height int) (x, y int) {
	x, y = px+2, py+1
	if x+boxW > width {
		x = px - boxW - 1
	}
	if y+boxH > height {
		y = py - boxH
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

// drawPopup draws a bordered text box next to the pointer.
func drawPopup(c *canvas, text string, px, py int, border lipgloss.Color) {
	inner := popupMaxWidth
	if c.width-4 < inner {
		inner = c.width - 4
	}
	if inner < 1 {
		return
	}

	lines := wrapWords(text, inner)
	if maxLines := c.height - 2; maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] = truncate(lines[maxLines-1]+"...", inner)
	}
	textW := 0
	for _, l := range lines {
		if n := len([]rune(l)); n > textW {
			textW = n
		}
	}
	boxW, boxH := textW+4, len(lines)+2
	x, y := popupRect(px, py, boxW, boxH, c.width, c.height)

	c.set(x, y, '╭', border)
	c.set(x+boxW-1, y, '╮', border)
	c.set(x, y+boxH-1, '╰', border)
	c.set(x+boxW-1, y+boxH-1, '╯', border)
	for i := 1; i < boxW-1; i++ {
		c.set(x+i, y, '─', border)
		c.set(x+i, y+boxH-1, '─', border)
	}
	for row, l := range lines {
		yy := y + 1 + row
		c.set(x, yy, '│', border)
		c.set(x+boxW-1, yy, '│', border)
		c.text(x+1, yy, strings.Repeat(" ", boxW-2), colorPopupText)
		c.text(x+2, yy, l, colorPopupText)
	}
}
