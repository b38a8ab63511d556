package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/config"
	"github.com/litescript/ls-textmoc/internal/region"
	"github.com/litescript/ls-textmoc/internal/session"
)

const (
	// Animation
	animDuration  = 400 * time.Millisecond
	animFrameRate = 30 * time.Millisecond

	// Camera steps
	panFraction = 0.1 // of the current field of view
	zoomStep    = 0.8

	// Graticule spacing in degrees
	gridStep = 30.0

	colorBackground = "236"
	colorGrid       = "238"
	colorEquator    = "60"
	colorLabel      = "252"
	colorAnnotation = "229" // bright gold
	colorPopupText  = "255"
	colorBorder     = "#9D4EDD"

	// Star colors (grayscale so regions stay readable)
	colorStarBright = "255"
	colorStarMedium = "250"
	colorStarDim    = "244"
)

// LabelMode controls which labels are drawn on the map.
type LabelMode int

const (
	LabelNone        LabelMode = iota // No labels
	LabelAnnotations                  // Cell annotations only
	LabelAll                          // Annotations and region names
)

func (l LabelMode) String() string {
	switch l {
	case LabelNone:
		return "off"
	case LabelAnnotations:
		return "cells"
	default:
		return "all"
	}
}

// SkyViewModel draws regions over an equirectangular sky map.
type SkyViewModel struct {
	proj astro.Projection

	home    astro.Point
	homeFov float64

	// Animation state
	animating bool
	animFrom  astro.Point
	animTarg  astro.Point
	animStart time.Time

	labelMode LabelMode
	showStars bool
	starMag   float64
	showGrid  bool
	gameColor string
}

// NewSkyViewModel creates a sky view from display settings.
func NewSkyViewModel(cfg config.DisplayConfig) SkyViewModel {
	home := astro.Point{Lon: cfg.CenterLon, Lat: cfg.CenterLat}
	fov := cfg.FovDeg
	if fov <= 0 {
		fov = config.MaxFov
	}
	labels := LabelNone
	if cfg.ShowLabels {
		labels = LabelAll
	}
	return SkyViewModel{
		proj: astro.Projection{
			Center: home,
			FovLon: fov,
			FovLat: fov / 2,
		},
		home:      home,
		homeFov:   fov,
		labelMode: labels,
		showStars: cfg.ShowStars,
		starMag:   cfg.StarMagLimit,
		showGrid:  cfg.ShowGrid,
		gameColor: cfg.GameColor,
	}
}

// SetSize updates the canvas size.
func (m SkyViewModel) SetSize(width, height int) SkyViewModel {
	m.proj.Width = width
	m.proj.Height = height
	return m
}

// Projection returns the current camera.
func (m SkyViewModel) Projection() astro.Projection {
	return m.proj
}

// PointAt returns the sky point under canvas cell (x, y).
func (m SkyViewModel) PointAt(x, y int) (astro.Point, bool) {
	return m.proj.Unproject(x, y)
}

// animTickMsg is sent during animation
type animTickMsg time.Time

func animTick() tea.Cmd {
	return tea.Tick(animFrameRate, func(t time.Time) tea.Msg {
		return animTickMsg(t)
	})
}

// Update handles camera keys and animation frames.
func (m SkyViewModel) Update(msg tea.Msg) (SkyViewModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		step := m.proj.FovLon * panFraction
		switch msg.String() {
		case "left":
			// RA grows to the left
			m.proj = m.proj.Pan(step, 0)
		case "right":
			m.proj = m.proj.Pan(-step, 0)
		case "up":
			m.proj = m.proj.Pan(0, step/2)
		case "down":
			m.proj = m.proj.Pan(0, -step/2)
		case "+", "=":
			m.proj = m.proj.Zoom(zoomStep, config.MinFov)
		case "-", "_":
			m.proj = m.proj.Zoom(1/zoomStep, config.MinFov)
		case "l":
			m = m.cycleLabelMode()
		case "t":
			m.showStars = !m.showStars
		case "g":
			m.showGrid = !m.showGrid
		}

	case animTickMsg:
		if m.animating {
			return m.updateAnimation()
		}
	}

	return m, nil
}

// ZoomAt zooms by one step, in or out.
func (m SkyViewModel) ZoomAt(in bool) SkyViewModel {
	if in {
		m.proj = m.proj.Zoom(zoomStep, config.MinFov)
	} else {
		m.proj = m.proj.Zoom(1/zoomStep, config.MinFov)
	}
	return m
}

func (m SkyViewModel) cycleLabelMode() SkyViewModel {
	m.labelMode = (m.labelMode + 1) % 3
	return m
}

// Reset restores the home field of view and flies back to the home centre.
func (m SkyViewModel) Reset() (SkyViewModel, tea.Cmd) {
	m.proj.FovLon = m.homeFov
	m.proj.FovLat = m.homeFov / 2
	return m.FlyTo(m.home)
}

// FlyTo animates the camera centre to p.
func (m SkyViewModel) FlyTo(p astro.Point) (SkyViewModel, tea.Cmd) {
	m.animating = true
	m.animFrom = m.proj.Center
	m.animTarg = p
	m.animStart = time.Now()
	return m, animTick()
}

func (m SkyViewModel) updateAnimation() (SkyViewModel, tea.Cmd) {
	elapsed := time.Since(m.animStart)
	t := float64(elapsed) / float64(animDuration)

	if t >= 1.0 {
		m.animating = false
		m.proj.Center = m.animTarg
		return m, nil
	}

	// Ease-out cubic
	t = 1 - math.Pow(1-t, 3)

	m.proj.Center = astro.Point{
		Lon: astro.NormalizeLon(lerpAngle(m.animFrom.Lon, m.animTarg.Lon, t)),
		Lat: lerp(m.animFrom.Lat, m.animTarg.Lat, t),
	}
	return m, animTick()
}

// lerpAngle interpolates between angles, taking shortest path
func lerpAngle(a, b, t float64) float64 {
	return a + astro.WrapDelta(b-a)*t
}

// lerp linear interpolation
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// canvas is a character grid with one foreground colour per cell.
type canvas struct {
	width, height int
	runes         [][]rune
	colors        [][]lipgloss.Color
}

func newCanvas(width, height int) *canvas {
	c := &canvas{
		width:  width,
		height: height,
		runes:  make([][]rune, height),
		colors: make([][]lipgloss.Color, height),
	}
	for y := 0; y < height; y++ {
		c.runes[y] = make([]rune, width)
		c.colors[y] = make([]lipgloss.Color, width)
		for x := 0; x < width; x++ {
			c.runes[y][x] = ' '
			c.colors[y][x] = colorBackground
		}
	}
	return c
}

func (c *canvas) set(x, y int, r rune, color lipgloss.Color) bool {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return false
	}
	c.runes[y][x] = r
	c.colors[y][x] = color
	return true
}

// text writes s starting at (x, y), clipped to the canvas.
func (c *canvas) text(x, y int, s string, color lipgloss.Color) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r, color)
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			style := lipgloss.NewStyle().Foreground(c.colors[y][x])
			b.WriteString(style.Render(string(c.runes[y][x])))
		}
		if y < c.height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Render draws the map for the given regions and session. pointerX and
// pointerY locate the popup; pass -1 when the pointer is off the map.
func (m SkyViewModel) Render(set *region.Set, st *session.State, pointerX, pointerY int) string {
	w, h := m.proj.Width, m.proj.Height
	if w <= 0 || h <= 0 {
		return ""
	}
	c := newCanvas(w, h)
	game := st != nil && st.Mode == session.ModeGame

	if m.showGrid {
		m.drawGrid(c)
	}
	m.drawRegions(c, set, game)
	if m.showStars {
		m.drawStars(c)
	}
	// No labels during a game.
	if !game {
		m.drawLabels(c, set)
	}
	if st != nil && st.PopupVisible && pointerX >= 0 && pointerY >= 0 {
		color := lipgloss.Color(colorBorder)
		if st.Region != nil && !game {
			color = lipgloss.Color(st.Region.Style.Color)
		}
		drawPopup(c, st.PopupText, pointerX, pointerY, color)
	}
	return c.String()
}

func (m SkyViewModel) drawGrid(c *canvas) {
	midX, midY := c.width/2, c.height/2

	for lat := -90 + gridStep; lat < 90; lat += gridStep {
		color := lipgloss.Color(colorGrid)
		if lat == 0 {
			color = colorEquator
		}
		for x := 0; x < c.width; x++ {
			p, ok := m.proj.Unproject(x, midY)
			if !ok {
				continue
			}
			if px, py, ok := m.proj.Project(astro.Point{Lon: p.Lon, Lat: lat}); ok && px == x {
				c.set(px, py, '─', color)
			}
		}
	}

	for lon := 0.0; lon < 360; lon += gridStep {
		for y := 0; y < c.height; y++ {
			p, ok := m.proj.Unproject(midX, y)
			if !ok {
				continue
			}
			if px, py, ok := m.proj.Project(astro.Point{Lon: lon, Lat: p.Lat}); ok && py == y {
				r := '│'
				if c.runes[py][px] == '─' {
					r = '┼'
				}
				c.set(px, py, r, colorGrid)
			}
		}
	}
}

// drawRegions shades every cell whose centre falls inside a region. The
// winning region's style applies; cells on a region boundary are drawn
// as perimeter.
func (m SkyViewModel) drawRegions(c *canvas, set *region.Set, game bool) {
	if set.Len() == 0 {
		return
	}
	owner := make([][]*region.Region, c.height)
	for y := 0; y < c.height; y++ {
		owner[y] = make([]*region.Region, c.width)
		for x := 0; x < c.width; x++ {
			if p, ok := m.proj.Unproject(x, y); ok {
				owner[y][x] = set.Hit(p)
			}
		}
	}

	at := func(x, y int) *region.Region {
		if x < 0 || y < 0 || x >= c.width || y >= c.height {
			return nil
		}
		return owner[y][x]
	}

	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			r := owner[y][x]
			if r == nil {
				continue
			}
			color := lipgloss.Color(r.Style.Color)
			if game {
				color = lipgloss.Color(m.gameColor)
			}

			edge := false
			if r.Style.Perimeter {
				lw := r.Style.LineWidth
				if lw < 1 {
					lw = 1
				}
				for d := 1; d <= lw && !edge; d++ {
					edge = at(x-d, y) != r || at(x+d, y) != r || at(x, y-d) != r || at(x, y+d) != r
				}
			}

			switch {
			case edge:
				c.set(x, y, '█', color)
			case r.Style.Fill:
				c.set(x, y, r.Style.ShadeGlyph(), color)
			}
		}
	}
}

func (m SkyViewModel) drawStars(c *canvas) {
	for _, s := range astro.StarsInView(m.proj, m.starMag) {
		x, y, ok := m.proj.Project(s.Pos)
		if !ok {
			continue
		}
		c.set(x, y, s.Glyph(), starColor(s.Mag))
	}
}

func starColor(mag float64) lipgloss.Color {
	switch {
	case mag < 0.5:
		return colorStarBright
	case mag < 1.5:
		return colorStarMedium
	default:
		return colorStarDim
	}
}

// drawLabels writes annotation and region labels. Annotations claim their
// cells first; a label overlapping a claimed cell is skipped.
func (m SkyViewModel) drawLabels(c *canvas, set *region.Set) {
	if m.labelMode == LabelNone || set.Len() == 0 {
		return
	}
	claimed := make(map[[2]int]bool)

	place := func(p astro.Point, label string, color lipgloss.Color) {
		x, y, ok := m.proj.Project(p)
		if !ok {
			return
		}
		runes := []rune(label)
		x -= len(runes) / 2
		for i := range runes {
			if claimed[[2]int{x + i, y}] {
				return
			}
		}
		for i := range runes {
			claimed[[2]int{x + i, y}] = true
		}
		c.text(x, y, label, color)
	}

	for _, r := range set.Regions() {
		for _, a := range r.Annotations {
			place(a.Position(), truncate(a.Text, 24), colorAnnotation)
		}
	}
	if m.labelMode != LabelAll {
		return
	}
	for _, r := range set.Regions() {
		place(r.Centroid(), truncate(r.Name, 24), colorLabel)
	}
}

// Header returns the one-line camera summary.
func (m SkyViewModel) Header() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorBorder))

	camera := dimStyle.Render(fmt.Sprintf("RA:%.1f° Dec:%+.1f° FOV:%.0f°",
		m.proj.Center.Lon, m.proj.Center.Lat, m.proj.FovLon))
	labels := accentStyle.Render("Labels: " + m.labelMode.String())
	return camera + " | " + labels
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
