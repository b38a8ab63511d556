// Package region loads annotated sky regions and answers which region, if
// any, lies under a pointer.
package region

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-textmoc/internal/astro"
	"github.com/litescript/ls-textmoc/internal/moc"
)

// ErrNoRegions is returned when a region source holds no records.
var ErrNoRegions = errors.New("no regions in source")

// Style controls how a region is drawn.
type Style struct {
	Color     string  // lipgloss colour (hex or ANSI index)
	Opacity   float64 // 0..1, mapped to fill shade
	LineWidth int     // perimeter thickness in cells
	Fill      bool
	Perimeter bool
}

// DefaultStyle matches the demo defaults: translucent fill with an outline.
func DefaultStyle() Style {
	return Style{
		Color:     "#9D4EDD",
		Opacity:   0.5,
		LineWidth: 1,
		Fill:      true,
		Perimeter: true,
	}
}

// ShadeGlyph returns the fill character for the style's opacity.
func (s Style) ShadeGlyph() rune {
	switch {
	case s.Opacity >= 0.75:
		return '▓'
	case s.Opacity >= 0.4:
		return '▒'
	default:
		return '░'
	}
}

// Annotation is a text label attached to one MOC cell.
type Annotation struct {
	Order int
	Pixel uint64
	Text  string
}

// Position returns the centre of the annotated cell.
func (a Annotation) Position() astro.Point {
	lon, lat := moc.Pix2Ang(a.Order, a.Pixel)
	return astro.Point{Lon: lon, Lat: lat}
}

// Region is an immutable annotated coverage.
type Region struct {
	Name        string
	Text        string
	IsTarget    bool
	Priority    int
	Media       string // multimedia link
	Image       string // hips2fits cutout link
	Index       int
	Style       Style
	Annotations []Annotation
	Geometry    []byte // record with text/isTarget removed
	Coverage    *moc.MOC
}

// Contains reports whether p lies inside the region.
func (r *Region) Contains(p astro.Point) bool {
	return r.Coverage.Contains(p.Lon, p.Lat)
}

// Key identifies the region across reloads of the same source.
func (r *Region) Key() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%d:%s", r.Index, r.Name)
}

// Same reports whether r and other are the same region, possibly from
// different loads.
func (r *Region) Same(other *Region) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r == other || r.Key() == other.Key()
}

// Centroid returns the area-weighted centre of the region's cells.
func (r *Region) Centroid() astro.Point {
	lon, lat := r.Coverage.Centroid()
	return astro.Point{Lon: lon, Lat: lat}
}

// FromRecord builds a region from one JSON record.
func FromRecord(raw []byte, index int, style Style) (*Region, error) {
	geometry, aux := Split(raw)

	coverage, err := moc.Parse(geometry)
	if err != nil {
		return nil, fmt.Errorf("region %d: %w", index, err)
	}

	r := &Region{
		Name:     fmt.Sprintf("Region %d", index+1),
		Text:     aux.Text,
		IsTarget: aux.IsTarget,
		Index:    index,
		Style:    style,
		Geometry: geometry,
		Coverage: coverage,
	}

	if name := gjson.GetBytes(geometry, "name"); name.Exists() && name.String() != "" {
		r.Name = name.String()
	}
	// Textual MOCs keep their prose under custom_text.
	if r.Text == "" {
		r.Text = gjson.GetBytes(geometry, "custom_text").String()
	}
	r.Media = gjson.GetBytes(geometry, "multimedia").String()
	r.Image = gjson.GetBytes(geometry, "hips2fits_image").String()
	if prio := gjson.GetBytes(geometry, "priority"); prio.Exists() {
		r.Priority = int(prio.Int())
	}
	if color := gjson.GetBytes(geometry, "color"); color.Exists() && color.String() != "" {
		r.Style.Color = color.String()
	}
	if op := gjson.GetBytes(geometry, "opacity"); op.Exists() {
		r.Style.Opacity = math.Max(0, math.Min(1, op.Float()))
	}
	r.Annotations = parseAnnotations(geometry)

	return r, nil
}

func parseAnnotations(geometry []byte) []Annotation {
	var out []Annotation
	gjson.GetBytes(geometry, "annotated_cells").ForEach(func(orderKey, pixels gjson.Result) bool {
		order, err := strconv.Atoi(orderKey.String())
		if err != nil || order < 0 || order > moc.MaxOrder {
			return true
		}
		pixels.ForEach(func(pixKey, text gjson.Result) bool {
			pix, err := strconv.ParseUint(pixKey.String(), 10, 64)
			if err != nil || pix >= moc.NPix(order) {
				return true
			}
			out = append(out, Annotation{Order: order, Pixel: pix, Text: text.String()})
			return true
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Pixel < out[j].Pixel
	})
	return out
}
