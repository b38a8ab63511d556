// Package moc implements HEALPix Multi-Order Coverage maps: parsing the JSON
// serialization, point containment, and sky-fraction accounting.
package moc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Sentinel errors returned by Parse.
var (
	ErrInvalidOrder = errors.New("invalid MOC order")
	ErrInvalidPixel = errors.New("invalid MOC pixel")
	ErrEmpty        = errors.New("MOC has no cells")
)

// Range is a half-open interval [Start, End) of NESTED pixels at the
// owning MOC's depth.
type Range struct {
	Start uint64
	End   uint64
}

// MOC is an immutable set of HEALPix cells.
type MOC struct {
	depth  int
	ranges []Range
	cells  map[int][]uint64 // as given, per order
}

// Parse reads the JSON serialization {"<order>": [pixel, ...], ...}.
// Keys that are not integers are ignored so textual-MOC metadata can ride
// along in the same object.
func Parse(data []byte) (*MOC, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode MOC: %w", err)
	}

	cells := make(map[int][]uint64)
	for key, val := range raw {
		order, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if order < 0 || order > MaxOrder {
			return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
		}
		var pixels []uint64
		if err := json.Unmarshal(val, &pixels); err != nil {
			return nil, fmt.Errorf("decode order %d: %w", order, err)
		}
		limit := NPix(order)
		for _, p := range pixels {
			if p >= limit {
				return nil, fmt.Errorf("%w: order %d pixel %d", ErrInvalidPixel, order, p)
			}
		}
		cells[order] = append(cells[order], pixels...)
	}

	return New(cells)
}

// New builds a MOC from per-order pixel lists.
func New(cells map[int][]uint64) (*MOC, error) {
	depth := -1
	for order, pixels := range cells {
		if order < 0 || order > MaxOrder {
			return nil, fmt.Errorf("%w: %d", ErrInvalidOrder, order)
		}
		if len(pixels) > 0 && order > depth {
			depth = order
		}
	}
	if depth < 0 {
		return nil, ErrEmpty
	}

	var ranges []Range
	copied := make(map[int][]uint64, len(cells))
	for order, pixels := range cells {
		if len(pixels) == 0 {
			continue
		}
		shift := 2 * uint(depth-order)
		for _, p := range pixels {
			ranges = append(ranges, Range{Start: p << shift, End: (p + 1) << shift})
		}
		ps := append([]uint64(nil), pixels...)
		sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
		copied[order] = ps
	}

	return &MOC{
		depth:  depth,
		ranges: mergeRanges(ranges),
		cells:  copied,
	}, nil
}

// mergeRanges sorts and coalesces overlapping or touching ranges.
func mergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	out := []Range{ranges[0]}
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Depth returns the deepest order present.
func (m *MOC) Depth() int {
	return m.depth
}

// Ranges returns a copy of the normalized ranges at Depth.
func (m *MOC) Ranges() []Range {
	out := make([]Range, len(m.ranges))
	copy(out, m.ranges)
	return out
}

// Contains reports whether the point (degrees) falls inside the coverage.
func (m *MOC) Contains(lonDeg, latDeg float64) bool {
	return m.containsPix(Ang2Pix(m.depth, lonDeg, latDeg))
}

func (m *MOC) containsPix(pix uint64) bool {
	i := sort.Search(len(m.ranges), func(i int) bool { return m.ranges[i].End > pix })
	return i < len(m.ranges) && m.ranges[i].Start <= pix
}

// Has reports whether the cell (order, pixel) was listed explicitly.
func (m *MOC) Has(order int, pixel uint64) bool {
	ps := m.cells[order]
	i := sort.Search(len(ps), func(i int) bool { return ps[i] >= pixel })
	return i < len(ps) && ps[i] == pixel
}

// Cells returns the explicitly listed pixels per order.
func (m *MOC) Cells() map[int][]uint64 {
	out := make(map[int][]uint64, len(m.cells))
	for order, ps := range m.cells {
		out[order] = append([]uint64(nil), ps...)
	}
	return out
}

// SkyFraction returns the fraction of the sphere covered (0..1).
func (m *MOC) SkyFraction() float64 {
	var n uint64
	for _, r := range m.ranges {
		n += r.End - r.Start
	}
	return float64(n) / float64(NPix(m.depth))
}

// Centroid returns the mean direction of the listed cell centres, weighted
// by cell area. It is only meaningful for compact regions.
func (m *MOC) Centroid() (lonDeg, latDeg float64) {
	var x, y, z float64
	for order, ps := range m.cells {
		w := 1 / float64(NPix(order))
		for _, p := range ps {
			lon, lat := Pix2Ang(order, p)
			cx, cy, cz := toVec(lon, lat)
			x += w * cx
			y += w * cy
			z += w * cz
		}
	}
	return fromVec(x, y, z)
}

// MarshalJSON writes the per-order serialization.
func (m *MOC) MarshalJSON() ([]byte, error) {
	out := make(map[string][]uint64, len(m.cells))
	for order, ps := range m.cells {
		out[strconv.Itoa(order)] = ps
	}
	return json.Marshal(out)
}
