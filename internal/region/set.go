package region

import (
	"sort"

	"github.com/litescript/ls-textmoc/internal/astro"
)

// Set is an immutable, ordered collection of regions.
//
// Overlaps resolve deterministically: regions are tested by descending
// Priority, then by their position in the source list, and the first
// containing region wins.
type Set struct {
	regions []*Region // source order
	order   []*Region // evaluation order
}

// NewSet builds a set. The slice is copied.
func NewSet(regions []*Region) *Set {
	src := make([]*Region, len(regions))
	copy(src, regions)

	order := make([]*Region, len(regions))
	copy(order, regions)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Priority != order[j].Priority {
			return order[i].Priority > order[j].Priority
		}
		return order[i].Index < order[j].Index
	})

	return &Set{regions: src, order: order}
}

// Len returns the number of regions.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.regions)
}

// Regions returns the regions in source order.
func (s *Set) Regions() []*Region {
	if s == nil {
		return nil
	}
	out := make([]*Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Hit returns the winning region under p, or nil.
func (s *Set) Hit(p astro.Point) *Region {
	if s == nil {
		return nil
	}
	for _, r := range s.order {
		if r.Contains(p) {
			return r
		}
	}
	return nil
}

// HitAll returns every region containing p, in evaluation order.
func (s *Set) HitAll(p astro.Point) []*Region {
	if s == nil {
		return nil
	}
	var out []*Region
	for _, r := range s.order {
		if r.Contains(p) {
			out = append(out, r)
		}
	}
	return out
}

// Target returns the first target region in evaluation order, or nil.
func (s *Set) Target() *Region {
	if s == nil {
		return nil
	}
	for _, r := range s.order {
		if r.IsTarget {
			return r
		}
	}
	return nil
}

// Nearest returns the region whose centroid is closest to p and the
// separation in degrees. It returns nil for an empty set.
func (s *Set) Nearest(p astro.Point) (*Region, float64) {
	if s == nil {
		return nil, 0
	}
	var best *Region
	bestSep := 0.0
	for _, r := range s.order {
		sep := astro.AngularSeparation(p, r.Centroid())
		if best == nil || sep < bestSep {
			best = r
			bestSep = sep
		}
	}
	return best, bestSep
}

// ByName returns the region with the given name, or nil.
func (s *Set) ByName(name string) *Region {
	if s == nil {
		return nil
	}
	for _, r := range s.regions {
		if r.Name == name {
			return r
		}
	}
	return nil
}
