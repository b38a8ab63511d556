package astro

// Projection maps the sky onto a character grid with an equirectangular
// (plate carrée) projection around a camera centre. RA increases to the
// left, as on a sky chart seen from inside the sphere.
type Projection struct {
	Center Point
	FovLon float64 // horizontal field of view in degrees
	FovLat float64 // vertical field of view in degrees
	Width  int
	Height int
}

// Project converts a sky point to a grid cell. ok is false when the point
// lies outside the field of view.
func (p Projection) Project(pt Point) (x, y int, ok bool) {
	if p.Width <= 0 || p.Height <= 0 {
		return 0, 0, false
	}
	dLon := WrapDelta(pt.Lon - p.Center.Lon)
	dLat := pt.Lat - p.Center.Lat

	if dLon < -p.FovLon/2 || dLon > p.FovLon/2 {
		return 0, 0, false
	}
	if dLat < -p.FovLat/2 || dLat > p.FovLat/2 {
		return 0, 0, false
	}

	// X: +fovLon/2..-fovLon/2 -> 0..width (RA grows leftwards)
	// Y: +fovLat/2..-fovLat/2 -> 0..height
	x = int((p.FovLon/2 - dLon) / p.FovLon * float64(p.Width))
	y = int((p.FovLat/2 - dLat) / p.FovLat * float64(p.Height))
	if x >= p.Width {
		x = p.Width - 1
	}
	if y >= p.Height {
		y = p.Height - 1
	}
	return x, y, true
}

// Unproject returns the sky point under the centre of grid cell (x, y).
// ok is false for cells outside the grid or beyond the poles.
func (p Projection) Unproject(x, y int) (Point, bool) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return Point{}, false
	}
	fx := (float64(x) + 0.5) / float64(p.Width)
	fy := (float64(y) + 0.5) / float64(p.Height)

	lon := p.Center.Lon + p.FovLon/2 - fx*p.FovLon
	lat := p.Center.Lat + p.FovLat/2 - fy*p.FovLat
	if lat > 90 || lat < -90 {
		return Point{}, false
	}
	return Point{Lon: NormalizeLon(lon), Lat: lat}, true
}

// Pan moves the centre by the given offsets in degrees, keeping the
// centre latitude inside the sphere.
func (p Projection) Pan(dLon, dLat float64) Projection {
	p.Center.Lon = NormalizeLon(p.Center.Lon + dLon)
	p.Center.Lat = clampLat(p.Center.Lat + dLat)
	return p
}

// Zoom scales both fields of view by factor, bounded to [minFov, 360].
func (p Projection) Zoom(factor, minFov float64) Projection {
	p.FovLon = boundFov(p.FovLon*factor, minFov, 360)
	p.FovLat = boundFov(p.FovLat*factor, minFov/2, 180)
	return p
}

func boundFov(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
