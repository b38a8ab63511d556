package astro

import "sort"

// Star is a bright star drawn as background on the sky map.
type Star struct {
	Name string
	Pos  Point
	Mag  float64 // apparent visual magnitude (lower = brighter)
}

// Glyph returns the character used for the star at its magnitude.
func (s Star) Glyph() rune {
	switch {
	case s.Mag < 0.5:
		return '✶'
	case s.Mag < 1.5:
		return '✸'
	case s.Mag < 2.0:
		return '+'
	default:
		return '·'
	}
}

// BrightStars returns the catalog sorted brightest first.
// Coordinates are J2000, from the Yale Bright Star Catalog.
func BrightStars() []Star {
	out := make([]Star, len(brightStars))
	copy(out, brightStars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mag < out[j].Mag })
	return out
}

// StarsInView returns catalog stars brighter than maxMag that project
// into the given view.
func StarsInView(proj Projection, maxMag float64) []Star {
	var out []Star
	for _, s := range brightStars {
		if s.Mag > maxMag {
			continue
		}
		if _, _, ok := proj.Project(s.Pos); ok {
			out = append(out, s)
		}
	}
	return out
}

var brightStars = []Star{
	{Name: "Sirius", Pos: Point{101.287, -16.716}, Mag: -1.46},
	{Name: "Canopus", Pos: Point{95.988, -52.696}, Mag: -0.74},
	{Name: "Arcturus", Pos: Point{213.915, 19.182}, Mag: -0.05},
	{Name: "Vega", Pos: Point{279.235, 38.784}, Mag: 0.03},
	{Name: "Capella", Pos: Point{79.172, 45.998}, Mag: 0.08},
	{Name: "Rigel", Pos: Point{78.634, -8.202}, Mag: 0.13},
	{Name: "Procyon", Pos: Point{114.826, 5.225}, Mag: 0.34},
	{Name: "Achernar", Pos: Point{24.429, -57.237}, Mag: 0.46},
	{Name: "Betelgeuse", Pos: Point{88.793, 7.407}, Mag: 0.50},
	{Name: "Hadar", Pos: Point{210.956, -60.373}, Mag: 0.61},
	{Name: "Altair", Pos: Point{297.696, 8.868}, Mag: 0.76},
	{Name: "Acrux", Pos: Point{186.650, -63.099}, Mag: 0.76},
	{Name: "Aldebaran", Pos: Point{68.980, 16.509}, Mag: 0.85},
	{Name: "Antares", Pos: Point{247.352, -26.432}, Mag: 0.96},
	{Name: "Spica", Pos: Point{201.298, -11.161}, Mag: 0.97},
	{Name: "Pollux", Pos: Point{116.329, 28.026}, Mag: 1.14},
	{Name: "Fomalhaut", Pos: Point{344.413, -29.622}, Mag: 1.16},
	{Name: "Deneb", Pos: Point{310.358, 45.280}, Mag: 1.25},
	{Name: "Mimosa", Pos: Point{191.930, -59.689}, Mag: 1.25},
	{Name: "Regulus", Pos: Point{152.093, 11.967}, Mag: 1.35},
	{Name: "Adhara", Pos: Point{104.656, -28.972}, Mag: 1.50},
	{Name: "Castor", Pos: Point{113.650, 31.889}, Mag: 1.58},
	{Name: "Gacrux", Pos: Point{187.791, -57.113}, Mag: 1.63},
	{Name: "Shaula", Pos: Point{263.402, -37.104}, Mag: 1.63},
	{Name: "Bellatrix", Pos: Point{81.283, 6.350}, Mag: 1.64},
	{Name: "Elnath", Pos: Point{81.573, 28.608}, Mag: 1.65},
	{Name: "Miaplacidus", Pos: Point{138.300, -69.717}, Mag: 1.68},
	{Name: "Alnilam", Pos: Point{84.053, -1.202}, Mag: 1.69},
	{Name: "Alnair", Pos: Point{332.058, -46.961}, Mag: 1.74},
	{Name: "Alnitak", Pos: Point{85.190, -1.943}, Mag: 1.77},
	{Name: "Alioth", Pos: Point{193.507, 55.960}, Mag: 1.77},
	{Name: "Dubhe", Pos: Point{165.932, 61.751}, Mag: 1.79},
	{Name: "Mirfak", Pos: Point{51.081, 49.861}, Mag: 1.79},
	{Name: "Wezen", Pos: Point{107.098, -26.393}, Mag: 1.84},
	{Name: "Sargas", Pos: Point{264.330, -42.998}, Mag: 1.87},
	{Name: "Kaus Australis", Pos: Point{276.043, -34.384}, Mag: 1.85},
	{Name: "Avior", Pos: Point{125.629, -59.509}, Mag: 1.86},
	{Name: "Alkaid", Pos: Point{206.885, 49.313}, Mag: 1.86},
	{Name: "Menkalinan", Pos: Point{89.882, 44.948}, Mag: 1.90},
	{Name: "Atria", Pos: Point{252.166, -69.028}, Mag: 1.92},
	{Name: "Alhena", Pos: Point{99.428, 16.399}, Mag: 1.93},
	{Name: "Peacock", Pos: Point{306.412, -56.735}, Mag: 1.94},
	{Name: "Alsephina", Pos: Point{131.176, -54.709}, Mag: 1.96},
	{Name: "Mirzam", Pos: Point{95.675, -17.956}, Mag: 1.98},
	{Name: "Polaris", Pos: Point{37.954, 89.264}, Mag: 2.02},
	{Name: "Alphard", Pos: Point{141.897, -8.659}, Mag: 2.00},
	{Name: "Hamal", Pos: Point{31.793, 23.463}, Mag: 2.00},
	{Name: "Algieba", Pos: Point{146.463, 19.842}, Mag: 2.08},
	{Name: "Diphda", Pos: Point{10.897, -17.987}, Mag: 2.02},
	{Name: "Nunki", Pos: Point{283.816, -26.297}, Mag: 2.02},
	{Name: "Mizar", Pos: Point{200.981, 54.925}, Mag: 2.04},
	{Name: "Alpheratz", Pos: Point{2.097, 29.091}, Mag: 2.06},
	{Name: "Saiph", Pos: Point{86.939, -9.670}, Mag: 2.09},
	{Name: "Mirach", Pos: Point{17.433, 35.621}, Mag: 2.05},
	{Name: "Kochab", Pos: Point{222.676, 74.156}, Mag: 2.08},
	{Name: "Rasalhague", Pos: Point{263.734, 12.560}, Mag: 2.08},
	{Name: "Algol", Pos: Point{47.042, 40.957}, Mag: 2.12},
	{Name: "Denebola", Pos: Point{177.265, 14.572}, Mag: 2.13},
	{Name: "Muhlifain", Pos: Point{190.379, -48.960}, Mag: 2.17},
	{Name: "Naos", Pos: Point{120.896, -40.003}, Mag: 2.25},
	{Name: "Aspidiske", Pos: Point{139.273, -59.275}, Mag: 2.25},
	{Name: "Suhail", Pos: Point{136.999, -43.433}, Mag: 2.21},
	{Name: "Alphecca", Pos: Point{233.672, 26.715}, Mag: 2.23},
	{Name: "Mintaka", Pos: Point{83.002, -0.299}, Mag: 2.23},
	{Name: "Sadr", Pos: Point{305.557, 40.257}, Mag: 2.23},
	{Name: "Eltanin", Pos: Point{269.152, 51.489}, Mag: 2.23},
	{Name: "Schedar", Pos: Point{10.127, 56.537}, Mag: 2.23},
	{Name: "Caph", Pos: Point{2.295, 59.150}, Mag: 2.27},
	{Name: "Dschubba", Pos: Point{240.083, -22.622}, Mag: 2.32},
	{Name: "Larawag", Pos: Point{254.655, -34.293}, Mag: 2.29},
	{Name: "Merak", Pos: Point{165.460, 56.382}, Mag: 2.37},
	{Name: "Izar", Pos: Point{221.247, 27.074}, Mag: 2.37},
}
