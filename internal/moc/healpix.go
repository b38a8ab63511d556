package moc

import "math"

// MaxOrder is the deepest HEALPix order a MOC may carry.
const MaxOrder = 29

// Face layout of the 12 base pixels (ring index and phi offset of each
// face's southernmost corner).
var (
	jrll = [12]int64{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int64{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// NPix returns the number of pixels covering the sphere at an order.
func NPix(order int) uint64 {
	return 12 << (2 * uint(order))
}

// Ang2Pix returns the NESTED pixel index containing the point at
// longitude lonDeg, latitude latDeg.
func Ang2Pix(order int, lonDeg, latDeg float64) uint64 {
	z := math.Sin(latDeg * math.Pi / 180)
	phi := math.Mod(lonDeg*math.Pi/180, 2*math.Pi)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return ang2pixZPhi(order, z, phi)
}

func ang2pixZPhi(order int, z, phi float64) uint64 {
	nside := int64(1) << uint(order)
	za := math.Abs(z)
	tt := phi * 2 / math.Pi // in [0,4)
	if tt >= 4 {
		tt = 0
	}

	var face, ix, iy int64
	if za <= 2.0/3.0 {
		// Equatorial belt
		temp1 := float64(nside) * (0.5 + tt)
		temp2 := float64(nside) * z * 0.75
		jp := int64(temp1 - temp2) // ascending edge line
		jm := int64(temp1 + temp2) // descending edge line
		ifp := jp >> uint(order)
		ifm := jm >> uint(order)
		switch {
		case ifp == ifm:
			if ifp == 4 {
				face = 4
			} else {
				face = ifp + 4
			}
		case ifp < ifm:
			face = ifp
		default:
			face = ifm + 8
		}
		ix = jm & (nside - 1)
		iy = nside - (jp & (nside - 1)) - 1
	} else {
		// Polar caps
		ntt := int64(tt)
		if ntt > 3 {
			ntt = 3
		}
		tp := tt - float64(ntt)
		tmp := float64(nside) * math.Sqrt(3*(1-za))
		jp := int64(tp * tmp)
		jm := int64((1 - tp) * tmp)
		if jp > nside-1 {
			jp = nside - 1
		}
		if jm > nside-1 {
			jm = nside - 1
		}
		if z >= 0 {
			face = ntt
			ix = nside - jm - 1
			iy = nside - jp - 1
		} else {
			face = ntt + 8
			ix = jp
			iy = jm
		}
	}

	return uint64(face)<<(2*uint(order)) | spread(uint64(ix)) | spread(uint64(iy))<<1
}

// Pix2Ang returns the centre of a NESTED pixel as longitude/latitude
// in degrees. Longitude is in [0,360).
func Pix2Ang(order int, pix uint64) (lonDeg, latDeg float64) {
	nside := int64(1) << uint(order)
	npface := uint64(nside) * uint64(nside)
	face := int64(pix >> (2 * uint(order)))
	ipf := pix & (npface - 1)
	ix := int64(compress(ipf))
	iy := int64(compress(ipf >> 1))

	npix := 12 * float64(npface)
	fact2 := 4 / npix
	fact1 := float64(nside<<1) * fact2

	jr := (jrll[face] << uint(order)) - ix - iy - 1

	var nr, kshift int64
	var z float64
	switch {
	case jr < nside:
		nr = jr
		z = 1 - float64(nr*nr)*fact2
	case jr > 3*nside:
		nr = 4*nside - jr
		z = float64(nr*nr)*fact2 - 1
	default:
		nr = nside
		z = float64(2*nside-jr) * fact1
		kshift = (jr - nside) & 1
	}

	jp := (jpll[face]*nr + ix - iy + 1 + kshift) / 2
	if jp > 4*nside {
		jp -= 4 * nside
	}
	if jp < 1 {
		jp += 4 * nside
	}

	phi := (float64(jp) - float64(kshift+1)*0.5) * (math.Pi / 2 / float64(nr))
	lonDeg = phi * 180 / math.Pi
	if lonDeg >= 360 {
		lonDeg -= 360
	}
	latDeg = math.Asin(clamp(z, -1, 1)) * 180 / math.Pi
	return lonDeg, latDeg
}

// spread interleaves the low 32 bits of v with zeros (bit i -> bit 2i).
func spread(v uint64) uint64 {
	v &= 0xFFFFFFFF
	v = (v | v<<16) & 0x0000FFFF0000FFFF
	v = (v | v<<8) & 0x00FF00FF00FF00FF
	v = (v | v<<4) & 0x0F0F0F0F0F0F0F0F
	v = (v | v<<2) & 0x3333333333333333
	v = (v | v<<1) & 0x5555555555555555
	return v
}

// compress is the inverse of spread: it gathers the even bits of v.
func compress(v uint64) uint64 {
	v &= 0x5555555555555555
	v = (v | v>>1) & 0x3333333333333333
	v = (v | v>>2) & 0x0F0F0F0F0F0F0F0F
	v = (v | v>>4) & 0x00FF00FF00FF00FF
	v = (v | v>>8) & 0x0000FFFF0000FFFF
	v = (v | v>>16) & 0x00000000FFFFFFFF
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toVec(lonDeg, latDeg float64) (x, y, z float64) {
	lon := lonDeg * math.Pi / 180
	lat := latDeg * math.Pi / 180
	return math.Cos(lat) * math.Cos(lon), math.Cos(lat) * math.Sin(lon), math.Sin(lat)
}

func fromVec(x, y, z float64) (lonDeg, latDeg float64) {
	r := math.Sqrt(x*x + y*y + z*z)
	if r == 0 {
		return 0, 0
	}
	lonDeg = math.Atan2(y, x) * 180 / math.Pi
	if lonDeg < 0 {
		lonDeg += 360
	}
	latDeg = math.Asin(clamp(z/r, -1, 1)) * 180 / math.Pi
	return lonDeg, latDeg
}
