// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


package tile

// Stripe 82 coadds are laid out on a 0.5 degree grid. Tiles 101..219 run east from
// RA 0h, tiles 1..100 run east from RA 20h41m
const (
	tileStep    = 0.5
	raSplit     = 60.0                     // degrees. Positions below use the 0h branch
	raEastStart = 310.25                   // 20h41m in degrees
	decStart    = -0.75
)

// Bins a sky position into its tile, the way the coadd file names are assigned.
// Binning counts the bin edges at or below the coordinate
func FromSky(ra, dec float64) Code {
	var raIdx int
	if ra<raSplit {
		raIdx=digitize(ra, 0, 119)+100
	} else {
		raIdx=digitize(ra, raEastStart+0.25, 100)+1
	}
	decIdx:=digitize(dec, decStart, 5)+1
	return Code{RA: raIdx, Dec: decIdx}
}

// Number of the n bin edges lo, lo+0.5, ... which are <= x
func digitize(x, lo float64, n int) int {
	count:=0
	for i:=0; i<n; i++ {
		if lo+float64(i)*tileStep<=x { count++ }
	}
	return count
}

// Returns the nominal sky centre of the tile in degrees
func (c Code) Center() (ra, dec float64) {
	if c.RA>100 {
		ra=float64(c.RA-101)*tileStep+0.25
	} else {
		ra=raEastStart+float64(c.RA-1)*tileStep
	}
	dec=float64(c.Dec)*tileStep-1.5
	return ra, dec
}
