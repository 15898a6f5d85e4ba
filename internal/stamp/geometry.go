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



// Package stamp cuts fixed size multi-band stamps around catalogue objects from
// the Stripe 82 coadd mosaic, stitching neighbouring tiles where a stamp window
// crosses a tile edge.
package stamp

import (
	"math"

	"github.com/mlnoga/stampcut/internal/tile"
)

// Crossing direction of a cutout window along one axis of a frame with the given
// extent: -1 if it reaches below 0, +1 if it reaches extent or beyond, else 0
func crossing(p, half, extent int) int {
	if p-half<0 { return -1 }
	if p+half>=extent { return 1 }
	return 0
}

// A placement of one source tile into a cell of the composite grid
type placement struct {
	Code tile.Code
	Cell [2]int  // cell index along x and y, 0 or 1
	Home bool
}

// The composite grid for one object. Cross is the sign vector of edge
// crossings per axis. Crossing axes get two cells, the others one
type layout struct {
	Cross [2]int
	Cells [2]int
	Home  [2]int  // cell of the home tile
}

func newLayout(cross [2]int) layout {
	l:=layout{Cross: cross, Cells: [2]int{1, 1}}
	for a:=0; a<2; a++ {
		if cross[a]!=0 { l.Cells[a]=2 }
		if cross[a]<0 { l.Home[a]=1 } // window reaches low, so the neighbour takes the low cell
	}
	return l
}

// Returns the home tile and the 0 to 3 neighbours the layout needs, with their cells.
// Tile index steps are the crossing direction times the sign of the pixel scale,
// since tile indices grow with sky coordinates while pixel axes may run either way
func (l layout) placements(home tile.Code, cdelt [2]float64, fp tile.Footprint) []placement {
	var step [2]int
	for a:=0; a<2; a++ {
		step[a]=l.Cross[a]
		if cdelt[a]<0 { step[a]=-step[a] }
	}

	ps:=make([]placement, 0, l.Cells[0]*l.Cells[1])
	for dy:=0; dy<l.Cells[1]; dy++ {
		for dx:=0; dx<l.Cells[0]; dx++ {
			p:=placement{Cell: [2]int{l.Home[0]^dx, l.Home[1]^dy}}
			if dx==0 && dy==0 {
				p.Code, p.Home=home, true
			} else {
				p.Code=fp.Neighbor(home, dx*step[0], dy*step[1])
			}
			ps=append(ps, p)
		}
	}
	return ps
}

func floorInt(v float64) int {
	return int(math.Floor(v))
}
