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



package stamp

import (
	"fmt"
	"io"

	"github.com/mlnoga/stampcut/internal/tile"
)

// A transient composite of 1, 2 or 4 trimmed tiles in all bands.
// Data holds one plane per band, x varying fastest
type Megastamp struct {
	Width   int
	Height  int
	Bands   int
	Data    []float32
	Central [2]float64  // 0-based reference pixel of the home tile in composite coordinates
	Padded  bool        // some cell is zero filled because it lies outside the footprint
}

// Returns the pixel plane of band b
func (m *Megastamp) Plane(b int) []float32 {
	size:=m.Width*m.Height
	return m.Data[b*size : (b+1)*size]
}

// Assembles the composite for the given layout. Each source contributes its trimmed
// interior to its cell, outside tiles contribute zeros. nx and ny are the untrimmed
// home frame dimensions, all sources must match them. ref is the home tile's 0-based
// reference pixel in untrimmed frame coordinates.
func (f *Frames) composite(ps []placement, l layout, nx, ny int32, ref [2]float64, id int, logWriter io.Writer) (*Megastamp, error) {
	tw, th:=f.trimmed(nx), f.trimmed(ny)
	m:=&Megastamp{
		Width:  tw*l.Cells[0],
		Height: th*l.Cells[1],
		Bands:  len(f.Bands),
	}
	m.Data=make([]float32, m.Width*m.Height*m.Bands)
	for _, p:=range ps {
		if p.Code.Outside { m.Padded=true }
		if p.Home {
			m.Central=[2]float64{
				ref[0]-float64(f.TrimLow)+float64(p.Cell[0]*tw),
				ref[1]-float64(f.TrimLow)+float64(p.Cell[1]*th),
			}
		}
	}

	for b, band:=range f.Bands {
		plane:=m.Plane(b)
		for _, p:=range ps {
			if p.Code.Outside { continue } // already zero
			img, err:=f.Load(p.Code, band, id, logWriter)
			if err!=nil { return nil, err }
			if img.Naxisn[0]!=nx || img.Naxisn[1]!=ny {
				err=fmt.Errorf("band %s has shape %s, want %dx%d", band, img.DimensionsToString(), nx, ny)
				return nil, &TileError{Code: p.Code, Kind: ErrCorruptTile, Err: err}
			}
			copyTrimmed(plane, m.Width, p.Cell[0]*tw, p.Cell[1]*th, img.Data, int(nx), f.TrimLow, tw, th)
		}
	}
	return m, nil
}

// Copies the tw x th interior starting at (trim, trim) of src with row stride srcWidth
// into dst with row stride dstWidth at offset (x0, y0)
func copyTrimmed(dst []float32, dstWidth, x0, y0 int, src []float32, srcWidth, trim, tw, th int) {
	for y:=0; y<th; y++ {
		so:=(y+trim)*srcWidth+trim
		do:=(y+y0)*dstWidth+x0
		copy(dst[do:do+tw], src[so:so+tw])
	}
}

// Places the home tile and its neighbours for a window crossing in the given
// directions, without reading any pixels. Exposed for tests and diagnostics
func Neighbors(home tile.Code, cross [2]int, cdelt [2]float64, fp tile.Footprint) []tile.Code {
	ps:=newLayout(cross).placements(home, cdelt, fp)
	res:=make([]tile.Code, 0, len(ps)-1)
	for _, p:=range ps {
		if !p.Home { res=append(res, p.Code) }
	}
	return res
}
