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
	"math"
	"strings"

	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/tile"
)

// A fixed size multi-band stamp around one object, with its elliptical mask
type Cutout struct {
	Object   Object
	Size     int
	Bands    []string
	Data     []float32  // one size x size plane per band, x varying fastest
	Mask     []float32  // size x size semi-major axis values
	WCS      fits.WCS   // CRVAL at the object, CRPIX at its 1-based pixel
	Padded   bool
	Home     tile.Code
	REdgePix float64    // disc edge radius in pixels
}

// Slices a size x size window in all bands with its lower left corner at
// (px-size/2, py-size/2). Fails with ErrOutOfBounds unless the window lies
// entirely inside the composite
func (m *Megastamp) Extract(px, py, size int) ([]float32, error) {
	x0, y0:=px-size/2, py-size/2
	if x0<0 || y0<0 || x0+size>m.Width || y0+size>m.Height {
		return nil, fmt.Errorf("%w: window %dx%d at (%d,%d) in composite %dx%d", ErrOutOfBounds, size, size, x0, y0, m.Width, m.Height)
	}
	res:=make([]float32, size*size*m.Bands)
	for b:=0; b<m.Bands; b++ {
		src:=m.Plane(b)
		dst:=res[b*size*size : (b+1)*size*size]
		for y:=0; y<size; y++ {
			so:=(y0+y)*m.Width+x0
			copy(dst[y*size:(y+1)*size], src[so:so+size])
		}
	}
	return res, nil
}

// Builds the primary cube HDU and the MASK extension
func (c *Cutout) HDUs() (cube, mask *fits.Image) {
	cube=fits.NewImageFromNaxisn([]int32{int32(c.Size), int32(c.Size), int32(len(c.Bands))}, c.Data)
	cube.ID=c.Object.Index
	h:=&cube.Header
	c.WCS.Apply(h)
	h.Bools["PADDED"]=c.Padded
	h.Notes["PADDED"]="Zero filled outside the survey footprint"
	h.SetString("OBJECT", c.Object.ID, "Catalogue identifier")
	h.SetString("TILE", c.Home.String(), "Home tile")
	h.SetString("BANDS", strings.Join(c.Bands, ""), "Bands along axis 3")

	mask=fits.NewImageFromNaxisn([]int32{int32(c.Size), int32(c.Size)}, c.Mask)
	mask.ID=c.Object.Index
	h=&mask.Header
	h.SetString("EXTNAME", "MASK", "Elliptical distance mask")
	h.SetFloat("REDGE", c.REdgePix, "Disc edge radius")
	h.SetString("REDGE_U", "[pixels]", "")
	return cube, mask
}

// Preview of the cutout in false colour, with the disc edge region tinted
func (c *Cutout) Preview() (*fits.Preview, error) {
	cube, _:=c.HDUs()
	return fits.NewPreview(cube, PreviewChannels(len(c.Bands)), c.Mask, float32(c.REdgePix))
}

// g, r and i for the five band survey, else the first three available
func PreviewChannels(bands int) [3]int {
	if bands>=4 { return [3]int{1, 2, 3} }
	var res [3]int
	for i:=range res {
		res[i]=int(math.Min(float64(i), float64(bands-1)))
	}
	return res
}
