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


package fits

import (
	"errors"
	"fmt"
	"math"
)

var ErrNoWCS = errors.New("missing WCS keywords")

// A minimal linear world coordinate system, as carried by survey coadd frames.
// Axis 0 is RA, axis 1 is Dec. Reference pixels are 1-based as in the header.
type WCS struct {
	CRPIX    [2]float64
	CRVAL    [2]float64
	CDELT    [2]float64
	HasCRVAL bool
}

// Reads the linear WCS from the header. CDELTn falls back to the diagonal of
// the CD matrix. CRVALn is optional, see HasCRVAL
func (f *Image) WCS() (WCS, error) {
	var w WCS
	h:=&f.Header
	for i, axis:=range []string{"1", "2"} {
		var ok bool
		if w.CRPIX[i], ok=h.Float("CRPIX"+axis); !ok {
			return w, fmt.Errorf("%d: %s: CRPIX%s: %w", f.ID, f.FileName, axis, ErrNoWCS)
		}
		if w.CDELT[i], ok=h.Float("CDELT"+axis); !ok {
			if w.CDELT[i], ok=h.Float("CD"+axis+"_"+axis); !ok {
				return w, fmt.Errorf("%d: %s: CDELT%s: %w", f.ID, f.FileName, axis, ErrNoWCS)
			}
		}
		if w.CDELT[i]==0 || math.IsNaN(w.CDELT[i]) {
			return w, fmt.Errorf("%d: %s: zero CDELT%s: %w", f.ID, f.FileName, axis, ErrNoWCS)
		}
	}
	v1, ok1:=h.Float("CRVAL1")
	v2, ok2:=h.Float("CRVAL2")
	if ok1 && ok2 {
		w.CRVAL=[2]float64{v1, v2}
		w.HasCRVAL=true
	}
	return w, nil
}

// Returns the 0-based reference pixel
func (w WCS) Ref() (x, y float64) {
	return w.CRPIX[0]-1, w.CRPIX[1]-1
}

// Projects a sky coordinate to 0-based pixel coordinates with the plate scale transform
func (w WCS) Pixel(ra, dec float64) (x, y float64) {
	x0, y0:=w.Ref()
	return x0+(ra-w.CRVAL[0])/w.CDELT[0], y0+(dec-w.CRVAL[1])/w.CDELT[1]
}

// Inverse of Pixel
func (w WCS) World(x, y float64) (ra, dec float64) {
	x0, y0:=w.Ref()
	return w.CRVAL[0]+(x-x0)*w.CDELT[0], w.CRVAL[1]+(y-y0)*w.CDELT[1]
}

// Writes the WCS keywords into the given header
func (w WCS) Apply(h *Header) {
	h.SetFloat("CRVAL1", w.CRVAL[0], "[deg] RA at reference pixel")
	h.SetFloat("CRPIX1", w.CRPIX[0], "Reference pixel along axis 1")
	h.SetFloat("CDELT1", w.CDELT[0], "[deg] Pixel scale along axis 1")
	h.SetFloat("CRVAL2", w.CRVAL[1], "[deg] Dec at reference pixel")
	h.SetFloat("CRPIX2", w.CRPIX[1], "Reference pixel along axis 2")
	h.SetFloat("CDELT2", w.CDELT[1], "[deg] Pixel scale along axis 2")
}
