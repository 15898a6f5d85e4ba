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



// Package sed measures spectral energy distributions of written cutouts by
// circular aperture photometry, one flux per band.
package sed

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/stampcut/internal/catalogue"
	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/qsort"
	"github.com/mlnoga/stampcut/internal/stamp"
)

// Width of the flux column in SED tables, the number of survey bands
const MaxBands = 5

// Name of the observed SED table inside the SED directory
const ObservedFile = "seds_obs.fits"

// One row of an SED table
type Row struct {
	JID  string            `fits:"JID"`
	FLUX [MaxBands]float64 `fits:"FLUX"`
}

// Returns the aperture of the given radius centred on a size x size image.
// Pixel centres sit at i-size/2+0.5, a pixel is inside if its centre distance is below radius
func Aperture(size int, radius float64) []bool {
	res:=make([]bool, size*size)
	r2:=radius*radius
	for y:=0; y<size; y++ {
		dy:=float64(y-size/2)+0.5
		for x:=0; x<size; x++ {
			dx:=float64(x-size/2)+0.5
			res[y*size+x]=dx*dx+dy*dy<r2
		}
	}
	return res
}

// Sums the plane over the aperture after subtracting bg from every pixel. NaNs count as zero
func Flux(plane []float32, aperture []bool, bg float32) float64 {
	vals:=make([]float64, 0, len(plane))
	for i, in:=range aperture {
		if !in { continue }
		v:=plane[i]
		if math.IsNaN(float64(v)) { continue }
		vals=append(vals, float64(v-bg))
	}
	return floats.Sum(vals)
}

// Aperture photometry settings
type Photometer struct {
	Radius             float64
	SubtractBackground bool      // subtract the median of each band before summing
	LogWriter          io.Writer
}

// Returns the aperture flux of each band of a size x size x bands cube
func (p *Photometer) Measure(cube *fits.Image) ([]float64, error) {
	if len(cube.Naxisn)<2 || cube.Naxisn[0]!=cube.Naxisn[1] {
		return nil, fmt.Errorf("%d: %s: want a square cube, have %s", cube.ID, cube.FileName, cube.DimensionsToString())
	}
	size:=int(cube.Naxisn[0])
	ap:=Aperture(size, p.Radius)
	res:=make([]float64, cube.Channels())
	for b:=range res {
		plane:=cube.Plane(b)
		var bg float32
		if p.SubtractBackground {
			if bg=qsort.Median(plane); math.IsNaN(float64(bg)) { bg=0 }
		}
		res[b]=Flux(plane, ap, bg)
	}
	return res, nil
}

// Measures the cutout of every object. Objects whose cutout does not exist yet
// or cannot be measured get a zero row, so rows stay aligned with the catalogue. Returns the rows and
// the number of cutouts measured
func (p *Photometer) Run(objects []stamp.Object, cutoutName func(stamp.Object) string) ([]Row, int, error) {
	rows:=make([]Row, len(objects))
	measured:=0
	for i, o:=range objects {
		rows[i].JID=o.ID
		fileName:=cutoutName(o)
		cube, err:=fits.NewImageFromFile(fileName, o.Index, p.LogWriter)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(p.LogWriter, "%d: %s has no cutout, writing zero SED\n", o.Index, o.ID)
			continue
		}
		if err==nil && cube.Channels()>MaxBands {
			err=fmt.Errorf("%d bands, at most %d supported", cube.Channels(), MaxBands)
		}
		var flux []float64
		if err==nil { flux, err=p.Measure(cube) }
		if err!=nil {
			fmt.Fprintf(p.LogWriter, "%d: %s skipped: %v\n", o.Index, fileName, err)
			continue
		}
		copy(rows[i].FLUX[:], flux)
		measured++
	}
	return rows, measured, nil
}

// Writes an SED table
func WriteFile(fileName string, rows []Row) error {
	return catalogue.WriteTable(fileName, "SEDS", rows)
}

// Reads the flux vectors of an SED table in row order
func ReadFile(fileName string) ([][]float64, error) {
	rows, _, err:=catalogue.ReadTable(fileName)
	if err!=nil { return nil, err }
	res:=make([][]float64, len(rows))
	for i, row:=range rows {
		if res[i], err=row.Floats("FLUX"); err!=nil { return nil, fmt.Errorf("%s: row %d: %w", fileName, i, err) }
	}
	return res, nil
}
