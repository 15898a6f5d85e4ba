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



// Package sim builds simulated edge-on and inclined disc galaxies: a seeded
// parameter catalogue, imfit model inputs, and mocks composited onto real sky.
package sim

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mlnoga/stampcut/internal/catalogue"
	"github.com/mlnoga/stampcut/internal/cosmo"
	"github.com/mlnoga/stampcut/internal/sed"
)

// Model parameters of one simulated galaxy. Lengths are in kpc, angles in degrees
type Galaxy struct {
	PADisc    float64               `fits:"pa_disc"`
	EllDisc   float64               `fits:"ell_disc"`
	InclDisc  float64               `fits:"incl_disc"`
	REdge     float64               `fits:"r_edge"`
	H1        float64               `fits:"h1_"`
	H2        float64               `fits:"h2_"`
	Alpha     float64               `fits:"alpha"`     // 1/kpc
	Z0        float64               `fits:"z0"`
	NDisc     float64               `fits:"n_disc"`
	PABulge   float64               `fits:"PA_bulge"`
	EllBulge  float64               `fits:"ell_bulge"`
	ReBulge   float64               `fits:"Re_bulge"`
	NBulge    float64               `fits:"n_bulge"`
	Z         float64               `fits:"z_gal"`
	ObsSED    string                `fits:"obs_sed"`
	SEDInd    int64                 `fits:"sed_ind"`
	SEDFactor float64               `fits:"sed_factor"`
	FracBulge float64               `fits:"fraction_b"`
	TargetSED [sed.MaxBands]float64 `fits:"target_sed"`
}

// Settings for drawing a catalogue
type Params struct {
	N           int
	Seed        uint64
	ZMin, ZMax  float64
	Size        int      // cutout size in pixels
	PixScale    float64  // arcsec per pixel
	PixMargin   float64  // pixels kept free between disc edge and cutout border
	REdgeMaxKpc float64
	REdgeMinKpc float64
}

// Largest disc edge in kpc which still fits the cutout at redshift z
func (p *Params) rMaxKpc(z float64) float64 {
	return cosmo.Planck15.PixelsToKpc(float64(p.Size)/2-p.PixMargin, z, p.PixScale)
}

// Returns the redshift below which the largest disc would not fit the cutout,
// and the redshift above which small discs are suppressed, so that disc edges
// in kpc stay uniformly distributed over the redshift range
func (p *Params) RedshiftLimits() (bottom, upper float64) {
	lo, hi:=p.ZMin, p.ZMax
	if p.rMaxKpc(hi)<p.REdgeMaxKpc {
		bottom=hi
	} else if p.rMaxKpc(lo)>=p.REdgeMaxKpc {
		bottom=lo
	} else {
		for i:=0; i<60; i++ {   // bisection, the angular scale falls monotonically over the range
			mid:=0.5*(lo+hi)
			if p.rMaxKpc(mid)<p.REdgeMaxKpc { lo=mid } else { hi=mid }
		}
		bottom=lo
	}
	return bottom, p.ZMax-bottom
}

// Draws a catalogue of p.N galaxies. Each is assigned one of the observed SEDs,
// scaled by a random factor within 10 percent
func NewCatalogue(p Params, obsIDs []string, seds [][]float64, logWriter io.Writer) ([]Galaxy, error) {
	if len(seds)==0 { return nil, fmt.Errorf("no observed SEDs to assign") }
	if len(obsIDs)!=len(seds) {
		return nil, fmt.Errorf("%d observed objects but %d SEDs", len(obsIDs), len(seds))
	}
	if p.REdgeMinKpc==0 { p.REdgeMinKpc=1.5 }

	bottom, upper:=p.RedshiftLimits()
	fmt.Fprintf(logWriter, "Disc edges limited below z=%.4f and above z=%.4f\n", bottom, upper)
	rMinRef:=p.rMaxKpc(p.ZMin)

	src:=rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	u:=func(min, max float64) float64 {
		if !(max>min) { return min }
		return distuv.Uniform{Min: min, Max: max, Src: src}.Rand()
	}

	gals:=make([]Galaxy, p.N)
	for i:=range gals {
		g:=&gals[i]
		g.Z=u(p.ZMin, p.ZMax)
		g.FracBulge=u(0.01, 0.2)

		g.PADisc=u(0, 180)
		g.EllDisc=u(0, 0.7)
		g.InclDisc=u(0, 90)
		switch {
		case g.Z<bottom:
			g.REdge=u(p.REdgeMinKpc, p.rMaxKpc(g.Z))
		case g.Z>upper:
			rMin:=math.Max(0, p.rMaxKpc(g.Z-upper)-rMinRef)
			g.REdge=u(rMin, p.REdgeMaxKpc)
		default:
			g.REdge=u(p.REdgeMinKpc, p.REdgeMaxKpc)
		}
		g.H1=g.REdge*u(0.2, 0.4)
		g.H2=g.H1*u(0.25, 0.35)
		g.Alpha=u(0.5, 7.5)
		g.Z0=u(0.05*g.REdge, 0.08*g.REdge)
		g.NDisc=1

		g.ReBulge=u(0.5, 4)
		g.NBulge=u(1, 5)

		g.SEDInd=int64(src.IntN(len(seds)))
		g.ObsSED=obsIDs[g.SEDInd]
		g.SEDFactor=u(0.9, 1.1)
		for b, f:=range seds[g.SEDInd] {
			if b>=sed.MaxBands { break }
			g.TargetSED[b]=g.SEDFactor*f
		}
	}
	return gals, nil
}

// Writes the catalogue as binary table
func WriteCatalogue(fileName string, gals []Galaxy) error {
	return catalogue.WriteTable(fileName, "SIMULATED", gals)
}

// Reads a catalogue written by WriteCatalogue
func ReadCatalogue(fileName string) ([]Galaxy, error) {
	rows, _, err:=catalogue.ReadTable(fileName)
	if err!=nil { return nil, err }
	gals:=make([]Galaxy, len(rows))
	for i, row:=range rows {
		if err:=parseGalaxy(row, &gals[i]); err!=nil { return nil, fmt.Errorf("%s: row %d: %w", fileName, i, err) }
	}
	return gals, nil
}

func parseGalaxy(row catalogue.Row, g *Galaxy) (err error) {
	fields:=[]struct {
		name string
		dst  *float64
	}{
		{"pa_disc", &g.PADisc}, {"ell_disc", &g.EllDisc}, {"incl_disc", &g.InclDisc},
		{"r_edge", &g.REdge}, {"h1_", &g.H1}, {"h2_", &g.H2}, {"alpha", &g.Alpha},
		{"z0", &g.Z0}, {"n_disc", &g.NDisc}, {"PA_bulge", &g.PABulge}, {"ell_bulge", &g.EllBulge},
		{"Re_bulge", &g.ReBulge}, {"n_bulge", &g.NBulge}, {"z_gal", &g.Z},
		{"sed_factor", &g.SEDFactor}, {"fraction_b", &g.FracBulge},
	}
	for _, f:=range fields {
		if *f.dst, err=row.Float(f.name); err!=nil { return err }
	}
	if g.ObsSED, err=row.String("obs_sed"); err!=nil { return err }
	ind, err:=row.Int("sed_ind")
	if err!=nil { return err }
	g.SEDInd=int64(ind)
	target, err:=row.Floats("target_sed")
	if err!=nil { return err }
	copy(g.TargetSED[:], target)
	return nil
}
