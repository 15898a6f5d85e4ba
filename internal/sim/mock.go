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



package sim

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/floats"

	"github.com/mlnoga/stampcut/internal/cosmo"
	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/sed"
	"github.com/mlnoga/stampcut/internal/stamp"
	"github.com/mlnoga/stampcut/internal/tile"
)

var ErrNotRendered = errors.New("model not rendered")

// Composites rendered galaxy models onto real sky background
type Mocker struct {
	Frames    *stamp.Frames   // background frames
	InDir     string          // rendered models
	OutDir    string
	Size      int
	PixScale  float64         // arcsec per pixel
	MarginBG  int             // frame border pixels never used as background
	Aperture  float64         // radius in pixels of the target SED aperture
	Preview   string          // jpg, tif or empty for none
	LogWriter io.Writer
	rng       fastrand.RNG
}

// A mock galaxy, with its components and provenance
type Mock struct {
	Index     int
	Bands     []string
	Size      int
	Data      []float32   // galaxy plus background, x, y, band
	Bulge     []float32
	Disc      []float32
	Mask      []float32
	Target    []float64
	Original  []float64
	FracBulge float64
	REdgePix  float64
	BG        tile.Code
	BGX, BGY  int         // lower left corner of the background window
	BGHasSky  bool        // RA and Dec are valid
	RA, Dec   float64     // sky position of the background window centre
}

// Seeds the background choice, for reproducible runs
func (m *Mocker) Seed(seed uint32) {
	m.rng.Seed(seed)
}

// Output file name of mock i
func (m *Mocker) OutputName(i int) string {
	return filepath.Join(m.OutDir, "SDSSlike_"+strconv.Itoa(i)+".fits.gz")
}

// Preview file name of mock i
func (m *Mocker) PreviewName(i int) string {
	return filepath.Join(m.OutDir, "jpgs", "mock_"+strconv.Itoa(i)+"."+m.Preview)
}

// Builds and writes a mock for every galaxy whose models have been rendered.
// seds are the observed SEDs the catalogue was drawn from. Returns the number written
func (m *Mocker) Run(gals []Galaxy, seds [][]float64) (int, error) {
	bgTiles, err:=m.Frames.Tiles()
	if err!=nil { return 0, err }
	if len(bgTiles)==0 { return 0, fmt.Errorf("no background frames in %s", m.Frames.Dir) }
	if err:=os.MkdirAll(m.OutDir, 0755); err!=nil { return 0, err }
	if m.Preview!="" {
		if err:=os.MkdirAll(filepath.Join(m.OutDir, "jpgs"), 0755); err!=nil { return 0, err }
	}

	written:=0
	for i:=range gals {
		var original []float64
		if ind:=gals[i].SEDInd; ind>=0 && int(ind)<len(seds) { original=seds[ind] }
		mk, err:=m.Make(i, &gals[i], original, bgTiles)
		if errors.Is(err, ErrNotRendered) {
			fmt.Fprintf(m.LogWriter, "%d: skipped, %v\n", i, err)
			continue
		}
		if err!=nil {
			fmt.Fprintf(m.LogWriter, "%d: failed: %v\n", i, err)
			continue
		}
		if err:=fits.WriteFile(m.OutputName(i), mk.HDUs()...); err!=nil {
			fmt.Fprintf(m.LogWriter, "%d: writing %s: %v\n", i, m.OutputName(i), err)
			continue
		}
		written++
		if m.Preview!="" {
			p, err:=mk.Preview()
			if err==nil { err=p.WriteFile(m.PreviewName(i)) }
			if err!=nil { fmt.Fprintf(m.LogWriter, "%d: Warning: preview: %v\n", i, err) }
		}
		fmt.Fprintf(m.LogWriter, "%d: mock written to %s (background %s at %d,%d)\n", i, m.OutputName(i), mk.BG, mk.BGX, mk.BGY)
	}
	return written, nil
}

// Builds mock i: scales bulge and disc to the bulge fraction and the target SED
// within the aperture, then adds a randomly placed background window taken from
// the same tile and offsets in every band
func (m *Mocker) Make(i int, g *Galaxy, original []float64, bgTiles []tile.Code) (*Mock, error) {
	bands:=m.Frames.Bands
	n:=m.Size*m.Size
	mk:=&Mock{
		Index:     i,
		Bands:     bands,
		Size:      m.Size,
		Data:      make([]float32, n*len(bands)),
		Bulge:     make([]float32, n*len(bands)),
		Disc:      make([]float32, n*len(bands)),
		Target:    make([]float64, len(bands)),
		Original:  make([]float64, len(bands)),
		FracBulge: g.FracBulge,
	}
	copy(mk.Target, g.TargetSED[:])
	copy(mk.Original, original)
	ap:=sed.Aperture(m.Size, m.Aperture)

	for b, band:=range bands {
		bulge, err:=m.loadModel(BulgeName(i), band, i)
		if err!=nil { return nil, err }
		disc, err:=m.loadModel(DiscName(i), band, i)
		if err!=nil { return nil, err }
		copy(mk.Bulge[b*n:(b+1)*n], bulge)
		copy(mk.Disc[b*n:(b+1)*n], disc)

		img, err:=combine(bulge, disc, g.FracBulge)
		if err!=nil { return nil, fmt.Errorf("%d: band %s: %w", i, band, err) }
		inAp:=sed.Flux(img, ap, 0)
		if inAp==0 { return nil, fmt.Errorf("%d: band %s: no model flux inside the aperture", i, band) }
		scale:=float32(mk.Target[b]/inAp)
		dst:=mk.Data[b*n:(b+1)*n]
		for j, v:=range img {
			dst[j]=v*scale
		}
	}

	if err:=m.addBackground(mk, bgTiles); err!=nil { return nil, err }

	mk.REdgePix=math.Abs(cosmo.Planck15.KpcToPixels(g.REdge, g.Z, m.PixScale))
	z0Pix:=cosmo.Planck15.KpcToPixels(g.Z0, g.Z, m.PixScale)
	incl:=g.InclDisc*math.Pi/180
	minor:=math.Max(math.Abs(mk.REdgePix*math.Cos(incl)), math.Abs(z0Pix*math.Sin(incl)))
	half:=float64(m.Size)/2
	mk.Mask=stamp.DistEllipse(m.Size, m.Size, half, half, mk.REdgePix/minor, g.PADisc+90)
	return mk, nil
}

// Loads one rendered model component, which must match the mock size
func (m *Mocker) loadModel(name, band string, id int) ([]float32, error) {
	fileName:=RenderedName(m.InDir, name, band)
	img, err:=fits.NewImageFromFile(fileName, id, m.LogWriter)
	if errors.Is(err, fs.ErrNotExist) { return nil, fmt.Errorf("%w: %s", ErrNotRendered, fileName) }
	if err!=nil { return nil, err }
	if len(img.Naxisn)!=2 || int(img.Naxisn[0])!=m.Size || int(img.Naxisn[1])!=m.Size {
		return nil, fmt.Errorf("%d: %s has shape %s, want %dx%d", id, fileName, img.DimensionsToString(), m.Size, m.Size)
	}
	return img.Data, nil
}

// Normalises bulge and disc to unit flux each and mixes them with the given bulge fraction
func combine(bulge, disc []float32, frac float64) ([]float32, error) {
	fb, fd:=nanSum(bulge), nanSum(disc)
	if fb==0 || fd==0 { return nil, fmt.Errorf("empty model, bulge flux %g disc flux %g", fb, fd) }
	wb, wd:=float32(frac/fb), float32((1-frac)/fd)
	res:=make([]float32, len(bulge))
	for i:=range res {
		b, d:=bulge[i], disc[i]
		if math.IsNaN(float64(b)) { b=0 }
		if math.IsNaN(float64(d)) { d=0 }
		res[i]=b*wb+d*wd
	}
	return res, nil
}

func nanSum(data []float32) float64 {
	vals:=make([]float64, 0, len(data))
	for _, v:=range data {
		if !math.IsNaN(float64(v)) { vals=append(vals, float64(v)) }
	}
	return floats.Sum(vals)
}

// Picks a random background tile and window and adds it to every band
func (m *Mocker) addBackground(mk *Mock, bgTiles []tile.Code) error {
	mk.BG=bgTiles[m.rng.Uint32n(uint32(len(bgTiles)))]
	n:=m.Size*m.Size
	for b, band:=range mk.Bands {
		frame, err:=m.Frames.Load(mk.BG, band, mk.Index, m.LogWriter)
		if err!=nil { return fmt.Errorf("%d: background: %w", mk.Index, err) }
		w, h:=int(frame.Naxisn[0]), int(frame.Naxisn[1])
		if b==0 {
			spanX, spanY:=w-2*m.MarginBG-m.Size, h-2*m.MarginBG-m.Size
			if spanX<=0 || spanY<=0 {
				return fmt.Errorf("%d: background frame %s of %dx%d too small for %d pixel mocks", mk.Index, frame.FileName, w, h, m.Size)
			}
			mk.BGX=m.MarginBG+int(m.rng.Uint32n(uint32(spanX)))
			mk.BGY=m.MarginBG+int(m.rng.Uint32n(uint32(spanY)))
			if wcs, err:=frame.WCS(); err==nil && wcs.HasCRVAL {
				mk.RA, mk.Dec=wcs.World(float64(mk.BGX)+float64(m.Size)/2, float64(mk.BGY)+float64(m.Size)/2)
				mk.BGHasSky=true
			} else {
				fmt.Fprintf(m.LogWriter, "%d: Warning: background frame %s has no sky position\n", mk.Index, frame.FileName)
			}
		} else if mk.BGX+m.Size>w || mk.BGY+m.Size>h {
			return fmt.Errorf("%d: background frame %s of %dx%d smaller than band %s", mk.Index, frame.FileName, w, h, mk.Bands[0])
		}

		dst:=mk.Data[b*n:(b+1)*n]
		for y:=0; y<m.Size; y++ {
			src:=frame.Data[(mk.BGY+y)*w+mk.BGX:]
			for x:=0; x<m.Size; x++ {
				dst[y*m.Size+x]+=src[x]
			}
		}
	}
	return nil
}

func (mk *Mock) cube(data []float32, extName string) *fits.Image {
	img:=fits.NewImageFromNaxisn([]int32{int32(mk.Size), int32(mk.Size), int32(len(mk.Bands))}, data)
	img.ID=mk.Index
	if extName!="" { img.Header.SetString("EXTNAME", extName, "") }
	return img
}

func (mk *Mock) vector(data []float64, extName string) *fits.Image {
	v:=make([]float32, len(data))
	for i, d:=range data {
		v[i]=float32(d)
	}
	img:=fits.NewImageFromNaxisn([]int32{int32(len(v))}, v)
	img.ID=mk.Index
	img.Header.SetString("EXTNAME", extName, "")
	return img
}

// Returns the mock cube with provenance header, followed by the BULGE, TRUNCATEDDISC,
// SED_TARGET, SED_ORIGINAL and MASK extensions
func (mk *Mock) HDUs() []*fits.Image {
	primary:=mk.cube(mk.Data, "")
	h:=&primary.Header
	h.SetFloat("FRAC_BUL", mk.FracBulge, "Bulge flux fraction")
	if mk.BGHasSky {
		h.SetFloat("RA_SDSS", mk.RA, "[deg] RA of background window centre")
		h.SetFloat("DEC_SDSS", mk.Dec, "[deg] Dec of background window centre")
	}
	h.SetString("BG_FNAME", mk.BG.String(), "Background tile")
	h.Ints["BG_XMIN"]=int32(mk.BGX)
	h.Ints["BG_XMAX"]=int32(mk.BGX+mk.Size)
	h.Ints["BG_YMIN"]=int32(mk.BGY)
	h.Ints["BG_YMAX"]=int32(mk.BGY+mk.Size)

	mask:=fits.NewImageFromNaxisn([]int32{int32(mk.Size), int32(mk.Size)}, mk.Mask)
	mask.ID=mk.Index
	mask.Header.SetString("EXTNAME", "MASK", "Elliptical distance mask")
	mask.Header.SetFloat("REDGE", mk.REdgePix, "Disc edge radius")
	mask.Header.SetString("REDGE_U", "[pixels]", "")

	return []*fits.Image{
		primary,
		mk.cube(mk.Bulge, "BULGE"),
		mk.cube(mk.Disc, "TRUNCATEDDISC"),
		mk.vector(mk.Target, "SED_TARGET"),
		mk.vector(mk.Original, "SED_ORIGINAL"),
		mask,
	}
}

// False colour preview with the disc region tinted
func (mk *Mock) Preview() (*fits.Preview, error) {
	return fits.NewPreview(mk.cube(mk.Data, ""), stamp.PreviewChannels(len(mk.Bands)), mk.Mask, float32(mk.REdgePix))
}
