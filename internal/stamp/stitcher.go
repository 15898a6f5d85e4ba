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
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/tile"
)

// One catalogue object
type Object struct {
	Index    int        // catalogue row, for logging
	ID       string
	RA       float64    // degrees
	Dec      float64    // degrees
	Tile     tile.Code  // home tile
	REdgeDeg float64    // disc edge radius in degrees
	PA       float64    // position angle in degrees
	Q        float64    // minor to major axis ratio
	Z        float64
}

// Cuts stamps for catalogue objects from tiles on local storage
type Stitcher struct {
	Frames         *Frames
	Footprint      tile.Footprint
	Size           int        // stamp width and height in pixels
	OutDir         string
	UseHeaderCRVAL bool       // reference coordinate from the header instead of the tile grid
	Preview        string     // jpg, tif or empty for none
	LogWriter      io.Writer
}

// Returns the output file name for the object
func (s *Stitcher) OutputName(o Object) string {
	return filepath.Join(s.OutDir, fmt.Sprintf("%s_stamps%d.fits.gz", o.ID, s.Size))
}

// Returns the preview file name for the object
func (s *Stitcher) PreviewName(o Object) string {
	return filepath.Join(s.OutDir, "jpgs", o.ID+"."+s.Preview)
}

// Cuts the stamp for one object without writing anything. On failure, returns
// the codes of tiles which are missing or unreadable, if any
func (s *Stitcher) Cut(o Object) (c *Cutout, missing []tile.Code, cdelt [2]float64, err error) {
	home:=o.Tile
	if home.Outside {
		return nil, nil, cdelt, fmt.Errorf("%w: home tile outside the footprint", ErrMissingTile)
	}
	if !s.Frames.Complete(home) {
		return nil, []tile.Code{home}, cdelt, &TileError{Code: home, Kind: ErrMissingTile, Err: errors.New("not all bands on disk")}
	}
	hdr, err:=s.Frames.Header(home, o.Index, s.LogWriter)
	if err!=nil { return nil, []tile.Code{home}, cdelt, err }
	if len(hdr.Naxisn)!=2 {
		return nil, []tile.Code{home}, cdelt, &TileError{Code: home, Kind: ErrCorruptTile, Err: fmt.Errorf("shape %s, want 2 axes", hdr.DimensionsToString())}
	}

	w, err:=hdr.WCS()
	if err!=nil { return nil, nil, cdelt, fmt.Errorf("%w: %v", ErrMissingWCS, err) }
	cdelt=w.CDELT
	if s.UseHeaderCRVAL {
		if !w.HasCRVAL { return nil, nil, cdelt, fmt.Errorf("%w: tile %s has no CRVAL1/2", ErrMissingWCS, home) }
	} else {
		w.CRVAL[0], w.CRVAL[1]=home.Center()
	}

	nx, ny:=hdr.Naxisn[0], hdr.Naxisn[1]
	tw, th:=s.Frames.trimmed(nx), s.Frames.trimmed(ny)
	if tw<=0 || th<=0 {
		return nil, []tile.Code{home}, cdelt, &TileError{Code: home, Kind: ErrCorruptTile, Err: fmt.Errorf("frame %dx%d smaller than its trim", nx, ny)}
	}
	if s.Size>tw || s.Size>th {
		return nil, nil, cdelt, fmt.Errorf("%w: stamp size %d exceeds trimmed frame %dx%d", ErrOutOfBounds, s.Size, tw, th)
	}

	// object position in trimmed home frame coordinates decides which edges the window crosses
	x, y:=w.Pixel(o.RA, o.Dec)
	px, py:=floorInt(x)-s.Frames.TrimLow, floorInt(y)-s.Frames.TrimLow
	half:=s.Size/2
	cross:=[2]int{crossing(px, half, tw), crossing(py, half, th)}

	l:=newLayout(cross)
	ps:=l.placements(home, w.CDELT, s.Footprint)
	for _, p:=range ps {
		if !p.Home && !p.Code.Outside && !s.Frames.Complete(p.Code) { missing=append(missing, p.Code) }
	}
	if len(missing)>0 {
		return nil, missing, cdelt, fmt.Errorf("%w: neighbours %v of %s", ErrMissingTile, missing, home)
	}
	if cross!=[2]int{0, 0} {
		fmt.Fprintf(s.LogWriter, "%d: %s crosses edges %v, stitching %d tiles\n", o.Index, o.ID, cross, len(ps))
	}

	ref0, ref1:=w.Ref()
	m, err:=s.Frames.composite(ps, l, nx, ny, [2]float64{ref0, ref1}, o.Index, s.LogWriter)
	if err!=nil {
		var te *TileError
		if errors.As(err, &te) { missing=[]tile.Code{te.Code} }
		return nil, missing, cdelt, err
	}

	cx:=floorInt(m.Central[0]+(o.RA -w.CRVAL[0])/w.CDELT[0])
	cy:=floorInt(m.Central[1]+(o.Dec-w.CRVAL[1])/w.CDELT[1])
	data, err:=m.Extract(cx, cy, s.Size)
	if err!=nil { return nil, nil, cdelt, err }

	ratio:=1.0
	if o.Q>0 && !math.IsInf(o.Q, 0) {
		ratio=1/o.Q
	} else {
		fmt.Fprintf(s.LogWriter, "%d: Warning: axis ratio %g invalid, using circular mask\n", o.Index, o.Q)
	}
	centre:=float64(half)+0.5
	c=&Cutout{
		Object:   o,
		Size:     s.Size,
		Bands:    s.Frames.Bands,
		Data:     data,
		Mask:     DistEllipse(s.Size, s.Size, centre, centre, ratio, o.PA),
		WCS:      fits.WCS{CRPIX: [2]float64{float64(half+1), float64(half+1)}, CRVAL: [2]float64{o.RA, o.Dec}, CDELT: w.CDELT, HasCRVAL: true},
		Padded:   m.Padded,
		Home:     home,
		REdgePix: math.Abs(o.REdgeDeg/w.CDELT[0]),
	}
	return c, nil, cdelt, nil
}

// Cuts and writes the stamp for one object, unless its output file already exists.
// Never fails the run, the outcome is in the result
func (s *Stitcher) Process(o Object) Result {
	r:=Result{Index: o.Index, ID: o.ID, Home: o.Tile, FileName: s.OutputName(o)}
	if _, err:=os.Stat(r.FileName); err==nil {
		r.setErr(fmt.Errorf("%w: %s", ErrAlreadyDone, r.FileName))
		return r
	}

	c, missing, cdelt, err:=s.Cut(o)
	r.Missing, r.CDELT=missing, cdelt
	if err!=nil {
		r.setErr(err)
		fmt.Fprintf(s.LogWriter, "%d: %s skipped: %v\n", o.Index, o.ID, err)
		return r
	}
	r.Padded=c.Padded

	cube, mask:=c.HDUs()
	if err:=fits.WriteFile(r.FileName, cube, mask); err!=nil {
		r.Status, r.Err=WriteFailed, err
		fmt.Fprintf(s.LogWriter, "%d: %s: writing %s: %v\n", o.Index, o.ID, r.FileName, err)
		return r
	}
	r.Status=Written

	if s.Preview!="" {
		p, err:=c.Preview()
		if err==nil { err=p.WriteFile(s.PreviewName(o)) }
		if err!=nil { fmt.Fprintf(s.LogWriter, "%d: Warning: preview for %s: %v\n", o.Index, o.ID, err) }
	}
	fmt.Fprintf(s.LogWriter, "%d: %s written to %s (tile %s, padded %v)\n", o.Index, o.ID, r.FileName, o.Tile, c.Padded)
	return r
}

// Processes all objects with at most the given number of concurrent workers and
// returns the merged report. Fails only if the output directories cannot be created
func (s *Stitcher) Run(objects []Object, workers int) (*Report, error) {
	if err:=os.MkdirAll(s.OutDir, 0755); err!=nil { return nil, err }
	if s.Preview!="" {
		if err:=os.MkdirAll(filepath.Join(s.OutDir, "jpgs"), 0755); err!=nil { return nil, err }
	}
	if workers<1 { workers=1 }

	results:=make([]Result, len(objects))
	limiter:=make(chan bool, workers)
	for i, o:=range objects {
		limiter <- true
		go func(i int, o Object) {
			defer func() { <-limiter }()
			results[i]=s.Process(o)
		}(i, o)
	}
	for i:=0; i<cap(limiter); i++ {  // wait for goroutines to finish
		limiter <- true
	}
	return NewReport(results), nil
}
