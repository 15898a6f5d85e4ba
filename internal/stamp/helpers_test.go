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
	"io"
	"math"
	"testing"

	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/tile"
)

// Synthetic 27x27 frames, trimmed to 20x20, reference pixel 14 (1-based)
const (
	testN     = 27
	testRef   = 13.0 // 0-based
	testScale = 0.001
	testSize  = 10
)

var testBands=[]string{"u", "g", "r", "i", "z"}

// Pixel value encoding tile, band and untrimmed position
func testValue(c tile.Code, band, x, y int) float32 {
	return float32(((c.RA-10)*10+c.Dec)*100000 + band*10000 + y*100 + x)
}

func testFrames(dir string) *Frames {
	return &Frames{Dir: dir, Pattern: "f%s_%s.rec.fits.gz", Bands: testBands, TrimLow: 4, TrimHigh: 3}
}

// Writes all bands of the given tiles. If wcs is false, the frames lack CDELT
func writeTestTiles(t *testing.T, f *Frames, wcs bool, codes ...tile.Code) {
	t.Helper()
	for _, c:=range codes {
		ra, dec:=c.Center()
		for b, band:=range f.Bands {
			img:=fits.NewImageFromNaxisn([]int32{testN, testN}, nil)
			for y:=0; y<testN; y++ {
				for x:=0; x<testN; x++ {
					img.Data[y*testN+x]=testValue(c, b, x, y)
				}
			}
			img.Header.SetFloat("CRPIX1", testRef+1, "")
			img.Header.SetFloat("CRPIX2", testRef+1, "")
			img.Header.SetFloat("CRVAL1", ra, "")
			img.Header.SetFloat("CRVAL2", dec, "")
			if wcs {
				img.Header.SetFloat("CDELT1", -testScale, "")
				img.Header.SetFloat("CDELT2", testScale, "")
			}
			if err:=fits.WriteFile(f.Path(c, band), img); err!=nil { t.Fatal(err) }
		}
	}
}

// An object at the centre of trimmed pixel (px, py) of the home tile
func testObject(home tile.Code, px, py int) Object {
	ra, dec:=home.Center()
	x:=float64(px+4)-testRef+0.5
	y:=float64(py+4)-testRef+0.5
	return Object{
		Index: 0, ID: "J" + home.String(), Tile: home,
		RA: ra-x*testScale, Dec: dec+y*testScale,
		REdgeDeg: 3*testScale, PA: 30, Q: 0.5,
	}
}

func testStitcher(dir, outDir string) *Stitcher {
	return &Stitcher{
		Frames:    testFrames(dir),
		Footprint: tile.DefaultFootprint,
		Size:      testSize,
		OutDir:    outDir,
		LogWriter: io.Discard,
	}
}

func near(a, b, eps float64) bool {
	return math.Abs(a-b)<=eps
}
