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
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/tile"
)

func TestCrossing(t *testing.T) {
	tcs:=[]struct {
		P, Half, Extent, Want int
	}{
		{10, 5, 20, 0},
		{5, 5, 20, 0},
		{4, 5, 20, -1},
		{14, 5, 20, 0},
		{15, 5, 20, 1},
		{-3, 5, 20, -1},
	}
	for _, tc:=range tcs {
		if got:=crossing(tc.P, tc.Half, tc.Extent); got!=tc.Want {
			t.Errorf("crossing(%d,%d,%d)=%d; want %d", tc.P, tc.Half, tc.Extent, got, tc.Want)
		}
	}
}

func TestLayoutSignVector(t *testing.T) {
	home:=tile.Code{RA: 15, Dec: 3}
	cdelt:=[2]float64{-testScale, testScale}
	tcs:=[]struct {
		Cross  [2]int
		Cells  [2]int
		Home   [2]int
		Tiles  []tile.Code
	}{
		{[2]int{0, 0}, [2]int{1, 1}, [2]int{0, 0}, []tile.Code{}},
		{[2]int{-1, 0}, [2]int{2, 1}, [2]int{1, 0}, []tile.Code{{RA: 16, Dec: 3}}},
		{[2]int{1, 0}, [2]int{2, 1}, [2]int{0, 0}, []tile.Code{{RA: 14, Dec: 3}}},
		{[2]int{0, -1}, [2]int{1, 2}, [2]int{0, 1}, []tile.Code{{RA: 15, Dec: 2}}},
		{[2]int{0, 1}, [2]int{1, 2}, [2]int{0, 0}, []tile.Code{{RA: 15, Dec: 4}}},
		{[2]int{-1, 1}, [2]int{2, 2}, [2]int{1, 0}, []tile.Code{{RA: 16, Dec: 3}, {RA: 15, Dec: 4}, {RA: 16, Dec: 4}}},
		{[2]int{1, -1}, [2]int{2, 2}, [2]int{0, 1}, []tile.Code{{RA: 14, Dec: 3}, {RA: 15, Dec: 2}, {RA: 14, Dec: 2}}},
	}
	for _, tc:=range tcs {
		l:=newLayout(tc.Cross)
		if l.Cells!=tc.Cells || l.Home!=tc.Home {
			t.Errorf("newLayout(%v)=%+v; want cells %v home %v", tc.Cross, l, tc.Cells, tc.Home)
		}
		got:=Neighbors(home, tc.Cross, cdelt, tile.DefaultFootprint)
		if diff:=cmp.Diff(tc.Tiles, got); diff!="" {
			t.Errorf("Neighbors(%v) mismatch (-want +got):\n%s", tc.Cross, diff)
		}

		// every cell is used exactly once, neighbours differ from home in the flipped components
		seen:=map[[2]int]bool{}
		for _, p:=range l.placements(home, cdelt, tile.DefaultFootprint) {
			if seen[p.Cell] { t.Errorf("cross %v: cell %v used twice", tc.Cross, p.Cell) }
			seen[p.Cell]=true
			if p.Home && p.Cell!=tc.Home { t.Errorf("cross %v: home in cell %v; want %v", tc.Cross, p.Cell, tc.Home) }
		}
		if len(seen)!=tc.Cells[0]*tc.Cells[1] { t.Errorf("cross %v: %d cells used; want %d", tc.Cross, len(seen), tc.Cells[0]*tc.Cells[1]) }
	}
}

func TestCutNoStitchEqualsCrop(t *testing.T) {
	dir:=t.TempDir()
	s:=testStitcher(dir, t.TempDir())
	home:=tile.Code{RA: 15, Dec: 3}
	writeTestTiles(t, s.Frames, true, home)

	c, missing, _, err:=s.Cut(testObject(home, 10, 10))
	if err!=nil { t.Fatal(err) }
	if len(missing)>0 { t.Errorf("missing=%v; want none", missing) }
	if c.Padded { t.Errorf("Padded=true; want false") }

	// window starts at trimmed (5,5), i.e. untrimmed (9,9)
	for b:=range testBands {
		for y:=0; y<testSize; y++ {
			for x:=0; x<testSize; x++ {
				got:=c.Data[b*testSize*testSize+y*testSize+x]
				if want:=testValue(home, b, 9+x, 9+y); got!=want {
					t.Fatalf("band %d (%d,%d)=%v; want %v", b, x, y, got, want)
				}
			}
		}
	}
	if !near(c.REdgePix, 3, 1e-9) { t.Errorf("REdgePix=%v; want 3", c.REdgePix) }
	if c.WCS.CRPIX!=[2]float64{6, 6} { t.Errorf("CRPIX=%v; want [6 6]", c.WCS.CRPIX) }

	// the object lies in cutout pixel (5,5), and the header must say so
	o:=testObject(home, 10, 10)
	if x, y:=c.WCS.Pixel(o.RA, o.Dec); floorInt(x)!=5 || floorInt(y)!=5 {
		t.Errorf("object maps to cutout pixel (%v,%v); want (5,5)", x, y)
	}
}

func TestCompositeSingleAxisDoubles(t *testing.T) {
	dir:=t.TempDir()
	f:=testFrames(dir)
	home, east:=tile.Code{RA: 15, Dec: 3}, tile.Code{RA: 16, Dec: 3}
	writeTestTiles(t, f, true, home, east)

	l:=newLayout([2]int{-1, 0})
	ps:=l.placements(home, [2]float64{-testScale, testScale}, tile.DefaultFootprint)
	m, err:=f.composite(ps, l, testN, testN, [2]float64{testRef, testRef}, 0, io.Discard)
	if err!=nil { t.Fatal(err) }
	if m.Width!=40 || m.Height!=20 { t.Errorf("composite %dx%d; want 40x20", m.Width, m.Height) }
	if m.Central!=[2]float64{29, 9} { t.Errorf("Central=%v; want [29 9]", m.Central) }
	if m.Padded { t.Errorf("Padded=true; want false") }

	// neighbour in the low cell, home in the high cell
	if got, want:=m.Plane(2)[0], testValue(east, 2, 4, 4); got!=want { t.Errorf("low cell origin=%v; want %v", got, want) }
	if got, want:=m.Plane(2)[20], testValue(home, 2, 4, 4); got!=want { t.Errorf("high cell origin=%v; want %v", got, want) }
	if got, want:=m.Plane(4)[19*40+39], testValue(home, 4, 23, 23); got!=want { t.Errorf("last pixel=%v; want %v", got, want) }
}

func TestCutStitchesAcrossRAEdge(t *testing.T) {
	dir:=t.TempDir()
	s:=testStitcher(dir, t.TempDir())
	home, east:=tile.Code{RA: 15, Dec: 3}, tile.Code{RA: 16, Dec: 3}
	writeTestTiles(t, s.Frames, true, home, east)

	c, _, _, err:=s.Cut(testObject(home, 2, 10))
	if err!=nil { t.Fatal(err) }
	// window x from composite 17: three columns of the neighbour, then home from trimmed 0
	if got, want:=c.Data[0], testValue(east, 0, 21, 9); got!=want { t.Errorf("(0,0)=%v; want %v", got, want) }
	if got, want:=c.Data[3], testValue(home, 0, 4, 9); got!=want { t.Errorf("(3,0)=%v; want %v", got, want) }
}

func TestCutDiagonal(t *testing.T) {
	dir:=t.TempDir()
	s:=testStitcher(dir, t.TempDir())
	home:=tile.Code{RA: 15, Dec: 3}
	writeTestTiles(t, s.Frames, true, home, tile.Code{RA: 16, Dec: 3}, tile.Code{RA: 15, Dec: 4}, tile.Code{RA: 16, Dec: 4})

	c, _, _, err:=s.Cut(testObject(home, 2, 17))
	if err!=nil { t.Fatal(err) }
	// lower left corner from the RA neighbour, upper left from the diagonal
	last:=(testSize-1)*testSize
	if got, want:=c.Data[0], testValue(tile.Code{RA: 16, Dec: 3}, 0, 21, 16); got!=want { t.Errorf("(0,0)=%v; want %v", got, want) }
	if got, want:=c.Data[last], testValue(tile.Code{RA: 16, Dec: 4}, 0, 21, 5); got!=want { t.Errorf("(0,9)=%v; want %v", got, want) }
	if got, want:=c.Data[last+9], testValue(tile.Code{RA: 15, Dec: 4}, 0, 10, 5); got!=want { t.Errorf("(9,9)=%v; want %v", got, want) }
}

func TestCutMissingNeighbour(t *testing.T) {
	dir:=t.TempDir()
	s:=testStitcher(dir, t.TempDir())
	home:=tile.Code{RA: 15, Dec: 3}
	writeTestTiles(t, s.Frames, true, home)

	_, missing, _, err:=s.Cut(testObject(home, 2, 17))
	if !errors.Is(err, ErrMissingTile) { t.Fatalf("err=%v; want ErrMissingTile", err) }
	want:=[]tile.Code{{RA: 16, Dec: 3}, {RA: 15, Dec: 4}, {RA: 16, Dec: 4}}
	if diff:=cmp.Diff(want, missing); diff!="" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestCutErrors(t *testing.T) {
	dir:=t.TempDir()
	s:=testStitcher(dir, t.TempDir())
	home, nowcs:=tile.Code{RA: 15, Dec: 3}, tile.Code{RA: 30, Dec: 3}
	writeTestTiles(t, s.Frames, true, home)
	writeTestTiles(t, s.Frames, false, nowcs)

	if _, missing, _, err:=s.Cut(testObject(tile.Code{RA: 40, Dec: 2}, 10, 10)); !errors.Is(err, ErrMissingTile) || len(missing)!=1 {
		t.Errorf("absent home: err=%v missing=%v; want ErrMissingTile and one code", err, missing)
	}
	if _, _, _, err:=s.Cut(testObject(nowcs, 10, 10)); !errors.Is(err, ErrMissingWCS) {
		t.Errorf("no CDELT: err=%v; want ErrMissingWCS", err)
	}
	s.UseHeaderCRVAL=true
	if _, _, _, err:=s.Cut(testObject(home, 10, 10)); err!=nil {
		t.Errorf("header CRVAL: err=%v; want nil", err)
	}
	s.Size=21
	if _, _, _, err:=s.Cut(testObject(home, 10, 10)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("size 21: err=%v; want ErrOutOfBounds", err)
	}

	// corrupt neighbour: truncated file
	s.Size=testSize
	east:=tile.Code{RA: 16, Dec: 3}
	writeTestTiles(t, s.Frames, true, east)
	if err:=os.WriteFile(s.Frames.Path(east, "r"), []byte("SIMPLE"), 0644); err!=nil { t.Fatal(err) }
	_, missing, _, err:=s.Cut(testObject(home, 2, 10))
	if !errors.Is(err, ErrCorruptTile) { t.Errorf("corrupt neighbour: err=%v; want ErrCorruptTile", err) }
	if diff:=cmp.Diff([]tile.Code{east}, missing); diff!="" { t.Errorf("corrupt neighbour missing (-want +got):\n%s", diff) }
}

func TestDecLowEdgePadded(t *testing.T) {
	dir, outDir:=t.TempDir(), t.TempDir()
	s:=testStitcher(dir, outDir)
	s.Preview="jpg"
	home:=tile.Code{RA: 15, Dec: 1}
	writeTestTiles(t, s.Frames, true, home)

	o:=testObject(home, 10, 2)
	rep, err:=s.Run([]Object{o}, 1)
	if err!=nil { t.Fatal(err) }
	r:=rep.Results[0]
	if r.Status!=Written { t.Fatalf("status %v err %v; want written", r.Status, r.Err) }
	if !r.Padded { t.Errorf("Padded=false; want true") }
	if len(rep.Missing)!=0 { t.Errorf("report missing %v; want none", rep.Missing) }

	img, err:=fits.NewImageFromFile(s.OutputName(o), 0, io.Discard)
	if err!=nil { t.Fatal(err) }
	if !img.Header.Bools["PADDED"] { t.Errorf("PADDED header not set") }
	if diff:=cmp.Diff([]int32{testSize, testSize, 5}, img.Naxisn); diff!="" { t.Errorf("shape (-want +got):\n%s", diff) }
	if v, _:=img.Header.Float("CRVAL1"); !near(v, o.RA, 1e-12) { t.Errorf("CRVAL1=%v; want %v", v, o.RA) }

	// composite y from 17: rows 0..2 come from the zero filled cell below the home tile
	for b:=0; b<5; b++ {
		plane:=img.Plane(b)
		for y:=0; y<testSize; y++ {
			for x:=0; x<testSize; x++ {
				v:=plane[y*testSize+x]
				if y<3 && v!=0 { t.Fatalf("band %d (%d,%d)=%v; want 0 in padded cell", b, x, y, v) }
				if y>=3 && v!=testValue(home, b, 9+x, 4+y-3) { t.Fatalf("band %d (%d,%d)=%v; want home pixel", b, x, y, v) }
			}
		}
	}
	if _, err:=os.Stat(s.PreviewName(o)); err!=nil { t.Errorf("preview: %v", err) }
}

func TestCutCornerAtDecLowEdge(t *testing.T) {
	dir:=t.TempDir()
	s:=testStitcher(dir, t.TempDir())
	home, east:=tile.Code{RA: 15, Dec: 1}, tile.Code{RA: 16, Dec: 1}
	writeTestTiles(t, s.Frames, true, home, east)

	c, missing, _, err:=s.Cut(testObject(home, 2, 2))
	if err!=nil { t.Fatal(err) }
	if len(missing)>0 { t.Errorf("missing=%v; want none", missing) }
	if !c.Padded { t.Errorf("Padded=false; want true") }

	// window from composite (17,17): the lower row of cells lies below the footprint
	for b:=range testBands {
		plane:=c.Data[b*testSize*testSize:(b+1)*testSize*testSize]
		for y:=0; y<testSize; y++ {
			for x:=0; x<testSize; x++ {
				var want float32
				switch {
				case y<3:  want=0
				case x<3:  want=testValue(east, b, 21+x, 4+y-3)
				default:   want=testValue(home, b, 4+x-3, 4+y-3)
				}
				if got:=plane[y*testSize+x]; got!=want {
					t.Fatalf("band %d (%d,%d)=%v; want %v", b, x, y, got, want)
				}
			}
		}
	}
}

func TestRunIdempotent(t *testing.T) {
	dir, outDir:=t.TempDir(), t.TempDir()
	s:=testStitcher(dir, outDir)
	s.Preview="tif"
	home:=tile.Code{RA: 15, Dec: 3}
	writeTestTiles(t, s.Frames, true, home)

	objects:=[]Object{testObject(home, 10, 10), testObject(home, 8, 12), testObject(tile.Code{RA: 16, Dec: 3}, 10, 10)}
	objects[1].ID="second"
	for i:=range objects { objects[i].Index=i }

	rep, err:=s.Run(objects, 3)
	if err!=nil { t.Fatal(err) }
	if rep.Count(Written)!=2 || rep.Count(MissingTile)!=1 {
		t.Fatalf("first run counts %v; want 2 written, 1 missing", rep.Counts)
	}
	if diff:=cmp.Diff([]tile.Code{{RA: 16, Dec: 3}}, rep.Missing); diff!="" { t.Errorf("missing (-want +got):\n%s", diff) }

	before:=listModTimes(t, outDir)
	time.Sleep(10*time.Millisecond)
	rep, err=s.Run(objects, 1)
	if err!=nil { t.Fatal(err) }
	if rep.Count(AlreadyDone)!=2 { t.Errorf("second run counts %v; want 2 already done", rep.Counts) }
	if diff:=cmp.Diff(before, listModTimes(t, outDir)); diff!="" {
		t.Errorf("outputs changed on rerun (-before +after):\n%s", diff)
	}
}

func listModTimes(t *testing.T, dir string) map[string]time.Time {
	t.Helper()
	res:=map[string]time.Time{}
	err:=filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err!=nil { return err }
		res[path]=info.ModTime()
		return nil
	})
	if err!=nil { t.Fatal(err) }
	return res
}

func TestReportMerge(t *testing.T) {
	a, b:=tile.Code{RA: 15, Dec: 3}, tile.Code{RA: 12, Dec: 2}
	rep:=NewReport([]Result{
		{Status: Written, Padded: true},
		{Status: MissingTile, Missing: []tile.Code{a, b}},
		{Status: CorruptTile, Missing: []tile.Code{a}, CDELT: [2]float64{-0.1, 0.1}},
		{Status: MissingTile, Missing: []tile.Code{tile.Outside}},
	})
	if diff:=cmp.Diff([]tile.Code{b, a}, rep.Missing); diff!="" { t.Errorf("missing (-want +got):\n%s", diff) }
	if rep.Count(MissingTile)!=2 || rep.Count(CorruptTile)!=1 || rep.Count(Written)!=1 {
		t.Errorf("counts %v", rep.Counts)
	}
	if rep.PixelScale()!=0.1 { t.Errorf("PixelScale=%v; want 0.1", rep.PixelScale()) }
}
