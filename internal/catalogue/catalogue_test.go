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



package catalogue

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mlnoga/stampcut/internal/config"
	"github.com/mlnoga/stampcut/internal/cosmo"
	"github.com/mlnoga/stampcut/internal/tile"
)

type testRow struct {
	JID   string  `fits:"JID"`
	RA    float64 `fits:"RAJ2000"`
	Dec   float64 `fits:"DEJ2000"`
	Redge float32 `fits:"Redge"`
	Z     float64 `fits:"z"`
	PA    float64 `fits:"PA"`
	Q     float64 `fits:"q"`
	Fname string  `fits:"fname"`
}

type testRowNoTile struct {
	JID   string  `fits:"JID"`
	RA    float64 `fits:"RAJ2000"`
	Dec   float64 `fits:"DEJ2000"`
	Redge float64 `fits:"Redge"`
	Z     float64 `fits:"z"`
	PA    float64 `fits:"PA"`
	Q     float64 `fits:"q"`
}

func TestLoadWithTileColumn(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "cat.fits")
	rows:=[]testRow{
		{"J001", 0.1, 0.1, 20, 0.05, 30, 0.5, "1013"},
		{"J002", 317.3, -0.9, 10, 0.02, 120, 0.8, "bad!"},
	}
	if err:=WriteTable(fileName, "CATALOGUE", rows); err!=nil { t.Fatal(err) }

	objs, err:=Load(fileName, config.Default().Obs.Columns, io.Discard)
	if err!=nil { t.Fatal(err) }
	if len(objs)!=2 { t.Fatalf("loaded %d objects; want 2", len(objs)) }

	o:=objs[0]
	if o.ID!="J001" || o.Index!=0 || o.Tile!=(tile.Code{RA: 101, Dec: 3}) {
		t.Errorf("object 0 %+v", o)
	}
	if want:=cosmo.Planck15.KpcToDeg(20, 0.05); math.Abs(o.REdgeDeg-want)>1e-12 {
		t.Errorf("REdgeDeg=%v; want %v", o.REdgeDeg, want)
	}
	// unparseable tile falls back to binning by position
	if want:=tile.FromSky(317.3, -0.9); objs[1].Tile!=want {
		t.Errorf("object 1 tile %v; want %v", objs[1].Tile, want)
	}
}

func TestLoadWithoutTileColumn(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "cat.fits.gz")
	rows:=[]testRowNoTile{
		{"A", 45.0, 1.1, 5, 0.01, 0, 1},
		{"B", 45.0, 1.1, 5, 0.01, 0, 1},
		{"C", 310.3, 0.0, 5, 0.01, 0, 1},
	}
	if err:=WriteTable(fileName, "CATALOGUE", rows); err!=nil { t.Fatal(err) }

	objs, err:=Load(fileName, config.Default().Obs.Columns, io.Discard)
	if err!=nil { t.Fatal(err) }
	want:=[]tile.Code{{RA: 1, Dec: 3}, {RA: 191, Dec: 5}}
	if diff:=cmp.Diff(want, Tiles(objs)); diff!="" {
		t.Errorf("Tiles mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingColumn(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "cat.fits")
	if err:=WriteTable(fileName, "CATALOGUE", []testRowNoTile{{"A", 1, 0, 5, 0.01, 0, 1}}); err!=nil { t.Fatal(err) }
	cols:=config.Default().Obs.Columns
	cols.Q="axis_ratio"
	if _, err:=Load(fileName, cols, io.Discard); err==nil {
		t.Errorf("Load with missing column succeeded; want error")
	}
}

func TestLoadWarnsOnUnusableDiscEdge(t *testing.T) {
	fileName:=filepath.Join(t.TempDir(), "cat.fits")
	rows:=[]testRowNoTile{
		{"J001", 150.0, 0.1, 20, 0.05, 30, 0.5},
		{"J002", 150.2, 0.2, 20, 0,    30, 0.5},
	}
	if err:=WriteTable(fileName, "CATALOGUE", rows); err!=nil { t.Fatal(err) }

	var log bytes.Buffer
	if _, err:=Load(fileName, config.Default().Obs.Columns, &log); err!=nil { t.Fatal(err) }
	if strings.Contains(log.String(), "J001 has disc edge") {
		t.Errorf("warning for valid object:\n%s", log.String())
	}
	if !strings.Contains(log.String(), "1: Warning: J002 has disc edge") {
		t.Errorf("no warning for zero redshift object:\n%s", log.String())
	}
}
