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
	"fmt"
	"io"
	"math"

	"github.com/mlnoga/stampcut/internal/config"
	"github.com/mlnoga/stampcut/internal/cosmo"
	"github.com/mlnoga/stampcut/internal/stamp"
	"github.com/mlnoga/stampcut/internal/tile"
)

// Loads the object catalogue. Disc edge radii in kpc are converted to degrees at
// each object's redshift. Objects without a tile column, or with an unparseable
// tile code, are binned into tiles from their sky position
func Load(fileName string, cols config.Columns, logWriter io.Writer) ([]stamp.Object, error) {
	rows, names, err:=ReadTable(fileName)
	if err!=nil { return nil, err }

	hasTile:=false
	for _, n:=range names {
		if n==cols.Tile { hasTile=true }
	}
	if !hasTile {
		fmt.Fprintf(logWriter, "Catalogue %s has no column %s, binning objects into tiles by position\n", fileName, cols.Tile)
	}

	objects:=make([]stamp.Object, len(rows))
	for i, row:=range rows {
		o, err:=parseObject(row, cols, hasTile)
		if err!=nil { return nil, fmt.Errorf("%s: row %d: %w", fileName, i, err) }
		o.Index=i
		if math.IsNaN(o.REdgeDeg) || math.IsInf(o.REdgeDeg, 0) || o.REdgeDeg<=0 {
			fmt.Fprintf(logWriter, "%d: Warning: %s has disc edge %g deg\n", i, o.ID, o.REdgeDeg)
		}
		objects[i]=o
	}
	fmt.Fprintf(logWriter, "Loaded %d objects from %s\n", len(objects), fileName)
	return objects, nil
}

func parseObject(row Row, cols config.Columns, hasTile bool) (o stamp.Object, err error) {
	if o.ID,  err=row.String(cols.ID);  err!=nil { return o, err }
	if o.RA,  err=row.Float(cols.RA);   err!=nil { return o, err }
	if o.Dec, err=row.Float(cols.Dec);  err!=nil { return o, err }
	if o.PA,  err=row.Float(cols.PA);   err!=nil { return o, err }
	if o.Q,   err=row.Float(cols.Q);    err!=nil { return o, err }
	if o.Z,   err=row.Float(cols.Z);    err!=nil { return o, err }
	redgeKpc, err:=row.Float(cols.REdge)
	if err!=nil { return o, err }
	o.REdgeDeg=cosmo.Planck15.KpcToDeg(redgeKpc, o.Z)

	o.Tile=tile.FromSky(o.RA, o.Dec)
	if hasTile {
		s, err:=row.String(cols.Tile)
		if err!=nil { return o, err }
		if c, err:=tile.Parse(s); err==nil { o.Tile=c }
	}
	return o, nil
}

// Returns the distinct home tiles of the objects in ascending order
func Tiles(objects []stamp.Object) []tile.Code {
	codes:=make([]tile.Code, len(objects))
	for i, o:=range objects {
		codes[i]=o.Tile
	}
	return tile.Unique(codes)
}
