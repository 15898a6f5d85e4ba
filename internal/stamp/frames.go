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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlnoga/stampcut/internal/fits"
	"github.com/mlnoga/stampcut/internal/tile"
)

var (
	ErrMissingTile = errors.New("missing tile")
	ErrCorruptTile = errors.New("corrupt tile")
	ErrMissingWCS  = errors.New("missing WCS")
	ErrOutOfBounds = errors.New("cutout window out of bounds")
	ErrAlreadyDone = errors.New("output exists")
)

// Coadd frames on local storage, one file per tile and band
type Frames struct {
	Dir      string
	Pattern  string   // printf pattern taking tile code and band
	Bands    []string
	TrimLow  int      // border pixels dropped at the low edge of each axis
	TrimHigh int      // border pixels dropped at the high edge of each axis
}

// Returns the file name of the given tile and band
func (f *Frames) Path(c tile.Code, band string) string {
	return filepath.Join(f.Dir, fmt.Sprintf(f.Pattern, c.String(), band))
}

// Reports whether the tile exists in every band
func (f *Frames) Complete(c tile.Code) bool {
	for _, b:=range f.Bands {
		if _, err:=os.Stat(f.Path(c, b)); err!=nil { return false }
	}
	return true
}

// Lists the tiles present in the first band, in ascending order
func (f *Frames) Tiles() ([]tile.Code, error) {
	pre, suf, _:=strings.Cut(fmt.Sprintf(f.Pattern, "\x00", f.Bands[0]), "\x00")
	names, err:=filepath.Glob(filepath.Join(f.Dir, pre+"*"+suf))
	if err!=nil { return nil, err }
	var codes []tile.Code
	for _, n:=range names {
		s:=strings.TrimSuffix(strings.TrimPrefix(filepath.Base(n), pre), suf)
		if c, err:=tile.Parse(s); err==nil { codes=append(codes, c) }
	}
	return tile.Unique(codes), nil
}

// Reads the header of the tile's first band
func (f *Frames) Header(c tile.Code, id int, logWriter io.Writer) (*fits.Image, error) {
	img, err:=fits.NewImageHeaderFromFile(f.Path(c, f.Bands[0]), id, logWriter)
	return img, classify(c, err)
}

// Reads one band of the tile
func (f *Frames) Load(c tile.Code, band string, id int, logWriter io.Writer) (*fits.Image, error) {
	img, err:=fits.NewImageFromFile(f.Path(c, band), id, logWriter)
	if err==nil && len(img.Naxisn)!=2 {
		err=fmt.Errorf("%d: %s has shape %s, want 2 axes", id, img.FileName, img.DimensionsToString())
	}
	return img, classify(c, err)
}

// A failure to read one tile. Kind is ErrMissingTile or ErrCorruptTile
type TileError struct {
	Code tile.Code
	Kind error
	Err  error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("%v %s: %v", e.Kind, e.Code, e.Err)
}

func (e *TileError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Maps file errors to missing or corrupt tiles
func classify(c tile.Code, err error) error {
	if err==nil { return nil }
	if errors.Is(err, fs.ErrNotExist) {
		return &TileError{Code: c, Kind: ErrMissingTile, Err: err}
	}
	return &TileError{Code: c, Kind: ErrCorruptTile, Err: err}
}

// Trimmed extent of a frame with the given size along one axis
func (f *Frames) trimmed(n int32) int {
	return int(n)-f.TrimLow-f.TrimHigh
}
