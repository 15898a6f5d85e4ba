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


// Package tile models the Stripe 82 coadd tiling: typed tile codes,
// the survey footprint, adjacency and binning of sky positions into tiles.
package tile

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var ErrBadCode = errors.New("bad tile code")

// Text form of tiles outside the survey footprint
const OutsideName = "zero"

// A tile coordinate. RA is the 3-digit and Dec the 1-digit index of the coadd
// file name. Outside marks positions beyond the survey footprint, which have no data
type Code struct {
	RA      int
	Dec     int
	Outside bool
}

// The outside sentinel
var Outside=Code{Outside: true}

// Parses the 4 character text form, e.g. "0153"
func Parse(s string) (Code, error) {
	if s==OutsideName { return Outside, nil }
	if len(s)!=4 { return Code{}, fmt.Errorf("%w: %q has %d characters, want 4", ErrBadCode, s, len(s)) }
	ra, err:=strconv.Atoi(s[:3])
	if err!=nil || ra<0 { return Code{}, fmt.Errorf("%w: %q", ErrBadCode, s) }
	dec, err:=strconv.Atoi(s[3:])
	if err!=nil || dec<0 { return Code{}, fmt.Errorf("%w: %q", ErrBadCode, s) }
	return Code{RA: ra, Dec: dec}, nil
}

func (c Code) String() string {
	if c.Outside { return OutsideName }
	return fmt.Sprintf("%03d%d", c.RA, c.Dec)
}

// Orders codes by RA index, then Dec index. Outside sorts first
func (c Code) Less(o Code) bool {
	if c.Outside!=o.Outside { return c.Outside }
	if c.RA!=o.RA { return c.RA<o.RA }
	return c.Dec<o.Dec
}

// Returns the distinct codes in ascending order
func Unique(codes []Code) []Code {
	seen:=make(map[Code]bool, len(codes))
	res:=make([]Code, 0, len(codes))
	for _, c:=range codes {
		if seen[c] { continue }
		seen[c]=true
		res=append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Less(res[j]) })
	return res
}

// Tile index values bounding the survey footprint. A tile whose RA index
// equals either RA edge, or whose Dec index equals either Dec edge, is outside
type Footprint struct {
	RAEdges  [2]int
	DecEdges [2]int
}

var DefaultFootprint=Footprint{RAEdges: [2]int{100, 220}, DecEdges: [2]int{0, 6}}

// Reports whether the code lies outside the footprint
func (f Footprint) IsOutside(c Code) bool {
	return c.Outside || c.RA==f.RAEdges[0] || c.RA==f.RAEdges[1] ||
	       c.Dec==f.DecEdges[0] || c.Dec==f.DecEdges[1]
}

// Returns the tile offset by dRA and dDec index steps. The result is Outside
// if the input was, or if it lands on a footprint edge
func (f Footprint) Neighbor(c Code, dRA, dDec int) Code {
	if c.Outside { return Outside }
	n:=Code{RA: c.RA+dRA, Dec: c.Dec+dDec}
	if f.IsOutside(n) { return Outside }
	return n
}
