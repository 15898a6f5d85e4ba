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

	"github.com/mlnoga/stampcut/internal/tile"
)

// Outcome of processing one object
type Status int

const (
	Written Status = iota
	AlreadyDone
	MissingTile
	CorruptTile
	MissingWCS
	OutOfBounds
	WriteFailed
	numStatus
)

var statusNames=[numStatus]string{"written", "already done", "missing tile", "corrupt tile", "missing WCS", "out of bounds", "write failed"}

func (s Status) String() string {
	if s<0 || s>=numStatus { return fmt.Sprintf("Status(%d)", int(s)) }
	return statusNames[s]
}

// Per-object provenance
type Result struct {
	Index    int
	ID       string
	Status   Status
	Err      error        // nil if written
	Missing  []tile.Code  // tiles to download again
	Padded   bool
	Home     tile.Code
	FileName string
	CDELT    [2]float64   // pixel scale of the home tile, zero if unknown
}

func (r *Result) setErr(err error) {
	r.Err=err
	switch {
	case errors.Is(err, ErrAlreadyDone): r.Status=AlreadyDone
	case errors.Is(err, ErrMissingTile): r.Status=MissingTile
	case errors.Is(err, ErrCorruptTile): r.Status=CorruptTile
	case errors.Is(err, ErrMissingWCS):  r.Status=MissingWCS
	case errors.Is(err, ErrOutOfBounds): r.Status=OutOfBounds
	default:                             r.Status=WriteFailed
	}
}

// Merged outcome of a run, in catalogue order
type Report struct {
	Results []Result
	Missing []tile.Code       // distinct missing or corrupt tiles over all objects, sorted
	Counts  [numStatus]int
}

// Merges per-object results
func NewReport(results []Result) *Report {
	r:=&Report{Results: results}
	var all []tile.Code
	for _, res:=range results {
		r.Counts[res.Status]++
		for _, c:=range res.Missing {
			if !c.Outside { all=append(all, c) }
		}
	}
	r.Missing=tile.Unique(all)
	return r
}

// Number of objects with the given status
func (r *Report) Count(s Status) int {
	return r.Counts[s]
}

// Absolute Dec pixel scale of the first object whose home tile header was read, or 0
func (r *Report) PixelScale() float64 {
	for _, res:=range r.Results {
		if res.CDELT[1]!=0 { return math.Abs(res.CDELT[1]) }
	}
	return 0
}

// Logs per status counts and the missing tiles
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Processed %d objects:", len(r.Results))
	for s:=Status(0); s<numStatus; s++ {
		if r.Counts[s]>0 { fmt.Fprintf(w, " %d %s,", r.Counts[s], s) }
	}
	fmt.Fprintf(w, " %d padded\n", r.padded())
	fmt.Fprintf(w, "Missing or corrupted: %d tiles %v\n", len(r.Missing), r.Missing)
}

func (r *Report) padded() int {
	n:=0
	for _, res:=range r.Results {
		if res.Status==Written && res.Padded { n++ }
	}
	return n
}
