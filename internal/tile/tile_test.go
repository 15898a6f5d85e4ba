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


package tile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseString(t *testing.T) {
	tcs:=[]struct {
		Text string
		Code Code
	}{
		{"0153", Code{RA: 15, Dec: 3}},
		{"2191", Code{RA: 219, Dec: 1}},
		{"0012", Code{RA: 1, Dec: 2}},
		{"zero", Outside},
	}
	for _, tc:=range tcs {
		c, err:=Parse(tc.Text)
		if err!=nil { t.Fatalf("Parse(%q) err=%v", tc.Text, err) }
		if c!=tc.Code { t.Errorf("Parse(%q)=%+v; want %+v", tc.Text, c, tc.Code) }
		if s:=c.String(); s!=tc.Text { t.Errorf("%+v.String()=%q; want %q", c, s, tc.Text) }
	}
	for _, bad:=range []string{"", "015", "01534", "01a3", "-013"} {
		if _, err:=Parse(bad); !errors.Is(err, ErrBadCode) {
			t.Errorf("Parse(%q) err=%v; want ErrBadCode", bad, err)
		}
	}
}

func TestNeighborInverse(t *testing.T) {
	f:=DefaultFootprint
	steps:=[][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, -1}, {1, -1}, {-1, 1}}
	for ra:=f.RAEdges[0]-1; ra<=f.RAEdges[1]+1; ra++ {
		for dec:=f.DecEdges[0]; dec<=f.DecEdges[1]; dec++ {
			c:=Code{RA: ra, Dec: dec}
			for _, s:=range steps {
				n:=f.Neighbor(c, s[0], s[1])
				if n.Outside { continue }
				if back:=f.Neighbor(n, -s[0], -s[1]); back!=c && !f.IsOutside(c) {
					t.Errorf("Neighbor(Neighbor(%v,%d,%d),%d,%d)=%v; want %v", c, s[0], s[1], -s[0], -s[1], back, c)
				}
			}
		}
	}
}

func TestNeighborSentinel(t *testing.T) {
	f:=DefaultFootprint
	tcs:=[]struct {
		From       Code
		DRA, DDec  int
		Want       Code
	}{
		{Code{RA: 15, Dec: 1}, 0, -1, Outside},     // Dec low edge
		{Code{RA: 15, Dec: 5}, 0, 1, Outside},      // Dec high edge
		{Code{RA: 101, Dec: 3}, -1, 0, Outside},    // RA edge 100
		{Code{RA: 219, Dec: 3}, 1, 0, Outside},     // RA edge 220
		{Code{RA: 219, Dec: 3}, 0, 1, Code{RA: 219, Dec: 4}},
		{Code{RA: 15, Dec: 3}, 1, 1, Code{RA: 16, Dec: 4}},
		{Outside, 1, 0, Outside},
	}
	for _, tc:=range tcs {
		if got:=f.Neighbor(tc.From, tc.DRA, tc.DDec); got!=tc.Want {
			t.Errorf("Neighbor(%v,%d,%d)=%v; want %v", tc.From, tc.DRA, tc.DDec, got, tc.Want)
		}
	}
}

func TestFromSkyMatchesCenter(t *testing.T) {
	for dec:=1; dec<=5; dec++ {
		for ra:=1; ra<=219; ra++ {
			if ra==100 { continue }
			c:=Code{RA: ra, Dec: dec}
			cra, cdec:=c.Center()
			if got:=FromSky(cra, cdec); got!=c {
				t.Errorf("FromSky(Center(%v)=%v,%v)=%v; want %v", c, cra, cdec, got, c)
			}
		}
	}
}

func TestFromSkyKnownPositions(t *testing.T) {
	tcs:=[]struct {
		RA, Dec float64
		Want    string
	}{
		{0.1, 0.1, "1013"},
		{0.6, -0.6, "1022"},
		{45.0, 1.1, "1915"},
		{310.3, 0.0, "0013"},
		{355.0, -1.0, "0911"},
	}
	for _, tc:=range tcs {
		if got:=FromSky(tc.RA, tc.Dec).String(); got!=tc.Want {
			t.Errorf("FromSky(%v,%v)=%s; want %s", tc.RA, tc.Dec, got, tc.Want)
		}
	}
}

func TestUnique(t *testing.T) {
	in:=[]Code{{RA: 16, Dec: 3}, {RA: 15, Dec: 4}, {RA: 16, Dec: 3}, {RA: 15, Dec: 2}, {RA: 15, Dec: 4}}
	want:=[]Code{{RA: 15, Dec: 2}, {RA: 15, Dec: 4}, {RA: 16, Dec: 3}}
	if diff:=cmp.Diff(want, Unique(in)); diff!="" {
		t.Errorf("Unique mismatch (-want +got):\n%s", diff)
	}
}
