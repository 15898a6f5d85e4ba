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



// Package plot draws summary figures of a pipeline run.
package plot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Cutout half sizes marked in the disc edge histogram, in pixels
var DefaultMarks=[]float64{200, 300, 400}

var markColor=color.RGBA{R: 220, A: 255}

// Returns the number of values strictly below each mark
func CountBelow(values, marks []float64) []int {
	res:=make([]int, len(marks))
	for _, v:=range values {
		for i, m:=range marks {
			if v<m { res[i]++ }
		}
	}
	return res
}

// Draws a histogram of disc edge radii in pixels with dashed lines at the marks.
// The legend lists for each mark the cutout size it stands for and how many
// galaxies would fit. The format follows the file suffix
func REdgeHistogram(fileName string, redgePix []float64, marks []float64) error {
	var vals plotter.Values
	for _, v:=range redgePix {
		if !math.IsNaN(v) && !math.IsInf(v, 0) { vals=append(vals, math.Abs(v)) }
	}
	if len(vals)==0 { return fmt.Errorf("no finite disc edge radii to plot") }

	p:=plot.New()
	p.Title.Text=fmt.Sprintf("total galaxies: %d", len(vals))
	p.X.Label.Text="R_edge [pix]"
	p.Y.Label.Text="N galaxies"

	h, err:=plotter.NewHist(vals, 50)
	if err!=nil { return err }
	h.LineStyle.Width=vg.Points(0.5)
	p.Add(h)

	top:=0.0
	for _, b:=range h.Bins {
		if b.Weight>top { top=b.Weight }
	}
	for i, n:=range CountBelow(vals, marks) {
		l, err:=plotter.NewLine(plotter.XYs{{X: marks[i], Y: 0}, {X: marks[i], Y: top}})
		if err!=nil { return err }
		l.LineStyle.Color=markColor
		l.LineStyle.Dashes=[]vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("%.0f pix: %d gal", 2*marks[i], n), l)
	}
	p.Legend.Top=true
	if len(marks)>0 {
		if max:=marks[len(marks)-1]*1.175; p.X.Max<max { p.X.Max=max }
	}
	p.X.Min=0

	return p.Save(6*vg.Inch, 4*vg.Inch, fileName)
}
