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
	"math"
)

// Returns a width x height array holding, for each pixel, the semi-major axis of the
// ellipse through it. The ellipse is centred at (xc, yc) in pixel index coordinates, with
// major to minor axis ratio and position angle paDeg in degrees. For ratio 1 this is
// the plain Euclidean distance from the centre.
func DistEllipse(width, height int, xc, yc, ratio, paDeg float64) []float32 {
	ang:=paDeg*math.Pi/180
	cosang, sinang:=math.Cos(ang), math.Sin(ang)
	im:=make([]float32, width*height)
	for y:=0; y<height; y++ {
		dy:=float64(y)-yc
		for x:=0; x<width; x++ {
			dx:=float64(x)-xc
			xr:= dx*cosang+dy*sinang
			yr:=-dx*sinang+dy*cosang
			im[y*width+x]=float32(math.Sqrt(xr*xr+(yr*ratio)*(yr*ratio)))
		}
	}
	return im
}
