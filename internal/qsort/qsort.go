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



// Package qsort implements in-place selection on float32 slices, used for
// median background estimates of cutout planes.
package qsort

import "math"

// Select kth lowest element (1-based) from an array of float32. Partially reorders the array.
// Array must not contain IEEE NaN
func QSelectFloat32(a []float32, k int) float32 {
	left, right:=0, len(a)-1
	for left<right {
		mid:=(left+right)>>1
		pivot:=a[mid]
		l, r:=left-1, right+1
		for {
			for {
				l++
				if a[l]>=pivot { break }
			}
			for {
				r--
				if a[r]<=pivot { break }
			}
			if l>=r { break } // index in r
			a[l], a[r]=a[r], a[l]
		}
		index:=r

		offset:=index-left+1
		if k<=offset {
			right=index
		} else {
			left=index+1
			k=k-offset
		}
	}
	return a[left]
}

// Median of an array of float32, averaging the two central elements for even lengths.
// Partially reorders the array. Array must not contain IEEE NaN
func QSelectMedianFloat32(a []float32) float32 {
	n:=len(a)
	if n==0 { return 0 }
	hi:=QSelectFloat32(a, (n>>1)+1)
	if n&1!=0 { return hi }
	// the lower half now holds the smaller elements, its maximum is the other central one
	lo:=a[0]
	for _, v:=range a[1:n>>1] {
		if v>lo { lo=v }
	}
	return 0.5*(lo+hi)
}

// Median of the finite values of data. Works on a copy, data is not modified.
// Returns NaN if there are no finite values
func Median(data []float32) float32 {
	tmp:=make([]float32, 0, len(data))
	for _, v:=range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) { continue }
		tmp=append(tmp, v)
	}
	if len(tmp)==0 { return float32(math.NaN()) }
	return QSelectMedianFloat32(tmp)
}
