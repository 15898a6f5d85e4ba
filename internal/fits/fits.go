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


package fits

import (
	"fmt"
	"strings"
)

// A FITS image, i.e. one header and data unit.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int         // Sequential ID number, for log output. Catalogue row for cutouts and mocks
	FileName string      // Original file name, if any, for log output.

	Header Header        // The header with all keys, values, comments, history entries etc.
	Bitpix int32         // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float32       // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float32       // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int32       // Axis dimensions. Most quickly varying dimension first (i.e. X,Y,band)
	Pixels int32         // Number of pixels in the image. Product of Naxisn[]

	Data   []float32     // The image data
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header:  NewHeader(),
		Bscale:  1,
	}
}

// Creates a FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float32) *Image {
	numPixels:=int32(1)
	for _,naxis:=range(naxisn) {
		numPixels*=naxis
	}
	if data==nil {
		data=make([]float32, numPixels)
	}
	return &Image{
		Header:   NewHeader(),
		Bitpix:   -32,
		Bzero:    0,
		Bscale:   1,
		Naxisn:   append([]int32(nil), naxisn...), // clone slice
		Pixels:   numPixels,
		Data:     data,
	}
}


// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float64
	Strings  map[string]string
	Dates    map[string]string
	Notes    map[string]string   // Per key comments, written after the value
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:   make(map[string]bool),
		Ints:    make(map[string]int32),
		Floats:  make(map[string]float64),
		Strings: make(map[string]string),
		Dates:   make(map[string]string),
		Notes:   make(map[string]string),
		Comments:make([]string,0),
		History: make([]string,0),
		End:     false,
	}
}

// Returns a numeric header value, accepting both floating point and integer cards
func (h *Header) Float(key string) (float64, bool) {
	if v, ok:=h.Floats[key]; ok { return v, true }
	if v, ok:=h.Ints[key];   ok { return float64(v), true }
	return 0, false
}

// Sets a floating point card with an optional comment
func (h *Header) SetFloat(key string, value float64, note string) {
	h.Floats[key]=value
	if note!="" { h.Notes[key]=note }
}

// Sets a string card with an optional comment
func (h *Header) SetString(key string, value string, note string) {
	h.Strings[key]=value
	if note!="" { h.Notes[key]=note }
}

const fitsBlockSize int      = 2880       // Block size of FITS header and data units
const HeaderLineSize int =   80       // Line size of a FITS header


func (f *Image) DimensionsToString() string {
	b:=strings.Builder{}
	for i,naxis:=range(f.Naxisn) {
		if i>0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Returns the pixel plane of the given channel, i.e. the slice of the third axis.
// Shares the underlying data.
func (f *Image) Plane(ch int) []float32 {
	if len(f.Naxisn)<2 { return f.Data }
	planeSize:=int(f.Naxisn[0])*int(f.Naxisn[1])
	return f.Data[ch*planeSize : (ch+1)*planeSize]
}

// Number of channels along the third axis, 1 for plain 2D images
func (f *Image) Channels() int {
	if len(f.Naxisn)<3 { return 1 }
	return int(f.Naxisn[2])
}
