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
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Tint blended into pixels inside the mask radius
var maskTint=colorful.Color{R: 0.9, G: 0.95, B: 1}

const maskTintAlpha = 0.1

// A false colour preview of a multi-band cube, rows top to bottom
type Preview struct {
	Width  int
	Height int
	Pixels []colorful.Color
}

// Builds a false colour preview from three channels of the cube, mapped to
// red, green and blue. Each channel is log stretched between its own minimum
// and maximum. If mask is not nil, pixels with mask values below radius are tinted.
func NewPreview(cube *Image, channels [3]int, mask []float32, radius float32) (*Preview, error) {
	if len(cube.Naxisn)<2 {
		return nil, fmt.Errorf("%d: preview needs at least 2 axes, have %s", cube.ID, cube.DimensionsToString())
	}
	width, height:=int(cube.Naxisn[0]), int(cube.Naxisn[1])
	for _, ch:=range channels {
		if ch<0 || ch>=cube.Channels() {
			return nil, fmt.Errorf("%d: preview channel %d out of range for %s", cube.ID, ch, cube.DimensionsToString())
		}
	}
	if mask!=nil && len(mask)!=width*height {
		return nil, fmt.Errorf("%d: mask size %d does not match %dx%d", cube.ID, len(mask), width, height)
	}

	var stretched [3][]float64
	for i, ch:=range channels {
		stretched[i]=logStretch(cube.Plane(ch))
	}

	p:=&Preview{Width: width, Height: height, Pixels: make([]colorful.Color, width*height)}
	for y:=0; y<height; y++ {
		row:=(height-1-y)*width // FITS rows run bottom to top
		for x:=0; x<width; x++ {
			i:=y*width+x
			c:=colorful.Color{R: stretched[0][i], G: stretched[1][i], B: stretched[2][i]}
			if mask!=nil && mask[i]<radius {
				c=c.BlendRgb(maskTint, maskTintAlpha)
			}
			p.Pixels[row+x]=c.Clamped()
		}
	}
	return p, nil
}

// Maps values to [0,1] with log10(1+v-min)/log10(1+max-min). NaNs map to zero
func logStretch(data []float32) []float64 {
	min, max:=float32(math.MaxFloat32), float32(-math.MaxFloat32)
	for _, v:=range data {
		if math.IsNaN(float64(v)) { continue }
		if v<min { min=v }
		if v>max { max=v }
	}
	res:=make([]float64, len(data))
	if !(max>min) { return res }
	denom:=math.Log10(1+float64(max-min))
	for i, v:=range data {
		if math.IsNaN(float64(v)) { continue }
		res[i]=math.Log10(1+float64(v-min))/denom
	}
	return res
}

// Writes the preview to the named file. The format follows the suffix: .jpg or .jpeg for JPEG, .tif or .tiff for 16-bit TIFF
func (p *Preview) WriteFile(fileName string) error {
	ext:=strings.ToLower(filepath.Ext(fileName))
	if ext!=".jpg" && ext!=".jpeg" && ext!=".tif" && ext!=".tiff" {
		return fmt.Errorf("unknown preview format %s", ext)
	}

	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer file.Close()
	writer:=bufio.NewWriter(file)

	if ext==".jpg" || ext==".jpeg" {
		err=p.WriteJPG(writer, 95)
	} else {
		err=p.WriteTIFF16(writer)
	}
	if err!=nil { return err }
	if err=writer.Flush(); err!=nil { return err }
	return file.Close()
}
