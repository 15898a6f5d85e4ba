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
	"image"
	"image/color"
	"io"

	"golang.org/x/image/tiff"
)

// Encodes the preview as 16-bit deflate compressed TIFF, keeping the dynamic range of faint outskirts
func (p *Preview) WriteTIFF16(writer io.Writer) error {
	img := image.NewRGBA64(image.Rectangle{image.Point{0, 0}, image.Point{p.Width, p.Height}})
	for y := 0; y < p.Height; y++ {
		yoffset := y * p.Width
		for x := 0; x < p.Width; x++ {
			c := p.Pixels[yoffset+x]
			img.SetRGBA64(x, y, color.RGBA64{to16(c.R), to16(c.G), to16(c.B), 65535})
		}
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

func to16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 65535
	}
	return uint16(v*65535 + 0.5)
}
