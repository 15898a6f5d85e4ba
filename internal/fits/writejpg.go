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
	"image/jpeg"
	"io"
)

// Encodes the preview as 8-bit JPEG with the given quality
func (p *Preview) WriteJPG(writer io.Writer, quality int) error {
	img := image.NewRGBA(image.Rectangle{image.Point{0, 0}, image.Point{p.Width, p.Height}})
	for y := 0; y < p.Height; y++ {
		yoffset := y * p.Width
		for x := 0; x < p.Width; x++ {
			r, g, b := p.Pixels[yoffset+x].RGB255()
			img.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}
