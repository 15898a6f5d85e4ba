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
	"bytes"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/valyala/fastrand"
)

func randomCube(naxisn []int32) *Image {
	img:=NewImageFromNaxisn(naxisn, nil)
	rng:=fastrand.RNG{}
	for i:=range img.Data {
		img.Data[i]=float32(rng.Uint32n(100000))/100-500
	}
	return img
}

func TestWriteReadRoundTrip(t *testing.T) {
	cube:=randomCube([]int32{7, 5, 3})
	cube.Header.SetFloat("CRVAL1", 12.345678901234, "RA")
	cube.Header.SetFloat("CDELT1", -0.00011, "")
	cube.Header.SetFloat("CRPIX1", 3, "")
	cube.Header.Bools["PADDED"]=true
	cube.Header.Ints["NAXIS7"]=99 // reserved, must be skipped
	cube.Header.SetString("TILE", "0153", "Home tile")

	var buf bytes.Buffer
	if err:=Write(&buf, cube); err!=nil { t.Fatal(err) }
	if buf.Len()%fitsBlockSize!=0 {
		t.Errorf("file length %d; want multiple of %d", buf.Len(), fitsBlockSize)
	}

	back:=NewImage()
	if err:=back.Read(&buf, true, io.Discard); err!=nil { t.Fatal(err) }

	if diff:=cmp.Diff(cube.Naxisn, back.Naxisn); diff!="" {
		t.Errorf("Naxisn mismatch (-want +got):\n%s", diff)
	}
	if diff:=cmp.Diff(cube.Data, back.Data); diff!="" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	for _, key:=range []string{"CRVAL1", "CDELT1", "CRPIX1"} {
		want, _:=cube.Header.Float(key)
		got, ok:=back.Header.Float(key)
		if !ok || got!=want { t.Errorf("%s=%v,%v; want %v", key, got, ok, want) }
	}
	if _, ok:=back.Header.Floats["CRPIX1"]; !ok {
		t.Errorf("CRPIX1 read back as integer; want float card")
	}
	if !back.Header.Bools["PADDED"] { t.Errorf("PADDED lost") }
	if back.Header.Strings["TILE"]!="0153" { t.Errorf("TILE=%q; want 0153", back.Header.Strings["TILE"]) }
	if _, ok:=back.Header.Ints["NAXIS7"]; ok { t.Errorf("reserved key NAXIS7 was written") }
}

func TestCubeAxisOrder(t *testing.T) {
	// x varies fastest, then y, then band
	cube:=NewImageFromNaxisn([]int32{4, 3, 2}, nil)
	for b:=0; b<2; b++ {
		for y:=0; y<3; y++ {
			for x:=0; x<4; x++ {
				cube.Data[b*12+y*4+x]=float32(100*b+10*y+x)
			}
		}
	}
	if got:=cube.Plane(1)[2*4+3]; got!=123 {
		t.Errorf("Plane(1)[2,3]=%v; want 123", got)
	}
	if cube.Channels()!=2 { t.Errorf("Channels()=%d; want 2", cube.Channels()) }
}

func TestWriteFileMultiExtensionGzip(t *testing.T) {
	dir:=t.TempDir()
	fileName:=filepath.Join(dir, "obj_stamps8.fits.gz")

	cube:=randomCube([]int32{8, 8, 5})
	mask:=randomCube([]int32{8, 8})
	mask.Header.SetString("EXTNAME", "MASK", "")
	mask.Header.SetFloat("REDGE", 17.5, "")
	if err:=WriteFile(fileName, cube, mask); err!=nil { t.Fatal(err) }

	back, err:=NewImageFromFile(fileName, 0, io.Discard)
	if err!=nil { t.Fatal(err) }
	if diff:=cmp.Diff(cube.Data, back.Data); diff!="" {
		t.Errorf("primary data mismatch (-want +got):\n%s", diff)
	}
	if !back.Header.Bools["EXTEND"] { t.Errorf("EXTEND missing on primary HDU") }

	// no temporary files left behind
	entries, err:=os.ReadDir(dir)
	if err!=nil { t.Fatal(err) }
	if len(entries)!=1 { t.Errorf("directory has %d entries; want 1", len(entries)) }
}

func TestHeaderParsesFloatVariants(t *testing.T) {
	tcs:=[]struct {
		Line string
		Want float64
	}{
		{"CDELT1  = -1.10000000000000E-04 / deg", -1.1e-4},
		{"CDELT2  =   1.1D-4", 1.1e-4},
		{"CRPIX1  = 1025.", 1025},
		{"CRVAL1  = 1e3", 1000},
		{"BIG     = 123456789012", 123456789012},
	}
	for _, tc:=range tcs {
		h:=NewHeader()
		block:=[]byte(padCard(tc.Line)+padCard("END"))
		block=append(block, bytes.Repeat([]byte(" "), fitsBlockSize-len(block))...)
		if err:=h.read(bytes.NewReader(block), 0, io.Discard); err!=nil { t.Fatal(err) }
		key:=strings.TrimSpace(tc.Line[:8])
		got, ok:=h.Float(key)
		if !ok || math.Abs(got-tc.Want)>1e-12*math.Abs(tc.Want) {
			t.Errorf("%q parsed as %v,%v; want %v", tc.Line, got, ok, tc.Want)
		}
	}
}

func padCard(s string) string {
	return s+strings.Repeat(" ", HeaderLineSize-len(s))
}

func TestWCS(t *testing.T) {
	img:=NewImage()
	img.Header.SetFloat("CRPIX1", 1025, "")
	img.Header.SetFloat("CRPIX2", 745, "")
	img.Header.SetFloat("CD1_1", -0.00011, "")
	img.Header.SetFloat("CDELT2", 0.00011, "")
	img.Header.SetFloat("CRVAL1", 10, "")
	img.Header.SetFloat("CRVAL2", 0.5, "")

	w, err:=img.WCS()
	if err!=nil { t.Fatal(err) }
	if !w.HasCRVAL { t.Errorf("HasCRVAL=false; want true") }
	x, y:=w.Pixel(10, 0.5)
	if x!=1024 || y!=744 { t.Errorf("Pixel(CRVAL)=(%v,%v); want (1024,744)", x, y) }
	x, _=w.Pixel(10-0.0011, 0.5)
	if math.Abs(x-1034)>1e-9 { t.Errorf("Pixel x=%v; want 1034", x) }
	ra, dec:=w.World(1034, 754)
	if math.Abs(ra-(10-0.0011))>1e-12 || math.Abs(dec-(0.5+0.0011))>1e-12 {
		t.Errorf("World(1034,754)=(%v,%v); want (%v,%v)", ra, dec, 10-0.0011, 0.5+0.0011)
	}

	delete(img.Header.Floats, "CRPIX2")
	if _, err:=img.WCS(); !errors.Is(err, ErrNoWCS) {
		t.Errorf("WCS() without CRPIX2 err=%v; want ErrNoWCS", err)
	}
}

func TestPreviewMaskTint(t *testing.T) {
	cube:=NewImageFromNaxisn([]int32{4, 4, 5}, nil)
	mask:=make([]float32, 16)
	for i:=range mask { mask[i]=10 }
	mask[0]=0

	p, err:=NewPreview(cube, [3]int{1, 2, 3}, mask, 5)
	if err!=nil { t.Fatal(err) }
	// flat bands stretch to black, the tinted pixel is lifted. Row 0 of the cube is the bottom row
	tinted:=p.Pixels[3*4+0]
	if !(tinted.R>0 && tinted.B>tinted.R) { t.Errorf("tinted pixel %+v; want bluish grey", tinted) }
	if plain:=p.Pixels[0]; plain.R!=0 || plain.G!=0 || plain.B!=0 { t.Errorf("untinted pixel %+v; want black", plain) }

	var buf bytes.Buffer
	if err:=p.WriteJPG(&buf, 90); err!=nil { t.Fatal(err) }
	if buf.Len()==0 { t.Errorf("empty JPEG") }
	buf.Reset()
	if err:=p.WriteTIFF16(&buf); err!=nil { t.Fatal(err) }
	if buf.Len()==0 { t.Errorf("empty TIFF") }
}
