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



package sim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mlnoga/stampcut/internal/cosmo"
)

// One line of an imfit model description
type param struct {
	key   string
	value string
}

func fparam(key string, v float64) param {
	return param{key, strconv.FormatFloat(v, 'g', -1, 64)}
}

// Generates imfit model files and the makeimage script rendering them
type Imfit struct {
	Size      int
	PixScale  float64   // arcsec per pixel
	Bands     []string
	PSFFile   string    // '?' is replaced with the band
	MakeImage string
	ConfigDir string    // model files
	OutDir    string    // rendered images
}

// Names of the model files and rendered images of galaxy i
func BulgeName(i int) string { return "bulge_"+strconv.Itoa(i) }
func DiscName(i int) string  { return "trunc_"+strconv.Itoa(i) }

// Rendered image of the named model component in the given band
func RenderedName(dir, name, band string) string {
	return filepath.Join(dir, name+"_"+band+".fits.gz")
}

func (im *Imfit) pix(kpc, z float64) float64 {
	return cosmo.Planck15.KpcToPixels(kpc, z, im.PixScale)
}

func (im *Imfit) position() []param {
	c:=float64(im.Size)/2+0.5
	return []param{fparam("X0", c), fparam("Y0", c)}
}

// Vertical luminosity density normalisation, per pixel
func (im *Imfit) j0(g *Galaxy) float64 {
	return 1/(2*im.pix(g.Z0, g.Z))
}

// Sersic bulge model of the galaxy
func (im *Imfit) bulgeParams(g *Galaxy) []param {
	return append(im.position(),
		param{"FUNCTION", "Sersic # LABEL bulge"},
		fparam("PA", g.PABulge),
		fparam("ell", g.EllBulge),
		fparam("n", g.NBulge),
		fparam("I_e", im.j0(g)/10),
		fparam("r_e", im.pix(g.ReBulge, g.Z)),
	)
}

// Truncated 3D exponential disc model of the galaxy
func (im *Imfit) discParams(g *Galaxy) []param {
	return append(im.position(),
		param{"FUNCTION", "BrokenExponentialDisk3D # LABEL truncation_disc"},
		fparam("PA", g.PADisc),
		fparam("inc", g.InclDisc),
		fparam("J_0", im.j0(g)),
		fparam("h1", im.pix(g.H1, g.Z)),
		fparam("h2", im.pix(g.H2, g.Z)),
		fparam("r_break", im.pix(g.REdge, g.Z)),
		fparam("alpha", g.Alpha/im.pix(1, g.Z)),
		fparam("n", g.NDisc),
		fparam("z_0", im.pix(g.Z0, g.Z)),
	)
}

func writeParams(fileName string, ps []param) error {
	var sb strings.Builder
	for _, p:=range ps {
		fmt.Fprintf(&sb, "%s %s\n", p.key, p.value)
	}
	return os.WriteFile(fileName, []byte(sb.String()), 0644)
}

// Returns a copy with absolute model, output and PSF paths
func (im *Imfit) absolute() (*Imfit, error) {
	res:=*im
	for _, p:=range []*string{&res.ConfigDir, &res.OutDir, &res.PSFFile} {
		if *p=="" { continue }
		abs, err:=filepath.Abs(*p)
		if err!=nil { return nil, err }
		*p=abs
	}
	return &res, nil
}

// Appends the render and compress commands for one model file
func (im *Imfit) render(w io.Writer, name string) {
	for _, b:=range im.Bands {
		out:=strings.TrimSuffix(RenderedName(im.OutDir, name, b), ".gz")
		fmt.Fprintf(w, "$MKIMG --ncols=%d --nrows=%d --psf=%s -o=%s %s.dat\n",
			im.Size, im.Size, strings.ReplaceAll(im.PSFFile, "?", b), out, name)
		fmt.Fprintf(w, "gzip -f %s\n", out)
	}
}

// Writes bulge and disc model files for all galaxies into ConfigDir, and the
// script rendering them in every band to scriptName
func (im *Imfit) Write(gals []Galaxy, scriptName string, logWriter io.Writer) error {
	// the script changes into ConfigDir, so every path it names must be absolute
	im, err:=im.absolute()
	if err!=nil { return err }
	if err:=os.MkdirAll(im.ConfigDir, 0755); err!=nil { return err }
	if err:=os.MkdirAll(filepath.Dir(scriptName), 0755); err!=nil { return err }
	f, err:=os.OpenFile(scriptName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err!=nil { return err }
	defer f.Close()
	w:=bufio.NewWriter(f)

	fmt.Fprintf(w, "#!/bin/bash\n\nMKIMG=%s\ncd %s\n\n", im.MakeImage, im.ConfigDir)
	for i:=range gals {
		g:=&gals[i]
		if err:=writeParams(filepath.Join(im.ConfigDir, BulgeName(i)+".dat"), im.bulgeParams(g)); err!=nil { return err }
		im.render(w, BulgeName(i))
		if err:=writeParams(filepath.Join(im.ConfigDir, DiscName(i)+".dat"), im.discParams(g)); err!=nil { return err }
		im.render(w, DiscName(i))
	}
	if err:=w.Flush(); err!=nil { return err }
	fmt.Fprintf(logWriter, "Wrote %d model pairs to %s and render script %s\n", len(gals), im.ConfigDir, scriptName)
	return f.Close()
}
