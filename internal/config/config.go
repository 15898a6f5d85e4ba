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


// Package config loads the YAML pipeline configuration shared by all stages.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline configuration, one section for observed and one for simulated galaxies
type Config struct {
	Obs Obs `yaml:"obs"`
	Sim Sim `yaml:"sim"`
}

// Catalogue column names
type Columns struct {
	ID    string `yaml:"id"`
	RA    string `yaml:"ra"`
	Dec   string `yaml:"dec"`
	Tile  string `yaml:"tile"`
	REdge string `yaml:"redge"`
	Z     string `yaml:"z"`
	PA    string `yaml:"pa"`
	Q     string `yaml:"q"`
}

// Tile index values bounding the survey footprint. Tiles on the edges hold no data
type Footprint struct {
	RAEdges  [2]int `yaml:"ra_edges"`
	DecEdges [2]int `yaml:"dec_edges"`
}

type Obs struct {
	FramesPath     string    `yaml:"stripe82_frames_path"`
	Catalogue      string    `yaml:"catalogue"`
	OutPath        string    `yaml:"out_path"`
	CutoutSize     int       `yaml:"cutout_size"`
	DownloadScript string    `yaml:"download_script"`
	DownloadURL    string    `yaml:"download_url"`
	SEDsPath       string    `yaml:"seds_path"`
	FramePattern   string    `yaml:"frame_pattern"` // printf pattern with tile code and band
	Bands          []string  `yaml:"bands"`
	TrimLow        int       `yaml:"trim_low"`
	TrimHigh       int       `yaml:"trim_high"`
	Footprint      Footprint `yaml:"footprint"`
	UseHeaderCRVAL bool      `yaml:"use_header_crval"`
	ApertureRadius float64   `yaml:"aperture_radius"` // pixels
	BackgroundSub  bool      `yaml:"background_subtract"`
	Preview        string    `yaml:"preview"` // jpg, tif or empty for none
	Columns        Columns   `yaml:"columns"`
}

type Sim struct {
	Catalogue          string  `yaml:"catalogue"`
	CutoutSize         int     `yaml:"cutout_size"`
	NGal               int     `yaml:"n_gal"`
	Seed               uint64  `yaml:"seed"`
	ZMin               float64 `yaml:"z_min"`
	ZMax               float64 `yaml:"z_max"`
	PixScale           float64 `yaml:"pix_scale"` // arcsec per pixel
	PixMargin          float64 `yaml:"pix_margin"`
	REdgeMaxKpc        float64 `yaml:"redge_max_kpc"`
	SEDsPath           string  `yaml:"seds_path"`
	PSFFile            string  `yaml:"psf_file"` // '?' is replaced with the band
	MakeImage          string  `yaml:"make_image"`
	ConfigFilesPath    string  `yaml:"config_files_path"`
	GenFile            string  `yaml:"gen_file"`
	SimulatedFilesPath string  `yaml:"simulated_files_path"`
	BackgroundFrames   string  `yaml:"background_frames_path"`
	OutPath            string  `yaml:"out_path"`
	MarginBG           int     `yaml:"margin_bg"`
}

// Returns the configuration with defaults for everything but the paths
func Default() *Config {
	return &Config{
		Obs: Obs{
			CutoutSize:     600,
			DownloadURL:    "ftp://ftp.iac.es/coadds",
			FramePattern:   "f%s_%s.rec.fits.gz",
			Bands:          []string{"u", "g", "r", "i", "z"},
			TrimLow:        4,
			TrimHigh:       3,
			Footprint:      Footprint{RAEdges: [2]int{100, 220}, DecEdges: [2]int{0, 6}},
			ApertureRadius: 20,
			Preview:        "jpg",
			Columns: Columns{
				ID: "JID", RA: "RAJ2000", Dec: "DEJ2000", Tile: "fname",
				REdge: "Redge", Z: "z", PA: "PA", Q: "q",
			},
		},
		Sim: Sim{
			CutoutSize:  600,
			NGal:        1000,
			Seed:        12345,
			ZMin:        0.003,
			ZMax:        0.09,
			PixScale:    0.396,
			PixMargin:   20,
			REdgeMaxKpc: 70,
			PSFFile:     "psf_?.fits",
			MakeImage:   "makeimage",
			MarginBG:    10,
		},
	}
}

// Loads the configuration from the given YAML file. Keys omitted in the file keep their defaults
func Load(fileName string) (*Config, error) {
	data, err:=os.ReadFile(fileName)
	if err!=nil { return nil, fmt.Errorf("reading config: %w", err) }
	c:=Default()
	if err:=yaml.Unmarshal(data, c); err!=nil {
		return nil, fmt.Errorf("parsing config %s: %w", fileName, err)
	}
	c.normalize()
	return c, nil
}

// Directories are used as prefixes, so make sure they end in a separator
func (c *Config) normalize() {
	for _, p:=range []*string{&c.Obs.FramesPath, &c.Obs.OutPath, &c.Obs.SEDsPath,
		&c.Sim.SEDsPath, &c.Sim.ConfigFilesPath, &c.Sim.SimulatedFilesPath,
		&c.Sim.BackgroundFrames, &c.Sim.OutPath} {
		if *p!="" && !strings.HasSuffix(*p, "/") { *p+="/" }
	}
	c.Obs.Preview=strings.ToLower(strings.TrimPrefix(c.Obs.Preview, "."))
	c.Obs.DownloadURL=strings.TrimSuffix(c.Obs.DownloadURL, "/")
}

type required struct {
	name  string
	value string
}

// Checks that the settings needed by the given pipeline stage are present and sane
func (c *Config) Validate(stage string) error {
	var req []required
	switch stage {
	case "stamps":
		req=[]required{{"obs.stripe82_frames_path", c.Obs.FramesPath}, {"obs.catalogue", c.Obs.Catalogue},
			{"obs.out_path", c.Obs.OutPath}, {"obs.download_script", c.Obs.DownloadScript}}
	case "tiles":
		req=[]required{{"obs.stripe82_frames_path", c.Obs.FramesPath}, {"obs.catalogue", c.Obs.Catalogue},
			{"obs.download_script", c.Obs.DownloadScript}}
	case "seds":
		req=[]required{{"obs.catalogue", c.Obs.Catalogue}, {"obs.out_path", c.Obs.OutPath}, {"obs.seds_path", c.Obs.SEDsPath}}
	case "simcat":
		req=[]required{{"obs.catalogue", c.Obs.Catalogue}, {"sim.catalogue", c.Sim.Catalogue}, {"sim.seds_path", c.Sim.SEDsPath}}
	case "imfit":
		req=[]required{{"sim.catalogue", c.Sim.Catalogue}, {"sim.config_files_path", c.Sim.ConfigFilesPath},
			{"sim.gen_file", c.Sim.GenFile}, {"sim.simulated_files_path", c.Sim.SimulatedFilesPath}}
	case "mock":
		req=[]required{{"sim.catalogue", c.Sim.Catalogue}, {"sim.seds_path", c.Sim.SEDsPath},
			{"sim.simulated_files_path", c.Sim.SimulatedFilesPath}, {"sim.background_frames_path", c.Sim.BackgroundFrames},
			{"sim.out_path", c.Sim.OutPath}}
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	for _, r:=range req {
		if r.value=="" { return fmt.Errorf("%s must be set for stage %s", r.name, stage) }
	}

	o:=&c.Obs
	if o.CutoutSize<=0 { return fmt.Errorf("obs.cutout_size must be positive, got %d", o.CutoutSize) }
	if o.TrimLow<0 || o.TrimHigh<0 { return fmt.Errorf("obs.trim_low and obs.trim_high must be non-negative") }
	if len(o.Bands)==0 { return fmt.Errorf("obs.bands must not be empty") }
	if strings.Count(o.FramePattern, "%s")!=2 { return fmt.Errorf("obs.frame_pattern %q needs two %%s verbs, tile and band", o.FramePattern) }
	if o.Footprint.RAEdges[0]>=o.Footprint.RAEdges[1] || o.Footprint.DecEdges[0]>=o.Footprint.DecEdges[1] {
		return fmt.Errorf("obs.footprint edges must be increasing, got ra %v dec %v", o.Footprint.RAEdges, o.Footprint.DecEdges)
	}
	if o.ApertureRadius<=0 { return fmt.Errorf("obs.aperture_radius must be positive") }
	if o.Preview!="" && o.Preview!="jpg" && o.Preview!="tif" {
		return fmt.Errorf("obs.preview must be jpg, tif or empty, got %q", o.Preview)
	}

	s:=&c.Sim
	if strings.HasPrefix(stage, "sim") || stage=="imfit" || stage=="mock" {
		if s.CutoutSize<=0 { return fmt.Errorf("sim.cutout_size must be positive, got %d", s.CutoutSize) }
		if s.NGal<=0 { return fmt.Errorf("sim.n_gal must be positive, got %d", s.NGal) }
		if !(s.ZMin>0 && s.ZMin<s.ZMax) { return fmt.Errorf("sim.z_min must be positive and below sim.z_max") }
		if s.PixScale<=0 { return fmt.Errorf("sim.pix_scale must be positive") }
		if 2*s.PixMargin>=float64(s.CutoutSize) { return fmt.Errorf("sim.pix_margin too large for sim.cutout_size") }
		if s.MarginBG<0 { return fmt.Errorf("sim.margin_bg must be non-negative") }
	}
	return nil
}
