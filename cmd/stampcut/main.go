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



package main

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	nl "github.com/mlnoga/stampcut/internal"
	"github.com/mlnoga/stampcut/internal/catalogue"
	"github.com/mlnoga/stampcut/internal/config"
	"github.com/mlnoga/stampcut/internal/download"
	"github.com/mlnoga/stampcut/internal/plot"
	"github.com/mlnoga/stampcut/internal/sed"
	"github.com/mlnoga/stampcut/internal/sim"
	"github.com/mlnoga/stampcut/internal/stamp"
	"github.com/mlnoga/stampcut/internal/tile"
)

const version = "0.1.0"

// Rough size of one band of one coadd frame in memory, 2048x1489 float32 pixels
const frameBytes = 2048*1489*4

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var cfgFile = flag.String("config", "config.yaml", "read pipeline configuration from `file`")
var log     = flag.String("log", "%auto", "save log output to `file`. `%auto` replaces suffix of the config file with .log")
var workers = flag.Int("workers", 1, "number of objects to cut concurrently, 0=auto from physical cores and memory")
var preview = flag.String("preview", "%config", "preview format for cutouts and mocks, one of jpg, tif or none. `%config` uses obs.preview")

func main() {
	logWriter:=nl.LogWriter()
	start:=time.Now()
	flag.Usage=func(){
		fmt.Fprintf(logWriter, `Stampcut Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (stamps|tiles|seds|simcat|imfit|mock|legal|version|help)

Commands:
  stamps  Cut multi-band stamps for all catalogue objects, stitching neighbouring tiles
  tiles   Write the download script for the home tiles of all catalogue objects
  seds    Measure aperture SEDs of the written stamps
  simcat  Draw the simulated galaxy catalogue
  imfit   Write imfit model files and the script rendering them
  mock    Composite rendered models onto real sky background
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args:=flag.Args()
	if len(args)<1 {
		flag.Usage()
		return
	}
	switch args[0] {
	case "legal":
		cmdLegal(logWriter)
		return
	case "version":
		fmt.Fprintf(logWriter, "Version %s\n", version)
		return
	case "help", "?":
		flag.Usage()
		return
	}

	// Initialize logging to file in addition to stdout, if selected
	if *log=="%auto" {
		*log=strings.TrimSuffix(*cfgFile, filepath.Ext(*cfgFile))+".log"
	}
	if *log!="" {
		if err:=nl.LogAlsoToFile(*log); err!=nil { nl.LogFatalf("Unable to open logfile '%s': %v\n", *log, err) }
	}

	// Enable CPU profiling if flagged
	if *cpuprofile!="" {
		f, err:=os.Create(*cpuprofile)
		if err!=nil { nl.LogFatalf("Could not create CPU profile: %v\n", err) }
		defer f.Close()
		if err:=pprof.StartCPUProfile(f); err!=nil { nl.LogFatalf("Could not start CPU profile: %v\n", err) }
		defer pprof.StopCPUProfile()
	}

	cfg, err:=config.Load(*cfgFile)
	if err!=nil { nl.LogFatalf("Error: %v\n", err) }
	switch *preview {
	case "%config":
	case "none":
		cfg.Obs.Preview=""
	default:
		cfg.Obs.Preview=strings.ToLower(strings.TrimPrefix(*preview, "."))
	}
	if err:=cfg.Validate(args[0]); err!=nil {
		fmt.Fprintf(logWriter, "Error: %v\n\n", err)
		flag.Usage()
		nl.LogSync()
		os.Exit(1)
	}

	switch args[0] {
	case "stamps":
		err=cmdStamps(cfg, logWriter)
	case "tiles":
		err=cmdTiles(cfg, logWriter)
	case "seds":
		err=cmdSEDs(cfg, logWriter)
	case "simcat":
		err=cmdSimCat(cfg, logWriter)
	case "imfit":
		err=cmdImfit(cfg, logWriter)
	case "mock":
		err=cmdMock(cfg, logWriter)
	}

	fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))

	if *memprofile!="" {
		f, err:=os.Create(*memprofile)
		if err!=nil { nl.LogFatalf("Could not create memory profile: %v\n", err) }
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err:=pprof.Lookup("allocs").WriteTo(f, 0); err!=nil { nl.LogFatalf("Could not write allocation profile: %v\n", err) }
	}

	if err!=nil { nl.LogFatalf("Error: %v\n", err) }
	nl.LogSync()
}

func obsFrames(cfg *config.Config) *stamp.Frames {
	o:=&cfg.Obs
	return &stamp.Frames{Dir: o.FramesPath, Pattern: o.FramePattern, Bands: o.Bands, TrimLow: o.TrimLow, TrimHigh: o.TrimHigh}
}

func obsStitcher(cfg *config.Config, logWriter io.Writer) *stamp.Stitcher {
	o:=&cfg.Obs
	return &stamp.Stitcher{
		Frames:         obsFrames(cfg),
		Footprint:      tile.Footprint{RAEdges: o.Footprint.RAEdges, DecEdges: o.Footprint.DecEdges},
		Size:           o.CutoutSize,
		OutDir:         o.OutPath,
		UseHeaderCRVAL: o.UseHeaderCRVAL,
		Preview:        o.Preview,
		LogWriter:      logWriter,
	}
}

func cmdStamps(cfg *config.Config, logWriter io.Writer) error {
	objects, err:=catalogue.Load(cfg.Obs.Catalogue, cfg.Obs.Columns, logWriter)
	if err!=nil { return err }
	st:=obsStitcher(cfg, logWriter)

	// a megastamp holds up to four frames in every band, plus the cutout
	perJob:=int64(4*frameBytes*len(cfg.Obs.Bands))
	n:=nl.AutoWorkers(*workers, perJob, logWriter)
	fmt.Fprintf(logWriter, "Cutting %d stamps of %d pixels with %d workers\n", len(objects), st.Size, n)

	report, err:=st.Run(objects, n)
	if err!=nil { return err }
	report.Print(logWriter)

	if _, err:=download.WriteFile(cfg.Obs.DownloadScript, cfg.Obs.FramesPath, cfg.Obs.DownloadURL, cfg.Obs.Bands, report.Missing); err!=nil {
		return err
	}
	fmt.Fprintf(logWriter, "Download script for %d missing tiles written to %s\n", len(report.Missing), cfg.Obs.DownloadScript)

	scale:=report.PixelScale()
	if scale==0 { scale=headerPixelScale(st.Frames, objects, logWriter) }
	if scale==0 {
		fmt.Fprintf(logWriter, "Warning: no tile header available, skipping disc edge histogram\n")
		return nil
	}
	redge:=make([]float64, len(objects))
	for i, o:=range objects {
		redge[i]=o.REdgeDeg/scale
	}
	histDir:=filepath.Join(cfg.Obs.OutPath, "jpgs")
	if err:=os.MkdirAll(histDir, 0755); err!=nil { return err }
	histName:=filepath.Join(histDir, "hist_redge_pix.png")
	if err:=plot.REdgeHistogram(histName, redge, plot.DefaultMarks); err!=nil {
		fmt.Fprintf(logWriter, "Warning: disc edge histogram: %v\n", err)
	}
	return nil
}

// Pixel scale from the first readable home tile header, or 0
func headerPixelScale(frames *stamp.Frames, objects []stamp.Object, logWriter io.Writer) float64 {
	for _, c:=range catalogue.Tiles(objects) {
		h, err:=frames.Header(c, -1, logWriter)
		if err!=nil { continue }
		if w, err:=h.WCS(); err==nil { return math.Abs(w.CDELT[1]) }
	}
	return 0
}

func cmdTiles(cfg *config.Config, logWriter io.Writer) error {
	objects, err:=catalogue.Load(cfg.Obs.Catalogue, cfg.Obs.Columns, logWriter)
	if err!=nil { return err }
	codes:=catalogue.Tiles(objects)
	frames:=obsFrames(cfg)
	present:=0
	for _, c:=range codes {
		if frames.Complete(c) { present++ }
	}
	n, err:=download.WriteFile(cfg.Obs.DownloadScript, cfg.Obs.FramesPath, cfg.Obs.DownloadURL, cfg.Obs.Bands, codes)
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%d objects on %d tiles, %d already complete. Download script for %d tiles written to %s\n",
		len(objects), len(codes), present, n, cfg.Obs.DownloadScript)
	return nil
}

func cmdSEDs(cfg *config.Config, logWriter io.Writer) error {
	objects, err:=catalogue.Load(cfg.Obs.Catalogue, cfg.Obs.Columns, logWriter)
	if err!=nil { return err }
	st:=obsStitcher(cfg, logWriter)
	p:=&sed.Photometer{Radius: cfg.Obs.ApertureRadius, SubtractBackground: cfg.Obs.BackgroundSub, LogWriter: logWriter}
	rows, measured, err:=p.Run(objects, st.OutputName)
	if err!=nil { return err }
	if err:=os.MkdirAll(cfg.Obs.SEDsPath, 0755); err!=nil { return err }
	fileName:=filepath.Join(cfg.Obs.SEDsPath, sed.ObservedFile)
	if err:=sed.WriteFile(fileName, rows); err!=nil { return err }
	fmt.Fprintf(logWriter, "SEDs of %d of %d objects written to %s\n", measured, len(objects), fileName)
	return nil
}

func simParams(cfg *config.Config) sim.Params {
	s:=&cfg.Sim
	return sim.Params{
		N: s.NGal, Seed: s.Seed, ZMin: s.ZMin, ZMax: s.ZMax, Size: s.CutoutSize,
		PixScale: s.PixScale, PixMargin: s.PixMargin, REdgeMaxKpc: s.REdgeMaxKpc,
	}
}

func cmdSimCat(cfg *config.Config, logWriter io.Writer) error {
	objects, err:=catalogue.Load(cfg.Obs.Catalogue, cfg.Obs.Columns, logWriter)
	if err!=nil { return err }
	ids:=make([]string, len(objects))
	for i, o:=range objects {
		ids[i]=o.ID
	}
	seds, err:=sed.ReadFile(filepath.Join(cfg.Sim.SEDsPath, sed.ObservedFile))
	if err!=nil { return err }

	gals, err:=sim.NewCatalogue(simParams(cfg), ids, seds, logWriter)
	if err!=nil { return err }
	if err:=sim.WriteCatalogue(cfg.Sim.Catalogue, gals); err!=nil { return err }
	fmt.Fprintf(logWriter, "%d simulated galaxies written to %s\n", len(gals), cfg.Sim.Catalogue)
	return nil
}

func cmdImfit(cfg *config.Config, logWriter io.Writer) error {
	gals, err:=sim.ReadCatalogue(cfg.Sim.Catalogue)
	if err!=nil { return err }
	s:=&cfg.Sim
	im:=&sim.Imfit{
		Size:      s.CutoutSize,
		PixScale:  s.PixScale,
		Bands:     cfg.Obs.Bands,
		PSFFile:   s.PSFFile,
		MakeImage: s.MakeImage,
		ConfigDir: s.ConfigFilesPath,
		OutDir:    s.SimulatedFilesPath,
	}
	return im.Write(gals, s.GenFile, logWriter)
}

func cmdMock(cfg *config.Config, logWriter io.Writer) error {
	gals, err:=sim.ReadCatalogue(cfg.Sim.Catalogue)
	if err!=nil { return err }
	seds, err:=sed.ReadFile(filepath.Join(cfg.Sim.SEDsPath, sed.ObservedFile))
	if err!=nil { return err }
	s:=&cfg.Sim
	m:=&sim.Mocker{
		Frames:    &stamp.Frames{Dir: s.BackgroundFrames, Pattern: cfg.Obs.FramePattern, Bands: cfg.Obs.Bands},
		InDir:     s.SimulatedFilesPath,
		OutDir:    s.OutPath,
		Size:      s.CutoutSize,
		PixScale:  s.PixScale,
		MarginBG:  s.MarginBG,
		Aperture:  cfg.Obs.ApertureRadius,
		Preview:   cfg.Obs.Preview,
		LogWriter: logWriter,
	}
	m.Seed(uint32(s.Seed))
	n, err:=m.Run(gals, seds)
	if err!=nil { return err }
	fmt.Fprintf(logWriter, "%d of %d mocks written to %s\n", n, len(gals), s.OutPath)
	return nil
}
