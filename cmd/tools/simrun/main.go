// Package main provides a headless simulation driver. It steps a run
// faster than realtime with a fixed frame interval, prints the aggregate
// summary, and optionally writes the history chart or plot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/greenwave-data/intersection.report/internal/report"
	"github.com/greenwave-data/intersection.report/internal/sim"
	"github.com/greenwave-data/intersection.report/internal/units"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "", "path to a JSON tuning file")
		canvas     = flag.Int("canvas", sim.DefaultCanvasSize, "canvas edge in px")
		rate       = flag.Float64("rate", sim.DefaultSpawnRate, "per-tick spawn probability")
		mode       = flag.String("mode", "round-robin", "signal mode (round-robin or paired)")
		north      = flag.Float64("north", 20, "north green seconds")
		south      = flag.Float64("south", 20, "south green seconds")
		east       = flag.Float64("east", 15, "east green seconds")
		west       = flag.Float64("west", 15, "west green seconds")
		seed       = flag.Int64("seed", 0, "random seed (0 seeds from the clock)")
		seconds    = flag.Int("seconds", 60, "simulated duration")
		chartPath  = flag.String("chart", "", "write the history chart HTML here")
		plotPath   = flag.String("plot", "", "write the history plot PNG here")
		speedUnits = flag.String("units", units.PXS, "speed unit for the summary ("+units.GetValidUnitsString()+")")
		pxPerMetre = flag.Float64("px-per-metre", units.DefaultPxPerMetre, "px to metre scale")
	)
	flag.Parse()

	parsedMode, err := sim.ParseMode(*mode)
	if err != nil {
		log.Fatalf("parse mode: %v", err)
	}

	cfg := sim.Config{
		CanvasSize: *canvas,
		SpawnRate:  *rate,
		Mode:       parsedMode,
		Durations:  sim.Durations{North: *north, South: *south, East: *east, West: *west},
		Seed:       *seed,
	}
	if *tuningPath != "" {
		tuning, err := sim.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("load tuning: %v", err)
		}
		cfg = tuning.RunConfig()
		// Flags named on the command line still win over the file.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "canvas":
				cfg.CanvasSize = *canvas
			case "rate":
				cfg.SpawnRate = *rate
			case "mode":
				cfg.Mode = parsedMode
			case "north":
				cfg.Durations.North = *north
			case "south":
				cfg.Durations.South = *south
			case "east":
				cfg.Durations.East = *east
			case "west":
				cfg.Durations.West = *west
			case "seed":
				cfg.Seed = *seed
			}
		})
	}

	if !units.IsValid(*speedUnits) {
		log.Fatalf("invalid units %q (valid: %s)", *speedUnits, units.GetValidUnitsString())
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = sim.DefaultFrameInterval
	}
	if cfg.SpawnInterval <= 0 {
		cfg.SpawnInterval = sim.DefaultSpawnInterval
	}

	run, err := sim.NewRun(cfg)
	if err != nil {
		log.Fatalf("create run: %v", err)
	}

	now := time.Now()
	frames := int(time.Duration(*seconds) * time.Second / cfg.FrameInterval)
	var sinceSpawn time.Duration
	peak := 0
	for i := 0; i < frames; i++ {
		now = now.Add(cfg.FrameInterval)
		sinceSpawn += cfg.FrameInterval
		if sinceSpawn >= cfg.SpawnInterval {
			sinceSpawn -= cfg.SpawnInterval
			run.StepSpawn()
		}
		run.Step(now)
		if n := run.VehicleCount(); n > peak {
			peak = n
		}
	}

	summary := report.Summarize(run.History())
	meanSpeed := units.ConvertSpeed(summary.MeanSpeed, *pxPerMetre, *speedUnits)

	fmt.Printf("run %s mode=%s canvas=%d\n", run.ID, run.Mode(), run.CanvasSize())
	fmt.Printf("  simulated:     %ds (%d frames)\n", *seconds, frames)
	fmt.Printf("  spawned:       %d vehicles\n", run.Spawned())
	fmt.Printf("  peak on road:  %d\n", peak)
	fmt.Printf("  mean speed:    %.2f %s\n", meanSpeed, *speedUnits)
	if run.Complete() {
		fmt.Println("  signal plan complete")
	}

	if *chartPath != "" {
		f, err := os.Create(*chartPath)
		if err != nil {
			log.Fatalf("create chart file: %v", err)
		}
		if err := report.RenderHistoryChart(f, run.ID, run.History()); err != nil {
			f.Close()
			log.Fatalf("render chart: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("close chart file: %v", err)
		}
		fmt.Printf("  chart:         %s\n", *chartPath)
	}
	if *plotPath != "" {
		if err := report.SaveHistoryPlot(*plotPath, run.ID, run.History()); err != nil {
			log.Fatalf("save plot: %v", err)
		}
		fmt.Printf("  plot:          %s\n", *plotPath)
	}
}
