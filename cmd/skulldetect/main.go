package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"skulldetect/pkg/batch"
	"skulldetect/pkg/config"
	"skulldetect/pkg/detector"
	"skulldetect/pkg/nifti"
	"skulldetect/pkg/phantom"
	"skulldetect/pkg/store"
	"skulldetect/pkg/visualization"
)

func main() {
	config.LoadDotEnv()

	// Parse command line arguments
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "YAML configuration file")
	t1Path := flag.String("t1", "", "Intensity volume (.nii or .nii.gz) of a single patient")
	maskPath := flag.String("mask", "", "Brain mask matching -t1")
	datasetDir := flag.String("dir", "", "Dataset directory with one subdirectory per patient")
	maskDir := flag.String("mask-dir", "", "Root of the dataset masks (default: -dir)")
	expect := flag.String("expect", "", "Expected verdict of every patient: present or absent")
	dbPath := flag.String("db", "", "SQLite results ledger")
	previewDir := flag.String("preview-dir", "", "Directory to save detection previews")
	slicesDir := flag.String("slices-dir", "", "Directory to save the -t1 volume slices along all axes")
	numCores := flag.Int("cores", 0, "Number of patients processed concurrently (default: all CPU cores)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	synthDir := flag.String("synth", "", "Write a synthetic phantom dataset into this directory and exit")
	initConfig := flag.String("init-config", "", "Write the default configuration to this path and exit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if *initConfig != "" {
		if err := config.CreateDefaultConfigFile(*initConfig); err != nil {
			log.Fatal().Err(err).Msg("Failed to write configuration")
		}
		fmt.Printf("Default configuration written to: %s\n", *initConfig)
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid environment")
	}

	// Command line flags win over file and environment
	if *maskDir != "" {
		cfg.Batch.MaskDir = *maskDir
	}
	if *expect != "" {
		cfg.Batch.Expect = *expect
	}
	if *dbPath != "" {
		cfg.Output.Database = *dbPath
	}
	if *previewDir != "" {
		cfg.Output.PreviewDir = *previewDir
	}
	if *numCores > 0 {
		cfg.Batch.NumCores = *numCores
	}
	if *logLevel != "" {
		cfg.Output.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, _ := zerolog.ParseLevel(cfg.Output.LogLevel)
	zerolog.SetGlobalLevel(level)

	switch {
	case *synthDir != "":
		runSynth(*synthDir)
	case *t1Path != "" && *maskPath != "":
		if err := runSingle(cfg, *t1Path, *maskPath, *slicesDir); err != nil {
			log.Fatal().Err(err).Str("volume", *t1Path).Msg("Detection failed")
		}
	case *datasetDir != "":
		if err := runBatch(cfg, *datasetDir); err != nil {
			log.Fatal().Err(err).Str("dataset", *datasetDir).Msg("Batch failed")
		}
	default:
		flag.Usage()
		os.Exit(1)
	}
}

// runSynth writes a two patient phantom dataset, one with skull and one without
func runSynth(dir string) {
	patients := map[string]bool{"p001": true, "p002": false}
	if err := phantom.WriteDataset(dir, patients, phantom.DefaultOptions()); err != nil {
		log.Fatal().Err(err).Msg("Failed to write phantom dataset")
	}
	fmt.Printf("Phantom dataset written to: %s\n", dir)
	fmt.Println("- p001: skull ring present")
	fmt.Println("- p002: skull stripped")
}

func runSingle(cfg *config.Config, t1Path, maskPath, slicesDir string) error {
	volume, err := nifti.Read(t1Path)
	if err != nil {
		return fmt.Errorf("failed to load volume: %w", err)
	}
	mask, err := nifti.Read(maskPath)
	if err != nil {
		return fmt.Errorf("failed to load mask: %w", err)
	}

	startTime := time.Now()
	res, err := detector.Detect(volume, mask, cfg.DetectionParams())
	if err != nil {
		return err
	}
	processingTime := time.Since(startTime)

	fmt.Printf("Volume: %s (%dx%dx%d)\n", t1Path, volume.Width, volume.Height, volume.Depth)
	fmt.Printf("Analysed layer: %d (%d mask voxels)\n", res.MaxLayer, res.Coverage)
	fmt.Println("================================")
	for _, dr := range res.Directions {
		anchor := dr.Anchor.String()
		if dr.Fallback {
			anchor += " (fallback)"
		}
		fmt.Printf("%-5s anchor %-18s spikes %d  ratio %6.2f  skull-like %v\n",
			dr.Direction, anchor, dr.Spikes, dr.LargeScaleRatio, dr.SkullLike)
	}
	fmt.Println("================================")
	fmt.Printf("Skull present: %v (%d of 4 directions)\n", res.SkullPresent, res.YesVotes)
	if res.LowConfidence {
		fmt.Println("Warning: low confidence (fallback anchors or small mask layer)")
	}
	fmt.Printf("Detection completed in %.3f seconds\n", processingTime.Seconds())

	viewer := visualization.NewViewer(volume)
	if cfg.Output.PreviewDir != "" {
		img, err := viewer.RenderDetection(res, 4)
		if err == nil {
			name := filepath.Base(t1Path) + ".png"
			err = visualization.SaveImage(img, filepath.Join(cfg.Output.PreviewDir, name))
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to save preview")
		}
	}

	if slicesDir != "" {
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(slicesDir, axis)
			fmt.Printf("Saving %s-axis slices to: %s\n", axis, axisDir)
			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Warn().Err(err).Str("axis", axis).Msg("Failed to save slices")
			}
		}
	}
	return nil
}

func runBatch(cfg *config.Config, dir string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var ledger batch.Ledger
	if cfg.Output.Database != "" {
		repo, err := store.New(cfg.Output.Database)
		if err != nil {
			return fmt.Errorf("failed to open results ledger: %w", err)
		}
		defer repo.Close()
		ledger = repo
	}

	runner := batch.NewRunner(cfg.DetectionParams(), batch.OptionsFromConfig(cfg, dir), ledger)

	startTime := time.Now()
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	processingTime := time.Since(startTime)

	if cfg.Output.Verbose {
		for _, out := range summary.Outcomes {
			if out.Err != nil {
				fmt.Printf("%-20s error: %v\n", out.PatientID, out.Err)
				continue
			}
			fmt.Printf("%-20s skull %-5v votes %d layer %d\n",
				out.PatientID, out.Result.SkullPresent, out.Result.YesVotes, out.Result.MaxLayer)
		}
	}

	fmt.Println("================================")
	fmt.Printf("Patients: %d\n", summary.Total)
	fmt.Printf("Skull present: %d\n", summary.SkullPresent)
	fmt.Printf("Skull absent: %d\n", summary.SkullAbsent)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Printf("Low confidence: %d\n", summary.LowConfidence)
	fmt.Printf("Mean yes votes: %.2f\n", summary.MeanYesVotes)
	if cfg.Batch.Expect != "" {
		fmt.Printf("Correct (%s): %d (%.2f%%)\n", cfg.Batch.Expect, summary.Correct, summary.Accuracy*100)
	}
	if summary.RunID != 0 {
		fmt.Printf("Results recorded as run %d in %s\n", summary.RunID, cfg.Output.Database)
	}
	fmt.Printf("Total processing time: %.2f seconds\n", processingTime.Seconds())
	return nil
}
