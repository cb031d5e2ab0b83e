package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ramaral11/slatescan/internal/config"
	"github.com/ramaral11/slatescan/internal/db"
	"github.com/ramaral11/slatescan/internal/dedup"
	"github.com/ramaral11/slatescan/internal/discover"
	"github.com/ramaral11/slatescan/internal/export"
	"github.com/ramaral11/slatescan/internal/history"
	"github.com/ramaral11/slatescan/internal/logging"
	"github.com/ramaral11/slatescan/internal/report"
	"github.com/ramaral11/slatescan/internal/runner"
	"github.com/ramaral11/slatescan/internal/scanner"
	"github.com/ramaral11/slatescan/internal/slate"
	"github.com/ramaral11/slatescan/internal/video"
)

const lockFilename = ".slatescan.lock"

func newScanCommand(configFlag *string) *cobra.Command {
	var (
		outputDir     string
		frames        int
		threshold     float64
		workers       int
		probeFrame    int
		oncePerFolder bool
		videoTimeout  int
		noHistory     bool
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "scan <input-folder>",
		Short: "Scan a directory tree for slate frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("output") {
				cfg.OutputDir = outputDir
			}
			if flags.Changed("frames") {
				cfg.Scan.FramesToCheck = frames
			}
			if flags.Changed("threshold") {
				cfg.Scan.Threshold = threshold
			}
			if flags.Changed("workers") {
				cfg.Scan.Workers = workers
			}
			if flags.Changed("probe-frame") {
				cfg.Scan.TargetFrame = probeFrame
			}
			if flags.Changed("once-per-folder") {
				cfg.Scan.OncePerFolder = oncePerFolder
			}
			if flags.Changed("video-timeout") {
				cfg.Scan.VideoTimeout = videoTimeout
			}
			if verbose {
				cfg.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runScan(cmd, cfg, args[0], !noHistory && cfg.History.Enabled)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", config.DefaultOutputDir, "Output directory for PNG files and metadata")
	cmd.Flags().IntVarP(&frames, "frames", "f", 60, "Number of frames to check during the fallback scan")
	cmd.Flags().Float64VarP(&threshold, "threshold", "t", 0.8, "Confidence threshold for slate detection (0-1)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of parallel workers (0 = number of CPUs)")
	cmd.Flags().IntVar(&probeFrame, "probe-frame", 20, "Frame index checked first by the targeted probe")
	cmd.Flags().BoolVar(&oncePerFolder, "once-per-folder", false, "Persist at most one slate image per source folder")
	cmd.Flags().IntVar(&videoTimeout, "video-timeout", 0, "Per-video wall clock timeout in seconds (0 = disabled)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip recording this run in the history database")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runScan(cmd *cobra.Command, cfg config.Config, inputArg string, recordHistory bool) error {
	startedAt := time.Now()

	logger := logging.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	runID := uuid.NewString()
	logger = logging.WithRunID(logger, runID)

	inputFolder, err := filepath.Abs(inputArg)
	if err != nil {
		return fmt.Errorf("resolve input folder: %w", err)
	}
	if info, err := os.Stat(inputFolder); err != nil {
		return fmt.Errorf("input folder does not exist: %s", inputArg)
	} else if !info.IsDir() {
		return fmt.Errorf("input path is not a directory: %s", inputArg)
	}

	outputFolder, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve output folder: %w", err)
	}
	if err := os.MkdirAll(outputFolder, 0755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	// One writer per output directory; overlapping runs would interleave
	// images and metadata.
	lock := flock.New(filepath.Join(outputFolder, lockFilename))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another slatescan run is writing to %s", outputFolder)
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("searching for video files", "input", logging.SanitizePath(inputFolder))
	files, err := discover.Videos(inputFolder)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Warn("no video files found")
		fmt.Fprintln(cmd.OutOrStdout(), "No video files found.")
		return nil
	}
	logger.Info("found video files", "count", len(files))

	classifier := slate.NewClassifier(slate.Thresholds{
		BlackRatioMin: cfg.Classifier.BlackRatioMin,
		WhiteRatioMin: cfg.Classifier.WhiteRatioMin,
		WhiteRatioMax: cfg.Classifier.WhiteRatioMax,
		EdgeThreshold: cfg.Classifier.EdgeThreshold,
	})

	mode := dedup.AlwaysPersist
	if cfg.Scan.OncePerFolder {
		mode = dedup.OncePerFolder
	}

	openOpts := video.OpenOptions{FFmpegBin: cfg.FFmpegBin, FFprobeBin: cfg.FFprobeBin}
	pool := &runner.Pool{
		Open: func(ctx context.Context, path string) (video.Source, error) {
			return video.Open(ctx, path, openOpts, logger)
		},
		Classifier:   classifier,
		Saver:        export.NewPNGSaver(outputFolder),
		Tracker:      dedup.NewTracker(mode),
		Logger:       logging.WithComponent(logger, "runner"),
		Options: scanner.Options{
			FramesToCheck: cfg.Scan.FramesToCheck,
			Threshold:     cfg.Scan.Threshold,
			TargetFrame:   cfg.Scan.TargetFrame,
		},
		Workers:      cfg.Scan.Workers,
		VideoTimeout: time.Duration(cfg.Scan.VideoTimeout) * time.Second,
	}

	progress := newProgressReporter(cmd.OutOrStdout(), len(files))
	pool.OnProgress = progress.onVideoDone

	results := pool.Run(ctx, files)
	progress.finish()

	meta, mapping := report.Aggregate(results, inputFolder, outputFolder, time.Now())
	if err := report.Write(outputFolder, meta, mapping); err != nil {
		return err
	}
	logger.Info("metadata saved",
		"metadata", filepath.Join(outputFolder, report.MetadataFilename),
		"mapping", filepath.Join(outputFolder, report.MappingFilename),
	)

	if recordHistory {
		if err := recordRun(ctx, cfg, logger, runID, meta, results, startedAt); err != nil {
			// History is a convenience layer; a failure must not fail the run.
			logger.Warn("failed to record run history", "error", err)
		}
	}

	printSummary(cmd.OutOrStdout(), meta)

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func recordRun(ctx context.Context, cfg config.Config, logger *slog.Logger, runID string, meta report.RunMetadata, results []runner.Result, startedAt time.Time) error {
	database, err := db.New(cfg.DBPath(), nil)
	if err != nil {
		return err
	}
	defer database.Close()

	repo := history.NewRepository(database.Conn())
	run := &history.Run{
		ID:           runID,
		InputFolder:  meta.InputFolder,
		OutputFolder: meta.OutputFolder,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
		TotalScanned: meta.TotalVideosScanned,
		SlatesFound:  meta.SlatesFound,
	}
	if err := repo.CreateRun(ctx, run, results); err != nil {
		return err
	}
	logger.Info("run recorded in history", "db", cfg.DBPath())
	return nil
}
