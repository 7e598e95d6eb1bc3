package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heimdex/heimdex-annotator/internal/api"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/config"
	"github.com/heimdex/heimdex-annotator/internal/db"
	"github.com/heimdex/heimdex-annotator/internal/draw"
	"github.com/heimdex/heimdex-annotator/internal/logging"
	"github.com/heimdex/heimdex-annotator/internal/pipeline"
	"github.com/heimdex/heimdex-annotator/internal/playback"
	"github.com/heimdex/heimdex-annotator/internal/review"
	"github.com/heimdex/heimdex-annotator/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	resizeMode, err := draw.ParseResizeMode(cfg.ResizeMode())
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())
	logger.Info("starting heimdex annotator",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", logging.SanitizePath(cfg.DataDir()),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	schema, err := database.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	repo := catalog.NewRepository(database.Conn())

	deviceID, err := catalog.EnsureSecret(context.Background(), repo, catalog.ConfigDeviceID, 16)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := catalog.EnsureSecret(context.Background(), repo, catalog.ConfigAuthToken, 32)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                HEIMDEX ANNOTATOR v%-23s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ffCfg := pipeline.DefaultConfig(logger)
	ffCfg.FFmpegPath = cfg.FFmpegPath()
	ffCfg.FFprobePath = cfg.FFprobePath()

	var ffmpeg pipeline.FFmpeg
	if ef, err := pipeline.NewExecFFmpeg(ffCfg); err != nil {
		logger.Warn("ffmpeg unavailable, poster frames will be blank", "error", err)
		ffmpeg = pipeline.NewStubFFmpeg(logger)
	} else {
		ffmpeg = ef
	}

	doctor := pipeline.NewCachedDoctor(pipeline.NewToolChecker(ffCfg), logger)
	initCtx, initCancel := context.WithTimeout(context.Background(), ffCfg.ProbeTimeout)
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial media tool probe failed", "error", err)
	} else {
		logger.Info("media tools detected",
			"ffmpeg", caps.FFmpeg.Version,
			"ffprobe", caps.FFprobe.Version,
			"frames", caps.CanExtractFrames(),
		)
	}
	initCancel()

	catalogSvc := catalog.NewService(repo, ffmpeg, logger)
	streamer := playback.NewFileStreamer(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := catalog.NewRunner(catalogSvc, repo, doctor, logger)
	go runner.Start(ctx)

	sessions := review.NewManager(review.Config{
		Videos:          catalogSvc,
		FFmpeg:          ffmpeg,
		ResizeMode:      resizeMode,
		FrameForceDelay: cfg.FrameForceDelay(),
		PosterOffset:    cfg.PosterOffset(),
		MaxSurface:      cfg.MaxSurface(),
		FullscreenAPIs:  []string{"requestFullscreen", "webkitRequestFullscreen"},
		Logger:          logger,
	})

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		CatalogService: catalogSvc,
		Repository:     repo,
		Sessions:       sessions,
		Streamer:       streamer,
		Runner:         runner,
		Doctor:         doctor,
		SchemaVersion:  schema,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quit := newQuitter()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit.Quit()
		case <-quit.Done():
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			CatalogService: catalogSvc,
			Runner:         runner,
			Logger:         logger,
			OnQuit:         quit.Quit,
		})
		sessions.OnChange(tray.UpdateSessions)
		go tray.Run()
	}

	<-quit.Done()

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	sessions.CloseAll()

	logger.Info("shutdown complete")
	return nil
}
