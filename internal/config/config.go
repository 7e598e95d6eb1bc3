// Package config provides configuration management for the Heimdex Annotator.
// Configuration is loaded from environment variables, optionally seeded from a
// .env file, with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort            = 8790
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultDataDir         = ".heimdex-annotator"
	DefaultResizeMode      = "rescale"
	DefaultFrameForceDelay = 100 // milliseconds
	DefaultPosterOffset    = 500 // milliseconds
	DefaultMaxSurface      = 8192

	// Environment variable names
	EnvPort            = "ANNOTATOR_PORT"
	EnvLogLevel        = "ANNOTATOR_LOG_LEVEL"
	EnvLogFormat       = "ANNOTATOR_LOG_FORMAT"
	EnvDataDir         = "ANNOTATOR_DATA_DIR"
	EnvHeadless        = "ANNOTATOR_HEADLESS"
	EnvResizeMode      = "ANNOTATOR_RESIZE_MODE"
	EnvFrameForceDelay = "ANNOTATOR_FRAME_FORCE_DELAY_MS"
	EnvPosterOffset    = "ANNOTATOR_POSTER_OFFSET_MS"
	EnvMaxSurface      = "ANNOTATOR_MAX_SURFACE_PX"
	EnvFFmpegPath      = "ANNOTATOR_FFMPEG_PATH"
	EnvFFprobePath     = "ANNOTATOR_FFPROBE_PATH"

	// Database filename
	DBFilename = "annotator.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBPath() string
	Headless() bool
	ResizeMode() string
	FrameForceDelay() time.Duration
	PosterOffset() float64
	MaxSurface() int
	FFmpegPath() string
	FFprobePath() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port            int
	logLevel        string
	logFormat       string
	dataDir         string
	headless        bool
	resizeMode      string
	frameForceDelay int
	posterOffset    int
	maxSurface      int
	ffmpegPath      string
	ffprobePath     string
}

// New loads an optional .env from the working directory, then creates an
// EnvConfig with defaults and environment variable overrides. Variables
// already set in the environment win over the file.
func New() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:            DefaultPort,
		logLevel:        DefaultLogLevel,
		logFormat:       DefaultLogFormat,
		dataDir:         defaultDataDir(),
		resizeMode:      DefaultResizeMode,
		frameForceDelay: DefaultFrameForceDelay,
		posterOffset:    DefaultPosterOffset,
		maxSurface:      DefaultMaxSurface,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if lf := os.Getenv(EnvLogFormat); lf != "" {
		lf = strings.ToLower(lf)
		if lf != "json" && lf != "text" {
			return nil, fmt.Errorf("invalid %s: must be json or text", EnvLogFormat)
		}
		cfg.logFormat = lf
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if rm := os.Getenv(EnvResizeMode); rm != "" {
		rm = strings.ToLower(rm)
		if rm != "rescale" && rm != "replay" {
			return nil, fmt.Errorf("invalid %s: must be rescale or replay", EnvResizeMode)
		}
		cfg.resizeMode = rm
	}

	var err error
	if cfg.frameForceDelay, err = nonNegativeInt(EnvFrameForceDelay, cfg.frameForceDelay); err != nil {
		return nil, err
	}
	if cfg.posterOffset, err = nonNegativeInt(EnvPosterOffset, cfg.posterOffset); err != nil {
		return nil, err
	}
	if cfg.maxSurface, err = nonNegativeInt(EnvMaxSurface, cfg.maxSurface); err != nil {
		return nil, err
	}
	if cfg.maxSurface == 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", EnvMaxSurface)
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpegPath)
	cfg.ffprobePath = os.Getenv(EnvFFprobePath)

	return cfg, nil
}

func nonNegativeInt(env string, def int) (int, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", env)
	}
	return n, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
// LogFormat returns json or text
func (c *EnvConfig) LogFormat() string {
	return c.logFormat
}

func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Headless disables the system tray
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// ResizeMode is how overlay geometry follows a surface resize: rescale or replay
func (c *EnvConfig) ResizeMode() string {
	return c.resizeMode
}

func (c *EnvConfig) FrameForceDelay() time.Duration {
	return time.Duration(c.frameForceDelay) * time.Millisecond
}

// MaxSurface returns the largest accepted overlay side in pixels
func (c *EnvConfig) MaxSurface() int {
	return c.maxSurface
}

// PosterOffset returns the poster frame position in seconds
func (c *EnvConfig) PosterOffset() float64 {
	return float64(c.posterOffset) / 1000
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
