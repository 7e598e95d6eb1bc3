package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, env := range []string{EnvPort, EnvLogLevel, EnvLogFormat, EnvHeadless, EnvResizeMode, EnvFrameForceDelay, EnvPosterOffset, EnvMaxSurface, EnvFFmpegPath} {
		t.Setenv(env, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.Headless() {
		t.Error("Headless() default should be false")
	}
	if cfg.ResizeMode() != "rescale" {
		t.Errorf("ResizeMode() = %q, want rescale", cfg.ResizeMode())
	}
	if cfg.FrameForceDelay() != 100*time.Millisecond {
		t.Errorf("FrameForceDelay() = %s, want 100ms", cfg.FrameForceDelay())
	}
	if cfg.PosterOffset() != 0.5 {
		t.Errorf("PosterOffset() = %v, want 0.5", cfg.PosterOffset())
	}
	if cfg.FFmpegPath() != "" {
		t.Errorf("FFmpegPath() = %q, want empty", cfg.FFmpegPath())
	}
	if cfg.MaxSurface() != 8192 {
		t.Errorf("MaxSurface() = %d, want 8192", cfg.MaxSurface())
	}
	if cfg.LogFormat() != "json" {
		t.Errorf("LogFormat() = %q, want json", cfg.LogFormat())
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPort, "9001")
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvResizeMode, "REPLAY")
	t.Setenv(EnvFrameForceDelay, "250")
	t.Setenv(EnvPosterOffset, "1500")
	t.Setenv(EnvFFprobePath, "/opt/ffmpeg/bin/ffprobe")
	t.Setenv(EnvLogFormat, "Text")
	t.Setenv(EnvMaxSurface, "4096")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9001 {
		t.Errorf("Port() = %d, want 9001", cfg.Port())
	}
	if cfg.DBPath() != filepath.Join(dir, DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want true")
	}
	if cfg.ResizeMode() != "replay" {
		t.Errorf("ResizeMode() = %q, want replay", cfg.ResizeMode())
	}
	if cfg.FrameForceDelay() != 250*time.Millisecond {
		t.Errorf("FrameForceDelay() = %s", cfg.FrameForceDelay())
	}
	if cfg.PosterOffset() != 1.5 {
		t.Errorf("PosterOffset() = %v, want 1.5", cfg.PosterOffset())
	}
	if cfg.FFprobePath() != "/opt/ffmpeg/bin/ffprobe" {
		t.Errorf("FFprobePath() = %q", cfg.FFprobePath())
	}
	if cfg.MaxSurface() != 4096 {
		t.Errorf("MaxSurface() = %d, want 4096", cfg.MaxSurface())
	}
	if cfg.LogFormat() != "text" {
		t.Errorf("LogFormat() = %q, want text", cfg.LogFormat())
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{EnvPort, "abc"},
		{EnvPort, "70000"},
		{EnvHeadless, "maybe"},
		{EnvResizeMode, "stretch"},
		{EnvLogFormat, "xml"},
		{EnvMaxSurface, "0"},
		{EnvMaxSurface, "big"},
		{EnvFrameForceDelay, "-5"},
		{EnvPosterOffset, "soon"},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", tt.env, tt.value)
			}
		})
	}
}

func TestNew_LoadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ANNOTATOR_PORT=9123\nANNOTATOR_LOG_LEVEL=debug\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	// Unset rather than empty so godotenv fills them in.
	t.Setenv(EnvPort, "")
	os.Unsetenv(EnvPort)
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9123 {
		t.Errorf("Port() = %d, want 9123 from .env", cfg.Port())
	}
	if cfg.LogLevel() != "warn" {
		t.Errorf("LogLevel() = %q, environment should win over .env", cfg.LogLevel())
	}
}

func TestNew_WithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := New(); err != nil {
		t.Fatalf("New() without .env error = %v", err)
	}
}
