package catalog

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/heimdex/heimdex-annotator/internal/db"
	"github.com/heimdex/heimdex-annotator/internal/pipeline"
)

type fakeFFmpeg struct {
	probe *pipeline.ProbeResult
	err   error
	calls int
}

func (f *fakeFFmpeg) Probe(ctx context.Context, filePath string) (*pipeline.ProbeResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.probe, nil
}

func (f *fakeFFmpeg) ExtractFrame(ctx context.Context, filePath string, offset float64) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return p
}

func TestService_AddVideo(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ff := &fakeFFmpeg{probe: &pipeline.ProbeResult{Duration: 42.5, Width: 1280, Height: 720, Codec: "h264"}}
	svc := NewService(repo, ff, testLogger())
	path := writeFile(t, t.TempDir(), "swing.mp4", "fake video content for testing")

	video, err := svc.AddVideo(context.Background(), path)
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}

	if video.ID == "" {
		t.Error("video.ID is empty")
	}
	if video.Filename != "swing.mp4" {
		t.Errorf("video.Filename = %s, want swing.mp4", video.Filename)
	}
	if video.Duration != 42.5 || video.Width != 1280 || video.Height != 720 {
		t.Errorf("probe metadata = %+v", video)
	}
	if !video.Probed() {
		t.Error("video should be marked probed")
	}
	if len(video.Fingerprint) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(video.Fingerprint))
	}

	stored, err := svc.GetVideo(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if stored.Duration != 42.5 || stored.Codec != "h264" || !stored.Probed() {
		t.Errorf("stored video = %+v", stored)
	}
}

func TestService_AddVideo_Dedup(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ff := &fakeFFmpeg{probe: &pipeline.ProbeResult{Duration: 1}}
	svc := NewService(repo, ff, testLogger())
	path := writeFile(t, t.TempDir(), "a.mov", "x")

	first, _ := svc.AddVideo(context.Background(), path)
	second, err := svc.AddVideo(context.Background(), path)
	if err != nil {
		t.Fatalf("second AddVideo() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("duplicate path got new id %s, want %s", second.ID, first.ID)
	}
	if ff.calls != 1 {
		t.Errorf("probe calls = %d, want 1", ff.calls)
	}
}

func TestService_AddVideo_ProbeFailure(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, &fakeFFmpeg{err: errors.New("moov atom not found")}, testLogger())
	path := writeFile(t, t.TempDir(), "broken.mp4", "x")

	video, err := svc.AddVideo(context.Background(), path)
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}
	if video.Duration != 0 || video.Probed() {
		t.Errorf("video = %+v, want unprobed with zero duration", video)
	}

	pending, _ := repo.ListUnprobedVideos(context.Background())
	if len(pending) != 1 || pending[0].ProbeError == "" {
		t.Errorf("unprobed videos = %+v", pending)
	}
}

func TestService_AddVideo_Rejects(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, testLogger())
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "nope.mp4"), os.ErrNotExist},
		{"directory", dir, ErrNotVideo},
		{"wrong extension", writeFile(t, dir, "notes.txt", "x"), ErrNotVideo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddVideo(context.Background(), tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddVideo() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_ImportFolder_SkipsHiddenDirs(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, testLogger())
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "visible.mp4", "visible")
	writeFile(t, dir, "readme.md", "docs")
	sub := filepath.Join(dir, "drills")
	os.Mkdir(sub, 0755)
	writeFile(t, sub, "drill.webm", "drill")
	hidden := filepath.Join(dir, ".hidden")
	os.Mkdir(hidden, 0755)
	writeFile(t, hidden, "hidden.mp4", "hidden")

	videos, err := svc.ImportFolder(ctx, dir)
	if err != nil {
		t.Fatalf("ImportFolder() error = %v", err)
	}
	if len(videos) != 2 {
		t.Errorf("imported %d videos, want 2 (should skip hidden)", len(videos))
	}

	count, _ := svc.CountVideos(ctx)
	if count != 2 {
		t.Errorf("CountVideos() = %d, want 2", count)
	}
}

func TestService_ImportFolder_NotDirectory(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, testLogger())
	path := writeFile(t, t.TempDir(), "a.mp4", "x")

	_, err := svc.ImportFolder(context.Background(), path)
	if !errors.Is(err, ErrNotDirectory) {
		t.Errorf("ImportFolder() error = %v, want ErrNotDirectory", err)
	}
}

func TestService_RemoveVideo(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	svc := NewService(repo, nil, testLogger())
	ctx := context.Background()
	video, _ := svc.AddVideo(ctx, writeFile(t, t.TempDir(), "a.mkv", "x"))

	if err := svc.RemoveVideo(ctx, video.ID); err != nil {
		t.Fatalf("RemoveVideo() error = %v", err)
	}
	if _, err := svc.GetVideo(ctx, video.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("GetVideo() after remove error = %v, want ErrVideoNotFound", err)
	}
	if err := svc.RemoveVideo(ctx, video.ID); !errors.Is(err, ErrVideoNotFound) {
		t.Errorf("second RemoveVideo() error = %v, want ErrVideoNotFound", err)
	}
}

func TestRunner_ProbePending(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	ff := &fakeFFmpeg{err: pipeline.ErrToolsUnavailable}
	svc := NewService(repo, ff, testLogger())
	ctx := context.Background()
	video, _ := svc.AddVideo(ctx, writeFile(t, t.TempDir(), "a.mp4", "x"))

	runner := NewRunner(svc, repo, nil, testLogger())
	if n := runner.ProbePending(ctx); n != 0 {
		t.Errorf("ProbePending() with failing tools = %d, want 0", n)
	}

	ff.err = nil
	ff.probe = &pipeline.ProbeResult{Duration: 9, Width: 320, Height: 240}
	if n := runner.ProbePending(ctx); n != 1 {
		t.Fatalf("ProbePending() = %d, want 1", n)
	}
	if runner.Probed() != 1 {
		t.Errorf("Probed() = %d, want 1", runner.Probed())
	}

	got, _ := svc.GetVideo(ctx, video.ID)
	if got.Duration != 9 || !got.Probed() || got.ProbeError != "" {
		t.Errorf("video after retry = %+v", got)
	}
	if n := runner.ProbePending(ctx); n != 0 {
		t.Errorf("second pass = %d, want 0", n)
	}
}

func TestRunner_PauseResume(t *testing.T) {
	runner := NewRunner(nil, nil, nil, testLogger())
	runner.Pause()
	if !runner.IsPaused() {
		t.Error("runner should be paused")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Error("runner should be resumed")
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	if v, err := repo.GetConfig(ctx, ConfigAuthToken); err != nil || v != "" {
		t.Errorf("GetConfig() missing = %q, %v", v, err)
	}
	repo.SetConfig(ctx, ConfigAuthToken, "one")
	repo.SetConfig(ctx, ConfigAuthToken, "two")
	if v, _ := repo.GetConfig(ctx, ConfigAuthToken); v != "two" {
		t.Errorf("GetConfig() = %q, want two", v)
	}
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"video.mp4", true},
		{"video.MP4", true},
		{"video.mov", true},
		{"video.mkv", true},
		{"video.webm", true},
		{"video.m4v", true},
		{"video.avi", false},
		{"document.pdf", false},
		{"noextension", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := IsVideoFile(tt.filename); got != tt.want {
				t.Errorf("IsVideoFile(%s) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestEnsureSecret(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	token, err := EnsureSecret(ctx, repo, ConfigAuthToken, 32)
	if err != nil {
		t.Fatalf("EnsureSecret() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("len(token) = %d, want 64", len(token))
	}

	again, _ := EnsureSecret(ctx, repo, ConfigAuthToken, 32)
	if again != token {
		t.Error("EnsureSecret() should return the stored value on later calls")
	}

	device, _ := EnsureSecret(ctx, repo, ConfigDeviceID, 16)
	if device == token || len(device) != 32 {
		t.Errorf("device id = %q", device)
	}
}
