package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/heimdex/heimdex-annotator/internal/pipeline"
)

const fingerprintSize = 64 * 1024

type CatalogService interface {
	AddVideo(ctx context.Context, path string) (*Video, error)
	ImportFolder(ctx context.Context, path string) ([]*Video, error)
	GetVideo(ctx context.Context, id string) (*Video, error)
	ListVideos(ctx context.Context) ([]*Video, error)
	RemoveVideo(ctx context.Context, id string) error
	CountVideos(ctx context.Context) (int, error)
	ProbeVideo(ctx context.Context, id string) (*Video, error)
}

type Service struct {
	repo   Repository
	ffmpeg pipeline.FFmpeg
	logger *slog.Logger
}

func NewService(repo Repository, ffmpeg pipeline.FFmpeg, logger *slog.Logger) *Service {
	return &Service{repo: repo, ffmpeg: ffmpeg, logger: logger}
}

// AddVideo registers a video file. Registering the same path twice returns
// the existing entry. A failed probe is recorded and the video is still
// registered with zero duration.
func (s *Service) AddVideo(ctx context.Context, path string) (*Video, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotVideo, filepath.Base(absPath))
	}
	if !IsVideoFile(absPath) {
		return nil, fmt.Errorf("%w: %s", ErrNotVideo, filepath.Base(absPath))
	}

	existing, err := s.repo.GetVideoByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	fingerprint, err := computeFingerprint(absPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	video := &Video{
		ID:          NewID(),
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		Size:        info.Size(),
		Mtime:       info.ModTime(),
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}
	s.applyProbe(ctx, video)

	if err := s.repo.CreateVideo(ctx, video); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("video added",
			"video_id", video.ID,
			"filename", video.Filename,
			"size", humanize.Bytes(uint64(video.Size)),
			"duration", video.Duration,
		)
	}
	return video, nil
}

// applyProbe fills media metadata in place.
func (s *Service) applyProbe(ctx context.Context, v *Video) {
	if s.ffmpeg == nil {
		return
	}
	probe, err := s.ffmpeg.Probe(ctx, v.Path)
	if err != nil {
		v.ProbeError = err.Error()
		if s.logger != nil {
			s.logger.Warn("probe failed", "filename", v.Filename, "error", err)
		}
		return
	}
	now := time.Now()
	v.Duration = probe.Duration
	v.Width = probe.Width
	v.Height = probe.Height
	v.Codec = probe.Codec
	v.ProbedAt = &now
	v.ProbeError = ""
}

// ImportFolder registers every video under path, skipping hidden
// directories. Files that fail to register are logged and skipped.
func (s *Service) ImportFolder(ctx context.Context, path string) ([]*Video, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, filepath.Base(absPath))
	}

	var files []string
	err = filepath.WalkDir(absPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && p != absPath && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && IsVideoFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	videos := make([]*Video, 0, len(files))
	var total int64
	for _, p := range files {
		if err := ctx.Err(); err != nil {
			return videos, err
		}
		v, err := s.AddVideo(ctx, p)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to add video", "filename", filepath.Base(p), "error", err)
			}
			continue
		}
		total += v.Size
		videos = append(videos, v)
	}

	if s.logger != nil {
		s.logger.Info("folder imported",
			"path", absPath,
			"videos", len(videos),
			"total_size", humanize.Bytes(uint64(total)),
		)
	}
	return videos, nil
}

func (s *Service) GetVideo(ctx context.Context, id string) (*Video, error) {
	v, err := s.repo.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVideoNotFound
	}
	return v, nil
}

func (s *Service) ListVideos(ctx context.Context) ([]*Video, error) {
	return s.repo.ListVideos(ctx)
}

func (s *Service) RemoveVideo(ctx context.Context, id string) error {
	if _, err := s.GetVideo(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteVideo(ctx, id)
}

func (s *Service) CountVideos(ctx context.Context) (int, error) {
	return s.repo.CountVideos(ctx)
}

// ProbeVideo re-reads media metadata, for videos registered while the
// media tools were unavailable.
func (s *Service) ProbeVideo(ctx context.Context, id string) (*Video, error) {
	v, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.ffmpeg == nil {
		return v, nil
	}

	probe, probeErr := s.ffmpeg.Probe(ctx, v.Path)
	if err := s.repo.UpdateVideoProbe(ctx, id, probe, probeErr); err != nil {
		return nil, err
	}
	if probeErr != nil {
		return nil, fmt.Errorf("probe %s: %w", v.Filename, probeErr)
	}
	return s.GetVideo(ctx, id)
}

func computeFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	lr := io.LimitReader(f, fingerprintSize)
	if _, err := io.Copy(h, lr); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
