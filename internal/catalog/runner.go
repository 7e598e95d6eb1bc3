package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/heimdex/heimdex-annotator/internal/pipeline"
)

// Runner retries probes for videos whose metadata is still missing, once
// the media tools report as available.
type Runner struct {
	service      *Service
	repo         Repository
	doctor       *pipeline.CachedDoctor
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
	probed       atomic.Int64
}

func NewRunner(service *Service, repo Repository, doctor *pipeline.CachedDoctor, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		doctor:       doctor,
		logger:       logger,
		pollInterval: 30 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("probe runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("probe runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.ProbePending(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("probe runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("probe runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Probed counts videos successfully probed by the runner.
func (r *Runner) Probed() int64 {
	return r.probed.Load()
}

// ProbePending makes one pass over unprobed videos and returns how many
// now have metadata.
func (r *Runner) ProbePending(ctx context.Context) int {
	if r.doctor != nil {
		caps, err := r.doctor.Get(ctx)
		if err != nil || !caps.CanExtractFrames() {
			return 0
		}
	}

	videos, err := r.repo.ListUnprobedVideos(ctx)
	if err != nil {
		r.logger.Error("failed to list unprobed videos", "error", err)
		return 0
	}

	done := 0
	for _, v := range videos {
		if ctx.Err() != nil {
			break
		}
		if _, err := r.service.ProbeVideo(ctx, v.ID); err != nil {
			r.logger.Warn("probe retry failed", "video_id", v.ID, "error", err)
			continue
		}
		done++
	}
	if done > 0 {
		r.probed.Add(int64(done))
		r.logger.Info("probed pending videos", "count", done, "remaining", len(videos)-done)
	}
	return done
}
