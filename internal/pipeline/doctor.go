package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// ToolInfo is the availability of one media binary.
type ToolInfo struct {
	Available bool   `json:"available"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Capabilities reports which media tools the host can run.
type Capabilities struct {
	FFmpeg   ToolInfo  `json:"ffmpeg"`
	FFprobe  ToolInfo  `json:"ffprobe"`
	ProbedAt time.Time `json:"probed_at"`
}

// CanExtractFrames is true when poster frames can come from real video.
func (c Capabilities) CanExtractFrames() bool {
	return c.FFmpeg.Available && c.FFprobe.Available
}

// Checker probes the host for media tools.
type Checker interface {
	Check(ctx context.Context) (*Capabilities, error)
}

// ToolChecker runs `<tool> -version` for ffmpeg and ffprobe.
type ToolChecker struct {
	cfg Config
}

func NewToolChecker(cfg Config) *ToolChecker {
	return &ToolChecker{cfg: cfg}
}

func (c *ToolChecker) Check(ctx context.Context) (*Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	caps := &Capabilities{
		FFmpeg:   c.tool(ctx, c.cfg.FFmpegPath, "ffmpeg"),
		FFprobe:  c.tool(ctx, c.cfg.FFprobePath, "ffprobe"),
		ProbedAt: time.Now(),
	}
	c.cfg.Logger.Info("media tool probe complete",
		"ffmpeg", caps.FFmpeg.Available,
		"ffprobe", caps.FFprobe.Available,
	)
	return caps, nil
}

func (c *ToolChecker) tool(ctx context.Context, preferred, name string) ToolInfo {
	path, err := resolveBinary(preferred, name)
	if err != nil {
		return ToolInfo{Error: err.Error()}
	}
	var out bytes.Buffer
	res := run(ctx, c.cfg.Logger, &out, path, "-version")
	if err := res.Err(name); err != nil {
		return ToolInfo{Path: path, Error: err.Error()}
	}
	return ToolInfo{Available: true, Path: path, Version: parseVersion(out.String())}
}

// parseVersion picks "6.1.1" out of "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(out string) string {
	sc := bufio.NewScanner(strings.NewReader(out))
	if !sc.Scan() {
		return ""
	}
	_, rest, ok := strings.Cut(sc.Text(), " version ")
	if !ok {
		return ""
	}
	version, _, _ := strings.Cut(rest, " ")
	return version
}

// CachedDoctor caches capability probes for a TTL so /health stays cheap.
type CachedDoctor struct {
	checker Checker
	ttl     time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(checker Checker, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		checker: checker,
		ttl:     defaultCacheTTL,
		logger:  logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh probes regardless of freshness. A failed probe falls back to the
// stale cache when there is one.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.checker.Check(ctx)
	if err != nil {
		d.logger.Warn("media tool probe failed", "error", err)
		if d.cached != nil {
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
