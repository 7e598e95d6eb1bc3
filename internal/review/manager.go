package review

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	overlay "github.com/heimdex/heimdex-annotator/internal/draw"
	"github.com/heimdex/heimdex-annotator/internal/logging"
	"github.com/heimdex/heimdex-annotator/internal/pipeline"
	"github.com/heimdex/heimdex-annotator/internal/playback"
)

// VideoLookup resolves catalog videos.
type VideoLookup interface {
	GetVideo(ctx context.Context, id string) (*catalog.Video, error)
}

type Config struct {
	Videos          VideoLookup
	FFmpeg          pipeline.FFmpeg
	ResizeMode      overlay.ResizeMode
	FrameForceDelay time.Duration
	PosterOffset    float64
	TickInterval    time.Duration
	// MaxSurface bounds each overlay side in pixels.
	MaxSurface int
	// FullscreenAPIs are the entry points the presenting host supports.
	FullscreenAPIs []string
	Logger         *slog.Logger
}

// DefaultMaxSurface is the largest overlay side accepted when Config leaves
// MaxSurface unset.
const DefaultMaxSurface = 8192

// Manager owns the open review sessions.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	onChange func(count int)
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 250 * time.Millisecond
	}
	if cfg.MaxSurface <= 0 {
		cfg.MaxSurface = DefaultMaxSurface
	}
	if cfg.FullscreenAPIs == nil {
		cfg.FullscreenAPIs = []string{"requestFullscreen"}
	}
	return &Manager{
		cfg:      cfg,
		logger:   logging.WithComponent(cfg.Logger, "review"),
		sessions: make(map[string]*Session),
	}
}

// OnChange registers a callback fired with the session count after every
// open and close.
func (m *Manager) OnChange(fn func(count int)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Open starts a review session for a catalog video with an overlay of the
// given size.
func (m *Manager) Open(ctx context.Context, videoID string, width, height int) (*Session, error) {
	if err := checkSurface(width, height, m.cfg.MaxSurface); err != nil {
		return nil, err
	}
	video, err := m.cfg.Videos.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := logging.WithVideoID(logging.WithSessionID(m.logger, id), video.ID)

	var frames playback.FrameSource
	if m.cfg.FFmpeg != nil {
		frames = pipeline.NewFileFrames(m.cfg.FFmpeg, video.Path)
	}
	player := playback.NewVirtualPlayer(playback.PlayerConfig{
		Duration:       video.Duration,
		Width:          video.Width,
		Height:         video.Height,
		Frames:         frames,
		FullscreenAPIs: m.cfg.FullscreenAPIs,
	})

	store := annotation.NewStore()
	tracker := playback.NewTracker()
	unwatch := tracker.Watch(player)
	player.Load()

	ps := playback.NewSync(playback.SyncConfig{
		Store:           store,
		FrameForceDelay: m.cfg.FrameForceDelay,
		PosterOffset:    m.cfg.PosterOffset,
		Logger:          logger,
	})
	ps.Attach(player)

	tickCtx, stop := context.WithCancel(context.Background())
	go player.Run(tickCtx, m.cfg.TickInterval)

	s := &Session{
		ID:         id,
		VideoID:    video.ID,
		Filename:   video.Filename,
		CreatedAt:  time.Now(),
		logger:     logger,
		maxSurface: m.cfg.MaxSurface,
		canvas: overlay.NewCanvas(overlay.CanvasConfig{
			Width:      width,
			Height:     height,
			ResizeMode: m.cfg.ResizeMode,
		}),
		store:   store,
		sync:    ps,
		player:  player,
		tracker: tracker,
		unwatch: unwatch,
		stop:    stop,
	}

	m.mu.Lock()
	m.sessions[id] = s
	count, onChange := len(m.sessions), m.onChange
	m.mu.Unlock()

	logger.Info("session opened", "filename", video.Filename, "width", width, "height", height)
	if onChange != nil {
		onChange(count)
	}
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends a session; its annotations are discarded.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count, onChange := len(m.sessions), m.onChange
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	s.logger.Info("session closed")
	if onChange != nil {
		onChange(count)
	}
	return nil
}

// CloseAll ends every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Close(id)
	}
}

// List returns the open sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
