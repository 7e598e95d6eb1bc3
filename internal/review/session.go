// Package review binds one catalog video to a drawing canvas, an annotation
// store and a playback sync for the lifetime of a review session.
package review

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	overlay "github.com/heimdex/heimdex-annotator/internal/draw"
	"github.com/heimdex/heimdex-annotator/internal/playback"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidSurface  = errors.New("invalid surface size")
	ErrUnknownPhase    = errors.New("unknown pointer phase")
	ErrUnknownAction   = errors.New("unknown playback action")
	ErrNoPoster        = errors.New("poster frame unavailable")
)

// Pointer phases accepted by Session.Pointer.
const (
	PhaseDown   = "down"
	PhaseMove   = "move"
	PhaseUp     = "up"
	PhaseCancel = "cancel"
)

// Playback actions accepted by Session.Playback.
const (
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
)

// PointerResult reports what a pointer event did to the overlay.
type PointerResult struct {
	Changed       bool   `json:"changed"`
	Outcome       string `json:"outcome,omitempty"`
	State         string `json:"state"`
	ChromeVisible bool   `json:"chrome_visible"`
}

type SurfaceSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// State is the externally visible state of a session.
type State struct {
	ID            string                 `json:"id"`
	VideoID       string                 `json:"video_id"`
	Filename      string                 `json:"filename"`
	Mode          overlay.Mode           `json:"mode"`
	Drawing       bool                   `json:"drawing"`
	ChromeVisible bool                   `json:"chrome_visible"`
	Surface       SurfaceSize            `json:"surface"`
	Segments      int                    `json:"segments"`
	Annotations   int                    `json:"annotations"`
	Snapshot      playback.Snapshot      `json:"snapshot"`
	Selected      *annotation.Annotation `json:"selected"`
	Fullscreen    bool                   `json:"fullscreen"`
	HasPoster     bool                   `json:"has_poster"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Session is a single review of one video. All methods serialise on the
// session mutex; there is one logical writer per session.
type Session struct {
	ID        string
	VideoID   string
	Filename  string
	CreatedAt time.Time

	logger     *slog.Logger
	maxSurface int

	mu      sync.Mutex
	closed  bool
	canvas  *overlay.Canvas
	store   *annotation.Store
	sync    *playback.Sync
	player  *playback.VirtualPlayer
	tracker *playback.Tracker
	unwatch func()
	stop    context.CancelFunc
}

func (s *Session) SetMode(m overlay.Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.SetMode(m)
}

// Pointer feeds one pointer or touch event to the canvas. The rect is the
// overlay's bounding box measured by the client in the same handler.
func (s *Session) Pointer(phase string, ev overlay.InputEvent, rect overlay.Rect) (PointerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res PointerResult
	switch phase {
	case PhaseDown:
		res.Changed = s.canvas.PointerDown(ev, rect)
	case PhaseMove:
		res.Changed = s.canvas.PointerMove(ev, rect)
	case PhaseUp:
		outcome := s.canvas.PointerUp()
		res.Changed = outcome != overlay.OutcomeNone
		res.Outcome = outcome.String()
	case PhaseCancel:
		res.Changed = s.canvas.Cancel()
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}
	res.State = s.canvas.State().String()
	res.ChromeVisible = s.canvas.ChromeVisible()
	return res, nil
}

func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Undo()
}

func (s *Session) Resize(width, height int) error {
	if err := checkSurface(width, height, s.maxSurface); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas.Resize(width, height)
	return nil
}

// checkSurface rejects non-positive sizes and sides longer than max. The
// overlay buffer grows with width*height, so the bound caps memory per session.
func checkSurface(width, height, max int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d, both sides must be positive", ErrInvalidSurface, width, height)
	}
	if max > 0 && (width > max || height > max) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels per side", ErrInvalidSurface, width, height, max)
	}
	return nil
}

// Segments returns the committed segments and the one in progress, if any.
func (s *Session) Segments() ([]overlay.Segment, *overlay.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Segments(), s.canvas.Current()
}

// Overlay returns a copy of the rendered overlay.
func (s *Session) Overlay() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.canvas.Surface().Image()
	if src == nil {
		return nil
	}
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// AddFeedback records an annotation at the player's current time.
func (s *Session) AddFeedback(title, note string, media *string) (annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.store.Add(s.player.CurrentTime(), title, note, media)
	if err != nil {
		return a, err
	}
	s.logger.Info("feedback added", "annotation_id", a.ID, "timestamp", a.Timestamp)
	return a, nil
}

func (s *Session) EditAnnotation(id string, p annotation.Patch) (annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Edit(id, p)
}

func (s *Session) DeleteAnnotation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(id)
}

// Annotations returns the annotations in timestamp order.
func (s *Session) Annotations() []annotation.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.List()
}

// Select makes the annotation the selection and seeks the video to it.
func (s *Session) Select(ctx context.Context, id string) (annotation.Annotation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.SelectAndSeek(ctx, id)
}

// Playback applies a transport command and returns the resulting snapshot.
func (s *Session) Playback(ctx context.Context, action string, at float64) (playback.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch action {
	case ActionPlay:
		err = s.sync.Play(ctx)
	case ActionPause:
		err = s.sync.Pause()
	case ActionSeek:
		err = s.sync.SeekTo(at)
	default:
		return s.tracker.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return s.tracker.Snapshot(), err
}

func (s *Session) ToggleFullscreen() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync.ToggleFullscreen()
}

// Poster captures the poster frame on first use and returns it, scaled to
// maxWidth when positive.
func (s *Session) Poster(ctx context.Context, maxWidth int) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	poster, err := s.sync.CapturePosterFrame(ctx)
	if err != nil {
		return nil, err
	}
	if poster == nil {
		return nil, ErrNoPoster
	}
	return s.sync.Thumbnail(maxWidth), nil
}

func (s *Session) Snapshot() playback.Snapshot {
	return s.tracker.Snapshot()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := s.canvas.Size()
	st := State{
		ID:            s.ID,
		VideoID:       s.VideoID,
		Filename:      s.Filename,
		Mode:          s.canvas.Mode(),
		Drawing:       s.canvas.State() == overlay.StateDrawing,
		ChromeVisible: s.canvas.ChromeVisible(),
		Surface:       SurfaceSize{Width: w, Height: h},
		Segments:      len(s.canvas.Segments()),
		Annotations:   s.store.Len(),
		Snapshot:      s.tracker.Snapshot(),
		Fullscreen:    s.player.Fullscreen(),
		HasPoster:     s.sync.Poster() != nil,
		CreatedAt:     s.CreatedAt,
	}
	if a, ok := s.store.Selected(); ok {
		st.Selected = &a
	}
	return st
}

// close detaches the transport and drops every annotation.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stop()
	s.unwatch()
	s.sync.Detach()
	s.tracker.Reset()
	s.store = annotation.NewStore()
}
