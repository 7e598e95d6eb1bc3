package playback

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
)

const (
	// DefaultFrameForceDelay is how long playback runs after a seek before it
	// is paused again. Paused media backends often keep showing the old frame
	// after a seek; a short play makes them present the new one.
	DefaultFrameForceDelay = 100 * time.Millisecond
	// DefaultPosterOffset is where the poster frame is taken, in seconds.
	DefaultPosterOffset = 0.5
	// DefaultSeekTimeout bounds the wait for a seeked event.
	DefaultSeekTimeout = 5 * time.Second
)

var errStaleSession = errors.New("video session changed")

// SyncConfig configures a Sync.
type SyncConfig struct {
	Store           *annotation.Store
	FrameForceDelay time.Duration
	PosterOffset    float64
	SeekTimeout     time.Duration
	Logger          *slog.Logger
}

// Sync keeps annotation selection and the media transport in step, and
// captures the poster frame of each loaded video.
type Sync struct {
	store       *annotation.Store
	forceDelay  time.Duration
	posterAt    float64
	seekTimeout time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	transport  MediaTransport
	generation uint64
	captured   bool
	poster     *image.RGBA
}

func NewSync(cfg SyncConfig) *Sync {
	if cfg.FrameForceDelay <= 0 {
		cfg.FrameForceDelay = DefaultFrameForceDelay
	}
	if cfg.PosterOffset <= 0 {
		cfg.PosterOffset = DefaultPosterOffset
	}
	if cfg.SeekTimeout <= 0 {
		cfg.SeekTimeout = DefaultSeekTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sync{
		store:       cfg.Store,
		forceDelay:  cfg.FrameForceDelay,
		posterAt:    cfg.PosterOffset,
		seekTimeout: cfg.SeekTimeout,
		logger:      cfg.Logger,
	}
}

// Attach binds a newly loaded video. Chains started against a previous
// transport see the generation change and stop.
func (s *Sync) Attach(t MediaTransport) {
	s.mu.Lock()
	s.transport = t
	s.generation++
	s.captured = false
	s.poster = nil
	s.mu.Unlock()

	if t != nil && t.Ready() && s.store != nil {
		s.store.SetDuration(t.Duration())
	}
}

// Detach drops the transport; subsequent operations are no-ops.
func (s *Sync) Detach() {
	s.Attach(nil)
}

func (s *Sync) current() (MediaTransport, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport, s.generation
}

func (s *Sync) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen && s.transport != nil
}

// ready returns the transport when it can accept commands.
func (s *Sync) ready() (MediaTransport, uint64, bool) {
	t, gen := s.current()
	if t == nil || !t.Ready() {
		return nil, gen, false
	}
	return t, gen, true
}

// SelectAndSeek makes the annotation the active selection and moves the
// video to its timestamp, forcing the frame to be presented. Annotation data
// is never modified. Transport problems are logged, not returned.
func (s *Sync) SelectAndSeek(ctx context.Context, id string) (annotation.Annotation, error) {
	a, err := s.store.Select(id)
	if err != nil {
		return annotation.Annotation{}, err
	}

	t, gen, ok := s.ready()
	if !ok {
		return a, nil
	}
	if err := t.Seek(a.Timestamp); err != nil {
		s.logger.Warn("seek failed", "annotation_id", id, "error", err)
		return a, nil
	}
	if err := s.forceFrame(ctx, t, gen); err != nil {
		s.logger.Debug("frame forcing interrupted", "annotation_id", id, "error", err)
	}
	s.settle(t, gen, a.Timestamp)
	return a, nil
}

// settle puts the paused transport back on target after frame forcing. The
// play step advances the position, and a transport parked at its end rewinds
// to zero when told to play.
func (s *Sync) settle(t MediaTransport, gen uint64, target float64) {
	if !s.isCurrent(gen) || !t.Paused() || t.CurrentTime() == target {
		return
	}
	if err := t.Seek(target); err != nil {
		s.logger.Warn("seek back failed", "target", target, "error", err)
	}
}

// forceFrame plays until playback has started, waits forceDelay and pauses,
// provided the transport still belongs to the same video session.
func (s *Sync) forceFrame(ctx context.Context, t MediaTransport, gen uint64) error {
	if err := t.Play(ctx); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	timer := time.NewTimer(s.forceDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		if s.isCurrent(gen) {
			t.Pause()
		}
		return ctx.Err()
	}

	if !s.isCurrent(gen) {
		return errStaleSession
	}
	return t.Pause()
}

// Play starts playback; a no-op on an unready transport.
func (s *Sync) Play(ctx context.Context) error {
	t, _, ok := s.ready()
	if !ok {
		return nil
	}
	return t.Play(ctx)
}

// Pause stops playback; a no-op on an unready transport.
func (s *Sync) Pause() error {
	t, _, ok := s.ready()
	if !ok {
		return nil
	}
	return t.Pause()
}

// SeekTo moves the playhead without the frame forcing sequence.
func (s *Sync) SeekTo(seconds float64) error {
	t, _, ok := s.ready()
	if !ok {
		return nil
	}
	return t.Seek(seconds)
}

// CurrentTime is the transport position, or zero without a ready transport.
func (s *Sync) CurrentTime() float64 {
	t, _, ok := s.ready()
	if !ok {
		return 0
	}
	return t.CurrentTime()
}

// CapturePosterFrame grabs the frame just past the start of the video into a
// buffer at native resolution. It runs once per attached video; later calls
// return the stored poster. A nil poster with nil error means the transport
// cannot provide one.
func (s *Sync) CapturePosterFrame(ctx context.Context) (*image.RGBA, error) {
	s.mu.Lock()
	if s.captured {
		p := s.poster
		s.mu.Unlock()
		return p, nil
	}
	t, gen := s.transport, s.generation
	s.mu.Unlock()

	if t == nil || !t.Ready() {
		return nil, nil
	}

	offset := s.posterAt
	if d := t.Duration(); d > 0 && offset > d/2 {
		offset = d / 2
	}

	if err := s.seekAndWait(ctx, t, offset); err != nil {
		return nil, err
	}
	if !s.isCurrent(gen) {
		return nil, nil
	}

	frame, err := t.Frame(ctx)
	if errors.Is(err, ErrNoFrameSource) || (err == nil && frame == nil) {
		s.markCaptured(gen, nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}

	poster := rasterize(frame, t)
	if !s.markCaptured(gen, poster) {
		return nil, nil
	}
	s.logger.Info("poster frame captured", "offset", offset,
		"width", poster.Bounds().Dx(), "height", poster.Bounds().Dy())
	return poster, nil
}

func (s *Sync) seekAndWait(ctx context.Context, t MediaTransport, offset float64) error {
	seeked := make(chan struct{}, 1)
	unsubscribe := t.Subscribe(func(ev Event) {
		if ev.Kind != EventSeeked {
			return
		}
		select {
		case seeked <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := t.Seek(offset); err != nil {
		return fmt.Errorf("seek to poster offset: %w", err)
	}

	timer := time.NewTimer(s.seekTimeout)
	defer timer.Stop()
	select {
	case <-seeked:
		return nil
	case <-timer.C:
		return fmt.Errorf("seek to poster offset: no seeked event after %s", s.seekTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// markCaptured stores the poster unless the session moved on meanwhile.
func (s *Sync) markCaptured(gen uint64, poster *image.RGBA) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.captured {
		return false
	}
	s.captured = true
	s.poster = poster
	return true
}

// Poster returns the captured poster, if any.
func (s *Sync) Poster() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poster
}

// Thumbnail returns the poster scaled down to at most maxWidth pixels wide.
func (s *Sync) Thumbnail(maxWidth int) image.Image {
	p := s.Poster()
	if p == nil {
		return nil
	}
	b := p.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return p
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), p, b, xdraw.Src, nil)
	return dst
}

// ToggleFullscreen enters fullscreen through the first available entry point,
// or leaves it the same way. Without any entry point it does nothing. It
// returns the resulting state.
func (s *Sync) ToggleFullscreen() (bool, error) {
	t, _ := s.current()
	fs, ok := t.(Fullscreener)
	if !ok {
		return false, nil
	}

	leaving := fs.Fullscreen()
	for _, e := range fs.FullscreenEntries() {
		fn := e.Enter
		if leaving {
			fn = e.Exit
		}
		if fn == nil {
			continue
		}
		if err := fn(); err != nil {
			return fs.Fullscreen(), fmt.Errorf("%s: %w", e.Name, err)
		}
		s.logger.Debug("fullscreen toggled", "entry", e.Name, "fullscreen", !leaving)
		return fs.Fullscreen(), nil
	}
	return leaving, nil
}

// rasterize draws the frame into a buffer at the transport's native size.
func rasterize(frame image.Image, t MediaTransport) *image.RGBA {
	src := frame.Bounds()
	w, h := t.NativeSize()
	if w <= 0 || h <= 0 {
		w, h = src.Dx(), src.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if src.Dx() == w && src.Dy() == h {
		draw.Draw(dst, dst.Bounds(), frame, src.Min, draw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), frame, src, xdraw.Src, nil)
	return dst
}
