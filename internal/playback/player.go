package playback

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"
)

var (
	ErrNotReady      = errors.New("media not ready")
	ErrNoFrameSource = errors.New("no frame source")
)

// Fullscreen entry points in the order browsers are probed.
var fullscreenAPIs = []string{
	"requestFullscreen",
	"webkitRequestFullscreen",
	"mozRequestFullScreen",
	"msRequestFullscreen",
}

// PlayerConfig describes the video a VirtualPlayer simulates.
type PlayerConfig struct {
	Duration float64
	Width    int
	Height   int
	Frames   FrameSource
	// FullscreenAPIs lists the entry points the host reported as present.
	FullscreenAPIs []string
	Now            func() time.Time
}

// VirtualPlayer is a headless MediaTransport: the position advances with the
// wall clock while playing and frames come from a FrameSource.
type VirtualPlayer struct {
	mu       sync.Mutex
	cfg      PlayerConfig
	ready    bool
	paused   bool
	position float64
	anchor   time.Time

	subs    map[int]func(Event)
	nextSub int

	fullscreen bool
	available  map[string]bool
}

func NewVirtualPlayer(cfg PlayerConfig) *VirtualPlayer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	avail := make(map[string]bool, len(cfg.FullscreenAPIs))
	for _, name := range cfg.FullscreenAPIs {
		avail[name] = true
	}
	return &VirtualPlayer{
		cfg:       cfg,
		paused:    true,
		subs:      make(map[int]func(Event)),
		available: avail,
	}
}

// Load marks metadata as available and fires loadedmetadata.
func (p *VirtualPlayer) Load() {
	p.mu.Lock()
	p.ready = true
	ev := p.eventLocked(EventLoadedMetadata)
	p.mu.Unlock()
	p.emit(ev)
}

func (p *VirtualPlayer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *VirtualPlayer) Duration() float64 {
	return p.cfg.Duration
}

func (p *VirtualPlayer) NativeSize() (int, int) {
	return p.cfg.Width, p.cfg.Height
}

func (p *VirtualPlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

func (p *VirtualPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentLocked()
	return p.paused
}

func (p *VirtualPlayer) Seek(t float64) error {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return ErrNotReady
	}
	p.position = p.clamp(t)
	p.anchor = p.cfg.Now()
	ev := p.eventLocked(EventSeeked)
	p.mu.Unlock()

	p.emit(ev)
	return nil
}

func (p *VirtualPlayer) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return ErrNotReady
	}
	p.currentLocked()
	if !p.paused {
		p.mu.Unlock()
		return nil
	}
	if p.cfg.Duration > 0 && p.position >= p.cfg.Duration {
		p.position = 0
	}
	p.paused = false
	p.anchor = p.cfg.Now()
	ev := p.eventLocked(EventPlay)
	p.mu.Unlock()

	p.emit(ev)
	return nil
}

func (p *VirtualPlayer) Pause() error {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		return ErrNotReady
	}
	p.position = p.currentLocked()
	if p.paused {
		p.mu.Unlock()
		return nil
	}
	p.paused = true
	ev := p.eventLocked(EventPause)
	p.mu.Unlock()

	p.emit(ev)
	return nil
}

// Tick fires timeupdate while playing.
func (p *VirtualPlayer) Tick() {
	p.mu.Lock()
	if !p.ready || p.paused {
		p.mu.Unlock()
		return
	}
	ev := p.eventLocked(EventTimeUpdate)
	p.mu.Unlock()
	p.emit(ev)
}

// Run ticks at interval until ctx is done.
func (p *VirtualPlayer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

func (p *VirtualPlayer) Frame(ctx context.Context) (image.Image, error) {
	if p.cfg.Frames == nil {
		return nil, ErrNoFrameSource
	}
	if !p.Ready() {
		return nil, ErrNotReady
	}
	return p.cfg.Frames.FrameAt(ctx, p.CurrentTime())
}

func (p *VirtualPlayer) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// FullscreenEntries exposes the standard entry point order; entries the
// host did not report have nil funcs.
func (p *VirtualPlayer) FullscreenEntries() []FullscreenEntry {
	entries := make([]FullscreenEntry, 0, len(fullscreenAPIs))
	for _, name := range fullscreenAPIs {
		e := FullscreenEntry{Name: name}
		if p.available[name] {
			e.Enter = func() error { return p.setFullscreen(true) }
			e.Exit = func() error { return p.setFullscreen(false) }
		}
		entries = append(entries, e)
	}
	return entries
}

func (p *VirtualPlayer) Fullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullscreen
}

func (p *VirtualPlayer) setFullscreen(on bool) error {
	p.mu.Lock()
	p.fullscreen = on
	p.mu.Unlock()
	return nil
}

// currentLocked advances the position; reaching the end pauses playback.
func (p *VirtualPlayer) currentLocked() float64 {
	if p.paused {
		return p.position
	}
	now := p.cfg.Now()
	t := p.position + now.Sub(p.anchor).Seconds()
	if p.cfg.Duration > 0 && t >= p.cfg.Duration {
		p.position = p.cfg.Duration
		p.paused = true
		return p.position
	}
	p.position = t
	p.anchor = now
	return t
}

func (p *VirtualPlayer) clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if p.cfg.Duration > 0 && t > p.cfg.Duration {
		return p.cfg.Duration
	}
	return t
}

func (p *VirtualPlayer) eventLocked(kind EventKind) Event {
	return Event{
		Kind:        kind,
		CurrentTime: p.currentLocked(),
		Duration:    p.cfg.Duration,
		Paused:      p.paused,
	}
}

func (p *VirtualPlayer) emit(ev Event) {
	p.mu.Lock()
	fns := make([]func(Event), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
