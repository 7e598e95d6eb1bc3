package draw

import "fmt"

// ResizeMode controls what happens to committed geometry when the overlay
// changes size.
type ResizeMode string

const (
	// ResizeRescale scales every committed point by the size ratio so shapes
	// stay attached to the same place in the video frame.
	ResizeRescale ResizeMode = "rescale"
	// ResizeReplay redraws committed points unchanged.
	ResizeReplay ResizeMode = "replay"
)

// ParseResizeMode validates a resize mode name.
func ParseResizeMode(s string) (ResizeMode, error) {
	switch m := ResizeMode(s); m {
	case ResizeRescale, ResizeReplay:
		return m, nil
	}
	return "", fmt.Errorf("unknown resize mode %q", s)
}

// CanvasConfig configures a Canvas.
type CanvasConfig struct {
	Width      int
	Height     int
	Style      Style
	ResizeMode ResizeMode
	// Factory creates the backing surface; defaults to ImageSurface.
	Factory SurfaceFactory
}

// Canvas owns the committed segments, the gesture builder and the overlay
// surface. Every mutation ends with a full redraw. A Canvas has a single
// writer; callers serialise access.
type Canvas struct {
	builder   *Builder
	committed []Segment
	surface   RasterSurface
	factory   SurfaceFactory
	style     Style
	resize    ResizeMode
}

// NewCanvas creates a canvas with an empty, freshly rendered surface.
func NewCanvas(cfg CanvasConfig) *Canvas {
	if cfg.Factory == nil {
		cfg.Factory = NewImageSurfaceFactory()
	}
	if cfg.ResizeMode == "" {
		cfg.ResizeMode = ResizeRescale
	}
	if cfg.Style == (Style{}) {
		cfg.Style = DefaultStyle()
	}
	c := &Canvas{
		builder: NewBuilder(),
		surface: cfg.Factory(cfg.Width, cfg.Height),
		factory: cfg.Factory,
		style:   cfg.Style,
		resize:  cfg.ResizeMode,
	}
	c.Redraw()
	return c
}

// SetMode selects the drawing mode; ignored while a gesture is in progress.
func (c *Canvas) SetMode(m Mode) bool { return c.builder.SetMode(m) }

func (c *Canvas) Mode() Mode { return c.builder.Mode() }

func (c *Canvas) State() State { return c.builder.State() }

// ChromeVisible reports whether the host should show its controls.
func (c *Canvas) ChromeVisible() bool { return c.builder.ChromeVisible() }

// PointerDown maps the event and starts a gesture.
func (c *Canvas) PointerDown(ev InputEvent, rect Rect) bool {
	p := MapPoint(ev, rect)
	if !c.builder.Down(p) {
		return false
	}
	c.Redraw()
	return true
}

// PointerMove maps the event and extends the gesture.
func (c *Canvas) PointerMove(ev InputEvent, rect Rect) bool {
	p := MapPoint(ev, rect)
	if !c.builder.Move(p) {
		return false
	}
	c.Redraw()
	return true
}

// PointerUp ends the gesture, committing the segment if it is complete.
func (c *Canvas) PointerUp() Outcome {
	seg, outcome := c.builder.Up()
	if outcome == OutcomeNone {
		return outcome
	}
	if outcome == OutcomeCommitted {
		c.committed = append(c.committed, seg.Clone())
	}
	c.Redraw()
	return outcome
}

// Cancel abandons the gesture in progress, as when the pointer leaves the
// overlay. Committed segments are kept.
func (c *Canvas) Cancel() bool {
	if c.builder.State() != StateDrawing {
		return false
	}
	c.builder.Cancel()
	c.Redraw()
	return true
}

// Undo removes the most recently committed segment. It reports false when
// there was nothing to remove.
func (c *Canvas) Undo() bool {
	if len(c.committed) == 0 {
		return false
	}
	c.committed = c.committed[:len(c.committed)-1]
	c.Redraw()
	return true
}

// Resize recreates the surface at the new size and redraws. In rescale mode
// committed and in-progress points follow the size ratio.
func (c *Canvas) Resize(width, height int) {
	oldW, oldH := c.surface.Size()
	if c.resize == ResizeRescale && oldW > 0 && oldH > 0 && width > 0 && height > 0 {
		sx := float64(width) / float64(oldW)
		sy := float64(height) / float64(oldH)
		for i := range c.committed {
			c.committed[i] = c.committed[i].Scaled(sx, sy)
		}
		if cur := c.builder.Current(); cur != nil {
			for i, p := range cur.Points {
				cur.Points[i] = p.Scale(sx, sy)
			}
		}
	}
	c.surface = c.factory(width, height)
	c.Redraw()
}

// Redraw repaints the whole surface from geometry.
func (c *Canvas) Redraw() {
	Render(c.surface, c.committed, c.builder.Current(), c.style)
}

// Segments returns a copy of the committed segments, oldest first.
func (c *Canvas) Segments() []Segment {
	out := make([]Segment, len(c.committed))
	for i, s := range c.committed {
		out[i] = s.Clone()
	}
	return out
}

// Current returns a copy of the in-progress segment, or nil.
func (c *Canvas) Current() *Segment {
	cur := c.builder.Current()
	if cur == nil {
		return nil
	}
	cp := cur.Clone()
	return &cp
}

// Surface returns the current overlay surface.
func (c *Canvas) Surface() RasterSurface { return c.surface }

// Size returns the overlay size in pixels.
func (c *Canvas) Size() (int, int) { return c.surface.Size() }
