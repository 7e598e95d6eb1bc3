package draw

// State is the gesture state of a Builder.
type State int

const (
	StateIdle State = iota
	StateDrawing
)

func (s State) String() string {
	if s == StateDrawing {
		return "drawing"
	}
	return "idle"
}

// Outcome describes what a pointer release did with the working segment.
type Outcome int

const (
	// OutcomeNone means there was no gesture in progress.
	OutcomeNone Outcome = iota
	OutcomeCommitted
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeDiscarded:
		return "discarded"
	}
	return "none"
}

// Builder turns one pointer down/move/up sequence into a segment.
// It is not safe for concurrent use; Canvas is its only owner.
type Builder struct {
	mode    Mode
	state   State
	current *Segment
}

// NewBuilder returns an idle builder in free mode.
func NewBuilder() *Builder {
	return &Builder{mode: ModeFree}
}

// Mode returns the selected mode.
func (b *Builder) Mode() Mode { return b.mode }

// State returns the gesture state.
func (b *Builder) State() State { return b.state }

// SetMode selects the mode for the next gesture. Changes are ignored while a
// gesture is in progress.
func (b *Builder) SetMode(m Mode) bool {
	if b.state == StateDrawing {
		return false
	}
	b.mode = m
	return true
}

// ChromeVisible reports whether host UI chrome should be shown. It is hidden
// for the duration of a gesture.
func (b *Builder) ChromeVisible() bool {
	return b.state != StateDrawing
}

// Current returns the in-progress segment, or nil when idle.
func (b *Builder) Current() *Segment {
	return b.current
}

// Down starts a new segment at p. A second Down while drawing is ignored.
func (b *Builder) Down(p Point) bool {
	if b.state == StateDrawing {
		return false
	}
	b.state = StateDrawing
	b.current = &Segment{Mode: b.mode, Points: []Point{p}}
	return true
}

// Move extends the working segment: free mode appends p, the other modes
// keep the anchor and replace the end point.
func (b *Builder) Move(p Point) bool {
	if b.state != StateDrawing || b.current == nil {
		return false
	}
	if b.current.Mode == ModeFree || len(b.current.Points) == 1 {
		b.current.Points = append(b.current.Points, p)
	} else {
		b.current.Points[1] = p
	}
	return true
}

// Up ends the gesture. The segment is returned with OutcomeCommitted when it
// satisfies its minimum-point rule; otherwise it is dropped.
func (b *Builder) Up() (Segment, Outcome) {
	if b.state != StateDrawing || b.current == nil {
		return Segment{}, OutcomeNone
	}
	seg := *b.current
	b.current = nil
	b.state = StateIdle
	if !seg.Complete() {
		return Segment{}, OutcomeDiscarded
	}
	return seg, OutcomeCommitted
}

// Cancel abandons any gesture in progress.
func (b *Builder) Cancel() {
	b.current = nil
	b.state = StateIdle
}
