package draw

import (
	"fmt"
	"math"
)

// Mode selects the kind of segment a gesture produces.
type Mode string

const (
	ModeFree     Mode = "free"
	ModeStraight Mode = "straight"
	ModeArrow    Mode = "arrow"
	ModeCircle   Mode = "circle"
)

const (
	// ArrowHeadLength is the length of each arrow head stroke in overlay units.
	ArrowHeadLength = 10.0
	// ArrowHeadAngle is the half-angle between the shaft and each head stroke.
	ArrowHeadAngle = math.Pi / 6
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFree, ModeStraight, ModeArrow, ModeCircle:
		return m, nil
	}
	return "", fmt.Errorf("unknown drawing mode %q", s)
}

// Segment is one committed or in-progress shape. Free segments hold an
// ordered polyline; the other modes hold exactly two points once complete:
// anchor and end (for circles, center and edge).
type Segment struct {
	Mode   Mode    `json:"mode"`
	Points []Point `json:"points"`
}

// Complete reports whether the segment satisfies its minimum-point rule and
// may be committed.
func (s Segment) Complete() bool {
	if s.Mode == ModeFree {
		return len(s.Points) >= 1
	}
	return len(s.Points) == 2
}

// Clone returns a deep copy so committed geometry never aliases the builder.
func (s Segment) Clone() Segment {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	return Segment{Mode: s.Mode, Points: pts}
}

// Scaled returns a copy with every point scaled per axis.
func (s Segment) Scaled(sx, sy float64) Segment {
	out := Segment{Mode: s.Mode, Points: make([]Point, len(s.Points))}
	for i, p := range s.Points {
		out.Points[i] = p.Scale(sx, sy)
	}
	return out
}

// AngleDegrees is the unsigned angle of a two-point segment against the x
// axis, rounded to whole degrees in [0, 180].
func (s Segment) AngleDegrees() int {
	if len(s.Points) < 2 {
		return 0
	}
	start, end := s.Points[0], s.Points[1]
	deg := math.Abs(math.Atan2(end.Y-start.Y, end.X-start.X) * 180 / math.Pi)
	return int(math.Round(deg))
}

// AngleLabel is the text drawn beside straight segments.
func (s Segment) AngleLabel() string {
	return fmt.Sprintf("%d°", s.AngleDegrees())
}

// Radius is the circle radius: distance from center to edge.
func (s Segment) Radius() float64 {
	if len(s.Points) < 2 {
		return 0
	}
	return s.Points[0].Distance(s.Points[1])
}

// ArrowHead returns the far ends of the two head strokes, both starting at
// the segment end point.
func (s Segment) ArrowHead() (Point, Point) {
	if len(s.Points) < 2 {
		return Point{}, Point{}
	}
	start, end := s.Points[0], s.Points[1]
	angle := math.Atan2(end.Y-start.Y, end.X-start.X)
	left := Point{
		X: end.X - ArrowHeadLength*math.Cos(angle-ArrowHeadAngle),
		Y: end.Y - ArrowHeadLength*math.Sin(angle-ArrowHeadAngle),
	}
	right := Point{
		X: end.X - ArrowHeadLength*math.Cos(angle+ArrowHeadAngle),
		Y: end.Y - ArrowHeadLength*math.Sin(angle+ArrowHeadAngle),
	}
	return left, right
}
