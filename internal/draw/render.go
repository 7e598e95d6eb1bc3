package draw

import (
	"image/color"
	"math"
)

// Style is the fixed stroke and label styling applied to every pass.
type Style struct {
	Stroke      color.RGBA
	StrokeWidth float64
	Label       color.RGBA
	// LabelOffset is where angle labels sit relative to a segment's anchor.
	LabelOffset Point
}

// DefaultStyle is red 3px strokes with yellow angle labels.
func DefaultStyle() Style {
	return Style{
		Stroke:      color.RGBA{R: 255, A: 255},
		StrokeWidth: 3,
		Label:       color.RGBA{R: 255, G: 255, A: 255},
		LabelOffset: Point{X: 10, Y: -10},
	}
}

// Render repaints the surface from scratch: committed segments in order, then
// the in-progress segment if any. Geometry is the source of truth, so the
// result depends only on the arguments.
func Render(s RasterSurface, committed []Segment, current *Segment, style Style) {
	s.Clear()
	s.SetStroke(style.Stroke, style.StrokeWidth)
	for i := range committed {
		drawSegment(s, committed[i], style)
	}
	if current != nil {
		drawSegment(s, *current, style)
	}
}

func drawSegment(s RasterSurface, seg Segment, style Style) {
	if len(seg.Points) == 0 {
		return
	}
	switch seg.Mode {
	case ModeFree:
		p := &Path{}
		p.MoveTo(seg.Points[0])
		for _, pt := range seg.Points[1:] {
			p.LineTo(pt)
		}
		s.Stroke(p)

	case ModeStraight:
		if len(seg.Points) < 2 {
			return
		}
		start := seg.Points[0]
		s.Stroke(line(start, seg.Points[1]))
		at := Point{X: start.X + style.LabelOffset.X, Y: start.Y + style.LabelOffset.Y}
		s.FillText(seg.AngleLabel(), at, style.Label)

	case ModeArrow:
		if len(seg.Points) < 2 {
			return
		}
		end := seg.Points[1]
		s.Stroke(line(seg.Points[0], end))
		left, right := seg.ArrowHead()
		s.Stroke(line(end, left))
		s.Stroke(line(end, right))

	case ModeCircle:
		if len(seg.Points) < 2 {
			return
		}
		p := &Path{}
		p.Arc(seg.Points[0], seg.Radius(), 0, 2*math.Pi)
		s.Stroke(p)
	}
}

func line(a, b Point) *Path {
	p := &Path{}
	p.MoveTo(a)
	p.LineTo(b)
	return p
}
