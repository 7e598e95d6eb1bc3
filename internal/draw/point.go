// Package draw implements the vector drawing engine for the video overlay:
// pointer input is mapped to overlay-local points, built into segments and
// rendered onto a RasterSurface from geometry on every pass.
package draw

import "math"

// Point is a position in overlay-local pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(other.X-p.X, other.Y-p.Y)
}

// Scale returns the point with each axis multiplied by its factor.
func (p Point) Scale(sx, sy float64) Point {
	return Point{X: p.X * sx, Y: p.Y * sy}
}

// Rect is the bounding rectangle of the overlay surface in client coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Touch is a single contact point of a touch event.
type Touch struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
}

// InputEvent is a raw pointer or touch event carrying client coordinates.
// Touch events list their contacts in Touches; only the first is used.
type InputEvent struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
	Touches []Touch `json:"touches,omitempty"`
}

// MapPoint translates an input event into surface-local coordinates using the
// bounding rectangle measured for the same event.
func MapPoint(ev InputEvent, rect Rect) Point {
	x, y := ev.ClientX, ev.ClientY
	if len(ev.Touches) > 0 {
		x, y = ev.Touches[0].ClientX, ev.Touches[0].ClientY
	}
	return Point{X: x - rect.Left, Y: y - rect.Top}
}
