package draw

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// PathOp is a single path construction command.
type PathOp int

const (
	OpMoveTo PathOp = iota
	OpLineTo
	OpArc
)

// PathCmd is one command of a Path. Arc commands use Pt as the center and
// sweep from Start to End radians.
type PathCmd struct {
	Op     PathOp
	Pt     Point
	Radius float64
	Start  float64
	End    float64
}

// Path is a sequence of move/line/arc commands, stroked as a whole.
type Path struct {
	cmds []PathCmd
}

func (p *Path) MoveTo(pt Point) { p.cmds = append(p.cmds, PathCmd{Op: OpMoveTo, Pt: pt}) }
func (p *Path) LineTo(pt Point) { p.cmds = append(p.cmds, PathCmd{Op: OpLineTo, Pt: pt}) }

// Arc appends a circular arc around center. It starts a new subpath.
func (p *Path) Arc(center Point, radius, start, end float64) {
	p.cmds = append(p.cmds, PathCmd{Op: OpArc, Pt: center, Radius: radius, Start: start, End: end})
}

// Cmds returns the recorded commands.
func (p *Path) Cmds() []PathCmd { return p.cmds }

// RasterSurface is the 2D raster the overlay is rendered onto.
type RasterSurface interface {
	Size() (width, height int)
	Clear()
	SetStroke(c color.Color, width float64)
	Stroke(p *Path)
	FillText(text string, at Point, c color.Color)
	Image() image.Image
}

// SurfaceFactory creates a surface of the given pixel size. Canvas calls it
// whenever the overlay is resized.
type SurfaceFactory func(width, height int) RasterSurface

// ImageSurface is a RasterSurface backed by an RGBA buffer. Strokes are
// rasterised with anti-aliasing; labels use a fixed bitmap face.
type ImageSurface struct {
	img    *image.RGBA
	ras    *vector.Rasterizer
	stroke color.Color
	width  float64
}

// NewImageSurface returns a transparent surface. Non-positive sizes yield an
// empty surface that ignores drawing.
func NewImageSurface(width, height int) *ImageSurface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &ImageSurface{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		ras:    vector.NewRasterizer(0, 0),
		stroke: color.Black,
		width:  1,
	}
}

// NewImageSurfaceFactory adapts NewImageSurface to a SurfaceFactory.
func NewImageSurfaceFactory() SurfaceFactory {
	return func(width, height int) RasterSurface {
		return NewImageSurface(width, height)
	}
}

func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) Clear() {
	stddraw.Draw(s.img, s.img.Bounds(), image.Transparent, image.Point{}, stddraw.Src)
}

func (s *ImageSurface) SetStroke(c color.Color, width float64) {
	s.stroke = c
	if width > 0 {
		s.width = width
	}
}

func (s *ImageSurface) Image() image.Image { return s.img }

// Stroke draws every subpath of p as connected line segments with round
// joins and caps. The whole path is rasterised in one pass over its
// bounding box.
func (s *ImageSurface) Stroke(p *Path) {
	if s.img.Bounds().Empty() {
		return
	}
	var polys [][]Point
	for _, line := range flatten(p) {
		for i := 0; i+1 < len(line); i++ {
			if q := s.segmentQuad(line[i], line[i+1]); q != nil {
				polys = append(polys, q)
			}
		}
		for _, pt := range line {
			if d := s.capPolygon(pt); d != nil {
				polys = append(polys, d)
			}
		}
	}
	s.fill(polys)
}

func (s *ImageSurface) FillText(text string, at Point, c color.Color) {
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(math.Round(at.X)), int(math.Round(at.Y))),
	}
	d.DrawString(text)
}

func (s *ImageSurface) segmentQuad(a, b Point) []Point {
	length := a.Distance(b)
	if length == 0 {
		return nil
	}
	half := s.width / 2
	nx := -(b.Y - a.Y) / length * half
	ny := (b.X - a.X) / length * half
	return []Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

const dotSides = 12

func (s *ImageSurface) capPolygon(c Point) []Point {
	r := s.width / 2
	if r < 0.5 {
		return nil
	}
	poly := make([]Point, dotSides)
	for i := range poly {
		a := 2 * math.Pi * float64(i) / dotSides
		poly[i] = Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return poly
}

// fill paints the union of polys. The rasterizer sums signed coverage, so
// every polygon is wound the same way before it is added; overlaps then
// saturate instead of cancelling.
func (s *ImageSurface) fill(polys [][]Point) {
	area, ok := s.clipBounds(polys)
	if !ok {
		return
	}
	s.ras.Reset(area.Dx(), area.Dy())
	s.ras.DrawOp = stddraw.Over
	ox, oy := float64(area.Min.X), float64(area.Min.Y)
	for _, poly := range polys {
		reversed := signedArea(poly) < 0
		for i := range poly {
			pt := poly[i]
			if reversed {
				pt = poly[len(poly)-1-i]
			}
			x, y := float32(pt.X-ox), float32(pt.Y-oy)
			if i == 0 {
				s.ras.MoveTo(x, y)
			} else {
				s.ras.LineTo(x, y)
			}
		}
		s.ras.ClosePath()
	}
	s.ras.Draw(s.img, area, image.NewUniform(s.stroke), image.Point{})
}

// clipBounds is the pixel rectangle covering polys, clipped to the surface.
func (s *ImageSurface) clipBounds(polys [][]Point) (image.Rectangle, bool) {
	if len(polys) == 0 {
		return image.Rectangle{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, p := range poly {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	b := s.img.Bounds()
	if maxX < float64(b.Min.X) || maxY < float64(b.Min.Y) || minX > float64(b.Max.X) || minY > float64(b.Max.Y) {
		return image.Rectangle{}, false
	}
	r := image.Rect(
		int(math.Floor(math.Max(minX, float64(b.Min.X)))),
		int(math.Floor(math.Max(minY, float64(b.Min.Y)))),
		int(math.Ceil(math.Min(maxX, float64(b.Max.X)))),
		int(math.Ceil(math.Min(maxY, float64(b.Max.Y)))),
	).Intersect(b)
	return r, !r.Empty()
}

func signedArea(poly []Point) float64 {
	var sum float64
	for i, p := range poly {
		q := poly[(i+1)%len(poly)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// flatten converts a path into polylines, approximating arcs with chords.
func flatten(p *Path) [][]Point {
	var out [][]Point
	var cur []Point
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, c := range p.Cmds() {
		switch c.Op {
		case OpMoveTo:
			flush()
			cur = []Point{c.Pt}
		case OpLineTo:
			if len(cur) == 0 {
				cur = []Point{c.Pt}
				continue
			}
			cur = append(cur, c.Pt)
		case OpArc:
			flush()
			cur = arcPoints(c)
			flush()
		}
	}
	flush()
	return out
}

func arcPoints(c PathCmd) []Point {
	sweep := c.End - c.Start
	steps := int(math.Ceil(math.Abs(sweep) * c.Radius / 2))
	if steps < 8 {
		steps = 8
	}
	if steps > 720 {
		steps = 720
	}
	pts := make([]Point, steps+1)
	for i := 0; i <= steps; i++ {
		a := c.Start + sweep*float64(i)/float64(steps)
		pts[i] = Point{X: c.Pt.X + c.Radius*math.Cos(a), Y: c.Pt.Y + c.Radius*math.Sin(a)}
	}
	return pts
}
