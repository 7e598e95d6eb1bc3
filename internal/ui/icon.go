package ui

import (
	"bytes"
	"image/png"

	"github.com/heimdex/heimdex-annotator/internal/draw"
)

const iconSize = 22

// iconPNG renders the tray icon with the overlay renderer: a circle and an
// arrow pointing into it.
func iconPNG() ([]byte, error) {
	surface := draw.NewImageSurface(iconSize, iconSize)
	style := draw.DefaultStyle()
	style.StrokeWidth = 2

	draw.Render(surface, []draw.Segment{
		{Mode: draw.ModeCircle, Points: []draw.Point{{X: 13, Y: 9}, {X: 19, Y: 9}}},
		{Mode: draw.ModeArrow, Points: []draw.Point{{X: 3, Y: 19}, {X: 9, Y: 13}}},
	}, nil, style)

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
