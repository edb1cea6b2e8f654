package optimizer

import (
	"fmt"
	"html"
	"strings"
)

const defaultOpacity = 0.8

// Overlay is the computed watermark descriptor: where the text sits on the
// target canvas and how it is aligned. Pixel compositing happens in the
// Processor; the SVG field is the equivalent vector markup for clients that
// composite themselves.
type Overlay struct {
	Text       string
	Width      int
	Height     int
	FontSize   int
	Padding    int
	X          int
	Y          int
	TextAnchor string
	Gravity    string
	Opacity    float64
	SVG        string
}

// BuildOverlay derives the overlay descriptor for the given text and position
// on a width×height canvas. Font size is width/20 clamped to [16, 48] and the
// padding equals the font size.
func BuildOverlay(text, position string, opacity float64, width, height int) *Overlay {
	fontSize := width / 20
	if fontSize < 16 {
		fontSize = 16
	}
	if fontSize > 48 {
		fontSize = 48
	}
	padding := fontSize

	if opacity <= 0 || opacity > 1 {
		opacity = defaultOpacity
	}

	o := &Overlay{
		Text:       text,
		Width:      width,
		Height:     height,
		FontSize:   fontSize,
		Padding:    padding,
		X:          overlayX(position, width, padding),
		Y:          overlayY(position, height, padding),
		TextAnchor: textAnchor(position),
		Gravity:    GravityFor(position),
		Opacity:    opacity,
	}
	o.SVG = overlaySVG(o)

	return o
}

func overlayX(position string, width, padding int) int {
	if strings.Contains(position, "left") {
		return padding
	}
	if strings.Contains(position, "right") {
		return width - padding
	}
	return width / 2
}

func overlayY(position string, height, padding int) int {
	if strings.Contains(position, "top") {
		return padding + 20
	}
	if strings.Contains(position, "bottom") {
		return height - padding
	}
	return height / 2
}

func textAnchor(position string) string {
	if strings.Contains(position, "left") {
		return "start"
	}
	if strings.Contains(position, "right") {
		return "end"
	}
	return "middle"
}

// GravityFor maps a watermark position to a compositing gravity. Unrecognized
// positions default to the bottom-right corner.
func GravityFor(position string) string {
	switch position {
	case "top-left":
		return "northwest"
	case "top-center":
		return "north"
	case "top-right":
		return "northeast"
	case "center-left":
		return "west"
	case "center":
		return "center"
	case "center-right":
		return "east"
	case "bottom-left":
		return "southwest"
	case "bottom-center":
		return "south"
	case "bottom-right":
		return "southeast"
	default:
		return "southeast"
	}
}

func overlaySVG(o *Overlay) string {
	return fmt.Sprintf(`<svg width="%d" height="%d">
  <defs>
    <filter id="shadow" x="-20%%" y="-20%%" width="140%%" height="140%%">
      <feDropShadow dx="2" dy="2" stdDeviation="3" flood-color="rgba(0,0,0,0.8)"/>
    </filter>
  </defs>
  <text x="%d" y="%d" font-family="Arial, sans-serif" font-size="%d" font-weight="bold" fill="white" opacity="%.2f" filter="url(#shadow)" text-anchor="%s">%s</text>
</svg>`, o.Width, o.Height, o.X, o.Y, o.FontSize, o.Opacity, o.TextAnchor, html.EscapeString(o.Text))
}
