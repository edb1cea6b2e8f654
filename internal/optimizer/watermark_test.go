package optimizer

import (
	"strings"
	"testing"
)

func TestBuildOverlayFontSize(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		expected int
	}{
		{name: "small canvas clamps to minimum", width: 100, expected: 16},
		{name: "large canvas clamps to maximum", width: 4000, expected: 48},
		{name: "mid canvas scales with width", width: 600, expected: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := BuildOverlay("text", "bottom-right", 0.8, tt.width, 500)
			if o.FontSize != tt.expected {
				t.Errorf("FontSize = %d, want %d", o.FontSize, tt.expected)
			}
			if o.Padding != o.FontSize {
				t.Errorf("Padding = %d, want font size %d", o.Padding, o.FontSize)
			}
		})
	}
}

func TestBuildOverlayAnchors(t *testing.T) {
	const width, height = 800, 600
	// padding = 800/20 = 40
	tests := []struct {
		position   string
		x, y       int
		textAnchor string
	}{
		{position: "top-left", x: 40, y: 60, textAnchor: "start"},
		{position: "top-center", x: 400, y: 60, textAnchor: "middle"},
		{position: "top-right", x: 760, y: 60, textAnchor: "end"},
		{position: "center-left", x: 40, y: 300, textAnchor: "start"},
		{position: "center", x: 400, y: 300, textAnchor: "middle"},
		{position: "center-right", x: 760, y: 300, textAnchor: "end"},
		{position: "bottom-left", x: 40, y: 560, textAnchor: "start"},
		{position: "bottom-center", x: 400, y: 560, textAnchor: "middle"},
		{position: "bottom-right", x: 760, y: 560, textAnchor: "end"},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			o := BuildOverlay("text", tt.position, 0.8, width, height)
			if o.X != tt.x || o.Y != tt.y {
				t.Errorf("position %q -> (%d, %d), want (%d, %d)", tt.position, o.X, o.Y, tt.x, tt.y)
			}
			if o.TextAnchor != tt.textAnchor {
				t.Errorf("TextAnchor = %q, want %q", o.TextAnchor, tt.textAnchor)
			}
		})
	}
}

func TestGravityFor(t *testing.T) {
	tests := []struct {
		position string
		expected string
	}{
		{position: "top-left", expected: "northwest"},
		{position: "top-center", expected: "north"},
		{position: "top-right", expected: "northeast"},
		{position: "center-left", expected: "west"},
		{position: "center", expected: "center"},
		{position: "center-right", expected: "east"},
		{position: "bottom-left", expected: "southwest"},
		{position: "bottom-center", expected: "south"},
		{position: "bottom-right", expected: "southeast"},
		{position: "under-the-sea", expected: "southeast"},
		{position: "", expected: "southeast"},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			if got := GravityFor(tt.position); got != tt.expected {
				t.Errorf("GravityFor(%q) = %q, want %q", tt.position, got, tt.expected)
			}
		})
	}
}

func TestBuildOverlayOpacity(t *testing.T) {
	tests := []struct {
		name     string
		opacity  float64
		expected float64
	}{
		{name: "valid opacity kept", opacity: 0.5, expected: 0.5},
		{name: "zero falls back to default", opacity: 0, expected: 0.8},
		{name: "negative falls back to default", opacity: -1, expected: 0.8},
		{name: "above one falls back to default", opacity: 1.5, expected: 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := BuildOverlay("text", "center", tt.opacity, 800, 600)
			if o.Opacity != tt.expected {
				t.Errorf("Opacity = %v, want %v", o.Opacity, tt.expected)
			}
		})
	}
}

func TestOverlaySVGEscapesText(t *testing.T) {
	o := BuildOverlay(`<script>&"`, "center", 0.8, 800, 600)
	if strings.Contains(o.SVG, "<script>") {
		t.Errorf("SVG contains unescaped markup: %s", o.SVG)
	}
	if !strings.Contains(o.SVG, "&lt;script&gt;&amp;&#34;") {
		t.Errorf("SVG missing escaped text: %s", o.SVG)
	}
}
