package optimizer

import (
	"math"
	"strconv"
	"strings"
)

// Request is the parameter set for one transform. Zero width/height means no
// constraint on that axis.
type Request struct {
	Format            string
	Quality           int
	Width             int
	Height            int
	PreserveMetadata  bool
	Progressive       bool
	Watermark         bool
	WatermarkText     string
	WatermarkPosition string
	WatermarkOpacity  float64
	SmartCrop         bool
	CropFocus         string
}

type Fit string

const (
	// FitCover fills the target dimensions exactly, cropping around the focus
	FitCover Fit = "cover"
	// FitInside fits within the given bounds without enlarging the source
	FitInside Fit = "inside"
)

type Step interface {
	step()
}

type ResizeStep struct {
	Width  int
	Height int
	Fit    Fit
	Focus  string
}

type CompositeStep struct {
	Overlay *Overlay
}

type StripMetadataStep struct{}

type EncodeStep struct {
	Spec EncodeSpec
}

func (*ResizeStep) step()        {}
func (*CompositeStep) step()     {}
func (*StripMetadataStep) step() {}
func (*EncodeStep) step()        {}

// Plan is the ordered operation list for one request:
// resize -> composite -> strip metadata -> encode.
type Plan struct {
	Steps []Step
}

// ParseDimension parses a width/height form value. "auto", empty, and anything
// non-numeric or non-positive all mean "no constraint"; bad input never fails.
func ParseDimension(value string) int {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "auto") {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// BuildPlan derives the transform plan for one request against the probed
// source metadata.
func BuildPlan(req Request, meta *Metadata) *Plan {
	plan := &Plan{}

	outW, outH := meta.Width, meta.Height

	if req.SmartCrop && req.Width > 0 && req.Height > 0 {
		plan.Steps = append(plan.Steps, &ResizeStep{
			Width:  req.Width,
			Height: req.Height,
			Fit:    FitCover,
			Focus:  req.CropFocus,
		})
		outW, outH = req.Width, req.Height
	} else if req.Width > 0 || req.Height > 0 {
		plan.Steps = append(plan.Steps, &ResizeStep{
			Width:  req.Width,
			Height: req.Height,
			Fit:    FitInside,
		})
		outW, outH = FitInsideSize(meta.Width, meta.Height, req.Width, req.Height)
	}

	// The overlay is sized to the projected output canvas so the composite
	// lands where the descriptor says it does.
	if req.Watermark && strings.TrimSpace(req.WatermarkText) != "" {
		plan.Steps = append(plan.Steps, &CompositeStep{
			Overlay: BuildOverlay(req.WatermarkText, req.WatermarkPosition, req.WatermarkOpacity, outW, outH),
		})
	}

	if !req.PreserveMetadata {
		plan.Steps = append(plan.Steps, &StripMetadataStep{})
	}

	plan.Steps = append(plan.Steps, &EncodeStep{Spec: ResolveFormat(req.Format, req.Quality)})

	return plan
}

// FitInsideSize scales (width, height) to fit within the given bounds while
// keeping the aspect ratio. A zero bound leaves that axis unconstrained and
// the source is never enlarged.
func FitInsideSize(width, height, maxWidth, maxHeight int) (int, int) {
	scale := 1.0
	if maxWidth > 0 {
		scale = math.Min(scale, float64(maxWidth)/float64(width))
	}
	if maxHeight > 0 {
		scale = math.Min(scale, float64(maxHeight)/float64(height))
	}
	if scale >= 1.0 {
		return width, height
	}

	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
