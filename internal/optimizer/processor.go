package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"sync"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/rs/zerolog"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"

	_ "golang.org/x/image/webp"

	"optimizer-pro/internal/logger"
)

// Metadata is the probed description of a decoded image
type Metadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

type Processor struct {
	logger zerolog.Logger
}

func New() *Processor {
	return &Processor{
		logger: logger.GetLogger("image-processor"),
	}
}

// Probe decodes an image from memory and returns it together with its metadata
func Probe(data []byte) (image.Image, *Metadata, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("error decoding image: %w", err)
	}

	bounds := img.Bounds()
	return img, &Metadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Size:   int64(len(data)),
	}, nil
}

// Execute runs the plan against a decoded source image and returns the encoded
// bytes, the file extension, and the output dimensions. The context is checked
// between steps so a deadline bounds the whole transform.
func (p *Processor) Execute(ctx context.Context, src image.Image, plan *Plan) ([]byte, string, int, int, error) {
	out := src

	for _, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, "", 0, 0, fmt.Errorf("transform aborted: %w", err)
		}

		switch s := step.(type) {
		case *ResizeStep:
			out = p.applyResize(out, s)
		case *CompositeStep:
			composited, err := p.applyOverlay(out, s.Overlay)
			if err != nil {
				return nil, "", 0, 0, fmt.Errorf("error compositing watermark: %w", err)
			}
			out = composited
		case *StripMetadataStep:
			// Decode/re-encode drops EXIF and ICC data on its own; nothing to
			// do here beyond honoring the step's place in the plan.
			p.logger.Debug().Msg("Metadata stripped by re-encode")
		case *EncodeStep:
			data, err := encode(out, s.Spec)
			if err != nil {
				return nil, "", 0, 0, err
			}
			bounds := out.Bounds()
			return data, s.Spec.Extension, bounds.Dx(), bounds.Dy(), nil
		}
	}

	return nil, "", 0, 0, fmt.Errorf("transform plan has no encode step")
}

func (p *Processor) applyResize(img image.Image, s *ResizeStep) image.Image {
	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	if s.Fit == FitCover {
		resized := imaging.Fill(img, s.Width, s.Height, anchorForFocus(s.Focus), imaging.Lanczos)
		p.logger.Debug().
			Int("width", s.Width).
			Int("height", s.Height).
			Str("focus", s.Focus).
			Msg("Image cropped to cover target")
		return resized
	}

	newWidth, newHeight := FitInsideSize(originalWidth, originalHeight, s.Width, s.Height)
	if newWidth == originalWidth && newHeight == originalHeight {
		p.logger.Debug().Msg("No resizing needed")
		return img
	}

	resized := imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
	p.logger.Debug().
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Msg("Image resized")
	return resized
}

// anchorForFocus maps a crop focus hint to a geometric anchor. The
// content-aware hints (faces, attention, entropy) are advisory; without a
// saliency model they anchor at the center.
func anchorForFocus(focus string) imaging.Anchor {
	switch focus {
	case "top":
		return imaging.Top
	case "bottom":
		return imaging.Bottom
	case "left":
		return imaging.Left
	case "right":
		return imaging.Right
	default:
		return imaging.Center
	}
}

var loadFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

func (p *Processor) applyOverlay(img image.Image, o *Overlay) (image.Image, error) {
	base := imaging.Clone(img)

	fnt, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("error parsing overlay font: %w", err)
	}

	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    float64(o.FontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating overlay font face: %w", err)
	}
	defer face.Close()

	// The descriptor anchors at the text start; shift left for end/middle.
	x := o.X
	textWidth := font.MeasureString(face, o.Text).Ceil()
	switch o.TextAnchor {
	case "end":
		x -= textWidth
	case "middle":
		x -= textWidth / 2
	}

	alpha := uint8(math.Round(o.Opacity * 255))
	shadow := color.NRGBA{A: alpha}
	fill := color.NRGBA{R: 255, G: 255, B: 255, A: alpha}

	d := &font.Drawer{
		Dst:  base,
		Src:  image.NewUniform(shadow),
		Face: face,
		Dot:  fixed.P(x+2, o.Y+2),
	}
	d.DrawString(o.Text)

	d.Src = image.NewUniform(fill)
	d.Dot = fixed.P(x, o.Y)
	d.DrawString(o.Text)

	p.logger.Debug().
		Str("gravity", o.Gravity).
		Int("x", x).
		Int("y", o.Y).
		Int("font_size", o.FontSize).
		Msg("Watermark composited")

	return base, nil
}

func encode(img image.Image, spec EncodeSpec) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch spec.Container {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: spec.Quality})
	case "png":
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		err = encoder.Encode(&buf, img)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(spec.Quality)})
	case "avif":
		err = avif.Encode(&buf, img, avif.Options{
			Quality: spec.Quality,
			Speed:   speedFromEffort(spec.Effort),
		})
	case "gif":
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256})
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.LZW})
	default:
		return nil, fmt.Errorf("unsupported output container: %s", spec.Container)
	}

	if err != nil {
		return nil, fmt.Errorf("error encoding %s output: %w", spec.Container, err)
	}

	return buf.Bytes(), nil
}

// speedFromEffort converts the effort scale (higher = more work) to the avif
// encoder's speed scale (higher = less work).
func speedFromEffort(effort int) int {
	speed := 10 - effort
	if speed < 0 {
		speed = 0
	}
	if speed > 10 {
		speed = 10
	}
	return speed
}

// CompressionRatio is the percentage reduction in byte size from original to
// optimized, rounded to two decimals. A zero-byte original yields 0 rather
// than dividing by zero.
func CompressionRatio(originalSize, optimizedSize int64) float64 {
	if originalSize <= 0 {
		return 0
	}
	ratio := (float64(originalSize-optimizedSize) / float64(originalSize)) * 100
	return math.Round(ratio*100) / 100
}
