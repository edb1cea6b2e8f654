package optimizer

import "strings"

// EncodeSpec carries the container choice and the encoder parameters for one
// output. Only the fields relevant to the container are set.
type EncodeSpec struct {
	Container        string
	Extension        string
	Quality          int
	Progressive      bool
	OptimizedEncoder bool
	CompressionLevel int
	Effort           int
	Compression      string
}

// ResolveFormat maps a requested output format and quality to container and
// encoder parameters. Format matching is case-insensitive and "jpg" aliases
// "jpeg". Unrecognized formats fall back to webp defaults rather than failing;
// the client UI relies on the lenient default. Quality is passed through
// unclamped: the individual encoders own their clamping behavior.
func ResolveFormat(format string, quality int) EncodeSpec {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return EncodeSpec{
			Container:        "jpeg",
			Extension:        "jpg",
			Quality:          quality,
			Progressive:      true,
			OptimizedEncoder: true,
		}
	case "png":
		return EncodeSpec{
			Container:        "png",
			Extension:        "png",
			Quality:          quality,
			CompressionLevel: 9,
			Progressive:      true,
		}
	case "webp":
		return EncodeSpec{
			Container: "webp",
			Extension: "webp",
			Quality:   quality,
			Effort:    6,
		}
	case "avif":
		return EncodeSpec{
			Container: "avif",
			Extension: "avif",
			Quality:   quality,
			Effort:    9,
		}
	case "gif":
		// quality is ignored: the gif container has no quality parameter
		return EncodeSpec{
			Container: "gif",
			Extension: "gif",
		}
	case "bmp":
		return EncodeSpec{
			Container: "bmp",
			Extension: "bmp",
		}
	case "tiff":
		return EncodeSpec{
			Container:   "tiff",
			Extension:   "tiff",
			Quality:     quality,
			Compression: "lzw",
		}
	default:
		return EncodeSpec{
			Container: "webp",
			Extension: "webp",
			Quality:   quality,
			Effort:    6,
		}
	}
}

// MimeType returns the content type for the resolved container
func (s EncodeSpec) MimeType() string {
	return "image/" + s.Container
}
