package utilities

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/webp"
)

// MaxImagePixels bounds width x height of an accepted image.
const MaxImagePixels = 4096 * 4096

// ValidateImage checks raw image bytes against a size limit and a format allow-list and returns the format.
// An empty allow-list accepts every decodable format.
func ValidateImage(data []byte, maxSizeInKB int, supportedTypes []string) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("image decoding failed: %w", err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return "", fmt.Errorf("image dimensions %dx%d are out of bounds", cfg.Width, cfg.Height)
	}

	size := len(data)
	maxSizeInB := maxSizeInKB * 1024
	if size > maxSizeInB {
		return "", fmt.Errorf("image size cannot be greater than %d KB", maxSizeInKB)
	}

	if len(supportedTypes) == 0 {
		return format, nil
	}

	if !ContainsString(supportedTypes, format) {
		return "", fmt.Errorf("unsupported file type %s, supported are: %s", format, strings.Join(supportedTypes, ","))
	}

	return format, nil
}
