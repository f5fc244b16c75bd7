// Package assets renders the PNG images that go into a wallet pass: icon, header logo and the
// stamp progress strip. Every renderer is deterministic for identical input.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"unicode/utf8"

	"tapandstamp/pkg/entities"
)

var ErrAssetGeneration = errors.New("asset generation failed")

// Pass image sizes in pixels, 1x first.
var (
	IconSizes  = []int{29, 58, 87}
	LogoSizes  = [][2]int{{160, 50}, {320, 100}}
	StripSizes = [][2]int{{312, 84}, {624, 168}, {936, 252}}
)

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: png encoding: %v", ErrAssetGeneration, err)
	}
	return buf.Bytes(), nil
}

// Icon draws a solid circle in the brand's primary color.
func Icon(branding entities.Branding, size int) ([]byte, error) {
	fill, err := svgColor(branding.PrimaryColor)
	if err != nil {
		return nil, err
	}

	half := float64(size) / 2
	svg := newSVG(size, size)
	svg.circle(half, half, half-2, fill, "", 0)

	img, err := svg.rasterize()
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

// TextLogo renders the merchant name in the primary color, used when no header logo resolves.
func TextLogo(name string, branding entities.Branding, width, height int) ([]byte, error) {
	fill, err := ParseHexColor(branding.PrimaryColor)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Loyalty"
	}

	size := float64(height) * 0.6
	if bySize := float64(width) / float64(utf8.RuneCountInString(name)) * 1.5; bySize < size {
		size = bySize
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := drawText(img, boldFace, name, size, 0, float64(height)*0.7, fill); err != nil {
		return nil, err
	}
	return encodePNG(img)
}

// ParseHexColor accepts #rgb and #rrggbb, with or without the leading hash.
func ParseHexColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: invalid color %q", ErrAssetGeneration, hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: invalid color %q", ErrAssetGeneration, hex)
	}

	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func svgColor(hex string) (string, error) {
	c, err := ParseHexColor(hex)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(float64(c.A)*opacity + 0.5)
	return c
}
