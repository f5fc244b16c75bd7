package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Vector logos are rendered at 300 dpi instead of the 72 dpi default.
const (
	svgDPI  = 300
	baseDPI = 72
)

// Decode limits. Larger rasters are refused, larger SVG renders are scaled down to maxSVGSide.
const (
	maxLogoPixels = 4096 * 4096
	maxSVGSide    = 2048
	maxSVGViewBox = 10000
)

// IsSVG sniffs vector logos by URL suffix or content.
func IsSVG(url string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(strings.SplitN(url, "?", 2)[0]), ".svg") {
		return true
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// DecodeLogo decodes a raster logo, or rasterises an SVG at elevated density.
func DecodeLogo(data []byte, isSVG bool) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty logo", ErrAssetGeneration)
	}

	if !isSVG {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding logo: %v", ErrAssetGeneration, err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxLogoPixels {
			return nil, fmt.Errorf("%w: logo is %dx%d pixels", ErrAssetGeneration, cfg.Width, cfg.Height)
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding logo: %v", ErrAssetGeneration, err)
		}
		return img, nil
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding svg logo: %v", ErrAssetGeneration, err)
	}
	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if !(vw > 0) || !(vh > 0) {
		return nil, fmt.Errorf("%w: svg logo has no viewBox", ErrAssetGeneration)
	}
	if vw > maxSVGViewBox || vh > maxSVGViewBox {
		return nil, fmt.Errorf("%w: svg viewBox %gx%g is too large", ErrAssetGeneration, vw, vh)
	}

	w := vw * svgDPI / baseDPI
	h := vh * svgDPI / baseDPI
	switch {
	case w >= h && w > maxSVGSide:
		w, h = maxSVGSide, h*maxSVGSide/w
	case h > w && h > maxSVGSide:
		w, h = w*maxSVGSide/h, maxSVGSide
	}
	return rasterizeIcon(icon, max(1, int(math.Ceil(w))), max(1, int(math.Ceil(h)))), nil
}

// HeaderLogo fits the merchant logo inside maxWidth x maxHeight, keeping its aspect ratio.
func HeaderLogo(data []byte, isSVG bool, maxWidth, maxHeight int) ([]byte, error) {
	img, err := DecodeLogo(data, isSVG)
	if err != nil {
		return nil, err
	}
	return encodePNG(fitInside(img, maxWidth, maxHeight))
}

// fitInside scales src, up or down, to the largest size that fits the box.
func fitInside(src image.Image, maxWidth, maxHeight int) *image.NRGBA {
	b := src.Bounds()
	scale := math.Min(float64(maxWidth)/float64(b.Dx()), float64(maxHeight)/float64(b.Dy()))

	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// containSquare centers src inside a transparent size x size square.
func containSquare(src image.Image, size int) *image.NRGBA {
	fitted := fitInside(src, size, size)

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	offset := image.Pt((size-fitted.Bounds().Dx())/2, (size-fitted.Bounds().Dy())/2)
	draw.Draw(dst, fitted.Bounds().Add(offset), fitted, image.Point{}, draw.Src)
	return dst
}

// fade desaturates src and scales its alpha, the look of a not-yet-earned logo stamp.
func fade(src *image.NRGBA, opacity float64) *image.NRGBA {
	dst := image.NewNRGBA(src.Bounds())
	for i := 0; i+3 < len(src.Pix); i += 4 {
		r, g, b, a := src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]
		gray := uint8(math.Round(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)))
		dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2] = gray, gray, gray
		dst.Pix[i+3] = uint8(math.Round(float64(a) * opacity))
	}
	return dst
}

// StampLogo decodes the artwork drawn inside logo-shaped stamps.
func StampLogo(data []byte, isSVG bool) (image.Image, error) {
	return DecodeLogo(data, isSVG)
}
