package assets

import (
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// svgDoc builds the small SVG documents the shape renderers need.
type svgDoc struct {
	width, height int
	body          strings.Builder
}

func newSVG(width, height int) *svgDoc {
	return &svgDoc{width: width, height: height}
}

func (d *svgDoc) circle(cx, cy, r float64, fill, stroke string, strokeWidth float64) {
	fmt.Fprintf(&d.body, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"%s/>`, cx, cy, r, fill, strokeAttrs(stroke, strokeWidth))
}

func (d *svgDoc) rect(x, y, w, h, rx float64, fill, stroke string, strokeWidth float64) {
	fmt.Fprintf(&d.body, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="%.2f" fill="%s"%s/>`,
		x, y, w, h, rx, fill, strokeAttrs(stroke, strokeWidth))
}

// checkmark draws the material "check" glyph scaled into the box at (x, y).
func (d *svgDoc) checkmark(x, y, size float64, fill string) {
	points := [][2]float64{{9, 16.17}, {4.83, 12}, {3.41, 13.41}, {9, 19}, {21, 7}, {19.59, 5.59}}
	scale := size / 24

	d.body.WriteString(`<path d="`)
	for i, p := range points {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&d.body, "%s%.2f %.2f ", cmd, x+p[0]*scale, y+p[1]*scale)
	}
	fmt.Fprintf(&d.body, `Z" fill="%s"/>`, fill)
}

func (d *svgDoc) String() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">%s</svg>`,
		d.width, d.height, d.width, d.height, d.body.String())
}

func (d *svgDoc) rasterize() (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(d.String()), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: svg: %v", ErrAssetGeneration, err)
	}
	return rasterizeIcon(icon, d.width, d.height), nil
}

func rasterizeIcon(icon *oksvg.SvgIcon, width, height int) *image.RGBA {
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)

	return img
}

func strokeAttrs(stroke string, width float64) string {
	if stroke == "" || width <= 0 {
		return ""
	}
	return fmt.Sprintf(` stroke="%s" stroke-width="%.2f"`, stroke, width)
}
