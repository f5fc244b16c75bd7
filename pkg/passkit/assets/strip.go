package assets

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strconv"

	"tapandstamp/pkg/entities"
)

const (
	emptyLogoOpacity = 0.15
	numberOpacity    = 0.6
	minStampGap      = 2
)

type Platform string

const (
	PlatformApple  Platform = "apple"
	PlatformGoogle Platform = "google"
)

// stripLayout places rewardGoal stamp slots in one or two rows inside the visible centre of the strip.
type stripLayout struct {
	cols, rows   int
	stampSize    int
	startX       int
	startY       int
	gapX, gapY   int
	numberFontPx float64
}

func newStripLayout(rewardGoal, width, height int) stripLayout {
	l := stripLayout{cols: (rewardGoal + 1) / 2}
	l.rows = 1
	if rewardGoal > l.cols {
		l.rows = 2
	}

	// wallet crops the strip edges on phones
	safeMarginX := int(math.Round(float64(width) * 0.18))
	paddingY := int(math.Round(float64(height) * 0.02))

	rowHeight := float64(height-paddingY*2) / float64(l.rows)
	l.stampSize = int(math.Floor(rowHeight * 0.95))

	safeWidth := width - safeMarginX*2
	if fit := (safeWidth - (l.cols-1)*minStampGap) / l.cols; fit < l.stampSize {
		l.stampSize = max(1, fit)
	}

	if l.cols > 1 {
		l.gapX = (safeWidth - l.stampSize*l.cols) / (l.cols - 1)
	}
	if l.rows > 1 {
		l.gapY = (height - paddingY*2 - l.stampSize*l.rows) / (l.rows - 1)
	}

	l.startX = safeMarginX
	l.startY = paddingY
	l.numberFontPx = math.Round(float64(l.stampSize) * 0.15)
	return l
}

func (l stripLayout) origin(i int) (int, int) {
	row, col := i/l.cols, i%l.cols
	return l.startX + col*(l.stampSize+l.gapX), l.startY + row*(l.stampSize+l.gapY)
}

// Strip renders stamp progress. A nil logo with the logo shape falls back to circles.
func Strip(branding entities.Branding, stampCount, rewardGoal, width, height int, logo image.Image) ([]byte, error) {
	if rewardGoal <= 0 {
		return nil, fmt.Errorf("%w: reward goal %d", ErrAssetGeneration, rewardGoal)
	}

	label, err := ParseHexColor(branding.LabelColor)
	if err != nil {
		return nil, err
	}

	layout := newStripLayout(rewardGoal, width, height)

	var img *image.RGBA
	numberInset := 4.0
	if branding.Stamp.Shape == entities.StampShapeLogo && logo != nil {
		img = logoStamps(layout, stampCount, rewardGoal, width, height, logo)
		numberInset = 3
	} else {
		if img, err = shapeStamps(branding, layout, stampCount, rewardGoal, width, height); err != nil {
			return nil, err
		}
	}

	numberColor := withOpacity(label, numberOpacity)
	for i := 0; i < rewardGoal; i++ {
		x, y := layout.origin(i)
		if err := drawText(img, mediumFace, strconv.Itoa(i+1), layout.numberFontPx,
			float64(x)+numberInset, float64(y)+layout.numberFontPx+2, numberColor); err != nil {
			return nil, err
		}
	}

	return encodePNG(img)
}

func shapeStamps(branding entities.Branding, l stripLayout, stampCount, rewardGoal, width, height int) (*image.RGBA, error) {
	stamp := branding.Stamp

	filled, err := svgColor(stamp.FilledColor)
	if err != nil {
		return nil, err
	}
	empty, err := svgColor(stamp.EmptyColor)
	if err != nil {
		return nil, err
	}
	outline, err := svgColor(stamp.OutlineColor)
	if err != nil {
		return nil, err
	}
	check, err := svgColor(branding.LabelColor)
	if err != nil {
		return nil, err
	}

	size := float64(l.stampSize)
	svg := newSVG(width, height)
	for i := 0; i < rewardGoal; i++ {
		ix, iy := l.origin(i)
		x, y := float64(ix), float64(iy)
		isFilled := i < stampCount

		fill := empty
		if isFilled {
			fill = filled
		}

		if stamp.Shape == entities.StampShapeSquare {
			svg.rect(x, y, size, size, 4, fill, outline, 2)
		} else {
			svg.circle(x+size/2, y+size/2, size/2-2, fill, outline, 2)
		}

		if isFilled {
			checkSize := size * 0.4
			svg.checkmark(x+size/2-checkSize/2, y+size/2-checkSize/2, checkSize, check)
		}
	}

	return svg.rasterize()
}

func logoStamps(l stripLayout, stampCount, rewardGoal, width, height int, logo image.Image) *image.RGBA {
	filled := containSquare(logo, l.stampSize)
	empty := fade(filled, emptyLogoOpacity)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < rewardGoal; i++ {
		x, y := l.origin(i)
		src := empty
		if i < stampCount {
			src = filled
		}
		draw.Draw(img, src.Bounds().Add(image.Pt(x, y)), src, image.Point{}, draw.Over)
	}
	return img
}

type StripOptions struct {
	Branding entities.Branding
	Count    int
	Platform Platform
	Logo     image.Image
}

type StripResult struct {
	Width  int
	Height int
	MIME   string
	Data   []byte
}

// RenderStampStrip renders the strip at the size each wallet platform displays it.
func RenderStampStrip(opts StripOptions) (*StripResult, error) {
	width, height := StripSizes[1][0], StripSizes[1][1]
	if opts.Platform == PlatformGoogle {
		width, height = 1032, 336
	}

	data, err := Strip(opts.Branding, opts.Count, opts.Branding.Stamp.Total, width, height, opts.Logo)
	if err != nil {
		return nil, err
	}

	return &StripResult{Width: width, Height: height, MIME: "image/png", Data: data}, nil
}
