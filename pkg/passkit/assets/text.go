package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type typeface struct {
	ttf  []byte
	once sync.Once
	font *opentype.Font
	err  error
}

var (
	boldFace   = &typeface{ttf: gobold.TTF}
	mediumFace = &typeface{ttf: gomedium.TTF}
)

func (t *typeface) parsed() (*opentype.Font, error) {
	t.once.Do(func() {
		t.font, t.err = opentype.Parse(t.ttf)
	})
	return t.font, t.err
}

// drawText draws s with its baseline starting at (x, y), size in pixels.
func drawText(dst draw.Image, tf *typeface, s string, size, x, y float64, c color.Color) error {
	f, err := tf.parsed()
	if err != nil {
		return fmt.Errorf("%w: font: %v", ErrAssetGeneration, err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return fmt.Errorf("%w: font face: %v", ErrAssetGeneration, err)
	}
	defer face.Close()

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	d.DrawString(s)

	return nil
}
