package tile

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/bward/datatiles/encoding"
)

type encoder struct {
	w io.Writer
}

func (e *encoder) encodeGray(g *Grid) error {
	m := image.NewGray(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			code := g.At(x, y)
			if code > 0xff {
				return fmt.Errorf("%w: %d does not fit in 8 bits", encoding.ErrDecodingRange, code)
			}
			m.Pix[y*m.Stride+x] = byte(code)
		}
	}
	return png.Encode(e.w, m)
}

func (e *encoder) encodeRGB(g *Grid) error {
	m := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			code := g.At(x, y)
			if code > 0xffffff {
				return fmt.Errorf("%w: %d does not fit in 24 bits", encoding.ErrDecodingRange, code)
			}
			i := y*m.Stride + x*4
			m.Pix[i+0] = byte(code >> 16)
			m.Pix[i+1] = byte(code >> 8)
			m.Pix[i+2] = byte(code)
			m.Pix[i+3] = 0xff
		}
	}
	// The image is fully opaque so the PNG encoder emits truecolor
	// without an alpha channel.
	return png.Encode(e.w, m)
}

// Encode writes the grid g to w as a PNG tile.
func Encode(w io.Writer, g *Grid) error {
	e := encoder{w: w}
	if g.depth == encoding.Depth8 {
		return e.encodeGray(g)
	}
	return e.encodeRGB(g)
}
