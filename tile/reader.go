package tile

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/bward/datatiles/encoding"
)

type decoder struct {
	grid *Grid
}

func (d *decoder) decodeGray(m *image.Gray) error {
	b := m.Bounds()
	g, err := NewGrid(b.Dx(), b.Dy(), encoding.Depth8)
	if err != nil {
		return err
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			g.Set(x, y, uint32(m.Pix[y*m.Stride+x]))
		}
	}
	d.grid = g
	return nil
}

func (d *decoder) decodeRGB(m *image.RGBA) error {
	b := m.Bounds()
	g, err := NewGrid(b.Dx(), b.Dy(), encoding.Depth24)
	if err != nil {
		return err
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			i := y*m.Stride + x*4
			g.Set(x, y, uint32(m.Pix[i+0])<<16|uint32(m.Pix[i+1])<<8|uint32(m.Pix[i+2]))
		}
	}
	d.grid = g
	return nil
}

// Decode reads a PNG tile from r and returns its grid of stacked codes.
// Only 8-bit grayscale and 24-bit truecolor images are accepted; anything
// carrying an alpha channel, a palette or 16-bit samples fails with the
// codec's channel layout error.
func Decode(r io.Reader) (*Grid, error) {
	m, err := png.Decode(r)
	if err != nil {
		return nil, err
	}

	var d decoder
	switch m := m.(type) {
	case *image.Gray:
		err = d.decodeGray(m)
	case *image.RGBA:
		if !m.Opaque() {
			return nil, fmt.Errorf("%w: image carries alpha", encoding.ErrChannelLayout)
		}
		err = d.decodeRGB(m)
	case *image.NRGBA:
		return nil, fmt.Errorf("%w: image carries an alpha channel", encoding.ErrChannelLayout)
	default:
		return nil, fmt.Errorf("%w: %T", encoding.ErrChannelLayout, m)
	}
	if err != nil {
		return nil, err
	}
	return d.grid, nil
}

// DecodeConfig returns the dimensions and channel depth of a PNG tile
// without decoding the pixels.
func DecodeConfig(r io.Reader) (width, height, depth int, err error) {
	cfg, err := png.DecodeConfig(r)
	if err != nil {
		return 0, 0, 0, err
	}
	switch cfg.ColorModel {
	case color.GrayModel:
		depth = encoding.Depth8
	case color.RGBAModel:
		depth = encoding.Depth24
	default:
		return 0, 0, 0, fmt.Errorf("%w: %v", encoding.ErrChannelLayout, cfg.ColorModel)
	}
	return cfg.Width, cfg.Height, depth, nil
}
