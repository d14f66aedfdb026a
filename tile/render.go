package tile

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/bward/datatiles/encoding"
)

const maxPaletteColors = 256

// Render writes a paletted preview PNG of one layer of g, colored through
// the given value-to-color map. Pixels where the layer has no data, or
// whose value has no color assigned, are rendered transparent. Colormaps
// with more than 255 distinct colors are reduced with a median-cut
// quantizer.
func Render(w io.Writer, g *Grid, spec *encoding.Spec, layer string, colors map[int32]color.Color) error {
	pos := -1
	for i, id := range spec.LayerIDs() {
		if id == layer {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("tile: no layer %q in spec", layer)
	}
	if spec.Depth() != g.depth {
		return fmt.Errorf("tile: grid depth %d does not match spec depth %d", g.depth, spec.Depth())
	}

	m := image.NewNRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			values, err := spec.Decode(g.At(x, y))
			if err != nil {
				return err
			}
			if values == nil || !values[pos].Valid {
				continue
			}
			c, ok := colors[values[pos].Int32]
			if !ok {
				continue
			}
			m.Set(x, y, c)
		}
	}

	palette := make(color.Palette, 1, len(colors)+1)
	palette[0] = color.NRGBA{}
	for _, c := range colors {
		palette = append(palette, c)
	}
	if len(palette) > maxPaletteColors {
		q := quantize.MedianCutQuantizer{AddTransparent: true}
		palette = q.Quantize(make(color.Palette, 0, maxPaletteColors), m)
	}

	pm := image.NewPaletted(m.Bounds(), palette)
	draw.Draw(pm, pm.Bounds(), m, image.Point{}, draw.Src)

	return png.Encode(w, pm)
}
