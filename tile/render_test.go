package tile

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bward/datatiles/encoding"
)

func renderSpec(t *testing.T) *encoding.Spec {
	t.Helper()
	nodata := int32(-9999)
	spec, err := encoding.NewSpec(8, encoding.Depth8, []*encoding.Layer{
		encoding.NewIndexedLayer("landcover", &nodata, []int32{10, 20, 30}),
		encoding.NewIndexedLayer("ownership", &nodata, []int32{1, 2}),
	})
	require.NoError(t, err)
	return spec
}

func TestRender(t *testing.T) {
	spec := renderSpec(t)

	g, err := NewGrid(4, 4, encoding.Depth8)
	require.NoError(t, err)
	g.Fill(spec.Nodata())

	// landcover 20 (code 1) over ownership 2 (code 1): 1 + 1*8.
	g.Set(1, 1, 9)
	// landcover absent, ownership 1: 7 + 0*8.
	g.Set(2, 2, 7)

	colors := map[int32]color.Color{
		10: color.NRGBA{R: 0xff, A: 0xff},
		20: color.NRGBA{G: 0xff, A: 0xff},
		30: color.NRGBA{B: 0xff, A: 0xff},
	}

	b := new(bytes.Buffer)
	require.NoError(t, Render(b, g, spec, "landcover", colors))

	m, err := png.Decode(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)

	pm, ok := m.(*image.Paletted)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 4, 4), pm.Bounds())

	// The one data pixel carries its colormap color.
	r, gc, bc, a := pm.At(1, 1).RGBA()
	assert.Equal(t, []uint32{0, 0xffff, 0, 0xffff}, []uint32{r, gc, bc, a})

	// Nodata and layer-absent pixels are transparent.
	for _, p := range []image.Point{{0, 0}, {2, 2}, {3, 3}} {
		_, _, _, a := pm.At(p.X, p.Y).RGBA()
		assert.Equal(t, uint32(0), a)
	}
}

func TestRenderUnknownLayer(t *testing.T) {
	spec := renderSpec(t)

	g, err := NewGrid(2, 2, encoding.Depth8)
	require.NoError(t, err)
	g.Fill(spec.Nodata())

	err = Render(new(bytes.Buffer), g, spec, "elevation", nil)
	assert.Error(t, err)
}

func TestRenderDepthMismatch(t *testing.T) {
	spec := renderSpec(t)

	g, err := NewGrid(2, 2, encoding.Depth24)
	require.NoError(t, err)

	err = Render(new(bytes.Buffer), g, spec, "landcover", nil)
	assert.Error(t, err)
}
