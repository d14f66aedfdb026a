package datatiles

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bward/datatiles/encoding"
)

const testTileSet = `{
	"zoom": 2,
	"tiles": [
		{
			"x": 1, "y": 3,
			"layers": [
				{"id": "landcover", "width": 2, "height": 2, "nodata": -9999, "data": [1, 2, 3, -9999]},
				{"id": "ownership", "width": 2, "height": 2, "data": [10, 20, 30, 40]}
			]
		},
		{
			"x": 2, "y": 0,
			"layers": [
				{"id": "landcover", "width": 2, "height": 2, "nodata": -9999, "data": [3, 4, 5, 1]},
				{"id": "ownership", "width": 2, "height": 2, "data": [40, 50, 10, 20]}
			]
		}
	]
}`

func TestLoadTileSet(t *testing.T) {
	set, err := LoadTileSet(strings.NewReader(testTileSet))
	require.NoError(t, err)

	assert.Equal(t, 2, set.Zoom())
	assert.Equal(t, []string{"landcover", "ownership"}, set.Layers())

	jobs := set.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, maptile.New(1, 3, 2), jobs[0].Tile)
	assert.Equal(t, maptile.New(2, 0, 2), jobs[1].Tile)
	assert.Equal(t, int32(30), jobs[0].Layers[1].At(0, 1))
}

func TestTileSetRead(t *testing.T) {
	set, err := LoadTileSet(strings.NewReader(testTileSet))
	require.NoError(t, err)

	l, err := set.Read("landcover")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, -9999, 3, 4, 5, 1}, l.Data)
	require.NotNil(t, l.Nodata)
	assert.Equal(t, int32(-9999), *l.Nodata)

	_, err = set.Read("elevation")
	assert.Error(t, err)
}

func TestTileSetBuildSpec(t *testing.T) {
	set, err := LoadTileSet(strings.NewReader(testTileSet))
	require.NoError(t, err)

	d := New(log.New(io.Discard, "", 0))
	spec, err := d.BuildSpec(set)
	require.NoError(t, err)

	// Five distinct values across both tiles, nodata excluded.
	assert.Equal(t, 6, spec.Base())
	assert.Equal(t, encoding.Depth8, spec.Depth())
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, spec.Layer(0).Values())

	for _, job := range set.Jobs() {
		_, err := EncodeTile(spec, job.Layers)
		assert.NoError(t, err)
	}
}

func TestLoadTileSetRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"truncated": `{"zoom": 2, "tiles": [`,
		"zoom":      `{"zoom": 31, "tiles": [{"x": 0, "y": 0, "layers": [{"id": "a", "width": 1, "height": 1, "data": [1]}]}]}`,
		"no tiles":  `{"zoom": 2, "tiles": []}`,
		"no layers": `{"zoom": 2, "tiles": [{"x": 0, "y": 0, "layers": []}]}`,
		"tile outside zoom": `{"zoom": 2, "tiles": [
			{"x": 4, "y": 0, "layers": [{"id": "a", "width": 1, "height": 1, "data": [1]}]}]}`,
		"layer count changes": `{"zoom": 2, "tiles": [
			{"x": 0, "y": 0, "layers": [{"id": "a", "width": 1, "height": 1, "data": [1]}]},
			{"x": 1, "y": 0, "layers": []}]}`,
		"layer order changes": `{"zoom": 2, "tiles": [
			{"x": 0, "y": 0, "layers": [
				{"id": "a", "width": 1, "height": 1, "data": [1]},
				{"id": "b", "width": 1, "height": 1, "data": [1]}]},
			{"x": 1, "y": 0, "layers": [
				{"id": "b", "width": 1, "height": 1, "data": [1]},
				{"id": "a", "width": 1, "height": 1, "data": [1]}]}]}`,
		"nodata changes": `{"zoom": 2, "tiles": [
			{"x": 0, "y": 0, "layers": [{"id": "a", "width": 1, "height": 1, "nodata": -1, "data": [1]}]},
			{"x": 1, "y": 0, "layers": [{"id": "a", "width": 1, "height": 1, "data": [1]}]}]}`,
		"short data":     `{"zoom": 2, "tiles": [{"x": 0, "y": 0, "layers": [{"id": "a", "width": 2, "height": 2, "data": [1]}]}]}`,
		"zero dimension": `{"zoom": 2, "tiles": [{"x": 0, "y": 0, "layers": [{"id": "a", "width": 0, "height": 1, "data": []}]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTileSet(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
