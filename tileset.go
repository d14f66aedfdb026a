package datatiles

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb/maptile"

	"github.com/bward/datatiles/raster"
)

type jsonTileSet struct {
	Zoom  int        `json:"zoom"`
	Tiles []jsonTile `json:"tiles"`
}

type jsonTile struct {
	X      uint32          `json:"x"`
	Y      uint32          `json:"y"`
	Layers []jsonTileLayer `json:"layers"`
}

type jsonTileLayer struct {
	ID     string  `json:"id"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Nodata *int32  `json:"nodata,omitempty"`
	Data   []int32 `json:"data"`
}

// TileSet is one zoom level's worth of tiles awaiting encoding. Every tile
// carries the same layers in the same order. It implements raster.Reader
// over the whole set, so a spec can be built from it directly.
type TileSet struct {
	zoom int
	jobs []Job
}

// LoadTileSet parses and validates a JSON tile set. The document holds a
// zoom level and a list of tiles, each with its XYZ column and row plus the
// row-major grid of every layer.
func LoadTileSet(r io.Reader) (*TileSet, error) {
	var doc jsonTileSet
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("datatiles: decoding tile set: %w", err)
	}

	if doc.Zoom < 0 || doc.Zoom > 30 {
		return nil, fmt.Errorf("datatiles: zoom %d out of range", doc.Zoom)
	}
	if len(doc.Tiles) == 0 {
		return nil, fmt.Errorf("datatiles: tile set has no tiles")
	}

	ts := &TileSet{
		zoom: doc.Zoom,
		jobs: make([]Job, 0, len(doc.Tiles)),
	}

	first := doc.Tiles[0].Layers
	if len(first) == 0 {
		return nil, fmt.Errorf("datatiles: tile %d/%d/%d has no layers", doc.Zoom, doc.Tiles[0].X, doc.Tiles[0].Y)
	}

	for _, jt := range doc.Tiles {
		if max := uint32(1) << uint(doc.Zoom); jt.X >= max || jt.Y >= max {
			return nil, fmt.Errorf("datatiles: tile %d/%d/%d outside zoom level", doc.Zoom, jt.X, jt.Y)
		}
		if len(jt.Layers) != len(first) {
			return nil, fmt.Errorf("datatiles: tile %d/%d/%d has %d layers, want %d", doc.Zoom, jt.X, jt.Y, len(jt.Layers), len(first))
		}

		layers := make([]*raster.Layer, len(jt.Layers))
		for i, jl := range jt.Layers {
			if jl.ID != first[i].ID {
				return nil, fmt.Errorf("datatiles: tile %d/%d/%d layer %d is %q, want %q", doc.Zoom, jt.X, jt.Y, i, jl.ID, first[i].ID)
			}
			if !nodataEqual(jl.Nodata, first[i].Nodata) {
				return nil, fmt.Errorf("datatiles: layer %q changes its nodata value between tiles", jl.ID)
			}
			if jl.Width < 1 || jl.Height < 1 {
				return nil, fmt.Errorf("datatiles: layer %q is %dx%d", jl.ID, jl.Width, jl.Height)
			}
			if len(jl.Data) != jl.Width*jl.Height {
				return nil, fmt.Errorf("datatiles: layer %q has %d values for a %dx%d grid", jl.ID, len(jl.Data), jl.Width, jl.Height)
			}

			layers[i] = &raster.Layer{
				ID:     jl.ID,
				Width:  jl.Width,
				Height: jl.Height,
				Nodata: jl.Nodata,
				Data:   jl.Data,
			}
		}

		ts.jobs = append(ts.jobs, Job{
			Tile:   maptile.New(jt.X, jt.Y, maptile.Zoom(doc.Zoom)),
			Layers: layers,
		})
	}

	return ts, nil
}

func nodataEqual(a, b *int32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Zoom returns the zoom level shared by all tiles in the set.
func (ts *TileSet) Zoom() int {
	return ts.zoom
}

// Jobs returns one encode job per tile.
func (ts *TileSet) Jobs() []Job {
	return ts.jobs
}

// Layers implements raster.Reader.
func (ts *TileSet) Layers() []string {
	ids := make([]string, len(ts.jobs[0].Layers))
	for i, l := range ts.jobs[0].Layers {
		ids[i] = l.ID
	}
	return ids
}

// Read implements raster.Reader. The returned grid is the flat
// concatenation of the layer across every tile; only its value set matters
// to the reduction phase.
func (ts *TileSet) Read(id string) (*raster.Layer, error) {
	var (
		nodata *int32
		data   []int32
		found  bool
	)
	for _, job := range ts.jobs {
		for _, l := range job.Layers {
			if l.ID != id {
				continue
			}
			found = true
			nodata = l.Nodata
			data = append(data, l.Data...)
		}
	}
	if !found {
		return nil, fmt.Errorf("datatiles: no layer %q", id)
	}

	return &raster.Layer{
		ID:     id,
		Width:  len(data),
		Height: 1,
		Nodata: nodata,
		Data:   data,
	}, nil
}
