/*
Package raster models the source data layers handed to the codec.

Reading geospatial file formats is deliberately out of scope; a source is
anything that can yield, per layer, a rectangular grid of raw numeric
values plus an optional nodata value. The in-memory Layer and Slice types
implement that contract directly and back the encode pipeline and tests.
*/
package raster

import (
	"fmt"

	"github.com/bward/datatiles/encoding"
)

// Layer is an in-memory single-band grid of raw values in row-major order.
type Layer struct {
	ID     string
	Width  int
	Height int
	Nodata *int32
	Data   []int32
}

// NewLayer returns an empty layer. When nodata is non-nil the grid starts
// filled with it.
func NewLayer(id string, width, height int, nodata *int32) *Layer {
	l := &Layer{
		ID:     id,
		Width:  width,
		Height: height,
		Nodata: nodata,
		Data:   make([]int32, width*height),
	}
	if nodata != nil {
		for i := range l.Data {
			l.Data[i] = *nodata
		}
	}
	return l
}

// At returns the raw value at (x, y).
func (l *Layer) At(x, y int) int32 {
	return l.Data[y*l.Width+x]
}

// Set stores a raw value at (x, y).
func (l *Layer) Set(x, y int, v int32) {
	l.Data[y*l.Width+x] = v
}

// Masked reports whether the cell at (x, y) holds the layer's nodata value.
func (l *Layer) Masked(x, y int) bool {
	return l.Nodata != nil && l.At(x, y) == *l.Nodata
}

// Distinct feeds every non-nodata value of the layer into b. Large layers
// can be scanned chunk by chunk with separate builders and merged.
func (l *Layer) Distinct(b *encoding.Builder) {
	b.Add(l.Data...)
}

// Reader is the contract for raster sources: per-layer grids of raw values
// in a fixed encode order.
type Reader interface {
	// Layers returns the layer IDs in positional encode order.
	Layers() []string

	// Read returns the grid for one layer.
	Read(id string) (*Layer, error)
}

// Slice is an in-memory Reader over a fixed set of layers.
type Slice []*Layer

// Layers implements Reader.
func (s Slice) Layers() []string {
	ids := make([]string, len(s))
	for i, l := range s {
		ids[i] = l.ID
	}
	return ids
}

// Read implements Reader.
func (s Slice) Read(id string) (*Layer, error) {
	for _, l := range s {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("raster: no layer %q", id)
}
