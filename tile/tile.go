/*
Package tile implements the image container for packed data tiles.

A tile is a fixed-size grid of stacked pixel codes produced by the encoding
package, written as a PNG: 8-bit grayscale for codes up to one byte, or
24-bit RGB with the most significant byte in the red channel. Alpha-bearing
and paletted images are rejected on read since their channel values cannot
be trusted to round-trip through display pipelines.

Tile dimensions are a property of the surrounding tiling system, commonly
256 by 256; the codec itself places no constraint on them.
*/
package tile

import (
	"fmt"

	"github.com/bward/datatiles/encoding"
)

// DefaultSize is the conventional tile edge length in pixels.
const DefaultSize = 256

// Grid is a rectangular grid of stacked pixel codes at a fixed channel
// depth. The zero value is not usable; use NewGrid.
type Grid struct {
	width  int
	height int
	depth  int
	pix    []uint32
}

// NewGrid returns a grid of the given dimensions with every pixel zero.
func NewGrid(width, height, depth int) (*Grid, error) {
	if _, err := encoding.PackedBytes(depth); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tile: invalid dimensions %dx%d", width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		depth:  depth,
		pix:    make([]uint32, width*height),
	}, nil
}

// Width returns the grid width in pixels.
func (g *Grid) Width() int {
	return g.width
}

// Height returns the grid height in pixels.
func (g *Grid) Height() int {
	return g.height
}

// Depth returns the channel depth, 8 or 24.
func (g *Grid) Depth() int {
	return g.depth
}

// At returns the stacked code at (x, y).
func (g *Grid) At(x, y int) uint32 {
	return g.pix[y*g.width+x]
}

// Set stores a stacked code at (x, y).
func (g *Grid) Set(x, y int, code uint32) {
	g.pix[y*g.width+x] = code
}

// Fill sets every pixel to the given code.
func (g *Grid) Fill(code uint32) {
	for i := range g.pix {
		g.pix[i] = code
	}
}

// Uniform reports whether every pixel holds the given code. Tiles that are
// uniformly the global nodata sentinel are typically not worth storing.
func (g *Grid) Uniform(code uint32) bool {
	for _, p := range g.pix {
		if p != code {
			return false
		}
	}
	return true
}
