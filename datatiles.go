/*
Package datatiles packs multiple raster data layers into single-image map
tiles whose pixel values can be exactly reconstructed by a client holding
only the image bytes and a small metadata descriptor.

The codec lives in the encoding package, the PNG container in tile, the
source layer model in raster and the tileset store in mbtiles. This
package ties them together: a reduction phase scans every layer to freeze
the encoding spec, then tiles are encoded in parallel against the shared
read-only spec.
*/
package datatiles

import "log"

// DataTiles orchestrates dataset encoding.
type DataTiles struct {
	logger *log.Logger
}

// New returns an orchestrator logging to logger.
func New(logger *log.Logger) *DataTiles {
	return &DataTiles{
		logger: logger,
	}
}
