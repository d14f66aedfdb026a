package datatiles

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb/maptile"

	"github.com/bward/datatiles/encoding"
	"github.com/bward/datatiles/mbtiles"
	"github.com/bward/datatiles/raster"
	"github.com/bward/datatiles/tile"
)

// BuildSpec runs the reduction phase: every layer is scanned for its
// distinct values, the value tables are frozen and the smallest channel
// depth that can hold the stacked codes is chosen. The returned spec is
// immutable and may be shared by any number of encode workers.
func (d *DataTiles) BuildSpec(r raster.Reader) (*encoding.Spec, error) {
	ids := r.Layers()

	layers := make([]*encoding.Layer, 0, len(ids))
	max := 0
	for _, id := range ids {
		l, err := r.Read(id)
		if err != nil {
			return nil, err
		}

		b := encoding.NewBuilder(l.Nodata)
		l.Distinct(b)
		if b.Len() > max {
			max = b.Len()
		}
		layers = append(layers, b.Layer(id))
	}

	// Indexes run up to max-1 and base-1 is reserved as the sentinel.
	base := max + 1
	if base < 2 {
		base = 2
	}

	spec, err := encoding.NewSpec(base, encoding.Depth8, layers)
	var overflow *encoding.OverflowError
	if errors.As(err, &overflow) {
		spec, err = encoding.NewSpec(base, encoding.Depth24, layers)
	}
	return spec, err
}

// EncodeTile encodes one tile's worth of layer grids, aligned with the
// spec's layer order, into a grid of stacked pixel codes.
func EncodeTile(spec *encoding.Spec, layers []*raster.Layer) (*tile.Grid, error) {
	if len(layers) != spec.Len() {
		return nil, fmt.Errorf("datatiles: got %d layers, spec has %d", len(layers), spec.Len())
	}

	width, height := layers[0].Width, layers[0].Height
	for i, l := range layers {
		if l.ID != spec.Layer(i).ID() {
			return nil, fmt.Errorf("datatiles: layer %d is %q, spec has %q", i, l.ID, spec.Layer(i).ID())
		}
		if l.Width != width || l.Height != height {
			return nil, fmt.Errorf("datatiles: layer %q is %dx%d, want %dx%d", l.ID, l.Width, l.Height, width, height)
		}
	}

	g, err := tile.NewGrid(width, height, spec.Depth())
	if err != nil {
		return nil, err
	}

	raw := make([]int32, len(layers))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for i, l := range layers {
				raw[i] = l.At(x, y)
			}
			code, err := spec.Encode(raw)
			if err != nil {
				return nil, err
			}
			g.Set(x, y, code)
		}
	}
	return g, nil
}

// Job is one tile to encode: per-layer grids covering the tile's extent,
// aligned with the spec's layer order. Partitioning a dataset into jobs
// belongs to the surrounding tiling system.
type Job struct {
	Tile   maptile.Tile
	Layers []*raster.Layer
}

type result struct {
	tile maptile.Tile
	data []byte
}

func (d *DataTiles) encodeWorker(ctx context.Context, wg *sync.WaitGroup, spec *encoding.Spec, jobs <-chan Job, out chan<- result) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer wg.Done()
		for job := range jobs {
			g, err := EncodeTile(spec, job.Layers)
			if err != nil {
				// One bad tile must not sink the batch.
				d.logger.Printf("tile %d/%d/%d: %v\n", job.Tile.Z, job.Tile.X, job.Tile.Y, err)
				continue
			}

			// Tiles where no layer has data anywhere are not
			// worth storing.
			if g.Uniform(spec.Nodata()) {
				continue
			}

			b := new(bytes.Buffer)
			if err := tile.Encode(b, g); err != nil {
				errc <- err
				return
			}

			select {
			case out <- result{tile: job.Tile, data: b.Bytes()}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()
	return errc
}

func (d *DataTiles) writeWorker(ctx context.Context, w *mbtiles.Writer, in <-chan result) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for r := range in {
			if err := w.WriteTile(r.tile, r.data); err != nil {
				errc <- err
				for range in {
				}
				return
			}
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}
		}
	}()
	return errc
}

// Encode drains jobs across the given number of workers, sharing the
// read-only spec, and stores the finished PNG tiles through a single
// writer goroutine. Per-tile encode failures are logged and skipped;
// storage failures abort the pipeline.
func (d *DataTiles) Encode(ctx context.Context, spec *encoding.Spec, jobs <-chan Job, w *mbtiles.Writer, workers int) error {
	if workers < 1 {
		workers = 1
	}

	results := make(chan result)

	var wg sync.WaitGroup
	wg.Add(workers)

	errcList := make([]<-chan error, 0, workers+1)
	for i := 0; i < workers; i++ {
		errcList = append(errcList, d.encodeWorker(ctx, &wg, spec, jobs, results))
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	errcList = append(errcList, d.writeWorker(ctx, w, results))

	return waitForPipeline(errcList...)
}

// EncodeAll is a convenience wrapper around Encode for a fixed job list.
func (d *DataTiles) EncodeAll(ctx context.Context, spec *encoding.Spec, jobs []Job, w *mbtiles.Writer, workers int) error {
	in := make(chan Job)
	go func() {
		defer close(in)
		for _, job := range jobs {
			select {
			case in <- job:
			case <-ctx.Done():
				return
			}
		}
	}()
	return d.Encode(ctx, spec, in, w, workers)
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
