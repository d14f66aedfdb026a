/*
Package encoding implements the positional-base pixel codec used to pack
several raster data layers into a single grayscale or RGB image pixel.

Each layer contributes one bounded integer code per pixel. The codes are
combined into a single value using exponential (positional-base) arithmetic:
the layer at position i occupies base^i, so a pixel carrying codes c0..cn-1
is stored as the sum of ci * base^i. The code base-1 is reserved per layer
as its local "no data" sentinel, and the stacked value 2^depth - 2 is
reserved globally for pixels where every layer is absent. A spec is
validated at construction so that no legitimate code combination can ever
collide with the global sentinel.

Stacked values fit in either 8 bits (one grayscale byte) or 24 bits (three
RGB bytes, most significant first). Alpha channels are not supported:
display pipelines apply gamma adjustment to alpha-bearing images, which
corrupts the numeric channel values.
*/
package encoding

import (
	"errors"
	"fmt"
)

// Encoding type tag. Only exponential stacking is defined.
const TypeExponential = "exponential"

// Supported channel depths.
const (
	Depth8  = 8
	Depth24 = 24
)

// Layer encoding modes.
const (
	LayerRaw     = "raw"
	LayerIndexed = "indexed"
)

var (
	// ErrUnknownValue is returned when a raw value has no index-table
	// entry and is not the layer's nodata value.
	ErrUnknownValue = errors.New("encoding: unknown raw value")

	// ErrIndexOutOfRange is returned when a layer code has no entry in
	// the layer's value table.
	ErrIndexOutOfRange = errors.New("encoding: value index out of range")

	// ErrDecodingRange is returned when a stacked value lies outside the
	// range implied by the spec.
	ErrDecodingRange = errors.New("encoding: stacked value out of range")

	// ErrByteCount is returned when a packed pixel has the wrong number
	// of bytes for the channel depth.
	ErrByteCount = errors.New("encoding: packed pixel byte count mismatch")

	// ErrChannelLayout is returned for alpha-bearing or otherwise
	// unsupported pixel layouts.
	ErrChannelLayout = errors.New("encoding: unsupported channel layout")

	// ErrEncodingType is returned when metadata declares an encoding type
	// other than exponential.
	ErrEncodingType = errors.New("encoding: unsupported encoding type")

	// ErrInconsistentMetadata is returned when the nodata value declared
	// in metadata does not match the one implied by its dtype.
	ErrInconsistentMetadata = errors.New("encoding: inconsistent metadata")

	// ErrMalformedMetadata is returned when metadata fails structural or
	// cross-field validation.
	ErrMalformedMetadata = errors.New("encoding: malformed metadata")
)

// OverflowError reports a base, channel depth and layer count whose maximum
// stacked value cannot stay below the global nodata sentinel.
type OverflowError struct {
	Base   int
	Layers int
	Depth  int
	Max    uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("encoding: base %d with %d layers needs stacked values up to %d which cannot stay below the %d-bit nodata sentinel %d",
		e.Base, e.Layers, e.Max, e.Depth, maxValue(e.Depth)-1)
}

func maxValue(depth int) uint32 {
	return 1<<uint(depth) - 1
}

// Nodata returns the reserved global nodata sentinel for a channel depth.
func Nodata(depth int) uint32 {
	return maxValue(depth) - 1
}

// Value is a decoded layer value. Valid is false when the layer has no
// data at the pixel.
type Value struct {
	Int32 int32
	Valid bool
}

// Layer describes one raster layer inside a Spec.
type Layer struct {
	id      string
	nodata  *int32
	indexed bool
	values  []int32
	index   map[int32]uint32
}

// NewRawLayer returns a layer whose values are stored as their own codes.
// Raw values must already lie in [0, base-2].
func NewRawLayer(id string, nodata *int32) *Layer {
	return &Layer{id: id, nodata: copyNodata(nodata)}
}

// NewIndexedLayer returns a layer whose values are remapped to compact
// 0-based codes through the given table. The table must not contain the
// nodata value; use a Builder to derive one from observed data.
func NewIndexedLayer(id string, nodata *int32, values []int32) *Layer {
	l := &Layer{
		id:      id,
		nodata:  copyNodata(nodata),
		indexed: true,
		values:  append([]int32(nil), values...),
		index:   make(map[int32]uint32, len(values)),
	}
	for i, v := range l.values {
		l.index[v] = uint32(i)
	}
	return l
}

func copyNodata(nodata *int32) *int32 {
	if nodata == nil {
		return nil
	}
	v := *nodata
	return &v
}

// ID returns the layer identifier.
func (l *Layer) ID() string {
	return l.id
}

// Indexed reports whether the layer uses a value table.
func (l *Layer) Indexed() bool {
	return l.indexed
}

// Values returns a copy of the layer's value table, or nil for raw layers.
func (l *Layer) Values() []int32 {
	if !l.indexed {
		return nil
	}
	return append([]int32(nil), l.values...)
}

func (l *Layer) validate(base int) error {
	if l.id == "" {
		return fmt.Errorf("%w: layer with empty id", ErrMalformedMetadata)
	}
	if !l.indexed {
		return nil
	}
	if len(l.values) > base-1 {
		return fmt.Errorf("%w: layer %q has %d values but base %d leaves room for %d",
			ErrMalformedMetadata, l.id, len(l.values), base, base-1)
	}
	seen := make(map[int32]struct{}, len(l.values))
	for _, v := range l.values {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%w: layer %q has duplicate value %d", ErrMalformedMetadata, l.id, v)
		}
		if l.nodata != nil && v == *l.nodata {
			return fmt.Errorf("%w: layer %q lists its nodata value %d in the value table",
				ErrMalformedMetadata, l.id, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// encode maps a raw value to the layer's code in [0, base-1].
func (l *Layer) encode(raw int32, base int) (uint32, error) {
	if l.nodata != nil && raw == *l.nodata {
		return uint32(base - 1), nil
	}
	if l.indexed {
		if i, ok := l.index[raw]; ok {
			return i, nil
		}
		return 0, fmt.Errorf("%w: layer %q has no entry for %d", ErrUnknownValue, l.id, raw)
	}
	if raw < 0 || int(raw) > base-2 {
		return 0, fmt.Errorf("%w: layer %q raw value %d outside [0, %d]", ErrUnknownValue, l.id, raw, base-2)
	}
	return uint32(raw), nil
}

// decode maps a layer code back to its raw value, or an invalid Value for
// the layer's local nodata sentinel.
func (l *Layer) decode(code uint32, base int) (Value, error) {
	if code == uint32(base-1) {
		return Value{}, nil
	}
	if l.indexed {
		if int(code) >= len(l.values) {
			return Value{}, fmt.Errorf("%w: layer %q code %d exceeds table of %d values",
				ErrIndexOutOfRange, l.id, code, len(l.values))
		}
		return Value{Int32: l.values[code], Valid: true}, nil
	}
	return Value{Int32: int32(code), Valid: true}, nil
}

// Spec parameterizes both directions of the codec. It is immutable once
// constructed and safe for concurrent use.
type Spec struct {
	base   int
	depth  int
	layers []*Layer

	// base^len(layers) - 1, the largest stacked value any non-all-nodata
	// code combination can produce.
	maxStacked uint32
}

// NewSpec validates and constructs an encoding spec. The maximum stacked
// value producible by the layers must be strictly less than the global
// nodata sentinel for the channel depth, otherwise an *OverflowError is
// returned.
func NewSpec(base, depth int, layers []*Layer) (*Spec, error) {
	if base < 2 {
		return nil, fmt.Errorf("%w: base %d must be at least 2", ErrMalformedMetadata, base)
	}
	if depth != Depth8 && depth != Depth24 {
		return nil, fmt.Errorf("%w: channel depth %d", ErrChannelLayout, depth)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrMalformedMetadata)
	}

	nodata := uint64(Nodata(depth))
	if uint64(base) > nodata {
		return nil, &OverflowError{Base: base, Layers: len(layers), Depth: depth, Max: uint64(base) - 1}
	}
	pow := uint64(1)
	for range layers {
		pow *= uint64(base)
		if pow > nodata {
			return nil, &OverflowError{Base: base, Layers: len(layers), Depth: depth, Max: pow - 1}
		}
	}

	ids := make(map[string]struct{}, len(layers))
	for _, l := range layers {
		if err := l.validate(base); err != nil {
			return nil, err
		}
		if _, ok := ids[l.id]; ok {
			return nil, fmt.Errorf("%w: duplicate layer id %q", ErrMalformedMetadata, l.id)
		}
		ids[l.id] = struct{}{}
	}

	return &Spec{
		base:       base,
		depth:      depth,
		layers:     layers,
		maxStacked: uint32(pow) - 1,
	}, nil
}

// Base returns the positional-encoding radix.
func (s *Spec) Base() int {
	return s.base
}

// Depth returns the channel depth, 8 or 24.
func (s *Spec) Depth() int {
	return s.depth
}

// Nodata returns the reserved global nodata sentinel.
func (s *Spec) Nodata() uint32 {
	return Nodata(s.depth)
}

// Len returns the number of layers.
func (s *Spec) Len() int {
	return len(s.layers)
}

// Layer returns the layer at position i.
func (s *Spec) Layer(i int) *Layer {
	return s.layers[i]
}

// LayerIDs returns the layer identifiers in positional order.
func (s *Spec) LayerIDs() []string {
	ids := make([]string, len(s.layers))
	for i, l := range s.layers {
		ids[i] = l.id
	}
	return ids
}

// Encode converts one raw value per layer, in positional order, into a
// single stacked pixel code.
func (s *Spec) Encode(raw []int32) (uint32, error) {
	if len(raw) != len(s.layers) {
		return 0, fmt.Errorf("encoding: got %d values for %d layers", len(raw), len(s.layers))
	}
	codes := make([]uint32, len(raw))
	for i, l := range s.layers {
		code, err := l.encode(raw[i], s.base)
		if err != nil {
			return 0, err
		}
		codes[i] = code
	}
	return s.Stack(codes)
}

// Decode converts a stacked pixel code back into one Value per layer, in
// positional order. It returns a nil slice for the global nodata sentinel.
func (s *Spec) Decode(stacked uint32) ([]Value, error) {
	codes, err := s.Unstack(stacked)
	if err != nil || codes == nil {
		return nil, err
	}
	values := make([]Value, len(codes))
	for i, l := range s.layers {
		v, err := l.decode(codes[i], s.base)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// EncodePixel encodes raw layer values straight to packed channel bytes.
func (s *Spec) EncodePixel(raw []int32) ([]byte, error) {
	stacked, err := s.Encode(raw)
	if err != nil {
		return nil, err
	}
	return PackPixel(stacked, s.depth)
}

// DecodePixel decodes packed channel bytes back to per-layer values. It
// returns a nil slice when no layer has data at the pixel.
func (s *Spec) DecodePixel(p []byte) ([]Value, error) {
	stacked, err := UnpackPixel(p, s.depth)
	if err != nil {
		return nil, err
	}
	return s.Decode(stacked)
}
