package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int32p(v int32) *int32 {
	return &v
}

// twoLayerSpec is the reference scenario: base 8, two indexed layers with
// local nodata code 7.
func twoLayerSpec(t *testing.T) *Spec {
	t.Helper()
	spec, err := NewSpec(8, Depth8, []*Layer{
		NewIndexedLayer("layer1", int32p(-9999), []int32{1, 2, 3, 4, 5}),
		NewIndexedLayer("layer2", int32p(-9999), []int32{10, 20, 30, 40, 50}),
	})
	require.NoError(t, err)
	return spec
}

func TestNewSpec(t *testing.T) {
	spec := twoLayerSpec(t)
	assert.Equal(t, 8, spec.Base())
	assert.Equal(t, Depth8, spec.Depth())
	assert.Equal(t, uint32(254), spec.Nodata())
	assert.Equal(t, []string{"layer1", "layer2"}, spec.LayerIDs())
}

func TestNewSpecRejectsOverflow(t *testing.T) {
	layers := func() []*Layer {
		return []*Layer{
			NewRawLayer("a", nil),
			NewRawLayer("b", nil),
		}
	}

	// 16^2 = 256 exceeds the 8-bit sentinel 254.
	_, err := NewSpec(16, Depth8, layers())
	var overflow *OverflowError
	require.ErrorAs(t, err, &overflow)
	assert.Equal(t, 16, overflow.Base)
	assert.Equal(t, 2, overflow.Layers)
	assert.Equal(t, uint64(255), overflow.Max)

	// 15^2 = 225 fits.
	_, err = NewSpec(15, Depth8, layers())
	assert.NoError(t, err)

	// The same combination fits easily in 24 bits.
	_, err = NewSpec(16, Depth24, layers())
	assert.NoError(t, err)

	// A single layer is bounded by the sentinel too.
	_, err = NewSpec(255, Depth8, []*Layer{NewRawLayer("a", nil)})
	require.ErrorAs(t, err, &overflow)
	_, err = NewSpec(254, Depth8, []*Layer{NewRawLayer("a", nil)})
	assert.NoError(t, err)
}

func TestNewSpecRejectsMalformedLayers(t *testing.T) {
	for _, tc := range []struct {
		name   string
		base   int
		depth  int
		layers []*Layer
	}{
		{"base below 2", 1, Depth8, []*Layer{NewRawLayer("a", nil)}},
		{"no layers", 8, Depth8, nil},
		{"empty layer id", 8, Depth8, []*Layer{NewRawLayer("", nil)}},
		{"duplicate layer ids", 8, Depth8, []*Layer{NewRawLayer("a", nil), NewRawLayer("a", nil)}},
		{"oversized value table", 4, Depth8, []*Layer{NewIndexedLayer("a", nil, []int32{1, 2, 3, 4})}},
		{"duplicate values", 8, Depth8, []*Layer{NewIndexedLayer("a", nil, []int32{1, 1})}},
		{"nodata in value table", 8, Depth8, []*Layer{NewIndexedLayer("a", int32p(2), []int32{1, 2})}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSpec(tc.base, tc.depth, tc.layers)
			assert.ErrorIs(t, err, ErrMalformedMetadata)
		})
	}

	_, err := NewSpec(8, 16, []*Layer{NewRawLayer("a", nil)})
	assert.ErrorIs(t, err, ErrChannelLayout)
}

func TestEncodeConcreteScenario(t *testing.T) {
	spec := twoLayerSpec(t)

	// layer1 = 3 (index 2), layer2 = 50 (index 4): 2 + 4*8 = 34.
	stacked, err := spec.Encode([]int32{3, 50})
	require.NoError(t, err)
	assert.Equal(t, uint32(34), stacked)

	values, err := spec.Decode(34)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, Value{Int32: 3, Valid: true}, values[0])
	assert.Equal(t, Value{Int32: 50, Valid: true}, values[1])
}

func TestEncodeGlobalNodata(t *testing.T) {
	spec := twoLayerSpec(t)

	// Both layers report their raw nodata value: the forced global
	// sentinel is emitted, never the arithmetic 7 + 7*8 = 63.
	stacked, err := spec.Encode([]int32{-9999, -9999})
	require.NoError(t, err)
	assert.Equal(t, uint32(254), stacked)

	values, err := spec.Decode(254)
	require.NoError(t, err)
	assert.Nil(t, values)

	// 63 remains a decodable two-layer result where each layer is
	// individually absent.
	values, err = spec.Decode(63)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.False(t, values[0].Valid)
	assert.False(t, values[1].Valid)
}

func TestEncodePerLayerNodataIsolation(t *testing.T) {
	spec := twoLayerSpec(t)

	stacked, err := spec.Encode([]int32{-9999, 20})
	require.NoError(t, err)

	values, err := spec.Decode(stacked)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.False(t, values[0].Valid)
	assert.Equal(t, Value{Int32: 20, Valid: true}, values[1])
}

func TestEncodeUnknownValue(t *testing.T) {
	spec := twoLayerSpec(t)

	_, err := spec.Encode([]int32{6, 10})
	assert.ErrorIs(t, err, ErrUnknownValue)

	_, err = spec.Encode([]int32{1})
	assert.Error(t, err)
}

func TestDecodeIndexOutOfRange(t *testing.T) {
	spec := twoLayerSpec(t)

	// Codes 5 and 6 sit between the five-entry value tables and the
	// local sentinel 7, so they can never be produced by Encode but
	// still survive the stacked range check.
	_, err := spec.Decode(5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// Same gap in the second layer's position: 6*8 + code 0.
	_, err = spec.Decode(6*8 + 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRawLayerRoundTrip(t *testing.T) {
	spec, err := NewSpec(10, Depth8, []*Layer{
		NewRawLayer("a", int32p(-1)),
		NewRawLayer("b", nil),
	})
	require.NoError(t, err)

	stacked, err := spec.Encode([]int32{3, 8})
	require.NoError(t, err)
	assert.Equal(t, uint32(3+8*10), stacked)

	values, err := spec.Decode(stacked)
	require.NoError(t, err)
	assert.Equal(t, []Value{{Int32: 3, Valid: true}, {Int32: 8, Valid: true}}, values)

	// Raw values must already lie in [0, base-2].
	_, err = spec.Encode([]int32{9, 0})
	assert.ErrorIs(t, err, ErrUnknownValue)
	_, err = spec.Encode([]int32{-2, 0})
	assert.ErrorIs(t, err, ErrUnknownValue)

	// The raw nodata value maps to the local sentinel.
	stacked, err = spec.Encode([]int32{-1, 5})
	require.NoError(t, err)
	values, err = spec.Decode(stacked)
	require.NoError(t, err)
	assert.False(t, values[0].Valid)
	assert.True(t, values[1].Valid)
}

func TestIndexingIdempotence(t *testing.T) {
	spec := twoLayerSpec(t)

	for i := 0; i < 2; i++ {
		stacked, err := spec.Encode([]int32{4, 30})
		require.NoError(t, err)
		assert.Equal(t, uint32(3+2*8), stacked)

		values, err := spec.Decode(stacked)
		require.NoError(t, err)
		assert.Equal(t, Value{Int32: 4, Valid: true}, values[0])
		assert.Equal(t, Value{Int32: 30, Valid: true}, values[1])
	}
}

func TestRoundTripAllCombinations(t *testing.T) {
	spec := twoLayerSpec(t)

	raws1 := []int32{1, 2, 3, 4, 5, -9999}
	raws2 := []int32{10, 20, 30, 40, 50, -9999}
	for _, r1 := range raws1 {
		for _, r2 := range raws2 {
			stacked, err := spec.Encode([]int32{r1, r2})
			require.NoError(t, err)

			values, err := spec.Decode(stacked)
			require.NoError(t, err)

			if r1 == -9999 && r2 == -9999 {
				assert.Equal(t, spec.Nodata(), stacked)
				assert.Nil(t, values)
				continue
			}

			require.Len(t, values, 2)
			if r1 == -9999 {
				assert.False(t, values[0].Valid)
			} else {
				assert.Equal(t, Value{Int32: r1, Valid: true}, values[0])
			}
			if r2 == -9999 {
				assert.False(t, values[1].Valid)
			} else {
				assert.Equal(t, Value{Int32: r2, Valid: true}, values[1])
			}
		}
	}
}

func TestPixelRoundTrip(t *testing.T) {
	spec := twoLayerSpec(t)

	p, err := spec.EncodePixel([]int32{3, 50})
	require.NoError(t, err)
	assert.Equal(t, []byte{34}, p)

	values, err := spec.DecodePixel(p)
	require.NoError(t, err)
	assert.Equal(t, Value{Int32: 3, Valid: true}, values[0])
	assert.Equal(t, Value{Int32: 50, Valid: true}, values[1])
}
