package encoding

import (
	"encoding/json"
	"fmt"
)

// The dtype tag is a closed set: it identifies the packed channel depth and
// must agree with the declared nodata value.
var dtypeDepth = map[string]int{
	"uint8":  Depth8,
	"uint16": Depth24,
	"uint24": Depth24,
	"uint32": Depth24,
}

func dtypeFor(depth int) string {
	if depth == Depth8 {
		return "uint8"
	}
	return "uint32"
}

type jsonSpec struct {
	Type   string      `json:"type"`
	Base   int         `json:"base"`
	DType  string      `json:"dtype"`
	Nodata uint32      `json:"nodata"`
	Layers []jsonLayer `json:"layers"`
}

type jsonLayer struct {
	ID     string  `json:"id"`
	Nodata uint32  `json:"nodata"`
	Type   string  `json:"type"`
	Values []int32 `json:"values,omitempty"`
}

// MarshalJSON serializes the spec as the metadata descriptor consumed by
// decoders.
func (s *Spec) MarshalJSON() ([]byte, error) {
	m := jsonSpec{
		Type:   TypeExponential,
		Base:   s.base,
		DType:  dtypeFor(s.depth),
		Nodata: s.Nodata(),
		Layers: make([]jsonLayer, len(s.layers)),
	}
	for i, l := range s.layers {
		jl := jsonLayer{
			ID: l.id,
			// Layer nodata in the descriptor is the local sentinel
			// code, not the source raw value.
			Nodata: uint32(s.base - 1),
			Type:   LayerRaw,
		}
		if l.indexed {
			jl.Type = LayerIndexed
			jl.Values = l.Values()
		}
		m.Layers[i] = jl
	}
	return json.Marshal(m)
}

// ParseMetadata deserializes and fully validates a metadata descriptor.
// Malformed or inconsistent descriptors are rejected before any decoding
// is attempted; there are no defaults.
func ParseMetadata(b []byte) (*Spec, error) {
	var m jsonSpec
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	if m.Type != TypeExponential {
		return nil, fmt.Errorf("%w: %q", ErrEncodingType, m.Type)
	}

	depth, ok := dtypeDepth[m.DType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown dtype %q", ErrMalformedMetadata, m.DType)
	}
	if m.Nodata != Nodata(depth) {
		return nil, fmt.Errorf("%w: nodata %d does not match dtype %q sentinel %d",
			ErrInconsistentMetadata, m.Nodata, m.DType, Nodata(depth))
	}
	if m.Base < 2 {
		return nil, fmt.Errorf("%w: base %d must be at least 2", ErrMalformedMetadata, m.Base)
	}

	layers := make([]*Layer, len(m.Layers))
	for i, jl := range m.Layers {
		if jl.Nodata != uint32(m.Base-1) {
			return nil, fmt.Errorf("%w: layer %q nodata %d is not the local sentinel %d",
				ErrMalformedMetadata, jl.ID, jl.Nodata, m.Base-1)
		}
		switch jl.Type {
		case LayerRaw:
			if len(jl.Values) != 0 {
				return nil, fmt.Errorf("%w: raw layer %q carries a value table", ErrMalformedMetadata, jl.ID)
			}
			layers[i] = NewRawLayer(jl.ID, nil)
		case LayerIndexed:
			layers[i] = NewIndexedLayer(jl.ID, nil, jl.Values)
		default:
			return nil, fmt.Errorf("%w: layer %q type %q", ErrMalformedMetadata, jl.ID, jl.Type)
		}
	}

	return NewSpec(m.Base, depth, layers)
}

// UnmarshalJSON implements json.Unmarshaler with the same validation as
// ParseMetadata.
func (s *Spec) UnmarshalJSON(b []byte) error {
	parsed, err := ParseMetadata(b)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
