package encoding

import "fmt"

// Stack combines one code per layer, each in [0, base-1], into a single
// stacked value. A pixel where every layer reports its local nodata
// sentinel is forced to the global nodata value rather than the arithmetic
// sum, so that it can never collide with a legitimate combination.
func (s *Spec) Stack(codes []uint32) (uint32, error) {
	if len(codes) != len(s.layers) {
		return 0, fmt.Errorf("encoding: got %d codes for %d layers", len(codes), len(s.layers))
	}

	sentinel := uint32(s.base - 1)
	empty := true
	for _, c := range codes {
		if c > sentinel {
			return 0, fmt.Errorf("encoding: code %d exceeds base %d", c, s.base)
		}
		if c != sentinel {
			empty = false
		}
	}
	if empty {
		return s.Nodata(), nil
	}

	var stacked, pow uint32 = 0, 1
	for _, c := range codes {
		stacked += c * pow
		pow *= uint32(s.base)
	}
	return stacked, nil
}

// Unstack splits a stacked value back into one code per layer. It returns
// a nil slice for the global nodata sentinel and ErrDecodingRange for any
// value the spec cannot have produced.
func (s *Spec) Unstack(stacked uint32) ([]uint32, error) {
	if stacked == s.Nodata() {
		return nil, nil
	}
	if stacked > s.maxStacked {
		return nil, fmt.Errorf("%w: %d exceeds maximum %d", ErrDecodingRange, stacked, s.maxStacked)
	}

	base := uint32(s.base)
	codes := make([]uint32, len(s.layers))
	for i := len(s.layers) - 1; i > 0; i-- {
		pow := uint32(1)
		for j := 0; j < i; j++ {
			pow *= base
		}
		remainder := stacked % pow
		codes[i] = (stacked - remainder) / pow
		stacked = remainder
	}
	codes[0] = stacked % base
	return codes, nil
}
