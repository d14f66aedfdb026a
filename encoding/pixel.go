package encoding

import "fmt"

// PackedBytes returns the number of bytes one packed pixel occupies at the
// given channel depth.
func PackedBytes(depth int) (int, error) {
	switch depth {
	case Depth8:
		return 1, nil
	case Depth24:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: channel depth %d", ErrChannelLayout, depth)
	}
}

// PackPixel maps a stacked value to one grayscale byte or three RGB bytes,
// most significant first.
func PackPixel(stacked uint32, depth int) ([]byte, error) {
	switch depth {
	case Depth8:
		if stacked > 0xff {
			return nil, fmt.Errorf("%w: %d does not fit in 8 bits", ErrDecodingRange, stacked)
		}
		return []byte{byte(stacked)}, nil
	case Depth24:
		if stacked > 0xffffff {
			return nil, fmt.Errorf("%w: %d does not fit in 24 bits", ErrDecodingRange, stacked)
		}
		return []byte{byte(stacked >> 16), byte(stacked >> 8), byte(stacked)}, nil
	default:
		return nil, fmt.Errorf("%w: channel depth %d", ErrChannelLayout, depth)
	}
}

// UnpackPixel is the inverse of PackPixel.
func UnpackPixel(p []byte, depth int) (uint32, error) {
	n, err := PackedBytes(depth)
	if err != nil {
		return 0, err
	}
	if len(p) != n {
		return 0, fmt.Errorf("%w: got %d bytes, channel depth %d needs %d", ErrByteCount, len(p), depth, n)
	}
	if depth == Depth8 {
		return uint32(p[0]), nil
	}
	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]), nil
}
