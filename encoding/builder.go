package encoding

import "sort"

// Builder collects the distinct raw values observed for one layer before
// its value table is frozen. It is not safe for concurrent use; scan
// chunks with separate builders and combine them with Merge.
type Builder struct {
	nodata *int32
	seen   map[int32]struct{}
}

// NewBuilder returns a builder for a layer with the given raw nodata
// value, which is never admitted to the table.
func NewBuilder(nodata *int32) *Builder {
	return &Builder{
		nodata: copyNodata(nodata),
		seen:   make(map[int32]struct{}),
	}
}

// Add records raw values.
func (b *Builder) Add(values ...int32) {
	for _, v := range values {
		if b.nodata != nil && v == *b.nodata {
			continue
		}
		b.seen[v] = struct{}{}
	}
}

// Merge folds another builder's distinct set into this one.
func (b *Builder) Merge(other *Builder) {
	for v := range other.seen {
		b.Add(v)
	}
}

// Len returns the number of distinct values collected so far.
func (b *Builder) Len() int {
	return len(b.seen)
}

// Freeze returns the immutable value table, sorted ascending. Each
// distinct value keeps a stable 0-based position from here on.
func (b *Builder) Freeze() []int32 {
	values := make([]int32, 0, len(b.seen))
	for v := range b.seen {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}

// Layer freezes the builder into an indexed layer.
func (b *Builder) Layer(id string) *Layer {
	return NewIndexedLayer(id, b.nodata, b.Freeze())
}
