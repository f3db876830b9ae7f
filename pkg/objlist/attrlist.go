package objlist

import "github.com/mnohosten/laura-objstore/pkg/binstream"

// AttributeList is a satellite array kept parallel to an ObjList's
// elements. It never appears in an object's own serialisation; Sort,
// DeletionFinalize, and any other operation that reorders or resizes
// the owning ObjList fans out into every registered AttributeList so
// parallel arrays stay parallel.
type AttributeList interface {
	// Reorder permutes the list in place: element i of the result is
	// the element that was at perm[i].
	Reorder(perm []int)
	// Move copies the element at src onto dst, in place.
	Move(dst, src int)
	// Resize truncates or grows the list to exactly n elements,
	// padding new slots with the list's configured default value.
	Resize(n int)
	// Migrate serialises the element at idx onto bs, for transport to
	// another collaborator.
	Migrate(bs *binstream.BinStream, idx int)
	// ProcessBin deserialises one element from bs into slot idx.
	ProcessBin(bs *binstream.BinStream, idx int)
}

// AttrCodec supplies the wire encoding for a SliceAttrList's element
// type, since plain value types (int, string, ...) carry no
// MarshalBin/UnmarshalBin methods of their own.
type AttrCodec[V any] struct {
	Put func(bs *binstream.BinStream, v V)
	Get func(bs *binstream.BinStream) (V, error)
}

// SliceAttrList is the concrete AttributeList used by the tests and
// available to any caller that just wants a plain parallel slice of
// scalars or small structs.
type SliceAttrList[V any] struct {
	values []V
	def    V
	codec  AttrCodec[V]
}

// NewSliceAttrList returns an empty SliceAttrList whose Resize grows
// with def and whose Migrate/ProcessBin use codec.
func NewSliceAttrList[V any](codec AttrCodec[V], def V) *SliceAttrList[V] {
	return &SliceAttrList[V]{codec: codec, def: def}
}

// Values returns the backing slice directly; callers must not retain
// it across a Reorder/Move/Resize.
func (l *SliceAttrList[V]) Values() []V { return l.values }

// Len returns the current length.
func (l *SliceAttrList[V]) Len() int { return len(l.values) }

// Append adds one value at the end, mirroring an add_object on the
// owning ObjList.
func (l *SliceAttrList[V]) Append(v V) { l.values = append(l.values, v) }

// Get returns the value at idx.
func (l *SliceAttrList[V]) Get(idx int) V { return l.values[idx] }

// Set assigns the value at idx.
func (l *SliceAttrList[V]) Set(idx int, v V) { l.values[idx] = v }

func (l *SliceAttrList[V]) Reorder(perm []int) {
	out := make([]V, len(perm))
	for i, from := range perm {
		out[i] = l.values[from]
	}
	l.values = out
}

func (l *SliceAttrList[V]) Move(dst, src int) {
	l.values[dst] = l.values[src]
}

func (l *SliceAttrList[V]) Resize(n int) {
	if n <= len(l.values) {
		l.values = l.values[:n]
		return
	}
	for len(l.values) < n {
		l.values = append(l.values, l.def)
	}
}

func (l *SliceAttrList[V]) Migrate(bs *binstream.BinStream, idx int) {
	l.codec.Put(bs, l.values[idx])
}

func (l *SliceAttrList[V]) ProcessBin(bs *binstream.BinStream, idx int) {
	v, err := l.codec.Get(bs)
	if err != nil {
		return
	}
	l.values[idx] = v
}
