// Package binstream implements the append-only byte buffer used to
// serialise objects, pages, and page ranges within a single process run.
//
// The wire format makes no cross-platform promise: integers are written
// as fixed-width little-endian values, strings and slices are prefixed
// with their length, and there is no header or checksum. A BinStream produced
// by one binary should never be read back by a different build.
package binstream

import (
	"encoding/binary"
	"fmt"
)

// BinStream is an opaque, append-only byte buffer with a read cursor.
// Writes always append; reads always advance the cursor. The zero value
// is an empty, writable stream.
type BinStream struct {
	buf []byte
	pos int
}

// New returns an empty BinStream.
func New() *BinStream {
	return &BinStream{}
}

// FromBytes wraps an existing byte slice for reading. The slice is not
// copied; callers must not mutate it afterwards.
func FromBytes(b []byte) *BinStream {
	return &BinStream{buf: b}
}

// Bytes returns the full underlying buffer, ignoring the read cursor.
func (b *BinStream) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *BinStream) Len() int { return len(b.buf) }

// Remaining returns the number of unread bytes.
func (b *BinStream) Remaining() int { return len(b.buf) - b.pos }

// Reset clears the buffer and the read cursor.
func (b *BinStream) Reset() {
	b.buf = b.buf[:0]
	b.pos = 0
}

// Append writes the raw bytes of other onto the end of b, leaving
// other's own cursor untouched.
func (b *BinStream) Append(other *BinStream) {
	b.buf = append(b.buf, other.buf...)
}

// AppendBytes writes raw bytes directly, with no length prefix.
func (b *BinStream) AppendBytes(p []byte) {
	b.buf = append(b.buf, p...)
}

// SubStream copies the raw bytes starting at byte offset start (no
// length prefix is read or written), up to maxLen bytes (fewer if the buffer is shorter). The
// returned BinStream is an independent copy with its own cursor at 0.
func (b *BinStream) SubStream(start, maxLen int) *BinStream {
	if start > len(b.buf) {
		start = len(b.buf)
	}
	end := start + maxLen
	if end > len(b.buf) {
		end = len(b.buf)
	}
	out := make([]byte, end-start)
	copy(out, b.buf[start:end])
	return &BinStream{buf: out}
}

func (b *BinStream) need(n int) error {
	if b.Remaining() < n {
		return fmt.Errorf("binstream: need %d bytes, have %d", n, b.Remaining())
	}
	return nil
}

// PutUint64 appends a fixed-width uint64.
func (b *BinStream) PutUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// GetUint64 reads a fixed-width uint64 from the cursor.
func (b *BinStream) GetUint64() (uint64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(b.buf[b.pos : b.pos+8])
	b.pos += 8
	return v, nil
}

// PutInt64 appends a fixed-width int64.
func (b *BinStream) PutInt64(v int64) { b.PutUint64(uint64(v)) }

// GetInt64 reads a fixed-width int64 from the cursor.
func (b *BinStream) GetInt64() (int64, error) {
	v, err := b.GetUint64()
	return int64(v), err
}

// PutUint32 appends a fixed-width uint32.
func (b *BinStream) PutUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// GetUint32 reads a fixed-width uint32 from the cursor.
func (b *BinStream) GetUint32() (uint32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(b.buf[b.pos : b.pos+4])
	b.pos += 4
	return v, nil
}

// PutBool appends a single byte boolean.
func (b *BinStream) PutBool(v bool) {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

// GetBool reads a single byte boolean from the cursor.
func (b *BinStream) GetBool() (bool, error) {
	if err := b.need(1); err != nil {
		return false, err
	}
	v := b.buf[b.pos] != 0
	b.pos++
	return v, nil
}

// PutBytes appends a length-prefixed (native size_t equivalent: uint64)
// byte slice.
func (b *BinStream) PutBytes(p []byte) {
	b.PutUint64(uint64(len(p)))
	b.buf = append(b.buf, p...)
}

// GetBytes reads a length-prefixed byte slice from the cursor.
func (b *BinStream) GetBytes() ([]byte, error) {
	n, err := b.GetUint64()
	if err != nil {
		return nil, err
	}
	if err := b.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.buf[b.pos:b.pos+int(n)])
	b.pos += int(n)
	return out, nil
}

// PutString appends a length-prefixed string.
func (b *BinStream) PutString(s string) { b.PutBytes([]byte(s)) }

// GetString reads a length-prefixed string from the cursor.
func (b *BinStream) GetString() (string, error) {
	p, err := b.GetBytes()
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// Marshaler is implemented by types with a custom BinStream encoding.
type Marshaler interface {
	MarshalBin(bs *BinStream)
}

// Unmarshaler is implemented by types with a custom BinStream decoding.
// It mutates the receiver, so it is always implemented on a pointer type.
type Unmarshaler interface {
	UnmarshalBin(bs *BinStream) error
}

// PutVector appends a length-prefixed vector, marshaling each element
// through its pointer receiver (symmetric with GetVector).
func PutVector[T any, PT interface {
	*T
	Marshaler
}](bs *BinStream, v []T) {
	bs.PutUint64(uint64(len(v)))
	for i := range v {
		PT(&v[i]).MarshalBin(bs)
	}
}

// GetVector reads a length-prefixed vector, unmarshaling each
// zero-valued element in place through its pointer receiver.
func GetVector[T any, PT interface {
	*T
	Unmarshaler
}](bs *BinStream) ([]T, error) {
	n, err := bs.GetUint64()
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		if err := PT(&out[i]).UnmarshalBin(bs); err != nil {
			return nil, fmt.Errorf("binstream: decode element %d: %w", i, err)
		}
	}
	return out, nil
}
