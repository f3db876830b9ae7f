package binstream

import "testing"

type point struct {
	X, Y int64
}

func (p *point) MarshalBin(bs *BinStream) {
	bs.PutInt64(p.X)
	bs.PutInt64(p.Y)
}

func (p *point) UnmarshalBin(bs *BinStream) error {
	x, err := bs.GetInt64()
	if err != nil {
		return err
	}
	y, err := bs.GetInt64()
	if err != nil {
		return err
	}
	p.X, p.Y = x, y
	return nil
}

func TestPrimitivesRoundTrip(t *testing.T) {
	bs := New()
	bs.PutUint64(18446744073709551615)
	bs.PutInt64(-7)
	bs.PutUint32(4242)
	bs.PutBool(true)
	bs.PutBool(false)
	bs.PutString("object-store")

	if u, err := bs.GetUint64(); err != nil || u != 18446744073709551615 {
		t.Fatalf("GetUint64 = (%d,%v)", u, err)
	}
	if i, err := bs.GetInt64(); err != nil || i != -7 {
		t.Fatalf("GetInt64 = (%d,%v)", i, err)
	}
	if u, err := bs.GetUint32(); err != nil || u != 4242 {
		t.Fatalf("GetUint32 = (%d,%v)", u, err)
	}
	if b, err := bs.GetBool(); err != nil || b != true {
		t.Fatalf("GetBool = (%v,%v)", b, err)
	}
	if b, err := bs.GetBool(); err != nil || b != false {
		t.Fatalf("GetBool = (%v,%v)", b, err)
	}
	if s, err := bs.GetString(); err != nil || s != "object-store" {
		t.Fatalf("GetString = (%q,%v)", s, err)
	}
}

func TestGetPastEndFails(t *testing.T) {
	bs := New()
	bs.PutUint32(1)
	if _, err := bs.GetUint64(); err == nil {
		t.Fatal("expected error reading past the end of the buffer")
	}
}

func TestSubStream(t *testing.T) {
	bs := New()
	bs.AppendBytes([]byte("0123456789"))

	sub := bs.SubStream(3, 4)
	if string(sub.Bytes()) != "3456" {
		t.Fatalf("SubStream(3,4) = %q, want %q", sub.Bytes(), "3456")
	}

	tail := bs.SubStream(8, 10)
	if string(tail.Bytes()) != "89" {
		t.Fatalf("SubStream(8,10) = %q, want %q (should clamp to buffer length)", tail.Bytes(), "89")
	}
}

func TestAppendLeavesSourceCursorUntouched(t *testing.T) {
	src := New()
	src.PutUint32(7)
	_, _ = src.GetUint32() // advance src's cursor

	dst := New()
	dst.Append(src)
	if dst.Len() != 4 {
		t.Fatalf("Append copied %d bytes, want 4", dst.Len())
	}
	if src.Remaining() != 0 {
		t.Fatalf("src.Remaining() after Append = %d, want 0 (cursor moved)", src.Remaining())
	}
}

func TestPutGetVectorRoundTrip(t *testing.T) {
	pts := []point{{1, 2}, {3, 4}, {5, 6}}

	bs := New()
	PutVector[point, *point](bs, pts)

	got, err := GetVector[point, *point](bs)
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if len(got) != len(pts) {
		t.Fatalf("GetVector returned %d elements, want %d", len(got), len(pts))
	}
	for i := range pts {
		if got[i] != pts[i] {
			t.Fatalf("element %d = %+v, want %+v", i, got[i], pts[i])
		}
	}
}

func TestFromBytes(t *testing.T) {
	bs := New()
	bs.PutString("round-trip")
	raw := append([]byte(nil), bs.Bytes()...)

	reread := FromBytes(raw)
	s, err := reread.GetString()
	if err != nil || s != "round-trip" {
		t.Fatalf("GetString on FromBytes = (%q,%v)", s, err)
	}
}
