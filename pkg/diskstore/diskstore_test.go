package diskstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mnohosten/laura-objstore/pkg/binstream"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page-0-1")
	ds := New(path)

	bs := binstream.New()
	bs.PutUint64(42)
	bs.PutString("hello")

	if err := ds.Write(bs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !ds.Exists() {
		t.Fatal("expected backing file to exist after Write")
	}

	got, err := ds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	n, err := got.GetUint64()
	if err != nil || n != 42 {
		t.Fatalf("GetUint64 = (%d,%v), want (42,nil)", n, err)
	}
	s, err := got.GetString()
	if err != nil || s != "hello" {
		t.Fatalf("GetString = (%q,%v), want (hello,nil)", s, err)
	}
}

func TestWriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page-0-2")
	ds := New(path)

	bs := binstream.New()
	bs.PutUint64(1)
	if err := ds.Write(bs); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file should not survive a successful Write")
	}
}

func TestRemoveNonExistentIsNotError(t *testing.T) {
	ds := New(filepath.Join(t.TempDir(), "never-written"))
	if err := ds.Remove(); err != nil {
		t.Fatalf("Remove on missing file returned error: %v", err)
	}
}

func TestExistsFalseBeforeWrite(t *testing.T) {
	ds := New(filepath.Join(t.TempDir(), "never-written"))
	if ds.Exists() {
		t.Fatal("expected Exists() false before any Write")
	}
}
