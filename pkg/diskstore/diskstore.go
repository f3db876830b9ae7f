// Package diskstore provides a named-file byte container: write a
// BinStream to a path atomically, read the whole file back as a
// BinStream. It holds no cache and no notion of page layout — that
// belongs to pkg/page.
package diskstore

import (
	"fmt"
	"os"

	"github.com/mnohosten/laura-objstore/pkg/binstream"
)

// DiskStore binds operations to a single backing file path.
type DiskStore struct {
	path string
}

// New returns a DiskStore bound to path. The file is not created until
// the first Write.
func New(path string) *DiskStore {
	return &DiskStore{path: path}
}

// Path returns the backing file path.
func (d *DiskStore) Path() string { return d.path }

// Write persists bs to the backing file atomically: the content is
// written to a temporary sibling file first, then renamed into place,
// so a reader never observes a partially written file.
func (d *DiskStore) Write(bs *binstream.BinStream) error {
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, bs.Bytes(), 0o644); err != nil {
		return fmt.Errorf("diskstore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("diskstore: rename %s to %s: %w", tmp, d.path, err)
	}
	return nil
}

// Read loads the whole backing file into a BinStream. It is an error
// to Read a file that was never Written.
func (d *DiskStore) Read() (*binstream.BinStream, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("diskstore: read %s: %w", d.path, err)
	}
	return binstream.FromBytes(data), nil
}

// Exists reports whether the backing file is present.
func (d *DiskStore) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// Remove deletes the backing file. It is not an error to remove a file
// that does not exist.
func (d *DiskStore) Remove() error {
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("diskstore: remove %s: %w", d.path, err)
	}
	return nil
}
