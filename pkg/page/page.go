// Package page implements the fixed-size, file-backed unit of
// residency that pkg/memorypool manages and pkg/objlist serialises
// collections across.
package page

import (
	"fmt"
	"path/filepath"

	"github.com/mnohosten/laura-objstore/pkg/binstream"
	"github.com/mnohosten/laura-objstore/pkg/diskstore"
)

// ID identifies a page uniquely within one process run: the owning
// thread plus a monotonic counter scoped to that thread's PageStore.
type ID struct {
	ThreadID uint32
	PageID   uint64
}

// Owner is notified before a page it owns is evicted. Implemented by
// pkg/objlist's ObjList.
type Owner interface {
	OnPageEvicting(p *Page)
}

// Page is a fixed-size byte container bound to a backing file. It is
// either resident (swapped into the memory pool) or not; while
// resident its buffer may or may not yet be loaded from disk.
//
// State machine: Fresh -> Resident(unloaded|loaded) <-> NonResident.
// The only way into Resident is SwapIn; the only way out is SwapOut.
type Page struct {
	id       ID
	capacity int
	store    *diskstore.DiskStore

	resident     bool
	bufferLoaded bool
	buffer       *binstream.BinStream
	owner        Owner
}

// New constructs a page with the given id and fixed capacity, backed by
// the file at path. The page starts non-resident; no file is created
// until the first Flush or SwapOut.
func New(id ID, capacityBytes int, path string) *Page {
	return &Page{
		id:       id,
		capacity: capacityBytes,
		store:    diskstore.New(path),
		buffer:   binstream.New(),
	}
}

// BackingPath returns the conventional backing-file path for a page
// identity: /var/tmp/page-<thread-id>-<page-id>.
func BackingPath(id ID) string {
	return filepath.Join("/var/tmp", fmt.Sprintf("page-%d-%d", id.ThreadID, id.PageID))
}

// ID returns this page's identity.
func (p *Page) ID() ID { return p.id }

// Capacity returns the fixed capacity this page was constructed with.
func (p *Page) Capacity() int { return p.capacity }

// IsResident reports whether the page is currently swapped in.
func (p *Page) IsResident() bool { return p.resident }

// SetOwner attaches or clears (nil) the owner notified on eviction.
func (p *Page) SetOwner(o Owner) { p.owner = o }

// Owner returns the currently attached owner, or nil.
func (p *Page) Owner() Owner { return p.owner }

// SwapIn marks the page resident and loads its buffer from the backing
// file, if one exists. A page with no backing file yet (never flushed)
// becomes resident with an empty buffer.
func (p *Page) SwapIn() error {
	p.resident = true
	if !p.store.Exists() {
		p.buffer = binstream.New()
		p.bufferLoaded = true
		return nil
	}
	bs, err := p.store.Read()
	if err != nil {
		return fmt.Errorf("page %v: swap in: %w", p.id, err)
	}
	p.buffer = bs
	p.bufferLoaded = true
	return nil
}

// SwapOut notifies the owner (if any), then persists the buffer to
// disk and drops it from memory, marking the page non-resident. A
// failure to write is fatal to the caller, per the core's error
// handling policy: eviction failures are not retried.
func (p *Page) SwapOut() error {
	if p.owner != nil {
		p.owner.OnPageEvicting(p)
	}
	if p.buffer != nil && p.buffer.Len() > 0 {
		if err := p.store.Write(p.buffer); err != nil {
			return fmt.Errorf("page %v: swap out: %w", p.id, err)
		}
	}
	p.buffer = binstream.New()
	p.bufferLoaded = false
	p.resident = false
	return nil
}

// Write appends bytes to the in-memory buffer. Legal only while
// resident.
func (p *Page) Write(bs *binstream.BinStream) error {
	if !p.resident {
		return fmt.Errorf("page %v: write: not resident", p.id)
	}
	p.buffer.Append(bs)
	return nil
}

// GetBuffer returns the buffer, loading it from disk first if resident
// but not yet loaded. Fails if not resident.
func (p *Page) GetBuffer() (*binstream.BinStream, error) {
	if !p.resident {
		return nil, fmt.Errorf("page %v: get buffer: not resident", p.id)
	}
	if !p.bufferLoaded {
		bs, err := p.store.Read()
		if err != nil {
			return nil, fmt.Errorf("page %v: get buffer: %w", p.id, err)
		}
		p.buffer = bs
		p.bufferLoaded = true
	}
	return p.buffer, nil
}

// ClearBuffer empties the in-memory buffer without touching residency
// or the backing file, so a fresh Write sequence can start clean.
func (p *Page) ClearBuffer() {
	p.buffer = binstream.New()
	p.bufferLoaded = false
}

// Flush writes the buffer to disk immediately. Legal only while
// resident; a no-op if the buffer is empty.
func (p *Page) Flush() error {
	if !p.resident {
		return fmt.Errorf("page %v: flush: not resident", p.id)
	}
	if p.buffer.Len() == 0 {
		return nil
	}
	if err := p.store.Write(p.buffer); err != nil {
		return fmt.Errorf("page %v: flush: %w", p.id, err)
	}
	return nil
}

// Finalize deletes the backing file, if present. Invoked only by the
// owning PageStore at teardown.
func (p *Page) Finalize() error {
	if err := p.store.Remove(); err != nil {
		return fmt.Errorf("page %v: finalize: %w", p.id, err)
	}
	return nil
}
