package memorypool

import (
	"path/filepath"
	"testing"

	"github.com/mnohosten/laura-objstore/pkg/evictioncache"
	"github.com/mnohosten/laura-objstore/pkg/page"
)

const testPageSize = 64

func newTestPage(t *testing.T, threadID uint32, pageID uint64) *page.Page {
	t.Helper()
	id := page.ID{ThreadID: threadID, PageID: pageID}
	return page.New(id, testPageSize, filepath.Join(t.TempDir(), "page"))
}

func TestPoolFillsThenRefusesToGrow(t *testing.T) {
	const n = 5
	m := New(n, evictioncache.LRU)

	pages := make([]*page.Page, 0, 2*n)
	for i := 0; i < n; i++ {
		p := newTestPage(t, 0, uint64(i))
		pages = append(pages, p)
		if _, err := m.RequestPage(p.ID(), p); err != nil {
			t.Fatalf("RequestPage %d: %v", i, err)
		}
		if m.NumPagesInMemory() != i+1 {
			t.Fatalf("after request %d: NumPagesInMemory = %d, want %d", i, m.NumPagesInMemory(), i+1)
		}
	}

	for i := n; i < 2*n; i++ {
		p := newTestPage(t, 0, uint64(i))
		pages = append(pages, p)
		if _, err := m.RequestPage(p.ID(), p); err != nil {
			t.Fatalf("RequestPage %d: %v", i, err)
		}
		if m.NumPagesInMemory() != n {
			t.Fatalf("after request %d: NumPagesInMemory = %d, want %d (should stay saturated)", i, m.NumPagesInMemory(), n)
		}
	}
}

func TestRequestSpaceReclaimsPages(t *testing.T) {
	const n = 5
	m := New(n, evictioncache.LRU)

	for i := 0; i < n; i++ {
		p := newTestPage(t, 0, uint64(i))
		if _, err := m.RequestPage(p.ID(), p); err != nil {
			t.Fatalf("RequestPage %d: %v", i, err)
		}
	}
	if m.NumPagesInMemory() != n {
		t.Fatalf("NumPagesInMemory = %d, want %d before reclamation", m.NumPagesInMemory(), n)
	}

	freed, err := m.RequestSpace(1)
	if err != nil {
		t.Fatalf("RequestSpace(1): %v", err)
	}
	if freed != testPageSize {
		t.Fatalf("RequestSpace(1) freed %d bytes, want %d", freed, testPageSize)
	}
	if m.NumPagesInMemory() != n-1 {
		t.Fatalf("NumPagesInMemory after RequestSpace(1) = %d, want %d", m.NumPagesInMemory(), n-1)
	}

	freed, err = m.RequestSpace(testPageSize + 1)
	if err != nil {
		t.Fatalf("RequestSpace(pageSize+1): %v", err)
	}
	if freed != 2*testPageSize {
		t.Fatalf("RequestSpace(pageSize+1) freed %d bytes, want %d", freed, 2*testPageSize)
	}
	if m.NumPagesInMemory() != n-3 {
		t.Fatalf("NumPagesInMemory after second reclamation = %d, want %d", m.NumPagesInMemory(), n-3)
	}
}

func TestRequestPageAlreadyResidentIsNoOp(t *testing.T) {
	m := New(2, evictioncache.LRU)
	p := newTestPage(t, 0, 0)
	if _, err := m.RequestPage(p.ID(), p); err != nil {
		t.Fatalf("first RequestPage: %v", err)
	}
	result, err := m.RequestPage(p.ID(), p)
	if err != nil {
		t.Fatalf("second RequestPage: %v", err)
	}
	if result != AlreadyResident {
		t.Fatalf("result = %v, want AlreadyResident", result)
	}
}

func TestPinProtectsVictimFromEviction(t *testing.T) {
	m := New(1, evictioncache.LRU)
	p0 := newTestPage(t, 0, 0)
	if _, err := m.RequestPage(p0.ID(), p0); err != nil {
		t.Fatalf("RequestPage p0: %v", err)
	}
	m.Pin(p0.ID())

	p1 := newTestPage(t, 0, 1)
	if _, err := m.RequestPage(p1.ID(), p1); err != nil {
		t.Fatalf("RequestPage p1: %v", err)
	}

	if !m.ContainsPage(p0.ID()) {
		t.Fatal("pinned page was evicted despite being over capacity")
	}
	if m.NumPagesInMemory() != 2 {
		t.Fatalf("NumPagesInMemory = %d, want 2 (pool left over capacity because sole victim is pinned)", m.NumPagesInMemory())
	}

	m.Unpin(p0.ID())
}
