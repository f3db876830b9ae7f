// Package memorypool implements the per-thread page residency
// controller: an eviction cache keyed by page id, orchestrating
// swap-in / swap-out with each page's owning collection.
package memorypool

import (
	"fmt"

	"github.com/mnohosten/laura-objstore/pkg/evictioncache"
	"github.com/mnohosten/laura-objstore/pkg/page"
)

// RequestResult describes what RequestPage actually did.
type RequestResult int

const (
	// AlreadyResident means the page was already in the pool; nothing
	// was swapped.
	AlreadyResident RequestResult = iota
	// BroughtIn means the page was swapped in, possibly displacing
	// another page.
	BroughtIn
)

// MemoryPool owns one EvictionCache of resident pages, sized to
// maxThreadMem / pageSize pages, and is the only component allowed to
// call Page.SwapIn / Page.SwapOut.
type MemoryPool struct {
	cache *evictioncache.Cache[page.ID, *page.Page]
	// pinned holds page ids that must not be chosen as an eviction
	// victim right now, because they belong to an ObjListData that is
	// mid-flush (see spec's re-entrancy hazard: eviction of one page
	// must not cascade into evicting a sibling page of the same
	// collection while it is still being written out).
	pinned map[page.ID]struct{}
}

// New returns a MemoryPool sized for numPages resident pages, using the
// given eviction policy.
func New(numPages int, policy evictioncache.Policy) *MemoryPool {
	return &MemoryPool{
		cache:  evictioncache.New[page.ID, *page.Page](numPages, policy),
		pinned: make(map[page.ID]struct{}),
	}
}

// Capacity returns the number of pages this pool can hold resident at
// once.
func (m *MemoryPool) Capacity() int { return m.cache.Capacity() }

// NumPagesInMemory returns how many pages are currently resident.
func (m *MemoryPool) NumPagesInMemory() int { return m.cache.Len() }

// ContainsPage reports whether key is currently resident in this pool.
func (m *MemoryPool) ContainsPage(key page.ID) bool { return m.cache.Contains(key) }

// ResidentPages returns the ids of all currently resident pages.
func (m *MemoryPool) ResidentPages() []page.ID { return m.cache.Keys() }

// Pin marks ids as ineligible to be chosen as an eviction victim until
// Unpin is called. Used by an in-flight eviction to protect the
// remaining pages of the collection it is flushing.
func (m *MemoryPool) Pin(ids ...page.ID) {
	for _, id := range ids {
		m.pinned[id] = struct{}{}
	}
}

// Unpin clears a pin set previously installed by Pin.
func (m *MemoryPool) Unpin(ids ...page.ID) {
	for _, id := range ids {
		delete(m.pinned, id)
	}
}

// RequestPage brings page p (identified by key) into memory. If it is
// already resident, nothing happens and AlreadyResident is returned.
// Otherwise the two-peek protocol runs: the current victim is sampled
// before and after inserting p; if a different page was displaced, that
// page is swapped out, then p itself is swapped in. Pinned pages are
// never selected, by either peek or the cache's own internal capacity
// eviction.
func (m *MemoryPool) RequestPage(key page.ID, p *page.Page) (RequestResult, error) {
	if m.cache.Contains(key) {
		return AlreadyResident, nil
	}

	beforeKey, beforePage, beforeOK := m.cache.PeekVictimExcluding(m.pinned)
	m.cache.PutExcluding(key, p, m.pinned)
	afterKey, _, afterOK := m.cache.PeekVictimExcluding(m.pinned)

	if beforeOK && (!afterOK || beforeKey != afterKey) {
		if !m.cache.Contains(beforeKey) {
			if err := beforePage.SwapOut(); err != nil {
				return BroughtIn, fmt.Errorf("memorypool: evicting %v: %w", beforeKey, err)
			}
		}
	}

	if err := p.SwapIn(); err != nil {
		return BroughtIn, fmt.Errorf("memorypool: swap in %v: %w", key, err)
	}
	return BroughtIn, nil
}

// RequestSpace repeatedly evicts the current victim until at least
// bytesRequired bytes have been freed, or no unpinned victim remains.
// It returns the total bytes actually freed.
func (m *MemoryPool) RequestSpace(bytesRequired int64) (int64, error) {
	var freed int64
	for freed < bytesRequired {
		_, p, ok := m.cache.PeekVictimExcluding(m.pinned)
		if !ok {
			break
		}
		if err := p.SwapOut(); err != nil {
			return freed, fmt.Errorf("memorypool: request space: %w", err)
		}
		freed += int64(p.Capacity())
		m.cache.PopVictimExcluding(m.pinned)
	}
	return freed, nil
}
