// Package pagestore implements the per-thread page factory and
// recycler: stable numeric ids, reuse of released pages, bulk teardown.
package pagestore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mnohosten/laura-objstore/pkg/page"
)

// ErrNotOwned is returned by Release when the page was not created by
// this store.
var ErrNotOwned = errors.New("pagestore: page not created by this store")

// PageStore is a thread-local factory and recycler for pages. It is not
// safe to share across goroutines representing different workers; the
// mutex here only protects against incidental concurrent access within
// one worker (e.g. a background flush racing a foreground read), it is
// not a cross-thread sharing mechanism.
type PageStore struct {
	threadID uint32
	pageSize int

	mu      sync.Mutex
	byID    map[uint64]*page.Page
	free    map[uint64]*page.Page
	counter uint64
}

// New returns an empty PageStore for the given thread id, handing out
// pages of pageSize bytes each.
func New(threadID uint32, pageSize int) *PageStore {
	return &PageStore{
		threadID: threadID,
		pageSize: pageSize,
		byID:     make(map[uint64]*page.Page),
		free:     make(map[uint64]*page.Page),
	}
}

// PageSize returns the fixed page capacity this store hands out.
func (s *PageStore) PageSize() int { return s.pageSize }

// CreatePage returns a free page if one is available (reusing its id
// and backing file), otherwise allocates a new page with the next id.
func (s *PageStore) CreatePage() *page.Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.free {
		delete(s.free, id)
		return p
	}

	id := page.ID{ThreadID: s.threadID, PageID: s.counter}
	s.counter++
	p := page.New(id, s.pageSize, page.BackingPath(id))
	s.byID[id.PageID] = p
	return p
}

// ReleasePage returns a page to the free set for later reuse. It fails
// if the page was not created by this store. Releasing an
// already-free page returns (false, nil): not an error, just a no-op.
// The page's backing file is kept until DropAll, not deleted here —
// released pages retain stale bytes from their previous tenant until
// something actually overwrites them.
func (s *PageStore) ReleasePage(p *page.Page) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID().PageID]; !ok {
		return false, fmt.Errorf("pagestore: release page %v: %w", p.ID(), ErrNotOwned)
	}
	if _, ok := s.free[p.ID().PageID]; ok {
		return false, nil
	}
	p.SetOwner(nil)
	s.free[p.ID().PageID] = p
	return true, nil
}

// DropAll finalizes (deletes the backing file of) and forgets every
// page this store ever created, free or not.
func (s *PageStore) DropAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for id, p := range s.byID {
		if err := p.Finalize(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.byID, id)
	}
	s.free = make(map[uint64]*page.Page)
	s.counter = 0
	return firstErr
}

// Len returns the total number of pages this store currently tracks,
// free or allocated.
func (s *PageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
