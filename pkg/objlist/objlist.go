package objlist

import (
	"fmt"
	"sync"

	"github.com/mnohosten/laura-objstore/pkg/binstream"
	"github.com/mnohosten/laura-objstore/pkg/memorypool"
	"github.com/mnohosten/laura-objstore/pkg/page"
	"github.com/mnohosten/laura-objstore/pkg/pagestore"
)

// ObjList is the public collection surface: an ObjListData plus a
// named map of attribute lists kept parallel to it, and a stable
// numeric id unique within its owning thread. Sort, DeletionFinalize,
// and page eviction fan out into every registered attribute list so
// the parallel arrays never drift.
type ObjList[T any, PT ObjectPtr[T, K], K ordered] struct {
	id   uint64
	data *Data[T, PT, K]

	// mu is not a cross-thread sharing mechanism — the core is
	// strictly thread-local (see pkg/workerctx) — it only guards
	// attrlist and the operations that fan out into it. The id/size
	// observers (including ByteSizeInMemory, read by pkg/memchecker)
	// do not take it.
	mu       sync.Mutex
	attrlist map[string]AttributeList
}

// New returns an empty ObjList with a thread-local monotonic id,
// backed by store and pool. id is supplied by the caller's per-thread
// context (see pkg/workerctx), mirroring husky's thread_local counter
// without relying on a package-level global.
func New[T any, PT ObjectPtr[T, K], K ordered](id uint64, store *pagestore.PageStore, pool *memorypool.MemoryPool) *ObjList[T, PT, K] {
	l := &ObjList[T, PT, K]{
		id:       id,
		attrlist: make(map[string]AttributeList),
	}
	l.data = NewData[T, PT, K](store, pool, l)
	return l
}

// ID returns this ObjList's thread-local id.
func (l *ObjList[T, PT, K]) ID() uint64 { return l.id }

// Size returns the logical element count (vector size minus deletes).
func (l *ObjList[T, PT, K]) Size() int { return l.data.Size() }

// VectorSize returns the raw backing vector length.
func (l *ObjList[T, PT, K]) VectorSize() int { return l.data.VectorSize() }

// SortedPrefixLen returns how many leading elements are known sorted.
func (l *ObjList[T, PT, K]) SortedPrefixLen() int { return l.data.SortedPrefixLen() }

// NumDeleted returns the count of soft-deleted, not-yet-compacted
// elements.
func (l *ObjList[T, PT, K]) NumDeleted() int { return l.data.NumDeleted() }

// HashedSize returns the size of the unsorted-tail key index.
func (l *ObjList[T, PT, K]) HashedSize() int { return l.data.HashedSize() }

// InMemory reports whether the backing vector currently holds data.
func (l *ObjList[T, PT, K]) InMemory() bool { return l.data.InMemory() }

// ByteSizeInMemory returns the serialised size of the in-memory data,
// 0 while evicted. Read by MemoryChecker's background sampler.
func (l *ObjList[T, PT, K]) ByteSizeInMemory() int { return l.data.ByteSize() }

// AddObject serialises and appends obj, growing backing pages as
// needed. Returns the new index.
func (l *ObjList[T, PT, K]) AddObject(obj T) (int, error) {
	return l.data.AddObject(obj)
}

// Find returns a pointer to the element with the given key, or
// (nil, false, nil) if absent.
func (l *ObjList[T, PT, K]) Find(key K) (PT, bool, error) {
	return l.data.Find(key)
}

// Get returns a pointer to the element at idx.
func (l *ObjList[T, PT, K]) Get(idx int) (PT, error) {
	return l.data.Get(idx)
}

// MakeRef captures a stable handle to idx, valid until the next
// eviction of this list's data.
func (l *ObjList[T, PT, K]) MakeRef(idx int) Ref { return l.data.MakeRef(idx) }

// IndexOf resolves ref back to an index, or ErrNotInMemory if the data
// was evicted since ref was captured.
func (l *ObjList[T, PT, K]) IndexOf(ref Ref) (int, error) { return l.data.IndexOf(ref) }

// IndexOfKey returns the index of the element with the given key.
func (l *ObjList[T, PT, K]) IndexOfKey(key K) (int, bool, error) { return l.data.IndexOfKey(key) }

// DeleteByKey soft-deletes the element with the given key.
func (l *ObjList[T, PT, K]) DeleteByKey(key K) (bool, error) { return l.data.DeleteByKey(key) }

// DeleteByRef soft-deletes the element ref points to.
func (l *ObjList[T, PT, K]) DeleteByRef(ref Ref) (bool, error) { return l.data.DeleteByRef(ref) }

// Sort orders the collection ascending by key, then fans the resulting
// permutation out to every attribute list so they stay parallel.
func (l *ObjList[T, PT, K]) Sort() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortLocked()
}

func (l *ObjList[T, PT, K]) sortLocked() error {
	order, err := l.data.Sort()
	if err != nil {
		return fmt.Errorf("objlist %d: sort: %w", l.id, err)
	}
	if order == nil {
		return nil
	}
	for _, al := range l.attrlist {
		al.Reorder(order)
	}
	return nil
}

// DeletionFinalize compacts the collection against its deletion
// bitmap, then replays the resulting moves onto every attribute list.
func (l *ObjList[T, PT, K]) DeletionFinalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deletionFinalizeLocked()
}

func (l *ObjList[T, PT, K]) deletionFinalizeLocked() error {
	moves, err := l.data.DeletionFinalize()
	if err != nil {
		return fmt.Errorf("objlist %d: deletion finalize: %w", l.id, err)
	}
	if moves == nil {
		return nil
	}
	newLen := l.data.VectorSize()
	for _, mv := range moves {
		for _, al := range l.attrlist {
			al.Move(mv.Dst, mv.Src)
		}
	}
	for _, al := range l.attrlist {
		al.Resize(newLen)
	}
	return nil
}

// EstimatedStorageSize estimates the on-disk footprint by sampling.
func (l *ObjList[T, PT, K]) EstimatedStorageSize(sampleRate float64) (int, error) {
	return l.data.EstimatedStorageSize(sampleRate)
}

// CreateAttrList registers a new named attribute list. Fails with
// ErrDuplicateName if the name is already taken.
func (l *ObjList[T, PT, K]) CreateAttrList(name string, al AttributeList) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.attrlist[name]; exists {
		return fmt.Errorf("objlist %d: create attribute list %q: %w", l.id, name, ErrDuplicateName)
	}
	al.Resize(l.data.VectorSize())
	l.attrlist[name] = al
	return nil
}

// GetAttrList returns the named attribute list. Fails with
// ErrMissingName if it was never created.
func (l *ObjList[T, PT, K]) GetAttrList(name string) (AttributeList, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	al, ok := l.attrlist[name]
	if !ok {
		return nil, fmt.Errorf("objlist %d: get attribute list %q: %w", l.id, name, ErrMissingName)
	}
	return al, nil
}

// DelAttrList removes the named attribute list. Fails with
// ErrMissingName if it does not exist.
func (l *ObjList[T, PT, K]) DelAttrList(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.attrlist[name]; !ok {
		return fmt.Errorf("objlist %d: del attribute list %q: %w", l.id, name, ErrMissingName)
	}
	delete(l.attrlist, name)
	return nil
}

// MigrateAttributes serialises element idx from every attribute list
// onto bin, in an unspecified but stable order.
func (l *ObjList[T, PT, K]) MigrateAttributes(bin *binstream.BinStream, idx int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, al := range l.attrlist {
		al.Migrate(bin, idx)
	}
}

// ProcessAttributes deserialises one element from bin into idx of
// every attribute list, in the same order MigrateAttributes used.
func (l *ObjList[T, PT, K]) ProcessAttributes(bin *binstream.BinStream, idx int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, al := range l.attrlist {
		al.ProcessBin(bin, idx)
	}
}

// OnPageEvicting implements page.Owner. It runs once per flush: the
// first page belonging to this list to be evicted while the list is
// still fully resident triggers deletion-finalize, sort, and a full
// re-serialisation across this list's own pages; subsequent calls
// during the same flush are no-ops, guarded by data_in_memory /
// pages_in_memory exactly as husky's clear_page_from_memory.
func (l *ObjList[T, PT, K]) OnPageEvicting(p *page.Page) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.data.InMemory() || !l.data.PagesResident() {
		return
	}

	ids := make([]page.ID, len(l.data.Pages()))
	for i, pg := range l.data.Pages() {
		ids[i] = pg.ID()
	}
	l.data.pool.Pin(ids...)
	defer l.data.pool.Unpin(ids...)

	// Mid-eviction failures are fatal to the running job: the core
	// performs no retries and the data may be left inconsistent.
	if err := l.deletionFinalizeLocked(); err != nil {
		panic(fmt.Sprintf("objlist %d: eviction deletion finalize: %v", l.id, err))
	}
	if err := l.sortLocked(); err != nil {
		panic(fmt.Sprintf("objlist %d: eviction sort: %v", l.id, err))
	}
	if err := l.data.WriteToDisk(); err != nil {
		panic(fmt.Sprintf("objlist %d: eviction write to disk: %v", l.id, err))
	}
}

