// Package objlist implements the paged, transparently-spilling
// collection at the top of the core: ObjListData holds the serialised
// vector and its backing pages, ObjList layers attribute-list
// coordination and the page-eviction callback on top.
package objlist

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/mnohosten/laura-objstore/pkg/binstream"
	"github.com/mnohosten/laura-objstore/pkg/memorypool"
	"github.com/mnohosten/laura-objstore/pkg/page"
	"github.com/mnohosten/laura-objstore/pkg/pagestore"
)

// ordered is satisfied by any K usable with < and == directly. husky's
// T::KeyT only needs to be comparable for its hash map, but ObjListData
// additionally relies on a total order for the sorted prefix and binary
// search, so the Go element constraint asks for ordering up front.
type ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 | ~string
}

// ObjectPtr is the constraint every element type stored in an ObjList
// must satisfy through its pointer receiver: a stable, totally ordered
// key, and a BinStream encoding pair. Declared on *T (not T) because
// UnmarshalBin must mutate.
type ObjectPtr[T any, K ordered] interface {
	*T
	Key() K
	MarshalBin(bs *binstream.BinStream)
	UnmarshalBin(bs *binstream.BinStream) error
}

// MoveOp describes one data[dst] = data[src] performed by
// DeletionFinalize; ObjList replays it against every attribute list.
type MoveOp struct {
	Dst, Src int
}

// Ref is a stable handle to a position obtained from Find or Get. It is
// valid only as long as the Data it came from was never evicted and
// rehydrated in between (see IndexOf).
type Ref struct {
	idx        int
	generation uint64
}

// Data is the paged storage of one homogeneous collection: an
// in-memory vector plus the ordered pages that back it on disk. It
// knows nothing about attribute lists; ObjList layers that on top.
type Data[T any, PT ObjectPtr[T, K], K ordered] struct {
	data            []T
	delBitmap       []bool
	hashedObjs      map[K]int
	pages           []*page.Page
	sortedPrefixLen int
	numDeleted      int
	byteSize        int
	inMemory        bool
	persistedSize   int
	generation      uint64

	pageSize int
	store    *pagestore.PageStore
	pool     *memorypool.MemoryPool
	owner    page.Owner
}

// NewData returns an empty, in-memory Data backed by store and pool.
// owner is attached to every page this Data creates, and is notified
// by pkg/page when one of them is about to be evicted.
func NewData[T any, PT ObjectPtr[T, K], K ordered](store *pagestore.PageStore, pool *memorypool.MemoryPool, owner page.Owner) *Data[T, PT, K] {
	return &Data[T, PT, K]{
		hashedObjs: make(map[K]int),
		inMemory:   true,
		pageSize:   store.PageSize(),
		store:      store,
		pool:       pool,
		owner:      owner,
	}
}

// Size returns the logical element count: the vector size minus
// deleted entries, whether or not the data is currently in memory.
func (d *Data[T, PT, K]) Size() int {
	if d.inMemory {
		return len(d.data) - d.numDeleted
	}
	return d.persistedSize - d.numDeleted
}

// VectorSize returns the raw vector length, deleted entries included.
func (d *Data[T, PT, K]) VectorSize() int {
	if d.inMemory {
		return len(d.data)
	}
	return d.persistedSize
}

// SortedPrefixLen returns how many leading elements are known sorted.
func (d *Data[T, PT, K]) SortedPrefixLen() int { return d.sortedPrefixLen }

// NumDeleted returns the number of soft-deleted, not-yet-compacted
// elements.
func (d *Data[T, PT, K]) NumDeleted() int { return d.numDeleted }

// HashedSize returns the size of the unsorted-tail key index.
func (d *Data[T, PT, K]) HashedSize() int { return len(d.hashedObjs) }

// InMemory reports whether the vector currently holds live data.
func (d *Data[T, PT, K]) InMemory() bool { return d.inMemory }

// Pages returns the ordered pages backing this data on disk.
func (d *Data[T, PT, K]) Pages() []*page.Page { return d.pages }

// ByteSize returns the serialised length of the in-memory data
// (0 while evicted: the serialised form lives on pages instead).
func (d *Data[T, PT, K]) ByteSize() int { return d.byteSize }

// PagesResident reports whether every owned page is currently resident.
func (d *Data[T, PT, K]) PagesResident() bool {
	for _, p := range d.pages {
		if !p.IsResident() {
			return false
		}
	}
	return true
}

// ensureInMemory rehydrates the vector from its pages if necessary.
func (d *Data[T, PT, K]) ensureInMemory() error {
	if d.inMemory {
		return nil
	}
	return d.readDataFromDisk()
}

func (d *Data[T, PT, K]) readPagesFromDisk() error {
	if d.PagesResident() {
		return nil
	}
	if len(d.pages) > d.pool.Capacity() {
		return ErrPoolExhausted
	}
	for _, p := range d.pages {
		if !p.IsResident() {
			if _, err := d.pool.RequestPage(p.ID(), p); err != nil {
				return fmt.Errorf("objlist: read pages from disk: %w", err)
			}
		}
	}
	return nil
}

func (d *Data[T, PT, K]) readDataFromDisk() error {
	if err := d.readPagesFromDisk(); err != nil {
		return err
	}
	bs := binstream.New()
	for _, p := range d.pages {
		buf, err := p.GetBuffer()
		if err != nil {
			return fmt.Errorf("objlist: read data from disk: %w", err)
		}
		bs.Append(buf)
		p.ClearBuffer()
	}
	data, err := binstream.GetVector[T, PT](bs)
	if err != nil {
		return fmt.Errorf("objlist: decode data: %w", err)
	}
	d.data = data
	d.persistedSize = len(data)
	d.byteSize = bs.Len()
	d.inMemory = true
	d.generation++
	return nil
}

// clearDataFromMemory drops the in-memory vector after its contents
// have already been written out to pages. Invoked only from the
// eviction callback in objlist.go.
func (d *Data[T, PT, K]) clearDataFromMemory() {
	d.persistedSize = len(d.data)
	d.data = nil
	d.byteSize = 0
	d.inMemory = false
	d.generation++
}

// AddObject serialises obj, grows the page vector as needed, and
// appends it to the in-memory data. Returns the new index.
func (d *Data[T, PT, K]) AddObject(obj T) (int, error) {
	if err := d.ensureInMemory(); err != nil {
		return 0, err
	}
	scratch := binstream.New()
	PT(&obj).MarshalBin(scratch)
	d.byteSize += scratch.Len()

	for d.byteSize > len(d.pages)*d.pageSize {
		p := d.store.CreatePage()
		p.SetOwner(d.owner)
		if _, err := d.pool.RequestPage(p.ID(), p); err != nil {
			return 0, fmt.Errorf("objlist: add object: request page: %w", err)
		}
		d.pages = append(d.pages, p)
	}

	idx := len(d.data)
	d.hashedObjs[PT(&obj).Key()] = idx
	d.data = append(d.data, obj)
	d.delBitmap = append(d.delBitmap, false)
	return idx, nil
}

// findIndex assumes the data is already in memory.
func (d *Data[T, PT, K]) findIndex(key K) (int, bool) {
	if len(d.data) == 0 {
		return 0, false
	}
	lo, hi := 0, d.sortedPrefixLen-1
	for lo <= hi {
		mid := (lo + hi) / 2
		k := PT(&d.data[mid]).Key()
		switch {
		case k == key:
			return mid, true
		case k < key:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	if d.sortedPrefixLen < len(d.data) {
		if idx, ok := d.hashedObjs[key]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Find rehydrates if necessary, then looks up key: binary search over
// the sorted prefix, falling back to the unsorted-tail index.
func (d *Data[T, PT, K]) Find(key K) (PT, bool, error) {
	if err := d.ensureInMemory(); err != nil {
		return nil, false, err
	}
	idx, ok := d.findIndex(key)
	if !ok {
		return nil, false, nil
	}
	return PT(&d.data[idx]), true, nil
}

// Get returns the element at idx, rehydrating first if necessary.
func (d *Data[T, PT, K]) Get(idx int) (PT, error) {
	if err := d.ensureInMemory(); err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(d.data) {
		return nil, ErrOutOfRange
	}
	return PT(&d.data[idx]), nil
}

// MakeRef captures idx together with the current generation, so a
// later IndexOf can detect whether the data was evicted in between.
func (d *Data[T, PT, K]) MakeRef(idx int) Ref {
	return Ref{idx: idx, generation: d.generation}
}

// IndexOf validates ref against the current generation and bounds.
// It fails with ErrNotInMemory if the data was evicted (and possibly
// rehydrated) since ref was captured — husky's pointer arithmetic has
// no Go equivalent once the backing slice has been reallocated, so a
// stale Ref is rejected outright rather than silently resolved.
func (d *Data[T, PT, K]) IndexOf(ref Ref) (int, error) {
	if !d.inMemory || ref.generation != d.generation {
		return 0, ErrNotInMemory
	}
	if ref.idx < 0 || ref.idx >= len(d.data) {
		return 0, ErrOutOfRange
	}
	return ref.idx, nil
}

// IndexOfKey rehydrates if necessary and returns the index of key.
func (d *Data[T, PT, K]) IndexOfKey(key K) (int, bool, error) {
	if err := d.ensureInMemory(); err != nil {
		return 0, false, err
	}
	idx, ok := d.findIndex(key)
	return idx, ok, nil
}

func (d *Data[T, PT, K]) deleteIndex(idx int) bool {
	if d.delBitmap[idx] {
		return false
	}
	d.delBitmap[idx] = true
	d.numDeleted++
	return true
}

// DeleteByKey soft-deletes the element with the given key, if present.
// Returns whether a 0→1 transition actually happened.
func (d *Data[T, PT, K]) DeleteByKey(key K) (bool, error) {
	if err := d.ensureInMemory(); err != nil {
		return false, err
	}
	idx, ok := d.findIndex(key)
	if !ok {
		return false, nil
	}
	return d.deleteIndex(idx), nil
}

// DeleteByRef soft-deletes the element ref points to.
func (d *Data[T, PT, K]) DeleteByRef(ref Ref) (bool, error) {
	idx, err := d.IndexOf(ref)
	if err != nil {
		return false, err
	}
	return d.deleteIndex(idx), nil
}

// Sort orders data ascending by key, clears the unsorted-tail index,
// and returns the permutation applied (result[i] came from order[i])
// so the caller can replay it onto every attribute list.
func (d *Data[T, PT, K]) Sort() ([]int, error) {
	if err := d.ensureInMemory(); err != nil {
		return nil, err
	}
	if len(d.data) == 0 {
		return nil, nil
	}
	order := make([]int, len(d.data))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		return PT(&d.data[a]).Key() < PT(&d.data[b]).Key()
	})

	newData := make([]T, len(d.data))
	newBitmap := make([]bool, len(d.delBitmap))
	for i, from := range order {
		newData[i] = d.data[from]
		newBitmap[i] = d.delBitmap[from]
	}
	d.data = newData
	d.delBitmap = newBitmap
	d.hashedObjs = make(map[K]int)
	d.sortedPrefixLen = len(d.data)
	return order, nil
}

// DeletionFinalize compacts data against delBitmap in place, walking
// two indices inward from the ends, and returns the sequence of
// dst←src moves so the caller can replay them onto every attribute
// list in the same order.
func (d *Data[T, PT, K]) DeletionFinalize() ([]MoveOp, error) {
	if err := d.ensureInMemory(); err != nil {
		return nil, err
	}
	n := len(d.data)
	if n == 0 {
		d.numDeleted = 0
		return nil, nil
	}

	i := 0
	for i < n && !d.delBitmap[i] {
		i++
	}
	if i == n {
		d.numDeleted = 0
		return nil, nil
	}

	var moves []MoveOp
	j := n - 1
	for j > 0 {
		if !d.delBitmap[j] {
			d.data[i] = d.data[j]
			d.delBitmap[i] = false
			moves = append(moves, MoveOp{Dst: i, Src: j})
			i++
			for i < n && !d.delBitmap[i] {
				i++
			}
		}
		if i >= j {
			break
		}
		j--
	}

	d.data = d.data[:j]
	d.delBitmap = d.delBitmap[:j]
	d.numDeleted = 0
	for k := range d.delBitmap {
		d.delBitmap[k] = false
	}

	// The swap-compaction above does not preserve key order, so any
	// sorted prefix from before this call no longer holds: the whole
	// array becomes the unsorted tail, reindexed from scratch.
	d.sortedPrefixLen = 0
	d.hashedObjs = make(map[K]int, len(d.data))
	for idx := range d.data {
		d.hashedObjs[PT(&d.data[idx]).Key()] = idx
	}

	scratch := binstream.New()
	binstream.PutVector[T, PT](scratch, d.data)
	d.byteSize = scratch.Len()
	return moves, nil
}

// WriteToDisk re-serialises the (already finalised & sorted) in-memory
// data across this Data's pages, shedding now-unneeded trailing pages
// first, then clears the in-memory vector. Called once, by the owning
// ObjList's page-eviction callback.
func (d *Data[T, PT, K]) WriteToDisk() error {
	scratch := binstream.New()
	binstream.PutVector[T, PT](scratch, d.data)
	d.byteSize = scratch.Len()

	for len(d.pages) >= 1 && d.byteSize <= d.pageSize*(len(d.pages)-1) {
		last := d.pages[len(d.pages)-1]
		d.pages = d.pages[:len(d.pages)-1]
		if _, err := d.store.ReleasePage(last); err != nil {
			return fmt.Errorf("objlist: write to disk: shed page: %w", err)
		}
	}

	if err := d.readPagesFromDisk(); err != nil {
		return fmt.Errorf("objlist: write to disk: %w", err)
	}

	start := 0
	for _, p := range d.pages {
		p.ClearBuffer()
		sub := scratch.SubStream(start, d.pageSize)
		if err := p.Write(sub); err != nil {
			return fmt.Errorf("objlist: write to disk: %w", err)
		}
		if err := p.Flush(); err != nil {
			return fmt.Errorf("objlist: write to disk: %w", err)
		}
		start += sub.Len()
	}

	d.clearDataFromMemory()
	return nil
}

// EstimatedStorageSize samples ⌈vectorSize*rate⌉+1 distinct elements,
// serialises them, and scales the result by vectorSize/sampleCount to
// estimate the total on-disk footprint.
func (d *Data[T, PT, K]) EstimatedStorageSize(rate float64) (int, error) {
	if err := d.ensureInMemory(); err != nil {
		return 0, err
	}
	n := d.VectorSize()
	if n == 0 {
		return 0, nil
	}
	scaled := float64(n) * rate
	sampleNum := int(scaled)
	if float64(sampleNum) < scaled {
		sampleNum++
	}
	sampleNum++
	if sampleNum > n {
		sampleNum = n
	}

	seen := make(map[int]struct{}, sampleNum)
	for len(seen) < sampleNum {
		seen[rand.Intn(n)] = struct{}{}
	}

	bs := binstream.New()
	for idx := range seen {
		PT(&d.data[idx]).MarshalBin(bs)
	}
	return bs.Len() * n / sampleNum, nil
}
