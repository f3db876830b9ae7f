// Package workerctx bundles the state a single worker thread needs to
// run the paged object-store core: its PageStore, its MemoryPool, and
// the monotonic counter used to hand out ObjList ids. husky keeps the
// equivalent of this state behind C++ thread_local statics; Go has no
// clean per-goroutine-local-storage equivalent, so it is threaded
// through explicitly instead — callers that pin one goroutine per
// worker get the same effective isolation, and tests get a fresh,
// disposable Context with no teardown ritual required.
package workerctx

import (
	"github.com/mnohosten/laura-objstore/pkg/config"
	"github.com/mnohosten/laura-objstore/pkg/evictioncache"
	"github.com/mnohosten/laura-objstore/pkg/memorypool"
	"github.com/mnohosten/laura-objstore/pkg/pagestore"
)

// Context is the per-thread state a worker needs: its own PageStore
// and MemoryPool, plus the id counter for ObjLists it creates. No two
// workers may share a Context, a Page, or an ObjList.
type Context struct {
	ThreadID uint32

	Pages *pagestore.PageStore
	Pool  *memorypool.MemoryPool

	nextObjListID uint64
}

// New constructs a Context for threadID, sized from cfg: the memory
// pool holds floor(MaximumThreadMemory/PageSize) pages, the page store
// hands out pages of PageSize bytes, eviction uses policy.
func New(threadID uint32, cfg config.Config, policy evictioncache.Policy) *Context {
	numPages := cfg.NumPages()
	return &Context{
		ThreadID: threadID,
		Pages:    pagestore.New(threadID, int(cfg.PageSize)),
		Pool:     memorypool.New(numPages, policy),
	}
}

// NextObjListID returns the next monotonic ObjList id scoped to this
// thread, mirroring husky's `static thread_local size_t s_counter`
// without resorting to a package-level global.
func (c *Context) NextObjListID() uint64 {
	id := c.nextObjListID
	c.nextObjListID++
	return id
}

// Close tears down every page this thread ever created. Intended for
// test fixtures and graceful worker shutdown; the in-flight ObjLists
// backed by this Context must not be used afterwards.
func (c *Context) Close() error {
	return c.Pages.DropAll()
}
