// Package memchecker implements the one cross-thread component of the
// core: a per-process registry of live ObjLists, sampled periodically
// by a background goroutine. Every other piece of the core is strictly
// thread-local (see pkg/workerctx); MemoryChecker is the sole reader of
// aggregates across threads, and it does so only under its own mutex.
package memchecker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOutOfRange is returned for a thread id outside [0, numLocalWorkers).
var ErrOutOfRange = errors.New("memchecker: thread id out of range")

// ObjListHandle is the slice of ObjList any generic instantiation
// exposes to the checker: its current in-memory footprint. Satisfied
// by *objlist.ObjList[T, PT, K] without either package importing the
// other.
type ObjListHandle interface {
	ByteSizeInMemory() int
}

// MemoryChecker holds, for each local worker id, the set of live
// ObjLists and the last-sampled byte count. It is a per-process
// singleton by convention (callers construct one with New and share
// it), not by package-level global — consistent with the rest of the
// core avoiding ambient state.
type MemoryChecker struct {
	mu            sync.Mutex
	sleepDuration time.Duration
	objlists      []map[ObjListHandle]struct{}
	usage         []int64
	updateHandler func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New returns a MemoryChecker sized for numLocalWorkers threads, whose
// background sampler (once Serve is called) sleeps sleepDuration
// between samples.
func New(numLocalWorkers int, sleepDuration time.Duration) *MemoryChecker {
	m := &MemoryChecker{
		sleepDuration: sleepDuration,
		objlists:      make([]map[ObjListHandle]struct{}, numLocalWorkers),
		usage:         make([]int64, numLocalWorkers),
	}
	for i := range m.objlists {
		m.objlists[i] = make(map[ObjListHandle]struct{})
	}
	return m
}

// Register adds an ObjList to thread tid's live set.
func (m *MemoryChecker) Register(tid uint32, ol ObjListHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(tid) >= len(m.objlists) {
		return fmt.Errorf("memchecker: register thread %d: %w", tid, ErrOutOfRange)
	}
	m.objlists[tid][ol] = struct{}{}
	return nil
}

// Unregister removes an ObjList from thread tid's live set.
func (m *MemoryChecker) Unregister(tid uint32, ol ObjListHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(tid) >= len(m.objlists) {
		return fmt.Errorf("memchecker: unregister thread %d: %w", tid, ErrOutOfRange)
	}
	delete(m.objlists[tid], ol)
	return nil
}

// MemoryUsageByObjListOnThread sums ByteSizeInMemory over every ObjList
// currently registered to tid.
func (m *MemoryChecker) MemoryUsageByObjListOnThread(tid uint32) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(tid) >= len(m.objlists) {
		return 0, fmt.Errorf("memchecker: memory usage thread %d: %w", tid, ErrOutOfRange)
	}
	var total int64
	for ol := range m.objlists[tid] {
		total += int64(ol.ByteSizeInMemory())
	}
	return total, nil
}

// MemInfo returns the last-sampled per-thread usage vector directly;
// callers must not mutate the returned slice.
func (m *MemoryChecker) MemInfo() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// RegisterUpdateHandler installs fn to be called after every sample.
func (m *MemoryChecker) RegisterUpdateHandler(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateHandler = fn
}

// Serve starts the background sampler goroutine. Safe to call only
// once per MemoryChecker.
func (m *MemoryChecker) Serve() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop cancels the sampler and waits for it to exit. Safe to call more
// than once; only the first call has effect.
func (m *MemoryChecker) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
	})
}

func (m *MemoryChecker) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sleepDuration)
	defer ticker.Stop()

	for {
		m.update()
		m.mu.Lock()
		handler := m.updateHandler
		m.mu.Unlock()
		if handler != nil {
			handler()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *MemoryChecker) update() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tid := range m.objlists {
		var total int64
		for ol := range m.objlists[tid] {
			total += int64(ol.ByteSizeInMemory())
		}
		m.usage[tid] = total
	}
}
