package wizard

import (
	"sync"
	"time"

	"chandlery/internal"
)

// UploadRegistry keeps parsed workbooks addressable by upload id for the
// stateless order endpoints. Entries expire after ttl like wizard sessions.
type UploadRegistry struct {
	mu       sync.Mutex
	entries  map[string]uploadEntry
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type uploadEntry struct {
	upload  internal.UploadResult
	addedAt time.Time
}

func NewUploadRegistry(ttl, sweepEvery time.Duration) *UploadRegistry {
	r := &UploadRegistry{
		entries: map[string]uploadEntry{},
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go r.janitor(sweepEvery)
	}
	return r
}

func (r *UploadRegistry) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictExpired(time.Now())
		}
	}
}

func (r *UploadRegistry) evictExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if now.Sub(e.addedAt) > r.ttl {
			delete(r.entries, id)
		}
	}
}

func (r *UploadRegistry) Put(u internal.UploadResult) {
	r.mu.Lock()
	r.entries[u.UploadID] = uploadEntry{upload: u, addedAt: time.Now()}
	r.mu.Unlock()
}

func (r *UploadRegistry) Get(id string) (internal.UploadResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return internal.UploadResult{}, false
	}
	return e.upload, true
}

func (r *UploadRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}
