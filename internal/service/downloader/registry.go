package downloader

import (
	"sync"

	"github.com/vertextoedge/fetchkit/internal/domain"
	"github.com/vertextoedge/fetchkit/internal/port"
)

// transferState tracks one pending, active or paused download.
// All fields are guarded by the owning Registry's mutex.
type transferState struct {
	url          string
	destination  string
	expectedSize int64

	// activeHandle and resumeToken are never both set.
	activeHandle port.DownloadHandle
	resumeToken  []byte

	// pendingPause is the handle cancelled by pause whose resume data has
	// not arrived yet.
	pendingPause port.DownloadHandle

	pauseRequested bool
	stream         *Stream
}

func (s *transferState) value(progress float64, state domain.DownloadState) domain.Download {
	return domain.Download{
		URL:         s.url,
		Destination: s.destination,
		Progress:    progress,
		State:       state,
	}
}

// owns reports whether events from h belong to this entry
func (s *transferState) owns(h port.DownloadHandle) bool {
	return h != nil && (s.activeHandle == h || s.pendingPause == h)
}

// Registry maps resource URLs to their transfer state. Critical sections
// never include network or disk I/O, so operations on different resources
// do not wait on each other.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*transferState
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*transferState)}
}

// withLock runs fn with exclusive access to the entries
func (r *Registry) withLock(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// getOrCreateLocked returns the entry for url, creating it with a fresh
// stream when missing. Parameters of an existing entry are kept.
func (r *Registry) getOrCreateLocked(url, destination string, expectedSize int64) (*transferState, bool) {
	if st, ok := r.entries[url]; ok {
		return st, false
	}
	st := &transferState{
		url:          url,
		destination:  destination,
		expectedSize: expectedSize,
	}
	st.stream = NewStream(st.value(0, domain.DownloadActive))
	r.entries[url] = st
	return st, true
}

func (r *Registry) getLocked(url string) *transferState {
	return r.entries[url]
}

// removeLocked forgets st if it is still the entry for its URL
func (r *Registry) removeLocked(st *transferState) bool {
	if cur, ok := r.entries[st.url]; ok && cur == st {
		delete(r.entries, st.url)
		return true
	}
	return false
}

// Len returns the number of tracked downloads
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Has reports whether a download for url is pending, active or paused
func (r *Registry) Has(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[url]
	return ok
}

// IsActive reports whether url has a live transport handle
func (r *Registry) IsActive(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.entries[url]
	return ok && st.activeHandle != nil
}

// HasResumeToken reports whether url is paused with resume data available
func (r *Registry) HasResumeToken(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.entries[url]
	return ok && st.resumeToken != nil
}

// URLs returns the tracked resource URLs
func (r *Registry) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	urls := make([]string, 0, len(r.entries))
	for url := range r.entries {
		urls = append(urls, url)
	}
	return urls
}
