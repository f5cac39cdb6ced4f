// Package cache holds derived views, such as monthly reports, that are
// expensive to rebuild and cheap to drop on the next write.
package cache

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/store"
)

// Cache is a keyed store of derived values.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches that can drop expired items.
type Cleaner interface {
	CleanExpired() int
}

// Manager runs periodic cleanup for registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     sync.Once
	once        sync.Once
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic cleanup of all registered caches.
// Later calls are ignored.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started.Do(func() { go m.cleanup(interval) })
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanAll(); n > 0 {
				slog.Debug("Cleaned expired cache items", "component", "cache", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanAll runs one cleanup pass and returns the number of removed items.
func (m *Manager) CleanAll() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup routine started by StartCleanup.
func (m *Manager) Stop() {
	m.once.Do(func() {
		// Mark as started so a later StartCleanup does not spawn a loop.
		ran := true
		m.started.Do(func() { ran = false })
		close(m.stopCleanup)
		if ran {
			<-m.cleanupDone
		}
	})
}

// WorkspaceKey builds a cache key scoped to a workspace.
func WorkspaceKey(ws core.Workspace, parts ...string) string {
	return ws.ID + "|" + strings.Join(parts, "|")
}

// InvalidateOnWrite drops a workspace's keys whenever one of its
// collections changes. The returned func stops listening.
func InvalidateOnWrite[T any](docs store.DocumentStore, c Cache[T]) (cancel func()) {
	var cancels []func()
	for _, ws := range core.Workspaces() {
		prefix := WorkspaceKey(ws)
		for _, name := range core.Collections() {
			cancels = append(cancels, docs.Subscribe(ws.Collection(name), func(store.Change) {
				c.DeletePrefix(prefix)
			}))
		}
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}
