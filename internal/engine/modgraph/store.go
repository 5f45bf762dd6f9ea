// Package modgraph stores the import relationships of served modules.
package modgraph

import (
	"slices"
	"sync"

	"go.trai.ch/spark/internal/core/domain"
)

type set map[string]struct{}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

type entry struct {
	dependencies set
	dependents   set
	accepted     bool
	enabled      bool
	replace      bool
}

func newEntry() *entry {
	return &entry{
		dependencies: make(set),
		dependents:   make(set),
	}
}

// Store owns every ModuleEntry, keyed by URL.
// All mutations happen under a single lock, so readers never observe a
// half-replaced dependency set.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// SetEntry replaces the dependency set and hot update flags of url in one step.
// Back-references from the previous dependencies are removed before the new
// ones are installed. Unseen dependencies get placeholder entries.
// The dependents of url are preserved.
func (s *Store) SetEntry(url string, dependencies []string, hmrEnabled, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.getOrCreate(url)
	for dep := range e.dependencies {
		if d, ok := s.entries[dep]; ok {
			delete(d.dependents, url)
		}
	}

	e.dependencies = make(set, len(dependencies))
	for _, dep := range dependencies {
		e.dependencies[dep] = struct{}{}
		s.getOrCreate(dep).dependents[url] = struct{}{}
	}
	e.enabled = hmrEnabled
	e.accepted = accepted
}

// GetEntry returns a snapshot of the entry for url.
// A false result means the module was never loaded.
func (s *Store) GetEntry(url string) (domain.ModuleEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[url]
	if !ok {
		return domain.ModuleEntry{}, false
	}
	return domain.ModuleEntry{
		URL:              url,
		Dependencies:     e.dependencies.sorted(),
		Dependents:       e.dependents.sorted(),
		IsHmrAccepted:    e.accepted,
		IsHmrEnabled:     e.enabled,
		NeedsReplacement: e.replace,
	}, true
}

// MarkForReplacement flags url so the next hot fetch of an importer busts its cache.
// It never propagates to other entries.
func (s *Store) MarkForReplacement(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[url]; ok {
		e.replace = true
	}
}

// ClearReplacement resets the replacement flag and reports whether it was set.
func (s *Store) ClearReplacement(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[url]
	if !ok || !e.replace {
		return false
	}
	e.replace = false
	return true
}

// SetAccepted records whether url handles its own hot updates.
// URLs the graph has never seen are ignored.
func (s *Store) SetAccepted(url string, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[url]; ok {
		e.accepted = accepted
	}
}

// Reset drops the whole graph.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
}

// Len returns the number of entries, placeholders included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// URLs returns every known URL in sorted order.
func (s *Store) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.entries))
	for url := range s.entries {
		out = append(out, url)
	}
	slices.Sort(out)
	return out
}

func (s *Store) getOrCreate(url string) *entry {
	e, ok := s.entries[url]
	if !ok {
		e = newEntry()
		s.entries[url] = e
	}
	return e
}
