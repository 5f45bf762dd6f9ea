// Package hmr decides which clients must be told about a changed file.
package hmr

import (
	"go.trai.ch/spark/internal/core/domain"
	"go.trai.ch/spark/internal/core/ports"
	"go.trai.ch/spark/internal/engine/modgraph"
)

// Engine bubbles file changes through the module graph.
type Engine struct {
	graph       *modgraph.Store
	mapper      ports.URLMapper
	broadcaster ports.Broadcaster
	metrics     ports.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records every broadcast.
func WithMetrics(m ports.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates a new Engine.
func New(graph *modgraph.Store, mapper ports.URLMapper, broadcaster ports.Broadcaster, opts ...Option) *Engine {
	e := &Engine{
		graph:       graph,
		mapper:      mapper,
		broadcaster: broadcaster,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnFileChange notifies clients about a change to the file at path.
// Files whose module was never loaded are ignored. Non-JS files imported from
// JS are tracked under their proxy URL, so both forms are checked.
func (e *Engine) OnFileChange(path string) {
	url, ok := e.mapper.FileToURL(path)
	if !ok {
		return
	}

	visited := make(map[string]struct{})
	for _, candidate := range []string{url, url + domain.ProxySuffix} {
		if _, loaded := e.graph.GetEntry(candidate); !loaded {
			continue
		}
		e.UpdateOrBubble(candidate, visited)
	}
}

// UpdateOrBubble walks from url toward its importers until an accepting
// boundary or a root is reached. visited guards against import cycles and is
// shared across calls for the same change event.
func (e *Engine) UpdateOrBubble(url string, visited map[string]struct{}) {
	e.updateOrBubble(url, visited, false)
}

func (e *Engine) updateOrBubble(url string, visited map[string]struct{}, bubbled bool) {
	if _, seen := visited[url]; seen {
		return
	}
	visited[url] = struct{}{}

	entry, ok := e.graph.GetEntry(url)
	if !ok {
		return
	}

	if entry.IsHmrEnabled {
		if entry.IsHmrAccepted || entry.HasDependents() {
			e.broadcast(domain.NewUpdateMessage(url, bubbled))
		} else {
			e.broadcast(domain.NewRootUpdateMessage(url, bubbled))
		}
	}
	if entry.IsHmrAccepted {
		return
	}

	if entry.HasDependents() {
		e.graph.MarkForReplacement(url)
		for _, parent := range entry.Dependents {
			e.updateOrBubble(parent, visited, true)
		}
		return
	}

	// A hot-enabled root got a root update, which its clients turn into a
	// reload unless a handler accepted it at runtime.
	if !entry.IsHmrEnabled {
		e.broadcast(domain.NewReloadMessage())
	}
}

func (e *Engine) broadcast(msg domain.Message) {
	e.broadcaster.Broadcast(msg)
	if e.metrics != nil {
		e.metrics.ObserveBroadcast(string(msg.Type))
	}
}
