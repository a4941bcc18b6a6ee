// Package index owns the process-wide binding between project names and
// their remote vector collections.
package index

import (
	"context"
	"sync"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

// Handle is the live binding between a project and its remote collection.
// It carries the embedding model and dimension needed to embed future
// queries consistently with the chunks already stored. Handles are owned by
// the Registry; callers share them and must not assume exclusive use.
type Handle struct {
	Project    string
	EmbedModel string
	Dimension  int
}

// Collection returns the remote collection name, which is the project name.
func (h *Handle) Collection() string { return h.Project }

// Registry is the single process-wide authority mapping project name to
// Handle. It is lazily populated and lives for the process lifetime.
//
// Lookup-or-create is double-checked under a per-project lock so concurrent
// first accesses to one project materialize a single remote binding, while
// unrelated projects never block each other.
type Registry struct {
	store vector.Store

	mu      sync.RWMutex
	handles map[string]*Handle

	keymu sync.Mutex
	keys  map[string]*sync.Mutex
}

// NewRegistry creates a Registry bound to the given collection store.
func NewRegistry(store vector.Store) *Registry {
	return &Registry{
		store:   store,
		handles: make(map[string]*Handle),
		keys:    make(map[string]*sync.Mutex),
	}
}

// GetHandle returns the cached handle for project, constructing and caching
// one bound to the remote collection of the same name if absent.
//
// Requesting an existing project with a different embedding model or
// dimension is rejected: the stored chunks were embedded under the original
// parameters and silently rebinding would corrupt retrieval.
func (r *Registry) GetHandle(ctx context.Context, project, embedModel string, dimension int) (*Handle, error) {
	r.mu.RLock()
	h := r.handles[project]
	r.mu.RUnlock()
	if h != nil {
		if err := validateParams(h, embedModel, dimension); err != nil {
			return nil, err
		}
		return h, nil
	}

	key := r.keyLock(project)
	key.Lock()
	defer key.Unlock()

	// Re-check under the key lock: another caller may have just built it.
	r.mu.RLock()
	h = r.handles[project]
	r.mu.RUnlock()
	if h != nil {
		if err := validateParams(h, embedModel, dimension); err != nil {
			return nil, err
		}
		return h, nil
	}

	if err := r.store.EnsureCollection(ctx, project, dimension); err != nil {
		return nil, err
	}

	h = &Handle{Project: project, EmbedModel: embedModel, Dimension: dimension}
	r.publish(project, h)
	return h, nil
}

// PutHandle unconditionally registers a handle built elsewhere (after fresh
// ingestion), replacing any prior entry for the project. In-flight
// operations holding the old handle keep their reference.
func (r *Registry) PutHandle(project string, h *Handle) {
	r.publish(project, h)
}

func (r *Registry) publish(project string, h *Handle) {
	r.mu.Lock()
	r.handles[project] = h
	r.mu.Unlock()
}

func (r *Registry) keyLock(project string) *sync.Mutex {
	r.keymu.Lock()
	defer r.keymu.Unlock()
	m, ok := r.keys[project]
	if !ok {
		m = &sync.Mutex{}
		r.keys[project] = m
	}
	return m
}

func validateParams(h *Handle, embedModel string, dimension int) error {
	if h.EmbedModel != embedModel {
		return errortypes.InvalidArgument(
			"project %q is indexed with embed model %q, requested %q", h.Project, h.EmbedModel, embedModel)
	}
	if h.Dimension != dimension {
		return errortypes.InvalidArgument(
			"project %q is indexed with dimension %d, requested %d", h.Project, h.Dimension, dimension)
	}
	return nil
}
