package platform

import (
	"sync"

	"flairbridge/internal/entity"
	"flairbridge/internal/model"
)

// Set is the live entity list, indexed by unique id and kept in creation
// order.
type Set struct {
	mu    sync.RWMutex
	byID  map[string]entity.Entity
	order []string
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{byID: make(map[string]entity.Entity)}
}

// Merge adds entities whose unique id is not yet known and returns the
// ones it added.
func (s *Set) Merge(entities []entity.Entity) []entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []entity.Entity
	for _, e := range entities {
		id := e.UniqueID()
		if _, ok := s.byID[id]; ok {
			continue
		}
		s.byID[id] = e
		s.order = append(s.order, id)
		added = append(added, e)
	}
	return added
}

// Get returns the entity with the given unique id.
func (s *Set) Get(uniqueID string) (entity.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[uniqueID]
	return e, ok
}

// All returns every entity in creation order.
func (s *Set) All() []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of entities.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Sync builds entities from the store's current snapshot and merges them
// into s, returning the ones that are new.
func (s *Set) Sync(registry *Registry, ctx *Context) ([]entity.Entity, error) {
	created, err := registry.CreateAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.Merge(created), nil
}

type structureScoped interface {
	StructureID() string
}

// NotifyOnPatch forwards every cache patch to n for each entity of the
// patched structure, so a command that changes shared structure state also
// updates the sibling entities reading it. Full replacements are announced
// by the refresh listener instead.
func (s *Set) NotifyOnPatch(store *model.Store, n entity.Notifier) model.Subscription {
	return store.Subscribe(func(ev model.Event) {
		if ev.Kind != model.EventPatched {
			return
		}
		for _, e := range s.All() {
			if scoped, ok := e.(structureScoped); ok && scoped.StructureID() == ev.Path.StructureID {
				n.EntityChanged(e)
			}
		}
	})
}
