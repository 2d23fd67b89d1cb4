package model

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a path does not resolve to a cached resource.
var ErrNotFound = errors.New("resource not found")

// EventKind describes what changed in the store.
type EventKind string

const (
	EventReplaced EventKind = "replaced"
	EventPatched  EventKind = "patched"
)

// Event is delivered to subscribers after the store changes.
type Event struct {
	Kind EventKind
	Path Path
	Keys []string
}

// ChangeHandler is called after every change to the store.
type ChangeHandler func(Event)

// Subscription represents an active change subscription
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id    int
	store *Store
}

func (s *subscription) Unsubscribe() {
	s.store.unsubscribe(s.id)
}

// Store owns the cached account tree. Lookups return copies, so callers
// resolve by id on every access and never hold live nodes.
type Store struct {
	logger   *zap.Logger
	snapshot *Snapshot
	mu       sync.RWMutex

	subscribers map[int]ChangeHandler
	nextSubID   int
	subsMu      sync.RWMutex
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger:      logger.Named("store"),
		snapshot:    NewSnapshot(),
		subscribers: make(map[int]ChangeHandler),
	}
}

// Replace swaps the whole tree for a freshly fetched snapshot.
func (s *Store) Replace(snapshot *Snapshot) {
	if snapshot == nil {
		snapshot = NewSnapshot()
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.mu.Unlock()

	s.logger.Debug("Snapshot replaced",
		zap.Int("structures", len(snapshot.Structures)),
		zap.Time("fetched_at", snapshot.FetchedAt))

	s.notify(Event{Kind: EventReplaced})
}

// Structure returns a copy of the structure with the given id.
func (s *Store) Structure(id string) (*Structure, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.snapshot.Structures[id]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// Resource returns a copy of the resource at path.
func (s *Store) Resource(path Path) (*Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.lookup(path)
	if err != nil {
		return nil, false
	}
	return r.Clone(), true
}

// Child is shorthand for Resource(ChildPath(structureID, c, id)).
func (s *Store) Child(structureID string, c Collection, id string) (*Resource, bool) {
	return s.Resource(ChildPath(structureID, c, id))
}

// Snapshot returns a copy of the whole tree.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Patch merges attrs into the resource at path. Only the given keys are
// touched; the next Replace is authoritative.
func (s *Store) Patch(path Path, attrs map[string]interface{}) error {
	s.mu.Lock()
	r, err := s.lookup(path)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if r.Attributes == nil {
		r.Attributes = make(map[string]interface{})
	}
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		r.Attributes[k] = cloneValue(v)
		keys = append(keys, k)
	}
	s.mu.Unlock()

	s.logger.Debug("Resource patched",
		zap.String("path", path.String()),
		zap.Strings("keys", keys))

	s.notify(Event{Kind: EventPatched, Path: path, Keys: keys})
	return nil
}

// lookup must be called with mu held.
func (s *Store) lookup(path Path) (*Resource, error) {
	st, ok := s.snapshot.Structures[path.StructureID]
	if !ok {
		return nil, fmt.Errorf("structure %s: %w", path.StructureID, ErrNotFound)
	}
	if path.Collection == CollectionSelf {
		return st.Resource, nil
	}
	r, ok := st.Children(path.Collection)[path.ID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return r, nil
}

// Subscribe registers a handler called after every change.
func (s *Store) Subscribe(handler ChangeHandler) Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = handler
	return &subscription{id: id, store: s}
}

func (s *Store) unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	delete(s.subscribers, id)
}

func (s *Store) notify(ev Event) {
	s.subsMu.RLock()
	handlers := make([]ChangeHandler, 0, len(s.subscribers))
	for _, h := range s.subscribers {
		handlers = append(handlers, h)
	}
	s.subsMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
