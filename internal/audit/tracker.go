package audit

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome of a command.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeRejected    Outcome = "rejected"
	OutcomeUnsupported Outcome = "unsupported"
	OutcomeFailed      Outcome = "failed"
	OutcomeReadOnly    Outcome = "read_only"
)

// Write is one attribute update sent to Flair for a command.
type Write struct {
	ResourceType string                 `json:"resourceType"`
	ID           string                 `json:"id"`
	Attributes   map[string]interface{} `json:"attributes"`
}

// Record describes one command handled by an entity
type Record struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EntityID  string      `json:"entityId"`
	Command   string      `json:"command"`
	Value     interface{} `json:"value,omitempty"`
	Writes    []Write     `json:"writes,omitempty"`
	Outcome   Outcome     `json:"outcome"`
	Reason    string      `json:"reason,omitempty"`
}

// DefaultLimit is the number of records kept per entity.
const DefaultLimit = 20

// Tracker keeps the most recent command records for each entity
type Tracker struct {
	mu      sync.RWMutex
	records map[string][]Record
	limit   int
	now     func() time.Time
}

// NewTracker creates a tracker keeping limit records per entity.
func NewTracker(limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Tracker{
		records: make(map[string][]Record),
		limit:   limit,
		now:     time.Now,
	}
}

// Record stores rec, assigning an id and timestamp when missing.
func (t *Tracker) Record(rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	list := append(t.records[rec.EntityID], rec)
	if len(list) > t.limit {
		list = list[len(list)-t.limit:]
	}
	t.records[rec.EntityID] = list
}

// ForEntity returns the records of one entity, oldest first.
func (t *Tracker) ForEntity(entityID string) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	list := t.records[entityID]
	out := make([]Record, len(list))
	copy(out, list)
	return out
}

// All returns every record, newest first.
func (t *Tracker) All() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Record
	for _, list := range t.records {
		out = append(out, list...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
