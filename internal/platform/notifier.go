package platform

import (
	"sync"

	"flairbridge/internal/entity"
)

// Multi fans entity changes out to every registered notifier. Notifiers
// can be added after entities are built, so the MQTT publisher and the
// event hub can be wired once they exist.
type Multi struct {
	mu        sync.RWMutex
	notifiers []entity.Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(notifiers ...entity.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Add registers n.
func (m *Multi) Add(n entity.Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

func (m *Multi) EntityChanged(e entity.Entity) {
	m.mu.RLock()
	notifiers := append([]entity.Notifier(nil), m.notifiers...)
	m.mu.RUnlock()

	for _, n := range notifiers {
		n.EntityChanged(e)
	}
}
