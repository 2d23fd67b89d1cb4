// Package platform builds host entities from the cached Flair snapshot and
// routes host commands back to them.
package platform

import (
	"flairbridge/internal/entity"
	"flairbridge/internal/model"

	"go.uber.org/zap"
)

// Context provides dependencies to platform factories.
type Context struct {
	// Deps are handed to every entity constructor.
	Deps entity.Deps

	// Snapshot is the state the entity list is derived from.
	Snapshot *model.Snapshot

	// Imperial selects Fahrenheit for structure climates.
	Imperial bool

	RoomPolicy entity.RoomPolicy

	Logger *zap.Logger
}

// NewContext creates a factory context from the current store contents.
func NewContext(deps entity.Deps, imperial bool, policy entity.RoomPolicy, logger *zap.Logger) *Context {
	return &Context{
		Deps:       deps,
		Snapshot:   deps.Store.Snapshot(),
		Imperial:   imperial,
		RoomPolicy: policy,
		Logger:     logger,
	}
}

func (c *Context) structures() []*model.Structure {
	ids := c.Snapshot.StructureIDs()
	out := make([]*model.Structure, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.Snapshot.Structures[id])
	}
	return out
}
