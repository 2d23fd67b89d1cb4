package platform

import (
	"fmt"
	"sort"
	"sync"

	"flairbridge/internal/entity"

	"go.uber.org/zap"
)

// Priority constants for platform registration.
// Higher priority values override lower priority platforms with the same name.
const (
	PriorityDefault  = 0
	PriorityOverride = 100
)

// Factory builds the entities of one platform from a context.
type Factory func(ctx *Context) ([]entity.Entity, error)

// Info describes a registered platform.
type Info struct {
	// Name is the unique identifier for the platform.
	Name string

	Description string

	// Priority decides which registration wins for the same name.
	Priority int

	Factory Factory

	// Order specifies the creation order. Lower values are created first.
	// Default is 50.
	Order int
}

// Registry manages platform registration and entity creation.
type Registry struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	platforms map[string]Info
	order     []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:    logger.Named("platform"),
		platforms: make(map[string]Info),
		order:     make([]string, 0),
	}
}

// NewDefaultRegistry registers the climate, select and sensor platforms.
func NewDefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, info := range []Info{
		{Name: string(entity.PlatformClimate), Description: "Structure, room and HVAC unit climates", Factory: ClimateFactory, Order: 10},
		{Name: string(entity.PlatformSelect), Description: "Structure and puck settings", Factory: SelectFactory, Order: 20},
		{Name: string(entity.PlatformSensor), Description: "Puck, vent and hold sensors", Factory: SensorFactory, Order: 30},
	} {
		// Built-in registrations are always valid.
		_ = r.Register(info)
	}
	return r
}

// Register adds a platform to the registry.
// If a platform with the same name already exists, the one with higher
// priority wins. If priorities are equal, the later registration wins.
func (r *Registry) Register(info Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.Name == "" {
		return fmt.Errorf("platform name cannot be empty")
	}

	if info.Factory == nil {
		return fmt.Errorf("platform %s: factory cannot be nil", info.Name)
	}

	if info.Order == 0 {
		info.Order = 50
	}

	existing, exists := r.platforms[info.Name]
	if exists {
		if info.Priority < existing.Priority {
			r.logger.Info("Platform registration skipped",
				zap.String("platform", info.Name),
				zap.Int("priority", info.Priority),
				zap.Int("existing_priority", existing.Priority))
			return nil
		}
		r.logger.Info("Platform being overridden",
			zap.String("platform", info.Name),
			zap.Int("from", existing.Priority),
			zap.Int("to", info.Priority))
	}

	r.platforms[info.Name] = info

	if !exists {
		r.order = append(r.order, info.Name)
	}

	r.logger.Debug("Platform registered",
		zap.String("platform", info.Name),
		zap.Int("priority", info.Priority),
		zap.Int("order", info.Order))

	return nil
}

// Get returns the info for a given name, or nil if not found.
func (r *Registry) Get(name string) *Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.platforms[name]
	if !ok {
		return nil
	}
	return &info
}

// List returns all registered platforms sorted by creation order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Info, 0, len(r.platforms))
	for _, name := range r.order {
		result = append(result, r.platforms[name])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// CreateAll runs every factory in order against ctx. Entities with a
// unique id seen earlier in the run are dropped.
func (r *Registry) CreateAll(ctx *Context) ([]entity.Entity, error) {
	seen := make(map[string]bool)
	var result []entity.Entity

	for _, info := range r.List() {
		created, err := info.Factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s entities: %w", info.Name, err)
		}
		for _, e := range created {
			if seen[e.UniqueID()] {
				r.logger.Warn("Duplicate entity skipped",
					zap.String("platform", info.Name),
					zap.String("entity", e.UniqueID()))
				continue
			}
			seen[e.UniqueID()] = true
			result = append(result, e)
		}
		r.logger.Debug("Created entities",
			zap.String("platform", info.Name),
			zap.Int("count", len(created)))
	}

	return result, nil
}

// Names returns the names of all registered platforms.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}
