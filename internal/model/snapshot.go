package model

import (
	"fmt"
	"sort"
	"time"
)

// Structure is a Flair home and every child resource it owns, keyed by id.
type Structure struct {
	*Resource
	Rooms       map[string]*Resource `json:"rooms"`
	Pucks       map[string]*Resource `json:"pucks"`
	Vents       map[string]*Resource `json:"vents"`
	HVACUnits   map[string]*Resource `json:"hvac_units"`
	Schedules   map[string]*Resource `json:"schedules"`
	Thermostats map[string]*Resource `json:"thermostats"`
}

// NewStructure creates a structure with empty child mappings.
func NewStructure(id string) *Structure {
	return &Structure{
		Resource:    NewResource(TypeStructures, id),
		Rooms:       make(map[string]*Resource),
		Pucks:       make(map[string]*Resource),
		Vents:       make(map[string]*Resource),
		HVACUnits:   make(map[string]*Resource),
		Schedules:   make(map[string]*Resource),
		Thermostats: make(map[string]*Resource),
	}
}

// Children returns the child mapping for a collection.
func (s *Structure) Children(c Collection) map[string]*Resource {
	switch c {
	case CollectionRooms:
		return s.Rooms
	case CollectionPucks:
		return s.Pucks
	case CollectionVents:
		return s.Vents
	case CollectionHVACUnits:
		return s.HVACUnits
	case CollectionSchedules:
		return s.Schedules
	case CollectionThermostats:
		return s.Thermostats
	default:
		return nil
	}
}

// Add stores a child resource under its id, creating the mapping if needed.
func (s *Structure) Add(c Collection, r *Resource) error {
	children := s.Children(c)
	if children == nil {
		return fmt.Errorf("unknown collection %q", c)
	}
	children[r.ID] = r
	return nil
}

// SortedIDs returns the ids of a collection in lexical order.
func (s *Structure) SortedIDs(c Collection) []string {
	children := s.Children(c)
	ids := make([]string, 0, len(children))
	for id := range children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the structure and its children.
func (s *Structure) Clone() *Structure {
	out := &Structure{Resource: s.Resource.Clone()}
	out.Rooms = cloneChildren(s.Rooms)
	out.Pucks = cloneChildren(s.Pucks)
	out.Vents = cloneChildren(s.Vents)
	out.HVACUnits = cloneChildren(s.HVACUnits)
	out.Schedules = cloneChildren(s.Schedules)
	out.Thermostats = cloneChildren(s.Thermostats)
	return out
}

func cloneChildren(m map[string]*Resource) map[string]*Resource {
	out := make(map[string]*Resource, len(m))
	for id, r := range m {
		out[id] = r.Clone()
	}
	return out
}

// Snapshot is the full account tree fetched in one refresh.
type Snapshot struct {
	Structures map[string]*Structure `json:"structures"`
	FetchedAt  time.Time             `json:"fetched_at"`
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Structures: make(map[string]*Structure)}
}

// AddStructure stores s under its id.
func (s *Snapshot) AddStructure(st *Structure) {
	s.Structures[st.ID] = st
}

// StructureIDs returns structure ids in lexical order.
func (s *Snapshot) StructureIDs() []string {
	ids := make([]string, 0, len(s.Structures))
	for id := range s.Structures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Structures: make(map[string]*Structure, len(s.Structures)),
		FetchedAt:  s.FetchedAt,
	}
	for id, st := range s.Structures {
		out.Structures[id] = st.Clone()
	}
	return out
}

// Path addresses one resource in the tree. An empty Collection addresses
// the structure itself.
type Path struct {
	StructureID string
	Collection  Collection
	ID          string
}

// StructurePath addresses a structure.
func StructurePath(structureID string) Path {
	return Path{StructureID: structureID, ID: structureID}
}

// ChildPath addresses a child resource of a structure.
func ChildPath(structureID string, c Collection, id string) Path {
	return Path{StructureID: structureID, Collection: c, ID: id}
}

// ResourceType returns the API resource type at this path.
func (p Path) ResourceType() string {
	return p.Collection.ResourceType()
}

func (p Path) String() string {
	if p.Collection == CollectionSelf {
		return "structures/" + p.StructureID
	}
	return fmt.Sprintf("structures/%s/%s/%s", p.StructureID, p.Collection, p.ID)
}
