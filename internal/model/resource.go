package model

import (
	"strconv"
	"strings"
	"time"
)

// Resource types used by the Flair API.
const (
	TypeStructures  = "structures"
	TypeRooms       = "rooms"
	TypePucks       = "pucks"
	TypeVents       = "vents"
	TypeHVACUnits   = "hvac-units"
	TypeSchedules   = "schedules"
	TypeThermostats = "thermostats"
)

// Collection names a child mapping of a Structure.
type Collection string

const (
	CollectionSelf        Collection = ""
	CollectionRooms       Collection = "rooms"
	CollectionPucks       Collection = "pucks"
	CollectionVents       Collection = "vents"
	CollectionHVACUnits   Collection = "hvac-units"
	CollectionSchedules   Collection = "schedules"
	CollectionThermostats Collection = "thermostats"
)

// ResourceType returns the API resource type for a collection.
func (c Collection) ResourceType() string {
	if c == CollectionSelf {
		return TypeStructures
	}
	return string(c)
}

// Ref is a typed reference to another resource.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Relationship holds the references of one named relationship.
type Relationship struct {
	Data []Ref `json:"data"`
}

// Resource is one node of the cached tree: an attribute bag plus
// references to other nodes. Devices also carry their latest reading.
type Resource struct {
	Type           string                  `json:"type"`
	ID             string                  `json:"id"`
	Attributes     map[string]interface{}  `json:"attributes"`
	Relationships  map[string]Relationship `json:"relationships,omitempty"`
	CurrentReading map[string]interface{}  `json:"current_reading,omitempty"`
}

// NewResource creates a resource with an empty attribute bag.
func NewResource(resourceType, id string) *Resource {
	return &Resource{
		Type:          resourceType,
		ID:            id,
		Attributes:    make(map[string]interface{}),
		Relationships: make(map[string]Relationship),
	}
}

// Name returns the "name" attribute.
func (r *Resource) Name() string {
	return r.String("name")
}

// Has reports whether key is set to a non-nil value.
func (r *Resource) Has(key string) bool {
	v, ok := r.Attributes[key]
	return ok && v != nil
}

// String returns a string attribute or "".
func (r *Resource) String(key string) string {
	return asString(r.Attributes[key])
}

// Bool returns a boolean attribute or def when missing or not a bool.
func (r *Resource) Bool(key string, def bool) bool {
	if b, ok := r.Attributes[key].(bool); ok {
		return b
	}
	return def
}

// Float returns a numeric attribute, or nil when missing.
func (r *Resource) Float(key string) *float64 {
	return asFloat(r.Attributes[key])
}

// Map returns a nested object attribute.
func (r *Resource) Map(key string) map[string]interface{} {
	m, _ := r.Attributes[key].(map[string]interface{})
	return m
}

// List returns an array attribute.
func (r *Resource) List(key string) []interface{} {
	l, _ := r.Attributes[key].([]interface{})
	return l
}

// Time parses a timestamp attribute. ok is false when unset or invalid.
func (r *Resource) Time(key string) (time.Time, bool) {
	s := r.String(key)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Reading returns a numeric value from the current reading.
func (r *Resource) Reading(key string) *float64 {
	if r.CurrentReading == nil {
		return nil
	}
	return asFloat(r.CurrentReading[key])
}

// Related returns the references of a named relationship.
func (r *Resource) Related(name string) []Ref {
	return r.Relationships[name].Data
}

// RelatedID returns the first referenced id of a relationship or "".
func (r *Resource) RelatedID(name string) string {
	refs := r.Related(name)
	if len(refs) == 0 {
		return ""
	}
	return refs[0].ID
}

// Clone returns a deep copy of the resource.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	out := &Resource{
		Type:          r.Type,
		ID:            r.ID,
		Attributes:    cloneMap(r.Attributes),
		Relationships: make(map[string]Relationship, len(r.Relationships)),
	}
	for k, rel := range r.Relationships {
		refs := make([]Ref, len(rel.Data))
		copy(refs, rel.Data)
		out.Relationships[k] = Relationship{Data: refs}
	}
	if r.CurrentReading != nil {
		out.CurrentReading = cloneMap(r.CurrentReading)
	}
	return out
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

func asFloat(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
