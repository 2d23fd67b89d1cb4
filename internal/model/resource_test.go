package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_Accessors(t *testing.T) {
	r := NewResource(TypeHVACUnits, "h1")
	r.Attributes = map[string]interface{}{
		"name":        "Mini Split",
		"power":       "On",
		"temperature": 72.0,
		"humidity":    "41.5",
		"constraints": map[string]interface{}{"temperature-scale": "F"},
		"codesets":    []interface{}{map[string]interface{}{"temperature-scale": "C"}},
		"hold-until":  "2024-03-01T10:00:00+00:00",
		"empty":       nil,
	}
	r.Relationships["room"] = Relationship{Data: []Ref{{Type: TypeRooms, ID: "r1"}}}

	assert.Equal(t, "Mini Split", r.Name())
	assert.Equal(t, "On", r.String("power"))
	require.NotNil(t, r.Float("temperature"))
	assert.Equal(t, 72.0, *r.Float("temperature"))
	require.NotNil(t, r.Float("humidity"))
	assert.Equal(t, 41.5, *r.Float("humidity"))
	assert.Nil(t, r.Float("missing"))
	assert.Equal(t, "F", r.Map("constraints")["temperature-scale"])
	assert.Len(t, r.List("codesets"), 1)
	assert.False(t, r.Has("empty"))
	assert.True(t, r.Has("power"))
	assert.True(t, r.Bool("missing", true))

	ts, ok := r.Time("hold-until")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), ts.UTC())
	_, ok = r.Time("missing")
	assert.False(t, ok)

	assert.Equal(t, "r1", r.RelatedID("room"))
	assert.Equal(t, "", r.RelatedID("puck"))
}

func TestResource_Reading(t *testing.T) {
	r := NewResource(TypePucks, "p1")
	assert.Nil(t, r.Reading("light"))

	r.CurrentReading = map[string]interface{}{"light": 150.0, "room-pressure": nil}
	require.NotNil(t, r.Reading("light"))
	assert.Equal(t, 150.0, *r.Reading("light"))
	assert.Nil(t, r.Reading("room-pressure"))
}

func TestResource_CloneIsDeep(t *testing.T) {
	r := NewResource(TypeHVACUnits, "h1")
	r.Attributes["constraints"] = map[string]interface{}{"temperature-scale": "F"}
	r.Relationships["room"] = Relationship{Data: []Ref{{Type: TypeRooms, ID: "r1"}}}

	c := r.Clone()
	c.Map("constraints")["temperature-scale"] = "C"
	c.Relationships["room"].Data[0] = Ref{Type: TypeRooms, ID: "r2"}

	assert.Equal(t, "F", r.Map("constraints")["temperature-scale"])
	assert.Equal(t, "r1", r.RelatedID("room"))
}

func TestPath_ResourceType(t *testing.T) {
	assert.Equal(t, TypeStructures, StructurePath("s1").ResourceType())
	assert.Equal(t, TypeHVACUnits, ChildPath("s1", CollectionHVACUnits, "h1").ResourceType())
	assert.Equal(t, "structures/s1/rooms/r1", ChildPath("s1", CollectionRooms, "r1").String())
}
