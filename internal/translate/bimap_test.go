package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBiMap_ForwardAndReverse(t *testing.T) {
	m := NewBiMap(Pair{"a", "x"}, Pair{"b", "y"})

	h, ok := m.Forward("a")
	require.True(t, ok)
	assert.Equal(t, "x", h)

	f, ok := m.Reverse("y")
	require.True(t, ok)
	assert.Equal(t, "b", f)

	_, ok = m.Forward("missing")
	assert.False(t, ok)
	assert.Equal(t, "fb", m.ForwardOr("missing", "fb"))
	assert.Equal(t, "fb", m.ReverseOr("missing", "fb"))
}

func TestBiMap_DuplicateHostValueLastWins(t *testing.T) {
	m := NewBiMap(
		Pair{"first", "same"},
		Pair{"other", "z"},
		Pair{"second", "same"},
	)

	f, ok := m.Reverse("same")
	require.True(t, ok)
	assert.Equal(t, "second", f)
	assert.Equal(t, []string{"same", "z"}, m.HostValues())
	assert.Equal(t, 3, m.Len())
}

func TestBiMap_ValuesAreCopies(t *testing.T) {
	m := NewBiMap(Pair{"a", "x"})
	vals := m.HostValues()
	vals[0] = "mutated"
	assert.Equal(t, []string{"x"}, m.HostValues())
}

func TestTables_RoundTrip(t *testing.T) {
	tables := map[string]*BiMap{
		"structure modes":       StructureModes,
		"unit modes":            UnitModes,
		"fan speeds":            FanSpeeds,
		"swing":                 SwingStates,
		"temperature scales":    TemperatureScales,
		"hold durations":        HoldDurations,
		"home away set by":      HomeAwaySetBy,
		"set point controllers": SetPointControllers,
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			for _, flair := range table.FlairValues() {
				host, ok := table.Forward(flair)
				require.True(t, ok)
				back, ok := table.Reverse(host)
				require.True(t, ok)
				assert.Equal(t, flair, back)
			}
		})
	}
}

func TestStructureModes_Fallbacks(t *testing.T) {
	assert.Equal(t, StructureFloat, StructureModes.ReverseOr(ModeDry, StructureFloat))
	assert.Equal(t, ModeOff, StructureModes.ForwardOr("unknown", ModeOff))
	assert.Equal(t, StructureFloat, StructureModes.ReverseOr(ModeOff, StructureFloat))
}

func TestUnitActions_DefaultIdle(t *testing.T) {
	assert.Equal(t, ActionIdle, UnitActions.ForwardOr("Auto", ActionIdle))
	assert.Equal(t, ActionCooling, UnitActions.ForwardOr("Cool", ActionIdle))
}
