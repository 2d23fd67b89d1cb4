package entity

import (
	"context"
	"testing"

	"flairbridge/internal/audit"
	"flairbridge/internal/model"
	"flairbridge/internal/translate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withThermostat(t *testing.T, f *fixture) {
	t.Helper()
	snap := testSnapshot()
	require.NoError(t, snap.Structures["s1"].Add(model.CollectionThermostats, model.NewResource(model.TypeThermostats, "t1")))
	f.store.Replace(snap)
}

func TestSelect_Identity(t *testing.T) {
	f := newFixture(t)

	s := NewStructureSelect(f.deps, SelectSystemMode, "s1")
	assert.Equal(t, "s1_system_mode", s.UniqueID())
	assert.Equal(t, "Home System Mode", s.Name())
	assert.Equal(t, PlatformSelect, s.Platform())
	assert.Equal(t, "Structure", s.Device().Model)

	p := NewPuckSelect(f.deps, SelectPuckTempScale, "s1", "p1")
	assert.Equal(t, "p1_temp_scale", p.UniqueID())
	assert.Equal(t, "Office Puck Temperature Scale", p.Name())
	assert.Equal(t, CategoryConfig, p.Category())
	assert.Equal(t, "Puck", p.Device().Model)
}

func TestSelect_CurrentOption(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		kind SelectKind
		want string
	}{
		{SelectSystemMode, "Auto"},
		{SelectHomeAwayMode, "Home"},
		{SelectHomeAwaySetBy, "Manual"},
		{SelectDefaultHoldDuration, "Next Event"},
		{SelectSetPointController, translate.ControllerFlairApp},
		{SelectSchedule, "Weekday"},
		{SelectAwayMode, "Smart Away"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s := NewStructureSelect(f.deps, tt.kind, "s1")
			assert.Equal(t, tt.want, s.CurrentOption())
			assert.True(t, s.Available())
		})
	}

	t.Run("puck", func(t *testing.T) {
		assert.Equal(t, "White", NewPuckSelect(f.deps, SelectPuckBackground, "s1", "p1").CurrentOption())
		assert.Equal(t, "Fahrenheit", NewPuckSelect(f.deps, SelectPuckTempScale, "s1", "p1").CurrentOption())
	})
}

func TestSelect_SelectOption(t *testing.T) {
	tests := []struct {
		name     string
		sel      func(d Deps) *Select
		option   string
		wantType string
		wantID   string
		want     map[string]interface{}
	}{
		{
			name:     "system mode",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectSystemMode, "s1") },
			option:   "Manual",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"mode": "manual"},
		},
		{
			name:     "home away",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectHomeAwayMode, "s1") },
			option:   "Away",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"home": false},
		},
		{
			name:     "set by",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectHomeAwaySetBy, "s1") },
			option:   "Flair App Geolocation",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"home-away-mode": "Flair Autohome Autoaway"},
		},
		{
			name:     "hold duration",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectDefaultHoldDuration, "s1") },
			option:   "Until Changed",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"default-hold-duration": "Forever"},
		},
		{
			name:     "schedule",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectSchedule, "s1") },
			option:   "Weekend",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"active-schedule-id": "sch2"},
		},
		{
			name:     "no schedule clears the active schedule",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectSchedule, "s1") },
			option:   translate.NoSchedule,
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"active-schedule-id": nil},
		},
		{
			name:     "away mode",
			sel:      func(d Deps) *Select { return NewStructureSelect(d, SelectAwayMode, "s1") },
			option:   "Off Only",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"structure-away-mode": "Off Only"},
		},
		{
			name:     "puck background",
			sel:      func(d Deps) *Select { return NewPuckSelect(d, SelectPuckBackground, "s1", "p1") },
			option:   "Black",
			wantType: model.TypePucks, wantID: "p1",
			want: map[string]interface{}{"puck-display-color": "black"},
		},
		{
			name:     "temperature scale is a structure attribute",
			sel:      func(d Deps) *Select { return NewPuckSelect(d, SelectPuckTempScale, "s1", "p1") },
			option:   "Celsius",
			wantType: model.TypeStructures, wantID: "s1",
			want: map[string]interface{}{"temperature-scale": "C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			s := tt.sel(f.deps)

			require.NoError(t, s.SelectOption(context.Background(), tt.option))

			calls := f.gateway.GetUpdates()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantType, calls[0].ResourceType)
			assert.Equal(t, tt.wantID, calls[0].ID)
			assert.Equal(t, tt.want, calls[0].Attributes)

			assert.Equal(t, tt.option, s.CurrentOption())
			assert.Equal(t, []string{s.UniqueID()}, f.notifier.Changed())
			assert.Equal(t, 1, f.refresher.Count())
			assert.Equal(t, audit.OutcomeApplied, f.lastOutcome(s.UniqueID()))
		})
	}
}

func TestSelect_UnknownOption(t *testing.T) {
	f := newFixture(t)
	s := NewStructureSelect(f.deps, SelectAwayMode, "s1")

	require.NoError(t, s.SelectOption(context.Background(), "Everything Off"))
	assert.Empty(t, f.gateway.GetUpdates())
	assert.Equal(t, 0, f.refresher.Count())
	assert.Equal(t, audit.OutcomeUnsupported, f.lastOutcome("s1_away_mode"))
}

func TestSelect_ThermostatOptions(t *testing.T) {
	f := newFixture(t)

	setBy := NewStructureSelect(f.deps, SelectHomeAwaySetBy, "s1")
	controller := NewStructureSelect(f.deps, SelectSetPointController, "s1")

	assert.Equal(t, []string{"Manual", "Flair App Geolocation"}, setBy.Options())
	assert.Equal(t, []string{translate.ControllerFlairApp}, controller.Options())

	require.NoError(t, controller.SelectOption(context.Background(), translate.ControllerThermostat))
	assert.Empty(t, f.gateway.GetUpdates())

	withThermostat(t, f)
	assert.Equal(t, []string{"Manual", "Thermostat", "Flair App Geolocation"}, setBy.Options())
	assert.Equal(t, []string{translate.ControllerFlairApp, translate.ControllerThermostat}, controller.Options())

	require.NoError(t, controller.SelectOption(context.Background(), translate.ControllerThermostat))
	calls := f.gateway.GetUpdates()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]interface{}{
		"set-point-mode": "Home Evenness For Active Rooms Follow Third Party",
	}, calls[0].Attributes)
}

func TestSelect_ScheduleOptions(t *testing.T) {
	f := newFixture(t)
	s := NewStructureSelect(f.deps, SelectSchedule, "s1")

	assert.Equal(t, []string{translate.NoSchedule, "Weekday", "Weekend"}, s.Options())

	f.patch(t, model.StructurePath("s1"), map[string]interface{}{"active-schedule-id": "missing"})
	assert.Equal(t, translate.NoSchedule, s.CurrentOption())
}

func TestSelect_Availability(t *testing.T) {
	f := newFixture(t)

	homeAway := NewStructureSelect(f.deps, SelectHomeAwayMode, "s1")
	f.patch(t, model.StructurePath("s1"), map[string]interface{}{"mode": "manual"})
	assert.False(t, homeAway.Available())
	assert.True(t, NewStructureSelect(f.deps, SelectSystemMode, "s1").Available())

	gone := NewStructureSelect(f.deps, SelectSystemMode, "nope")
	assert.False(t, gone.Available())
	assert.Nil(t, gone.Options())
	assert.Equal(t, "", gone.CurrentOption())
	require.NoError(t, gone.SelectOption(context.Background(), "Auto"))
	assert.Equal(t, audit.OutcomeRejected, f.lastOutcome("nope_system_mode"))

	missingPuck := NewPuckSelect(f.deps, SelectPuckBackground, "s1", "p9")
	assert.False(t, missingPuck.Available())
}

func TestSelect_ReadOnly(t *testing.T) {
	f := newFixture(t)
	f.deps.ReadOnly = true
	s := NewStructureSelect(f.deps, SelectSystemMode, "s1")

	assert.ErrorIs(t, s.SelectOption(context.Background(), "Manual"), ErrReadOnly)
	assert.Empty(t, f.gateway.GetUpdates())
	assert.Equal(t, "Auto", s.CurrentOption())
}
