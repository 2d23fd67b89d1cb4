package entity

import (
	"context"
	"sync"
	"testing"

	"flairbridge/internal/audit"
	"flairbridge/internal/flair"
	"flairbridge/internal/model"

	"go.uber.org/zap"
)

type recordingRefresher struct {
	mu    sync.Mutex
	count int
}

func (r *recordingRefresher) RequestRefresh(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *recordingRefresher) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []string
}

func (n *recordingNotifier) EntityChanged(e Entity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, e.UniqueID())
}

func (n *recordingNotifier) Changed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.changed...)
}

type fixture struct {
	store     *model.Store
	gateway   *flair.MockClient
	refresher *recordingRefresher
	notifier  *recordingNotifier
	tracker   *audit.Tracker
	deps      Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	f := &fixture{
		store:     model.NewStore(logger),
		gateway:   flair.NewMockClient(),
		refresher: &recordingRefresher{},
		notifier:  &recordingNotifier{},
		tracker:   audit.NewTracker(50),
	}
	f.store.Replace(testSnapshot())
	f.deps = Deps{
		Store:     f.store,
		Gateway:   f.gateway,
		Refresher: f.refresher,
		Notifier:  f.notifier,
		Recorder:  f.tracker,
		Logger:    logger,
	}
	return f
}

// patch changes cached attributes directly, as a poll would.
func (f *fixture) patch(t *testing.T, path model.Path, attrs map[string]interface{}) {
	t.Helper()
	if err := f.store.Patch(path, attrs); err != nil {
		t.Fatalf("patch %s: %v", path, err)
	}
}

func (f *fixture) lastOutcome(entityID string) audit.Outcome {
	recs := f.tracker.ForEntity(entityID)
	if len(recs) == 0 {
		return ""
	}
	return recs[len(recs)-1].Outcome
}

// testSnapshot builds a structure "s1" in auto mode with one room, one
// puck, one vent, two schedules and two HVAC units.
func testSnapshot() *model.Snapshot {
	snap := model.NewSnapshot()

	st := model.NewStructure("s1")
	st.Attributes = map[string]interface{}{
		"name":                     "Home",
		"mode":                     "auto",
		"home":                     true,
		"home-away-mode":           "Manual",
		"structure-heat-cool-mode": "heat",
		"set-point-temperature-c":  21.11,
		"set-point-mode":           "Home Evenness For Active Rooms Flair Setpoint",
		"default-hold-duration":    "Until",
		"active-schedule-id":       "sch1",
		"structure-away-mode":      "Smart Away",
		"temperature-scale":        "F",
		"hold-until":               "2024-03-01T10:00:00Z",
	}

	room := model.NewResource(model.TypeRooms, "r1")
	room.Attributes = map[string]interface{}{
		"name":                  "Office",
		"active":                true,
		"current-temperature-c": 20.5,
		"set-point-c":           21.0,
		"current-humidity":      40.0,
		"default-fan-speed":     "HIGH",
		"default-swing":         "ON",
	}
	_ = st.Add(model.CollectionRooms, room)

	puck := model.NewResource(model.TypePucks, "p1")
	puck.Attributes = map[string]interface{}{
		"name":                  "Office Puck",
		"inactive":              false,
		"current-temperature-c": 20.4,
		"current-humidity":      41.0,
		"voltage":               3.1,
		"current-rssi":          -60.0,
		"puck-display-color":    "white",
	}
	puck.CurrentReading = map[string]interface{}{
		"light":         150.0,
		"room-pressure": 101.3251,
	}
	_ = st.Add(model.CollectionPucks, puck)

	vent := model.NewResource(model.TypeVents, "v1")
	vent.Attributes = map[string]interface{}{
		"name":         "Office Vent",
		"voltage":      2.9,
		"current-rssi": -70.0,
	}
	vent.CurrentReading = map[string]interface{}{
		"duct-temperature-c": 18.5,
		"duct-pressure":      0.12345,
	}
	_ = st.Add(model.CollectionVents, vent)

	sch1 := model.NewResource(model.TypeSchedules, "sch1")
	sch1.Attributes["name"] = "Weekday"
	_ = st.Add(model.CollectionSchedules, sch1)
	sch2 := model.NewResource(model.TypeSchedules, "sch2")
	sch2.Attributes["name"] = "Weekend"
	_ = st.Add(model.CollectionSchedules, sch2)

	unit := model.NewResource(model.TypeHVACUnits, "h1")
	unit.Attributes = map[string]interface{}{
		"name":        "Mini Split",
		"make-name":   "Mitsubishi",
		"power":       "On",
		"mode":        "Cool",
		"fan-speed":   "Low",
		"swing":       "Off",
		"temperature": 72.0,
		"constraints": map[string]interface{}{"temperature-scale": "F"},
	}
	unit.Relationships["room"] = model.Relationship{Data: []model.Ref{{Type: model.TypeRooms, ID: "r1"}}}
	_ = st.Add(model.CollectionHVACUnits, unit)

	codesetUnit := model.NewResource(model.TypeHVACUnits, "h2")
	codesetUnit.Attributes = map[string]interface{}{
		"name":        "Window Unit",
		"power":       "Off",
		"mode":        "Heat",
		"fan-speed":   "Auto",
		"swing":       "Off",
		"temperature": 20.0,
		"constraints": map[string]interface{}{},
		"codesets":    []interface{}{map[string]interface{}{"temperature-scale": "C"}},
	}
	_ = st.Add(model.CollectionHVACUnits, codesetUnit)

	snap.AddStructure(st)
	return snap
}
