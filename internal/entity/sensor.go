package entity

import (
	"time"

	"flairbridge/internal/model"
	"flairbridge/internal/units"
)

// SensorKind identifies one read-only measurement.
type SensorKind string

const (
	SensorHomeAwayHoldUntil SensorKind = "home_away_hold_until"
	SensorRoomHoldUntil     SensorKind = "hold_until"
	SensorPuckTemperature   SensorKind = "temperature"
	SensorPuckHumidity      SensorKind = "humidity"
	SensorPuckLight         SensorKind = "light"
	SensorPuckVoltage       SensorKind = "voltage"
	SensorPuckRSSI          SensorKind = "rssi"
	SensorPuckPressure      SensorKind = "pressure"
	SensorVentDuctTemp      SensorKind = "duct_temperature"
	SensorVentDuctPressure  SensorKind = "duct_pressure"
	SensorVentVoltage       SensorKind = "vent_voltage"
	SensorVentRSSI          SensorKind = "vent_rssi"
)

// Sensor kinds per resource scope.
var (
	StructureSensorKinds = []SensorKind{SensorHomeAwayHoldUntil}
	RoomSensorKinds      = []SensorKind{SensorRoomHoldUntil}
	PuckSensorKinds      = []SensorKind{
		SensorPuckTemperature,
		SensorPuckHumidity,
		SensorPuckLight,
		SensorPuckVoltage,
		SensorPuckRSSI,
		SensorPuckPressure,
	}
	VentSensorKinds = []SensorKind{
		SensorVentDuctTemp,
		SensorVentDuctPressure,
		SensorVentVoltage,
		SensorVentRSSI,
	}
)

// Device classes.
const (
	ClassTimestamp   = "timestamp"
	ClassTemperature = "temperature"
	ClassHumidity    = "humidity"
	ClassIlluminance = "illuminance"
	ClassVoltage     = "voltage"
	ClassSignal      = "signal_strength"
	ClassPressure    = "pressure"
)

// StateClassMeasurement marks numeric sensors for long-term statistics.
const StateClassMeasurement = "measurement"

type sensorSpec struct {
	name        string
	suffix      string
	scope       model.Collection
	unit        string
	deviceClass string
	stateClass  string
	category    string
	disabled    bool
	// value returns the reading; ok false means unavailable.
	value func(r *model.Resource) (interface{}, bool)
	// available defaults to "the resource exists".
	available func(r *model.Resource) bool
}

func attrValue(key string) func(r *model.Resource) (interface{}, bool) {
	return func(r *model.Resource) (interface{}, bool) {
		v := r.Float(key)
		if v == nil {
			return nil, false
		}
		return *v, true
	}
}

func readingValue(key string, places int) func(r *model.Resource) (interface{}, bool) {
	return func(r *model.Resource) (interface{}, bool) {
		v := r.Reading(key)
		if v == nil {
			return nil, false
		}
		if places >= 0 {
			return units.Round(*v, places), true
		}
		return *v, true
	}
}

func timestampValue(key string) func(r *model.Resource) (interface{}, bool) {
	return func(r *model.Resource) (interface{}, bool) {
		t, ok := r.Time(key)
		if !ok {
			return nil, false
		}
		return t.UTC().Format(time.RFC3339), true
	}
}

func hasTimestamp(key string) func(r *model.Resource) bool {
	return func(r *model.Resource) bool {
		_, ok := r.Time(key)
		return ok
	}
}

// deviceActive is false for pucks and vents Flair marks inactive.
func deviceActive(r *model.Resource) bool {
	return !r.Bool("inactive", false)
}

var sensorSpecs = map[SensorKind]sensorSpec{
	SensorHomeAwayHoldUntil: {
		name:        "Home/Away Holding Until",
		suffix:      "home_away_hold_until",
		scope:       model.CollectionSelf,
		deviceClass: ClassTimestamp,
		value:       timestampValue("hold-until"),
		available:   hasTimestamp("hold-until"),
	},
	SensorRoomHoldUntil: {
		name:        "Hold Until",
		suffix:      "hold_until",
		scope:       model.CollectionRooms,
		deviceClass: ClassTimestamp,
		value:       timestampValue("hold-until"),
		available:   hasTimestamp("hold-until"),
	},
	SensorPuckTemperature: {
		name:        "Temperature",
		suffix:      "temperature",
		scope:       model.CollectionPucks,
		unit:        "°C",
		deviceClass: ClassTemperature,
		stateClass:  StateClassMeasurement,
		value:       attrValue("current-temperature-c"),
		available:   deviceActive,
	},
	SensorPuckHumidity: {
		name:        "Humidity",
		suffix:      "humidity",
		scope:       model.CollectionPucks,
		unit:        "%",
		deviceClass: ClassHumidity,
		stateClass:  StateClassMeasurement,
		value:       attrValue("current-humidity"),
		available:   deviceActive,
	},
	SensorPuckLight: {
		name:        "Light",
		suffix:      "light",
		scope:       model.CollectionPucks,
		unit:        "lx",
		deviceClass: ClassIlluminance,
		stateClass:  StateClassMeasurement,
		value: func(r *model.Resource) (interface{}, bool) {
			lux := units.Lux(r.Reading("light"))
			if lux == nil {
				return nil, false
			}
			return *lux, true
		},
		available: func(r *model.Resource) bool {
			return deviceActive(r) && r.Reading("light") != nil
		},
	},
	SensorPuckVoltage: {
		name:        "Voltage",
		suffix:      "voltage",
		scope:       model.CollectionPucks,
		unit:        "V",
		deviceClass: ClassVoltage,
		stateClass:  StateClassMeasurement,
		category:    CategoryDiagnostic,
		value:       attrValue("voltage"),
		available:   deviceActive,
	},
	SensorPuckRSSI: {
		name:        "RSSI",
		suffix:      "rssi",
		scope:       model.CollectionPucks,
		unit:        "dBm",
		deviceClass: ClassSignal,
		stateClass:  StateClassMeasurement,
		category:    CategoryDiagnostic,
		disabled:    true,
		value:       attrValue("current-rssi"),
		available:   deviceActive,
	},
	SensorPuckPressure: {
		name:        "Pressure",
		suffix:      "pressure",
		scope:       model.CollectionPucks,
		unit:        "kPa",
		deviceClass: ClassPressure,
		stateClass:  StateClassMeasurement,
		value:       readingValue("room-pressure", 2),
		available:   deviceActive,
	},
	SensorVentDuctTemp: {
		name:        "Duct Temperature",
		suffix:      "duct_temperature",
		scope:       model.CollectionVents,
		unit:        "°C",
		deviceClass: ClassTemperature,
		stateClass:  StateClassMeasurement,
		value:       readingValue("duct-temperature-c", -1),
		available:   deviceActive,
	},
	SensorVentDuctPressure: {
		name:        "Duct Pressure",
		suffix:      "duct_pressure",
		scope:       model.CollectionVents,
		unit:        "kPa",
		deviceClass: ClassPressure,
		stateClass:  StateClassMeasurement,
		value:       readingValue("duct-pressure", 2),
		available:   deviceActive,
	},
	SensorVentVoltage: {
		name:        "Voltage",
		suffix:      "voltage",
		scope:       model.CollectionVents,
		unit:        "V",
		deviceClass: ClassVoltage,
		stateClass:  StateClassMeasurement,
		category:    CategoryDiagnostic,
		value:       attrValue("voltage"),
		available:   deviceActive,
	},
	SensorVentRSSI: {
		name:        "RSSI",
		suffix:      "rssi",
		scope:       model.CollectionVents,
		unit:        "dBm",
		deviceClass: ClassSignal,
		stateClass:  StateClassMeasurement,
		category:    CategoryDiagnostic,
		disabled:    true,
		value:       attrValue("current-rssi"),
		available:   deviceActive,
	},
}

// Sensor is a read-only measurement of one resource.
type Sensor struct {
	base
	kind        SensorKind
	spec        sensorSpec
	structureID string
	id          string
}

// NewSensor creates a sensor of kind for the resource id within a
// structure. For structure sensors id is the structure id.
func NewSensor(deps Deps, kind SensorKind, structureID, id string) *Sensor {
	spec := sensorSpecs[kind]
	s := &Sensor{
		base:        newBase(deps, id+"_"+spec.suffix),
		kind:        kind,
		spec:        spec,
		structureID: structureID,
		id:          id,
	}
	s.self = s
	return s
}

func (s *Sensor) Kind() SensorKind { return s.kind }

func (s *Sensor) Platform() Platform { return PlatformSensor }

// EnabledByDefault is false for noisy diagnostics. Hold-until sensors
// start disabled while the structure is in manual mode.
func (s *Sensor) EnabledByDefault() bool {
	if s.spec.disabled {
		return false
	}
	if s.spec.scope == model.CollectionSelf || s.spec.scope == model.CollectionRooms {
		st, ok := s.structure(s.structureID)
		return !ok || st.String("mode") != structureManual
	}
	return true
}

// StructureID is the structure the sensor's resource belongs to.
func (s *Sensor) StructureID() string { return s.structureID }

func (s *Sensor) Category() string { return s.spec.category }

// Unit is the unit of measurement, empty for timestamps.
func (s *Sensor) Unit() string { return s.spec.unit }

// DeviceClass is the host device class.
func (s *Sensor) DeviceClass() string { return s.spec.deviceClass }

// StateClass is the host state class, empty for timestamps.
func (s *Sensor) StateClass() string { return s.spec.stateClass }

func (s *Sensor) resource() (*model.Resource, bool) {
	if s.spec.scope == model.CollectionSelf {
		return s.deps.Store.Resource(model.StructurePath(s.structureID))
	}
	return s.child(s.structureID, s.spec.scope, s.id)
}

func (s *Sensor) Name() string {
	r, ok := s.resource()
	if !ok {
		return s.spec.name
	}
	return r.Name() + " " + s.spec.name
}

func (s *Sensor) Device() DeviceInfo {
	r, ok := s.resource()
	if !ok {
		return DeviceInfo{ID: s.id, Name: s.id, Manufacturer: "Flair"}
	}
	switch s.spec.scope {
	case model.CollectionSelf:
		return DeviceInfo{ID: r.ID, Name: r.Name(), Manufacturer: "Flair", Model: "Structure"}
	case model.CollectionRooms:
		return childDevice(r, "Room")
	case model.CollectionVents:
		return childDevice(r, "Vent")
	default:
		return childDevice(r, "Puck")
	}
}

func (s *Sensor) Available() bool {
	r, ok := s.resource()
	if !ok {
		return false
	}
	if s.spec.available != nil {
		return s.spec.available(r)
	}
	return true
}

// Value returns the current reading. ok is false when unavailable.
func (s *Sensor) Value() (interface{}, bool) {
	r, ok := s.resource()
	if !ok {
		return nil, false
	}
	if s.spec.available != nil && !s.spec.available(r) {
		return nil, false
	}
	return s.spec.value(r)
}

// NumericValue returns the reading as a float for numeric sensors.
func (s *Sensor) NumericValue() (float64, bool) {
	v, ok := s.Value()
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (s *Sensor) State() map[string]interface{} {
	v, ok := s.Value()
	return map[string]interface{}{
		"value":     v,
		"unit":      s.spec.unit,
		"available": ok,
	}
}
