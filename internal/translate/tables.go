package translate

// Host climate modes.
const (
	ModeOff      = "off"
	ModeHeat     = "heat"
	ModeCool     = "cool"
	ModeHeatCool = "heat_cool"
	ModeAuto     = "auto"
	ModeDry      = "dry"
	ModeFanOnly  = "fan_only"
)

// Host climate actions.
const (
	ActionOff     = "off"
	ActionIdle    = "idle"
	ActionCooling = "cooling"
	ActionHeating = "heating"
	ActionDrying  = "drying"
	ActionFan     = "fan"
)

// Flair sentinels used as reverse fallbacks.
const (
	StructureFloat = "float"
	UnitModeOff    = "Off"
	PowerOn        = "On"
	PowerOff       = "Off"
)

// StructureModes maps structure-heat-cool-mode values.
var StructureModes = NewBiMap(
	Pair{"cool", ModeCool},
	Pair{"heat", ModeHeat},
	Pair{"float", ModeOff},
	Pair{"auto", ModeHeatCool},
)

// UnitModes maps the hvac-units "mode" attribute.
var UnitModes = NewBiMap(
	Pair{"Auto", ModeHeatCool},
	Pair{"Cool", ModeCool},
	Pair{"Dry", ModeDry},
	Pair{"Heat", ModeHeat},
	Pair{"Fan", ModeFanOnly},
	Pair{"Off", ModeOff},
)

// UnitActions maps the hvac-units "mode" attribute to a running action.
var UnitActions = NewBiMap(
	Pair{"Cool", ActionCooling},
	Pair{"Heat", ActionHeating},
	Pair{"Fan", ActionFan},
	Pair{"Dry", ActionDrying},
)

// FanSpeeds maps the hvac-units "fan-speed" attribute.
var FanSpeeds = NewBiMap(
	Pair{"Auto", "auto"},
	Pair{"Low", "low"},
	Pair{"Medium", "medium"},
	Pair{"High", "high"},
)

// SwingStates maps the hvac-units "swing" attribute.
var SwingStates = NewBiMap(
	Pair{"On", "on"},
	Pair{"Off", "off"},
)

// TemperatureScales maps scale codes to display labels.
var TemperatureScales = NewBiMap(
	Pair{"F", "Fahrenheit"},
	Pair{"C", "Celsius"},
	Pair{"K", "Kelvin"},
)

// HoldDurations maps "default-hold-duration".
var HoldDurations = NewBiMap(
	Pair{"Until", "Next Event"},
	Pair{"1 Hour", "1 Hour"},
	Pair{"2 Hours", "2 Hours"},
	Pair{"4 Hours", "4 Hours"},
	Pair{"Forever", "Until Changed"},
)

// HomeAwaySetBy maps "home-away-mode".
var HomeAwaySetBy = NewBiMap(
	Pair{"Manual", "Manual"},
	Pair{"Third Party Home Away", "Thermostat"},
	Pair{"Flair Autohome Autoaway", "Flair App Geolocation"},
)

// SetPointControllers maps "set-point-mode".
var SetPointControllers = NewBiMap(
	Pair{"Home Evenness For Active Rooms Flair Setpoint", "Flair App"},
	Pair{"Home Evenness For Active Rooms Follow Third Party", "Thermostat"},
)

// Controller labels.
const (
	ControllerFlairApp   = "Flair App"
	ControllerThermostat = "Thermostat"
)

// DefaultScaleLabel is shown when a structure has no temperature scale.
const DefaultScaleLabel = "Fahrenheit"

var (
	// SystemModes are the structure "mode" options.
	SystemModes = []string{"Auto", "Manual"}
	// HomeAwayModes are the "home" select options.
	HomeAwayModes = []string{"Home", "Away"}
	// AwayModes are the "structure-away-mode" options.
	AwayModes = []string{"Smart Away", "Off Only"}
	// PuckBackgrounds are the "puck-display-color" options.
	PuckBackgrounds = []string{"Black", "White"}
)

// NoSchedule is the schedule option that clears the active schedule.
const NoSchedule = "No Schedule"
