package entity

import (
	"context"

	"flairbridge/internal/model"
	"flairbridge/internal/translate"
	"flairbridge/internal/units"

	"go.uber.org/zap"
)

// ClimateVariant selects which resource a climate adapter controls.
type ClimateVariant string

const (
	VariantStructure ClimateVariant = "structure"
	VariantRoom      ClimateVariant = "room"
	VariantHVAC      ClimateVariant = "hvac"
)

// RoomPolicy decides how room climate modes relate to the structure mode.
type RoomPolicy string

const (
	// RoomPolicyMirror reports the structure mode for active rooms and
	// pushes mode changes to the structure.
	RoomPolicyMirror RoomPolicy = "mirror"
	// RoomPolicyIndependent limits rooms to off and auto.
	RoomPolicyIndependent RoomPolicy = "independent"
)

// Climate feature names.
const (
	FeatureTargetTemperature = "target_temperature"
	FeatureFanMode           = "fan_mode"
	FeatureSwingMode         = "swing_mode"
	FeatureTurnOn            = "turn_on"
	FeatureTurnOff           = "turn_off"
)

const (
	// controllerThermostat is the set-point-mode value for which Flair
	// follows a third-party thermostat.
	controllerThermostat = "Home Evenness For Active Rooms Follow Third Party"
	structureManual      = "manual"
	structureAuto        = "auto"
)

var structureModes = []string{
	translate.ModeOff, translate.ModeCool, translate.ModeHeat, translate.ModeHeatCool,
}

var independentModes = []string{translate.ModeOff, translate.ModeAuto}

// Climate is a climate control surface for a structure, a room or an HVAC
// unit.
type Climate struct {
	base
	variant     ClimateVariant
	policy      RoomPolicy
	imperial    bool
	structureID string
	id          string
}

// NewStructureClimate controls a structure's heat/cool mode and set point.
// imperial selects Fahrenheit as the display unit.
func NewStructureClimate(deps Deps, structureID string, imperial bool) *Climate {
	c := &Climate{
		base:        newBase(deps, structureID+"_climate"),
		variant:     VariantStructure,
		imperial:    imperial,
		structureID: structureID,
		id:          structureID,
	}
	c.self = c
	return c
}

// NewRoomClimate controls one room under the given policy.
func NewRoomClimate(deps Deps, structureID, roomID string, policy RoomPolicy) *Climate {
	if policy == "" {
		policy = RoomPolicyMirror
	}
	c := &Climate{
		base:        newBase(deps, roomID+"_room"),
		variant:     VariantRoom,
		policy:      policy,
		structureID: structureID,
		id:          roomID,
	}
	c.self = c
	return c
}

// NewHVACClimate controls one HVAC unit.
func NewHVACClimate(deps Deps, structureID, unitID string) *Climate {
	c := &Climate{
		base:        newBase(deps, unitID+"_hvac_unit"),
		variant:     VariantHVAC,
		structureID: structureID,
		id:          unitID,
	}
	c.self = c
	return c
}

// UnitTemperatureScale resolves an HVAC unit's scale code from its
// constraints, falling back to the first codeset.
func UnitTemperatureScale(unit *model.Resource) (string, bool) {
	if s, ok := unit.Map("constraints")["temperature-scale"].(string); ok && s != "" {
		return s, true
	}
	codesets := unit.List("codesets")
	if len(codesets) > 0 {
		if cs, ok := codesets[0].(map[string]interface{}); ok {
			if s, ok := cs["temperature-scale"].(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func (c *Climate) Variant() ClimateVariant { return c.variant }

func (c *Climate) Platform() Platform { return PlatformClimate }

// EnabledByDefault is false for structure and room climates while the
// structure is in manual mode.
func (c *Climate) EnabledByDefault() bool {
	if c.variant == VariantHVAC {
		return true
	}
	st, ok := c.structure(c.structureID)
	return !ok || st.String("mode") != structureManual
}

// StructureID is the structure the climate belongs to.
func (c *Climate) StructureID() string { return c.structureID }

func (c *Climate) Category() string { return CategoryNone }

func (c *Climate) collection() model.Collection {
	switch c.variant {
	case VariantRoom:
		return model.CollectionRooms
	case VariantHVAC:
		return model.CollectionHVACUnits
	default:
		return model.CollectionSelf
	}
}

func (c *Climate) path() model.Path {
	if c.variant == VariantStructure {
		return model.StructurePath(c.structureID)
	}
	return model.ChildPath(c.structureID, c.collection(), c.id)
}

func (c *Climate) resource() (*model.Resource, bool) {
	return c.deps.Store.Resource(c.path())
}

func (c *Climate) Name() string {
	r, ok := c.resource()
	if !ok {
		return c.id
	}
	return r.Name()
}

func (c *Climate) Device() DeviceInfo {
	switch c.variant {
	case VariantStructure:
		if st, ok := c.structure(c.structureID); ok {
			return structureDevice(st)
		}
	case VariantRoom:
		if r, ok := c.resource(); ok {
			return childDevice(r, "Room")
		}
	case VariantHVAC:
		if r, ok := c.resource(); ok {
			manufacturer := r.String("make-name")
			if manufacturer == "" {
				manufacturer = "Flair"
			}
			return DeviceInfo{ID: r.ID, Name: r.Name(), Manufacturer: manufacturer, Model: "HVAC Unit"}
		}
	}
	return DeviceInfo{ID: c.id, Name: c.id, Manufacturer: "Flair"}
}

// Available reports whether the entity can currently be controlled.
func (c *Climate) Available() bool {
	st, ok := c.structure(c.structureID)
	if !ok {
		return false
	}
	switch c.variant {
	case VariantStructure:
		return st.String("mode") != structureManual
	case VariantRoom:
		room, ok := st.Rooms[c.id]
		if !ok || st.String("mode") == structureManual {
			return false
		}
		return room.Float("current-temperature-c") != nil
	case VariantHVAC:
		_, ok := st.HVACUnits[c.id]
		return ok
	}
	return false
}

// TemperatureUnit returns "F" or "C".
func (c *Climate) TemperatureUnit() string {
	switch c.variant {
	case VariantStructure:
		if c.imperial {
			return "F"
		}
		return "C"
	case VariantHVAC:
		if unit, ok := c.resource(); ok {
			if scale, ok := UnitTemperatureScale(unit); ok && scale == "F" {
				return "F"
			}
		}
		return "C"
	default:
		return "C"
	}
}

// HVACModes lists the modes this entity accepts.
func (c *Climate) HVACModes() []string {
	switch c.variant {
	case VariantRoom:
		if c.policy == RoomPolicyIndependent {
			return append([]string(nil), independentModes...)
		}
		return append([]string(nil), structureModes...)
	case VariantHVAC:
		modes := []string{translate.ModeOff}
		for _, m := range translate.UnitModes.HostValues() {
			if m != translate.ModeOff {
				modes = append(modes, m)
			}
		}
		return modes
	default:
		return append([]string(nil), structureModes...)
	}
}

// HVACMode returns the current mode.
func (c *Climate) HVACMode() string {
	st, ok := c.structure(c.structureID)
	if !ok {
		return translate.ModeOff
	}
	structureMode := translate.StructureModes.ForwardOr(st.String("structure-heat-cool-mode"), translate.ModeOff)

	switch c.variant {
	case VariantRoom:
		room, ok := st.Rooms[c.id]
		if !ok || !room.Bool("active", true) {
			return translate.ModeOff
		}
		if c.policy == RoomPolicyIndependent {
			return translate.ModeAuto
		}
		return structureMode
	case VariantHVAC:
		unit, ok := st.HVACUnits[c.id]
		if !ok || !isOn(unit) {
			return translate.ModeOff
		}
		return translate.UnitModes.ForwardOr(unit.String("mode"), translate.ModeOff)
	default:
		return structureMode
	}
}

// HVACAction returns what an HVAC unit is doing; empty for other variants.
func (c *Climate) HVACAction() string {
	if c.variant != VariantHVAC {
		return ""
	}
	unit, ok := c.resource()
	if !ok || !isOn(unit) {
		return translate.ActionOff
	}
	return translate.UnitActions.ForwardOr(unit.String("mode"), translate.ActionIdle)
}

// TargetTemperature returns the set point in TemperatureUnit.
func (c *Climate) TargetTemperature() *float64 {
	st, ok := c.structure(c.structureID)
	if !ok {
		return nil
	}
	switch c.variant {
	case VariantStructure:
		sp := st.Float("set-point-temperature-c")
		if sp == nil {
			return nil
		}
		if c.imperial {
			return floatPtr(units.CToF(*sp))
		}
		return sp
	case VariantRoom:
		room, ok := st.Rooms[c.id]
		if !ok {
			return nil
		}
		return room.Float("set-point-c")
	case VariantHVAC:
		unit, ok := st.HVACUnits[c.id]
		if !ok {
			return nil
		}
		if roomControlled(st) {
			room, ok := st.Rooms[unit.RelatedID("room")]
			if !ok {
				return nil
			}
			sp := room.Float("set-point-c")
			if sp == nil {
				return nil
			}
			return floatPtr(units.ToScale(*sp, c.TemperatureUnit()))
		}
		return unit.Float("temperature")
	}
	return nil
}

// CurrentTemperature returns the measured temperature in TemperatureUnit.
func (c *Climate) CurrentTemperature() *float64 {
	st, ok := c.structure(c.structureID)
	if !ok {
		return nil
	}
	switch c.variant {
	case VariantRoom:
		room, ok := st.Rooms[c.id]
		if !ok {
			return nil
		}
		return room.Float("current-temperature-c")
	case VariantHVAC:
		unit, ok := st.HVACUnits[c.id]
		if !ok {
			return nil
		}
		var cur *float64
		if room, ok := st.Rooms[unit.RelatedID("room")]; ok {
			cur = room.Float("current-temperature-c")
		}
		if cur == nil {
			if puck, ok := st.Pucks[unit.RelatedID("puck")]; ok {
				cur = puck.Float("current-temperature-c")
			}
		}
		if cur == nil {
			return nil
		}
		return floatPtr(units.ToScale(*cur, c.TemperatureUnit()))
	}
	return nil
}

// CurrentHumidity returns the room humidity for room climates.
func (c *Climate) CurrentHumidity() *float64 {
	if c.variant != VariantRoom {
		return nil
	}
	room, ok := c.resource()
	if !ok {
		return nil
	}
	return room.Float("current-humidity")
}

// FanModes lists fan modes for HVAC units.
func (c *Climate) FanModes() []string {
	if c.variant != VariantHVAC {
		return nil
	}
	return translate.FanSpeeds.HostValues()
}

// FanMode returns the current fan mode for HVAC units.
func (c *Climate) FanMode() string {
	if c.variant != VariantHVAC {
		return ""
	}
	st, unit, ok := c.unitWithStructure()
	if !ok {
		return ""
	}
	if roomControlled(st) {
		if room, ok := st.Rooms[unit.RelatedID("room")]; ok {
			return translate.FanSpeeds.ForwardOr(capitalize(room.String("default-fan-speed")), "auto")
		}
	}
	return translate.FanSpeeds.ForwardOr(unit.String("fan-speed"), "auto")
}

// SwingModes lists swing modes for HVAC units.
func (c *Climate) SwingModes() []string {
	if c.variant != VariantHVAC {
		return nil
	}
	return translate.SwingStates.HostValues()
}

// SwingMode returns the current swing mode for HVAC units.
func (c *Climate) SwingMode() string {
	if c.variant != VariantHVAC {
		return ""
	}
	st, unit, ok := c.unitWithStructure()
	if !ok {
		return ""
	}
	if roomControlled(st) {
		if room, ok := st.Rooms[unit.RelatedID("room")]; ok {
			return translate.SwingStates.ForwardOr(capitalize(room.String("default-swing")), "off")
		}
	}
	return translate.SwingStates.ForwardOr(unit.String("swing"), "off")
}

// Features lists the optional capabilities of this entity.
func (c *Climate) Features() []string {
	switch c.variant {
	case VariantHVAC:
		return []string{FeatureTargetTemperature, FeatureFanMode, FeatureSwingMode, FeatureTurnOn, FeatureTurnOff}
	default:
		return []string{FeatureTargetTemperature, FeatureTurnOn, FeatureTurnOff}
	}
}

// State is the host-facing state document.
func (c *Climate) State() map[string]interface{} {
	state := map[string]interface{}{
		"mode":                c.HVACMode(),
		"modes":               c.HVACModes(),
		"temperature_unit":    c.TemperatureUnit(),
		"target_temperature":  c.TargetTemperature(),
		"current_temperature": c.CurrentTemperature(),
		"available":           c.Available(),
	}
	if h := c.CurrentHumidity(); h != nil {
		state["current_humidity"] = *h
	}
	if c.variant == VariantHVAC {
		state["action"] = c.HVACAction()
		state["fan_mode"] = c.FanMode()
		state["swing_mode"] = c.SwingMode()
	}
	return state
}

// SetHVACMode changes the operating mode.
func (c *Climate) SetHVACMode(ctx context.Context, mode string) error {
	const command = "set_hvac_mode"

	switch c.variant {
	case VariantStructure:
		flairMode := translate.StructureModes.ReverseOr(mode, translate.StructureFloat)
		return c.apply(ctx, command, mode, write{
			path:  model.StructurePath(c.structureID),
			attrs: map[string]interface{}{"structure-heat-cool-mode": flairMode},
		})

	case VariantRoom:
		room, ok := c.resource()
		if !ok {
			return c.reject(command, mode, "room not found")
		}
		roomPath := c.path()

		if mode == translate.ModeOff {
			return c.apply(ctx, command, mode, write{roomPath, map[string]interface{}{"active": false}})
		}

		if c.policy == RoomPolicyIndependent {
			if mode != translate.ModeAuto {
				return c.unsupported(command, mode)
			}
			return c.apply(ctx, command, mode, write{roomPath, map[string]interface{}{"active": true}})
		}

		var writes []write
		if !room.Bool("active", true) {
			writes = append(writes, write{roomPath, map[string]interface{}{"active": true}})
		}
		flairMode := translate.StructureModes.ReverseOr(mode, translate.StructureFloat)
		writes = append(writes, write{
			path:  model.StructurePath(c.structureID),
			attrs: map[string]interface{}{"structure-heat-cool-mode": flairMode},
		})
		return c.apply(ctx, command, mode, writes...)

	case VariantHVAC:
		unit, ok := c.resource()
		if !ok {
			return c.reject(command, mode, "hvac unit not found")
		}
		if mode == translate.ModeOff {
			return c.apply(ctx, command, mode, write{c.path(), map[string]interface{}{"power": translate.PowerOff}})
		}
		writes := c.powerOnWrites(unit)
		writes = append(writes, write{c.path(), map[string]interface{}{
			"mode": translate.UnitModes.ReverseOr(mode, translate.UnitModeOff),
		}})
		return c.apply(ctx, command, mode, writes...)
	}
	return c.unsupported(command, mode)
}

// SetTemperature sets the target temperature, given in TemperatureUnit.
func (c *Climate) SetTemperature(ctx context.Context, temp float64) error {
	const command = "set_temperature"

	st, ok := c.structure(c.structureID)
	if !ok {
		return c.reject(command, temp, "structure not found")
	}

	switch c.variant {
	case VariantStructure:
		if st.String("set-point-mode") == controllerThermostat {
			return c.reject(command, temp, "set point is controlled by a thermostat; switch the set point controller to Flair App")
		}
		tempC := temp
		if c.imperial {
			tempC = units.FToC(temp)
		}
		return c.apply(ctx, command, temp, write{
			path:  model.StructurePath(c.structureID),
			attrs: map[string]interface{}{"set-point-temperature-c": tempC},
		})

	case VariantRoom:
		if _, ok := st.Rooms[c.id]; !ok {
			return c.reject(command, temp, "room not found")
		}
		if st.String("set-point-mode") == controllerThermostat {
			return c.reject(command, temp, "set point is controlled by a thermostat; switch the set point controller to Flair App")
		}
		return c.apply(ctx, command, temp, write{c.path(), map[string]interface{}{
			"set-point-c": temp,
			"active":      true,
		}})

	case VariantHVAC:
		unit, ok := st.HVACUnits[c.id]
		if !ok {
			return c.reject(command, temp, "hvac unit not found")
		}
		if !isOn(unit) {
			return c.fail(command, temp, ErrUnitPoweredOff)
		}
		if roomControlled(st) {
			roomID := unit.RelatedID("room")
			if _, ok := st.Rooms[roomID]; !ok {
				return c.reject(command, temp, "hvac unit has no room to take the set point")
			}
			return c.apply(ctx, command, temp, write{
				path:  model.ChildPath(c.structureID, model.CollectionRooms, roomID),
				attrs: map[string]interface{}{"set-point-c": units.FromScale(temp, c.TemperatureUnit())},
			})
		}
		if m := unit.String("mode"); m == "Fan" || m == "Dry" {
			return c.reject(command, temp, "temperature cannot be set while the unit is in "+m+" mode")
		}
		return c.apply(ctx, command, temp, write{c.path(), map[string]interface{}{"temperature": temp}})
	}
	return c.unsupported(command, temp)
}

// SetFanMode changes an HVAC unit's fan speed.
func (c *Climate) SetFanMode(ctx context.Context, mode string) error {
	const command = "set_fan_mode"
	if c.variant != VariantHVAC {
		return c.unsupported(command, mode)
	}
	flairSpeed, ok := translate.FanSpeeds.Reverse(mode)
	if !ok {
		return c.unsupported(command, mode)
	}
	return c.setUnitOrRoom(ctx, command, mode, "fan-speed", "default-fan-speed", flairSpeed)
}

// SetSwingMode changes an HVAC unit's swing.
func (c *Climate) SetSwingMode(ctx context.Context, mode string) error {
	const command = "set_swing_mode"
	if c.variant != VariantHVAC {
		return c.unsupported(command, mode)
	}
	flairSwing, ok := translate.SwingStates.Reverse(mode)
	if !ok {
		return c.unsupported(command, mode)
	}
	return c.setUnitOrRoom(ctx, command, mode, "swing", "default-swing", flairSwing)
}

// setUnitOrRoom writes a title-cased value to the unit under manual
// control, or an upper-cased value to the related room when the
// structure is in auto mode.
func (c *Climate) setUnitOrRoom(ctx context.Context, command, value, unitKey, roomKey, flairValue string) error {
	st, unit, ok := c.unitWithStructure()
	if !ok {
		return c.reject(command, value, "hvac unit not found")
	}
	if roomControlled(st) {
		roomID := unit.RelatedID("room")
		if _, ok := st.Rooms[roomID]; !ok {
			return c.reject(command, value, "hvac unit has no room")
		}
		return c.apply(ctx, command, value, write{
			path:  model.ChildPath(c.structureID, model.CollectionRooms, roomID),
			attrs: map[string]interface{}{roomKey: upper(flairValue)},
		})
	}
	writes := c.powerOnWrites(unit)
	writes = append(writes, write{c.path(), map[string]interface{}{unitKey: capitalize(flairValue)}})
	return c.apply(ctx, command, value, writes...)
}

// TurnOn switches the entity on.
func (c *Climate) TurnOn(ctx context.Context) error {
	switch c.variant {
	case VariantHVAC:
		return c.apply(ctx, "turn_on", nil, write{c.path(), map[string]interface{}{"power": translate.PowerOn}})
	case VariantRoom:
		return c.apply(ctx, "turn_on", nil, write{c.path(), map[string]interface{}{"active": true}})
	default:
		return c.SetHVACMode(ctx, translate.ModeHeatCool)
	}
}

// TurnOff switches the entity off.
func (c *Climate) TurnOff(ctx context.Context) error {
	return c.SetHVACMode(ctx, translate.ModeOff)
}

func (c *Climate) powerOnWrites(unit *model.Resource) []write {
	if isOn(unit) {
		return nil
	}
	c.logger.Debug("Powering on unit before command", zap.String("unit", unit.ID))
	return []write{{c.path(), map[string]interface{}{"power": translate.PowerOn}}}
}

func (c *Climate) unitWithStructure() (*model.Structure, *model.Resource, bool) {
	st, ok := c.structure(c.structureID)
	if !ok {
		return nil, nil, false
	}
	unit, ok := st.HVACUnits[c.id]
	return st, unit, ok
}

func isOn(unit *model.Resource) bool {
	return unit.String("power") == translate.PowerOn
}

// roomControlled reports whether Flair drives HVAC units through room set
// points rather than direct unit commands.
func roomControlled(st *model.Structure) bool {
	return st.String("mode") == structureAuto
}
