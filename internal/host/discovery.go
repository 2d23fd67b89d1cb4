package host

import (
	"flairbridge/internal/entity"
	"flairbridge/internal/platform"
)

// Topics derives every topic from the configured prefixes.
type Topics struct {
	DiscoveryPrefix string
	Base            string
}

func (t Topics) Discovery(e entity.Entity) string {
	return t.DiscoveryPrefix + "/" + string(e.Platform()) + "/flair/" + e.UniqueID() + "/config"
}

func (t Topics) State(uniqueID string) string {
	return t.Base + "/" + uniqueID + "/state"
}

func (t Topics) Availability(uniqueID string) string {
	return t.Base + "/" + uniqueID + "/availability"
}

func (t Topics) Command(uniqueID, command string) string {
	return t.Base + "/" + uniqueID + "/set/" + command
}

// CommandFilter matches every command topic.
func (t Topics) CommandFilter() string {
	return t.Base + "/+/set/+"
}

// Bridge is the retained online/offline topic for the whole bridge.
func (t Topics) Bridge() string {
	return t.Base + "/status"
}

// HostStatus is where Home Assistant announces its own restarts.
func (t Topics) HostStatus() string {
	return t.DiscoveryPrefix + "/status"
}

const (
	payloadOnline  = "online"
	payloadOffline = "offline"
)

func valueTemplate(key string) string {
	return "{{ value_json." + key + " }}"
}

// discoveryConfig builds the Home Assistant MQTT discovery document for e.
func discoveryConfig(t Topics, e entity.Entity) map[string]interface{} {
	id := e.UniqueID()
	dev := e.Device()
	state := t.State(id)

	cfg := map[string]interface{}{
		"name":      e.Name(),
		"unique_id": id,
		"device": map[string]interface{}{
			"identifiers":  []string{"flair_" + dev.ID},
			"name":         dev.Name,
			"manufacturer": dev.Manufacturer,
			"model":        dev.Model,
		},
		"availability": []map[string]string{
			{"topic": t.Bridge()},
			{"topic": t.Availability(id)},
		},
		"availability_mode":  "all",
		"enabled_by_default": e.EnabledByDefault(),
	}
	if cat := e.Category(); cat != entity.CategoryNone {
		cfg["entity_category"] = cat
	}

	switch v := e.(type) {
	case *entity.Climate:
		cfg["modes"] = v.HVACModes()
		cfg["mode_state_topic"] = state
		cfg["mode_state_template"] = valueTemplate("mode")
		cfg["mode_command_topic"] = t.Command(id, platform.CommandMode)
		cfg["temperature_state_topic"] = state
		cfg["temperature_state_template"] = valueTemplate("target_temperature")
		cfg["temperature_command_topic"] = t.Command(id, platform.CommandTemperature)
		cfg["current_temperature_topic"] = state
		cfg["current_temperature_template"] = valueTemplate("current_temperature")
		cfg["temperature_unit"] = v.TemperatureUnit()
		cfg["power_command_topic"] = t.Command(id, platform.CommandPower)
		cfg["payload_on"] = "on"
		cfg["payload_off"] = "off"
		if v.TemperatureUnit() == "F" {
			cfg["precision"] = 1.0
		} else {
			cfg["precision"] = 0.5
		}
		if v.Variant() == entity.VariantRoom {
			cfg["current_humidity_topic"] = state
			cfg["current_humidity_template"] = valueTemplate("current_humidity")
		}
		if v.Variant() == entity.VariantHVAC {
			cfg["action_topic"] = state
			cfg["action_template"] = valueTemplate("action")
			cfg["fan_modes"] = v.FanModes()
			cfg["fan_mode_state_topic"] = state
			cfg["fan_mode_state_template"] = valueTemplate("fan_mode")
			cfg["fan_mode_command_topic"] = t.Command(id, platform.CommandFanMode)
			cfg["swing_modes"] = v.SwingModes()
			cfg["swing_mode_state_topic"] = state
			cfg["swing_mode_state_template"] = valueTemplate("swing_mode")
			cfg["swing_mode_command_topic"] = t.Command(id, platform.CommandSwingMode)
		}

	case *entity.Select:
		cfg["options"] = v.Options()
		cfg["state_topic"] = state
		cfg["value_template"] = valueTemplate("option")
		cfg["command_topic"] = t.Command(id, platform.CommandOption)

	case *entity.Sensor:
		cfg["state_topic"] = state
		cfg["value_template"] = valueTemplate("value")
		if u := v.Unit(); u != "" {
			cfg["unit_of_measurement"] = u
		}
		if dc := v.DeviceClass(); dc != "" {
			cfg["device_class"] = dc
		}
		if sc := v.StateClass(); sc != "" {
			cfg["state_class"] = sc
		}
	}
	return cfg
}
