package host

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"flairbridge/internal/entity"
	"flairbridge/internal/flair"
	"flairbridge/internal/model"
	"flairbridge/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeTransport struct {
	mu         sync.Mutex
	published  []message
	handlers   map[string]MessageHandler
	connectErr error
	connected  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]MessageHandler)}
}

func (f *fakeTransport) Connect(onConnect func()) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	onConnect()
	return nil
}

func (f *fakeTransport) Publish(topic string, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message{topic, retained, payload})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

// deliver routes a message to the handler whose filter matches topic.
func (f *fakeTransport) deliver(filter, topic, payload string) {
	f.mu.Lock()
	h := f.handlers[filter]
	f.mu.Unlock()
	h(topic, []byte(payload))
}

func (f *fakeTransport) last(topic string) (message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.published) - 1; i >= 0; i-- {
		if f.published[i].topic == topic {
			return f.published[i], true
		}
	}
	return message{}, false
}

func (f *fakeTransport) count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.published {
		if m.topic == topic {
			n++
		}
	}
	return n
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = nil
}

type harness struct {
	transport *fakeTransport
	gateway   *flair.MockClient
	store     *model.Store
	set       *platform.Set
	publisher *Publisher
	topics    Topics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	snap := model.NewSnapshot()
	st := model.NewStructure("s1")
	st.Attributes["name"] = "Home"
	st.Attributes["mode"] = "auto"
	st.Attributes["structure-heat-cool-mode"] = "heat"
	st.Attributes["set-point-temperature-c"] = 21.0
	unit := model.NewResource(model.TypeHVACUnits, "h1")
	unit.Attributes["name"] = "Mini Split"
	unit.Attributes["power"] = "Off"
	unit.Attributes["constraints"] = map[string]interface{}{"temperature-scale": "C"}
	_ = st.Add(model.CollectionHVACUnits, unit)
	puck := model.NewResource(model.TypePucks, "p1")
	puck.Attributes["name"] = "Puck"
	puck.Attributes["voltage"] = 3.0
	puck.Attributes["current-rssi"] = -55.0
	_ = st.Add(model.CollectionPucks, puck)
	snap.AddStructure(st)

	store := model.NewStore(logger)
	store.Replace(snap)
	gateway := flair.NewMockClient()
	transport := newFakeTransport()
	set := platform.NewSet()
	topics := Topics{DiscoveryPrefix: "homeassistant", Base: "flairbridge"}

	publisher := NewPublisher(transport, set, topics, logger)
	deps := entity.Deps{Store: store, Gateway: gateway, Notifier: publisher, Logger: logger}
	set.Merge([]entity.Entity{
		entity.NewStructureClimate(deps, "s1", false),
		entity.NewHVACClimate(deps, "s1", "h1"),
		entity.NewStructureSelect(deps, entity.SelectSystemMode, "s1"),
		entity.NewSensor(deps, entity.SensorPuckRSSI, "s1", "p1"),
	})

	return &harness{transport, gateway, store, set, publisher, topics}
}

func decode(t *testing.T, m message) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(m.payload, &out))
	return out
}

func TestTopics(t *testing.T) {
	h := newHarness(t)
	e, _ := h.set.Get("s1_climate")

	assert.Equal(t, "homeassistant/climate/flair/s1_climate/config", h.topics.Discovery(e))
	assert.Equal(t, "flairbridge/s1_climate/state", h.topics.State("s1_climate"))
	assert.Equal(t, "flairbridge/s1_climate/availability", h.topics.Availability("s1_climate"))
	assert.Equal(t, "flairbridge/s1_climate/set/mode", h.topics.Command("s1_climate", "mode"))
	assert.Equal(t, "flairbridge/+/set/+", h.topics.CommandFilter())
}

func TestStart_PublishesDiscoveryAndState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())

	bridge, ok := h.transport.last("flairbridge/status")
	require.True(t, ok)
	assert.Equal(t, "online", string(bridge.payload))
	assert.True(t, bridge.retained)

	for _, e := range h.set.All() {
		msg, ok := h.transport.last(h.topics.Discovery(e))
		require.True(t, ok, e.UniqueID())
		assert.True(t, msg.retained)
		_, ok = h.transport.last(h.topics.State(e.UniqueID()))
		assert.True(t, ok, e.UniqueID())
	}

	assert.Contains(t, h.transport.handlers, "flairbridge/+/set/+")
	assert.Contains(t, h.transport.handlers, "homeassistant/status")
}

func TestStart_ConnectError(t *testing.T) {
	h := newHarness(t)
	h.transport.connectErr = errors.New("refused")
	assert.Error(t, h.publisher.Start())
}

func TestDiscoveryConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())

	t.Run("structure climate", func(t *testing.T) {
		e, _ := h.set.Get("s1_climate")
		msg, _ := h.transport.last(h.topics.Discovery(e))
		cfg := decode(t, msg)

		assert.Equal(t, "s1_climate", cfg["unique_id"])
		assert.Equal(t, "flairbridge/s1_climate/set/mode", cfg["mode_command_topic"])
		assert.Equal(t, "flairbridge/s1_climate/set/temperature", cfg["temperature_command_topic"])
		assert.Equal(t, []interface{}{"off", "cool", "heat", "heat_cool"}, cfg["modes"])
		assert.Equal(t, "C", cfg["temperature_unit"])
		assert.NotContains(t, cfg, "fan_modes")
		device := cfg["device"].(map[string]interface{})
		assert.Equal(t, []interface{}{"flair_s1"}, device["identifiers"])
	})

	t.Run("hvac climate", func(t *testing.T) {
		e, _ := h.set.Get("h1_hvac_unit")
		msg, _ := h.transport.last(h.topics.Discovery(e))
		cfg := decode(t, msg)

		assert.Equal(t, "flairbridge/h1_hvac_unit/set/fan_mode", cfg["fan_mode_command_topic"])
		assert.Equal(t, "flairbridge/h1_hvac_unit/set/swing_mode", cfg["swing_mode_command_topic"])
		assert.Equal(t, []interface{}{"auto", "low", "medium", "high"}, cfg["fan_modes"])
		assert.Equal(t, "{{ value_json.action }}", cfg["action_template"])
	})

	t.Run("select", func(t *testing.T) {
		e, _ := h.set.Get("s1_system_mode")
		msg, _ := h.transport.last(h.topics.Discovery(e))
		cfg := decode(t, msg)

		assert.Equal(t, "homeassistant/select/flair/s1_system_mode/config", msg.topic)
		assert.Equal(t, []interface{}{"Auto", "Manual"}, cfg["options"])
		assert.Equal(t, "flairbridge/s1_system_mode/set/option", cfg["command_topic"])
	})

	t.Run("diagnostic sensor", func(t *testing.T) {
		e, _ := h.set.Get("p1_rssi")
		msg, _ := h.transport.last(h.topics.Discovery(e))
		cfg := decode(t, msg)

		assert.Equal(t, "dBm", cfg["unit_of_measurement"])
		assert.Equal(t, "signal_strength", cfg["device_class"])
		assert.Equal(t, "diagnostic", cfg["entity_category"])
		assert.Equal(t, false, cfg["enabled_by_default"])
	})
}

func TestCommand_AppliesAndPublishesState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())
	h.transport.reset()

	h.transport.deliver("flairbridge/+/set/+", "flairbridge/s1_climate/set/mode", "cool")

	calls := h.gateway.GetUpdates()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]interface{}{"structure-heat-cool-mode": "cool"}, calls[0].Attributes)

	msg, ok := h.transport.last("flairbridge/s1_climate/state")
	require.True(t, ok, "the entity notifier publishes the new state")
	assert.Equal(t, "cool", decode(t, msg)["mode"])
}

func TestCommand_FailureRepublishesState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())
	h.transport.reset()

	h.transport.deliver("flairbridge/+/set/+", "flairbridge/h1_hvac_unit/set/temperature", "22")

	assert.Empty(t, h.gateway.GetUpdates())
	msg, ok := h.transport.last("flairbridge/h1_hvac_unit/state")
	require.True(t, ok)
	assert.Equal(t, "off", decode(t, msg)["mode"])
}

func TestCommand_Ignored(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())
	h.transport.reset()

	h.transport.deliver("flairbridge/+/set/+", "flairbridge/nope/set/mode", "cool")
	h.transport.deliver("flairbridge/+/set/+", "flairbridge/s1_climate/get/mode", "cool")
	h.transport.deliver("flairbridge/+/set/+", "other/s1_climate/set/mode", "cool")

	assert.Empty(t, h.gateway.GetUpdates())
}

func TestHostBirth_Republishes(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())
	e, _ := h.set.Get("s1_climate")
	topic := h.topics.Discovery(e)
	before := h.transport.count(topic)

	h.transport.deliver("homeassistant/status", "homeassistant/status", "offline")
	assert.Equal(t, before, h.transport.count(topic))

	h.transport.deliver("homeassistant/status", "homeassistant/status", "online")
	assert.Equal(t, before+1, h.transport.count(topic))
}

func TestAvailability(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())

	msg, ok := h.transport.last("flairbridge/s1_climate/availability")
	require.True(t, ok)
	assert.Equal(t, "online", string(msg.payload))

	require.NoError(t, h.store.Patch(model.StructurePath("s1"), map[string]interface{}{"mode": "manual"}))
	h.publisher.PublishStates()

	msg, _ = h.transport.last("flairbridge/s1_climate/availability")
	assert.Equal(t, "offline", string(msg.payload))
}

func TestStop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.publisher.Start())
	h.publisher.Stop()

	msg, ok := h.transport.last("flairbridge/status")
	require.True(t, ok)
	assert.Equal(t, "offline", string(msg.payload))
	assert.False(t, h.transport.connected)
}
