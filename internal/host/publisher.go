// Package host exposes entities to Home Assistant over MQTT discovery and
// routes command topics back to them.
package host

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flairbridge/internal/entity"
	"flairbridge/internal/platform"

	"go.uber.org/zap"
)

const commandTimeout = 30 * time.Second

// Entities is the live entity list the publisher serves.
type Entities interface {
	Get(uniqueID string) (entity.Entity, bool)
	All() []entity.Entity
}

// Publisher mirrors entity state to MQTT and applies incoming commands.
type Publisher struct {
	transport Transport
	entities  Entities
	topics    Topics
	logger    *zap.Logger
}

// NewPublisher creates a publisher over transport.
func NewPublisher(transport Transport, entities Entities, topics Topics, logger *zap.Logger) *Publisher {
	return &Publisher{
		transport: transport,
		entities:  entities,
		topics:    topics,
		logger:    logger.Named("host"),
	}
}

// Start connects and announces every entity.
func (p *Publisher) Start() error {
	p.logger.Info("Starting MQTT publisher",
		zap.String("discovery_prefix", p.topics.DiscoveryPrefix),
		zap.String("base_topic", p.topics.Base))

	if err := p.transport.Connect(p.onConnect); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop marks the bridge offline and disconnects.
func (p *Publisher) Stop() {
	p.publish(p.topics.Bridge(), true, []byte(payloadOffline))
	p.transport.Disconnect()
	p.logger.Info("MQTT publisher stopped")
}

func (p *Publisher) onConnect() {
	if err := p.transport.Subscribe(p.topics.CommandFilter(), p.handleCommand); err != nil {
		p.logger.Error("Failed to subscribe to commands", zap.Error(err))
	}
	if err := p.transport.Subscribe(p.topics.HostStatus(), p.handleHostStatus); err != nil {
		p.logger.Error("Failed to subscribe to host status", zap.Error(err))
	}
	p.publish(p.topics.Bridge(), true, []byte(payloadOnline))
	p.PublishDiscovery(p.entities.All())
	p.PublishStates()
}

// PublishDiscovery sends retained discovery configs for entities.
func (p *Publisher) PublishDiscovery(entities []entity.Entity) {
	for _, e := range entities {
		p.publishJSON(p.topics.Discovery(e), true, discoveryConfig(p.topics, e))
	}
	p.logger.Debug("Published discovery", zap.Int("entities", len(entities)))
}

// PublishStates sends the state and availability of every entity.
func (p *Publisher) PublishStates() {
	for _, e := range p.entities.All() {
		p.publishState(e)
	}
}

// EntityChanged publishes the new state of e.
func (p *Publisher) EntityChanged(e entity.Entity) {
	p.publishState(e)
}

func (p *Publisher) publishState(e entity.Entity) {
	id := e.UniqueID()
	availability := payloadOffline
	if e.Available() {
		availability = payloadOnline
	}
	p.publish(p.topics.Availability(id), true, []byte(availability))
	p.publishJSON(p.topics.State(id), true, e.State())
}

func (p *Publisher) handleHostStatus(_ string, payload []byte) {
	if strings.TrimSpace(string(payload)) != payloadOnline {
		return
	}
	p.logger.Info("Home Assistant came online, republishing discovery")
	p.PublishDiscovery(p.entities.All())
	p.PublishStates()
}

func (p *Publisher) handleCommand(topic string, payload []byte) {
	uniqueID, command, ok := p.parseCommandTopic(topic)
	if !ok {
		p.logger.Warn("Ignoring malformed command topic", zap.String("topic", topic))
		return
	}

	e, ok := p.entities.Get(uniqueID)
	if !ok {
		p.logger.Warn("Command for unknown entity", zap.String("entity", uniqueID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := platform.Command{Name: command, Value: string(payload)}
	if err := platform.Dispatch(ctx, e, cmd); err != nil {
		p.logger.Error("Command failed",
			zap.String("entity", uniqueID),
			zap.String("command", command),
			zap.String("value", cmd.Value),
			zap.Error(err))
		// Republish so the host drops its optimistic value.
		p.publishState(e)
	}
}

// parseCommandTopic splits "<base>/<unique_id>/set/<command>".
func (p *Publisher) parseCommandTopic(topic string) (string, string, bool) {
	rest, ok := strings.CutPrefix(topic, p.topics.Base+"/")
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "set" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

func (p *Publisher) publishJSON(topic string, retained bool, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("Failed to encode payload", zap.String("topic", topic), zap.Error(err))
		return
	}
	p.publish(topic, retained, payload)
}

func (p *Publisher) publish(topic string, retained bool, payload []byte) {
	if err := p.transport.Publish(topic, retained, payload); err != nil {
		p.logger.Warn("Failed to publish", zap.String("topic", topic), zap.Error(err))
	}
}
