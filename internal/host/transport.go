package host

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageHandler receives a message on a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Transport is the MQTT surface the publisher needs.
type Transport interface {
	// Connect dials the broker. onConnect runs after every successful
	// connect, including reconnects, and must restore subscriptions.
	Connect(onConnect func()) error
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, handler MessageHandler) error
	Disconnect()
}

// BrokerConfig describes the MQTT broker connection.
type BrokerConfig struct {
	Broker   string
	Username string
	Password string
	ClientID string
	// WillTopic receives WillPayload, retained, if the connection drops.
	WillTopic   string
	WillPayload string
}

// PahoTransport implements Transport with the Eclipse Paho client.
type PahoTransport struct {
	cfg    BrokerConfig
	logger *zap.Logger

	mu     sync.Mutex
	client mqtt.Client
}

var errNotConnected = errors.New("mqtt client not connected")

func (t *PahoTransport) current() mqtt.Client {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client
}

// NewPahoTransport creates a transport. An empty ClientID gets a random one.
func NewPahoTransport(cfg BrokerConfig, logger *zap.Logger) *PahoTransport {
	if cfg.ClientID == "" {
		cfg.ClientID = "flairbridge-" + uuid.NewString()
	}
	return &PahoTransport{cfg: cfg, logger: logger.Named("mqtt")}
}

func (t *PahoTransport) Connect(onConnect func()) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.cfg.Broker)
	opts.SetClientID(t.cfg.ClientID)
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
	}
	if t.cfg.Password != "" {
		opts.SetPassword(t.cfg.Password)
	}
	if t.cfg.WillTopic != "" {
		opts.SetWill(t.cfg.WillTopic, t.cfg.WillPayload, 1, true)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetCleanSession(true)
	// Command handlers publish state; ordered delivery would block them.
	opts.SetOrderMatters(false)
	opts.OnConnect = func(_ mqtt.Client) {
		t.logger.Info("Connected to MQTT broker", zap.String("broker", t.cfg.Broker))
		if onConnect != nil {
			onConnect()
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		t.logger.Warn("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	// With connect retry the token completes once connected or after Disconnect.
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return nil
}

func (t *PahoTransport) Publish(topic string, retained bool, payload []byte) error {
	client := t.current()
	if client == nil {
		return errNotConnected
	}
	token := client.Publish(topic, 1, retained, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (t *PahoTransport) Subscribe(topic string, handler MessageHandler) error {
	client := t.current()
	if client == nil {
		return errNotConnected
	}
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (t *PahoTransport) Disconnect() {
	if client := t.current(); client != nil {
		client.Disconnect(250)
	}
}
