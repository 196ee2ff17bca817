package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/wheelibin/hughbridge/internal/concurrency"
	"github.com/wheelibin/hughbridge/internal/models"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
	publishInterval   = 10 * time.Millisecond
	queueSize         = 64
)

// ErrNotQueued is returned by Apply when the broker is not keeping up or the publisher is closed.
var ErrNotQueued = errors.New("publish queue full or closed")

// Client is the part of the paho client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
	Retain   bool
}

type statePayload struct {
	Name      string `json:"name"`
	UniqueID  string `json:"uniqueid"`
	On        bool   `json:"on"`
	Bri       uint8  `json:"bri"`
	Hue       uint16 `json:"hue"`
	Sat       uint8  `json:"sat"`
	CT        uint16 `json:"ct"`
	ColorMode string `json:"colormode"`
}

// Publisher sends each light's state to an MQTT broker so real hardware can follow
// the emulated lights. Publishing happens off the caller's goroutine.
type Publisher struct {
	logger *log.Logger
	client Client
	cfg    Config
	worker *concurrency.ThrottledWorker[models.StateChange]
}

// Connect dials the broker and returns a publisher using it.
func Connect(cfg Config, logger *log.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("Connected to MQTT broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("Lost connection to MQTT broker", "broker", cfg.Broker, "err", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("Error connecting to MQTT broker (%s): timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("Error connecting to MQTT broker (%s): %w", cfg.Broker, err)
	}

	return New(client, cfg, logger), nil
}

func New(client Client, cfg Config, logger *log.Logger) *Publisher {
	p := &Publisher{logger: logger, client: client, cfg: cfg}
	p.worker = concurrency.NewThrottledWorker(publishInterval, queueSize, p.publish, func(change models.StateChange, err error) {
		p.logger.Error("Error publishing light state", "light", change.LightNumber(), "err", err)
	})
	return p
}

func (p *Publisher) Name() string { return "mqtt" }

// Apply queues change for publishing.
func (p *Publisher) Apply(change models.StateChange) error {
	if !p.worker.Submit(change) {
		return fmt.Errorf("Error queueing state for light (%d): %w", change.LightNumber(), ErrNotQueued)
	}
	return nil
}

// Topic is where the state of the light at index is published.
func (p *Publisher) Topic(index int) string {
	return fmt.Sprintf("%s/lights/%d/state", p.cfg.Topic, index+1)
}

// Close publishes anything still queued and disconnects.
func (p *Publisher) Close() {
	p.worker.Stop()
	p.client.Disconnect(disconnectQuiesce)
}

func (p *Publisher) publish(change models.StateChange) error {
	s := change.State
	payload, err := json.Marshal(statePayload{
		Name:      change.Name,
		UniqueID:  change.UniqueID,
		On:        s.On,
		Bri:       s.Brightness,
		Hue:       s.Hue,
		Sat:       s.Saturation,
		CT:        s.ColorTemperature,
		ColorMode: s.ColorMode.Label(),
	})
	if err != nil {
		return fmt.Errorf("Error encoding state for light (%d): %w", change.LightNumber(), err)
	}

	topic := p.Topic(change.Index)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("Error publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("Error publishing to %s: %w", topic, err)
	}

	p.logger.Debug("published light state", "topic", topic)
	return nil
}
