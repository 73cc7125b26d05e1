// Package mqtt publishes fetch activity events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/config"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
	connectPoll    = 200 * time.Millisecond
)

var errNotConnected = errors.New("mqtt client not connected")

// Publisher implements dashboard.EventPublisher over an MQTT connection.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

// NewPublisher builds an auto-reconnecting client for the configured broker.
// Call Connect before publishing.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	return newPublisher(mqtt.NewClient(opts), cfg.MQTTTopic, logger)
}

func newPublisher(client mqtt.Client, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, topic: topic, logger: logger}
}

// Connect waits for the initial connection or ctx cancellation.
func (p *Publisher) Connect(ctx context.Context) error {
	if p.client.IsConnected() {
		return nil
	}
	token := p.client.Connect()
	for {
		if token.WaitTimeout(connectPoll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Publish sends the event as JSON with QoS 1.
func (p *Publisher) Publish(ctx context.Context, event domain.FetchCompleted) error {
	if !p.client.IsConnected() {
		return errNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal fetch event: %w", err)
	}

	token := p.client.Publish(p.topic, qos, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish timeout for topic %s", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish fetch event: %w", err)
	}

	p.logger.Debug("fetch event published", "topic", p.topic, "filters", event.Filters.Key())
	return nil
}

// Close disconnects, letting in-flight messages drain for 250ms.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
