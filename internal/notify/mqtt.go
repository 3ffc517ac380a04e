package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const connectTimeout = 10 * time.Second

// MQTTOptions configures the MQTT notifier.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
}

// Publisher is the part of mqtt.Client the notifier uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes events as retained JSON messages under a topic prefix:
// power toggles on <prefix>/power and playback changes on <prefix>/playback.
type MQTT struct {
	client Publisher
	prefix string
}

// NewMQTT wraps an existing client.
func NewMQTT(client Publisher, prefix string) *MQTT {
	return &MQTT{client: client, prefix: prefix}
}

// DialMQTT connects to the broker and returns a notifier and the client,
// which the caller disconnects on shutdown.
func DialMQTT(opts MQTTOptions) (*MQTT, mqtt.Client, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	c := mqtt.NewClient(co)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, nil, fmt.Errorf("connect to %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", opts.Broker, err)
	}

	return NewMQTT(c, opts.TopicPrefix), c, nil
}

// Topic returns the topic an event kind is published on.
func (m *MQTT) Topic(kind Kind) (string, error) {
	switch kind {
	case KindPowerToggled:
		return m.prefix + "/power", nil
	case KindPlaybackChanged:
		return m.prefix + "/playback", nil
	default:
		return "", fmt.Errorf("no topic for event kind %q", kind)
	}
}

// Notify publishes ev and waits for the broker acknowledgement or ctx.
func (m *MQTT) Notify(ctx context.Context, ev Event) error {
	topic, err := m.Topic(ev.Kind)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	token := m.client.Publish(topic, 1, true, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
