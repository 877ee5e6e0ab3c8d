// Package mqtt bridges device readings published over MQTT into the
// ingest pipeline. Devices publish one JSON reading at a time to
// vitals/<deviceID>/readings.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	device "vitals-cloud/internal/device/domain"
	"vitals-cloud/internal/measurement/application"
	measurement "vitals-cloud/internal/measurement/domain"
)

const (
	topicFilter    = "vitals/+/readings"
	subscribeQoS   = 1
	handlerTimeout = 10 * time.Second
)

// Consumer subscribes to the readings topic and feeds the ingest
// service. The topic device id is authenticated against the registry;
// the payload device id must match it, same as the HTTP path.
type Consumer struct {
	client  mqtt.Client
	ingest  *application.IngestService
	devices device.Repository
	logger  *log.Logger
}

// NewConsumer connects to the broker and constructs a consumer.
func NewConsumer(brokerURL, clientID string, ingest *application.IngestService, devices device.Repository, logger *log.Logger) (*Consumer, error) {
	if brokerURL == "" {
		return nil, errors.New("mqtt consumer: empty broker url")
	}
	if ingest == nil || devices == nil {
		return nil, errors.New("mqtt consumer: nil dependencies")
	}
	if logger == nil {
		logger = log.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt consumer: connect: %w", token.Error())
	}
	return &Consumer{client: client, ingest: ingest, devices: devices, logger: logger}, nil
}

// Start subscribes to the readings topic.
func (c *Consumer) Start() error {
	token := c.client.Subscribe(topicFilter, subscribeQoS, func(_ mqtt.Client, msg mqtt.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()
		if err := c.handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			c.logger.Printf("mqtt ingest: %s: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt consumer: subscribe: %w", token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (c *Consumer) Close() {
	if c != nil && c.client != nil {
		c.client.Disconnect(250)
	}
}

type readingMessage struct {
	DeviceID   string     `json:"deviceId"`
	HeartRate  *int       `json:"heartRate"`
	SpO2       *int       `json:"spO2"`
	Timestamp  *time.Time `json:"timestamp"`
	Quality    string     `json:"quality"`
	Confidence *float64   `json:"confidence"`
}

func (c *Consumer) handle(ctx context.Context, topic string, payload []byte) error {
	deviceID, err := deviceIDFromTopic(topic)
	if err != nil {
		return err
	}

	registered, err := c.devices.Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return fmt.Errorf("unknown device %q", deviceID)
		}
		return err
	}

	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if msg.DeviceID == "" || msg.HeartRate == nil || msg.SpO2 == nil {
		return fmt.Errorf("%w: deviceId, heartRate and spO2 are required", measurement.ErrInvalidInput)
	}

	_, err = c.ingest.Ingest(ctx, measurement.DeviceContext{DeviceID: registered.ID, UserID: registered.UserID}, application.IngestRequest{
		DeviceID:   msg.DeviceID,
		HeartRate:  *msg.HeartRate,
		SpO2:       *msg.SpO2,
		Timestamp:  msg.Timestamp,
		Quality:    msg.Quality,
		Confidence: msg.Confidence,
	})
	return err
}

func deviceIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "vitals" || parts[2] != "readings" || parts[1] == "" {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	return parts[1], nil
}
