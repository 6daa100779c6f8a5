package consumer

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// uplinkTopic matches every device uplink event of every application.
const uplinkTopic = "application/+/device/+/event/up"

// UplinkHandler processes one parsed uplink event. Errors are logged by the
// consumer; the MQTT message is acked either way.
type UplinkHandler func(ctx context.Context, event *UplinkEvent) error

// Consumer subscribes to the ChirpStack MQTT bridge and feeds uplink events
// to the handler.
type Consumer struct {
	client  mqtt.Client
	handler UplinkHandler
	logger  *zap.Logger
}

// Options configure the MQTT connection.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// NewConsumer creates a Consumer. The connection is established by Start.
func NewConsumer(opts Options, handler UplinkHandler, logger *zap.Logger) *Consumer {
	c := &Consumer{handler: handler, logger: logger}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(false).
		SetOnConnectHandler(func(client mqtt.Client) {
			logger.Info("mqtt connected, subscribing", zap.String("topic", uplinkTopic))
			token := client.Subscribe(uplinkTopic, 0, c.onMessage)
			token.Wait()
			if err := token.Error(); err != nil {
				logger.Error("mqtt subscribe failed", zap.Error(err))
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})

	c.client = mqtt.NewClient(clientOpts)
	return c
}

// Start connects to the broker. The subscription is (re-)established on
// every connect.
func (c *Consumer) Start(ctx context.Context) error {
	token := c.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	return nil
}

// Stop disconnects from the broker, allowing in-flight handlers to finish.
func (c *Consumer) Stop() {
	c.client.Disconnect(250)
}

func (c *Consumer) onMessage(_ mqtt.Client, msg mqtt.Message) {
	event, err := ParseUplink(msg.Payload(), time.Now().UTC())
	if err != nil {
		c.logger.Warn("dropping unparseable uplink",
			zap.String("topic", msg.Topic()),
			zap.Error(err))
		return
	}

	if err := c.handler(context.Background(), event); err != nil {
		c.logger.Error("uplink handling failed",
			zap.String("dev_eui", event.DeviceInfo.DevEUI),
			zap.Error(err))
	}
}
