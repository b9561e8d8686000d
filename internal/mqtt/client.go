// Package mqtt publishes the daemon state to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// disconnectQuiesce is the grace period, in milliseconds, for pending work on disconnect.
const disconnectQuiesce = 250

// Client is the subset of an MQTT client the publisher needs.
type Client interface {
	Connect(ctx context.Context) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Disconnect()
}

type pahoClient struct {
	client pahomqtt.Client
	broker string
}

// NewClient creates a Paho backed client for broker, e.g. "tcp://localhost:1883".
func NewClient(broker, clientID string) Client {
	if clientID == "" {
		clientID = fmt.Sprintf("ambient-brightness-daemon-%d", time.Now().Unix())
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(pahomqtt.Client) {
		log.Info().Str("broker", broker).Msg("Connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	return &pahoClient{
		client: pahomqtt.NewClient(opts),
		broker: broker,
	}
}

// Connect waits for the first connection or for ctx to be done.
func (c *pahoClient) Connect(ctx context.Context) error {
	log.Debug().Str("broker", c.broker).Msg("Connecting to MQTT broker")

	token := c.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("connection aborted: %w", ctx.Err())
	}
}

func (c *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (c *pahoClient) Disconnect() {
	c.client.Disconnect(disconnectQuiesce)
}
