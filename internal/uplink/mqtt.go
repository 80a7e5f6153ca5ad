package uplink

import (
	"context"
	"time"

	"codeberg.org/mutker/buoyctl/internal/errors"
	"codeberg.org/mutker/buoyctl/internal/logger"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	ErrConnectFailed = errors.ErrorCode("uplink_connect_failed")
	ErrPublishFailed = errors.ErrorCode("uplink_publish_failed")

	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // ms
)

// mqttTransport publishes payloads to a broker, standing in for the LoRa
// gateway during bench runs and integration setups.
type mqttTransport struct {
	client mqtt.Client
	topic  string
}

func NewMQTTTransport(broker, topic, clientID string) (Transport, error) {
	errFactory := errors.New()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errFactory.New(ErrConnectFailed).WithMessage("Broker connect timed out")
	}
	if err := token.Error(); err != nil {
		return nil, errFactory.Wrap(ErrConnectFailed, err)
	}

	logger.Info().Str("broker", broker).Str("topic", topic).Msg("MQTT uplink connected")

	return &mqttTransport{
		client: client,
		topic:  topic,
	}, nil
}

func (t *mqttTransport) Publish(ctx context.Context, payload []byte) error {
	errFactory := errors.New()

	token := t.client.Publish(t.topic, 1, false, payload)

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrPublishFailed, ctx.Err())
	case <-token.Done():
	}

	if err := token.Error(); err != nil {
		return errFactory.Wrap(ErrPublishFailed, err)
	}

	return nil
}

func (t *mqttTransport) Close() {
	t.client.Disconnect(disconnectQuiesce)
}
