package mqtt

import (
	"context"
	"fmt"
	"strconv"

	"smart_climate/internal/climate"
	"smart_climate/internal/logger"
)

// Commander publishes device commands as retained messages.
type Commander struct {
	client Client
	prefix string
	qos    byte
	log    *logger.Logger
}

// NewCommander publishes under prefix, e.g. "climate" gives "climate/<device>/mode/set".
func NewCommander(client Client, prefix string, qos byte, log *logger.Logger) *Commander {
	if log == nil {
		log = logger.Nop()
	}
	return &Commander{client: client, prefix: prefix, qos: qos, log: log.Named("mqtt_commands")}
}

func (c *Commander) SetHVACMode(ctx context.Context, deviceID string, mode climate.Mode) error {
	return c.publish(ctx, ModeTopic(c.prefix, deviceID), []byte(mode.String()))
}

func (c *Commander) SetTemperature(ctx context.Context, deviceID string, tempC float64) error {
	return c.publish(ctx, TemperatureTopic(c.prefix, deviceID), []byte(strconv.FormatFloat(tempC, 'f', 1, 64)))
}

func (c *Commander) publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", climate.ErrCommandFailed, err)
	}
	if err := c.client.Publish(topic, c.qos, true, payload); err != nil {
		c.log.Errorw("publish_failed", "topic", topic, "err", err)
		return fmt.Errorf("%w: %v", climate.ErrCommandFailed, err)
	}
	c.log.Infow("command_published", "topic", topic, "payload", string(payload))
	return nil
}

var _ climate.DeviceCommander = (*Commander)(nil)
