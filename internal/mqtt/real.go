package mqtt

import (
	"fmt"
	"sync"
	"time"

	"smart_climate/internal/logger"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures the broker connection.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client paho.Client
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewRealClient connects to the broker. Subscriptions are restored on every reconnect.
func NewRealClient(o Options, log *logger.Logger) (*RealClient, error) {
	if log == nil {
		log = logger.Nop()
	}
	c := &RealClient{log: log.Named("mqtt"), subs: map[string]subscription{}}

	clientID := o.ClientID
	if clientID == "" {
		clientID = "smart-climate"
	}
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(clientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(60 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to broker %s: timeout", o.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %w", o.Broker, err)
	}
	c.log.Infow("mqtt_connected", "broker", o.Broker, "client_id", clientID)
	return c, nil
}

func (c *RealClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *RealClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return c.subscribe(c.client, topic, qos, handler)
}

func (c *RealClient) subscribe(client paho.Client, topic string, qos byte, handler MessageHandler) error {
	token := client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for k, v := range c.subs {
		subs[k] = v
	}
	c.mu.Unlock()

	for topic, s := range subs {
		if err := c.subscribe(client, topic, s.qos, s.handler); err != nil {
			c.log.Errorw("mqtt_resubscribe_failed", "topic", topic, "err", err)
		}
	}
}

func (c *RealClient) onConnectionLost(_ paho.Client, err error) {
	c.log.Warnw("mqtt_connection_lost", "err", err)
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
