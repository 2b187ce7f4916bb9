package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTConfig configures the live MQTT subscriber.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // samples arrive on <prefix>/<patient>/<date>/<HH:MM:SS>
	Patient     string
	QoS         byte
}

// MQTTSubscriber receives appended samples from an MQTT broker. Each sample is
// published to its own topic whose last segment is the timestamp label and
// whose payload is the JSON sample.
type MQTTSubscriber struct {
	client paho.Client
	cfg    MQTTConfig
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]mqttRoute // subscription ID -> route
}

type mqttRoute struct {
	filter string
	fn     paho.MessageHandler
}

// NewMQTTSubscriber connects to the broker. Subscriptions are restored after
// automatic reconnects.
func NewMQTTSubscriber(cfg MQTTConfig, logger *zap.Logger) (*MQTTSubscriber, error) {
	s := &MQTTSubscriber{
		cfg:    cfg,
		logger: logger,
		active: make(map[string]mqttRoute),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	s.client = paho.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connect to broker %s: timeout: %w", cfg.Broker, ErrConnection)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker %s: %v: %w", cfg.Broker, err, ErrConnection)
	}
	return s, nil
}

// onConnect re-subscribes active routes; a clean session drops them on reconnect.
func (s *MQTTSubscriber) onConnect(c paho.Client) {
	s.mu.Lock()
	routes := make([]mqttRoute, 0, len(s.active))
	for _, r := range s.active {
		routes = append(routes, r)
	}
	s.mu.Unlock()

	for _, r := range routes {
		token := c.Subscribe(r.filter, s.cfg.QoS, r.fn)
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			s.logger.Warn("mqtt resubscribe failed", zap.String("topic", r.filter), zap.Error(token.Error()))
		}
	}
	s.logger.Info("mqtt connected", zap.String("broker", s.cfg.Broker), zap.Int("routes", len(routes)))
}

// TopicFilter returns the subscription filter for date.
func (s *MQTTSubscriber) TopicFilter(date string) string {
	return topicFilter(s.cfg.TopicPrefix, s.cfg.Patient, date)
}

func topicFilter(prefix, patient, date string) string {
	return fmt.Sprintf("%s/%s/%s/+", strings.TrimSuffix(prefix, "/"), patient, date)
}

// parseAppend turns a received message into a Sample. The timestamp is the
// last topic segment.
func parseAppend(date, topic string, payload []byte) (Sample, error) {
	i := strings.LastIndexByte(topic, '/')
	label := topic[i+1:]
	if !ValidTimestamp(label) {
		return Sample{}, fmt.Errorf("topic %s: malformed timestamp %q", topic, label)
	}
	raw, err := DecodeSample(payload)
	if err != nil {
		return Sample{}, fmt.Errorf("topic %s: %w", topic, err)
	}
	return Sample{Date: date, Timestamp: label, Raw: raw}, nil
}

// SubscribeAppend delivers samples published for date. paho delivers in order
// on a single goroutine when order matters, which preserves append order.
func (s *MQTTSubscriber) SubscribeAppend(ctx context.Context, date string, fn OnSample) (Subscription, error) {
	filter := s.TopicFilter(date)
	handler := func(_ paho.Client, msg paho.Message) {
		sample, err := parseAppend(date, msg.Topic(), msg.Payload())
		if err != nil {
			s.logger.Warn("dropping mqtt sample", zap.Error(err))
			return
		}
		fn(sample)
	}

	token := s.client.Subscribe(filter, s.cfg.QoS, handler)
	if err := waitToken(ctx, token); err != nil {
		return Subscription{}, fmt.Errorf("subscribe %s: %v: %w", filter, err, ErrConnection)
	}

	sub := NewSubscription(date)
	s.mu.Lock()
	s.active[sub.ID] = mqttRoute{filter: filter, fn: handler}
	s.mu.Unlock()
	return sub, nil
}

// Unsubscribe stops delivery for sub. Unknown handles are ignored.
func (s *MQTTSubscriber) Unsubscribe(sub Subscription) error {
	s.mu.Lock()
	route, ok := s.active[sub.ID]
	delete(s.active, sub.ID)
	shared := false
	for _, r := range s.active {
		if r.filter == route.filter {
			shared = true
		}
	}
	s.mu.Unlock()
	if !ok || shared {
		return nil
	}

	token := s.client.Unsubscribe(route.filter)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("unsubscribe %s: timeout", route.filter)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", route.filter, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (s *MQTTSubscriber) IsConnected() bool {
	return s.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (s *MQTTSubscriber) Close() error {
	s.client.Disconnect(1000)
	return nil
}

func waitToken(ctx context.Context, token paho.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
