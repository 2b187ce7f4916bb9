package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/vitals"
)

// RedisStore keeps one hash per patient date (field = HH:MM:SS, value = JSON
// sample) and announces appends on a pub/sub channel next to it.
//
//	hash:    <prefix>:<patient>:<date>
//	channel: <prefix>:<patient>:<date>:appends
type RedisStore struct {
	client  *redis.Client
	prefix  string
	patient string
	logger  *zap.Logger

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

// appendMessage is the pub/sub payload for one appended sample.
type appendMessage struct {
	Timestamp string           `json:"timestamp"`
	Sample    vitals.RawSample `json:"sample"`
}

// NewRedisStore creates a store for one patient.
func NewRedisStore(client *redis.Client, prefix, patient string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		patient: patient,
		logger:  logger,
		subs:    make(map[string]*redis.PubSub),
	}
}

func (s *RedisStore) key(date string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, s.patient, date)
}

func (s *RedisStore) channel(date string) string {
	return s.key(date) + ":appends"
}

// FetchSnapshot reads every sample recorded for date.
func (s *RedisStore) FetchSnapshot(ctx context.Context, date string) (Snapshot, error) {
	fields, err := s.client.HGetAll(ctx, s.key(date)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %v: %w", s.key(date), err, ErrConnection)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
	}

	snap := make(Snapshot, len(fields))
	for label, body := range fields {
		if !ValidTimestamp(label) {
			s.logger.Warn("skipping malformed timestamp", zap.String("date", date), zap.String("timestamp", label))
			continue
		}
		raw, err := DecodeSample([]byte(body))
		if err != nil {
			s.logger.Warn("skipping undecodable sample", zap.String("date", date), zap.String("timestamp", label), zap.Error(err))
			continue
		}
		snap[label] = raw
	}
	if len(snap) == 0 {
		return nil, fmt.Errorf("date %s: %w", date, ErrNotFound)
	}
	return snap, nil
}

// Record stores a sample and announces it to live subscribers.
func (s *RedisStore) Record(ctx context.Context, date, timestamp string, raw vitals.RawSample) error {
	if !ValidDate(date) {
		return fmt.Errorf("record: invalid date %q", date)
	}
	if !ValidTimestamp(timestamp) {
		return fmt.Errorf("record: invalid timestamp %q", timestamp)
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	if err := s.client.HSet(ctx, s.key(date), timestamp, body).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", s.key(date), err)
	}

	msg, err := json.Marshal(appendMessage{Timestamp: timestamp, Sample: raw})
	if err != nil {
		return fmt.Errorf("encode append: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel(date), msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", s.channel(date), err)
	}
	return nil
}

// SubscribeAppend delivers samples recorded for date after the call returns.
// Messages are handled on a single goroutine, so fn sees them in publish order.
func (s *RedisStore) SubscribeAppend(ctx context.Context, date string, fn OnSample) (Subscription, error) {
	ps := s.client.Subscribe(ctx, s.channel(date))
	// Wait for the subscription confirmation so no append is missed after return.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return Subscription{}, fmt.Errorf("subscribe %s: %v: %w", s.channel(date), err, ErrConnection)
	}

	sub := NewSubscription(date)
	s.mu.Lock()
	s.subs[sub.ID] = ps
	s.mu.Unlock()

	go func() {
		for msg := range ps.Channel() {
			var m appendMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				s.logger.Warn("dropping undecodable append", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if !ValidTimestamp(m.Timestamp) {
				s.logger.Warn("dropping append with malformed timestamp", zap.String("timestamp", m.Timestamp))
				continue
			}
			fn(Sample{Date: date, Timestamp: m.Timestamp, Raw: m.Sample})
		}
	}()

	return sub, nil
}

// Unsubscribe stops delivery for sub. Unknown handles are ignored.
func (s *RedisStore) Unsubscribe(sub Subscription) error {
	s.mu.Lock()
	ps, ok := s.subs[sub.ID]
	delete(s.subs, sub.ID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := ps.Close(); err != nil {
		return fmt.Errorf("close subscription %s: %w", sub.ID, err)
	}
	return nil
}

// IsConnected pings the server.
func (s *RedisStore) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}
