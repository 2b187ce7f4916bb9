package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sweeney/vitals-dashboard/internal/config"
	"github.com/sweeney/vitals-dashboard/internal/feed"
)

// closers releases feed resources in reverse order of opening.
type closers []func()

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func openRedis(ctx context.Context, cfg config.RedisConfig, patient string, logger *zap.Logger) (*feed.RedisStore, func()) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable yet", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return feed.NewRedisStore(client, cfg.Prefix, patient, logger), func() { _ = client.Close() }
}

// openFetcher builds the snapshot side of the feed.
func openFetcher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (feed.SnapshotFetcher, closers, error) {
	switch cfg.Feed.Snapshot {
	case config.BackendRedis:
		store, closeFn := openRedis(ctx, cfg.Feed.Redis, cfg.Patient, logger)
		return store, closers{closeFn}, nil
	case config.BackendFirebase:
		fb := cfg.Feed.Firebase
		return feed.NewFirebase(fb.URL, cfg.Patient, fb.Secret, fb.Timeout, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported snapshot backend %q", cfg.Feed.Snapshot)
	}
}

// openSource builds the full feed: snapshots plus live appends.
func openSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (feed.Source, closers, error) {
	fetcher, cs, err := openFetcher(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Feed.Live {
	case config.BackendRedis:
		if store, ok := fetcher.(*feed.RedisStore); ok {
			return store, cs, nil
		}
		store, closeFn := openRedis(ctx, cfg.Feed.Redis, cfg.Patient, logger)
		cs = append(cs, closeFn)
		return feed.Composite{Snapshots: fetcher, Appends: store}, cs, nil
	case config.BackendMQTT:
		m := cfg.Feed.MQTT
		sub, err := feed.NewMQTTSubscriber(feed.MQTTConfig{
			Broker:      m.Broker,
			ClientID:    mqttClientID(m.ClientID),
			Username:    m.Username,
			Password:    m.Password,
			TopicPrefix: m.TopicPrefix,
			Patient:     cfg.Patient,
			QoS:         byte(m.QoS),
		}, logger)
		if err != nil {
			cs.close()
			return nil, nil, fmt.Errorf("open mqtt: %w", err)
		}
		cs = append(cs, func() { _ = sub.Close() })
		return feed.Composite{Snapshots: fetcher, Appends: sub}, cs, nil
	default:
		cs.close()
		return nil, nil, fmt.Errorf("unsupported live backend %q", cfg.Feed.Live)
	}
}

// mqttClientID suffixes base so several dashboards can share a broker.
func mqttClientID(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
