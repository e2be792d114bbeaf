// Package redisstore publishes metamodel snapshots to Redis, where other
// processes can read them and be notified when a new one is published.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/runtime/metadata"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when a snapshot or specification is not in Redis
var ErrNotFound = errors.New("snapshot not found")

// Config holds Redis-specific configuration
type Config struct {
	// Addr is the Redis server address (host:port)
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key and the notification channel
	Prefix string
	// TTL expires published snapshots; zero keeps them forever
	TTL time.Duration
}

// DefaultConfig returns a default Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:   "localhost:6379",
		Prefix: "metamodel:",
	}
}

// Store reads and publishes snapshots. Key layout, relative to the prefix:
//
//	snapshot:<id>  JSON snapshot
//	specs:<id>     hash of full type name to JSON specification
//	names:<id>     hash of logical name to full type name
//	latest         id of the most recently published snapshot
//	published      pub/sub channel carrying published ids
type Store struct {
	client *redis.Client
	config Config
	logger *zap.Logger
}

// Connect creates a client from config and verifies the connection
func Connect(ctx context.Context, config Config, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}
	return NewWithClient(client, config, logger), nil
}

// NewWithClient creates a store with an existing client
func NewWithClient(client *redis.Client, config Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, config: config, logger: logger}
}

func (s *Store) key(parts ...string) string {
	k := s.config.Prefix
	for i, p := range parts {
		if i > 0 {
			k += ":"
		}
		k += p
	}
	return k
}

// Channel returns the pub/sub channel snapshot ids are published on
func (s *Store) Channel() string { return s.key("published") }

// Publish stores a snapshot atomically, marks it latest and notifies subscribers
func (s *Store) Publish(ctx context.Context, meta *metadata.Metadata) error {
	if meta == nil || meta.ID == "" {
		return fmt.Errorf("cannot publish a snapshot without an id")
	}

	document, err := metadata.Encode(meta)
	if err != nil {
		return err
	}
	specs := make(map[string]any, len(meta.Specs))
	names := make(map[string]any, len(meta.Specs))
	for _, spec := range meta.Specs {
		doc, err := json.Marshal(spec)
		if err != nil {
			return fmt.Errorf("failed to marshal specification %s: %w", spec.Type, err)
		}
		specs[spec.Type] = doc
		names[spec.Name] = spec.Type
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key("snapshot", meta.ID), document, s.config.TTL)
		if len(specs) > 0 {
			pipe.HSet(ctx, s.key("specs", meta.ID), specs)
			pipe.HSet(ctx, s.key("names", meta.ID), names)
			if s.config.TTL > 0 {
				pipe.Expire(ctx, s.key("specs", meta.ID), s.config.TTL)
				pipe.Expire(ctx, s.key("names", meta.ID), s.config.TTL)
			}
		}
		pipe.Set(ctx, s.key("latest"), meta.ID, s.config.TTL)
		pipe.Publish(ctx, s.Channel(), meta.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish snapshot %s: %w", meta.ID, err)
	}

	s.logger.Info("snapshot published",
		zap.String("id", meta.ID),
		zap.String("channel", s.Channel()),
		zap.Int("specifications", len(meta.Specs)),
	)
	return nil
}

// Load reads a published snapshot
func (s *Store) Load(ctx context.Context, id string) (*metadata.Metadata, error) {
	data, err := s.client.Get(ctx, s.key("snapshot", id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", id, err)
	}
	return metadata.Decode(data)
}

// Latest reads the most recently published snapshot
func (s *Store) Latest(ctx context.Context) (*metadata.Metadata, error) {
	id, err := s.client.Get(ctx, s.key("latest")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read latest snapshot id: %w", err)
	}
	return s.Load(ctx, id)
}

// Spec reads one specification of a snapshot by logical or full type name
func (s *Store) Spec(ctx context.Context, id, name string) (*metadata.SpecMetadata, error) {
	typeName, err := s.client.HGet(ctx, s.key("names", id), name).Result()
	switch {
	case errors.Is(err, redis.Nil):
		typeName = name
	case err != nil:
		return nil, fmt.Errorf("failed to resolve specification %s: %w", name, err)
	}

	data, err := s.client.HGet(ctx, s.key("specs", id), typeName).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read specification %s: %w", name, err)
	}

	var spec metadata.SpecMetadata
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal specification %s: %w", name, err)
	}
	return &spec, nil
}

// Watch calls handle with every snapshot published after Watch subscribes,
// until ctx is done or handle returns an error.
func (s *Store) Watch(ctx context.Context, handle func(context.Context, *metadata.Metadata) error) error {
	sub := s.client.Subscribe(ctx, s.Channel())
	defer sub.Close()

	// Wait for the subscription to be confirmed so no publication is missed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.Channel(), err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			meta, err := s.Load(ctx, msg.Payload)
			if err != nil {
				s.logger.Warn("published snapshot unavailable", zap.String("id", msg.Payload), zap.Error(err))
				continue
			}
			if err := handle(ctx, meta); err != nil {
				return err
			}
		}
	}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
