package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ticketboss/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned when the summary is not cached
	ErrMiss = errors.New("cache miss")
	// ErrStale is returned when the summary was invalidated after it was read
	ErrStale = errors.New("summary invalidated since read")
)

type Config struct {
	Addr       string        `env:"VALKEY_ADDR"`
	Password   string        `env:"VALKEY_PASSWORD"`
	DB         int           `env:"VALKEY_DB" envDefault:"0"`
	KeyPrefix  string        `env:"VALKEY_KEY_PREFIX" envDefault:"ticketboss"`
	SummaryTTL time.Duration `env:"SUMMARY_CACHE_TTL" envDefault:"2s"`
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}

// ValkeyClient caches event summaries. Entries are short-lived and
// deleted after every committed mutation of the event. Each invalidation
// also bumps a per-event generation; a summary is only stored while the
// generation it was read under is still current.
type ValkeyClient struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return newValkeyClient(rdb, cfg), nil
}

func newValkeyClient(rdb *redis.Client, cfg Config) *ValkeyClient {
	return &ValkeyClient{
		client:    rdb,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.SummaryTTL,
	}
}

func (v *ValkeyClient) summaryKey(eventID string) string {
	return fmt.Sprintf("%s:summary:%s", v.keyPrefix, eventID)
}

func (v *ValkeyClient) generationKey(eventID string) string {
	return fmt.Sprintf("%s:summary-gen:%s", v.keyPrefix, eventID)
}

// SummaryGeneration returns the invalidation counter to pass to SetSummary
func (v *ValkeyClient) SummaryGeneration(ctx context.Context, eventID string) (int64, error) {
	gen, err := v.client.Get(ctx, v.generationKey(eventID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}
	return gen, nil
}

func (v *ValkeyClient) GetSummary(ctx context.Context, eventID string) (*models.EventSummary, error) {
	raw, err := v.client.Get(ctx, v.summaryKey(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}

	var summary models.EventSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("invalid summary in cache: %w", err)
	}

	return &summary, nil
}

// SetSummary stores the summary unless the event was invalidated after
// generation was read, in which case ErrStale is returned.
func (v *ValkeyClient) SetSummary(ctx context.Context, summary *models.EventSummary, generation int64) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	genKey := v.generationKey(summary.EventID)
	err = v.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, v.summaryKey(summary.EventID), raw, v.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("cache store error: %w", err)
	}
}

func (v *ValkeyClient) InvalidateSummary(ctx context.Context, eventID string) error {
	_, err := v.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, v.generationKey(eventID))
		pipe.Del(ctx, v.summaryKey(eventID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
