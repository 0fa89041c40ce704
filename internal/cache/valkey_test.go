package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Addr: "localhost:6379"}.Enabled())
}

func TestSummaryKey(t *testing.T) {
	v := newValkeyClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), Config{KeyPrefix: "tb", SummaryTTL: time.Second})
	defer v.Close()

	assert.Equal(t, "tb:summary:node-meetup-2025", v.summaryKey("node-meetup-2025"))
	assert.Equal(t, "tb:summary-gen:node-meetup-2025", v.generationKey("node-meetup-2025"))
}

func TestNewValkeyClientUnreachable(t *testing.T) {
	// port 1 is never a redis server; the ping must fail instead of hanging
	_, err := NewValkeyClient(Config{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestGetSummaryReportsConnectionErrors(t *testing.T) {
	v := newValkeyClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}), Config{KeyPrefix: "tb"})
	defer v.Close()

	_, err := v.GetSummary(context.Background(), "node-meetup-2025")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
