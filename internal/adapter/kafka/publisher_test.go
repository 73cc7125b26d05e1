package kafka

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/climate-dashboard/internal/config"
	"github.com/couchcryptid/climate-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	event := domain.FetchCompleted{
		Filters:    domain.DefaultFilterState(),
		MatchCount: 12,
		Stats:      &domain.Statistics{Average: 14.2, Max: 22.1, Min: 6.3},
		FetchedAt:  now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("UK|Tmax"), msg.Key)
	assert.Contains(t, string(msg.Value), `"match_count":12`)
	assert.Contains(t, string(msg.Value), `"region":"UK"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "parameter", msg.Headers[0].Key)
	assert.Equal(t, []byte("Tmax"), msg.Headers[0].Value)
	assert.Equal(t, "fetched_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_NoStatistics(t *testing.T) {
	event := domain.FetchCompleted{Filters: domain.DefaultFilterState()}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"statistics":null`)
}

func TestNewPublisher_FlushesSingleEvents(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "dashboard-fetches"}
	p := NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, batchTimeout, p.writer.BatchTimeout)
	assert.Less(t, p.writer.BatchTimeout, 100*time.Millisecond)
	assert.Equal(t, "dashboard-fetches", p.writer.Topic)
}
