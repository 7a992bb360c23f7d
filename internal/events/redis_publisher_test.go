package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublishClient struct {
	channel  string
	messages [][]byte
	err      error
}

func (f *fakePublishClient) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	if raw, ok := message.([]byte); ok {
		f.messages = append(f.messages, raw)
	}
	return redis.NewIntResult(1, f.err)
}

func TestRedisPublisher_PublishesJSON(t *testing.T) {
	client := &fakePublishClient{}
	publisher := NewRedisPublisher(client, "compliance:events", nil)
	dispatcher := NewInMemoryDispatcher()
	publisher.Register(dispatcher)

	event := Event{
		ID:        "evt-1",
		Type:      EventReportStatusChanged,
		ReportID:  401,
		Timestamp: time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC),
		Payload:   ReportStatusChangedPayload{OldStatus: "NEW", NewStatus: "IN_INVESTIGATION"},
	}
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	assert.Equal(t, "compliance:events", client.channel)
	require.Len(t, client.messages, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.messages[0], &decoded))
	assert.Equal(t, "report_status_changed", decoded["type"])
	assert.EqualValues(t, 401, decoded["report_id"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "IN_INVESTIGATION", payload["new_status"])
}

func TestRedisPublisher_PropagatesFailure(t *testing.T) {
	boom := errors.New("redis down")
	publisher := NewRedisPublisher(&fakePublishClient{err: boom}, "c", nil)

	err := publisher.Handle(context.Background(), Event{Type: EventReportSubmitted})
	assert.ErrorIs(t, err, boom)
}
