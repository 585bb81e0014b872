package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestEventPublisherRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "coursework:events")
	t.Cleanup(func() { sub.Close() })

	// Wait for the subscription to be established.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewEventPublisher(client, nil, "coursework", testLogger())
	publisher.Publish(ctx, Event{Type: EventSubmitted, TaskID: 7, StudentID: 2, OccurredAt: testClock})

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		require.Equal(t, EventSubmitted, event.Type)
		require.Equal(t, uint(7), event.TaskID)
		require.Equal(t, uint(2), event.StudentID)
		require.True(t, testClock.Equal(event.OccurredAt))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestEventPublisherSurvivesBrokerFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mr.Close()

	// Publishing is fire-and-forget; a dead broker must not panic or error out.
	publisher := NewEventPublisher(client, nil, "coursework", testLogger())
	publisher.Publish(context.Background(), Event{Type: EventGraded, TaskID: 1, OccurredAt: testClock})
}

func TestNopEventPublisher(t *testing.T) {
	NopEventPublisher{}.Publish(context.Background(), Event{Type: EventTaskDeleted})
}
