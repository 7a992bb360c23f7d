package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatcher_RunsAllHandlersAndJoinsErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	first := errors.New("first")
	var calls []string

	d.Subscribe(EventReportSubmitted, func(context.Context, Event) error {
		calls = append(calls, "a")
		return first
	})
	d.Subscribe(EventReportSubmitted, func(context.Context, Event) error {
		calls = append(calls, "b")
		return nil
	})
	d.Subscribe(unrelatedEvent, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventReportSubmitted, ReportID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.Equal(t, []string{"a", "b"}, calls)
}

const unrelatedEvent EventType = "unrelated"

func TestDispatcher_NoHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventReportNoteAdded}))
}

func TestActorFor(t *testing.T) {
	assert.Equal(t, Actor{}, ActorFor(nil))

	actor := ActorFor(&domain.User{ID: "u-1", Role: domain.UserRoleStaff})
	require.NotNil(t, actor.UserID)
	require.NotNil(t, actor.Role)
	assert.Equal(t, "u-1", *actor.UserID)
	assert.Equal(t, domain.UserRoleStaff, *actor.Role)
}
