package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandmate/bandmate"
	"github.com/bandmate/bandmate/server"
)

func TestDispatcherDeliversDueNotifications(t *testing.T) {
	repo := bandmate.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	userID := uuid.New()
	past := time.Now().Add(-time.Minute)

	due, err := repo.Notifications().Create(ctx, &bandmate.Notification{
		UserID:    userID,
		Kind:      bandmate.NotificationBandUpdate,
		Message:   "New song added",
		DeliverAt: &past,
	})
	require.NoError(t, err)

	dispatcher := server.NewDispatcher(repo, bandmate.DefaultLogger(), nil)
	require.NoError(t, dispatcher.Tick(ctx))

	pending, err := repo.Notifications().ListDue(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	inbox, err := repo.Notifications().ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, due.ID, inbox[0].ID)
	assert.NotNil(t, inbox[0].DeliveredAt)
}

func TestDispatcherSeedsRehearsalReminders(t *testing.T) {
	repo := bandmate.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	creator := uuid.New()
	band, err := repo.Bands().Create(ctx, &bandmate.Band{
		Name:        "The Offsets",
		CreatedByID: creator,
	})
	require.NoError(t, err)

	starts := time.Now().Add(3 * time.Hour)
	_, err = repo.Rehearsals().Create(ctx, &bandmate.Rehearsal{
		BandID:   band.ID,
		Title:    "Tonight",
		StartsAt: starts,
		EndsAt:   starts.Add(time.Hour),
	})
	require.NoError(t, err)

	dispatcher := server.NewDispatcher(repo, bandmate.DefaultLogger(), nil)

	// first tick seeds the reminder, and since the delivery slot is
	// already in the past, delivers it too
	require.NoError(t, dispatcher.Tick(ctx))

	inbox, err := repo.Notifications().ListForUser(ctx, creator)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, bandmate.NotificationRehearsalReminder, inbox[0].Kind)

	// later ticks do not duplicate the reminder
	require.NoError(t, dispatcher.Tick(ctx))

	inbox, err = repo.Notifications().ListForUser(ctx, creator)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
}

func TestDispatcherRunStopsOnCancel(t *testing.T) {
	repo := bandmate.NewRepositoryManager(newTestDB(t))

	dispatcher := server.NewDispatcher(repo, bandmate.DefaultLogger(), nil).
		WithInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}
