package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bandmate/bandmate"
)

// Dispatcher delivers due notifications on a fixed interval. It also
// seeds rehearsal reminders for sessions starting inside the reminder
// window. Unexpected storage failures are reported to the supervisor.
type Dispatcher struct {
	repo       bandmate.RepositoryManager
	logger     bandmate.Logger
	supervisor *Supervisor

	interval   time.Duration
	reminderIn time.Duration
	batchSize  int

	// reminders already written this process, keyed by rehearsal id
	seeded map[uuid.UUID]bool
}

func NewDispatcher(repo bandmate.RepositoryManager, logger bandmate.Logger, supervisor *Supervisor) *Dispatcher {
	if logger == nil {
		logger = bandmate.DefaultLogger()
	}
	return &Dispatcher{
		repo:       repo,
		logger:     logger,
		supervisor: supervisor,
		interval:   time.Minute,
		reminderIn: 24 * time.Hour,
		batchSize:  100,
		seeded:     map[uuid.UUID]bool{},
	}
}

// WithInterval overrides the polling interval, used in tests.
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.logger.Error("dispatcher tick failed", "error", err)
				if d.supervisor != nil {
					d.supervisor.NotifyFault(err)
				}
				return
			}
		}
	}
}

// Tick runs one delivery pass: seed upcoming rehearsal reminders, then
// mark due notifications delivered.
func (d *Dispatcher) Tick(ctx context.Context) error {
	if err := d.seedRehearsalReminders(ctx); err != nil {
		return err
	}

	due, err := d.repo.Notifications().ListDue(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(due))
	for i, n := range due {
		ids[i] = n.ID
	}

	if err := d.repo.Notifications().MarkDelivered(ctx, ids); err != nil {
		return err
	}

	d.logger.Info("notifications delivered", "count", len(ids))
	return nil
}

func (d *Dispatcher) seedRehearsalReminders(ctx context.Context) error {
	rehearsals, err := d.repo.Rehearsals().ListUpcoming(ctx, d.reminderIn)
	if err != nil {
		return err
	}

	for _, r := range rehearsals {
		if d.seeded[r.ID] || r.Band == nil {
			continue
		}
		deliverAt := r.StartsAt.Add(-d.reminderIn)
		notification := &bandmate.Notification{
			UserID:    r.Band.CreatedByID,
			Kind:      bandmate.NotificationRehearsalReminder,
			Message:   fmt.Sprintf("Rehearsal %q starts at %s", r.Title, r.StartsAt.Format(time.RFC822)),
			DeliverAt: &deliverAt,
		}
		if _, err := d.repo.Notifications().Create(ctx, notification); err != nil {
			return err
		}
		d.seeded[r.ID] = true
	}

	return nil
}
