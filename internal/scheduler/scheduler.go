package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/taskcrew/taskbot/internal/models"
	"github.com/taskcrew/taskbot/internal/notify"
	"github.com/taskcrew/taskbot/internal/store"
)

// overdueKey is the threshold key recorded when the past-due
// notification fires, independent of the configured windows.
const overdueKey = "overdue"

// ParseWindow converts a reminder window like "2h", "1d", "90m" or a
// bare number of minutes into a duration.
func ParseWindow(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty reminder window")
	}

	scale := time.Minute
	switch s[len(s)-1] {
	case 'd':
		scale = 24 * time.Hour
		s = s[:len(s)-1]
	case 'h':
		scale = time.Hour
		s = s[:len(s)-1]
	case 'm':
		s = s[:len(s)-1]
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid reminder window %q", s)
	}
	return time.Duration(n) * scale, nil
}

// Scheduler scans every task on a fixed interval and fires at most one
// notification per (task, threshold key) pair.
type Scheduler struct {
	tasks    *store.TaskStore
	settings *store.SettingsStore
	notifier notify.Notifier
	interval time.Duration
	scanning atomic.Bool
	now      func() time.Time
}

// New creates a Scheduler. interval <= 0 falls back to 5 minutes.
func New(tasks *store.TaskStore, settings *store.SettingsStore, notifier notify.Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{
		tasks:    tasks,
		settings: settings,
		notifier: notifier,
		interval: interval,
		now:      time.Now,
	}
}

// Reconcile marks every past-due task that is neither done nor already
// overdue. Runs once at startup; a second run is a no-op.
func (s *Scheduler) Reconcile() error {
	now := s.now()
	for _, e := range s.tasks.UniqueAll() {
		t := e.Task
		if t.Due == nil || !t.Due.Before(now) {
			continue
		}
		if t.Status == models.TaskStatusDone || t.Status == models.TaskStatusOverdue {
			continue
		}
		if _, _, err := s.tasks.Update(t.ID, func(task *models.Task) {
			task.Status = models.TaskStatusOverdue
			task.AppendLog("Auto-marked overdue on startup")
		}); err != nil {
			return fmt.Errorf("failed to reconcile task %d: %w", t.ID, err)
		}
	}
	return nil
}

// Run ticks until the context is cancelled. A tick that would overlap
// a still-running scan is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan walks every unique task once, firing window and overdue
// notifications. A threshold key is recorded as sent the moment it is
// attempted, so delivery failures never cause retries.
func (s *Scheduler) Scan(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		return
	}
	defer s.scanning.Store(false)

	windows := s.settings.Get().ReminderWindows
	now := s.now()

	for _, e := range s.tasks.UniqueAll() {
		t := e.Task
		if t.Due == nil || t.Status == models.TaskStatusDone {
			continue
		}
		remaining := t.Due.Sub(now)

		if remaining > 0 {
			for _, w := range windows {
				d, err := ParseWindow(w)
				if err != nil {
					log.Printf("skipping reminder window %q: %v", w, err)
					continue
				}
				if remaining <= d && !t.ReminderSent(w) {
					s.fire(ctx, t, w, fmt.Sprintf("Task %q is due in %s", t.Title, w))
				}
			}
			continue
		}

		if !t.ReminderSent(overdueKey) {
			s.fire(ctx, t, overdueKey, fmt.Sprintf("Task %q is overdue", t.Title))
		}
	}
}

// fire records the threshold key and then attempts delivery to every
// assignee. Per-recipient failures are logged and swallowed.
func (s *Scheduler) fire(ctx context.Context, t *models.Task, key, body string) {
	updated, ok, err := s.tasks.Update(t.ID, func(task *models.Task) {
		if task.ReminderSent(key) {
			return
		}
		task.RemindersSent = append(task.RemindersSent, key)
		task.AppendLog("Reminder fired: " + key)
	})
	if err != nil {
		log.Printf("failed to record reminder %s for task %d: %v", key, t.ID, err)
		return
	}
	if !ok {
		return
	}

	subject := "Task reminder"
	if key == overdueKey {
		subject = "Task overdue"
	}
	for _, user := range updated.AssignedTo {
		if err := s.notifier.Notify(ctx, user, subject, body); err != nil {
			log.Printf("failed to notify %s about task %d: %v", user, t.ID, err)
		}
	}
}
