package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
)

// ParseStatus validates a status value coming from the gateway.
func ParseStatus(s string) (TaskStatus, bool) {
	switch TaskStatus(s) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone,
		TaskStatusBlocked, TaskStatusOverdue:
		return TaskStatus(s), true
	}
	return "", false
}

// LogEntry is one line of a task's append-only activity log.
type LogEntry struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
}

type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Due           *time.Time `json:"due,omitempty"`
	Status        TaskStatus `json:"status"`
	CreatedBy     string     `json:"created_by"`
	AssignedTo    []string   `json:"assigned_to"`
	Department    string     `json:"department,omitempty"`
	Logs          []LogEntry `json:"logs"`
	RemindersSent []string   `json:"reminders_sent"`
}

// Clone returns a deep copy so read paths never alias store-owned slices.
func (t *Task) Clone() *Task {
	c := *t
	c.AssignedTo = append([]string(nil), t.AssignedTo...)
	c.Logs = append([]LogEntry(nil), t.Logs...)
	c.RemindersSent = append([]string(nil), t.RemindersSent...)
	if t.Due != nil {
		due := *t.Due
		c.Due = &due
	}
	return &c
}

// AppendLog records an action with the current time.
func (t *Task) AppendLog(action string) {
	t.Logs = append(t.Logs, LogEntry{At: time.Now().UTC(), Action: action})
}

// IsAssignedTo reports whether userID is in the task's assignee set.
func (t *Task) IsAssignedTo(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// ReminderSent reports whether the given threshold key already fired.
func (t *Task) ReminderSent(key string) bool {
	for _, k := range t.RemindersSent {
		if k == key {
			return true
		}
	}
	return false
}
