package models

// Settings holds the runtime-adjustable bot configuration. It is
// persisted alongside the task data so admin changes survive restarts.
type Settings struct {
	ReminderWindows []string `json:"reminder_windows"`
	BackupRetention int      `json:"backup_retention"`
}

// DefaultSettings returns the settings used before an admin customizes them.
func DefaultSettings() Settings {
	return Settings{
		ReminderWindows: []string{"1d", "1h"},
		BackupRetention: 5,
	}
}
