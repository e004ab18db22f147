package store

import (
	"fmt"
	"sync"

	"github.com/taskcrew/taskbot/internal/models"
	"github.com/taskcrew/taskbot/internal/storage"
)

const settingsDocument = "settings"

// SettingsStore persists the admin-adjustable configuration and keeps
// the storage retention in step with it.
type SettingsStore struct {
	mu       sync.Mutex
	files    *storage.Store
	settings models.Settings
}

// NewSettingsStore loads persisted settings, falling back to defaults.
func NewSettingsStore(files *storage.Store) (*SettingsStore, error) {
	settings := models.Settings{}
	if err := files.Load(settingsDocument, &settings); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defaults := models.DefaultSettings()
	if len(settings.ReminderWindows) == 0 {
		settings.ReminderWindows = defaults.ReminderWindows
	}
	if settings.BackupRetention <= 0 {
		settings.BackupRetention = defaults.BackupRetention
	}
	files.SetRetention(settings.BackupRetention)
	return &SettingsStore{files: files, settings: settings}, nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.settings
	out.ReminderWindows = append([]string(nil), s.settings.ReminderWindows...)
	return out
}

// SetReminderWindows replaces the reminder threshold list.
func (s *SettingsStore) SetReminderWindows(windows []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.ReminderWindows = append([]string(nil), windows...)
	return s.files.Save(settingsDocument, s.settings)
}

// SetBackupRetention adjusts the backup retention count.
func (s *SettingsStore) SetBackupRetention(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return fmt.Errorf("retention must be positive, got %d", n)
	}
	s.settings.BackupRetention = n
	s.files.SetRetention(n)
	return s.files.Save(settingsDocument, s.settings)
}
