package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SyncHook is invoked after every successful save, e.g. to push the
// data directory to a remote mirror. Hook failures never fail the save.
type SyncHook func(name, path string) error

// Store persists named JSON documents to a data directory. Every write
// is atomic (temp file + rename) and followed by a timestamped backup
// snapshot pruned to the retention count.
type Store struct {
	dir       string
	retention int
	hook      SyncHook
}

// New creates a Store rooted at dir, keeping up to retention backups
// per document.
func New(dir string, retention int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, retention: retention}, nil
}

// SetSyncHook installs the post-save replication hook.
func (s *Store) SetSyncHook(hook SyncHook) {
	s.hook = hook
}

// SetRetention adjusts how many backup snapshots are kept per document.
func (s *Store) SetRetention(n int) {
	if n > 0 {
		s.retention = n
	}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

func (s *Store) backupDir(name string) string {
	return filepath.Join(s.dir, "backups", name)
}

// Save writes the document atomically, then snapshots it into the
// backup area. Backup and sync failures are logged and swallowed; the
// primary write is the only step that can fail the caller.
func (s *Store) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	target := s.path(name)
	tmp, err := os.CreateTemp(s.dir, name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	if err := s.backup(name, data); err != nil {
		log.Printf("backup of %s failed: %v", name, err)
	}
	if s.hook != nil {
		if err := s.hook(name, target); err != nil {
			log.Printf("sync hook for %s failed: %v", name, err)
		}
	}
	return nil
}

// Load reads the named document into v. A missing or corrupt file
// leaves v at its zero value so startup never fails on bad state.
func (s *Store) Load(name string, v any) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		log.Printf("failed to read %s, starting empty: %v", name, err)
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("failed to parse %s, starting empty: %v", name, err)
	}
	return nil
}

// backup snapshots the just-written document and prunes old snapshots.
// The timestamp format sorts lexicographically in time order.
func (s *Store) backup(name string, data []byte) error {
	dir := s.backupDir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	snapshot := filepath.Join(dir, fmt.Sprintf("%s-%s.json", name, stamp))
	if err := os.WriteFile(snapshot, data, 0644); err != nil {
		return err
	}

	return s.prune(name)
}

func (s *Store) prune(name string) error {
	entries, err := os.ReadDir(s.backupDir(name))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) <= s.retention {
		return nil
	}

	sort.Strings(names)
	for _, old := range names[:len(names)-s.retention] {
		if err := os.Remove(filepath.Join(s.backupDir(name), old)); err != nil {
			log.Printf("failed to prune backup %s: %v", old, err)
		}
	}
	return nil
}

// Backups lists the snapshot file names for a document, oldest first.
func (s *Store) Backups(name string) ([]string, error) {
	entries, err := os.ReadDir(s.backupDir(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
