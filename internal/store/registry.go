package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/taskcrew/taskbot/internal/storage"
)

const (
	departmentsDocument = "departments"
	managersDocument    = "managers"
)

// DepartmentRegistry maps department names to member id sets. It backs
// assignment expansion and the gateway's department commands.
type DepartmentRegistry struct {
	mu      sync.Mutex
	files   *storage.Store
	members map[string][]string
}

// NewDepartmentRegistry loads the persisted department document.
func NewDepartmentRegistry(files *storage.Store) (*DepartmentRegistry, error) {
	members := make(map[string][]string)
	if err := files.Load(departmentsDocument, &members); err != nil {
		return nil, fmt.Errorf("failed to load departments: %w", err)
	}
	return &DepartmentRegistry{files: files, members: members}, nil
}

func (r *DepartmentRegistry) persist() error {
	return r.files.Save(departmentsDocument, r.members)
}

// Set creates or wholesale-replaces a department's member set.
func (r *DepartmentRegistry) Set(name string, members []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[name] = dedupe(members)
	return r.persist()
}

// Members returns a department's member set, reporting existence.
func (r *DepartmentRegistry) Members(name string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.members[name]
	return append([]string(nil), members...), ok
}

// All returns every department and its members, names sorted.
func (r *DepartmentRegistry) All() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.members))
	for name, members := range r.members {
		out[name] = append([]string(nil), members...)
	}
	return out
}

// Names returns the sorted department names.
func (r *DepartmentRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.members))
	for name := range r.members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddMember adds one member to an existing department.
func (r *DepartmentRegistry) AddMember(name, member string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.members[name]
	if !ok {
		return false, nil
	}
	for _, m := range members {
		if m == member {
			return true, nil
		}
	}
	r.members[name] = append(members, member)
	return true, r.persist()
}

// RemoveMember removes one member from an existing department.
func (r *DepartmentRegistry) RemoveMember(name, member string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.members[name]
	if !ok {
		return false, nil
	}
	r.members[name] = removeString(members, member)
	return true, r.persist()
}

// ManagerRegistry tracks which principals hold the manager role.
type ManagerRegistry struct {
	mu       sync.Mutex
	files    *storage.Store
	managers map[string]bool
}

// NewManagerRegistry loads the persisted manager document.
func NewManagerRegistry(files *storage.Store) (*ManagerRegistry, error) {
	managers := make(map[string]bool)
	if err := files.Load(managersDocument, &managers); err != nil {
		return nil, fmt.Errorf("failed to load managers: %w", err)
	}
	return &ManagerRegistry{files: files, managers: managers}, nil
}

// Add registers the given principals as managers.
func (r *ManagerRegistry) Add(ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.managers[id] = true
	}
	return r.files.Save(managersDocument, r.managers)
}

// IsManager reports whether id holds the manager role.
func (r *ManagerRegistry) IsManager(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.managers[id]
}

// dedupe removes duplicate ids preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
