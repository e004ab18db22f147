package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/taskcrew/taskbot/internal/models"
	"github.com/taskcrew/taskbot/internal/storage"
)

const tasksDocument = "tasks"

// Entry is a task tagged with the assignee view it was found in. Owner
// is empty for orphaned tasks that no assignee list references.
type Entry struct {
	Owner string       `json:"owner,omitempty"`
	Task  *models.Task `json:"task"`
}

// TaskStore owns every task record. Tasks live once in an arena keyed
// by id; each assignee holds an ordered list of ids, so a task assigned
// to N users is visible in N views but mutated in exactly one place.
//
// The mutex doubles as the save guard: every mutation persists before
// releasing it, so write+backup sequences never interleave.
type TaskStore struct {
	mu     sync.Mutex
	files  *storage.Store
	tasks  map[int64]*models.Task
	order  map[string][]int64
	lastID int64
}

type tasksDoc struct {
	Tasks map[int64]*models.Task `json:"tasks"`
	Order map[string][]int64     `json:"order"`
}

// NewTaskStore loads the persisted task document from files.
func NewTaskStore(files *storage.Store) (*TaskStore, error) {
	doc := tasksDoc{}
	if err := files.Load(tasksDocument, &doc); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	s := &TaskStore{
		files: files,
		tasks: doc.Tasks,
		order: doc.Order,
	}
	if s.tasks == nil {
		s.tasks = make(map[int64]*models.Task)
	}
	if s.order == nil {
		s.order = make(map[string][]int64)
	}
	for id := range s.tasks {
		if id > s.lastID {
			s.lastID = id
		}
	}
	return s, nil
}

// nextID derives an id from the millisecond clock, bumped past the
// last issued id so same-millisecond creates stay unique.
func (s *TaskStore) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *TaskStore) persist() error {
	return s.files.Save(tasksDocument, tasksDoc{Tasks: s.tasks, Order: s.order})
}

// users returns the assignee keys in deterministic scan order.
func (s *TaskStore) users() []string {
	users := make([]string, 0, len(s.order))
	for u := range s.order {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// Create stores a new task assigned to its creator.
func (s *TaskStore) Create(creator, title, description string, due *time.Time) (*models.Task, error) {
	return s.insert(creator, title, description, due, "", []string{creator})
}

// CreateAssigned stores a new task under every resolved assignee.
func (s *TaskStore) CreateAssigned(creator, title, description string, due *time.Time, department string, assignees []string) (*models.Task, error) {
	return s.insert(creator, title, description, due, department, assignees)
}

func (s *TaskStore) insert(creator, title, description string, due *time.Time, department string, assignees []string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := &models.Task{
		ID:            s.nextID(),
		Title:         title,
		Description:   description,
		Due:           due,
		Status:        models.TaskStatusPending,
		CreatedBy:     creator,
		AssignedTo:    append([]string(nil), assignees...),
		Department:    department,
		RemindersSent: []string{},
	}
	task.AppendLog("Created by " + creator)

	s.tasks[task.ID] = task
	for _, user := range assignees {
		s.order[user] = append(s.order[user], task.ID)
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	return task.Clone(), nil
}

// FindByID locates a task, returning the first assignee view holding
// it and the 1-based position within that view. Orphaned tasks are
// found with an empty owner.
func (s *TaskStore) FindByID(id int64) (owner string, position int, task *models.Task, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(id)
}

func (s *TaskStore) findLocked(id int64) (string, int, *models.Task, bool) {
	for _, user := range s.users() {
		for i, tid := range s.order[user] {
			if tid == id {
				return user, i + 1, s.tasks[id].Clone(), true
			}
		}
	}
	if t, ok := s.tasks[id]; ok {
		return "", 0, t.Clone(), true
	}
	return "", 0, nil, false
}

// TasksFor returns copies of one user's tasks in insertion order.
func (s *TaskStore) TasksFor(user string) []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.order[user]
	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			tasks = append(tasks, t.Clone())
		}
	}
	return tasks
}

// UniqueAll collapses every assignee view into one entry per task id,
// first occurrence winning under the deterministic scan order.
// Orphaned tasks follow, ordered by id.
func (s *TaskStore) UniqueAll() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]struct{}, len(s.tasks))
	entries := make([]Entry, 0, len(s.tasks))
	for _, user := range s.users() {
		for _, id := range s.order[user] {
			if _, dup := seen[id]; dup {
				continue
			}
			if t, ok := s.tasks[id]; ok {
				seen[id] = struct{}{}
				entries = append(entries, Entry{Owner: user, Task: t.Clone()})
			}
		}
	}

	orphans := make([]int64, 0)
	for id := range s.tasks {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i] < orphans[j] })
	for _, id := range orphans {
		entries = append(entries, Entry{Task: s.tasks[id].Clone()})
	}
	return entries
}

// Update applies mutate to the canonical record and persists. The
// change is visible through every assignee view by construction.
func (s *TaskStore) Update(id int64, mutate func(*models.Task)) (*models.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}
	mutate(task)
	if err := s.persist(); err != nil {
		return nil, true, err
	}
	return task.Clone(), true, nil
}

// RemoveFor deletes a task from one assignee's view, dropping the
// record itself once no view references it.
func (s *TaskStore) RemoveFor(user string, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}

	if user == "" {
		// Orphan resolved by id: no view to trim, drop the record.
		delete(s.tasks, id)
		return true, s.persist()
	}

	if !removeID(s.order, user, id) {
		return false, nil
	}
	task.AssignedTo = removeString(task.AssignedTo, user)

	if !s.referenced(id) {
		delete(s.tasks, id)
	}
	return true, s.persist()
}

// AddAssignees expands the assignee set, inserting the task into each
// newly added user's view. Returns the users actually added.
func (s *TaskStore) AddAssignees(id int64, users []string) ([]string, *models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, nil, nil
	}

	added := make([]string, 0, len(users))
	for _, user := range users {
		if task.IsAssignedTo(user) {
			continue
		}
		task.AssignedTo = append(task.AssignedTo, user)
		s.order[user] = append(s.order[user], id)
		added = append(added, user)
	}
	if len(added) == 0 {
		return added, task.Clone(), nil
	}
	if err := s.persist(); err != nil {
		return added, nil, err
	}
	return added, task.Clone(), nil
}

// RemoveAssignees shrinks the assignee set and trims the matching
// views. Removing the last assignee is allowed; the record stays in
// the arena, reachable by id and by privileged listing.
func (s *TaskStore) RemoveAssignees(id int64, users []string) ([]string, *models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, nil, nil
	}

	removed := make([]string, 0, len(users))
	for _, user := range users {
		if !task.IsAssignedTo(user) {
			continue
		}
		task.AssignedTo = removeString(task.AssignedTo, user)
		removeID(s.order, user, id)
		removed = append(removed, user)
	}
	if len(removed) == 0 {
		return removed, task.Clone(), nil
	}
	if err := s.persist(); err != nil {
		return removed, nil, err
	}
	return removed, task.Clone(), nil
}

// Flush persists the current state, for shutdown and reconciliation.
func (s *TaskStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

func (s *TaskStore) referenced(id int64) bool {
	for _, ids := range s.order {
		for _, tid := range ids {
			if tid == id {
				return true
			}
		}
	}
	return false
}

func removeID(order map[string][]int64, user string, id int64) bool {
	ids := order[user]
	for i, tid := range ids {
		if tid == id {
			order[user] = append(ids[:i:i], ids[i+1:]...)
			if len(order[user]) == 0 {
				delete(order, user)
			}
			return true
		}
	}
	return false
}

func removeString(values []string, target string) []string {
	out := values[:0]
	for _, v := range values {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}
