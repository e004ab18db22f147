package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskcrew/taskbot/internal/models"
	"github.com/taskcrew/taskbot/internal/store"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrForbidden       = errors.New("you are not assigned to this task")
	ErrInvalidStatus   = errors.New("status must be one of PENDING, IN_PROGRESS, DONE, BLOCKED, OVERDUE")
	ErrEmptyAssignment = errors.New("no assignees resolved from the given users and department")
	ErrNoUsersProvided = errors.New("at least one user is required")
	ErrUnknownDept     = errors.New("department does not exist")
)

// TaskService applies the command semantics on top of the task store:
// selector resolution, authorization, assignment expansion and search.
type TaskService struct {
	tasks *store.TaskStore
	depts *store.DepartmentRegistry
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks *store.TaskStore, depts *store.DepartmentRegistry) *TaskService {
	return &TaskService{tasks: tasks, depts: depts}
}

// Selector targets a task either directly by id or by 1-based position
// in the caller's view.
type Selector struct {
	ID    *int64
	Index *int
}

// Create stores a task assigned to its creator.
func (s *TaskService) Create(principal, title, description string, due *time.Time) (*models.Task, error) {
	task, err := s.tasks.Create(principal, title, description, due)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// Assign creates a task for the union of the explicit users and the
// department's members, deduplicated.
func (s *TaskService) Assign(actor, title, description string, due *time.Time, department string, users []string) (*models.Task, error) {
	assignees := s.expand(users, department)
	if len(assignees) == 0 {
		return nil, ErrEmptyAssignment
	}

	task, err := s.tasks.CreateAssigned(actor, title, description, due, department, assignees)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// List returns the deduplicated task set for privileged principals,
// otherwise the principal's own view.
func (s *TaskService) List(principal string, privileged bool) []store.Entry {
	if privileged {
		return s.tasks.UniqueAll()
	}
	tasks := s.tasks.TasksFor(principal)
	entries := make([]store.Entry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, store.Entry{Owner: principal, Task: t})
	}
	return entries
}

// Get returns a task by id.
func (s *TaskService) Get(id int64) (*models.Task, error) {
	_, _, task, ok := s.tasks.FindByID(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// UpdateStatus changes a task's status, appending a log entry naming
// the actor. Validation happens before any state is written.
func (s *TaskService) UpdateStatus(principal string, privileged bool, sel Selector, newStatus string) (*models.Task, error) {
	status, ok := models.ParseStatus(newStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}

	_, task, err := s.resolve(principal, privileged, sel)
	if err != nil {
		return nil, err
	}
	if !privileged && !task.IsAssignedTo(principal) {
		return nil, ErrForbidden
	}

	updated, found, err := s.tasks.Update(task.ID, func(t *models.Task) {
		t.Status = status
		t.AppendLog(fmt.Sprintf("%s set status to %s", principal, status))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if !found {
		return nil, ErrTaskNotFound
	}
	return updated, nil
}

// Delete removes a task from the view it was resolved in. The record
// itself is dropped once no assignee view references it.
func (s *TaskService) Delete(principal string, privileged bool, sel Selector) error {
	owner, task, err := s.resolve(principal, privileged, sel)
	if err != nil {
		return err
	}
	if !privileged && !task.IsAssignedTo(principal) {
		return ErrForbidden
	}

	found, err := s.tasks.RemoveFor(owner, task.ID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !found {
		return ErrTaskNotFound
	}
	return nil
}

// AddAssignees expands a task's assignee set with the union of the
// users and the department's members.
func (s *TaskService) AddAssignees(actor string, taskID int64, users []string, department string) (*models.Task, error) {
	resolved := s.expand(users, department)
	if len(resolved) == 0 {
		return nil, ErrEmptyAssignment
	}

	added, task, err := s.tasks.AddAssignees(taskID, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to add assignees: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if len(added) == 0 {
		return task, nil
	}

	task, _, err = s.tasks.Update(taskID, func(t *models.Task) {
		t.AppendLog(fmt.Sprintf("%s added assignees: %s", actor, strings.Join(added, ", ")))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log assignment: %w", err)
	}
	return task, nil
}

// RemoveAssignees shrinks a task's assignee set. Removing the last
// assignee is allowed and leaves the task reachable only by id or by
// privileged listing.
func (s *TaskService) RemoveAssignees(actor string, taskID int64, users []string) (*models.Task, error) {
	if len(users) == 0 {
		return nil, ErrNoUsersProvided
	}

	removed, task, err := s.tasks.RemoveAssignees(taskID, users)
	if err != nil {
		return nil, fmt.Errorf("failed to remove assignees: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if len(removed) == 0 {
		return task, nil
	}

	task, _, err = s.tasks.Update(taskID, func(t *models.Task) {
		t.AppendLog(fmt.Sprintf("%s removed assignees: %s", actor, strings.Join(removed, ", ")))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to log unassignment: %w", err)
	}
	return task, nil
}

// Export returns the full deduplicated record set. Formatting is the
// gateway's concern.
func (s *TaskService) Export() []store.Entry {
	return s.tasks.UniqueAll()
}

// resolve maps a selector to the owning view and task without mutating
// anything. Positional indexes are 1-based into the caller's view.
func (s *TaskService) resolve(principal string, privileged bool, sel Selector) (owner string, task *models.Task, err error) {
	switch {
	case sel.ID != nil:
		owner, _, task, ok := s.tasks.FindByID(*sel.ID)
		if !ok {
			return "", nil, ErrTaskNotFound
		}
		return owner, task, nil

	case sel.Index != nil:
		idx := *sel.Index
		if privileged {
			entries := s.tasks.UniqueAll()
			if idx < 1 || idx > len(entries) {
				return "", nil, ErrTaskNotFound
			}
			e := entries[idx-1]
			return e.Owner, e.Task, nil
		}
		tasks := s.tasks.TasksFor(principal)
		if idx < 1 || idx > len(tasks) {
			return "", nil, ErrTaskNotFound
		}
		return principal, tasks[idx-1], nil
	}
	return "", nil, ErrTaskNotFound
}

// expand resolves the union of explicit users and department members,
// deduplicated and order preserving. A missing department contributes
// nothing.
func (s *TaskService) expand(users []string, department string) []string {
	resolved := append([]string(nil), users...)
	if department != "" {
		if members, ok := s.depts.Members(department); ok {
			resolved = append(resolved, members...)
		}
	}

	seen := make(map[string]struct{}, len(resolved))
	out := make([]string, 0, len(resolved))
	for _, u := range resolved {
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
