package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskcrew/taskbot/internal/constants"
	apierrors "github.com/taskcrew/taskbot/internal/errors"
	"github.com/taskcrew/taskbot/internal/middleware"
	"github.com/taskcrew/taskbot/internal/services"
	"github.com/taskcrew/taskbot/internal/utils"
)

type TaskHandler struct {
	service *services.TaskService
	auth    *middleware.Authorizer
}

func NewTaskHandler(service *services.TaskService, auth *middleware.Authorizer) *TaskHandler {
	return &TaskHandler{service: service, auth: auth}
}

// CreateTask creates a task assigned to the acting principal.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		Due         *time.Time `json:"due"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Title is required")
		return
	}

	task, err := h.service.Create(principal, req.Title, req.Description, req.Due)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListTasks returns the principal's view: every unique task for
// privileged principals, their own tasks otherwise.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	entries := h.service.List(principal, h.auth.IsPrivileged(c, principal))
	params := utils.GetPaginationParams(c)
	from, to := params.Slice(len(entries))

	c.JSON(http.StatusOK, gin.H{
		"tasks": entries[from:to],
		"pagination": utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(entries),
		},
	})
}

// SearchTasks runs the fuzzy search over every unique task.
func (h *TaskHandler) SearchTasks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		apierrors.BadRequest(c, "Query parameter q is required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.MaxSearchResults)))
	if limit <= 0 || limit > constants.MaxSearchResults {
		limit = constants.MaxSearchResults
	}
	c.JSON(http.StatusOK, gin.H{
		"matches": h.service.Search(query, limit),
	})
}

type selectorRequest struct {
	ID    *int64 `json:"id"`
	Index *int   `json:"index"`
}

func (r selectorRequest) selector() (services.Selector, bool) {
	if r.ID == nil && r.Index == nil {
		return services.Selector{}, false
	}
	return services.Selector{ID: r.ID, Index: r.Index}, true
}

// UpdateTask changes a task's status, targeted by id or by position in
// the principal's view.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type UpdateTaskRequest struct {
		selectorRequest
		Status string `json:"status" binding:"required"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Status is required")
		return
	}
	sel, ok := req.selector()
	if !ok {
		apierrors.BadRequest(c, "Either id or index is required")
		return
	}

	task, err := h.service.UpdateStatus(principal, h.auth.IsPrivileged(c, principal), sel, req.Status)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task, targeted like UpdateTask.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	var req selectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}
	sel, ok := req.selector()
	if !ok {
		apierrors.BadRequest(c, "Either id or index is required")
		return
	}

	if err := h.service.Delete(principal, h.auth.IsPrivileged(c, principal), sel); err != nil {
		apierrors.FromService(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// AssignTask creates a task for a set of users and/or a department.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type AssignTaskRequest struct {
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		Due         *time.Time `json:"due"`
		Department  string     `json:"department"`
		Users       []string   `json:"users"`
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Title is required")
		return
	}

	task, err := h.service.Assign(principal, req.Title, req.Description, req.Due, req.Department, req.Users)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// AddAssignees expands a task's assignee set.
func (h *TaskHandler) AddAssignees(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	type AddAssigneesRequest struct {
		Users      []string `json:"users"`
		Department string   `json:"department"`
	}

	var req AddAssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	task, err := h.service.AddAssignees(principal, taskID, req.Users, req.Department)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// RemoveAssignees shrinks a task's assignee set.
func (h *TaskHandler) RemoveAssignees(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	type RemoveAssigneesRequest struct {
		Users []string `json:"users"`
	}

	var req RemoveAssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	task, err := h.service.RemoveAssignees(principal, taskID, req.Users)
	if err != nil {
		apierrors.FromService(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ExportTasks returns the full deduplicated record set for the
// gateway's export formatters.
func (h *TaskHandler) ExportTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"exported_at": time.Now().UTC(),
		"tasks":       h.service.Export(),
	})
}

func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task id")
		return 0, false
	}
	return id, true
}
