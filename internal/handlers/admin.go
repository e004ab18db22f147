package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskcrew/taskbot/internal/errors"
	"github.com/taskcrew/taskbot/internal/scheduler"
	"github.com/taskcrew/taskbot/internal/store"
)

// AdminHandler serves the admin-only registry and settings commands.
type AdminHandler struct {
	depts    *store.DepartmentRegistry
	managers *store.ManagerRegistry
	settings *store.SettingsStore
}

func NewAdminHandler(depts *store.DepartmentRegistry, managers *store.ManagerRegistry, settings *store.SettingsStore) *AdminHandler {
	return &AdminHandler{depts: depts, managers: managers, settings: settings}
}

// CreateDepartment creates or wholesale-replaces a department.
func (h *AdminHandler) CreateDepartment(c *gin.Context) {
	type CreateDepartmentRequest struct {
		Name    string   `json:"name" binding:"required"`
		Members []string `json:"members"`
	}

	var req CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Name is required")
		return
	}

	if err := h.depts.Set(req.Name, req.Members); err != nil {
		apierrors.InternalError(c, "")
		return
	}
	members, _ := h.depts.Members(req.Name)
	c.JSON(http.StatusCreated, gin.H{"name": req.Name, "members": members})
}

// ListDepartments returns every department and its members.
func (h *AdminHandler) ListDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"departments": h.depts.All()})
}

// AddDepartmentMember adds one member to an existing department.
func (h *AdminHandler) AddDepartmentMember(c *gin.Context) {
	type AddMemberRequest struct {
		Member string `json:"member" binding:"required"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Member is required")
		return
	}

	name := c.Param("name")
	found, err := h.depts.AddMember(name, req.Member)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if !found {
		apierrors.NotFound(c, "Department not found")
		return
	}
	members, _ := h.depts.Members(name)
	c.JSON(http.StatusOK, gin.H{"name": name, "members": members})
}

// RemoveDepartmentMember removes one member from a department.
func (h *AdminHandler) RemoveDepartmentMember(c *gin.Context) {
	name := c.Param("name")
	found, err := h.depts.RemoveMember(name, c.Param("member"))
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}
	if !found {
		apierrors.NotFound(c, "Department not found")
		return
	}
	members, _ := h.depts.Members(name)
	c.JSON(http.StatusOK, gin.H{"name": name, "members": members})
}

// AddManagers grants the manager role to the given principals.
func (h *AdminHandler) AddManagers(c *gin.Context) {
	type AddManagersRequest struct {
		Users []string `json:"users" binding:"required"`
	}

	var req AddManagersRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Users) == 0 {
		apierrors.BadRequest(c, "At least one user is required")
		return
	}

	if err := h.managers.Add(req.Users); err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Managers added successfully"})
}

// SetReminders replaces the reminder window list. Accepts the
// gateway's comma-separated form, e.g. "1d,2h,30m".
func (h *AdminHandler) SetReminders(c *gin.Context) {
	type SetRemindersRequest struct {
		Windows string `json:"windows" binding:"required"`
	}

	var req SetRemindersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Windows is required")
		return
	}

	windows := make([]string, 0)
	for _, w := range strings.Split(req.Windows, ",") {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, err := scheduler.ParseWindow(w); err != nil {
			apierrors.BadRequest(c, "Invalid reminder window: "+w)
			return
		}
		windows = append(windows, w)
	}
	if len(windows) == 0 {
		apierrors.BadRequest(c, "At least one reminder window is required")
		return
	}

	if err := h.settings.SetReminderWindows(windows); err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminder_windows": windows})
}

// SetRetention adjusts the backup retention count.
func (h *AdminHandler) SetRetention(c *gin.Context) {
	type SetRetentionRequest struct {
		Count int `json:"count" binding:"required"`
	}

	var req SetRetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Count <= 0 {
		apierrors.BadRequest(c, "A positive retention count is required")
		return
	}

	if err := h.settings.SetBackupRetention(req.Count); err != nil {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_retention": req.Count})
}
