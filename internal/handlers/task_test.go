package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/taskcrew/taskbot/internal/middleware"
	"github.com/taskcrew/taskbot/internal/models"
	"github.com/taskcrew/taskbot/internal/services"
	"github.com/taskcrew/taskbot/internal/storage"
	"github.com/taskcrew/taskbot/internal/store"
)

const testGatewayToken = "test-gateway-token"

// TaskHandlerTestSuite exercises the command surface end to end
// against a real file-backed store.
type TaskHandlerTestSuite struct {
	suite.Suite
	router   *gin.Engine
	tasks    *store.TaskStore
	depts    *store.DepartmentRegistry
	managers *store.ManagerRegistry
	service  *services.TaskService
}

// SetupTest runs before each test
func (suite *TaskHandlerTestSuite) SetupTest() {
	files, err := storage.New(suite.T().TempDir(), 3)
	suite.Require().NoError(err)

	suite.tasks, err = store.NewTaskStore(files)
	suite.Require().NoError(err)
	suite.depts, err = store.NewDepartmentRegistry(files)
	suite.Require().NoError(err)
	suite.managers, err = store.NewManagerRegistry(files)
	suite.Require().NoError(err)
	settings, err := store.NewSettingsStore(files)
	suite.Require().NoError(err)

	auth := middleware.NewAuthorizer(suite.managers, []string{"admin"})
	suite.service = services.NewTaskService(suite.tasks, suite.depts)
	taskHandler := NewTaskHandler(suite.service, auth)
	adminHandler := NewAdminHandler(suite.depts, suite.managers, settings)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.RequireGateway(testGatewayToken), middleware.RequirePrincipal())
	api.POST("/tasks", taskHandler.CreateTask)
	api.GET("/tasks", taskHandler.ListTasks)
	api.GET("/tasks/search", taskHandler.SearchTasks)
	api.GET("/tasks/export", taskHandler.ExportTasks)
	api.PATCH("/tasks", taskHandler.UpdateTask)
	api.DELETE("/tasks", taskHandler.DeleteTask)
	api.POST("/tasks/assign", auth.RequirePrivileged(), taskHandler.AssignTask)
	api.POST("/tasks/:id/assignees", auth.RequirePrivileged(), taskHandler.AddAssignees)
	api.DELETE("/tasks/:id/assignees", auth.RequirePrivileged(), taskHandler.RemoveAssignees)
	api.POST("/departments", auth.RequireAdmin(), adminHandler.CreateDepartment)
	api.PUT("/settings/reminders", auth.RequireAdmin(), adminHandler.SetReminders)
	suite.router = r
}

func (suite *TaskHandlerTestSuite) request(method, url, principal string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gateway-Token", testGatewayToken)
	req.Header.Set("X-Principal-ID", principal)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	w := suite.request("POST", "/api/tasks", "alice", gin.H{
		"title":       "Write minutes",
		"description": "from Monday",
	})

	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var task models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(suite.T(), models.TaskStatusPending, task.Status)
	assert.Equal(suite.T(), []string{"alice"}, task.AssignedTo)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_MissingTitle() {
	w := suite.request("POST", "/api/tasks", "alice", gin.H{"description": "no title"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_RejectsBadGatewayToken() {
	req := httptest.NewRequest("POST", "/api/tasks", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set("X-Gateway-Token", "wrong")
	req.Header.Set("X-Principal-ID", "alice")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks_OwnViewOnly() {
	_, err := suite.service.Create("alice", "mine", "", nil)
	suite.Require().NoError(err)
	_, err = suite.service.Create("bob", "not mine", "", nil)
	suite.Require().NoError(err)

	w := suite.request("GET", "/api/tasks", "alice", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Tasks []store.Entry `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp.Tasks, 1)
	assert.Equal(suite.T(), "mine", resp.Tasks[0].Task.Title)
}

func (suite *TaskHandlerTestSuite) TestListTasks_PrivilegedSeesAll() {
	_, err := suite.service.Create("alice", "a", "", nil)
	suite.Require().NoError(err)
	_, err = suite.service.Create("bob", "b", "", nil)
	suite.Require().NoError(err)

	w := suite.request("GET", "/api/tasks", "admin", nil)
	var resp struct {
		Tasks []store.Entry `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(suite.T(), resp.Tasks, 2)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_ForbiddenForOutsider() {
	task, err := suite.service.Create("alice", "a", "", nil)
	suite.Require().NoError(err)

	w := suite.request("PATCH", "/api/tasks", "mallory", gin.H{
		"id":     task.ID,
		"status": "DONE",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_InvalidStatus() {
	task, err := suite.service.Create("alice", "a", "", nil)
	suite.Require().NoError(err)

	w := suite.request("PATCH", "/api/tasks", "alice", gin.H{
		"id":     task.ID,
		"status": "WONTFIX",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "INVALID_STATUS")
}

func (suite *TaskHandlerTestSuite) TestUpdateTask_ByIndex() {
	_, err := suite.service.Create("alice", "a", "", nil)
	suite.Require().NoError(err)

	w := suite.request("PATCH", "/api/tasks", "alice", gin.H{
		"index":  1,
		"status": "IN_PROGRESS",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var task models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(suite.T(), models.TaskStatusInProgress, task.Status)
}

func (suite *TaskHandlerTestSuite) TestDeleteTask_IndexOutOfRange() {
	_, err := suite.service.Create("alice", "a", "", nil)
	suite.Require().NoError(err)

	w := suite.request("DELETE", "/api/tasks", "alice", gin.H{"index": 2})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestAssignTask_RequiresPrivilege() {
	w := suite.request("POST", "/api/tasks/assign", "alice", gin.H{
		"title": "x",
		"users": []string{"bob"},
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *TaskHandlerTestSuite) TestAssignTask_ManagerAllowed() {
	suite.Require().NoError(suite.managers.Add([]string{"mgr"}))
	suite.Require().NoError(suite.depts.Set("eng", []string{"bob", "carol"}))

	w := suite.request("POST", "/api/tasks/assign", "mgr", gin.H{
		"title":      "Ship it",
		"department": "eng",
		"users":      []string{"bob"},
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)

	var task models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &task))
	assert.Equal(suite.T(), []string{"bob", "carol"}, task.AssignedTo)
}

func (suite *TaskHandlerTestSuite) TestAssignTask_EmptyAssignment() {
	w := suite.request("POST", "/api/tasks/assign", "admin", gin.H{
		"title":      "x",
		"department": "ghosts",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "EMPTY_ASSIGNMENT")
}

func (suite *TaskHandlerTestSuite) TestAddAndRemoveAssignees() {
	task, err := suite.service.Create("alice", "shared", "", nil)
	suite.Require().NoError(err)

	url := fmt.Sprintf("/api/tasks/%d/assignees", task.ID)
	w := suite.request("POST", url, "admin", gin.H{"users": []string{"bob"}})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var got models.Task
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	assert.ElementsMatch(suite.T(), []string{"alice", "bob"}, got.AssignedTo)

	w = suite.request("DELETE", url, "admin", gin.H{"users": []string{"alice"}})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(suite.T(), []string{"bob"}, got.AssignedTo)
}

func (suite *TaskHandlerTestSuite) TestSearchTasks() {
	_, err := suite.service.Create("alice", "deploy", "", nil)
	suite.Require().NoError(err)

	w := suite.request("GET", "/api/tasks/search?q=deploy", "alice", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "deploy")
}

func (suite *TaskHandlerTestSuite) TestExportTasks() {
	_, err := suite.service.Assign("admin", "shared", "", nil, "", []string{"alice", "bob"})
	suite.Require().NoError(err)

	w := suite.request("GET", "/api/tasks/export", "admin", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var resp struct {
		Tasks []store.Entry `json:"tasks"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(suite.T(), resp.Tasks, 1)
}

func (suite *TaskHandlerTestSuite) TestCreateDepartment_AdminOnly() {
	w := suite.request("POST", "/api/departments", "alice", gin.H{
		"name":    "eng",
		"members": []string{"bob"},
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request("POST", "/api/departments", "admin", gin.H{
		"name":    "eng",
		"members": []string{"bob"},
	})
	assert.Equal(suite.T(), http.StatusCreated, w.Code)
}

func (suite *TaskHandlerTestSuite) TestSetReminders_ValidatesWindows() {
	w := suite.request("PUT", "/api/settings/reminders", "admin", gin.H{
		"windows": "1d, nope",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request("PUT", "/api/settings/reminders", "admin", gin.H{
		"windows": "1d,2h,30m",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
