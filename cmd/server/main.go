package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskcrew/taskbot/internal/config"
	"github.com/taskcrew/taskbot/internal/constants"
	"github.com/taskcrew/taskbot/internal/handlers"
	"github.com/taskcrew/taskbot/internal/middleware"
	"github.com/taskcrew/taskbot/internal/notify"
	"github.com/taskcrew/taskbot/internal/scheduler"
	"github.com/taskcrew/taskbot/internal/services"
	"github.com/taskcrew/taskbot/internal/storage"
	"github.com/taskcrew/taskbot/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Open the data directory
	files, err := storage.New(cfg.DataDir, cfg.Retention)
	if err != nil {
		log.Fatalf("Failed to open data directory: %v", err)
	}
	if cfg.SyncHookURL != "" {
		files.SetSyncHook(syncHook(cfg.SyncHookURL))
	}

	// Load persisted state
	settings, err := store.NewSettingsStore(files)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	tasks, err := store.NewTaskStore(files)
	if err != nil {
		log.Fatalf("Failed to load tasks: %v", err)
	}
	depts, err := store.NewDepartmentRegistry(files)
	if err != nil {
		log.Fatalf("Failed to load departments: %v", err)
	}
	managers, err := store.NewManagerRegistry(files)
	if err != nil {
		log.Fatalf("Failed to load managers: %v", err)
	}

	// Pick the reminder delivery channel
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.GatewayDMURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.GatewayDMURL, cfg.GatewayToken)
	}

	// Reconcile overdue tasks, then start the reminder scheduler
	sched := scheduler.New(tasks, settings, notifier, cfg.ScanInterval)
	if err := sched.Reconcile(); err != nil {
		log.Fatalf("Failed to reconcile overdue tasks: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sched.Run(ctx)

	// Initialize handlers
	admins := cfg.AdminIDs
	if cfg.ServerOwnerID != "" {
		admins = append(admins, cfg.ServerOwnerID)
	}
	auth := middleware.NewAuthorizer(managers, admins)
	taskService := services.NewTaskService(tasks, depts)
	taskHandler := handlers.NewTaskHandler(taskService, auth)
	adminHandler := handlers.NewAdminHandler(depts, managers, settings)

	r := setupRouter(cfg, auth, taskHandler, adminHandler)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	if err := tasks.Flush(); err != nil {
		log.Printf("Final flush failed: %v", err)
	}
}

func setupRouter(cfg *config.Config, auth *middleware.Authorizer, taskHandler *handlers.TaskHandler, adminHandler *handlers.AdminHandler) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RequestID())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task bot core is running",
		})
	})

	// API routes, called by the chat gateway only
	api := r.Group("/api")
	api.Use(middleware.RequireGateway(cfg.GatewayToken), middleware.RequirePrincipal())
	{
		tasks := api.Group("/tasks")
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/search", taskHandler.SearchTasks)
			tasks.GET("/export", taskHandler.ExportTasks)
			tasks.PATCH("", taskHandler.UpdateTask)
			tasks.DELETE("", taskHandler.DeleteTask)
			tasks.POST("/assign", auth.RequirePrivileged(), taskHandler.AssignTask)
			tasks.POST("/:id/assignees", auth.RequirePrivileged(), taskHandler.AddAssignees)
			tasks.DELETE("/:id/assignees", auth.RequirePrivileged(), taskHandler.RemoveAssignees)
		}

		depts := api.Group("/departments")
		{
			depts.GET("", adminHandler.ListDepartments)
			depts.POST("", auth.RequireAdmin(), adminHandler.CreateDepartment)
			depts.POST("/:name/members", auth.RequireAdmin(), adminHandler.AddDepartmentMember)
			depts.DELETE("/:name/members/:member", auth.RequireAdmin(), adminHandler.RemoveDepartmentMember)
		}

		api.POST("/managers", auth.RequireAdmin(), adminHandler.AddManagers)
		api.PUT("/settings/reminders", auth.RequireAdmin(), adminHandler.SetReminders)
		api.PUT("/settings/retention", auth.RequireAdmin(), adminHandler.SetRetention)
	}

	return r
}

// syncHook notifies an external replication worker after every save.
// Failures are the storage layer's to log and swallow.
func syncHook(url string) storage.SyncHook {
	client := &http.Client{Timeout: 10 * time.Second}
	return func(name, path string) error {
		req, err := http.NewRequest(http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set(constants.HeaderGatewayToken, os.Getenv("GATEWAY_TOKEN"))
		q := req.URL.Query()
		q.Set("document", name)
		req.URL.RawQuery = q.Encode()

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
}
