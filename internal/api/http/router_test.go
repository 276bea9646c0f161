package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dtcstudio/taskboard/internal/api/http/handlers"
	"github.com/dtcstudio/taskboard/internal/auth"
	"github.com/dtcstudio/taskboard/internal/config"
	"github.com/dtcstudio/taskboard/internal/domain"
	"github.com/dtcstudio/taskboard/internal/events"
	"github.com/dtcstudio/taskboard/internal/observability"
	"github.com/dtcstudio/taskboard/internal/repository/memory"
	"github.com/dtcstudio/taskboard/internal/service"
)

type apiFixture struct {
	app      *fiber.App
	staff    *memory.StaffRepo
	tasks    *memory.TaskRepo
	manager  *domain.StaffMember
	designer *domain.StaffMember
	tokens   *auth.TokenManager
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              4,
		},
	}

	staffRepo := memory.NewStaffRepo()
	taskRepo := memory.NewTaskRepo()
	notificationRepo := memory.NewNotificationRepo()
	reportRepo := memory.NewReportRepo()
	dispatcher := events.NewInMemoryDispatcher()
	logger := zap.NewNop()

	ctx := context.Background()
	hash, err := auth.HashPassword("seaside", cfg.Auth.BcryptCost)
	require.NoError(t, err)
	manager := &domain.StaffMember{Name: "Mara", Email: "mara@example.com", PasswordHash: hash, Role: domain.StaffRoleManager, Active: true}
	designer := &domain.StaffMember{Name: "Dana", Email: "dana@example.com", PasswordHash: hash, Role: domain.StaffRoleDesigner, Active: true}
	require.NoError(t, staffRepo.Create(ctx, manager))
	require.NoError(t, staffRepo.Create(ctx, designer))

	authService := service.NewAuthService(cfg, service.AuthDependencies{StaffRepo: staffRepo})
	staffService := service.NewStaffService(cfg, staffRepo)
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		LogRepo:    taskRepo,
		StaffRepo:  staffRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		TaskRepo:         taskRepo,
		StaffRepo:        staffRepo,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		ReportRepo: reportRepo,
		TaskRepo:   taskRepo,
		StaffRepo:  staffRepo,
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("taskboard", "test", nil, nil),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		Tasks:          handlers.NewTasksHandler(taskService),
		Reports:        handlers.NewReportsHandler(reportService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), staffRepo),
	})

	return &apiFixture{
		app:      app,
		staff:    staffRepo,
		tasks:    taskRepo,
		manager:  manager,
		designer: designer,
		tokens:   authService.TokenManager(),
	}
}

func (f *apiFixture) tokenFor(t *testing.T, staff *domain.StaffMember) string {
	t.Helper()
	token, _, err := f.tokens.GenerateToken(staff.ID, staff.Role)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealthLive(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.request(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.request(t, http.MethodPost, "/auth/login", "", fiber.Map{
		"email":    "mara@example.com",
		"password": "seaside",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			Token string `json:"token"`
			Staff struct {
				Role string `json:"role"`
			} `json:"staff"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, "Manager", body.Data.Staff.Role)

	resp = f.request(t, http.MethodPost, "/auth/login", "", fiber.Map{
		"email":    "mara@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTaskEndpointsEnforceRoles(t *testing.T) {
	f := newAPIFixture(t)
	managerToken := f.tokenFor(t, f.manager)
	designerToken := f.tokenFor(t, f.designer)

	payload := fiber.Map{
		"title":       "Landing page mockup",
		"purpose":     "Spring campaign",
		"assignee_id": f.designer.ID,
		"role":        "Designer",
		"priority":    "High",
		"deadline":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}

	// no token
	resp := f.request(t, http.MethodPost, "/tasks/", "", payload)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// non-manager
	resp = f.request(t, http.MethodPost, "/tasks/", designerToken, payload)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// manager
	resp = f.request(t, http.MethodPost, "/tasks/", managerToken, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Priority string `json:"priority"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "TODO", created.Data.Status)
	assert.Equal(t, "High", created.Data.Priority)
	assert.Equal(t, "Designer", created.Data.Role)

	// assignee moves it to BLOCKER without a reason: rejected
	statusPath := fmt.Sprintf("/tasks/%s/status", created.Data.ID)
	resp = f.request(t, http.MethodPatch, statusPath, designerToken, fiber.Map{"status": "BLOCKER"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.request(t, http.MethodPatch, statusPath, designerToken, fiber.Map{
		"status":         "BLOCKER",
		"blocker_reason": "waiting on vendor",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// board shows the detail with history
	resp = f.request(t, http.MethodGet, "/tasks/"+created.Data.ID, designerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Data struct {
			Status  string `json:"status"`
			History []struct {
				Field    string `json:"field"`
				NewValue string `json:"new_value"`
			} `json:"history"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, "BLOCKER", detail.Data.Status)
	require.Len(t, detail.Data.History, 2)
	assert.Equal(t, "Task", detail.Data.History[0].Field)
	assert.Equal(t, "BLOCKER", detail.Data.History[1].NewValue)

	// deletion is manager-only
	resp = f.request(t, http.MethodDelete, "/tasks/"+created.Data.ID, designerToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = f.request(t, http.MethodDelete, "/tasks/"+created.Data.ID, managerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
