package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	config "task-tracker.com/task-tracker/internal/configs"
	"task-tracker.com/task-tracker/internal/constants"
	dto "task-tracker.com/task-tracker/internal/data_models"
	apperrors "task-tracker.com/task-tracker/internal/errors"
	middleware "task-tracker.com/task-tracker/internal/http/middlewares"
	model "task-tracker.com/task-tracker/internal/models"
	repository "task-tracker.com/task-tracker/internal/repositories"
	"task-tracker.com/task-tracker/internal/services"
)

func setupTestServer(t *testing.T, limit int) *echo.Echo {
	t.Helper()

	cfg := config.Default()
	cfg.DatabaseDSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	cfg.DatabaseMaxOpenConns = 1

	db, err := config.NewDatabaseClient(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDatabase(db) })

	service := services.NewTaskService(repository.NewTaskRepository(db, zerolog.Nop()), zerolog.Nop())

	e := echo.New()
	Register(e, NewHandler(service), middleware.NewMemoryLimiter(limit, time.Minute), zerolog.Nop())
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandler_TaskLifecycle(t *testing.T) {
	e := setupTestServer(t, 100)

	rec := doRequest(e, http.MethodPost, "/tasks", `{"description":"Buy milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[model.Task](t, rec)
	if created.ID != 1 || created.Status != constants.StatusTodo {
		t.Errorf("unexpected created task: %+v", created)
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}

	rec = doRequest(e, http.MethodPut, "/tasks/1", `{"description":"Buy oat milk","status":"in_progress"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[model.Task](t, rec)
	if updated.Description != "Buy oat milk" || updated.Status != constants.StatusInProgress {
		t.Errorf("unexpected updated task: %+v", updated)
	}

	rec = doRequest(e, http.MethodGet, "/tasks", "")
	list := decode[dto.TaskListResponse](t, rec)
	if list.Count != 1 || len(list.Tasks) != 1 {
		t.Errorf("expected one task listed, got %+v", list)
	}

	rec = doRequest(e, http.MethodDelete, "/tasks/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(e, http.MethodGet, "/tasks/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestHandler_ValidationErrors(t *testing.T) {
	e := setupTestServer(t, 100)

	cases := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{"blank description", http.MethodPost, "/tasks", `{"description":"   "}`, http.StatusBadRequest},
		{"unknown status", http.MethodPost, "/tasks", `{"description":"x","status":"ARCHIVED"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/tasks", `{"description":`, http.StatusBadRequest},
		{"empty batch", http.MethodPost, "/tasks/batch", `{"descriptions":[]}`, http.StatusBadRequest},
		{"non numeric id", http.MethodGet, "/tasks/abc", "", http.StatusBadRequest},
		{"missing task", http.MethodPut, "/tasks/9", `{"status":"DONE"}`, http.StatusNotFound},
		{"missing delete", http.MethodDelete, "/tasks/9", "", http.StatusNotFound},
	}

	for _, tc := range cases {
		rec := doRequest(e, tc.method, tc.target, tc.body)
		if rec.Code != tc.code {
			t.Errorf("%s: expected %d, got %d: %s", tc.name, tc.code, rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(e, http.MethodGet, "/tasks", "")
	if list := decode[dto.TaskListResponse](t, rec); list.Count != 0 {
		t.Errorf("rejected requests must not write, got %d tasks", list.Count)
	}
}

func TestHandler_NotFoundBody(t *testing.T) {
	e := setupTestServer(t, 100)

	rec := doRequest(e, http.MethodPut, "/tasks/5", `{"status":"DONE"}`)
	body := decode[errorResponse](t, rec)
	if body.Code != "NOT_FOUND" || body.Message != "task not found" {
		t.Errorf("unexpected error body: %+v", body)
	}
	if body.RequestID == "" {
		t.Error("expected request id in error body")
	}
}

func TestHandler_CreateBatch(t *testing.T) {
	e := setupTestServer(t, 100)

	rec := doRequest(e, http.MethodPost, "/tasks/batch", `{"descriptions":["a","b"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	tasks := decode[[]model.Task](t, rec)
	if len(tasks) != 2 || tasks[0].ID == 0 || tasks[1].ID == 0 {
		t.Errorf("expected two stored tasks, got %+v", tasks)
	}

	rec = doRequest(e, http.MethodPost, "/tasks/batch", `{"descriptions":["c"," "]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a blank entry, got %d", rec.Code)
	}
}

func TestHandler_RateLimit(t *testing.T) {
	e := setupTestServer(t, 2)

	for i := 0; i < 2; i++ {
		if rec := doRequest(e, http.MethodGet, "/tasks", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := doRequest(e, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := parseStatus("in-progress")
	if err != nil || status != constants.StatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %q (%v)", status, err)
	}

	if _, err := parseStatus("ARCHIVED"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for an unknown status, got %v", err)
	}
}
