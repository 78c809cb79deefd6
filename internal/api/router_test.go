package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/analytics"
	"github.com/savegress/opsight/internal/config"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/pkg/models"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	mem := store.NewMemory()
	due := base.Add(24 * time.Hour)
	require.NoError(t, mem.Seed(context.Background(), &store.Fixture{
		Machines:  []models.Machine{{MachineID: "M1", Name: "Lathe 1", Type: "CNC Lathe", Status: "ACTIVE"}},
		Operators: []models.Operator{{EmpID: "E1", Name: "Ana", SkillLevel: models.SkillIntermediate}},
		Jobs: []models.Job{{JobNumber: "J1", CustomerID: "C1", Priority: models.PriorityHigh, Status: models.JobInProgress,
			QuantityOrdered: 40, QuantityCompleted: 16, DueDate: &due, CreatedAt: base.Add(-24 * time.Hour)}},
		Parts: []models.Part{{PartNumber: "P1", Name: "Shaft", MaterialType: "Steel", StandardCycleTime: 300,
			CostPerUnit: decimal.RequireFromString("12.50")}},
		Records: []models.OperationRecord{
			{MachineID: "M1", JobNumber: "J1", PartNumber: "P1", EmpID: "E1", StartTime: base,
				RunningTime: 3000, JobDuration: 3600, PartsProduced: 10, SetupTime: 600},
			{MachineID: "M1", JobNumber: "J1", PartNumber: "P1", EmpID: "E1", StartTime: base.Add(24 * time.Hour),
				RunningTime: 1800, JobDuration: 3600, PartsProduced: 6, IdleTime: 1200, MaintenanceTime: 600},
		},
	}))

	svc, err := analytics.NewService(mem, config.DefaultAnalytics(), analytics.Options{
		Logger: zap.NewNop(),
		Clock:  func() time.Time { return base.Add(72 * time.Hour) },
	})
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return NewServer(svc, opts).Handler()
}

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, Options{Checks: map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
	}})
	w := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])

	h = newTestServer(t, Options{Checks: map[string]HealthCheck{
		"cache": func(context.Context) error { return errors.New("connection refused") },
	}})
	w = get(t, h, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestRoutes(t *testing.T) {
	h := newTestServer(t, Options{})

	routes := []string{
		"/api/v1/machines/M1/summary",
		"/api/v1/machines/M1/oee",
		"/api/v1/machines/M1/trends",
		"/api/v1/machines/M1/downtime?include_trends=true",
		"/api/v1/machines/M1/insights",
		"/api/v1/machines/M1/statistics",
		"/api/v1/machines/M1/utilization",
		"/api/v1/machines/oee",
		"/api/v1/operators/E1/performance",
		"/api/v1/operators/E1/skill-development",
		"/api/v1/operators/E1/summary",
		"/api/v1/operators/top?metric=efficiency&limit=5",
		"/api/v1/operators/skill-levels",
		"/api/v1/jobs/J1/performance",
		"/api/v1/jobs/J1/summary",
		"/api/v1/jobs/schedule",
		"/api/v1/customers/C1/jobs",
		"/api/v1/parts/P1/production",
		"/api/v1/parts/P1/recommendations",
		"/api/v1/parts/P1/summary",
		"/api/v1/parts/materials",
		"/api/v1/parts/complexity",
		"/api/v1/parts/statistics",
		"/api/v1/benchmarks/machines?type=CNC%20Lathe",
		"/api/v1/benchmarks/operators?skill_level=expert",
	}
	for _, path := range routes {
		t.Run(path, func(t *testing.T) {
			w := get(t, h, path)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestMachineEndpoints(t *testing.T) {
	h := newTestServer(t, Options{})

	w := get(t, h, "/api/v1/machines/M1/summary?start_date=2024-03-04&end_date=2024-03-04")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["total_records"])

	w = get(t, h, "/api/v1/machines/M1/oee?include_benchmarks=true")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	metrics := body["oee_metrics"].(map[string]interface{})
	assert.InDelta(t, 4800.0/7200.0, metrics["availability"], 1e-9)
	bench := body["industry_benchmarks"].(map[string]interface{})
	assert.Equal(t, 0.80, bench["world_class_oee"])

	w = get(t, h, "/api/v1/benchmarks/machines?type=CNC%20Lathe")
	assert.Equal(t, 0.80, decode(t, w)["world_class_oee"])
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t, Options{})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"unknown machine", "/api/v1/machines/M9/summary", http.StatusNotFound},
		{"unknown part", "/api/v1/parts/P9/production", http.StatusNotFound},
		{"bad granularity", "/api/v1/machines/M1/trends?granularity=hourly", http.StatusBadRequest},
		{"bad date", "/api/v1/machines/M1/summary?start_date=yesterday", http.StatusBadRequest},
		{"inverted range", "/api/v1/machines/M1/summary?start_date=2024-03-05&end_date=2024-03-01", http.StatusBadRequest},
		{"bad bool", "/api/v1/machines/M1/oee?include_benchmarks=maybe", http.StatusBadRequest},
		{"bad metric", "/api/v1/operators/top?metric=charisma", http.StatusBadRequest},
		{"bad limit", "/api/v1/operators/top?limit=ten", http.StatusBadRequest},
		{"limit too large", "/api/v1/operators/top?limit=500", http.StatusBadRequest},
		{"unknown skill level", "/api/v1/benchmarks/operators?skill_level=wizard", http.StatusBadRequest},
		{"unknown route", "/api/v1/lines/L1/summary", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, tt.path)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.name != "unknown route" {
				body := decode(t, w)
				assert.Equal(t, http.StatusText(tt.want), body["error"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

func TestInsightsETag(t *testing.T) {
	h := newTestServer(t, Options{})

	w := get(t, h, "/api/v1/machines/M1/insights")
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)
	assert.Equal(t, etag(w.Body.Bytes()[:w.Body.Len()-1]), tag)

	w = get(t, h, "/api/v1/machines/M1/insights", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = get(t, h, "/api/v1/machines/M1/insights", "If-None-Match", `"stale"`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEtagMatches(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"x", "abc"`, true},
		{"*", true},
		{`"abd"`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, etagMatches(tt.header, `"abc"`), tt.header)
	}
}

func signed(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "planner-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	h := newTestServer(t, Options{JWTSecret: "test-secret"})
	path := "/api/v1/machines/M1/summary"

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signed(t, "other", jwt.SigningMethodHS256), http.StatusUnauthorized},
		{"valid", "Bearer " + signed(t, "test-secret", jwt.SigningMethodHS256), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w *httptest.ResponseRecorder
			if tt.header == "" {
				w = get(t, h, path)
			} else {
				w = get(t, h, path, "Authorization", tt.header)
			}
			assert.Equal(t, tt.want, w.Code)
		})
	}

	// health and metrics stay public
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/metrics").Code)
}

func TestParseDate(t *testing.T) {
	start, err := parseDate("start_date", "2024-03-04", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), *start)

	end, err := parseDate("end_date", "2024-03-04", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 23, 59, 59, 999999999, time.UTC), *end)

	ts, err := parseDate("start_date", "2024-03-04T08:30:00+02:00", false)
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 3, 4, 6, 30, 0, 0, time.UTC)))

	missing, err := parseDate("start_date", "", false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
