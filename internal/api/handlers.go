package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/pkg/models"
)

const dateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// query rules for the ranking and benchmark endpoints
const (
	limitRule      = "gte=0,lte=100"
	skillLevelRule = "omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"
)

// Health check
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(s.opts.Checks))
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "opsight",
		"time":    time.Now().UTC(),
		"checks":  checks,
	})
}

// parseDate accepts RFC3339 or a bare date. A bare end date covers the whole day.
func parseDate(field, value string, end bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Message: "expected RFC3339 or YYYY-MM-DD"}
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func dateRange(r *http.Request) (models.DateRange, error) {
	q := r.URL.Query()
	start, err := parseDate("start_date", q.Get("start_date"), false)
	if err != nil {
		return models.DateRange{}, err
	}
	end, err := parseDate("end_date", q.Get("end_date"), true)
	if err != nil {
		return models.DateRange{}, err
	}
	dr := models.DateRange{Start: start, End: end}
	return dr, dr.Validate()
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &models.ValidationError{Field: name, Message: "expected a boolean"}
	}
	return b, nil
}

// fail maps service errors onto HTTP statuses
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrConfiguration):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// ranged handles the common id + date range request shape
func (s *Server) ranged(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string, dr models.DateRange) (interface{}, error)) {
	dr, err := dateRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := fn(r.Context(), chi.URLParam(r, "id"), dr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// Entity handlers

func (s *Server) summary(entity models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
			return s.analytics.Summarize(ctx, entity, id, dr)
		})
	}
}

func (s *Server) trends(entity models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		granularity := r.URL.Query().Get("granularity")
		if granularity == "" {
			granularity = string(models.Daily)
		}
		s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
			return s.analytics.AnalyzeTrends(ctx, entity, id, dr, granularity)
		})
	}
}

func (s *Server) insights(entity models.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dr, err := dateRange(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		out, err := s.analytics.GenerateInsights(r.Context(), entity, chi.URLParam(r, "id"), dr)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		respondTagged(w, r, out)
	}
}

// Machine handlers

func (s *Server) machineOEE(w http.ResponseWriter, r *http.Request) {
	include, err := boolParam(r, "include_benchmarks")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.ComputeOEE(ctx, models.EntityMachine, id, dr, include)
	})
}

func (s *Server) machineDowntime(w http.ResponseWriter, r *http.Request) {
	include, err := boolParam(r, "include_trends")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.DowntimeAnalysis(ctx, id, dr, include)
	})
}

func (s *Server) machineStatistics(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.MachineStatistics(ctx, id, dr)
	})
}

func (s *Server) machineUtilization(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.MachineUtilization(ctx, id, dr)
	})
}

func (s *Server) fleetOEE(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, _ string, dr models.DateRange) (interface{}, error) {
		return s.analytics.FleetOEE(ctx, dr)
	})
}

// Operator handlers

func (s *Server) operatorPerformance(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.OperatorPerformance(ctx, id, dr)
	})
}

func (s *Server) skillDevelopment(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.SkillDevelopment(ctx, id, dr)
	})
}

func (s *Server) topPerformers(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = insights.MetricProductivity
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil {
			s.fail(w, r, &models.ValidationError{Field: "limit", Message: "expected an integer"})
			return
		}
		if err := validate.Var(parsed, limitRule); err != nil {
			s.fail(w, r, &models.ValidationError{Field: "limit", Message: "must be between 0 and 100"})
			return
		}
		limit = parsed
	}
	s.ranged(w, r, func(ctx context.Context, _ string, dr models.DateRange) (interface{}, error) {
		return s.analytics.TopPerformers(ctx, metric, limit, dr)
	})
}

func (s *Server) skillLevels(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, _ string, dr models.DateRange) (interface{}, error) {
		return s.analytics.SkillLevelAnalysis(ctx, dr)
	})
}

// Job handlers

func (s *Server) jobPerformance(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.JobPerformance(ctx, id, dr)
	})
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, _ string, dr models.DateRange) (interface{}, error) {
		return s.analytics.ScheduleAnalysis(ctx, dr)
	})
}

func (s *Server) customerJobs(w http.ResponseWriter, r *http.Request) {
	out, err := s.analytics.CustomerAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// Part handlers

func (s *Server) partProduction(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, id string, dr models.DateRange) (interface{}, error) {
		return s.analytics.PartProduction(ctx, id, dr)
	})
}

func (s *Server) partRecommendations(w http.ResponseWriter, r *http.Request) {
	dr, err := dateRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.analytics.PartRecommendations(r.Context(), chi.URLParam(r, "id"), dr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondTagged(w, r, out)
}

func (s *Server) materials(w http.ResponseWriter, r *http.Request) {
	s.ranged(w, r, func(ctx context.Context, _ string, dr models.DateRange) (interface{}, error) {
		return s.analytics.MaterialAnalysis(ctx, dr)
	})
}

func (s *Server) partComplexity(w http.ResponseWriter, r *http.Request) {
	out, err := s.analytics.PartComplexity(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondTagged(w, r, out)
}

func (s *Server) partCatalogSummary(w http.ResponseWriter, r *http.Request) {
	out, err := s.analytics.PartCatalogSummary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// Benchmark handlers

func (s *Server) machineBenchmarks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.analytics.MachineBenchmarks(r.URL.Query().Get("type")))
}

func (s *Server) operatorBenchmarks(w http.ResponseWriter, r *http.Request) {
	level := strings.ToUpper(r.URL.Query().Get("skill_level"))
	if err := validate.Var(level, skillLevelRule); err != nil {
		s.fail(w, r, &models.ValidationError{Field: "skill_level", Message: "unknown skill level"})
		return
	}
	respondJSON(w, http.StatusOK, s.analytics.OperatorBenchmarks(models.SkillLevel(level)))
}
