// Package analytics wires the store, the engine packages and the report
// cache into the operations served by the API and the CLI.
package analytics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/benchmarks"
	"github.com/savegress/opsight/internal/cache"
	"github.com/savegress/opsight/internal/config"
	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/observability"
	"github.com/savegress/opsight/internal/oee"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/internal/trends"
	"github.com/savegress/opsight/pkg/models"
	"github.com/savegress/opsight/pkg/workerpool"
)

// Source is the read side of a store
type Source interface {
	store.RecordSource
	store.MetadataSource
}

// Options holds the optional collaborators of a Service
type Options struct {
	Cache  *cache.Cache
	Pool   *workerpool.WorkerPool
	Logger *zap.Logger
	Clock  func() time.Time
}

// Service provides analytics business logic
type Service struct {
	src      Source
	config   config.Analytics
	cache    *cache.Cache
	pool     *workerpool.WorkerPool
	ownsPool bool
	logger   *zap.Logger
	now      func() time.Time
	tracer   trace.Tracer

	calculator *oee.Calculator
	analyzer   *trends.Analyzer
	bench      *benchmarks.Provider
	registry   *insights.Registry
	operators  *insights.OperatorGenerator

	// background fleet refresh
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewService creates a new analytics service. Missing options fall back to a
// disabled cache, a private worker pool, a no-op logger and the wall clock.
func NewService(src Source, cfg config.Analytics, opts Options) (*Service, error) {
	s := &Service{
		src:    src,
		config: cfg,
		cache:  opts.Cache,
		pool:   opts.Pool,
		logger: opts.Logger,
		now:    opts.Clock,
		tracer: observability.Tracer("github.com/savegress/opsight/internal/analytics"),
		stopCh: make(chan struct{}),
	}
	if s.cache == nil {
		s.cache = cache.Disabled()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pool == nil {
		pool, err := workerpool.NewWorkerPool(workerpool.DefaultConfig())
		if err != nil {
			return nil, err
		}
		s.pool = pool
		s.ownsPool = true
	}

	s.calculator = oee.NewCalculator(oee.Config{
		WorldClass:      cfg.WorldClassOEE,
		Acceptable:      cfg.AcceptableOEE,
		Low:             cfg.LowOEE,
		PerformanceRate: cfg.PerformanceRate,
	})
	s.analyzer = trends.NewAnalyzer(cfg.TrendWindow, cfg.TrendBand)
	s.bench = benchmarks.NewProvider()
	icfg := insights.Config{CauseShareThreshold: cfg.CauseShareThreshold}
	s.registry = insights.NewRegistry(icfg, s.bench)
	s.operators = insights.NewOperatorGenerator(icfg, s.bench)
	return s, nil
}

// Start launches the fleet refresh job when one is configured
func (s *Service) Start() {
	if s.config.FleetRefresh <= 0 {
		return
	}
	s.wg.Add(1)
	go s.fleetRefreshJob(s.config.FleetRefresh)
}

// Stop stops background jobs and the private worker pool
func (s *Service) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		if s.ownsPool {
			if err := s.pool.Stop(); err != nil {
				s.logger.Warn("worker pool shutdown", zap.Error(err))
			}
		}
	})
}

// fleetRefreshJob keeps the default fleet report warm
func (s *Service) fleetRefreshJob(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			if err := s.cache.Delete(ctx, fleetKey(opFleetOEE, models.DateRange{})); err != nil {
				s.logger.Warn("fleet refresh: evict", zap.Error(err))
			}
			if _, err := s.FleetOEE(ctx, models.DateRange{}); err != nil {
				s.logger.Error("fleet refresh failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// window validates r and, when neither bound is set, replaces it with the
// trailing window of length d ending now. d of 0 leaves an open range open.
func (s *Service) window(r models.DateRange, d time.Duration) (models.DateRange, error) {
	if err := r.Validate(); err != nil {
		return r, err
	}
	if r.IsZero() && d > 0 {
		end := s.now()
		return models.NewDateRange(end.Add(-d), end), nil
	}
	return r, nil
}

// exists checks that the entity is known to the metadata source
func (s *Service) exists(ctx context.Context, entity models.EntityType, id string) error {
	var err error
	switch entity {
	case models.EntityMachine:
		_, err = s.src.Machine(ctx, id)
	case models.EntityOperator:
		_, err = s.src.Operator(ctx, id)
	case models.EntityJob:
		_, err = s.src.Job(ctx, id)
	case models.EntityPart:
		_, err = s.src.Part(ctx, id)
	default:
		err = &models.ConfigurationError{Field: "entity_type", Value: string(entity)}
	}
	return err
}

func (s *Service) records(ctx context.Context, entity models.EntityType, id string, r models.DateRange) ([]models.OperationRecord, error) {
	return s.src.FetchRecords(ctx, store.RecordFilter{Entity: entity, ID: id, Range: r})
}

// start opens a span for op and returns the function that ends it and
// records the operation latency
func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	began := time.Now()
	ctx, span := s.tracer.Start(ctx, "analytics."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		observability.ObserveAnalytics(op, time.Since(began), err)
	}
}

// run traces op and serves its report from the cache when possible
func run[T any](ctx context.Context, s *Service, op, key string, attrs []attribute.KeyValue, compute func(context.Context) (*T, error)) (out *T, err error) {
	ctx, done := s.start(ctx, op, attrs...)
	defer func() { done(err) }()

	if s.cache.IsEnabled() {
		var hit T
		switch err := s.cache.Get(ctx, key, &hit); {
		case err == nil:
			observability.IncCache(true)
			return &hit, nil
		case !cache.IsMiss(err):
			s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		observability.IncCache(false)
	}

	out, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, out); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

// Invalidate evicts every cached report that the given records feed into
func (s *Service) Invalidate(ctx context.Context, records []models.OperationRecord) error {
	if !s.cache.IsEnabled() || len(records) == 0 {
		return nil
	}
	patterns := map[string]struct{}{
		cache.Key("*", fleetEntity, "*"): {},
	}
	for i := range records {
		r := &records[i]
		patterns[entityPattern(models.EntityMachine, r.MachineID)] = struct{}{}
		patterns[entityPattern(models.EntityOperator, r.EmpID)] = struct{}{}
		patterns[entityPattern(models.EntityJob, r.JobNumber)] = struct{}{}
		patterns[entityPattern(models.EntityPart, r.PartNumber)] = struct{}{}
	}
	for p := range patterns {
		if err := s.cache.DeletePattern(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// MachineBenchmarks returns the industry benchmarks for a machine type
func (s *Service) MachineBenchmarks(machineType string) benchmarks.Machine {
	return s.bench.ForMachine(machineType)
}

// OperatorBenchmarks returns the expectations for a skill level
func (s *Service) OperatorBenchmarks(level models.SkillLevel) benchmarks.Operator {
	return s.bench.ForOperator(level)
}
