package analytics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/savegress/opsight/internal/downtime"
	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/trends"
	"github.com/savegress/opsight/pkg/models"
)

func entityAttrs(entity models.EntityType, id string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("entity.type", string(entity)),
		attribute.String("entity.id", id),
	}
}

// Summarize reduces an entity's records in r to a downtime summary. An
// unbounded range covers the whole log.
func (s *Service) Summarize(ctx context.Context, entity models.EntityType, id string, r models.DateRange) (*downtime.Summary, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key := entityKey(opSummary, string(entity), id, r)
	return run(ctx, s, opSummary, key, entityAttrs(entity, id), func(ctx context.Context) (*downtime.Summary, error) {
		if err := s.exists(ctx, entity, id); err != nil {
			return nil, err
		}
		return s.summary(ctx, entity, id, r)
	})
}

func (s *Service) summary(ctx context.Context, entity models.EntityType, id string, r models.DateRange) (*downtime.Summary, error) {
	recs, err := s.records(ctx, entity, id, r)
	if err != nil {
		return nil, err
	}
	return summarize(entity, id, r, recs), nil
}

func summarize(entity models.EntityType, id string, r models.DateRange, recs []models.OperationRecord) *downtime.Summary {
	sum := downtime.Summarize(recs)
	sum.EntityType = entity
	sum.EntityID = id
	sum.Period = r
	return sum
}

// ComputeOEE scores a machine over r. Planned time is the length of r when
// both bounds are set. Only machines have an OEE.
func (s *Service) ComputeOEE(ctx context.Context, entity models.EntityType, id string, r models.DateRange, includeBenchmarks bool) (*OEEReport, error) {
	if entity != models.EntityMachine {
		return nil, &models.ConfigurationError{Field: "entity_type", Value: string(entity)}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key := entityKey(opOEE, string(entity), id, r, boolKey(includeBenchmarks))
	return run(ctx, s, opOEE, key, entityAttrs(entity, id), func(ctx context.Context) (*OEEReport, error) {
		m, err := s.src.Machine(ctx, id)
		if err != nil {
			return nil, err
		}
		sum, err := s.summary(ctx, entity, id, r)
		if err != nil {
			return nil, err
		}
		res := s.calculator.Calculate(sum, r.Seconds())
		out := &OEEReport{
			MachineID: id,
			Period:    r,
			Metrics:   res,
			Insights:  insights.AnalyzeOEE(res),
		}
		if includeBenchmarks {
			b := s.bench.ForMachine(m.Type)
			out.Benchmarks = &b
		}
		return out, nil
	})
}

// AnalyzeTrends buckets an entity's records by granularity and reports the
// direction of downtime and efficiency.
func (s *Service) AnalyzeTrends(ctx context.Context, entity models.EntityType, id string, r models.DateRange, granularity string) (*TrendReport, error) {
	g, err := trends.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key := entityKey(opTrends, string(entity), id, r, string(g))
	return run(ctx, s, opTrends, key, entityAttrs(entity, id), func(ctx context.Context) (*TrendReport, error) {
		if err := s.exists(ctx, entity, id); err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, entity, id, r)
		if err != nil {
			return nil, err
		}
		series, err := trends.Bucket(recs, g)
		if err != nil {
			return nil, err
		}
		return &TrendReport{
			EntityType: entity,
			EntityID:   id,
			Period:     r,
			Series:     series,
			Insights:   s.analyzer.Analyze(series.Points),
		}, nil
	})
}

// GenerateInsights builds the input of the entity's generator from its
// metadata and records in r, then runs it.
func (s *Service) GenerateInsights(ctx context.Context, entity models.EntityType, id string, r models.DateRange) (*insights.Insight, error) {
	if _, err := s.registry.For(entity); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key := entityKey(opInsights, string(entity), id, r)
	return run(ctx, s, opInsights, key, entityAttrs(entity, id), func(ctx context.Context) (*insights.Insight, error) {
		in, err := s.insightInput(ctx, entity, id, r)
		if err != nil {
			return nil, err
		}
		return s.registry.Generate(entity, in)
	})
}

func (s *Service) insightInput(ctx context.Context, entity models.EntityType, id string, r models.DateRange) (*insights.Input, error) {
	in := &insights.Input{EntityID: id, Now: s.now()}

	switch entity {
	case models.EntityMachine:
		m, err := s.src.Machine(ctx, id)
		if err != nil {
			return nil, err
		}
		in.Machine = m
	case models.EntityOperator:
		op, err := s.src.Operator(ctx, id)
		if err != nil {
			return nil, err
		}
		in.Operator = op
	case models.EntityJob:
		job, err := s.src.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		in.Job = job
	case models.EntityPart:
		p, err := s.src.Part(ctx, id)
		if err != nil {
			return nil, err
		}
		in.Part = p
	}

	recs, err := s.records(ctx, entity, id, r)
	if err != nil {
		return nil, err
	}
	in.Summary = summarize(entity, id, r, recs)
	if len(recs) > 0 {
		series, err := trends.Bucket(recs, models.Daily)
		if err != nil {
			return nil, err
		}
		in.Trends = s.analyzer.Analyze(series.Points)
	}

	switch entity {
	case models.EntityMachine:
		in.OEE = s.calculator.Calculate(in.Summary, r.Seconds())
		in.Performance = stats.MachinePerformance(recs)
	case models.EntityOperator:
		in.OperatorMetrics = stats.Operator(recs)
	case models.EntityJob:
		in.JobMetrics = stats.Job(recs)
	case models.EntityPart:
		in.PartProduction = stats.Part(recs, in.Part.StandardCycleTime)
	}
	return in, nil
}

func boolKey(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
