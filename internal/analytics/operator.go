package analytics

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/pkg/models"
)

// OperatorPerformance assesses an operator over r, by default the data window
func (s *Service) OperatorPerformance(ctx context.Context, empID string, r models.DateRange) (*OperatorReport, error) {
	period, err := s.window(r, s.config.DataWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opOperatorPerformance, string(models.EntityOperator), empID, r)
	return run(ctx, s, opOperatorPerformance, key, entityAttrs(models.EntityOperator, empID), func(ctx context.Context) (*OperatorReport, error) {
		op, err := s.src.Operator(ctx, empID)
		if err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, models.EntityOperator, empID, period)
		if err != nil {
			return nil, err
		}
		m := stats.Operator(recs)
		ins, err := s.registry.Generate(models.EntityOperator, &insights.Input{
			EntityID:        empID,
			Operator:        op,
			OperatorMetrics: m,
		})
		if err != nil {
			return nil, err
		}
		return &OperatorReport{
			EmpID:        op.EmpID,
			OperatorName: op.Name,
			SkillLevel:   op.SkillLevel,
			Period:       period,
			Metrics:      m,
			Insights:     ins.Operator,
		}, nil
	})
}

// SkillDevelopment compares an operator's record over r, by default the
// skill development window, with the requirements of the next tier.
func (s *Service) SkillDevelopment(ctx context.Context, empID string, r models.DateRange) (*SkillDevelopmentReport, error) {
	period, err := s.window(r, s.config.SkillDevelopmentWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opSkillDevelopment, string(models.EntityOperator), empID, r)
	return run(ctx, s, opSkillDevelopment, key, entityAttrs(models.EntityOperator, empID), func(ctx context.Context) (*SkillDevelopmentReport, error) {
		op, err := s.src.Operator(ctx, empID)
		if err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, models.EntityOperator, empID, period)
		if err != nil {
			return nil, err
		}
		m := stats.Operator(recs)
		return &SkillDevelopmentReport{
			SkillDevelopment:   s.operators.Develop(op, m),
			OperatorName:       op.Name,
			Period:             period,
			CurrentPerformance: m,
		}, nil
	})
}

// TopPerformers ranks operators by metric over r, by default the top
// performer window. A limit of 0 or less uses the configured limit.
func (s *Service) TopPerformers(ctx context.Context, metric string, limit int, r models.DateRange) (*insights.TopPerformers, error) {
	metric, err := insights.ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.config.TopPerformerLimit
	}
	period, err := s.window(r, s.config.TopPerformerWindow)
	if err != nil {
		return nil, err
	}
	key := fleetKey(opTopPerformers, r, metric, strconv.Itoa(limit))
	attrs := []attribute.KeyValue{attribute.String("metric", metric), attribute.Int("limit", limit)}
	return run(ctx, s, opTopPerformers, key, attrs, func(ctx context.Context) (*insights.TopPerformers, error) {
		roster, err := s.src.ListOperators(ctx)
		if err != nil {
			return nil, err
		}
		recs, err := s.src.FetchRecords(ctx, store.RecordFilter{Range: period})
		if err != nil {
			return nil, err
		}
		return insights.AnalyzeTopPerformers(period, stats.OperatorsTotals(recs, roster), metric, limit)
	})
}

// SkillLevelAnalysis relates the operator tier mix to the efficiency of each
// tier over r, by default the history window.
func (s *Service) SkillLevelAnalysis(ctx context.Context, r models.DateRange) (*insights.SkillLevelAnalysis, error) {
	period, err := s.window(r, s.config.HistoryWindow)
	if err != nil {
		return nil, err
	}
	key := fleetKey(opSkillLevels, r)
	return run(ctx, s, opSkillLevels, key, nil, func(ctx context.Context) (*insights.SkillLevelAnalysis, error) {
		roster, err := s.src.ListOperators(ctx)
		if err != nil {
			return nil, err
		}
		recs, err := s.src.FetchRecords(ctx, store.RecordFilter{Range: period})
		if err != nil {
			return nil, err
		}
		return insights.AnalyzeSkillLevels(period, stats.SkillLevels(recs, roster)), nil
	})
}
