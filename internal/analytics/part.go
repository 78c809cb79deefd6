package analytics

import (
	"context"

	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/pkg/models"
)

// PartProduction reports a part's production history over r, by default the
// history window.
func (s *Service) PartProduction(ctx context.Context, partNumber string, r models.DateRange) (*PartReport, error) {
	period, err := s.window(r, s.config.HistoryWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opPartProduction, string(models.EntityPart), partNumber, r)
	return run(ctx, s, opPartProduction, key, entityAttrs(models.EntityPart, partNumber), func(ctx context.Context) (*PartReport, error) {
		part, prod, err := s.partHistory(ctx, partNumber, period)
		if err != nil {
			return nil, err
		}
		return &PartReport{
			Part:       part,
			Period:     period,
			Production: prod,
			Insights: &insights.PartInsights{
				Production: insights.AnalyzeProduction(part, prod),
				Cost:       insights.AnalyzeCost(part, prod),
			},
		}, nil
	})
}

// PartRecommendations lists optimizations for a part from its history over
// r, by default the recommendation window.
func (s *Service) PartRecommendations(ctx context.Context, partNumber string, r models.DateRange) (*insights.PartRecommendations, error) {
	period, err := s.window(r, s.config.RecommendationWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opPartRecommendations, string(models.EntityPart), partNumber, r)
	return run(ctx, s, opPartRecommendations, key, entityAttrs(models.EntityPart, partNumber), func(ctx context.Context) (*insights.PartRecommendations, error) {
		part, prod, err := s.partHistory(ctx, partNumber, period)
		if err != nil {
			return nil, err
		}
		return insights.Recommend(part, prod), nil
	})
}

func (s *Service) partHistory(ctx context.Context, partNumber string, r models.DateRange) (*models.Part, *stats.PartProduction, error) {
	part, err := s.src.Part(ctx, partNumber)
	if err != nil {
		return nil, nil, err
	}
	recs, err := s.records(ctx, models.EntityPart, partNumber, r)
	if err != nil {
		return nil, nil, err
	}
	return part, stats.Part(recs, part.StandardCycleTime), nil
}

// MaterialAnalysis rates production by part material over r, by default the
// history window.
func (s *Service) MaterialAnalysis(ctx context.Context, r models.DateRange) (*insights.MaterialAnalysis, error) {
	period, err := s.window(r, s.config.HistoryWindow)
	if err != nil {
		return nil, err
	}
	key := fleetKey(opMaterials, r)
	return run(ctx, s, opMaterials, key, nil, func(ctx context.Context) (*insights.MaterialAnalysis, error) {
		parts, err := s.src.ListParts(ctx)
		if err != nil {
			return nil, err
		}
		recs, err := s.src.FetchRecords(ctx, store.RecordFilter{Range: period})
		if err != nil {
			return nil, err
		}
		return insights.AnalyzeMaterials(period, stats.Materials(recs, parts)), nil
	})
}

// PartComplexity distributes the part catalogue by precision, hardness and
// size and rates their impact on cycle time
func (s *Service) PartComplexity(ctx context.Context) (*insights.ComplexityAnalysis, error) {
	key := fleetKey(opPartComplexity, models.DateRange{})
	return run(ctx, s, opPartComplexity, key, nil, func(ctx context.Context) (*insights.ComplexityAnalysis, error) {
		parts, err := s.src.ListParts(ctx)
		if err != nil {
			return nil, err
		}
		return insights.AnalyzeComplexity(stats.Complexity(parts)), nil
	})
}

// PartCatalogSummary counts the part catalogue and its data completeness
func (s *Service) PartCatalogSummary(ctx context.Context) (*stats.PartSummary, error) {
	key := fleetKey(opPartCatalog, models.DateRange{})
	return run(ctx, s, opPartCatalog, key, nil, func(ctx context.Context) (*stats.PartSummary, error) {
		parts, err := s.src.ListParts(ctx)
		if err != nil {
			return nil, err
		}
		return stats.Summary(parts), nil
	})
}
