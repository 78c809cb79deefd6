package analytics

import (
	"time"

	"github.com/savegress/opsight/internal/cache"
	"github.com/savegress/opsight/pkg/models"
)

// Operation names, used for span names, metrics and cache keys
const (
	opSummary             = "summary"
	opOEE                 = "oee"
	opTrends              = "trends"
	opInsights            = "insights"
	opDowntime            = "downtime"
	opStatistics          = "statistics"
	opUtilization         = "utilization"
	opOperatorPerformance = "operator_performance"
	opSkillDevelopment    = "skill_development"
	opTopPerformers       = "top_performers"
	opSkillLevels         = "skill_levels"
	opJobPerformance      = "job_performance"
	opSchedule            = "schedule"
	opCustomer            = "customer"
	opPartProduction      = "part_production"
	opPartRecommendations = "part_recommendations"
	opMaterials           = "materials"
	opPartComplexity      = "part_complexity"
	opPartCatalog         = "part_catalog"
	opFleetOEE            = "fleet_oee"
)

// fleetEntity scopes reports computed over every entity
const fleetEntity = "fleet"

const customerEntity = "customer"

func boundKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// entityKey is op:entity:id:start:end[:extra...]. The range is the one the
// caller asked for, before any default window is applied.
func entityKey(op, entity, id string, r models.DateRange, extra ...string) string {
	parts := append([]string{op, entity, id, boundKey(r.Start), boundKey(r.End)}, extra...)
	return cache.Key(parts...)
}

func fleetKey(op string, r models.DateRange, extra ...string) string {
	return entityKey(op, fleetEntity, "", r, extra...)
}

func entityPattern(entity models.EntityType, id string) string {
	return cache.Key("*", string(entity), id, "*")
}
