package stats

import (
	"sort"
	"time"

	"github.com/savegress/opsight/pkg/models"
)

// PartProduction summarizes the production history of one part
type PartProduction struct {
	TotalOperations             int                `json:"total_operations"`
	TotalPartsProduced          int64              `json:"total_parts_produced"`
	TotalRunningTime            int64              `json:"total_running_time"`
	TotalJobDuration            int64              `json:"total_job_duration"`
	AvgPartsPerOperation        float64            `json:"avg_parts_per_operation"`
	AvgRunningTime              float64            `json:"avg_running_time"`
	MachinesUsed                int                `json:"machines_used"`
	OperatorsInvolved           int                `json:"operators_involved"`
	JobsInvolved                int                `json:"jobs_involved"`
	Efficiency                  float64            `json:"efficiency"`
	ActualCycleTime             float64            `json:"actual_cycle_time"`
	CycleTimeVariancePercentage float64            `json:"cycle_time_variance_percentage"`
	FirstProduction             *time.Time         `json:"first_production,omitempty"`
	LastProduction              *time.Time         `json:"last_production,omitempty"`
	MachinePerformance          []MachineBreakdown `json:"machine_performance"`
}

// Part computes production statistics for a part's records. The variance
// against standardCycleTime is 0 when either cycle time is unknown. Machine
// performance is ordered by parts produced, ties by machine id.
func Part(records []models.OperationRecord, standardCycleTime int64) *PartProduction {
	all := aggregateAll(records)
	machines := byMachine(records)
	sort.Slice(machines, func(i, j int) bool {
		if machines[i].PartsProduced != machines[j].PartsProduced {
			return machines[i].PartsProduced > machines[j].PartsProduced
		}
		return machines[i].Machine < machines[j].Machine
	})

	p := &PartProduction{
		TotalOperations:      all.count,
		TotalPartsProduced:   all.parts,
		TotalRunningTime:     all.running,
		TotalJobDuration:     all.duration,
		AvgPartsPerOperation: all.avg(all.parts),
		AvgRunningTime:       all.avg(all.running),
		MachinesUsed:         len(all.machines),
		OperatorsInvolved:    len(all.operators),
		JobsInvolved:         len(all.jobs),
		Efficiency:           all.efficiency(),
		ActualCycleTime:      all.cycleTime(),
		FirstProduction:      all.firstStart,
		LastProduction:       all.lastStart,
		MachinePerformance:   machines,
	}
	if standardCycleTime > 0 && p.ActualCycleTime > 0 {
		std := float64(standardCycleTime)
		p.CycleTimeVariancePercentage = (p.ActualCycleTime - std) / std * 100
	}
	return p
}

// MaterialStats aggregates production by part material
type MaterialStats struct {
	MaterialType         string  `json:"material_type"`
	UniqueParts          int     `json:"unique_parts"`
	TotalOperations      int     `json:"total_operations"`
	TotalPartsProduced   int64   `json:"total_parts_produced"`
	TotalRunningTime     int64   `json:"total_running_time"`
	TotalJobDuration     int64   `json:"total_job_duration"`
	AvgPartsPerOperation float64 `json:"avg_parts_per_operation"`
	AvgRunningTime       float64 `json:"avg_running_time"`
	Efficiency           float64 `json:"efficiency"`
	ProductivityPerHour  float64 `json:"productivity_per_hour"`
	AvgCycleTime         float64 `json:"avg_cycle_time"`
}

// Materials groups records by the material of their part, ordered by
// material name. Parts without a material are skipped.
func Materials(records []models.OperationRecord, parts []models.Part) []MaterialStats {
	material := make(map[string]string, len(parts))
	for _, p := range parts {
		if p.MaterialType != "" {
			material[p.PartNumber] = p.MaterialType
		}
	}

	groups := groupBy(records, func(r *models.OperationRecord) string { return material[r.PartNumber] })
	out := make([]MaterialStats, 0, len(groups))
	for m, g := range groups {
		out = append(out, MaterialStats{
			MaterialType:         m,
			UniqueParts:          len(g.partNos),
			TotalOperations:      g.count,
			TotalPartsProduced:   g.parts,
			TotalRunningTime:     g.running,
			TotalJobDuration:     g.duration,
			AvgPartsPerOperation: g.avg(g.parts),
			AvgRunningTime:       g.avg(g.running),
			Efficiency:           g.efficiency(),
			ProductivityPerHour:  g.productivity(),
			AvgCycleTime:         g.cycleTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialType < out[j].MaterialType })
	return out
}
