package stats

import (
	"sort"

	"github.com/savegress/opsight/pkg/models"
)

// OperatorMetrics summarizes one operator's work
type OperatorMetrics struct {
	TotalJobs           int                `json:"total_jobs"`
	TotalRunningTime    int64              `json:"total_running_time"`
	TotalJobDuration    int64              `json:"total_job_duration"`
	TotalPartsProduced  int64              `json:"total_parts_produced"`
	AvgRunningTime      float64            `json:"avg_running_time"`
	AvgJobDuration      float64            `json:"avg_job_duration"`
	AvgPartsPerJob      float64            `json:"avg_parts_per_job"`
	MaxPartsPerJob      int64              `json:"max_parts_per_job"`
	MinPartsPerJob      int64              `json:"min_parts_per_job"`
	MachinesOperated    int                `json:"machines_operated"`
	UniqueJobs          int                `json:"unique_jobs"`
	UniqueParts         int                `json:"unique_parts"`
	Efficiency          float64            `json:"efficiency"`
	ProductivityPerHour float64            `json:"productivity_per_hour"`
	TotalDowntime       int64              `json:"total_downtime"`
	MachinePerformance  []MachineBreakdown `json:"machine_performance"`
}

// Operator computes metrics for one operator's records. Machine performance
// is ordered by operation count, ties by machine id.
func Operator(records []models.OperationRecord) *OperatorMetrics {
	all := aggregateAll(records)
	machines := byMachine(records)
	sort.Slice(machines, func(i, j int) bool {
		if machines[i].OperationCount != machines[j].OperationCount {
			return machines[i].OperationCount > machines[j].OperationCount
		}
		return machines[i].Machine < machines[j].Machine
	})

	return &OperatorMetrics{
		TotalJobs:           all.count,
		TotalRunningTime:    all.running,
		TotalJobDuration:    all.duration,
		TotalPartsProduced:  all.parts,
		AvgRunningTime:      all.avg(all.running),
		AvgJobDuration:      all.avg(all.duration),
		AvgPartsPerJob:      all.avg(all.parts),
		MaxPartsPerJob:      all.maxParts,
		MinPartsPerJob:      all.minParts,
		MachinesOperated:    len(all.machines),
		UniqueJobs:          len(all.jobs),
		UniqueParts:         len(all.partNos),
		Efficiency:          all.efficiency(),
		ProductivityPerHour: all.productivity(),
		TotalDowntime:       all.downtime,
		MachinePerformance:  machines,
	}
}

// OperatorTotals is an operator's aggregate used for ranking
type OperatorTotals struct {
	EmpID               string            `json:"emp_id"`
	OperatorName        string            `json:"operator_name"`
	SkillLevel          models.SkillLevel `json:"skill_level,omitempty"`
	Department          string            `json:"department,omitempty"`
	TotalJobs           int               `json:"total_jobs"`
	TotalRunningTime    int64             `json:"total_running_time"`
	TotalJobDuration    int64             `json:"total_job_duration"`
	TotalPartsProduced  int64             `json:"total_parts_produced"`
	AvgPartsPerJob      float64           `json:"avg_parts_per_job"`
	Efficiency          float64           `json:"efficiency"`
	ProductivityPerHour float64           `json:"productivity_per_hour"`
}

// OperatorsTotals aggregates records per known operator, ordered by emp id.
// Records for operators missing from the roster are ignored.
func OperatorsTotals(records []models.OperationRecord, roster []models.Operator) []OperatorTotals {
	byID := make(map[string]models.Operator, len(roster))
	for _, op := range roster {
		byID[op.EmpID] = op
	}

	groups := groupBy(records, func(r *models.OperationRecord) string { return r.EmpID })
	out := make([]OperatorTotals, 0, len(groups))
	for emp, g := range groups {
		op, ok := byID[emp]
		if !ok {
			continue
		}
		out = append(out, OperatorTotals{
			EmpID:               emp,
			OperatorName:        op.Name,
			SkillLevel:          op.SkillLevel,
			Department:          op.Department,
			TotalJobs:           g.count,
			TotalRunningTime:    g.running,
			TotalJobDuration:    g.duration,
			TotalPartsProduced:  g.parts,
			AvgPartsPerJob:      g.avg(g.parts),
			Efficiency:          g.efficiency(),
			ProductivityPerHour: g.productivity(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmpID < out[j].EmpID })
	return out
}

// SkillLevelStats aggregates work by operator skill tier
type SkillLevelStats struct {
	SkillLevel          models.SkillLevel `json:"skill_level"`
	OperatorCount       int               `json:"operator_count"`
	TotalJobs           int               `json:"total_jobs"`
	AvgRunningTime      float64           `json:"avg_running_time"`
	AvgPartsPerJob      float64           `json:"avg_parts_per_job"`
	TotalRunningTime    int64             `json:"total_running_time"`
	TotalJobDuration    int64             `json:"total_job_duration"`
	TotalPartsProduced  int64             `json:"total_parts_produced"`
	Efficiency          float64           `json:"efficiency"`
	ProductivityPerHour float64           `json:"productivity_per_hour"`
}

var skillOrder = map[models.SkillLevel]int{
	models.SkillBeginner:     0,
	models.SkillIntermediate: 1,
	models.SkillAdvanced:     2,
	models.SkillExpert:       3,
}

// SkillLevels groups records by the skill level of their operator. Operators
// without a skill level, and records without a known operator, are skipped.
// Tiers are ordered from BEGINNER to EXPERT.
func SkillLevels(records []models.OperationRecord, roster []models.Operator) []SkillLevelStats {
	skill := make(map[string]models.SkillLevel, len(roster))
	for _, op := range roster {
		if op.SkillLevel != "" {
			skill[op.EmpID] = op.SkillLevel
		}
	}

	groups := groupBy(records, func(r *models.OperationRecord) string { return string(skill[r.EmpID]) })
	out := make([]SkillLevelStats, 0, len(groups))
	for level, g := range groups {
		out = append(out, SkillLevelStats{
			SkillLevel:          models.SkillLevel(level),
			OperatorCount:       len(g.operators),
			TotalJobs:           g.count,
			AvgRunningTime:      g.avg(g.running),
			AvgPartsPerJob:      g.avg(g.parts),
			TotalRunningTime:    g.running,
			TotalJobDuration:    g.duration,
			TotalPartsProduced:  g.parts,
			Efficiency:          g.efficiency(),
			ProductivityPerHour: g.productivity(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := skillOrder[out[i].SkillLevel]
		oj, jok := skillOrder[out[j].SkillLevel]
		if iok != jok {
			return iok
		}
		if oi != oj {
			return oi < oj
		}
		return out[i].SkillLevel < out[j].SkillLevel
	})
	return out
}
