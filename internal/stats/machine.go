package stats

import (
	"sort"

	"github.com/savegress/opsight/pkg/models"
)

const topN = 5

// OperatorActivity is an operator's share of work on one machine
type OperatorActivity struct {
	EmpID          string  `json:"emp_id"`
	OperatorName   string  `json:"operator_name"`
	JobCount       int     `json:"job_count"`
	AvgRunningTime float64 `json:"avg_running_time"`
	TotalParts     int64   `json:"total_parts"`
}

// PartActivity is a part's share of work on one machine
type PartActivity struct {
	PartNumber     string  `json:"part_number"`
	JobCount       int     `json:"job_count"`
	TotalProduced  int64   `json:"total_produced"`
	AvgRunningTime float64 `json:"avg_running_time"`
}

// Performance holds per-job averages and diversity counts for a record set
type Performance struct {
	TotalJobs       int                `json:"total_jobs"`
	AvgRunningTime  float64            `json:"avg_running_time"`
	AvgJobDuration  float64            `json:"avg_job_duration"`
	AvgPartsPerJob  float64            `json:"avg_parts_per_job"`
	MaxPartsPerJob  int64              `json:"max_parts_per_job"`
	MinPartsPerJob  int64              `json:"min_parts_per_job"`
	UniqueOperators int                `json:"unique_operators"`
	UniqueJobs      int                `json:"unique_jobs"`
	UniqueParts     int                `json:"unique_parts"`
	TopOperators    []OperatorActivity `json:"top_operators"`
	TopParts        []PartActivity     `json:"top_parts"`
}

// MachinePerformance computes performance statistics. Top operators and
// parts are ranked by job count, ties broken by id.
func MachinePerformance(records []models.OperationRecord) *Performance {
	all := aggregateAll(records)
	p := &Performance{
		TotalJobs:       all.count,
		AvgRunningTime:  all.avg(all.running),
		AvgJobDuration:  all.avg(all.duration),
		AvgPartsPerJob:  all.avg(all.parts),
		MaxPartsPerJob:  all.maxParts,
		MinPartsPerJob:  all.minParts,
		UniqueOperators: len(all.operators),
		UniqueJobs:      len(all.jobs),
		UniqueParts:     len(all.partNos),
		TopOperators:    []OperatorActivity{},
		TopParts:        []PartActivity{},
	}

	names := make(map[string]string)
	for i := range records {
		if records[i].OperatorName != "" {
			names[records[i].EmpID] = records[i].OperatorName
		}
	}

	for emp, g := range groupBy(records, func(r *models.OperationRecord) string { return r.EmpID }) {
		p.TopOperators = append(p.TopOperators, OperatorActivity{
			EmpID:          emp,
			OperatorName:   names[emp],
			JobCount:       g.count,
			AvgRunningTime: g.avg(g.running),
			TotalParts:     g.parts,
		})
	}
	sort.Slice(p.TopOperators, func(i, j int) bool {
		a, b := p.TopOperators[i], p.TopOperators[j]
		if a.JobCount != b.JobCount {
			return a.JobCount > b.JobCount
		}
		return a.EmpID < b.EmpID
	})
	if len(p.TopOperators) > topN {
		p.TopOperators = p.TopOperators[:topN]
	}

	for part, g := range groupBy(records, func(r *models.OperationRecord) string { return r.PartNumber }) {
		p.TopParts = append(p.TopParts, PartActivity{
			PartNumber:     part,
			JobCount:       g.count,
			TotalProduced:  g.parts,
			AvgRunningTime: g.avg(g.running),
		})
	}
	sort.Slice(p.TopParts, func(i, j int) bool {
		a, b := p.TopParts[i], p.TopParts[j]
		if a.JobCount != b.JobCount {
			return a.JobCount > b.JobCount
		}
		return a.PartNumber < b.PartNumber
	})
	if len(p.TopParts) > topN {
		p.TopParts = p.TopParts[:topN]
	}

	return p
}

// Utilization measures how much of a window a machine was in use
type Utilization struct {
	TotalPeriodHours     float64 `json:"total_period_hours"`
	TotalUsageTime       int64   `json:"total_usage_time"`
	TotalRunningTime     int64   `json:"total_running_time"`
	TotalJobs            int     `json:"total_jobs"`
	UsagePercentage      float64 `json:"usage_percentage"`
	EfficiencyPercentage float64 `json:"efficiency_percentage"`
}

// MachineUtilization relates usage (job duration) to the window length in seconds
func MachineUtilization(records []models.OperationRecord, windowSeconds float64) *Utilization {
	all := aggregateAll(records)
	return &Utilization{
		TotalPeriodHours:     windowSeconds / 3600,
		TotalUsageTime:       all.duration,
		TotalRunningTime:     all.running,
		TotalJobs:            all.count,
		UsagePercentage:      percent(float64(all.duration), windowSeconds),
		EfficiencyPercentage: percent(float64(all.running), float64(all.duration)),
	}
}

// MachineBreakdown is production on one machine
type MachineBreakdown struct {
	Machine              string  `json:"machine"`
	OperationCount       int     `json:"operation_count"`
	PartsProduced        int64   `json:"parts_produced"`
	RunningTime          int64   `json:"running_time"`
	JobDuration          int64   `json:"job_duration"`
	AvgPartsPerOperation float64 `json:"avg_parts_per_operation"`
	AvgRunningTime       float64 `json:"avg_running_time"`
	Efficiency           float64 `json:"efficiency"`
	AvgCycleTime         float64 `json:"avg_cycle_time"`
	ProductivityPerHour  float64 `json:"productivity_per_hour"`
}

// byMachine groups records per machine, unsorted
func byMachine(records []models.OperationRecord) []MachineBreakdown {
	groups := groupBy(records, func(r *models.OperationRecord) string { return r.MachineID })
	out := make([]MachineBreakdown, 0, len(groups))
	for m, g := range groups {
		out = append(out, MachineBreakdown{
			Machine:              m,
			OperationCount:       g.count,
			PartsProduced:        g.parts,
			RunningTime:          g.running,
			JobDuration:          g.duration,
			AvgPartsPerOperation: g.avg(g.parts),
			AvgRunningTime:       g.avg(g.running),
			Efficiency:           g.efficiency(),
			AvgCycleTime:         g.cycleTime(),
			ProductivityPerHour:  g.productivity(),
		})
	}
	return out
}
