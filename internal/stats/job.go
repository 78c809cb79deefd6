package stats

import (
	"sort"
	"time"

	"github.com/savegress/opsight/pkg/models"
)

// JobMetrics summarizes the operations logged against one job
type JobMetrics struct {
	TotalOperations      int        `json:"total_operations"`
	TotalRunningTime     int64      `json:"total_running_time"`
	TotalJobDuration     int64      `json:"total_job_duration"`
	TotalPartsProduced   int64      `json:"total_parts_produced"`
	AvgRunningTime       float64    `json:"avg_running_time"`
	AvgJobDuration       float64    `json:"avg_job_duration"`
	AvgPartsPerOperation float64    `json:"avg_parts_per_operation"`
	MachinesUsed         int        `json:"machines_used"`
	OperatorsInvolved    int        `json:"operators_involved"`
	UniqueParts          int        `json:"unique_parts"`
	Efficiency           float64    `json:"efficiency"`
	TotalDowntime        int64      `json:"total_downtime"`
	FirstOperation       *time.Time `json:"first_operation,omitempty"`
	LastOperation        *time.Time `json:"last_operation,omitempty"`
}

// Job computes metrics for one job's records. LastOperation is the latest
// end time on record.
func Job(records []models.OperationRecord) *JobMetrics {
	all := aggregateAll(records)
	return &JobMetrics{
		TotalOperations:      all.count,
		TotalRunningTime:     all.running,
		TotalJobDuration:     all.duration,
		TotalPartsProduced:   all.parts,
		AvgRunningTime:       all.avg(all.running),
		AvgJobDuration:       all.avg(all.duration),
		AvgPartsPerOperation: all.avg(all.parts),
		MachinesUsed:         len(all.machines),
		OperatorsInvolved:    len(all.operators),
		UniqueParts:          len(all.partNos),
		Efficiency:           all.efficiency(),
		TotalDowntime:        all.downtime,
		FirstOperation:       all.firstStart,
		LastOperation:        all.lastEnd,
	}
}

// StatusCount aggregates jobs sharing a status
type StatusCount struct {
	Status                 models.JobStatus `json:"status"`
	JobCount               int              `json:"job_count"`
	AvgEstimatedHours      float64          `json:"avg_estimated_hours"`
	AvgActualHours         float64          `json:"avg_actual_hours"`
	TotalQuantityOrdered   int64            `json:"total_quantity_ordered"`
	TotalQuantityCompleted int64            `json:"total_quantity_completed"`
	CompletionRate         float64          `json:"completion_rate"`
}

// PriorityCount counts jobs sharing a priority
type PriorityCount struct {
	Priority models.JobPriority `json:"priority"`
	JobCount int                `json:"job_count"`
}

// JobStatusSummary is the status and priority mix of a set of jobs
type JobStatusSummary struct {
	TotalJobs              int             `json:"total_jobs"`
	TotalQuantityOrdered   int64           `json:"total_quantity_ordered"`
	TotalQuantityCompleted int64           `json:"total_quantity_completed"`
	OverallCompletionRate  float64         `json:"overall_completion_rate"`
	StatusBreakdown        []StatusCount   `json:"status_breakdown"`
	PriorityBreakdown      []PriorityCount `json:"priority_breakdown"`
}

// Count returns the number of jobs with the given status
func (s *JobStatusSummary) Count(status models.JobStatus) int {
	for _, c := range s.StatusBreakdown {
		if c.Status == status {
			return c.JobCount
		}
	}
	return 0
}

// PriorityJobs returns the number of jobs with the given priority
func (s *JobStatusSummary) PriorityJobs(p models.JobPriority) int {
	for _, c := range s.PriorityBreakdown {
		if c.Priority == p {
			return c.JobCount
		}
	}
	return 0
}

// JobStatuses summarizes jobs by status and priority, both ordered by name
func JobStatuses(jobs []models.Job) *JobStatusSummary {
	type acc struct {
		count              int
		est, act           float64
		ordered, completed int64
	}
	statuses := make(map[models.JobStatus]*acc)
	priorities := make(map[models.JobPriority]int)

	s := &JobStatusSummary{StatusBreakdown: []StatusCount{}, PriorityBreakdown: []PriorityCount{}}
	for _, j := range jobs {
		a, ok := statuses[j.Status]
		if !ok {
			a = &acc{}
			statuses[j.Status] = a
		}
		a.count++
		a.est += j.EstimatedHours
		a.act += j.ActualHours
		a.ordered += j.QuantityOrdered
		a.completed += j.QuantityCompleted
		priorities[j.Priority]++

		s.TotalJobs++
		s.TotalQuantityOrdered += j.QuantityOrdered
		s.TotalQuantityCompleted += j.QuantityCompleted
	}
	s.OverallCompletionRate = percent(float64(s.TotalQuantityCompleted), float64(s.TotalQuantityOrdered))

	for status, a := range statuses {
		s.StatusBreakdown = append(s.StatusBreakdown, StatusCount{
			Status:                 status,
			JobCount:               a.count,
			AvgEstimatedHours:      a.est / float64(a.count),
			AvgActualHours:         a.act / float64(a.count),
			TotalQuantityOrdered:   a.ordered,
			TotalQuantityCompleted: a.completed,
			CompletionRate:         percent(float64(a.completed), float64(a.ordered)),
		})
	}
	sort.Slice(s.StatusBreakdown, func(i, j int) bool {
		return s.StatusBreakdown[i].Status < s.StatusBreakdown[j].Status
	})

	for p, n := range priorities {
		s.PriorityBreakdown = append(s.PriorityBreakdown, PriorityCount{Priority: p, JobCount: n})
	}
	sort.Slice(s.PriorityBreakdown, func(i, j int) bool {
		return s.PriorityBreakdown[i].Priority < s.PriorityBreakdown[j].Priority
	})

	return s
}

// IsOverdue reports whether an open job is past its due date at now
func IsOverdue(j *models.Job, now time.Time) bool {
	if j.DueDate == nil || j.Status == models.JobCompleted || j.Status == models.JobCancelled {
		return false
	}
	return j.DueDate.Before(now)
}

// CustomerSummary holds delivery statistics for one customer's jobs
type CustomerSummary struct {
	TotalJobs              int     `json:"total_jobs"`
	CompletedJobs          int     `json:"completed_jobs"`
	OverdueJobs            int     `json:"overdue_jobs"`
	TotalQuantityOrdered   int64   `json:"total_quantity_ordered"`
	TotalQuantityCompleted int64   `json:"total_quantity_completed"`
	JobCompletionRate      float64 `json:"job_completion_rate"`
	QuantityCompletionRate float64 `json:"quantity_completion_rate"`
	AverageLeadTimeDays    float64 `json:"average_lead_time_days"`
}

// Customer summarizes a customer's jobs as of now. Lead time is measured in
// whole days from start to completion over completed jobs.
func Customer(jobs []models.Job, now time.Time) *CustomerSummary {
	s := &CustomerSummary{TotalJobs: len(jobs)}
	var leadDays, leadJobs int
	for i := range jobs {
		j := &jobs[i]
		s.TotalQuantityOrdered += j.QuantityOrdered
		s.TotalQuantityCompleted += j.QuantityCompleted
		if j.Status == models.JobCompleted {
			s.CompletedJobs++
			if j.StartDate != nil && j.CompletionDate != nil {
				leadDays += WholeDays(j.CompletionDate.Sub(*j.StartDate))
				leadJobs++
			}
		}
		if IsOverdue(j, now) {
			s.OverdueJobs++
		}
	}
	s.JobCompletionRate = percent(float64(s.CompletedJobs), float64(s.TotalJobs))
	s.QuantityCompletionRate = percent(float64(s.TotalQuantityCompleted), float64(s.TotalQuantityOrdered))
	if leadJobs > 0 {
		s.AverageLeadTimeDays = float64(leadDays) / float64(leadJobs)
	}
	return s
}

// WholeDays floors a duration to days, rounding toward negative infinity
func WholeDays(d time.Duration) int {
	days := d / (24 * time.Hour)
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return int(days)
}
