package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/pkg/models"
)

// HoursVariance compares estimated and actual hours
type HoursVariance struct {
	EstimatedHours     float64 `json:"estimated_hours"`
	ActualHours        float64 `json:"actual_hours"`
	VariancePercentage float64 `json:"variance_percentage"`
}

// SchedulePerformance measures a job against its due date. Unknown values
// are left nil.
type SchedulePerformance struct {
	OnSchedule        *bool          `json:"on_schedule"`
	DaysAheadBehind   *int           `json:"days_ahead_behind"`
	DaysUntilDue      *int           `json:"days_until_due,omitempty"`
	HoursVariance     *HoursVariance `json:"estimated_vs_actual_hours"`
	ScheduleAdherence *float64       `json:"schedule_adherence"`
}

// JobInsights assesses one job
type JobInsights struct {
	CompletionPercentage float64              `json:"completion_percentage"`
	UrgencyLevel         int                  `json:"urgency_level"`
	Schedule             *SchedulePerformance `json:"schedule_performance"`
	EfficiencyAssessment string               `json:"efficiency_assessment"`
	ResourceUtilization  string               `json:"resource_utilization"`
	QualityIndicators    []string             `json:"quality_indicators"`
	Recommendations      []string             `json:"recommendations"`
}

var priorityMultipliers = map[models.JobPriority]float64{
	models.PriorityUrgent: 2.0,
	models.PriorityHigh:   1.5,
	models.PriorityNormal: 1.0,
	models.PriorityLow:    0.8,
}

// JobGenerator produces schedule and efficiency insights for jobs
type JobGenerator struct {
	config Config
}

// NewJobGenerator creates a job insight generator
func NewJobGenerator(cfg Config) *JobGenerator {
	return &JobGenerator{config: cfg}
}

// EntityType implements Generator
func (g *JobGenerator) EntityType() models.EntityType { return models.EntityJob }

// Generate implements Generator. Job metadata is required; metrics default
// to an empty job when absent.
func (g *JobGenerator) Generate(in *Input) (*Insight, error) {
	if in == nil || in.Job == nil {
		return nil, errMissing("job")
	}
	metrics := in.JobMetrics
	if metrics == nil {
		metrics = &stats.JobMetrics{}
	}

	out := &Insight{
		EntityType: models.EntityJob,
		EntityID:   in.EntityID,
		Trends:     in.Trends,
		Job:        AnalyzeJob(in.Job, metrics, in.Now),
	}
	if in.Summary != nil {
		out.Downtime = AnalyzeDowntime(in.Summary, g.config.CauseShareThreshold)
	}
	return out, nil
}

// AnalyzeJob assesses efficiency, resources and schedule for one job
func AnalyzeJob(job *models.Job, m *stats.JobMetrics, now time.Time) *JobInsights {
	sp := Schedule(job, m, now)
	out := &JobInsights{
		CompletionPercentage: job.CompletionPercentage(),
		UrgencyLevel:         Urgency(job, now),
		Schedule:             sp,
		EfficiencyAssessment: SeverityUnknown,
		ResourceUtilization:  SeverityUnknown,
		QualityIndicators:    []string{},
		Recommendations:      []string{},
	}
	if m.TotalOperations == 0 {
		return out
	}

	switch e := m.Efficiency; {
	case e >= 0.85:
		out.EfficiencyAssessment = "Excellent"
	case e >= 0.70:
		out.EfficiencyAssessment = "Good"
	case e >= 0.50:
		out.EfficiencyAssessment = "Needs Improvement"
		out.Recommendations = append(out.Recommendations, "Investigate causes of low efficiency")
	default:
		out.EfficiencyAssessment = "Poor"
		out.Recommendations = append(out.Recommendations, "Urgent efficiency improvement needed")
	}

	switch {
	case m.MachinesUsed == 1 && m.OperatorsInvolved == 1:
		out.ResourceUtilization = "Focused - single machine and operator"
	case m.MachinesUsed > 3 || m.OperatorsInvolved > 5:
		out.ResourceUtilization = "Complex - multiple resources involved"
		out.Recommendations = append(out.Recommendations, "Consider resource optimization and coordination")
	default:
		out.ResourceUtilization = "Moderate resource usage"
	}

	if sp.OnSchedule != nil {
		if *sp.OnSchedule {
			out.QualityIndicators = append(out.QualityIndicators, "Delivered on schedule")
		} else {
			out.QualityIndicators = append(out.QualityIndicators, "Delivered late")
			out.Recommendations = append(out.Recommendations, "Review scheduling accuracy and capacity planning")
		}
	}

	if hv := sp.HoursVariance; hv != nil {
		v := hv.VariancePercentage
		switch {
		case absf(v) <= 10:
			out.QualityIndicators = append(out.QualityIndicators, "Accurate time estimation")
		case v > 20:
			out.QualityIndicators = append(out.QualityIndicators, "Significant time overrun")
			out.Recommendations = append(out.Recommendations, "Improve time estimation accuracy")
		case v < -20:
			out.QualityIndicators = append(out.QualityIndicators, "Significant time underestimation")
			out.Recommendations = append(out.Recommendations, "Review estimation methodology")
		}
	}

	switch c := out.CompletionPercentage; {
	case c == 100:
		out.QualityIndicators = append(out.QualityIndicators, "Fully completed")
	case c >= 90:
		out.QualityIndicators = append(out.QualityIndicators, "Near completion")
	case c < 50:
		out.Recommendations = append(out.Recommendations, "Job progress is behind schedule")
	}
	return out
}

// Schedule measures a job against its due date. Completed jobs compare the
// due date with the last operation; open jobs compare it with now.
func Schedule(job *models.Job, m *stats.JobMetrics, now time.Time) *SchedulePerformance {
	sp := &SchedulePerformance{}

	if job.DueDate != nil && m.LastOperation != nil {
		switch job.Status {
		case models.JobCompleted:
			days := stats.WholeDays(job.DueDate.Sub(*m.LastOperation))
			on := days >= 0
			sp.DaysAheadBehind = &days
			sp.OnSchedule = &on
		case models.JobInProgress, models.JobPending:
			days := stats.WholeDays(job.DueDate.Sub(now))
			on := days >= 0
			sp.DaysUntilDue = &days
			sp.OnSchedule = &on
		}
	}

	if job.EstimatedHours > 0 && job.ActualHours > 0 {
		sp.HoursVariance = &HoursVariance{
			EstimatedHours:     job.EstimatedHours,
			ActualHours:        job.ActualHours,
			VariancePercentage: (job.ActualHours - job.EstimatedHours) / job.EstimatedHours * 100,
		}
	}

	if job.StartDate != nil && job.DueDate != nil && m.FirstOperation != nil && m.LastOperation != nil {
		planned := stats.WholeDays(job.DueDate.Sub(*job.StartDate))
		actual := stats.WholeDays(m.LastOperation.Sub(*m.FirstOperation))
		if planned > 0 {
			if actual < 1 {
				actual = 1
			}
			adherence := float64(planned) / float64(actual) * 100
			if adherence > 100 {
				adherence = 100
			}
			sp.ScheduleAdherence = &adherence
		}
	}
	return sp
}

// Urgency rates a job from 1 to 10 by days overdue and priority
func Urgency(job *models.Job, now time.Time) int {
	urgency := 1.0
	if job.DueDate != nil {
		if overdue := stats.WholeDays(now.Sub(*job.DueDate)); overdue > 0 {
			urgency = float64(min(5+overdue, 10))
		}
	}
	mult, ok := priorityMultipliers[job.Priority]
	if !ok {
		mult = 1.0
	}
	return min(int(urgency*mult), 10)
}

// OverdueJob is an open job past its due date
type OverdueJob struct {
	JobNumber    string             `json:"job_number"`
	JobName      string             `json:"job_name"`
	Priority     models.JobPriority `json:"priority"`
	DueDate      *time.Time         `json:"due_date"`
	DaysOverdue  int                `json:"days_overdue"`
	UrgencyLevel int                `json:"urgency_level"`
}

// OverdueJobs lists the overdue jobs among jobs, most urgent first. Ties
// keep the longest overdue first, then job number.
func OverdueJobs(jobs []models.Job, now time.Time) []OverdueJob {
	out := []OverdueJob{}
	for i := range jobs {
		j := &jobs[i]
		if !stats.IsOverdue(j, now) {
			continue
		}
		out = append(out, OverdueJob{
			JobNumber:    j.JobNumber,
			JobName:      j.Name,
			Priority:     j.Priority,
			DueDate:      j.DueDate,
			DaysOverdue:  stats.WholeDays(now.Sub(*j.DueDate)),
			UrgencyLevel: Urgency(j, now),
		})
	}
	sort.Slice(out, func(i, k int) bool {
		a, b := out[i], out[k]
		if a.UrgencyLevel != b.UrgencyLevel {
			return a.UrgencyLevel > b.UrgencyLevel
		}
		if a.DaysOverdue != b.DaysOverdue {
			return a.DaysOverdue > b.DaysOverdue
		}
		return a.JobNumber < b.JobNumber
	})
	return out
}

// ScheduleInsights assesses fleet scheduling health
type ScheduleInsights struct {
	SchedulePerformance string   `json:"schedule_performance"`
	Bottlenecks         []string `json:"bottlenecks"`
	Recommendations     []string `json:"recommendations"`
}

// OverdueAnalysis lists the most urgent overdue jobs
type OverdueAnalysis struct {
	OverdueCount int          `json:"overdue_count"`
	OverdueJobs  []OverdueJob `json:"overdue_jobs"`
}

// ScheduleAnalysis is the fleet schedule report
type ScheduleAnalysis struct {
	Period     models.DateRange        `json:"analysis_period"`
	Status     *stats.JobStatusSummary `json:"status_summary"`
	Overdue    OverdueAnalysis         `json:"overdue_analysis"`
	Scheduling *ScheduleInsights       `json:"scheduling_insights"`
}

const overdueListLimit = 10

// AnalyzeSchedule combines the status mix of jobs created in the period with
// the overdue jobs among all open jobs.
func AnalyzeSchedule(period models.DateRange, summary *stats.JobStatusSummary, open []models.Job, now time.Time) *ScheduleAnalysis {
	overdue := OverdueJobs(open, now)
	listed := overdue
	if len(listed) > overdueListLimit {
		listed = listed[:overdueListLimit]
	}
	return &ScheduleAnalysis{
		Period:     period,
		Status:     summary,
		Overdue:    OverdueAnalysis{OverdueCount: len(overdue), OverdueJobs: listed},
		Scheduling: scheduleInsights(summary, overdue),
	}
}

func scheduleInsights(s *stats.JobStatusSummary, overdue []OverdueJob) *ScheduleInsights {
	out := &ScheduleInsights{
		SchedulePerformance: SeverityUnknown,
		Bottlenecks:         []string{},
		Recommendations:     []string{},
	}
	total := float64(s.TotalJobs)

	if s.TotalJobs > 0 {
		switch p := float64(len(overdue)) / total * 100; {
		case p <= 5:
			out.SchedulePerformance = "Excellent"
		case p <= 15:
			out.SchedulePerformance = "Good"
		case p <= 30:
			out.SchedulePerformance = "Needs Improvement"
			out.Recommendations = append(out.Recommendations, "Review scheduling processes and capacity planning")
		default:
			out.SchedulePerformance = "Poor"
			out.Recommendations = append(out.Recommendations, "Urgent review of scheduling and resource allocation needed")
		}
	}

	if float64(s.Count(models.JobPending)) > total*0.3 {
		out.Bottlenecks = append(out.Bottlenecks, "High number of pending jobs - possible capacity constraint")
	}
	if float64(s.Count(models.JobInProgress)) > total*0.4 {
		out.Bottlenecks = append(out.Bottlenecks, "High number of in-progress jobs - possible completion issues")
	}
	if float64(s.PriorityJobs(models.PriorityUrgent)) > total*0.2 {
		out.Bottlenecks = append(out.Bottlenecks, "High proportion of urgent jobs - review priority assignment")
		out.Recommendations = append(out.Recommendations, "Implement better demand forecasting and capacity planning")
	}

	var critical int
	for _, j := range overdue {
		if j.UrgencyLevel >= 8 {
			critical++
		}
	}
	if critical > 0 {
		out.Recommendations = append(out.Recommendations,
			fmt.Sprintf("%d high-urgency overdue jobs require immediate attention", critical))
	}
	return out
}

// CustomerJob is one line of a customer's job breakdown
type CustomerJob struct {
	JobNumber            string             `json:"job_number"`
	JobName              string             `json:"job_name"`
	Status               models.JobStatus   `json:"status"`
	Priority             models.JobPriority `json:"priority"`
	QuantityOrdered      int64              `json:"quantity_ordered"`
	QuantityCompleted    int64              `json:"quantity_completed"`
	DueDate              *time.Time         `json:"due_date"`
	CompletionPercentage float64            `json:"completion_percentage"`
}

// CustomerInsights characterizes a customer relationship
type CustomerInsights struct {
	Relationship        string   `json:"customer_relationship"`
	DeliveryPerformance string   `json:"delivery_performance"`
	JobComplexity       string   `json:"job_complexity"`
	Recommendations     []string `json:"recommendations"`
}

// CustomerAnalysis is the delivery report for one customer
type CustomerAnalysis struct {
	CustomerID   string                 `json:"customer_id"`
	CustomerName string                 `json:"customer_name,omitempty"`
	Summary      *stats.CustomerSummary `json:"summary,omitempty"`
	Jobs         []CustomerJob          `json:"job_breakdown,omitempty"`
	Insights     *CustomerInsights      `json:"insights,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

// NoCustomerJobsMessage is reported for customers without jobs
const NoCustomerJobsMessage = "No jobs found for this customer"

const customerVolumeWindow = 90 * 24 * time.Hour

// AnalyzeCustomer summarizes a customer's jobs as of now
func AnalyzeCustomer(customerID string, jobs []models.Job, now time.Time) *CustomerAnalysis {
	if len(jobs) == 0 {
		return &CustomerAnalysis{CustomerID: customerID, Message: NoCustomerJobsMessage}
	}

	summary := stats.Customer(jobs, now)
	out := &CustomerAnalysis{
		CustomerID:   customerID,
		CustomerName: jobs[0].CustomerName,
		Summary:      summary,
		Jobs:         make([]CustomerJob, 0, len(jobs)),
	}
	for i := range jobs {
		j := &jobs[i]
		out.Jobs = append(out.Jobs, CustomerJob{
			JobNumber:            j.JobNumber,
			JobName:              j.Name,
			Status:               j.Status,
			Priority:             j.Priority,
			QuantityOrdered:      j.QuantityOrdered,
			QuantityCompleted:    j.QuantityCompleted,
			DueDate:              j.DueDate,
			CompletionPercentage: j.CompletionPercentage(),
		})
	}

	ci := &CustomerInsights{Recommendations: []string{}}
	total := float64(len(jobs))

	switch {
	case len(jobs) >= 20:
		ci.Relationship = "Major customer - high volume"
	case len(jobs) >= 5:
		ci.Relationship = "Regular customer - moderate volume"
	default:
		ci.Relationship = "Occasional customer - low volume"
	}

	switch share := float64(summary.OverdueJobs) / total; {
	case summary.OverdueJobs == 0:
		ci.DeliveryPerformance = "Excellent - no overdue jobs"
	case share <= 0.1:
		ci.DeliveryPerformance = "Good - minimal delays"
	case share <= 0.2:
		ci.DeliveryPerformance = "Needs improvement - some delays"
		ci.Recommendations = append(ci.Recommendations, "Focus on improving delivery reliability for this customer")
	default:
		ci.DeliveryPerformance = "Poor - frequent delays"
		ci.Recommendations = append(ci.Recommendations, "Urgent attention needed for delivery performance")
	}

	var urgent, high, recent, older int
	cutoff := now.Add(-customerVolumeWindow)
	for i := range jobs {
		switch jobs[i].Priority {
		case models.PriorityUrgent:
			urgent++
		case models.PriorityHigh:
			high++
		}
		if c := jobs[i].CreatedAt; !c.IsZero() {
			if c.Before(cutoff) {
				older++
			} else {
				recent++
			}
		}
	}

	switch {
	case float64(urgent)/total >= 0.3:
		ci.JobComplexity = "High urgency customer - frequent rush orders"
		ci.Recommendations = append(ci.Recommendations, "Consider capacity reservation or premium pricing for rush orders")
	case float64(urgent+high)/total >= 0.5:
		ci.JobComplexity = "High priority customer - demanding requirements"
	default:
		ci.JobComplexity = "Standard complexity jobs"
	}

	switch {
	case float64(recent) > float64(older)*1.5:
		ci.Recommendations = append(ci.Recommendations, "Growing customer - consider account management focus")
	case float64(recent) < float64(older)*0.5:
		ci.Recommendations = append(ci.Recommendations, "Declining customer activity - investigate retention opportunities")
	}

	out.Insights = ci
	return out
}
