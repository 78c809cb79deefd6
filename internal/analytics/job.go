package analytics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/pkg/models"
)

// JobPerformance assesses a job from its operations in r. Without bounds
// the whole history of the job is used.
func (s *Service) JobPerformance(ctx context.Context, jobNumber string, r models.DateRange) (*JobReport, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key := entityKey(opJobPerformance, string(models.EntityJob), jobNumber, r)
	return run(ctx, s, opJobPerformance, key, entityAttrs(models.EntityJob, jobNumber), func(ctx context.Context) (*JobReport, error) {
		job, err := s.src.Job(ctx, jobNumber)
		if err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, models.EntityJob, jobNumber, r)
		if err != nil {
			return nil, err
		}
		m := stats.Job(recs)
		return &JobReport{
			Job:      job,
			Period:   r,
			Metrics:  m,
			Insights: insights.AnalyzeJob(job, m, s.now()),
		}, nil
	})
}

// ScheduleAnalysis reports the status mix of jobs created in r, by default
// the schedule window, and the overdue jobs among every open job.
func (s *Service) ScheduleAnalysis(ctx context.Context, r models.DateRange) (*insights.ScheduleAnalysis, error) {
	period, err := s.window(r, s.config.ScheduleWindow)
	if err != nil {
		return nil, err
	}
	key := fleetKey(opSchedule, r)
	return run(ctx, s, opSchedule, key, nil, func(ctx context.Context) (*insights.ScheduleAnalysis, error) {
		created, err := s.src.ListJobs(ctx, store.JobFilter{Created: period})
		if err != nil {
			return nil, err
		}
		all, err := s.src.ListJobs(ctx, store.JobFilter{})
		if err != nil {
			return nil, err
		}
		return insights.AnalyzeSchedule(period, stats.JobStatuses(created), all, s.now()), nil
	})
}

// CustomerAnalysis summarizes delivery performance across a customer's jobs
func (s *Service) CustomerAnalysis(ctx context.Context, customerID string) (*insights.CustomerAnalysis, error) {
	key := entityKey(opCustomer, customerEntity, customerID, models.DateRange{})
	attrs := []attribute.KeyValue{attribute.String("customer.id", customerID)}
	return run(ctx, s, opCustomer, key, attrs, func(ctx context.Context) (*insights.CustomerAnalysis, error) {
		jobs, err := s.src.ListJobs(ctx, store.JobFilter{CustomerID: customerID})
		if err != nil {
			return nil, err
		}
		return insights.AnalyzeCustomer(customerID, jobs, s.now()), nil
	})
}
