package analytics

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/oee"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/trends"
	"github.com/savegress/opsight/pkg/models"
)

func machineAttrs(id string) []attribute.KeyValue {
	return entityAttrs(models.EntityMachine, id)
}

// DowntimeAnalysis ranks a machine's downtime causes. Without bounds the
// default downtime window applies; trends are bucketed daily.
func (s *Service) DowntimeAnalysis(ctx context.Context, machineID string, r models.DateRange, includeTrends bool) (*DowntimeReport, error) {
	period, err := s.window(r, s.config.DowntimeWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opDowntime, string(models.EntityMachine), machineID, r, boolKey(includeTrends))
	return run(ctx, s, opDowntime, key, machineAttrs(machineID), func(ctx context.Context) (*DowntimeReport, error) {
		if _, err := s.src.Machine(ctx, machineID); err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, models.EntityMachine, machineID, period)
		if err != nil {
			return nil, err
		}
		sum := summarize(models.EntityMachine, machineID, period, recs)
		out := &DowntimeReport{
			MachineID: machineID,
			Period:    period,
			Summary:   sum,
			Insights:  insights.AnalyzeDowntime(sum, s.config.CauseShareThreshold),
		}
		if includeTrends {
			series, err := trends.Bucket(recs, models.Daily)
			if err != nil {
				return nil, err
			}
			out.Trends = series
			out.TrendInsights = s.analyzer.Analyze(series.Points)
		}
		return out, nil
	})
}

// MachineStatistics reports job statistics and the downtime summary of a
// machine over r, by default the data window.
func (s *Service) MachineStatistics(ctx context.Context, machineID string, r models.DateRange) (*MachineStatisticsReport, error) {
	period, err := s.window(r, s.config.DataWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opStatistics, string(models.EntityMachine), machineID, r)
	return run(ctx, s, opStatistics, key, machineAttrs(machineID), func(ctx context.Context) (*MachineStatisticsReport, error) {
		m, err := s.src.Machine(ctx, machineID)
		if err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, models.EntityMachine, machineID, period)
		if err != nil {
			return nil, err
		}
		perf := stats.MachinePerformance(recs)
		return &MachineStatisticsReport{
			Machine:     machineInfo(m),
			Period:      period,
			Performance: perf,
			Downtime:    summarize(models.EntityMachine, machineID, period, recs),
			Insights:    insights.AnalyzeStatistics(perf),
		}, nil
	})
}

// MachineUtilization relates a machine's usage to the length of r
func (s *Service) MachineUtilization(ctx context.Context, machineID string, r models.DateRange) (*UtilizationReport, error) {
	period, err := s.window(r, s.config.DataWindow)
	if err != nil {
		return nil, err
	}
	key := entityKey(opUtilization, string(models.EntityMachine), machineID, r)
	return run(ctx, s, opUtilization, key, machineAttrs(machineID), func(ctx context.Context) (*UtilizationReport, error) {
		if _, err := s.src.Machine(ctx, machineID); err != nil {
			return nil, err
		}
		recs, err := s.records(ctx, models.EntityMachine, machineID, period)
		if err != nil {
			return nil, err
		}
		return &UtilizationReport{
			MachineID:   machineID,
			Period:      period,
			Utilization: stats.MachineUtilization(recs, period.Seconds()),
		}, nil
	})
}

// FleetOEE scores every machine over the same period. Machines are computed
// concurrently on the worker pool; the first failure aborts the report.
func (s *Service) FleetOEE(ctx context.Context, r models.DateRange) (*FleetReport, error) {
	period, err := s.window(r, s.config.DataWindow)
	if err != nil {
		return nil, err
	}
	key := fleetKey(opFleetOEE, r)
	return run(ctx, s, opFleetOEE, key, nil, func(ctx context.Context) (*FleetReport, error) {
		machines, err := s.src.ListMachines(ctx)
		if err != nil {
			return nil, err
		}

		results := make([]*oee.Result, len(machines))
		g := s.pool.Group(ctx)
		for i := range machines {
			g.Go(func(ctx context.Context) error {
				sum, err := s.summary(ctx, models.EntityMachine, machines[i].MachineID, period)
				if err != nil {
					return err
				}
				results[i] = s.calculator.Calculate(sum, period.Seconds())
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		out := &FleetReport{
			Period:       period,
			Machines:     make([]MachineOEE, len(machines)),
			MachineCount: len(machines),
		}
		var total float64
		for i := range machines {
			out.Machines[i] = MachineOEE{MachineInfo: machineInfo(&machines[i]), Result: results[i]}
			total += results[i].OEE
		}
		sort.Slice(out.Machines, func(i, j int) bool {
			return out.Machines[i].MachineID < out.Machines[j].MachineID
		})
		if len(machines) > 0 {
			out.AverageOEE = total / float64(len(machines))
		}
		return out, nil
	})
}
