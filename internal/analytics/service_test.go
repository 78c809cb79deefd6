package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/cache"
	"github.com/savegress/opsight/internal/config"
	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/oee"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/store"
	"github.com/savegress/opsight/internal/trends"
	"github.com/savegress/opsight/pkg/models"
)

var base = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func fixture() *store.Fixture {
	return &store.Fixture{
		Machines: []models.Machine{
			{MachineID: "M2", Name: "Mill 2", Type: "Assembly Cell", Status: "ACTIVE"},
			{MachineID: "M1", Name: "Lathe 1", Type: "CNC Lathe", Status: "ACTIVE"},
		},
		Operators: []models.Operator{
			{EmpID: "E1", Name: "Ana", SkillLevel: models.SkillIntermediate, Department: "Turning"},
			{EmpID: "E2", Name: "Ben", SkillLevel: models.SkillBeginner, Department: "Turning"},
		},
		Jobs: []models.Job{
			{JobNumber: "J1", CustomerID: "C1", Priority: models.PriorityHigh, Status: models.JobInProgress,
				QuantityOrdered: 40, QuantityCompleted: 16, DueDate: at(24 * time.Hour), CreatedAt: base.Add(-24 * time.Hour)},
			{JobNumber: "J2", CustomerID: "C2", Priority: models.PriorityNormal, Status: models.JobCompleted,
				QuantityOrdered: 20, QuantityCompleted: 20, CreatedAt: base.Add(-72 * time.Hour)},
		},
		Parts: []models.Part{
			{PartNumber: "P1", Name: "Shaft", MaterialType: "Steel", StandardCycleTime: 300,
				CostPerUnit: decimal.RequireFromString("12.50")},
			{PartNumber: "P2", Name: "Housing", MaterialType: "Aluminum", CostPerUnit: decimal.RequireFromString("3")},
		},
		Records: []models.OperationRecord{
			{MachineID: "M1", JobNumber: "J1", PartNumber: "P1", EmpID: "E1", StartTime: base,
				RunningTime: 3000, JobDuration: 3600, PartsProduced: 10, SetupTime: 600},
			{MachineID: "M1", JobNumber: "J1", PartNumber: "P1", EmpID: "E2", StartTime: base.Add(24 * time.Hour),
				RunningTime: 1800, JobDuration: 3600, PartsProduced: 6, IdleTime: 1200, MaintenanceTime: 600},
			{MachineID: "M2", JobNumber: "J2", PartNumber: "P2", EmpID: "E1", StartTime: base.Add(48 * time.Hour),
				RunningTime: 3600, JobDuration: 3600, PartsProduced: 20},
		},
	}
}

type env struct {
	svc *Service
	mem *store.Memory
}

func newEnv(t *testing.T, c *cache.Cache) *env {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.Seed(context.Background(), fixture()))

	svc, err := NewService(mem, config.DefaultAnalytics(), Options{
		Cache:  c,
		Logger: zap.NewNop(),
		Clock:  func() time.Time { return base.Add(72 * time.Hour) },
	})
	require.NoError(t, err)
	t.Cleanup(svc.Stop)
	return &env{svc: svc, mem: mem}
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	sum, err := e.svc.Summarize(ctx, models.EntityMachine, "M1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, models.EntityMachine, sum.EntityType)
	assert.Equal(t, "M1", sum.EntityID)
	assert.Equal(t, 2, sum.Totals.TotalRecords)
	assert.Equal(t, int64(2400), sum.Totals.TotalDowntime)
	assert.InDelta(t, 4800.0/7200.0, sum.Efficiency.OverallEfficiency, 1e-9)

	sum, err = e.svc.Summarize(ctx, models.EntityOperator, "E1", models.NewDateRange(base.Add(time.Hour), base.Add(96*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Totals.TotalRecords)

	sum, err = e.svc.Summarize(ctx, models.EntityPart, "P2", models.NewDateRange(base, base.Add(time.Hour)))
	require.NoError(t, err)
	assert.True(t, sum.NoData)
}

func TestSummarize_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	tests := []struct {
		name   string
		entity models.EntityType
		id     string
		r      models.DateRange
		want   error
	}{
		{"unknown machine", models.EntityMachine, "M9", models.DateRange{}, models.ErrNotFound},
		{"unknown job", models.EntityJob, "J9", models.DateRange{}, models.ErrNotFound},
		{"bad entity", "line", "L1", models.DateRange{}, models.ErrConfiguration},
		{"start after end", models.EntityMachine, "M1", models.NewDateRange(base, base.Add(-time.Hour)), models.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.Summarize(ctx, tt.entity, tt.id, tt.r)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestComputeOEE(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	// bounded: planned time is the window
	rep, err := e.svc.ComputeOEE(ctx, models.EntityMachine, "M1", models.NewDateRange(base, base.Add(48*time.Hour)), true)
	require.NoError(t, err)
	wantA := (172800.0 - 2400) / 172800
	assert.InDelta(t, wantA, rep.Metrics.Availability, 1e-9)
	assert.InDelta(t, 1/1.2, rep.Metrics.Performance, 1e-9)
	assert.InDelta(t, wantA/1.2, rep.Metrics.OEE, 1e-9)
	assert.Equal(t, oee.LevelAcceptable, rep.Metrics.Classification.Level)
	require.NotNil(t, rep.Benchmarks)
	assert.Equal(t, 0.80, rep.Benchmarks.WorldClassOEE)
	require.NotNil(t, rep.Insights)

	// unbounded: planned time is the total job duration
	rep, err = e.svc.ComputeOEE(ctx, models.EntityMachine, "M1", models.DateRange{}, false)
	require.NoError(t, err)
	assert.InDelta(t, 4800.0/7200.0, rep.Metrics.Availability, 1e-9)
	assert.Equal(t, oee.LevelLow, rep.Metrics.Classification.Level)
	assert.Nil(t, rep.Benchmarks)

	_, err = e.svc.ComputeOEE(ctx, models.EntityOperator, "E1", models.DateRange{}, false)
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	_, err = e.svc.ComputeOEE(ctx, models.EntityMachine, "M9", models.DateRange{}, false)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestAnalyzeTrends(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	rep, err := e.svc.AnalyzeTrends(ctx, models.EntityMachine, "M1", models.DateRange{}, "daily")
	require.NoError(t, err)
	require.Len(t, rep.Series.Points, 2)
	assert.Equal(t, "2024-03-04", rep.Series.Points[0].Period)
	assert.Equal(t, trends.Increasing, rep.Insights.TrendDirection)

	rep, err = e.svc.AnalyzeTrends(ctx, models.EntityMachine, "M1", models.DateRange{}, "weekly")
	require.NoError(t, err)
	assert.Len(t, rep.Series.Points, 1)

	_, err = e.svc.AnalyzeTrends(ctx, models.EntityMachine, "M1", models.DateRange{}, "hourly")
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestGenerateInsights(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	tests := []struct {
		entity models.EntityType
		id     string
		check  func(t *testing.T, in *insights.Insight)
	}{
		{models.EntityMachine, "M1", func(t *testing.T, in *insights.Insight) {
			require.NotNil(t, in.Machine)
			assert.NotNil(t, in.Machine.OEE)
			assert.NotNil(t, in.Machine.Statistics)
			assert.NotNil(t, in.Machine.Benchmarks)
			require.NotNil(t, in.Downtime)
			assert.Equal(t, "idle_time", in.Downtime.PrimaryCauses[0].Category)
		}},
		{models.EntityOperator, "E1", func(t *testing.T, in *insights.Insight) {
			require.NotNil(t, in.Operator)
			assert.NotNil(t, in.Operator.Benchmarks)
		}},
		{models.EntityJob, "J1", func(t *testing.T, in *insights.Insight) {
			require.NotNil(t, in.Job)
			assert.InDelta(t, 40.0, in.Job.CompletionPercentage, 1e-9)
		}},
		{models.EntityPart, "P1", func(t *testing.T, in *insights.Insight) {
			require.NotNil(t, in.Part)
			assert.NotNil(t, in.Part.Production)
			assert.NotNil(t, in.Part.Cost)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.entity), func(t *testing.T) {
			in, err := e.svc.GenerateInsights(ctx, tt.entity, tt.id, models.DateRange{})
			require.NoError(t, err)
			assert.Equal(t, tt.entity, in.EntityType)
			assert.Equal(t, tt.id, in.EntityID)
			tt.check(t, in)
		})
	}

	_, err := e.svc.GenerateInsights(ctx, "line", "L1", models.DateRange{})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestDowntimeAnalysis_DefaultWindow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	rep, err := e.svc.DowntimeAnalysis(ctx, "M1", models.DateRange{}, true)
	require.NoError(t, err)
	require.True(t, rep.Period.Bounded())
	assert.Equal(t, base.Add(72*time.Hour), *rep.Period.End)
	assert.Equal(t, base.Add(72*time.Hour).Add(-90*24*time.Hour), *rep.Period.Start)

	causes := rep.Insights.PrimaryCauses
	require.Len(t, causes, 3)
	// setup and maintenance tie at 25%; category order decides
	assert.Equal(t, []string{"idle_time", "setup_time", "maintenance_time"},
		[]string{causes[0].Category, causes[1].Category, causes[2].Category})
	require.NotNil(t, rep.Trends)
	assert.Len(t, rep.Trends.Points, 2)

	rep, err = e.svc.DowntimeAnalysis(ctx, "M1", models.DateRange{}, false)
	require.NoError(t, err)
	assert.Nil(t, rep.Trends)
	assert.Nil(t, rep.TrendInsights)
}

func TestMachineStatisticsAndUtilization(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	st, err := e.svc.MachineStatistics(ctx, "M1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "Lathe 1", st.Machine.MachineName)
	assert.Equal(t, 2, st.Performance.TotalJobs)
	assert.Equal(t, 2, st.Performance.UniqueOperators)
	assert.Equal(t, "Low", st.Insights.UtilizationAssessment)

	u, err := e.svc.MachineUtilization(ctx, "M1", models.DateRange{})
	require.NoError(t, err)
	assert.InDelta(t, 720.0, u.Utilization.TotalPeriodHours, 1e-9)
	assert.Equal(t, int64(7200), u.Utilization.TotalUsageTime)
}

func TestFleetOEE(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	rep, err := e.svc.FleetOEE(ctx, models.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 2, rep.MachineCount)
	assert.Equal(t, "M1", rep.Machines[0].MachineID)
	assert.Equal(t, "M2", rep.Machines[1].MachineID)
	assert.Equal(t, 1.0, rep.Machines[1].Result.Availability)
	mean := (rep.Machines[0].Result.OEE + rep.Machines[1].Result.OEE) / 2
	assert.InDelta(t, mean, rep.AverageOEE, 1e-12)

	_, err = e.svc.FleetOEE(ctx, models.NewDateRange(base, base.Add(-time.Second)))
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestOperatorReports(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	rep, err := e.svc.OperatorPerformance(ctx, "E1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "Ana", rep.OperatorName)
	assert.Equal(t, 2, rep.Metrics.TotalJobs)
	assert.Equal(t, 2, rep.Metrics.MachinesOperated)
	require.NotNil(t, rep.Insights)

	dev, err := e.svc.SkillDevelopment(ctx, "E1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, models.SkillIntermediate, dev.CurrentSkillLevel)
	assert.Equal(t, models.SkillAdvanced, dev.RecommendedNextLevel)
	assert.False(t, dev.ReadyForPromotion)
	assert.Contains(t, dev.DevelopmentAreas, "Gain more operational experience")

	top, err := e.svc.TopPerformers(ctx, "parts_produced", 0, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, top.Operators, 2)
	assert.Equal(t, "E1", top.Operators[0].EmpID)
	assert.Equal(t, int64(30), top.Operators[0].TotalPartsProduced)

	_, err = e.svc.TopPerformers(ctx, "speed", 5, models.DateRange{})
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	levels, err := e.svc.SkillLevelAnalysis(ctx, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, levels.SkillLevels, 2)
	assert.Equal(t, models.SkillBeginner, levels.SkillLevels[0].SkillLevel)

	_, err = e.svc.OperatorPerformance(ctx, "E9", models.DateRange{})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestJobReports(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	rep, err := e.svc.JobPerformance(ctx, "J1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Metrics.TotalOperations)
	assert.Equal(t, 1, rep.Metrics.MachinesUsed)
	assert.Equal(t, 2, rep.Metrics.OperatorsInvolved)

	sched, err := e.svc.ScheduleAnalysis(ctx, models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 2, sched.Status.TotalJobs)
	assert.Equal(t, 1, sched.Overdue.OverdueCount)
	assert.Equal(t, "J1", sched.Overdue.OverdueJobs[0].JobNumber)

	cust, err := e.svc.CustomerAnalysis(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, 1, cust.Summary.TotalJobs)
	assert.Equal(t, 1, cust.Summary.OverdueJobs)

	none, err := e.svc.CustomerAnalysis(ctx, "C404")
	require.NoError(t, err)
	assert.Equal(t, insights.NoCustomerJobsMessage, none.Message)
}

func TestPartReports(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	rep, err := e.svc.PartProduction(ctx, "P1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, int64(16), rep.Production.TotalPartsProduced)
	assert.InDelta(t, 300.0, rep.Production.ActualCycleTime, 1e-9)
	require.NotNil(t, rep.Insights.Cost)

	recs, err := e.svc.PartRecommendations(ctx, "P1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "Shaft", recs.PartName)

	mat, err := e.svc.MaterialAnalysis(ctx, models.DateRange{})
	require.NoError(t, err)
	require.Len(t, mat.MaterialTypes, 2)
	assert.Equal(t, "Aluminum", mat.MaterialTypes[0].MaterialType)

	_, err = e.svc.PartProduction(ctx, "P9", models.DateRange{})
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestPartCatalogReports(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	length, width, height := 400.0, 300.0, 250.0
	e.mem.PutPart(models.Part{PartNumber: "P3", ToleranceClass: "IT7", StandardCycleTime: 1200,
		Length: &length, Width: &width, Height: &height})

	c, err := e.svc.PartComplexity(ctx)
	require.NoError(t, err)
	require.Len(t, c.PrecisionDistribution, 2)
	assert.Equal(t, stats.PrecisionHigh, c.PrecisionDistribution[0].PrecisionCategory)
	unknown := c.PrecisionDistribution[1]
	assert.Equal(t, 2, unknown.PartCount)
	assert.Equal(t, 300.0, unknown.AvgCycleTime)
	assert.Equal(t, "7.75", unknown.AvgCostPerUnit.String())
	require.Len(t, c.SizeDistribution, 1)
	assert.Equal(t, stats.SizeLarge, c.SizeDistribution[0].SizeCategory)
	assert.Equal(t, "Mixed precision requirements", c.Insights.PrecisionDistribution)

	sum, err := e.svc.PartCatalogSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalParts)
	assert.Equal(t, map[string]int{"Steel": 1, "Aluminum": 1}, sum.MaterialTypeDistribution)
	assert.Equal(t, 2, sum.DataCompleteness.PartsWithCycleTime)
	assert.InDelta(t, 200.0/3.0, sum.DataCompleteness.CostCompleteness, 1e-9)
}

func TestBenchmarks(t *testing.T) {
	e := newEnv(t, nil)
	assert.Equal(t, 0.90, e.svc.MachineBenchmarks("Assembly Cell").WorldClassOEE)
	assert.Equal(t, 8.0, e.svc.OperatorBenchmarks(models.SkillIntermediate).ProductivityTarget)
}

func newRedisCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewWithClient(client, "test", time.Minute), mr
}

func TestCaching(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	e := newEnv(t, c)

	sum, err := e.svc.Summarize(ctx, models.EntityMachine, "M1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Totals.TotalRecords)
	assert.True(t, mr.Exists("test:summary:machine:M1::"))

	late := []models.OperationRecord{{MachineID: "M1", JobNumber: "J1", PartNumber: "P1", EmpID: "E1",
		StartTime: base.Add(50 * time.Hour), RunningTime: 600, JobDuration: 600, PartsProduced: 2}}
	require.NoError(t, e.mem.InsertRecords(ctx, late))

	// served from the cache until the records are invalidated
	sum, err = e.svc.Summarize(ctx, models.EntityMachine, "M1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Totals.TotalRecords)

	_, err = e.svc.FleetOEE(ctx, models.DateRange{})
	require.NoError(t, err)
	_, err = e.svc.Summarize(ctx, models.EntityMachine, "M2", models.DateRange{})
	require.NoError(t, err)

	require.NoError(t, e.svc.Invalidate(ctx, late))
	assert.False(t, mr.Exists("test:summary:machine:M1::"))
	assert.False(t, mr.Exists("test:fleet_oee:fleet:::"))
	assert.True(t, mr.Exists("test:summary:machine:M2::"))

	sum, err = e.svc.Summarize(ctx, models.EntityMachine, "M1", models.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Totals.TotalRecords)
}

func TestCaching_FailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	e := newEnv(t, c)

	mr.Close()
	rep, err := e.svc.ComputeOEE(ctx, models.EntityMachine, "M1", models.DateRange{}, false)
	require.NoError(t, err)
	assert.InDelta(t, 4800.0/7200.0, rep.Metrics.Availability, 1e-9)
}

func TestCaching_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisCache(t)
	e := newEnv(t, c)

	_, err := e.svc.Summarize(ctx, models.EntityMachine, "M7", models.DateRange{})
	require.True(t, errors.Is(err, models.ErrNotFound))
	assert.Empty(t, mr.Keys())

	e.mem.PutMachine(models.Machine{MachineID: "M7"})
	sum, err := e.svc.Summarize(ctx, models.EntityMachine, "M7", models.DateRange{})
	require.NoError(t, err)
	assert.True(t, sum.NoData)
}

func TestEntityKey_KeepsSubSecondBounds(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	second := day.Add(24*time.Hour - time.Second)
	wholeDay := day.Add(24*time.Hour - time.Nanosecond)

	a := entityKey(opSummary, "machine", "M1", models.DateRange{Start: &day, End: &second})
	b := entityKey(opSummary, "machine", "M1", models.DateRange{Start: &day, End: &wholeDay})
	assert.NotEqual(t, a, b)
	assert.Contains(t, b, "23:59:59.999999999Z")
	assert.Equal(t, a, entityKey(opSummary, "machine", "M1", models.DateRange{Start: &day, End: &second}))
}
