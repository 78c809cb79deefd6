package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savegress/opsight/pkg/models"
)

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func rec(machine, emp, job, part string, offsetHours int, running, duration, parts int64) models.OperationRecord {
	start := base.Add(time.Duration(offsetHours) * time.Hour)
	end := start.Add(time.Duration(duration) * time.Second)
	return models.OperationRecord{
		MachineID: machine, EmpID: emp, OperatorName: "Op " + emp, JobNumber: job, PartNumber: part,
		StartTime: start, EndTime: &end,
		RunningTime: running, JobDuration: duration, PartsProduced: parts,
		SetupTime: duration - running,
	}
}

func TestMachinePerformance(t *testing.T) {
	var records []models.OperationRecord
	// E1 has 3 jobs, E2 and E0 two each, E3..E6 one each
	for i, emp := range []string{"E1", "E1", "E1", "E2", "E2", "E0", "E0", "E3", "E4", "E5", "E6"} {
		records = append(records, rec("M1", emp, fmt.Sprintf("J%d", i%4), fmt.Sprintf("P%d", i%2), i, 3000, 3600, int64(i+1)))
	}

	p := MachinePerformance(records)

	assert.Equal(t, 11, p.TotalJobs)
	assert.Equal(t, 3000.0, p.AvgRunningTime)
	assert.Equal(t, 3600.0, p.AvgJobDuration)
	assert.Equal(t, 6.0, p.AvgPartsPerJob)
	assert.Equal(t, int64(11), p.MaxPartsPerJob)
	assert.Equal(t, int64(1), p.MinPartsPerJob)
	assert.Equal(t, 7, p.UniqueOperators)
	assert.Equal(t, 4, p.UniqueJobs)
	assert.Equal(t, 2, p.UniqueParts)

	require.Len(t, p.TopOperators, 5)
	assert.Equal(t, "E1", p.TopOperators[0].EmpID)
	assert.Equal(t, "Op E1", p.TopOperators[0].OperatorName)
	// tie on two jobs is broken by id
	assert.Equal(t, "E0", p.TopOperators[1].EmpID)
	assert.Equal(t, "E2", p.TopOperators[2].EmpID)
	assert.Equal(t, "E3", p.TopOperators[3].EmpID)

	require.Len(t, p.TopParts, 2)
	assert.Equal(t, "P0", p.TopParts[0].PartNumber)
	assert.Equal(t, 6, p.TopParts[0].JobCount)
}

func TestMachinePerformance_Empty(t *testing.T) {
	p := MachinePerformance(nil)
	assert.Zero(t, p.TotalJobs)
	assert.Zero(t, p.AvgRunningTime)
	assert.Empty(t, p.TopOperators)
}

func TestMachineUtilization(t *testing.T) {
	records := []models.OperationRecord{
		rec("M1", "E1", "J1", "P1", 0, 3000, 3600, 10),
		rec("M1", "E1", "J1", "P1", 2, 1800, 3600, 5),
	}

	u := MachineUtilization(records, 86400)
	assert.Equal(t, 24.0, u.TotalPeriodHours)
	assert.Equal(t, int64(7200), u.TotalUsageTime)
	assert.InDelta(t, 7200.0/86400.0*100, u.UsagePercentage, 1e-9)
	assert.InDelta(t, 4800.0/7200.0*100, u.EfficiencyPercentage, 1e-9)

	zero := MachineUtilization(nil, 0)
	assert.Zero(t, zero.UsagePercentage)
	assert.Zero(t, zero.EfficiencyPercentage)
}

func TestOperator(t *testing.T) {
	records := []models.OperationRecord{
		rec("M1", "E1", "J1", "P1", 0, 3000, 3600, 10),
		rec("M2", "E1", "J2", "P1", 1, 2400, 3600, 6),
		rec("M2", "E1", "J2", "P2", 2, 3600, 3600, 12),
	}

	m := Operator(records)
	assert.Equal(t, 3, m.TotalJobs)
	assert.Equal(t, 2, m.MachinesOperated)
	assert.Equal(t, 2, m.UniqueJobs)
	assert.InDelta(t, 9000.0/10800.0, m.Efficiency, 1e-9)
	assert.InDelta(t, 28.0/2.5, m.ProductivityPerHour, 1e-9)
	assert.Equal(t, int64(1800), m.TotalDowntime)
	require.Len(t, m.MachinePerformance, 2)
	assert.Equal(t, "M2", m.MachinePerformance[0].Machine)
}

func TestSkillLevels(t *testing.T) {
	roster := []models.Operator{
		{EmpID: "E1", SkillLevel: models.SkillExpert},
		{EmpID: "E2", SkillLevel: models.SkillBeginner},
		{EmpID: "E3", SkillLevel: models.SkillBeginner},
		{EmpID: "E4"},
	}
	records := []models.OperationRecord{
		rec("M1", "E1", "J1", "P1", 0, 3400, 3600, 10),
		rec("M1", "E2", "J1", "P1", 1, 1800, 3600, 4),
		rec("M1", "E3", "J1", "P1", 2, 2000, 3600, 5),
		rec("M1", "E4", "J1", "P1", 3, 2000, 3600, 5),
		rec("M1", "E9", "J1", "P1", 4, 2000, 3600, 5),
	}

	levels := SkillLevels(records, roster)
	require.Len(t, levels, 2)
	assert.Equal(t, models.SkillBeginner, levels[0].SkillLevel)
	assert.Equal(t, 2, levels[0].OperatorCount)
	assert.InDelta(t, 3800.0/7200.0, levels[0].Efficiency, 1e-9)
	assert.Equal(t, models.SkillExpert, levels[1].SkillLevel)
}

func TestOperatorsTotals(t *testing.T) {
	roster := []models.Operator{
		{EmpID: "E2", Name: "Bea", SkillLevel: models.SkillAdvanced, Department: "Milling"},
		{EmpID: "E1", Name: "Al"},
	}
	records := []models.OperationRecord{
		rec("M1", "E2", "J1", "P1", 0, 3600, 3600, 20),
		rec("M1", "E1", "J1", "P1", 1, 1800, 3600, 4),
		rec("M1", "E7", "J1", "P1", 2, 1800, 3600, 4),
	}

	totals := OperatorsTotals(records, roster)
	require.Len(t, totals, 2)
	assert.Equal(t, "E1", totals[0].EmpID)
	assert.Equal(t, "Bea", totals[1].OperatorName)
	assert.Equal(t, "Milling", totals[1].Department)
	assert.Equal(t, 20.0, totals[1].ProductivityPerHour)
	assert.Equal(t, 1.0, totals[1].Efficiency)
}

func TestJob(t *testing.T) {
	records := []models.OperationRecord{
		rec("M1", "E1", "J1", "P1", 5, 3000, 3600, 10),
		rec("M2", "E2", "J1", "P1", 0, 3000, 3600, 10),
	}

	m := Job(records)
	assert.Equal(t, 2, m.TotalOperations)
	assert.Equal(t, 2, m.MachinesUsed)
	assert.Equal(t, 2, m.OperatorsInvolved)
	require.NotNil(t, m.FirstOperation)
	assert.Equal(t, base, *m.FirstOperation)
	require.NotNil(t, m.LastOperation)
	assert.Equal(t, base.Add(6*time.Hour), *m.LastOperation)
}

func TestJobStatuses(t *testing.T) {
	jobs := []models.Job{
		{Status: models.JobPending, Priority: models.PriorityUrgent, QuantityOrdered: 10, EstimatedHours: 4},
		{Status: models.JobPending, Priority: models.PriorityNormal, QuantityOrdered: 10, EstimatedHours: 2},
		{Status: models.JobCompleted, Priority: models.PriorityNormal, QuantityOrdered: 20, QuantityCompleted: 20},
	}

	s := JobStatuses(jobs)
	assert.Equal(t, 3, s.TotalJobs)
	assert.Equal(t, 2, s.Count(models.JobPending))
	assert.Equal(t, 0, s.Count(models.JobInProgress))
	assert.Equal(t, 1, s.PriorityJobs(models.PriorityUrgent))
	assert.InDelta(t, 50.0, s.OverallCompletionRate, 1e-9)
	require.Len(t, s.StatusBreakdown, 2)
	assert.Equal(t, models.JobCompleted, s.StatusBreakdown[0].Status)
	assert.Equal(t, 3.0, s.StatusBreakdown[1].AvgEstimatedHours)
}

func TestCustomer(t *testing.T) {
	now := base
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	start := now.Add(-10 * 24 * time.Hour)
	done := start.Add(4*24*time.Hour + time.Hour)

	jobs := []models.Job{
		{Status: models.JobCompleted, QuantityOrdered: 10, QuantityCompleted: 10, DueDate: &past, StartDate: &start, CompletionDate: &done},
		{Status: models.JobInProgress, QuantityOrdered: 10, QuantityCompleted: 5, DueDate: &past},
		{Status: models.JobPending, QuantityOrdered: 20, DueDate: &future},
		{Status: models.JobCancelled, QuantityOrdered: 10, DueDate: &past},
	}

	s := Customer(jobs, now)
	assert.Equal(t, 4, s.TotalJobs)
	assert.Equal(t, 1, s.CompletedJobs)
	assert.Equal(t, 1, s.OverdueJobs)
	assert.InDelta(t, 25.0, s.JobCompletionRate, 1e-9)
	assert.InDelta(t, 15.0/50.0*100, s.QuantityCompletionRate, 1e-9)
	assert.Equal(t, 4.0, s.AverageLeadTimeDays)
}

func TestWholeDays(t *testing.T) {
	assert.Equal(t, 1, WholeDays(36*time.Hour))
	assert.Equal(t, 0, WholeDays(time.Hour))
	assert.Equal(t, -1, WholeDays(-time.Hour))
	assert.Equal(t, -2, WholeDays(-48*time.Hour))
}

func TestPart(t *testing.T) {
	records := []models.OperationRecord{
		rec("M1", "E1", "J1", "P1", 0, 3600, 4000, 60),
		rec("M2", "E2", "J2", "P1", 1, 3600, 4000, 20),
	}

	p := Part(records, 50)
	assert.Equal(t, 2, p.TotalOperations)
	assert.Equal(t, int64(80), p.TotalPartsProduced)
	assert.Equal(t, 90.0, p.ActualCycleTime)
	assert.InDelta(t, 80.0, p.CycleTimeVariancePercentage, 1e-9)
	assert.Equal(t, 2, p.MachinesUsed)
	require.Len(t, p.MachinePerformance, 2)
	assert.Equal(t, "M1", p.MachinePerformance[0].Machine)
	assert.Equal(t, 60.0, p.MachinePerformance[0].ProductivityPerHour)

	noStd := Part(records, 0)
	assert.Zero(t, noStd.CycleTimeVariancePercentage)
}

func TestMaterials(t *testing.T) {
	parts := []models.Part{
		{PartNumber: "P1", MaterialType: "Steel"},
		{PartNumber: "P2", MaterialType: "Aluminum"},
		{PartNumber: "P3", MaterialType: "Steel"},
		{PartNumber: "P4"},
	}
	records := []models.OperationRecord{
		rec("M1", "E1", "J1", "P1", 0, 3000, 3600, 10),
		rec("M1", "E1", "J1", "P3", 1, 3000, 3600, 10),
		rec("M1", "E1", "J1", "P2", 2, 1800, 3600, 5),
		rec("M1", "E1", "J1", "P4", 3, 1800, 3600, 5),
	}

	m := Materials(records, parts)
	require.Len(t, m, 2)
	assert.Equal(t, "Aluminum", m[0].MaterialType)
	assert.Equal(t, "Steel", m[1].MaterialType)
	assert.Equal(t, 2, m[1].UniqueParts)
	assert.Equal(t, int64(20), m[1].TotalPartsProduced)
	assert.InDelta(t, 6000.0/7200.0, m[1].Efficiency, 1e-9)
}
