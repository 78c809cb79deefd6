package analytics

import (
	"github.com/savegress/opsight/internal/benchmarks"
	"github.com/savegress/opsight/internal/downtime"
	"github.com/savegress/opsight/internal/insights"
	"github.com/savegress/opsight/internal/oee"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/trends"
	"github.com/savegress/opsight/pkg/models"
)

// OEEReport is the effectiveness report for one machine
type OEEReport struct {
	MachineID  string                `json:"machine_id"`
	Period     models.DateRange      `json:"analysis_period"`
	Metrics    *oee.Result           `json:"oee_metrics"`
	Insights   *insights.OEEInsights `json:"business_insights"`
	Benchmarks *benchmarks.Machine   `json:"industry_benchmarks,omitempty"`
}

// TrendReport is a bucketed series with its direction analysis
type TrendReport struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Period     models.DateRange  `json:"analysis_period"`
	Series     *trends.Series    `json:"trends"`
	Insights   *trends.Insight   `json:"trend_insights"`
}

// DowntimeReport explains where a machine's non-productive time went
type DowntimeReport struct {
	MachineID     string                     `json:"machine_id"`
	Period        models.DateRange           `json:"analysis_period"`
	Summary       *downtime.Summary          `json:"downtime_summary"`
	Insights      *insights.DowntimePatterns `json:"downtime_insights"`
	Trends        *trends.Series             `json:"downtime_trends,omitempty"`
	TrendInsights *trends.Insight            `json:"trend_insights,omitempty"`
}

// MachineInfo identifies a machine in reports
type MachineInfo struct {
	MachineID   string `json:"machine_id"`
	MachineName string `json:"machine_name"`
	MachineType string `json:"machine_type"`
	Status      string `json:"status"`
}

func machineInfo(m *models.Machine) MachineInfo {
	return MachineInfo{MachineID: m.MachineID, MachineName: m.Name, MachineType: m.Type, Status: m.Status}
}

// MachineStatisticsReport combines usage statistics with the downtime summary
type MachineStatisticsReport struct {
	Machine     MachineInfo                  `json:"machine_info"`
	Period      models.DateRange             `json:"analysis_period"`
	Performance *stats.Performance           `json:"performance_statistics"`
	Downtime    *downtime.Summary            `json:"downtime_summary"`
	Insights    *insights.StatisticsInsights `json:"business_insights"`
}

// UtilizationReport relates a machine's usage to the length of the period
type UtilizationReport struct {
	MachineID   string             `json:"machine_id"`
	Period      models.DateRange   `json:"analysis_period"`
	Utilization *stats.Utilization `json:"utilization"`
}

// MachineOEE is one line of the fleet report
type MachineOEE struct {
	MachineInfo
	Result *oee.Result `json:"oee_metrics"`
}

// FleetReport scores every machine over the same period
type FleetReport struct {
	Period       models.DateRange `json:"analysis_period"`
	Machines     []MachineOEE     `json:"machines"`
	MachineCount int              `json:"machine_count"`
	AverageOEE   float64          `json:"average_oee"`
}

// OperatorReport is the performance report for one operator
type OperatorReport struct {
	EmpID        string                     `json:"emp_id"`
	OperatorName string                     `json:"operator_name"`
	SkillLevel   models.SkillLevel          `json:"skill_level,omitempty"`
	Period       models.DateRange           `json:"analysis_period"`
	Metrics      *stats.OperatorMetrics     `json:"performance_metrics"`
	Insights     *insights.OperatorInsights `json:"insights"`
}

// SkillDevelopmentReport is a promotion plan together with the record it is based on
type SkillDevelopmentReport struct {
	*insights.SkillDevelopment
	OperatorName       string                 `json:"operator_name"`
	Period             models.DateRange       `json:"analysis_period"`
	CurrentPerformance *stats.OperatorMetrics `json:"current_performance"`
}

// JobReport is the performance report for one job
type JobReport struct {
	Job      *models.Job           `json:"job_info"`
	Period   models.DateRange      `json:"analysis_period"`
	Metrics  *stats.JobMetrics     `json:"performance_metrics"`
	Insights *insights.JobInsights `json:"insights"`
}

// PartReport is the production report for one part
type PartReport struct {
	Part       *models.Part           `json:"part_info"`
	Period     models.DateRange       `json:"analysis_period"`
	Production *stats.PartProduction  `json:"production_summary"`
	Insights   *insights.PartInsights `json:"insights"`
}
