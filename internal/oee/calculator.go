// Package oee derives Overall Equipment Effectiveness from downtime summaries.
package oee

import (
	"math"

	"github.com/savegress/opsight/internal/downtime"
)

// Level is a qualitative OEE tier
type Level string

const (
	LevelWorldClass   Level = "World Class"
	LevelAcceptable   Level = "Acceptable"
	LevelLow          Level = "Low"
	LevelUnacceptable Level = "Unacceptable"
)

var levelDescriptions = map[Level]string{
	LevelWorldClass:   "Excellent performance, world-class manufacturing",
	LevelAcceptable:   "Good performance, room for improvement",
	LevelLow:          "Poor performance, significant improvement needed",
	LevelUnacceptable: "Very poor performance, immediate action required",
}

// Config holds the tier breakpoints
type Config struct {
	WorldClass float64 `json:"world_class"`
	Acceptable float64 `json:"acceptable"`
	Low        float64 `json:"low"`

	// PerformanceRate is the assumed ratio of theoretical to actual rate.
	// With no ideal cycle time on record, performance is actual / (actual × rate).
	PerformanceRate float64 `json:"performance_rate"`
}

// Classification is the tier an OEE score falls into
type Classification struct {
	Level       Level   `json:"level"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Calculations exposes the inputs behind the score
type Calculations struct {
	PlannedProductionTime float64 `json:"planned_production_time"`
	ActualProductionTime  int64   `json:"actual_production_time"`
	Downtime              int64   `json:"downtime"`
	PartsProduced         int64   `json:"parts_produced"`
	ProductionRatePerHour float64 `json:"production_rate_per_hour"`
}

// Result is the OEE breakdown for a summary
type Result struct {
	Availability   float64        `json:"availability"`
	Performance    float64        `json:"performance"`
	Quality        float64        `json:"quality"`
	OEE            float64        `json:"oee"`
	OEEPercentage  float64        `json:"oee_percentage"`
	Classification Classification `json:"classification"`
	Calculations   Calculations   `json:"calculations"`
}

// Calculator computes OEE. It holds no mutable state.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator, filling zero breakpoints with defaults
func NewCalculator(config Config) *Calculator {
	if config.WorldClass == 0 {
		config.WorldClass = 0.85
	}
	if config.Acceptable == 0 {
		config.Acceptable = 0.60
	}
	if config.Low == 0 {
		config.Low = 0.40
	}
	if config.PerformanceRate == 0 {
		config.PerformanceRate = 1.2
	}
	return &Calculator{config: config}
}

// Calculate scores a summary. windowSeconds is the requested period length;
// when it is not positive the summary's total job duration is the planned time.
func (c *Calculator) Calculate(s *downtime.Summary, windowSeconds float64) *Result {
	planned := windowSeconds
	if planned <= 0 {
		planned = float64(s.Totals.TotalJobDuration)
	}

	running := s.Totals.TotalRunningTime
	parts := s.Totals.TotalPartsProduced
	down := s.Totals.TotalDowntime

	var availability float64
	if planned > 0 {
		availability = math.Max(0, (planned-float64(down))/planned)
	}

	actualRate := downtime.PartsPerHour(parts, running)

	var performance float64
	if running > 0 && parts > 0 {
		theoretical := actualRate * c.config.PerformanceRate
		if theoretical > 0 {
			performance = math.Min(1, actualRate/theoretical)
		}
	}

	var quality float64
	if parts > 0 {
		quality = 1
	}

	availability = clamp(availability, 0, 1)
	performance = clamp(performance, 0, 1)
	score := clamp(availability*performance*quality, 0, 1)

	return &Result{
		Availability:   availability,
		Performance:    performance,
		Quality:        quality,
		OEE:            score,
		OEEPercentage:  score * 100,
		Classification: c.Classify(score),
		Calculations: Calculations{
			PlannedProductionTime: planned,
			ActualProductionTime:  running,
			Downtime:              down,
			PartsProduced:         parts,
			ProductionRatePerHour: actualRate,
		},
	}
}

// Classify maps a score onto its tier. Breakpoints are inclusive lower bounds.
func (c *Calculator) Classify(score float64) Classification {
	var level Level
	switch {
	case score >= c.config.WorldClass:
		level = LevelWorldClass
	case score >= c.config.Acceptable:
		level = LevelAcceptable
	case score >= c.config.Low:
		level = LevelLow
	default:
		level = LevelUnacceptable
	}
	return Classification{Level: level, Description: levelDescriptions[level], Score: score}
}

// Rank orders levels from worst (0) to best (3)
func (l Level) Rank() int {
	switch l {
	case LevelWorldClass:
		return 3
	case LevelAcceptable:
		return 2
	case LevelLow:
		return 1
	}
	return 0
}

func clamp(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
