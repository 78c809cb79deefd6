// Package benchmarks serves static reference targets for machines and operators.
package benchmarks

import (
	"strings"

	"github.com/savegress/opsight/pkg/models"
)

// Machine holds industry OEE reference values for a machine type
type Machine struct {
	WorldClassOEE      float64 `json:"world_class_oee"`
	GoodOEE            float64 `json:"good_oee"`
	AverageOEE         float64 `json:"average_oee"`
	AvailabilityTarget float64 `json:"availability_target"`
	PerformanceTarget  float64 `json:"performance_target"`
	QualityTarget      float64 `json:"quality_target"`
	Source             string  `json:"source"`
	MachineType        string  `json:"machine_type"`
}

// Operator holds productivity targets, optionally for a skill tier
type Operator struct {
	EfficiencyTarget         float64           `json:"efficiency_target"`
	ProductivityTarget       float64           `json:"productivity_target"`
	MachineVersatilityTarget int               `json:"machine_versatility_target"`
	Source                   string            `json:"source"`
	SkillLevel               models.SkillLevel `json:"skill_level,omitempty"`
}

// Tier is the expectation attached to a skill level
type Tier struct {
	Efficiency   float64
	Productivity float64
	Machines     int
}

// Requirements gate promotion to the next skill level
type Requirements struct {
	MinEfficiency float64 `json:"min_efficiency"`
	MinJobs       int     `json:"min_jobs"`
	MinMachines   int     `json:"min_machines"`
}

// Progression describes the path from one skill level to the next
type Progression struct {
	Current      models.SkillLevel `json:"current"`
	Next         models.SkillLevel `json:"next,omitempty"`
	Requirements Requirements      `json:"requirements"`
	Timeline     string            `json:"timeline"`
}

var tiers = map[models.SkillLevel]Tier{
	models.SkillBeginner:     {Efficiency: 0.60, Productivity: 6, Machines: 1},
	models.SkillIntermediate: {Efficiency: 0.70, Productivity: 8, Machines: 2},
	models.SkillAdvanced:     {Efficiency: 0.80, Productivity: 12, Machines: 3},
	models.SkillExpert:       {Efficiency: 0.85, Productivity: 15, Machines: 4},
}

var progressions = map[models.SkillLevel]Progression{
	models.SkillBeginner: {
		Current:      models.SkillBeginner,
		Next:         models.SkillIntermediate,
		Requirements: Requirements{MinEfficiency: 0.65, MinJobs: 50, MinMachines: 1},
		Timeline:     "3-6 months",
	},
	models.SkillIntermediate: {
		Current:      models.SkillIntermediate,
		Next:         models.SkillAdvanced,
		Requirements: Requirements{MinEfficiency: 0.75, MinJobs: 100, MinMachines: 2},
		Timeline:     "6-12 months",
	},
	models.SkillAdvanced: {
		Current:      models.SkillAdvanced,
		Next:         models.SkillExpert,
		Requirements: Requirements{MinEfficiency: 0.85, MinJobs: 200, MinMachines: 3},
		Timeline:     "12-18 months",
	},
	models.SkillExpert: {
		Current:  models.SkillExpert,
		Timeline: "Continuous improvement",
	},
}

// DefaultTier is applied when an operator has no recognised skill level
var DefaultTier = Tier{Efficiency: 0.70, Machines: 2}

// SkillLevels lists the tiers from lowest to highest
var SkillLevels = []models.SkillLevel{
	models.SkillBeginner,
	models.SkillIntermediate,
	models.SkillAdvanced,
	models.SkillExpert,
}

// Provider is a read-only lookup over the benchmark tables
type Provider struct{}

// NewProvider returns a benchmark provider
func NewProvider() *Provider {
	return &Provider{}
}

// ForMachine returns OEE benchmarks adjusted by machine type
func (p *Provider) ForMachine(machineType string) Machine {
	b := Machine{
		WorldClassOEE:      0.85,
		GoodOEE:            0.65,
		AverageOEE:         0.60,
		AvailabilityTarget: 0.90,
		PerformanceTarget:  0.95,
		QualityTarget:      0.99,
		Source:             "Industry Standards",
		MachineType:        machineType,
	}

	t := strings.ToLower(machineType)
	switch {
	case strings.Contains(t, "cnc") || strings.Contains(t, "machining"):
		b.WorldClassOEE, b.GoodOEE, b.AverageOEE = 0.80, 0.60, 0.55
	case strings.Contains(t, "assembly"):
		b.WorldClassOEE, b.GoodOEE, b.AverageOEE = 0.90, 0.70, 0.65
	}
	return b
}

// ForOperator returns productivity targets, tier-specific when level is known
func (p *Provider) ForOperator(level models.SkillLevel) Operator {
	b := Operator{
		EfficiencyTarget:         0.75,
		ProductivityTarget:       10.0,
		MachineVersatilityTarget: 2,
		Source:                   "Internal Standards",
	}
	if t, ok := tiers[level]; ok {
		b.EfficiencyTarget = t.Efficiency
		b.ProductivityTarget = t.Productivity
		b.MachineVersatilityTarget = t.Machines
		b.SkillLevel = level
	}
	return b
}

// Tier returns the expectations for level and whether the level is known
func (p *Provider) Tier(level models.SkillLevel) (Tier, bool) {
	t, ok := tiers[level]
	if !ok {
		return DefaultTier, false
	}
	return t, true
}

// Progression returns the promotion path from level. Unknown levels start at BEGINNER.
func (p *Provider) Progression(level models.SkillLevel) Progression {
	if pr, ok := progressions[level]; ok {
		return pr
	}
	return progressions[models.SkillBeginner]
}
