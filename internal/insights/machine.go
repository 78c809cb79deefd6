package insights

import (
	"fmt"
	"sort"

	"github.com/savegress/opsight/internal/benchmarks"
	"github.com/savegress/opsight/internal/oee"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/pkg/models"
)

// Opportunity is an OEE component below its target
type Opportunity struct {
	Area          string  `json:"area"`
	Current       float64 `json:"current"`
	Target        float64 `json:"target"`
	PotentialGain float64 `json:"potential_gain"`
	Focus         string  `json:"focus"`
}

// ImprovementPotential estimates the OEE reachable by closing every gap
type ImprovementPotential struct {
	CurrentOEE            float64 `json:"current_oee"`
	PotentialOEE          float64 `json:"potential_oee"`
	ImprovementPoints     float64 `json:"improvement_points"`
	ImprovementPercentage float64 `json:"improvement_percentage"`
}

// OEEInsights interprets an OEE result
type OEEInsights struct {
	PerformanceAssessment string                `json:"performance_assessment"`
	Opportunities         []Opportunity         `json:"improvement_opportunities"`
	PriorityActions       []string              `json:"priority_actions"`
	ImprovementPotential  *ImprovementPotential `json:"estimated_improvement_potential,omitempty"`
}

// StatisticsInsights interprets machine usage statistics
type StatisticsInsights struct {
	UtilizationAssessment string   `json:"utilization_assessment"`
	OperatorEfficiency    string   `json:"operator_efficiency"`
	PartDiversity         string   `json:"part_diversity"`
	Recommendations       []string `json:"recommendations"`
}

// MachineInsights groups everything generated for a machine
type MachineInsights struct {
	OEE        *OEEInsights        `json:"oee_insights,omitempty"`
	Statistics *StatisticsInsights `json:"business_insights,omitempty"`
	Benchmarks *benchmarks.Machine `json:"industry_benchmarks,omitempty"`
}

const (
	availabilityTarget = 0.90
	performanceTarget  = 0.95
	qualityTarget      = 0.99
)

var priorityActions = map[string][]string{
	"Availability": {
		"Implement predictive maintenance program",
		"Reduce setup and changeover times",
		"Improve spare parts inventory management",
	},
	"Performance": {
		"Optimize machine parameters and speeds",
		"Reduce minor stops and micro-downtime",
		"Improve operator training and procedures",
	},
	"Quality": {
		"Implement statistical process control",
		"Improve tooling and fixture quality",
		"Enhance quality inspection procedures",
	},
}

// MachineGenerator produces downtime, OEE and usage insights for machines
type MachineGenerator struct {
	config Config
	bench  *benchmarks.Provider
}

// NewMachineGenerator creates a machine insight generator
func NewMachineGenerator(cfg Config, bench *benchmarks.Provider) *MachineGenerator {
	if bench == nil {
		bench = benchmarks.NewProvider()
	}
	return &MachineGenerator{config: cfg, bench: bench}
}

// EntityType implements Generator
func (g *MachineGenerator) EntityType() models.EntityType { return models.EntityMachine }

// Generate implements Generator. Benchmarks are attached when machine
// metadata is present.
func (g *MachineGenerator) Generate(in *Input) (*Insight, error) {
	if in == nil || in.Summary == nil {
		return nil, errMissing("summary")
	}
	mi := &MachineInsights{}
	if in.OEE != nil {
		mi.OEE = AnalyzeOEE(in.OEE)
	}
	if in.Performance != nil {
		mi.Statistics = AnalyzeStatistics(in.Performance)
	}
	if in.Machine != nil {
		b := g.bench.ForMachine(in.Machine.Type)
		mi.Benchmarks = &b
	}
	return &Insight{
		EntityType: models.EntityMachine,
		EntityID:   in.EntityID,
		Downtime:   AnalyzeDowntime(in.Summary, g.config.CauseShareThreshold),
		Trends:     in.Trends,
		Machine:    mi,
	}, nil
}

// AnalyzeOEE ranks the OEE components by the gain from reaching their
// targets and picks actions for the largest gap.
func AnalyzeOEE(r *oee.Result) *OEEInsights {
	out := &OEEInsights{
		PerformanceAssessment: string(r.Classification.Level),
		Opportunities:         []Opportunity{},
		PriorityActions:       []string{},
	}
	a, p, q := r.Availability, r.Performance, r.Quality

	if a < availabilityTarget {
		out.Opportunities = append(out.Opportunities, Opportunity{
			Area: "Availability", Current: a, Target: availabilityTarget,
			PotentialGain: (availabilityTarget - a) * p * q,
			Focus:         "Reduce downtime and improve maintenance efficiency",
		})
	}
	if p < performanceTarget {
		out.Opportunities = append(out.Opportunities, Opportunity{
			Area: "Performance", Current: p, Target: performanceTarget,
			PotentialGain: a * (performanceTarget - p) * q,
			Focus:         "Optimize cycle times and reduce minor stops",
		})
	}
	if q < qualityTarget {
		out.Opportunities = append(out.Opportunities, Opportunity{
			Area: "Quality", Current: q, Target: qualityTarget,
			PotentialGain: a * p * (qualityTarget - q),
			Focus:         "Improve first-pass quality and reduce rework",
		})
	}
	sort.SliceStable(out.Opportunities, func(i, j int) bool {
		return out.Opportunities[i].PotentialGain > out.Opportunities[j].PotentialGain
	})

	if len(out.Opportunities) == 0 {
		return out
	}
	out.PriorityActions = append(out.PriorityActions, priorityActions[out.Opportunities[0].Area]...)

	var total float64
	for _, o := range out.Opportunities {
		total += o.PotentialGain
	}
	potential := r.OEE + total
	if potential > 1 {
		potential = 1
	}
	floor := r.OEE
	if floor < 0.01 {
		floor = 0.01
	}
	out.ImprovementPotential = &ImprovementPotential{
		CurrentOEE:            r.OEE,
		PotentialOEE:          potential,
		ImprovementPoints:     total,
		ImprovementPercentage: total / floor * 100,
	}
	return out
}

// AnalyzeStatistics assesses utilization, operator spread and part diversity
func AnalyzeStatistics(p *stats.Performance) *StatisticsInsights {
	out := &StatisticsInsights{
		UtilizationAssessment: SeverityUnknown,
		OperatorEfficiency:    SeverityUnknown,
		PartDiversity:         SeverityUnknown,
		Recommendations:       []string{},
	}

	switch {
	case p.TotalJobs > 100:
		out.UtilizationAssessment = "High"
	case p.TotalJobs > 50:
		out.UtilizationAssessment = "Moderate"
	default:
		out.UtilizationAssessment = "Low"
		out.Recommendations = append(out.Recommendations, "Consider increasing machine utilization")
	}

	switch {
	case p.UniqueOperators > 5:
		out.OperatorEfficiency = "Multiple operators - ensure consistent training"
		out.Recommendations = append(out.Recommendations, "Standardize operating procedures across operators")
	case p.UniqueOperators > 0:
		out.OperatorEfficiency = fmt.Sprintf("%d operators - good consistency", p.UniqueOperators)
	}

	switch {
	case p.UniqueParts > 20:
		out.PartDiversity = "High diversity - complex scheduling"
		out.Recommendations = append(out.Recommendations, "Consider part family grouping for setup optimization")
	case p.UniqueParts > 5:
		out.PartDiversity = "Moderate diversity - manageable complexity"
	default:
		out.PartDiversity = "Low diversity - specialized production"
	}
	return out
}
