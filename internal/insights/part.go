package insights

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/pkg/models"
)

// ProductionInsights assesses a part's production history
type ProductionInsights struct {
	ProductionPerformance string   `json:"production_performance"`
	CycleTimeAnalysis     string   `json:"cycle_time_analysis"`
	MachineEfficiency     string   `json:"machine_efficiency"`
	Recommendations       []string `json:"recommendations"`
}

// CostAnalysis values the parts produced
type CostAnalysis struct {
	CostPerUnit           decimal.Decimal  `json:"cost_per_unit"`
	TotalProductionValue  decimal.Decimal  `json:"total_production_value"`
	CostPerProductionHour *decimal.Decimal `json:"cost_per_production_hour,omitempty"`
	CostEfficiency        string           `json:"cost_efficiency"`
	Recommendations       []string         `json:"recommendations"`
}

// PartInsights groups everything generated for a part
type PartInsights struct {
	Production *ProductionInsights `json:"production_insights"`
	Cost       *CostAnalysis       `json:"cost_analysis"`
}

// PartRecommendations lists optimizations for a part
type PartRecommendations struct {
	PartNumber                string   `json:"part_number"`
	PartName                  string   `json:"part_name"`
	OptimizationOpportunities []string `json:"optimization_opportunities"`
	ProcessImprovements       []string `json:"process_improvements"`
	CostOptimization          []string `json:"cost_optimization"`
	QualityEnhancements       []string `json:"quality_enhancements"`
	PriorityLevel             string   `json:"priority_level"`
}

var (
	highValuePerHour     = decimal.NewFromInt(100)
	moderateValuePerHour = decimal.NewFromInt(50)
	highValueUnit        = decimal.NewFromInt(100)
	secondsPerHour       = decimal.NewFromInt(3600)
)

var difficultMaterials = map[string]bool{
	"Titanium":        true,
	"Stainless Steel": true,
}

// PartGenerator produces production, cost and optimization insights for parts
type PartGenerator struct {
	config Config
}

// NewPartGenerator creates a part insight generator
func NewPartGenerator(cfg Config) *PartGenerator {
	return &PartGenerator{config: cfg}
}

// EntityType implements Generator
func (g *PartGenerator) EntityType() models.EntityType { return models.EntityPart }

// Generate implements Generator. Part metadata and production history are required.
func (g *PartGenerator) Generate(in *Input) (*Insight, error) {
	if in == nil || in.Part == nil {
		return nil, errMissing("part")
	}
	if in.PartProduction == nil {
		return nil, errMissing("part_production")
	}
	out := &Insight{
		EntityType: models.EntityPart,
		EntityID:   in.EntityID,
		Trends:     in.Trends,
		Part: &PartInsights{
			Production: AnalyzeProduction(in.Part, in.PartProduction),
			Cost:       AnalyzeCost(in.Part, in.PartProduction),
		},
	}
	if in.Summary != nil {
		out.Downtime = AnalyzeDowntime(in.Summary, g.config.CauseShareThreshold)
	}
	return out, nil
}

// AnalyzeProduction classifies volume, cycle time against standard and efficiency
func AnalyzeProduction(part *models.Part, p *stats.PartProduction) *ProductionInsights {
	out := &ProductionInsights{Recommendations: []string{}}

	switch n := p.TotalOperations; {
	case n >= 100:
		out.ProductionPerformance = "High volume production"
	case n >= 20:
		out.ProductionPerformance = "Regular production"
	case n >= 5:
		out.ProductionPerformance = "Low volume production"
	default:
		out.ProductionPerformance = "Minimal production history"
		out.Recommendations = append(out.Recommendations, "Insufficient data for reliable analysis")
	}

	v := p.CycleTimeVariancePercentage
	if part.StandardCycleTime > 0 && p.ActualCycleTime > 0 {
		switch {
		case absf(v) <= 10:
			out.CycleTimeAnalysis = "Cycle time meets standards"
		case v > 20:
			out.CycleTimeAnalysis = "Cycle time significantly above standard"
			out.Recommendations = append(out.Recommendations, "Investigate causes of extended cycle times")
		case v < -20:
			out.CycleTimeAnalysis = "Cycle time better than standard"
			out.Recommendations = append(out.Recommendations, "Consider updating standard cycle time")
		default:
			out.CycleTimeAnalysis = "Cycle time slightly off standard"
		}
	} else {
		out.CycleTimeAnalysis = "No standard cycle time for comparison"
		if p.ActualCycleTime > 0 {
			out.Recommendations = append(out.Recommendations, "Consider establishing standard cycle time")
		}
	}

	switch e := p.Efficiency; {
	case e >= 0.85:
		out.MachineEfficiency = "Excellent efficiency across machines"
	case e >= 0.70:
		out.MachineEfficiency = "Good efficiency"
	case e >= 0.50:
		out.MachineEfficiency = "Moderate efficiency - room for improvement"
		out.Recommendations = append(out.Recommendations, "Analyze machine-specific performance variations")
	default:
		out.MachineEfficiency = "Poor efficiency - needs attention"
		out.Recommendations = append(out.Recommendations, "Urgent efficiency improvement needed")
	}

	if p.MachinesUsed > 3 {
		out.Recommendations = append(out.Recommendations, "Part produced on multiple machines - consider standardization")
	}
	return out
}

// AnalyzeCost values production at the part's unit cost and compares the
// productivity of the machines that made it.
func AnalyzeCost(part *models.Part, p *stats.PartProduction) *CostAnalysis {
	out := &CostAnalysis{
		CostPerUnit:          part.CostPerUnit,
		TotalProductionValue: decimal.Zero,
		CostEfficiency:       SeverityUnknown,
		Recommendations:      []string{},
	}

	if !part.CostPerUnit.IsZero() && p.TotalPartsProduced > 0 {
		value := part.CostPerUnit.Mul(decimal.NewFromInt(p.TotalPartsProduced))
		out.TotalProductionValue = value
		if p.TotalRunningTime > 0 {
			perHour := value.Mul(secondsPerHour).Div(decimal.NewFromInt(p.TotalRunningTime)).Round(2)
			out.CostPerProductionHour = &perHour
			switch {
			case perHour.GreaterThanOrEqual(highValuePerHour):
				out.CostEfficiency = "High value production"
			case perHour.GreaterThanOrEqual(moderateValuePerHour):
				out.CostEfficiency = "Moderate value production"
			default:
				out.CostEfficiency = "Low value production"
				out.Recommendations = append(out.Recommendations, "Consider cost optimization opportunities")
			}
		}
	}

	if len(p.MachinePerformance) > 1 {
		ranked := make([]stats.MachineBreakdown, len(p.MachinePerformance))
		copy(ranked, p.MachinePerformance)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].ProductivityPerHour > ranked[j].ProductivityPerHour
		})
		best, worst := ranked[0], ranked[len(ranked)-1]
		floor := worst.ProductivityPerHour
		if floor < 1 {
			floor = 1
		}
		if best.ProductivityPerHour/floor >= 2.0 {
			out.Recommendations = append(out.Recommendations, fmt.Sprintf(
				"Significant productivity difference between machines - focus production on %s for cost efficiency",
				best.Machine))
		}
	}
	return out
}

// Recommend lists process, cost, quality and volume optimizations for a part
func Recommend(part *models.Part, p *stats.PartProduction) *PartRecommendations {
	out := &PartRecommendations{
		PartNumber:                part.PartNumber,
		PartName:                  part.Name,
		OptimizationOpportunities: []string{},
		ProcessImprovements:       []string{},
		CostOptimization:          []string{},
		QualityEnhancements:       []string{},
		PriorityLevel:             "Low",
	}
	if p == nil || p.TotalOperations == 0 {
		out.OptimizationOpportunities = append(out.OptimizationOpportunities, "Insufficient production data for analysis")
		return out
	}

	eff := p.Efficiency
	v := p.CycleTimeVariancePercentage

	switch {
	case eff < 0.6 || absf(v) > 30:
		out.PriorityLevel = "High"
	case eff < 0.75 || absf(v) > 15:
		out.PriorityLevel = "Medium"
	}

	if eff < 0.70 {
		out.ProcessImprovements = append(out.ProcessImprovements,
			"Low efficiency detected - analyze setup and operation procedures",
			"Consider operator training and process standardization")
	}
	switch {
	case v > 20:
		out.ProcessImprovements = append(out.ProcessImprovements,
			"High cycle time variance - investigate process consistency",
			"Review tooling and fixture standardization")
	case v < -20:
		out.ProcessImprovements = append(out.ProcessImprovements, "Cycle time better than standard - update standard time")
	}
	if p.MachinesUsed > 3 {
		out.ProcessImprovements = append(out.ProcessImprovements,
			"Part produced on multiple machines - consider process standardization")
		out.OptimizationOpportunities = append(out.OptimizationOpportunities,
			"Evaluate machine-specific performance and optimize allocation")
	}

	if !part.CostPerUnit.IsZero() {
		if part.CostPerUnit.GreaterThan(highValueUnit) {
			out.CostOptimization = append(out.CostOptimization,
				"High-value part - focus on yield optimization and waste reduction")
		}
		if len(p.MachinePerformance) > 1 {
			best := p.MachinePerformance[0]
			for _, m := range p.MachinePerformance[1:] {
				if m.ProductivityPerHour > best.ProductivityPerHour {
					best = m
				}
			}
			out.CostOptimization = append(out.CostOptimization,
				fmt.Sprintf("Consider prioritizing production on %s for cost efficiency", best.Machine))
		}
	}

	if grade, ok := toleranceGrade(part.ToleranceClass); ok && grade <= 8 {
		out.QualityEnhancements = append(out.QualityEnhancements,
			"High precision part - implement statistical process control",
			"Consider dedicated tooling and environmental controls")
	}
	if difficultMaterials[part.MaterialType] {
		out.QualityEnhancements = append(out.QualityEnhancements,
			"Difficult-to-machine material - optimize cutting parameters and tool selection")
	}

	switch {
	case p.TotalOperations >= 50:
		out.OptimizationOpportunities = append(out.OptimizationOpportunities,
			"High volume part - consider automation opportunities",
			"Evaluate dedicated tooling and fixtures")
	case p.TotalOperations < 10:
		out.OptimizationOpportunities = append(out.OptimizationOpportunities,
			"Low volume part - consider batch processing optimization")
	}

	if strings.Contains(strings.ToLower(part.MaterialHardness), "hard") {
		out.ProcessImprovements = append(out.ProcessImprovements,
			"Hard material - optimize tool selection and cutting parameters")
	}
	return out
}

// toleranceGrade parses an ISO tolerance class such as "IT7"
func toleranceGrade(class string) (int, bool) {
	if !strings.Contains(class, "IT") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(class, "IT", "")))
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaterialPerformance rates production of one material
type MaterialPerformance struct {
	MaterialType      string  `json:"material_type"`
	PerformanceRating string  `json:"performance_rating"`
	Efficiency        float64 `json:"efficiency"`
	Productivity      float64 `json:"productivity"`
}

// MaterialInsights interprets production by material
type MaterialInsights struct {
	MaterialDistribution   string                `json:"material_distribution"`
	PerformanceByMaterial  []MaterialPerformance `json:"performance_by_material"`
	LowEfficiencyMaterials []string              `json:"low_efficiency_materials"`
	Recommendations        []string              `json:"recommendations"`
}

// MaterialAnalysis is the fleet material report
type MaterialAnalysis struct {
	Period        models.DateRange      `json:"analysis_period"`
	MaterialTypes []stats.MaterialStats `json:"material_types"`
	Insights      *MaterialInsights     `json:"insights"`
}

// AnalyzeMaterials rates each material and compares the best and worst
func AnalyzeMaterials(period models.DateRange, materials []stats.MaterialStats) *MaterialAnalysis {
	ins := &MaterialInsights{
		MaterialDistribution:   SeverityUnknown,
		PerformanceByMaterial:  []MaterialPerformance{},
		LowEfficiencyMaterials: []string{},
		Recommendations:        []string{},
	}
	out := &MaterialAnalysis{Period: period, MaterialTypes: materials, Insights: ins}
	if len(materials) == 0 {
		return out
	}

	var total int64
	for _, m := range materials {
		total += m.TotalPartsProduced
	}
	var dominant []string
	for _, m := range materials {
		if total > 0 && float64(m.TotalPartsProduced)/float64(total) >= 0.3 {
			dominant = append(dominant, m.MaterialType)
		}
	}
	switch {
	case len(dominant) == 1:
		ins.MaterialDistribution = fmt.Sprintf("Dominated by %s", dominant[0])
	case len(dominant) >= 2:
		ins.MaterialDistribution = "Balanced material mix"
	default:
		ins.MaterialDistribution = "Diverse material portfolio"
	}

	for _, m := range materials {
		rating := "Needs Improvement"
		switch {
		case m.Efficiency >= 0.80 && m.ProductivityPerHour > 0:
			rating = "High Performance"
		case m.Efficiency >= 0.65:
			rating = "Good Performance"
		}
		ins.PerformanceByMaterial = append(ins.PerformanceByMaterial, MaterialPerformance{
			MaterialType:      m.MaterialType,
			PerformanceRating: rating,
			Efficiency:        m.Efficiency,
			Productivity:      m.ProductivityPerHour,
		})
	}

	if len(materials) >= 2 {
		ranked := make([]stats.MaterialStats, len(materials))
		copy(ranked, materials)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Efficiency > ranked[j].Efficiency })
		best, worst := ranked[0], ranked[len(ranked)-1]
		if best.Efficiency-worst.Efficiency >= 0.2 {
			ins.Recommendations = append(ins.Recommendations,
				fmt.Sprintf("Significant efficiency difference between materials - %s performs much better than %s",
					best.MaterialType, worst.MaterialType),
				"Consider material-specific process optimization")
		}
	}

	for _, m := range materials {
		if m.Efficiency < 0.6 {
			ins.LowEfficiencyMaterials = append(ins.LowEfficiencyMaterials, m.MaterialType)
		}
	}
	if len(ins.LowEfficiencyMaterials) > 0 {
		ins.Recommendations = append(ins.Recommendations, fmt.Sprintf(
			"Low efficiency materials detected: %s - investigate tooling and parameters",
			strings.Join(ins.LowEfficiencyMaterials, ", ")))
	}
	return out
}

// ComplexityInsights interprets the part complexity distributions
type ComplexityInsights struct {
	PrecisionDistribution string   `json:"precision_distribution"`
	ComplexityImpact      string   `json:"complexity_impact"`
	Recommendations       []string `json:"recommendations"`
}

// ComplexityAnalysis is the catalogue complexity report
type ComplexityAnalysis struct {
	stats.PartComplexity
	Insights *ComplexityInsights `json:"insights"`
}

// AnalyzeComplexity rates the high-precision share of the catalogue and how
// much precision and size drive cycle time
func AnalyzeComplexity(c *stats.PartComplexity) *ComplexityAnalysis {
	ins := &ComplexityInsights{
		PrecisionDistribution: SeverityUnknown,
		ComplexityImpact:      SeverityUnknown,
		Recommendations:       []string{},
	}
	out := &ComplexityAnalysis{PartComplexity: *c, Insights: ins}

	if len(c.PrecisionDistribution) > 0 {
		var total, high int
		var highCycle, lowCycle float64
		for _, p := range c.PrecisionDistribution {
			total += p.PartCount
			switch p.PrecisionCategory {
			case stats.PrecisionHigh:
				high += p.PartCount
				highCycle = p.AvgCycleTime
			case stats.PrecisionLow:
				lowCycle = p.AvgCycleTime
			}
		}

		var ratio float64
		if total > 0 {
			ratio = float64(high) / float64(total)
		}
		switch {
		case ratio >= 0.4:
			ins.PrecisionDistribution = "High precision manufacturing focus"
			ins.Recommendations = append(ins.Recommendations,
				"Specialized high-precision capabilities are a competitive advantage")
		case ratio >= 0.2:
			ins.PrecisionDistribution = "Mixed precision requirements"
		default:
			ins.PrecisionDistribution = "Standard precision manufacturing"
		}

		if highCycle > 0 && lowCycle > 0 {
			if highCycle/lowCycle >= 2.0 {
				ins.ComplexityImpact = "High precision significantly increases cycle time"
				ins.Recommendations = append(ins.Recommendations, "Consider precision-based pricing and scheduling")
			} else {
				ins.ComplexityImpact = "Moderate precision impact on cycle time"
			}
		}
	}

	var largeCycle, smallCycle float64
	for _, s := range c.SizeDistribution {
		switch s.SizeCategory {
		case stats.SizeLarge:
			largeCycle = s.AvgCycleTime
		case stats.SizeSmall:
			smallCycle = s.AvgCycleTime
		}
	}
	if largeCycle > 0 && smallCycle > 0 && largeCycle/smallCycle >= 3.0 {
		ins.Recommendations = append(ins.Recommendations,
			"Large parts require significantly more time - optimize scheduling")
	}
	return out
}
