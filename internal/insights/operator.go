package insights

import (
	"fmt"
	"sort"

	"github.com/savegress/opsight/internal/benchmarks"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/pkg/models"
)

// OperatorInsights assesses one operator against the expectations of their tier
type OperatorInsights struct {
	OverallAssessment string               `json:"overall_assessment"`
	Strengths         []string             `json:"strengths"`
	ImprovementAreas  []string             `json:"improvement_areas"`
	Recommendations   []string             `json:"recommendations"`
	Benchmarks        *benchmarks.Operator `json:"performance_benchmarks,omitempty"`
}

// OperatorGenerator produces performance insights for operators
type OperatorGenerator struct {
	config Config
	bench  *benchmarks.Provider
}

// NewOperatorGenerator creates an operator insight generator
func NewOperatorGenerator(cfg Config, bench *benchmarks.Provider) *OperatorGenerator {
	if bench == nil {
		bench = benchmarks.NewProvider()
	}
	return &OperatorGenerator{config: cfg, bench: bench}
}

// EntityType implements Generator
func (g *OperatorGenerator) EntityType() models.EntityType { return models.EntityOperator }

// Generate implements Generator. Operator metadata and metrics are required.
func (g *OperatorGenerator) Generate(in *Input) (*Insight, error) {
	if in == nil || in.Operator == nil {
		return nil, errMissing("operator")
	}
	if in.OperatorMetrics == nil {
		return nil, errMissing("operator_metrics")
	}

	oi := g.Assess(in.Operator, in.OperatorMetrics)
	b := g.bench.ForOperator(in.Operator.SkillLevel)
	oi.Benchmarks = &b

	out := &Insight{
		EntityType: models.EntityOperator,
		EntityID:   in.EntityID,
		Trends:     in.Trends,
		Operator:   oi,
	}
	if in.Summary != nil {
		out.Downtime = AnalyzeDowntime(in.Summary, g.config.CauseShareThreshold)
	}
	return out, nil
}

// Assess rates an operator's efficiency and machine versatility. Operators
// with a skill level are also checked against that tier.
func (g *OperatorGenerator) Assess(op *models.Operator, m *stats.OperatorMetrics) *OperatorInsights {
	out := &OperatorInsights{
		Strengths:        []string{},
		ImprovementAreas: []string{},
		Recommendations:  []string{},
	}
	eff := m.Efficiency

	switch {
	case eff >= 0.85 && m.ProductivityPerHour > 0:
		out.OverallAssessment = "Excellent"
		out.Strengths = append(out.Strengths, "High efficiency and productivity")
	case eff >= 0.70:
		out.OverallAssessment = "Good"
		out.Strengths = append(out.Strengths, "Good operational efficiency")
	case eff >= 0.50:
		out.OverallAssessment = "Needs Improvement"
		out.ImprovementAreas = append(out.ImprovementAreas, "Efficiency below target")
	default:
		out.OverallAssessment = "Poor"
		out.ImprovementAreas = append(out.ImprovementAreas, "Significant efficiency issues")
	}

	switch {
	case m.MachinesOperated >= 3:
		out.Strengths = append(out.Strengths, "High machine versatility")
	case m.MachinesOperated == 1:
		out.ImprovementAreas = append(out.ImprovementAreas, "Limited to single machine operation")
		out.Recommendations = append(out.Recommendations, "Consider cross-training on additional machines")
	}

	if op.SkillLevel != "" {
		tier, _ := g.bench.Tier(op.SkillLevel)
		if eff < tier.Efficiency {
			out.ImprovementAreas = append(out.ImprovementAreas,
				fmt.Sprintf("Efficiency below %s level expectations", op.SkillLevel))
			out.Recommendations = append(out.Recommendations, "Focus on process optimization and training")
		}
		if m.MachinesOperated < tier.Machines {
			out.Recommendations = append(out.Recommendations,
				fmt.Sprintf("Consider training on additional machines for %s level", op.SkillLevel))
		}
	}
	return out
}

// SkillDevelopment is the promotion plan for an operator
type SkillDevelopment struct {
	EmpID                   string                   `json:"emp_id"`
	CurrentSkillLevel       models.SkillLevel        `json:"current_skill_level"`
	RecommendedNextLevel    models.SkillLevel        `json:"recommended_next_level,omitempty"`
	Requirements            *benchmarks.Requirements `json:"requirements,omitempty"`
	DevelopmentAreas        []string                 `json:"development_areas"`
	TrainingRecommendations []string                 `json:"training_recommendations"`
	Timeline                string                   `json:"timeline"`
	ReadyForPromotion       bool                     `json:"ready_for_promotion"`
}

// Develop compares an operator's record with the requirements of the next
// tier. Operators without a recognised tier are treated as BEGINNER.
func (g *OperatorGenerator) Develop(op *models.Operator, m *stats.OperatorMetrics) *SkillDevelopment {
	pr := g.bench.Progression(op.SkillLevel)
	out := &SkillDevelopment{
		EmpID:                   op.EmpID,
		CurrentSkillLevel:       pr.Current,
		DevelopmentAreas:        []string{},
		TrainingRecommendations: []string{},
		Timeline:                pr.Timeline,
	}

	if pr.Next == "" {
		out.TrainingRecommendations = append(out.TrainingRecommendations,
			"Focus on mentoring and knowledge transfer to junior operators")
		return out
	}

	req := pr.Requirements
	out.RecommendedNextLevel = pr.Next
	out.Requirements = &req

	met := true
	if m.Efficiency < req.MinEfficiency {
		met = false
		out.DevelopmentAreas = append(out.DevelopmentAreas, "Improve operational efficiency")
		out.TrainingRecommendations = append(out.TrainingRecommendations, "Process optimization training")
	}
	if m.TotalJobs < req.MinJobs {
		met = false
		out.DevelopmentAreas = append(out.DevelopmentAreas, "Gain more operational experience")
		out.TrainingRecommendations = append(out.TrainingRecommendations, "Increase job assignments and variety")
	}
	if m.MachinesOperated < req.MinMachines {
		met = false
		out.DevelopmentAreas = append(out.DevelopmentAreas, "Learn additional machine operations")
		out.TrainingRecommendations = append(out.TrainingRecommendations, "Cross-training on different machine types")
	}
	if met {
		out.ReadyForPromotion = true
		out.TrainingRecommendations = append(out.TrainingRecommendations,
			fmt.Sprintf("Ready for promotion to %s level", pr.Next))
	}
	return out
}

// Ranking metrics accepted by TopPerformers
const (
	MetricProductivity  = "productivity"
	MetricEfficiency    = "efficiency"
	MetricPartsProduced = "parts_produced"
)

// ValidMetrics lists the supported ranking metrics
var ValidMetrics = []string{MetricProductivity, MetricEfficiency, MetricPartsProduced}

// ParseMetric validates a ranking metric name
func ParseMetric(metric string) (string, error) {
	for _, m := range ValidMetrics {
		if m == metric {
			return m, nil
		}
	}
	return "", &models.ConfigurationError{Field: "metric", Value: metric}
}

func metricValue(t *stats.OperatorTotals, metric string) float64 {
	switch metric {
	case MetricEfficiency:
		return t.Efficiency
	case MetricPartsProduced:
		return float64(t.TotalPartsProduced)
	default:
		return t.ProductivityPerHour
	}
}

// TopPerformerInsights interprets a ranking of operators
type TopPerformerInsights struct {
	PerformanceGap        string   `json:"performance_gap"`
	CommonCharacteristics []string `json:"common_characteristics"`
	Recommendations       []string `json:"recommendations"`
}

// TopPerformers is a ranking of operators by one metric
type TopPerformers struct {
	Metric    string                 `json:"metric"`
	Period    models.DateRange       `json:"period"`
	Operators []stats.OperatorTotals `json:"top_performers"`
	Insights  *TopPerformerInsights  `json:"insights"`
}

// RankOperators orders operator totals by metric, highest first, ties by emp
// id, and keeps at most limit entries. A limit of 0 or less keeps all.
func RankOperators(totals []stats.OperatorTotals, metric string, limit int) ([]stats.OperatorTotals, error) {
	metric, err := ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	ranked := make([]stats.OperatorTotals, len(totals))
	copy(ranked, totals)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := metricValue(&ranked[i], metric), metricValue(&ranked[j], metric)
		if a != b {
			return a > b
		}
		return ranked[i].EmpID < ranked[j].EmpID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// AnalyzeTopPerformers ranks operators and describes the spread between the
// first and last of the ranking.
func AnalyzeTopPerformers(period models.DateRange, totals []stats.OperatorTotals, metric string, limit int) (*TopPerformers, error) {
	ranked, err := RankOperators(totals, metric, limit)
	if err != nil {
		return nil, err
	}
	out := &TopPerformers{
		Metric:    metric,
		Period:    period,
		Operators: ranked,
		Insights: &TopPerformerInsights{
			PerformanceGap:        SeverityUnknown,
			CommonCharacteristics: []string{},
			Recommendations:       []string{},
		},
	}
	if len(ranked) < 2 {
		return out, nil
	}
	ins := out.Insights

	top := metricValue(&ranked[0], metric)
	bottom := metricValue(&ranked[len(ranked)-1], metric)
	if bottom > 0 {
		switch gap := top / bottom; {
		case gap >= 2.0:
			ins.PerformanceGap = "Large performance gap - significant improvement opportunity"
			ins.Recommendations = append(ins.Recommendations, "Analyze top performer practices for knowledge transfer")
		case gap >= 1.5:
			ins.PerformanceGap = "Moderate performance gap"
			ins.Recommendations = append(ins.Recommendations, "Implement peer mentoring programs")
		default:
			ins.PerformanceGap = "Small performance gap - consistent performance"
		}
	}

	head := ranked
	if len(head) > 3 {
		head = head[:3]
	}
	skills := make([]string, 0, len(head))
	depts := make([]string, 0, len(head))
	for _, t := range head {
		skills = append(skills, string(t.SkillLevel))
		depts = append(depts, t.Department)
	}
	if v, n := mostCommon(skills); n >= 2 {
		ins.CommonCharacteristics = append(ins.CommonCharacteristics,
			fmt.Sprintf("Most top performers have %s skill level", v))
	}
	if v, n := mostCommon(depts); n >= 2 {
		ins.CommonCharacteristics = append(ins.CommonCharacteristics,
			fmt.Sprintf("Top performers concentrated in %s department", v))
	}
	return out, nil
}

// mostCommon returns the most frequent non-empty value, the smallest on ties
func mostCommon(values []string) (string, int) {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	var best string
	var n int
	for v, c := range counts {
		if c > n || (c == n && v < best) {
			best, n = v, c
		}
	}
	return best, n
}

// SkillLevelInsights interprets the distribution of operators across tiers
type SkillLevelInsights struct {
	SkillDistribution      string   `json:"skill_distribution"`
	PerformanceCorrelation string   `json:"performance_correlation"`
	Recommendations        []string `json:"recommendations"`
}

// SkillLevelAnalysis is the fleet skill report
type SkillLevelAnalysis struct {
	Period      models.DateRange        `json:"analysis_period"`
	SkillLevels []stats.SkillLevelStats `json:"skill_levels"`
	Insights    *SkillLevelInsights     `json:"insights"`
}

// AnalyzeSkillLevels relates the tier mix to the efficiency of each tier
func AnalyzeSkillLevels(period models.DateRange, levels []stats.SkillLevelStats) *SkillLevelAnalysis {
	out := &SkillLevelAnalysis{
		Period:      period,
		SkillLevels: levels,
		Insights: &SkillLevelInsights{
			SkillDistribution:      SeverityUnknown,
			PerformanceCorrelation: SeverityUnknown,
			Recommendations:        []string{},
		},
	}
	if len(levels) == 0 {
		return out
	}
	ins := out.Insights

	var total, experts, beginners int
	efficiency := make(map[models.SkillLevel]float64, len(levels))
	for _, l := range levels {
		total += l.OperatorCount
		switch l.SkillLevel {
		case models.SkillExpert:
			experts += l.OperatorCount
		case models.SkillBeginner:
			beginners += l.OperatorCount
		}
		efficiency[l.SkillLevel] = l.Efficiency
	}

	var expertRatio, beginnerRatio float64
	if total > 0 {
		expertRatio = float64(experts) / float64(total)
		beginnerRatio = float64(beginners) / float64(total)
	}

	switch {
	case expertRatio >= 0.3:
		ins.SkillDistribution = "High expertise level"
	case expertRatio >= 0.15:
		ins.SkillDistribution = "Balanced skill distribution"
	default:
		ins.SkillDistribution = "Limited expertise available"
		ins.Recommendations = append(ins.Recommendations, "Invest in advanced skill development programs")
	}
	if beginnerRatio >= 0.4 {
		ins.Recommendations = append(ins.Recommendations, "High proportion of beginners - prioritize training programs")
	}

	if len(efficiency) >= 2 {
		expert, beginner := efficiency[models.SkillExpert], efficiency[models.SkillBeginner]
		switch {
		case expert > beginner*1.2:
			ins.PerformanceCorrelation = "Strong correlation between skill and performance"
		case expert > beginner*1.1:
			ins.PerformanceCorrelation = "Moderate correlation between skill and performance"
		default:
			ins.PerformanceCorrelation = "Weak correlation - investigate training effectiveness"
			ins.Recommendations = append(ins.Recommendations, "Review training programs and skill assessment criteria")
		}
	}
	return out
}
