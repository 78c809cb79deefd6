package insights

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/pkg/models"
)

func TestOperatorAssess(t *testing.T) {
	g := NewOperatorGenerator(DefaultConfig(), nil)

	tests := []struct {
		name       string
		level      models.SkillLevel
		metrics    stats.OperatorMetrics
		assessment string
		strengths  []string
		areas      []string
		recs       []string
	}{
		{
			name:       "expert meeting the tier",
			level:      models.SkillExpert,
			metrics:    stats.OperatorMetrics{Efficiency: 0.9, ProductivityPerHour: 12, MachinesOperated: 4},
			assessment: "Excellent",
			strengths:  []string{"High efficiency and productivity", "High machine versatility"},
			areas:      []string{},
			recs:       []string{},
		},
		{
			name:       "high efficiency without output is only good",
			metrics:    stats.OperatorMetrics{Efficiency: 0.9, MachinesOperated: 2},
			assessment: "Good",
			strengths:  []string{"Good operational efficiency"},
			areas:      []string{},
			recs:       []string{},
		},
		{
			name:       "advanced below tier on one machine",
			level:      models.SkillAdvanced,
			metrics:    stats.OperatorMetrics{Efficiency: 0.6, ProductivityPerHour: 5, MachinesOperated: 1},
			assessment: "Needs Improvement",
			strengths:  []string{},
			areas: []string{
				"Efficiency below target",
				"Limited to single machine operation",
				"Efficiency below ADVANCED level expectations",
			},
			recs: []string{
				"Consider cross-training on additional machines",
				"Focus on process optimization and training",
				"Consider training on additional machines for ADVANCED level",
			},
		},
		{
			name:       "unknown tier uses defaults",
			level:      "MASTER",
			metrics:    stats.OperatorMetrics{Efficiency: 0.4, MachinesOperated: 2},
			assessment: "Poor",
			strengths:  []string{},
			areas:      []string{"Significant efficiency issues", "Efficiency below MASTER level expectations"},
			recs:       []string{"Focus on process optimization and training"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := g.Assess(&models.Operator{EmpID: "E1", SkillLevel: tt.level}, &tt.metrics)
			assert.Equal(t, tt.assessment, in.OverallAssessment)
			assert.Equal(t, tt.strengths, in.Strengths)
			assert.Equal(t, tt.areas, in.ImprovementAreas)
			assert.Equal(t, tt.recs, in.Recommendations)
		})
	}
}

func TestOperatorGenerator_Benchmarks(t *testing.T) {
	g := NewOperatorGenerator(DefaultConfig(), nil)

	out, err := g.Generate(&Input{
		EntityID:        "E1",
		Operator:        &models.Operator{EmpID: "E1", SkillLevel: models.SkillIntermediate},
		OperatorMetrics: &stats.OperatorMetrics{Efficiency: 0.75, MachinesOperated: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 8.0, out.Operator.Benchmarks.ProductivityTarget)

	_, err = g.Generate(&Input{Operator: &models.Operator{EmpID: "E1"}})
	assert.Error(t, err)
}

func TestDevelop(t *testing.T) {
	g := NewOperatorGenerator(DefaultConfig(), nil)

	t.Run("ready for promotion", func(t *testing.T) {
		d := g.Develop(&models.Operator{EmpID: "E1", SkillLevel: models.SkillIntermediate},
			&stats.OperatorMetrics{Efficiency: 0.8, TotalJobs: 120, MachinesOperated: 2})
		assert.Equal(t, models.SkillAdvanced, d.RecommendedNextLevel)
		assert.Equal(t, "6-12 months", d.Timeline)
		assert.True(t, d.ReadyForPromotion)
		assert.Empty(t, d.DevelopmentAreas)
		assert.Equal(t, []string{"Ready for promotion to ADVANCED level"}, d.TrainingRecommendations)
	})

	t.Run("gaps", func(t *testing.T) {
		d := g.Develop(&models.Operator{EmpID: "E2", SkillLevel: models.SkillAdvanced},
			&stats.OperatorMetrics{Efficiency: 0.7, TotalJobs: 50, MachinesOperated: 1})
		assert.False(t, d.ReadyForPromotion)
		assert.Equal(t, []string{
			"Improve operational efficiency",
			"Gain more operational experience",
			"Learn additional machine operations",
		}, d.DevelopmentAreas)
		assert.Len(t, d.TrainingRecommendations, 3)
	})

	t.Run("expert", func(t *testing.T) {
		d := g.Develop(&models.Operator{EmpID: "E3", SkillLevel: models.SkillExpert}, &stats.OperatorMetrics{})
		assert.Empty(t, d.RecommendedNextLevel)
		assert.Nil(t, d.Requirements)
		assert.Equal(t, "Continuous improvement", d.Timeline)
		assert.Equal(t, []string{"Focus on mentoring and knowledge transfer to junior operators"}, d.TrainingRecommendations)
	})

	t.Run("no tier starts at beginner", func(t *testing.T) {
		d := g.Develop(&models.Operator{EmpID: "E4"}, &stats.OperatorMetrics{Efficiency: 0.7, TotalJobs: 50, MachinesOperated: 1})
		assert.Equal(t, models.SkillBeginner, d.CurrentSkillLevel)
		assert.Equal(t, models.SkillIntermediate, d.RecommendedNextLevel)
		assert.True(t, d.ReadyForPromotion)
	})
}

func TestRankOperators(t *testing.T) {
	totals := []stats.OperatorTotals{
		{EmpID: "E3", ProductivityPerHour: 10, Efficiency: 0.9, TotalPartsProduced: 50},
		{EmpID: "E1", ProductivityPerHour: 10, Efficiency: 0.7, TotalPartsProduced: 80},
		{EmpID: "E2", ProductivityPerHour: 20, Efficiency: 0.8, TotalPartsProduced: 10},
	}

	ids := func(ts []stats.OperatorTotals) []string {
		out := []string{}
		for _, t := range ts {
			out = append(out, t.EmpID)
		}
		return out
	}

	r, err := RankOperators(totals, MetricProductivity, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"E2", "E1", "E3"}, ids(r))

	r, err = RankOperators(totals, MetricEfficiency, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"E3", "E2"}, ids(r))

	r, err = RankOperators(totals, MetricPartsProduced, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E3", "E2"}, ids(r))

	// input is left untouched
	assert.Equal(t, "E3", totals[0].EmpID)

	_, err = RankOperators(totals, "speed", 10)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestAnalyzeTopPerformers(t *testing.T) {
	totals := []stats.OperatorTotals{
		{EmpID: "E1", ProductivityPerHour: 30, SkillLevel: models.SkillExpert, Department: "Milling"},
		{EmpID: "E2", ProductivityPerHour: 20, SkillLevel: models.SkillExpert, Department: "Turning"},
		{EmpID: "E3", ProductivityPerHour: 16, SkillLevel: models.SkillAdvanced, Department: "Grinding"},
		{EmpID: "E4", ProductivityPerHour: 10, SkillLevel: models.SkillBeginner, Department: "Milling"},
	}

	tp, err := AnalyzeTopPerformers(models.DateRange{}, totals, MetricProductivity, 10)
	require.NoError(t, err)
	assert.Equal(t, "Large performance gap - significant improvement opportunity", tp.Insights.PerformanceGap)
	assert.Equal(t, []string{"Analyze top performer practices for knowledge transfer"}, tp.Insights.Recommendations)
	assert.Equal(t, []string{"Most top performers have EXPERT skill level"}, tp.Insights.CommonCharacteristics)

	tp, err = AnalyzeTopPerformers(models.DateRange{}, totals, MetricProductivity, 3)
	require.NoError(t, err)
	assert.Equal(t, "Moderate performance gap", tp.Insights.PerformanceGap)

	tp, err = AnalyzeTopPerformers(models.DateRange{}, totals[:1], MetricProductivity, 3)
	require.NoError(t, err)
	assert.Equal(t, SeverityUnknown, tp.Insights.PerformanceGap)

	_, err = AnalyzeTopPerformers(models.DateRange{}, totals, "oee", 3)
	assert.Error(t, err)
}

func TestAnalyzeSkillLevels(t *testing.T) {
	tests := []struct {
		name         string
		levels       []stats.SkillLevelStats
		distribution string
		correlation  string
		recs         []string
	}{
		{
			name:         "empty",
			distribution: SeverityUnknown,
			correlation:  SeverityUnknown,
			recs:         []string{},
		},
		{
			name: "beginner heavy with strong correlation",
			levels: []stats.SkillLevelStats{
				{SkillLevel: models.SkillBeginner, OperatorCount: 5, Efficiency: 0.6},
				{SkillLevel: models.SkillIntermediate, OperatorCount: 3, Efficiency: 0.7},
				{SkillLevel: models.SkillExpert, OperatorCount: 2, Efficiency: 0.8},
			},
			distribution: "Balanced skill distribution",
			correlation:  "Strong correlation between skill and performance",
			recs:         []string{"High proportion of beginners - prioritize training programs"},
		},
		{
			name: "no experts",
			levels: []stats.SkillLevelStats{
				{SkillLevel: models.SkillBeginner, OperatorCount: 1, Efficiency: 0.6},
				{SkillLevel: models.SkillAdvanced, OperatorCount: 4, Efficiency: 0.9},
			},
			distribution: "Limited expertise available",
			correlation:  "Weak correlation - investigate training effectiveness",
			recs: []string{
				"Invest in advanced skill development programs",
				"Review training programs and skill assessment criteria",
			},
		},
		{
			name: "expert heavy, moderate correlation",
			levels: []stats.SkillLevelStats{
				{SkillLevel: models.SkillBeginner, OperatorCount: 2, Efficiency: 0.7},
				{SkillLevel: models.SkillExpert, OperatorCount: 3, Efficiency: 0.8},
			},
			distribution: "High expertise level",
			correlation:  "Moderate correlation between skill and performance",
			recs:         []string{"High proportion of beginners - prioritize training programs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AnalyzeSkillLevels(models.DateRange{}, tt.levels)
			assert.Equal(t, tt.distribution, a.Insights.SkillDistribution)
			assert.Equal(t, tt.correlation, a.Insights.PerformanceCorrelation)
			assert.Equal(t, tt.recs, a.Insights.Recommendations)
		})
	}
}
