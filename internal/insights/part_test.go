package insights

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/pkg/models"
)

func TestAnalyzeProduction(t *testing.T) {
	part := &models.Part{PartNumber: "P1", StandardCycleTime: 100}
	p := &stats.PartProduction{
		TotalOperations:             25,
		ActualCycleTime:             130,
		CycleTimeVariancePercentage: 30,
		Efficiency:                  0.6,
		MachinesUsed:                4,
	}

	in := AnalyzeProduction(part, p)

	assert.Equal(t, "Regular production", in.ProductionPerformance)
	assert.Equal(t, "Cycle time significantly above standard", in.CycleTimeAnalysis)
	assert.Equal(t, "Moderate efficiency - room for improvement", in.MachineEfficiency)
	assert.Equal(t, []string{
		"Investigate causes of extended cycle times",
		"Analyze machine-specific performance variations",
		"Part produced on multiple machines - consider standardization",
	}, in.Recommendations)
}

func TestAnalyzeProduction_NoStandard(t *testing.T) {
	in := AnalyzeProduction(&models.Part{PartNumber: "P2"}, &stats.PartProduction{
		TotalOperations: 2,
		ActualCycleTime: 40,
		Efficiency:      0.9,
	})

	assert.Equal(t, "Minimal production history", in.ProductionPerformance)
	assert.Equal(t, "No standard cycle time for comparison", in.CycleTimeAnalysis)
	assert.Equal(t, "Excellent efficiency across machines", in.MachineEfficiency)
	assert.Equal(t, []string{
		"Insufficient data for reliable analysis",
		"Consider establishing standard cycle time",
	}, in.Recommendations)
}

func TestAnalyzeCost(t *testing.T) {
	t.Run("high value with machine gap", func(t *testing.T) {
		part := &models.Part{PartNumber: "P1", CostPerUnit: decimal.RequireFromString("12.50")}
		p := &stats.PartProduction{
			TotalPartsProduced: 100,
			TotalRunningTime:   7200,
			MachinePerformance: []stats.MachineBreakdown{
				{Machine: "M2", ProductivityPerHour: 5},
				{Machine: "M1", ProductivityPerHour: 20},
			},
		}

		c := AnalyzeCost(part, p)

		assert.True(t, c.TotalProductionValue.Equal(decimal.NewFromInt(1250)), c.TotalProductionValue.String())
		require.NotNil(t, c.CostPerProductionHour)
		assert.Equal(t, "625", c.CostPerProductionHour.String())
		assert.Equal(t, "High value production", c.CostEfficiency)
		assert.Equal(t, []string{
			"Significant productivity difference between machines - focus production on M1 for cost efficiency",
		}, c.Recommendations)
	})

	t.Run("low value", func(t *testing.T) {
		part := &models.Part{CostPerUnit: decimal.RequireFromString("0.35")}
		c := AnalyzeCost(part, &stats.PartProduction{TotalPartsProduced: 100, TotalRunningTime: 7000})

		// 35 × 3600 / 7000 = 18.0
		assert.Equal(t, "18", c.CostPerProductionHour.String())
		assert.Equal(t, "Low value production", c.CostEfficiency)
		assert.Equal(t, []string{"Consider cost optimization opportunities"}, c.Recommendations)
	})

	t.Run("no cost", func(t *testing.T) {
		c := AnalyzeCost(&models.Part{}, &stats.PartProduction{TotalPartsProduced: 10, TotalRunningTime: 60})
		assert.True(t, c.TotalProductionValue.IsZero())
		assert.Nil(t, c.CostPerProductionHour)
		assert.Equal(t, SeverityUnknown, c.CostEfficiency)
	})
}

func TestRecommend(t *testing.T) {
	part := &models.Part{
		PartNumber:       "P7",
		Name:             "Turbine Housing",
		MaterialType:     "Titanium",
		MaterialHardness: "Hardened",
		ToleranceClass:   "IT7",
		CostPerUnit:      decimal.NewFromInt(150),
	}
	p := &stats.PartProduction{
		TotalOperations:             60,
		Efficiency:                  0.55,
		CycleTimeVariancePercentage: 25,
		MachinesUsed:                2,
		MachinePerformance: []stats.MachineBreakdown{
			{Machine: "M1", ProductivityPerHour: 10},
			{Machine: "M2", ProductivityPerHour: 30},
		},
	}

	r := Recommend(part, p)

	assert.Equal(t, "High", r.PriorityLevel)
	assert.Equal(t, "Turbine Housing", r.PartName)
	assert.Equal(t, []string{
		"Low efficiency detected - analyze setup and operation procedures",
		"Consider operator training and process standardization",
		"High cycle time variance - investigate process consistency",
		"Review tooling and fixture standardization",
		"Hard material - optimize tool selection and cutting parameters",
	}, r.ProcessImprovements)
	assert.Equal(t, []string{
		"High-value part - focus on yield optimization and waste reduction",
		"Consider prioritizing production on M2 for cost efficiency",
	}, r.CostOptimization)
	assert.Equal(t, []string{
		"High precision part - implement statistical process control",
		"Consider dedicated tooling and environmental controls",
		"Difficult-to-machine material - optimize cutting parameters and tool selection",
	}, r.QualityEnhancements)
	assert.Equal(t, []string{
		"High volume part - consider automation opportunities",
		"Evaluate dedicated tooling and fixtures",
	}, r.OptimizationOpportunities)
}

func TestRecommend_NoProduction(t *testing.T) {
	r := Recommend(&models.Part{PartNumber: "P9"}, &stats.PartProduction{})
	assert.Equal(t, "Low", r.PriorityLevel)
	assert.Equal(t, []string{"Insufficient production data for analysis"}, r.OptimizationOpportunities)
	assert.Empty(t, r.ProcessImprovements)
}

func TestToleranceGrade(t *testing.T) {
	tests := []struct {
		class string
		grade int
		ok    bool
	}{
		{"IT7", 7, true},
		{"IT 11", 11, true},
		{"h7", 0, false},
		{"ITx", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		g, ok := toleranceGrade(tt.class)
		if g != tt.grade || ok != tt.ok {
			t.Errorf("toleranceGrade(%q) = %d, %v, want %d, %v", tt.class, g, ok, tt.grade, tt.ok)
		}
	}
}

func TestAnalyzeMaterials(t *testing.T) {
	materials := []stats.MaterialStats{
		{MaterialType: "Aluminum", TotalPartsProduced: 60, Efficiency: 0.85, ProductivityPerHour: 10},
		{MaterialType: "Steel", TotalPartsProduced: 30, Efficiency: 0.70, ProductivityPerHour: 6},
		{MaterialType: "Titanium", TotalPartsProduced: 10, Efficiency: 0.50, ProductivityPerHour: 2},
	}

	a := AnalyzeMaterials(models.DateRange{}, materials)
	ins := a.Insights

	assert.Equal(t, "Balanced material mix", ins.MaterialDistribution)
	require.Len(t, ins.PerformanceByMaterial, 3)
	assert.Equal(t, "High Performance", ins.PerformanceByMaterial[0].PerformanceRating)
	assert.Equal(t, "Good Performance", ins.PerformanceByMaterial[1].PerformanceRating)
	assert.Equal(t, "Needs Improvement", ins.PerformanceByMaterial[2].PerformanceRating)
	assert.Equal(t, []string{"Titanium"}, ins.LowEfficiencyMaterials)
	assert.Equal(t, []string{
		"Significant efficiency difference between materials - Aluminum performs much better than Titanium",
		"Consider material-specific process optimization",
		"Low efficiency materials detected: Titanium - investigate tooling and parameters",
	}, ins.Recommendations)

	single := AnalyzeMaterials(models.DateRange{}, materials[:1])
	assert.Equal(t, "Dominated by Aluminum", single.Insights.MaterialDistribution)
	assert.Empty(t, single.Insights.Recommendations)

	empty := AnalyzeMaterials(models.DateRange{}, nil)
	assert.Equal(t, SeverityUnknown, empty.Insights.MaterialDistribution)
}

func TestAnalyzeComplexity(t *testing.T) {
	precision := func(high, medium, low int, highCycle, lowCycle float64) []stats.PrecisionGroup {
		return []stats.PrecisionGroup{
			{PrecisionCategory: stats.PrecisionHigh, PartCount: high, AvgCycleTime: highCycle},
			{PrecisionCategory: stats.PrecisionLow, PartCount: low, AvgCycleTime: lowCycle},
			{PrecisionCategory: stats.PrecisionMedium, PartCount: medium},
		}
	}
	tests := []struct {
		name         string
		in           stats.PartComplexity
		distribution string
		impact       string
		recs         []string
	}{
		{
			name:         "empty catalogue",
			distribution: SeverityUnknown,
			impact:       SeverityUnknown,
			recs:         []string{},
		},
		{
			name:         "precision focus with heavy cycle impact",
			in:           stats.PartComplexity{PrecisionDistribution: precision(4, 3, 3, 900, 300)},
			distribution: "High precision manufacturing focus",
			impact:       "High precision significantly increases cycle time",
			recs: []string{
				"Specialized high-precision capabilities are a competitive advantage",
				"Consider precision-based pricing and scheduling",
			},
		},
		{
			name:         "mixed precision, moderate impact",
			in:           stats.PartComplexity{PrecisionDistribution: precision(2, 5, 3, 599, 300)},
			distribution: "Mixed precision requirements",
			impact:       "Moderate precision impact on cycle time",
			recs:         []string{},
		},
		{
			name:         "standard precision, no low precision cycle data",
			in:           stats.PartComplexity{PrecisionDistribution: precision(1, 5, 4, 900, 0)},
			distribution: "Standard precision manufacturing",
			impact:       SeverityUnknown,
			recs:         []string{},
		},
		{
			name: "large parts are slow",
			in: stats.PartComplexity{SizeDistribution: []stats.SizeGroup{
				{SizeCategory: stats.SizeLarge, PartCount: 1, AvgCycleTime: 1500},
				{SizeCategory: stats.SizeSmall, PartCount: 4, AvgCycleTime: 500},
			}},
			distribution: SeverityUnknown,
			impact:       SeverityUnknown,
			recs:         []string{"Large parts require significantly more time - optimize scheduling"},
		},
		{
			name: "large parts below the size ratio",
			in: stats.PartComplexity{SizeDistribution: []stats.SizeGroup{
				{SizeCategory: stats.SizeLarge, PartCount: 1, AvgCycleTime: 1499},
				{SizeCategory: stats.SizeSmall, PartCount: 4, AvgCycleTime: 500},
			}},
			distribution: SeverityUnknown,
			impact:       SeverityUnknown,
			recs:         []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnalyzeComplexity(&tt.in)
			require.NotNil(t, got.Insights)
			assert.Equal(t, tt.distribution, got.Insights.PrecisionDistribution)
			assert.Equal(t, tt.impact, got.Insights.ComplexityImpact)
			assert.Equal(t, tt.recs, got.Insights.Recommendations)
			assert.Equal(t, tt.in.SizeDistribution, got.SizeDistribution)
		})
	}
}
