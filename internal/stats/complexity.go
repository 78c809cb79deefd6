package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/savegress/opsight/pkg/models"
)

// Precision categories by ISO tolerance class
const (
	PrecisionHigh    = "High Precision"
	PrecisionMedium  = "Medium Precision"
	PrecisionLow     = "Low Precision"
	PrecisionUnknown = "Unknown"
)

// Size categories by part dimensions
const (
	SizeSmall   = "Small"
	SizeMedium  = "Medium"
	SizeLarge   = "Large"
	SizeUnknown = "Unknown"
)

// Dimension limits in mm for the small and medium size categories
const (
	smallDimension  = 50
	mediumDimension = 200
)

// PrecisionCategory groups tolerance classes IT6-IT8, IT9-IT11 and IT12-IT14
func PrecisionCategory(toleranceClass string) string {
	switch toleranceClass {
	case "IT6", "IT7", "IT8":
		return PrecisionHigh
	case "IT9", "IT10", "IT11":
		return PrecisionMedium
	case "IT12", "IT13", "IT14":
		return PrecisionLow
	}
	return PrecisionUnknown
}

// SizeCategory is Small when every dimension is at most 50mm, Medium when
// every dimension is at most 200mm and Large when every dimension exceeds
// 200mm. Mixed shapes are Unknown.
func SizeCategory(l, w, h float64) string {
	switch {
	case l <= smallDimension && w <= smallDimension && h <= smallDimension:
		return SizeSmall
	case l <= mediumDimension && w <= mediumDimension && h <= mediumDimension:
		return SizeMedium
	case l > mediumDimension && w > mediumDimension && h > mediumDimension:
		return SizeLarge
	}
	return SizeUnknown
}

// PrecisionGroup aggregates parts of one precision category
type PrecisionGroup struct {
	PrecisionCategory string          `json:"precision_category"`
	PartCount         int             `json:"part_count"`
	AvgCycleTime      float64         `json:"avg_cycle_time"`
	AvgCostPerUnit    decimal.Decimal `json:"avg_cost_per_unit"`
}

// HardnessGroup aggregates parts of one material hardness
type HardnessGroup struct {
	MaterialHardness string  `json:"material_hardness"`
	PartCount        int     `json:"part_count"`
	AvgCycleTime     float64 `json:"avg_cycle_time"`
}

// SizeGroup aggregates parts of one size category
type SizeGroup struct {
	SizeCategory string  `json:"size_category"`
	PartCount    int     `json:"part_count"`
	AvgCycleTime float64 `json:"avg_cycle_time"`
	AvgWeight    float64 `json:"avg_weight"`
}

// PartComplexity distributes the part catalogue by precision, hardness and size
type PartComplexity struct {
	PrecisionDistribution []PrecisionGroup `json:"precision_distribution"`
	HardnessDistribution  []HardnessGroup  `json:"hardness_distribution"`
	SizeDistribution      []SizeGroup      `json:"size_distribution"`
}

// mean averages only the values that were recorded
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m *mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

type decimalMean struct {
	sum decimal.Decimal
	n   int64
}

func (m *decimalMean) add(v decimal.Decimal) {
	m.sum = m.sum.Add(v)
	m.n++
}

func (m *decimalMean) value() decimal.Decimal {
	if m.n == 0 {
		return decimal.Zero
	}
	return m.sum.Div(decimal.NewFromInt(m.n)).Round(4)
}

type partGroup struct {
	count  int
	cycle  mean
	cost   decimalMean
	weight mean
}

// add counts p. A zero cycle time or cost means unrecorded and is left out
// of the averages.
func (g *partGroup) add(p *models.Part) {
	g.count++
	if p.StandardCycleTime > 0 {
		g.cycle.add(float64(p.StandardCycleTime))
	}
	if !p.CostPerUnit.IsZero() {
		g.cost.add(p.CostPerUnit)
	}
	if p.Weight != nil {
		g.weight.add(*p.Weight)
	}
}

func groupParts(parts []models.Part, key func(p *models.Part) (string, bool)) (map[string]*partGroup, []string) {
	groups := make(map[string]*partGroup)
	for i := range parts {
		k, ok := key(&parts[i])
		if !ok {
			continue
		}
		g, seen := groups[k]
		if !seen {
			g = &partGroup{}
			groups[k] = g
		}
		g.add(&parts[i])
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

// Complexity computes the part complexity distributions. Every distribution
// is ordered by category name. Parts without a hardness are left out of the
// hardness distribution and parts missing a dimension out of the size one.
func Complexity(parts []models.Part) *PartComplexity {
	out := &PartComplexity{
		PrecisionDistribution: []PrecisionGroup{},
		HardnessDistribution:  []HardnessGroup{},
		SizeDistribution:      []SizeGroup{},
	}

	groups, keys := groupParts(parts, func(p *models.Part) (string, bool) {
		return PrecisionCategory(p.ToleranceClass), true
	})
	for _, k := range keys {
		g := groups[k]
		out.PrecisionDistribution = append(out.PrecisionDistribution, PrecisionGroup{
			PrecisionCategory: k,
			PartCount:         g.count,
			AvgCycleTime:      g.cycle.value(),
			AvgCostPerUnit:    g.cost.value(),
		})
	}

	groups, keys = groupParts(parts, func(p *models.Part) (string, bool) {
		return p.MaterialHardness, p.MaterialHardness != ""
	})
	for _, k := range keys {
		g := groups[k]
		out.HardnessDistribution = append(out.HardnessDistribution, HardnessGroup{
			MaterialHardness: k,
			PartCount:        g.count,
			AvgCycleTime:     g.cycle.value(),
		})
	}

	groups, keys = groupParts(parts, func(p *models.Part) (string, bool) {
		l, w, h, ok := p.Dimensions()
		if !ok {
			return "", false
		}
		return SizeCategory(l, w, h), true
	})
	for _, k := range keys {
		g := groups[k]
		out.SizeDistribution = append(out.SizeDistribution, SizeGroup{
			SizeCategory: k,
			PartCount:    g.count,
			AvgCycleTime: g.cycle.value(),
			AvgWeight:    g.weight.value(),
		})
	}
	return out
}

// PartAverages holds catalogue-wide means over recorded values
type PartAverages struct {
	AvgCycleTime   float64         `json:"avg_cycle_time"`
	AvgCostPerUnit decimal.Decimal `json:"avg_cost_per_unit"`
	AvgWeight      float64         `json:"avg_weight"`
}

// DataCompleteness reports how many parts carry cycle time and cost data.
// The completeness values are percentages.
type DataCompleteness struct {
	PartsWithCycleTime    int     `json:"parts_with_cycle_time"`
	PartsWithCost         int     `json:"parts_with_cost"`
	CycleTimeCompleteness float64 `json:"cycle_time_completeness"`
	CostCompleteness      float64 `json:"cost_completeness"`
}

// PartSummary describes the whole part catalogue
type PartSummary struct {
	TotalParts               int              `json:"total_parts"`
	MaterialTypeDistribution map[string]int   `json:"material_type_distribution"`
	AverageMetrics           PartAverages     `json:"average_metrics"`
	DataCompleteness         DataCompleteness `json:"data_completeness"`
}

// Summary counts the catalogue by material and measures data completeness
func Summary(parts []models.Part) *PartSummary {
	out := &PartSummary{
		TotalParts:               len(parts),
		MaterialTypeDistribution: map[string]int{},
	}
	var all partGroup
	for i := range parts {
		p := &parts[i]
		all.add(p)
		if p.MaterialType != "" {
			out.MaterialTypeDistribution[p.MaterialType]++
		}
	}

	out.AverageMetrics = PartAverages{
		AvgCycleTime:   all.cycle.value(),
		AvgCostPerUnit: all.cost.value(),
		AvgWeight:      all.weight.value(),
	}
	out.DataCompleteness = DataCompleteness{
		PartsWithCycleTime: all.cycle.n,
		PartsWithCost:      int(all.cost.n),
	}
	if len(parts) > 0 {
		total := float64(len(parts))
		out.DataCompleteness.CycleTimeCompleteness = float64(all.cycle.n) / total * 100
		out.DataCompleteness.CostCompleteness = float64(all.cost.n) / total * 100
	}
	return out
}
