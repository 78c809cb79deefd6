// Package insights turns computed statistics into assessments and
// recommendations. Each entity type has its own Generator; all of them are
// deterministic functions of their Input.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/savegress/opsight/internal/benchmarks"
	"github.com/savegress/opsight/internal/downtime"
	"github.com/savegress/opsight/internal/oee"
	"github.com/savegress/opsight/internal/stats"
	"github.com/savegress/opsight/internal/trends"
	"github.com/savegress/opsight/pkg/models"
)

// Severity labels for downtime patterns
const (
	SeverityExcellent = "Excellent"
	SeverityGood      = "Good"
	SeverityModerate  = "Moderate"
	SeverityPoor      = "Poor"
	SeverityCritical  = "Critical"
	SeverityUnknown   = "Unknown"
)

// Input carries everything a generator may consult. Generators read the
// fields relevant to their entity type and ignore the rest.
type Input struct {
	EntityID string
	Summary  *downtime.Summary
	Trends   *trends.Insight

	// machine
	Machine     *models.Machine
	OEE         *oee.Result
	Performance *stats.Performance

	// operator
	Operator        *models.Operator
	OperatorMetrics *stats.OperatorMetrics

	// job
	Job        *models.Job
	JobMetrics *stats.JobMetrics

	// part
	Part           *models.Part
	PartProduction *stats.PartProduction

	// Now is the reference time for schedule calculations
	Now time.Time
}

// Insight is the tagged result of a generator. Exactly one of the entity
// sections is set, matching EntityType.
type Insight struct {
	EntityType models.EntityType `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Downtime   *DowntimePatterns `json:"downtime_patterns,omitempty"`
	Trends     *trends.Insight   `json:"trend_insights,omitempty"`
	Machine    *MachineInsights  `json:"machine,omitempty"`
	Job        *JobInsights      `json:"job,omitempty"`
	Operator   *OperatorInsights `json:"operator,omitempty"`
	Part       *PartInsights     `json:"part,omitempty"`
}

// Generator produces insights for one entity type
type Generator interface {
	EntityType() models.EntityType
	Generate(in *Input) (*Insight, error)
}

// Config holds the thresholds shared by all generators
type Config struct {
	// CauseShareThreshold is the minimum share of total downtime for a
	// category to be reported as a primary cause
	CauseShareThreshold float64
}

// DefaultConfig returns the standard generator thresholds
func DefaultConfig() Config {
	return Config{CauseShareThreshold: 0.10}
}

// Registry dispatches generation by entity type
type Registry struct {
	generators map[models.EntityType]Generator
}

// NewRegistry builds a registry holding one generator per entity type
func NewRegistry(cfg Config, bench *benchmarks.Provider) *Registry {
	r := &Registry{generators: make(map[models.EntityType]Generator)}
	for _, g := range []Generator{
		NewMachineGenerator(cfg, bench),
		NewJobGenerator(cfg),
		NewOperatorGenerator(cfg, bench),
		NewPartGenerator(cfg),
	} {
		r.generators[g.EntityType()] = g
	}
	return r
}

// For returns the generator for entity
func (r *Registry) For(entity models.EntityType) (Generator, error) {
	g, ok := r.generators[entity]
	if !ok {
		return nil, &models.ConfigurationError{Field: "entity_type", Value: string(entity)}
	}
	return g, nil
}

// Generate dispatches to the generator for entity
func (r *Registry) Generate(entity models.EntityType, in *Input) (*Insight, error) {
	g, err := r.For(entity)
	if err != nil {
		return nil, err
	}
	return g.Generate(in)
}

// Cause is a downtime category that accounts for a significant share of
// total downtime
type Cause struct {
	Cause      string  `json:"cause"`
	Category   string  `json:"category"`
	Time       int64   `json:"time"`
	Percentage float64 `json:"percentage"`
}

// DowntimePatterns ranks downtime causes and assesses their severity
type DowntimePatterns struct {
	PrimaryCauses      []Cause  `json:"primary_downtime_causes"`
	Recommendations    []string `json:"recommendations"`
	SeverityAssessment string   `json:"severity_assessment"`
}

var causeRecommendations = []struct {
	keyword        string
	recommendation string
}{
	{"setup", "Consider setup time reduction initiatives and operator training"},
	{"maintenance", "Review preventive maintenance schedule and procedures"},
	{"tooling", "Optimize tool management and pre-staging processes"},
	{"adjustment", "Investigate process stability and quality control measures"},
	{"idle", "Analyze scheduling efficiency and material flow"},
}

// AnalyzeDowntime ranks the primary causes in s and derives recommendations
// for the top three.
func AnalyzeDowntime(s *downtime.Summary, threshold float64) *DowntimePatterns {
	p := &DowntimePatterns{
		PrimaryCauses:      []Cause{},
		Recommendations:    []string{},
		SeverityAssessment: SeverityUnknown,
	}
	if s == nil {
		return p
	}
	if s.Totals.TotalDowntime == 0 {
		p.SeverityAssessment = SeverityExcellent
		p.Recommendations = append(p.Recommendations, "Maintain current operational practices")
		return p
	}

	// categories are visited in fixed order so the stable sort breaks ties by it
	for _, c := range models.DowntimeCategories {
		t := s.Category(c)
		if t <= 0 {
			continue
		}
		share := s.Share(c)
		if share < threshold {
			continue
		}
		p.PrimaryCauses = append(p.PrimaryCauses, Cause{
			Cause:      c.Title(),
			Category:   c.Key(),
			Time:       t,
			Percentage: share * 100,
		})
	}
	sort.SliceStable(p.PrimaryCauses, func(i, j int) bool {
		return p.PrimaryCauses[i].Percentage > p.PrimaryCauses[j].Percentage
	})

	top := p.PrimaryCauses
	if len(top) > 3 {
		top = top[:3]
	}
	for _, c := range top {
		name := strings.ToLower(c.Cause)
		for _, cr := range causeRecommendations {
			if strings.Contains(name, cr.keyword) {
				p.Recommendations = appendUnique(p.Recommendations, cr.recommendation)
				break
			}
		}
	}

	p.SeverityAssessment = severity(s.Efficiency.OverallEfficiency)
	return p
}

func severity(efficiency float64) string {
	switch {
	case efficiency >= 0.85:
		return SeverityGood
	case efficiency >= 0.70:
		return SeverityModerate
	case efficiency >= 0.50:
		return SeverityPoor
	default:
		return SeverityCritical
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}

func pct(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den * 100
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func errMissing(field string) error {
	return &models.ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}
