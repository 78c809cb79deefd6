// Package downtime reduces operation records into downtime and running-time totals.
package downtime

import (
	"github.com/savegress/opsight/pkg/models"
)

// NoDataMessage is reported on summaries built from an empty record set
const NoDataMessage = "No data available for the specified period"

// Totals holds the aggregate counters of a summary
type Totals struct {
	TotalRecords       int   `json:"total_records"`
	TotalRunningTime   int64 `json:"total_running_time"`
	TotalJobDuration   int64 `json:"total_job_duration"`
	TotalDowntime      int64 `json:"total_downtime"`
	TotalPartsProduced int64 `json:"total_parts_produced"`
}

// EfficiencyMetrics holds ratios derived from the totals
type EfficiencyMetrics struct {
	OverallEfficiency  float64 `json:"overall_efficiency"`
	DowntimePercentage float64 `json:"downtime_percentage"`
	PartsPerHour       float64 `json:"parts_per_hour"`
}

// Summary is the downtime breakdown of a record set
type Summary struct {
	EntityType  models.EntityType  `json:"entity_type,omitempty"`
	EntityID    string             `json:"entity_id,omitempty"`
	Period      models.DateRange   `json:"period"`
	Totals      Totals             `json:"summary"`
	Breakdown   map[string]int64   `json:"downtime_breakdown"`
	Percentages map[string]float64 `json:"downtime_percentages"`
	Efficiency  EfficiencyMetrics  `json:"efficiency_metrics"`
	NoData      bool               `json:"no_data,omitempty"`
	Message     string             `json:"message,omitempty"`
}

// Category returns the summed seconds for one category
func (s *Summary) Category(c models.DowntimeCategory) int64 {
	return s.Breakdown[c.Key()]
}

// Share returns the category's fraction of total downtime, 0 when there is none
func (s *Summary) Share(c models.DowntimeCategory) float64 {
	if s.Totals.TotalDowntime <= 0 {
		return 0
	}
	return float64(s.Category(c)) / float64(s.Totals.TotalDowntime)
}

// Accumulator sums records one at a time. The zero value is ready to use.
type Accumulator struct {
	records  int
	running  int64
	duration int64
	parts    int64
	cats     [11]int64
}

// Add folds a record into the running totals
func (a *Accumulator) Add(r *models.OperationRecord) {
	a.records++
	a.running += r.RunningTime
	a.duration += r.JobDuration
	a.parts += r.PartsProduced
	for i, c := range models.DowntimeCategories {
		a.cats[i] += r.Downtime(c)
	}
}

// Merge folds another accumulator into a
func (a *Accumulator) Merge(b *Accumulator) {
	a.records += b.records
	a.running += b.running
	a.duration += b.duration
	a.parts += b.parts
	for i := range a.cats {
		a.cats[i] += b.cats[i]
	}
}

// Records returns how many records were added
func (a *Accumulator) Records() int { return a.records }

// Downtime returns the sum over all categories
func (a *Accumulator) Downtime() int64 {
	var total int64
	for _, v := range a.cats {
		total += v
	}
	return total
}

// Running returns the summed running time
func (a *Accumulator) Running() int64 { return a.running }

// Parts returns the summed parts produced
func (a *Accumulator) Parts() int64 { return a.parts }

// Summary builds the derived summary
func (a *Accumulator) Summary() *Summary {
	s := &Summary{
		Breakdown:   make(map[string]int64, len(models.DowntimeCategories)),
		Percentages: make(map[string]float64),
	}
	for i, c := range models.DowntimeCategories {
		s.Breakdown[c.Key()] = a.cats[i]
	}

	s.Totals = Totals{
		TotalRecords:       a.records,
		TotalRunningTime:   a.running,
		TotalJobDuration:   a.duration,
		TotalDowntime:      a.Downtime(),
		TotalPartsProduced: a.parts,
	}

	if a.records == 0 {
		s.NoData = true
		s.Message = NoDataMessage
		return s
	}

	if a.duration > 0 {
		s.Efficiency.OverallEfficiency = float64(a.running) / float64(a.duration)
		s.Efficiency.DowntimePercentage = float64(s.Totals.TotalDowntime) / float64(a.duration)
	}
	s.Efficiency.PartsPerHour = PartsPerHour(a.parts, a.running)

	if s.Totals.TotalDowntime > 0 {
		for i, c := range models.DowntimeCategories {
			s.Percentages[c.Key()+"_percentage"] = float64(a.cats[i]) / float64(s.Totals.TotalDowntime)
		}
	}

	return s
}

// Summarize reduces records into a Summary. The result does not depend on
// record order, and an empty input yields a zero summary flagged NoData.
func Summarize(records []models.OperationRecord) *Summary {
	var acc Accumulator
	for i := range records {
		acc.Add(&records[i])
	}
	return acc.Summary()
}

// PartsPerHour is parts / (running / 3600), 0 without running time
func PartsPerHour(parts, running int64) float64 {
	if running <= 0 {
		return 0
	}
	return float64(parts) / (float64(running) / 3600)
}
