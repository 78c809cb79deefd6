// Package trends buckets operation records by calendar period and reports
// directional movement in downtime and efficiency.
package trends

import (
	"sort"
	"time"

	"github.com/savegress/opsight/pkg/models"
)

// Direction labels for downtime and efficiency movement
const (
	Stable     = "Stable"
	Increasing = "Increasing"
	Decreasing = "Decreasing"
	Improving  = "Improving"
	Declining  = "Declining"
)

// Point is one period of a trend series
type Point struct {
	Period        string    `json:"period"`
	PeriodStart   time.Time `json:"period_start"`
	RecordCount   int       `json:"record_count"`
	RunningTime   int64     `json:"running_time"`
	TotalDowntime int64     `json:"total_downtime"`
	PartsProduced int64     `json:"parts_produced"`
	Efficiency    float64   `json:"efficiency"`
}

// Series is an ordered set of periods
type Series struct {
	Granularity models.Granularity `json:"granularity"`
	Points      []Point            `json:"points"`
}

// Insight summarizes the direction of a series
type Insight struct {
	TrendDirection  string   `json:"trend_direction"`
	EfficiencyTrend string   `json:"efficiency_trend"`
	Recommendations []string `json:"recommendations"`
}

// Analyzer compares the latest window of points with the window before it
type Analyzer struct {
	window int
	band   float64
}

// NewAnalyzer creates an analyzer. window is the number of points per
// comparison window and band the relative change treated as movement.
func NewAnalyzer(window int, band float64) *Analyzer {
	if window <= 0 {
		window = 7
	}
	if band <= 0 {
		band = 0.10
	}
	return &Analyzer{window: window, band: band}
}

// ParseGranularity validates a granularity name
func ParseGranularity(s string) (models.Granularity, error) {
	switch g := models.Granularity(s); g {
	case models.Daily, models.Weekly, models.Monthly:
		return g, nil
	}
	return "", &models.ConfigurationError{Field: "interval", Value: s}
}

// PeriodStart truncates t (in UTC) to the start of its bucket
func PeriodStart(t time.Time, g models.Granularity) (time.Time, error) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch g {
	case models.Daily:
		return day, nil
	case models.Weekly:
		// Monday-aligned
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset), nil
	case models.Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, &models.ConfigurationError{Field: "interval", Value: string(g)}
}

// Bucket groups records into periods. Periods without records are omitted and
// the result is ordered by period start.
func Bucket(records []models.OperationRecord, g models.Granularity) (*Series, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]*Point)
	for i := range records {
		r := &records[i]
		start, err := PeriodStart(r.StartTime, g)
		if err != nil {
			return nil, err
		}
		p, ok := buckets[start]
		if !ok {
			p = &Point{Period: start.Format("2006-01-02"), PeriodStart: start}
			buckets[start] = p
		}
		p.RecordCount++
		p.RunningTime += r.RunningTime
		p.TotalDowntime += r.TotalDowntime()
		p.PartsProduced += r.PartsProduced
	}

	points := make([]Point, 0, len(buckets))
	for _, p := range buckets {
		if total := p.RunningTime + p.TotalDowntime; total > 0 {
			p.Efficiency = float64(p.RunningTime) / float64(total)
		}
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].PeriodStart.Before(points[j].PeriodStart)
	})

	return &Series{Granularity: g, Points: points}, nil
}

// Analyze reports the downtime and efficiency direction of a series
func (a *Analyzer) Analyze(points []Point) *Insight {
	insight := &Insight{
		TrendDirection:  Stable,
		EfficiencyTrend: Stable,
		Recommendations: []string{},
	}
	if len(points) < 2 {
		return insight
	}

	recent, prior := a.windows(points)

	recentDown, priorDown := sumDowntime(recent), sumDowntime(prior)
	switch {
	case float64(recentDown) > float64(priorDown)*(1+a.band):
		insight.TrendDirection = Increasing
		insight.Recommendations = append(insight.Recommendations, "Downtime is trending upward - investigate recent changes")
	case float64(recentDown) < float64(priorDown)*(1-a.band):
		insight.TrendDirection = Decreasing
		insight.Recommendations = append(insight.Recommendations, "Downtime improvements detected - document successful practices")
	}

	// efficiency has no baseline until a prior window exists
	if len(prior) == 0 {
		return insight
	}
	recentEff, priorEff := avgEfficiency(recent), avgEfficiency(prior)
	switch {
	case recentEff > priorEff*(1+a.band):
		insight.EfficiencyTrend = Improving
	case recentEff < priorEff*(1-a.band):
		insight.EfficiencyTrend = Declining
		insight.Recommendations = append(insight.Recommendations, "Efficiency is declining - review recent operational changes")
	}

	return insight
}

// windows splits off the last window and the one before it; the prior window
// may be shorter or empty
func (a *Analyzer) windows(points []Point) (recent, prior []Point) {
	n := len(points)
	split := n - a.window
	if split < 0 {
		split = 0
	}
	from := split - a.window
	if from < 0 {
		from = 0
	}
	return points[split:], points[from:split]
}

func sumDowntime(points []Point) int64 {
	var total int64
	for _, p := range points {
		total += p.TotalDowntime
	}
	return total
}

func avgEfficiency(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var total float64
	for _, p := range points {
		total += p.Efficiency
	}
	return total / float64(len(points))
}
