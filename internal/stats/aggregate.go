// Package stats computes descriptive statistics over operation records and
// master data. Every function is a pure reduction over its inputs.
package stats

import (
	"time"

	"github.com/savegress/opsight/internal/downtime"
	"github.com/savegress/opsight/pkg/models"
)

type set map[string]struct{}

func (s set) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

// aggregate is the shared accumulator behind every grouped statistic
type aggregate struct {
	count    int
	running  int64
	duration int64
	parts    int64
	downtime int64
	minParts int64
	maxParts int64

	machines  set
	operators set
	jobs      set
	partNos   set

	firstStart *time.Time
	lastStart  *time.Time
	lastEnd    *time.Time
}

func newAggregate() *aggregate {
	return &aggregate{
		machines:  set{},
		operators: set{},
		jobs:      set{},
		partNos:   set{},
	}
}

func (a *aggregate) add(r *models.OperationRecord) {
	if a.count == 0 || r.PartsProduced < a.minParts {
		a.minParts = r.PartsProduced
	}
	if a.count == 0 || r.PartsProduced > a.maxParts {
		a.maxParts = r.PartsProduced
	}
	a.count++
	a.running += r.RunningTime
	a.duration += r.JobDuration
	a.parts += r.PartsProduced
	a.downtime += r.TotalDowntime()

	a.machines.add(r.MachineID)
	a.operators.add(r.EmpID)
	a.jobs.add(r.JobNumber)
	a.partNos.add(r.PartNumber)

	if !r.StartTime.IsZero() {
		start := r.StartTime
		if a.firstStart == nil || start.Before(*a.firstStart) {
			a.firstStart = &start
		}
		if a.lastStart == nil || start.After(*a.lastStart) {
			a.lastStart = &start
		}
	}
	if r.EndTime != nil {
		end := *r.EndTime
		if a.lastEnd == nil || end.After(*a.lastEnd) {
			a.lastEnd = &end
		}
	}
}

func (a *aggregate) avg(total int64) float64 {
	if a.count == 0 {
		return 0
	}
	return float64(total) / float64(a.count)
}

// efficiency is running / job duration
func (a *aggregate) efficiency() float64 {
	return ratio(a.running, a.duration)
}

func (a *aggregate) productivity() float64 {
	return downtime.PartsPerHour(a.parts, a.running)
}

func (a *aggregate) cycleTime() float64 {
	if a.parts <= 0 || a.running <= 0 {
		return 0
	}
	return float64(a.running) / float64(a.parts)
}

func ratio(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func percent(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den * 100
}

// groupBy folds records into one aggregate per key, skipping empty keys
func groupBy(records []models.OperationRecord, key func(*models.OperationRecord) string) map[string]*aggregate {
	groups := make(map[string]*aggregate)
	for i := range records {
		r := &records[i]
		k := key(r)
		if k == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = newAggregate()
			groups[k] = g
		}
		g.add(r)
	}
	return groups
}

func aggregateAll(records []models.OperationRecord) *aggregate {
	a := newAggregate()
	for i := range records {
		a.add(&records[i])
	}
	return a
}
