package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the kind of entity an analysis is scoped to
type EntityType string

const (
	EntityMachine  EntityType = "machine"
	EntityOperator EntityType = "operator"
	EntityJob      EntityType = "job"
	EntityPart     EntityType = "part"
)

// Valid reports whether t is a known entity type
func (t EntityType) Valid() bool {
	switch t {
	case EntityMachine, EntityOperator, EntityJob, EntityPart:
		return true
	}
	return false
}

// DowntimeCategory names one of the eleven causes of non-productive time
type DowntimeCategory string

const (
	DowntimeSetup            DowntimeCategory = "setup"
	DowntimeWaitingSetup     DowntimeCategory = "waiting_setup"
	DowntimeNotFeeding       DowntimeCategory = "not_feeding"
	DowntimeAdjustment       DowntimeCategory = "adjustment"
	DowntimeDressing         DowntimeCategory = "dressing"
	DowntimeTooling          DowntimeCategory = "tooling"
	DowntimeEngineering      DowntimeCategory = "engineering"
	DowntimeMaintenance      DowntimeCategory = "maintenance"
	DowntimeBuyIn            DowntimeCategory = "buy_in"
	DowntimeBreakShiftChange DowntimeCategory = "break_shift_change"
	DowntimeIdle             DowntimeCategory = "idle"
)

// DowntimeCategories lists every category in canonical order.
// The order is used as the tie-breaker wherever categories are ranked.
var DowntimeCategories = []DowntimeCategory{
	DowntimeSetup,
	DowntimeWaitingSetup,
	DowntimeNotFeeding,
	DowntimeAdjustment,
	DowntimeDressing,
	DowntimeTooling,
	DowntimeEngineering,
	DowntimeMaintenance,
	DowntimeBuyIn,
	DowntimeBreakShiftChange,
	DowntimeIdle,
}

var categoryTitles = map[DowntimeCategory]string{
	DowntimeSetup:            "Setup Time",
	DowntimeWaitingSetup:     "Waiting Setup Time",
	DowntimeNotFeeding:       "Not Feeding Time",
	DowntimeAdjustment:       "Adjustment Time",
	DowntimeDressing:         "Dressing Time",
	DowntimeTooling:          "Tooling Time",
	DowntimeEngineering:      "Engineering Time",
	DowntimeMaintenance:      "Maintenance Time",
	DowntimeBuyIn:            "Buy In Time",
	DowntimeBreakShiftChange: "Break Shift Change Time",
	DowntimeIdle:             "Idle Time",
}

// Key returns the column-style name, e.g. "setup_time"
func (c DowntimeCategory) Key() string {
	return string(c) + "_time"
}

// Title returns the display name, e.g. "Setup Time"
func (c DowntimeCategory) Title() string {
	if t, ok := categoryTitles[c]; ok {
		return t
	}
	return string(c)
}

// OperationRecord is one machine job-segment from the production log
type OperationRecord struct {
	ID           int64      `json:"id" db:"id"`
	MachineID    string     `json:"machine" db:"machine" validate:"required"`
	JobNumber    string     `json:"job_number" db:"job_number" validate:"required"`
	PartNumber   string     `json:"part_number" db:"part_number" validate:"required"`
	EmpID        string     `json:"emp_id" db:"emp_id" validate:"required"`
	OperatorName string     `json:"operator_name" db:"operator_name"`
	State        string     `json:"state" db:"state"`
	OpNumber     int        `json:"op_number" db:"op_number"`
	StartTime    time.Time  `json:"start_time" db:"start_time" validate:"required"`
	EndTime      *time.Time `json:"end_time,omitempty" db:"end_time"`

	PartsProduced int64 `json:"parts_produced" db:"parts_produced" validate:"gte=0"`
	JobDuration   int64 `json:"job_duration" db:"job_duration" validate:"gte=0"`
	RunningTime   int64 `json:"running_time" db:"running_time" validate:"gte=0"`

	SetupTime            int64 `json:"setup_time" db:"setup_time" validate:"gte=0"`
	WaitingSetupTime     int64 `json:"waiting_setup_time" db:"waiting_setup_time" validate:"gte=0"`
	NotFeedingTime       int64 `json:"not_feeding_time" db:"not_feeding_time" validate:"gte=0"`
	AdjustmentTime       int64 `json:"adjustment_time" db:"adjustment_time" validate:"gte=0"`
	DressingTime         int64 `json:"dressing_time" db:"dressing_time" validate:"gte=0"`
	ToolingTime          int64 `json:"tooling_time" db:"tooling_time" validate:"gte=0"`
	EngineeringTime      int64 `json:"engineering_time" db:"engineering_time" validate:"gte=0"`
	MaintenanceTime      int64 `json:"maintenance_time" db:"maintenance_time" validate:"gte=0"`
	BuyInTime            int64 `json:"buy_in_time" db:"buy_in_time" validate:"gte=0"`
	BreakShiftChangeTime int64 `json:"break_shift_change_time" db:"break_shift_change_time" validate:"gte=0"`
	IdleTime             int64 `json:"idle_time" db:"idle_time" validate:"gte=0"`
}

// Downtime returns the seconds recorded against a single category
func (r *OperationRecord) Downtime(c DowntimeCategory) int64 {
	switch c {
	case DowntimeSetup:
		return r.SetupTime
	case DowntimeWaitingSetup:
		return r.WaitingSetupTime
	case DowntimeNotFeeding:
		return r.NotFeedingTime
	case DowntimeAdjustment:
		return r.AdjustmentTime
	case DowntimeDressing:
		return r.DressingTime
	case DowntimeTooling:
		return r.ToolingTime
	case DowntimeEngineering:
		return r.EngineeringTime
	case DowntimeMaintenance:
		return r.MaintenanceTime
	case DowntimeBuyIn:
		return r.BuyInTime
	case DowntimeBreakShiftChange:
		return r.BreakShiftChangeTime
	case DowntimeIdle:
		return r.IdleTime
	}
	return 0
}

// TotalDowntime is the sum of all eleven categories
func (r *OperationRecord) TotalDowntime() int64 {
	var total int64
	for _, c := range DowntimeCategories {
		total += r.Downtime(c)
	}
	return total
}

// Efficiency is running / (running + downtime), 0 when there is no time at all
func (r *OperationRecord) Efficiency() float64 {
	if r.RunningTime <= 0 {
		return 0
	}
	total := r.RunningTime + r.TotalDowntime()
	if total == 0 {
		return 0
	}
	return float64(r.RunningTime) / float64(total)
}

// Breakdown returns downtime keyed by column name
func (r *OperationRecord) Breakdown() map[string]int64 {
	out := make(map[string]int64, len(DowntimeCategories))
	for _, c := range DowntimeCategories {
		out[c.Key()] = r.Downtime(c)
	}
	return out
}

// SkillLevel is an operator skill tier
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
	SkillExpert       SkillLevel = "EXPERT"
)

// JobStatus is the lifecycle state of a job
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobCancelled  JobStatus = "CANCELLED"
)

// JobPriority is the scheduling priority of a job
type JobPriority string

const (
	PriorityLow    JobPriority = "LOW"
	PriorityNormal JobPriority = "NORMAL"
	PriorityHigh   JobPriority = "HIGH"
	PriorityUrgent JobPriority = "URGENT"
)

// Machine is a production machine
type Machine struct {
	MachineID    string    `json:"machine_id" db:"machine_id"`
	Name         string    `json:"machine_name" db:"machine_name"`
	Type         string    `json:"machine_type" db:"machine_type"`
	Manufacturer string    `json:"manufacturer,omitempty" db:"manufacturer"`
	Model        string    `json:"model,omitempty" db:"model"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Operator is a machine operator
type Operator struct {
	EmpID           string     `json:"emp_id" db:"emp_id"`
	Name            string     `json:"operator_name" db:"operator_name"`
	SkillLevel      SkillLevel `json:"skill_level,omitempty" db:"skill_level"`
	Department      string     `json:"department,omitempty" db:"department"`
	ShiftPreference string     `json:"shift_preference,omitempty" db:"shift_preference"`
	HourlyRate      float64    `json:"hourly_rate,omitempty" db:"hourly_rate"`
	Status          string     `json:"status" db:"status"`
}

// Job is a customer manufacturing order
type Job struct {
	JobNumber         string      `json:"job_number" db:"job_number"`
	Name              string      `json:"job_name" db:"job_name"`
	CustomerID        string      `json:"customer_id,omitempty" db:"customer_id"`
	CustomerName      string      `json:"customer_name,omitempty" db:"customer_name"`
	Priority          JobPriority `json:"priority" db:"priority"`
	EstimatedHours    float64     `json:"estimated_hours,omitempty" db:"estimated_hours"`
	ActualHours       float64     `json:"actual_hours,omitempty" db:"actual_hours"`
	QuantityOrdered   int64       `json:"quantity_ordered" db:"quantity_ordered"`
	QuantityCompleted int64       `json:"quantity_completed" db:"quantity_completed"`
	DueDate           *time.Time  `json:"due_date,omitempty" db:"due_date"`
	StartDate         *time.Time  `json:"start_date,omitempty" db:"start_date"`
	CompletionDate    *time.Time  `json:"completion_date,omitempty" db:"completion_date"`
	Status            JobStatus   `json:"job_status" db:"job_status"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// CompletionPercentage is completed / ordered × 100
func (j *Job) CompletionPercentage() float64 {
	if j.QuantityOrdered <= 0 {
		return 0
	}
	return float64(j.QuantityCompleted) / float64(j.QuantityOrdered) * 100
}

// Part is a manufactured part definition
type Part struct {
	PartNumber        string          `json:"part_number" db:"part_number"`
	Name              string          `json:"part_name" db:"part_name"`
	MaterialType      string          `json:"material_type,omitempty" db:"material_type"`
	MaterialHardness  string          `json:"material_hardness,omitempty" db:"material_hardness"`
	ToleranceClass    string          `json:"tolerance_class,omitempty" db:"tolerance_class"`
	StandardCycleTime int64           `json:"standard_cycle_time,omitempty" db:"standard_cycle_time"`
	CostPerUnit       decimal.Decimal `json:"cost_per_unit" db:"cost_per_unit"`

	// Physical attributes, nil when not recorded. Dimensions are in mm.
	Weight *float64 `json:"weight,omitempty" db:"weight"`
	Length *float64 `json:"dimensions_length,omitempty" db:"dimensions_length"`
	Width  *float64 `json:"dimensions_width,omitempty" db:"dimensions_width"`
	Height *float64 `json:"dimensions_height,omitempty" db:"dimensions_height"`
}

// Dimensions returns length, width and height when all three are recorded
func (p *Part) Dimensions() (l, w, h float64, ok bool) {
	if p.Length == nil || p.Width == nil || p.Height == nil {
		return 0, 0, 0, false
	}
	return *p.Length, *p.Width, *p.Height, true
}

// Granularity is a trend bucketing period
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// DateRange bounds a query on record start time. Both ends are inclusive.
type DateRange struct {
	Start *time.Time `json:"start_date,omitempty"`
	End   *time.Time `json:"end_date,omitempty"`
}

// NewDateRange builds a fully bounded range
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: &start, End: &end}
}

// Bounded reports whether both ends are set
func (d DateRange) Bounded() bool {
	return d.Start != nil && d.End != nil
}

// IsZero reports whether neither end is set
func (d DateRange) IsZero() bool {
	return d.Start == nil && d.End == nil
}

// Contains reports whether t falls inside the range
func (d DateRange) Contains(t time.Time) bool {
	if d.Start != nil && t.Before(*d.Start) {
		return false
	}
	if d.End != nil && t.After(*d.End) {
		return false
	}
	return true
}

// Seconds returns the window length, 0 unless both ends are set
func (d DateRange) Seconds() float64 {
	if !d.Bounded() {
		return 0
	}
	return d.End.Sub(*d.Start).Seconds()
}

// Validate rejects a range whose start is after its end
func (d DateRange) Validate() error {
	if d.Bounded() && d.Start.After(*d.End) {
		return &ValidationError{Field: "start_date", Message: "start date must be before end date"}
	}
	return nil
}
