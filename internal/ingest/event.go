// Package ingest consumes job-log events from Kafka and appends them to the
// record store.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/savegress/opsight/pkg/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// JobLogEvent is one machine job segment as published by the shop floor
// collectors. Durations are in seconds.
type JobLogEvent struct {
	MachineID    string     `json:"machine" validate:"required"`
	JobNumber    string     `json:"job_number" validate:"required"`
	PartNumber   string     `json:"part_number" validate:"required"`
	EmpID        string     `json:"emp_id" validate:"required"`
	OperatorName string     `json:"operator_name"`
	State        string     `json:"state"`
	OpNumber     int        `json:"op_number" validate:"gte=0"`
	StartTime    time.Time  `json:"start_time" validate:"required"`
	EndTime      *time.Time `json:"end_time,omitempty" validate:"omitempty,gtefield=StartTime"`

	PartsProduced int64 `json:"parts_produced" validate:"gte=0"`
	JobDuration   int64 `json:"job_duration" validate:"gte=0"`
	RunningTime   int64 `json:"running_time" validate:"gte=0"`

	SetupTime            int64 `json:"setup_time" validate:"gte=0"`
	WaitingSetupTime     int64 `json:"waiting_setup_time" validate:"gte=0"`
	NotFeedingTime       int64 `json:"not_feeding_time" validate:"gte=0"`
	AdjustmentTime       int64 `json:"adjustment_time" validate:"gte=0"`
	DressingTime         int64 `json:"dressing_time" validate:"gte=0"`
	ToolingTime          int64 `json:"tooling_time" validate:"gte=0"`
	EngineeringTime      int64 `json:"engineering_time" validate:"gte=0"`
	MaintenanceTime      int64 `json:"maintenance_time" validate:"gte=0"`
	BuyInTime            int64 `json:"buy_in_time" validate:"gte=0"`
	BreakShiftChangeTime int64 `json:"break_shift_change_time" validate:"gte=0"`
	IdleTime             int64 `json:"idle_time" validate:"gte=0"`
}

// Decode parses and validates a message payload. Every failure is a
// *models.ValidationError.
func Decode(payload []byte) (*JobLogEvent, error) {
	var ev JobLogEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, &models.ValidationError{Message: fmt.Sprintf("malformed event: %v", err)}
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Validate checks required ids, non-negative durations and end >= start
func (e *JobLogEvent) Validate() error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	return &models.ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must not be negative"
	case "gtefield":
		return "must not be before start_time"
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

// Record converts the event into a log record
func (e *JobLogEvent) Record() models.OperationRecord {
	return models.OperationRecord{
		MachineID:            e.MachineID,
		JobNumber:            e.JobNumber,
		PartNumber:           e.PartNumber,
		EmpID:                e.EmpID,
		OperatorName:         e.OperatorName,
		State:                e.State,
		OpNumber:             e.OpNumber,
		StartTime:            e.StartTime,
		EndTime:              e.EndTime,
		PartsProduced:        e.PartsProduced,
		JobDuration:          e.JobDuration,
		RunningTime:          e.RunningTime,
		SetupTime:            e.SetupTime,
		WaitingSetupTime:     e.WaitingSetupTime,
		NotFeedingTime:       e.NotFeedingTime,
		AdjustmentTime:       e.AdjustmentTime,
		DressingTime:         e.DressingTime,
		ToolingTime:          e.ToolingTime,
		EngineeringTime:      e.EngineeringTime,
		MaintenanceTime:      e.MaintenanceTime,
		BuyInTime:            e.BuyInTime,
		BreakShiftChangeTime: e.BreakShiftChangeTime,
		IdleTime:             e.IdleTime,
	}
}
