// Package store provides the record and master-data backends the analytics
// service reads from: an in-memory store, PostgreSQL and embedded SQLite.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/huandu/go-sqlbuilder"

	"github.com/savegress/opsight/pkg/models"
)

// RecordFilter scopes a record query. An empty Entity selects every record.
type RecordFilter struct {
	Entity models.EntityType
	ID     string
	Range  models.DateRange
}

// JobFilter scopes a job listing. Created bounds the job creation time.
type JobFilter struct {
	CustomerID string
	Created    models.DateRange
}

// RecordSource yields operation records ordered by start time, then id
type RecordSource interface {
	FetchRecords(ctx context.Context, f RecordFilter) ([]models.OperationRecord, error)
}

// RecordWriter appends operation records to the log
type RecordWriter interface {
	InsertRecords(ctx context.Context, records []models.OperationRecord) error
}

// MetadataSource looks up master data. Single-entity lookups return a
// *models.NotFoundError when the id is unknown.
type MetadataSource interface {
	Machine(ctx context.Context, id string) (*models.Machine, error)
	Operator(ctx context.Context, empID string) (*models.Operator, error)
	Job(ctx context.Context, jobNumber string) (*models.Job, error)
	Part(ctx context.Context, partNumber string) (*models.Part, error)
	ListMachines(ctx context.Context) ([]models.Machine, error)
	ListOperators(ctx context.Context) ([]models.Operator, error)
	ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error)
	ListParts(ctx context.Context) ([]models.Part, error)
}

// Store is everything a backend provides
type Store interface {
	RecordSource
	RecordWriter
	MetadataSource
	Close() error
}

const recordsTable = "job_logs"

var recordColumns = []string{
	"id", "machine", "job_number", "part_number", "emp_id", "operator_name", "state", "op_number",
	"start_time", "end_time", "parts_produced", "job_duration", "running_time",
	"setup_time", "waiting_setup_time", "not_feeding_time", "adjustment_time", "dressing_time",
	"tooling_time", "engineering_time", "maintenance_time", "buy_in_time", "break_shift_change_time",
	"idle_time",
}

var (
	machineColumns  = []string{"machine_id", "machine_name", "machine_type", "manufacturer", "model", "status", "created_at"}
	operatorColumns = []string{"emp_id", "operator_name", "skill_level", "department", "shift_preference", "hourly_rate", "status"}
	jobColumns      = []string{
		"job_number", "job_name", "customer_id", "customer_name", "priority", "estimated_hours", "actual_hours",
		"quantity_ordered", "quantity_completed", "due_date", "start_date", "completion_date", "job_status", "created_at",
	}
	partColumns = []string{
		"part_number", "part_name", "material_type", "material_hardness", "tolerance_class",
		"standard_cycle_time", "cost_per_unit",
		"weight", "dimensions_length", "dimensions_width", "dimensions_height",
	}
)

// entityColumn maps an entity type to the job_logs column holding its id
func entityColumn(e models.EntityType) (string, error) {
	switch e {
	case models.EntityMachine:
		return "machine", nil
	case models.EntityOperator:
		return "emp_id", nil
	case models.EntityJob:
		return "job_number", nil
	case models.EntityPart:
		return "part_number", nil
	}
	return "", &models.ConfigurationError{Field: "entity_type", Value: string(e)}
}

func utc(t time.Time) time.Time { return t.UTC() }

func rangeConds(sb *sqlbuilder.SelectBuilder, column string, r models.DateRange) []string {
	var conds []string
	if r.Start != nil {
		conds = append(conds, sb.GreaterEqualThan(column, utc(*r.Start)))
	}
	if r.End != nil {
		conds = append(conds, sb.LessEqualThan(column, utc(*r.End)))
	}
	return conds
}

// recordQuery builds the filtered job_logs select for a dialect
func recordQuery(flavor sqlbuilder.Flavor, f RecordFilter) (string, []interface{}, error) {
	sb := flavor.NewSelectBuilder()
	sb.Select(recordColumns...).From(recordsTable)

	var conds []string
	if f.Entity != "" {
		col, err := entityColumn(f.Entity)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, sb.Equal(col, f.ID))
	}
	conds = append(conds, rangeConds(sb, "start_time", f.Range)...)
	if len(conds) > 0 {
		sb.Where(conds...)
	}
	sb.OrderBy("start_time", "id")

	query, args := sb.Build()
	return query, args, nil
}

// insertQuery builds one multi-row insert. Ids are assigned by the database.
func insertQuery(flavor sqlbuilder.Flavor, records []models.OperationRecord) (string, []interface{}) {
	ib := flavor.NewInsertBuilder()
	ib.InsertInto(recordsTable)
	ib.Cols(recordColumns[1:]...)
	for i := range records {
		r := &records[i]
		var end interface{}
		if r.EndTime != nil {
			end = utc(*r.EndTime)
		}
		ib.Values(
			r.MachineID, r.JobNumber, r.PartNumber, r.EmpID, r.OperatorName, r.State, r.OpNumber,
			utc(r.StartTime), end, r.PartsProduced, r.JobDuration, r.RunningTime,
			r.SetupTime, r.WaitingSetupTime, r.NotFeedingTime, r.AdjustmentTime, r.DressingTime,
			r.ToolingTime, r.EngineeringTime, r.MaintenanceTime, r.BuyInTime, r.BreakShiftChangeTime,
			r.IdleTime,
		)
	}
	return ib.Build()
}

func lookupQuery(flavor sqlbuilder.Flavor, table, key, id string, cols []string) (string, []interface{}) {
	sb := flavor.NewSelectBuilder()
	sb.Select(cols...).From(table).Where(sb.Equal(key, id))
	return sb.Build()
}

func listQuery(flavor sqlbuilder.Flavor, table, key string, cols []string) (string, []interface{}) {
	sb := flavor.NewSelectBuilder()
	sb.Select(cols...).From(table).OrderBy(key)
	return sb.Build()
}

func jobsQuery(flavor sqlbuilder.Flavor, f JobFilter) (string, []interface{}) {
	sb := flavor.NewSelectBuilder()
	sb.Select(jobColumns...).From("jobs")

	var conds []string
	if f.CustomerID != "" {
		conds = append(conds, sb.Equal("customer_id", f.CustomerID))
	}
	conds = append(conds, rangeConds(sb, "created_at", f.Created)...)
	if len(conds) > 0 {
		sb.Where(conds...)
	}
	sb.OrderBy("job_number")
	return sb.Build()
}

func notFound(e models.EntityType, id string) error {
	return &models.NotFoundError{Entity: e, ID: id}
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
