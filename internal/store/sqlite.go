package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/savegress/opsight/pkg/models"
)

// SQLite is an embedded single-file store
type SQLite struct {
	db *sqlx.DB
}

var _ Store = (*SQLite)(nil)

// sqliteDSN enables WAL and a busy timeout so readers do not block the ingest writer
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}

// NewSQLite opens (creating if needed) the database at path
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One writer at a time
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// DB exposes the handle for migrations
func (s *SQLite) DB() *sql.DB {
	return s.db.DB
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) FetchRecords(ctx context.Context, f RecordFilter) ([]models.OperationRecord, error) {
	query, args, err := recordQuery(sqlbuilder.SQLite, f)
	if err != nil {
		return nil, err
	}
	records := []models.OperationRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, wrap("fetch records", err)
	}
	return records, nil
}

func (s *SQLite) InsertRecords(ctx context.Context, records []models.OperationRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("begin insert", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		query, args := insertQuery(sqlbuilder.SQLite, records[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return wrap("insert records", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) get(ctx context.Context, dest interface{}, entity models.EntityType, table, key, id string, cols []string) error {
	query, args := lookupQuery(sqlbuilder.SQLite, table, key, id, cols)
	err := s.db.GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, id)
	}
	if err != nil {
		return wrap("get "+string(entity), err)
	}
	return nil
}

func (s *SQLite) Machine(ctx context.Context, id string) (*models.Machine, error) {
	var v models.Machine
	if err := s.get(ctx, &v, models.EntityMachine, "machines", "machine_id", id, machineColumns); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLite) Operator(ctx context.Context, empID string) (*models.Operator, error) {
	var v models.Operator
	if err := s.get(ctx, &v, models.EntityOperator, "operators", "emp_id", empID, operatorColumns); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLite) Job(ctx context.Context, jobNumber string) (*models.Job, error) {
	var v models.Job
	if err := s.get(ctx, &v, models.EntityJob, "jobs", "job_number", jobNumber, jobColumns); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLite) Part(ctx context.Context, partNumber string) (*models.Part, error) {
	var v models.Part
	if err := s.get(ctx, &v, models.EntityPart, "parts", "part_number", partNumber, partColumns); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *SQLite) ListMachines(ctx context.Context) ([]models.Machine, error) {
	out := []models.Machine{}
	query, args := listQuery(sqlbuilder.SQLite, "machines", "machine_id", machineColumns)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("list machines", err)
	}
	return out, nil
}

func (s *SQLite) ListOperators(ctx context.Context) ([]models.Operator, error) {
	out := []models.Operator{}
	query, args := listQuery(sqlbuilder.SQLite, "operators", "emp_id", operatorColumns)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("list operators", err)
	}
	return out, nil
}

func (s *SQLite) ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error) {
	out := []models.Job{}
	query, args := jobsQuery(sqlbuilder.SQLite, f)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("list jobs", err)
	}
	return out, nil
}

func (s *SQLite) ListParts(ctx context.Context) ([]models.Part, error) {
	out := []models.Part{}
	query, args := listQuery(sqlbuilder.SQLite, "parts", "part_number", partColumns)
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, wrap("list parts", err)
	}
	return out, nil
}
