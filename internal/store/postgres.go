package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/savegress/opsight/pkg/models"
)

// insertBatch bounds the rows per insert statement
const insertBatch = 500

// PostgresConfig holds pool settings
type PostgresConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// Postgres reads and writes the production log in PostgreSQL
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres opens a pool and verifies the connection
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the pool
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Pool exposes the underlying pool for health checks
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *Postgres) FetchRecords(ctx context.Context, f RecordFilter) ([]models.OperationRecord, error) {
	query, args, err := recordQuery(sqlbuilder.PostgreSQL, f)
	if err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("fetch records", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.OperationRecord])
	if err != nil {
		return nil, wrap("scan records", err)
	}
	return records, nil
}

func (p *Postgres) InsertRecords(ctx context.Context, records []models.OperationRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return wrap("begin insert", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		query, args := insertQuery(sqlbuilder.PostgreSQL, records[start:end])
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return wrap("insert records", err)
		}
	}
	return tx.Commit(ctx)
}

// getOne runs a single-row lookup and maps no rows to NotFoundError
func getOne[T any](ctx context.Context, p *Postgres, entity models.EntityType, table, key, id string, cols []string) (*T, error) {
	query, args := lookupQuery(sqlbuilder.PostgreSQL, table, key, id, cols)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("get "+string(entity), err)
	}
	v, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(entity, id)
	}
	if err != nil {
		return nil, wrap("get "+string(entity), err)
	}
	return v, nil
}

func list[T any](ctx context.Context, p *Postgres, query string, args []interface{}) ([]T, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func (p *Postgres) Machine(ctx context.Context, id string) (*models.Machine, error) {
	return getOne[models.Machine](ctx, p, models.EntityMachine, "machines", "machine_id", id, machineColumns)
}

func (p *Postgres) Operator(ctx context.Context, empID string) (*models.Operator, error) {
	return getOne[models.Operator](ctx, p, models.EntityOperator, "operators", "emp_id", empID, operatorColumns)
}

func (p *Postgres) Job(ctx context.Context, jobNumber string) (*models.Job, error) {
	return getOne[models.Job](ctx, p, models.EntityJob, "jobs", "job_number", jobNumber, jobColumns)
}

func (p *Postgres) Part(ctx context.Context, partNumber string) (*models.Part, error) {
	return getOne[models.Part](ctx, p, models.EntityPart, "parts", "part_number", partNumber, partColumns)
}

func (p *Postgres) ListMachines(ctx context.Context) ([]models.Machine, error) {
	query, args := listQuery(sqlbuilder.PostgreSQL, "machines", "machine_id", machineColumns)
	out, err := list[models.Machine](ctx, p, query, args)
	if err != nil {
		return nil, wrap("list machines", err)
	}
	return out, nil
}

func (p *Postgres) ListOperators(ctx context.Context) ([]models.Operator, error) {
	query, args := listQuery(sqlbuilder.PostgreSQL, "operators", "emp_id", operatorColumns)
	out, err := list[models.Operator](ctx, p, query, args)
	if err != nil {
		return nil, wrap("list operators", err)
	}
	return out, nil
}

func (p *Postgres) ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error) {
	query, args := jobsQuery(sqlbuilder.PostgreSQL, f)
	out, err := list[models.Job](ctx, p, query, args)
	if err != nil {
		return nil, wrap("list jobs", err)
	}
	return out, nil
}

func (p *Postgres) ListParts(ctx context.Context) ([]models.Part, error) {
	query, args := listQuery(sqlbuilder.PostgreSQL, "parts", "part_number", partColumns)
	out, err := list[models.Part](ctx, p, query, args)
	if err != nil {
		return nil, wrap("list parts", err)
	}
	return out, nil
}
