package store

import (
	"context"
	"sort"
	"sync"

	"github.com/savegress/opsight/pkg/models"
)

// Memory is an in-process store guarded by a RWMutex
type Memory struct {
	mu        sync.RWMutex
	records   []models.OperationRecord
	nextID    int64
	machines  map[string]models.Machine
	operators map[string]models.Operator
	jobs      map[string]models.Job
	parts     map[string]models.Part
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		nextID:    1,
		machines:  make(map[string]models.Machine),
		operators: make(map[string]models.Operator),
		jobs:      make(map[string]models.Job),
		parts:     make(map[string]models.Part),
	}
}

// PutMachine adds or replaces a machine
func (m *Memory) PutMachine(v models.Machine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.machines[v.MachineID] = v
}

// PutOperator adds or replaces an operator
func (m *Memory) PutOperator(v models.Operator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operators[v.EmpID] = v
}

// PutJob adds or replaces a job
func (m *Memory) PutJob(v models.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[v.JobNumber] = v
}

// PutPart adds or replaces a part
func (m *Memory) PutPart(v models.Part) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parts[v.PartNumber] = v
}

// InsertRecords appends records, assigning ids to those without one
func (m *Memory) InsertRecords(_ context.Context, records []models.OperationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if r.ID == 0 {
			r.ID = m.nextID
		}
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
		m.records = append(m.records, r)
	}
	return nil
}

func matches(r *models.OperationRecord, f RecordFilter) bool {
	switch f.Entity {
	case "":
	case models.EntityMachine:
		if r.MachineID != f.ID {
			return false
		}
	case models.EntityOperator:
		if r.EmpID != f.ID {
			return false
		}
	case models.EntityJob:
		if r.JobNumber != f.ID {
			return false
		}
	case models.EntityPart:
		if r.PartNumber != f.ID {
			return false
		}
	}
	return f.Range.Contains(r.StartTime)
}

// FetchRecords returns copies of the matching records
func (m *Memory) FetchRecords(_ context.Context, f RecordFilter) ([]models.OperationRecord, error) {
	if f.Entity != "" {
		if _, err := entityColumn(f.Entity); err != nil {
			return nil, err
		}
	}

	m.mu.RLock()
	out := make([]models.OperationRecord, 0)
	for i := range m.records {
		if matches(&m.records[i], f) {
			out = append(out, m.records[i])
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Machine(_ context.Context, id string) (*models.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.machines[id]
	if !ok {
		return nil, notFound(models.EntityMachine, id)
	}
	return &v, nil
}

func (m *Memory) Operator(_ context.Context, empID string) (*models.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.operators[empID]
	if !ok {
		return nil, notFound(models.EntityOperator, empID)
	}
	return &v, nil
}

func (m *Memory) Job(_ context.Context, jobNumber string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.jobs[jobNumber]
	if !ok {
		return nil, notFound(models.EntityJob, jobNumber)
	}
	return &v, nil
}

func (m *Memory) Part(_ context.Context, partNumber string) (*models.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.parts[partNumber]
	if !ok {
		return nil, notFound(models.EntityPart, partNumber)
	}
	return &v, nil
}

func (m *Memory) ListMachines(_ context.Context) ([]models.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Machine, 0, len(m.machines))
	for _, v := range m.machines {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MachineID < out[j].MachineID })
	return out, nil
}

func (m *Memory) ListOperators(_ context.Context) ([]models.Operator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Operator, 0, len(m.operators))
	for _, v := range m.operators {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmpID < out[j].EmpID })
	return out, nil
}

func (m *Memory) ListJobs(_ context.Context, f JobFilter) ([]models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Job, 0)
	for _, v := range m.jobs {
		if f.CustomerID != "" && v.CustomerID != f.CustomerID {
			continue
		}
		if !f.Created.Contains(v.CreatedAt) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobNumber < out[j].JobNumber })
	return out, nil
}

func (m *Memory) ListParts(_ context.Context) ([]models.Part, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Part, 0, len(m.parts))
	for _, v := range m.parts {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out, nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }
