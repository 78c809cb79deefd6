package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/savegress/opsight/pkg/models"
)

// Fixture is a JSON snapshot of master data and records used to seed a
// memory store.
type Fixture struct {
	Machines  []models.Machine         `json:"machines"`
	Operators []models.Operator        `json:"operators"`
	Jobs      []models.Job             `json:"jobs"`
	Parts     []models.Part            `json:"parts"`
	Records   []models.OperationRecord `json:"records"`
}

// LoadFixture reads a fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return &f, nil
}

// Seed loads a fixture into the store
func (m *Memory) Seed(ctx context.Context, f *Fixture) error {
	for _, v := range f.Machines {
		m.PutMachine(v)
	}
	for _, v := range f.Operators {
		m.PutOperator(v)
	}
	for _, v := range f.Jobs {
		m.PutJob(v)
	}
	for _, v := range f.Parts {
		m.PutPart(v)
	}
	return m.InsertRecords(ctx, f.Records)
}
