package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TableTasks  = "tasks"
	TableAgents = "agents"
)

var (
	ErrTransport = errors.New("store transport error")
	ErrStore     = errors.New("store rejected request")
	ErrNotFound  = errors.New("not found")
)

// StoreError is returned when the remote store answers with a non-success status.
type StoreError struct {
	Op     string
	Table  string
	Status int
	Body   string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: store returned %d: %s", e.Op, e.Table, e.Status, e.Body)
}

func (e *StoreError) Unwrap() error { return ErrStore }

// Record is one row of a remote table.
type Record map[string]any

type ListOptions struct {
	OrderBy string
	Desc    bool
	// Fresh skips any cached copy and reads the table from the store itself.
	Fresh bool
}

// Store is the generic record-table contract the board talks to.
type Store interface {
	List(ctx context.Context, table string, opts ListOptions) ([]Record, error)
	Create(ctx context.Context, table string, rec Record) (Record, error)
	Update(ctx context.Context, table string, id int64, patch Record) error
	Delete(ctx context.Context, table string, id int64) error
}

// Decode converts a record (or slice of records) into a typed value.
func Decode(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// decodeRecords parses a JSON array of rows keeping numbers as json.Number,
// so bigint ids survive without a trip through float64.
func decodeRecords(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rows []Record
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
