// Package publish emits run-completion events so downstream consumers can
// react to finished ingestion runs and retention sweeps.
package publish

import (
	"context"
	"time"
)

// RunEvent summarizes one completed ledger entry.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Status     string    `json:"status"`
	NewCount   int       `json:"new_count"`
	DupCount   int       `json:"duplicate_count"`
	DelCount   int       `json:"deleted_count"`
	ErrCount   int       `json:"error_count"`
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher pushes run events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, event RunEvent) error
	Close() error
}

// NoOp is a Publisher that discards events. It is the default provider so
// tests and single-node deployments carry no messaging dependency.
type NoOp struct{}

// Publish does nothing and returns no error.
func (NoOp) Publish(_ context.Context, _ RunEvent) error { return nil }

// Close does nothing and returns no error.
func (NoOp) Close() error { return nil }
