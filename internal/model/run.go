package model

import (
	"time"

	"github.com/google/uuid"
)

// RunKind names the trigger that started a simulation run.
type RunKind string

const (
	RunKindCustomers    RunKind = "customers"
	RunKindReaccounting RunKind = "reaccounting"
)

type Run struct {
	ID        uuid.UUID `json:"id"`
	Kind      RunKind   `json:"kind"`
	StartedAt time.Time `json:"started_at"`
}
