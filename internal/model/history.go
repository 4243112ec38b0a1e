package model

import (
	"encoding/json"
	"time"
)

// HistoryStatus is the outcome recorded for a plan run.
type HistoryStatus string

const (
	StatusSuccess  HistoryStatus = "SUCCESS"
	StatusSkipped  HistoryStatus = "SKIPPED"
	StatusError    HistoryStatus = "ERROR"
	StatusReverted HistoryStatus = "REVERTED"
)

// HistoryLog is the append-only audit record written once per executor run.
// Only Status changes afterwards, and only to REVERTED.
type HistoryLog struct {
	ID            string        `db:"id" json:"id"`
	StoreID       string        `db:"store_id" json:"store_id"`
	Summary       string        `db:"summary" json:"summary"`
	PlanJSON      string        `db:"plan_json" json:"-"`
	AffectedCount int           `db:"affected_count" json:"affected_count"`
	Status        HistoryStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// Plan decodes the serialized plan stored with the log.
func (h *HistoryLog) Plan() (*Plan, error) {
	var p Plan
	if err := json.Unmarshal([]byte(h.PlanJSON), &p); err != nil {
		return nil, NewValidationError("plan_json", err.Error())
	}
	return &p, nil
}

// Preview is returned before a chat-origin plan is confirmed.
type Preview struct {
	Summary       string   `json:"summary"`
	AffectedCount int      `json:"affected_count"`
	Samples       []string `json:"samples"`
}

// ExecutionResult is the structured outcome of a plan run. Failures are
// reported here with Status ERROR and the message embedded in Summary.
type ExecutionResult struct {
	HistoryID     string        `json:"history_id,omitempty"`
	Summary       string        `json:"summary"`
	AffectedCount int           `json:"affected_count"`
	Status        HistoryStatus `json:"status"`
}

// ReversalResult describes a completed reversal. Approximate is set when the
// inverse does not restore the original values exactly (percentage changes).
type ReversalResult struct {
	HistoryID         string `json:"history_id"`
	ReversalHistoryID string `json:"reversal_history_id,omitempty"`
	Approximate       bool   `json:"approximate"`
	Summary           string `json:"summary"`
	AffectedCount     int    `json:"affected_count"`
}
