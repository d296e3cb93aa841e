package models

import "time"

// Outcome is the result of a single upsert, so callers and tests can assert
// exactly what happened without re-querying storage.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// RunState is the lifecycle state of one entity type within a scrape run.
type RunState string

const (
	StatePending            RunState = "pending"
	StateRunning            RunState = "running"
	StateSucceeded          RunState = "succeeded"
	StateFailed             RunState = "failed"
	StatePartiallySucceeded RunState = "partially_succeeded"
	StateBlocked            RunState = "blocked"
)

// TypeReport aggregates the outcome of one entity type in a run.
// Skipped counts rows dropped for row-level mapping, validation or
// dependency failures; SkippedCauses holds a representative sample.
type TypeReport struct {
	Entity        EntityType `json:"entity"`
	State         RunState   `json:"state"`
	Inserted      int        `json:"inserted"`
	Updated       int        `json:"updated"`
	Unchanged     int        `json:"unchanged"`
	Skipped       int        `json:"skipped"`
	Error         string     `json:"error,omitempty"`
	SkippedCauses []string   `json:"skipped_causes,omitempty"`
}

// RunReport is the externally observable result of a full scrape run.
type RunReport struct {
	RunID      string                     `json:"run_id"`
	State      RunState                   `json:"state"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	Types      map[EntityType]*TypeReport `json:"types"`
}

// NewRunReport initializes a report with every requested type Pending.
func NewRunReport(runID string, types []EntityType) *RunReport {
	r := &RunReport{
		RunID:     runID,
		State:     StateRunning,
		StartedAt: time.Now().UTC(),
		Types:     make(map[EntityType]*TypeReport, len(types)),
	}
	for _, t := range types {
		r.Types[t] = &TypeReport{Entity: t, State: StatePending}
	}
	return r
}

// Clone returns a deep copy, so a report mid-run can be handed to
// readers without sharing mutable state.
func (r *RunReport) Clone() *RunReport {
	out := *r
	out.Types = make(map[EntityType]*TypeReport, len(r.Types))
	for k, v := range r.Types {
		tr := *v
		tr.SkippedCauses = append([]string(nil), v.SkippedCauses...)
		out.Types[k] = &tr
	}
	return &out
}

// Succeeded reports whether every requested entity type completed with no
// failure (partial success counts as success with degradation).
func (r *RunReport) Succeeded() bool {
	for _, t := range r.Types {
		if t.State == StateFailed || t.State == StateBlocked {
			return false
		}
	}
	return true
}
