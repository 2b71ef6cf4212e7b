package domain

import (
	"time"
)

// RunStatus represents the status of an analysis run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunReport is everything one analysis run produced.
type RunReport struct {
	ID           string              `json:"id" validate:"required,uuid"`
	Status       RunStatus           `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at,omitempty"`
	Label        string              `json:"label"`
	Task         Task                `json:"task"`
	Candidates   []string            `json:"candidates"`
	Folds        int                 `json:"folds"`
	Rows         int                 `json:"rows"`
	Models       []ModelReport       `json:"models"`
	Verification VerificationSummary `json:"verification"`
	Exclusions   []Exclusion         `json:"exclusions,omitempty"`
	Artifacts    []string            `json:"artifacts,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// ModelReport is the per-family part of a run report.
type ModelReport struct {
	Family     ModelFamily      `json:"family"`
	Selection  SelectionResult  `json:"selection"`
	Evaluation EvaluationResult `json:"evaluation"`
	Metrics    map[string]Score `json:"metrics"`
}

// VerificationSummary counts verifier findings for the run report.
type VerificationSummary struct {
	Gaps     int `json:"gaps"`
	Findings int `json:"findings"`
}

// RunSummary is the listing entry for a stored run.
type RunSummary struct {
	ID         string    `json:"id"`
	Status     RunStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Label      string    `json:"label"`
	Rows       int       `json:"rows"`
}

// Summary returns the listing entry for the report.
func (r *RunReport) Summary() RunSummary {
	return RunSummary{
		ID:         r.ID,
		Status:     r.Status,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Label:      r.Label,
		Rows:       r.Rows,
	}
}

// Model returns the report for one family.
func (r *RunReport) Model(family ModelFamily) (ModelReport, bool) {
	for _, m := range r.Models {
		if m.Family == family {
			return m, true
		}
	}
	return ModelReport{}, false
}
