// Package runs persists audit runs: run rows, received payload rows and the
// score row of every report recomputation.
package runs

import (
	"context"
	"errors"
	"time"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// ErrNotFound is returned when a run (or its score) does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one audit run of a site.
type Run struct {
	ID        string        `json:"id"`
	SiteURL   string        `json:"site_url"`
	State     scoring.State `json:"state"`
	Payloads  []Payload     `json:"payloads,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Payload records one received payload blob.
type Payload struct {
	Kind       audit.PayloadKind `json:"kind"`
	StorageRef string            `json:"storage_ref"`
	SizeBytes  int               `json:"size_bytes"`
	ReceivedAt time.Time         `json:"received_at"`
}

// Score is the summary row of one report recomputation. The full report
// lives in blob storage under StorageRef.
type Score struct {
	ID          string                 `json:"id"`
	RunID       string                 `json:"run_id"`
	State       scoring.State          `json:"state"`
	Composite   *float64               `json:"composite,omitempty"`
	Grade       string                 `json:"grade,omitempty"`
	Scores      scoring.CategoryScores `json:"scores"`
	DesignScore *float64               `json:"design_score,omitempty"`
	StorageRef  string                 `json:"storage_ref"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Progress returns the payload set received for the run.
func (r *Run) Progress() scoring.Progress {
	kinds := make([]audit.PayloadKind, 0, len(r.Payloads))
	for _, p := range r.Payloads {
		kinds = append(kinds, p.Kind)
	}
	return scoring.ProgressFrom(kinds...)
}

// Store is the persistence interface for audit runs.
type Store interface {
	// CreateRun inserts a new run in the empty state.
	CreateRun(ctx context.Context, siteURL string) (*Run, error)
	// GetRun returns the run with its received payloads.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// RecordPayload upserts the payload row; a resubmitted kind replaces the
	// previous row.
	RecordPayload(ctx context.Context, runID string, p Payload) error
	// SetState updates the run's readiness state.
	SetState(ctx context.Context, runID string, state scoring.State) error
	// InsertScore appends a score row. Rows are never updated.
	InsertScore(ctx context.Context, s *Score) error
	// LatestScore returns the most recent score row of the run.
	LatestScore(ctx context.Context, runID string) (*Score, error)
	// ListScores returns every score row of the run, newest first.
	ListScores(ctx context.Context, runID string) ([]Score, error)
}

// ScoreFromReport builds the score row for a report.
func ScoreFromReport(id, runID, storageRef string, report *scoring.Report) *Score {
	scores := make(scoring.CategoryScores, len(report.Scores))
	for c, v := range report.Scores {
		scores[c] = v
	}
	return &Score{
		ID:          id,
		RunID:       runID,
		State:       report.State,
		Composite:   report.Composite,
		Grade:       report.Grade,
		Scores:      scores,
		DesignScore: report.DesignScore,
		StorageRef:  storageRef,
	}
}
