package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// PostgresStore implements Store backed by Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateRun inserts a new run in the empty state.
func (s *PostgresStore) CreateRun(ctx context.Context, siteURL string) (*Run, error) {
	r := &Run{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO audit_runs (id, site_url, state)
		 VALUES ($1, $2, $3)
		 RETURNING id, site_url, state, created_at, updated_at`,
		uuid.NewString(), siteURL, scoring.StateEmpty,
	).Scan(&r.ID, &r.SiteURL, &r.State, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// GetRun returns the run with its received payloads.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	r := &Run{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, site_url, state, created_at, updated_at
		 FROM audit_runs WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.SiteURL, &r.State, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, storage_ref, size_bytes, received_at
		 FROM run_payloads WHERE run_id = $1 ORDER BY received_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list payloads of run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Payload
		if err := rows.Scan(&p.Kind, &p.StorageRef, &p.SizeBytes, &p.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan payload: %w", err)
		}
		r.Payloads = append(r.Payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payloads: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first, without payload rows.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_url, state, created_at, updated_at
		 FROM audit_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.SiteURL, &r.State, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordPayload upserts the payload row for (run, kind).
func (s *PostgresStore) RecordPayload(ctx context.Context, runID string, p Payload) error {
	if _, err := uuid.Parse(runID); err != nil {
		return ErrNotFound
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_payloads (run_id, kind, storage_ref, size_bytes)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, kind) DO UPDATE
		   SET storage_ref = EXCLUDED.storage_ref,
		       size_bytes = EXCLUDED.size_bytes,
		       received_at = now()`,
		runID, p.Kind, p.StorageRef, p.SizeBytes,
	)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("record %s payload for run %s: %w", p.Kind, runID, err)
	}
	return nil
}

// SetState updates the run's readiness state.
func (s *PostgresStore) SetState(ctx context.Context, runID string, state scoring.State) error {
	if _, err := uuid.Parse(runID); err != nil {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE audit_runs SET state = $1, updated_at = now() WHERE id = $2`,
		state, runID,
	)
	if err != nil {
		return fmt.Errorf("set state of run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertScore appends a score row.
func (s *PostgresStore) InsertScore(ctx context.Context, sc *Score) error {
	scoresJSON, err := json.Marshal(sc.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO run_scores (id, run_id, state, composite, grade, scores, design_score, storage_ref)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		sc.ID, sc.RunID, sc.State, sc.Composite, nilIfEmpty(sc.Grade), scoresJSON, sc.DesignScore, sc.StorageRef,
	).Scan(&sc.CreatedAt)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert score row: %w", err)
	}
	return nil
}

const scoreColumns = `id, run_id, state, composite, grade, scores, design_score, storage_ref, created_at`

// LatestScore returns the most recent score row of the run.
func (s *PostgresStore) LatestScore(ctx context.Context, runID string) (*Score, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreColumns+` FROM run_scores
		 WHERE run_id = $1 ORDER BY created_at DESC LIMIT 1`,
		runID,
	)
	sc, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest score of run %s: %w", runID, err)
	}
	return sc, nil
}

// ListScores returns every score row of the run, newest first.
func (s *PostgresStore) ListScores(ctx context.Context, runID string) ([]Score, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrNotFound
	}
	// An unknown run has no rows either; tell it apart from a run that has
	// not been scored yet.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM audit_runs WHERE id = $1)`, runID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check run %s: %w", runID, err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreColumns+` FROM run_scores
		 WHERE run_id = $1 ORDER BY created_at DESC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scores of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := []Score{}
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScore(row rowScanner) (*Score, error) {
	var (
		sc         Score
		grade      sql.NullString
		scoresJSON []byte
	)
	if err := row.Scan(&sc.ID, &sc.RunID, &sc.State, &sc.Composite, &grade, &scoresJSON, &sc.DesignScore, &sc.StorageRef, &sc.CreatedAt); err != nil {
		return nil, err
	}
	sc.Grade = grade.String
	if err := json.Unmarshal(scoresJSON, &sc.Scores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	return &sc, nil
}

// isForeignKeyViolation reports whether err is Postgres error 23503, which
// the payload and score inserts raise for an unknown run id.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
