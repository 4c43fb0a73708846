package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pagegrade/pagegrade/internal/notify"
	"github.com/pagegrade/pagegrade/internal/runs"
	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// ErrInvalidPayload is returned when a submitted payload does not decode as
// its kind. Invalid payloads are never stored.
var ErrInvalidPayload = errors.New("invalid payload")

// Evaluator abstracts the scoring engine so the ingestion package does not
// depend on a concrete configuration.
type Evaluator interface {
	Evaluate(run *audit.Run) (*scoring.Report, error)
}

// Submission is the outcome of one accepted payload.
type Submission struct {
	RunID    string            `json:"run_id"`
	Kind     audit.PayloadKind `json:"kind"`
	State    scoring.State     `json:"state"`
	ReportID string            `json:"report_id"`
	Report   *scoring.Report   `json:"-"`
}

// Service orchestrates payload ingestion: store the blob, record the payload
// row, advance readiness and recompute the report.
type Service struct {
	store     runs.Store
	storage   StorageClient
	evaluator Evaluator
	publisher notify.Publisher
	logger    *zap.Logger

	// Recomputations of the same run are serialized so state and score rows
	// follow payload arrival order.
	runLocks sync.Map // run ID -> *sync.Mutex
}

// NewService creates a new ingestion Service. A nil publisher disables
// notifications; a nil logger discards logs.
func NewService(store runs.Store, storage StorageClient, evaluator Evaluator, publisher notify.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		storage:   storage,
		evaluator: evaluator,
		publisher: publisher,
		logger:    logger,
	}
}

// Storage returns the underlying storage client.
func (s *Service) Storage() StorageClient {
	return s.storage
}

// Submit validates and stores one payload of a run, then recomputes the
// run's report from every payload stored so far.
func (s *Service) Submit(ctx context.Context, runID string, kind audit.PayloadKind, data []byte) (*Submission, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	var decoded audit.Run
	if err := decoded.Apply(kind, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	key := PayloadKey(runID, kind)
	if err := s.storage.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store %s payload: %w", kind, err)
	}
	if err := s.store.RecordPayload(ctx, runID, runs.Payload{Kind: kind, StorageRef: key, SizeBytes: len(data)}); err != nil {
		return nil, fmt.Errorf("record %s payload: %w", kind, err)
	}

	s.logger.Info("payload stored",
		zap.String("run_id", runID),
		zap.String("kind", string(kind)),
		zap.Int("bytes", len(data)),
	)

	return s.recompute(ctx, runID, kind)
}

// Recompute re-evaluates a run from its stored payloads without a new
// submission, e.g. after the scoring configuration changed.
func (s *Service) Recompute(ctx context.Context, runID string) (*Submission, error) {
	return s.recompute(ctx, runID, "")
}

func (s *Service) recompute(ctx context.Context, runID string, kind audit.PayloadKind) (*Submission, error) {
	mu := s.lockFor(runID)
	mu.Lock()
	defer mu.Unlock()

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	progress := run.Progress()
	state := progress.State()
	if kind != "" {
		_, state = scoring.Advance(progress, kind)
	}

	loaded, err := s.LoadRun(ctx, run)
	if err != nil {
		return nil, err
	}

	report, err := s.evaluator.Evaluate(loaded)
	if err != nil {
		return nil, fmt.Errorf("evaluate run %s: %w", runID, err)
	}
	if report.State != state {
		s.logger.Warn("readiness mismatch",
			zap.String("run_id", runID),
			zap.String("recorded", string(state)),
			zap.String("evaluated", string(report.State)),
		)
		state = report.State
	}

	reportID := uuid.NewString()
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	key := ReportKey(runID, reportID)
	if err := s.storage.Put(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	if err := s.store.InsertScore(ctx, runs.ScoreFromReport(reportID, runID, key, report)); err != nil {
		return nil, fmt.Errorf("record score: %w", err)
	}
	if err := s.store.SetState(ctx, runID, state); err != nil {
		return nil, fmt.Errorf("update run state: %w", err)
	}

	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("state", string(state)),
		zap.String("report_id", reportID),
		zap.Int("warnings", len(report.Warnings)),
	}
	if report.Composite != nil {
		fields = append(fields, zap.Float64("composite", *report.Composite), zap.String("grade", report.Grade))
	}
	s.logger.Info("report computed", fields...)

	msg := notify.RunUpdated{RunID: runID, State: string(state), Composite: report.Composite}
	if err := s.publisher.PublishRunUpdated(ctx, msg); err != nil {
		s.logger.Warn("publish run update", zap.String("run_id", runID), zap.Error(err))
	}

	return &Submission{RunID: runID, Kind: kind, State: state, ReportID: reportID, Report: report}, nil
}

// LoadRun fetches every recorded payload of run from storage concurrently
// and decodes them into an audit run.
func (s *Service) LoadRun(ctx context.Context, run *runs.Run) (*audit.Run, error) {
	blobs := make([][]byte, len(run.Payloads))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range run.Payloads {
		g.Go(func() error {
			data, err := s.storage.Get(gctx, p.StorageRef)
			if err != nil {
				return fmt.Errorf("load %s payload: %w", p.Kind, err)
			}
			blobs[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := &audit.Run{SiteURL: run.SiteURL}
	for i, p := range run.Payloads {
		if err := loaded.Apply(p.Kind, blobs[i]); err != nil {
			return nil, fmt.Errorf("decode stored %s payload: %w", p.Kind, err)
		}
	}
	return loaded, nil
}

// Report returns the latest computed report of a run.
func (s *Service) Report(ctx context.Context, runID string) (*scoring.Report, error) {
	score, err := s.store.LatestScore(ctx, runID)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.Get(ctx, score.StorageRef)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", score.ID, err)
	}
	var report scoring.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("unmarshal report %s: %w", score.ID, err)
	}
	return &report, nil
}

func (s *Service) lockFor(runID string) *sync.Mutex {
	mu, _ := s.runLocks.LoadOrStore(runID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
