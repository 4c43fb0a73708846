package runs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pagegrade/pagegrade/pkg/scoring"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu     sync.Mutex
	runs   map[string]*Run
	scores map[string][]Score
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[string]*Run),
		scores: make(map[string][]Score),
		now:    time.Now,
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, siteURL string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	r := &Run{
		ID:        uuid.NewString(),
		SiteURL:   siteURL,
		State:     scoring.StateEmpty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.runs[r.ID] = r
	return copyRun(r), nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRun(r), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		c := *r
		c.Payloads = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordPayload(_ context.Context, runID string, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	p.ReceivedAt = s.now()
	for i := range r.Payloads {
		if r.Payloads[i].Kind == p.Kind {
			r.Payloads[i] = p
			return nil
		}
	}
	r.Payloads = append(r.Payloads, p)
	return nil
}

func (s *MemoryStore) SetState(_ context.Context, runID string, state scoring.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	r.State = state
	r.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) InsertScore(_ context.Context, sc *Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[sc.RunID]; !ok {
		return ErrNotFound
	}
	sc.CreatedAt = s.now()
	s.scores[sc.RunID] = append(s.scores[sc.RunID], *sc)
	return nil
}

func (s *MemoryStore) LatestScore(_ context.Context, runID string) (*Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.scores[runID]
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	latest := rows[len(rows)-1]
	return &latest, nil
}

func (s *MemoryStore) ListScores(_ context.Context, runID string) ([]Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, ErrNotFound
	}
	rows := s.scores[runID]
	out := make([]Score, len(rows))
	for i, sc := range rows {
		out[len(rows)-1-i] = sc
	}
	return out, nil
}

func copyRun(r *Run) *Run {
	c := *r
	c.Payloads = append([]Payload(nil), r.Payloads...)
	return &c
}
