package roadmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/p-n-ai/sat-prep/internal/events"
	"github.com/p-n-ai/sat-prep/internal/platform/metrics"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

// Service generates, stores and advances learner roadmaps.
type Service struct {
	tax     *taxonomy.Taxonomy
	store   Store
	tie     TieBreaker
	events  events.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTaxonomy overrides the embedded taxonomy.
func WithTaxonomy(tax *taxonomy.Taxonomy) Option {
	return func(s *Service) { s.tax = tax }
}

// WithTieBreaker sets the policy for ordering equally rated skills.
func WithTieBreaker(tb TieBreaker) Option {
	return func(s *Service) { s.tie = tb }
}

// WithEvents sets the analytics event logger.
func WithEvents(logger events.Logger) Option {
	return func(s *Service) { s.events = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a roadmap service over store. By default ties are
// broken randomly and events are discarded.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		tax:    taxonomy.Default(),
		store:  store,
		tie:    NewTieBreaker(TieBreakRandom, 0),
		events: events.Nop{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds a new roadmap from proficiency and saves it, replacing any
// existing roadmap and resetting progress.
func (s *Service) Generate(ctx context.Context, learnerID string, proficiency map[string]int) (*Roadmap, error) {
	if learnerID == "" {
		return nil, fmt.Errorf("learner_id is required")
	}
	if err := ValidateProficiency(s.tax, proficiency); err != nil {
		return nil, err
	}

	skills := Sequence(s.tax, proficiency, s.tie)
	rec := Record{
		RoadmapString: Encode(skills),
		CurrentLevel:  0,
		Proficiency:   maps.Clone(proficiency),
		UpdatedAt:     s.now(),
	}
	if err := s.store.Save(ctx, learnerID, rec); err != nil {
		return nil, fmt.Errorf("saving roadmap: %w", err)
	}

	slog.Info("roadmap generated", "learner_id", learnerID, "steps", len(skills))
	events.Log(s.events, events.Event{
		LearnerID: learnerID,
		EventType: events.RoadmapGenerated,
		Data: map[string]any{
			"roadmap":     rec.RoadmapString,
			"steps":       len(skills),
			"proficiency": proficiency,
		},
	})
	s.metrics.RoadmapOp("generate")

	return FromRecord(learnerID, rec, s.tax), nil
}

// Get returns the learner's decoded roadmap, or ErrNotFound.
func (s *Service) Get(ctx context.Context, learnerID string) (*Roadmap, error) {
	rec, err := s.store.Get(ctx, learnerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading roadmap: %w", err)
	}
	return s.decode(learnerID, rec), nil
}

// SetProgress moves the learner's cursor to level. Levels outside 0..N
// return ErrLevelOutOfRange.
func (s *Service) SetProgress(ctx context.Context, learnerID string, level int) (*Roadmap, error) {
	rm, err := s.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	next, err := AdvanceProgress(rm.CurrentLevel, level, rm.Len())
	if err != nil {
		return nil, err
	}

	rec := rm.Record()
	previous := rec.CurrentLevel
	rec.CurrentLevel = next
	rec.UpdatedAt = s.now()
	if err := s.store.Save(ctx, learnerID, rec); err != nil {
		return nil, fmt.Errorf("saving progress: %w", err)
	}

	events.Log(s.events, events.Event{
		LearnerID: learnerID,
		EventType: events.RoadmapProgress,
		Data: map[string]any{
			"from":  previous,
			"to":    next,
			"steps": rm.Len(),
		},
	})
	s.metrics.RoadmapOp("progress")

	return FromRecord(learnerID, rec, s.tax), nil
}

// Regenerate replaces the learner's roadmap and progress with a new one. A
// nil proficiency reuses the ratings stored with the old roadmap. Invalid
// ratings leave the existing roadmap untouched.
func (s *Service) Regenerate(ctx context.Context, learnerID string, proficiency map[string]int) (*Roadmap, error) {
	if proficiency == nil {
		rec, err := s.store.Get(ctx, learnerID)
		switch {
		case err == nil:
			proficiency = rec.Proficiency
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("loading roadmap: %w", err)
		}
	}
	// Save replaces the stored record, so a rejected input leaves the old
	// roadmap in place.
	return s.Generate(ctx, learnerID, proficiency)
}

// Delete removes the learner's roadmap. It returns ErrNotFound when there
// is none.
func (s *Service) Delete(ctx context.Context, learnerID string) error {
	if _, err := s.store.Get(ctx, learnerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("loading roadmap: %w", err)
	}
	if err := s.store.Delete(ctx, learnerID); err != nil {
		return fmt.Errorf("deleting roadmap: %w", err)
	}

	events.Log(s.events, events.Event{
		LearnerID: learnerID,
		EventType: events.RoadmapDeleted,
	})
	s.metrics.RoadmapOp("delete")
	return nil
}

func (s *Service) decode(learnerID string, rec Record) *Roadmap {
	rm := FromRecord(learnerID, rec, s.tax)
	if degraded := rm.Degraded(); len(degraded) > 0 {
		tokens := make([]string, len(degraded))
		for i, st := range degraded {
			tokens[i] = st.Token
		}
		slog.Warn("roadmap has unresolvable steps",
			"learner_id", learnerID,
			"tokens", tokens,
		)
		s.metrics.DegradedSteps(len(degraded))
	}
	return rm
}
