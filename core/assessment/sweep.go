package assessment

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
)

type (
	// SweepResult reports what a single-assessment sweep did.
	SweepResult struct {
		Updated       bool `json:"updated"`
		NotifiedCount int  `json:"notified_count"`
	}

	// SweepStats aggregates a full sweep pass.
	SweepStats struct {
		Swept         int `json:"swept"`
		Closed        int `json:"closed"`
		NotifiedCount int `json:"notified_count"`
		Failed        int `json:"failed"`
	}

	// Sweeper closes published assessments past their deadline and fires
	// closure notifications. States per assessment are draft, published and
	// closed; publishing is an external action, closed is terminal here.
	Sweeper struct {
		repo       Repository
		dispatcher *Dispatcher
		clock      core.Clock
		logger     core.Logger
	}
)

func NewSweeper(repo Repository, dispatcher *Dispatcher, clock core.Clock, logger core.Logger) *Sweeper {
	return &Sweeper{
		repo:       repo,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// Sweep transitions one assessment from published to closed when its
// deadline has passed and autoUnavailable is on.
//
// No-ops: no endDate configured; autoUnavailable off (the teacher must
// unpublish manually); already unpublished. The published guard makes the
// sweep idempotent: notifications never re-fire for a closed assessment.
func (s *Sweeper) Sweep(ctx context.Context, a Assessment) (SweepResult, error) {
	if !a.Published {
		return SweepResult{}, nil
	}

	cfg := a.ResolvedConfig()
	if cfg.EndDate == "" || !cfg.AutoUnavailable {
		return SweepResult{}, nil
	}
	deadline, err := cfg.DeadlineInstant()
	if err != nil {
		return SweepResult{}, err
	}
	if !s.clock.Now().After(*deadline) {
		return SweepResult{}, nil
	}

	closedAt := s.clock.Now().UTC()
	if err := s.repo.SetAssessmentPublished(ctx, a.ID, false, &closedAt); err != nil {
		return SweepResult{}, errors.Wrapf(err, "closing assessment %s", a.ID)
	}

	sent, err := s.dispatcher.SendClosure(ctx, a)
	if err != nil {
		// the assessment is closed regardless; report the partial fan-out
		return SweepResult{Updated: true, NotifiedCount: sent}, err
	}
	return SweepResult{Updated: true, NotifiedCount: sent}, nil
}

// SweepAll runs Sweep over every published assessment. Failures are isolated
// per assessment: one bad record is logged and the batch moves on.
func (s *Sweeper) SweepAll(ctx context.Context) (SweepStats, error) {
	published := true
	assessments, err := s.repo.FilterAssessments(ctx, QueryFilter{Published: &published})
	if err != nil {
		return SweepStats{}, errors.Wrap(err, "listing published assessments")
	}

	var stats SweepStats
	for _, a := range assessments {
		stats.Swept++
		res, err := s.Sweep(ctx, a)
		if err != nil {
			stats.Failed++
			s.logger.Error(fmt.Sprintf("sweep: assessment %s: %v", a.ID, err), err)
		}
		if res.Updated {
			stats.Closed++
			stats.NotifiedCount += res.NotifiedCount
		}
	}
	return stats, nil
}
