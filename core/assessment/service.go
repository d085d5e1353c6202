package assessment

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/user"
)

// UnavailableError is returned by RecordAttempt when the availability check
// denies the submission; it carries the verdict for the caller to surface.
type UnavailableError struct {
	Verdict Verdict
}

func (err UnavailableError) Error() string {
	if err.Verdict.Reason != "" {
		return err.Verdict.Reason
	}
	return "this assessment is not available"
}

type Service struct {
	repo  Repository
	clock core.Clock
}

func NewService(repo Repository, clock core.Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assessment, error) {
	return svc.repo.GetAssessmentByID(ctx, id)
}

// CheckAvailability computes the availability verdict for a student. It is a
// pure read: no attempt slot is consumed.
// Only teachers and admins may query on behalf of someone else.
func (svc *Service) CheckAvailability(ctx context.Context, auth user.AuthContext, assessmentID, userID string) (Verdict, error) {
	if !auth.IsTeacher() && !auth.IsAdmin() && auth.UserID != userID {
		return Verdict{}, core.NewAuthorizationError("students may only check their own availability")
	}

	a, err := svc.repo.GetAssessmentByID(ctx, assessmentID)
	if err != nil {
		return Verdict{}, err
	}
	count, err := svc.repo.CountAttempts(ctx, assessmentID, userID)
	if err != nil {
		return Verdict{}, err
	}
	return Evaluate(a.ResolvedConfig(), svc.clock.Now(), count, a.Published)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Assessment, error) {
	return svc.repo.FilterAssessments(ctx, filter, orderings...)
}

// GetConfig returns the assessment's config with all defaults filled in.
func (svc *Service) GetConfig(ctx context.Context, id string) (Config, error) {
	a, err := svc.repo.GetAssessmentByID(ctx, id)
	if err != nil {
		return Config{}, err
	}
	return a.ResolvedConfig(), nil
}

// UpdateConfig validates the patch, merges it over the stored config and
// the defaults, validates the merged result and persists it. Unknown keys in
// either layer pass through unchanged. Teacher/admin only.
func (svc *Service) UpdateConfig(ctx context.Context, auth user.AuthContext, id string, patch ConfigPatch) (Config, error) {
	if !auth.IsTeacher() && !auth.IsAdmin() {
		return Config{}, core.NewAuthorizationError("only teachers and admins may update assessment configuration")
	}
	if err := patch.Validate(); err != nil {
		return Config{}, err
	}

	a, err := svc.repo.GetAssessmentByID(ctx, id)
	if err != nil {
		return Config{}, err
	}

	merged := Resolve(a.Config, patch)
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}

	if _, err := svc.repo.UpdateAssessmentConfig(ctx, id, merged); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// CountAttempts reflects the latest committed state at call time; no caching.
func (svc *Service) CountAttempts(ctx context.Context, assessmentID, userID string) (int, error) {
	return svc.repo.CountAttempts(ctx, assessmentID, userID)
}

// RecordAttempt appends one AttemptRecord for the (assessment, student)
// pair after re-checking availability.
//
// The check-then-insert is advisory: two concurrent submitters can both see
// attemptCount=k and land at k+2. Strict enforcement needs a conditional
// insert in the store's write path.
func (svc *Service) RecordAttempt(ctx context.Context, auth user.AuthContext, assessmentID, userID string) (AttemptRecord, error) {
	verdict, err := svc.CheckAvailability(ctx, auth, assessmentID, userID)
	if err != nil {
		return AttemptRecord{}, err
	}
	if !verdict.Available {
		return AttemptRecord{}, UnavailableError{Verdict: verdict}
	}

	att := AttemptRecord{
		ID:           uuid.New().String(),
		AssessmentID: assessmentID,
		UserID:       userID,
		CreatedAt:    svc.clock.Now().UTC(),
	}
	return svc.repo.CreateAttempt(ctx, att)
}
