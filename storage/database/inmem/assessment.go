package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

type assessmentRepository struct {
	db *assessmentTable
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{db: db.assessment}
}

func (repo *assessmentRepository) CreateAssessment(_ context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *assessmentRepository) GetAssessmentByID(_ context.Context, id string) (assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) FilterAssessments(_ context.Context, filter assessment.QueryFilter, orderings ...core.DBOrdering) ([]assessment.Assessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]assessment.Assessment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if filter.CourseID != "" && a.CourseID != filter.CourseID {
			continue
		}
		if filter.Published != nil && a.Published != *filter.Published {
			continue
		}
		if filter.HasEndDate != nil {
			hasEnd := a.Config.EndDate != nil && *a.Config.EndDate != ""
			if hasEnd != *filter.HasEndDate {
				continue
			}
		}
		res = append(res, *a)
	}
	sortAssessments(res, orderings)
	return res, nil
}

func sortAssessments(res []assessment.Assessment, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.SliceStable(res, func(i, j int) bool {
		for _, ord := range orderings {
			var less, eq bool
			switch ord.Field {
			case "title":
				less, eq = res[i].Title < res[j].Title, res[i].Title == res[j].Title
			case "updated_at":
				less, eq = res[i].UpdatedAt.Before(res[j].UpdatedAt), res[i].UpdatedAt.Equal(res[j].UpdatedAt)
			default: // created_at
				less, eq = res[i].CreatedAt.Before(res[j].CreatedAt), res[i].CreatedAt.Equal(res[j].CreatedAt)
			}
			if eq {
				continue
			}
			if ord.Ascending {
				return less
			}
			return !less
		}
		return false
	})
}

func (repo *assessmentRepository) UpdateAssessmentConfig(_ context.Context, id string, cfg assessment.Config) (assessment.Assessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.table[id]
	if !ok {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	a.Config = patchFromConfig(cfg)
	return *a, nil
}

func (repo *assessmentRepository) SetAssessmentPublished(_ context.Context, id string, published bool, autoUnavailableAt *time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	a, ok := repo.db.table[id]
	if !ok {
		return assessment.ErrNotFound
	}
	a.Published = published
	if autoUnavailableAt != nil {
		a.AutoUnavailableAt = autoUnavailableAt
	}
	return nil
}

func (repo *assessmentRepository) CountAttempts(_ context.Context, assessmentID, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, att := range repo.db.attempts {
		if att.AssessmentID == assessmentID && att.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (repo *assessmentRepository) CreateAttempt(_ context.Context, att assessment.AttemptRecord) (assessment.AttemptRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	repo.db.attempts = append(repo.db.attempts, att)
	return att, nil
}

func (repo *assessmentRepository) CreateNotification(_ context.Context, n assessment.Notification) (assessment.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	repo.db.notifications = append(repo.db.notifications, n)
	return n, nil
}

func (repo *assessmentRepository) HasNotification(_ context.Context, assessmentID string, typ assessment.NotificationType) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, n := range repo.db.notifications {
		if n.AssessmentID == assessmentID && n.Type == typ {
			return true, nil
		}
	}
	return false, nil
}

// Notifications returns all recorded notifications; test helper.
func (repo *assessmentRepository) Notifications() []assessment.Notification {
	repo.db.RLock()
	defer repo.db.RUnlock()

	res := make([]assessment.Notification, len(repo.db.notifications))
	copy(res, repo.db.notifications)
	return res
}

// patchFromConfig rewrites a resolved config as a fully-set stored document.
func patchFromConfig(cfg assessment.Config) assessment.ConfigPatch {
	access := cfg.StudentAccess
	p := assessment.ConfigPatch{
		TotalMarks:              &cfg.TotalMarks,
		PassingMarks:            &cfg.PassingMarks,
		StudentAccess:           &access,
		AllowMultipleAttempts:   &cfg.AllowMultipleAttempts,
		EnableReminder:          &cfg.EnableReminder,
		ReminderBefore:          &cfg.ReminderBefore,
		SendNotificationOnStart: &cfg.SendNotificationOnStart,
		AutoUnavailable:         &cfg.AutoUnavailable,
		ShowResults:             &cfg.ShowResults,
		ShuffleQuestions:        &cfg.ShuffleQuestions,
		Extra:                   cfg.Extra,
	}
	if cfg.StartDate != "" {
		p.StartDate = &cfg.StartDate
	}
	if cfg.StartTime != "" {
		p.StartTime = &cfg.StartTime
	}
	if cfg.EndDate != "" {
		p.EndDate = &cfg.EndDate
	}
	if cfg.EndTime != "" {
		p.EndTime = &cfg.EndTime
	}
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = &cfg.MaxAttempts
	}
	return p
}
