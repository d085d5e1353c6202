package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

type assessmentRow struct {
	ID                string     `db:"id"`
	CourseID          string     `db:"course_id"`
	Title             string     `db:"title"`
	Description       string     `db:"description"`
	Type              string     `db:"type"`
	Questions         []byte     `db:"questions"`
	Published         bool       `db:"published"`
	Config            []byte     `db:"config"`
	AutoUnavailableAt *time.Time `db:"auto_unavailable_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (row assessmentRow) unpack() (assessment.Assessment, error) {
	a := assessment.Assessment{
		ID:                row.ID,
		CourseID:          row.CourseID,
		Title:             row.Title,
		Description:       row.Description,
		Type:              assessment.Type(row.Type),
		Published:         row.Published,
		AutoUnavailableAt: row.AutoUnavailableAt,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if len(row.Questions) > 0 {
		if err := json.Unmarshal(row.Questions, &a.Questions); err != nil {
			return assessment.Assessment{}, errors.Wrap(err, "unpacking questions")
		}
	}
	if len(row.Config) > 0 {
		if err := json.Unmarshal(row.Config, &a.Config); err != nil {
			return assessment.Assessment{}, errors.Wrap(err, "unpacking config")
		}
	}
	return a, nil
}

func pack(a assessment.Assessment) (assessmentRow, error) {
	questions, err := json.Marshal(a.Questions)
	if err != nil {
		return assessmentRow{}, errors.Wrap(err, "packing questions")
	}
	config, err := json.Marshal(a.Config)
	if err != nil {
		return assessmentRow{}, errors.Wrap(err, "packing config")
	}
	return assessmentRow{
		ID:                a.ID,
		CourseID:          a.CourseID,
		Title:             a.Title,
		Description:       a.Description,
		Type:              string(a.Type),
		Questions:         questions,
		Published:         a.Published,
		Config:            config,
		AutoUnavailableAt: a.AutoUnavailableAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}, nil
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, a assessment.Assessment) (assessment.Assessment, error) {
	row, err := pack(a)
	if err != nil {
		return assessment.Assessment{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO assessment (id, course_id, title, description, type, questions, published, config, created_at, updated_at)
		VALUES (:id, :course_id, :title, :description, :type, :questions, :published, :config, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "creating assessment")
	}
	return a, nil
}

func (repo *assessmentRepository) GetAssessmentByID(ctx context.Context, id string) (assessment.Assessment, error) {
	var row assessmentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM assessment WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "getting assessment")
	}
	return row.unpack()
}

// orderableColumns guards ORDER BY clauses against arbitrary input.
var orderableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

func (repo *assessmentRepository) FilterAssessments(ctx context.Context, filter assessment.QueryFilter, orderings ...core.DBOrdering) ([]assessment.Assessment, error) {
	q := `SELECT * FROM assessment WHERE true`
	args := make([]interface{}, 0, 2)
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		q += fmt.Sprintf(" AND course_id = $%d", len(args))
	}
	if filter.Published != nil {
		args = append(args, *filter.Published)
		q += fmt.Sprintf(" AND published = $%d", len(args))
	}
	if filter.HasEndDate != nil {
		if *filter.HasEndDate {
			q += ` AND config ->> 'endDate' IS NOT NULL`
		} else {
			q += ` AND config ->> 'endDate' IS NULL`
		}
	}

	orderBys := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if orderableColumns[ord.Field] {
			orderBys = append(orderBys, ord.String())
		}
	}
	if len(orderBys) == 0 {
		orderBys = append(orderBys, "created_at ASC")
	}
	q += " ORDER BY " + strings.Join(orderBys, ", ")

	var rows []assessmentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering assessments")
	}
	res := make([]assessment.Assessment, 0, len(rows))
	for _, row := range rows {
		a, err := row.unpack()
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}

func (repo *assessmentRepository) UpdateAssessmentConfig(ctx context.Context, id string, cfg assessment.Config) (assessment.Assessment, error) {
	config, err := json.Marshal(cfg)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "packing config")
	}
	res, err := repo.db.ExecContext(ctx,
		`UPDATE assessment SET config = $1, updated_at = now() WHERE id = $2`,
		config, id,
	)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment config")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	return repo.GetAssessmentByID(ctx, id)
}

func (repo *assessmentRepository) SetAssessmentPublished(ctx context.Context, id string, published bool, autoUnavailableAt *time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE assessment SET published = $1, auto_unavailable_at = COALESCE($2, auto_unavailable_at), updated_at = now() WHERE id = $3`,
		published, autoUnavailableAt, id,
	)
	if err != nil {
		return errors.Wrap(err, "setting assessment published")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.ErrNotFound
	}
	return nil
}

func (repo *assessmentRepository) CountAttempts(ctx context.Context, assessmentID, userID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM attempt WHERE assessment_id = $1 AND user_id = $2`,
		assessmentID, userID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "counting attempts")
	}
	return count, nil
}

func (repo *assessmentRepository) CreateAttempt(ctx context.Context, att assessment.AttemptRecord) (assessment.AttemptRecord, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO attempt (id, assessment_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		att.ID, att.AssessmentID, att.UserID, att.CreatedAt,
	)
	if err != nil {
		return assessment.AttemptRecord{}, errors.Wrap(err, "creating attempt")
	}
	return att, nil
}

func (repo *assessmentRepository) CreateNotification(ctx context.Context, n assessment.Notification) (assessment.Notification, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO notification (id, user_id, assessment_id, type, message, deadline, read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.AssessmentID, string(n.Type), n.Message, n.Deadline, n.Read, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return assessment.Notification{}, errors.Wrap(err, "creating notification")
	}
	return n, nil
}

func (repo *assessmentRepository) HasNotification(ctx context.Context, assessmentID string, typ assessment.NotificationType) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM notification WHERE assessment_id = $1 AND type = $2)`,
		assessmentID, string(typ),
	)
	if err != nil {
		return false, errors.Wrap(err, "checking notifications")
	}
	return exists, nil
}
