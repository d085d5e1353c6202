package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core/course"
	"github.com/trezcool/tathmini/core/user"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	TeacherID *string    `db:"teacher_id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (row courseRow) unpack() course.Course {
	c := course.Course{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.TeacherID != nil {
		c.TeacherID = *row.TeacherID
	}
	return c
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return course.Course{}, course.ErrNotFound
	}
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return row.unpack(), nil
}

func (repo *courseRepository) ListEnrolledStudents(ctx context.Context, courseID string) ([]user.User, error) {
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT u.* FROM "user" u
		JOIN enrollment e ON e.user_id = u.id
		WHERE e.course_id = $1 AND u.is_active
		ORDER BY u.created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "listing enrolled students")
	}
	students := make([]user.User, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.unpack())
	}
	return students, nil
}

func (repo *courseRepository) EnrollStudent(ctx context.Context, courseID, userID string) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO enrollment (course_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, courseID, userID)
	return errors.Wrap(err, "enrolling student")
}
