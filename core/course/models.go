package course

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/tathmini/core/user"
)

var ErrNotFound = errors.New("course not found")

// Course is the owning unit for assessments. Course CRUD itself lives in the
// platform's generic REST layer; this package only exposes what the
// assessment engine needs.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository interface {
	GetCourseByID(ctx context.Context, id string) (Course, error)
	// ListEnrolledStudents returns every student enrolled in the course.
	ListEnrolledStudents(ctx context.Context, courseID string) ([]user.User, error)
	EnrollStudent(ctx context.Context, courseID, userID string) error
}
