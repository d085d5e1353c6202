package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/tathmini/core/course"
	"github.com/trezcool/tathmini/core/user"
)

type courseRepository struct {
	db    *courseTable
	users *userTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course, users: db.user}
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) ListEnrolledStudents(_ context.Context, courseID string) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.users.RLock()
	defer repo.users.RUnlock()

	ids := repo.db.enrollments[courseID]
	students := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users.table[id]; ok {
			students = append(students, *usr)
		}
	}
	return students, nil
}

func (repo *courseRepository) EnrollStudent(_ context.Context, courseID, userID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range repo.db.enrollments[courseID] {
		if id == userID {
			return nil
		}
	}
	repo.db.enrollments[courseID] = append(repo.db.enrollments[courseID], userID)
	return nil
}
