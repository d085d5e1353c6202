package inmemdb

import (
	"sync"

	"github.com/trezcool/tathmini/core/assessment"
	"github.com/trezcool/tathmini/core/course"
	"github.com/trezcool/tathmini/core/user"
)

type (
	DB struct {
		user       *userTable
		course     *courseTable
		assessment *assessmentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table       map[string]*course.Course
		enrollments map[string][]string // courseID -> userIDs
	}

	assessmentTable struct {
		sync.RWMutex
		table         map[string]*assessment.Assessment
		attempts      []assessment.AttemptRecord
		notifications []assessment.Notification
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:   &userTable{table: make(map[string]*user.User)},
		course: &courseTable{table: make(map[string]*course.Course), enrollments: make(map[string][]string)},
		assessment: &assessmentTable{
			table:         make(map[string]*assessment.Assessment),
			attempts:      make([]assessment.AttemptRecord, 0),
			notifications: make([]assessment.Notification, 0),
		},
	}
	return db, nil
}
