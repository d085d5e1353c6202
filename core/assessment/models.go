package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trezcool/tathmini/core"
)

var (
	// errors
	ErrNotFound = errors.New("assessment not found")
)

// Type is the kind of gradeable unit an Assessment represents.
type Type string

const (
	TypeQuiz       Type = "quiz"
	TypeCoding     Type = "coding"
	TypeAssignment Type = "assignment"
)

// AccessMode controls how students may reach an assessment.
type AccessMode string

const (
	AccessOnline   AccessMode = "online"
	AccessOffline  AccessMode = "offline"
	AccessDisabled AccessMode = "disabled"
)

type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`
	Marks   int      `json:"marks"`
}

// Assessment is a gradeable unit (quiz/coding/assignment) belonging to a
// course. Creation/deletion are plain CRUD handled by the platform layer;
// this engine owns availability, attempts and the auto-closure transition.
type Assessment struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        Type       `json:"type"`
	Questions   []Question `json:"questions,omitempty"`
	Published   bool       `json:"published"`

	// Config is the stored, possibly-partial availability configuration;
	// resolve it before evaluating (see Resolve).
	Config ConfigPatch `json:"config"`

	// AutoUnavailableAt is stamped by the sweeper when it auto-closes the
	// assessment past its deadline.
	AutoUnavailableAt *time.Time `json:"auto_unavailable_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedConfig merges the stored config over the documented defaults.
func (a Assessment) ResolvedConfig() Config {
	return Resolve(a.Config)
}

// AttemptRecord is one completed submission by a student against an
// assessment. Append-only; the count per (assessment, student) pair is the
// student's attempt count.
type AttemptRecord struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessment_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type NotificationType string

const (
	NotificationDeadlineReminder    NotificationType = "deadline_reminder"
	NotificationAssessmentAvailable NotificationType = "assessment_available"
	NotificationAssessmentClosed    NotificationType = "assessment_closed"
)

// Notification is a per-student notification record. Read-state is mutated
// later by the student-facing UI, not by this engine.
type Notification struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	AssessmentID string           `json:"assessment_id"`
	Type         NotificationType `json:"type"`
	Message      string           `json:"message"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Read         bool             `json:"read"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TemporalParseError indicates a stored date/time-of-day value that cannot
// be parsed. The evaluator fails closed on it: access is denied rather than
// silently granted.
type TemporalParseError struct {
	Field string
	Value string
}

func (err TemporalParseError) Error() string {
	return fmt.Sprintf("malformed %s value %q", err.Field, err.Value)
}

func IsTemporalParseError(err error) bool {
	var tpe TemporalParseError
	return errors.As(err, &tpe)
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	CourseID   string
	Published  *bool
	HasEndDate *bool
}

type Repository interface {
	CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
	GetAssessmentByID(ctx context.Context, id string) (Assessment, error)
	FilterAssessments(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Assessment, error)
	// UpdateAssessmentConfig persists a fully resolved config; merge with the
	// stored document happens in the service, not the store.
	UpdateAssessmentConfig(ctx context.Context, id string, cfg Config) (Assessment, error)
	SetAssessmentPublished(ctx context.Context, id string, published bool, autoUnavailableAt *time.Time) error

	CountAttempts(ctx context.Context, assessmentID, userID string) (int, error)
	CreateAttempt(ctx context.Context, att AttemptRecord) (AttemptRecord, error)

	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	// HasNotification reports whether any notification of the given type was
	// already recorded for the assessment; the scheduler uses it to avoid
	// re-firing reminders.
	HasNotification(ctx context.Context, assessmentID string, typ NotificationType) (bool, error)
}
