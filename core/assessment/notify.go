package assessment

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/course"
	"github.com/trezcool/tathmini/core/user"
)

// Dispatcher fans reminder/availability/closure events out to the enrolled
// students of an assessment's course: one Notification record per student,
// plus a best-effort email.
//
// Calls are not idempotent; invoking one twice duplicates notifications.
// The scheduler and the manual endpoints own re-invocation discipline.
type Dispatcher struct {
	repo    Repository
	courses course.Repository
	mailSvc core.EmailService
	clock   core.Clock
	logger  core.Logger
}

func NewDispatcher(repo Repository, courses course.Repository, mailSvc core.EmailService, clock core.Clock, logger core.Logger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		courses: courses,
		mailSvc: mailSvc,
		clock:   clock,
		logger:  logger,
	}
}

// SendReminders notifies enrolled students of the approaching deadline.
// No-op returning 0 when reminders are disabled on the assessment.
func (d *Dispatcher) SendReminders(ctx context.Context, a Assessment) (int, error) {
	cfg := a.ResolvedConfig()
	if !cfg.EnableReminder {
		return 0, nil
	}
	deadline, err := cfg.DeadlineInstant()
	if err != nil {
		return 0, err
	}
	msg := fmt.Sprintf("Reminder: %q is due soon (%d hour(s) notice).", a.Title, cfg.ReminderBefore)
	if deadline != nil {
		msg = fmt.Sprintf("Reminder: %q is due on %s (%d hour(s) notice).",
			a.Title, deadline.Format("Mon, 02 Jan 2006 at 15:04"), cfg.ReminderBefore)
	}
	return d.fanOut(ctx, a, NotificationDeadlineReminder, msg, deadline)
}

// SendAvailability notifies enrolled students that the assessment opened.
// No-op returning 0 when sendNotificationOnStart is off.
func (d *Dispatcher) SendAvailability(ctx context.Context, a Assessment) (int, error) {
	cfg := a.ResolvedConfig()
	if !cfg.SendNotificationOnStart {
		return 0, nil
	}
	deadline, err := cfg.DeadlineInstant()
	if err != nil {
		return 0, err
	}
	msg := fmt.Sprintf("%q is now available.", a.Title)
	return d.fanOut(ctx, a, NotificationAssessmentAvailable, msg, deadline)
}

// SendClosure notifies enrolled students that the assessment closed.
func (d *Dispatcher) SendClosure(ctx context.Context, a Assessment) (int, error) {
	cfg := a.ResolvedConfig()
	deadline, err := cfg.DeadlineInstant()
	if err != nil {
		return 0, err
	}
	msg := fmt.Sprintf("%q has closed; the submission deadline has passed.", a.Title)
	return d.fanOut(ctx, a, NotificationAssessmentClosed, msg, deadline)
}

// ProcessDueReminders sends deadline reminders for every published
// assessment whose reminder window [deadline - reminderBefore, deadline)
// contains now and that has not been reminded about yet. Failures are
// isolated per assessment.
func (d *Dispatcher) ProcessDueReminders(ctx context.Context) (int, error) {
	published := true
	hasEndDate := true
	assessments, err := d.repo.FilterAssessments(ctx, QueryFilter{Published: &published, HasEndDate: &hasEndDate})
	if err != nil {
		return 0, errors.Wrap(err, "listing published assessments")
	}

	now := d.clock.Now()
	var sent int
	for _, a := range assessments {
		cfg := a.ResolvedConfig()
		if !cfg.EnableReminder {
			continue
		}
		deadline, err := cfg.DeadlineInstant()
		if err != nil || deadline == nil {
			if err != nil {
				d.logger.Warn(fmt.Sprintf("reminder pass: skipping assessment %s: %v", a.ID, err))
			}
			continue
		}
		windowStart := deadline.Add(-time.Duration(cfg.ReminderBefore) * time.Hour)
		if now.Before(windowStart) || !now.Before(*deadline) {
			continue
		}
		already, err := d.repo.HasNotification(ctx, a.ID, NotificationDeadlineReminder)
		if err != nil {
			d.logger.Error(fmt.Sprintf("reminder pass: assessment %s: %v", a.ID, err), err)
			continue
		}
		if already {
			continue
		}
		n, err := d.SendReminders(ctx, a)
		if err != nil {
			d.logger.Error(fmt.Sprintf("reminder pass: assessment %s: %v", a.ID, err), err)
			continue
		}
		sent += n
	}
	return sent, nil
}

func (d *Dispatcher) fanOut(ctx context.Context, a Assessment, typ NotificationType, msg string, deadline *time.Time) (int, error) {
	students, err := d.courses.ListEnrolledStudents(ctx, a.CourseID)
	if err != nil {
		return 0, errors.Wrapf(err, "listing students of course %s", a.CourseID)
	}

	now := d.clock.Now().UTC()
	var sent int
	for _, st := range students {
		n := Notification{
			ID:           uuid.New().String(),
			UserID:       st.ID,
			AssessmentID: a.ID,
			Type:         typ,
			Message:      msg,
			Deadline:     deadline,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := d.repo.CreateNotification(ctx, n); err != nil {
			return sent, errors.Wrapf(err, "notifying student %s", st.ID)
		}
		sent++
	}

	d.email(students, a.Title, msg)
	return sent, nil
}

func (d *Dispatcher) email(students []user.User, title, body string) {
	if d.mailSvc == nil {
		return
	}
	messages := make([]*core.EmailMessage, 0, len(students))
	for _, st := range students {
		if st.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Name: st.Name, Address: st.Email}},
			Subject: title,
			BodyStr: body,
		})
	}
	d.mailSvc.SendMessages(messages...)
}
