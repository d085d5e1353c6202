package assessment

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the machine-readable availability verdict.
type Status string

const (
	StatusNotPublished       Status = "not_published"
	StatusAccessDisabled     Status = "access_disabled"
	StatusNotStarted         Status = "not_started"
	StatusDeadlinePassed     Status = "deadline_passed"
	StatusMaxAttemptsReached Status = "max_attempts_reached"
	StatusAvailable          Status = "available"
)

// Verdict answers "can this student attempt this assessment right now".
// Field names mirror the platform's existing availability-check payload.
type Verdict struct {
	Status    Status `json:"status"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`

	// AvailableAt is set for not_started verdicts.
	AvailableAt *time.Time `json:"availableAt,omitempty"`
	// Deadline is set whenever an end date is configured.
	Deadline *time.Time `json:"deadline,omitempty"`
	// RemainingTime is milliseconds until the deadline for available
	// verdicts; nil when no deadline is configured.
	RemainingTime *int64 `json:"remainingTime,omitempty"`
}

// Evaluate computes the availability verdict for a resolved config, the
// current time, the student's prior attempt count and the published flag.
//
// Rules apply in strict precedence: not_published, access_disabled,
// not_started, deadline_passed, max_attempts_reached, available. The first
// matching rule wins; a disabled assessment reports access_disabled even
// when it is also past its deadline.
//
// A malformed stored date or time-of-day yields a TemporalParseError and no
// verdict: the caller must deny access rather than guess.
func Evaluate(cfg Config, now time.Time, attemptCount int, published bool) (Verdict, error) {
	if !published {
		return Verdict{
			Status: StatusNotPublished,
			Reason: "this assessment is not published",
		}, nil
	}

	if cfg.StudentAccess == AccessDisabled {
		return Verdict{
			Status: StatusAccessDisabled,
			Reason: "access to this assessment is disabled",
		}, nil
	}

	start, err := cfg.StartInstant()
	if err != nil {
		return Verdict{}, err
	}
	if start != nil && now.Before(*start) {
		return Verdict{
			Status:      StatusNotStarted,
			Reason:      fmt.Sprintf("this assessment opens on %s", start.Format("Mon, 02 Jan 2006 at 15:04")),
			AvailableAt: start,
		}, nil
	}

	deadline, err := cfg.DeadlineInstant()
	if err != nil {
		return Verdict{}, err
	}
	if deadline != nil && now.After(*deadline) {
		return Verdict{
			Status:   StatusDeadlinePassed,
			Reason:   "the submission deadline for this assessment has passed",
			Deadline: deadline,
		}, nil
	}

	if capped, max := cfg.EffectiveMaxAttempts(); capped && attemptCount >= max {
		return Verdict{
			Status:   StatusMaxAttemptsReached,
			Reason:   fmt.Sprintf("the maximum of %d attempt(s) has been reached", max),
			Deadline: deadline,
		}, nil
	}

	verdict := Verdict{
		Status:    StatusAvailable,
		Available: true,
		Deadline:  deadline,
	}
	if deadline != nil {
		remaining := deadline.Sub(now).Milliseconds()
		if remaining < 0 {
			remaining = 0
		}
		verdict.RemainingTime = &remaining
	}
	return verdict, nil
}

// EffectiveMaxAttempts reports whether attempts are capped and, if so, the
// cap. Attempts are capped unless multiple attempts are allowed with no
// explicit maxAttempts; an unset cap falls back to 1.
func (c Config) EffectiveMaxAttempts() (capped bool, max int) {
	capped = !c.AllowMultipleAttempts || c.MaxAttempts > 0
	max = c.MaxAttempts
	if max < 1 {
		max = 1
	}
	return capped, max
}

// StartInstant composes the local-time instant before which access is
// denied, or nil when no start date is configured. Missing startTime
// defaults to "00:00".
func (c Config) StartInstant() (*time.Time, error) {
	return composeInstant("start", c.StartDate, c.StartTime, DefaultStartTime)
}

// DeadlineInstant composes the local-time submission deadline, or nil when
// no end date is configured. Missing endTime defaults to "23:59".
func (c Config) DeadlineInstant() (*time.Time, error) {
	return composeInstant("end", c.EndDate, c.EndTime, DefaultEndTime)
}

// composeInstant sets hours/minutes from an "HH:MM" string on a
// "2006-01-02" date, seconds and below at zero, in local time. Start and
// end bounds compose identically.
func composeInstant(field, dateStr, hhmm, defaultHHMM string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return nil, TemporalParseError{Field: field + "Date", Value: dateStr}
	}

	if hhmm == "" {
		hhmm = defaultHHMM
	}
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return nil, TemporalParseError{Field: field + "Time", Value: hhmm}
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, TemporalParseError{Field: field + "Time", Value: hhmm}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, TemporalParseError{Field: field + "Time", Value: hhmm}
	}

	t := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local)
	return &t, nil
}
