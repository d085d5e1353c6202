package assessment

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/trezcool/tathmini/core"
)

// Defaults for every availability config field. Single source of truth;
// routes must not re-default inline.
const (
	DefaultTotalMarks     = 100
	DefaultPassingMarks   = 40
	DefaultMaxAttempts    = 1
	DefaultReminderBefore = 24 // hours
	DefaultStartTime      = "00:00"
	DefaultEndTime        = "23:59"
)

var (
	errTotalMarks   = errors.New("totalMarks must be greater than 0")
	errPassingMarks = errors.New("passingMarks cannot be negative")
	errDateOrder    = errors.New("startDate must be before endDate")
)

// Config is a fully resolved availability configuration: every field holds
// either a stored value or its documented default. Dates are "2006-01-02"
// strings, times of day are 24h "HH:MM"; both are interpreted in local time.
type Config struct {
	TotalMarks              int        `json:"totalMarks"`
	PassingMarks            int        `json:"passingMarks"`
	StartDate               string     `json:"startDate,omitempty"`
	StartTime               string     `json:"startTime,omitempty"`
	EndDate                 string     `json:"endDate,omitempty"`
	EndTime                 string     `json:"endTime,omitempty"`
	StudentAccess           AccessMode `json:"studentAccess"`
	AllowMultipleAttempts   bool       `json:"allowMultipleAttempts"`
	MaxAttempts             int        `json:"maxAttempts,omitempty"`
	EnableReminder          bool       `json:"enableReminder"`
	ReminderBefore          int        `json:"reminderBefore"`
	SendNotificationOnStart bool       `json:"sendNotificationOnStart"`
	AutoUnavailable         bool       `json:"autoUnavailable"`
	ShowResults             bool       `json:"showResults"`
	ShuffleQuestions        bool       `json:"shuffleQuestions"`

	// Extra carries unknown keys through untouched (forward compatibility).
	Extra map[string]interface{} `json:"-"`
}

// ConfigPatch is a partial config: nil fields are "not provided". It is both
// the stored document shape and the PUT request body.
type ConfigPatch struct {
	TotalMarks              *int        `json:"totalMarks,omitempty" validate:"omitempty,gt=0"`
	PassingMarks            *int        `json:"passingMarks,omitempty" validate:"omitempty,gte=0"`
	StartDate               *string     `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime               *string     `json:"startTime,omitempty" validate:"omitempty,hhmm"`
	EndDate                 *string     `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndTime                 *string     `json:"endTime,omitempty" validate:"omitempty,hhmm"`
	StudentAccess           *AccessMode `json:"studentAccess,omitempty" validate:"omitempty,oneof=online offline disabled"`
	AllowMultipleAttempts   *bool       `json:"allowMultipleAttempts,omitempty"`
	MaxAttempts             *int        `json:"maxAttempts,omitempty" validate:"omitempty,gte=1"`
	EnableReminder          *bool       `json:"enableReminder,omitempty"`
	ReminderBefore          *int        `json:"reminderBefore,omitempty" validate:"omitempty,gte=1"`
	SendNotificationOnStart *bool       `json:"sendNotificationOnStart,omitempty"`
	AutoUnavailable         *bool       `json:"autoUnavailable,omitempty"`
	ShowResults             *bool       `json:"showResults,omitempty"`
	ShuffleQuestions        *bool       `json:"shuffleQuestions,omitempty"`

	Extra map[string]interface{} `json:"-"`
}

// Validate runs field-level checks on the provided fields only. Cross-field
// checks (start < end) run on the merged Config, see Config.Validate.
func (p *ConfigPatch) Validate() error {
	return core.Validate.Struct(p)
}

// Resolve shallow-merges the given patches, later patches winning, over the
// documented defaults.
//
// maxAttempts defaults to 1 only while allowMultipleAttempts is false; with
// multiple attempts allowed and no explicit cap, 0 means uncapped.
func Resolve(patches ...ConfigPatch) Config {
	cfg := Config{
		TotalMarks:      DefaultTotalMarks,
		PassingMarks:    DefaultPassingMarks,
		StudentAccess:   AccessOnline,
		ReminderBefore:  DefaultReminderBefore,
		AutoUnavailable: true,
		ShowResults:     true,
	}
	extra := make(map[string]interface{})

	for _, p := range patches {
		if p.TotalMarks != nil {
			cfg.TotalMarks = *p.TotalMarks
		}
		if p.PassingMarks != nil {
			cfg.PassingMarks = *p.PassingMarks
		}
		if p.StartDate != nil {
			cfg.StartDate = *p.StartDate
		}
		if p.StartTime != nil {
			cfg.StartTime = *p.StartTime
		}
		if p.EndDate != nil {
			cfg.EndDate = *p.EndDate
		}
		if p.EndTime != nil {
			cfg.EndTime = *p.EndTime
		}
		if p.StudentAccess != nil {
			cfg.StudentAccess = *p.StudentAccess
		}
		if p.AllowMultipleAttempts != nil {
			cfg.AllowMultipleAttempts = *p.AllowMultipleAttempts
		}
		if p.MaxAttempts != nil {
			cfg.MaxAttempts = *p.MaxAttempts
		}
		if p.EnableReminder != nil {
			cfg.EnableReminder = *p.EnableReminder
		}
		if p.ReminderBefore != nil {
			cfg.ReminderBefore = *p.ReminderBefore
		}
		if p.SendNotificationOnStart != nil {
			cfg.SendNotificationOnStart = *p.SendNotificationOnStart
		}
		if p.AutoUnavailable != nil {
			cfg.AutoUnavailable = *p.AutoUnavailable
		}
		if p.ShowResults != nil {
			cfg.ShowResults = *p.ShowResults
		}
		if p.ShuffleQuestions != nil {
			cfg.ShuffleQuestions = *p.ShuffleQuestions
		}
		for k, v := range p.Extra {
			extra[k] = v
		}
	}

	if !cfg.AllowMultipleAttempts && cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if len(extra) > 0 {
		cfg.Extra = extra
	}
	return cfg
}

// Validate enforces the write-path invariants on a resolved config.
// It is not run on the read path.
func (c Config) Validate() error {
	if c.TotalMarks <= 0 {
		return core.NewValidationError(errTotalMarks, core.FieldError{Field: "totalMarks", Error: errTotalMarks.Error()})
	}
	if c.PassingMarks < 0 {
		return core.NewValidationError(errPassingMarks, core.FieldError{Field: "passingMarks", Error: errPassingMarks.Error()})
	}
	if c.StartTime != "" && !core.MatchesHHMM(c.StartTime) {
		err := TemporalParseError{Field: "startTime", Value: c.StartTime}
		return core.NewValidationError(err, core.FieldError{Field: "startTime", Error: err.Error()})
	}
	if c.EndTime != "" && !core.MatchesHHMM(c.EndTime) {
		err := TemporalParseError{Field: "endTime", Value: c.EndTime}
		return core.NewValidationError(err, core.FieldError{Field: "endTime", Error: err.Error()})
	}
	if c.StartDate != "" && c.EndDate != "" {
		start, err := c.StartInstant()
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "startDate", Error: err.Error()})
		}
		end, err := c.DeadlineInstant()
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "endDate", Error: err.Error()})
		}
		if !start.Before(*end) {
			return core.NewValidationError(errDateOrder, core.FieldError{Field: "startDate", Error: errDateOrder.Error()})
		}
	}
	return nil
}

// JSON round-trip: known fields bind to the struct, unknown keys survive in
// Extra so future platform fields are not dropped on rewrite.

var (
	configKeys      = jsonKeys(reflect.TypeOf(Config{}))
	configPatchKeys = jsonKeys(reflect.TypeOf(ConfigPatch{}))
)

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := strings.SplitN(t.Field(i).Tag.Get("json"), ",", 2)[0]
		if tag != "" && tag != "-" {
			keys[tag] = struct{}{}
		}
	}
	return keys
}

func marshalWithExtra(v interface{}, extra map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return data, nil
	}
	m := make(map[string]interface{})
	if err = json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k, val := range extra {
		if _, known := m[k]; !known {
			m[k] = val
		}
	}
	return json.Marshal(m)
}

func unmarshalExtra(data []byte, known map[string]struct{}) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for k := range m {
		if _, ok := known[k]; ok {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	return marshalWithExtra(alias(c), c.Extra)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	type alias Config
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unmarshalExtra(data, configKeys)
	if err != nil {
		return err
	}
	*c = Config(a)
	c.Extra = extra
	return nil
}

func (p ConfigPatch) MarshalJSON() ([]byte, error) {
	type alias ConfigPatch
	return marshalWithExtra(alias(p), p.Extra)
}

func (p *ConfigPatch) UnmarshalJSON(data []byte) error {
	type alias ConfigPatch
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := unmarshalExtra(data, configPatchKeys)
	if err != nil {
		return err
	}
	*p = ConfigPatch(a)
	p.Extra = extra
	return nil
}
