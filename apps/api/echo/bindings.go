package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/assessment"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	// CheckAvailabilityRequest carries the target student; teachers and
	// admins may check on behalf of any student.
	CheckAvailabilityRequest struct {
		UserID string `json:"userId" validate:"omitempty,uuid4"`
	}

	// AvailabilityResponse mirrors the platform's existing availability
	// payload shape.
	AvailabilityResponse struct {
		Success       bool       `json:"success"`
		Available     bool       `json:"available"`
		Status        string     `json:"status"`
		Reason        string     `json:"reason,omitempty"`
		AvailableAt   *time.Time `json:"availableAt,omitempty"`
		Deadline      *time.Time `json:"deadline,omitempty"`
		RemainingTime *int64     `json:"remainingTime,omitempty"`
	}

	AttemptResponse struct {
		Success   bool      `json:"success"`
		AttemptID string    `json:"attemptId"`
		CreatedAt time.Time `json:"createdAt"`
	}

	SentCountResponse struct {
		Success bool `json:"success"`
		Sent    int  `json:"sent"`
	}

	SweepResponse struct {
		Success  bool `json:"success"`
		Swept    int  `json:"swept"`
		Closed   int  `json:"closed"`
		Notified int  `json:"notified"`
		Failed   int  `json:"failed"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	return core.Validate.Struct(r)
}

func (r *CheckAvailabilityRequest) Validate() error {
	r.UserID = strings.ToLower(strings.TrimSpace(r.UserID))
	return core.Validate.Struct(r)
}

func newAvailabilityResponse(success bool, v assessment.Verdict) AvailabilityResponse {
	return AvailabilityResponse{
		Success:       success,
		Available:     v.Available,
		Status:        string(v.Status),
		Reason:        v.Reason,
		AvailableAt:   v.AvailableAt,
		Deadline:      v.Deadline,
		RemainingTime: v.RemainingTime,
	}
}

func newSweepResponse(stats assessment.SweepStats) SweepResponse {
	return SweepResponse{
		Success:  true,
		Swept:    stats.Swept,
		Closed:   stats.Closed,
		Notified: stats.NotifiedCount,
		Failed:   stats.Failed,
	}
}
