package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tathmini/core/assessment"
)

type assessmentApi struct {
	svc        *assessment.Service
	dispatcher *assessment.Dispatcher
	sweeper    *assessment.Sweeper
}

func registerAssessmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *assessment.Service,
	dispatcher *assessment.Dispatcher,
	sweeper *assessment.Sweeper,
) {
	api := assessmentApi{
		svc:        svc,
		dispatcher: dispatcher,
		sweeper:    sweeper,
	}

	ag := g.Group("/assessments", jwt)

	ag.GET("", api.query, staffMiddleware())
	ag.POST("/sweep", api.sweep, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id")
	dg.GET("", api.retrieve)
	dg.POST("/check-availability", api.checkAvailability)
	dg.GET("/config", api.retrieveConfig)
	dg.PUT("/config", api.updateConfig, staffMiddleware())
	dg.POST("/attempts", api.recordAttempt)

	ng := dg.Group("/notifications", staffMiddleware())
	ng.POST("/reminders", api.sendReminders)
	ng.POST("/availability", api.sendAvailability)
	ng.POST("/closure", api.sendClosure)
}

// Handlers

func (api *assessmentApi) query(ctx echo.Context) error {
	var filter assessment.QueryFilter
	if courseID := ctx.QueryParam("course_id"); courseID != "" {
		filter.CourseID = courseID
	}
	if pub := ctx.QueryParam("published"); pub != "" {
		published := pub == "true"
		filter.Published = &published
	}

	var ord Ordering
	ord.Bind(ctx)

	assessments, err := api.svc.Filter(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "filtering assessments")
	}
	return ctx.JSON(http.StatusOK, assessments)
}

func (api *assessmentApi) retrieve(ctx echo.Context) error {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}

	a, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	// students only see published assessments
	if !a.Published && !auth.IsAdmin() && !auth.IsTeacher() {
		return assessment.ErrNotFound
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assessmentApi) checkAvailability(ctx echo.Context) error {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}

	var data CheckAvailabilityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckAvailabilityRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	userID := data.UserID
	if userID == "" {
		userID = auth.UserID
	}

	verdict, err := api.svc.CheckAvailability(ctx.Request().Context(), auth, ctx.Param("id"), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newAvailabilityResponse(true, verdict))
}

func (api *assessmentApi) retrieveConfig(ctx echo.Context) error {
	cfg, err := api.svc.GetConfig(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *assessmentApi) updateConfig(ctx echo.Context) error {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}

	var patch assessment.ConfigPatch
	if err := ctx.Bind(&patch); err != nil {
		return errors.Wrap(err, "binding to ConfigPatch")
	}

	cfg, err := api.svc.UpdateConfig(ctx.Request().Context(), auth, ctx.Param("id"), patch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *assessmentApi) recordAttempt(ctx echo.Context) error {
	auth, err := getContextAuth(ctx)
	if err != nil {
		return err
	}

	var data CheckAvailabilityRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckAvailabilityRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	userID := data.UserID
	if userID == "" {
		userID = auth.UserID
	}

	att, err := api.svc.RecordAttempt(ctx.Request().Context(), auth, ctx.Param("id"), userID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, AttemptResponse{
		Success:   true,
		AttemptID: att.ID,
		CreatedAt: att.CreatedAt,
	})
}

func (api *assessmentApi) sendReminders(ctx echo.Context) error {
	return api.dispatch(ctx, api.dispatcher.SendReminders)
}

func (api *assessmentApi) sendAvailability(ctx echo.Context) error {
	return api.dispatch(ctx, api.dispatcher.SendAvailability)
}

func (api *assessmentApi) sendClosure(ctx echo.Context) error {
	return api.dispatch(ctx, api.dispatcher.SendClosure)
}

func (api *assessmentApi) dispatch(
	ctx echo.Context,
	send func(context.Context, assessment.Assessment) (int, error),
) error {
	reqCtx := ctx.Request().Context()
	a, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	sent, err := send(reqCtx, a)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SentCountResponse{Success: true, Sent: sent})
}

func (api *assessmentApi) sweep(ctx echo.Context) error {
	stats, err := api.sweeper.SweepAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "sweeping assessments")
	}
	return ctx.JSON(http.StatusOK, newSweepResponse(stats))
}
