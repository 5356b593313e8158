package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"BondPanel/internal/domain/models"
	domrepo "BondPanel/internal/domain/repository"
	"BondPanel/internal/usecase"
	xhttp "BondPanel/pkg/http"
	xlogger "BondPanel/pkg/logger"
	"BondPanel/pkg/util"
)

// PipelineEchoHandler exposes run control and read access to stored
// panels and factors.
type PipelineEchoHandler struct {
	logger *xlogger.Logger
	runs   *usecase.RunService
	store  domrepo.Storage
	// base outlives requests; runs started over HTTP stop only when it ends.
	base context.Context
	now  func() time.Time
}

func NewPipelineEchoHandler(base context.Context, logger *xlogger.Logger, runs *usecase.RunService, store domrepo.Storage) *PipelineEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PipelineEchoHandler{logger: logger, runs: runs, store: store, base: base, now: time.Now}
}

func (h *PipelineEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.POST("/runs", h.StartRun)
	g.GET("/runs/:id", h.GetRun)
	g.GET("/factors", h.Factors)
	g.GET("/bonds/:cusip/monthly", h.BondMonthly)
}

// StartRun accepts {"from": "YYYY-MM-DD", "to": "YYYY-MM-DD"} and answers
// 202 with the pending report.
func (h *PipelineEchoHandler) StartRun(c echo.Context) error {
	req := &RunWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, ok := util.ParseDate(req.From)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("from must be a date formatted as %s", util.DateLayout))
	}
	to, ok := util.ParseDate(req.To)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("to must be a date formatted as %s", util.DateLayout))
	}
	if to.Before(from) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("to must not be before from"))
	}

	report, err := h.runs.Start(c.Request().Context(), h.base, models.RunRequest{From: from, To: to})
	if errors.Is(err, usecase.ErrRunInProgress) {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("a run for this window is already in progress"))
	}
	if err != nil {
		h.logger.Error("start run", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderLocation, "/api/runs/"+report.ID)
	return xhttp.AcceptedResponse(c, report)
}

func (h *PipelineEchoHandler) GetRun(c echo.Context) error {
	id := c.Param("id")
	report, ok := h.runs.Get(id)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("run %s not found", id).WithParam("id", id))
	}
	return xhttp.SuccessResponse(c, report)
}

// Factors lists factor values; name is optional.
func (h *PipelineEchoHandler) Factors(c echo.Context) error {
	rng, err := xhttp.QueryDateRange(c, util.Day(h.now()))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	rows, err := h.store.QueryFactors(c.Request().Context(), c.QueryParam("name"), rng.From, rng.To)
	if err != nil {
		h.logger.Error("query factors", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("factor query failed").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.ListResponse(c, toFactorDTOs(rows), int64(len(rows)))
}

func (h *PipelineEchoHandler) BondMonthly(c echo.Context) error {
	cusip := util.NormalizeCode(c.Param("cusip"))
	if cusip == "" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("cusip is required"))
	}
	rng, err := xhttp.QueryDateRange(c, util.Day(h.now()))
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	rows, err := h.store.QueryMonthly(c.Request().Context(), cusip, rng.From, rng.To)
	if err != nil {
		h.logger.Error("query monthly", xlogger.String("cusip", cusip), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("monthly query failed").WithError(err))
	}
	return xhttp.ListResponse(c, toMonthlyDTOs(rows), int64(len(rows)))
}

func (h *PipelineEchoHandler) Health(c echo.Context) error {
	if err := h.store.Health(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"storage": "down"})
	}
	return xhttp.SuccessResponse(c, map[string]string{"storage": "ok"})
}
