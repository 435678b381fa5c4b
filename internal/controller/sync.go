package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"

	"github.com/bidwatch/koneps-sync/internal/store"
	syncpkg "github.com/bidwatch/koneps-sync/internal/sync"
	"github.com/bidwatch/koneps-sync/internal/synclock"
)

type syncHandler struct {
	coordinator  *syncpkg.Coordinator
	validate     *validator.Validate
	maxRangeDays int
}

func newSyncHandler(outer *echo.Group, coordinator *syncpkg.Coordinator, v *validator.Validate, maxRangeDays int) *syncHandler {
	if maxRangeDays <= 0 {
		maxRangeDays = syncpkg.DefaultMaxRangeDays
	}
	h := &syncHandler{coordinator: coordinator, validate: v, maxRangeDays: maxRangeDays}

	outer.POST("/sync/notices", h.SyncNotices)
	outer.POST("/sync/awards", h.SyncAwards)

	return h
}

type syncInput struct {
	StartDate string `json:"start_date" validate:"required,len=8,numeric"`
	EndDate   string `json:"end_date" validate:"required,len=8,numeric"`
	MaxPages  int    `json:"max_pages" validate:"gte=0"`
}

// POST /api/sync/notices
func (h *syncHandler) SyncNotices(c echo.Context) error {
	return h.runSync(c, h.coordinator.SyncNotices)
}

// POST /api/sync/awards
func (h *syncHandler) SyncAwards(c echo.Context) error {
	return h.runSync(c, h.coordinator.SyncAwards)
}

func (h *syncHandler) runSync(c echo.Context, run func(ctx context.Context, start, end string, maxPages int) (*syncpkg.Result, error)) error {
	var input syncInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	if err := syncpkg.ValidateDateRange(input.StartDate, input.EndDate, h.maxRangeDays); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}

	result, err := run(c.Request().Context(), input.StartDate, input.EndDate, input.MaxPages)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoActiveKey):
			return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
		case errors.Is(err, synclock.ErrLocked):
			return c.JSON(http.StatusConflict, errorResponse{err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
		}
	}

	return c.JSON(http.StatusOK, result)
}
