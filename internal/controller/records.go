package controller

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"

	"github.com/bidwatch/koneps-sync/internal/entity"
	"github.com/bidwatch/koneps-sync/internal/store"
)

type recordsHandler struct {
	notices  *store.NoticeRepo
	awards   *store.AwardRepo
	validate *validator.Validate
}

func newRecordsHandler(outer *echo.Group, notices *store.NoticeRepo, awards *store.AwardRepo, v *validator.Validate) *recordsHandler {
	h := &recordsHandler{notices: notices, awards: awards, validate: v}

	outer.GET("/notices", h.ListNotices)
	outer.GET("/awards", h.ListAwards)

	return h
}

type listInput struct {
	Limit  int `query:"limit" validate:"gte=0,lte=100"`
	Offset int `query:"offset" validate:"gte=0"`
}

type listResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// GET /api/notices
func (h *recordsHandler) ListNotices(c echo.Context) error {
	var input listInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}

	pg := entity.NewPage(input.Limit, input.Offset)
	notices, err := h.notices.List(c.Request().Context(), pg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	total, err := h.notices.Count(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}

	return c.JSON(http.StatusOK, listResponse{Items: notices, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}

// GET /api/awards
func (h *recordsHandler) ListAwards(c echo.Context) error {
	var input listInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}

	pg := entity.NewPage(input.Limit, input.Offset)
	awards, err := h.awards.List(c.Request().Context(), pg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	total, err := h.awards.Count(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}

	return c.JSON(http.StatusOK, listResponse{Items: awards, Total: total, Limit: pg.Limit, Offset: pg.Offset})
}
