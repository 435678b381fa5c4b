package controller

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"

	"github.com/bidwatch/koneps-sync/internal/store"
	syncpkg "github.com/bidwatch/koneps-sync/internal/sync"
)

type configHandler struct {
	configs     *store.ConfigRepo
	coordinator *syncpkg.Coordinator
	validate    *validator.Validate
}

func newConfigHandler(outer *echo.Group, configs *store.ConfigRepo, coordinator *syncpkg.Coordinator, v *validator.Validate) *configHandler {
	h := &configHandler{configs: configs, coordinator: coordinator, validate: v}

	outer.GET("/config", h.GetConfig)
	outer.POST("/config", h.SetConfig)

	return h
}

type setConfigInput struct {
	ServiceKey string `json:"service_key" validate:"required,min=10"`
	Verify     bool   `json:"verify"`
}

// GET /api/config returns the active key, masked to its prefix.
func (h *configHandler) GetConfig(c echo.Context) error {
	key, err := h.configs.ActiveServiceKey(c.Request().Context())
	if err != nil {
		if errors.Is(err, store.ErrNoActiveKey) {
			return c.JSON(http.StatusNotFound, errorResponse{err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"service_key": maskKey(key)})
}

// POST /api/config stores a new active key, optionally probing the
// upstream with it first.
func (h *configHandler) SetConfig(c echo.Context) error {
	var input setConfigInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{"Input data is not formed correctly"})
	}
	if err := h.validate.Struct(input); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}

	if input.Verify {
		if err := h.coordinator.VerifyKey(c.Request().Context(), input.ServiceKey); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{"service key verification failed: " + err.Error()})
		}
	}

	if err := h.configs.SetServiceKey(c.Request().Context(), input.ServiceKey); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "service key saved"})
}

func maskKey(key string) string {
	const visible = 10
	if len(key) <= visible {
		return key
	}
	return key[:visible] + "..."
}
