package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateSession creates an empty session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	st, err := h.service.CreateSession(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// GetSession returns the stored state of a session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	st, err := h.service.Session(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// DeleteSession destroys a session.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	if err := h.service.DestroySession(c.Request().Context(), c.Param("session_id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
