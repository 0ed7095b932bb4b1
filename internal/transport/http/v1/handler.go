// Package v1 provides the session and chat HTTP handlers.
package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

// Turn is a running conversation turn.
type Turn interface {
	Recv() (orchestrator.Fragment, error)
	Result() (orchestrator.TurnResult, error)
}

type Service interface {
	CreateSession(ctx context.Context) (*statex.SessionState, error)
	Session(ctx context.Context, sessionID string) (*statex.SessionState, error)
	DestroySession(ctx context.Context, sessionID string) error
	HandleMessage(ctx context.Context, sessionID string, text string) (Turn, error)
}

type orchestratorService struct {
	*orchestrator.Orchestrator
}

func (s orchestratorService) HandleMessage(ctx context.Context, sessionID string, text string) (Turn, error) {
	stream, err := s.Orchestrator.HandleMessage(ctx, sessionID, text)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// FromOrchestrator adapts an orchestrator to Service.
func FromOrchestrator(o *orchestrator.Orchestrator) Service {
	return orchestratorService{Orchestrator: o}
}

// Handler handles HTTP requests.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)
	e.POST("/v1/sessions/:session_id/messages", h.PostMessage)

	e.GET("/healthz", h.Health)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// APIError is the body of every error response and error event.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

func classify(err error) (int, APIError) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, contractx.ErrUnknownSession):
		status, code = http.StatusNotFound, "unknown_session"
	case errors.Is(err, contractx.ErrTurnInFlight):
		status, code = http.StatusConflict, "turn_in_flight"
	case errors.Is(err, contractx.ErrValidation):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, contractx.ErrModelInvoke):
		status, code = http.StatusBadGateway, "model_unavailable"
	case errors.Is(err, contractx.ErrSchemaViolation):
		status, code = http.StatusBadGateway, "model_output_invalid"
	}
	return status, APIError{Code: code, Message: err.Error()}
}

func writeError(c echo.Context, err error) error {
	status, apiErr := classify(err)
	return c.JSON(status, errorResponse{Error: apiErr})
}
