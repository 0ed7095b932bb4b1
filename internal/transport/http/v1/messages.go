package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/agents/orchestrator"
	statex "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/state"
)

type MessageRequest struct {
	Message string `json:"message"`
}

type deltaEvent struct {
	Text string `json:"text"`
}

type doneEvent struct {
	Message statex.Message       `json:"message"`
	State   *statex.SessionState `json:"state"`
}

// PostMessage runs one turn and streams it as server-sent events: delta
// events while the reply is produced, then one done or error event.
// POST /v1/sessions/:session_id/messages
func (h *Handler) PostMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: APIError{Code: "invalid_request", Message: "invalid request body"}})
	}

	sessionID := c.Param("session_id")
	turn, err := h.service.HandleMessage(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		return writeError(c, err)
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		frag, err := turn.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err := writeEvent(w, "delta", deltaEvent{Text: frag.Text}); err != nil {
			// Client gone; Result drains the rest and the turn is abandoned.
			log.Debug().Err(err).Str("session_id", sessionID).Msg("sse write failed")
			break
		}
	}

	res, err := turn.Result()
	if err != nil {
		_, apiErr := classify(err)
		log.Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		return writeEvent(w, "error", apiErr)
	}
	return writeEvent(w, "done", doneFrom(res))
}

func doneFrom(res orchestrator.TurnResult) doneEvent {
	return doneEvent{Message: res.Reply, State: res.State}
}

func writeEvent(w *echo.Response, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
