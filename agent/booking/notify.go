package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

// Publisher delivers body to destination and returns the message id.
// dedupID is stable for one confirmation so a retried publish is dropped.
type Publisher func(ctx context.Context, destination string, body []byte, dedupID string) (string, error)

// Request is the booking request handed to shop staff once a customer
// confirms. Nothing is scheduled automatically.
type Request struct {
	SessionID   string             `json:"session_id"`
	SequenceID  int64              `json:"sequence_id"`
	Appointment contractx.SlotData `json:"appointment"`
	ConfirmedAt time.Time          `json:"confirmed_at"`
}

type Notifier struct {
	publish     Publisher
	destination string
}

func NewNotifier(publish Publisher, destination string) (*Notifier, error) {
	if publish == nil {
		return nil, errors.New("booking publisher is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("booking destination is required")
	}
	return &Notifier{publish: publish, destination: destination}, nil
}

func (n *Notifier) Notify(ctx context.Context, req Request) (string, error) {
	if len(req.Appointment) == 0 {
		return "", fmt.Errorf("%w: empty appointment", contractx.ErrValidation)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal booking request: %w", err)
	}
	return n.publish(ctx, n.destination, body, req.SessionID+":"+strconv.FormatInt(req.SequenceID, 10))
}
