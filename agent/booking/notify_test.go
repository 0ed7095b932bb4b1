package booking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Chative-Bike-Shop-Assistant/agent/contract"
)

func TestNotifierPublishesRequest(t *testing.T) {
	t.Parallel()

	var gotDest, gotDedup string
	var got Request
	n, err := NewNotifier(func(_ context.Context, destination string, body []byte, dedupID string) (string, error) {
		gotDest, gotDedup = destination, dedupID
		require.NoError(t, json.Unmarshal(body, &got))
		return "msg_1", nil
	}, " https://shop.example/bookings ")
	require.NoError(t, err)

	confirmedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := n.Notify(context.Background(), Request{
		SessionID:   "s1",
		SequenceID:  12,
		Appointment: fullData(),
		ConfirmedAt: confirmedAt,
	})
	require.NoError(t, err)
	require.Equal(t, "msg_1", id)
	require.Equal(t, "https://shop.example/bookings", gotDest)
	require.Equal(t, "s1:12", gotDedup)
	require.Equal(t, fullData(), got.Appointment)
	require.True(t, confirmedAt.Equal(got.ConfirmedAt))
}

func TestNotifierRejectsEmptyAppointment(t *testing.T) {
	t.Parallel()

	n, err := NewNotifier(func(context.Context, string, []byte, string) (string, error) {
		t.Fatal("publish must not be called")
		return "", nil
	}, "dest")
	require.NoError(t, err)

	_, err = n.Notify(context.Background(), Request{SessionID: "s1"})
	require.ErrorIs(t, err, contractx.ErrValidation)
}

func TestNewNotifierValidates(t *testing.T) {
	t.Parallel()

	_, err := NewNotifier(nil, "dest")
	require.Error(t, err)
	_, err = NewNotifier(func(context.Context, string, []byte, string) (string, error) { return "", nil }, "  ")
	require.Error(t, err)
}
