package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTripIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	st := NewSessionState("s1", time.Now())
	st.BeginTurn("hello")
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	st.AppendAssistant("mutated after save")

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.ChatHistory) != 1 {
		t.Fatalf("store shares memory with caller: %d messages", len(loaded.ChatHistory))
	}

	loaded.AppendAssistant("mutated after load")
	again, _ := store.Load(ctx, "s1")
	if len(again.ChatHistory) != 1 {
		t.Fatalf("store shares memory with loader: %d messages", len(again.ChatHistory))
	}
}

func TestMemoryStoreDeleteAndMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Save(ctx, NewSessionState("s1", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}
	if _, err := store.Load(ctx, " "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Load() error = %v, want ErrInvalidSession", err)
	}
}
