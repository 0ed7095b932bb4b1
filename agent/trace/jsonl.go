package trace

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	logFileName      = "log.jsonl"
	metadataFileName = "metadata.json"

	defaultMaxOpenFiles = 64
)

type Config struct {
	Enabled bool   `split_words:"true" default:"false"`
	Dir     string `split_words:"true" default:"./.traces"`
	Project string `split_words:"true" default:"bike-shop-assistant"`

	// MaxOpenFiles bounds the session logs kept open; the least recently
	// written one is closed first and reopened in append mode when needed.
	MaxOpenFiles int `split_words:"true" default:"64"`
}

// JSONLTracker appends entries to <Dir>/<Project>/<app_id>/log.jsonl and
// writes a metadata.json next to it when a session directory is created.
type JSONLTracker struct {
	dir     string
	project string
	maxOpen int
	now     func() time.Time

	mu     sync.Mutex
	files  map[string]*list.Element
	recent *list.List
}

type appLog struct {
	appID  string
	file   *os.File
	logger zerolog.Logger
}

type metadata struct {
	AppID     string    `json:"app_id"`
	Project   string    `json:"project"`
	Format    string    `json:"format"`
	CreatedAt time.Time `json:"created_at"`
}

func NewJSONLTracker(cfg Config) (*JSONLTracker, error) {
	if strings.TrimSpace(cfg.Dir) == "" || strings.TrimSpace(cfg.Project) == "" {
		return nil, fmt.Errorf("trace: dir and project are required")
	}
	maxOpen := cfg.MaxOpenFiles
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenFiles
	}
	return &JSONLTracker{
		dir:     cfg.Dir,
		project: cfg.Project,
		maxOpen: maxOpen,
		now:     time.Now,
		files:   make(map[string]*list.Element),
		recent:  list.New(),
	}, nil
}

func (t *JSONLTracker) Emit(_ context.Context, e Entry) error {
	if strings.TrimSpace(e.AppID) == "" {
		return fmt.Errorf("trace: entry without app_id")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	al, err := t.open(e.AppID)
	if err != nil {
		return err
	}

	ev := al.logger.Log().
		Str("type", string(e.Kind)).
		Str("app_id", e.AppID).
		Int64("sequence_id", e.SequenceID).
		Str("action", e.Action)

	switch e.Kind {
	case KindBeginEntry:
		ev = ev.Str("start_time", formatTime(e.StartTime)).
			Interface("inputs", orEmpty(e.Inputs))
	case KindEndEntry:
		ev = ev.Str("end_time", formatTime(e.EndTime)).
			Interface("result", e.Result).
			Interface("state", e.State)
		if e.Exception != "" {
			ev = ev.Str("exception", e.Exception)
		} else {
			ev = ev.Interface("exception", nil)
		}
	case KindBeginStream:
		ev = ev.Str("stream_init_time", formatTime(e.StreamInitTime))
	case KindEndStream:
		ev = ev.Str("end_time", formatTime(e.EndTime)).
			Int("items_streamed", e.ItemsStreamed)
	}
	ev.Send()
	return nil
}

func (t *JSONLTracker) open(appID string) (*appLog, error) {
	if el, ok := t.files[appID]; ok {
		t.recent.MoveToFront(el)
		return el.Value.(*appLog), nil
	}

	dir := filepath.Join(t.dir, t.project, filepath.Base(appID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace: create app dir: %w", err)
	}

	metaPath := filepath.Join(dir, metadataFileName)
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		raw, err := json.MarshalIndent(metadata{
			AppID:     appID,
			Project:   t.project,
			Format:    "jsonl",
			CreatedAt: t.now().UTC(),
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("trace: encode metadata: %w", err)
		}
		if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
			return nil, fmt.Errorf("trace: write metadata: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open log: %w", err)
	}
	for t.recent.Len() >= t.maxOpen {
		if err := t.closeElement(t.recent.Back()); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("trace: close evicted log: %w", err)
		}
	}
	al := &appLog{appID: appID, file: f, logger: zerolog.New(f)}
	t.files[appID] = t.recent.PushFront(al)
	return al, nil
}

func (t *JSONLTracker) closeElement(el *list.Element) error {
	al := t.recent.Remove(el).(*appLog)
	delete(t.files, al.appID)
	return al.file.Close()
}

// openCount reports how many session logs are currently open.
func (t *JSONLTracker) openCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recent.Len()
}

// Forget closes the log of one session, e.g. when it is destroyed.
func (t *JSONLTracker) Forget(appID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.files[appID]
	if !ok {
		return nil
	}
	return t.closeElement(el)
}

func (t *JSONLTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for t.recent.Len() > 0 {
		if err := t.closeElement(t.recent.Back()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
