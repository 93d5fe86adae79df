package eventstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/oraclelabs/oracle-voice/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeralDropsEverything(t *testing.T) {
	ctx := context.Background()
	es, err := Open(ctx, config.EventStoreConfig{RetentionMode: "ephemeral"}, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	if es.Enabled() {
		t.Fatal("ephemeral store must not be enabled")
	}
	if err := es.AppendTurn(ctx, Turn{SessionID: "s", Role: "user", Text: "hello"}); err != nil {
		t.Fatalf("append should be a no-op: %v", err)
	}
	turns, err := es.ListTurns(ctx, "s", 10)
	if err != nil || len(turns) != 0 {
		t.Fatalf("ephemeral store returned turns: %v, %v", turns, err)
	}
}

func TestAppendAndListTurns(t *testing.T) {
	cfg := config.EventStoreConfig{Path: filepath.Join(t.TempDir(), "oracle.db"), RetentionMode: "session"}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	ctx := context.Background()
	sessionID := "session-123"
	if err := es.BeginSession(ctx, sessionID, "vonnegut"); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := es.AppendTurn(ctx, Turn{SessionID: sessionID, Role: "user", Text: "what do you say about death"}); err != nil {
		t.Fatalf("append turn: %v", err)
	}
	if err := es.AppendTurn(ctx, Turn{SessionID: sessionID, Role: "oracle", Text: "So it goes.", Source: "faq", Engine: "neural"}); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	turns, err := es.ListTurns(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "oracle" {
		t.Fatalf("turn order wrong: %v", turns)
	}
	if turns[1].Source != "faq" {
		t.Fatalf("source = %q", turns[1].Source)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	cfg := config.EventStoreConfig{
		Path:          filepath.Join(t.TempDir(), "oracle.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
		MaxSessions:   1,
	}
	es, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open event store: %v", err)
	}
	t.Cleanup(func() { _ = es.Close() })

	ctx := context.Background()
	es.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := es.BeginSession(ctx, "old-session", "vonnegut"); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := es.AppendTurn(ctx, Turn{SessionID: "old-session", Role: "user", Text: "hello"}); err != nil {
		t.Fatalf("append turn: %v", err)
	}

	es.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := es.BeginSession(ctx, "new-session", "vonnegut"); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := es.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	turns, err := es.ListTurns(ctx, "old-session", 10)
	if err != nil {
		t.Fatalf("list turns: %v", err)
	}
	if len(turns) != 0 {
		t.Fatal("expected old session turns pruned")
	}
}
