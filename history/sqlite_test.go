package history_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tailored-agentic-units/roundtable/history"
	"github.com/tailored-agentic-units/roundtable/transcript"
)

func newTestStore(t *testing.T, maxPerAgent int) *history.SQLiteStore {
	t.Helper()
	store, err := history.NewSQLite(filepath.Join(t.TempDir(), "history.db"), maxPerAgent)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return store
}

func sampleMessages() []transcript.Message {
	return []transcript.Message{
		{ID: "m1", Sender: transcript.SenderUser, Text: "How do I treat a cold?"},
		{ID: "m2", Sender: transcript.SenderAgent, AgentID: "physician", AgentName: "Physician", Text: "Rest and fluids."},
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	rec := history.Record{ID: "h1", AgentID: "physician", Messages: sampleMessages()}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.AgentID != "physician" {
		t.Errorf("got AgentID %q", got.AgentID)
	}
	// 22-rune question, truncated to the 20-rune title prefix.
	if got.Title != "How do I treat a col..." {
		t.Errorf("title should derive from the first user message, got %q", got.Title)
	}
	if len(got.Messages) != 2 || got.Messages[1].AgentName != "Physician" {
		t.Errorf("transcript did not round-trip: %+v", got.Messages)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be set on save")
	}
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := newTestStore(t, 0)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, history.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_SaveOverwrites(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	rec := history.Record{ID: "h1", AgentID: "physician", Messages: sampleMessages()}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec.Messages = append(rec.Messages, transcript.Message{
		ID: "m3", Sender: transcript.SenderUser, Text: "Thanks!",
	})
	rec.Title = "Cold advice"
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.Get(ctx, "h1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Messages) != 3 {
		t.Errorf("got %d messages, want 3", len(got.Messages))
	}
	if got.Title != "Cold advice" {
		t.Errorf("got title %q", got.Title)
	}

	records, err := store.List(ctx, "physician")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("overwrite must not create a second record, got %d", len(records))
	}
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		rec := history.Record{
			ID:        fmt.Sprintf("h%d", i),
			AgentID:   "physician",
			Title:     fmt.Sprintf("conversation %d", i),
			Messages:  sampleMessages(),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	records, err := store.List(ctx, "physician")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"h2", "h1", "h0"} {
		if records[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, records[i].ID, want)
		}
	}
}

func TestSQLiteStore_ListIsolatesAgents(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	for _, agentID := range []string{"physician", "poet"} {
		rec := history.Record{ID: "h-" + agentID, AgentID: agentID, Messages: sampleMessages()}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	records, err := store.List(ctx, "poet")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].AgentID != "poet" {
		t.Errorf("got %+v, want only the poet's record", records)
	}
}

func TestSQLiteStore_EvictsBeyondCap(t *testing.T) {
	store := newTestStore(t, 5)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		rec := history.Record{
			ID:        fmt.Sprintf("h%d", i),
			AgentID:   "physician",
			Messages:  sampleMessages(),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	records, err := store.List(ctx, "physician")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("got %d records, want the cap of 5", len(records))
	}
	if records[0].ID != "h7" || records[4].ID != "h3" {
		t.Errorf("eviction should drop the oldest updates, kept %q..%q", records[0].ID, records[4].ID)
	}

	if _, err := store.Get(ctx, "h0"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("evicted record should be gone, got %v", err)
	}
}

func TestSQLiteStore_DeleteAndPurge(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := history.Record{ID: fmt.Sprintf("h%d", i), AgentID: "physician", Messages: sampleMessages()}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "not-there"); err != nil {
		t.Errorf("deleting a missing ID should be a no-op, got %v", err)
	}

	records, _ := store.List(ctx, "physician")
	if len(records) != 2 {
		t.Errorf("got %d records after delete, want 2", len(records))
	}

	if err := store.Purge(ctx, "physician"); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	records, _ = store.List(ctx, "physician")
	if len(records) != 0 {
		t.Errorf("got %d records after purge, want 0", len(records))
	}
}

func TestTitleFor(t *testing.T) {
	long := strings.Repeat("a", 30)

	tests := []struct {
		name     string
		messages []transcript.Message
		want     string
	}{
		{
			name:     "short question",
			messages: []transcript.Message{{Sender: transcript.SenderUser, Text: "Hello there"}},
			want:     "Hello there",
		},
		{
			name:     "long question truncated",
			messages: []transcript.Message{{Sender: transcript.SenderUser, Text: long}},
			want:     strings.Repeat("a", 20) + "...",
		},
		{
			name: "skips agent messages",
			messages: []transcript.Message{
				{Sender: transcript.SenderAgent, Text: "Welcome!"},
				{Sender: transcript.SenderUser, Text: "Actual question"},
			},
			want: "Actual question",
		},
		{
			name:     "no user message",
			messages: []transcript.Message{{Sender: transcript.SenderAgent, Text: "Welcome!"}},
			want:     "New conversation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := history.TitleFor(tt.messages); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfig_NewStore(t *testing.T) {
	cfg := history.DefaultConfig()
	store, err := history.NewStore(&cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store != nil {
		t.Error("empty path should disable history")
	}

	cfg.Path = filepath.Join(t.TempDir(), "h.db")
	store, err = history.NewStore(&cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if store == nil {
		t.Fatal("expected a store for a non-empty path")
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
