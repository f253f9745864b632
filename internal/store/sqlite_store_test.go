package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"elevenlabs-mcp/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "ledger.sqlite"))
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return st
}

func TestSQLiteStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := []model.GeneratedFile{
		{Tool: "text_to_speech", Path: "/tmp/a.mp3", SizeBytes: 10, CreatedAt: base},
		{Tool: "text_to_sound_effects", Path: "/tmp/b.mp3", SizeBytes: 20, CreatedAt: base.Add(time.Second)},
		{Tool: "text_to_speech", Path: "/tmp/c.mp3", SizeBytes: 30, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, r := range rows {
		if err := st.Record(ctx, r); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	all, err := st.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 3 || all[0].Path != "/tmp/c.mp3" || all[2].Path != "/tmp/a.mp3" {
		t.Fatalf("unexpected order: %#v", all)
	}
	if all[0].ID == "" || all[0].ID == all[1].ID {
		t.Fatalf("expected generated unique ids: %#v", all)
	}
	if !all[1].CreatedAt.Equal(base.Add(time.Second)) || all[1].SizeBytes != 20 {
		t.Fatalf("fields not persisted: %#v", all[1])
	}

	tts, err := st.Recent(ctx, "text_to_speech", 1)
	if err != nil {
		t.Fatalf("Recent with tool failed: %v", err)
	}
	if len(tts) != 1 || tts[0].Path != "/tmp/c.mp3" {
		t.Fatalf("unexpected filtered rows: %#v", tts)
	}
}

func TestSQLiteStore_RecordValidatesAndDefaults(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	st.newID = func() string { return "fixed-id" }

	if err := st.Record(ctx, model.GeneratedFile{Path: "/tmp/x"}); err == nil {
		t.Fatalf("expected error for missing tool")
	}

	before := time.Now().Add(-time.Second)
	if err := st.Record(ctx, model.GeneratedFile{Tool: "speech_to_text", Path: "/tmp/x.txt"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	got, err := st.Recent(ctx, "", 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "fixed-id" || got[0].CreatedAt.Before(before) {
		t.Fatalf("unexpected defaults: %#v", got)
	}

	if err := st.Record(ctx, model.GeneratedFile{Tool: "speech_to_text", Path: "/tmp/y.txt"}); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := st.Record(ctx, model.GeneratedFile{
			Tool:      "isolate_audio",
			Path:      fmt.Sprintf("/tmp/%d.mp3", i),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	n, err := st.DeleteOlderThan(ctx, base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows removed, got %d", n)
	}
	left, err := st.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(left) != 2 || left[1].Path != "/tmp/2.mp3" {
		t.Fatalf("unexpected remaining rows: %#v", left)
	}
}

func TestSQLiteStore_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- st.Record(ctx, model.GeneratedFile{Tool: "text_to_speech", Path: fmt.Sprintf("/tmp/%d", i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Record failed: %v", err)
		}
	}

	got, err := st.Recent(ctx, "", 100)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(got))
	}
}

func TestSQLiteStore_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.sqlite")

	st := NewSQLiteStore(path)
	if err := st.Record(ctx, model.GeneratedFile{Tool: "text_to_voice", Path: "/tmp/v.mp3"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewSQLiteStore(path)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.Recent(ctx, "text_to_voice", 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected persisted row, got %#v", got)
	}
}
