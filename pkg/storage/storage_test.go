package storage

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("couldn't create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Start(ctx); err != nil {
		t.Fatalf("couldn't start store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("couldn't migrate store: %v", err)
	}
	return store
}

func TestGenerationRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	gen := &Generation{
		ID: newID(t),
		TaskID: "task_123",
		Model:  "suno",
		Status: "pending",
		Prompt: "a dreamy synthwave track",
	}
	if err := store.SetGeneration(ctx, gen); err != nil {
		t.Fatalf("couldn't set generation: %v", err)
	}

	got, err := store.GetGenerationByTask(ctx, "task_123")
	if err != nil {
		t.Fatalf("couldn't get generation: %v", err)
	}
	if got.Prompt != gen.Prompt {
		t.Errorf("invalid prompt: %s", got.Prompt)
	}

	got.Status = "completed"
	got.Audio = "https://cdn.example.com/clip.mp3"
	if err := store.SetGeneration(ctx, got); err != nil {
		t.Fatalf("couldn't update generation: %v", err)
	}

	updated, err := store.GetGeneration(ctx, gen.ID)
	if err != nil {
		t.Fatalf("couldn't get generation: %v", err)
	}
	if updated.Status != "completed" || updated.Audio == "" {
		t.Errorf("invalid generation: %+v", updated)
	}
}

func TestGenerationNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetGeneration(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestNextGenerationFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, g := range []*Generation{
		{ID: newID(t), TaskID: "task_1", Status: "completed", Downloaded: true},
		{ID: newID(t), TaskID: "task_2", Status: "completed"},
		{ID: newID(t), TaskID: "task_3", Status: "pending"},
	} {
		if err := store.SetGeneration(ctx, g); err != nil {
			t.Fatalf("couldn't set generation: %v", err)
		}
	}

	next, err := store.NextGeneration(ctx,
		Where("status = ?", "completed"),
		Where("downloaded = ?", false),
	)
	if err != nil {
		t.Fatalf("couldn't get next generation: %v", err)
	}
	if next.TaskID != "task_2" {
		t.Errorf("invalid task id: %s", next.TaskID)
	}
}

func TestSettingRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetSetting(ctx, &Setting{ID: "webhook-secret", Value: "shhh"}); err != nil {
		t.Fatalf("couldn't set setting: %v", err)
	}
	got, err := store.GetSetting(ctx, "webhook-secret")
	if err != nil {
		t.Fatalf("couldn't get setting: %v", err)
	}
	if got.Value != "shhh" {
		t.Errorf("invalid value: %s", got.Value)
	}
	if err := store.DeleteSetting(ctx, "webhook-secret"); err != nil {
		t.Fatalf("couldn't delete setting: %v", err)
	}
	if _, err := store.GetSetting(ctx, "webhook-secret"); err != ErrNotFound {
		t.Errorf("expected not found error, got %v", err)
	}
}

func newID(t *testing.T) string {
	t.Helper()
	return ulid.Make().String()
}
