package background

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryTaskStore(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryTaskStore()

	result := &TaskResult{ProcessID: "p1", Type: TaskTypeAnalyze, Status: TaskStatusAccepted, CreatedAt: time.Now()}
	if err := store.Store(ctx, result); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// mutating the caller's copy must not leak into the store
	result.Status = TaskStatusFailure
	got, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != TaskStatusAccepted {
		t.Errorf("Status = %s, want ACCEPTED", got.Status)
	}

	got.Status = TaskStatusSuccess
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if again, _ := store.Get(ctx, "p1"); again.Status != TaskStatusSuccess {
		t.Errorf("Status after update = %s", again.Status)
	}

	if err := store.Update(ctx, &TaskResult{ProcessID: "missing"}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrTaskNotFound", err)
	}
	if err := store.Delete(ctx, "p1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "p1"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Get after delete error = %v", err)
	}
}

func TestInMemoryTaskStoreCleanupAndList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryTaskStore()
	store.now = func() time.Time { return now }

	store.Store(ctx, &TaskResult{ProcessID: "old", CreatedAt: now.Add(-48 * time.Hour)})
	store.Store(ctx, &TaskResult{ProcessID: "newer", CreatedAt: now.Add(-time.Minute)})
	store.Store(ctx, &TaskResult{ProcessID: "older", CreatedAt: now.Add(-time.Hour)})

	if err := store.Cleanup(ctx, 24*time.Hour); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d tasks, want 2", len(list))
	}
	if list[0].ProcessID != "older" || list[1].ProcessID != "newer" {
		t.Errorf("List() order = %s, %s; want older, newer", list[0].ProcessID, list[1].ProcessID)
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	for status, want := range map[TaskStatus]bool{
		TaskStatusAccepted:   false,
		TaskStatusProcessing: false,
		TaskStatusSuccess:    true,
		TaskStatusFailure:    true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
