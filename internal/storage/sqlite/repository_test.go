package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/storage"
)

func TestRepositorySaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "bilancio.db")

	repo, err := NewRepository(path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	if _, err := repo.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, payload := range []string{`{"income":[],"expenses":[]}`, `{"income":[{"id":"a","title":"x","amount":1}],"expenses":[]}`} {
		if err := repo.Save(ctx, []byte(payload)); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if string(got) != payload {
			t.Fatalf("load = %s, want %s", got, payload)
		}
	}

	if ts, err := repo.UpdatedAt(ctx); err != nil || ts.IsZero() {
		t.Fatalf("updated_at = %v err=%v", ts, err)
	}
}

func TestRepositoryReopenAndKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bilancio.db")

	a, err := NewRepository(path, "a")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Save(ctx, []byte("A")); err != nil {
		t.Fatal(err)
	}
	a.Close()

	// Reopening reruns migrations as a no-op
	again, err := NewRepository(path, "a")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if got, _ := again.Load(ctx); string(got) != "A" {
		t.Fatalf("reopened load = %q", got)
	}

	b, err := NewRepository(path, "b")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if _, err := b.Load(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("keys are not isolated: %v", err)
	}
}
