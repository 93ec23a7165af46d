package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

func TestFileRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "games.json")

	repo, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("NewFileRepository err: %v", err)
	}

	g := &game.Game{
		ID:        "abcd1234",
		Title:     "Friday show",
		Score:     500,
		CreatedAt: time.Now().UTC(),
		Questions: []game.Question{{
			ID:      "q1",
			Correct: "B",
			Choices: []game.Choice{{Letter: "A"}, {Letter: "B", AudienceChoice: 3}},
		}},
	}
	if err := repo.Save(ctx, g); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	reopened, err := NewFileRepository(path)
	if err != nil {
		t.Fatalf("reopen err: %v", err)
	}
	got, err := reopened.Get(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Title != "Friday show" || got.Score != 500 {
		t.Fatalf("unexpected game: %+v", got)
	}
	if got.Questions[0].Choices[1].AudienceChoice != 3 {
		t.Fatalf("audience tally not persisted: %+v", got.Questions[0])
	}
}

func TestFileRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "games.json"))
	if err != nil {
		t.Fatalf("NewFileRepository err: %v", err)
	}

	if err := repo.Save(ctx, &game.Game{ID: "g1", Score: 0}); err != nil {
		t.Fatalf("Save err: %v", err)
	}

	loaded, _ := repo.Get(ctx, "g1")
	loaded.Score = 1000000

	again, _ := repo.Get(ctx, "g1")
	if again.Score != 0 {
		t.Fatalf("unsaved mutation leaked into the store: %d", again.Score)
	}
}

func TestFileRepositoryNotFound(t *testing.T) {
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "games.json"))
	if err != nil {
		t.Fatalf("NewFileRepository err: %v", err)
	}

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ok, _ := repo.Exists(context.Background(), "missing"); ok {
		t.Fatal("expected missing game to not exist")
	}
}

func TestFileRepositoryListOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(filepath.Join(t.TempDir(), "games.json"))
	if err != nil {
		t.Fatalf("NewFileRepository err: %v", err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"late", "early", "middle"} {
		offset := map[string]time.Duration{"early": 0, "middle": time.Minute, "late": time.Hour}[id]
		if err := repo.Save(ctx, &game.Game{ID: id, CreatedAt: base.Add(offset)}); err != nil {
			t.Fatalf("Save #%d err: %v", i, err)
		}
	}

	games, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(games) != 3 || games[0].ID != "early" || games[1].ID != "middle" || games[2].ID != "late" {
		t.Fatalf("unexpected order: %v, %v, %v", games[0].ID, games[1].ID, games[2].ID)
	}
}

func TestFileRepositoryRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}
	if _, err := NewFileRepository(path); err == nil {
		t.Fatal("expected decode error")
	}
}
