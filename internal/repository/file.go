package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

// FileRepository 在内存中保存全部游戏，每次保存时整体重写 JSON 文件。
type FileRepository struct {
	mu    sync.RWMutex
	path  string
	games map[string]*game.Game
}

// NewFileRepository 加载一次文件，文件不存在时从空存储开始。
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		path:  path,
		games: make(map[string]*game.Game),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("no games file found, starting empty", "path", path)
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read games file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.games); err != nil {
			return nil, fmt.Errorf("decode games file %s: %w", path, err)
		}
	}
	logger.Info("games loaded", "path", path, "count", len(r.games))
	return r, nil
}

func (r *FileRepository) Get(_ context.Context, id string) (*game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (r *FileRepository) List(_ context.Context) ([]*game.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]*game.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g.Clone())
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

func (r *FileRepository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.games[id]
	return ok, nil
}

// Save 保存游戏并重写整个文件，只有写入成功后
// 才会更新内存中的数据。
func (r *FileRepository) Save(_ context.Context, g *game.Game) error {
	if g == nil || g.ID == "" {
		return fmt.Errorf("save game: missing id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*game.Game, len(r.games)+1)
	for id, existing := range r.games {
		next[id] = existing
	}
	next[g.ID] = g.Clone()

	if err := r.write(next); err != nil {
		return err
	}
	r.games = next
	return nil
}

func (r *FileRepository) write(games map[string]*game.Game) error {
	data, err := json.MarshalIndent(games, "", "  ")
	if err != nil {
		return fmt.Errorf("encode games: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".games-*.json")
	if err != nil {
		return fmt.Errorf("create temp games file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write games file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close games file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace games file: %w", err)
	}
	return nil
}
