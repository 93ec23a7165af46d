package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

var ErrNotFound = errors.New("game not found")

// Repository 按 ID 读写游戏。实现返回副本：
// 修改返回的游戏在保存前不会生效。
type Repository interface {
	Get(ctx context.Context, id string) (*game.Game, error)
	List(ctx context.Context) ([]*game.Game, error)
	Save(ctx context.Context, g *game.Game) error
	Exists(ctx context.Context, id string) (bool, error)
}

// Locker 按游戏 ID 串行化读取-修改-保存。
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewLocker 创建一个空的 Locker。
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock 阻塞直到拿到该游戏的锁，返回释放函数。
func (l *Locker) Lock(id string) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &entry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
