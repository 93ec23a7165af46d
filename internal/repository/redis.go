package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/millionaire/backend/internal/model/game"
)

type redisRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisRepository 将每局游戏以 JSON 字符串存在 "game:<id>" 下。
func NewRedisRepository(client *redis.Client) Repository {
	return &redisRepository{
		client: client,
		prefix: "game:",
	}
}

func (r *redisRepository) key(id string) string {
	return r.prefix + id
}

func (r *redisRepository) Get(ctx context.Context, id string) (*game.Game, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func (r *redisRepository) List(ctx context.Context) ([]*game.Game, error) {
	var games []*game.Game

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}

		var g game.Game
		if err := json.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Val(), err)
		}
		games = append(games, &g)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(games, func(i, j int) bool {
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

func (r *redisRepository) Save(ctx context.Context, g *game.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return err
	}
	// 游戏不过期，不设置 TTL
	return r.client.Set(ctx, r.key(g.ID), data, 0).Err()
}

func (r *redisRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	return n > 0, err
}
