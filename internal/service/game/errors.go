package game

import (
	"errors"

	"github.com/zhouzirui/millionaire/backend/internal/repository"
)

var (
	// ErrIllegalState 当前游戏状态不允许该操作
	ErrIllegalState = errors.New("illegal state")

	// ErrGenerationFormat 模型回复无法解析为题目
	ErrGenerationFormat = errors.New("generated question is malformed")

	// ErrGeneration 模型调用失败或超时
	ErrGeneration = errors.New("question generation failed")

	ErrInvalidLifeline = errors.New("invalid lifeline")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnavailable     = errors.New("collaborator not configured")
	ErrNotFound        = repository.ErrNotFound
)
