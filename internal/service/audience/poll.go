package audience

import (
	"context"
	"time"

	"github.com/zhouzirui/millionaire/backend/internal/logger"
)

// Poll 每个间隔执行一次 recount，直到 ctx 取消；
// 随后在不受取消影响的 context 上再执行最后一次并返回其错误。
// 中间轮次的错误只记录日志，轮询继续。
func Poll(ctx context.Context, interval time.Duration, recount func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return recount(context.WithoutCancel(ctx))
		case <-ticker.C:
			if err := recount(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				logger.Warn("audience recount failed", "error", err)
			}
		}
	}
}
