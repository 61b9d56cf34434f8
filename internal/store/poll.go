package store

import (
	"context"
	"sync"
	"time"

	"github.com/blues/tracker/internal/logger"
)

// Poll 定期拉取快照，只有指纹变化时才推送。
// 用于不支持推送的后端（PostgreSQL），通道容量为 1，消费者落后时只保留最新快照。
func Poll[T any](
	ctx context.Context,
	interval time.Duration,
	fetch func(ctx context.Context) ([]T, error),
	fingerprint func([]T) string,
) (<-chan []T, CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan []T, 1)

	var once sync.Once
	stop := func() { once.Do(cancel) }

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := ""
		first := true
		for {
			items, err := fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("Subscription poll failed: %v", err)
			} else if fp := fingerprint(items); first || fp != last {
				first = false
				last = fp
				Offer(ch, items)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return ch, stop
}

// Offer 非阻塞地推送最新值，丢弃尚未被消费的旧值
func Offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
