package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/blogapi/internal/repository"
	"github.com/d60-Lab/blogapi/pkg/eventbus"
	"github.com/d60-Lab/blogapi/pkg/logger"
	"github.com/d60-Lab/blogapi/pkg/metrics"
)

// EventPublisher 下游消息总线
type EventPublisher interface {
	Publish(ctx context.Context, msgs []eventbus.Message) error
}

// RelayOptions 零值字段使用默认值
type RelayOptions struct {
	Workers      int
	BatchSize    int
	PollInterval time.Duration
	// ClaimLease 已领取但未完成的事件在租期过后重新投递（worker 崩溃）
	ClaimLease time.Duration
}

// OutboxRelay 轮询 outbox，把 pending 事件投递到消息总线
type OutboxRelay struct {
	outbox repository.OutboxRepository
	pub    EventPublisher
	opts   RelayOptions
}

func NewOutboxRelay(outbox repository.OutboxRepository, pub EventPublisher, opts RelayOptions) *OutboxRelay {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = 30 * time.Second
	}
	return &OutboxRelay{outbox: outbox, pub: pub, opts: opts}
}

// Start 启动若干 worker；返回的停止函数等待 worker 退出或 ctx 超时
func (r *OutboxRelay) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.loop(stop)
		}()
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *OutboxRelay) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(context.Background()); err != nil {
				logger.Warn("outbox relay batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce claims one batch and publishes it. Failed batches go back to
// pending with attempts incremented; claims older than the lease are taken
// over, so delivery is at-least-once.
func (r *OutboxRelay) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := r.outbox.ClaimPending(ctx, r.opts.BatchSize, time.Now().Add(-r.opts.ClaimLease))
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	ids := make([]string, len(batch))
	msgs := make([]eventbus.Message, len(batch))
	for i, ev := range batch {
		ids[i] = ev.ID
		msgs[i] = eventbus.Message{
			Key:   strconv.FormatUint(ev.RecipientID, 10),
			Type:  ev.EventType,
			Value: []byte(ev.Payload),
		}
	}
	if err := r.pub.Publish(ctx, msgs); err != nil {
		metrics.OutboxFailed(len(batch))
		if rerr := r.outbox.Release(ctx, ids); rerr != nil {
			logger.Error("outbox release failed", zap.Strings("ids", ids), zap.Error(rerr))
		}
		return 0, err
	}
	if err := r.outbox.MarkDone(ctx, ids); err != nil {
		return 0, err
	}
	now := time.Now()
	for _, ev := range batch {
		metrics.OutboxDelivered(now.Sub(ev.CreatedAt))
	}
	return len(batch), nil
}
