// Package mailqueue 提供邮件的异步投递队列。
//
// 请求处理路径上只做非阻塞入队，发送失败写日志，不影响请求结果。
package mailqueue

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SanjitSai/AspireTest/internal/pkg/notify"
)

// Message 表示一封待投递的邮件。
type Message struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher 持有固定 worker 池，从内存队列消费并通过 Notifier 发送。
type Dispatcher struct {
	notifier    notify.Notifier
	logger      *slog.Logger
	workers     int
	sendTimeout time.Duration
	messages    chan Message

	wg     sync.WaitGroup
	closed atomic.Bool

	// 指标统计
	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher 创建邮件投递队列。
//
// 参数:
//   - notifier: 实际的邮件发送器
//   - logger: 日志记录器
//   - workers: worker 数量（至少为 1）
//   - capacity: 队列容量（至少为 1）
//   - sendTimeout: 单封邮件的发送超时
func NewDispatcher(notifier notify.Notifier, logger *slog.Logger, workers int, capacity int, sendTimeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier:    notifier,
		logger:      logger,
		workers:     workers,
		sendTimeout: sendTimeout,
		messages:    make(chan Message, capacity),
	}
}

// Start 启动 worker 池，直到 ctx 被取消或调用 Shutdown。
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("mail worker stopped", slog.Int("worker_id", id))
			return
		case msg, ok := <-d.messages:
			if !ok {
				return
			}
			d.deliver(ctx, msg, id)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("mail delivery panic recovered",
				slog.Int("worker_id", workerID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.notifier.Send(sendCtx, msg.To, msg.Subject, msg.Body); err != nil {
		d.failed.Add(1)
		d.logger.Warn("send mail failed",
			slog.String("to", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()))
		return
	}
	d.sent.Add(1)
}

// Enqueue 将邮件放入队列，若队列已满或已关闭则丢弃并返回 false（非阻塞）。
func (d *Dispatcher) Enqueue(msg Message) bool {
	if d.closed.Load() {
		d.logger.Warn("mail queue closed, drop message", slog.String("to", msg.To))
		return false
	}

	select {
	case d.messages <- msg:
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn("mail queue full, drop message",
			slog.String("to", msg.To),
			slog.Int("capacity", cap(d.messages)))
		return false
	}
}

// Shutdown 优雅关闭：拒绝新邮件，等待在途邮件发送完成。
func (d *Dispatcher) Shutdown() {
	if d.closed.CompareAndSwap(false, true) {
		close(d.messages)
		d.wg.Wait()
	}
}

// Stats 返回累计的发送/失败/丢弃计数。
func (d *Dispatcher) Stats() (sent, failed, dropped int64) {
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}
