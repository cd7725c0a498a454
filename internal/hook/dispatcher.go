package hook

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mjolnir/internal/grip"
)

// Config configures hook discovery and dispatch.
type Config struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
}

// DefaultConfig returns the default hook settings.
func DefaultConfig() Config {
	return Config{
		Dir:       "~/.mjolnir/hooks",
		TimeoutMs: 5000,
		Workers:   4,
		QueueSize: 64,
	}
}

// Timeout returns the per-execution timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Dispatcher delivers grip events to subscribed hooks away from the
// pipeline goroutine. Events are queued by Dispatch and executed by Run.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	workers  int
	queue    chan grip.Event
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(manager *Manager, executor *Executor, config Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = d.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = d.QueueSize
	}
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		workers:  config.Workers,
		queue:    make(chan grip.Event, config.QueueSize),
		logger:   logger,
	}
}

// Dispatch queues e for delivery. It never blocks; when the queue is full
// the event is dropped and false is returned.
func (d *Dispatcher) Dispatch(e grip.Event) bool {
	select {
	case d.queue <- e:
		return true
	default:
		d.logger.Warn("hook queue full, dropping event", zap.String("event", string(e.Type)))
		return false
	}
}

// Run delivers queued events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-d.queue:
			if err := d.Deliver(ctx, e); err != nil {
				d.logger.Error("hook delivery failed", zap.String("event", string(e.Type)), zap.Error(err))
			}
		}
	}
}

// Deliver runs every hook subscribed to e, at most Workers at a time, and
// waits for them. It returns the first failure.
func (d *Dispatcher) Deliver(ctx context.Context, e grip.Event) error {
	hooks := d.manager.ForEvent(e.Type)
	if len(hooks) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, h := range hooks {
		h := h
		g.Go(func() error {
			resp, err := d.executor.Execute(ctx, h, &Request{Event: e})
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("hook %s: %s", h.Manifest.Name, resp.Error)
			}
			d.logger.Debug("hook executed", zap.String("hook", h.Manifest.Name), zap.String("event", string(e.Type)))
			return nil
		})
	}

	return g.Wait()
}
