package alerting

import (
	"context"
	"log/slog"
	"time"

	"github.com/medibox-api/internal/domain"
)

// Notifier receives newly created alerts for out-of-band delivery (SNS
// topic, email digest). Implementations decide which kinds they care about.
type Notifier interface {
	Notify(ctx context.Context, alerts []domain.Alert) error
}

// Poller drives the engine on two independent cadences: a once-per-minute
// dose tick and a faster low-stock tick. Errors in a pass are logged and the
// next tick retries; the poller never gives up until the context is done.
type Poller struct {
	engine           *Engine
	doseInterval     time.Duration
	lowStockInterval time.Duration
	notifiers        []Notifier
}

func NewPoller(engine *Engine, doseInterval, lowStockInterval time.Duration, notifiers ...Notifier) *Poller {
	if doseInterval <= 0 {
		doseInterval = time.Minute
	}
	if lowStockInterval <= 0 {
		lowStockInterval = 30 * time.Second
	}
	return &Poller{
		engine:           engine,
		doseInterval:     doseInterval,
		lowStockInterval: lowStockInterval,
		notifiers:        notifiers,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	doseTicker := time.NewTicker(p.doseInterval)
	defer doseTicker.Stop()
	lowStockTicker := time.NewTicker(p.lowStockInterval)
	defer lowStockTicker.Stop()

	// Run both passes right away. Tickers don't fire until a full period
	// has elapsed.
	p.dosePass(ctx)
	p.lowStockPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-doseTicker.C:
			p.dosePass(ctx)
		case <-lowStockTicker.C:
			p.lowStockPass(ctx)
		}
	}
}

func (p *Poller) dosePass(ctx context.Context) {
	created, err := p.engine.EvaluateDueDoses(ctx, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "dose evaluation pass failed", slog.Any("err", err))
	}
	p.fanOut(ctx, created)
}

func (p *Poller) lowStockPass(ctx context.Context) {
	created, err := p.engine.EvaluateLowStock(ctx, time.Now())
	if err != nil {
		slog.ErrorContext(ctx, "low-stock pass failed", slog.Any("err", err))
	}
	p.fanOut(ctx, created)
}

func (p *Poller) fanOut(ctx context.Context, alerts []domain.Alert) {
	if len(alerts) == 0 {
		return
	}
	slog.InfoContext(ctx, "alerts created", slog.Int("count", len(alerts)))
	for _, n := range p.notifiers {
		if err := n.Notify(ctx, alerts); err != nil {
			slog.WarnContext(ctx, "alert notifier failed", slog.Any("err", err))
		}
	}
}
