package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/ledgerguard/internal/domain"
)

// Dispatcher delivers one trigger synchronously.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger domain.Trigger, inv *domain.Invoice) Report
}

// Async hands dispatches to a single background worker. Notify never
// blocks; dispatches run in submission order after the caller has
// committed the triggering change.
type Async struct {
	dispatcher Dispatcher
	queue      *jobQueue
	pending    sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
	onReport   func(Report)
}

// AsyncOption configures an Async.
type AsyncOption func(*Async)

// WithReportHook calls fn with every finished report, on the worker
// goroutine.
func WithReportHook(fn func(Report)) AsyncOption {
	return func(a *Async) {
		a.onReport = fn
	}
}

// NewAsync starts the worker. Close stops it.
func NewAsync(d Dispatcher, logger *slog.Logger, opts ...AsyncOption) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{
		dispatcher: d,
		queue:      newJobQueue(),
		done:       make(chan struct{}),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Notify queues a dispatch. The context's values are kept but its
// cancellation is not, so a finished request does not abort delivery.
func (a *Async) Notify(ctx context.Context, trigger domain.Trigger, inv *domain.Invoice) {
	a.pending.Add(1)
	if !a.queue.Enqueue(job{ctx: context.WithoutCancel(ctx), trigger: trigger, invoice: inv}) {
		a.pending.Done()
		a.logger.Warn("notification dropped: dispatcher closed", "invoiceId", inv.ID, "trigger", trigger)
	}
}

// Wait blocks until every queued dispatch has finished.
func (a *Async) Wait() {
	a.pending.Wait()
}

// Close drains outstanding dispatches and stops the worker.
func (a *Async) Close() {
	a.queue.Close()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	for {
		if j, ok := a.queue.TryDequeue(); ok {
			a.process(j)
			continue
		}
		if a.queue.Drained() {
			return
		}
		<-a.queue.Wait()
	}
}

func (a *Async) process(j job) {
	defer a.pending.Done()
	report := a.dispatcher.Dispatch(j.ctx, j.trigger, j.invoice)
	if err := report.Err(); err != nil {
		a.logger.Warn("dispatch completed with failures",
			"invoiceId", j.invoice.ID,
			"trigger", j.trigger,
			"failures", len(report.Failures))
	}
	if a.onReport != nil {
		a.onReport(report)
	}
}
