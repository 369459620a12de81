// Package audit reports the outcome of workflow operations.
//
// Sinks are fire-and-forget: recording an event never fails the operation it
// describes.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OutcomeOK is the outcome of a successful operation.
const OutcomeOK = "ok"

// Event is the outcome of one workflow operation.
type Event struct {
	Op       string // e.g. "create_shipment", "confirm_receipt"
	Kind     string // shipment or request
	ID       string // tracking or request ID, when known
	Location int64
	User     string
	Outcome  string // OutcomeOK or an error code
	Err      error
	At       time.Time
}

// Sink receives workflow events.
type Sink interface {
	Record(ctx context.Context, e Event)
}

// Logger writes events to a slog logger.
type Logger struct {
	Log *slog.Logger
}

// Record implements Sink.
func (l Logger) Record(ctx context.Context, e Event) {
	attrs := []slog.Attr{
		slog.String("op", e.Op),
		slog.String("outcome", e.Outcome),
		slog.String("user", e.User),
	}
	if e.ID != "" {
		attrs = append(attrs, slog.String("kind", e.Kind), slog.String("id", e.ID))
	}
	if e.Location != 0 {
		attrs = append(attrs, slog.Int64("location", e.Location))
	}

	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
		l.Log.LogAttrs(ctx, slog.LevelWarn, "workflow operation failed", attrs...)
		return
	}
	l.Log.LogAttrs(ctx, slog.LevelInfo, "workflow operation", attrs...)
}

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "preskrba_workflow_operations_total",
	Help: "Workflow operations by outcome",
}, []string{"op", "outcome"})

// Metrics counts events by operation and outcome.
type Metrics struct{}

// Record implements Sink.
func (Metrics) Record(_ context.Context, e Event) {
	operationsTotal.WithLabelValues(e.Op, e.Outcome).Inc()
}

// Multi fans an event out to several sinks.
type Multi []Sink

// Record implements Sink.
func (m Multi) Record(ctx context.Context, e Event) {
	for _, s := range m {
		s.Record(ctx, e)
	}
}

// Async hands events to a wrapped sink from a single background goroutine.
// When the buffer is full, events are dropped and a warning is logged.
type Async struct {
	next   Sink
	log    *slog.Logger
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsync starts the delivery goroutine. Call Close to drain and stop it.
func NewAsync(next Sink, buffer int, log *slog.Logger) *Async {
	a := &Async{
		next:   next,
		log:    log,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		a.next.Record(context.Background(), e)
	}
}

// Record implements Sink. It never blocks. Events recorded after Close are
// dropped.
func (a *Async) Record(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.log.Warn("audit sink closed, dropping event", "op", e.Op, "id", e.ID)
		return
	}
	select {
	case a.events <- e:
	default:
		a.log.Warn("audit buffer full, dropping event", "op", e.Op, "id", e.ID)
	}
}

// Close delivers buffered events and stops the goroutine. It is safe to call
// more than once.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	<-a.done
}

// Discard drops every event.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(context.Context, Event) {}
