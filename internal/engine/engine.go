// Package engine is a minimal stand-in for the weather-station host: it emits
// loop packets on a fixed interval and archive records on a schedule, and
// dispatches them synchronously to bound handlers that may amend the record
// in place.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// EventKind selects which lifecycle event a handler is bound to.
type EventKind int

const (
	NewLoopPacket EventKind = iota
	NewArchiveRecord
)

// Record is the mutable payload handlers amend in place.
type Record map[string]any

// Event carries one record through the dispatch chain.
type Event struct {
	Kind   EventKind
	Record Record
}

// Handler receives an event synchronously, in bind order.
type Handler func(Event)

// Config holds the emission cadence.
type Config struct {
	LoopInterval    time.Duration
	ArchiveInterval time.Duration
	UnitSystem      int
}

// Engine delivers events sequentially from a single goroutine, so handlers
// never observe concurrent dispatch.
type Engine struct {
	cfg      Config
	handlers map[EventKind][]Handler
	log      *zap.SugaredLogger
}

func New(cfg Config, log *zap.SugaredLogger) *Engine {
	if cfg.LoopInterval <= 0 {
		cfg.LoopInterval = 10 * time.Second
	}
	if cfg.ArchiveInterval <= 0 {
		cfg.ArchiveInterval = 5 * time.Minute
	}
	return &Engine{
		cfg:      cfg,
		handlers: make(map[EventKind][]Handler),
		log:      log,
	}
}

// Bind registers a handler for an event kind. Not safe to call once Run has
// started.
func (e *Engine) Bind(kind EventKind, h Handler) {
	e.handlers[kind] = append(e.handlers[kind], h)
}

// Dispatch delivers one event to every bound handler, in bind order.
func (e *Engine) Dispatch(ev Event) {
	for _, h := range e.handlers[ev.Kind] {
		h(ev)
	}
}

// Run emits loop packets from a ticker and archive records from a cron
// schedule until the context is cancelled. The cron callback only signals a
// channel; all dispatching happens in this goroutine.
func (e *Engine) Run(ctx context.Context) error {
	c := cron.New()
	archive := make(chan time.Time, 1)
	sched := fmt.Sprintf("@every %ds", int(e.cfg.ArchiveInterval/time.Second))
	if _, err := c.AddFunc(sched, func() {
		select {
		case archive <- time.Now():
		default:
		}
	}); err != nil {
		return fmt.Errorf("archive schedule %q: %w", sched, err)
	}
	c.Start()
	defer c.Stop()

	ticker := time.NewTicker(e.cfg.LoopInterval)
	defer ticker.Stop()

	e.log.Infow("engine started",
		"loop_interval", e.cfg.LoopInterval,
		"archive_interval", e.cfg.ArchiveInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			e.Dispatch(Event{Kind: NewLoopPacket, Record: e.stamp(t, 0)})
		case t := <-archive:
			e.Dispatch(Event{Kind: NewArchiveRecord, Record: e.stamp(t, e.cfg.ArchiveInterval)})
		}
	}
}

// stamp builds a record with the host's standard columns. interval is in
// minutes on archive records, matching the persisted schema.
func (e *Engine) stamp(t time.Time, archiveInterval time.Duration) Record {
	rec := Record{
		"dateTime": t.Unix(),
		"usUnits":  e.cfg.UnitSystem,
	}
	if archiveInterval > 0 {
		rec["interval"] = int(archiveInterval / time.Minute)
	}
	return rec
}
