// Package collector wires a frame source, the J1939 decoder and a sink
// into a batching telemetry collector with at-least-once delivery.
package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetlink/cantel/frame"
	"github.com/fleetlink/cantel/internal"
	"github.com/fleetlink/cantel/j1939"
	"github.com/fleetlink/cantel/mapping"
	"github.com/fleetlink/cantel/sink"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Collector struct {
	tel *internal.Telemetry

	cfg *Config

	decoder *j1939.Decoder
	source  frame.Source
	sink    sink.Sink

	queue *readingQueue

	// flushMu serializes flushes: the tick loop and the final drain in
	// Stop must never flush concurrently.
	flushMu   sync.Mutex
	lastFlush time.Time

	runCtx context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup

	// Telemetry metrics
	flushedReadings metric.Int64Counter
	failedFlushes   metric.Int64Counter
	aboveHighWater  atomic.Bool
}

func New(cfg *Config, model *mapping.Model, source frame.Source, s sink.Sink) *Collector {
	tel := internal.NewTelemetry("collector", "batch")

	c := &Collector{
		tel: tel,

		cfg: cfg,

		decoder: j1939.NewDecoder(cfg.EquipmentID, model),
		source:  source,
		sink:    s,

		queue: newReadingQueue(),

		wg: &sync.WaitGroup{},

		flushedReadings: tel.NewCounter("flushed_readings"),
		failedFlushes:   tel.NewCounter("failed_flushes"),
	}

	tel.NewGauge("queue_depth", func() int64 { return int64(c.queue.Len()) })

	return c
}

// Start brings the collector fully up or fails before any frame is
// processed. A bus attach failure is not a startup error: the source comes
// up degraded with zero throughput.
func (c *Collector) Start(ctx context.Context) error {
	if err := c.source.Init(ctx); err != nil {
		return err
	}

	c.runCtx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
	c.lastFlush = time.Now()

	c.wg.Add(2)

	go func() {
		defer c.wg.Done()
		c.source.Run(c.runCtx, c.handleFrame)
	}()

	go func() {
		defer c.wg.Done()
		c.runFlushLoop(c.runCtx)
	}()

	c.tel.LogInfo("started",
		"equipment_id", c.cfg.EquipmentID,
		"max_batch_size", c.cfg.MaxBatchSize,
		"flush_interval", c.cfg.FlushInterval)

	return nil
}

// handleFrame runs on the source goroutine. The decode path never blocks,
// it only appends to the queue.
func (c *Collector) handleFrame(f frame.Frame) {
	readings := c.decoder.Decode(c.runCtx, f)
	if len(readings) == 0 {
		return
	}

	c.queue.Enqueue(readings...)

	if depth := c.queue.Len(); depth >= c.cfg.QueueHighWater {
		if c.aboveHighWater.CompareAndSwap(false, true) {
			c.tel.LogWarn("queue above high-water mark", "depth", depth)
		}
	} else {
		c.aboveHighWater.Store(false)
	}
}

func (c *Collector) runFlushLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.maybeFlush(ctx)
		}
	}
}

// maybeFlush fires a flush when either trigger holds: the queue reached the
// batch size, or the flush interval elapsed with readings pending.
func (c *Collector) maybeFlush(ctx context.Context) {
	depth := c.queue.Len()
	if depth == 0 {
		return
	}

	if depth >= c.cfg.MaxBatchSize || time.Since(c.lastFlush) >= c.cfg.FlushInterval {
		c.flush(ctx)
	}
}

// flush dequeues one batch and delivers it. On any delivery error the whole
// batch goes back to the front of the queue: possible duplicates, no loss.
func (c *Collector) flush(ctx context.Context) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	ctx, span := c.tel.NewTrace(ctx, "flush batch")
	defer span.End()

	batch := c.queue.DequeueBatch(c.cfg.MaxBatchSize)
	if len(batch) == 0 {
		return
	}

	span.SetAttributes(attribute.Int("batch_size", len(batch)))

	if err := c.sink.Deliver(ctx, batch); err != nil {
		c.queue.RequeueFront(batch)
		c.failedFlushes.Add(ctx, 1)
		c.tel.LogWarn("flush failed, batch requeued",
			"batch_size", len(batch), "queue_depth", c.queue.Len(), "err", err)
		return
	}

	c.lastFlush = time.Now()
	c.flushedReadings.Add(ctx, int64(len(batch)))
}

// Stop halts the source and the tick loop, then drains the queue with
// final synchronous flush attempts. Safe to call while a flush is in
// flight: the flush mutex serializes them.
func (c *Collector) Stop() {
	c.tel.LogInfo("stopping")

	c.source.Stop()
	c.cancel()
	c.wg.Wait()

	// Final drain: one attempt per remaining batch, stop at first failure.
	ctx := context.Background()
	for c.queue.Len() > 0 {
		before := c.queue.Len()
		c.flush(ctx)
		if c.queue.Len() >= before {
			c.tel.LogWarn("final flush failed, dropping remaining readings on exit",
				"queue_depth", c.queue.Len())
			break
		}
	}

	c.tel.LogInfo("stopped")
}
