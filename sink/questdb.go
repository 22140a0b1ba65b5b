package sink

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fleetlink/cantel/internal"
	"github.com/fleetlink/cantel/j1939"
	qdb "github.com/questdb/go-questdb-client/v3"
	"go.opentelemetry.io/otel/attribute"
)

// QuestDB writes readings as ILP rows over HTTP. Used by bench and soak
// rigs where a full telemetry backend is overkill.
type QuestDB struct {
	tel *internal.Telemetry

	cfg        *QuestDBConfig
	senderPool *qdb.LineSenderPool

	// Telemetry metrics
	insertedRows atomic.Int64
}

func NewQuestDB(cfg *QuestDBConfig) (*QuestDB, error) {
	senderPool, err := qdb.PoolFromOptions(
		qdb.WithAddress(cfg.Address),
		qdb.WithHttp(),
		qdb.WithRetryTimeout(time.Second),
	)
	if err != nil {
		return nil, err
	}

	q := &QuestDB{
		tel: internal.NewTelemetry("sink", "questdb"),

		cfg:        cfg,
		senderPool: senderPool,
	}

	q.tel.NewGauge("inserted_rows", func() int64 { return q.insertedRows.Load() })

	return q, nil
}

func (q *QuestDB) Deliver(ctx context.Context, readings []j1939.Reading) error {
	ctx, span := q.tel.NewTrace(ctx, "deliver QuestDB rows")
	defer span.End()

	sender, err := q.senderPool.Sender(ctx)
	if err != nil {
		return err
	}
	defer sender.Close(ctx)

	for _, reading := range readings {
		err := sender.Table(q.cfg.Table).
			Symbol("equipment_id", reading.EquipmentID).
			Symbol("signal", reading.SignalName).
			Symbol("source", reading.Source).
			Symbol("status", reading.Status).
			StringColumn("unit", reading.Unit).
			Int64Column("spn", int64(reading.SPN)).
			Float64Column("value", reading.Value).
			At(ctx, reading.Timestamp)
		if err != nil {
			return err
		}
	}

	if err := sender.Flush(ctx); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("inserted_rows", len(readings)))
	q.insertedRows.Add(int64(len(readings)))

	return nil
}

func (q *QuestDB) Close() {
	if err := q.senderPool.Close(context.Background()); err != nil {
		q.tel.LogError("failed to close sender pool", err)
	}
}

var _ Sink = (*QuestDB)(nil)
