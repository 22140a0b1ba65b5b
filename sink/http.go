package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetlink/cantel/internal"
	"github.com/fleetlink/cantel/j1939"
	"go.opentelemetry.io/otel/attribute"
)

const deviceIDHeader = "X-Device-ID"

type readingPayload struct {
	EquipmentID string         `json:"equipmentId"`
	SensorType  string         `json:"sensorType"`
	Value       float64        `json:"value"`
	Unit        string         `json:"unit"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      string         `json:"status"`
	Context     payloadContext `json:"context"`
}

type payloadContext struct {
	Source   string `json:"source"`
	SPN      uint32 `json:"spn"`
	Protocol string `json:"protocol"`
}

// HTTP delivers one POST per reading, all readings of a batch in flight
// concurrently. The batch fails as a whole if any call fails: delivered
// readings may be re-sent on retry, which the at-least-once contract
// allows.
type HTTP struct {
	tel *internal.Telemetry

	cfg    *HTTPConfig
	client *http.Client

	// Telemetry metrics
	deliveredReadings atomic.Int64
	failedReadings    atomic.Int64
}

func NewHTTP(cfg *HTTPConfig) *HTTP {
	h := &HTTP{
		tel: internal.NewTelemetry("sink", "http"),

		cfg:    cfg,
		client: &http.Client{},
	}

	h.tel.NewGauge("delivered_readings", func() int64 { return h.deliveredReadings.Load() })
	h.tel.NewGauge("failed_readings", func() int64 { return h.failedReadings.Load() })

	return h
}

func (h *HTTP) Deliver(ctx context.Context, readings []j1939.Reading) error {
	ctx, span := h.tel.NewTrace(ctx, "deliver reading batch")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", len(readings)))

	// A stalled sink must not wedge the flush loop.
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	wg := &sync.WaitGroup{}
	errs := make([]error, len(readings))

	for idx, reading := range readings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[idx] = h.post(ctx, reading)
		}()
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			// The whole batch is requeued on failure, so every reading
			// in it counts as failed.
			h.failedReadings.Add(int64(len(readings)))
			return err
		}
	}

	h.deliveredReadings.Add(int64(len(readings)))

	return nil
}

func (h *HTTP) post(ctx context.Context, reading j1939.Reading) error {
	payload := readingPayload{
		EquipmentID: reading.EquipmentID,
		SensorType:  reading.SignalName,
		Value:       reading.Value,
		Unit:        reading.Unit,
		Timestamp:   reading.Timestamp,
		Status:      reading.Status,
		Context: payloadContext{
			Source:   reading.Source,
			SPN:      reading.SPN,
			Protocol: "j1939",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(deviceIDHeader, h.cfg.DeviceID)

	res, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sink returned status %d", res.StatusCode)
	}

	return nil
}

func (h *HTTP) Close() {
	h.client.CloseIdleConnections()
}

var _ Sink = (*HTTP)(nil)
