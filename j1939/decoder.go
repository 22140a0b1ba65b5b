package j1939

import (
	"context"
	"time"

	"github.com/fleetlink/cantel/frame"
	"github.com/fleetlink/cantel/internal"
	"github.com/fleetlink/cantel/mapping"
	"go.opentelemetry.io/otel/metric"
)

// Sentinel raw patterns meaning "not available" or "error" per field width.
// A match is a protocol-level absence, not a measurement, and is checked
// before scaling.
var sentinels = map[int][]uint64{
	1: {0xFF, 0xFE},
	2: {0xFFFF, 0xFEFF, 0xFFFE},
	4: {0xFFFFFFFF, 0xFEFFFFFF},
}

// Decoder turns raw frames into readings. It holds the mapping read-only,
// so it is safe for use from a single source goroutine without locking.
type Decoder struct {
	tel *internal.Telemetry

	equipmentID string
	model       *mapping.Model

	framesTotal      metric.Int64Counter
	framesUnmapped   metric.Int64Counter
	readingsDecoded  metric.Int64Counter
	sentinelDrops    metric.Int64Counter
	formulaFallbacks metric.Int64Counter
}

func NewDecoder(equipmentID string, model *mapping.Model) *Decoder {
	tel := internal.NewTelemetry("decoder", "j1939")

	return &Decoder{
		tel: tel,

		equipmentID: equipmentID,
		model:       model,

		framesTotal:      tel.NewCounter("frames_total"),
		framesUnmapped:   tel.NewCounter("frames_unmapped"),
		readingsDecoded:  tel.NewCounter("readings_decoded"),
		sentinelDrops:    tel.NewCounter("sentinel_drops"),
		formulaFallbacks: tel.NewCounter("formula_fallbacks"),
	}
}

// Decode dispatches one frame against the mapping and returns zero or more
// readings in rule order. Unmapped PGNs return nil; most traffic on a
// shared bus is not ours, so this is not logged.
func (d *Decoder) Decode(ctx context.Context, f frame.Frame) []Reading {
	d.framesTotal.Add(ctx, 1)

	pgn, _ := SplitID(f.ID)

	rule, ok := d.model.Rule(pgn)
	if !ok {
		d.framesUnmapped.Add(ctx, 1)
		return nil
	}

	ts := f.CaptureTime
	if ts.IsZero() {
		ts = time.Now()
	}

	readings := make([]Reading, 0, len(rule.SPNs))
	for _, spnRule := range rule.SPNs {
		reading, ok := d.decodeSPN(ctx, spnRule, f.Data, ts)
		if !ok {
			continue
		}
		readings = append(readings, reading)
	}

	d.readingsDecoded.Add(ctx, int64(len(readings)))

	return readings
}

func (d *Decoder) decodeSPN(ctx context.Context, rule *mapping.SpnRule, data [8]byte, ts time.Time) (Reading, bool) {
	raw := extractRaw(rule, data)

	if isSentinel(raw, len(rule.ByteIdx)) {
		d.sentinelDrops.Add(ctx, 1)
		return Reading{}, false
	}

	value := float64(raw)*rule.Scale + rule.Offset

	if formula := rule.Formula(); formula != nil {
		corrected, err := formula.Eval(value)
		if err != nil {
			// Degrade to the affine value, never abort the frame.
			d.tel.LogWarn("formula evaluation failed, using affine value",
				"signal", rule.SignalName, "spn", rule.SPN, "err", err)
			d.formulaFallbacks.Add(ctx, 1)
		} else {
			value = corrected
		}
	}

	return Reading{
		EquipmentID: d.equipmentID,
		SignalName:  rule.SignalName,
		Value:       value,
		Unit:        rule.Unit,
		Timestamp:   ts,
		Status:      StatusNormal,
		Source:      rule.Source,
		SPN:         rule.SPN,
	}, true
}

// extractRaw folds the rule's bytes into an integer. Little endian weights
// the first listed byte least, big endian weights it most. The accumulator
// is 64 bits wide so an 8-byte field folds without losing its high bytes.
func extractRaw(rule *mapping.SpnRule, data [8]byte) uint64 {
	var raw uint64

	switch rule.Endianness {
	case mapping.BigEndian:
		for _, idx := range rule.ByteIdx {
			raw = (raw << 8) | uint64(data[idx])
		}
	default:
		for i := len(rule.ByteIdx) - 1; i >= 0; i-- {
			raw = (raw << 8) | uint64(data[rule.ByteIdx[i]])
		}
	}

	return raw
}

func isSentinel(raw uint64, width int) bool {
	for _, s := range sentinels[width] {
		if raw == s {
			return true
		}
	}
	return false
}
