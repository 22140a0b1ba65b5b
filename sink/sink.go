// Package sink delivers decoded readings to the external telemetry store.
package sink

import (
	"context"

	"github.com/fleetlink/cantel/j1939"
)

// Sink delivers a batch of readings. Deliver must return an error if the
// batch cannot be considered stored; the collector requeues the whole batch
// on any error.
type Sink interface {
	Deliver(ctx context.Context, readings []j1939.Reading) error
	Close()
}
