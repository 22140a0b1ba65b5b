//go:build !linux

package frame

import (
	"context"

	"github.com/fleetlink/cantel/internal"
)

// SocketCAN without SocketCAN support: the backend comes up degraded with
// zero throughput, same contract as a missing bus interface on Linux.
type SocketCAN struct {
	tel *internal.Telemetry

	cfg *SocketCANConfig
}

func NewSocketCAN(cfg *SocketCANConfig) *SocketCAN {
	return &SocketCAN{
		tel: internal.NewTelemetry("source", "socketcan"),

		cfg: cfg,
	}
}

func (s *SocketCAN) Init(_ context.Context) error {
	s.tel.LogWarn("SocketCAN is not supported on this platform, running with zero throughput",
		"interface", s.cfg.Interface)
	return nil
}

func (s *SocketCAN) Run(ctx context.Context, _ EmitFunc) {
	<-ctx.Done()
}

func (s *SocketCAN) Stop() {}

var _ Source = (*SocketCAN)(nil)
