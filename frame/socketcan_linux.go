//go:build linux

package frame

import (
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/fleetlink/cantel/internal"
	"golang.org/x/sys/unix"
)

// SocketCAN is the live backend: a raw CAN socket bound to a host bus
// interface. A failed attach leaves the collector running with zero
// throughput instead of crashing, since replay rigs or other instances may
// still be useful.
type SocketCAN struct {
	tel *internal.Telemetry

	cfg *SocketCANConfig

	file     *os.File
	degraded bool

	// Telemetry metrics
	receivedFrames atomic.Int64
}

func NewSocketCAN(cfg *SocketCANConfig) *SocketCAN {
	return &SocketCAN{
		tel: internal.NewTelemetry("source", "socketcan"),

		cfg: cfg,
	}
}

func (s *SocketCAN) initMetrics() {
	s.tel.NewGauge("received_frames", func() int64 { return s.receivedFrames.Load() })
}

func (s *SocketCAN) Init(_ context.Context) error {
	s.initMetrics()

	if err := s.attach(); err != nil {
		// Bus attach failure is a degraded condition, not a startup error.
		s.tel.LogWarn("cannot attach to CAN bus, running with zero throughput",
			"interface", s.cfg.Interface, "err", err)
		s.degraded = true
		return nil
	}

	s.tel.LogInfo("attached to CAN bus",
		"interface", s.cfg.Interface, "bit_rate", s.cfg.BitRate)

	return nil
}

func (s *SocketCAN) attach() error {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return err
	}

	iface, err := net.InterfaceByName(s.cfg.Interface)
	if err != nil {
		unix.Close(fd)
		return err
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return err
	}

	// Non-blocking, so the fd lands on the runtime poller and Close
	// unblocks a pending Read.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return err
	}

	s.file = os.NewFile(uintptr(fd), "socketcan:"+s.cfg.Interface)

	return nil
}

func (s *SocketCAN) Run(ctx context.Context, emit EmitFunc) {
	if s.degraded {
		<-ctx.Done()
		return
	}

	// Unblock the read when the context is done.
	go func() {
		<-ctx.Done()
		s.file.Close()
	}()

	buf := make([]byte, canFrameSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := s.file.Read(buf); err != nil {
			if errors.Is(err, os.ErrClosed) {
				return
			}

			select {
			case <-ctx.Done():
				return
			default:
				s.tel.LogError("failed to read CAN frame", err)
			}
			return
		}

		f, ok := unmarshalCANFrame(buf, time.Now())
		if !ok {
			continue
		}

		s.receivedFrames.Add(1)
		emit(f)
	}
}

func (s *SocketCAN) Stop() {
	if s.file != nil {
		s.file.Close()
	}
}

var _ Source = (*SocketCAN)(nil)
