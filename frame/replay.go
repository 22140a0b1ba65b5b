package frame

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fleetlink/cantel/internal"
)

// Replay is the simulation backend: it replays a text log of frames on a
// fixed tick, cycling back to the first line when exhausted. Given the same
// frame content it must decode byte-identically to the live path.
type Replay struct {
	tel *internal.Telemetry

	cfg *ReplayConfig

	frames []Frame
	pos    int

	ticker *time.Ticker

	// Telemetry metrics
	emittedFrames atomic.Int64
}

func NewReplay(cfg *ReplayConfig) *Replay {
	return &Replay{
		tel: internal.NewTelemetry("source", "replay"),

		cfg: cfg,
	}
}

func (r *Replay) initMetrics() {
	r.tel.NewGauge("emitted_frames", func() int64 { return r.emittedFrames.Load() })
}

func (r *Replay) Init(_ context.Context) error {
	file, err := os.Open(r.cfg.Path)
	if err != nil {
		return fmt.Errorf("open replay log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		f, err := parseLogLine(line)
		if err != nil {
			r.tel.LogWarn("skipping malformed replay line", "line", lineNum, "err", err)
			continue
		}

		r.frames = append(r.frames, f)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read replay log: %w", err)
	}

	if len(r.frames) == 0 {
		return fmt.Errorf("replay log %s: no frames", r.cfg.Path)
	}

	r.ticker = time.NewTicker(r.cfg.Tick)

	r.initMetrics()

	r.tel.LogInfo("loaded replay log", "path", r.cfg.Path, "frames", len(r.frames))

	return nil
}

// parseLogLine decodes one log line: a hex identifier followed by up to 8
// hex payload bytes, whitespace separated.
func parseLogLine(line string) (Frame, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 || len(tokens) > 9 {
		return Frame{}, fmt.Errorf("expected 1 to 9 tokens, got %d", len(tokens))
	}

	id, err := strconv.ParseUint(tokens[0], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("identifier %q: %w", tokens[0], err)
	}

	f := Frame{ID: uint32(id) & canEffMask}

	for i, token := range tokens[1:] {
		b, err := strconv.ParseUint(token, 16, 8)
		if err != nil {
			return Frame{}, fmt.Errorf("payload byte %q: %w", token, err)
		}
		f.Data[i] = byte(b)
	}

	return f, nil
}

func (r *Replay) Run(ctx context.Context, emit EmitFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-r.ticker.C:
			f := r.frames[r.pos]
			f.CaptureTime = tick

			r.pos = (r.pos + 1) % len(r.frames)

			r.emittedFrames.Add(1)
			emit(f)
		}
	}
}

func (r *Replay) Stop() {
	if r.ticker != nil {
		r.ticker.Stop()
	}
}

var _ Source = (*Replay)(nil)
