package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetlink/cantel/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cantel.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func Test_Load(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `
equipment_id: excavator-42
mapping_path: mapping.yml
bus:
  interface: can1
  bit_rate: 500000
batch:
  tick_interval: 100ms
  max_size: 25
  flush_interval: 2s
sink:
  kind: http
  url: http://telemetry.local/api/readings
  timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal("excavator-42", cfg.EquipmentID)
	assert.Equal("can1", cfg.Bus.Interface)
	assert.Equal(uint32(500_000), cfg.Bus.BitRate)
	assert.Equal(100*time.Millisecond, cfg.Batch.TickInterval)
	assert.Equal(25, cfg.Batch.MaxSize)
	assert.Equal(2*time.Second, cfg.Batch.FlushInterval)
	assert.Equal(SinkKindHTTP, cfg.Sink.Kind)
	assert.Equal(3*time.Second, cfg.Sink.Timeout)

	collCfg := cfg.CollectorConfig()
	assert.Equal("excavator-42", collCfg.EquipmentID)
	assert.Equal(25, collCfg.MaxBatchSize)

	// No replay path configured: the live backend is selected.
	_, isSocketCAN := cfg.Source().(*frame.SocketCAN)
	assert.True(isSocketCAN)
}

func Test_Load_Defaults(t *testing.T) {
	assert := assert.New(t)

	path := writeConfig(t, `
equipment_id: excavator-42
mapping_path: mapping.yml
sink:
  url: http://localhost:8080/api/telemetry
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal("can0", cfg.Bus.Interface)
	assert.Equal(uint32(250_000), cfg.Bus.BitRate)
	assert.Equal(200*time.Millisecond, cfg.Batch.TickInterval)
	assert.Equal(50, cfg.Batch.MaxSize)
	assert.Equal(5*time.Second, cfg.Batch.FlushInterval)
	assert.Equal(10_000, cfg.Batch.QueueHighWater)
	assert.Equal(SinkKindHTTP, cfg.Sink.Kind)
	assert.Equal(5*time.Second, cfg.Sink.Timeout)
}

func Test_Load_EnvOverrides(t *testing.T) {
	assert := assert.New(t)

	t.Setenv("CANTEL_DEVICE_ID", "loader-7")
	t.Setenv("CANTEL_IFACE", "vcan0")
	t.Setenv("CANTEL_SINK_URL", "http://override.local/api")
	t.Setenv("CANTEL_REPLAY_LOG", "frames.log")

	path := writeConfig(t, `
equipment_id: excavator-42
mapping_path: mapping.yml
sink:
  url: http://file.local/api
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal("loader-7", cfg.EquipmentID)
	assert.Equal("vcan0", cfg.Bus.Interface)
	assert.Equal("http://override.local/api", cfg.Sink.URL)
	assert.Equal("frames.log", cfg.Replay.Path)

	// A replay log selects the simulation backend.
	_, isReplay := cfg.Source().(*frame.Replay)
	assert.True(isReplay)
}

func Test_Load_Invalid(t *testing.T) {
	assert := assert.New(t)

	// Shield the validation cases from ambient overrides.
	t.Setenv("CANTEL_DEVICE_ID", "")
	t.Setenv("CANTEL_IFACE", "")
	t.Setenv("CANTEL_SINK_URL", "")
	t.Setenv("CANTEL_REPLAY_LOG", "")

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "missing equipment id",
			doc:  "mapping_path: mapping.yml\nsink:\n  url: http://x\n",
		},
		{
			name: "missing mapping path",
			doc:  "equipment_id: e\nsink:\n  url: http://x\n",
		},
		{
			name: "http sink without url",
			doc:  "equipment_id: e\nmapping_path: m.yml\n",
		},
		{
			name: "unknown sink kind",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  kind: kafka\n",
		},
		{
			name: "not yaml",
			doc:  "batch: [",
		},
		// Negative values survive defaulting, so validation must catch
		// them before they reach a ticker.
		{
			name: "negative tick interval",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  url: http://x\nbatch:\n  tick_interval: -1s\n",
		},
		{
			name: "negative max size",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  url: http://x\nbatch:\n  max_size: -5\n",
		},
		{
			name: "negative flush interval",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  url: http://x\nbatch:\n  flush_interval: -2s\n",
		},
		{
			name: "negative queue high water",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  url: http://x\nbatch:\n  queue_high_water: -1\n",
		},
		{
			name: "negative sink timeout",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  url: http://x\n  timeout: -3s\n",
		},
		{
			name: "negative replay tick",
			doc:  "equipment_id: e\nmapping_path: m.yml\nsink:\n  url: http://x\nreplay:\n  tick: -10ms\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.doc))
			assert.Error(err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(err)
}
