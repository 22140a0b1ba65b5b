// Package config loads the collector's runtime configuration from a YAML
// file with environment overrides for deploy-time values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fleetlink/cantel/collector"
	"github.com/fleetlink/cantel/frame"
	"github.com/fleetlink/cantel/sink"
	"gopkg.in/yaml.v3"
)

type SinkKind string

const (
	SinkKindHTTP    SinkKind = "http"
	SinkKindQuestDB SinkKind = "questdb"
)

type Config struct {
	EquipmentID string `yaml:"equipment_id"`
	MappingPath string `yaml:"mapping_path"`

	Bus struct {
		Interface string `yaml:"interface"`
		BitRate   uint32 `yaml:"bit_rate"`
	} `yaml:"bus"`

	Replay struct {
		// Path selects the replay backend over the live one when set.
		Path string        `yaml:"path"`
		Tick time.Duration `yaml:"tick"`
	} `yaml:"replay"`

	Batch struct {
		TickInterval   time.Duration `yaml:"tick_interval"`
		MaxSize        int           `yaml:"max_size"`
		FlushInterval  time.Duration `yaml:"flush_interval"`
		QueueHighWater int           `yaml:"queue_high_water"`
	} `yaml:"batch"`

	Sink struct {
		Kind    SinkKind      `yaml:"kind"`
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`

		QuestDB struct {
			Address string `yaml:"address"`
			Table   string `yaml:"table"`
		} `yaml:"questdb"`
	} `yaml:"sink"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("CANTEL_DEVICE_ID"); v != "" {
		c.EquipmentID = v
	}
	if v := os.Getenv("CANTEL_IFACE"); v != "" {
		c.Bus.Interface = v
	}
	if v := os.Getenv("CANTEL_SINK_URL"); v != "" {
		c.Sink.URL = v
	}
	if v := os.Getenv("CANTEL_REPLAY_LOG"); v != "" {
		c.Replay.Path = v
	}
}

func (c *Config) applyDefaults() {
	socketCANDefaults := frame.NewDefaultSocketCANConfig()
	if c.Bus.Interface == "" {
		c.Bus.Interface = socketCANDefaults.Interface
	}
	if c.Bus.BitRate == 0 {
		c.Bus.BitRate = socketCANDefaults.BitRate
	}

	if c.Replay.Tick == 0 {
		c.Replay.Tick = frame.NewDefaultReplayConfig().Tick
	}

	batchDefaults := collector.NewDefaultConfig()
	if c.Batch.TickInterval == 0 {
		c.Batch.TickInterval = batchDefaults.TickInterval
	}
	if c.Batch.MaxSize == 0 {
		c.Batch.MaxSize = batchDefaults.MaxBatchSize
	}
	if c.Batch.FlushInterval == 0 {
		c.Batch.FlushInterval = batchDefaults.FlushInterval
	}
	if c.Batch.QueueHighWater == 0 {
		c.Batch.QueueHighWater = batchDefaults.QueueHighWater
	}

	if c.Sink.Kind == "" {
		c.Sink.Kind = SinkKindHTTP
	}
	if c.Sink.Timeout == 0 {
		c.Sink.Timeout = sink.NewDefaultHTTPConfig().Timeout
	}

	questDBDefaults := sink.NewDefaultQuestDBConfig()
	if c.Sink.QuestDB.Address == "" {
		c.Sink.QuestDB.Address = questDBDefaults.Address
	}
	if c.Sink.QuestDB.Table == "" {
		c.Sink.QuestDB.Table = questDBDefaults.Table
	}
}

func (c *Config) validate() error {
	if c.EquipmentID == "" {
		return fmt.Errorf("equipment_id is required")
	}
	if c.MappingPath == "" {
		return fmt.Errorf("mapping_path is required")
	}

	if c.Replay.Tick <= 0 {
		return fmt.Errorf("replay.tick must be positive, got %v", c.Replay.Tick)
	}

	if c.Batch.TickInterval <= 0 {
		return fmt.Errorf("batch.tick_interval must be positive, got %v", c.Batch.TickInterval)
	}
	if c.Batch.MaxSize <= 0 {
		return fmt.Errorf("batch.max_size must be positive, got %d", c.Batch.MaxSize)
	}
	if c.Batch.FlushInterval <= 0 {
		return fmt.Errorf("batch.flush_interval must be positive, got %v", c.Batch.FlushInterval)
	}
	if c.Batch.QueueHighWater <= 0 {
		return fmt.Errorf("batch.queue_high_water must be positive, got %d", c.Batch.QueueHighWater)
	}

	if c.Sink.Timeout <= 0 {
		return fmt.Errorf("sink.timeout must be positive, got %v", c.Sink.Timeout)
	}

	switch c.Sink.Kind {
	case SinkKindHTTP:
		if c.Sink.URL == "" {
			return fmt.Errorf("sink.url is required for the http sink")
		}
	case SinkKindQuestDB:
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}

	return nil
}

// CollectorConfig maps the batch section onto the collector package config.
func (c *Config) CollectorConfig() *collector.Config {
	return &collector.Config{
		EquipmentID: c.EquipmentID,

		TickInterval: c.Batch.TickInterval,

		MaxBatchSize:  c.Batch.MaxSize,
		FlushInterval: c.Batch.FlushInterval,

		QueueHighWater: c.Batch.QueueHighWater,
	}
}

// Source builds the frame backend: replay when a log path is configured,
// live SocketCAN otherwise.
func (c *Config) Source() frame.Source {
	if c.Replay.Path != "" {
		return frame.NewReplay(&frame.ReplayConfig{
			Path: c.Replay.Path,
			Tick: c.Replay.Tick,
		})
	}

	return frame.NewSocketCAN(&frame.SocketCANConfig{
		Interface: c.Bus.Interface,
		BitRate:   c.Bus.BitRate,
	})
}

// BuildSink builds the configured telemetry sink.
func (c *Config) BuildSink() (sink.Sink, error) {
	switch c.Sink.Kind {
	case SinkKindQuestDB:
		return sink.NewQuestDB(&sink.QuestDBConfig{
			Address: c.Sink.QuestDB.Address,
			Table:   c.Sink.QuestDB.Table,
		})
	default:
		return sink.NewHTTP(&sink.HTTPConfig{
			URL:      c.Sink.URL,
			DeviceID: c.EquipmentID,
			Timeout:  c.Sink.Timeout,
		}), nil
	}
}
