package collector

import "time"

type Config struct {
	EquipmentID string

	// TickInterval is how often the flush triggers are checked.
	TickInterval time.Duration

	MaxBatchSize  int
	FlushInterval time.Duration

	// QueueHighWater is the soft depth above which queue growth is logged.
	// The queue itself is unbounded.
	QueueHighWater int
}

func NewDefaultConfig() *Config {
	return &Config{
		TickInterval: 200 * time.Millisecond,

		MaxBatchSize:  50,
		FlushInterval: 5 * time.Second,

		QueueHighWater: 10_000,
	}
}
