package sink

import "time"

type HTTPConfig struct {
	URL      string
	DeviceID string
	Timeout  time.Duration
}

func NewDefaultHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		URL:     "http://localhost:8080/api/telemetry",
		Timeout: 5 * time.Second,
	}
}

type QuestDBConfig struct {
	Address string
	Table   string
}

func NewDefaultQuestDBConfig() *QuestDBConfig {
	return &QuestDBConfig{
		Address: "localhost:9000",
		Table:   "readings",
	}
}
