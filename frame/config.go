package frame

import "time"

type SocketCANConfig struct {
	Interface string
	// BitRate is informational: the bus speed is set when the interface is
	// brought up, outside this process.
	BitRate uint32
}

func NewDefaultSocketCANConfig() *SocketCANConfig {
	return &SocketCANConfig{
		Interface: "can0",
		BitRate:   250_000,
	}
}

type ReplayConfig struct {
	Path string
	Tick time.Duration
}

func NewDefaultReplayConfig() *ReplayConfig {
	return &ReplayConfig{
		Tick: 100 * time.Millisecond,
	}
}
