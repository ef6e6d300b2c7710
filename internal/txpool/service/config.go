package service

import (
	"errors"
	"time"
)

// Config is the recognized configuration surface of the service.
type Config struct {
	MaxPoolCount          int
	MaxPoolWeight         uint64
	MinGasPrice           uint64
	MaxTxSize             uint64
	StatusChannelCapacity int

	BroadcastRetries    int
	BroadcastRetryDelay time.Duration
	BroadcastRPS        int
	BroadcastQueueSize  int
	LookupWorkers       int
	StopTimeout         time.Duration
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MaxPoolCount:          5000,
		MaxPoolWeight:         300_000_000,
		MinGasPrice:           1,
		MaxTxSize:             400_000,
		StatusChannelCapacity: 100,
		BroadcastRetries:      3,
		BroadcastRetryDelay:   500 * time.Millisecond,
		BroadcastRPS:          200,
		BroadcastQueueSize:    1024,
		LookupWorkers:         8,
		StopTimeout:           10 * time.Second,
	}
}

// Validate reports the first invalid option.
func (c Config) Validate() error {
	switch {
	case c.MaxPoolCount < 0:
		return errors.New("max pool count must not be negative")
	case c.MaxTxSize == 0:
		return errors.New("max tx size must be positive")
	case c.MaxPoolWeight > 0 && c.MaxTxSize > c.MaxPoolWeight:
		return errors.New("max tx size must not exceed max pool weight")
	case c.StatusChannelCapacity <= 0:
		return errors.New("status channel capacity must be positive")
	case c.BroadcastRetries < 0:
		return errors.New("broadcast retries must not be negative")
	case c.BroadcastQueueSize <= 0:
		return errors.New("broadcast queue size must be positive")
	case c.LookupWorkers <= 0:
		return errors.New("lookup workers must be positive")
	case c.StopTimeout <= 0:
		return errors.New("stop timeout must be positive")
	}
	return nil
}
