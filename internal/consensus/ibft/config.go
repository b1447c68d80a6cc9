package ibft

import (
	"errors"
	"time"
)

type Config struct {
	BlockPeriodSeconds    uint64 `yaml:"blockPeriodSeconds,omitempty"`
	RequestTimeoutSeconds uint64 `yaml:"requestTimeoutSeconds,omitempty"`
	EpochLength           uint64 `yaml:"epochLength,omitempty"`

	// Messages for rounds further ahead of the current round are dropped.
	MaxFutureRoundDistance uint32 `yaml:"maxFutureRoundDistance,omitempty"`
	// Messages for heights further ahead of the current height are dropped.
	FutureHeightDistance uint64 `yaml:"futureHeightDistance,omitempty"`
	FutureMessagesLimit  int    `yaml:"futureMessagesLimit,omitempty"`

	GossipedHistoryLimit int    `yaml:"gossipedHistoryLimit,omitempty"`
	MessageTopic         string `yaml:"messageTopic,omitempty"`
}

func NewDefaultConfig() *Config {
	return &Config{
		BlockPeriodSeconds:     3,
		RequestTimeoutSeconds:  12,
		EpochLength:            10000,
		MaxFutureRoundDistance: 10,
		FutureHeightDistance:   10,
		FutureMessagesLimit:    1000,
		GossipedHistoryLimit:   10000,
		MessageTopic:           "/ibft/messages",
	}
}

func (c *Config) BlockPeriod() time.Duration {
	return time.Duration(c.BlockPeriodSeconds) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) Validate() error {
	var errs []error
	if c.RequestTimeoutSeconds == 0 {
		errs = append(errs, errors.New("requestTimeoutSeconds must be positive"))
	}
	if c.EpochLength == 0 {
		errs = append(errs, errors.New("epochLength must be positive"))
	}
	if c.GossipedHistoryLimit <= 0 {
		errs = append(errs, errors.New("gossipedHistoryLimit must be positive"))
	}
	if c.MessageTopic == "" {
		errs = append(errs, errors.New("messageTopic must not be empty"))
	}
	return errors.Join(errs...)
}
