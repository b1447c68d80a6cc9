package cmdflags

import (
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/spf13/pflag"
)

func AddIbft(fset *pflag.FlagSet, cfg *ibft.Config) {
	fset.Uint64Var(&cfg.BlockPeriodSeconds, "block-period", cfg.BlockPeriodSeconds, "minimum seconds between blocks")
	fset.Uint64Var(&cfg.RequestTimeoutSeconds, "request-timeout", cfg.RequestTimeoutSeconds,
		"round 0 timeout in seconds, doubled on every round change")
	fset.Uint64Var(&cfg.EpochLength, "epoch-length", cfg.EpochLength, "blocks per epoch; votes are reset on epoch blocks")
	fset.StringVar(&cfg.MessageTopic, "message-topic", cfg.MessageTopic, "pubsub topic of consensus messages")
}
