package ibftservice

import (
	"errors"
	"fmt"

	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/db"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/NilFoundation/ibft/internal/telemetry"
	"github.com/NilFoundation/ibft/internal/txpool"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
)

const DefaultGasLimit = 30_000_000

type GenesisConfig struct {
	Validators []common.Address `yaml:"validators"`
	Timestamp  uint64           `yaml:"timestamp,omitempty"`
	GasLimit   uint64           `yaml:"gasLimit,omitempty"`
	Vanity     string           `yaml:"vanity,omitempty"`
}

func NewDefaultGenesisConfig() *GenesisConfig {
	return &GenesisConfig{GasLimit: DefaultGasLimit}
}

func (g *GenesisConfig) Block() (*types.Block, error) {
	if len(g.Validators) == 0 {
		return nil, ibft.ErrNoValidators
	}
	return types.NewGenesisBlock(g.Validators, g.Timestamp, g.GasLimit, []byte(g.Vanity))
}

type Config struct {
	NodeKeyPath string `yaml:"nodeKeyPath,omitempty"`

	// Votes the local validator casts in the blocks it proposes.
	AuthVotes []common.Address `yaml:"authVotes,omitempty"`
	DropVotes []common.Address `yaml:"dropVotes,omitempty"`

	// Test-only
	GracefulShutdown bool `yaml:"-"`

	DB        *db.BadgerDBOptions `yaml:"db,omitempty"`
	Network   *network.Config     `yaml:"network,omitempty"`
	Telemetry *telemetry.Config   `yaml:"telemetry,omitempty"`
	Ibft      *ibft.Config        `yaml:"ibft,omitempty"`
	TxPool    *txpool.Config      `yaml:"txPool,omitempty"`
	Genesis   *GenesisConfig      `yaml:"genesis,omitempty"`
}

func NewDefaultConfig() *Config {
	return &Config{
		NodeKeyPath:      "node-key.yaml",
		GracefulShutdown: true,

		DB:        db.NewDefaultBadgerDBOptions(),
		Network:   network.NewDefaultConfig(),
		Telemetry: telemetry.NewDefaultConfig(),
		Ibft:      ibft.NewDefaultConfig(),
		TxPool:    txpool.NewDefaultConfig(),
		Genesis:   NewDefaultGenesisConfig(),
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Ibft == nil {
		errs = append(errs, errors.New("ibft config is missing"))
	} else if err := c.Ibft.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid ibft config: %w", err))
	}
	if c.Genesis == nil || len(c.Genesis.Validators) == 0 {
		errs = append(errs, errors.New("genesis validators are not set"))
	}
	if c.TxPool == nil {
		errs = append(errs, errors.New("tx pool config is missing"))
	}
	for _, address := range c.AuthVotes {
		for _, dropped := range c.DropVotes {
			if address == dropped {
				errs = append(errs, fmt.Errorf("both auth and drop vote for %s", address))
			}
		}
	}
	return errors.Join(errs...)
}
