package main

import (
	"context"
	"fmt"
	"os"

	"github.com/NilFoundation/ibft/common/check"
	"github.com/NilFoundation/ibft/common/concurrent"
	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/cobrax"
	"github.com/NilFoundation/ibft/internal/cobrax/cmdflags"
	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/db"
	"github.com/NilFoundation/ibft/services/ibftservice"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const appTitle = "ibftd"

type options struct {
	logLevel       string
	libp2pLogLevel string
	logFilter      string
}

func main() {
	cfg, err := loadConfig()
	check.LogAndPanicIfErrf(err, logging.NewLogger(appTitle), "Failed to load config")

	var opts options
	rootCmd := &cobra.Command{
		Use:           "ibftd [global flags] [command]",
		Short:         "IBFT validator node",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupGlobalLogger(opts.logLevel)
			logging.ApplyComponentsFilterEnv()
			logging.ApplyComponentsFilter(opts.logFilter)
			return logging.SetLibp2pLogLevel(opts.libp2pLogLevel)
		},
	}

	cobrax.AddConfigFlag(rootCmd.PersistentFlags())
	cobrax.AddLogLevelFlag(rootCmd.PersistentFlags(), &opts.logLevel)
	cobrax.AddLibp2pLogLevelFlag(rootCmd.PersistentFlags(), &opts.libp2pLogLevel)
	cobrax.AddLogFilterFlag(rootCmd.PersistentFlags(), &opts.logFilter)
	rootCmd.PersistentFlags().StringVar(&cfg.NodeKeyPath, "node-key", cfg.NodeKeyPath, "path to the validator key")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the validator node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cfg)
		},
	}
	addRunFlags(runCmd.Flags(), cfg)

	// The node is started when no command is given.
	rootCmd.RunE = runCmd.RunE
	addRunFlags(rootCmd.Flags(), cfg)

	rootCmd.AddCommand(
		runCmd,
		keygenCommand(cfg),
		genesisCommand(cfg),
		cobrax.VersionCmd(appTitle),
	)
	cobrax.ExitOnHelp(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*ibftservice.Config, error) {
	cfg := ibftservice.NewDefaultConfig()
	if err := cobrax.LoadConfigFromFile(cobrax.GetConfigNameFromArgs(), cfg); err != nil {
		return nil, err
	}
	if cfg.DB == nil {
		cfg.DB = db.NewDefaultBadgerDBOptions()
	}
	return cfg, nil
}

func addRunFlags(fset *pflag.FlagSet, cfg *ibftservice.Config) {
	fset.StringVar(&cfg.DB.Path, "db-path", cfg.DB.Path, "path to database")
	fset.Float64Var(&cfg.DB.DiscardRatio, "db-discard-ratio", cfg.DB.DiscardRatio, "discard ratio for badger GC")
	fset.DurationVar(&cfg.DB.GcFrequency, "db-gc-interval", cfg.DB.GcFrequency, "frequency for badger GC")

	cmdflags.AddIbft(fset, cfg.Ibft)
	cmdflags.AddNetwork(fset, cfg.Network)
	cmdflags.AddTelemetry(fset, cfg.Telemetry)
}

func runNode(cfg *ibftservice.Config) error {
	logger := logging.NewLogger(appTitle)

	database, err := db.NewBadgerDb(cfg.DB.Path)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.DB.Path).Msg("Failed to open database")
		return err
	}

	exitCode := ibftservice.Run(context.Background(), cfg, database,
		concurrent.MakeTask("badger-gc", func(ctx context.Context) error {
			return database.LogGC(ctx, cfg.DB.DiscardRatio, cfg.DB.GcFrequency)
		}))

	database.Close()
	os.Exit(exitCode)
	return nil
}

func keygenCommand(cfg *ibftservice.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a validator key and print its address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.NodeKeyPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", cfg.NodeKeyPath)
			}

			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			if err := crypto.DumpNodeKey(cfg.NodeKeyPath, key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(key).Hex())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key")
	return cmd
}

func genesisCommand(cfg *ibftservice.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "genesis",
		Short: "Print the hash of the configured genesis block",
		RunE: func(cmd *cobra.Command, args []string) error {
			block, err := cfg.Genesis.Block()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), block.Hash().Hex())
			return nil
		},
	}
}
