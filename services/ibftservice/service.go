package ibftservice

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/NilFoundation/ibft/common/concurrent"
	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/blockcreation"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/statemachine"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/transport"
	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/db"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/NilFoundation/ibft/internal/telemetry"
	"github.com/NilFoundation/ibft/internal/txpool"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

type Node struct {
	Chain          *blockchain.Blockchain
	TxPool         *txpool.TxPool
	Votes          *blockcreation.VoteProposer
	NetworkManager *network.Manager
	Coordinator    *ibft.Coordinator

	tasks  []concurrent.Task
	logger zerolog.Logger
	ctx    context.Context
}

func (n *Node) Run() error {
	if err := concurrent.Run(n.ctx, n.tasks...); err != nil {
		n.logger.Error().Err(err).Msg("Node encountered an error and will be terminated.")
		return err
	}
	n.logger.Info().Msg("Node is terminated.")
	return nil
}

func (n *Node) Close(ctx context.Context) {
	if n.NetworkManager != nil {
		n.NetworkManager.Close()
	}
	telemetry.Shutdown(ctx)
}

// CreateNode wires the chain, the transaction pool, the network and the consensus
// of one validator. The key is loaded from cfg.NodeKeyPath (or generated) when nil.
func CreateNode(
	ctx context.Context, cfg *Config, key crypto.PrivateKey, database db.DB, workers ...concurrent.Task,
) (*Node, error) {
	logger := logging.NewLogger("ibftd")

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Configuration is invalid")
		return nil, err
	}

	if err := telemetry.Init(ctx, cfg.Telemetry); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize telemetry")
		return nil, err
	}

	if key == nil {
		var err error
		if key, err = crypto.LoadOrGenerateNodeKey(cfg.NodeKeyPath); err != nil {
			logger.Error().Err(err).Msg("Failed to load node key")
			return nil, err
		}
	}
	localAddress := crypto.PubkeyToAddress(key)
	logger.Info().Stringer(logging.FieldAddress, localAddress).Msg("Loaded node key")

	genesis, err := cfg.Genesis.Block()
	if err != nil {
		return nil, err
	}
	chain, err := blockchain.NewBlockchain(ctx, database, genesis)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open blockchain")
		return nil, err
	}

	updater := ibft.NewVoteTallyUpdater(cfg.Ibft.EpochLength)
	tally, err := updater.BuildVoteTallyFromChain(ctx, chain)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build vote tally")
		return nil, err
	}
	if !tally.IsValidator(localAddress) {
		logger.Warn().
			Stringer(logging.FieldAddress, localAddress).
			Msg("Local node is not a validator, following consensus only")
	}

	votes := blockcreation.NewVoteProposer()
	for _, address := range cfg.AuthVotes {
		votes.Auth(address)
	}
	for _, address := range cfg.DropVotes {
		votes.Drop(address)
	}

	pool := txpool.New(*cfg.TxPool)
	queue := ibftevent.NewQueue()

	node := &Node{
		Chain:  chain,
		TxPool: pool,
		Votes:  votes,
		logger: logger,
		ctx:    ctx,
	}

	multicaster, err := node.createMulticaster(ctx, cfg, key, queue)
	if err != nil {
		node.Close(ctx)
		return nil, err
	}

	gossiper, err := transport.NewGossiper(multicaster, cfg.Ibft.GossipedHistoryLimit)
	if err != nil {
		node.Close(ctx)
		return nil, err
	}

	clock := clockwork.NewRealClock()
	metrics, err := ibft.NewMetricsHandler("github.com/NilFoundation/ibft/internal/consensus/ibft", clock)
	if err != nil {
		node.Close(ctx)
		return nil, err
	}

	roundTimer := ibft.NewRoundTimer(queue, clock, cfg.Ibft.RequestTimeout())
	blockTimer := ibft.NewBlockTimer(queue, clock, cfg.Ibft.BlockPeriod())

	final := &statemachine.FinalState{
		Config:         cfg.Ibft,
		Validators:     tally,
		MessageFactory: messages.NewMessageFactory(key),
		Transmitter:    transport.NewTransmitter(multicaster, gossiper),
		Gossiper:       gossiper,
		RoundTimer:     roundTimer,
		BlockTimer:     blockTimer,
		BlockCreator: blockcreation.NewBlockCreator(
			localAddress, tally, votes, pool, cfg.Ibft.EpochLength, []byte(cfg.Genesis.Vanity)),
		BlockImporter: chain,
		Observers:     []statemachine.MinedBlockObserver{pool.OnBlockAdded},
		Clock:         clock,
		Metrics:       metrics,
	}
	processor := ibft.NewProcessor(queue, statemachine.NewController(final, chain), roundTimer, blockTimer)
	node.Coordinator = ibft.NewCoordinator(processor, queue, chain, updater, tally)

	node.tasks = append(node.tasks, concurrent.MakeTask("ibft", func(ctx context.Context) error {
		if err := node.Coordinator.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Consensus goroutine failed")
			return err
		}
		return nil
	}))

	if node.NetworkManager != nil {
		subscriber := transport.NewSubscriber(node.NetworkManager.PubSub(), cfg.Ibft.MessageTopic, queue)
		node.tasks = append(node.tasks, concurrent.MakeTask("ibft-subscriber", subscriber.Run))
	}

	node.tasks = append(node.tasks, concurrent.MakeTask("prometheus", func(ctx context.Context) error {
		return telemetry.RunPrometheusServer(ctx, cfg.Telemetry)
	}))
	node.tasks = append(node.tasks, workers...)

	logger.Info().
		Uint64(logging.FieldHeight, chain.ChainHeight()).
		Int(logging.FieldCount, len(tally.Validators())).
		Msg("Starting services...")
	return node, nil
}

// createMulticaster connects the node to its peers over libp2p. Without a configured
// network the node runs alone on an in-process network.
func (n *Node) createMulticaster(
	ctx context.Context, cfg *Config, key crypto.PrivateKey, queue *ibftevent.Queue,
) (transport.Multicaster, error) {
	if cfg.Network == nil || !cfg.Network.Enabled() {
		n.logger.Info().Msg("Network is disabled, running on a local network")
		return transport.NewLocalNetwork().Join(key, queue)
	}

	privKey, err := network.PrivateKeyFromNodeKey(key)
	if err != nil {
		return nil, err
	}
	cfg.Network.PrivateKey = privKey

	manager, err := network.NewManager(ctx, cfg.Network)
	if err != nil {
		if errors.Is(err, network.ErrNetworkDisabled) {
			return transport.NewLocalNetwork().Join(key, queue)
		}
		return nil, fmt.Errorf("failed to create network manager: %w", err)
	}
	n.NetworkManager = manager
	return transport.NewPubSubMulticaster(manager.PubSub(), cfg.Ibft.MessageTopic), nil
}

// Run starts consensus and the node services.
// It waits until one of the events:
//   - all goroutines finish successfully,
//   - a goroutine returns an error,
//   - SIGTERM or SIGINT is caught.
//
// It returns a value suitable for os.Exit().
func Run(ctx context.Context, cfg *Config, database db.DB, workers ...concurrent.Task) int {
	if cfg.GracefulShutdown {
		signalCtx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer cancel()
		ctx = signalCtx
	}

	node, err := CreateNode(ctx, cfg, nil, database, workers...)
	if err != nil {
		return 1
	}
	defer node.Close(ctx)

	if err := node.Run(); err != nil {
		return 1
	}
	return 0
}
