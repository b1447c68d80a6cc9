package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/testaide"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	msg     *messages.Message
	exclude []common.Address
}

type recordingMulticaster struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (m *recordingMulticaster) Multicast(_ context.Context, msg *messages.Message, exclude ...common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{msg: msg, exclude: exclude})
	return nil
}

func (m *recordingMulticaster) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

func newPrepare(t *testing.T, v *testaide.Validator, round uint32) (*messages.Prepare, *messages.Message) {
	t.Helper()

	prepare, err := v.Factory.CreatePrepare(messages.NewRoundIdentifier(1, round), common.Hash{1})
	require.NoError(t, err)
	msg, err := messages.NewMessage(prepare)
	require.NoError(t, err)
	return prepare, msg
}

func TestGossiperSendsOnce(t *testing.T) {
	t.Parallel()

	validators := testaide.NewValidators(t, 3)
	multicaster := &recordingMulticaster{}
	gossiper, err := NewGossiper(multicaster, 16)
	require.NoError(t, err)

	prepare, msg := newPrepare(t, validators[0], 0)
	from, err := network.PeerIDFromNodeKey(validators[1].Key)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, gossiper.Gossip(ctx, msg, prepare.Author(), from))
	require.NoError(t, gossiper.Gossip(ctx, msg, prepare.Author(), from))

	sent := multicaster.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, msg, sent[0].msg)
	require.ElementsMatch(t, []common.Address{validators[0].Address, validators[1].Address}, sent[0].exclude)

	_, other := newPrepare(t, validators[0], 1)
	require.NoError(t, gossiper.Gossip(ctx, other, prepare.Author(), ""))
	require.Len(t, multicaster.Sent(), 2)
	require.Equal(t, []common.Address{validators[0].Address}, multicaster.Sent()[1].exclude)
}

func TestTransmitterMarksOwnMessagesSeen(t *testing.T) {
	t.Parallel()

	validators := testaide.NewValidators(t, 1)
	multicaster := &recordingMulticaster{}
	gossiper, err := NewGossiper(multicaster, 16)
	require.NoError(t, err)
	transmitter := NewTransmitter(multicaster, gossiper)

	prepare, msg := newPrepare(t, validators[0], 0)
	ctx := context.Background()
	transmitter.MulticastPrepare(ctx, prepare)
	require.Len(t, multicaster.Sent(), 1)

	// An echo of the local message is not gossiped back.
	require.NoError(t, gossiper.Gossip(ctx, msg, prepare.Author(), ""))
	require.Len(t, multicaster.Sent(), 1)

	decoded, err := messages.Decode[messages.PreparePayload](multicaster.Sent()[0].msg)
	require.NoError(t, err)
	require.Equal(t, prepare.Author(), decoded.Author())
	require.Equal(t, prepare.Payload(), decoded.Payload())
}

func TestLocalNetwork(t *testing.T) {
	t.Parallel()

	validators := testaide.NewValidators(t, 3)
	net := NewLocalNetwork()

	queues := make([]*ibftevent.Queue, len(validators))
	multicasters := make([]*LocalMulticaster, len(validators))
	for i, v := range validators {
		queues[i] = ibftevent.NewQueue()
		var err error
		multicasters[i], err = net.Join(v.Key, queues[i])
		require.NoError(t, err)
	}

	_, msg := newPrepare(t, validators[0], 0)
	require.NoError(t, multicasters[0].Multicast(context.Background(), msg, validators[2].Address))

	require.Zero(t, queues[0].Size())
	require.Equal(t, 1, queues[1].Size())
	require.Zero(t, queues[2].Size())

	event := queues[1].Poll(context.Background(), time.Second)
	received, ok := event.(ibftevent.MessageReceived)
	require.True(t, ok)
	require.Equal(t, msg, received.Message)

	sender, err := network.AddressFromPeerID(received.From)
	require.NoError(t, err)
	require.Equal(t, validators[0].Address, sender)

	net.Leave(validators[1].Address)
	require.NoError(t, multicasters[0].Multicast(context.Background(), msg))
	require.Zero(t, queues[1].Size())
	require.Equal(t, 1, queues[2].Size())
}

func TestPubSubTransport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const topic = "/ibft/test"
	managers := network.NewTestManagers(t, ctx, 12410, 2)
	defer func() {
		for _, m := range managers {
			m.Close()
		}
	}()
	network.ConnectManagers(t, managers[0], managers[1])

	queue := ibftevent.NewQueue()
	subscriber := NewSubscriber(managers[1].PubSub(), topic, queue)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Run(ctx)
	}()

	// The sender joins the topic too, so that the mesh forms in both directions.
	senderSub, err := managers[0].PubSub().Subscribe(topic)
	require.NoError(t, err)
	defer senderSub.Close()
	network.WaitForTopicPeers(t, topic, managers...)

	validators := testaide.NewValidators(t, 1)
	prepare, msg := newPrepare(t, validators[0], 0)
	require.NoError(t, NewPubSubMulticaster(managers[0].PubSub(), topic).Multicast(ctx, msg))

	event := queue.Poll(ctx, 10*time.Second)
	require.NotNil(t, event)
	received, ok := event.(ibftevent.MessageReceived)
	require.True(t, ok)
	require.Equal(t, managers[0].ID(), received.From)

	decoded, err := messages.Decode[messages.PreparePayload](received.Message)
	require.NoError(t, err)
	require.Equal(t, prepare.Author(), decoded.Author())

	cancel()
	require.NoError(t, <-done)
}
