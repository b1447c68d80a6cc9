package network

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/NilFoundation/ibft/common/check"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

// CalcAddress returns the first listen address of the manager with its peer id.
func CalcAddress(m *Manager) AddrInfo {
	addr, err := peer.AddrInfoFromString(m.host.Addrs()[0].String() + "/p2p/" + m.host.ID().String())
	check.PanicIfErr(err)
	return AddrInfo(*addr)
}

func NewTestManagerWithBaseConfig(t *testing.T, ctx context.Context, conf *Config) *Manager {
	t.Helper()

	c := *conf
	if c.IPV4Address == "" {
		c.IPV4Address = "127.0.0.1"
	}
	if c.PrivateKey == nil {
		privateKey, err := GeneratePrivateKey()
		require.NoError(t, err)
		c.PrivateKey = privateKey
	}

	m, err := NewManager(ctx, &c)
	require.NoError(t, err)
	return m
}

func NewTestManagers(t *testing.T, ctx context.Context, initialTcpPort int, n int) []*Manager {
	t.Helper()

	managers := make([]*Manager, n)
	for i := range n {
		managers[i] = NewTestManagerWithBaseConfig(t, ctx, &Config{TcpPort: initialTcpPort + i})
	}
	return managers
}

func ConnectManagers(t *testing.T, m1, m2 *Manager) {
	t.Helper()

	id, err := m1.Connect(m1.ctx, CalcAddress(m2))
	require.NoError(t, err)
	require.Equal(t, m2.ID(), id)

	WaitForPeer(t, m2, m1.ID())
}

func WaitForPeer(t *testing.T, m *Manager, id PeerID) {
	t.Helper()

	require.Eventually(t, func() bool {
		return slices.Contains(m.ConnectedPeers(), id)
	}, 10*time.Second, 100*time.Millisecond)
}

// WaitForTopicPeers blocks until every manager sees all the others in the topic mesh.
func WaitForTopicPeers(t *testing.T, topic string, managers ...*Manager) {
	t.Helper()

	require.Eventually(t, func() bool {
		for _, m := range managers {
			if len(m.PubSub().ListPeers(topic)) < len(managers)-1 {
				return false
			}
		}
		return true
	}, 10*time.Second, 100*time.Millisecond)
}
