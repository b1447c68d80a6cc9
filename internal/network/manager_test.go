package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
)

type networkSuite struct {
	suite.Suite

	context   context.Context
	ctxCancel context.CancelFunc

	port int
}

func (s *networkSuite) SetupTest() {
	s.context, s.ctxCancel = context.WithCancel(context.Background())
}

func (s *networkSuite) TearDownTest() {
	s.ctxCancel()
}

func (s *networkSuite) newManagerWithBaseConfig(conf *Config) *Manager {
	s.T().Helper()

	c := *conf
	if c.TcpPort == 0 {
		s.Require().Positive(s.port)
		s.port++
		c.TcpPort = s.port
	}

	return NewTestManagerWithBaseConfig(s.T(), s.context, &c)
}

func (s *networkSuite) newManager() *Manager {
	s.T().Helper()

	return s.newManagerWithBaseConfig(&Config{})
}

type ManagerSuite struct {
	networkSuite
}

func (s *ManagerSuite) SetupSuite() {
	s.port = 11234
}

func (s *ManagerSuite) TestNewManager() {
	s.Run("EmptyConfig", func() {
		emptyConfig := &Config{}
		s.Require().False(emptyConfig.Enabled())

		_, err := NewManager(s.context, emptyConfig)
		s.Require().ErrorIs(err, ErrNetworkDisabled)
	})

	s.Run("NoPrivateKey", func() {
		_, err := NewManager(s.context, &Config{
			TcpPort: 11200,
		})
		s.Require().ErrorIs(err, ErrPrivateKeyMissing)
	})
}

func (s *ManagerSuite) TestPrivateKey() {
	privateKey, err := GeneratePrivateKey()
	s.Require().NoError(err)
	m := s.newManagerWithBaseConfig(&Config{
		PrivateKey: privateKey,
	})
	defer m.Close()

	s.Equal(privateKey, m.host.Peerstore().PrivKey(m.ID()))

	id, err := PeerIDFromPrivateKey(privateKey)
	s.Require().NoError(err)
	s.Equal(id, m.ID())
}

func (s *ManagerSuite) TestConnect() {
	m1 := s.newManager()
	defer m1.Close()
	m2 := s.newManager()
	defer m2.Close()

	ConnectManagers(s.T(), m1, m2)

	s.Contains(m1.ConnectedPeers(), m2.ID())
}

func (s *ManagerSuite) TestConfiguredPeers() {
	m1 := s.newManager()
	defer m1.Close()

	m2 := s.newManagerWithBaseConfig(&Config{
		Peers: AddrInfoSlice{CalcAddress(m1)},
	})
	defer m2.Close()

	WaitForPeer(s.T(), m1, m2.ID())
}

func TestManager(t *testing.T) {
	t.Parallel()

	suite.Run(t, new(ManagerSuite))
}
