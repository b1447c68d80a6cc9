package cmdflags

import (
	"github.com/NilFoundation/ibft/common/check"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func AddNetwork(fset *pflag.FlagSet, cfg *network.Config) {
	fset.StringVar(&cfg.IPV4Address, "ipv4", cfg.IPV4Address, "ipv4 address to listen on")
	fset.IntVar(&cfg.TcpPort, "tcp-port", cfg.TcpPort, "tcp port for the network")
	fset.IntVar(&cfg.QuicPort, "quic-port", cfg.QuicPort, "quic port for the network")
	fset.Var(&cfg.Peers, "peers", "peers to connect to on startup")

	fset.BoolVar(&cfg.DHTEnabled, "with-discovery", cfg.DHTEnabled, "enable discovery (with Kademlia DHT)")
	fset.Var(&cfg.DHTBootstrapPeers, "discovery-bootstrap-peers", "bootstrap peers for discovery")
	check.PanicIfErr(
		fset.SetAnnotation("discovery-bootstrap-peers", cobra.BashCompOneRequiredFlag, []string{"with-discovery"}))
}
