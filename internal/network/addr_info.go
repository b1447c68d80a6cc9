package network

import (
	"strings"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/spf13/pflag"
)

type AddrInfo peer.AddrInfo

func (a *AddrInfo) Set(value string) error {
	addr, err := peer.AddrInfoFromString(value)
	if err != nil {
		return err
	}
	*a = AddrInfo(*addr)
	return nil
}

func (a AddrInfo) String() string {
	addrs, err := peer.AddrInfoToP2pAddrs((*peer.AddrInfo)(&a))
	if err != nil {
		return err.Error()
	}
	values := make([]string, len(addrs))
	for i, addr := range addrs {
		values[i] = addr.String()
	}
	return strings.Join(values, ",")
}

func (a AddrInfo) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AddrInfo) UnmarshalText(text []byte) error {
	return a.Set(string(text))
}

// AddrInfoSlice is a list of peers usable as a repeated command-line flag.
type AddrInfoSlice []AddrInfo

var _ pflag.Value = (*AddrInfoSlice)(nil)

func (s *AddrInfoSlice) Set(value string) error {
	for _, item := range strings.Split(value, ",") {
		var addr AddrInfo
		if err := addr.Set(strings.TrimSpace(item)); err != nil {
			return err
		}
		*s = append(*s, addr)
	}
	return nil
}

func (s AddrInfoSlice) String() string {
	values := make([]string, len(s))
	for i, a := range s {
		values[i] = a.String()
	}
	return "[" + strings.Join(values, ",") + "]"
}

func (s *AddrInfoSlice) Type() string {
	return "addrInfos"
}

func (s AddrInfoSlice) ToLibP2p() []peer.AddrInfo {
	res := make([]peer.AddrInfo, len(s))
	for i, a := range s {
		res[i] = peer.AddrInfo(a)
	}
	return res
}
