package cobrax

import "github.com/spf13/pflag"

func AddLogLevelFlag(fset *pflag.FlagSet, dst *string) {
	AddCustomLogLevelFlag(fset, "log-level", "l", dst)
}

func AddCustomLogLevelFlag(fset *pflag.FlagSet, name, short string, dst *string) {
	if *dst == "" {
		*dst = "info"
	}
	fset.StringVarP(dst, name, short, *dst, "log level: trace|debug|info|warn|error|fatal|panic")
}

func AddLibp2pLogLevelFlag(fset *pflag.FlagSet, dst *string) {
	fset.StringVar(dst, "libp2p-log-level", *dst, "libp2p log level: debug|info|warn|error|fatal|dpanic|panic")
}

func AddLogFilterFlag(fset *pflag.FlagSet, dst *string) {
	fset.StringVar(dst, "log-filter", *dst,
		"filter logs by component, e.g. 'all:-network' enables all logs except the network ones")
}
