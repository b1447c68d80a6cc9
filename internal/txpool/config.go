package txpool

type Config struct {
	Size           int `yaml:"size,omitempty"`
	MaxTxsPerBlock int `yaml:"maxTxsPerBlock,omitempty"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Size:           10_000,
		MaxTxsPerBlock: 500,
	}
}
