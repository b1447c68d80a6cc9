package cobrax

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// AddConfigFlag adds a flag to the flag set to specify a config file.
// It doesn't attach the flag to any variable because GetConfigNameFromArgs reads it
// before the flags are parsed.
func AddConfigFlag(fset *pflag.FlagSet) {
	fset.StringP("config", "c", "", "config file")
}

// GetConfigNameFromArgs searches for a config file name in the command line arguments.
// The config provides the flag defaults, so it is read before argument parsing.
func GetConfigNameFromArgs() string {
	return configNameFromArgs(os.Args)
}

func configNameFromArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}
	for i, f := range args[:len(args)-1] {
		if f == "--config" || f == "-c" {
			return args[i+1]
		}
	}
	return ""
}

// LoadConfigFromFile reads a YAML file and unmarshals it into the destination.
// If the file name is empty, it does nothing.
// Arg dest must be a non-nil pointer (initialized with defaults).
func LoadConfigFromFile[T any](name string, dest *T) error {
	if name == "" {
		return nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return fmt.Errorf("can't read config %s: %w", name, err)
	}

	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("can't parse config %s: %w", name, err)
	}
	return nil
}
