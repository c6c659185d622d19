package config

import (
	"flag"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseFlags parses command line flags and returns the config file path
func ParseFlags(fs *flag.FlagSet, args []string) (configFile string, generateConfig bool, err error) {
	fs.StringVar(&configFile, "config", "", "Path to configuration file")
	fs.BoolVar(&generateConfig, "generate-config", false, "Print an example configuration file and exit")

	if err := fs.Parse(args); err != nil {
		return "", false, err
	}

	if generateConfig {
		return "", true, nil
	}

	return configFile, false, nil
}

// GenerateExampleConfig writes the default configuration as YAML
func GenerateExampleConfig(w io.Writer) error {
	data, err := yaml.Marshal(getDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to render example config: %w", err)
	}

	if _, err := fmt.Fprintln(w, "# storefront configuration. Every key can be overridden with a STOREFRONT_ environment variable."); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
