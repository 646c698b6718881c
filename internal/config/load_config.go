package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ACFGEN_TOOL_PATH.
const EnvPrefix = "ACFGEN_"

// DefaultConfigFile is read when present and no --config flag was given.
const DefaultConfigFile = "acfgen.yaml"

// LoadConfig builds a Config from defaults, the YAML file at configFile and ACFGEN_*
// environment variables, in that order of precedence.
// A missing file is only an error when explicit is true.
func LoadConfig(configFile string, explicit bool) (Config, error) {
	cfg := Default()

	if configFile != "" {
		raw, err := os.ReadFile(configFile)
		switch {
		case err == nil:
			// Decode on top of the defaults so that omitted keys keep their values.
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to unmarshal %s: %w", configFile, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("failed to read %s: %w", configFile, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.ToolPath == "" {
		return errors.New("tool_path must not be empty")
	}
	if c.ToolName == "" {
		return errors.New("tool_name must not be empty")
	}
	if c.InvokeTimeout <= 0 {
		return fmt.Errorf("invoke_timeout must be positive, got %s", c.InvokeTimeout)
	}
	if c.DownloadTimeout <= 0 {
		return fmt.Errorf("download_timeout must be positive, got %s", c.DownloadTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

// StatePath returns the provenance state file location.
func (c Config) StatePath() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return filepath.Join(filepath.Dir(c.ToolPath), ".acfgen-state.json")
}
