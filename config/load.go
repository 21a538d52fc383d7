package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown config file format")

// Files searched under the XDG config dirs when no path is given
var searchPaths = []string{
	"consolation/config.toml",
	"consolation/config.yaml",
	"consolation/config.yml",
}

// Find returns the first config file found in the XDG config dirs
func Find() (string, bool) {
	for _, rel := range searchPaths {
		if p, err := xdg.SearchConfigFile(rel); err == nil {
			return p, true
		}
	}
	return "", false
}

// Load builds the config from defaults, the config file and the environment.
// An empty path searches the XDG config dirs, a missing file there is fine
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if found, ok := Find(); ok {
			path = found
		}
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		logrus.WithField("path", path).Infoln("Loaded config file")
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	for i, o := range cfg.Outputs {
		if _, err := o.Resolve(nil); err != nil && !errors.Is(err, errNoOutput) {
			return nil, fmt.Errorf("output %d (%s): %w", i, o.Name, err)
		}
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
