package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mnistpng configuration file
// (~/.config/mnistpng/config.yaml). Pointer fields distinguish "not set"
// from false/zero.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Set     string `yaml:"set"`
	OutDir  string `yaml:"out_dir"`

	DirectSeek *bool `yaml:"direct_seek"`
	ByLabel    *bool `yaml:"by_label"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress     string   `yaml:"server_address"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mnistpng", "config.yaml")
}

// LoadConfig reads the config file at path. A missing file yields a zero
// Config; a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// applyLoggingConfig applies config file defaults to the global logging
// flags when they were not set on the command line.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyDatasetConfig applies config file defaults to the dataset flags.
func applyDatasetConfig(c *cli.Command, cfg Config) {
	if cfg.DataDir != "" && !c.IsSet("data-dir") {
		dataDir = cfg.DataDir
	}
	if cfg.Set != "" && !c.IsSet("set") {
		datasetSet = cfg.Set
	}
	if cfg.DirectSeek != nil && !c.IsSet("direct-seek") {
		directSeek = *cfg.DirectSeek
	}
}

// preferDirectSeek turns direct seeking on when neither the flag nor the
// config file chose a mode. Commands that seek per record call it.
func preferDirectSeek(c *cli.Command, cfg Config) {
	if !c.IsSet("direct-seek") && cfg.DirectSeek == nil {
		directSeek = true
	}
}

// applyExportConfig applies config file defaults to export command variables.
func applyExportConfig(c *cli.Command, cfg Config, outDir *string, byLabel *bool) {
	applyDatasetConfig(c, cfg)
	if cfg.OutDir != "" && !c.IsSet("out") {
		*outDir = cfg.OutDir
	}
	if cfg.ByLabel != nil && !c.IsSet("by-label") {
		*byLabel = *cfg.ByLabel
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, rps *float64) {
	applyDatasetConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.RequestsPerSecond != nil && !c.IsSet("rate") {
		*rps = *cfg.RequestsPerSecond
	}
}
