package main

import (
	"encoding/json"
	"flag"
	"os"
	"path"
	"strings"

	"github.com/omeid/uconfig"
	"github.com/omeid/uconfig/plugins"
	"github.com/omeid/uconfig/plugins/file"
	"github.com/rs/zerolog/log"
)

// configFilename is the filename of the config file automatically loaded.
var configFilename = "config.json"

type config struct {
	Dir string // This will default to "", NOT the default dir value set via the flag package

	HTTP      HTTPConfig
	Discovery DiscoveryConfig
	Pipeline  PipelineConfig

	Metrics struct {
		Port string `default:"9090"`
	}
	Log struct {
		Human bool `default:"false"`
		Debug bool `default:"false"`
	}

	Chains []ChainConfig
}

// HTTPConfig contains configuration for the ops-only HTTP server
// (/healthz; /metrics is served separately by pkg/metrics).
type HTTPConfig struct {
	Port string `default:"8080"`
}

// DiscoveryConfig configures the discovery handler engine (C1-C5).
type DiscoveryConfig struct {
	BatchSize uint64 `default:"1000"` // log fetch batch size, see logfeed.BatchSize
}

// PipelineConfig configures the dependency-scheduled script pipeline
// (C6-C10).
type PipelineConfig struct {
	ForkRPCURL         string `default:"" env:"AOMI_FORK_RPC"`
	SkipExecution      bool   `default:"false"`
	SkipGeneration     bool   `default:"false"`
	MaxConcurrentFetch uint64 `default:"8"`
}

// ChainConfig is the RPC endpoint a discovery run is executed against.
type ChainConfig struct {
	Name        string `default:""`
	ChainID     string `default:""`
	EthEndpoint string `default:""`
}

func setupConfig() (*config, string) {
	flagDirPath := flag.String("dir", "${HOME}/.agentcore", "Directory where the configuration exists")
	flag.Parse()
	if flagDirPath == nil {
		log.Fatal().Msg("--dir is null")
		return nil, "" // Helping the linter know the next line is safe.
	}
	dirPath := os.ExpandEnv(*flagDirPath)

	_ = os.MkdirAll(dirPath, 0o755)

	var plugins []plugins.Plugin
	fullPath := path.Join(dirPath, configFilename)
	configFileBytes, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		log.Info().Str("config_file_path", fullPath).Msg("config file not found")
	} else if err != nil {
		log.Fatal().Str("config_file_path", fullPath).Err(err).Msg("opening config file")
	} else {
		fileStr := os.ExpandEnv(string(configFileBytes))
		plugins = append(plugins, file.NewReader(strings.NewReader(fileStr), json.Unmarshal))
	}

	conf := &config{}
	c, err := uconfig.Classic(&conf, file.Files{}, plugins...)
	if err != nil {
		c.Usage()
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	return conf, dirPath
}
