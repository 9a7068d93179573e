package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "BLENDKIT_"
	envConfig = envPrefix + "CONFIG"
)

// Config represents the blendkit configuration file
// (~/.config/blendkit/config.yaml). BLENDKIT_* environment variables,
// including those from a .env file in the working directory, override it.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	OutDir            string `yaml:"out_dir"`
	TreeFormat        string `yaml:"tree_format"`
	Compress          string `yaml:"compress"`
	CompressThreshold *int   `yaml:"compress_threshold"`
	MaxWorklistRounds *int   `yaml:"max_worklist_rounds"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	if configFile != "" {
		return configFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blendkit", "config.yaml")
}

// LoadConfig reads the config file and applies environment overrides. A
// missing or unreadable file yields the environment-only config.
func LoadConfig() Config {
	_ = godotenv.Load(".env")
	var cfg Config
	if path := configPath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				cfg = Config{}
			}
		}
	}
	applyEnv(&cfg, os.Getenv)
	return cfg
}

func applyEnv(cfg *Config, getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst **int) {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = &n
			}
		}
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("OUT_DIR", &cfg.OutDir)
	str("TREE_FORMAT", &cfg.TreeFormat)
	str("COMPRESS", &cfg.Compress)
	num("COMPRESS_THRESHOLD", &cfg.CompressThreshold)
	num("MAX_WORKLIST_ROUNDS", &cfg.MaxWorklistRounds)
	str("SERVER_ADDRESS", &cfg.ServerAddress)
}

// applyLoggingConfig applies config defaults to the logging flags when they
// were not set explicitly.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyOutputConfig fills unset output and tree flags from cfg.
func applyOutputConfig(c *cli.Command, cfg Config) {
	if cfg.OutDir != "" && !c.IsSet("out") {
		outDir = cfg.OutDir
	}
	if cfg.TreeFormat != "" && !c.IsSet("format") {
		treeFormat = cfg.TreeFormat
	}
	if cfg.Compress != "" && !c.IsSet("compress") {
		codecName = cfg.Compress
	}
	if cfg.CompressThreshold != nil && !c.IsSet("compress-threshold") {
		threshold = *cfg.CompressThreshold
	}
	if cfg.MaxWorklistRounds != nil && !c.IsSet("max-rounds") {
		maxRounds = *cfg.MaxWorklistRounds
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
