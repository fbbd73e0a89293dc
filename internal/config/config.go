package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"kv-store/internal/addr"
	"kv-store/internal/client"
	"kv-store/internal/logger"
	"kv-store/internal/worker"
)

// Config はノードの実行時設定
type Config struct {
	Addr       string
	Peers      []string
	RPCTimeout time.Duration
	Workers    int
	StatusAddr string
	LogLevel   string
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Addr:       addr.Default,
		RPCTimeout: client.DefaultTimeout,
		Workers:    worker.DefaultWorkers,
		LogLevel:   logger.LevelInfo.String(),
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if _, err := addr.Parse(c.Addr); err != nil {
		return errors.Wrap(err, "addr")
	}
	for _, p := range c.Peers {
		if _, err := addr.Parse(p); err != nil {
			return errors.Wrap(err, "peers")
		}
	}
	if c.RPCTimeout <= 0 {
		return errors.New("rpc_timeout must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.StatusAddr != "" {
		if _, _, err := net.SplitHostPort(c.StatusAddr); err != nil {
			return errors.Wrap(err, "status_addr")
		}
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	return nil
}

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Node NodeConfig `yaml:"node" json:"node" toml:"node"`
}

// NodeConfig はノード設定
type NodeConfig struct {
	Addr       string   `yaml:"addr" json:"addr" toml:"addr"`
	Peers      []string `yaml:"peers" json:"peers" toml:"peers"`
	RPCTimeout string   `yaml:"rpc_timeout" json:"rpc_timeout" toml:"rpc_timeout"`
	Workers    int      `yaml:"workers" json:"workers" toml:"workers"`
	StatusAddr string   `yaml:"status_addr" json:"status_addr" toml:"status_addr"`
	LogLevel   string   `yaml:"log_level" json:"log_level" toml:"log_level"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML")
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON")
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse TOML")
		}
	default:
		return nil, errors.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate はファイルの値を検証する
func (f *FileConfig) Validate() error {
	nc := f.Node

	if nc.Workers < 0 {
		return errors.New("node.workers must be non-negative")
	}
	if nc.Addr != "" && !addr.Valid(nc.Addr) {
		return errors.Errorf("node.addr is not a valid address: %q", nc.Addr)
	}
	for _, p := range nc.Peers {
		if !addr.Valid(p) {
			return errors.Errorf("node.peers contains an invalid address: %q", p)
		}
	}
	if nc.LogLevel != "" {
		if _, err := logger.ParseLevel(nc.LogLevel); err != nil {
			return errors.Wrap(err, "node.log_level")
		}
	}
	return nil
}

// ToConfig はFileConfigをデフォルト設定に重ねてConfigに変換する
func (f *FileConfig) ToConfig() (Config, error) {
	nc := f.Node
	config := DefaultConfig()

	if nc.Addr != "" {
		config.Addr = nc.Addr
	}
	if len(nc.Peers) > 0 {
		config.Peers = append([]string(nil), nc.Peers...)
	}
	if nc.RPCTimeout != "" {
		d, err := time.ParseDuration(nc.RPCTimeout)
		if err != nil {
			return config, errors.Wrap(err, "invalid rpc_timeout")
		}
		config.RPCTimeout = d
	}
	if nc.Workers > 0 {
		config.Workers = nc.Workers
	}
	if nc.StatusAddr != "" {
		config.StatusAddr = nc.StatusAddr
	}
	if nc.LogLevel != "" {
		config.LogLevel = nc.LogLevel
	}

	return config, nil
}
