package main

import (
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"kv-store/internal/config"
	"kv-store/internal/logger"
)

// envPrefix は環境変数の接頭辞
const envPrefix = "KVSTORE"

// defaultConfigFile はホームディレクトリ内の既定の設定ファイル
const defaultConfigFile = "~/.kv-store.yaml"

// options は全サブコマンドで共有する設定
type options struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "kv-store",
		Short:         "A distributed key-value store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.init(cmd.Flags())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (YAML, JSON or TOML; default "+defaultConfigFile+")")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbosely list operations performed")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServerCmd(opts),
		newClientCmd(opts),
		newBenchCmd(opts),
		newClusterCmd(opts),
	)
	return cmd
}

// init はフラグと環境変数をviperに結び付け、ログレベルを設定する
func (o *options) init(fs *pflag.FlagSet) error {
	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	if err := o.v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "bind flags")
	}

	level := logger.LevelInfo
	if s := o.v.GetString("log-level"); s != "" {
		l, err := logger.ParseLevel(s)
		if err != nil {
			return err
		}
		level = l
	}
	if o.verbose || o.v.GetBool("verbose") {
		level = logger.LevelDebug
	}
	logger.SetLevel(level)
	return nil
}

// configFile は読み込む設定ファイルのパスを返す。ファイルがなければ空文字列
func (o *options) configFile() (string, error) {
	if o.cfgFile != "" {
		return o.cfgFile, nil
	}
	path, err := homedir.Expand(defaultConfigFile)
	if err != nil {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// nodeConfig はデフォルト、設定ファイル、環境変数、フラグの順に重ねた設定を返す
func (o *options) nodeConfig() (config.Config, error) {
	cfg := config.DefaultConfig()

	path, err := o.configFile()
	if err != nil {
		return cfg, err
	}
	if path != "" {
		fileConfig, err := config.LoadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := fileConfig.Validate(); err != nil {
			return cfg, errors.Wrapf(err, "invalid config file %s", path)
		}
		if cfg, err = fileConfig.ToConfig(); err != nil {
			return cfg, err
		}
		logger.Debug("", "Using config file: %s", path)
	}

	v := o.v
	if v.IsSet("ip") {
		cfg.Addr = v.GetString("ip")
	}
	if v.IsSet("peers") {
		cfg.Peers = splitList(v.GetString("peers"))
	}
	if v.IsSet("rpc-timeout") {
		cfg.RPCTimeout = v.GetDuration("rpc-timeout")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("status-addr") {
		cfg.StatusAddr = v.GetString("status-addr")
	}
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}

	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil && !o.verbose && !v.IsSet("log-level") {
		logger.SetLevel(level)
	}

	return cfg, nil
}

// splitList はカンマまたは空白区切りの一覧を分解する
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
