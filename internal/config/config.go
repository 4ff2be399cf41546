// Package config loads the indexer configuration from config file,
// environment variables and command line flags, in ascending precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"solana-nft-indexer/internal/auctionhouse"
	"solana-nft-indexer/internal/solana"
)

// Config holds all runtime configuration of the indexer.
type Config struct {
	RPCEndpoint string
	WSEndpoint  string
	Program     string

	PostgresDSN   string
	ClickhouseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BlockCacheTTL time.Duration

	BlacklistMints []string

	MetricsAddr string
	LogLevel    string
}

// Load merges config file, environment variables and flags into Config.
// Environment variables use the INDEXER_ prefix with dashes replaced by
// underscores (INDEXER_RPC_ENDPOINT, ...).
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("rpc-endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("ws-endpoint", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("program", auctionhouse.ProgramID)
	v.SetDefault("redis-addr", "localhost:6379")
	v.SetDefault("redis-db", 0)
	v.SetDefault("block-cache-ttl", 7*24*time.Hour)
	v.SetDefault("metrics-addr", ":9090")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCEndpoint:    v.GetString("rpc-endpoint"),
		WSEndpoint:     v.GetString("ws-endpoint"),
		Program:        v.GetString("program"),
		PostgresDSN:    v.GetString("postgres-dsn"),
		ClickhouseDSN:  v.GetString("clickhouse-dsn"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		BlockCacheTTL:  v.GetDuration("block-cache-ttl"),
		BlacklistMints: getStringSlice(v, "blacklist-mints"),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       v.GetString("log-level"),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("postgres-dsn is required")
	}
	if !solana.ValidAddress(cfg.Program) {
		return Config{}, fmt.Errorf("program %q is not a valid base58 account address", cfg.Program)
	}
	for _, mint := range cfg.BlacklistMints {
		if !solana.ValidAddress(mint) {
			return Config{}, fmt.Errorf("blacklisted mint %q is not a valid base58 account address", mint)
		}
	}

	return cfg, nil
}

// getStringSlice reads a key that may arrive as a real list (config
// file), a comma separated string (env) or a repeated flag.
func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
