package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	ContractAddress string
	ChainID         uint64

	KeystoreDir    string
	Account        string
	PassphraseFile string

	ConfirmTimeout time.Duration
	PollInterval   time.Duration

	WatcherEnabled    bool
	WatcherFromBlock  uint64
	WatcherBatchSize  uint64
	WatcherCheckpoint string
	MaxRetries        int
	RetryBackoff      time.Duration

	PostgresDSN  string
	EventJournal string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	AuthBaseURL string

	APIPort     int
	MetricsPort int
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UNIGAME")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("confirm-timeout", 2*time.Minute)
	v.SetDefault("poll-interval", 3*time.Second)
	v.SetDefault("watcher-enabled", true)
	v.SetDefault("watcher-batch-size", uint64(2000))
	v.SetDefault("watcher-checkpoint", "./data/checkpoint.json")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("event-journal", "./data/events.jsonl")
	v.SetDefault("kafka-topic", "unigame.events")
	v.SetDefault("api-port", 8080)
	v.SetDefault("metrics-port", 9095)
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
		RPCURL:            v.GetString("rpc"),
		ContractAddress:   v.GetString("contract"),
		ChainID:           v.GetUint64("chain-id"),
		KeystoreDir:       v.GetString("keystore"),
		Account:           v.GetString("account"),
		PassphraseFile:    v.GetString("passphrase-file"),
		ConfirmTimeout:    v.GetDuration("confirm-timeout"),
		PollInterval:      v.GetDuration("poll-interval"),
		WatcherEnabled:    v.GetBool("watcher-enabled"),
		WatcherFromBlock:  v.GetUint64("watcher-from"),
		WatcherBatchSize:  v.GetUint64("watcher-batch-size"),
		WatcherCheckpoint: v.GetString("watcher-checkpoint"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		PostgresDSN:       v.GetString("pg-dsn"),
		EventJournal:      v.GetString("event-journal"),
		RedisAddr:         v.GetString("redis-addr"),
		KafkaBrokers:      getStringSlice(v, "kafka-brokers"),
		KafkaTopic:        v.GetString("kafka-topic"),
		AuthBaseURL:       v.GetString("auth-base-url"),
		APIPort:           v.GetInt("api-port"),
		MetricsPort:       v.GetInt("metrics-port"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
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

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
