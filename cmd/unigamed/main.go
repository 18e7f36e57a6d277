package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "unigamed",
		Short:        "UniGame contract client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "chain RPC URL")
	root.PersistentFlags().String("contract", "", "UniGame contract address")
	root.PersistentFlags().Uint64("chain-id", 0, "expected chain id, 0 skips the check")
	root.PersistentFlags().String("keystore", "", "keystore directory")
	root.PersistentFlags().String("account", "", "account address to sign with")
	root.PersistentFlags().String("passphrase-file", "", "file holding the keystore passphrase")
	root.PersistentFlags().Duration("confirm-timeout", 2*time.Minute, "confirmation wait limit")
	root.PersistentFlags().Duration("poll-interval", 3*time.Second, "receipt poll interval")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and event watcher",
		RunE:  runServe,
	}

	serveCmd.Flags().Bool("watcher-enabled", true, "follow contract events")
	serveCmd.Flags().Uint64("watcher-from", 0, "watcher start block")
	serveCmd.Flags().Uint64("watcher-batch-size", 2000, "blocks per log query")
	serveCmd.Flags().String("watcher-checkpoint", "./data/checkpoint.json", "checkpoint file path")
	serveCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	serveCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN for the activity log")
	serveCmd.Flags().String("event-journal", "./data/events.jsonl", "event journal JSONL path")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the lookup cache")
	serveCmd.Flags().StringSlice("kafka-brokers", nil, "Kafka brokers (comma-separated)")
	serveCmd.Flags().String("kafka-topic", "unigame.events", "Kafka topic for contract events")
	serveCmd.Flags().String("auth-base-url", "", "account backend base URL")
	serveCmd.Flags().Int("api-port", 8080, "API port")
	serveCmd.Flags().Int("metrics-port", 9095, "metrics port")

	root.AddCommand(serveCmd)
	root.AddCommand(newBetsCmd())
	root.AddCommand(newPollsCmd())
	root.AddCommand(newRafflesCmd())
	root.AddCommand(newStakesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
