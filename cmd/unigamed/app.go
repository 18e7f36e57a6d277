package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"unigame/internal/chain"
	"unigame/internal/config"
	"unigame/internal/notify"
	"unigame/internal/orchestrator"
	"unigame/internal/store"
	"unigame/internal/unigame"
	"unigame/internal/wallet"
)

// app bundles the wiring shared by serve and the one-shot commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	chain     *chain.Client
	reader    *unigame.Reader
	store     *store.Store
	refresher *store.Refresher
	hub       *notify.Hub
	orch      *orchestrator.Orchestrator
}

// newApp connects to the chain and builds the application core. When
// withSigner is set a keystore account is unlocked so mutations can be
// submitted.
func newApp(ctx context.Context, cmd *cobra.Command, withSigner bool) (*app, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	if cfg.RPCURL == "" {
		return nil, nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, nil, fmt.Errorf("valid contract address is required")
	}

	contractABI, err := unigame.ContractABI()
	if err != nil {
		return nil, nil, err
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, common.HexToAddress(cfg.ContractAddress), contractABI)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	chainClient.SetPollInterval(cfg.PollInterval)

	cleanup := func() {
		chainClient.Close()
		_ = logger.Sync()
	}

	if cfg.ChainID != 0 {
		chainID, err := chainClient.ChainID(ctx)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("get chain id: %w", err)
		}
		if chainID.Uint64() != cfg.ChainID {
			cleanup()
			return nil, nil, fmt.Errorf("connected to chain %s, expected %d", chainID, cfg.ChainID)
		}
	}

	var account *common.Address
	if withSigner {
		w, err := wallet.Open(cfg.KeystoreDir, cfg.Account, cfg.PassphraseFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		chainClient.WithSigner(w)
		addr := w.Address()
		account = &addr
	}

	st := store.New()
	reader := unigame.NewReader(chainClient)
	refresher := store.NewRefresher(reader, st, logger)
	if account != nil {
		refresher.WithAccount(*account)
	}
	hub := notify.NewHub(logger)
	orch := orchestrator.New(chainClient, st, refresher, hub, logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		chain:     chainClient,
		reader:    reader,
		store:     st,
		refresher: refresher,
		hub:       hub,
		orch:      orch,
	}, cleanup, nil
}
