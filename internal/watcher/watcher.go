// Package watcher follows the contract's emitted events and applies
// incremental refreshes to the domain state cache, replacing the
// refetch-everything-after-every-write pattern for changes made by
// other actors.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"unigame/internal/chain"
	"unigame/internal/model"
	"unigame/internal/store"
)

// EventSink persists decoded events (history store, JSONL journal).
type EventSink interface {
	RecordEvents(ctx context.Context, events []model.ChainEvent) error
}

// EventPublisher forwards decoded events to an external bus.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event model.ChainEvent) error
}

// WatchObserver receives watcher instrumentation.
type WatchObserver interface {
	ObserveEvent(name string)
	ObserveBlockLag(lag uint64)
}

// Config holds runtime settings for the watcher.
type Config struct {
	FromBlock         uint64
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	PollInterval      time.Duration
}

// Watcher streams contract logs from a checkpoint, decodes them and
// refreshes the affected records.
type Watcher struct {
	cfg       Config
	chain     *chain.Client
	refresher *store.Refresher
	decoder   *Decoder
	sinks     []EventSink
	publisher EventPublisher
	observer  WatchObserver
	logger    *zap.Logger

	checkpoint *CheckpointStore
	seen       map[string]struct{}
	tsCache    map[uint64]uint64
}

// New builds a Watcher with its dependencies.
func New(cfg Config, chainClient *chain.Client, refresher *store.Refresher, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 2000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	return &Watcher{
		cfg:       cfg,
		chain:     chainClient,
		refresher: refresher,
		logger:    logger,
		seen:      make(map[string]struct{}),
		tsCache:   make(map[uint64]uint64),
	}
}

// WithSinks attaches event sinks.
func (w *Watcher) WithSinks(sinks ...EventSink) *Watcher {
	w.sinks = append(w.sinks, sinks...)
	return w
}

// WithPublisher attaches an external event publisher.
func (w *Watcher) WithPublisher(publisher EventPublisher) *Watcher {
	w.publisher = publisher
	return w
}

// WithObserver attaches instrumentation.
func (w *Watcher) WithObserver(observer WatchObserver) *Watcher {
	w.observer = observer
	return w
}

// Run catches up from the checkpoint, then follows the chain head
// until the context ends.
func (w *Watcher) Run(ctx context.Context) error {
	if w.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if w.refresher == nil {
		return fmt.Errorf("refresher is nil")
	}

	chainID, err := w.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	w.decoder, err = NewDecoder(chainID.Uint64())
	if err != nil {
		return err
	}
	w.checkpoint = NewCheckpointStore(
		w.cfg.CheckpointPath,
		w.cfg.CheckpointEnabled,
		chainID.Uint64(),
		w.chain.ContractAddress().Hex(),
	)

	from := w.cfg.FromBlock
	if cp, ok, err := w.checkpoint.Load(); err != nil {
		return err
	} else if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		w.logger.Info("resume from checkpoint",
			zap.Uint64("last_processed", cp.LastProcessedBlock),
			zap.Uint64("from", from),
		)
	}

	latest, err := w.chain.LatestBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	if from <= latest {
		if err := w.processSpan(ctx, from, latest); err != nil {
			return err
		}
	}
	last := latest

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		latest, err := w.chain.LatestBlockNumber(ctx)
		if err != nil {
			w.logger.Warn("latest block fetch failed", zap.Error(err))
			continue
		}
		if latest <= last {
			continue
		}
		if w.observer != nil {
			w.observer.ObserveBlockLag(latest - last)
		}
		if err := w.processSpan(ctx, last+1, latest); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("process span failed",
				zap.Uint64("from", last+1),
				zap.Uint64("to", latest),
				zap.Error(err),
			)
			continue
		}
		last = latest
	}
}

func (w *Watcher) processSpan(ctx context.Context, from, to uint64) error {
	ranges, err := SplitRange(from, to, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logs, err := w.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		events := make([]model.ChainEvent, 0, len(logs))
		for _, log := range logs {
			if log.Removed || !w.decoder.CanDecode(log) || w.isDuplicate(log) {
				continue
			}

			ts, err := w.blockTimestamp(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}

			event, err := w.decoder.Decode(log, ts)
			if err != nil {
				w.logger.Warn("decode event failed",
					zap.String("tx", log.TxHash.Hex()),
					zap.Uint64("block", log.BlockNumber),
					zap.Error(err),
				)
				continue
			}
			events = append(events, event)
			if w.observer != nil {
				w.observer.ObserveEvent(event.Name)
			}
		}

		w.applyEvents(ctx, events)

		for _, sink := range w.sinks {
			if err := sink.RecordEvents(ctx, events); err != nil {
				w.logger.Warn("event sink failed", zap.Error(err))
			}
		}
		if w.publisher != nil {
			for _, event := range events {
				if err := w.publisher.PublishEvent(ctx, event); err != nil {
					w.logger.Warn("event publish failed", zap.String("event", event.Name), zap.Error(err))
				}
			}
		}

		if err := w.checkpoint.Save(blockRange.To); err != nil {
			return err
		}

		if len(events) > 0 {
			w.logger.Info("events applied",
				zap.Int("events", len(events)),
				zap.Uint64("from", blockRange.From),
				zap.Uint64("to", blockRange.To),
			)
		}
	}

	return nil
}

// applyEvents refreshes each touched record once per batch.
func (w *Watcher) applyEvents(ctx context.Context, events []model.ChainEvent) {
	type target struct {
		resource model.Resource
		id       uint64
	}
	touched := make(map[target]struct{})

	for _, event := range events {
		key := target{resource: event.Resource, id: event.ResourceID}
		if _, ok := touched[key]; ok {
			continue
		}
		touched[key] = struct{}{}

		if err := w.refresher.RefreshOne(ctx, event.Resource, event.ResourceID); err != nil {
			w.logger.Warn("targeted refresh failed",
				zap.String("resource", string(event.Resource)),
				zap.Uint64("id", event.ResourceID),
				zap.Error(err),
			)
		}
	}
}

func (w *Watcher) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = w.chain.FilterLogs(ctx, fromBlock, toBlock)
		if err != nil {
			w.logger.Warn("filter logs failed",
				zap.Error(err),
				zap.Uint64("from", fromBlock),
				zap.Uint64("to", toBlock),
			)
		}
		return err
	})
	return logs, err
}

func (w *Watcher) blockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := w.tsCache[number]; ok {
		return ts, nil
	}
	var ts uint64
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = w.chain.HeaderTime(ctx, number)
		return err
	})
	if err != nil {
		return 0, err
	}
	w.tsCache[number] = ts
	return ts, nil
}

func (w *Watcher) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := w.seen[id]; ok {
		return true
	}
	w.seen[id] = struct{}{}
	return false
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
