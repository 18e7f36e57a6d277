package store

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"unigame/internal/model"
	"unigame/internal/unigame"
)

// RefreshObserver is notified of completed collection refreshes; the
// metrics package implements it.
type RefreshObserver interface {
	ObserveRefresh(resource model.Resource, took time.Duration, records int)
}

// Refresher repopulates the store from the contract: count read, then
// one read per id, joined and swapped in atomically. A failed record
// read drops that record; a failed count read keeps the stale
// collection and records a resource-scoped error.
type Refresher struct {
	reader   *unigame.Reader
	store    *Store
	logger   *zap.Logger
	observer RefreshObserver

	// account, when set, enables per-account enrichment of stake
	// pool records.
	account *common.Address
}

func NewRefresher(reader *unigame.Reader, store *Store, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{reader: reader, store: store, logger: logger}
}

// WithAccount enables user stake enrichment for the connected account.
func (r *Refresher) WithAccount(account common.Address) *Refresher {
	r.account = &account
	return r
}

// WithObserver attaches a refresh observer.
func (r *Refresher) WithObserver(observer RefreshObserver) *Refresher {
	r.observer = observer
	return r
}

// RefreshAll refreshes every collection concurrently. Per-resource
// failures are independent; the first error is returned.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	resources := model.Resources()
	errs := make([]error, len(resources))

	var wg sync.WaitGroup
	for i, resource := range resources {
		wg.Add(1)
		go func(i int, resource model.Resource) {
			defer wg.Done()
			errs[i] = r.Refresh(ctx, resource)
		}(i, resource)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Refresh refreshes one collection.
func (r *Refresher) Refresh(ctx context.Context, resource model.Resource) error {
	start := time.Now()
	var (
		records int
		err     error
	)

	switch resource {
	case model.ResourceBets:
		records, err = r.refreshBets(ctx)
	case model.ResourcePolls:
		records, err = r.refreshPolls(ctx)
	case model.ResourceRaffles:
		records, err = r.refreshRaffles(ctx)
	case model.ResourceStakes:
		records, err = r.refreshStakePools(ctx)
	}

	if err != nil {
		r.store.SetErr(resource, err)
		r.logger.Warn("refresh failed",
			zap.String("resource", string(resource)),
			zap.Error(err),
		)
		return err
	}

	if r.observer != nil {
		r.observer.ObserveRefresh(resource, time.Since(start), records)
	}
	return nil
}

// RefreshOne re-reads a single record and upserts it, used by the
// event watcher for incremental updates.
func (r *Refresher) RefreshOne(ctx context.Context, resource model.Resource, id uint64) error {
	switch resource {
	case model.ResourceBets:
		bet, err := r.reader.Bet(ctx, id)
		if err != nil {
			return err
		}
		r.warnInvalid(bet.Validate())
		r.store.UpsertBet(bet)
	case model.ResourcePolls:
		poll, err := r.reader.Poll(ctx, id)
		if err != nil {
			return err
		}
		r.store.UpsertPoll(poll)
	case model.ResourceRaffles:
		raffle, err := r.reader.Raffle(ctx, id)
		if err != nil {
			return err
		}
		r.warnInvalid(raffle.Validate())
		r.store.UpsertRaffle(raffle)
	case model.ResourceStakes:
		pool, err := r.fetchStakePool(ctx, id)
		if err != nil {
			return err
		}
		r.store.UpsertStakePool(pool)
	}
	return nil
}

func (r *Refresher) refreshBets(ctx context.Context) (int, error) {
	count, err := r.reader.BetCount(ctx)
	if err != nil {
		return 0, err
	}

	bets := fetchEach(ctx, model.ResourceBets, count, func(ctx context.Context, id uint64) (model.Bet, error) {
		bet, err := r.reader.Bet(ctx, id)
		if err != nil {
			r.logger.Warn("fetch bet failed", zap.Uint64("id", id), zap.Error(err))
			return model.Bet{}, err
		}
		r.warnInvalid(bet.Validate())
		return bet, nil
	})

	r.store.ReplaceBets(bets)
	return len(bets), nil
}

func (r *Refresher) refreshPolls(ctx context.Context) (int, error) {
	count, err := r.reader.PollCount(ctx)
	if err != nil {
		return 0, err
	}

	polls := fetchEach(ctx, model.ResourcePolls, count, func(ctx context.Context, id uint64) (model.Poll, error) {
		poll, err := r.reader.Poll(ctx, id)
		if err != nil {
			r.logger.Warn("fetch poll failed", zap.Uint64("id", id), zap.Error(err))
			return model.Poll{}, err
		}
		return poll, nil
	})

	r.store.ReplacePolls(polls)
	return len(polls), nil
}

func (r *Refresher) refreshRaffles(ctx context.Context) (int, error) {
	count, err := r.reader.RaffleCount(ctx)
	if err != nil {
		return 0, err
	}

	raffles := fetchEach(ctx, model.ResourceRaffles, count, func(ctx context.Context, id uint64) (model.Raffle, error) {
		raffle, err := r.reader.Raffle(ctx, id)
		if err != nil {
			r.logger.Warn("fetch raffle failed", zap.Uint64("id", id), zap.Error(err))
			return model.Raffle{}, err
		}
		r.warnInvalid(raffle.Validate())
		return raffle, nil
	})

	r.store.ReplaceRaffles(raffles)
	return len(raffles), nil
}

func (r *Refresher) refreshStakePools(ctx context.Context) (int, error) {
	count, err := r.reader.StakePoolCount(ctx)
	if err != nil {
		return 0, err
	}

	pools := fetchEach(ctx, model.ResourceStakes, count, func(ctx context.Context, id uint64) (model.StakePool, error) {
		pool, err := r.fetchStakePool(ctx, id)
		if err != nil {
			r.logger.Warn("fetch stake pool failed", zap.Uint64("id", id), zap.Error(err))
			return model.StakePool{}, err
		}
		return pool, nil
	})

	r.store.ReplaceStakePools(pools)
	return len(pools), nil
}

func (r *Refresher) fetchStakePool(ctx context.Context, id uint64) (model.StakePool, error) {
	pool, err := r.reader.StakePool(ctx, id)
	if err != nil {
		return model.StakePool{}, err
	}
	r.warnInvalid(pool.Validate())

	if r.account != nil {
		stake, err := r.reader.UserStake(ctx, id, *r.account)
		if err != nil {
			// The pool record is still useful without the position.
			r.logger.Warn("fetch user stake failed", zap.Uint64("pool", id), zap.Error(err))
		} else if stake.Active || (stake.Amount != nil && stake.Amount.Sign() > 0) {
			pool.UserStake = &stake
		}
	}
	return pool, nil
}

func (r *Refresher) warnInvalid(err error) {
	if err != nil {
		r.logger.Warn("record fails invariant check", zap.Error(err))
	}
}

// fetchEach reads every id of a resource concurrently and joins the
// results in id order, dropping failed records.
func fetchEach[T any](ctx context.Context, resource model.Resource, count uint64, fetch func(context.Context, uint64) (T, error)) []T {
	first := resource.FirstID()
	results := make([]*T, count)

	var wg sync.WaitGroup
	for i := uint64(0); i < count; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			record, err := fetch(ctx, first+i)
			if err != nil {
				return
			}
			results[i] = &record
		}(i)
	}
	wg.Wait()

	out := make([]T, 0, count)
	for _, record := range results {
		if record != nil {
			out = append(out, *record)
		}
	}
	return out
}
