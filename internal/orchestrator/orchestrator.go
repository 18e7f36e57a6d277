// Package orchestrator drives every mutating contract call through
// one sequence: validate client-side, convert units, submit, wait for
// the transaction to be mined, then refresh the affected collection.
package orchestrator

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"unigame/internal/fault"
	"unigame/internal/model"
	"unigame/internal/notify"
	"unigame/internal/store"
	"unigame/internal/unigame"
	"unigame/internal/units"
)

// Phase is the state of one mutation kind.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseValidating           Phase = "validating"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseRefreshing           Phase = "refreshing"
)

// Backend is the chain surface the orchestrator drives.
type Backend interface {
	unigame.Caller
	unigame.Submitter
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	SignerAddress() (common.Address, bool)
}

// ActionRecorder persists confirmed actions for the history view.
type ActionRecorder interface {
	RecordAction(ctx context.Context, record model.ActionRecord) error
}

// MutationObserver counts mutation outcomes; the metrics package
// implements it.
type MutationObserver interface {
	ObserveMutation(action string, outcome string)
}

// LookupInvalidator drops cached per-account lookups once a mutation
// that changes them is confirmed. The cache package implements it.
type LookupInvalidator interface {
	InvalidateVote(ctx context.Context, pollID uint64, account common.Address)
	InvalidateTickets(ctx context.Context, raffleID uint64, account common.Address)
}

// Orchestrator validates, submits and confirms mutations, refreshing
// the store on success. Failures never change the cache.
type Orchestrator struct {
	backend   Backend
	reader    *unigame.Reader
	writer    *unigame.Writer
	store     *store.Store
	refresher *store.Refresher
	hub       *notify.Hub
	history   ActionRecorder
	observer  MutationObserver
	lookups   LookupInvalidator
	logger    *zap.Logger
	validate  *validator.Validate

	now   func() time.Time
	nonce atomic.Uint64

	mu     sync.Mutex
	phases map[string]Phase
}

func New(backend Backend, st *store.Store, refresher *store.Refresher, hub *notify.Hub, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		backend:   backend,
		reader:    unigame.NewReader(backend),
		writer:    unigame.NewWriter(backend),
		store:     st,
		refresher: refresher,
		hub:       hub,
		logger:    logger,
		validate:  newValidator(),
		now:       time.Now,
		phases:    make(map[string]Phase),
	}
}

// WithHistory attaches an action recorder.
func (o *Orchestrator) WithHistory(history ActionRecorder) *Orchestrator {
	o.history = history
	return o
}

// WithObserver attaches a mutation observer.
func (o *Orchestrator) WithObserver(observer MutationObserver) *Orchestrator {
	o.observer = observer
	return o
}

// WithLookups attaches a per-account lookup invalidator.
func (o *Orchestrator) WithLookups(lookups LookupInvalidator) *Orchestrator {
	o.lookups = lookups
	return o
}

// Status reports the current phase of a mutation kind.
func (o *Orchestrator) Status(action string) Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	if phase, ok := o.phases[action]; ok {
		return phase
	}
	return PhaseIdle
}

// CreateBet opens a bet escrowing the creator's wager.
func (o *Orchestrator) CreateBet(ctx context.Context, in CreateBetInput) error {
	var value *big.Int
	return o.run(ctx, mutation{
		action:   "create_bet",
		title:    "Create Bet",
		resource: model.ResourceBets,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			parsed, err := parseAmount("amount", in.Amount)
			if err != nil {
				return err
			}
			value = parsed
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			days := in.DeadlineDays
			if days == 0 {
				days = 7
			}
			now := o.now()
			deadline := now.Unix() + int64(units.DaysToSeconds(days))
			eventID := unigame.NewBetEventID(in.Description, now, o.nonce.Add(1))
			return o.writer.CreateBet(ctx, in.Description, eventID, deadline, value)
		},
		amount: func() string { return in.Amount },
	})
}

// AcceptBet matches an open bet. A bet the cache already shows as
// matched fails validation before any chain traffic.
func (o *Orchestrator) AcceptBet(ctx context.Context, in AcceptBetInput) error {
	var value *big.Int
	return o.run(ctx, mutation{
		action:     "accept_bet",
		title:      "Accept Bet",
		resource:   model.ResourceBets,
		resourceID: in.BetID,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			parsed, err := parseAmount("amount", in.Amount)
			if err != nil {
				return err
			}
			value = parsed
			if bet, ok := o.store.Bet(in.BetID); ok && !bet.IsOpen() {
				return fmt.Errorf("bet %d is not open for acceptance", in.BetID)
			}
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.AcceptBet(ctx, in.BetID, value)
		},
		amount: func() string { return in.Amount },
	})
}

// ResolveBet settles a bet in favor of the winner.
func (o *Orchestrator) ResolveBet(ctx context.Context, in ResolveBetInput) error {
	var winner common.Address
	return o.run(ctx, mutation{
		action:     "resolve_bet",
		title:      "Resolve Bet",
		resource:   model.ResourceBets,
		resourceID: in.BetID,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			parsed, err := parseAddress("winner", in.Winner)
			if err != nil {
				return err
			}
			winner = parsed
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.ResolveBet(ctx, in.BetID, winner)
		},
	})
}

// CreatePoll opens a poll.
func (o *Orchestrator) CreatePoll(ctx context.Context, in CreatePollInput) error {
	return o.run(ctx, mutation{
		action:   "create_poll",
		title:    "Create Poll",
		resource: model.ResourcePolls,
		validate: func() error {
			return o.validate.Struct(in)
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.CreatePoll(ctx, in.Question, in.Options, units.DaysToSeconds(in.DurationDays))
		},
	})
}

// Vote casts a vote on a poll option.
func (o *Orchestrator) Vote(ctx context.Context, in VoteInput) error {
	return o.run(ctx, mutation{
		action:     "vote",
		title:      "Submit Vote",
		resource:   model.ResourcePolls,
		resourceID: in.PollID,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			for _, poll := range o.store.Polls() {
				if poll.ID == in.PollID && in.OptionIndex >= uint64(len(poll.Options)) {
					return fmt.Errorf("option index %d out of range for poll %d", in.OptionIndex, in.PollID)
				}
			}
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.Vote(ctx, in.PollID, in.OptionIndex)
		},
		invalidate: func(ctx context.Context) {
			if o.lookups == nil {
				return
			}
			if addr, ok := o.backend.SignerAddress(); ok {
				o.lookups.InvalidateVote(ctx, in.PollID, addr)
			}
		},
	})
}

// CreateRaffle opens a raffle; the ticket price is stored, not paid.
func (o *Orchestrator) CreateRaffle(ctx context.Context, in CreateRaffleInput) error {
	var price *big.Int
	return o.run(ctx, mutation{
		action:   "create_raffle",
		title:    "Create Raffle",
		resource: model.ResourceRaffles,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			parsed, err := parseAmount("ticket price", in.TicketPrice)
			if err != nil {
				return err
			}
			price = parsed
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.CreateRaffle(ctx, price, units.DaysToSeconds(in.DurationDays))
		},
		amount: func() string { return in.TicketPrice },
	})
}

// BuyTickets purchases raffle tickets, pricing the attached value from
// the raffle's current on-chain ticket price.
func (o *Orchestrator) BuyTickets(ctx context.Context, in BuyTicketsInput) error {
	var value *big.Int
	return o.run(ctx, mutation{
		action:     "buy_tickets",
		title:      "Buy Raffle Tickets",
		resource:   model.ResourceRaffles,
		resourceID: in.RaffleID,
		validate: func() error {
			return o.validate.Struct(in)
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			raffle, err := o.reader.Raffle(ctx, in.RaffleID)
			if err != nil {
				return nil, err
			}
			value = units.MulByCount(raffle.TicketPrice, in.Count)
			return o.writer.BuyTickets(ctx, in.RaffleID, in.Count, value)
		},
		amount: func() string { return units.FormatUnits(value, 6) },
		invalidate: func(ctx context.Context) {
			if o.lookups == nil {
				return
			}
			if addr, ok := o.backend.SignerAddress(); ok {
				o.lookups.InvalidateTickets(ctx, in.RaffleID, addr)
			}
		},
	})
}

// CreateStakePool opens a stake pool.
func (o *Orchestrator) CreateStakePool(ctx context.Context, in CreateStakePoolInput) error {
	var (
		maxStake *big.Int
		apyBps   uint64
	)
	return o.run(ctx, mutation{
		action:   "create_stake_pool",
		title:    "Create Stake Pool",
		resource: model.ResourceStakes,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			parsed, err := parseAmount("max stake", in.MaxStake)
			if err != nil {
				return err
			}
			maxStake = parsed
			bps, err := units.ToBasisPoints(in.APYPercent)
			if err != nil {
				return err
			}
			apyBps = bps
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.CreateStakePool(ctx, in.Name, maxStake, apyBps, units.DaysToSeconds(in.DurationDays))
		},
		amount: func() string { return in.MaxStake },
	})
}

// Stake deposits into a pool.
func (o *Orchestrator) Stake(ctx context.Context, in StakeInput) error {
	var value *big.Int
	return o.run(ctx, mutation{
		action:     "stake",
		title:      "Stake",
		resource:   model.ResourceStakes,
		resourceID: in.PoolID,
		validate: func() error {
			if err := o.validate.Struct(in); err != nil {
				return err
			}
			parsed, err := parseAmount("amount", in.Amount)
			if err != nil {
				return err
			}
			value = parsed
			return nil
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.Stake(ctx, in.PoolID, value)
		},
		amount: func() string { return in.Amount },
	})
}

// Unstake withdraws the caller's position from a pool.
func (o *Orchestrator) Unstake(ctx context.Context, in UnstakeInput) error {
	return o.run(ctx, mutation{
		action:     "unstake",
		title:      "Unstake",
		resource:   model.ResourceStakes,
		resourceID: in.PoolID,
		validate: func() error {
			return o.validate.Struct(in)
		},
		submit: func(ctx context.Context) (*types.Transaction, error) {
			return o.writer.Unstake(ctx, in.PoolID)
		},
	})
}

type mutation struct {
	action     string
	title      string
	resource   model.Resource
	resourceID uint64
	validate   func() error
	submit     func(context.Context) (*types.Transaction, error)
	amount     func() string
	invalidate func(context.Context)
}

func (o *Orchestrator) run(ctx context.Context, m mutation) error {
	o.setPhase(m.action, PhaseValidating)
	defer o.setPhase(m.action, PhaseIdle)

	if err := m.validate(); err != nil {
		f := fault.Wrap(m.action, fault.KindValidation, err)
		o.hub.Error(m.action, fmt.Sprintf("%s failed: %s", m.title, fault.Message(f)))
		o.observe(m.action, "validation_failed")
		return f
	}

	o.setPhase(m.action, PhaseSubmitting)
	tx, err := m.submit(ctx)
	if err != nil {
		return o.fail(m, err)
	}

	o.setPhase(m.action, PhaseAwaitingConfirmation)
	if _, err := o.backend.WaitMined(ctx, tx); err != nil {
		return o.fail(m, err)
	}

	o.setPhase(m.action, PhaseRefreshing)
	o.hub.Success(m.action, fmt.Sprintf("%s was successful!", m.title))
	o.recordAction(ctx, m, tx)
	if m.invalidate != nil {
		m.invalidate(ctx)
	}

	// The action already succeeded on chain; a refresh failure only
	// leaves the cache stale and is reported through the store's
	// resource error state.
	if err := o.refresher.Refresh(ctx, m.resource); err != nil {
		o.logger.Warn("post-mutation refresh failed",
			zap.String("action", m.action),
			zap.Error(err),
		)
	}

	o.observe(m.action, "succeeded")
	return nil
}

func (o *Orchestrator) fail(m mutation, err error) error {
	classified := fault.Classify(m.action, err)
	o.hub.Error(m.action, fmt.Sprintf("%s failed: %s", m.title, fault.Message(classified)))
	o.observe(m.action, fault.KindOf(classified).String())
	o.logger.Warn("mutation failed",
		zap.String("action", m.action),
		zap.String("kind", fault.KindOf(classified).String()),
		zap.Error(classified),
	)
	return classified
}

func (o *Orchestrator) recordAction(ctx context.Context, m mutation, tx *types.Transaction) {
	if o.history == nil {
		return
	}
	account := ""
	if addr, ok := o.backend.SignerAddress(); ok {
		account = addr.Hex()
	}
	amount := ""
	if m.amount != nil {
		amount = m.amount()
	}
	record := model.ActionRecord{
		ID:         uuid.NewString(),
		Account:    account,
		Action:     m.action,
		Resource:   m.resource,
		ResourceID: m.resourceID,
		Amount:     amount,
		TxHash:     tx.Hash().Hex(),
		At:         o.now().Unix(),
	}
	if err := o.history.RecordAction(ctx, record); err != nil {
		o.logger.Warn("record action failed", zap.String("action", m.action), zap.Error(err))
	}
}

func (o *Orchestrator) observe(action, outcome string) {
	if o.observer != nil {
		o.observer.ObserveMutation(action, outcome)
	}
}

func (o *Orchestrator) setPhase(action string, phase Phase) {
	o.mu.Lock()
	o.phases[action] = phase
	o.mu.Unlock()
}
