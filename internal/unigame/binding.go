package unigame

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"unigame/internal/model"
)

// Caller executes view functions of the bound contract.
type Caller interface {
	CallView(ctx context.Context, method string, args ...interface{}) ([]interface{}, error)
}

// Submitter signs and sends mutating calls with an optional attached value.
type Submitter interface {
	Submit(ctx context.Context, method string, value *big.Int, args ...interface{}) (*types.Transaction, error)
}

// Reader decodes the contract's view surface into domain records.
type Reader struct {
	caller Caller
}

func NewReader(caller Caller) *Reader {
	return &Reader{caller: caller}
}

// BetCount returns the number of bets ever created. Bet ids run from
// 1 to the count, inclusive.
func (r *Reader) BetCount(ctx context.Context) (uint64, error) {
	return r.count(ctx, "betCounter")
}

// Bet fetches and decodes one bet.
func (r *Reader) Bet(ctx context.Context, id uint64) (model.Bet, error) {
	values, err := r.caller.CallView(ctx, "bets", new(big.Int).SetUint64(id))
	if err != nil {
		return model.Bet{}, err
	}
	if len(values) != 9 {
		return model.Bet{}, fmt.Errorf("bets(%d): expected 9 values, got %d", id, len(values))
	}

	bet := model.Bet{ID: id}
	if bet.Creator, err = asAddress(values[0]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) creator: %w", id, err)
	}
	if bet.Description, err = asString(values[1]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) description: %w", id, err)
	}
	if bet.EventID, err = asBytes32(values[2]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) eventId: %w", id, err)
	}
	if bet.Amount, err = asBigInt(values[3]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) amount: %w", id, err)
	}
	if bet.Challenger, err = asAddress(values[4]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) challenger: %w", id, err)
	}
	if bet.ChallengerAmount, err = asBigInt(values[5]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) challengerAmount: %w", id, err)
	}
	state, err := asUint8(values[6])
	if err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) state: %w", id, err)
	}
	bet.State = model.BetState(state)
	if bet.Winner, err = asAddress(values[7]); err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) winner: %w", id, err)
	}
	deadline, err := asBigInt(values[8])
	if err != nil {
		return model.Bet{}, fmt.Errorf("bets(%d) deadline: %w", id, err)
	}
	bet.Deadline = deadline.Int64()

	return bet, nil
}

// PollCount returns the number of polls. Poll ids run from 0 to
// count-1.
func (r *Reader) PollCount(ctx context.Context) (uint64, error) {
	return r.count(ctx, "getPollsLength")
}

// Poll fetches and decodes one poll with its options.
func (r *Reader) Poll(ctx context.Context, id uint64) (model.Poll, error) {
	values, err := r.caller.CallView(ctx, "getPollDetails", new(big.Int).SetUint64(id))
	if err != nil {
		return model.Poll{}, err
	}
	if len(values) != 6 {
		return model.Poll{}, fmt.Errorf("getPollDetails(%d): expected 6 values, got %d", id, len(values))
	}

	poll := model.Poll{ID: id}
	if poll.Question, err = asString(values[0]); err != nil {
		return model.Poll{}, fmt.Errorf("poll %d question: %w", id, err)
	}
	texts, err := asStringSlice(values[1])
	if err != nil {
		return model.Poll{}, fmt.Errorf("poll %d options: %w", id, err)
	}
	votes, err := asBigIntSlice(values[2])
	if err != nil {
		return model.Poll{}, fmt.Errorf("poll %d votes: %w", id, err)
	}
	if len(texts) != len(votes) {
		return model.Poll{}, fmt.Errorf("poll %d: %d option texts for %d vote counts", id, len(texts), len(votes))
	}
	poll.Options = make([]model.PollOption, len(texts))
	for i := range texts {
		poll.Options[i] = model.PollOption{Text: texts[i], Votes: votes[i]}
	}

	endTime, err := asBigInt(values[3])
	if err != nil {
		return model.Poll{}, fmt.Errorf("poll %d endTime: %w", id, err)
	}
	poll.EndTime = endTime.Int64()
	if poll.Creator, err = asAddress(values[4]); err != nil {
		return model.Poll{}, fmt.Errorf("poll %d creator: %w", id, err)
	}
	if poll.Active, err = asBool(values[5]); err != nil {
		return model.Poll{}, fmt.Errorf("poll %d active: %w", id, err)
	}

	return poll, nil
}

// HasVoted reports whether the account already voted on the poll.
func (r *Reader) HasVoted(ctx context.Context, pollID uint64, account common.Address) (bool, error) {
	values, err := r.caller.CallView(ctx, "hasVoted", new(big.Int).SetUint64(pollID), account)
	if err != nil {
		return false, err
	}
	if len(values) != 1 {
		return false, fmt.Errorf("hasVoted: expected 1 value, got %d", len(values))
	}
	return asBool(values[0])
}

// RaffleCount returns the number of raffles. Raffle ids run from 0 to
// count-1.
func (r *Reader) RaffleCount(ctx context.Context) (uint64, error) {
	return r.count(ctx, "raffleCount")
}

// Raffle fetches and decodes one raffle.
func (r *Reader) Raffle(ctx context.Context, id uint64) (model.Raffle, error) {
	values, err := r.caller.CallView(ctx, "raffles", new(big.Int).SetUint64(id))
	if err != nil {
		return model.Raffle{}, err
	}
	if len(values) != 6 {
		return model.Raffle{}, fmt.Errorf("raffles(%d): expected 6 values, got %d", id, len(values))
	}

	raffle := model.Raffle{ID: id}
	if raffle.Creator, err = asAddress(values[0]); err != nil {
		return model.Raffle{}, fmt.Errorf("raffle %d creator: %w", id, err)
	}
	if raffle.TicketPrice, err = asBigInt(values[1]); err != nil {
		return model.Raffle{}, fmt.Errorf("raffle %d ticketPrice: %w", id, err)
	}
	if raffle.TotalPool, err = asBigInt(values[2]); err != nil {
		return model.Raffle{}, fmt.Errorf("raffle %d totalPool: %w", id, err)
	}
	endTime, err := asBigInt(values[3])
	if err != nil {
		return model.Raffle{}, fmt.Errorf("raffle %d endTime: %w", id, err)
	}
	raffle.EndTime = endTime.Int64()
	if raffle.Active, err = asBool(values[4]); err != nil {
		return model.Raffle{}, fmt.Errorf("raffle %d active: %w", id, err)
	}
	if raffle.Winner, err = asAddress(values[5]); err != nil {
		return model.Raffle{}, fmt.Errorf("raffle %d winner: %w", id, err)
	}

	return raffle, nil
}

// TicketsBought returns how many tickets the account holds in a raffle.
func (r *Reader) TicketsBought(ctx context.Context, raffleID uint64, account common.Address) (uint64, error) {
	values, err := r.caller.CallView(ctx, "ticketsBought", new(big.Int).SetUint64(raffleID), account)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("ticketsBought: expected 1 value, got %d", len(values))
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return 0, err
	}
	return count.Uint64(), nil
}

// StakePoolCount returns the number of stake pools. Pool ids run from
// 1 to the count, inclusive.
func (r *Reader) StakePoolCount(ctx context.Context) (uint64, error) {
	return r.count(ctx, "stakePoolCounter")
}

// StakePool fetches and decodes one stake pool, without the
// per-account position.
func (r *Reader) StakePool(ctx context.Context, id uint64) (model.StakePool, error) {
	values, err := r.caller.CallView(ctx, "stakePools", new(big.Int).SetUint64(id))
	if err != nil {
		return model.StakePool{}, err
	}
	if len(values) != 8 {
		return model.StakePool{}, fmt.Errorf("stakePools(%d): expected 8 values, got %d", id, len(values))
	}

	pool := model.StakePool{ID: id}
	if pool.Name, err = asString(values[0]); err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d name: %w", id, err)
	}
	if pool.Creator, err = asAddress(values[1]); err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d creator: %w", id, err)
	}
	if pool.MaxStake, err = asBigInt(values[2]); err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d maxStake: %w", id, err)
	}
	if pool.TotalStaked, err = asBigInt(values[3]); err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d totalStaked: %w", id, err)
	}
	apy, err := asBigInt(values[4])
	if err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d apy: %w", id, err)
	}
	pool.APY = apy.Uint64()
	duration, err := asBigInt(values[5])
	if err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d duration: %w", id, err)
	}
	pool.Duration = duration.Int64()
	startTime, err := asBigInt(values[6])
	if err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d startTime: %w", id, err)
	}
	pool.StartTime = startTime.Int64()
	if pool.Active, err = asBool(values[7]); err != nil {
		return model.StakePool{}, fmt.Errorf("pool %d active: %w", id, err)
	}

	return pool, nil
}

// UserStake fetches the account's position in a pool.
func (r *Reader) UserStake(ctx context.Context, poolID uint64, account common.Address) (model.UserStake, error) {
	values, err := r.caller.CallView(ctx, "userStakes", new(big.Int).SetUint64(poolID), account)
	if err != nil {
		return model.UserStake{}, err
	}
	if len(values) != 3 {
		return model.UserStake{}, fmt.Errorf("userStakes: expected 3 values, got %d", len(values))
	}

	var stake model.UserStake
	if stake.Amount, err = asBigInt(values[0]); err != nil {
		return model.UserStake{}, fmt.Errorf("user stake amount: %w", err)
	}
	startTime, err := asBigInt(values[1])
	if err != nil {
		return model.UserStake{}, fmt.Errorf("user stake startTime: %w", err)
	}
	stake.StartTime = startTime.Int64()
	if stake.Active, err = asBool(values[2]); err != nil {
		return model.UserStake{}, fmt.Errorf("user stake active: %w", err)
	}

	return stake, nil
}

func (r *Reader) count(ctx context.Context, method string) (uint64, error) {
	values, err := r.caller.CallView(ctx, method)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("%s: expected 1 value, got %d", method, len(values))
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", method, err)
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("%s does not fit in uint64: %s", method, count)
	}
	return count.Uint64(), nil
}

// Writer builds and submits mutating calls. Currency always rides as
// the attached transaction value, never as a numeric argument; the
// one exception is createRaffle, where the ticket price is stored by
// the contract rather than paid.
type Writer struct {
	submitter Submitter
}

func NewWriter(submitter Submitter) *Writer {
	return &Writer{submitter: submitter}
}

// CreateBet opens a bet, escrowing the creator's wager as the
// attached value.
func (w *Writer) CreateBet(ctx context.Context, description string, eventID [32]byte, deadline int64, value *big.Int) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "createBet", value, description, eventID, big.NewInt(deadline))
}

// AcceptBet matches a bet, escrowing the challenger's wager.
func (w *Writer) AcceptBet(ctx context.Context, betID uint64, value *big.Int) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "acceptBet", value, new(big.Int).SetUint64(betID))
}

// ResolveBet settles a bet in favor of the winner.
func (w *Writer) ResolveBet(ctx context.Context, betID uint64, winner common.Address) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "resolveBet", nil, new(big.Int).SetUint64(betID), winner)
}

// CreatePoll opens a poll running for durationSeconds.
func (w *Writer) CreatePoll(ctx context.Context, question string, options []string, durationSeconds uint64) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "createPoll", nil, question, options, new(big.Int).SetUint64(durationSeconds))
}

// Vote casts a vote for one option.
func (w *Writer) Vote(ctx context.Context, pollID, optionIndex uint64) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "vote", nil, new(big.Int).SetUint64(pollID), new(big.Int).SetUint64(optionIndex))
}

// CreateRaffle opens a raffle. The ticket price is a stored argument;
// nothing is paid at creation.
func (w *Writer) CreateRaffle(ctx context.Context, ticketPrice *big.Int, durationSeconds uint64) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "createRaffle", nil, ticketPrice, new(big.Int).SetUint64(durationSeconds))
}

// BuyTickets purchases tickets; value must equal price times count.
func (w *Writer) BuyTickets(ctx context.Context, raffleID, count uint64, value *big.Int) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "buyTicket", value, new(big.Int).SetUint64(raffleID), new(big.Int).SetUint64(count))
}

// CreateStakePool opens a stake pool. APY is in basis points,
// duration in seconds.
func (w *Writer) CreateStakePool(ctx context.Context, name string, maxStake *big.Int, apyBps, durationSeconds uint64) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "createStakePool", nil, name, maxStake, new(big.Int).SetUint64(apyBps), new(big.Int).SetUint64(durationSeconds))
}

// Stake deposits the attached value into a pool.
func (w *Writer) Stake(ctx context.Context, poolID uint64, value *big.Int) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "stake", value, new(big.Int).SetUint64(poolID))
}

// Unstake withdraws the caller's position from a pool.
func (w *Writer) Unstake(ctx context.Context, poolID uint64) (*types.Transaction, error) {
	return w.submitter.Submit(ctx, "unstake", nil, new(big.Int).SetUint64(poolID))
}

// NewBetEventID derives the opaque event identifier a bet is created
// with, unique per description and creation time.
func NewBetEventID(description string, now time.Time, nonce uint64) [32]byte {
	payload := fmt.Sprintf("%s-%d-%d", description, now.Unix(), nonce)
	return [32]byte(crypto.Keccak256Hash([]byte(payload)))
}
