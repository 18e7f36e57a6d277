package unigame

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestContractABIParses(t *testing.T) {
	contractABI, err := ContractABI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, method := range []string{
		"betCounter", "bets", "getPollsLength", "getPollDetails", "hasVoted",
		"raffleCount", "raffles", "ticketsBought", "stakePoolCounter",
		"stakePools", "userStakes",
		"createBet", "acceptBet", "resolveBet", "createPoll", "vote",
		"createRaffle", "buyTicket", "createStakePool", "stake", "unstake",
	} {
		if _, ok := contractABI.Methods[method]; !ok {
			t.Fatalf("method %s missing from ABI", method)
		}
	}

	for _, payable := range []string{"createBet", "acceptBet", "buyTicket", "stake"} {
		if got := contractABI.Methods[payable].StateMutability; got != "payable" {
			t.Fatalf("%s mutability = %s, want payable", payable, got)
		}
	}
	if got := contractABI.Methods["createRaffle"].StateMutability; got == "payable" {
		t.Fatalf("createRaffle must not be payable; the price is stored, not paid")
	}

	for _, event := range []string{
		"BetCreated", "BetAccepted", "BetResolved", "PollCreated", "VoteCast",
		"RaffleCreated", "TicketsPurchased", "RaffleDrawn", "StakePoolCreated",
		"Staked", "Unstaked",
	} {
		if _, ok := contractABI.Events[event]; !ok {
			t.Fatalf("event %s missing from ABI", event)
		}
	}
}

func TestNewBetEventID(t *testing.T) {
	now := time.Unix(1700000000, 0)

	a := NewBetEventID("same bet", now, 1)
	b := NewBetEventID("same bet", now, 1)
	if a != b {
		t.Fatalf("event id must be deterministic for identical inputs")
	}

	c := NewBetEventID("same bet", now, 2)
	if a == c {
		t.Fatalf("different nonce must produce a different event id")
	}

	d := NewBetEventID("other bet", now, 1)
	if a == d {
		t.Fatalf("different description must produce a different event id")
	}

	if a == ([32]byte{}) {
		t.Fatalf("event id must not be zero")
	}
}

type capturedSubmit struct {
	method string
	value  *big.Int
	args   []interface{}
}

type captureSubmitter struct {
	last capturedSubmit
}

func (c *captureSubmitter) Submit(_ context.Context, method string, value *big.Int, args ...interface{}) (*types.Transaction, error) {
	c.last = capturedSubmit{method: method, value: value, args: args}
	to := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	return types.NewTx(&types.LegacyTx{To: &to, Value: value, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func TestWriterAttachesValue(t *testing.T) {
	submitter := &captureSubmitter{}
	writer := NewWriter(submitter)
	ctx := context.Background()

	wager := big.NewInt(500)
	if _, err := writer.CreateBet(ctx, "desc", [32]byte{1}, 1700000000, wager); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitter.last.method != "createBet" {
		t.Fatalf("method = %s", submitter.last.method)
	}
	if submitter.last.value.Cmp(wager) != 0 {
		t.Fatalf("value = %s, want %s", submitter.last.value, wager)
	}
	// The wager must never also appear as a call argument.
	for _, arg := range submitter.last.args {
		if v, ok := arg.(*big.Int); ok && v.Cmp(wager) == 0 {
			t.Fatalf("wager leaked into call arguments")
		}
	}

	if _, err := writer.Stake(ctx, 3, big.NewInt(777)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitter.last.value.Int64() != 777 {
		t.Fatalf("stake value = %s, want 777", submitter.last.value)
	}
}

func TestWriterCreateRafflePriceIsArgument(t *testing.T) {
	submitter := &captureSubmitter{}
	writer := NewWriter(submitter)

	price := big.NewInt(100)
	if _, err := writer.CreateRaffle(context.Background(), price, 86400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitter.last.value != nil {
		t.Fatalf("createRaffle must not attach value, got %s", submitter.last.value)
	}
	if got := submitter.last.args[0].(*big.Int); got.Cmp(price) != 0 {
		t.Fatalf("price argument = %s, want %s", got, price)
	}
}

func TestWriterBuyTickets(t *testing.T) {
	submitter := &captureSubmitter{}
	writer := NewWriter(submitter)

	total := big.NewInt(300)
	if _, err := writer.BuyTickets(context.Background(), 2, 3, total); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if submitter.last.method != "buyTicket" {
		t.Fatalf("method = %s", submitter.last.method)
	}
	if submitter.last.value.Cmp(total) != 0 {
		t.Fatalf("value = %s, want %s", submitter.last.value, total)
	}
	if got := submitter.last.args[1].(*big.Int).Uint64(); got != 3 {
		t.Fatalf("count argument = %d, want 3", got)
	}
}

type tupleCaller struct {
	values []interface{}
	err    error
}

func (c tupleCaller) CallView(_ context.Context, _ string, _ ...interface{}) ([]interface{}, error) {
	return c.values, c.err
}

func TestReaderBetDecode(t *testing.T) {
	creator := common.HexToAddress("0x0000000000000000000000000000000000000001")
	challenger := common.HexToAddress("0x0000000000000000000000000000000000000002")
	eventID := [32]byte{0xAB}

	reader := NewReader(tupleCaller{values: []interface{}{
		creator,
		"who wins the derby",
		eventID,
		big.NewInt(1000),
		challenger,
		big.NewInt(900),
		uint8(1),
		common.Address{},
		big.NewInt(1800000000),
	}})

	bet, err := reader.Bet(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bet.ID != 7 {
		t.Fatalf("id = %d, want 7", bet.ID)
	}
	if bet.Creator != creator || bet.Challenger != challenger {
		t.Fatalf("addresses decoded wrong")
	}
	if bet.EventID != eventID {
		t.Fatalf("event id decoded wrong")
	}
	if bet.State.String() != "accepted" {
		t.Fatalf("state = %s, want accepted", bet.State)
	}
	if bet.Deadline != 1800000000 {
		t.Fatalf("deadline = %d", bet.Deadline)
	}
}

func TestReaderBetWrongArity(t *testing.T) {
	reader := NewReader(tupleCaller{values: []interface{}{common.Address{}, "short"}})
	if _, err := reader.Bet(context.Background(), 1); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestReaderPollDecode(t *testing.T) {
	reader := NewReader(tupleCaller{values: []interface{}{
		"favorite color?",
		[]string{"red", "blue"},
		[]*big.Int{big.NewInt(2), big.NewInt(6)},
		big.NewInt(1800000000),
		common.Address{},
		true,
	}})

	poll, err := reader.Poll(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(poll.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(poll.Options))
	}
	if poll.Options[1].Votes.Int64() != 6 {
		t.Fatalf("votes = %s, want 6", poll.Options[1].Votes)
	}
	if poll.VotePercentage(1) != 75 {
		t.Fatalf("percentage = %v, want 75", poll.VotePercentage(1))
	}
}

func TestReaderPollOptionVoteMismatch(t *testing.T) {
	reader := NewReader(tupleCaller{values: []interface{}{
		"mismatch",
		[]string{"a", "b"},
		[]*big.Int{big.NewInt(1)},
		big.NewInt(0),
		common.Address{},
		true,
	}})
	if _, err := reader.Poll(context.Background(), 0); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestReaderCounts(t *testing.T) {
	reader := NewReader(tupleCaller{values: []interface{}{big.NewInt(42)}})

	count, err := reader.BetCount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Fatalf("count = %d, want 42", count)
	}
}
