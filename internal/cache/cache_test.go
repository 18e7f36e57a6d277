package cache

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"unigame/internal/unigame"
)

// countingCaller serves the per-account lookup views and counts how
// many reads reach the contract.
type countingCaller struct {
	calls   int
	voted   bool
	tickets uint64
}

func (c *countingCaller) CallView(_ context.Context, method string, _ ...interface{}) ([]interface{}, error) {
	c.calls++
	switch method {
	case "hasVoted":
		return []interface{}{c.voted}, nil
	case "ticketsBought":
		return []interface{}{new(big.Int).SetUint64(c.tickets)}, nil
	}
	return nil, fmt.Errorf("unexpected view %s", method)
}

func newTestCache(t *testing.T) (*Cache, *countingCaller) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	caller := &countingCaller{}
	return New(client, unigame.NewReader(caller), time.Minute, nil), caller
}

var account = common.HexToAddress("0x0000000000000000000000000000000000000001")

func TestHasVotedReadThrough(t *testing.T) {
	c, caller := newTestCache(t)
	ctx := context.Background()

	voted, err := c.HasVoted(ctx, 0, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if voted {
		t.Fatalf("voted = true, want false")
	}
	if caller.calls != 1 {
		t.Fatalf("contract reads = %d, want 1", caller.calls)
	}

	if _, err := c.HasVoted(ctx, 0, account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.calls != 1 {
		t.Fatalf("contract reads = %d, want 1 (cache hit)", caller.calls)
	}
}

// A cached voted=false must not survive the account's confirmed vote.
func TestInvalidateVoteDropsStaleEntry(t *testing.T) {
	c, caller := newTestCache(t)
	ctx := context.Background()

	if _, err := c.HasVoted(ctx, 3, account); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The vote lands on chain while the false entry is still cached.
	caller.voted = true
	voted, err := c.HasVoted(ctx, 3, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if voted {
		t.Fatalf("stale entry should still answer false before invalidation")
	}

	c.InvalidateVote(ctx, 3, account)
	voted, err = c.HasVoted(ctx, 3, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !voted {
		t.Fatalf("voted = false after invalidation, want true")
	}
	if caller.calls != 2 {
		t.Fatalf("contract reads = %d, want 2", caller.calls)
	}
}

func TestInvalidateTicketsDropsStaleEntry(t *testing.T) {
	c, caller := newTestCache(t)
	ctx := context.Background()

	count, err := c.TicketCount(ctx, 1, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}

	caller.tickets = 5
	c.InvalidateTickets(ctx, 1, account)
	count, err = c.TicketCount(ctx, 1, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d after invalidation, want 5", count)
	}
}

// Redis being down degrades every lookup to a contract read instead
// of failing the request.
func TestRedisFailureDegradesToReader(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	caller := &countingCaller{voted: true}
	c := New(client, unigame.NewReader(caller), time.Minute, nil)
	ctx := context.Background()

	mr.Close()

	for i := 0; i < 2; i++ {
		voted, err := c.HasVoted(ctx, 0, account)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !voted {
			t.Fatalf("voted = false, want true")
		}
	}
	if caller.calls != 2 {
		t.Fatalf("contract reads = %d, want 2 (no caching while down)", caller.calls)
	}
}

func TestNilClientReadsThrough(t *testing.T) {
	caller := &countingCaller{tickets: 2}
	c := New(nil, unigame.NewReader(caller), time.Minute, nil)

	count, err := c.TicketCount(context.Background(), 0, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
