// Package cache mirrors per-account contract lookups in Redis so
// repeated "has this wallet voted" and "how many tickets" checks do
// not hit the RPC endpoint every time.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"unigame/internal/unigame"
)

// Cache is a read-through layer over the contract reader.
type Cache struct {
	client *redis.Client
	reader *unigame.Reader
	ttl    time.Duration
	logger *zap.Logger
}

func New(client *redis.Client, reader *unigame.Reader, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, reader: reader, ttl: ttl, logger: logger}
}

func keyVoted(pollID uint64, account common.Address) string {
	return fmt.Sprintf("unigame:voted:%d:%s", pollID, account.Hex())
}

func keyTickets(raffleID uint64, account common.Address) string {
	return fmt.Sprintf("unigame:tickets:%d:%s", raffleID, account.Hex())
}

// HasVoted answers whether the account already voted in a poll,
// serving from Redis when a fresh entry exists.
func (c *Cache) HasVoted(ctx context.Context, pollID uint64, account common.Address) (bool, error) {
	var voted bool
	if ok := c.get(ctx, keyVoted(pollID, account), &voted); ok {
		return voted, nil
	}

	voted, err := c.reader.HasVoted(ctx, pollID, account)
	if err != nil {
		return false, err
	}
	c.set(ctx, keyVoted(pollID, account), voted)
	return voted, nil
}

// TicketCount returns the account's ticket count for a raffle.
func (c *Cache) TicketCount(ctx context.Context, raffleID uint64, account common.Address) (uint64, error) {
	var count uint64
	if ok := c.get(ctx, keyTickets(raffleID, account), &count); ok {
		return count, nil
	}

	count, err := c.reader.TicketsBought(ctx, raffleID, account)
	if err != nil {
		return 0, err
	}
	c.set(ctx, keyTickets(raffleID, account), count)
	return count, nil
}

// InvalidateVote drops the cached vote flag after a confirmed vote.
func (c *Cache) InvalidateVote(ctx context.Context, pollID uint64, account common.Address) {
	c.del(ctx, keyVoted(pollID, account))
}

// InvalidateTickets drops the cached ticket count after a purchase.
func (c *Cache) InvalidateTickets(ctx context.Context, raffleID uint64, account common.Address) {
	c.del(ctx, keyTickets(raffleID, account))
}

// get returns true on a usable cache hit. Redis errors degrade to a
// miss so the RPC read still happens.
func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if c.client == nil {
		return false
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c.client == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) del(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("cache del failed", zap.String("key", key), zap.Error(err))
	}
}
