// Package store holds the in-memory collections of decoded chain
// records. Collections are replaced atomically and consumers observe
// changes through explicit subscriptions; there is no ambient
// module-level state.
package store

import (
	"sync"

	"unigame/internal/model"
)

// Update announces that a collection changed.
type Update struct {
	Resource model.Resource
	Version  uint64
}

// Store is the observable domain state cache for the four resource
// kinds. Reads return copies; writers swap whole collections.
type Store struct {
	mu       sync.RWMutex
	bets     []model.Bet
	polls    []model.Poll
	raffles  []model.Raffle
	stakes   []model.StakePool
	versions map[model.Resource]uint64
	errs     map[model.Resource]error

	subMu   sync.Mutex
	subs    map[int]chan Update
	nextSub int
	dropped uint64
}

func New() *Store {
	return &Store{
		versions: make(map[model.Resource]uint64),
		errs:     make(map[model.Resource]error),
		subs:     make(map[int]chan Update),
	}
}

// Bets returns a snapshot of the bet collection.
func (s *Store) Bets() []model.Bet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Bet, len(s.bets))
	copy(out, s.bets)
	return out
}

// Polls returns a snapshot of the poll collection.
func (s *Store) Polls() []model.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Poll, len(s.polls))
	copy(out, s.polls)
	return out
}

// Raffles returns a snapshot of the raffle collection.
func (s *Store) Raffles() []model.Raffle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Raffle, len(s.raffles))
	copy(out, s.raffles)
	return out
}

// StakePools returns a snapshot of the stake pool collection.
func (s *Store) StakePools() []model.StakePool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.StakePool, len(s.stakes))
	copy(out, s.stakes)
	return out
}

// Bet looks up one bet by id in the snapshot.
func (s *Store) Bet(id uint64) (model.Bet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bet := range s.bets {
		if bet.ID == id {
			return bet, true
		}
	}
	return model.Bet{}, false
}

// ReplaceBets swaps the bet collection and clears the resource error.
func (s *Store) ReplaceBets(bets []model.Bet) {
	s.replace(model.ResourceBets, func() { s.bets = bets })
}

// ReplacePolls swaps the poll collection and clears the resource error.
func (s *Store) ReplacePolls(polls []model.Poll) {
	s.replace(model.ResourcePolls, func() { s.polls = polls })
}

// ReplaceRaffles swaps the raffle collection and clears the resource error.
func (s *Store) ReplaceRaffles(raffles []model.Raffle) {
	s.replace(model.ResourceRaffles, func() { s.raffles = raffles })
}

// ReplaceStakePools swaps the stake pool collection and clears the
// resource error.
func (s *Store) ReplaceStakePools(stakes []model.StakePool) {
	s.replace(model.ResourceStakes, func() { s.stakes = stakes })
}

// UpsertBet inserts or replaces a single bet, preserving id order.
func (s *Store) UpsertBet(bet model.Bet) {
	s.replace(model.ResourceBets, func() {
		s.bets = upsert(s.bets, bet, func(b model.Bet) uint64 { return b.ID })
	})
}

// UpsertPoll inserts or replaces a single poll.
func (s *Store) UpsertPoll(poll model.Poll) {
	s.replace(model.ResourcePolls, func() {
		s.polls = upsert(s.polls, poll, func(p model.Poll) uint64 { return p.ID })
	})
}

// UpsertRaffle inserts or replaces a single raffle.
func (s *Store) UpsertRaffle(raffle model.Raffle) {
	s.replace(model.ResourceRaffles, func() {
		s.raffles = upsert(s.raffles, raffle, func(r model.Raffle) uint64 { return r.ID })
	})
}

// UpsertStakePool inserts or replaces a single stake pool.
func (s *Store) UpsertStakePool(pool model.StakePool) {
	s.replace(model.ResourceStakes, func() {
		s.stakes = upsert(s.stakes, pool, func(p model.StakePool) uint64 { return p.ID })
	})
}

// SetErr records a resource-scoped refresh failure, leaving the stale
// collection in place.
func (s *Store) SetErr(resource model.Resource, err error) {
	s.mu.Lock()
	s.errs[resource] = err
	s.mu.Unlock()
}

// Err returns the last refresh error for the resource, if any.
func (s *Store) Err(resource model.Resource) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[resource]
}

// Version returns the replace counter for the resource.
func (s *Store) Version(resource model.Resource) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[resource]
}

// Subscribe registers an update listener. The returned channel is
// buffered; updates to a full channel are dropped, not blocked on.
func (s *Store) Subscribe() (int, <-chan Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Update, 16)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// Dropped returns how many updates were discarded due to slow
// subscribers.
func (s *Store) Dropped() uint64 {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.dropped
}

func (s *Store) replace(resource model.Resource, apply func()) {
	s.mu.Lock()
	apply()
	s.versions[resource]++
	delete(s.errs, resource)
	version := s.versions[resource]
	s.mu.Unlock()

	s.notify(Update{Resource: resource, Version: version})
}

func (s *Store) notify(update Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
			s.dropped++
		}
	}
}

func upsert[T any](items []T, item T, id func(T) uint64) []T {
	target := id(item)
	for i := range items {
		if id(items[i]) == target {
			out := make([]T, len(items))
			copy(out, items)
			out[i] = item
			return out
		}
	}
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, item)
}
