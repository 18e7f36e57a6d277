package store

import (
	"errors"
	"math/big"
	"testing"

	"unigame/internal/model"
)

func TestReplaceBetsNotifiesSubscribers(t *testing.T) {
	s := New()
	id, updates := s.Subscribe()
	defer s.Unsubscribe(id)

	s.ReplaceBets([]model.Bet{{ID: 1, State: model.BetPending, Amount: big.NewInt(1)}})

	select {
	case update := <-updates:
		if update.Resource != model.ResourceBets {
			t.Fatalf("resource = %s, want bets", update.Resource)
		}
		if update.Version != 1 {
			t.Fatalf("version = %d, want 1", update.Version)
		}
	default:
		t.Fatalf("expected an update")
	}

	if got := len(s.Bets()); got != 1 {
		t.Fatalf("bets = %d, want 1", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.ReplacePolls([]model.Poll{{ID: 0, Question: "original"}})

	snapshot := s.Polls()
	snapshot[0].Question = "mutated"

	if got := s.Polls()[0].Question; got != "original" {
		t.Fatalf("snapshot mutation leaked into store: %q", got)
	}
}

func TestUpsertBet(t *testing.T) {
	s := New()
	s.ReplaceBets([]model.Bet{
		{ID: 1, State: model.BetPending},
		{ID: 2, State: model.BetPending},
	})

	s.UpsertBet(model.Bet{ID: 2, State: model.BetAccepted})
	if got := len(s.Bets()); got != 2 {
		t.Fatalf("bets = %d, want 2", got)
	}
	bet, ok := s.Bet(2)
	if !ok {
		t.Fatalf("bet 2 missing")
	}
	if bet.State != model.BetAccepted {
		t.Fatalf("state = %s, want accepted", bet.State)
	}

	s.UpsertBet(model.Bet{ID: 3, State: model.BetPending})
	if got := len(s.Bets()); got != 3 {
		t.Fatalf("bets = %d, want 3", got)
	}
}

func TestReplaceClearsResourceError(t *testing.T) {
	s := New()
	s.SetErr(model.ResourceRaffles, errors.New("rpc down"))
	if s.Err(model.ResourceRaffles) == nil {
		t.Fatalf("expected stored error")
	}

	s.ReplaceRaffles(nil)
	if err := s.Err(model.ResourceRaffles); err != nil {
		t.Fatalf("expected error cleared, got %v", err)
	}
}

func TestErrIsResourceScoped(t *testing.T) {
	s := New()
	s.SetErr(model.ResourceBets, errors.New("bets failed"))
	if s.Err(model.ResourcePolls) != nil {
		t.Fatalf("poll error should be independent of bets")
	}
}

func TestVersionIncrements(t *testing.T) {
	s := New()
	s.ReplaceStakePools(nil)
	s.ReplaceStakePools(nil)
	if got := s.Version(model.ResourceStakes); got != 2 {
		t.Fatalf("version = %d, want 2", got)
	}
	if got := s.Version(model.ResourceBets); got != 0 {
		t.Fatalf("bets version = %d, want 0", got)
	}
}

func TestSlowSubscriberDropsUpdates(t *testing.T) {
	s := New()
	id, _ := s.Subscribe()
	defer s.Unsubscribe(id)

	for i := 0; i < 20; i++ {
		s.ReplaceBets(nil)
	}

	if got := s.Dropped(); got == 0 {
		t.Fatalf("expected dropped updates for a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := New()
	id, updates := s.Subscribe()
	s.Unsubscribe(id)

	if _, ok := <-updates; ok {
		t.Fatalf("expected closed channel")
	}

	// Publishing after unsubscribe must not panic.
	s.ReplaceBets(nil)
}
