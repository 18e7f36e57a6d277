package model

import (
	"math"
	"math/big"
	"testing"
)

func TestVotePercentage(t *testing.T) {
	poll := Poll{
		ID:       0,
		Question: "best option?",
		Options: []PollOption{
			{Text: "a", Votes: big.NewInt(3)},
			{Text: "b", Votes: big.NewInt(1)},
		},
	}

	if got := poll.VotePercentage(0); got != 75 {
		t.Fatalf("option 0 = %v, want 75", got)
	}
	if got := poll.VotePercentage(1); got != 25 {
		t.Fatalf("option 1 = %v, want 25", got)
	}
}

func TestVotePercentageNoVotes(t *testing.T) {
	poll := Poll{
		Options: []PollOption{
			{Text: "a", Votes: big.NewInt(0)},
			{Text: "b", Votes: big.NewInt(0)},
		},
	}
	for i := range poll.Options {
		if got := poll.VotePercentage(i); got != 0 {
			t.Fatalf("option %d = %v, want 0", i, got)
		}
	}
}

func TestVotePercentageSumsToHundred(t *testing.T) {
	poll := Poll{
		Options: []PollOption{
			{Text: "a", Votes: big.NewInt(1)},
			{Text: "b", Votes: big.NewInt(1)},
			{Text: "c", Votes: big.NewInt(1)},
		},
	}
	sum := 0.0
	for i := range poll.Options {
		sum += poll.VotePercentage(i)
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages sum to %v, want 100", sum)
	}
}

func TestVotePercentageOutOfRange(t *testing.T) {
	poll := Poll{Options: []PollOption{{Text: "a", Votes: big.NewInt(1)}}}
	if got := poll.VotePercentage(-1); got != 0 {
		t.Fatalf("index -1 = %v, want 0", got)
	}
	if got := poll.VotePercentage(5); got != 0 {
		t.Fatalf("index 5 = %v, want 0", got)
	}
}

func TestPollValidate(t *testing.T) {
	poll := Poll{ID: 1, Options: []PollOption{{Text: "only"}}}
	if err := poll.Validate(); err == nil {
		t.Fatalf("expected error for single-option poll")
	}

	poll.Options = append(poll.Options, PollOption{Text: "second", Votes: big.NewInt(-1)})
	if err := poll.Validate(); err == nil {
		t.Fatalf("expected error for negative vote count")
	}
}
