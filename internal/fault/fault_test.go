package fault

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

func TestClassifyRevertCode(t *testing.T) {
	err := Classify("stake", codedError{code: 3, msg: "execution reverted: pool full"})
	if !IsKind(err, KindRevert) {
		t.Fatalf("expected revert, got %s", KindOf(err))
	}
}

func TestClassifyRejectionCode(t *testing.T) {
	err := Classify("vote", codedError{code: 4001, msg: "user rejected the request"})
	if !IsKind(err, KindRejected) {
		t.Fatalf("expected rejected, got %s", KindOf(err))
	}
}

func TestClassifyRevertMessage(t *testing.T) {
	err := Classify("accept_bet", errors.New("execution reverted: bet already accepted"))
	if !IsKind(err, KindRevert) {
		t.Fatalf("expected revert, got %s", KindOf(err))
	}
}

func TestClassifyConnectivity(t *testing.T) {
	for _, raw := range []error{
		errors.New("dial tcp 127.0.0.1:8545: connection refused"),
		context.DeadlineExceeded,
	} {
		err := Classify("refresh", raw)
		if !IsKind(err, KindConnectivity) {
			t.Fatalf("expected connectivity for %v, got %s", raw, KindOf(err))
		}
	}
}

func TestClassifyPassthrough(t *testing.T) {
	original := New("create_bet", KindValidation, "amount is empty")
	err := Classify("create_bet", fmt.Errorf("wrapped: %w", original))
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation to pass through, got %s", KindOf(err))
	}
}

func TestClassifyUnknown(t *testing.T) {
	err := Classify("unstake", errors.New("something odd"))
	if !IsKind(err, KindUnknown) {
		t.Fatalf("expected unknown, got %s", KindOf(err))
	}
}

func TestClassifyNil(t *testing.T) {
	if err := Classify("noop", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestMessagePrefersMsg(t *testing.T) {
	f := &Fault{Op: "vote", Kind: KindRevert, Msg: "already voted", Err: errors.New("execution reverted")}
	if got := Message(f); got != "already voted" {
		t.Fatalf("Message = %q, want %q", got, "already voted")
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Fatalf("KindOf = %s, want unknown", got)
	}
}
