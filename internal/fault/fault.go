package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies a failure per the client's error taxonomy.
type Kind int

const (
	// KindUnknown is a failure that fits no other kind.
	KindUnknown Kind = iota
	// KindValidation is a client-side precondition failure.
	KindValidation
	// KindWallet means no signer is available.
	KindWallet
	// KindRejected means the signer declined to sign.
	KindRejected
	// KindRevert means the contract call reverted on chain.
	KindRevert
	// KindConnectivity means the RPC endpoint is unreachable or broken.
	KindConnectivity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindWallet:
		return "wallet"
	case KindRejected:
		return "rejected"
	case KindRevert:
		return "revert"
	case KindConnectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Fault is a classified operation failure.
type Fault struct {
	Op   string
	Kind Kind
	Msg  string
	Err  error
}

func (f *Fault) Error() string {
	switch {
	case f.Msg != "" && f.Err != nil:
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Msg, f.Err)
	case f.Msg != "":
		return fmt.Sprintf("%s: %s", f.Op, f.Msg)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Op, f.Err)
	default:
		return f.Op
	}
}

func (f *Fault) Unwrap() error { return f.Err }

// New builds a Fault with a message and no cause.
func New(op string, kind Kind, msg string) *Fault {
	return &Fault{Op: op, Kind: kind, Msg: msg}
}

// Wrap builds a Fault around a cause.
func Wrap(op string, kind Kind, err error) *Fault {
	return &Fault{Op: op, Kind: kind, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message returns a human-readable message for err suitable for a
// user-facing notification.
func Message(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		if f.Msg != "" {
			return f.Msg
		}
		if f.Err != nil {
			return f.Err.Error()
		}
		return f.Op
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// rpcError matches the go-ethereum JSON-RPC error interface without
// importing the rpc package here.
type rpcError interface {
	Error() string
	ErrorCode() int
}

// Classify maps a raw chain-client error onto the taxonomy. Already
// classified errors pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(op, KindConnectivity, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(op, KindConnectivity, err)
	}

	var rpcErr rpcError
	if errors.As(err, &rpcErr) {
		// Code 3 is the EVM revert code, 4001 the EIP-1193 user
		// rejection code.
		switch rpcErr.ErrorCode() {
		case 3:
			return Wrap(op, KindRevert, err)
		case 4001:
			return Wrap(op, KindRejected, err)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "execution reverted"),
		strings.Contains(msg, "revert"):
		return Wrap(op, KindRevert, err)
	case strings.Contains(msg, "user denied"),
		strings.Contains(msg, "user rejected"):
		return Wrap(op, KindRejected, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "eof"):
		return Wrap(op, KindConnectivity, err)
	}

	return Wrap(op, KindUnknown, err)
}
