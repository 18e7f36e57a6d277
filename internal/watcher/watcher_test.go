package watcher

import (
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"unigame/internal/model"
	"unigame/internal/unigame"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, true, 97, "0xContract")

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("expected no checkpoint yet, ok=%v err=%v", ok, err)
	}

	if err := store.Save(12345); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cp, ok, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected checkpoint")
	}
	if cp.LastProcessedBlock != 12345 {
		t.Fatalf("last processed = %d, want 12345", cp.LastProcessedBlock)
	}
}

func TestCheckpointIgnoresForeignChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	if err := NewCheckpointStore(path, true, 97, "0xContract").Save(500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok, err := NewCheckpointStore(path, true, 56, "0xContract").Load(); err != nil || ok {
		t.Fatalf("checkpoint from another chain must be ignored, ok=%v err=%v", ok, err)
	}
	if _, ok, err := NewCheckpointStore(path, true, 97, "0xOther").Load(); err != nil || ok {
		t.Fatalf("checkpoint from another contract must be ignored, ok=%v err=%v", ok, err)
	}
}

func TestCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, false, 97, "0xContract")

	if err := store.Save(99); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled store must not write files")
	}
}

func stakedLog(t *testing.T, poolID uint64, staker common.Address, amount *big.Int) types.Log {
	t.Helper()
	contractABI, err := unigame.ContractABI()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data := make([]byte, 32)
	amount.FillBytes(data)

	return types.Log{
		Address:     common.HexToAddress("0x00000000000000000000000000000000000000AA"),
		BlockNumber: 777,
		TxHash:      common.HexToHash("0x01"),
		Index:       3,
		Topics: []common.Hash{
			contractABI.Events["Staked"].ID,
			common.BigToHash(new(big.Int).SetUint64(poolID)),
			common.BytesToHash(staker.Bytes()),
		},
		Data: data,
	}
}

func TestDecodeStakedEvent(t *testing.T) {
	decoder, err := NewDecoder(97)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	staker := common.HexToAddress("0x0000000000000000000000000000000000000042")
	log := stakedLog(t, 5, staker, big.NewInt(123456))

	if !decoder.CanDecode(log) {
		t.Fatalf("decoder should recognize Staked")
	}

	event, err := decoder.Decode(log, 1700000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.Name != "Staked" {
		t.Fatalf("name = %s", event.Name)
	}
	if event.Resource != model.ResourceStakes {
		t.Fatalf("resource = %s, want stakes", event.Resource)
	}
	if event.ResourceID != 5 {
		t.Fatalf("resource id = %d, want 5", event.ResourceID)
	}
	if event.Account != staker.Hex() {
		t.Fatalf("account = %s, want %s", event.Account, staker.Hex())
	}
	if event.Amount != "123456" {
		t.Fatalf("amount = %q, want 123456", event.Amount)
	}
	if event.ChainID != 97 || event.BlockNumber != 777 || event.LogIndex != 3 {
		t.Fatalf("log position fields decoded wrong: %+v", event)
	}
	if event.Timestamp != 1700000000 {
		t.Fatalf("timestamp = %d", event.Timestamp)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	decoder, err := NewDecoder(97)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log := types.Log{Topics: []common.Hash{common.HexToHash("0xdeadbeef")}}
	if decoder.CanDecode(log) {
		t.Fatalf("unknown topic0 must not decode")
	}
	if decoder.CanDecode(types.Log{}) {
		t.Fatalf("empty log must not decode")
	}
}
