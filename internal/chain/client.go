package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"unigame/internal/fault"
)

// Signer provides the connected account and transaction signing. A nil
// Signer on a Client means read-only operation.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Client wraps go-ethereum RPC against one contract: view calls,
// signed mutating calls with attached value, and confirmation waits.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	contract     common.Address
	contractABI  abi.ABI
	signer       Signer
	pollInterval time.Duration
}

// NewClient dials the RPC endpoint and binds the contract address and ABI.
func NewClient(ctx context.Context, rpcURL string, contract common.Address, contractABI abi.ABI) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fault.Wrap("chain.dial", fault.KindConnectivity, err)
	}

	return &Client{
		rpcClient:    rpcClient,
		ethClient:    ethclient.NewClient(rpcClient),
		contract:     contract,
		contractABI:  contractABI,
		pollInterval: 3 * time.Second,
	}, nil
}

// WithSigner attaches a signer for mutating calls.
func (c *Client) WithSigner(signer Signer) *Client {
	c.signer = signer
	return c
}

// SetPollInterval adjusts the receipt polling interval.
func (c *Client) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		c.pollInterval = interval
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ContractAddress returns the bound contract address.
func (c *Client) ContractAddress() common.Address {
	return c.contract
}

// SignerAddress returns the connected account, if any.
func (c *Client) SignerAddress() (common.Address, bool) {
	if c.signer == nil {
		return common.Address{}, false
	}
	return c.signer.Address(), true
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, fault.Classify("chain.id", err)
	}
	return id, nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	number, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, fault.Classify("chain.block_number", err)
	}
	return number, nil
}

// CallView executes a view function of the bound contract and returns
// the decoded result tuple. The function must exist in the ABI.
func (c *Client) CallView(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	op := "chain.call." + method

	if _, ok := c.contractABI.Methods[method]; !ok {
		return nil, fault.New(op, fault.KindValidation, fmt.Sprintf("method %s not in ABI", method))
	}

	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fault.Wrap(op, fault.KindValidation, err)
	}

	msg := ethereum.CallMsg{To: &c.contract, Data: data}
	resp, err := c.ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fault.Classify(op, err)
	}

	values, err := c.contractABI.Unpack(method, resp)
	if err != nil {
		return nil, fault.Wrap(op, fault.KindConnectivity, fmt.Errorf("unpack %s: %w", method, err))
	}
	return values, nil
}

// Submit signs and sends a mutating call with the given attached
// value. It returns the pending transaction; callers pair it with
// WaitMined. Requires a signer.
func (c *Client) Submit(ctx context.Context, method string, value *big.Int, args ...interface{}) (*types.Transaction, error) {
	op := "chain.submit." + method

	if c.signer == nil {
		return nil, fault.New(op, fault.KindWallet, "wallet not connected")
	}
	if _, ok := c.contractABI.Methods[method]; !ok {
		return nil, fault.New(op, fault.KindValidation, fmt.Sprintf("method %s not in ABI", method))
	}

	data, err := c.contractABI.Pack(method, args...)
	if err != nil {
		return nil, fault.Wrap(op, fault.KindValidation, err)
	}

	from := c.signer.Address()
	if value == nil {
		value = new(big.Int)
	}

	chainID, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, fault.Classify(op, err)
	}
	nonce, err := c.ethClient.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fault.Classify(op, err)
	}
	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fault.Classify(op, err)
	}

	// Gas estimation runs the call, so a doomed transaction reverts
	// here instead of on chain.
	gasLimit, err := c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &c.contract,
		Value:    value,
		Data:     data,
		GasPrice: gasPrice,
	})
	if err != nil {
		return nil, fault.Classify(op, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fault.Classify(op, err)
	}

	if err := c.ethClient.SendTransaction(ctx, signed); err != nil {
		return nil, fault.Classify(op, err)
	}
	return signed, nil
}

// WaitMined polls for the transaction receipt until the transaction is
// mined or the context ends. A receipt with failed status is a revert.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	op := "chain.wait_mined"
	if tx == nil {
		return nil, fault.New(op, fault.KindValidation, "nil transaction")
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fault.New(op, fault.KindRevert,
					fmt.Sprintf("transaction %s reverted", tx.Hash().Hex()))
			}
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, fault.Classify(op, err)
		}

		select {
		case <-ctx.Done():
			return nil, fault.Wrap(op, fault.KindConnectivity, ctx.Err())
		case <-ticker.C:
		}
	}
}

// FilterLogs returns the bound contract's logs in the given block range.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
	}
	logs, err := c.ethClient.FilterLogs(ctx, query)
	if err != nil {
		return nil, fault.Classify("chain.filter_logs", err)
	}
	return logs, nil
}

// HeaderTime returns the timestamp of a block.
func (c *Client) HeaderTime(ctx context.Context, number uint64) (uint64, error) {
	header, err := c.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fault.Classify("chain.header", err)
	}
	return header.Time, nil
}
