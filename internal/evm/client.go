// Package evm wraps go-ethereum's ethclient for the calls this service
// needs: contract view calls, signed transactions with receipt wait, and
// gas price queries. Calls that only read retry a few times before giving
// up, generating their own timeout context per attempt.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	logging "github.com/ipfs/go-log"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var log = logging.Logger("evm")

const (
	repeatsOnFailure    = 3
	sleepBetweenRepeats = 1 * time.Second
	callTimeout         = 10 * time.Second
	receiptPollInterval = 2 * time.Second
	receiptWaitTimeout  = 2 * time.Minute

	nativeTransferGas uint64 = 21_000
)

// Client is an ethclient bound to one signing account.
type Client struct {
	eth     *ethclient.Client
	url     string
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// Dial connects to rpcURL and binds the hex-encoded private key as the
// transaction signer.
func Dial(ctx context.Context, rpcURL string, privateKeyHex string) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("querying chain id of %s: %w", rpcURL, err)
	}

	return &Client{
		eth:     eth,
		url:     rpcURL,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// From returns the signing account's address.
func (c *Client) From() common.Address {
	return c.from
}

// SuggestGasPrice returns the node's current gas price estimate.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var (
		price *big.Int
		err   error
	)
	for i := 0; i < repeatsOnFailure; i++ {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		price, err = c.eth.SuggestGasPrice(callCtx)
		cancel()
		if err == nil {
			return price, nil
		}
		time.Sleep(sleepBetweenRepeats)
	}
	return nil, fmt.Errorf("suggesting gas price on %s: %w", c.url, err)
}

// BalanceAt returns the native balance of addr.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	var (
		balance *big.Int
		err     error
	)
	for i := 0; i < repeatsOnFailure; i++ {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		balance, err = c.eth.BalanceAt(callCtx, addr, nil)
		cancel()
		if err == nil {
			return balance, nil
		}
		time.Sleep(sleepBetweenRepeats)
	}
	return nil, fmt.Errorf("querying balance of %s on %s: %w", addr.Hex(), c.url, err)
}

// CallView performs a read-only contract call and unpacks the outputs.
func (c *Client) CallView(
	ctx context.Context,
	to common.Address,
	contractABI *abi.ABI,
	method string,
	args ...interface{},
) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s call: %w", method, err)
	}

	msg := ethereum.CallMsg{From: c.from, To: &to, Data: data}
	var out []byte
	for i := 0; i < repeatsOnFailure; i++ {
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		out, err = c.eth.CallContract(callCtx, msg, nil)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(sleepBetweenRepeats)
	}
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, to.Hex(), err)
	}

	return contractABI.Unpack(method, out)
}

// Transact signs and sends a state-changing call to the contract at to and
// waits for its receipt. A reverted transaction is an error.
func (c *Client) Transact(
	ctx context.Context,
	to common.Address,
	value *big.Int,
	contractABI *abi.ABI,
	method string,
	args ...interface{},
) (*types.Receipt, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s call: %w", method, err)
	}
	return c.send(ctx, to, value, data)
}

// TransferNative sends amount of the native currency to to.
func (c *Client) TransferNative(ctx context.Context, to common.Address, amount *big.Int) error {
	_, err := c.send(ctx, to, amount, nil)
	return err
}

func (c *Client) send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("querying nonce: %w", err)
	}
	gasPrice, err := c.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gasLimit := nativeTransferGas
	if len(data) > 0 {
		gasLimit, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  c.from,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return nil, fmt.Errorf("estimating gas: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}

	log.Debugw("transaction sent",
		"hash", signed.Hash().Hex(),
		"to", to.Hex(),
		"nonce", nonce,
		"gas_price", gasPrice.String())

	return c.waitForReceipt(ctx, signed.Hash())
}

func (c *Client) waitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return receipt, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), waitCtx.Err())
		case <-ticker.C:
		}
	}
}
