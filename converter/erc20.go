package converter

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"github.com/vocdoni/eerc-node/log"
)

const (
	// maxWeb3ClientRetries is the number of retries to connect to a web3
	// provider.
	maxWeb3ClientRetries = 5
	// web3QueryTimeout bounds read only calls.
	web3QueryTimeout = 10 * time.Second
	// web3MineTimeout bounds the wait for a sent transaction.
	web3MineTimeout = 5 * time.Minute
	// DefaultGasLimit is used for token transactions.
	DefaultGasLimit = 200000
)

// erc20ABI is the subset of the ERC-20 interface used by the gateway.
const erc20ABI = `[
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

// ERC20 is a Token backed by an ERC-20 contract. The custodian is the
// account of the configured private key; deposits transferFrom the owner to
// it and withdrawals transfer from it.
type ERC20 struct {
	address  common.Address
	chainID  *big.Int
	client   *ethclient.Client
	contract *bind.BoundContract
	privKey  *ecdsa.PrivateKey
	account  common.Address
}

// ParseERC20ABI returns the ABI used to talk to the token.
func ParseERC20ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(erc20ABI))
}

// NewERC20 connects to the web3 endpoint and binds the token contract. The
// hex private key is the custodian account that signs transactions.
func NewERC20(ctx context.Context, web3rpc string, token common.Address, hexPrivKey string) (*ERC20, error) {
	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexPrivKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	client, err := connect(ctx, web3rpc)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting the chainID from the web3 provider: %w", err)
	}
	parsed, err := ParseERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse token abi: %w", err)
	}
	e := &ERC20{
		address:  token,
		chainID:  chainID,
		client:   client,
		contract: bind.NewBoundContract(token, parsed, client, client, client),
		privKey:  privKey,
		account:  crypto.PubkeyToAddress(privKey.PublicKey),
	}
	log.Infow("erc20 token bound", "token", token.Hex(), "custodian", e.account.Hex(), "chainID", chainID.String())
	return e, nil
}

// Address implements Token.
func (e *ERC20) Address() common.Address {
	return e.address
}

// Custodian returns the account holding the reserve.
func (e *ERC20) Custodian() common.Address {
	return e.account
}

// TransferFrom implements Token.
func (e *ERC20) TransferFrom(ctx context.Context, from common.Address, amount *uint256.Int) error {
	return e.transact(ctx, "transferFrom", from, e.account, amount.ToBig())
}

// Transfer implements Token.
func (e *ERC20) Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error {
	return e.transact(ctx, "transfer", to, amount.ToBig())
}

// BalanceOf returns the token balance of account.
func (e *ERC20) BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := e.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	balance, overflow := uint256.FromBig(*abi.ConvertType(out[0], new(*big.Int)).(**big.Int))
	if overflow {
		return nil, fmt.Errorf("balance overflow")
	}
	return balance, nil
}

// CustodyBalance returns the token balance of the custodian account.
func (e *ERC20) CustodyBalance(ctx context.Context) (*uint256.Int, error) {
	return e.BalanceOf(ctx, e.account)
}

// transact sends a contract call and waits until it is mined successfully.
// Failures before the transaction is sent and reverted transactions wrap
// ErrRejected. Once sent, the wait outlives ctx.
func (e *ERC20) transact(ctx context.Context, method string, params ...any) error {
	opts, err := e.authTransactOpts(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to create transact options: %v", ErrRejected, err)
	}
	tx, err := e.contract.Transact(opts, method, params...)
	if err != nil {
		return fmt.Errorf("%w: failed to send %s: %v", ErrRejected, method, err)
	}
	log.Debugw("token transaction sent", "method", method, "hash", tx.Hash().Hex())
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), web3MineTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(wctx, e.client, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for %s tx %s: %w", method, tx.Hash().Hex(), err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s reverted in tx %s", ErrRejected, method, tx.Hash().Hex())
	}
	return nil
}

// authTransactOpts creates the transact options signed by the custodian,
// with the pending nonce and the suggested gas tip cap.
func (e *ERC20) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(e.privKey, e.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	nonce, err := e.client.PendingNonceAt(qctx, e.account)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	if auth.GasTipCap, err = e.client.SuggestGasTipCap(qctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.GasLimit = DefaultGasLimit
	auth.Context = ctx
	return auth, nil
}

// connect returns a new client for the URI provided, retrying up to
// maxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < maxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return client, nil
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}
