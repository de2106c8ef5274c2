package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/minertopia/rollout/internal/domain"
	"github.com/minertopia/rollout/internal/logger"
)

const defaultConfirmTimeout = 5 * time.Minute

// ErrUnknownMethod is returned by Call for a method the attached ABI lacks.
var ErrUnknownMethod = errors.New("method not in contract ABI")

type (
	// Backend is the subset of an Ethereum RPC client the Client needs.
	// *ethclient.Client satisfies it.
	Backend interface {
		bind.ContractBackend
		bind.DeployBackend
		ChainID(ctx context.Context) (*big.Int, error)
		StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
		Close()
	}

	// Config describes the account and factory used to send transactions.
	Config struct {
		// ChainID, when set, must match the chain the backend is connected to.
		ChainID        *big.Int
		PrivateKey     string
		Factory        common.Address
		Admin          common.Address
		GasLimit       uint64
		ConfirmTimeout time.Duration
	}

	// Handle is a deployed contract attached with the ABI of Kind.
	Handle struct {
		Kind     domain.Kind
		Address  common.Address
		abi      abi.ABI
		contract *bind.BoundContract
	}

	// Client submits deployment, setup and upgrade transactions and blocks until
	// each one is mined. Proxies are ERC-1967 proxies created by an ERC1967Factory.
	Client struct {
		backend        Backend
		key            *ecdsa.PrivateKey
		from           common.Address
		chainID        *big.Int
		factory        common.Address
		admin          common.Address
		gasLimit       uint64
		confirmTimeout time.Duration
		artifacts      Artifacts
		logger         *slog.Logger
	}
)

// Dial connects to rpcURL and builds a Client on top of it.
func Dial(ctx context.Context, rpcURL string, cfg Config, artifacts Artifacts) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}

	c, err := New(ctx, eth, cfg, artifacts)
	if err != nil {
		eth.Close()
		return nil, err
	}

	return c, nil
}

// New builds a Client over an existing backend.
func New(ctx context.Context, backend Backend, cfg Config, artifacts Artifacts) (*Client, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if cfg.ChainID != nil && cfg.ChainID.Sign() > 0 && cfg.ChainID.Cmp(chainID) != 0 {
		return nil, fmt.Errorf("connected to chain %s, expected %s", chainID, cfg.ChainID)
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	admin := cfg.Admin
	if admin == (common.Address{}) {
		admin = from
	}

	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}

	c := &Client{
		backend:        backend,
		key:            key,
		from:           from,
		chainID:        chainID,
		factory:        cfg.Factory,
		admin:          admin,
		gasLimit:       cfg.GasLimit,
		confirmTimeout: timeout,
		artifacts:      artifacts,
		logger:         logger.Named("chain_client"),
	}
	c.logger.With("chain_id", chainID).With("from", from.Hex()).With("factory", cfg.Factory.Hex()).Info("chain client ready")

	return c, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.backend.Close()
}

// From is the account transactions are sent from.
func (c *Client) From() common.Address {
	return c.from
}

// DeployPlain deploys kind directly with constructor arguments.
func (c *Client) DeployPlain(ctx context.Context, kind domain.Kind, args []any) (common.Address, error) {
	artifact, err := c.artifacts.Get(kind)
	if err != nil {
		return common.Address{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	return c.deployCode(ctx, kind, artifact, args...)
}

// DeployProxy deploys an implementation of kind and a proxy in front of it, calling
// initialize(args...) through the proxy in the same transaction.
func (c *Client) DeployProxy(ctx context.Context, kind domain.Kind, args []any) (common.Address, error) {
	artifact, err := c.artifacts.Get(kind)
	if err != nil {
		return common.Address{}, err
	}

	initData, err := encodeInitializer(artifact.ABI, args)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode %s initializer: %w", kind, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	impl, err := c.deployCode(ctx, kind, artifact)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s implementation: %w", kind, err)
	}

	calldata, err := encodeProxyCreation(impl, c.admin, initData)
	if err != nil {
		return common.Address{}, err
	}

	receipt, err := c.rawTransact(ctx, c.factory, nil, calldata)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s proxy: %w", kind, err)
	}

	proxy, err := proxyAddressFromReceipt(receipt, c.factory)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %s proxy: %w", domain.ErrTransactionFailure, kind, err)
	}

	c.logger.
		With("kind", kind.String()).
		With("proxy", proxy.Hex()).
		With("implementation", impl.Hex()).
		Info("proxy deployed")

	return proxy, nil
}

// UpgradeProxy points proxy at a freshly deployed implementation of kind. The proxy
// address and its storage are left untouched; the returned address is proxy.
func (c *Client) UpgradeProxy(ctx context.Context, proxy common.Address, kind domain.Kind) (common.Address, error) {
	artifact, err := c.artifacts.Get(kind)
	if err != nil {
		return common.Address{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	admin, err := c.AdminOf(ctx, proxy)
	if err != nil {
		return common.Address{}, err
	}
	if admin != c.from {
		return common.Address{}, fmt.Errorf("proxy %s is administered by %s, not by %s", proxy.Hex(), admin.Hex(), c.from.Hex())
	}

	impl, err := c.deployCode(ctx, kind, artifact)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy %s implementation: %w", kind, err)
	}

	calldata, err := funcUpgrade.EncodeArgs(proxy, impl)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode upgrade: %w", err)
	}

	if _, err := c.rawTransact(ctx, c.factory, nil, calldata); err != nil {
		return common.Address{}, fmt.Errorf("failed to upgrade %s: %w", proxy.Hex(), err)
	}

	current, err := c.Implementation(ctx, proxy)
	if err != nil {
		return common.Address{}, err
	}
	if current != impl {
		return common.Address{}, fmt.Errorf("%w: proxy %s implementation is %s, want %s", domain.ErrTransactionFailure, proxy.Hex(), current.Hex(), impl.Hex())
	}

	c.logger.
		With("kind", kind.String()).
		With("proxy", proxy.Hex()).
		With("implementation", impl.Hex()).
		Info("proxy upgraded")

	return proxy, nil
}

// Implementation reads the ERC-1967 implementation slot of proxy.
func (c *Client) Implementation(ctx context.Context, proxy common.Address) (common.Address, error) {
	raw, err := c.backend.StorageAt(ctx, proxy, implementationSlot, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read implementation slot of %s: %w", proxy.Hex(), err)
	}
	return common.BytesToAddress(raw), nil
}

// AdminOf asks the factory who administers proxy.
func (c *Client) AdminOf(ctx context.Context, proxy common.Address) (common.Address, error) {
	calldata, err := funcAdminOf.EncodeArgs(proxy)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to encode adminOf: %w", err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.factory, Data: calldata}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to query admin of %s: %w", proxy.Hex(), err)
	}

	var admin common.Address
	if err := funcAdminOf.DecodeReturns(out, &admin); err != nil {
		return common.Address{}, fmt.Errorf("failed to decode adminOf: %w", err)
	}

	return admin, nil
}

// Attach binds the ABI of kind to an already deployed address.
func (c *Client) Attach(kind domain.Kind, addr common.Address) (Handle, error) {
	artifact, err := c.artifacts.Get(kind)
	if err != nil {
		return Handle{}, err
	}

	return Handle{
		Kind:     kind,
		Address:  addr,
		abi:      artifact.ABI,
		contract: bind.NewBoundContract(addr, artifact.ABI, c.backend, c.backend, c.backend),
	}, nil
}

// Send calls method on h with value wei attached and waits for the receipt.
func (c *Client) Send(ctx context.Context, h Handle, method string, value *big.Int, args []any) (common.Hash, error) {
	if h.contract == nil {
		return common.Hash{}, fmt.Errorf("handle for %s is not attached", h.Address.Hex())
	}

	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	auth, err := c.transactor(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	auth.Value = value

	tx, err := h.contract.Transact(auth, method, args...)
	if err != nil {
		return common.Hash{}, classify(err)
	}

	c.logger.
		With("kind", h.Kind.String()).
		With("method", method).
		With("tx_hash", tx.Hash().Hex()).
		Info("transaction sent")

	if _, err := c.waitMined(ctx, tx); err != nil {
		return common.Hash{}, err
	}

	return tx.Hash(), nil
}

// Call performs a read-only call of method on h.
func (c *Client) Call(ctx context.Context, h Handle, method string, args []any) ([]any, error) {
	if h.contract == nil {
		return nil, fmt.Errorf("handle for %s is not attached", h.Address.Hex())
	}
	if _, ok := h.abi.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, h.Kind, method)
	}

	var out []any
	if err := h.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s.%s: %w", h.Kind, method, err)
	}
	return out, nil
}

func (c *Client) deployCode(ctx context.Context, kind domain.Kind, artifact Artifact, args ...any) (common.Address, error) {
	auth, err := c.transactor(ctx)
	if err != nil {
		return common.Address{}, err
	}

	address, tx, _, err := bind.DeployContract(auth, artifact.ABI, artifact.Bytecode, c.backend, args...)
	if err != nil {
		return common.Address{}, classify(err)
	}

	c.logger.
		With("kind", kind.String()).
		With("address", address.Hex()).
		With("tx_hash", tx.Hash().Hex()).
		Info("contract deployment transaction sent")

	if _, err := c.waitMined(ctx, tx); err != nil {
		return common.Address{}, err
	}

	return address, nil
}

func (c *Client) rawTransact(ctx context.Context, to common.Address, value *big.Int, calldata []byte) (*types.Receipt, error) {
	auth, err := c.transactor(ctx)
	if err != nil {
		return nil, err
	}
	auth.Value = value

	contract := bind.NewBoundContract(to, abi.ABI{}, c.backend, c.backend, c.backend)
	tx, err := contract.RawTransact(auth, calldata)
	if err != nil {
		return nil, classify(err)
	}

	c.logger.With("to", to.Hex()).With("tx_hash", tx.Hash().Hex()).Debug("transaction sent")

	return c.waitMined(ctx, tx)
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	auth.Context = ctx
	auth.GasLimit = c.gasLimit

	return auth, nil
}

func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for %s: %w", domain.ErrTransactionFailure, tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: %s reverted in block %d", domain.ErrTransactionFailure, tx.Hash().Hex(), receipt.BlockNumber)
	}

	return receipt, nil
}

// encodeProxyCreation calls deploy when there is nothing to initialize, since
// deployAndCall with empty data would hit the implementation's fallback.
func encodeProxyCreation(impl, admin common.Address, initData []byte) ([]byte, error) {
	if len(initData) == 0 {
		calldata, err := funcDeploy.EncodeArgs(impl, admin)
		if err != nil {
			return nil, fmt.Errorf("failed to encode deploy: %w", err)
		}
		return calldata, nil
	}

	calldata, err := funcDeployAndCall.EncodeArgs(impl, admin, initData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode deployAndCall: %w", err)
	}
	return calldata, nil
}

// encodeInitializer packs initialize(args...) when the implementation has one.
func encodeInitializer(contractABI abi.ABI, args []any) ([]byte, error) {
	if _, ok := contractABI.Methods["initialize"]; !ok {
		if len(args) > 0 {
			return nil, fmt.Errorf("no initialize method for %d arguments", len(args))
		}
		return nil, nil
	}
	return contractABI.Pack("initialize", args...)
}

// classify maps submission errors onto the rollout error kinds. A revert whose
// reason says the contract is "already" set up means the setup call was issued before.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "revert") && strings.Contains(msg, "already") {
		return fmt.Errorf("%w: %w", domain.ErrAlreadyConfigured, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrTransactionFailure, err)
}
