package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const defaultPollInterval = 4 * time.Second

// Options configures a Client.
type Options struct {
	// PollInterval is used when the endpoint cannot push log notifications.
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Client wraps go-ethereum RPC and owns the node connection.
type Client struct {
	url          string
	pollInterval time.Duration
	logger       *zap.Logger

	mu        sync.RWMutex
	rpcClient *rpc.Client
	ethClient *ethclient.Client
}

// NewClient dials rpcURL and returns a connected client.
func NewClient(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		url:          rpcURL,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dial(ctx context.Context) error {
	rpcClient, err := rpc.DialContext(ctx, c.url)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.rpcClient
	c.rpcClient = rpcClient
	c.ethClient = ethclient.NewClient(rpcClient)
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Reconnect drops the current connection and dials a fresh one.
func (c *Client) Reconnect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return fmt.Errorf("redial rpc: %w", err)
	}
	c.logger.Info("rpc reconnected")
	return nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpcClient != nil {
		c.rpcClient.Close()
		c.rpcClient = nil
	}
}

func (c *Client) eth() *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ethClient
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	return c.eth().ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth().BlockNumber(ctx)
}

// TransactionReceipt returns the receipt of a mined transaction.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.eth().TransactionReceipt(ctx, txHash)
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := buildQuery(addresses, topic0)
	query.FromBlock = new(big.Int).SetUint64(fromBlock)
	query.ToBlock = new(big.Int).SetUint64(toBlock)

	logs, err := c.eth().FilterLogs(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	return logs, nil
}

// SubscribeLogs delivers new matching logs to ch until the subscription fails or
// is unsubscribed. A failed subscription cannot be restarted; subscribe again.
// When the endpoint has no notification support, logs are polled starting at fromBlock.
func (c *Client) SubscribeLogs(
	ctx context.Context,
	addresses []common.Address,
	topic0 []common.Hash,
	fromBlock uint64,
	ch chan<- types.Log,
) (ethereum.Subscription, error) {
	sub, err := c.eth().SubscribeFilterLogs(ctx, buildQuery(addresses, topic0), ch)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, rpc.ErrNotificationsUnsupported) {
		return nil, classify(err)
	}

	c.logger.Info("log notifications unsupported, polling",
		zap.Duration("interval", c.pollInterval),
		zap.Uint64("from", fromBlock),
	)
	return newPollSubscription(c, addresses, topic0, fromBlock, c.pollInterval, ch), nil
}

func buildQuery(addresses []common.Address, topic0 []common.Hash) ethereum.FilterQuery {
	query := ethereum.FilterQuery{Addresses: addresses}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return query
}
