package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

type logFilterer interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// newPollSubscription emulates a log subscription over eth_getLogs. The first
// error ends the subscription, matching a dropped websocket subscription.
func newPollSubscription(
	src logFilterer,
	addresses []common.Address,
	topic0 []common.Hash,
	fromBlock uint64,
	interval time.Duration,
	ch chan<- types.Log,
) ethereum.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		next := fromBlock
		for {
			select {
			case <-quit:
				return nil
			case <-ticker.C:
			}

			latest, err := src.LatestBlockNumber(ctx)
			if err != nil {
				return err
			}
			if latest < next {
				continue
			}

			logs, err := src.FilterLogs(ctx, next, latest, addresses, topic0)
			if err != nil {
				return err
			}
			for _, log := range logs {
				select {
				case ch <- log:
				case <-quit:
					return nil
				}
			}
			next = latest + 1
		}
	})
}
