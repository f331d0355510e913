package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"campaignScope/internal/campaign"
	"campaignScope/internal/chain"
	"campaignScope/internal/metrics"
	"campaignScope/internal/storage"
)

// LogSource is the chain connection the runner consumes.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	SubscribeLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, fromBlock uint64, ch chan<- types.Log) (ethereum.Subscription, error)
	Reconnect(ctx context.Context) error
}

// State is the runner's ingestion phase.
type State int32

const (
	StateCatchingUp State = iota
	StateLive
)

func (s State) String() string {
	if s == StateLive {
		return "live"
	}
	return "catching_up"
}

var errSubscriptionClosed = errors.New("subscription closed")

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	Contract     common.Address
	FromBlock    uint64
	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	DedupWindow  uint64
	BufferSize   int
}

// Runner replays CampaignCreated history and then follows the live log stream,
// writing each campaign to the replica store exactly once.
type Runner struct {
	cfg        RunConfig
	source     LogSource
	decoder    *campaign.Decoder
	store      storage.CampaignStore
	checkpoint Checkpointer
	logger     *zap.Logger
	dedup      *logDeduper
	now        func() time.Time

	state atomic.Int32
	// next is the first block not yet fully processed.
	next      uint64
	lastSaved uint64
	wentLive  bool
	// failed holds logs whose store write failed, keyed to their block. The
	// checkpoint stays below the lowest of them until the write succeeds.
	failed map[chain.LogKey]uint64
}

// NewRunner builds a Runner with its dependencies. checkpoint may be nil.
func NewRunner(
	cfg RunConfig,
	source LogSource,
	decoder *campaign.Decoder,
	store storage.CampaignStore,
	checkpoint Checkpointer,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.DedupWindow == 0 {
		cfg.DedupWindow = 128
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		decoder:    decoder,
		store:      store,
		checkpoint: checkpoint,
		logger:     logger,
		dedup:      newLogDeduper(cfg.DedupWindow),
		failed:     make(map[chain.LogKey]uint64),
		now:        time.Now,
	}
}

// State reports the current ingestion phase.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Ready reports whether the runner has caught up and is following the live stream.
func (r *Runner) Ready() bool {
	return r.State() == StateLive
}

func (r *Runner) setState(s State) {
	if State(r.state.Swap(int32(s))) == s {
		return
	}
	if s == StateLive {
		metrics.Live.Set(1)
	} else {
		metrics.Live.Set(0)
	}
	r.logger.Info("indexer state", zap.Stringer("state", s), zap.Uint64("next_block", r.next))
}

// Run executes the indexing loop until ctx is cancelled. Transport failures are
// retried forever; only an invalid filter ends Run with an error.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Contract == (common.Address{}) {
		return fmt.Errorf("contract address is required")
	}

	r.next = r.cfg.FromBlock
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if ok && last+1 > r.next {
			r.next = last + 1
			r.lastSaved = last
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", r.next))
		}
	}

	bo := newBackoff(r.cfg.RetryBackoff, r.cfg.MaxBackoff)
	for {
		r.wentLive = false
		err := r.session(ctx)
		r.setState(StateCatchingUp)

		if ctx.Err() != nil {
			r.logger.Info("indexer stopped", zap.Uint64("next_block", r.next))
			return nil
		}
		if chain.IsInvalidFilter(err) {
			return err
		}
		if r.wentLive {
			bo.Reset()
		}

		delay := bo.Next()
		r.logger.Warn("indexer session ended, reconnecting",
			zap.Error(err),
			zap.Duration("backoff", delay),
			zap.Uint64("next_block", r.next),
		)
		metrics.Reconnects.Inc()

		if err := sleep(ctx, delay); err != nil {
			return nil
		}
		if err := r.source.Reconnect(ctx); err != nil {
			r.logger.Warn("reconnect failed", zap.Error(err))
		}
	}
}

// session catches up, subscribes, closes the gap between the two, then
// consumes live logs until the subscription fails.
func (r *Runner) session(ctx context.Context) error {
	if err := r.catchUp(ctx); err != nil {
		return err
	}

	ch := make(chan types.Log, r.cfg.BufferSize)
	sub, err := r.source.SubscribeLogs(ctx, r.addresses(), r.topics(), r.next, ch)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}
	defer sub.Unsubscribe()

	// Blocks produced between the end of history and the subscription start.
	if err := r.catchUp(ctx); err != nil {
		return err
	}

	r.setState(StateLive)
	r.wentLive = true

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}
			return fmt.Errorf("subscription: %w", err)
		case log := <-ch:
			r.advanceLive(ctx, log.BlockNumber)
			r.handleLog(ctx, log)
		}
	}
}

func (r *Runner) catchUp(ctx context.Context) error {
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = r.source.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}

	if low, ok := r.lowestFailed(); ok && low < r.next {
		r.logger.Info("replay failed writes", zap.Uint64("from", low), zap.Int("pending", len(r.failed)))
		r.next = low
	}

	if r.next > latest {
		return nil
	}

	ranges, err := SplitRange(r.next, latest, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.logger.Debug("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		for _, log := range logs {
			r.handleLog(ctx, log)
		}

		r.next = blockRange.To + 1
		r.saveCheckpoint(ctx, blockRange.To)

		r.logger.Info("batch complete", zap.Int("logs", len(logs)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}

	return nil
}

// advanceLive moves the cursor when a live log opens a new block; every block
// below it is complete because the node delivers logs in block order.
func (r *Runner) advanceLive(ctx context.Context, block uint64) {
	if block <= r.next {
		return
	}
	r.next = block
	r.saveCheckpoint(ctx, block-1)
}

func (r *Runner) saveCheckpoint(ctx context.Context, block uint64) {
	if low, ok := r.lowestFailed(); ok && block >= low {
		if low == 0 {
			return
		}
		block = low - 1
	}
	metrics.LastProcessedBlock.Set(float64(block))
	if r.checkpoint == nil || block <= r.lastSaved {
		return
	}
	if err := r.checkpoint.Save(ctx, block); err != nil {
		r.logger.Warn("save checkpoint failed", zap.Error(err), zap.Uint64("block", block))
		return
	}
	r.lastSaved = block
}

func (r *Runner) lowestFailed() (uint64, bool) {
	var (
		low   uint64
		found bool
	)
	for _, block := range r.failed {
		if !found || block < low {
			low = block
			found = true
		}
	}
	return low, found
}

// handleLog decodes one log and upserts the campaign. It never fails the loop.
func (r *Runner) handleLog(ctx context.Context, log types.Log) {
	fields := []zap.Field{
		zap.Uint64("block", log.BlockNumber),
		zap.String("tx_hash", log.TxHash.Hex()),
		zap.Uint("log_index", log.Index),
	}

	if log.Removed {
		r.logger.Warn("skip removed log", fields...)
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeRemoved).Inc()
		return
	}
	if log.Address != r.cfg.Contract {
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeSignatureMismatch).Inc()
		return
	}
	if r.dedup.Seen(log) {
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeDuplicateDelivery).Inc()
		return
	}

	event, err := r.decoder.Decode(log)
	if err != nil {
		if errors.Is(err, campaign.ErrSignatureMismatch) {
			metrics.LogsProcessed.WithLabelValues(metrics.OutcomeSignatureMismatch).Inc()
			return
		}
		r.logger.Warn("malformed campaign log", append(fields, zap.Error(err))...)
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return
	}

	record := buildCampaignRecord(event, r.now())
	start := time.Now()
	result, err := r.store.Upsert(ctx, record)
	if err != nil {
		// Let a later redelivery or catch-up pass retry the write.
		r.dedup.Forget(log)
		r.failed[chain.KeyOf(log)] = log.BlockNumber
		r.logger.Error("store campaign failed", append(fields, zap.String("address", record.Address), zap.Error(err))...)
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeStoreError).Inc()
		metrics.UpsertDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return
	}
	metrics.UpsertDuration.WithLabelValues(result.String()).Observe(time.Since(start).Seconds())
	delete(r.failed, chain.KeyOf(log))

	switch result {
	case storage.Inserted:
		r.logger.Info("campaign indexed",
			append(fields,
				zap.String("address", record.Address),
				zap.String("creator", record.Creator),
				zap.String("goal", record.Goal.String()),
				zap.String("deadline", record.Deadline.String()),
			)...)
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeInserted).Inc()
	case storage.AlreadyExists:
		r.logger.Debug("campaign already indexed", append(fields, zap.String("address", record.Address))...)
		metrics.LogsProcessed.WithLabelValues(metrics.OutcomeDuplicateCampaign).Inc()
	}
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, r.addresses(), r.topics())
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) addresses() []common.Address {
	return []common.Address{r.cfg.Contract}
}

func (r *Runner) topics() []common.Hash {
	return []common.Hash{r.decoder.EventID()}
}
