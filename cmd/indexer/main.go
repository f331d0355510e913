package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"campaignScope/internal/api"
	"campaignScope/internal/campaign"
	"campaignScope/internal/chain"
	"campaignScope/internal/config"
	"campaignScope/internal/indexer"
	"campaignScope/internal/query"
	"campaignScope/internal/storage"
	"campaignScope/internal/storage/memory"
	"campaignScope/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

var errCatchingUp = errors.New("indexer catching up")

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "CampaignCreated event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index CampaignCreated events and serve the campaign list",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "node RPC URL (ws:// or wss:// for push subscriptions)")
	runCmd.Flags().String("contract", "", "campaign factory contract address")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per catch-up batch")
	runCmd.Flags().String("checkpoint", "", "checkpoint file path (default: indexer_state table when using postgres)")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts per RPC call")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Duration("max-backoff", 30*time.Second, "maximum reconnect backoff")
	runCmd.Flags().Duration("poll-interval", 3*time.Second, "log polling interval when subscriptions are unsupported")
	runCmd.Flags().Uint64("dedup-window", 128, "blocks of delivery history kept for duplicate suppression")
	runCmd.Flags().Bool("migrate", false, "apply schema migrations before starting")
	addStoreFlags(runCmd)
	addServerFlags(runCmd)

	root.AddCommand(runCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the campaign list without indexing",
		RunE:  runServe,
	}
	addStoreFlags(serveCmd)
	addServerFlags(serveCmd)

	root.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE:  runMigrate,
	}
	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode the CampaignCreated logs of one transaction",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "node RPC URL")
	decodeCmd.Flags().String("tx", "", "transaction hash")
	decodeCmd.Flags().String("contract", "", "only decode logs emitted by this factory address")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the campaign replica as JSON lines",
		RunE:  runExport,
	}

	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	exportCmd.Flags().String("out", "./data/campaigns.jsonl", "output JSONL path")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", config.StorePostgres, "campaign store (postgres, memory)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	contract, err := indexer.ParseContract(cfg.Contract)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Migrate && cfg.Store == config.StorePostgres {
		if err := postgres.Migrate(cfg.PGDSN, logger); err != nil {
			return err
		}
	}

	store, pg, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	decoder, err := campaign.NewDecoder()
	if err != nil {
		return err
	}

	// Without a checkpoint path, progress lives next to the data in Postgres.
	// An in-memory replica starts empty, so it replays from --from.
	var checkpoint indexer.Checkpointer
	switch {
	case !cfg.CheckpointEnabled:
	case cfg.Checkpoint != "":
		checkpoint = indexer.NewFileCheckpoint(cfg.Checkpoint, contract.Hex())
	case pg != nil:
		checkpoint = &indexer.DBCheckpoint{Store: pg, Name: contract.Hex()}
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		Contract:     contract,
		FromBlock:    cfg.FromBlock,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		MaxBackoff:   cfg.MaxBackoff,
		DedupWindow:  cfg.DedupWindow,
	}, chainClient, decoder, store, checkpoint, logger)

	router := api.NewRouter(query.NewService(store, logger), readiness(runner, pg), logger)
	srv := api.NewServer(cfg.Listen, router)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.String("contract", contract.Hex()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("store", cfg.Store),
		zap.String("listen", cfg.Listen),
		zap.Bool("checkpoint_enabled", checkpoint != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		return api.ServeAndWait(gctx, logger, srv, shutdownTimeout)
	})

	return g.Wait()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pg, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if pg != nil {
		defer pg.Close()
	}

	router := api.NewRouter(query.NewService(store, logger), readiness(nil, pg), logger)
	return api.ServeAndWait(ctx, logger, api.NewServer(cfg.Listen, router), shutdownTimeout)
}

// readiness reports ready once the runner is live and Postgres answers.
// Either may be nil.
func readiness(runner *indexer.Runner, pg *postgres.Store) api.ReadyFunc {
	var checks []api.ReadyFunc
	if runner != nil {
		checks = append(checks, func(context.Context) error {
			if !runner.Ready() {
				return errCatchingUp
			}
			return nil
		})
	}
	if pg != nil {
		checks = append(checks, pg.Ping)
	}
	return api.AllReady(checks...)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required")
	}
	return postgres.Migrate(cfg.PGDSN, logger)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pg.Close()

	records, err := pg.List(ctx)
	if err != nil {
		return err
	}
	if err := storage.NewJsonlStorage(cfg.Out).WriteCampaigns(records); err != nil {
		return err
	}

	logger.Info("export complete", zap.Int("campaigns", len(records)), zap.String("out", cfg.Out))
	return nil
}

// openStore returns the configured store; pg is non-nil for the Postgres backend.
func openStore(ctx context.Context, cfg config.Config) (storage.CampaignStore, *postgres.Store, error) {
	if cfg.Store == config.StoreMemory {
		return memory.NewStore(), nil, nil
	}
	pg, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
