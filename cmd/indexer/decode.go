package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"campaignScope/internal/campaign"
	"campaignScope/internal/chain"
	"campaignScope/internal/config"
	"campaignScope/internal/indexer"
	"campaignScope/internal/model"
)

type decodedCampaign struct {
	Campaign    string `json:"campaign"`
	Creator     string `json:"creator"`
	Goal        string `json:"goal"`
	Deadline    string `json:"deadline"`
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	txBytes, err := hexutil.Decode(cfg.TxHash)
	if err != nil || len(txBytes) != common.HashLength {
		return fmt.Errorf("invalid tx hash: %s", cfg.TxHash)
	}
	txHash := common.BytesToHash(txBytes)

	var contract *common.Address
	if cfg.Contract != "" {
		addr, err := indexer.ParseContract(cfg.Contract)
		if err != nil {
			return err
		}
		contract = &addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	receipt, err := chainClient.TransactionReceipt(ctx, txHash)
	if err != nil {
		return fmt.Errorf("fetch receipt: %w", err)
	}

	decoder, err := campaign.NewDecoder()
	if err != nil {
		return err
	}

	events, failures := decodeReceipt(decoder, contract, receipt)
	if err := writeJSONLines(cmd.OutOrStdout(), events); err != nil {
		return err
	}
	if err := writeJSONLines(cmd.ErrOrStderr(), failures); err != nil {
		return err
	}

	logger.Info("decode complete",
		zap.String("tx_hash", txHash.Hex()),
		zap.Int("logs", len(receipt.Logs)),
		zap.Int("decoded", len(events)),
		zap.Int("failed", len(failures)),
	)

	return nil
}

// decodeReceipt decodes every CampaignCreated log in receipt. Logs of other
// events are skipped; malformed ones are reported as failures.
func decodeReceipt(decoder *campaign.Decoder, contract *common.Address, receipt *types.Receipt) ([]decodedCampaign, []model.DecodeFailure) {
	events := make([]decodedCampaign, 0)
	failures := make([]model.DecodeFailure, 0)
	if receipt == nil {
		return events, failures
	}

	for _, log := range receipt.Logs {
		if log == nil {
			continue
		}
		if contract != nil && log.Address != *contract {
			continue
		}

		event, err := decoder.Decode(*log)
		if err != nil {
			if errors.Is(err, campaign.ErrSignatureMismatch) {
				continue
			}
			failures = append(failures, decodeFailureFromLog(*log, err))
			continue
		}

		events = append(events, decodedCampaign{
			Campaign:    event.Campaign,
			Creator:     event.Creator,
			Goal:        model.BigString(event.Goal),
			Deadline:    model.BigString(event.Deadline),
			TxHash:      event.TxHash,
			BlockNumber: event.BlockNumber,
			LogIndex:    event.LogIndex,
		})
	}

	return events, failures
}

func decodeFailureFromLog(log types.Log, err error) model.DecodeFailure {
	failure := model.DecodeFailure{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Error:       err.Error(),
	}
	if len(log.Topics) > 0 {
		failure.Topic0 = log.Topics[0].Hex()
	}
	return failure
}

func writeJSONLines[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}
