package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL   string
	Contract string
	TxHash   string
	LogLevel string
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return DecodeConfig{}, err
	}
	v.SetDefault("log-level", "info")

	cfg := DecodeConfig{
		RPCURL:   v.GetString("rpc"),
		Contract: strings.TrimSpace(v.GetString("contract")),
		TxHash:   strings.TrimSpace(v.GetString("tx")),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.RPCURL == "" {
		return DecodeConfig{}, fmt.Errorf("rpc url is required")
	}
	if cfg.TxHash == "" {
		return DecodeConfig{}, fmt.Errorf("tx hash is required")
	}
	return cfg, nil
}

// ExportConfig holds configuration for the export command.
type ExportConfig struct {
	PGDSN    string
	Out      string
	LogLevel string
}

// LoadExport merges config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return ExportConfig{}, err
	}
	v.SetDefault("out", "./data/campaigns.jsonl")
	v.SetDefault("log-level", "info")

	cfg := ExportConfig{
		PGDSN:    v.GetString("pg-dsn"),
		Out:      v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.PGDSN == "" {
		return ExportConfig{}, fmt.Errorf("pg-dsn is required")
	}
	if cfg.Out == "" {
		return ExportConfig{}, fmt.Errorf("out path is required")
	}
	return cfg, nil
}
