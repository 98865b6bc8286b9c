package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/spf13/cobra"
)

// loadRuntimeConfig layers defaults, the config file, and explicitly set flags.
func loadRuntimeConfig(cmd *cobra.Command, opts *rootOptions) (config.File, error) {
	cfg := config.Default()
	if path := strings.TrimSpace(opts.configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.File{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = strings.TrimSpace(opts.host)
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = strings.TrimSpace(opts.logLevel)
	}
	if err := config.Validate(cfg); err != nil {
		return config.File{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type senderFlags struct {
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	seq         int
}

func (f senderFlags) apply(cmd *cobra.Command, cfg *config.File) error {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Sender.Timeout = f.timeout.String()
	}
	if flags.Changed("max-attempts") {
		cfg.Sender.MaxAttempts = f.maxAttempts
	}
	if flags.Changed("retry-delay") {
		cfg.Sender.RetryDelay = f.retryDelay.String()
	}
	return config.Validate(*cfg)
}

type receiverFlags struct {
	probability float64
	seed        int64
	adminAddr   string
	adminToken  string
}

func (f receiverFlags) apply(cmd *cobra.Command, cfg *config.File) error {
	flags := cmd.Flags()
	if flags.Changed("probability") {
		cfg.Receiver.CorruptionProbability = f.probability
	}
	if flags.Changed("seed") {
		cfg.Receiver.CorruptionSeed = f.seed
	}
	if flags.Changed("admin-addr") {
		cfg.Receiver.AdminAddr = strings.TrimSpace(f.adminAddr)
	}
	if flags.Changed("admin-token") {
		cfg.Receiver.AdminToken = f.adminToken
	}
	return config.Validate(*cfg)
}
