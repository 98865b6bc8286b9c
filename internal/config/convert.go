package config

import (
	"net"
	"strconv"
	"unicode/utf8"

	"github.com/danmuck/arqlink/internal/faults"
	"github.com/danmuck/arqlink/internal/logging"
	"github.com/danmuck/arqlink/internal/protocol/frame"
	"github.com/danmuck/arqlink/internal/protocol/session"
	"github.com/danmuck/arqlink/internal/receiver"
	"github.com/danmuck/arqlink/internal/sender"
)

// Addr is the receiver's host:port.
func (f File) Addr() string {
	return net.JoinHostPort(f.Server.Host, strconv.Itoa(f.Server.Port))
}

func (f File) RetryPolicy() (session.RetryPolicy, error) {
	timeout, err := parseDuration("sender.timeout", f.Sender.Timeout)
	if err != nil {
		return session.RetryPolicy{}, err
	}
	delay, err := parseDuration("sender.retry_delay", f.Sender.RetryDelay)
	if err != nil {
		return session.RetryPolicy{}, err
	}
	maxDelay, err := parseDuration("sender.max_retry_delay", f.Sender.MaxRetryDelay)
	if err != nil {
		return session.RetryPolicy{}, err
	}
	policy := session.RetryPolicy{
		MaxAttempts:    f.Sender.MaxAttempts,
		AttemptTimeout: timeout,
		Backoff: session.BackoffConfig{
			InitialDelay: delay,
			Multiplier:   f.Sender.BackoffMultiplier,
			MaxDelay:     maxDelay,
			Jitter:       f.Sender.Jitter,
		},
	}
	return policy, policy.Validate()
}

func (f File) SenderConfig() (sender.Config, error) {
	policy, err := f.RetryPolicy()
	if err != nil {
		return sender.Config{}, err
	}
	return sender.Config{Retry: policy, Limits: frame.DefaultLimits()}, nil
}

func (f File) Simulator() *faults.Simulator {
	sim := faults.NewSimulator(f.Receiver.CorruptionProbability, f.Receiver.CorruptionSeed)
	if r, _ := utf8.DecodeRuneInString(f.Receiver.Sentinel); r != utf8.RuneError {
		sim.WithSentinel(r)
	}
	return sim
}

func (f File) AdminConfig(nodeID string) receiver.AdminConfig {
	return receiver.AdminConfig{
		NodeID:      nodeID,
		Addr:        f.Receiver.AdminAddr,
		Token:       f.Receiver.AdminToken,
		CorsOrigins: f.Receiver.CorsOrigins,
	}
}

func (f File) LogConfig() logging.Config {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(f.Log.Level); ok {
		cfg.Level = lvl
	}
	cfg.Timestamp = f.Log.Timestamp
	cfg.NoColor = f.Log.NoColor
	return cfg
}
