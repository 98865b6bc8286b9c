package main

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/protocol"
	"github.com/danmuck/arqlink/internal/sender"
	"github.com/danmuck/arqlink/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	var f senderFlags
	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Deliver messages to a receiver, one at a time",
		Long: `Send each argument (or each stdin line when none are given) as its own
message. Sequence bits alternate per delivered message. The command fails if
any message is abandoned after exhausting its attempts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}
			seq, err := protocol.ParseBit(strconv.Itoa(f.seq))
			if err != nil {
				return err
			}
			messages, err := inputLines(opts.stdin, args)
			if err != nil {
				return fmt.Errorf("read messages: %w", err)
			}
			if len(messages) == 0 {
				return errors.New("no messages to send")
			}
			sc, err := cfg.SenderConfig()
			if err != nil {
				return err
			}

			conn, err := transport.Dial(cfg.Addr())
			if err != nil {
				return err
			}
			defer conn.Close()

			s := sender.New(conn, sc,
				sender.WithObserver(observability.Multi(
					observability.NewLogObserver(log.Logger),
					observability.NewMetricsObserver(),
				)),
				sender.WithInitialSequence(seq),
				sender.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))),
			)

			ctx := cmd.Context()
			abandoned := 0
			for _, m := range messages {
				res, err := s.SendNext(ctx, []byte(m))
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					abandoned++
					fmt.Fprintf(cmd.OutOrStdout(), "abandoned seq=%v attempts=%d session=%s: %v\n", res.Sequence, res.Attempts, res.SessionID, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "delivered seq=%v attempts=%d session=%s\n", res.Sequence, res.Attempts, res.SessionID)
			}
			if abandoned > 0 {
				return fmt.Errorf("%d of %d messages abandoned: %w", abandoned, len(messages), protocol.ErrDeliveryExhausted)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&f.timeout, "timeout", time.Second, "per-attempt reply timeout")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 5, "transmissions per message before giving up")
	cmd.Flags().DurationVar(&f.retryDelay, "retry-delay", time.Second, "pause between attempts")
	cmd.Flags().IntVar(&f.seq, "seq", 0, "sequence bit of the first message (0 or 1)")
	return cmd
}
