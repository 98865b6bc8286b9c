package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/danmuck/arqlink/internal/observability"
	"github.com/danmuck/arqlink/internal/receiver"
	"github.com/danmuck/arqlink/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var f receiverFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive frames, verify them, and acknowledge",
		Long: `Listen on the configured UDP address. Each accepted message is printed to
stdout as "<peer>\t<seq>\t<payload>". Synthetic corruption is applied before
integrity checking with the configured probability.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := f.apply(cmd, &cfg); err != nil {
				return err
			}

			conn, err := transport.Listen(cfg.Addr())
			if err != nil {
				return err
			}
			defer conn.Close()

			r := receiver.New(
				receiver.WithCorrupter(cfg.Simulator()),
				receiver.WithObserver(observability.Multi(
					observability.NewLogObserver(log.Logger),
					observability.NewMetricsObserver(),
				)),
				receiver.WithDeliver(printDelivery(cmd.OutOrStdout())),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var wg sync.WaitGroup
			if cfg.Receiver.AdminAddr != "" {
				admin := receiver.NewAdmin(r, cfg.AdminConfig("arqctl-serve"))
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := admin.ListenAndServe(ctx); err != nil {
						log.Error().Err(err).Str("addr", cfg.Receiver.AdminAddr).Msg("admin api stopped")
					}
				}()
			}

			log.Info().
				Str("addr", conn.LocalAddr().String()).
				Float64("corruption_probability", cfg.Receiver.CorruptionProbability).
				Msg("receiver listening")
			err = r.Serve(ctx, conn)
			cancel()
			wg.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().Float64Var(&f.probability, "probability", 0.6, "synthetic corruption probability in [0,1]")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "corruption random seed (0 seeds from the clock)")
	cmd.Flags().StringVar(&f.adminAddr, "admin-addr", "", "admin HTTP listen address (empty disables)")
	cmd.Flags().StringVar(&f.adminToken, "admin-token", "", "bearer token for mutating admin routes")
	return cmd
}

func printDelivery(w io.Writer) func(receiver.Delivery) {
	return func(d receiver.Delivery) {
		fmt.Fprintf(w, "%s\t%v\t%s\n", d.Peer, d.Sequence, d.Payload)
	}
}
