package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/danmuck/arqlink/internal/logging"
	"github.com/spf13/cobra"
)

// rootOptions is shared by every subcommand; cfg is resolved in PersistentPreRunE.
type rootOptions struct {
	configPath string
	logLevel   string
	host       string
	port       int

	stdin  io.Reader
	stdout io.Writer
	cfg    config.File
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	opts := &rootOptions{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:   "arqctl",
		Short: "Stop-and-wait reliable delivery over UDP with CRC-16 integrity checks",
		Long: `arqctl sends and receives text messages over UDP using a stop-and-wait
ARQ: every frame carries a sequence bit and a CRC-16/CCITT-FALSE checksum,
the receiver answers ACK or NACK, and the sender retransmits on NACK or
timeout until its attempt budget is spent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntimeConfig(cmd, opts)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logging.ConfigureWith(cfg.LogConfig())
			return nil
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error|off")
	pf.StringVar(&opts.host, "host", config.DefaultHost, "receiver host")
	pf.IntVar(&opts.port, "port", config.DefaultPort, "receiver UDP port")

	root.AddCommand(
		newSendCmd(opts),
		newServeCmd(opts),
		newChecksumCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// inputLines returns args, or non-empty stdin lines when no args were given.
func inputLines(r io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
