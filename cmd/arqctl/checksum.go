package main

import (
	"fmt"

	"github.com/danmuck/arqlink/internal/protocol/crc"
	"github.com/spf13/cobra"
)

func newChecksumCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checksum [text...]",
		Short: "Print the CRC-16/CCITT-FALSE of each argument or stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := inputLines(opts.stdin, args)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintf(cmd.OutOrStdout(), "%04X  %s\n", crc.String(line), line)
			}
			return nil
		},
	}
}
