package main

import (
	"fmt"

	"github.com/danmuck/arqlink/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate, validate and inspect configuration files",
	}

	var (
		initFormat string
		output     string
		force      bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := config.ParseFormat(initFormat)
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = "arqlink." + string(format)
			}
			if err := config.WriteTemplate(target, format, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config template to %s\n", format, target)
			return nil
		},
	}
	initCmd.Flags().StringVar(&initFormat, "format", "toml", "template format: toml|yaml")
	initCmd.Flags().StringVarP(&output, "output", "o", "", "output path (default arqlink.<format>)")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no config path given")
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "validated %s\n", path)
			return nil
		},
	}

	var showFormat string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after file and flag overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := config.ParseFormat(showFormat)
			if err != nil {
				return err
			}
			b, err := config.Render(opts.cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	showCmd.Flags().StringVar(&showFormat, "format", "toml", "output format: toml|yaml")

	cmd.AddCommand(initCmd, validateCmd, showCmd)
	return cmd
}
