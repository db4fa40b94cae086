package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/romshark/routelint/lsp"
)

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Run the routelint language server over stdio",
	Args:  cobra.NoArgs,
	RunE:  runLSP,
}

func init() {
	lspCmd.Flags().Int("verbosity", 0, "protocol log verbosity on stderr (0 disables)")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	verbosity, err := cmd.Flags().GetInt("verbosity")
	if err != nil {
		return fmt.Errorf("failed to get verbosity flag: %w", err)
	}
	commonlog.Configure(verbosity, nil)

	return lsp.New(log, toolVersion(), conf.ParserOptions()...).RunStdio()
}
