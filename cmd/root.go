package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the attest command tree. Run with no arguments it
// starts the interactive menu.
func NewRootCommand() *cobra.Command {
	a := newApp()

	rootCmd := &cobra.Command{
		Use:           "attest",
		Short:         "Attest records AI-detection results on Solana.",
		Long:          `A command-line client for the attestation program: detect AI-generated content, anchor the result on chain and look attestations up by content hash.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), a)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "optional config file (yaml, json or toml)")

	rootCmd.AddCommand(
		newInitCommand(a),
		newStatusCommand(a),
		newCreateCommand(a),
		newShowCommand(a),
		newListCommand(a),
		newCloseCommand(a),
		newVerifyCommand(a),
		newLinkCommand(a),
		newUpdateMetadataCommand(a),
		newEventsCommand(a),
		newPauseCommand(a, true),
		newPauseCommand(a, false),
		newTransferAdminCommand(a),
		newDetectCommand(a),
		newHistoryCommand(a),
		newWalletCommand(a),
		newServeCommand(a),
	)
	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
