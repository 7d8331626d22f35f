package cmd

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPauseCommand(a *app, paused bool) *cobra.Command {
	use, short, title := "pause", "Stop new attestations from being created (admin only)", "Program paused"
	if !paused {
		use, short, title = "unpause", "Allow attestations to be created again (admin only)", "Program unpaused"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}
			sig, err := client.SetPaused(cmd.Context(), paused)
			if err != nil {
				return err
			}
			printSignature(a.out, title, sig)
			return nil
		},
	}
}

func newTransferAdminCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "transfer-admin <new-admin>",
		Short: "Hand the admin role to another address (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newAdmin, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return errors.Wrap(err, "invalid admin address")
			}

			if !yes {
				confirm := false
				prompt := &survey.Confirm{
					Message: "The current wallet will lose admin rights to " + newAdmin.String() + ". Continue?",
					Default: false,
				}
				if err := survey.AskOne(prompt, &confirm); err != nil {
					return err
				}
				if !confirm {
					return errors.New("transfer cancelled")
				}
			}

			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}
			sig, err := client.TransferAdmin(cmd.Context(), newAdmin)
			if err != nil {
				return err
			}
			printSignature(a.out, "Admin transferred", sig)
			printField(a.out, "New admin:", newAdmin.String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
