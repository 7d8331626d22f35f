package cmd

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newWalletCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the local signing wallet",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "address",
			Short: "Print the wallet address, creating the wallet if needed",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				wallet, err := a.loadWallet(true)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, wallet.PublicKey().String())
				return nil
			},
		},
		&cobra.Command{
			Use:   "balance",
			Short: "Print the wallet balance and the cost of one attestation",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := a.protocolClient(true)
				if err != nil {
					return err
				}
				balance, err := client.Balance(cmd.Context())
				if err != nil {
					return err
				}
				rent, err := client.AttestationRent(cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintln(a.out, titleStyle.Render("Wallet balance"))
				printField(a.out, "Balance:", formatSol(balance))
				printField(a.out, "Per attestation:", formatSol(rent)+" rent, refunded on close")
				if balance < rent {
					fmt.Fprintln(a.out, warningStyle.Render("   Balance is too low to create an attestation."))
				}
				return nil
			},
		},
		newWalletSendCommand(a),
	)
	return cmd
}

func newWalletSendCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient> <amount-sol>",
		Short: "Send SOL from the wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return errors.Wrap(err, "invalid recipient address")
			}
			lamports, err := parseSolAmount(args[1])
			if err != nil {
				return err
			}

			client, err := a.protocolClient(true)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, promptStyle.Render("Sending transaction... Please wait."))
			sig, err := client.SendSol(cmd.Context(), recipient, lamports)
			if err != nil {
				return err
			}
			printSignature(a.out, "Transaction Sent Successfully!", sig)
			return nil
		},
	}
}

// parseSolAmount converts a decimal SOL amount to lamports, rounding to the
// nearest lamport.
func parseSolAmount(s string) (uint64, error) {
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, errors.Errorf("invalid amount %q", s)
	}
	lamports := math.Round(amount * float64(solana.LAMPORTS_PER_SOL))
	if lamports < 1 {
		return 0, errors.Errorf("amount %q is below one lamport", s)
	}
	// 2^64 is exactly representable; anything at or above it overflows.
	if lamports >= math.MaxUint64 {
		return 0, errors.Errorf("amount %q is too large", s)
	}
	return uint64(lamports), nil
}
