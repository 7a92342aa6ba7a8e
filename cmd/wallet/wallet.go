// Package wallet provides CLI commands for wallet key management.
package wallet

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/TimzAjes16/echoID/internal/identity"
)

// New returns the wallet command group.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet key management tools",
	}

	cmd.AddCommand(newCreateCmd())
	cmd.AddCommand(newDeriveCmd())
	return cmd
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Generate a new wallet mnemonic and print account 0",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := identity.NewWalletService().Create(context.Background())
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create wallet")
			}

			// The mnemonic is printed exactly once and never stored.
			fmt.Println("mnemonic: ", result.Mnemonic)
			fmt.Println("address:  ", result.Address)
		},
	}
}

func newDeriveCmd() *cobra.Command {
	var index uint32

	cmd := &cobra.Command{
		Use:   "derive <mnemonic>",
		Short: "Derive an account address from an existing mnemonic",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			account, err := identity.NewWalletService().DeriveAccount(context.Background(), args[0], index)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to derive account")
			}
			fmt.Println("address: ", account.Address)
		},
	}

	cmd.Flags().Uint32Var(&index, "index", 0, "Account index on the derivation path")
	return cmd
}
