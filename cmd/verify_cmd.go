package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func verifyCmd() *cobra.Command {
	var flags signedMessageFlags

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed message without storing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWithConfig(cmd, func(ctx context.Context, a *app) error {
				session, err := flags.session(cmd.InOrStdin())
				if err != nil {
					return err
				}

				if err := a.siwx.VerifySession(ctx, session); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "signature of %s on %s is valid\n", session.Data.AccountAddress, session.Data.ChainID)
				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}
