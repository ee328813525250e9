package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	cmd.AddCommand(sessionsAddCmd(), sessionsListCmd(), sessionsRevokeCmd(), sessionsMetadataCmd())

	return cmd
}

func sessionsAddCmd() *cobra.Command {
	var flags signedMessageFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Verify a signed message and store it as a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWithConfig(cmd, func(ctx context.Context, a *app) error {
				session, err := flags.session(cmd.InOrStdin())
				if err != nil {
					return err
				}

				if err := a.siwx.AddSession(ctx, session); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "session for %s on %s stored\n", session.Data.AccountAddress, session.Data.ChainID)
				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}

// accountFlags registers the --chain-id and --address flags.
func accountFlags(cmd *cobra.Command, chainID, address *string) {
	cmd.Flags().StringVar(chainID, "chain-id", "", "chain identifier, e.g. eip155:1")
	cmd.Flags().StringVar(address, "address", "", "account address")
	_ = cmd.MarkFlagRequired("chain-id")
	_ = cmd.MarkFlagRequired("address")
}

func sessionsListCmd() *cobra.Command {
	var chainID, address string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stored sessions of an account as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWithConfig(cmd, func(ctx context.Context, a *app) error {
				sessions, err := a.siwx.GetSessions(ctx, chainID, address)
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			})
		},
	}

	accountFlags(cmd, &chainID, &address)

	return cmd
}

func sessionsRevokeCmd() *cobra.Command {
	var chainID, address string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Delete the stored sessions of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWithConfig(cmd, func(ctx context.Context, a *app) error {
				if err := a.siwx.RevokeSession(ctx, chainID, address); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "sessions for %s on %s revoked\n", address, chainID)
				return nil
			})
		},
	}

	accountFlags(cmd, &chainID, &address)

	return cmd
}

func sessionsMetadataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata <json>",
		Short: "Replace the metadata of the account signed in to the remote service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWithConfig(cmd, func(ctx context.Context, a *app) error {
				if a.remote == nil {
					return errors.New("account metadata needs SIWX_STORAGE_BACKEND=remote")
				}

				var metadata any
				if err := json.Unmarshal([]byte(args[0]), &metadata); err != nil {
					return errors.Wrap(err, "metadata must be valid JSON")
				}

				return a.remote.SetAccountMetadata(ctx, metadata)
			})
		},
	}

	return cmd
}
