package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/supabase/siwx/internal/siwx"
)

func messageCmd() *cobra.Command {
	var (
		address   string
		chainID   string
		notBefore string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "message",
		Short: "Create a sign-in message for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWithConfig(cmd, func(ctx context.Context, a *app) error {
				input := siwx.Input{AccountAddress: address, ChainID: chainID}

				if notBefore != "" {
					ts, err := time.Parse(time.RFC3339, notBefore)
					if err != nil {
						return errors.Wrap(err, "--not-before must be an RFC 3339 timestamp")
					}
					input.NotBefore = &ts
				}

				msg, err := a.siwx.CreateMessage(ctx, input)
				if err != nil {
					return errors.Wrap(err, "unable to create message")
				}

				if !asJSON {
					fmt.Fprintln(cmd.OutOrStdout(), msg.String())
					return nil
				}

				out := struct {
					Data    siwx.Data `json:"data"`
					Message string    `json:"message"`
				}{Data: msg.Data, Message: msg.String()}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "account address that will sign the message")
	cmd.Flags().StringVar(&chainID, "chain-id", "", "chain identifier, e.g. eip155:1")
	cmd.Flags().StringVar(&notBefore, "not-before", "", "RFC 3339 time before which the message is not valid")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the message data and text as JSON")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("chain-id")

	return cmd
}
