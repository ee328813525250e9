package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/supabase/siwx/internal/utilities"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), utilities.Version)
		},
	}
}
