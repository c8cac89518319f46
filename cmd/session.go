package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/usgs/sbgo/sciencebase"
)

var (
	logout   bool
	pingOnly bool
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the catalog session",
	Long: `Show whether the configured credentials produced a catalog session.

--ping checks that the catalog answers at all; --logout ends the session.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().BoolVar(&logout, "logout", false, "end the session")
	sessionCmd.Flags().BoolVar(&pingOnly, "ping", false, "only check that the catalog is reachable")
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if pingOnly {
		resp, err := call(ctx, client.Ping)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), outputFormat, resp)
	}

	if logout {
		if err := client.Logout(ctx); err != nil {
			return err
		}
		logger.Info().Msg("Logged out")
		return nil
	}

	info, err := call(ctx, func(ctx context.Context) (*sciencebase.SessionInfo, error) {
		return client.SessionInfo(ctx)
	})
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), outputFormat, map[string]any{
		"environment": client.Environment().String(),
		"catalog":     client.Endpoints().Catalog,
		"username":    client.Username(),
		"session":     info,
	})
}
