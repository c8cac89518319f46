package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

const releaseRepository = "usgs/sbgo"

var (
	checkOnly       bool
	noConfirmUpdate bool
)

// selfupdateCmd represents the selfupdate command
var selfupdateCmd = &cobra.Command{
	Use:         "selfupdate",
	Short:       "Update sb to the latest release",
	Long:        `Check GitHub for a newer release of sb and replace the running binary with it.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{offlineAnnotation: ""},
	RunE:        runSelfupdate,
}

func init() {
	rootCmd.AddCommand(selfupdateCmd)

	selfupdateCmd.Flags().BoolVar(&checkOnly, "check", false, "only report whether an update is available")
	selfupdateCmd.Flags().BoolVar(&noConfirmUpdate, "no-confirm", false, "skip confirmation prompt")
}

func runSelfupdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	current, err := semver.ParseTolerant(version)
	if err != nil {
		return fmt.Errorf("cannot update a %s build: %w", version, err)
	}

	release, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(releaseRepository))
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s", releaseRepository)
	}

	latest, err := semver.ParseTolerant(release.Version())
	if err != nil {
		return fmt.Errorf("release %s has an invalid version: %w", release.Version(), err)
	}

	if latest.LTE(current) {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ sb %s is the latest version\n", current)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sb %s is available (current %s, published %s)\n",
		latest, current, release.PublishedAt.Format("2006-01-02"))
	if release.ReleaseNotes != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n\n", strings.TrimSpace(release.ReleaseNotes))
	}
	if checkOnly {
		return nil
	}

	if !noConfirmUpdate {
		fmt.Fprint(cmd.OutOrStdout(), "Update now? [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(response)) != "y" {
			logger.Info().Msg("Update cancelled")
			return nil
		}
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	logger.Info().Str("version", latest.String()).Str("asset", release.AssetName).Msg("Downloading release")
	if err := selfupdate.UpdateTo(ctx, release.AssetURL, release.AssetName, exe); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("no permission to replace %s, try again with sudo: %w", exe, err)
		}
		return fmt.Errorf("failed to update: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated to sb %s\n", latest)
	return nil
}
