package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/usgs/sbgo/sciencebase"
)

var contactType string

// contactCmd represents the contact command
var contactCmd = &cobra.Command{
	Use:   "contact <party-id>",
	Short: "Print a directory person as an item contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runContact,
}

// opendapCmd represents the opendap command
var opendapCmd = &cobra.Command{
	Use:   "opendap <url>",
	Short: "Build a NetCDF OPeNDAP facet from a THREDDS dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpendap,
}

func init() {
	rootCmd.AddCommand(contactCmd, opendapCmd)

	contactCmd.Flags().StringVar(&contactType, "type", "Point of Contact", "contact type")
}

func runContact(cmd *cobra.Command, args []string) error {
	contact, err := call(cmd.Context(), func(ctx context.Context) (*sciencebase.DirectoryContact, error) {
		return client.GetDirectoryContact(ctx, args[0])
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, contact.ItemContact(contactType))
}

func runOpendap(cmd *cobra.Command, args []string) error {
	facet, err := call(cmd.Context(), func(ctx context.Context) (map[string]any, error) {
		return client.NetCDFOPeNDAPFacet(ctx, args[0])
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, facet)
}
