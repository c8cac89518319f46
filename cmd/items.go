package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/usgs/sbgo/sciencebase"
)

var (
	getFields   []string
	createTitle string
	parentID    string
	setFields   []string
	destID      string
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <item-id>",
	Short: "Print an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an item",
	Long: `Create an item under a parent. Fields are given as key=value pairs;
values that parse as JSON keep their type.

  sb create --parent 4f4e4760e4b07f02db47dfb4 --title "Lake survey" --set summary="Depths"`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <item-id>",
	Short: "Update fields of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdate,
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <item-id>...",
	Short: "Delete items",
	Long:  `Delete one item, or many in batches of client.max_item_count.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

// undeleteCmd represents the undelete command
var undeleteCmd = &cobra.Command{
	Use:   "undelete <item-id>",
	Short: "Restore a deleted item",
	Args:  cobra.ExactArgs(1),
	RunE:  runUndelete,
}

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move <item-id>... --to <parent-id>",
	Short: "Move items under a new parent",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMove,
}

// linkCmd represents the link command
var linkCmd = &cobra.Command{
	Use:   "link <item-id> --to <parent-id>",
	Short: "Add a shortcut to an item under another parent",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

// unlinkCmd represents the unlink command
var unlinkCmd = &cobra.Command{
	Use:   "unlink <item-id> --from <parent-id>",
	Short: "Remove a shortcut",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlink,
}

// extentCmd represents the extent command
var extentCmd = &cobra.Command{
	Use:   "extent <item-id> <geojson-file>",
	Short: "Add a GeoJSON Feature or FeatureCollection to an item's footprint",
	Long: `Add a GeoJSON Feature or FeatureCollection to an item's footprint.
Use - to read the GeoJSON from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runExtent,
}

func init() {
	rootCmd.AddCommand(getCmd, createCmd, updateCmd, deleteCmd, undeleteCmd, moveCmd, linkCmd, unlinkCmd, extentCmd)

	getCmd.Flags().StringSliceVar(&getFields, "fields", nil, "only return these fields")

	createCmd.Flags().StringVar(&parentID, "parent", "", "parent item id (default is your My Items folder)")
	createCmd.Flags().StringVar(&createTitle, "title", "", "item title")
	createCmd.Flags().StringArrayVar(&setFields, "set", nil, "field to set as key=value (repeatable)")

	updateCmd.Flags().StringArrayVar(&setFields, "set", nil, "field to set as key=value (repeatable)")
	_ = updateCmd.MarkFlagRequired("set")

	moveCmd.Flags().StringVar(&destID, "to", "", "new parent item id")
	_ = moveCmd.MarkFlagRequired("to")

	linkCmd.Flags().StringVar(&destID, "to", "", "parent item id to link under")
	_ = linkCmd.MarkFlagRequired("to")

	unlinkCmd.Flags().StringVar(&destID, "from", "", "parent item id to unlink from")
	_ = unlinkCmd.MarkFlagRequired("from")
}

func runGet(cmd *cobra.Command, args []string) error {
	item, err := call(cmd.Context(), func(ctx context.Context) (sciencebase.Item, error) {
		return client.GetItem(ctx, args[0], getFields...)
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, item)
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fields, err := parseAssignments(setFields)
	if err != nil {
		return err
	}
	item := sciencebase.Item(fields)
	if createTitle != "" {
		item["title"] = createTitle
	}

	parent := parentID
	if parent == "" {
		parent, err = call(ctx, client.GetMyItemsID)
		if err != nil {
			return fmt.Errorf("failed to find My Items folder: %w", err)
		}
	}
	item["parentId"] = parent

	created, err := client.CreateItem(ctx, item)
	if err != nil {
		return err
	}

	logger.Info().Str("id", created.ID()).Str("parent", parent).Msg("Created item")
	return printResult(cmd.OutOrStdout(), outputFormat, created)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	fields, err := parseAssignments(setFields)
	if err != nil {
		return err
	}
	fields["id"] = args[0]

	updated, err := call(cmd.Context(), func(ctx context.Context) (sciencebase.Item, error) {
		return client.UpdateItem(ctx, sciencebase.Item(fields))
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, updated)
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 1 {
		if err := client.DeleteItem(ctx, sciencebase.Item{"id": args[0]}); err != nil {
			return err
		}
		logger.Info().Str("id", args[0]).Msg("Deleted item")
		return nil
	}

	if err := client.DeleteItems(ctx, args); err != nil {
		return err
	}
	logger.Info().Int("count", len(args)).Msg("Deleted items")
	return nil
}

func runUndelete(cmd *cobra.Command, args []string) error {
	item, err := call(cmd.Context(), func(ctx context.Context) (sciencebase.Item, error) {
		return client.UndeleteItem(ctx, args[0])
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, item)
}

func runMove(cmd *cobra.Command, args []string) error {
	moved, err := client.MoveItems(cmd.Context(), args, destID)
	logger.Info().
		Int("moved", moved).
		Int("total", len(args)).
		Str("parent", destID).
		Msg("Moved items")
	return err
}

func runLink(cmd *cobra.Command, args []string) error {
	item, err := call(cmd.Context(), func(ctx context.Context) (sciencebase.Item, error) {
		return client.CreateShortcut(ctx, args[0], destID)
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, item)
}

func runUnlink(cmd *cobra.Command, args []string) error {
	item, err := call(cmd.Context(), func(ctx context.Context) (sciencebase.Item, error) {
		return client.RemoveShortcut(ctx, args[0], destID)
	})
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, item)
}

func runExtent(cmd *cobra.Command, args []string) error {
	var geojson map[string]any
	if err := readJSONArg(args[1], &geojson); err != nil {
		return err
	}

	if t, _ := geojson["type"].(string); !strings.EqualFold(t, "Feature") && !strings.EqualFold(t, "FeatureCollection") {
		logger.Warn().Str("type", t).Msg("GeoJSON is neither a Feature nor a FeatureCollection")
	}

	item, err := client.AddExtent(cmd.Context(), args[0], geojson)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, item)
}
