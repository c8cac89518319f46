package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/usgs/sbgo/filter"
	"github.com/usgs/sbgo/sciencebase"
)

var (
	findQuery       string
	findLucene      string
	findFilters     []string
	findFields      []string
	findMax         int
	findAll         bool
	findWhere       string
	listDescendants bool
	listShortcuts   bool
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search the catalog",
	Long: `Search the catalog with free text, a Lucene query and raw filters.

--where applies a client-side filter to the results: either the name of a
filter from the config file or an expression such as

  hasTag("water") and hasFile("*.csv") and Created > yearsAgo(2)
  tag:"water" AND files:>0`,
	Args: cobra.NoArgs,
	RunE: runFind,
}

// childrenCmd represents the children command
var childrenCmd = &cobra.Command{
	Use:   "children <item-id>",
	Short: "List the ids of an item's children",
	Args:  cobra.ExactArgs(1),
	RunE:  runChildren,
}

func init() {
	rootCmd.AddCommand(findCmd, childrenCmd)

	findCmd.Flags().StringVar(&findQuery, "q", "", "free text query")
	findCmd.Flags().StringVar(&findLucene, "lq", "", "Lucene query, e.g. title:\"lake\"")
	findCmd.Flags().StringArrayVar(&findFilters, "filter", nil, "catalog filter, e.g. parentId=<id> (repeatable)")
	findCmd.Flags().StringSliceVar(&findFields, "fields", nil, "only return these fields")
	findCmd.Flags().IntVar(&findMax, "max", 0, "page size")
	findCmd.Flags().BoolVar(&findAll, "all", false, "follow next links through every page")
	findCmd.Flags().StringVarP(&findWhere, "where", "w", "", "client-side filter expression or configured filter name")

	childrenCmd.Flags().BoolVar(&listDescendants, "descendants", false, "list every descendant, not just direct children")
	childrenCmd.Flags().BoolVar(&listShortcuts, "shortcuts", false, "list items linked under this item instead")
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	q := sciencebase.Query{
		Q:       findQuery,
		LQ:      findLucene,
		Filters: findFilters,
		Max:     findMax,
		Fields:  findFields,
	}

	first, err := call(ctx, func(ctx context.Context) (*sciencebase.SearchPage, error) {
		return client.FindItems(ctx, q)
	})
	if err != nil {
		return err
	}

	items := first.Items
	if findAll {
		items = items[:0:0]
		cursor := client.NewCursor(first)
		for cursor.Next(ctx) {
			items = append(items, cursor.Page().Items...)
		}
		if err := cursor.Err(); err != nil {
			return err
		}
	}

	logger.Debug().Int("total", first.Total).Int("fetched", len(items)).Msg("Search complete")

	if findWhere != "" {
		items, err = applyWhere(ctx, findWhere, items)
		if err != nil {
			return err
		}
	}

	if items == nil {
		items = []sciencebase.Item{}
	}
	return printResult(cmd.OutOrStdout(), outputFormat, items)
}

// applyWhere filters items with a configured filter or an ad hoc expression.
// Items the filter fails on are dropped with a warning.
func applyWhere(ctx context.Context, where string, items []sciencebase.Item) ([]sciencebase.Item, error) {
	manager := filter.NewManager()
	defer manager.Close(context.Background())

	if err := manager.RegisterFilters(cfg.Filters); err != nil {
		return nil, fmt.Errorf("invalid filter in config: %w", err)
	}

	compiled, ok := manager.GetFilter(where)
	if !ok {
		var err error
		compiled, err = manager.Compile(where)
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	logger.Info().Str("filter", compiled.Expression()).Int("items", len(items)).Msg("Filtering items")

	matches, err := manager.Evaluate(ctx, compiled, items)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn().Err(err).Msg("Filter failed on some items")
	}
	return matches, nil
}

func runChildren(cmd *cobra.Command, args []string) error {
	list := client.GetChildIDs
	switch {
	case listDescendants:
		list = client.GetDescendantIDs
	case listShortcuts:
		list = client.GetShortcutIDs
	}

	ids, err := call(cmd.Context(), func(ctx context.Context) ([]string, error) {
		return list(ctx, args[0])
	})
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return printResult(cmd.OutOrStdout(), outputFormat, ids)
}
