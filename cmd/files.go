package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/usgs/sbgo/sciencebase"
)

var (
	uploadItemID   string
	uploadParentID string
	uploadTitle    string
	uploadNames    []string
	noScrape       bool
	contentType    string
	downloadDir    string
	downloadZip    bool
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <path-or-url>...",
	Short: "Upload files to a new or existing item",
	Long: `Upload local files, http(s) or ftp URLs, or stdin (-) in one request.

With --item the files are added to that item. Otherwise a new item is created
under --parent, or under your My Items folder.

  sb upload --item 5a1c... depths.csv https://example.com/shorelines.zip
  cat notes.txt | sb upload --parent 4f4e... --name notes.txt -`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

// stageCmd represents the stage command
var stageCmd = &cobra.Command{
	Use:   "stage <path>",
	Short: "Upload a file to the temporary area without attaching it to an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runStage,
}

// replaceCmd represents the replace command
var replaceCmd = &cobra.Command{
	Use:   "replace <path> --item <item-id>",
	Short: "Replace the item's files named like path with new content",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplace,
}

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <item-id>",
	Short: "Download an item's files",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(uploadCmd, stageCmd, replaceCmd, downloadCmd)

	uploadCmd.Flags().StringVar(&uploadItemID, "item", "", "existing item to add the files to")
	uploadCmd.Flags().StringVar(&uploadParentID, "parent", "", "parent of the new item")
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "title of the new item")
	uploadCmd.Flags().StringArrayVar(&uploadNames, "name", nil, "file name for the source at the same position (repeatable)")
	uploadCmd.Flags().BoolVar(&noScrape, "no-scrape", false, "do not extract metadata from the uploaded files")
	uploadCmd.MarkFlagsMutuallyExclusive("item", "parent")
	uploadCmd.MarkFlagsMutuallyExclusive("item", "title")

	stageCmd.Flags().StringVar(&contentType, "content-type", "", "content type (default is guessed)")

	replaceCmd.Flags().StringVar(&uploadItemID, "item", "", "item holding the file")
	_ = replaceCmd.MarkFlagRequired("item")

	downloadCmd.Flags().StringVarP(&downloadDir, "dest", "d", ".", "destination directory")
	downloadCmd.Flags().BoolVar(&downloadZip, "zip", false, "download every file as one zip")
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	sources := make([]sciencebase.UploadSource, 0, len(args))
	for _, arg := range args {
		src, err := parseSource(arg, cmd.InOrStdin())
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	var (
		item sciencebase.Item
		err  error
	)
	if uploadItemID != "" {
		item, err = call(ctx, func(ctx context.Context) (sciencebase.Item, error) {
			return client.GetItem(ctx, uploadItemID)
		})
		if err != nil {
			return err
		}
	} else {
		parent := uploadParentID
		if parent == "" {
			if parent, err = call(ctx, client.GetMyItemsID); err != nil {
				return fmt.Errorf("failed to find My Items folder: %w", err)
			}
		}
		item = sciencebase.NewItem(parent, uploadTitle)
	}

	opts := sciencebase.UpsertOptions{
		Filenames:     uploadNames,
		DisableScrape: noScrape,
	}
	result, err := client.UploadAndUpsertItem(ctx, item, sources, opts)
	if err != nil {
		return err
	}

	logger.Info().Str("id", result.ID()).Int("files", len(sources)).Msg("Uploaded files")
	return printResult(cmd.OutOrStdout(), outputFormat, result)
}

func runStage(cmd *cobra.Command, args []string) error {
	uploaded, err := client.UploadFile(cmd.Context(), args[0], contentType)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, uploaded)
}

func runReplace(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	item, err := call(ctx, func(ctx context.Context) (sciencebase.Item, error) {
		return client.GetItem(ctx, uploadItemID)
	})
	if err != nil {
		return err
	}

	updated, err := client.ReplaceFile(ctx, args[0], item)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, updated)
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", downloadDir, err)
	}

	item, err := call(ctx, func(ctx context.Context) (sciencebase.Item, error) {
		return client.GetItem(ctx, args[0])
	})
	if err != nil {
		return err
	}

	if downloadZip {
		path, err := client.GetItemFilesZip(ctx, item, downloadDir)
		if err != nil {
			return err
		}
		if path == "" {
			logger.Info().Str("id", item.ID()).Msg("Item has no files")
			return nil
		}
		return printResult(cmd.OutOrStdout(), outputFormat, []string{path})
	}

	paths, err := client.GetItemFiles(ctx, item, downloadDir)
	if paths == nil {
		paths = []string{}
	}
	if printErr := printResult(cmd.OutOrStdout(), outputFormat, paths); printErr != nil {
		return errors.Join(err, printErr)
	}
	return err
}
