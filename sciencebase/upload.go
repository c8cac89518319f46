package sciencebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// UpsertOptions tunes UploadAndUpsertItem
type UpsertOptions struct {
	// Filenames holds a name per source, matched by index. It is used for
	// remote sources the server did not name and for buffers. Missing or
	// empty entries fall back to "file".
	Filenames []string
	// DisableScrape stops the catalog from extracting metadata from the files
	DisableScrape bool
}

func (o UpsertOptions) filenameAt(i int) string {
	if i < len(o.Filenames) {
		return o.Filenames[i]
	}
	return ""
}

// UploadAndUpsertItem resolves every source, then sends the item and all of
// the files in one multipart request. An item with an id is updated; an
// item without one is created under its parentId. Server-assigned fields,
// file metadata included, are merged back into item.
//
// Every source is held in memory until the request completes, so very large
// files need a matching amount of memory.
func (c *Client) UploadAndUpsertItem(ctx context.Context, item Item, sources []UploadSource, opts UpsertOptions) (Item, error) {
	if err := requireItem(item); err != nil {
		return nil, err
	}
	if !item.HasID() && item.ParentID() == "" {
		return nil, fmt.Errorf("%w: item needs an id or a parentId", ErrPrecondition)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no files to upload", ErrPrecondition)
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	payloads, err := c.resolveSources(ctx, sources, opts)
	if err != nil {
		return nil, err
	}

	body, contentType, err := upsertBody(item, payloads)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if opts.DisableScrape || !c.scrapeFile {
		params.Set("scrapeFile", "false")
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.uploadAndUpsert(), params, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req)
	if err == nil {
		err = checkResponse(resp)
	}
	if err != nil {
		c.logger.Error().Err(err).Str("id", item.ID()).Int("files", len(payloads)).Msg("Upload to ScienceBase failed")
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	var saved Item
	if err := decodeResponse(resp, &saved); err != nil {
		return nil, err
	}

	c.logger.Info().Str("id", saved.ID()).Int("files", len(payloads)).Msg("Upload to ScienceBase complete")
	return item.Merge(saved), nil
}

// resolveSources loads every source before anything is uploaded. Results
// keep the order of sources whatever the fetch concurrency.
func (c *Client) resolveSources(ctx context.Context, sources []UploadSource, opts UpsertOptions) ([]UploadPayload, error) {
	payloads := make([]UploadPayload, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fetchConcurrency)

	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := c.ResolveSource(gctx, src, opts.filenameAt(i))
			if err != nil {
				return fmt.Errorf("source %d: %w", i, err)
			}
			payloads[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func createFilePart(w *multipart.Writer, field string, p UploadPayload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(p.Filename)))
	h.Set("Content-Type", p.ContentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(p.Data)
	return err
}

func upsertBody(item Item, payloads []UploadPayload) (*bytes.Buffer, string, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal item: %w", err)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := w.WriteField("item", string(raw)); err != nil {
		return nil, "", err
	}
	if item.HasID() {
		if err := w.WriteField("id", item.ID()); err != nil {
			return nil, "", err
		}
	}
	for _, p := range payloads {
		if err := createFilePart(w, "file", p); err != nil {
			return nil, "", fmt.Errorf("failed to add %s: %w", p.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func localSources(paths []string) []UploadSource {
	sources := make([]UploadSource, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, LocalFile{Path: p})
	}
	return sources
}

// UploadFilesAndUpsertItem uploads local files and creates or updates item
func (c *Client) UploadFilesAndUpsertItem(ctx context.Context, item Item, paths []string) (Item, error) {
	return c.UploadAndUpsertItem(ctx, item, localSources(paths), UpsertOptions{})
}

// UploadFilesAndUpdateItem uploads local files to an existing item
func (c *Client) UploadFilesAndUpdateItem(ctx context.Context, item Item, paths []string) (Item, error) {
	if err := requireItem(item); err != nil {
		return nil, err
	}
	if err := requireID("item", item.ID()); err != nil {
		return nil, err
	}
	return c.UploadFilesAndUpsertItem(ctx, item, paths)
}

// UploadFileToItem uploads one local file to an existing item
func (c *Client) UploadFileToItem(ctx context.Context, item Item, path string) (Item, error) {
	return c.UploadFilesAndUpdateItem(ctx, item, []string{path})
}

// UploadFilesAndCreateItem creates a new item under parentID holding the
// given local files
func (c *Client) UploadFilesAndCreateItem(ctx context.Context, parentID string, paths []string) (Item, error) {
	if err := requireID("parent", parentID); err != nil {
		return nil, err
	}
	return c.UploadFilesAndUpsertItem(ctx, NewItem(parentID, ""), paths)
}

// UploadFileAndCreateItem creates a new item under parentID holding one file
func (c *Client) UploadFileAndCreateItem(ctx context.Context, parentID, path string) (Item, error) {
	return c.UploadFilesAndCreateItem(ctx, parentID, []string{path})
}

// UploadFile stages a local file in the catalog's temporary area without
// attaching it to an item. To attach it, put the returned FileKey in the
// pathOnDisk of an item or facet file entry. contentType may be "".
func (c *Client) UploadFile(ctx context.Context, path, contentType string) ([]UploadedFile, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	payload, err := c.ResolveSource(ctx, LocalFile{Path: path, ContentType: contentType}, "")
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if err := createFilePart(w, "files[]", payload); err != nil {
		return nil, fmt.Errorf("failed to add %s: %w", payload.Filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.uploadTemp(), nil, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", payload.Filename, err)
	}
	defer resp.Body.Close()

	var uploaded []UploadedFile
	if err := decodeResponse(resp, &uploaded); err != nil {
		return nil, err
	}
	if len(uploaded) == 0 {
		return nil, fmt.Errorf("%w: staging %s returned no file", ErrParse, payload.Filename)
	}
	return uploaded, nil
}

// ReplaceFile uploads path again for every file entry on the item, or on
// any of its facets, whose name matches the base name of path, and saves
// the item.
func (c *Client) ReplaceFile(ctx context.Context, path string, item Item) (Item, error) {
	if err := requireItem(item); err != nil {
		return nil, err
	}
	if err := requireID("item", item.ID()); err != nil {
		return nil, err
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	replaced := 0

	replaceIn := func(files []any) error {
		for _, f := range files {
			entry, ok := f.(map[string]any)
			if !ok || entry["name"] != name {
				continue
			}
			contentType, _ := entry["contentType"].(string)
			uploaded, err := c.UploadFile(ctx, path, contentType)
			if err != nil {
				return err
			}
			entry["pathOnDisk"] = uploaded[0].FileKey
			entry["dateUploaded"] = uploaded[0].DateUploaded
			entry["uploadedBy"] = uploaded[0].UploadedBy
			replaced++
		}
		return nil
	}

	if files, ok := item["files"].([]any); ok {
		if err := replaceIn(files); err != nil {
			return nil, err
		}
	}
	if facets, ok := item["facets"].([]any); ok {
		for _, f := range facets {
			facet, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if files, ok := facet["files"].([]any); ok {
				if err := replaceIn(files); err != nil {
					return nil, err
				}
			}
		}
	}

	c.logger.Debug().Str("id", item.ID()).Str("name", name).Int("replaced", replaced).Msg("Replacing file")
	return c.UpdateItem(ctx, item)
}
