package sciencebase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
)

// downloadChunkSize is the write size used when saving downloads
const downloadChunkSize = 32 << 10

// GetItemFileInfo lists the files attached to item and to its facets
func GetItemFileInfo(item Item) ([]FileInfo, error) {
	var infos []FileInfo
	if item == nil {
		return infos, nil
	}

	files, err := item.Files()
	if err != nil {
		return nil, err
	}
	facets, err := item.Facets()
	if err != nil {
		return nil, err
	}
	for _, facet := range facets {
		files = append(files, facet.Files...)
	}

	for _, f := range files {
		infos = append(infos, FileInfo{URL: f.URL, Name: f.Name, Size: f.Size})
	}
	return infos, nil
}

// GetItemFilesZip downloads every file of item as one zip built by the
// catalog and saves it as <destination>/<id>.zip. It returns "" without an
// error when the item has no files.
func (c *Client) GetItemFilesZip(ctx context.Context, item Item, destination string) (string, error) {
	if err := requireItem(item); err != nil {
		return "", err
	}
	if err := requireID("item", item.ID()); err != nil {
		return "", err
	}

	infos, err := GetItemFileInfo(item)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		// The catalog would send an empty zip
		return "", nil
	}

	dest := filepath.Join(destination, item.ID()+".zip")
	if err := c.download(ctx, c.endpoints.downloadFiles()+url.PathEscape(item.ID()), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// DownloadFile saves rawURL as <destination>/<name>
func (c *Client) DownloadFile(ctx context.Context, rawURL, name, destination string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: file name is required", ErrPrecondition)
	}

	dest := filepath.Join(destination, name)
	c.logger.Info().Str("url", rawURL).Str("dest", dest).Msg("Downloading file")
	if err := c.download(ctx, rawURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// GetItemFiles downloads every file of item into destination. A failed
// file does not stop the others; all failures are returned together.
func (c *Client) GetItemFiles(ctx context.Context, item Item, destination string) ([]string, error) {
	infos, err := GetItemFileInfo(item)
	if err != nil {
		return nil, err
	}

	var (
		paths []string
		errs  *multierror.Error
	)
	for _, info := range infos {
		p, err := c.DownloadFile(ctx, info.URL, info.Name, destination)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", info.Name, err))
			continue
		}
		paths = append(paths, p)
	}
	return paths, errs.ErrorOrNil()
}

// download streams a GET response to dest in fixed-size chunks, so memory
// use does not grow with the file. A partial file is removed on failure.
func (c *Client) download(ctx context.Context, rawURL, dest string) error {
	resp, err := c.send(ctx, http.MethodGet, rawURL, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := c.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}
	f, err := c.fs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	buf := make([]byte, downloadChunkSize)
	n, err := io.CopyBuffer(f, resp.Body, buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = c.fs.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	c.logger.Debug().Str("dest", dest).Int64("bytes", n).Msg("Download complete")
	return nil
}
