package sciencebase

import (
	"net/http"
	"time"

	"github.com/spf13/afero"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the session HTTP client. A cookie jar is attached
// if the client does not carry one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithFetchClient sets the client used to fetch remote upload sources.
// It never carries the ScienceBase session.
func WithFetchClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.fetchClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxItemCount sets the page size used by the id finders and the chunk
// size of DeleteItems.
func WithMaxItemCount(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxItemCount = n
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithEndpoints overrides the URLs derived from the environment.
// Use it for tests and private deployments.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		c.endpoints = e.normalized()
	}
}

// WithFs sets the filesystem used for local uploads and downloads.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithPasswordReader sets the prompt used by LoginInteractive.
func WithPasswordReader(r PasswordReader) Option {
	return func(c *Client) {
		if r != nil {
			c.passwords = r
		}
	}
}

// WithRetryPolicy sets the policy used by Client.Retry.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithFetchConcurrency lets remote upload sources be fetched in parallel.
// The default of 1 fetches them one after another.
func WithFetchConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.fetchConcurrency = n
		}
	}
}

// WithScrapeFile controls whether the catalog scrapes metadata out of
// uploaded files. It is on by default.
func WithScrapeFile(enabled bool) Option {
	return func(c *Client) {
		c.scrapeFile = enabled
	}
}

// WithFTPDialer replaces how ftp:// sources are opened.
func WithFTPDialer(d FTPDialer) Option {
	return func(c *Client) {
		if d != nil {
			c.ftpDial = d
		}
	}
}

// WithDebug logs every request and response header at trace level.
func WithDebug(enabled bool) Option {
	return func(c *Client) {
		c.debug = enabled
	}
}
