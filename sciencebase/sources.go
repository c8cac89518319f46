package sciencebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/spf13/afero"
)

const defaultFilename = "file"

// UploadSource is where the bytes of one uploaded file come from. It is one
// of LocalFile, RemoteURL or Buffer.
type UploadSource interface {
	uploadSource()
}

// LocalFile is a file on the client's filesystem. The uploaded name is the
// base name of Path.
type LocalFile struct {
	Path string
	// ContentType overrides the guess made from the extension and content
	ContentType string
}

// RemoteURL is an http, https or ftp resource fetched by the client before
// upload. A Content-Disposition filename from the server wins over any
// caller-supplied name.
type RemoteURL struct {
	URL string
}

// Buffer is content already in memory
type Buffer struct {
	Data        []byte
	ContentType string
}

func (LocalFile) uploadSource() {}
func (RemoteURL) uploadSource() {}
func (Buffer) uploadSource()    {}

// UploadPayload is a resolved source, ready to go into a multipart body
type UploadPayload struct {
	Filename    string
	Data        []byte
	ContentType string
}

// urlShape is a loose scheme://host[:port][/path] check
var urlShape = regexp.MustCompile(`(?i)^(?:ftp|https?)://(?:(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(?::\d+)?(?:/?|[/?]\S+)$`)

// dispositionFilename matches servers that send an unparseable
// Content-Disposition. The match stops at the next parameter.
var dispositionFilename = regexp.MustCompile(`filename=([^;]+)`)

// ResolveSource loads one source into memory. override is the
// caller-supplied filename for this source, or "".
func (c *Client) ResolveSource(ctx context.Context, src UploadSource, override string) (UploadPayload, error) {
	switch s := src.(type) {
	case LocalFile:
		return c.resolveLocal(s)
	case RemoteURL:
		return c.resolveRemote(ctx, s, override)
	case Buffer:
		name := pickFilename("", override)
		contentType := s.ContentType
		if contentType == "" {
			contentType = guessContentType(name, s.Data)
		}
		return UploadPayload{Filename: name, Data: s.Data, ContentType: contentType}, nil
	default:
		return UploadPayload{}, fmt.Errorf("%w: %T", ErrUnrecognizedSource, src)
	}
}

func (c *Client) resolveLocal(s LocalFile) (UploadPayload, error) {
	data, err := readLocal(c.fs, s.Path)
	if err != nil {
		return UploadPayload{}, err
	}

	name := filepath.Base(s.Path)
	contentType := s.ContentType
	if contentType == "" {
		contentType = guessContentType(name, data)
	}
	return UploadPayload{Filename: name, Data: data, ContentType: contentType}, nil
}

func readLocal(fsys afero.Fs, p string) ([]byte, error) {
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrFileNotFound, p, err)
	}
	return data, nil
}

// fetched is a remote body with the transfer metadata that came with it
type fetched struct {
	data   []byte
	status int
	header http.Header
}

func (c *Client) resolveRemote(ctx context.Context, s RemoteURL, override string) (UploadPayload, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return UploadPayload{}, fmt.Errorf("%w: %s: %v", ErrUnrecognizedSource, s.URL, err)
	}
	if !urlShape.MatchString(s.URL) {
		// The fetch itself decides; this only flags a likely typo
		c.logger.Warn().Str("url", s.URL).Msg("URL does not look valid")
	}

	var f *fetched
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		f, err = c.fetchHTTP(ctx, s.URL)
	case "ftp":
		f, err = c.fetchFTP(ctx, u)
	default:
		return UploadPayload{}, fmt.Errorf("%w: %s", ErrUnrecognizedSource, s.URL)
	}
	if err != nil {
		return UploadPayload{}, err
	}

	c.logger.Info().
		Str("url", s.URL).
		Int("status", f.status).
		Int("bytes", len(f.data)).
		Msg("Fetched upload source")

	name := pickFilename(contentDispositionFilename(f.header), override)
	contentType := ""
	if ct := f.header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			contentType = mt
		}
	}
	if contentType == "" {
		contentType = guessContentType(name, f.data)
	}
	return UploadPayload{Filename: name, Data: f.data, ContentType: contentType}, nil
}

// pickFilename applies the naming order: server-provided, then the caller's
// override, then "file".
func pickFilename(fromServer, override string) string {
	switch {
	case fromServer != "":
		return fromServer
	case override != "":
		return override
	default:
		return defaultFilename
	}
}

func contentDispositionFilename(h http.Header) string {
	cd := h.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	if m := dispositionFilename.FindStringSubmatch(cd); m != nil {
		return strings.Trim(strings.TrimSpace(m[1]), `"'`)
	}
	return ""
}

// fetchHTTP downloads a remote source with the fetch client, which never
// carries the ScienceBase session.
func (c *Client) fetchHTTP(ctx context.Context, rawURL string) (*fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if Classify(resp.StatusCode) != OutcomeSuccess {
		return nil, fmt.Errorf("failed to fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return &fetched{data: data, status: resp.StatusCode, header: resp.Header}, nil
}

// FTPConn is the part of an FTP connection used to fetch a source
type FTPConn interface {
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// FTPDialer opens a logged in connection to the server named by u
type FTPDialer func(ctx context.Context, u *url.URL) (FTPConn, error)

type ftpConn struct {
	conn *ftp.ServerConn
}

func (f ftpConn) Retr(p string) (io.ReadCloser, error) {
	r, err := f.conn.Retr(p)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f ftpConn) Quit() error {
	return f.conn.Quit()
}

func dialFTP(ctx context.Context, u *url.URL) (FTPConn, error) {
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "21")
	}

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, err
	}

	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, err
	}
	return ftpConn{conn: conn}, nil
}

func (c *Client) fetchFTP(ctx context.Context, u *url.URL) (*fetched, error) {
	conn, err := c.ftpDial(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.Host, err)
	}
	defer func() { _ = conn.Quit() }()

	r, err := conn.Retr(u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s: %w", u.Redacted(), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u.Redacted(), err)
	}

	// FTP has no headers; expose what a caller would want from them
	header := http.Header{}
	header.Set("Content-Length", fmt.Sprint(len(data)))
	if ct := mime.TypeByExtension(path.Ext(u.Path)); ct != "" {
		header.Set("Content-Type", ct)
	}
	return &fetched{data: data, status: ftp.StatusClosingDataConnection, header: header}, nil
}

// validateURL is used where an absolute http(s) URL is required
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute URL", ErrPrecondition, raw)
	}
	return nil
}
