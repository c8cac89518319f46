package sciencebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/term"
)

// MaxLoginAttempts is the number of password prompts LoginInteractive makes
const MaxLoginAttempts = 5

// PasswordReader prompts for a password without echoing it
type PasswordReader interface {
	ReadPassword(prompt string) (string, error)
}

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

// TerminalPasswordReader reads from the controlling terminal. The prompt is
// written to Out, or to stderr when Out is nil.
type TerminalPasswordReader struct {
	Out io.Writer
}

// ReadPassword implements PasswordReader
func (r TerminalPasswordReader) ReadPassword(prompt string) (string, error) {
	w := r.Out
	if w == nil {
		w = os.Stderr
	}
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// Login authenticates against the JOSSO identity provider and stores the
// issued session token. Every later request carries the token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if err := validation.Validate(username, validation.Required); err != nil {
		return fmt.Errorf("%w: username %v", ErrPrecondition, err)
	}

	// Only a cookie issued by this login may count as success
	if err := c.resetSession(); err != nil {
		return err
	}

	params := url.Values{
		"josso_cmd":      {"josso"},
		"josso_username": {username},
		"josso_password": {password},
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.Login, params, nil)
	if err != nil {
		return err
	}
	// Not c.do: its request log would carry the password
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token := c.sessionCookie()
	if token == "" {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("No session cookie after login")
		return fmt.Errorf("%w for %s", ErrLoginFailed, username)
	}

	c.mu.Lock()
	c.session = session{username: username, token: token}
	c.mu.Unlock()

	c.logger.Info().Str("username", username).Str("environment", c.env.String()).Msg("Logged in to ScienceBase")
	return nil
}

// sessionCookie looks for the JOSSO cookie on the identity provider and on
// the catalog, since the provider may redirect through either.
func (c *Client) sessionCookie() string {
	for _, raw := range []string{c.endpoints.Login, c.endpoints.Catalog} {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		for _, cookie := range c.jar.Cookies(u) {
			if cookie.Name == sessionCookie && cookie.Value != "" {
				return cookie.Value
			}
		}
	}
	return ""
}

// LoginInteractive prompts for the password up to MaxLoginAttempts times.
// After that it returns ErrTooManyAttempts; the identity provider may lock
// the account for a while, so callers should not retry immediately.
func (c *Client) LoginInteractive(ctx context.Context, username string) error {
	for attempt := 1; attempt <= MaxLoginAttempts; attempt++ {
		password, err := c.passwords.ReadPassword(fmt.Sprintf("ScienceBase password for %s: ", username))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		err = c.Login(ctx, username, password)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLoginFailed) {
			return err
		}
		c.logger.Warn().Int("attempt", attempt).Msg("Invalid password, try again")
	}
	return ErrTooManyAttempts
}

// Logout ends the session on the server and drops every local cookie.
// Calling it while logged out does nothing.
func (c *Client) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}

	var reqErr error
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoints.logout(), nil, nil)
	if err != nil {
		reqErr = err
	} else if resp, err := c.do(req); err != nil {
		reqErr = err
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if Classify(resp.StatusCode) != OutcomeSuccess {
			c.logger.Warn().Int("status", resp.StatusCode).Msg("Logout was not acknowledged by the server")
		}
	}

	username := c.Username()

	// The local session is cleared even when the server could not be reached
	if err := c.resetSession(); err != nil {
		return err
	}

	c.logger.Info().Str("username", username).Msg("Logged out of ScienceBase")
	if reqErr != nil {
		return fmt.Errorf("logout: %w", reqErr)
	}
	return nil
}

// resetSession forgets the session token and every cookie
func (c *Client) resetSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session{}
	return c.jar.reset()
}

// SessionInfo returns the JOSSO session state as the server sees it
func (c *Client) SessionInfo(ctx context.Context) (*SessionInfo, error) {
	var info SessionInfo
	if err := c.GetJSON(ctx, c.endpoints.sessionInfo(), &info); err != nil {
		return nil, fmt.Errorf("failed to get session info: %w", err)
	}
	return &info, nil
}

// IsLoggedIn asks the server whether the session is active. The answer is
// never cached.
func (c *Client) IsLoggedIn(ctx context.Context) (bool, error) {
	info, err := c.SessionInfo(ctx)
	if err != nil {
		return false, err
	}
	return info.IsLoggedIn, nil
}
