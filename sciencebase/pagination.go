package sciencebase

import (
	"context"
	"fmt"
	"net/url"
	"slices"
)

// StripSessionToken removes every "josso" parameter from a link handed
// back by the server, so the request carries only this client's session.
func StripSessionToken(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid page link %q: %w", link, err)
	}

	q := u.Query()
	q.Del(sessionParam)
	for k, vals := range q {
		vals = slices.DeleteFunc(vals, func(v string) bool { return v == sessionParam })
		if len(vals) == 0 {
			q.Del(k)
			continue
		}
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NextPage fetches the page after page. It returns nil, nil when there is
// none.
func (c *Client) NextPage(ctx context.Context, page *SearchPage) (*SearchPage, error) {
	if !page.HasNext() {
		return nil, nil
	}
	return c.fetchPage(ctx, page.NextLink.URL)
}

// PreviousPage fetches the page before page. It returns nil, nil when there
// is none.
func (c *Client) PreviousPage(ctx context.Context, page *SearchPage) (*SearchPage, error) {
	if !page.HasPrevious() {
		return nil, nil
	}
	return c.fetchPage(ctx, page.PrevLink.URL)
}

func (c *Client) fetchPage(ctx context.Context, link string) (*SearchPage, error) {
	clean, err := StripSessionToken(link)
	if err != nil {
		return nil, err
	}
	var next SearchPage
	if err := c.GetJSON(ctx, clean, &next); err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return &next, nil
}

// CursorState is the state of a Cursor
type CursorState int

const (
	// HasPage means Page returns a page not yet consumed
	HasPage CursorState = iota
	// Exhausted means the last page was reached or an error occurred
	Exhausted
)

// String returns the string representation of a CursorState
func (s CursorState) String() string {
	if s == HasPage {
		return "has-page"
	}
	return "exhausted"
}

// Cursor walks a search forward one page at a time:
//
//	cur := client.NewCursor(first)
//	for cur.Next(ctx) {
//		for _, item := range cur.Page().Items { ... }
//	}
//	if err := cur.Err(); err != nil { ... }
//
// A Cursor refuses to follow a link it has already followed, so a server
// that hands back an earlier page ends the walk with ErrPaginationLoop
// instead of looping.
type Cursor struct {
	client  *Client
	page    *SearchPage
	state   CursorState
	started bool
	err     error
	seen    map[string]struct{}
}

// NewCursor starts a cursor at first. A nil first page is already exhausted.
func (c *Client) NewCursor(first *SearchPage) *Cursor {
	cur := &Cursor{
		client: c,
		page:   first,
		state:  HasPage,
		seen:   make(map[string]struct{}),
	}
	if first == nil {
		cur.state = Exhausted
		return cur
	}
	if first.SelfLink != nil && first.SelfLink.URL != "" {
		if self, err := StripSessionToken(first.SelfLink.URL); err == nil {
			cur.seen[self] = struct{}{}
		}
	}
	return cur
}

// Next advances to the following page. The first call yields the page the
// cursor was created with. It returns false once the cursor is exhausted.
func (cur *Cursor) Next(ctx context.Context) bool {
	if cur.state == Exhausted {
		return false
	}
	if !cur.started {
		cur.started = true
		return true
	}
	if !cur.page.HasNext() {
		cur.exhaust(nil)
		return false
	}

	link, err := StripSessionToken(cur.page.NextLink.URL)
	if err != nil {
		cur.exhaust(err)
		return false
	}
	if _, ok := cur.seen[link]; ok {
		cur.exhaust(fmt.Errorf("%w: %s", ErrPaginationLoop, link))
		return false
	}
	cur.seen[link] = struct{}{}

	next, err := cur.client.fetchPage(ctx, link)
	if err != nil {
		cur.exhaust(err)
		return false
	}
	cur.page = next
	return true
}

func (cur *Cursor) exhaust(err error) {
	cur.state = Exhausted
	cur.page = nil
	cur.err = err
}

// Page returns the current page, or nil once exhausted
func (cur *Cursor) Page() *SearchPage {
	return cur.page
}

// Err returns the error that ended the walk, if any
func (cur *Cursor) Err() error {
	return cur.err
}

// State returns HasPage or Exhausted
func (cur *Cursor) State() CursorState {
	return cur.state
}
