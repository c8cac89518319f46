package sciencebase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// FindItems runs one search against the catalog and returns the first page.
// Use NextPage or a Cursor to walk the rest.
func (c *Client) FindItems(ctx context.Context, q Query) (*SearchPage, error) {
	var page SearchPage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoints.items(), q.Values(), nil, &page); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return &page, nil
}

// FindItemsByAnyText searches free text
func (c *Client) FindItemsByAnyText(ctx context.Context, text string) (*SearchPage, error) {
	return c.FindItems(ctx, Query{Q: text})
}

// FindItemsByTitle searches titles
func (c *Client) FindItemsByTitle(ctx context.Context, text string) (*SearchPage, error) {
	return c.FindItems(ctx, Query{LQ: fmt.Sprintf("title:%q", text)})
}

// GetChildIDs returns the ids of every direct child of parentID, shortcuts
// excluded.
func (c *Client) GetChildIDs(ctx context.Context, parentID string) ([]string, error) {
	if err := requireID("parent", parentID); err != nil {
		return nil, err
	}
	return c.collectIDs(ctx, Query{
		Filters: []string{"parentIdExcludingLinks=" + parentID},
		Max:     c.maxItemCount,
	})
}

// GetDescendantIDs returns the ids of every item below ancestorID, shortcuts
// excluded.
func (c *Client) GetDescendantIDs(ctx context.Context, ancestorID string) ([]string, error) {
	if err := requireID("ancestor", ancestorID); err != nil {
		return nil, err
	}
	return c.collectIDs(ctx, Query{
		Filters: []string{"ancestorsExcludingLinks=" + ancestorID},
		Max:     c.maxItemCount,
	})
}

// GetShortcutIDs returns the ids of the items linked under itemID
func (c *Client) GetShortcutIDs(ctx context.Context, itemID string) ([]string, error) {
	if err := requireID("item", itemID); err != nil {
		return nil, err
	}
	return c.collectIDs(ctx, Query{Filters: []string{"linkParentId=" + itemID}})
}

// GetMyItemsID returns the id of the logged in user's "My Items" folder
func (c *Client) GetMyItemsID(ctx context.Context) (string, error) {
	username := c.Username()
	if username == "" {
		return "", ErrNotLoggedIn
	}

	q := Query{LQ: fmt.Sprintf("title.untouched:%q", username)}
	if c.endpoints.UsersID != "" {
		q.Extra = url.Values{"parentId": {c.endpoints.UsersID}}
	}

	page, err := c.FindItems(ctx, q)
	if err != nil {
		return "", err
	}
	for _, item := range page.Items {
		if item.Title() == username {
			return item.ID(), nil
		}
	}
	return "", fmt.Errorf("%w: no My Items folder for %s", ErrNotFound, username)
}

func (c *Client) collectIDs(ctx context.Context, q Query) ([]string, error) {
	first, err := c.FindItems(ctx, q)
	if err != nil {
		return nil, err
	}

	var ids []string
	cur := c.NewCursor(first)
	for cur.Next(ctx) {
		ids = append(ids, cur.Page().IDs()...)
	}
	if err := cur.Err(); err != nil {
		return ids, err
	}
	return ids, nil
}
