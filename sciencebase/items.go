package sciencebase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func requireID(what, id string) error {
	if err := validation.Validate(id, validation.Required); err != nil {
		return fmt.Errorf("%w: %s id %v", ErrPrecondition, what, err)
	}
	return nil
}

func requireItem(item Item) error {
	if item == nil {
		return fmt.Errorf("%w: item is nil", ErrPrecondition)
	}
	return nil
}

// requireNoStagedFiles rejects a new item whose files already point at
// staged uploads. Only UploadAndUpsertItem may create an item with files.
func requireNoStagedFiles(item Item) error {
	if item.HasID() {
		return nil
	}

	staged := func(files any) bool {
		list, _ := files.([]any)
		for _, f := range list {
			if entry, ok := f.(map[string]any); ok {
				if p, _ := entry["pathOnDisk"].(string); p != "" {
					return true
				}
			}
		}
		return false
	}

	if staged(item["files"]) {
		return fmt.Errorf("%w: item without an id has files with pathOnDisk set", ErrPrecondition)
	}
	facets, _ := item["facets"].([]any)
	for _, f := range facets {
		if facet, ok := f.(map[string]any); ok && staged(facet["files"]) {
			return fmt.Errorf("%w: item without an id has facet files with pathOnDisk set", ErrPrecondition)
		}
	}
	return nil
}

func (c *Client) itemURL(id string) string {
	return c.endpoints.item() + url.PathEscape(id)
}

// GetItem retrieves an item by id. fields, when given, limits the returned
// fields (e.g. "title", "ancestors").
func (c *Client) GetItem(ctx context.Context, id string, fields ...string) (Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}

	var params url.Values
	if len(fields) > 0 {
		params = Query{Fields: fields}.Values()
	}

	var item Item
	if err := c.doJSON(ctx, http.MethodGet, c.itemURL(id), params, nil, &item); err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return item, nil
}

// CreateItem creates a new item. The server-assigned fields are merged into
// item, which is also returned. Files cannot be attached here; use
// UploadAndUpsertItem to create an item together with its files.
func (c *Client) CreateItem(ctx context.Context, item Item) (Item, error) {
	if err := requireItem(item); err != nil {
		return nil, err
	}
	if err := requireNoStagedFiles(item); err != nil {
		return nil, err
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var created Item
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.item(), nil, item, &created); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	c.logger.Debug().Str("id", created.ID()).Str("parent", created.ParentID()).Msg("Created item")
	return item.Merge(created), nil
}

// UpdateItem saves an existing item. The item must carry an id.
func (c *Client) UpdateItem(ctx context.Context, item Item) (Item, error) {
	if err := requireItem(item); err != nil {
		return nil, err
	}
	if err := requireID("item", item.ID()); err != nil {
		return nil, err
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var updated Item
	if err := c.doJSON(ctx, http.MethodPut, c.itemURL(item.ID()), nil, item, &updated); err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", item.ID(), err)
	}
	return item.Merge(updated), nil
}

// UpdateItems saves several items in one request
func (c *Client) UpdateItems(ctx context.Context, items []Item) ([]Item, error) {
	for i, item := range items {
		if err := requireItem(item); err != nil {
			return nil, err
		}
		if err := requireID(fmt.Sprintf("items[%d]", i), item.ID()); err != nil {
			return nil, err
		}
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var updated []Item
	if err := c.doJSON(ctx, http.MethodPut, c.endpoints.items(), nil, items, &updated); err != nil {
		return nil, fmt.Errorf("failed to update %d items: %w", len(items), err)
	}
	return updated, nil
}

// DeleteItem deletes an item. The item must carry an id.
func (c *Client) DeleteItem(ctx context.Context, item Item) error {
	if err := requireItem(item); err != nil {
		return err
	}
	if err := requireID("item", item.ID()); err != nil {
		return err
	}
	if err := c.requireSession(); err != nil {
		return err
	}

	if err := c.doJSON(ctx, http.MethodDelete, c.itemURL(item.ID()), nil, item, nil); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", item.ID(), err)
	}

	c.logger.Debug().Str("id", item.ID()).Msg("Deleted item")
	return nil
}

// DeleteItems deletes items server-side in batches of at most the
// configured max item count, one request per batch. The first failing batch
// stops the run and is reported as a *ChunkError; batches sent before it
// stay deleted.
func (c *Client) DeleteItems(ctx context.Context, ids []string) error {
	for i, id := range ids {
		if err := requireID(fmt.Sprintf("ids[%d]", i), id); err != nil {
			return err
		}
	}
	if err := c.requireSession(); err != nil {
		return err
	}

	limit := c.maxItemCount
	for index, start := 0, 0; start < len(ids); index, start = index+1, start+limit {
		end := min(start+limit, len(ids))

		batch := make([]map[string]string, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, map[string]string{"id": id})
		}

		if err := c.doJSON(ctx, http.MethodDelete, c.endpoints.items(), nil, batch, nil); err != nil {
			return &ChunkError{Index: index, Start: start, End: end, Committed: start, Err: err}
		}

		c.logger.Debug().
			Int("chunk", index).
			Int("count", end-start).
			Int("total", len(ids)).
			Msg("Deleted batch of items")
	}

	return nil
}

// UndeleteItem restores a deleted item
func (c *Client) UndeleteItem(ctx context.Context, id string) (Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var item Item
	params := url.Values{"itemId": {id}}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.undelete(), params, nil, &item); err != nil {
		return nil, fmt.Errorf("failed to undelete item %s: %w", id, err)
	}
	return item, nil
}

// MoveItem moves an item under a new parent
func (c *Client) MoveItem(ctx context.Context, id, parentID string) (Item, error) {
	return c.linkOp(ctx, "move", c.endpoints.move(), id, parentID)
}

// MoveItems moves items one at a time and returns how many were moved.
// On error the count covers the items moved before it.
func (c *Client) MoveItems(ctx context.Context, ids []string, parentID string) (int, error) {
	count := 0
	for _, id := range ids {
		c.logger.Info().Str("id", id).Str("parent", parentID).Msg("Moving item")
		if _, err := c.MoveItem(ctx, id, parentID); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// CreateShortcut links an item under an additional parent without moving it
func (c *Client) CreateShortcut(ctx context.Context, id, parentID string) (Item, error) {
	return c.linkOp(ctx, "link", c.endpoints.addLink(), id, parentID)
}

// RemoveShortcut removes a link created by CreateShortcut
func (c *Client) RemoveShortcut(ctx context.Context, id, parentID string) (Item, error) {
	return c.linkOp(ctx, "unlink", c.endpoints.unlink(), id, parentID)
}

func (c *Client) linkOp(ctx context.Context, op, endpoint, id, parentID string) (Item, error) {
	if err := requireID("item", id); err != nil {
		return nil, err
	}
	if err := requireID("parent", parentID); err != nil {
		return nil, err
	}
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var item Item
	params := url.Values{"itemId": {id}, "destId": {parentID}}
	if err := c.doJSON(ctx, http.MethodPost, endpoint, params, nil, &item); err != nil {
		return nil, fmt.Errorf("failed to %s item %s to %s: %w", op, id, parentID, err)
	}
	return item, nil
}

// AddExtent adds a GeoJSON Feature, or every feature of a
// FeatureCollection, to the item's footprint. Each feature is saved with its
// own update, so a failure part way leaves the earlier features applied.
// The name, shortName, description and promotedForReuse properties of a
// feature are stored in the shared extents table.
func (c *Client) AddExtent(ctx context.Context, itemID string, geojson map[string]any) (Item, error) {
	if geojson == nil {
		return nil, fmt.Errorf("%w: geojson is nil", ErrPrecondition)
	}

	features := []any{geojson}
	if geojson["type"] == "FeatureCollection" {
		fs, ok := geojson["features"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: FeatureCollection has no features", ErrPrecondition)
		}
		features = fs
	}

	item, err := c.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	existing, _ := item["extents"].([]any)
	extents := append([]any(nil), existing...)

	for i, feature := range features {
		// Saving a single extent makes the server register it and return its id
		item["extents"] = []any{feature}
		if item, err = c.UpdateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to add feature %d of %d: %w", i+1, len(features), err)
		}
		added, _ := item["extents"].([]any)
		extents = append(extents, added...)
	}

	if len(extents) > 1 {
		item["extents"] = extents
		if item, err = c.UpdateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to restore extents: %w", err)
		}
	}

	return item, nil
}
