package sciencebase

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// itemStore is a minimal in-memory catalog
type itemStore struct {
	mu    sync.Mutex
	items map[string]Item
	next  int
}

func newItemStore(t *testing.T, mux *http.ServeMux) *itemStore {
	s := &itemStore{items: map[string]Item{}}

	mux.HandleFunc("GET /catalog/item/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		item, ok := s.items[r.PathValue("id")]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(t, w, item)
	})
	mux.HandleFunc("POST /catalog/item/", func(w http.ResponseWriter, r *http.Request) {
		var item Item
		readJSON(t, r, &item)
		s.mu.Lock()
		s.next++
		item["id"] = fmt.Sprintf("item-%d", s.next)
		item["dateCreated"] = "2024-05-01T10:00:00Z"
		s.items[item.ID()] = item
		s.mu.Unlock()
		writeJSON(t, w, item)
	})
	mux.HandleFunc("PUT /catalog/item/{id}", func(w http.ResponseWriter, r *http.Request) {
		var item Item
		readJSON(t, r, &item)
		assert.Equal(t, r.PathValue("id"), item.ID())
		s.mu.Lock()
		// The server owns extents ids
		if extents, ok := item["extents"].([]any); ok && len(extents) == 1 {
			item["extents"] = []any{map[string]any{"id": s.next}}
			s.next++
		}
		s.items[item.ID()] = item
		s.mu.Unlock()
		writeJSON(t, w, item)
	})
	return s
}

func TestUpdateThenGet(t *testing.T) {
	server, mux := newTestServer(t)
	newItemStore(t, mux)
	client := loggedInClient(t, server)
	ctx := context.Background()

	created, err := client.CreateItem(ctx, NewItem("parent-1", "Original"))
	require.NoError(t, err)
	require.True(t, created.HasID())
	id := created.ID()

	created["title"] = "Updated"
	created["body"] = "new body"
	_, err = client.UpdateItem(ctx, created)
	require.NoError(t, err)

	got, err := client.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID())
	assert.Equal(t, "Updated", got.Title())
	assert.Equal(t, "new body", got["body"])
	assert.Equal(t, "parent-1", got.ParentID())
}

func TestCreateItemMergesServerFields(t *testing.T) {
	server, mux := newTestServer(t)
	newItemStore(t, mux)
	client := loggedInClient(t, server)

	item := NewItem("parent-1", "Mine")
	returned, err := client.CreateItem(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "item-1", item.ID())
	assert.Equal(t, "2024-05-01T10:00:00Z", item["dateCreated"])
	assert.Equal(t, item, returned)
}

func TestPreconditionsFailBeforeRequest(t *testing.T) {
	server, mux := newTestServer(t)
	var hits atomic.Int32
	mux.HandleFunc("/catalog/", counting(&hits, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	client := loggedInClient(t, server)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"update without id", func() error { _, err := client.UpdateItem(ctx, Item{"title": "x"}); return err }},
		{"update nil item", func() error { _, err := client.UpdateItem(ctx, nil); return err }},
		{"delete without id", func() error { return client.DeleteItem(ctx, Item{}) }},
		{"get empty id", func() error { _, err := client.GetItem(ctx, ""); return err }},
		{"delete items with blank id", func() error { return client.DeleteItems(ctx, []string{"a", ""}) }},
		{"update items without id", func() error { _, err := client.UpdateItems(ctx, []Item{{"id": "a"}, {}}); return err }},
		{"move without parent", func() error { _, err := client.MoveItem(ctx, "a", ""); return err }},
		{"shortcut without id", func() error { _, err := client.CreateShortcut(ctx, "", "p"); return err }},
		{"create with staged files", func() error {
			_, err := client.CreateItem(ctx, Item{
				"parentId": "P",
				"files":    []any{map[string]any{"name": "a.csv", "pathOnDisk": "tmp/abc"}},
			})
			return err
		}},
		{"create with staged facet files", func() error {
			_, err := client.CreateItem(ctx, Item{
				"parentId": "P",
				"facets": []any{map[string]any{
					"className": "gov.sciencebase.catalog.item.facet.ShapefileFacet",
					"files":     []any{map[string]any{"name": "a.shp", "pathOnDisk": "tmp/def"}},
				}},
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPrecondition)
		})
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestDeleteItemsChunking(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		limit  int
		chunks []int
	}{
		{"below limit", 10, 1000, []int{10}},
		{"exactly the limit", 1000, 1000, []int{1000}},
		{"one over", 1001, 1000, []int{1000, 1}},
		{"2500 ids", 2500, 1000, []int{1000, 1000, 500}},
		{"small limit", 7, 3, []int{3, 3, 1}},
		{"nothing to delete", 0, 1000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, mux := newTestServer(t)
			var (
				mu     sync.Mutex
				chunks []int
				seen   = map[string]bool{}
			)
			mux.HandleFunc("DELETE /catalog/items/", func(w http.ResponseWriter, r *http.Request) {
				var batch []map[string]string
				readJSON(t, r, &batch)
				mu.Lock()
				chunks = append(chunks, len(batch))
				for _, entry := range batch {
					assert.False(t, seen[entry["id"]], "id sent twice")
					seen[entry["id"]] = true
				}
				mu.Unlock()
				writeJSON(t, w, map[string]any{})
			})

			client := loggedInClient(t, server, WithMaxItemCount(tt.limit))
			ids := make([]string, tt.count)
			for i := range ids {
				ids[i] = fmt.Sprintf("id-%d", i)
			}

			require.NoError(t, client.DeleteItems(context.Background(), ids))
			assert.Equal(t, tt.chunks, chunks)
			assert.Len(t, seen, tt.count)
		})
	}
}

func TestDeleteItemsChunkFailure(t *testing.T) {
	server, mux := newTestServer(t)
	var calls atomic.Int32
	mux.HandleFunc("DELETE /catalog/items/", counting(&calls, func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() == 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, map[string]any{})
	}))

	client := loggedInClient(t, server, WithMaxItemCount(2))
	err := client.DeleteItems(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.Error(t, err)

	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, 1, chunkErr.Index)
	assert.Equal(t, 2, chunkErr.Start)
	assert.Equal(t, 4, chunkErr.End)
	assert.Equal(t, 2, chunkErr.Committed)
	assert.ErrorIs(t, err, ErrHTTP)
	assert.Contains(t, err.Error(), "may already be deleted")

	// The remaining chunk was not sent
	assert.Equal(t, int32(2), calls.Load())
}

func TestMoveItems(t *testing.T) {
	server, mux := newTestServer(t)
	var moved []string
	mux.HandleFunc("POST /catalog/items/move/", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("itemId")
		assert.Equal(t, "dest", r.URL.Query().Get("destId"))
		if id == "missing" {
			http.NotFound(w, r)
			return
		}
		moved = append(moved, id)
		writeJSON(t, w, map[string]any{"id": id, "parentId": "dest"})
	})
	client := loggedInClient(t, server)

	t.Run("all moved", func(t *testing.T) {
		moved = nil
		count, err := client.MoveItems(context.Background(), []string{"a", "b", "c"}, "dest")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, []string{"a", "b", "c"}, moved)
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		moved = nil
		count, err := client.MoveItems(context.Background(), []string{"a", "b", "missing", "d"}, "dest")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 2, count)
		assert.Equal(t, []string{"a", "b"}, moved)
	})
}

func TestShortcutsAndUndelete(t *testing.T) {
	server, mux := newTestServer(t)
	for _, path := range []string{"addLink", "unlink"} {
		mux.HandleFunc("POST /catalog/items/"+path+"/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, map[string]any{
				"id":   r.URL.Query().Get("itemId"),
				"op":   path,
				"dest": r.URL.Query().Get("destId"),
			})
		})
	}
	mux.HandleFunc("POST /catalog/item/undelete/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": r.URL.Query().Get("itemId")})
	})
	client := loggedInClient(t, server)
	ctx := context.Background()

	item, err := client.CreateShortcut(ctx, "a", "p")
	require.NoError(t, err)
	assert.Equal(t, "addLink", item["op"])
	assert.Equal(t, "p", item["dest"])

	item, err = client.RemoveShortcut(ctx, "a", "p")
	require.NoError(t, err)
	assert.Equal(t, "unlink", item["op"])

	item, err = client.UndeleteItem(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, "gone", item.ID())
}

func TestAddExtent(t *testing.T) {
	server, mux := newTestServer(t)
	store := newItemStore(t, mux)
	store.items["item-9"] = Item{"id": "item-9", "extents": []any{map[string]any{"id": 100}}}
	client := loggedInClient(t, server)

	collection := map[string]any{
		"type": "FeatureCollection",
		"features": []any{
			map[string]any{"type": "Feature", "properties": map[string]any{"name": "A"}},
			map[string]any{"type": "Feature", "properties": map[string]any{"name": "B"}},
		},
	}

	item, err := client.AddExtent(context.Background(), "item-9", collection)
	require.NoError(t, err)

	extents, ok := item["extents"].([]any)
	require.True(t, ok)
	assert.Len(t, extents, 3)
}

func TestAddExtentRejectsEmptyCollection(t *testing.T) {
	server, _ := newTestServer(t)
	client := loggedInClient(t, server)

	_, err := client.AddExtent(context.Background(), "x", map[string]any{"type": "FeatureCollection"})
	assert.ErrorIs(t, err, ErrPrecondition)
}
