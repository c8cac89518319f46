package sciencebase

import (
	"context"
)

// API defines the interface for ScienceBase operations
type API interface {
	Login(ctx context.Context, username, password string) error
	LoginInteractive(ctx context.Context, username string) error
	Logout(ctx context.Context) error
	IsLoggedIn(ctx context.Context) (bool, error)
	SessionInfo(ctx context.Context) (*SessionInfo, error)

	ItemReader
	ItemWriter
	Searcher
	Uploader
}

// ItemReader retrieves items
type ItemReader interface {
	GetItem(ctx context.Context, id string, fields ...string) (Item, error)
}

// ItemWriter changes items
type ItemWriter interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, item Item) (Item, error)
	UpdateItems(ctx context.Context, items []Item) ([]Item, error)
	DeleteItem(ctx context.Context, item Item) error
	DeleteItems(ctx context.Context, ids []string) error
	UndeleteItem(ctx context.Context, id string) (Item, error)
	MoveItem(ctx context.Context, id, parentID string) (Item, error)
	MoveItems(ctx context.Context, ids []string, parentID string) (int, error)
	CreateShortcut(ctx context.Context, id, parentID string) (Item, error)
	RemoveShortcut(ctx context.Context, id, parentID string) (Item, error)
	AddExtent(ctx context.Context, itemID string, geojson map[string]any) (Item, error)
}

// Searcher runs searches and walks their pages
type Searcher interface {
	FindItems(ctx context.Context, q Query) (*SearchPage, error)
	NextPage(ctx context.Context, page *SearchPage) (*SearchPage, error)
	PreviousPage(ctx context.Context, page *SearchPage) (*SearchPage, error)
	GetChildIDs(ctx context.Context, parentID string) ([]string, error)
	GetDescendantIDs(ctx context.Context, ancestorID string) ([]string, error)
	GetShortcutIDs(ctx context.Context, itemID string) ([]string, error)
}

// Uploader moves files in and out of the catalog
type Uploader interface {
	UploadAndUpsertItem(ctx context.Context, item Item, sources []UploadSource, opts UpsertOptions) (Item, error)
	UploadFile(ctx context.Context, path, contentType string) ([]UploadedFile, error)
	ReplaceFile(ctx context.Context, path string, item Item) (Item, error)
	GetItemFilesZip(ctx context.Context, item Item, destination string) (string, error)
	DownloadFile(ctx context.Context, rawURL, name, destination string) (string, error)
	GetItemFiles(ctx context.Context, item Item, destination string) ([]string, error)
}

var _ API = (*Client)(nil)
