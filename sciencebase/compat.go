package sciencebase

import (
	"context"
)

// Legacy exposes the camelCase method names of the older ScienceBase
// clients. Every method delegates to Client and behaves identically.
type Legacy struct {
	c *Client
}

// Legacy returns the alias layer for c
func (c *Client) Legacy() Legacy {
	return Legacy{c: c}
}

// IsLoggedIn calls Client.IsLoggedIn
func (l Legacy) IsLoggedIn(ctx context.Context) (bool, error) { return l.c.IsLoggedIn(ctx) }

// GetSessionInfo is SessionInfo
func (l Legacy) GetSessionInfo(ctx context.Context) (*SessionInfo, error) {
	return l.c.SessionInfo(ctx)
}

// GetSbItem is GetItem
func (l Legacy) GetSbItem(ctx context.Context, id string) (Item, error) { return l.c.GetItem(ctx, id) }

// CreateSbItem is CreateItem
func (l Legacy) CreateSbItem(ctx context.Context, item Item) (Item, error) {
	return l.c.CreateItem(ctx, item)
}

// UpdateSbItem is UpdateItem
func (l Legacy) UpdateSbItem(ctx context.Context, item Item) (Item, error) {
	return l.c.UpdateItem(ctx, item)
}

// DeleteSbItem is DeleteItem
func (l Legacy) DeleteSbItem(ctx context.Context, item Item) error { return l.c.DeleteItem(ctx, item) }

// UndeleteSbItem is UndeleteItem
func (l Legacy) UndeleteSbItem(ctx context.Context, id string) (Item, error) {
	return l.c.UndeleteItem(ctx, id)
}

// DeleteSbItems is DeleteItems
func (l Legacy) DeleteSbItems(ctx context.Context, ids []string) error {
	return l.c.DeleteItems(ctx, ids)
}

// MoveSbItem is MoveItem
func (l Legacy) MoveSbItem(ctx context.Context, id, parentID string) (Item, error) {
	return l.c.MoveItem(ctx, id, parentID)
}

// MoveSbItems is MoveItems
func (l Legacy) MoveSbItems(ctx context.Context, ids []string, parentID string) (int, error) {
	return l.c.MoveItems(ctx, ids, parentID)
}

// UploadFileToItem calls Client.UploadFileToItem
func (l Legacy) UploadFileToItem(ctx context.Context, item Item, path string) (Item, error) {
	return l.c.UploadFileToItem(ctx, item, path)
}

// UploadFileAndCreateItem calls Client.UploadFileAndCreateItem
func (l Legacy) UploadFileAndCreateItem(ctx context.Context, parentID, path string) (Item, error) {
	return l.c.UploadFileAndCreateItem(ctx, parentID, path)
}

// UploadFilesAndCreateItem calls Client.UploadFilesAndCreateItem
func (l Legacy) UploadFilesAndCreateItem(ctx context.Context, parentID string, paths []string) (Item, error) {
	return l.c.UploadFilesAndCreateItem(ctx, parentID, paths)
}

// UploadFilesAndUpdateItem calls Client.UploadFilesAndUpdateItem
func (l Legacy) UploadFilesAndUpdateItem(ctx context.Context, item Item, paths []string) (Item, error) {
	return l.c.UploadFilesAndUpdateItem(ctx, item, paths)
}

// UploadFilesAndUpsertItem calls Client.UploadFilesAndUpsertItem
func (l Legacy) UploadFilesAndUpsertItem(ctx context.Context, item Item, paths []string) (Item, error) {
	return l.c.UploadFilesAndUpsertItem(ctx, item, paths)
}

// UploadFile calls Client.UploadFile
func (l Legacy) UploadFile(ctx context.Context, path, contentType string) ([]UploadedFile, error) {
	return l.c.UploadFile(ctx, path, contentType)
}

// ReplaceFile calls Client.ReplaceFile
func (l Legacy) ReplaceFile(ctx context.Context, path string, item Item) (Item, error) {
	return l.c.ReplaceFile(ctx, path, item)
}

// GetItemFilesZip calls Client.GetItemFilesZip
func (l Legacy) GetItemFilesZip(ctx context.Context, item Item, destination string) (string, error) {
	return l.c.GetItemFilesZip(ctx, item, destination)
}

// GetItemFileInfo is the package function GetItemFileInfo
func (l Legacy) GetItemFileInfo(item Item) ([]FileInfo, error) { return GetItemFileInfo(item) }

// DownloadFile calls Client.DownloadFile
func (l Legacy) DownloadFile(ctx context.Context, rawURL, name, destination string) (string, error) {
	return l.c.DownloadFile(ctx, rawURL, name, destination)
}

// GetItemFiles calls Client.GetItemFiles
func (l Legacy) GetItemFiles(ctx context.Context, item Item, destination string) ([]string, error) {
	return l.c.GetItemFiles(ctx, item, destination)
}

// GetMyItemsId is GetMyItemsID
func (l Legacy) GetMyItemsId(ctx context.Context) (string, error) { return l.c.GetMyItemsID(ctx) }

// GetChildIds is GetChildIDs
func (l Legacy) GetChildIds(ctx context.Context, parentID string) ([]string, error) {
	return l.c.GetChildIDs(ctx, parentID)
}

// GetNetCDFOPeNDAPInfoFacet is NetCDFOPeNDAPFacet
func (l Legacy) GetNetCDFOPeNDAPInfoFacet(ctx context.Context, opendapURL string) (map[string]any, error) {
	return l.c.NetCDFOPeNDAPFacet(ctx, opendapURL)
}

// FindSbItems is FindItems
func (l Legacy) FindSbItems(ctx context.Context, q Query) (*SearchPage, error) {
	return l.c.FindItems(ctx, q)
}

// FindSbItemsByAnytext is FindItemsByAnyText
func (l Legacy) FindSbItemsByAnytext(ctx context.Context, text string) (*SearchPage, error) {
	return l.c.FindItemsByAnyText(ctx, text)
}

// FindSbItemsByTitle is FindItemsByTitle
func (l Legacy) FindSbItemsByTitle(ctx context.Context, text string) (*SearchPage, error) {
	return l.c.FindItemsByTitle(ctx, text)
}

// GetJson is GetJSON
func (l Legacy) GetJson(ctx context.Context, rawURL string, out any) error {
	return l.c.GetJSON(ctx, rawURL, out)
}
