package sciencebase

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-viper/mapstructure/v2"
)

// Item is a ScienceBase item as returned by the catalog. Fields the client
// does not model are kept as-is so an item can round-trip through an update.
type Item map[string]any

// NewItem creates an item under the given parent
func NewItem(parentID, title string) Item {
	item := Item{}
	if parentID != "" {
		item["parentId"] = parentID
	}
	if title != "" {
		item["title"] = title
	}
	return item
}

func (it Item) str(key string) string {
	if it == nil {
		return ""
	}
	switch v := it[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ID returns the server-assigned id, or "" for an unsaved item
func (it Item) ID() string { return it.str("id") }

// ParentID returns the id of the owning parent
func (it Item) ParentID() string { return it.str("parentId") }

// Title returns the item title
func (it Item) Title() string { return it.str("title") }

// HasID reports whether the item has been persisted
func (it Item) HasID() bool { return it.ID() != "" }

// Clone returns a deep copy made through a JSON round trip
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	raw, err := json.Marshal(it)
	if err != nil {
		return maps.Clone(it)
	}
	var out Item
	if err := json.Unmarshal(raw, &out); err != nil {
		return maps.Clone(it)
	}
	return out
}

// Merge copies every field of other onto the item, overwriting what is there.
// It is used to fold server-assigned fields (id, dates, file metadata) back
// into the caller's item.
func (it Item) Merge(other Item) Item {
	if it == nil {
		it = Item{}
	}
	maps.Copy(it, other)
	return it
}

// Files decodes the item's files list
func (it Item) Files() ([]FileDescriptor, error) {
	return decodeFiles(it["files"])
}

// Facets decodes the item's facets
func (it Item) Facets() ([]Facet, error) {
	var facets []Facet
	if raw, ok := it["facets"]; ok && raw != nil {
		if err := decodeInto(raw, &facets); err != nil {
			return nil, fmt.Errorf("%w: facets: %v", ErrParse, err)
		}
	}
	return facets, nil
}

// FileDescriptor describes one file attached to an item or facet
type FileDescriptor struct {
	Name         string `json:"name,omitempty" mapstructure:"name"`
	Title        string `json:"title,omitempty" mapstructure:"title"`
	URL          string `json:"url,omitempty" mapstructure:"url"`
	ContentType  string `json:"contentType,omitempty" mapstructure:"contentType"`
	Size         int64  `json:"size,omitempty" mapstructure:"size"`
	PathOnDisk   string `json:"pathOnDisk,omitempty" mapstructure:"pathOnDisk"`
	DateUploaded string `json:"dateUploaded,omitempty" mapstructure:"dateUploaded"`
	UploadedBy   string `json:"uploadedBy,omitempty" mapstructure:"uploadedBy"`
}

// UploadedAt parses DateUploaded, which the catalog emits in more than one
// layout depending on the endpoint.
func (f FileDescriptor) UploadedAt() (time.Time, error) {
	if f.DateUploaded == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseAny(f.DateUploaded)
}

// Facet is a typed sub-object of an item, optionally carrying files
type Facet struct {
	ClassName string           `json:"className,omitempty" mapstructure:"className"`
	Name      string           `json:"name,omitempty" mapstructure:"name"`
	Files     []FileDescriptor `json:"files,omitempty" mapstructure:"files"`
}

// FileInfo is the url/name/size triple of an attached file
type FileInfo struct {
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// UploadedFile is one entry of the temporary upload response
type UploadedFile struct {
	FileKey      string `json:"fileKey" mapstructure:"fileKey"`
	Name         string `json:"name,omitempty" mapstructure:"name"`
	ContentType  string `json:"contentType,omitempty" mapstructure:"contentType"`
	Size         int64  `json:"size,omitempty" mapstructure:"size"`
	DateUploaded string `json:"dateUploaded,omitempty" mapstructure:"dateUploaded"`
	UploadedBy   string `json:"uploadedBy,omitempty" mapstructure:"uploadedBy"`
}

// Link is a navigation link embedded in a search response
type Link struct {
	Rel string `json:"rel,omitempty"`
	URL string `json:"url"`
}

// SearchPage is one page of search results
type SearchPage struct {
	Total    int    `json:"total"`
	Items    []Item `json:"items"`
	SelfLink *Link  `json:"selflink,omitempty"`
	NextLink *Link  `json:"nextlink,omitempty"`
	PrevLink *Link  `json:"prevlink,omitempty"`
}

// HasNext reports whether a further page exists
func (p *SearchPage) HasNext() bool {
	return p != nil && p.NextLink != nil && p.NextLink.URL != ""
}

// HasPrevious reports whether an earlier page exists
func (p *SearchPage) HasPrevious() bool {
	return p != nil && p.PrevLink != nil && p.PrevLink.URL != ""
}

// IDs returns the ids of the items on the page, in order
func (p *SearchPage) IDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ID())
	}
	return ids
}

// Query is the parameter set of the items search endpoint
type Query struct {
	// Q is free text; an empty Q is sent as "q=" when LQ is set.
	Q string
	// LQ is a Lucene query, e.g. title:"foo"
	LQ string
	// Filters are sent as repeated filter= parameters,
	// e.g. "parentIdExcludingLinks=<id>".
	Filters []string
	// Max caps the page size
	Max int
	// Fields restricts the returned fields
	Fields []string
	// Extra carries any other parameter verbatim
	Extra url.Values
}

// Values encodes the query
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Q != "" || q.LQ != "" {
		v.Set("q", q.Q)
	}
	if q.LQ != "" {
		v.Set("lq", q.LQ)
	}
	for _, f := range q.Filters {
		v.Add("filter", f)
	}
	if q.Max > 0 {
		v.Set("max", strconv.Itoa(q.Max))
	}
	if len(q.Fields) > 0 {
		v.Set("fields", strings.Join(q.Fields, ","))
	}
	for k, vals := range q.Extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	return v
}

// SessionInfo is the JOSSO session probe response
type SessionInfo struct {
	IsLoggedIn     bool   `json:"isLoggedIn"`
	Username       string `json:"username,omitempty"`
	JossoSessionID string `json:"jossoSessionId,omitempty"`
}

func decodeFiles(raw any) ([]FileDescriptor, error) {
	var files []FileDescriptor
	if raw == nil {
		return files, nil
	}
	if err := decodeInto(raw, &files); err != nil {
		return nil, fmt.Errorf("%w: files: %v", ErrParse, err)
	}
	return files, nil
}

func decodeInto(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
