package sciencebase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

const netCDFFacetClass = "gov.sciencebase.catalog.item.facet.NetCDFOPeNDAPFacet"

// DirectoryContact is a person record from the ScienceBase directory
type DirectoryContact struct {
	ID                      string          `mapstructure:"id"`
	DisplayName             string          `mapstructure:"displayName"`
	OrganizationDisplayText string          `mapstructure:"organizationDisplayText"`
	Email                   string          `mapstructure:"email"`
	FirstName               string          `mapstructure:"firstName"`
	LastName                string          `mapstructure:"lastName"`
	MiddleName              string          `mapstructure:"middleName"`
	PrimaryLocation         *DirectoryPlace `mapstructure:"primaryLocation"`
}

// DirectoryPlace holds the addresses of a directory contact
type DirectoryPlace struct {
	StreetAddress map[string]any `mapstructure:"streetAddress"`
	MailAddress   map[string]any `mapstructure:"mailAddress"`
}

// GetDirectoryContact retrieves a person from the directory by party id
func (c *Client) GetDirectoryContact(ctx context.Context, partyID string) (*DirectoryContact, error) {
	if err := requireID("party", partyID); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := c.GetJSON(ctx, c.endpoints.person()+url.PathEscape(partyID), &raw); err != nil {
		return nil, fmt.Errorf("failed to get directory contact %s: %w", partyID, err)
	}

	var contact DirectoryContact
	if err := decodeInto(raw, &contact); err != nil {
		return nil, fmt.Errorf("%w: directory contact: %v", ErrParse, err)
	}
	return &contact, nil
}

// ItemContact converts the directory record into the contact shape stored
// on items. contactType is e.g. "Point of Contact".
func (d *DirectoryContact) ItemContact(contactType string) map[string]any {
	contact := map[string]any{
		"name":       d.DisplayName,
		"oldPartyId": d.ID,
		"type":       contactType,
	}
	if d.OrganizationDisplayText != "" {
		contact["organization"] = map[string]any{"displayText": d.OrganizationDisplayText}
	}
	for key, value := range map[string]string{
		"email":      d.Email,
		"firstName":  d.FirstName,
		"lastName":   d.LastName,
		"middleName": d.MiddleName,
	} {
		if value != "" {
			contact[key] = value
		}
	}
	if loc := d.PrimaryLocation; loc != nil && (loc.StreetAddress != nil || loc.MailAddress != nil) {
		primary := map[string]any{}
		if loc.StreetAddress != nil {
			primary["streetAddress"] = loc.StreetAddress
		}
		if loc.MailAddress != nil {
			primary["mailAddress"] = loc.MailAddress
		}
		contact["primaryLocation"] = primary
	}
	return contact
}

type netCDFScrape struct {
	Title       string `mapstructure:"title"`
	Summary     string `mapstructure:"summary"`
	BoundingBox struct {
		MinX float64 `mapstructure:"minX"`
		MaxX float64 `mapstructure:"maxX"`
		MinY float64 `mapstructure:"minY"`
		MaxY float64 `mapstructure:"maxY"`
	} `mapstructure:"boundingBox"`
	Variables any `mapstructure:"variables"`
}

// NetCDFOPeNDAPFacet asks the catalog to scrape an OPeNDAP endpoint and
// returns a facet ready to be appended to an item's facets.
func (c *Client) NetCDFOPeNDAPFacet(ctx context.Context, opendapURL string) (map[string]any, error) {
	if err := validateURL(opendapURL); err != nil {
		return nil, err
	}

	var raw map[string]any
	params := url.Values{"url": {opendapURL}}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoints.items()+"scrapeNetCDFOPeNDAP", params, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", opendapURL, err)
	}

	var data netCDFScrape
	if err := decodeInto(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: NetCDF scrape: %v", ErrParse, err)
	}

	return map[string]any{
		"className": netCDFFacetClass,
		"title":     data.Title,
		"summary":   data.Summary,
		"boundingBox": map[string]any{
			"minX": data.BoundingBox.MinX,
			"maxX": data.BoundingBox.MaxX,
			"minY": data.BoundingBox.MinY,
			"maxY": data.BoundingBox.MaxY,
		},
		"variables": data.Variables,
	}, nil
}
