package sciencebase

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDirectoryContact(t *testing.T) {
	server, mux := newTestServer(t)
	mux.HandleFunc("GET /directory/person/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id":                      r.PathValue("id"),
			"displayName":             "Jo Doe",
			"organizationDisplayText": "Water Mission Area",
			"email":                   "jdoe@usgs.gov",
			"firstName":               "Jo",
			"lastName":                "Doe",
			"primaryLocation": map[string]any{
				"mailAddress": map[string]any{"city": "Denver"},
			},
		})
	})
	client := newTestClient(t, server)

	contact, err := client.GetDirectoryContact(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "Jo Doe", contact.DisplayName)

	entry := contact.ItemContact("Point of Contact")
	assert.Equal(t, "Jo Doe", entry["name"])
	assert.Equal(t, "12345", entry["oldPartyId"])
	assert.Equal(t, "Point of Contact", entry["type"])
	assert.Equal(t, map[string]any{"displayText": "Water Mission Area"}, entry["organization"])
	assert.Equal(t, "jdoe@usgs.gov", entry["email"])
	assert.NotContains(t, entry, "middleName")
	assert.Equal(t, map[string]any{"mailAddress": map[string]any{"city": "Denver"}}, entry["primaryLocation"])
}

func TestNetCDFOPeNDAPFacet(t *testing.T) {
	server, mux := newTestServer(t)
	mux.HandleFunc("POST /catalog/items/scrapeNetCDFOPeNDAP", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://thredds.example.gov/dodsC/temp.nc", r.URL.Query().Get("url"))
		writeJSON(t, w, map[string]any{
			"title":       "Temperature",
			"summary":     "Daily means",
			"boundingBox": map[string]any{"minX": -110, "maxX": -100, "minY": 30, "maxY": 40},
			"variables":   []any{map[string]any{"name": "tmax"}},
		})
	})
	client := newTestClient(t, server)

	facet, err := client.NetCDFOPeNDAPFacet(context.Background(), "https://thredds.example.gov/dodsC/temp.nc")
	require.NoError(t, err)
	assert.Equal(t, netCDFFacetClass, facet["className"])
	assert.Equal(t, "Temperature", facet["title"])
	assert.Equal(t, map[string]any{"minX": -110.0, "maxX": -100.0, "minY": 30.0, "maxY": 40.0}, facet["boundingBox"])

	_, err = client.NetCDFOPeNDAPFacet(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrPrecondition)
}
