// Package sciencebase provides a client for the USGS ScienceBase catalog.
//
// ScienceBase stores hierarchical items, each with an optional parent,
// attached files, facets and geospatial extents. This package manages the
// JOSSO session, item CRUD and search, paginated traversal and file
// ingestion from local files, remote URLs and in-memory buffers.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Client: HTTP transport with a shared cookie jar and session propagation
//   - Session: Login, LoginInteractive, Logout and IsLoggedIn
//   - Items: CRUD, batch delete, move, undelete and shortcuts
//   - Search: FindItems and the id finders built on it
//   - Cursor: forward traversal of search pages
//   - Upload: source resolution and the multipart upsert transaction
//   - Retry: exponential backoff for rate limiting and WAF responses
//   - Legacy: the older method names, delegating to Client
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client, err := sciencebase.NewClient(
//		sciencebase.Beta,
//		logger,
//		sciencebase.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := client.Login(ctx, "user@usgs.gov", password); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Logout(ctx)
//
//	item, err := client.CreateItem(ctx, sciencebase.NewItem(parentID, "Survey 2024"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	item, err = client.UploadAndUpsertItem(ctx, item, []sciencebase.UploadSource{
//		sciencebase.LocalFile{Path: "data.csv"},
//		sciencebase.RemoteURL{URL: "https://example.com/report.pdf"},
//	}, sciencebase.UpsertOptions{})
//
// Calls that may hit the rate limiter can be wrapped in Retry:
//
//	item, err := sciencebase.RetryValue(ctx, client, func(ctx context.Context) (sciencebase.Item, error) {
//		return client.GetItem(ctx, id)
//	})
//
// # Error Handling
//
// The package defines several error types:
//
//   - ErrAuth and the errors wrapping it: login and session failures
//   - ErrNotFound, ErrUnauthorized, ErrRateLimited, ErrServiceUnavailable, ErrHTTP
//   - ErrPrecondition: invalid input, detected before any request
//   - ErrUnrecognizedSource, ErrFileNotFound, ErrUploadFailed: ingestion
//   - ErrParse: a body that is not the expected JSON
//   - APIError: the status, headers and body of a failed response
//   - ChunkError: the failed batch of DeleteItems
//
// API errors match the sentinels with errors.Is:
//
//	if errors.Is(err, sciencebase.ErrNotFound) {
//		// Missing, or not visible to this user
//	}
//
// # Concurrency
//
// A Client may be used from several goroutines, but it holds exactly one
// session. Login and Logout affect every caller, so give each identity its
// own Client.
package sciencebase
