// Package omnisearch provides a Go client for the omnisearch HTTP API.
//
// Search and suggestions are public endpoints; index administration needs an
// API key.
//
//	client, _ := omnisearch.New("http://localhost:8080",
//	    omnisearch.WithAPIKey(os.Getenv("OMNISEARCH_API_KEY")),
//	)
//	res, _ := client.Search(ctx, omnisearch.SearchRequest{
//	    Query:   "live coding",
//	    Type:    omnisearch.SearchHybrid,
//	    Filters: &omnisearch.Filters{ContentType: []string{"stream"}},
//	})
//
// # Administration
//
//	report, _ := client.IndexAll(ctx)
//	stats, _ := client.IndexStatus(ctx)
//	_ = client.DeleteDocument(ctx, "post-42")
package omnisearch
