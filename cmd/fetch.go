package main

import (
	"context"
	"time"

	"github.com/sells-group/census-choropleth/internal/config"
	"github.com/sells-group/census-choropleth/internal/fetcher"
)

// localPath returns p unchanged for local files and downloads http(s) URLs
// into the fetch cache first.
func localPath(ctx context.Context, c config.FetchConfig, p string) (string, error) {
	if !fetcher.IsRemote(p) {
		return p, nil
	}
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.UserAgent,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		MaxRetries: c.MaxRetries,
	})
	return f.Cached(ctx, p, c.CacheDir)
}
