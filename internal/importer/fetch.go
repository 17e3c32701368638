package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

const (
	maxPageSize = 4 << 20
	minTextLen  = 100
)

type fetcher struct {
	client *http.Client
}

// fullText downloads pageURL and extracts its readable text. Pages with too
// little text yield "".
func (f *fetcher) fullText(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("server returned %s", http.StatusText(resp.StatusCode))
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageSize), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extracting content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minTextLen {
		return "", nil
	}
	return text, nil
}
