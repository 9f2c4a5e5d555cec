// Package fetch extracts plain text from web pages and PDFs for the index
// pipeline. Each URL is fetched independently; failures are returned as
// errors and isolated per URL by the caller.
package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// maxFetchBytes caps how much of a remote document is read.
const maxFetchBytes = 10 << 20 // 10 MiB

// Extracted is the text pulled out of one URL.
type Extracted struct {
	Title   string
	Content string
}

// DefaultClient is used when no client is supplied.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// URL fetches the given URL and extracts text, dispatching on content type:
// PDFs go through the PDF extractor, everything else is treated as HTML.
func URL(ctx context.Context, client *http.Client, rawURL string) (*Extracted, error) {
	if client == nil {
		client = DefaultClient
	}

	body, contentType, err := download(ctx, client, rawURL)
	if err != nil {
		return nil, err
	}

	if strings.Contains(contentType, "application/pdf") || strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		return extractPDF(body)
	}
	return extractHTML(string(body)), nil
}

func download(ctx context.Context, client *http.Client, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; krrs/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: http %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

var (
	titleRe      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptRe     = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// extractHTML strips markup and collapses whitespace, keeping paragraph
// breaks so downstream truncation cuts at sensible places.
func extractHTML(page string) *Extracted {
	title := ""
	if m := titleRe.FindStringSubmatch(page); m != nil {
		title = html.UnescapeString(strings.TrimSpace(m[1]))
	}

	text := scriptRe.ReplaceAllString(page, " ")
	text = tagRe.ReplaceAllString(text, "\n")
	text = html.UnescapeString(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	content := strings.Join(lines, "\n")
	content = blankLinesRe.ReplaceAllString(content, "\n\n")

	return &Extracted{Title: title, Content: content}
}
