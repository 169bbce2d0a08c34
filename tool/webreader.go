package tool

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// WebPageReader fetches a web page and returns its readable text content.
// Scripts, styles and markup are stripped before extraction.
type WebPageReader struct {
	MaxChars   int
	HTTPClient *http.Client
	sanitizer  *bluemonday.Policy
}

type WebPageReaderOption func(*WebPageReader)

// WithReaderMaxChars caps the extracted text length.
func WithReaderMaxChars(max int) WebPageReaderOption {
	return func(r *WebPageReader) {
		if max > 0 {
			r.MaxChars = max
		}
	}
}

// WithReaderHTTPClient sets the HTTP client used for requests.
func WithReaderHTTPClient(client *http.Client) WebPageReaderOption {
	return func(r *WebPageReader) {
		r.HTTPClient = client
	}
}

// NewWebPageReader creates a new WebPageReader tool.
func NewWebPageReader(opts ...WebPageReaderOption) *WebPageReader {
	r := &WebPageReader{
		MaxChars:   8000,
		HTTPClient: &http.Client{},
		sanitizer:  bluemonday.UGCPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the name of the tool.
func (r *WebPageReader) Name() string {
	return "read_web_page"
}

// Description returns the description of the tool.
func (r *WebPageReader) Description() string {
	return "Fetch a web page and return its title and readable text. " +
		"Input should be a URL."
}

// Call fetches and extracts the page.
func (r *WebPageReader) Call(ctx context.Context, input string) (string, error) {
	pageURL := strings.TrimSpace(input)
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript, nav, footer, header").Remove()
	body := doc.Find("body").Text()
	body = r.sanitizer.Sanitize(body)
	body = collapseWhitespace(body)

	if r.MaxChars > 0 && len(body) > r.MaxChars {
		body = body[:r.MaxChars] + "..."
	}

	if title == "" {
		return body, nil
	}
	return fmt.Sprintf("Title: %s\n\n%s", title, body), nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
