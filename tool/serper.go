package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// SerperSearch is a tool that searches Google through the Serper API.
type SerperSearch struct {
	APIKey     string
	BaseURL    string
	Num        int
	Country    string
	Lang       string
	HTTPClient *http.Client
}

type SerperOption func(*SerperSearch)

// WithSerperBaseURL sets the base URL for the Serper API.
func WithSerperBaseURL(baseURL string) SerperOption {
	return func(s *SerperSearch) {
		s.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithSerperNum sets the number of results to return (1-20).
func WithSerperNum(num int) SerperOption {
	return func(s *SerperSearch) {
		if num < 1 {
			num = 1
		}
		if num > 20 {
			num = 20
		}
		s.Num = num
	}
}

// WithSerperCountry sets the country code for search results (e.g., "us", "cn").
func WithSerperCountry(country string) SerperOption {
	return func(s *SerperSearch) {
		s.Country = country
	}
}

// WithSerperLang sets the language code for search results (e.g., "en", "zh").
func WithSerperLang(lang string) SerperOption {
	return func(s *SerperSearch) {
		s.Lang = lang
	}
}

// WithSerperHTTPClient sets the HTTP client used for requests.
func WithSerperHTTPClient(client *http.Client) SerperOption {
	return func(s *SerperSearch) {
		s.HTTPClient = client
	}
}

// NewSerperSearch creates a new SerperSearch tool.
// If apiKey is empty, it tries to read from SERPER_API_KEY environment variable.
func NewSerperSearch(apiKey string, opts ...SerperOption) (*SerperSearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("SERPER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY not set")
	}

	s := &SerperSearch{
		APIKey:     apiKey,
		BaseURL:    "https://google.serper.dev",
		Num:        10,
		HTTPClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Name returns the name of the tool.
func (s *SerperSearch) Name() string {
	return "google_search"
}

// Description returns the description of the tool.
func (s *SerperSearch) Description() string {
	return "Search Google for current information. " +
		"Useful for questions about recent events or facts not in training data. " +
		"Input should be a search query."
}

// Call executes the search.
func (s *SerperSearch) Call(ctx context.Context, input string) (string, error) {
	result, err := s.post(ctx, "/search", map[string]any{
		"q":   input,
		"num": s.Num,
		"gl":  s.Country,
		"hl":  s.Lang,
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	if box, ok := result["answerBox"].(map[string]any); ok {
		if answer, _ := box["answer"].(string); answer != "" {
			sb.WriteString(fmt.Sprintf("Answer: %s\n\n", answer))
		} else if snippet, _ := box["snippet"].(string); snippet != "" {
			sb.WriteString(fmt.Sprintf("Answer: %s\n\n", snippet))
		}
	}

	if organic, ok := result["organic"].([]any); ok {
		for i, r := range organic {
			item, ok := r.(map[string]any)
			if !ok {
				continue
			}
			title, _ := item["title"].(string)
			link, _ := item["link"].(string)
			snippet, _ := item["snippet"].(string)
			sb.WriteString(fmt.Sprintf("%d. Title: %s\nURL: %s\nSnippet: %s\n\n",
				i+1, title, link, snippet))
		}
	}

	if sb.Len() == 0 {
		return "No results found", nil
	}
	return sb.String(), nil
}

func (s *SerperSearch) post(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.APIKey)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper api returned status: %d", resp.StatusCode)
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result, nil
}

// SerperPlaces is a tool that searches Google Places through the Serper API.
type SerperPlaces struct {
	search *SerperSearch
}

// NewSerperPlaces creates a new SerperPlaces tool sharing SerperSearch's
// configuration.
func NewSerperPlaces(apiKey string, opts ...SerperOption) (*SerperPlaces, error) {
	search, err := NewSerperSearch(apiKey, opts...)
	if err != nil {
		return nil, err
	}
	return &SerperPlaces{search: search}, nil
}

// Name returns the name of the tool.
func (p *SerperPlaces) Name() string {
	return "google_places"
}

// Description returns the description of the tool.
func (p *SerperPlaces) Description() string {
	return "Search Google Places for businesses and locations. " +
		"Useful for finding restaurants, shops and addresses near a place. " +
		"Input should be a place query like 'coffee shops in Seattle'."
}

// Call executes the places search.
func (p *SerperPlaces) Call(ctx context.Context, input string) (string, error) {
	result, err := p.search.post(ctx, "/places", map[string]any{
		"q":  input,
		"gl": p.search.Country,
		"hl": p.search.Lang,
	})
	if err != nil {
		return "", err
	}

	places, ok := result["places"].([]any)
	if !ok || len(places) == 0 {
		return "No places found", nil
	}

	var sb strings.Builder
	for i, r := range places {
		item, ok := r.(map[string]any)
		if !ok {
			continue
		}
		title, _ := item["title"].(string)
		address, _ := item["address"].(string)
		rating, _ := item["rating"].(float64)
		sb.WriteString(fmt.Sprintf("%d. %s\nAddress: %s\nRating: %.1f\n\n",
			i+1, title, address, rating))
		if i+1 >= p.search.Num {
			break
		}
	}
	return sb.String(), nil
}
