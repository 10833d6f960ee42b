package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rankwise.app/analyst/common/logger"
)

const defaultSerpAPIBaseURL = "https://serpapi.com"

// SerpClient queries the SerpAPI Google engine.
type SerpClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewSerpClient(client *http.Client, baseURL, apiKey string) *SerpClient {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultSerpAPIBaseURL
	}
	return &SerpClient{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// Domain is the result link's host without a leading www.
func (r OrganicResult) Domain() string {
	u, err := url.Parse(r.Link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

type RelatedSearch struct {
	Query string `json:"query"`
}

type SearchInformation struct {
	TotalResults int64 `json:"total_results"`
}

type SerpResponse struct {
	SearchInformation SearchInformation `json:"search_information"`
	OrganicResults    []OrganicResult   `json:"organic_results"`
	RelatedSearches   []RelatedSearch   `json:"related_searches"`
	Error             string            `json:"error"`
}

// PositionOf returns the best organic position of domain, or nil.
func (r *SerpResponse) PositionOf(domain string) (*int, string) {
	for _, res := range r.OrganicResults {
		d := res.Domain()
		if d == domain || strings.HasSuffix(d, "."+domain) {
			pos := res.Position
			return &pos, res.Link
		}
	}
	return nil, ""
}

func (c *SerpClient) Search(ctx context.Context, query string, num int) (*SerpResponse, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	if num > 0 {
		params.Set("num", strconv.Itoa(num))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, Permanent(fmt.Errorf("building serpapi request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi search %q: %w", query, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading serpapi response: %w", err)
	}

	var out SerpResponse
	decodeErr := json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if decodeErr != nil {
			msg = string(body)
		}
		return nil, statusErr("serpapi", resp.StatusCode, logger.Truncate(msg, 200))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", decodeErr)
	}
	if out.Error != "" {
		// SerpAPI reports empty result pages as an error on a 200.
		if strings.Contains(strings.ToLower(out.Error), "hasn't returned any results") {
			return &out, nil
		}
		return nil, Permanent(fmt.Errorf("serpapi: %s", out.Error))
	}
	return &out, nil
}
