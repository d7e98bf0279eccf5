package duckduckgo

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	agenterr "github.com/loanify/agent/internal/errors"
	"github.com/loanify/agent/internal/httpx"
	"github.com/loanify/agent/internal/registry"
)

// Client queries the DuckDuckGo instant-answer API. It backs the agent's
// web_search tool; results are plain text suitable for handing back to the
// model verbatim.
type Client struct {
	http    *httpx.Client
	baseURL string
}

func New(httpClient *httpx.Client) *Client {
	return &Client{http: httpClient, baseURL: registry.DuckDuckGoBaseURL}
}

// SetBaseURL overrides the API endpoint, for tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

type instantAnswer struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	Definition    string `json:"Definition"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Search runs an instant-answer query and flattens the response to text.
// Preference order: direct answer, abstract, definition, related topics.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	clean := strings.TrimSpace(query)
	if clean == "" {
		return "", agenterr.New(agenterr.CodeUsage, "search query is empty")
	}

	vals := url.Values{}
	vals.Set("q", clean)
	vals.Set("format", "json")
	vals.Set("no_html", "1")
	vals.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+vals.Encode(), nil)
	if err != nil {
		return "", agenterr.Wrap(agenterr.CodeInternal, "build search request", err)
	}
	var answer instantAnswer
	if _, err := c.http.DoJSON(ctx, req, &answer); err != nil {
		return "", err
	}

	if answer.Answer != "" {
		return answer.Answer, nil
	}
	if answer.AbstractText != "" {
		if answer.AbstractURL != "" {
			return answer.AbstractText + " (" + answer.AbstractURL + ")", nil
		}
		return answer.AbstractText, nil
	}
	if answer.Definition != "" {
		return answer.Definition, nil
	}

	var lines []string
	for _, topic := range answer.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		lines = append(lines, "- "+topic.Text)
		if len(lines) >= 5 {
			break
		}
	}
	if len(lines) == 0 {
		return "", agenterr.New(agenterr.CodeNoRoute, "no results found for the query")
	}
	return strings.Join(lines, "\n"), nil
}
