package registry

// External service endpoints.
const (
	LiFiBaseURL = "https://li.quest/v1"

	// DuckDuckGo instant-answer API used by the web_search tool.
	DuckDuckGoBaseURL = "https://api.duckduckgo.com"
)
