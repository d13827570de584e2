package newsdata

// APIResponse represents the news provider response structure.
type APIResponse struct {
	Status       string   `json:"status"`
	TotalResults int      `json:"totalResults"`
	Results      []Result `json:"results"`
}

type Result struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Link        string  `json:"link"`
	SourceID    string  `json:"source_id"`
	PubDate     string  `json:"pubDate"`
}
