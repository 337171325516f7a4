package models

// ItemsResponse is the JSON body returned by the history server's /items endpoint.
type ItemsResponse struct {
	Data       []ItemPayload `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

type ItemPayload struct {
	RunID      string  `json:"run_id"`
	URL        string  `json:"url"`
	Status     string  `json:"status"`
	HTTPStatus int     `json:"http_status"`
	Title      string  `json:"title,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Attempts   int     `json:"attempts"`
	LastError  string  `json:"last_error,omitempty"`
	AddedAt    string  `json:"added_at,omitempty"`
}

type Pagination struct {
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}

// RunPayload is one entry of the /runs endpoint.
type RunPayload struct {
	ID             string `json:"id"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at,omitempty"`
	RefreshSeconds int    `json:"refresh_seconds"`
	URLCount       int    `json:"url_count"`
	Completed      bool   `json:"completed"`
}
