package greeting

// Data models the greeting payload.
type Data struct {
	ID      int64  `json:"id" doc:"Process-wide greeting sequence number, starting at 1" example:"1"`
	Content string `json:"content" doc:"Greeting message" example:"Hello, World!"`
}

// GetOutput wraps the greeting response body.
type GetOutput struct {
	Body Data
}
