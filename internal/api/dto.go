package api

import "time"

// AskRequest keeps the question raw so a non-string value can be told apart
// from a missing one.
type AskRequest struct {
	Question any `json:"question"`
}

type FeedbackRequest struct {
	EventID  string `json:"event_id"`
	ThumbsUp *bool  `json:"thumbs_up"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type BannerResponse struct {
	OK   bool   `json:"ok"`
	Name string `json:"name"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ETLHealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

type IngestResponse struct {
	OK    bool `json:"ok"`
	Added int  `json:"added"`
}
