package entities

// Common response variable
type Response struct {
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	StatusCode int         `json:"status_code"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
}

// PushSummary reports the outcome of a best-effort wallet update fan-out.
type PushSummary struct {
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped"`
}
