package support

// ChatRequest is the body of POST /support/chat. A nil SessionID is sent as
// JSON null, which asks the backend to open a new session.
type ChatRequest struct {
	SessionID  *string           `json:"session_id"`
	CustomerID string            `json:"customer_id"`
	Message    string            `json:"message"`
	Context    map[string]string `json:"context"`
}

type ChatResponse struct {
	SessionID      string  `json:"session_id"`
	Status         string  `json:"status,omitempty"`
	Reply          string  `json:"reply"`
	MatchedIssueID *string `json:"matched_issue_id,omitempty"`
	MatchScore     float64 `json:"match_score,omitempty"`
}

type healthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}
