package support

import "github.com/pkg/errors"

// Outcome is the result of Send: Reply, Failure or Skipped.
type Outcome interface {
	isOutcome()
}

// Reply is a successful exchange.
type Reply struct {
	Text           string
	SessionID      string
	Status         string
	MatchedIssueID string
	MatchScore     float64
}

// Failure is a failed exchange. Message is never empty.
type Failure struct {
	Message    string
	StatusCode int
	Err        error
}

// Skipped means the input was blank and nothing was sent.
type Skipped struct{}

func (Reply) isOutcome()   {}
func (Failure) isOutcome() {}
func (Skipped) isOutcome() {}

func failureFrom(err error) Failure {
	f := Failure{Message: err.Error(), Err: err}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		f.StatusCode = backendErr.StatusCode
	}
	if f.Message == "" {
		f.Message = "unknown error"
	}
	return f
}
