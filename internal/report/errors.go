package report

import (
	"errors"
	"fmt"
)

// Sentinel errors for the report lifecycle. Failures are per-report-stream:
// callers log them and move on, they never abort sibling streams.
var (
	// ErrReportCreation indicates the provider rejected a report submission
	// for a reason other than a duplicate request.
	ErrReportCreation = errors.New("report creation failed")

	// ErrDuplicateUnresolved indicates a 409/425 duplicate response whose
	// body carried no recoverable report ID. Callers should not retry
	// blindly: the conflicting job is unknown.
	ErrDuplicateUnresolved = errors.New("duplicate report response without recoverable report ID")

	// ErrPollTimeout indicates the poller exhausted its attempt budget
	// without reaching a terminal status.
	ErrPollTimeout = errors.New("report polling attempts exhausted")

	// ErrDownload indicates the report payload fetch failed.
	ErrDownload = errors.New("report download failed")

	// ErrDecode indicates the downloaded payload could not be decompressed
	// or parsed. Fatal for the report; never silently dropped.
	ErrDecode = errors.New("report payload decode failed")
)

// CreationError carries the provider response from a rejected submission.
type CreationError struct {
	StatusCode int
	Body       string
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("report creation failed: status %d: %s", e.StatusCode, e.Body)
}

// Unwrap makes CreationError match ErrReportCreation via errors.Is.
func (e *CreationError) Unwrap() error {
	return ErrReportCreation
}
