package outcome

import (
	"errors"
	"fmt"
)

// ErrReportFailed is wrapped by every *ReportError.
var ErrReportFailed = errors.New("outcome report failed")

// ReportError says why the backend did not accept an outcome. StatusCode is
// zero when no response was received.
type ReportError struct {
	GameID     int64
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ReportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("outcome: PUT %s for game %d: status %d: %s", e.Endpoint, e.GameID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("outcome: PUT %s for game %d: %v", e.Endpoint, e.GameID, e.Err)
}

func (e *ReportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrReportFailed}
	}
	return []error{ErrReportFailed, e.Err}
}

// Permanent reports whether retrying cannot help: the backend answered with
// a 4xx other than 408 or 429.
func (e *ReportError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != 408 && e.StatusCode != 429
}

// IsPermanent reports whether err carries a *ReportError the backend
// rejected for good.
func IsPermanent(err error) bool {
	var re *ReportError
	return errors.As(err, &re) && re.Permanent()
}
