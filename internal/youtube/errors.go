package youtube

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	ErrQuotaExceeded   = errors.New("youtube: daily quota exceeded")
	ErrInvalidAPIKey   = errors.New("youtube: API key rejected")
	ErrChannelNotFound = errors.New("youtube: channel not found")
	ErrInvalidInput    = errors.New("youtube: unrecognised channel reference")
	ErrNoAPIKey        = errors.New("youtube: no API key configured")
)

var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
}

var keyReasons = map[string]bool{
	"keyInvalid":          true,
	"keyExpired":          true,
	"accessNotConfigured": true,
	"ipRefererBlocked":    true,
}

// transientError marks an upstream failure that is worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Temporary() bool { return true }

// classify maps Data API failures onto the package's sentinel errors.
func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}

	for _, item := range gerr.Errors {
		if quotaReasons[item.Reason] {
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, gerr.Message)
		}
		if keyReasons[item.Reason] {
			return fmt.Errorf("%w: %s", ErrInvalidAPIKey, gerr.Message)
		}
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return &transientError{err: err}
		}
	}

	switch {
	case gerr.Code == http.StatusBadRequest && gerr.Message == "API key not valid. Please pass a valid API key.":
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, gerr.Message)
	case gerr.Code >= 500:
		return &transientError{err: err}
	}
	return err
}
