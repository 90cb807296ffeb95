package service

import (
	"errors"
	"fmt"

	"github.com/boxtvstar/tube-radar-sub000/internal/repository"
	"github.com/boxtvstar/tube-radar-sub000/internal/youtube"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrQuotaExceeded      = errors.New("daily YouTube quota exceeded")
	ErrMembershipRequired = errors.New("active membership required")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidAPIKey      = errors.New("YouTube API key rejected")
	ErrNoAPIKey           = errors.New("no YouTube API key available")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeErr maps repository errors onto service sentinels.
func storeErr(err error) error {
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case repository.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case repository.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// upstreamErr maps YouTube client errors onto service sentinels.
func upstreamErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuotaExceeded):
		return err
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	case errors.Is(err, youtube.ErrInvalidAPIKey):
		return fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
	case errors.Is(err, youtube.ErrChannelNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, youtube.ErrInvalidInput):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.Is(err, youtube.ErrNoAPIKey):
		return fmt.Errorf("%w: %v", ErrNoAPIKey, err)
	}
	return err
}
