package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports that a qualifying filing or document does not exist.
// It is expected for thinly covered or delisted issuers.
type NotFoundError struct {
	Resource  string   // e.g. "13F filing", "information table"
	Key       string   // CIK or accession the lookup was keyed by
	Attempted []string // candidates tried before giving up
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no %s found for %s", e.Resource, e.Key)
	if len(e.Attempted) > 0 {
		msg += ". Tried: " + strings.Join(e.Attempted, ", ")
	}
	return msg
}

// UpstreamError reports a network failure or non-success response from an external service.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	Service    string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.StatusCode, e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %s: %v", e.Service, e.URL, e.Err)
	}
	return fmt.Sprintf("%s request failed: %s", e.Service, e.URL)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUpstream reports whether err is, or wraps, an UpstreamError.
func IsUpstream(err error) bool {
	var up *UpstreamError
	return errors.As(err, &up)
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
