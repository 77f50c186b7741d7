package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bnema/tale-cli/internal/domain"
)

// StatusError is returned for any non-2xx gateway response so callers can
// tell gateway-level failures apart from client-side ones.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway status %d: %s", e.StatusCode, e.Message)
}

// Is lets a 401 satisfy errors.Is(err, domain.ErrNotAuthenticated), so a
// rejected token and a missing one are handled the same way.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrNotAuthenticated && e.StatusCode == http.StatusUnauthorized
}

// IsColdStart classifies errors for the poller's backoff policy. A cold
// start is an infrastructure warm-up condition: either the request never
// completed, or the gateway answered with a server-level status.
func IsColdStart(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrNotAuthenticated) || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
